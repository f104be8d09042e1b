package mux

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
)

var frameRe = regexp.MustCompile(`frame=\s*(\d+)`)

// Progress is one mux progress update.
type Progress struct {
	Frame       int64
	TotalFrames int64
	Percent     float64
	Done        bool
}

func newProgress(frame, total int64) Progress {
	p := Progress{Frame: frame, TotalFrames: total}
	if total > 0 {
		p.Percent = min(float64(frame)/float64(total)*100, 100)
	}
	return p
}

// parseFrame extracts the frame counter from one stats line.
func parseFrame(line string) (int64, bool) {
	m := frameRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	frame, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return frame, true
}

// readFrames scans r and forwards parsed frame counters until r is exhausted
// or stop is closed. Lines without a frame counter are skipped.
func readFrames(r io.Reader, frames chan<- int64, stop <-chan struct{}) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		frame, ok := parseFrame(scanner.Text())
		if !ok {
			continue
		}
		select {
		case frames <- frame:
		case <-stop:
			return
		}
	}
}
