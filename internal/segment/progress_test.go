package segment

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestReporterSmoothsThroughput(t *testing.T) {
	counters := &Counters{}
	r := &Reporter{Counters: counters, TotalSegments: 4, Smoothing: 0.5}

	counters.Segments.Add(1)
	counters.Bytes.Add(1000)
	snap := r.Sample(time.Second)
	if snap.BytesPerSecond != 1000 {
		t.Fatalf("first sample speed = %v, want 1000", snap.BytesPerSecond)
	}
	if snap.Percent() != 25 {
		t.Fatalf("percent = %v, want 25", snap.Percent())
	}

	counters.Bytes.Add(3000)
	snap = r.Sample(time.Second)
	if snap.BytesPerSecond != 2000 {
		t.Fatalf("smoothed speed = %v, want 2000", snap.BytesPerSecond)
	}
}

func TestSnapshotString(t *testing.T) {
	line := Snapshot{Segments: 1, TotalSegments: 2, Bytes: 2_000_000, BytesPerSecond: 1_000_000}.String()
	for _, want := range []string{"50.0%", "2.0 MB", "1.0 MB/s"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
}

func TestReporterRunStopsOnCancel(t *testing.T) {
	var out bytes.Buffer
	r := &Reporter{Counters: &Counters{}, TotalSegments: 1, Interval: time.Millisecond, Out: &out, Label: "video"}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r.Run(ctx)
	if !strings.Contains(out.String(), "video") || !strings.HasSuffix(out.String(), "\n") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestShouldReportRequiresEnabled(t *testing.T) {
	if ShouldReport(false, nil) {
		t.Fatal("disabled reporter should not run")
	}
}

type recordingStatus struct {
	bytes.Buffer
	redraws int
	ended   bool
}

func (r *recordingStatus) Redraw(string) { r.redraws++ }

func (r *recordingStatus) End() { r.ended = true }

func TestReporterDrawsThroughStatusWriter(t *testing.T) {
	status := &recordingStatus{}
	r := &Reporter{Counters: &Counters{}, TotalSegments: 1, Interval: time.Millisecond, Out: status}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r.Run(ctx)
	if status.redraws == 0 || !status.ended {
		t.Fatalf("redraws = %d, ended = %v", status.redraws, status.ended)
	}
	if status.Len() != 0 {
		t.Fatalf("raw writes bypassed the status writer: %q", status.String())
	}
}
