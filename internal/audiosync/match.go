package audiosync

import (
	"math/bits"
	"slices"
	"time"
)

const (
	// valueProbe is how far token values are perturbed when looking for
	// candidate shifts.
	valueProbe = 2
	minRange   = 20 * time.Second
	maxRange   = 180 * time.Second
)

// span is a run of matched reference token positions, inclusive.
type span struct {
	First, Last int
}

func (s span) duration() time.Duration {
	return time.Duration(s.Last-s.First+1) * TokenDuration
}

// match is the outcome of aligning one candidate against the reference.
// Reference position i lines up with candidate position i-Shift.
type match struct {
	Shift int
	Range span
}

// bestMatch runs the coarse alignment. It reports false when no shift yields
// a matched range of acceptable length.
func bestMatch(ref, cand []uint32, tolerance int) (match, bool) {
	var (
		best  match
		found bool
	)
	for _, shift := range candidateShifts(ref, cand) {
		r, ok := longestRange(ref, cand, shift, tolerance)
		if !ok {
			continue
		}
		if !found || r.duration() > best.Range.duration() {
			best = match{Shift: shift, Range: r}
			found = true
		}
	}
	return best, found
}

// candidateShifts collects every shift at which some reference token has a
// candidate token within valueProbe of its value. Shifts are returned in
// ascending order so ties resolve deterministically.
func candidateShifts(ref, cand []uint32) []int {
	refIndex := invertedIndex(ref)
	candIndex := invertedIndex(cand)
	seen := make(map[int]struct{})
	for value, refPositions := range refIndex {
		for delta := -valueProbe; delta <= valueProbe; delta++ {
			probe := int64(value) + int64(delta)
			if probe < 0 || probe > int64(^uint32(0)) {
				continue
			}
			for _, j := range candIndex[uint32(probe)] {
				for _, i := range refPositions {
					seen[i-j] = struct{}{}
				}
			}
		}
	}
	shifts := make([]int, 0, len(seen))
	for shift := range seen {
		shifts = append(shifts, shift)
	}
	slices.Sort(shifts)
	return shifts
}

func invertedIndex(tokens []uint32) map[uint32][]int {
	index := make(map[uint32][]int, len(tokens))
	for i, v := range tokens {
		index[v] = append(index[v], i)
	}
	return index
}

// longestRange scans the overlap at shift, groups positions whose tokens differ
// by at most tolerance bits into contiguous runs, and returns the longest run
// whose duration is within [minRange, maxRange].
func longestRange(ref, cand []uint32, shift, tolerance int) (span, bool) {
	first := max(0, shift)
	last := min(len(ref), len(cand)+shift)

	var (
		best    span
		found   bool
		current span
		open    bool
	)
	flush := func() {
		if !open {
			return
		}
		open = false
		d := current.duration()
		if d < minRange || d > maxRange {
			return
		}
		if !found || d > best.duration() {
			best = current
			found = true
		}
	}
	for i := first; i < last; i++ {
		if bits.OnesCount32(ref[i]^cand[i-shift]) > tolerance {
			continue
		}
		if open && i-current.Last <= 1 {
			current.Last = i
			continue
		}
		flush()
		current = span{First: i, Last: i}
		open = true
	}
	flush()
	return best, found
}
