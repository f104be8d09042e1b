package reassembly

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"segmux/internal/errs"
	"segmux/internal/segment"
)

func payload(i int) []byte {
	return []byte(fmt.Sprintf("<%d:%s>", i, strings.Repeat("x", i)))
}

func inOrder(n int) []byte {
	var buf bytes.Buffer
	for i := range n {
		buf.Write(payload(i))
	}
	return buf.Bytes()
}

func feed(order []int) chan segment.Delivery {
	ch := segment.NewDeliveryChannel(len(order))
	for _, i := range order {
		ch <- segment.Delivery{Index: uint32(i), Data: payload(i)}
	}
	close(ch)
	return ch
}

func permutations(n int) [][]int {
	var out [][]int
	var permute func(prefix, rest []int)
	permute = func(prefix, rest []int) {
		if len(rest) == 0 {
			out = append(out, append([]int(nil), prefix...))
			return
		}
		for i := range rest {
			next := append(append([]int(nil), rest[:i]...), rest[i+1:]...)
			permute(append(prefix, rest[i]), next)
		}
	}
	base := make([]int, n)
	for i := range base {
		base[i] = i
	}
	permute(nil, base)
	return out
}

func TestConsumeWritesEveryPermutationInOrder(t *testing.T) {
	const n = 5
	want := inOrder(n)
	for _, order := range permutations(n) {
		var out bytes.Buffer
		w := NewWriter(&out, nil)
		if err := w.Consume(context.Background(), feed(order), n); err != nil {
			t.Fatalf("order %v: %v", order, err)
		}
		if !bytes.Equal(out.Bytes(), want) {
			t.Fatalf("order %v produced %q", order, out.Bytes())
		}
		if w.Stats().Segments != n || w.Stats().Bytes != int64(len(want)) {
			t.Fatalf("order %v stats = %+v", order, w.Stats())
		}
	}
}

func TestConsumeReportsBufferHighWaterMark(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out, nil)
	if err := w.Consume(context.Background(), feed([]int{3, 2, 1, 0}), 4); err != nil {
		t.Fatal(err)
	}
	if w.Stats().MaxBuffered != 3 {
		t.Fatalf("MaxBuffered = %d, want 3", w.Stats().MaxBuffered)
	}
}

type delayedFetcher struct{}

func (delayedFetcher) Fetch(ctx context.Context, seg segment.Segment) ([]byte, error) {
	time.Sleep(time.Duration(rand.IntN(8)) * time.Millisecond)
	return payload(int(seg.Index)), nil
}

func TestScheduledDownloadMatchesInOrderHash(t *testing.T) {
	const n = 8
	segs := make([]segment.Segment, n)
	for i := range segs {
		segs[i] = segment.Segment{Index: uint32(i), URL: fmt.Sprintf("mem://%d", i)}
	}
	deliveries := segment.NewDeliveryChannel(n)
	sched := &segment.Scheduler{Fetcher: delayedFetcher{}, Workers: 4}

	done := make(chan error, 1)
	go func() { done <- sched.Run(context.Background(), segs, deliveries) }()

	var out bytes.Buffer
	if err := NewWriter(&out, nil).Consume(context.Background(), deliveries, n); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sha256.Sum256(out.Bytes()) != sha256.Sum256(inOrder(n)) {
		t.Fatal("output hash differs from in-order concatenation")
	}
}

func TestConsumeStrandedIndices(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out, nil)
	err := w.Consume(context.Background(), feed([]int{0, 4, 2}), 5)

	var cErr *ConsistencyError
	if !errors.As(err, &cErr) {
		t.Fatalf("Consume error = %v, want *ConsistencyError", err)
	}
	if len(cErr.Stranded) != 2 || cErr.Stranded[0] != 2 || cErr.Stranded[1] != 4 {
		t.Fatalf("stranded = %v, want [2 4]", cErr.Stranded)
	}
	if cErr.Missing != 2 {
		t.Fatalf("missing = %d, want 2", cErr.Missing)
	}
	if !strings.Contains(err.Error(), "[2, 4]") {
		t.Fatalf("error %q should enumerate stranded indices", err)
	}
	if !errors.Is(err, errs.ErrConsistency) {
		t.Fatal("expected consistency classification")
	}
}

func TestConsumeEarlyCloseWithEmptyBuffer(t *testing.T) {
	var out bytes.Buffer
	err := NewWriter(&out, nil).Consume(context.Background(), feed([]int{0, 1}), 3)
	var cErr *ConsistencyError
	if !errors.As(err, &cErr) || cErr.Missing != 1 || len(cErr.Stranded) != 0 {
		t.Fatalf("Consume error = %v", err)
	}
}

func TestConsumeRejectsDuplicates(t *testing.T) {
	var out bytes.Buffer
	err := NewWriter(&out, nil).Consume(context.Background(), feed([]int{0, 0, 1}), 2)
	var cErr *ConsistencyError
	if !errors.As(err, &cErr) || cErr.Duplicate == nil || *cErr.Duplicate != 0 {
		t.Fatalf("Consume error = %v, want duplicate of 0", err)
	}
}

func TestConsumeStopsOnPoison(t *testing.T) {
	poison := errors.New("segment 5 failed")
	ch := segment.NewDeliveryChannel(3)
	ch <- segment.Delivery{Index: 1, Data: payload(1)}
	ch <- segment.Delivery{Err: poison}

	var out bytes.Buffer
	err := NewWriter(&out, nil).Consume(context.Background(), ch, 3)
	if !errors.Is(err, poison) {
		t.Fatalf("Consume error = %v, want poison", err)
	}
	if out.Len() != 0 {
		t.Fatalf("wrote %d bytes before poison", out.Len())
	}
}

func TestConsumeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := make(chan segment.Delivery)
	if err := NewWriter(&bytes.Buffer{}, nil).Consume(ctx, ch, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("Consume error = %v, want context.Canceled", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestConsumeSurfacesWriteErrors(t *testing.T) {
	err := NewWriter(failingWriter{}, nil).Consume(context.Background(), feed([]int{0}), 1)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Consume error = %v", err)
	}
}
