package segment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"segmux/internal/errs"
)

type fakeFetcher struct {
	mu       sync.Mutex
	calls    map[uint32]int
	failures map[uint32]int // index -> number of leading failures
	delay    func(uint32) time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, seg Segment) ([]byte, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[uint32]int{}
	}
	f.calls[seg.Index]++
	call := f.calls[seg.Index]
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-time.After(f.delay(seg.Index)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if call <= f.failures[seg.Index] {
		return nil, fmt.Errorf("connection reset (call %d)", call)
	}
	return payload(seg.Index), nil
}

func (f *fakeFetcher) callCount(index uint32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[index]
}

type xorDecrypter struct{ failKey string }

func (d xorDecrypter) Decrypt(data []byte, keyRef string) ([]byte, error) {
	if keyRef == d.failKey {
		return nil, errors.New("bad padding")
	}
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ 0x5a
	}
	return out, nil
}

func payload(index uint32) []byte {
	return []byte(strings.Repeat(fmt.Sprintf("seg-%02d|", index), int(index)+1))
}

func makeSegments(n int, keyRef string) []Segment {
	segs := make([]Segment, n)
	for i := range segs {
		segs[i] = Segment{Index: uint32(i), URL: fmt.Sprintf("https://cdn.example/seg-%d.ts", i), KeyRef: keyRef}
	}
	return segs
}

func drain(ch <-chan Delivery) (map[uint32][]byte, error) {
	got := map[uint32][]byte{}
	for d := range ch {
		if d.Err != nil {
			return got, d.Err
		}
		got[d.Index] = d.Data
	}
	return got, nil
}

func TestSchedulerDeliversEverySegment(t *testing.T) {
	fetcher := &fakeFetcher{delay: func(uint32) time.Duration {
		return time.Duration(rand.IntN(5)) * time.Millisecond
	}}
	counters := &Counters{}
	sched := &Scheduler{Fetcher: fetcher, Workers: 4, Counters: counters}
	segs := makeSegments(8, "")
	deliver := NewDeliveryChannel(len(segs))

	if err := sched.Run(context.Background(), segs, deliver); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := drain(deliver)
	if err != nil {
		t.Fatalf("unexpected poison: %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("delivered %d segments, want 8", len(got))
	}
	var total int64
	for i := range uint32(8) {
		if !bytes.Equal(got[i], payload(i)) {
			t.Fatalf("segment %d payload mismatch", i)
		}
		total += int64(len(payload(i)))
	}
	if counters.Segments.Load() != 8 || counters.Bytes.Load() != total {
		t.Fatalf("counters = %d/%d, want 8/%d", counters.Segments.Load(), counters.Bytes.Load(), total)
	}
}

func TestSchedulerRetriesTransientFailures(t *testing.T) {
	fetcher := &fakeFetcher{failures: map[uint32]int{2: 4}}
	sched := &Scheduler{Fetcher: fetcher, Workers: 2, Retry: DefaultRetryPolicy()}
	segs := makeSegments(4, "")
	deliver := NewDeliveryChannel(len(segs))

	if err := sched.Run(context.Background(), segs, deliver); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := drain(deliver); err != nil {
		t.Fatalf("unexpected poison: %v", err)
	}
	if calls := fetcher.callCount(2); calls != 5 {
		t.Fatalf("segment 2 fetched %d times, want 5", calls)
	}
}

func TestSchedulerFailsAfterMaxAttempts(t *testing.T) {
	fetcher := &fakeFetcher{failures: map[uint32]int{5: 5}}
	sched := &Scheduler{Fetcher: fetcher, Workers: 4, Retry: RetryPolicy{MaxAttempts: 5}}
	segs := makeSegments(8, "")
	deliver := NewDeliveryChannel(len(segs))

	err := sched.Run(context.Background(), segs, deliver)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Run error = %v, want *FetchError", err)
	}
	if fetchErr.Index != 5 || fetchErr.URL != segs[5].URL || fetchErr.Attempts != 5 {
		t.Fatalf("unexpected fetch error: %+v", fetchErr)
	}
	if !strings.Contains(err.Error(), "segment 5") || !strings.Contains(err.Error(), segs[5].URL) {
		t.Fatalf("error %q should name index and URL", err)
	}
	if !errors.Is(err, errs.ErrTransient) {
		t.Fatal("fetch error should classify as transient")
	}
	if calls := fetcher.callCount(5); calls != 5 {
		t.Fatalf("segment 5 fetched %d times, want 5", calls)
	}

	_, poison := drain(deliver)
	if !errors.As(poison, &fetchErr) {
		t.Fatalf("consumer should receive poison delivery, got %v", poison)
	}
}

func TestSchedulerDoesNotRetryDecryptFailure(t *testing.T) {
	fetcher := &fakeFetcher{}
	sched := &Scheduler{Fetcher: fetcher, Decrypter: xorDecrypter{failKey: "bad"}, Workers: 1}
	segs := makeSegments(3, "good")
	segs[1].KeyRef = "bad"
	deliver := NewDeliveryChannel(len(segs))

	err := sched.Run(context.Background(), segs, deliver)
	var decErr *DecryptError
	if !errors.As(err, &decErr) || decErr.Index != 1 {
		t.Fatalf("Run error = %v, want decrypt error for segment 1", err)
	}
	if !errors.Is(err, errs.ErrCorrupt) {
		t.Fatal("decrypt error should classify as corrupt")
	}
	if calls := fetcher.callCount(1); calls != 1 {
		t.Fatalf("segment 1 fetched %d times, want exactly 1", calls)
	}
}

func TestSchedulerDecryptsPayload(t *testing.T) {
	sched := &Scheduler{Fetcher: &fakeFetcher{}, Decrypter: xorDecrypter{}, Workers: 2}
	segs := makeSegments(2, "k")
	deliver := NewDeliveryChannel(len(segs))
	if err := sched.Run(context.Background(), segs, deliver); err != nil {
		t.Fatal(err)
	}
	got, _ := drain(deliver)
	want, _ := xorDecrypter{}.Decrypt(payload(1), "k")
	if !bytes.Equal(got[1], want) {
		t.Fatal("payload was not decrypted")
	}
}

func TestSchedulerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &fakeFetcher{delay: func(uint32) time.Duration { return time.Second }}
	sched := &Scheduler{Fetcher: fetcher, Workers: 2}
	segs := makeSegments(4, "")
	deliver := NewDeliveryChannel(len(segs))

	time.AfterFunc(20*time.Millisecond, cancel)
	start := time.Now()
	err := sched.Run(ctx, segs, deliver)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("cancellation did not stop workers promptly")
	}
}

func TestWorkerCount(t *testing.T) {
	s := &Scheduler{Workers: 8}
	if got := s.WorkerCount(3); got != 3 {
		t.Fatalf("WorkerCount(3) = %d, want 3", got)
	}
	s.Workers = 0
	if got := s.WorkerCount(1000); got < 1 {
		t.Fatalf("WorkerCount default = %d", got)
	}
}

func TestRetryPolicyBackoffRespectsContext(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Backoff: ConstantBackoff(time.Hour)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := policy.wait(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("wait = %v, want context.Canceled", err)
	}
}
