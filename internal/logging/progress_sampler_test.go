package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	if s := NewProgressSampler(0); s.bucketSize != 5 || s.lastBucket != -1 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s := NewProgressSampler(10); s.bucketSize != 10 {
		t.Fatalf("bucketSize = %v, want 10", s.bucketSize)
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "mux") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(5)
	steps := []struct {
		percent float64
		stage   string
		want    bool
	}{
		{0, "download", true},
		{3, "download", false},
		{5, "download", true},
		{9.9, "download", false},
		{0, "mux", true},
		{-1, "mux", false},
		{100, "mux", true},
		{100, "mux", false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.stage); got != step.want {
			t.Fatalf("step %d (%v%%, %s): got %v want %v", i, step.percent, step.stage, got, step.want)
		}
	}
	s.Reset()
	if !s.ShouldLog(0, "mux") {
		t.Fatal("expected emit after reset")
	}
}
