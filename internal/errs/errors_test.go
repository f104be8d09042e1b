package errs_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"segmux/internal/errs"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := errs.Wrap(errs.ErrExternalTool, "mux", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errs.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"mux", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := errs.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, errs.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("segment 3: %w", errs.ErrCorrupt), "decrypt"},
		{errs.Wrap(errs.ErrConsistency, "reassembly", "", "stranded", nil), "consistency"},
		{errs.Wrap(errs.ErrExternalTool, "mux", "", "", nil), "external_tool"},
		{errs.Wrap(errs.ErrConfiguration, "config", "", "", nil), "invalid_input"},
		{errs.Wrap(errs.ErrTransient, "segment", "", "", nil), "fetch"},
		{fmt.Errorf("job: %w", context.Canceled), "cancelled"},
		{errors.New("other"), "failed"},
	}
	for _, tt := range tests {
		if got := errs.Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
