package policy

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"segmux/internal/errs"
	"segmux/internal/media"
)

func sampleTracks() []media.Track {
	return []media.Track{
		{ID: "v1", Kind: media.KindVideo, Locale: "ja-JP"},
		{ID: "a-ja", Kind: media.KindAudio, Locale: "ja-JP"},
		{ID: "a-en", Kind: media.KindAudio, Locale: "en-US"},
		{ID: "a-en-gb", Kind: media.KindAudio, Locale: "en-GB"},
		{ID: "s-en", Kind: media.KindSubtitle, Locale: "en-US"},
		{ID: "s-de", Kind: media.KindSubtitle, Locale: "de-DE"},
	}
}

func ids(tracks []media.Track) string {
	parts := make([]string, 0, len(tracks))
	for _, t := range tracks {
		parts = append(parts, t.ID)
	}
	return strings.Join(parts, ",")
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name      string
		audio     []string
		subtitles []string
		wantAudio string
		wantSubs  string
	}{
		{"empty keeps all", nil, nil, "a-ja,a-en,a-en-gb", "s-en,s-de"},
		{"language matches every region", []string{"en"}, []string{"de"}, "a-en,a-en-gb", "s-de"},
		{"region is exact", []string{"en-GB", "ja"}, []string{"en-US"}, "a-en-gb,a-ja", "s-en"},
		{"duplicates collapse", []string{"en-US", "en"}, nil, "a-en,a-en-gb", "s-en,s-de"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Select(context.Background(), sampleTracks(), tt.audio, tt.subtitles, Fail{})
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if ids(sel.Videos) != "v1" {
				t.Fatalf("videos = %s", ids(sel.Videos))
			}
			if got := ids(sel.Audios); got != tt.wantAudio {
				t.Fatalf("audio = %s, want %s", got, tt.wantAudio)
			}
			if got := ids(sel.Subtitles); got != tt.wantSubs {
				t.Fatalf("subtitles = %s, want %s", got, tt.wantSubs)
			}
			if len(sel.All()) != 1+len(sel.Audios)+len(sel.Subtitles) {
				t.Fatalf("All = %s", ids(sel.All()))
			}
		})
	}
}

func TestFailPolicy(t *testing.T) {
	_, err := Select(context.Background(), sampleTracks(), []string{"fr"}, nil, Fail{})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "fr") {
		t.Fatalf("error should name the locale: %v", err)
	}
}

func TestWarnPolicySkips(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sel, err := Select(context.Background(), sampleTracks(), []string{"fr", "ja"}, nil, Warn{Logger: logger})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if ids(sel.Audios) != "a-ja" {
		t.Fatalf("audio = %s", ids(sel.Audios))
	}
	if !strings.Contains(buf.String(), "locale_missing") {
		t.Fatalf("expected warning log, got %q", buf.String())
	}
}

func TestPromptPolicy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"choose second", "2\n", "a-en", false},
		{"skip on enter", "\n", "", false},
		{"skip on eof", "", "", false},
		{"out of range", "9\n", "", true},
		{"not a number", "english\n", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := Prompt{In: strings.NewReader(tt.input), Out: &out}
			sel, err := Select(context.Background(), sampleTracks(), []string{"fr"}, nil, p)
			if tt.wantErr {
				if !errors.Is(err, errs.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if got := ids(sel.Audios); got != tt.want {
				t.Fatalf("audio = %q, want %q", got, tt.want)
			}
			if !strings.Contains(out.String(), "en-GB") {
				t.Fatalf("prompt should list available tracks: %s", out.String())
			}
		})
	}
}

func TestForName(t *testing.T) {
	for name, want := range map[string]string{"fail": "policy.Fail", "": "policy.Warn", "WARN": "policy.Warn", "prompt": "policy.Prompt"} {
		p, err := ForName(name, nil, strings.NewReader(""), &bytes.Buffer{})
		if err != nil {
			t.Fatalf("ForName(%q): %v", name, err)
		}
		if got := typeName(p); got != want {
			t.Fatalf("ForName(%q) = %s, want %s", name, got, want)
		}
	}
	if _, err := ForName("ignore", nil, nil, nil); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func typeName(p MissingLocale) string {
	switch p.(type) {
	case Fail:
		return "policy.Fail"
	case Warn:
		return "policy.Warn"
	case Prompt:
		return "policy.Prompt"
	default:
		return "unknown"
	}
}
