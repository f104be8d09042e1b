package media

import (
	"testing"
	"time"

	"segmux/internal/segment"
)

func TestSegmentListSingleFileBecomesPseudoSegment(t *testing.T) {
	track := Track{ID: "sub-en", URL: "https://cdn.example/sub.ass", KeyRef: "k"}
	segs := track.SegmentList()
	if len(segs) != 1 || segs[0].Index != 0 || segs[0].URL != track.URL || segs[0].KeyRef != "k" {
		t.Fatalf("unexpected segments: %+v", segs)
	}
	if (Track{}).SegmentList() != nil {
		t.Fatal("expected nil for track without URL or segments")
	}
}

func TestSegmentListKeepsExplicitSegments(t *testing.T) {
	track := Track{Segments: []segment.Segment{{Index: 0}, {Index: 1}}, URL: "ignored"}
	if got := track.SegmentList(); len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

func TestEstimatedBytes(t *testing.T) {
	track := Track{Bitrate: 8_000_000, Duration: 10 * time.Second}
	if got := track.EstimatedBytes(); got != 10_000_000 {
		t.Fatalf("EstimatedBytes = %d, want 10000000", got)
	}
	if (Track{Bitrate: -1, Duration: time.Second}).EstimatedBytes() != 0 {
		t.Fatal("negative bitrate should estimate zero")
	}
}

func TestParseKind(t *testing.T) {
	for input, want := range map[string]Kind{"Video": KindVideo, "audio": KindAudio, "subtitles": KindSubtitle} {
		got, err := ParseKind(input)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseKind("data"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
