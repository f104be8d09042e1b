package media

import (
	"fmt"
	"strings"
	"time"

	"segmux/internal/segment"
)

// Kind identifies the role of an elementary stream.
type Kind string

const (
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindSubtitle Kind = "subtitle"
)

// ParseKind maps a manifest string to a Kind.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindVideo:
		return KindVideo, nil
	case KindAudio:
		return KindAudio, nil
	case KindSubtitle, "sub", "subtitles":
		return KindSubtitle, nil
	default:
		return "", fmt.Errorf("unknown track kind %q", value)
	}
}

// Track is one elementary stream made of ordered segments or a single file.
type Track struct {
	ID       string
	Kind     Kind
	Locale   string
	Title    string
	Bitrate  int64 // bits per second
	Duration time.Duration
	// FrameRate is the catalog-reported rate for video tracks; zero when unknown.
	FrameRate float64
	// ClosedCaption marks subtitle tracks that carry hearing-impaired captions.
	ClosedCaption bool
	Segments      []segment.Segment
	// URL and KeyRef describe single-file tracks with no segment list.
	URL    string
	KeyRef string
	// Extension is the file extension used for the materialized temp file.
	Extension string
}

// SegmentList returns the segments to fetch. Single-file tracks become one
// pseudo segment at index 0 so they share the segmented pipeline.
func (t Track) SegmentList() []segment.Segment {
	if len(t.Segments) > 0 {
		return t.Segments
	}
	if strings.TrimSpace(t.URL) == "" {
		return nil
	}
	return []segment.Segment{{Index: 0, URL: t.URL, KeyRef: t.KeyRef}}
}

// EstimatedBytes returns bitrate/8 × duration seconds.
func (t Track) EstimatedBytes() uint64 {
	if t.Bitrate <= 0 || t.Duration <= 0 {
		return 0
	}
	return uint64(float64(t.Bitrate) / 8 * t.Duration.Seconds())
}

// Label renders a compact human description ("audio ja-JP").
func (t Track) Label() string {
	if t.Locale == "" {
		return string(t.Kind) + " " + t.ID
	}
	return string(t.Kind) + " " + t.Locale
}

// Filter returns the tracks of the given kind preserving order.
func Filter(tracks []Track, kind Kind) []Track {
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}
