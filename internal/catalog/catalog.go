package catalog

import (
	"context"
	"time"

	"segmux/internal/media"
)

// Episode is a resolved catalog entry.
type Episode struct {
	Ref   string
	Title string
	// Output is the suggested output file name without extension.
	Output string
	Tracks []media.Track
}

// Client resolves an episode reference.
type Client interface {
	Resolve(ctx context.Context, ref string) (Episode, error)
}

// TracksOf returns the episode's tracks of the given kind, in manifest order.
func (e Episode) TracksOf(kind media.Kind) []media.Track {
	return media.Filter(e.Tracks, kind)
}

// Duration is the longest track duration.
func (e Episode) Duration() time.Duration {
	var d time.Duration
	for _, t := range e.Tracks {
		d = max(d, t.Duration)
	}
	return d
}
