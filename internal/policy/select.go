package policy

import (
	"context"

	langpkg "segmux/internal/language"
	"segmux/internal/media"
)

// Selection is the set of tracks a job downloads.
type Selection struct {
	Videos    []media.Track
	Audios    []media.Track
	Subtitles []media.Track
}

// All returns every selected track, video first.
func (s Selection) All() []media.Track {
	out := make([]media.Track, 0, len(s.Videos)+len(s.Audios)+len(s.Subtitles))
	out = append(out, s.Videos...)
	out = append(out, s.Audios...)
	return append(out, s.Subtitles...)
}

// Select keeps every video track and the audio and subtitle tracks matching
// the requested locales, in request order. An empty request keeps every track
// of that kind. Locales with no match are referred to missing.
func Select(ctx context.Context, tracks []media.Track, audio, subtitles []string, missing MissingLocale) (Selection, error) {
	sel := Selection{Videos: media.Filter(tracks, media.KindVideo)}
	var err error
	if sel.Audios, err = pick(ctx, media.Filter(tracks, media.KindAudio), media.KindAudio, audio, missing); err != nil {
		return Selection{}, err
	}
	if sel.Subtitles, err = pick(ctx, media.Filter(tracks, media.KindSubtitle), media.KindSubtitle, subtitles, missing); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

func pick(ctx context.Context, available []media.Track, kind media.Kind, requested []string, missing MissingLocale) ([]media.Track, error) {
	requested = langpkg.NormalizeList(requested)
	if len(requested) == 0 {
		return available, nil
	}
	var out []media.Track
	seen := make(map[string]struct{})
	add := func(t media.Track) {
		if _, dup := seen[t.ID]; dup {
			return
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	for _, locale := range requested {
		matched := false
		for _, t := range available {
			if langpkg.Matches(locale, t.Locale) {
				add(t)
				matched = true
			}
		}
		if matched || missing == nil {
			continue
		}
		sub, ok, err := missing.Missing(ctx, kind, locale, available)
		if err != nil {
			return nil, err
		}
		if ok {
			add(sub)
		}
	}
	return out, nil
}
