package catalog

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"segmux/internal/errs"
	"segmux/internal/media"
	"segmux/internal/segment"
)

// manifest is the on-disk job description.
type manifest struct {
	Title   string              `toml:"title"`
	Output  string              `toml:"output"`
	BaseURL string              `toml:"base_url"`
	Keys    map[string]keyEntry `toml:"keys"`
	Tracks  []trackEntry        `toml:"tracks"`
}

type keyEntry struct {
	Key string `toml:"key"`
	// IV is optional; without it each segment uses its index as the IV.
	IV string `toml:"iv"`
}

type trackEntry struct {
	ID              string         `toml:"id"`
	Kind            string         `toml:"kind"`
	Locale          string         `toml:"locale"`
	Title           string         `toml:"title"`
	Bitrate         int64          `toml:"bitrate"`
	DurationSeconds float64        `toml:"duration_seconds"`
	FrameRate       float64        `toml:"frame_rate"`
	ClosedCaption   bool           `toml:"closed_caption"`
	Extension       string         `toml:"extension"`
	URL             string         `toml:"url"`
	Key             string         `toml:"key"`
	Segments        []segmentEntry `toml:"segments"`
}

type segmentEntry struct {
	URL    string `toml:"url"`
	Key    string `toml:"key"`
	Length int64  `toml:"length"`
}

// ManifestClient resolves references to TOML manifests. A reference is a
// local path or an http(s) URL.
type ManifestClient struct {
	Fetcher   segment.Fetcher
	Decrypter *AESDecrypter
}

// NewManifestClient returns a client that fetches remote manifests with
// fetcher and registers manifest keys with a fresh AESDecrypter.
func NewManifestClient(fetcher segment.Fetcher) *ManifestClient {
	return &ManifestClient{Fetcher: fetcher, Decrypter: NewAESDecrypter()}
}

// Resolve implements Client.
func (c *ManifestClient) Resolve(ctx context.Context, ref string) (Episode, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Episode{}, errs.Wrap(errs.ErrValidation, "catalog", "resolve", "empty manifest reference", nil)
	}
	data, err := c.read(ctx, ref)
	if err != nil {
		return Episode{}, err
	}
	var m manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return Episode{}, errs.Wrap(errs.ErrValidation, "catalog", "parse manifest", ref, err)
	}
	episode, err := c.build(ref, m)
	if err != nil {
		return Episode{}, errs.Wrap(errs.ErrValidation, "catalog", "manifest", ref, err)
	}
	return episode, nil
}

func (c *ManifestClient) read(ctx context.Context, ref string) ([]byte, error) {
	if isRemote(ref) {
		if c.Fetcher == nil {
			return nil, errs.Wrap(errs.ErrConfiguration, "catalog", "fetch manifest", "no fetcher configured", nil)
		}
		data, err := c.Fetcher.Fetch(ctx, segment.Segment{URL: ref})
		if err != nil {
			return nil, errs.Wrap(errs.ErrTransient, "catalog", "fetch manifest", ref, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrNotFound, "catalog", "read manifest", ref, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return data, nil
}

func (c *ManifestClient) build(ref string, m manifest) (Episode, error) {
	base, err := baseURL(ref, m.BaseURL)
	if err != nil {
		return Episode{}, err
	}
	keys := make(map[string]keyEntry, len(m.Keys))
	for name, entry := range m.Keys {
		if _, err := decodeHex(entry.Key, 16); err != nil {
			return Episode{}, fmt.Errorf("key %q: %w", name, err)
		}
		if entry.IV != "" {
			if _, err := decodeHex(entry.IV, 16); err != nil {
				return Episode{}, fmt.Errorf("key %q iv: %w", name, err)
			}
		}
		keys[name] = entry
	}

	episode := Episode{Ref: ref, Title: strings.TrimSpace(m.Title), Output: strings.TrimSpace(m.Output)}
	seen := make(map[string]struct{}, len(m.Tracks))
	hasVideo := false
	for i, entry := range m.Tracks {
		track, err := c.buildTrack(base, keys, entry)
		if err != nil {
			return Episode{}, fmt.Errorf("track %d: %w", i, err)
		}
		if _, dup := seen[track.ID]; dup {
			return Episode{}, fmt.Errorf("duplicate track id %q", track.ID)
		}
		seen[track.ID] = struct{}{}
		hasVideo = hasVideo || track.Kind == media.KindVideo
		episode.Tracks = append(episode.Tracks, track)
	}
	if !hasVideo {
		return Episode{}, fmt.Errorf("at least one video track is required")
	}
	return episode, nil
}

func (c *ManifestClient) buildTrack(base *url.URL, keys map[string]keyEntry, entry trackEntry) (media.Track, error) {
	id := strings.TrimSpace(entry.ID)
	if id == "" {
		return media.Track{}, fmt.Errorf("id is required")
	}
	kind, err := media.ParseKind(entry.Kind)
	if err != nil {
		return media.Track{}, fmt.Errorf("%s: %w", id, err)
	}
	track := media.Track{
		ID:            id,
		Kind:          kind,
		Locale:        strings.TrimSpace(entry.Locale),
		Title:         strings.TrimSpace(entry.Title),
		Bitrate:       entry.Bitrate,
		Duration:      time.Duration(entry.DurationSeconds * float64(time.Second)),
		FrameRate:     entry.FrameRate,
		ClosedCaption: entry.ClosedCaption,
		Extension:     strings.TrimPrefix(strings.TrimSpace(entry.Extension), "."),
	}
	if track.Extension == "" {
		track.Extension = defaultExtension(kind)
	}

	if len(entry.Segments) == 0 {
		if strings.TrimSpace(entry.URL) == "" {
			return media.Track{}, fmt.Errorf("%s: url or segments required", id)
		}
		resolved, err := resolve(base, entry.URL)
		if err != nil {
			return media.Track{}, fmt.Errorf("%s: %w", id, err)
		}
		track.URL = resolved
		track.KeyRef, err = c.keyRef(keys, entry.Key, 0)
		if err != nil {
			return media.Track{}, fmt.Errorf("%s: %w", id, err)
		}
		return track, nil
	}

	track.Segments = make([]segment.Segment, 0, len(entry.Segments))
	for i, seg := range entry.Segments {
		resolved, err := resolve(base, seg.URL)
		if err != nil {
			return media.Track{}, fmt.Errorf("%s segment %d: %w", id, i, err)
		}
		keyName := seg.Key
		if keyName == "" {
			keyName = entry.Key
		}
		keyRef, err := c.keyRef(keys, keyName, uint32(i))
		if err != nil {
			return media.Track{}, fmt.Errorf("%s segment %d: %w", id, i, err)
		}
		track.Segments = append(track.Segments, segment.Segment{
			Index:      uint32(i),
			URL:        resolved,
			LengthHint: seg.Length,
			KeyRef:     keyRef,
		})
	}
	return track, nil
}

// keyRef registers the key with the decrypter and returns the reference the
// segment carries. Without an explicit IV the segment index is used, as HLS
// does with media sequence numbers.
func (c *ManifestClient) keyRef(keys map[string]keyEntry, name string, index uint32) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	entry, ok := keys[name]
	if !ok {
		return "", fmt.Errorf("unknown key %q", name)
	}
	key, _ := decodeHex(entry.Key, 16)
	iv := sequenceIV(index)
	if entry.IV != "" {
		iv, _ = decodeHex(entry.IV, 16)
	}
	if c.Decrypter != nil {
		c.Decrypter.Add(name, key)
	}
	return FormatKeyRef(name, iv), nil
}

func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// baseURL picks the URL relative segment addresses resolve against: the
// manifest's base_url, else the directory of a remote manifest.
func baseURL(ref, explicit string) (*url.URL, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		u, err := url.Parse(explicit)
		if err != nil {
			return nil, fmt.Errorf("base_url: %w", err)
		}
		return u, nil
	}
	if !isRemote(ref) {
		return nil, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("manifest url: %w", err)
	}
	u.Path = path.Dir(u.Path) + "/"
	u.RawQuery = ""
	return u, nil
}

func resolve(base *url.URL, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.IsAbs() || base == nil {
		if !u.IsAbs() {
			return "", fmt.Errorf("relative url %q without base_url", raw)
		}
		return u.String(), nil
	}
	return base.ResolveReference(u).String(), nil
}

func defaultExtension(kind media.Kind) string {
	switch kind {
	case media.KindAudio:
		return "aac"
	case media.KindSubtitle:
		return "ass"
	default:
		return "ts"
	}
}

func decodeHex(value string, size int) ([]byte, error) {
	value = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(value), "0x"), "0X")
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("expected %d bytes, got %d", size, len(b))
	}
	return b, nil
}
