package mux

import (
	"fmt"
	"strings"
)

// Preset is a named set of ffmpeg codec directives.
type Preset struct {
	Name string
	Args []string
}

type codecSpec struct {
	encoder string
	crf     map[string]string
	audio   []string
}

var codecs = map[string]codecSpec{
	"h264": {encoder: "libx264", crf: map[string]string{"lossless": "0", "normal": "23", "low": "28"}, audio: []string{"-c:a", "aac", "-b:a", "192k"}},
	"h265": {encoder: "libx265", crf: map[string]string{"lossless": "0", "normal": "28", "low": "32"}, audio: []string{"-c:a", "aac", "-b:a", "192k"}},
	"av1":  {encoder: "libsvtav1", crf: map[string]string{"lossless": "18", "normal": "30", "low": "40"}, audio: []string{"-c:a", "libopus", "-b:a", "160k"}},
}

// ParsePreset resolves a preset name. Accepted forms are "copy", a codec
// ("h264", "h265", "av1") optionally suffixed with a quality ("-lossless",
// "-normal", "-low"), or raw ffmpeg output arguments starting with "-".
func ParsePreset(name string) (Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "copy") {
		return Preset{Name: "copy", Args: []string{"-c:v", "copy", "-c:a", "copy"}}, nil
	}
	if strings.HasPrefix(name, "-") {
		return Preset{Name: "custom", Args: strings.Fields(name)}, nil
	}

	codec, quality, _ := strings.Cut(strings.ToLower(name), "-")
	spec, ok := codecs[codec]
	if !ok {
		return Preset{}, fmt.Errorf("mux preset: unknown codec %q", codec)
	}
	if quality == "" {
		quality = "normal"
	}
	crf, ok := spec.crf[quality]
	if !ok {
		return Preset{}, fmt.Errorf("mux preset: unknown quality %q for %s", quality, codec)
	}
	args := []string{"-c:v", spec.encoder, "-crf", crf}
	args = append(args, spec.audio...)
	return Preset{Name: codec + "-" + quality, Args: args}, nil
}

// withoutVideoCopy drops "-c:v copy" pairs; burning subtitles in requires a
// re-encode.
func withoutVideoCopy(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if (args[i] == "-c:v" || args[i] == "-vcodec") && i+1 < len(args) && args[i+1] == "copy" {
			i++
			continue
		}
		out = append(out, args[i])
	}
	return out
}
