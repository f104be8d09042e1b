package mux

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	langpkg "segmux/internal/language"
	"segmux/internal/media"
)

// StdioPath marks an input read from the caller's stdin or an output written
// to the caller's stdout.
const StdioPath = "-"

// ccMarker is appended to closed-caption subtitle titles.
const ccMarker = "[CC]"

// softsubFormats lists containers that can carry subtitle streams.
var softsubFormats = []string{"mkv", "mp4", "mov"}

// InputFile is one finished track file handed to the muxer.
type InputFile struct {
	TrackID       string
	Path          string
	Locale        string
	Title         string
	ClosedCaption bool
	Duration      time.Duration
	// FrameRate applies to video inputs; zero falls back to the plan default.
	FrameRate float64
}

// PlanRequest describes everything BuildPlan needs.
type PlanRequest struct {
	Videos    []InputFile
	Audios    []InputFile
	Subtitles []InputFile
	// DefaultSubtitle is the locale whose subtitle should play by default.
	DefaultSubtitle string
	ForceHardsub    bool
	Preset          string
	// OutputFormat is a container extension; empty derives it from OutputPath.
	OutputFormat     string
	OutputPath       string
	Offsets          map[string]time.Duration
	DefaultFrameRate float64
}

// Input is one positional ffmpeg input in a Plan.
type Input struct {
	Index       int
	Kind        media.Kind
	Path        string
	Locale      string
	Title       string
	Offset      time.Duration
	Disposition string
}

// Plan is the resolved ffmpeg invocation for one job. It is immutable once
// built.
type Plan struct {
	Inputs       []Input
	InputArgs    []string
	OutputArgs   []string
	OutputPath   string
	OutputFormat string
	Hardsub      bool
	// BurnedSubtitle is the subtitle file rendered into the video when Hardsub is set.
	BurnedSubtitle string
	StdinInput     bool
	TotalFrames    int64
}

// Args returns the full argument list for writing to target.
func (p Plan) Args(target string) []string {
	args := make([]string, 0, len(p.InputArgs)+len(p.OutputArgs)+3)
	args = append(args, p.InputArgs...)
	args = append(args, p.OutputArgs...)
	args = append(args, "-f", muxerName(p.OutputFormat), target)
	return args
}

// CommandLine renders the invocation for display.
func (p Plan) CommandLine(binary string) string {
	parts := []string{binary}
	for _, arg := range p.Args(p.OutputPath) {
		if arg == "" || strings.ContainsAny(arg, " \t'\"") {
			arg = strconv.Quote(arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// BuildPlan resolves inputs, stream mapping, metadata, dispositions, and
// codec directives. It performs no I/O.
func BuildPlan(req PlanRequest) (Plan, error) {
	if len(req.Videos) == 0 {
		return Plan{}, errors.New("mux plan: at least one video input is required")
	}
	outputPath := strings.TrimSpace(req.OutputPath)
	if outputPath == "" {
		return Plan{}, errors.New("mux plan: output path is required")
	}
	format := resolveFormat(req.OutputFormat, outputPath)
	preset, err := ParsePreset(req.Preset)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{OutputPath: outputPath, OutputFormat: format}
	softsub := !req.ForceHardsub && slices.Contains(softsubFormats, format)
	subtitles := req.Subtitles
	if !softsub && len(subtitles) > 0 {
		burn := pickSubtitle(subtitles, req.DefaultSubtitle)
		plan.Hardsub = true
		plan.BurnedSubtitle = burn.Path
		subtitles = nil
	}

	var (
		inputArgs []string
		mapArgs   []string
		metaArgs  []string
	)
	addInput := func(kind media.Kind, kindIndex int, in InputFile) error {
		index := len(plan.Inputs)
		offset := req.Offsets[in.TrackID]
		path := in.Path
		if path == StdioPath {
			if plan.StdinInput {
				return errors.New("mux plan: only one input can be read from stdin")
			}
			plan.StdinInput = true
			path = "pipe:0"
		}
		if offset != 0 {
			inputArgs = append(inputArgs, "-itsoffset", formatSeconds(offset))
		}
		inputArgs = append(inputArgs, "-i", path)
		mapArgs = append(mapArgs, "-map", strconv.Itoa(index))

		title := streamTitle(kind, in)
		spec := fmt.Sprintf("-metadata:s:%s:%d", streamLetter(kind), kindIndex)
		metaArgs = append(metaArgs,
			spec, "language="+langpkg.ToISO3(in.Locale),
			spec, "title="+title,
		)
		plan.Inputs = append(plan.Inputs, Input{
			Index:  index,
			Kind:   kind,
			Path:   in.Path,
			Locale: in.Locale,
			Title:  title,
			Offset: offset,
		})
		return nil
	}

	for i, in := range req.Videos {
		if err := addInput(media.KindVideo, i, in); err != nil {
			return Plan{}, err
		}
	}
	for i, in := range req.Audios {
		if err := addInput(media.KindAudio, i, in); err != nil {
			return Plan{}, err
		}
	}
	for i, in := range subtitles {
		if err := addInput(media.KindSubtitle, i, in); err != nil {
			return Plan{}, err
		}
	}

	output := append(mapArgs, metaArgs...)
	output = append(output, plan.dispositions(subtitles, req.DefaultSubtitle)...)

	codecArgs := preset.Args
	if plan.Hardsub {
		codecArgs = withoutVideoCopy(codecArgs)
		output = append(output, "-vf", "ass="+EscapeFilterPath(plan.BurnedSubtitle))
	}
	output = append(output, codecArgs...)
	if len(subtitles) > 0 && (format == "mp4" || format == "mov") {
		output = append(output, "-c:s", "mov_text")
	}

	plan.InputArgs = inputArgs
	plan.OutputArgs = output
	plan.TotalFrames = totalFrames(req.Videos, req.DefaultFrameRate)
	return plan, nil
}

// dispositions marks the requested default subtitle, or clears the default
// flag on the first subtitle stream. Closed captions that are not the default
// are marked forced.
func (p *Plan) dispositions(subtitles []InputFile, defaultLocale string) []string {
	if len(subtitles) == 0 {
		return nil
	}
	defaultIndex := -1
	if strings.TrimSpace(defaultLocale) != "" {
		defaultIndex = defaultSubtitleIndex(subtitles, defaultLocale)
	}

	var args []string
	if defaultIndex < 0 {
		args = append(args, "-disposition:s:s:0", "0")
	}
	firstSub := len(p.Inputs) - len(subtitles)
	for i, sub := range subtitles {
		var disposition string
		switch {
		case i == defaultIndex:
			disposition = "default"
		case isClosedCaption(sub):
			disposition = "forced"
		default:
			continue
		}
		args = append(args, fmt.Sprintf("-disposition:s:s:%d", i), disposition)
		p.Inputs[firstSub+i].Disposition = disposition
	}
	return args
}

// defaultSubtitleIndex prefers a non-CC subtitle for the locale, then a CC one.
func defaultSubtitleIndex(subtitles []InputFile, locale string) int {
	cc := -1
	for i, sub := range subtitles {
		if !langpkg.Matches(locale, sub.Locale) {
			continue
		}
		if !isClosedCaption(sub) {
			return i
		}
		if cc < 0 {
			cc = i
		}
	}
	return cc
}

func pickSubtitle(subtitles []InputFile, locale string) InputFile {
	if strings.TrimSpace(locale) != "" {
		if i := defaultSubtitleIndex(subtitles, locale); i >= 0 {
			return subtitles[i]
		}
	}
	return subtitles[0]
}

func isClosedCaption(in InputFile) bool {
	return in.ClosedCaption || strings.Contains(in.Title, ccMarker)
}

func streamTitle(kind media.Kind, in InputFile) string {
	if title := strings.TrimSpace(in.Title); title != "" {
		return title
	}
	name := langpkg.DisplayName(in.Locale)
	if kind == media.KindSubtitle && in.ClosedCaption {
		name += " " + ccMarker
	}
	return name
}

func streamLetter(kind media.Kind) string {
	switch kind {
	case media.KindVideo:
		return "v"
	case media.KindAudio:
		return "a"
	default:
		return "s"
	}
}

func resolveFormat(format, outputPath string) string {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if format != "" {
		return format
	}
	if outputPath == StdioPath {
		return "mpegts"
	}
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(outputPath), ".")); ext != "" {
		return ext
	}
	return "mkv"
}

// muxerName maps a container extension to the ffmpeg muxer name.
func muxerName(format string) string {
	switch format {
	case "mkv":
		return "matroska"
	case "ts", "mpegts":
		return "mpegts"
	case "m4a":
		return "ipod"
	default:
		return format
	}
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func totalFrames(videos []InputFile, fallbackRate float64) int64 {
	var best int64
	for _, v := range videos {
		rate := v.FrameRate
		if rate <= 0 {
			rate = fallbackRate
		}
		best = max(best, int64(v.Duration.Seconds()*rate))
	}
	return best
}
