package policy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"segmux/internal/errs"
	langpkg "segmux/internal/language"
	"segmux/internal/logging"
	"segmux/internal/media"
)

// MissingLocale decides what to do when no track matches a requested locale.
// It returns a substitute track and true, false to skip the locale, or an
// error to abort the job.
type MissingLocale interface {
	Missing(ctx context.Context, kind media.Kind, locale string, available []media.Track) (media.Track, bool, error)
}

// Fail aborts the job.
type Fail struct{}

func (Fail) Missing(_ context.Context, kind media.Kind, locale string, available []media.Track) (media.Track, bool, error) {
	return media.Track{}, false, errs.Wrap(errs.ErrNotFound, "policy", "select "+string(kind),
		fmt.Sprintf("no %s track for locale %s (available: %s)", kind, locale, locales(available)), nil)
}

// Warn logs the gap and continues without the locale.
type Warn struct {
	Logger *slog.Logger
}

func (w Warn) Missing(_ context.Context, kind media.Kind, locale string, available []media.Track) (media.Track, bool, error) {
	logging.WarnWithContext(logging.NewComponentLogger(w.Logger, "policy"), "requested locale not available",
		"locale_missing",
		logging.String("kind", string(kind)),
		logging.String("locale", locale),
		logging.String("available", locales(available)),
		logging.String(logging.FieldImpact, "output will not include this locale"),
		logging.String(logging.FieldErrorHint, "check the locale list or set locale.missing_policy = \"fail\""),
	)
	return media.Track{}, false, nil
}

// Prompt asks the user to pick a substitute from the available tracks.
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

func (p Prompt) Missing(ctx context.Context, kind media.Kind, locale string, available []media.Track) (media.Track, bool, error) {
	if len(available) == 0 {
		fmt.Fprintf(p.Out, "No %s tracks available for %s; skipping.\n", kind, locale)
		return media.Track{}, false, nil
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Locale", "Language", "Title"})
	for i, t := range available {
		tw.AppendRow(table.Row{i + 1, t.Locale, langpkg.DisplayName(t.Locale), t.Title})
	}
	fmt.Fprintf(p.Out, "No %s track for %s. Choose a substitute or press Enter to skip:\n%s\n> ", kind, locale, tw.Render())

	answer, err := readLine(ctx, p.In)
	if err != nil {
		return media.Track{}, false, err
	}
	if answer == "" || strings.EqualFold(answer, "s") {
		return media.Track{}, false, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(available) {
		return media.Track{}, false, errs.Wrap(errs.ErrValidation, "policy", "prompt", fmt.Sprintf("invalid choice %q", answer), nil)
	}
	return available[n-1], true, nil
}

func readLine(ctx context.Context, in io.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- result{strings.TrimSpace(line), err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err == io.EOF {
			return "", nil
		}
		return r.line, r.err
	}
}

// ForName maps a config value to a policy. Prompt reads from in and writes to out.
func ForName(name string, logger *slog.Logger, in io.Reader, out io.Writer) (MissingLocale, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fail":
		return Fail{}, nil
	case "", "warn":
		return Warn{Logger: logger}, nil
	case "prompt":
		return Prompt{In: in, Out: out}, nil
	default:
		return nil, errs.Wrap(errs.ErrConfiguration, "policy", "select", fmt.Sprintf("unknown missing-locale policy %q", name), nil)
	}
}

func locales(tracks []media.Track) string {
	if len(tracks) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(tracks))
	for _, t := range tracks {
		parts = append(parts, t.Locale)
	}
	return strings.Join(parts, ", ")
}
