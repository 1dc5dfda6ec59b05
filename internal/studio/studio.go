// Package studio runs the interactive session: the mode menu, the three
// generation modes and the voice manager, all driven through a nav.Engine.
package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/dgnsrekt/voicedeck/internal/assets"
	"github.com/dgnsrekt/voicedeck/internal/audio"
	"github.com/dgnsrekt/voicedeck/internal/errs"
	"github.com/dgnsrekt/voicedeck/internal/modes"
	"github.com/dgnsrekt/voicedeck/internal/nav"
	"github.com/dgnsrekt/voicedeck/internal/pipeline"
	"github.com/dgnsrekt/voicedeck/internal/transcribe"
	"github.com/dgnsrekt/voicedeck/internal/voices"
)

// Assets reports and fetches the model bundles of a mode.
type Assets interface {
	Status(mode modes.Descriptor) []assets.State
	Ensure(ctx context.Context, mode modes.Descriptor, progress assets.ProgressFunc) error
}

// Library is the voice library.
type Library interface {
	Enroll(name, audioPath, transcript string) (voices.Profile, error)
	Update(id string, u voices.Update) (voices.Profile, error)
	Delete(id string) (voices.DeleteReport, error)
	List() iter.Seq[voices.Profile]
}

// Generator renders requests and saves the results.
type Generator interface {
	Render(ctx context.Context, req pipeline.Request) (*pipeline.Rendered, error)
	Deliver(ctx context.Context, r *pipeline.Rendered, format string) (*pipeline.Result, error)
}

// Normalizer converts reference audio to mono WAV at a sample rate.
type Normalizer interface {
	Normalize(ctx context.Context, src, dir string, sampleRate int) (string, error)
}

// Options wires a Studio. Nav, Assets, Voices and Generator are required.
type Options struct {
	Nav          *nav.Engine
	Assets       Assets
	Voices       Library
	Generator    Generator
	Transcriber  transcribe.Transcriber
	Normalizer   Normalizer
	OutputFormat string
	SampleRate   int
	TempDir      string
	Styles       *Styles
	Logger       *slog.Logger
}

// Studio is the mode orchestrator.
type Studio struct {
	nav     *nav.Engine
	out     io.Writer
	assets  Assets
	voices  Library
	gen     Generator
	tr      transcribe.Transcriber
	norm    Normalizer
	format  string
	rate    int
	tempDir string
	styles  Styles
	logger  *slog.Logger
}

// New creates a studio.
func New(opts Options) *Studio {
	if opts.Transcriber == nil {
		opts.Transcriber = transcribe.None{}
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = pipeline.LosslessFormat
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 24000
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	styles := NewStyles(DefaultTheme)
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	opts.Nav.SetStyles(styles.Prompt)
	return &Studio{
		nav:     opts.Nav,
		out:     opts.Nav.Out(),
		assets:  opts.Assets,
		voices:  opts.Voices,
		gen:     opts.Generator,
		tr:      opts.Transcriber,
		norm:    opts.Normalizer,
		format:  opts.OutputFormat,
		rate:    opts.SampleRate,
		tempDir: opts.TempDir,
		styles:  styles,
		logger:  opts.Logger,
	}
}

// Run shows the mode menu until the user quits. It returns nil on quit and
// an error only when the terminal fails or ctx is cancelled.
func (s *Studio) Run(ctx context.Context) error {
	s.logger.Info("studio started", "output_format", s.format)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.renderMenu()
		res, err := s.nav.Ask(nav.Prompt{
			Kind:  nav.KindKey,
			Label: "Select mode",
			Keys:  menuKeys(),
		})
		if err != nil {
			return err
		}

		switch res.Signal {
		case nav.Quit:
			fmt.Fprintln(s.out, s.styles.Help.Render("Goodbye."))
			s.logger.Info("studio closed")
			return nil
		case nav.Back:
			continue
		}

		mode, err := modes.Parse(res.Value)
		if err != nil {
			continue
		}
		if err := s.enter(ctx, mode); err != nil {
			return err
		}
	}
}

func menuKeys() []string {
	keys := make([]string, len(modes.Catalog))
	for i, d := range modes.Catalog {
		keys[i] = d.Key
	}
	return keys
}

func (s *Studio) renderMenu() {
	rows := make([][]string, 0, len(modes.Catalog))
	for _, d := range modes.Catalog {
		rows = append(rows, []string{d.Key, s.dot(d) + " " + d.Label, d.Description})
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, s.styles.Title.Render("voicedeck"))
	fmt.Fprintln(s.out, s.styles.Table([]string{"Key", "Mode", "Description"}, rows))
	fmt.Fprintln(s.out, s.styles.Help.Render("● model downloaded  ○ downloads on first use"))
}

func (s *Studio) dot(d modes.Descriptor) string {
	if s.ready(d) {
		return s.styles.Present.Render("●")
	}
	return s.styles.Missing.Render("○")
}

func (s *Studio) ready(d modes.Descriptor) bool {
	states := s.assets.Status(d)
	if len(states) == 0 {
		return false
	}
	for _, st := range states {
		if !st.Present {
			return false
		}
	}
	return true
}

// enter makes the mode's assets ready and runs it. Fetch failures are shown
// and control returns to the menu.
func (s *Studio) enter(ctx context.Context, mode modes.Descriptor) error {
	s.logger.Info("entering mode", "mode", mode.ID)

	if !s.ready(mode) {
		fmt.Fprintln(s.out, s.styles.Warning.Render(fmt.Sprintf("Downloading %s model...", mode.Label)))
	}
	if err := s.assets.Ensure(ctx, mode, s.progress()); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.report(err)
		return nil
	}

	var err error
	switch mode.ID {
	case modes.CustomVoice:
		err = s.customVoice(ctx)
	case modes.VoiceDesign:
		err = s.voiceDesign(ctx)
	case modes.VoiceCloning:
		err = s.voiceManager(ctx)
	}
	s.logger.Info("left mode", "mode", mode.ID)
	return err
}

// progress prints one line per file and per tenth of its size.
func (s *Studio) progress() assets.ProgressFunc {
	var file string
	var step int64 = -1
	return func(p assets.Progress) {
		var tenth int64
		if p.Total > 0 {
			tenth = p.Done * 10 / p.Total
		}
		if p.File == file && tenth == step {
			return
		}
		file, step = p.File, tenth
		line := fmt.Sprintf("  %s %s", p.AssetID, p.File)
		if p.Total > 0 {
			line += fmt.Sprintf(" %d%%", tenth*10)
		}
		fmt.Fprintln(s.out, s.styles.Help.Render(line))
	}
}

// report renders a recoverable error.
func (s *Studio) report(err error) {
	var (
		fetchErr *assets.FetchError
		synthErr *pipeline.SynthesisError
		convErr  *audio.ConversionError
		msg      string
	)
	switch {
	case errs.IsValidation(err), errs.IsNotFound(err):
		msg = err.Error()
	case errors.As(err, &fetchErr):
		msg = fmt.Sprintf("Could not download %s: %v", fetchErr.AssetID, fetchErr.Err)
	case errors.Is(err, assets.ErrNoAssets):
		msg = err.Error()
	case errors.As(err, &synthErr):
		msg = fmt.Sprintf("Generation failed: %v", synthErr.Err)
	case errors.Is(err, pipeline.ErrEmptyOutput):
		msg = "Generation failed: the model returned no audio"
	case errors.As(err, &convErr):
		msg = fmt.Sprintf("Could not convert to %s: %v", convErr.Format, convErr.Err)
	default:
		msg = fmt.Sprintf("Error: %v", err)
	}
	s.logger.Warn("operation failed", "error", err)
	fmt.Fprintln(s.out, s.styles.Error.Render("  ✗ "+msg))
}

func (s *Studio) success(format string, args ...any) {
	fmt.Fprintln(s.out, s.styles.Success.Render("  ✓ "+fmt.Sprintf(format, args...)))
}

func (s *Studio) warn(format string, args ...any) {
	fmt.Fprintln(s.out, s.styles.Warning.Render("  ! "+fmt.Sprintf(format, args...)))
}

func (s *Studio) heading(title string) {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, s.styles.Title.Render(title))
}

func (s *Studio) panel(lines ...string) {
	fmt.Fprintln(s.out, s.styles.Panel.Render(strings.Join(lines, "\n")))
}

// confirm asks a y/n question. Back and Quit count as no.
func (s *Studio) confirm(label string) (bool, error) {
	res, err := s.nav.Ask(nav.Prompt{Kind: nav.KindKey, Label: label, Keys: []string{"y", "n"}})
	if err != nil {
		return false, err
	}
	return res.Signal == nav.Value && res.Value == "y", nil
}
