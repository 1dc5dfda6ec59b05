package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgnsrekt/voicedeck/internal/audio"
	"github.com/dgnsrekt/voicedeck/internal/nav"
	"github.com/dgnsrekt/voicedeck/internal/pipeline"
)

// step is one prompt of a flow. Value advances, Back returns to the
// previous step and Quit leaves the flow.
type step func(ctx context.Context) (nav.Signal, error)

// runSteps walks steps in order and reports how the flow ended. Back on the
// first step ends the flow with Back.
func runSteps(ctx context.Context, steps ...step) (nav.Signal, error) {
	for i := 0; i < len(steps); {
		if err := ctx.Err(); err != nil {
			return nav.Quit, err
		}
		sig, err := steps[i](ctx)
		if err != nil {
			return nav.Quit, err
		}
		switch sig {
		case nav.Quit:
			return nav.Quit, nil
		case nav.Back:
			if i == 0 {
				return nav.Back, nil
			}
			i--
		default:
			i++
		}
	}
	return nav.Value, nil
}

// speak reads text and generates until the user leaves. It never returns
// Value.
func (s *Studio) speak(build func(text string) pipeline.Request) step {
	return func(ctx context.Context) (nav.Signal, error) {
		for {
			res, err := s.nav.Ask(nav.Prompt{
				Kind:      nav.KindText,
				Label:     "Text to speak",
				AllowFile: true,
			})
			if err != nil {
				return nav.Quit, err
			}
			if res.Signal != nav.Value {
				return res.Signal, nil
			}
			if err := s.generate(ctx, build(res.Value)); err != nil {
				return nav.Quit, err
			}
		}
	}
}

// generate runs one generation. Recoverable failures are reported and nil is
// returned so the caller re-prompts.
func (s *Studio) generate(ctx context.Context, req pipeline.Request) error {
	s.logger.Debug("generation requested", "mode", req.Mode(), "format", s.format)
	fmt.Fprintln(s.out, s.styles.Help.Render("  Generating..."))

	r, err := s.gen.Render(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.report(err)
		return nil
	}
	defer r.Discard()

	res, err := s.gen.Deliver(ctx, r, s.format)
	var convErr *audio.ConversionError
	if errors.As(err, &convErr) && s.format != pipeline.LosslessFormat {
		s.report(err)
		ok, askErr := s.confirm("Save as " + strings.ToUpper(pipeline.LosslessFormat) + " instead?")
		if askErr != nil {
			return askErr
		}
		if !ok {
			s.warn("Discarded.")
			return nil
		}
		res, err = s.gen.Deliver(ctx, r, pipeline.LosslessFormat)
	}
	if err != nil {
		s.report(err)
		return nil
	}

	s.success("Saved %s (%.1fs)", res.OutputPath, res.Duration.Seconds())
	for _, w := range res.Warnings {
		s.warn("%s", w)
	}
	return nil
}
