// Package narration turns an SRT transcript into a validated narration
// script: a sequence of narration and pass-through video segments that
// together cover the source video.
package narration

import (
	"context"
	"errors"
	"fmt"

	"github.com/Anning01/playlet-clip/internal/llm"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/internal/metrics"
	"github.com/Anning01/playlet-clip/pkg/models"
	"github.com/Anning01/playlet-clip/pkg/srt"
)

// CompletionClient is the chat completion dependency of the generator.
// *llm.Client satisfies it.
type CompletionClient interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// Options tunes script generation. Zero values fall back to the
// defaults used throughout the pipeline.
type Options struct {
	// MaxRetries is how many model calls to attempt before giving up.
	MaxRetries int
	// OverlapTolerance is how far a segment may start before the
	// previous one ends and still validate.
	OverlapTolerance float64
	// PromptTemplate overrides DefaultPromptTemplate.
	PromptTemplate string
}

// Generator produces narration scripts through a completion service,
// feeding validation failures back into the conversation until the
// model returns a usable script or the retry budget runs out.
type Generator struct {
	client CompletionClient
	opts   Options
	logger *logging.Logger

	// Progress, when set, receives a coarse percentage and message as
	// generation advances.
	Progress func(pct float64, message string)
}

// NewGenerator creates a Generator. logger may be nil.
func NewGenerator(client CompletionClient, opts Options, logger *logging.Logger) *Generator {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 10
	}
	if opts.OverlapTolerance <= 0 {
		opts.OverlapTolerance = DefaultOverlapTolerance
	}
	if opts.PromptTemplate == "" {
		opts.PromptTemplate = DefaultPromptTemplate
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Generator{client: client, opts: opts, logger: logger}
}

// Generate asks the completion service for a narration script in the
// given style and returns the validated segments. promptTemplate
// overrides the configured template for this call; empty keeps it.
// Invalid replies are appended to the conversation together with the
// validation failure so the model can correct itself on the next
// attempt. Transport failures are retried with the same conversation.
// When the retry budget is exhausted the last failure is returned
// wrapped in an *llm.Error.
func (g *Generator) Generate(ctx context.Context, subtitles *srt.File, videoDuration float64, style, promptTemplate string) ([]models.NarrationSegment, error) {
	g.report(10, "preparing narration prompt")

	if promptTemplate == "" {
		promptTemplate = g.opts.PromptTemplate
	}
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: buildSystemPrompt(promptTemplate, subtitles, videoDuration)},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Generate the narration script in this style: %s", style)},
	}

	var lastErr error
	for attempt := 1; attempt <= g.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g.report(10+float64(attempt)*80/float64(g.opts.MaxRetries), fmt.Sprintf("generating narration script (attempt %d)", attempt))
		g.logger.Debugf("Requesting narration script, attempt %d/%d", attempt, g.opts.MaxRetries)

		reply, err := g.client.Chat(ctx, messages)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			g.logger.WithError(err).Warnf("Completion request failed on attempt %d", attempt)
			continue
		}

		segments, err := ParseScript(reply)
		if err == nil {
			err = ValidateSegments(segments, videoDuration, g.opts.OverlapTolerance)
		}
		if err == nil {
			g.report(95, "narration script validated")
			g.logger.Infof("Narration script accepted with %d segments on attempt %d", len(segments), attempt)
			return segments, nil
		}

		lastErr = err
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			return nil, err
		}
		g.logger.Warnf("Narration script rejected on attempt %d: %v", attempt, vErr)
		metrics.NarrationRetriesTotal.Inc()
		messages = append(messages,
			llm.Message{Role: llm.RoleAssistant, Content: reply},
			llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("Validation failed: %v. Please regenerate the complete JSON array and make sure the format is correct.", vErr)},
		)
	}

	return nil, &llm.Error{Message: fmt.Sprintf("no valid narration script after %d attempts: %v", g.opts.MaxRetries, lastErr)}
}

func buildSystemPrompt(template string, subtitles *srt.File, videoDuration float64) string {
	return fmt.Sprintf("%s\n\nTotal video duration: %s\n\nSubtitles:\n%s",
		template, srt.FormatTimestamp(videoDuration), subtitles.Render())
}

func (g *Generator) report(pct float64, message string) {
	if g.Progress != nil {
		g.Progress(pct, message)
	}
}
