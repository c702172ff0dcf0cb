package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/internal/metrics"
	"github.com/Anning01/playlet-clip/internal/narration"
	"github.com/Anning01/playlet-clip/internal/tracing"
	"github.com/Anning01/playlet-clip/pkg/models"
	"github.com/Anning01/playlet-clip/pkg/srt"
)

// finishInput carries the stage layout shared by the two entry points,
// which differ only in how they obtain subtitles and in step numbering.
type finishInput struct {
	started       time.Time
	tempDir       string
	subtitles     *srt.File
	subtitlesPath string
	// ownSubtitles marks a transcript living in the scratch directory,
	// which must be copied out before cleanup deletes it.
	ownSubtitles  bool
	videoDuration float64
	narrateStep   int
	narrateBase   float64
	synthStep     int
	synthBase     float64
	synthSpan     float64
	videoStep     int
	videoBase     float64
	videoSpan     float64
	finalStep     int
}

// step runs one pipeline stage under its own child span, recording the
// stage duration on success.
func step(ctx context.Context, name string, fn func(context.Context) error) error {
	span, ctx := tracing.StartSpan(ctx, "pipeline."+name)
	defer tracing.FinishSpan(span)
	started := time.Now()
	if err := fn(ctx); err != nil {
		tracing.LogError(span, err)
		return err
	}
	metrics.RecordStageDuration(name, time.Since(started).Seconds())
	return nil
}

func (p *Pipeline) finish(ctx context.Context, span opentracing.Span, r *run, req Request, in finishInput) *models.ProcessResult {
	// Narration script.
	r.update(models.StatusGeneratingNarration, in.narrateStep, in.narrateBase, "Generating narration script")
	styleText, promptTemplate := p.resolveStyle(req.Style)
	var segments []models.NarrationSegment
	narrationPath := filepath.Join(in.tempDir, "narration.json")
	err := step(ctx, "generate_narration", func(ctx context.Context) error {
		var err error
		segments, err = p.narrator.Generate(ctx, in.subtitles, in.videoDuration, styleText, promptTemplate)
		if err != nil {
			return err
		}
		segments = narration.FillGaps(segments, in.videoDuration, p.cfg.Pipeline.MinGap)
		return narration.WriteScript(segments, narrationPath)
	})
	if err != nil {
		tracing.LogError(span, err)
		return r.fail("generate_narration", in.started, err)
	}
	r.logger.Infof("narration script has %d segments", len(segments))

	// Speech synthesis.
	r.update(models.StatusSynthesizingSpeech, in.synthStep, in.synthBase, "Synthesizing narration")
	err = step(ctx, "synthesize", func(ctx context.Context) error {
		return p.synthesize(ctx, r, segments, filepath.Join(in.tempDir, "tts"), in.synthBase, in.synthSpan)
	})
	if err != nil {
		tracing.LogError(span, err)
		return r.fail("synthesize", in.started, err)
	}

	// Segment assembly and concatenation.
	r.update(models.StatusProcessingVideo, in.videoStep, in.videoBase, "Rendering video segments")
	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = p.defaultOutputPath(req.VideoPath, req.Style)
	}
	asm := p.assemblerFor(p.videoConfig(req))
	err = step(ctx, "process_video", func(ctx context.Context) error {
		return asm.AssembleTimeline(ctx, req.VideoPath, segments, outputPath, in.tempDir, func(pct float64, message string) {
			r.update(models.StatusProcessingVideo, in.videoStep, in.videoBase+pct*in.videoSpan/100, message)
		})
	})
	if err != nil {
		tracing.LogError(span, err)
		return r.fail("process_video", in.started, err)
	}

	subtitlesPath, narrationPath := p.persistArtifacts(r, outputPath, in, narrationPath)

	elapsed := time.Since(in.started).Seconds()
	for _, seg := range segments {
		metrics.RecordSegmentAssembled(string(seg.Kind))
	}
	metrics.VideoDurationProcessed.Add(in.videoDuration)
	metrics.RecordTaskCompleted(string(models.StatusCompleted), elapsed)
	tracing.SetTag(span, "segments", len(segments))
	r.update(models.StatusCompleted, in.finalStep, 100, "Completed")
	r.logger.Infof("clip complete: %s", outputPath)

	return &models.ProcessResult{
		Success:       true,
		OutputPath:    outputPath,
		Duration:      elapsed,
		SegmentsCount: len(segments),
		SubtitlesPath: subtitlesPath,
		NarrationPath: narrationPath,
	}
}

// persistArtifacts copies the transcript and narration script next to
// the final video so they outlive the scratch directory. The video is
// already in place, so a copy failure only costs the artifact.
func (p *Pipeline) persistArtifacts(r *run, outputPath string, in finishInput, narrationPath string) (string, string) {
	stem := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	destDir := filepath.Dir(outputPath)

	subtitlesPath := in.subtitlesPath
	if in.ownSubtitles {
		if dst, err := copyArtifact(in.subtitlesPath, destDir, stem+"_subtitles.srt"); err != nil {
			r.logger.WithError(err).Warn("failed to keep subtitle artifact")
		} else {
			subtitlesPath = dst
		}
	}

	if dst, err := copyArtifact(narrationPath, destDir, stem+"_narration.json"); err != nil {
		r.logger.WithError(err).Warn("failed to keep narration artifact")
	} else {
		narrationPath = dst
	}
	return subtitlesPath, narrationPath
}

func copyArtifact(src, destDir, name string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(destDir, name)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

// synthesize renders speech for every narration segment, attaching the
// audio and subtitle paths in place. A clip that runs past its segment
// window extends the window rather than truncating the narration.
func (p *Pipeline) synthesize(ctx context.Context, r *run, segments []models.NarrationSegment, ttsDir string, base, span float64) error {
	if err := os.MkdirAll(ttsDir, 0o755); err != nil {
		return err
	}

	total := 0
	for _, seg := range segments {
		if seg.IsNarration() {
			total++
		}
	}

	done := 0
	for i := range segments {
		seg := &segments[i]
		if !seg.IsNarration() {
			continue
		}

		result, err := p.tts.Synthesize(ctx, seg.Content, filepath.Join(ttsDir, fmt.Sprintf("narration_%03d", i)))
		if err != nil {
			return err
		}
		seg.AudioPath = result.AudioPath
		seg.SubtitlePath = result.SubtitlePath
		if result.Duration > 0 && seg.StartTime+result.Duration > seg.EndTime {
			r.logger.Warnf("narration %d runs %.2fs past its window, extending segment", i, seg.StartTime+result.Duration-seg.EndTime)
			seg.EndTime = seg.StartTime + result.Duration
		}

		done++
		r.update(models.StatusSynthesizingSpeech, r.progress.CurrentStep,
			base+float64(done)/float64(total)*span,
			fmt.Sprintf("Synthesized narration %d/%d", done, total))
	}
	return nil
}

// videoConfig applies per-request blur geometry overrides.
func (p *Pipeline) videoConfig(req Request) config.VideoConfig {
	cfg := p.cfg.Video
	if req.BlurHeight > 0 {
		cfg.BlurHeight = req.BlurHeight
	}
	if req.BlurY > 0 {
		cfg.BlurY = req.BlurY
	}
	if req.SubtitleMargin > 0 {
		cfg.SubtitleMargin = req.SubtitleMargin
	}
	return cfg
}

// resolveStyle expands a configured style name into its description and
// prompt template. Unknown names pass through verbatim so callers can
// supply free-form style text.
func (p *Pipeline) resolveStyle(name string) (string, string) {
	if s := p.cfg.FindStyle(name); s != nil {
		return fmt.Sprintf("%s：%s", s.Name, s.Description), s.PromptTemplate
	}
	return name, ""
}

func (p *Pipeline) scratchDir(taskID string) (string, error) {
	short := taskID
	if len(short) > 8 {
		short = short[:8]
	}
	dir := filepath.Join(p.cfg.Pipeline.WorkDir, fmt.Sprintf("task_%s_%s", time.Now().Format("20060102_150405"), short))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	return dir, nil
}

func (p *Pipeline) cleanup(logger *logging.Logger, tempDir string) {
	if p.cfg.Pipeline.KeepTemp {
		logger.Infof("keeping temp dir %s", tempDir)
		return
	}
	if err := os.RemoveAll(tempDir); err != nil {
		logger.WithError(err).Warnf("failed to remove temp dir %s", tempDir)
	}
}

func (p *Pipeline) defaultOutputPath(videoPath, style string) string {
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	name := fmt.Sprintf("%s_%s_%s.mp4", stem, style, time.Now().Format("150405"))
	return filepath.Join(p.cfg.Pipeline.OutputDir, name)
}
