// Package pipeline orchestrates a full clip run: extract audio from the
// source video, transcribe it, generate a narration script, synthesize
// narration speech, and assemble the final edit. A run never returns an
// error; failures are folded into the ProcessResult so callers always
// get a terminal record to persist.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Anning01/playlet-clip/internal/asr"
	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/llm"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/internal/media"
	"github.com/Anning01/playlet-clip/internal/metrics"
	"github.com/Anning01/playlet-clip/internal/narration"
	"github.com/Anning01/playlet-clip/internal/tracing"
	"github.com/Anning01/playlet-clip/internal/tts"
	"github.com/Anning01/playlet-clip/pkg/models"
	"github.com/Anning01/playlet-clip/pkg/srt"
)

type transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*srt.File, error)
}

type scriptGenerator interface {
	Generate(ctx context.Context, subtitles *srt.File, videoDuration float64, style, promptTemplate string) ([]models.NarrationSegment, error)
}

type synthesizer interface {
	Synthesize(ctx context.Context, text, outputPath string) (*models.TTSResult, error)
}

type prober interface {
	Duration(ctx context.Context, inputPath string) (float64, error)
	ExtractAudio(ctx context.Context, videoPath, outputPath string, sampleRate int, mono bool) error
}

type timelineAssembler interface {
	AssembleTimeline(ctx context.Context, sourceVideo string, segments []models.NarrationSegment, outputPath, tempDir string, progress media.ProgressFunc) error
}

// Request describes one clip run. Blur geometry fields override the
// configured defaults when positive, because burned-in subtitles sit at
// different heights in different source dramas.
type Request struct {
	TaskID         string
	VideoPath      string
	SubtitlePath   string
	Style          string
	OutputPath     string
	BlurHeight     int
	BlurY          int
	SubtitleMargin int

	// Observer receives every progress snapshot. Optional.
	Observer func(models.TaskProgress)
}

// Pipeline runs clip tasks. Collaborators are interfaces so tests can
// substitute fakes; New wires the production implementations.
type Pipeline struct {
	cfg          *config.Config
	media        prober
	asr          transcriber
	tts          synthesizer
	narrator     scriptGenerator
	assemblerFor func(cfg config.VideoConfig) timelineAssembler
	logger       *logging.Logger
}

// New wires a production pipeline from configuration.
func New(cfg *config.Config, logger *logging.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	ffmpeg := media.NewFFmpeg(cfg.Video, logger)

	transcriber, err := asr.NewTranscriber(cfg.ASR, logger)
	if err != nil {
		return nil, err
	}

	synth, err := tts.NewSynthesizer(cfg.TTS, ffmpeg, logger)
	if err != nil {
		return nil, err
	}

	narrator := narration.NewGenerator(llm.NewClient(cfg.LLM), narration.Options{
		MaxRetries:       cfg.LLM.MaxRetries,
		OverlapTolerance: cfg.LLM.OverlapTolerance,
	}, logger)

	return &Pipeline{
		cfg:      cfg,
		media:    ffmpeg,
		asr:      transcriber,
		tts:      synth,
		narrator: narrator,
		assemblerFor: func(vcfg config.VideoConfig) timelineAssembler {
			return media.NewAssembler(ffmpeg, vcfg, logger)
		},
		logger: logger,
	}, nil
}

// run carries the mutable progress state of one pipeline invocation.
type run struct {
	taskID   string
	progress models.TaskProgress
	observer func(models.TaskProgress)
	logger   *logging.Logger
}

func (r *run) update(status models.TaskStatus, step int, progress float64, message string) {
	r.progress = r.progress.Update(status, step, progress, message)
	r.logger.LogProgress(r.taskID, string(status), step, r.progress.TotalSteps, r.progress.Progress, message)
	if r.observer != nil {
		r.observer(r.progress)
	}
}

// fail records the terminal failure and returns the result. The last
// reported step and percentage are kept so observers see where the run
// died.
func (r *run) fail(stage string, started time.Time, err error) *models.ProcessResult {
	elapsed := time.Since(started).Seconds()
	r.logger.WithError(err).Errorf("pipeline failed during %s", stage)
	metrics.RecordError("pipeline", stage)
	metrics.RecordTaskCompleted(string(models.StatusFailed), elapsed)
	r.update(models.StatusFailed, r.progress.CurrentStep, r.progress.Progress, err.Error())
	return &models.ProcessResult{
		Success:      false,
		ErrorMessage: err.Error(),
		Duration:     elapsed,
	}
}

// Process runs a clip task end to end. When the request names a subtitle
// file the transcription stages are skipped in favor of loading it.
func (p *Pipeline) Process(ctx context.Context, req Request) *models.ProcessResult {
	if req.SubtitlePath != "" {
		return p.processWithSubtitles(ctx, req)
	}
	return p.processFull(ctx, req)
}

func (p *Pipeline) processFull(ctx context.Context, req Request) *models.ProcessResult {
	started := time.Now()
	taskID := req.TaskID
	if taskID == "" {
		taskID = uuid.New().String()
	}

	span, ctx := tracing.StartSpan(ctx, "pipeline.process")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "task.id", taskID)
	tracing.SetTag(span, "video.path", req.VideoPath)
	tracing.SetTag(span, "style", req.Style)

	r := &run{
		taskID:   taskID,
		progress: models.NewTaskProgress(6),
		observer: req.Observer,
		logger:   p.logger.WithTaskID(taskID),
	}

	if _, err := os.Stat(req.VideoPath); err != nil {
		err = fmt.Errorf("video not found: %s", req.VideoPath)
		tracing.LogError(span, err)
		return r.fail("validate", started, err)
	}

	tempDir, err := p.scratchDir(taskID)
	if err != nil {
		tracing.LogError(span, err)
		return r.fail("scratch", started, err)
	}
	defer p.cleanup(r.logger, tempDir)

	// Step 1: extract audio.
	r.update(models.StatusExtractingAudio, 1, 0, "Extracting audio")
	var duration float64
	audioPath := filepath.Join(tempDir, "audio.wav")
	err = step(ctx, "extract_audio", func(ctx context.Context) error {
		var err error
		if duration, err = p.media.Duration(ctx, req.VideoPath); err != nil {
			return err
		}
		return p.media.ExtractAudio(ctx, req.VideoPath, audioPath, 16000, true)
	})
	if err != nil {
		tracing.LogError(span, err)
		return r.fail("extract_audio", started, err)
	}

	// Step 2: transcribe.
	r.update(models.StatusTranscribing, 2, 15, "Transcribing audio")
	var subtitles *srt.File
	subtitlesPath := filepath.Join(tempDir, "subtitles.srt")
	err = step(ctx, "transcribe", func(ctx context.Context) error {
		var err error
		if subtitles, err = p.asr.Transcribe(ctx, audioPath); err != nil {
			return err
		}
		return subtitles.Save(subtitlesPath)
	})
	if err != nil {
		tracing.LogError(span, err)
		return r.fail("transcribe", started, err)
	}
	r.logger.Infof("transcribed %d subtitle segments", len(subtitles.Segments))

	return p.finish(ctx, span, r, req, finishInput{
		started:       started,
		tempDir:       tempDir,
		subtitles:     subtitles,
		subtitlesPath: subtitlesPath,
		ownSubtitles:  true,
		videoDuration: duration,
		narrateStep:   3,
		narrateBase:   30,
		synthStep:     4,
		synthBase:     45,
		synthSpan:     20,
		videoStep:     5,
		videoBase:     65,
		videoSpan:     35,
		finalStep:     6,
	})
}

// processWithSubtitles skips audio extraction and transcription in favor
// of a caller-provided subtitle file. Five steps instead of six.
func (p *Pipeline) processWithSubtitles(ctx context.Context, req Request) *models.ProcessResult {
	started := time.Now()
	taskID := req.TaskID
	if taskID == "" {
		taskID = uuid.New().String()
	}

	span, ctx := tracing.StartSpan(ctx, "pipeline.process_with_subtitles")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "task.id", taskID)
	tracing.SetTag(span, "video.path", req.VideoPath)
	tracing.SetTag(span, "subtitle.path", req.SubtitlePath)
	tracing.SetTag(span, "style", req.Style)

	r := &run{
		taskID:   taskID,
		progress: models.NewTaskProgress(5),
		observer: req.Observer,
		logger:   p.logger.WithTaskID(taskID),
	}

	if _, err := os.Stat(req.VideoPath); err != nil {
		err = fmt.Errorf("video not found: %s", req.VideoPath)
		tracing.LogError(span, err)
		return r.fail("validate", started, err)
	}

	tempDir, err := p.scratchDir(taskID)
	if err != nil {
		tracing.LogError(span, err)
		return r.fail("scratch", started, err)
	}
	defer p.cleanup(r.logger, tempDir)

	// Step 1: load the provided subtitles.
	r.update(models.StatusTranscribing, 1, 0, "Loading subtitles")
	var subtitles *srt.File
	var duration float64
	err = step(ctx, "load_subtitles", func(ctx context.Context) error {
		var err error
		if subtitles, err = srt.Load(req.SubtitlePath); err != nil {
			return err
		}
		if len(subtitles.Segments) == 0 {
			return fmt.Errorf("no subtitles found in %s", req.SubtitlePath)
		}
		duration, err = p.media.Duration(ctx, req.VideoPath)
		return err
	})
	if err != nil {
		tracing.LogError(span, err)
		return r.fail("load_subtitles", started, err)
	}
	r.update(models.StatusTranscribing, 1, 10, fmt.Sprintf("Loaded %d subtitle segments", len(subtitles.Segments)))

	return p.finish(ctx, span, r, req, finishInput{
		started:       started,
		tempDir:       tempDir,
		subtitles:     subtitles,
		subtitlesPath: req.SubtitlePath,
		videoDuration: duration,
		narrateStep:   2,
		narrateBase:   10,
		synthStep:     3,
		synthBase:     30,
		synthSpan:     30,
		videoStep:     4,
		videoBase:     60,
		videoSpan:     35,
		finalStep:     5,
	})
}
