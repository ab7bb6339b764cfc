package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/echohive42/video-scene-splitter/internal/config"
	"github.com/echohive42/video-scene-splitter/internal/detect"
	"github.com/echohive42/video-scene-splitter/internal/ffmpeg"
	"github.com/echohive42/video-scene-splitter/internal/scenes"
	"github.com/echohive42/video-scene-splitter/pkg/util"
)

// VideoSource provides metadata and sampled frames for a source video.
// Satisfied by *ffmpeg.Executor; tests substitute scripted sources.
type VideoSource interface {
	ProbeVideo(ctx context.Context, filePath string) (*ffmpeg.VideoInfo, error)
	SampleFrames(ctx context.Context, input string, fps float64, stride int) (<-chan ffmpeg.SampleResult, error)
}

// SegmentWriter materializes scenes as output files
type SegmentWriter interface {
	Write(ctx context.Context, input string, s []scenes.Scene) ([]scenes.Scene, error)
}

// Splitter runs the full scene splitting pipeline: a sequential sampling
// walk feeding the motion detector, batches fanned out to the semantic
// judge, reconciliation, and segment writing.
type Splitter struct {
	logger     zerolog.Logger
	cfg        *config.Config
	source     VideoSource
	judge      detect.Judge // nil when the judge is disabled
	motion     *detect.MotionDetector
	reconciler *detect.Reconciler
	writer     SegmentWriter
}

// New wires a splitter from configuration: ffmpeg for sampling and cutting,
// the OpenAI vision judge unless disabled.
func New(logger zerolog.Logger, cfg *config.Config) (*Splitter, error) {
	exec, err := ffmpeg.New(logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	var judge detect.Judge
	if !cfg.Judge.Disabled {
		judge = detect.NewOpenAIJudge(logger, cfg.Judge.Model, cfg.Judge.BaseURL)
	}

	writer := scenes.NewWriter(logger, exec, cfg.OutputDir)

	return newSplitter(logger, cfg, exec, judge, writer), nil
}

// newSplitter assembles a splitter from explicit collaborators
func newSplitter(logger zerolog.Logger, cfg *config.Config, source VideoSource, judge detect.Judge, writer SegmentWriter) *Splitter {
	return &Splitter{
		logger:     logger.With().Str("component", "pipeline").Logger(),
		cfg:        cfg,
		source:     source,
		judge:      judge,
		motion:     detect.NewMotionDetector(logger, cfg.MotionThreshold),
		reconciler: detect.NewReconciler(logger, cfg.MinSeparationFrames),
		writer:     writer,
	}
}

// Close releases judge resources
func (s *Splitter) Close() error {
	if s.judge != nil {
		return s.judge.Close()
	}
	return nil
}

// Run splits the input video into scenes. Only an unreadable source aborts
// the run; judge failures degrade to motion-only detection and per-scene
// write failures are recorded in the report.
func (s *Splitter) Run(ctx context.Context, input string, opts Options) (*Result, error) {
	info, err := s.source.ProbeVideo(ctx, input)
	if err != nil {
		if errors.Is(err, detect.ErrSourceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", detect.ErrSourceUnavailable, err)
	}

	s.logger.Info().
		Str("input", input).
		Dur("duration", info.Duration).
		Float64("fps", info.FPS).
		Int("stride", s.cfg.FrameStride).
		Bool("judge", s.judge != nil).
		Msg("starting scene split")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames, err := s.source.SampleFrames(runCtx, input, info.FPS, s.cfg.FrameStride)
	if err != nil {
		if errors.Is(err, detect.ErrSourceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", detect.ErrSourceUnavailable, err)
	}

	g, gctx := errgroup.WithContext(runCtx)
	maxInFlight := s.cfg.Judge.MaxInFlight
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	g.SetLimit(maxInFlight)

	var (
		mu              sync.Mutex
		verdicts        []detect.Verdict
		degraded        int
		lastDescription string
	)

	var (
		motionCands []detect.MotionCandidate
		batch       []detect.Frame
		prev        detect.Frame
		havePrev    bool
		samples     int
		judged      int
		fatal       error
	)
	pts := make(map[int]time.Duration)

	for res := range frames {
		if res.Err != nil {
			fatal = res.Err
			break
		}

		f := res.Frame
		pts[f.Index] = f.Timestamp
		samples++

		if havePrev {
			cand, hit, derr := s.motion.Detect(prev, f)
			switch {
			case derr != nil:
				// A bad frame pair only loses one comparison
				s.logger.Warn().Err(derr).Int("frame", f.Index).Msg("skipping frame comparison")
			case hit:
				motionCands = append(motionCands, cand)
			}
		}
		prev = f
		havePrev = true

		if s.judge != nil {
			batch = append(batch, f)
			if len(batch) == s.cfg.BatchSize {
				mu.Lock()
				sceneContext := lastDescription
				mu.Unlock()

				b := detect.Batch{
					Frames:  append([]detect.Frame(nil), batch...),
					Context: sceneContext,
				}
				batch = batch[:0]
				judged++

				g.Go(func() error {
					v := s.judgeBatch(gctx, b)
					mu.Lock()
					verdicts = append(verdicts, v)
					if v.Degraded {
						degraded++
					} else if v.Description != "" {
						lastDescription = v.Description
					}
					mu.Unlock()
					return nil
				})
			}
		}

		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Samples: samples, Timestamp: f.Timestamp})
		}
	}

	if fatal != nil {
		cancel()
		_ = g.Wait()
		return nil, fatal
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Judge calls complete out of order; the reconciler needs them sorted
	sort.Slice(verdicts, func(i, j int) bool {
		return verdicts[i].BatchStart < verdicts[j].BatchStart
	})

	if degraded > 0 {
		s.logger.Warn().
			Int("degraded", degraded).
			Int("judged", judged).
			Msg("semantic judge degraded, relying on motion detection for affected batches")
	}

	boundaries := s.reconciler.Reconcile(motionCands, verdicts, info.TotalFrames())
	for i := range boundaries {
		if ts, ok := pts[boundaries[i].FrameIndex]; ok {
			boundaries[i].Timestamp = ts
		} else if boundaries[i].Timestamp == 0 {
			boundaries[i].Timestamp = util.FrameToTime(boundaries[i].FrameIndex, info.FPS)
		}
	}

	s.logger.Info().
		Int("samples", samples).
		Int("motion_candidates", len(motionCands)).
		Int("boundaries", len(boundaries)).
		Msg("detection complete")

	parts := scenes.Partition(boundaries, info.Duration)

	written, err := s.writer.Write(ctx, input, parts)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Scenes:          written,
		Boundaries:      boundaries,
		Samples:         samples,
		BatchesJudged:   judged,
		BatchesDegraded: degraded,
	}

	meta := scenes.ReportMeta{
		Input:           input,
		BatchesJudged:   judged,
		BatchesDegraded: degraded,
	}
	if err := scenes.WriteReport(s.cfg.ReportFile, meta, written); err != nil {
		// The scene files are already on disk; a missing report is not worth
		// failing the run over
		s.logger.Error().Err(err).Str("path", s.cfg.ReportFile).Msg("failed to write report")
	} else {
		result.ReportPath = s.cfg.ReportFile
	}

	return result, nil
}

// judgeBatch consults the judge with bounded retries. Exhaustion or an
// unparseable verdict degrades the batch to changed=false instead of
// failing the run; motion detection alone still produces a usable result.
func (s *Splitter) judgeBatch(ctx context.Context, b detect.Batch) detect.Verdict {
	attempts := s.cfg.Judge.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := 500 * time.Millisecond

	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := s.judge.Judge(ctx, b)
		if err == nil {
			return v
		}

		if errors.Is(err, detect.ErrMalformedVerdict) {
			s.logger.Warn().Err(err).
				Int("batch_start", b.StartIndex()).
				Msg("judge verdict unparseable, treating batch as unchanged")
			break
		}
		if !errors.Is(err, detect.ErrJudgeUnavailable) {
			s.logger.Warn().Err(err).
				Int("batch_start", b.StartIndex()).
				Msg("judge call failed, treating batch as unchanged")
			break
		}

		if attempt == attempts || ctx.Err() != nil {
			s.logger.Warn().Err(err).
				Int("batch_start", b.StartIndex()).
				Int("attempts", attempt).
				Msg("judge unavailable, giving up on batch")
			break
		}

		s.logger.Debug().Err(err).
			Int("batch_start", b.StartIndex()).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("judge unavailable, backing off")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			attempt = attempts
		}
		backoff *= 2
	}

	return detect.Verdict{
		BatchStart: b.StartIndex(),
		BatchEnd:   b.EndIndex(),
		Changed:    false,
		ChangeAt:   detect.NoChangeIndex,
		Degraded:   true,
	}
}
