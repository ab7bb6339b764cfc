package scenes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/echohive42/video-scene-splitter/internal/ffmpeg"
	"github.com/echohive42/video-scene-splitter/pkg/util"
)

// Clipper cuts one time range of the source into an output file. Satisfied
// by *ffmpeg.Executor; tests substitute a fake.
type Clipper interface {
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
}

// Writer materializes scenes as independent video files. Each scene is cut
// to a temporary name and renamed into place, so a failed or cancelled cut
// never leaves a truncated output file behind. A failure on one scene is
// recorded on that scene and the remaining scenes are still written.
type Writer struct {
	logger    zerolog.Logger
	clipper   Clipper
	outputDir string
}

// NewWriter creates a segment writer targeting outputDir
func NewWriter(logger zerolog.Logger, clipper Clipper, outputDir string) *Writer {
	return &Writer{
		logger:    logger.With().Str("component", "segment-writer").Logger(),
		clipper:   clipper,
		outputDir: outputDir,
	}
}

// Write cuts every scene from the source, filling FilePath or WriteErr on
// each returned scene. The output directory is created if absent.
func (w *Writer) Write(ctx context.Context, input string, scenes []Scene) ([]Scene, error) {
	if err := util.EnsureDir(w.outputDir); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", w.outputDir, err)
	}

	out := make([]Scene, len(scenes))
	copy(out, scenes)

	for i := range out {
		if ctx.Err() != nil {
			out[i].WriteErr = ctx.Err().Error()
			continue
		}

		final := filepath.Join(w.outputDir, fmt.Sprintf("scene_%03d.mp4", out[i].Index))
		tmp := filepath.Join(w.outputDir, fmt.Sprintf(".scene_%03d.mp4.tmp", out[i].Index))

		err := w.clipper.ExtractClip(ctx, input, ffmpeg.ClipOptions{
			Start:     out[i].Start,
			End:       out[i].End,
			Output:    tmp,
			CopyCodec: true,
		})
		if err == nil {
			err = os.Rename(tmp, final)
		}
		if err != nil {
			util.CleanupFiles(tmp)
			out[i].WriteErr = err.Error()
			w.logger.Error().
				Err(err).
				Int("scene", out[i].Index).
				Dur("start", out[i].Start).
				Dur("end", out[i].End).
				Msg("scene write failed, continuing")
			continue
		}

		out[i].FilePath = final
		w.logger.Info().
			Int("scene", out[i].Index).
			Str("file", final).
			Dur("duration", out[i].Duration()).
			Msg("scene written")
	}

	return out, nil
}
