package detect

import (
	"fmt"
	"image"
	stddraw "image/draw"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
)

// maxAnalysisWidth caps the width frames are compared at. Larger frames are
// downscaled before diffing so the per-pair cost stays bounded; the mean
// difference itself is size-independent, so the threshold keeps its meaning.
const maxAnalysisWidth = 256

// MotionDetector flags hard cuts by comparing consecutive sampled frames at
// the pixel level. Threshold is the mean absolute grayscale difference
// (0-255) above which a pair counts as a cut candidate; higher values catch
// only sharper cuts.
type MotionDetector struct {
	logger    zerolog.Logger
	threshold float64
}

// NewMotionDetector creates a detector with the given threshold
func NewMotionDetector(logger zerolog.Logger, threshold float64) *MotionDetector {
	return &MotionDetector{
		logger:    logger.With().Str("component", "motion-detector").Logger(),
		threshold: threshold,
	}
}

// Threshold returns the configured sensitivity
func (d *MotionDetector) Threshold() float64 {
	return d.threshold
}

// Detect compares two consecutive sampled frames and returns a candidate if
// their difference score exceeds the threshold. The boolean reports whether
// a candidate was produced.
func (d *MotionDetector) Detect(prev, curr Frame) (MotionCandidate, bool, error) {
	score, err := d.Score(prev, curr)
	if err != nil {
		return MotionCandidate{}, false, err
	}

	if score <= d.threshold {
		return MotionCandidate{}, false, nil
	}

	d.logger.Debug().
		Int("frame", curr.Index).
		Float64("score", score).
		Float64("threshold", d.threshold).
		Msg("motion cut candidate")

	return MotionCandidate{
		FrameIndex: curr.Index,
		Timestamp:  curr.Timestamp,
		Score:      score,
	}, true, nil
}

// Score computes the mean absolute grayscale difference between two frames
func (d *MotionDetector) Score(prev, curr Frame) (float64, error) {
	a, err := analysisGray(prev.Image)
	if err != nil {
		return 0, fmt.Errorf("%w: previous frame %d: %v", ErrInvalidFrame, prev.Index, err)
	}
	b, err := analysisGray(curr.Image)
	if err != nil {
		return 0, fmt.Errorf("%w: current frame %d: %v", ErrInvalidFrame, curr.Index, err)
	}

	if !a.Bounds().Eq(b.Bounds()) {
		return 0, fmt.Errorf("%w: frame shapes differ (%v vs %v)",
			ErrInvalidFrame, a.Bounds(), b.Bounds())
	}

	var sum float64
	for i := range a.Pix {
		sum += math.Abs(float64(a.Pix[i]) - float64(b.Pix[i]))
	}

	return sum / float64(len(a.Pix)), nil
}

// analysisGray converts a frame to grayscale at the analysis resolution
func analysisGray(img image.Image) (*image.Gray, error) {
	if img == nil {
		return nil, fmt.Errorf("no pixel data")
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("empty bounds %v", bounds)
	}

	if bounds.Dx() > maxAnalysisWidth {
		h := bounds.Dy() * maxAnalysisWidth / bounds.Dx()
		if h < 1 {
			h = 1
		}
		scaled := image.NewGray(image.Rect(0, 0, maxAnalysisWidth, h))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Src, nil)
		return scaled, nil
	}

	if gray, ok := img.(*image.Gray); ok && gray.Stride == bounds.Dx() && bounds.Min == (image.Point{}) {
		return gray, nil
	}

	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	stddraw.Draw(gray, gray.Bounds(), img, bounds.Min, stddraw.Src)
	return gray, nil
}
