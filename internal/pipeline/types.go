package pipeline

import (
	"time"

	"github.com/echohive42/video-scene-splitter/internal/detect"
	"github.com/echohive42/video-scene-splitter/internal/scenes"
)

// Progress reports how far the sampling walk has advanced
type Progress struct {
	Samples   int
	Timestamp time.Duration
}

// ProgressFunc receives progress updates during a run
type ProgressFunc func(Progress)

// Options configures a single run
type Options struct {
	OnProgress ProgressFunc
}

// Result is everything a completed run produced
type Result struct {
	Scenes          []scenes.Scene
	Boundaries      []detect.Boundary
	Samples         int
	BatchesJudged   int
	BatchesDegraded int
	ReportPath      string
}

// JudgeDegraded reports whether any batch had to proceed without a semantic
// verdict
func (r *Result) JudgeDegraded() bool {
	return r.BatchesDegraded > 0
}
