package detect

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Source identifies which signal produced a boundary
type Source string

const (
	SourceMotion   Source = "motion"
	SourceSemantic Source = "semantic"
	SourceBoth     Source = "both"
)

// Confidence assigned per source. Agreement between the two independent
// signals is stronger evidence than either alone.
const (
	motionConfidence   = 0.5
	semanticConfidence = 0.6
	bothConfidence     = 0.9
)

// Boundary is a reconciled cut point. Timestamp is filled in by the caller
// once the boundary's frame index is mapped back to presentation time.
type Boundary struct {
	FrameIndex int
	Timestamp  time.Duration
	Source     Source
	Confidence float64
	Reason     string
}

// Reconciler fuses motion candidates and semantic verdicts into one strictly
// increasing boundary sequence, enforcing a minimum separation between cuts.
type Reconciler struct {
	logger        zerolog.Logger
	minSeparation int // frames
}

// NewReconciler creates a reconciler with the given minimum boundary
// separation in source frames
func NewReconciler(logger zerolog.Logger, minSeparation int) *Reconciler {
	if minSeparation < 1 {
		minSeparation = 1
	}
	return &Reconciler{
		logger:        logger.With().Str("component", "reconciler").Logger(),
		minSeparation: minSeparation,
	}
}

// Reconcile merges the two boundary signals. Candidates from different
// sources closer than the minimum separation collapse into a single boundary
// with Source=both, keeping the earlier frame index. Boundaries within the
// separation window of the start or end of the video are dropped so no
// degenerate scene can be produced. Pure and idempotent: the same inputs
// always yield the same output.
func (r *Reconciler) Reconcile(motion []MotionCandidate, verdicts []Verdict, totalFrames int) []Boundary {
	points := make([]Boundary, 0, len(motion)+len(verdicts))

	for _, c := range motion {
		points = append(points, Boundary{
			FrameIndex: c.FrameIndex,
			Timestamp:  c.Timestamp,
			Source:     SourceMotion,
			Confidence: motionConfidence,
			Reason:     fmt.Sprintf("frame difference %.1f", c.Score),
		})
	}

	for _, v := range verdicts {
		if !v.Changed {
			continue
		}
		idx := v.ChangeAt
		if idx < v.BatchStart || idx > v.BatchEnd {
			// No usable index from the judge, fall back to the batch midpoint
			idx = v.BatchStart + (v.BatchEnd-v.BatchStart)/2
		}
		reason := v.Description
		if reason == "" {
			reason = "visual content change"
		}
		points = append(points, Boundary{
			FrameIndex: idx,
			Source:     SourceSemantic,
			Confidence: semanticConfidence,
			Reason:     reason,
		})
	}

	// Stable order: by frame index, motion before semantic on ties so merges
	// are deterministic
	sort.Slice(points, func(i, j int) bool {
		if points[i].FrameIndex != points[j].FrameIndex {
			return points[i].FrameIndex < points[j].FrameIndex
		}
		return points[i].Source < points[j].Source
	})

	merged := make([]Boundary, 0, len(points))
	for _, p := range points {
		if len(merged) == 0 {
			merged = append(merged, p)
			continue
		}

		last := &merged[len(merged)-1]
		if p.FrameIndex-last.FrameIndex >= r.minSeparation {
			merged = append(merged, p)
			continue
		}

		// Within the separation window of the previous boundary: collapse,
		// keeping the earlier index
		if p.Source != last.Source {
			last.Reason = last.Reason + "; " + p.Reason
			last.Source = SourceBoth
			last.Confidence = bothConfidence
		} else if p.Confidence > last.Confidence {
			last.Confidence = p.Confidence
		}
	}

	// Drop boundaries that would create a degenerate scene at either edge
	out := merged[:0]
	for _, b := range merged {
		if b.FrameIndex < r.minSeparation {
			r.logger.Debug().Int("frame", b.FrameIndex).Msg("dropping boundary too close to start")
			continue
		}
		if totalFrames > 0 && b.FrameIndex > totalFrames-r.minSeparation {
			r.logger.Debug().Int("frame", b.FrameIndex).Msg("dropping boundary too close to end")
			continue
		}
		out = append(out, b)
	}

	return out
}
