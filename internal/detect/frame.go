package detect

import (
	"image"
	"time"
)

// Frame is a single sampled video frame. Index is the frame number in the
// source stream (not the sample number), Timestamp its true presentation
// time. Detectors treat the image as read-only.
type Frame struct {
	Index     int
	Timestamp time.Duration
	Image     image.Image
}

// MotionCandidate marks a sampled frame whose pixel difference against the
// previous sample exceeded the motion threshold.
type MotionCandidate struct {
	FrameIndex int
	Timestamp  time.Duration
	Score      float64
}
