package scenes

import (
	"time"

	"github.com/echohive42/video-scene-splitter/internal/detect"
)

// Scene is one maximal contiguous time range between two consecutive
// boundaries. Reason, Source and Confidence describe the cut that ended the
// scene. Immutable once partitioned; FilePath and WriteErr are filled in by
// the Writer.
type Scene struct {
	Index      int
	Start      time.Duration
	End        time.Duration
	Reason     string
	Source     detect.Source
	Confidence float64

	FilePath string
	WriteErr string
}

// Duration returns the scene's length
func (s Scene) Duration() time.Duration {
	return s.End - s.Start
}

// Failed reports whether writing the scene's output file failed
func (s Scene) Failed() bool {
	return s.WriteErr != ""
}

// Partition converts an ordered boundary list into scenes covering exactly
// [0, total] with no gaps and no overlaps: scene i ends where scene i+1
// starts, the first scene starts at zero and the last ends at the full
// duration. No boundaries means the whole video is a single scene.
// Boundaries at or outside (0, total) are ignored.
func Partition(boundaries []detect.Boundary, total time.Duration) []Scene {
	var out []Scene
	start := time.Duration(0)

	for _, b := range boundaries {
		if b.Timestamp <= start || b.Timestamp >= total {
			continue
		}
		out = append(out, Scene{
			Index:      len(out),
			Start:      start,
			End:        b.Timestamp,
			Reason:     b.Reason,
			Source:     b.Source,
			Confidence: b.Confidence,
		})
		start = b.Timestamp
	}

	out = append(out, Scene{
		Index:  len(out),
		Start:  start,
		End:    total,
		Reason: "end of video",
	})

	return out
}
