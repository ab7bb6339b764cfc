package detect

import "context"

// NoChangeIndex is the ChangeAt value of a verdict whose judge did not name
// a specific frame.
const NoChangeIndex = -1

// Batch is a small ordered window of sampled frames submitted to the judge
// in one call, plus lightweight textual context about what came before.
type Batch struct {
	Frames  []Frame
	Context string
}

// StartIndex returns the source frame index of the first frame in the batch
func (b Batch) StartIndex() int {
	if len(b.Frames) == 0 {
		return 0
	}
	return b.Frames[0].Index
}

// EndIndex returns the source frame index of the last frame in the batch
func (b Batch) EndIndex() int {
	if len(b.Frames) == 0 {
		return 0
	}
	return b.Frames[len(b.Frames)-1].Index
}

// Verdict is the judge's structured answer for one batch
type Verdict struct {
	BatchStart  int
	BatchEnd    int
	Changed     bool
	ChangeAt    int // source frame index, or NoChangeIndex
	Description string

	// Degraded marks a verdict synthesized after the judge could not be
	// consulted; the batch was treated as unchanged.
	Degraded bool
}

// Judge decides whether the visual content changed within a batch of frames.
// Implementations call an external vision capability; the pipeline owns all
// retry, concurrency, and degradation policy around it.
type Judge interface {
	Judge(ctx context.Context, batch Batch) (Verdict, error)
	Close() error
}
