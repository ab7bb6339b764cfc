package scenes

import (
	"testing"
	"time"

	"github.com/echohive42/video-scene-splitter/internal/detect"
)

func TestPartitionCoversWholeVideo(t *testing.T) {
	total := 10 * time.Second
	boundaries := []detect.Boundary{
		{FrameIndex: 150, Timestamp: 5 * time.Second, Source: detect.SourceBoth, Confidence: 0.9, Reason: "hard cut"},
		{FrameIndex: 225, Timestamp: 7500 * time.Millisecond, Source: detect.SourceMotion, Confidence: 0.5, Reason: "frame difference 80.0"},
	}

	got := Partition(boundaries, total)
	if len(got) != 3 {
		t.Fatalf("got %d scenes, want 3", len(got))
	}

	if got[0].Start != 0 {
		t.Errorf("first scene starts at %v, want 0", got[0].Start)
	}
	if got[len(got)-1].End != total {
		t.Errorf("last scene ends at %v, want %v", got[len(got)-1].End, total)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start != got[i-1].End {
			t.Errorf("gap between scene %d and %d: %v vs %v", i-1, i, got[i-1].End, got[i].Start)
		}
	}
	for i, s := range got {
		if s.Index != i {
			t.Errorf("scene %d has Index %d", i, s.Index)
		}
		if s.Duration() <= 0 {
			t.Errorf("scene %d has non-positive duration %v", i, s.Duration())
		}
	}

	// The cut metadata belongs to the scene the boundary ended
	if got[0].Reason != "hard cut" || got[0].Source != detect.SourceBoth {
		t.Errorf("scene 0 cut metadata = %q/%s", got[0].Reason, got[0].Source)
	}
	if got[2].Reason != "end of video" {
		t.Errorf("final scene reason = %q, want end of video", got[2].Reason)
	}
}

func TestPartitionNoBoundaries(t *testing.T) {
	got := Partition(nil, 10*time.Second)
	if len(got) != 1 {
		t.Fatalf("got %d scenes, want 1", len(got))
	}
	if got[0].Start != 0 || got[0].End != 10*time.Second {
		t.Errorf("single scene = [%v, %v], want [0, 10s]", got[0].Start, got[0].End)
	}
}

func TestPartitionIgnoresOutOfRangeBoundaries(t *testing.T) {
	total := 10 * time.Second
	boundaries := []detect.Boundary{
		{FrameIndex: 0, Timestamp: 0},
		{FrameIndex: 150, Timestamp: 5 * time.Second, Reason: "valid"},
		{FrameIndex: 300, Timestamp: 10 * time.Second},
		{FrameIndex: 400, Timestamp: 13 * time.Second},
	}

	got := Partition(boundaries, total)
	if len(got) != 2 {
		t.Fatalf("got %d scenes, want 2", len(got))
	}
	if got[0].End != 5*time.Second {
		t.Errorf("first scene ends at %v, want 5s", got[0].End)
	}
}
