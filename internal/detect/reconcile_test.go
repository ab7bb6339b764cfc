package detect

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func TestReconcileMotionOnly(t *testing.T) {
	r := NewReconciler(zerolog.Nop(), 30)

	motion := []MotionCandidate{
		{FrameIndex: 150, Score: 80},
		{FrameIndex: 300, Score: 45},
	}

	got := r.Reconcile(motion, nil, 600)
	if len(got) != 2 {
		t.Fatalf("got %d boundaries, want 2", len(got))
	}
	for i, b := range got {
		if b.Source != SourceMotion {
			t.Errorf("boundary %d source = %s, want motion", i, b.Source)
		}
		if b.Confidence != 0.5 {
			t.Errorf("boundary %d confidence = %v, want 0.5", i, b.Confidence)
		}
	}
}

func TestReconcileAgreementCollapses(t *testing.T) {
	r := NewReconciler(zerolog.Nop(), 5)

	motion := []MotionCandidate{{FrameIndex: 100, Score: 75}}
	verdicts := []Verdict{
		{BatchStart: 90, BatchEnd: 135, Changed: true, ChangeAt: 102, Description: "cut to a new location"},
	}

	got := r.Reconcile(motion, verdicts, 1000)
	if len(got) != 1 {
		t.Fatalf("got %d boundaries, want 1 merged", len(got))
	}
	b := got[0]
	if b.FrameIndex != 100 {
		t.Errorf("merged index = %d, want 100 (earlier of the pair)", b.FrameIndex)
	}
	if b.Source != SourceBoth {
		t.Errorf("merged source = %s, want both", b.Source)
	}
	if b.Confidence != 0.9 {
		t.Errorf("merged confidence = %v, want 0.9", b.Confidence)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	r := NewReconciler(zerolog.Nop(), 30)

	motion := []MotionCandidate{
		{FrameIndex: 150, Score: 80},
		{FrameIndex: 160, Score: 60},
		{FrameIndex: 400, Score: 90},
	}
	verdicts := []Verdict{
		{BatchStart: 135, BatchEnd: 180, Changed: true, ChangeAt: 165},
		{BatchStart: 500, BatchEnd: 545, Changed: false},
	}

	first := r.Reconcile(motion, verdicts, 1000)
	second := r.Reconcile(motion, verdicts, 1000)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same inputs produced different outputs:\n%v\n%v", first, second)
	}
}

func TestReconcileMinSeparation(t *testing.T) {
	r := NewReconciler(zerolog.Nop(), 30)

	motion := []MotionCandidate{
		{FrameIndex: 100, Score: 80},
		{FrameIndex: 110, Score: 70},
		{FrameIndex: 129, Score: 60},
		{FrameIndex: 200, Score: 90},
	}

	got := r.Reconcile(motion, nil, 1000)
	for i := 1; i < len(got); i++ {
		if got[i].FrameIndex-got[i-1].FrameIndex < 30 {
			t.Errorf("boundaries %d and %d are %d frames apart, want >= 30",
				got[i-1].FrameIndex, got[i].FrameIndex, got[i].FrameIndex-got[i-1].FrameIndex)
		}
	}
	if len(got) != 2 {
		t.Errorf("got %d boundaries, want 2 after merging the cluster", len(got))
	}
	if got[0].FrameIndex != 100 {
		t.Errorf("cluster kept index %d, want 100", got[0].FrameIndex)
	}
}

func TestReconcileDropsEdgeBoundaries(t *testing.T) {
	r := NewReconciler(zerolog.Nop(), 30)

	motion := []MotionCandidate{
		{FrameIndex: 10, Score: 90},  // too close to start
		{FrameIndex: 300, Score: 90}, // fine
		{FrameIndex: 590, Score: 90}, // too close to end
	}

	got := r.Reconcile(motion, nil, 600)
	if len(got) != 1 {
		t.Fatalf("got %d boundaries, want 1", len(got))
	}
	if got[0].FrameIndex != 300 {
		t.Errorf("kept boundary at %d, want 300", got[0].FrameIndex)
	}
}

func TestReconcileMidpointFallback(t *testing.T) {
	r := NewReconciler(zerolog.Nop(), 5)

	verdicts := []Verdict{
		{BatchStart: 100, BatchEnd: 160, Changed: true, ChangeAt: NoChangeIndex},
	}

	got := r.Reconcile(nil, verdicts, 1000)
	if len(got) != 1 {
		t.Fatalf("got %d boundaries, want 1", len(got))
	}
	if got[0].FrameIndex != 130 {
		t.Errorf("fallback index = %d, want batch midpoint 130", got[0].FrameIndex)
	}
	if got[0].Reason != "visual content change" {
		t.Errorf("fallback reason = %q", got[0].Reason)
	}
}

func TestReconcileUnchangedVerdictsIgnored(t *testing.T) {
	r := NewReconciler(zerolog.Nop(), 30)

	verdicts := []Verdict{
		{BatchStart: 100, BatchEnd: 160, Changed: false},
		{BatchStart: 200, BatchEnd: 260, Changed: false, Degraded: true},
	}

	if got := r.Reconcile(nil, verdicts, 1000); len(got) != 0 {
		t.Errorf("unchanged verdicts produced %d boundaries, want 0", len(got))
	}
}

func TestReconcileEmpty(t *testing.T) {
	r := NewReconciler(zerolog.Nop(), 30)

	if got := r.Reconcile(nil, nil, 1000); len(got) != 0 {
		t.Errorf("empty inputs produced %d boundaries", len(got))
	}
}

func TestReconcileSortedOutput(t *testing.T) {
	r := NewReconciler(zerolog.Nop(), 30)

	// Deliberately unsorted input
	motion := []MotionCandidate{
		{FrameIndex: 400, Score: 80},
		{FrameIndex: 100, Score: 80},
		{FrameIndex: 250, Score: 80},
	}

	got := r.Reconcile(motion, nil, 1000)
	for i := 1; i < len(got); i++ {
		if got[i].FrameIndex <= got[i-1].FrameIndex {
			t.Errorf("output not strictly increasing at %d: %d then %d",
				i, got[i-1].FrameIndex, got[i].FrameIndex)
		}
	}
}
