package scenes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/echohive42/video-scene-splitter/internal/detect"
	"github.com/echohive42/video-scene-splitter/internal/ffmpeg"
)

// fakeClipper writes a placeholder file instead of invoking ffmpeg, failing
// for any start time listed in failAt
type fakeClipper struct {
	calls  int
	failAt map[time.Duration]bool
}

func (f *fakeClipper) ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error {
	f.calls++
	if f.failAt[opts.Start] {
		return fmt.Errorf("simulated encode failure")
	}
	return os.WriteFile(opts.Output, []byte("clip"), 0644)
}

func testScenes() []Scene {
	return []Scene{
		{Index: 0, Start: 0, End: 5 * time.Second, Reason: "hard cut", Source: detect.SourceBoth, Confidence: 0.9},
		{Index: 1, Start: 5 * time.Second, End: 7500 * time.Millisecond, Reason: "frame difference 80.0", Source: detect.SourceMotion, Confidence: 0.5},
		{Index: 2, Start: 7500 * time.Millisecond, End: 10 * time.Second, Reason: "end of video"},
	}
}

func TestWriterWritesAllScenes(t *testing.T) {
	dir := t.TempDir()
	clipper := &fakeClipper{}
	w := NewWriter(zerolog.Nop(), clipper, dir)

	got, err := w.Write(context.Background(), "input.mp4", testScenes())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if clipper.calls != 3 {
		t.Errorf("clipper called %d times, want 3", clipper.calls)
	}

	for i, s := range got {
		if s.Failed() {
			t.Errorf("scene %d failed: %s", i, s.WriteErr)
			continue
		}
		want := filepath.Join(dir, fmt.Sprintf("scene_%03d.mp4", i))
		if s.FilePath != want {
			t.Errorf("scene %d path = %q, want %q", i, s.FilePath, want)
		}
		if _, err := os.Stat(s.FilePath); err != nil {
			t.Errorf("scene %d output missing: %v", i, err)
		}
	}

	// No temp files left behind
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestWriterPartialFailure(t *testing.T) {
	dir := t.TempDir()
	clipper := &fakeClipper{failAt: map[time.Duration]bool{5 * time.Second: true}}
	w := NewWriter(zerolog.Nop(), clipper, dir)

	got, err := w.Write(context.Background(), "input.mp4", testScenes())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if got[0].Failed() || got[2].Failed() {
		t.Error("unaffected scenes should succeed")
	}
	if !got[1].Failed() {
		t.Fatal("scene 1 should record its write failure")
	}
	if got[1].FilePath != "" {
		t.Errorf("failed scene has FilePath %q", got[1].FilePath)
	}
	if clipper.calls != 3 {
		t.Errorf("clipper called %d times, want 3 (failure must not stop the rest)", clipper.calls)
	}
}

func TestWriteReportContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")

	scenes := testScenes()
	scenes[0].FilePath = "scenes/scene_000.mp4"
	scenes[1].WriteErr = "simulated encode failure"
	scenes[2].FilePath = "scenes/scene_002.mp4"

	meta := ReportMeta{Input: "input.mp4", BatchesJudged: 5, BatchesDegraded: 2}
	if err := WriteReport(path, meta, scenes); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	report := string(data)

	for _, want := range []string{
		"input.mp4",
		"Scenes: 3",
		"WARNING",
		"2/5",
		"Scene 0:",
		"00:00:00.000 - 00:00:05.000",
		"hard cut",
		"WRITE FAILED (simulated encode failure)",
		"scenes/scene_002.mp4",
		"end of video",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q\n%s", want, report)
		}
	}
}

func TestWriteReportNoDegradation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")

	meta := ReportMeta{Input: "input.mp4", BatchesJudged: 5}
	if err := WriteReport(path, meta, testScenes()); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "WARNING") {
		t.Error("report should not warn when no batches degraded")
	}
}
