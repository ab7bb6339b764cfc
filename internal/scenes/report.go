package scenes

import (
	"fmt"
	"os"
	"strings"

	"github.com/echohive42/video-scene-splitter/pkg/util"
)

// ReportMeta summarizes run-level conditions the report should surface
type ReportMeta struct {
	Input           string
	BatchesJudged   int
	BatchesDegraded int
}

// WriteReport renders the per-scene analysis report. Every scene the run
// managed to produce is listed, including ones whose output file failed to
// write, annotated with any degradation that affected its boundary decision.
func WriteReport(path string, meta ReportMeta, scenes []Scene) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Scene analysis for %s\n", meta.Input)
	fmt.Fprintf(&b, "Scenes: %d\n", len(scenes))
	if meta.BatchesDegraded > 0 {
		fmt.Fprintf(&b, "WARNING: semantic judge unavailable for %d/%d batches; affected boundaries rely on motion detection only\n",
			meta.BatchesDegraded, meta.BatchesJudged)
	}
	b.WriteString(strings.Repeat("-", 50) + "\n")

	for _, s := range scenes {
		fmt.Fprintf(&b, "Scene %d:\n", s.Index)
		fmt.Fprintf(&b, "Time Range: %s - %s\n", util.FormatDuration(s.Start), util.FormatDuration(s.End))
		fmt.Fprintf(&b, "Duration: %.2fs\n", s.Duration().Seconds())
		if s.Source != "" {
			fmt.Fprintf(&b, "Cut: %s (confidence %.2f) - %s\n", s.Source, s.Confidence, s.Reason)
		} else {
			fmt.Fprintf(&b, "Cut: %s\n", s.Reason)
		}
		if s.Failed() {
			fmt.Fprintf(&b, "Video File: WRITE FAILED (%s)\n", s.WriteErr)
		} else {
			fmt.Fprintf(&b, "Video File: %s\n", s.FilePath)
		}
		b.WriteString(strings.Repeat("-", 50) + "\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}
