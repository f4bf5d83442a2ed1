package reprocess

import (
	"fmt"
	"os"
	"strings"
)

// WriteFinalReport writes a short Markdown summary of a completed batch
// to path, mirroring the original pipeline's end-of-run report.
func WriteFinalReport(summary *Summary, path string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Batch Reprocessing Report\n\n")
	fmt.Fprintf(&b, "**Batch ID:** %s\n\n", summary.BatchID)

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "- **Total interviews:** %d\n", summary.Total)
	fmt.Fprintf(&b, "- **Processed:** %d\n", summary.Processed)
	fmt.Fprintf(&b, "- **Successful:** %d\n", summary.Successful)
	fmt.Fprintf(&b, "- **Failed:** %d\n", summary.Failed)
	fmt.Fprintf(&b, "- **Success rate:** %.1f%%\n\n", summary.SuccessRate()*100)

	var failed []InterviewResult
	for _, res := range summary.PerInterview {
		if !res.Success {
			failed = append(failed, res)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, "## Failed interviews\n\n")
		for _, res := range failed {
			if res.Err != "" {
				fmt.Fprintf(&b, "- %s: %s\n", res.FileID, res.Err)
				continue
			}
			for _, lo := range res.Languages {
				if lo.Status != StatusSuccess {
					fmt.Fprintf(&b, "- %s (%s): %s\n", res.FileID, lo.Language, lo.Err)
				}
			}
		}
		fmt.Fprintf(&b, "\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}
