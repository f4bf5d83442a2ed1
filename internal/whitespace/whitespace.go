// Package whitespace collapses irregular inter-word and inter-line spacing
// in subtitle text. It is the one normalization building block shared by
// the fix tool and the Batch Reprocessor's one-time spacing-normalization
// step, factored out so the two call sites can't drift.
package whitespace

import (
	"regexp"
	"strings"

	"github.com/adrianmusante/subtitle-tools/internal/srt"
)

var (
	runOfSpaces    = regexp.MustCompile(`[ \t]+`)
	runOfBlankLines = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapses runs of spaces/tabs to a single space, collapses
// three-or-more consecutive newlines down to two, and trims each line. It
// never merges or removes lines outright; that is fix's job, not this
// package's.
func Normalize(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = runOfSpaces.ReplaceAllString(line, " ")
		lines[i] = strings.TrimSpace(line)
	}
	joined := strings.Join(lines, "\n")
	joined = runOfBlankLines.ReplaceAllString(joined, "\n\n")
	return srt.CleanText(joined)
}

// NormalizeFile applies Normalize to every segment's text in place and
// reports how many segments actually changed, so a caller can decide
// whether a one-time backup is worth taking.
func NormalizeFile(file *srt.File) (changed int) {
	for _, seg := range file.Segments {
		normalized := Normalize(seg.Text)
		if normalized != seg.Text {
			seg.Text = normalized
			changed++
		}
	}
	return changed
}
