// Package fix is a pre-translation cleanup pass over raw (often ASR-
// generated) subtitle files: it merges overlapping/duplicate/fragment
// cues, wraps long lines, and optionally strips markup. It intentionally
// renumbers and can change segment count — the opposite of the
// Translation Orchestrator's boundary-preservation invariant — so it is
// only ever run upstream of translation, never as part of it.
package fix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode"

	"log/slog"

	"github.com/adrianmusante/subtitle-tools/internal/fs"
	"github.com/adrianmusante/subtitle-tools/internal/run"
	"github.com/adrianmusante/subtitle-tools/internal/srt"
	"github.com/adrianmusante/subtitle-tools/internal/whitespace"
)

const DefaultMinWordsForMerging = 3
const DefaultMaxLineLength = 70
const DefaultMaxLinesPerSubtitle = 6

// DefaultMinSubtitleDurationForDedup is the max duration to consider a subtitle
// "super-short" and eligible for deduplication/merge if it repeats previous text.
const DefaultMinSubtitleDurationForDedup = 150 * time.Millisecond

var translatorPattern = regexp.MustCompile(`(?i)traductor|traducci[oó]n|translate|translator`)

var ErrSubtitlesOutOfOrder = errors.New("subtitles are out of order")

type Options struct {
	InputPath  string
	OutputPath string
	DryRun     bool
	WorkDir    string

	MaxLineLength int
	MinWordsMerge int

	StripStyle     bool
	SkipTranslator bool
	CreateBackup   bool
	BackupExt      string
}

type Result struct {
	WrittenPath string
}

// cue is the working representation during merging: unlike srt.Segment,
// its Index is not meaningful until the final pass assigns one.
type cue struct {
	Start, End time.Duration
	Text       string
}

func Run(ctx context.Context, opts Options) (Result, error) {
	_ = ctx
	if opts.InputPath == "" {
		return Result{}, errors.New("input path is required")
	}
	if opts.MaxLineLength <= 0 {
		opts.MaxLineLength = DefaultMaxLineLength
	}
	if opts.MinWordsMerge <= 0 {
		opts.MinWordsMerge = DefaultMinWordsForMerging
	}
	if opts.CreateBackup && opts.BackupExt == "" {
		return Result{}, errors.New("backup ext is required")
	}
	if opts.WorkDir == "" {
		return Result{}, errors.New("workdir is required (create one with run.NewWorkdir)")
	}

	slog.Info("fixing subtitles file", "input_path", opts.InputPath)

	namer := run.NewTempNamer(opts.WorkDir, opts.InputPath)

	file, _, err := srt.ParseFile(opts.InputPath)
	if err != nil {
		return Result{}, err
	}

	cues, outOfOrder := mergeCues(file.Segments, opts)
	if outOfOrder {
		slog.Warn("subtitles out of order; sorting and remerging")
		sorted := sortCues(file.Segments)
		cues, outOfOrder = mergeCues(sorted, opts)
		if outOfOrder {
			return Result{}, fmt.Errorf("out of order; remerge failed: %w", ErrSubtitlesOutOfOrder)
		}
	}

	out := &srt.File{Segments: cuesToSegments(cues)}

	tmpOutputPath := namer.Step("output")
	f, err := os.Create(tmpOutputPath)
	if err != nil {
		return Result{}, err
	}
	if err := srt.WriteSRT(f, out); err != nil {
		fs.CloseOrLog(f, tmpOutputPath)
		return Result{}, err
	}
	fs.CloseOrLog(f, tmpOutputPath)

	outputPath := opts.OutputPath
	if opts.DryRun {
		outputPath = namer.Step("final")
		if err := fs.CopyFile(tmpOutputPath, outputPath); err != nil {
			return Result{}, err
		}
		return Result{WrittenPath: outputPath}, nil
	}
	if outputPath == "" {
		outputPath = opts.InputPath
	}

	outputEquals, _ := fs.FilesEqual(outputPath, tmpOutputPath)
	if outputEquals {
		slog.Info("output identical to existing file; not overwriting", "path", outputPath)
		return Result{WrittenPath: outputPath}, nil
	}

	if opts.CreateBackup && fs.SameFilePath(outputPath, opts.InputPath) {
		backupFilePath := opts.InputPath + opts.BackupExt
		_ = os.Remove(backupFilePath)
		if err := fs.RenameOrMove(opts.InputPath, backupFilePath); err != nil {
			return Result{}, err
		}
	}
	if err := fs.RenameOrMove(tmpOutputPath, outputPath); err != nil {
		return Result{}, err
	}
	return Result{WrittenPath: outputPath}, nil
}

func cuesToSegments(cues []cue) []*srt.Segment {
	segs := make([]*srt.Segment, len(cues))
	for i, c := range cues {
		segs[i] = &srt.Segment{Index: i + 1, Start: c.Start, End: c.End, Text: c.Text}
	}
	return segs
}

func sortCues(segs []*srt.Segment) []*srt.Segment {
	cp := make([]*srt.Segment, len(segs))
	copy(cp, segs)
	srt.Sort(cp)
	return cp
}

func isContinueLine(s string) bool {
	if len(s) == 0 {
		return true
	}
	r := []rune(s)[0]
	return r == '&' || r == ',' || unicode.IsLower(r)
}

func isEndLine(s string) bool {
	if len(s) == 0 {
		return false
	}
	runes := []rune(s)
	r := runes[len(runes)-1]
	return r == '.' || r == '>'
}

func normalizeSubtitleText(text string, opts Options) string {
	text = whitespace.Normalize(text)
	if opts.StripStyle {
		text = stripSubtitleStyles(text)
	}
	return whitespace.Normalize(text)
}

func mergeShortLines(text string, minWords int, maxLineLen int) string {
	lines := strings.Split(text, "\n")
	var merged []string
	var buffer string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !isHtmlTagLine(line) &&
			len(strings.Fields(line)) <= minWords &&
			(buffer == "" || (isContinueLine(line) && !isEndLine(buffer))) {
			var candidate string
			if len(buffer) > 0 {
				candidate = buffer + " " + line
			} else {
				candidate = line
			}
			if len(candidate) >= maxLineLen {
				if len(buffer) > 0 {
					merged = append(merged, buffer)
				}
				buffer = line
			} else {
				buffer = candidate
			}
		} else {
			if len(buffer) > 0 {
				merged = append(merged, buffer)
			}
			buffer = line
		}
	}
	if len(buffer) > 0 {
		merged = append(merged, buffer)
	}
	return srt.CleanText(strings.Join(merged, "\n"))
}

func wrapSubtitleLines(text string, maxLen int) string {
	lines := strings.Split(text, "\n")
	var result []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if isHtmlTagLine(line) {
			result = append(result, line)
			continue
		}
		words := strings.Fields(line)
		var currentLine string
		var currentLen int

		for _, word := range words {
			extra := 0
			if currentLen > 0 {
				extra = 1
			}
			if currentLen+len(word)+extra > maxLen {
				result = append(result, currentLine)
				currentLine = word
				currentLen = len(word)
			} else {
				if currentLen > 0 {
					currentLine += " "
					currentLen++
				}
				currentLine += word
				currentLen += len(word)
			}
		}
		if currentLen > 0 {
			result = append(result, currentLine)
		}
	}
	return srt.CleanText(strings.Join(result, "\n"))
}

// mergeCues runs the merge/dedup/overlap-resolution pass over segs and
// reports whether it detected out-of-order timing (the caller should then
// sort and retry once).
func mergeCues(segs []*srt.Segment, opts Options) ([]cue, bool) {
	var out []cue
	var last *cue
	var processed []cue
	outOfOrder := false

	flushLast := func() {
		if last == nil {
			return
		}
		last.Text = srt.CleanText(last.Text)
		if len(last.Text) > 0 {
			last.Text = wrapSubtitleLines(last.Text, opts.MaxLineLength)
			lines := strings.Split(last.Text, "\n")
			if len(lines) > DefaultMaxLinesPerSubtitle {
				last.Text = mergeShortLines(last.Text, opts.MinWordsMerge, opts.MaxLineLength)
			}
			out = append(out, *last)
		}
	}

	for _, seg := range segs {
		text := normalizeSubtitleText(seg.Text, opts)
		c := cue{Start: seg.Start, End: seg.End, Text: text}

		if last == nil {
			if opts.SkipTranslator && translatorPattern.MatchString(c.Text) {
				slog.Debug("skipping translator subtitle", "text", c.Text)
				continue
			}
			last = &c
			continue
		}

		if len(c.Text) == 0 {
			continue
		}
		if c.Start > c.End {
			continue
		}
		duplicate := false
		for _, p := range processed {
			if c.Text == p.Text && c.Start == p.Start && c.End == p.End {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		processed = append(processed, cue{Start: c.Start, End: c.End, Text: c.Text})

		if c.End < last.Start {
			outOfOrder = true
		} else {
			if c.Start-last.End < 0 {
				last.Text = strings.Join([]string{last.Text, c.Text}, "\n")
				last.End = c.End
				continue
			}
			if c.End-c.Start < DefaultMinSubtitleDurationForDedup && strings.Contains(last.Text, c.Text) {
				last.End = c.End
				continue
			}
		}

		flushLast()
		last = &c
	}
	flushLast()

	return out, outOfOrder
}
