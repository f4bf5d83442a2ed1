// Package translate implements the Translation Orchestrator: it decides
// which segments need translating, deduplicates repeated text, routes
// batches of unique text through the provider package, reassembles the
// file with every segment's boundary untouched, and validates that
// boundary invariant before anything is persisted.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/adrianmusante/subtitle-tools/internal/fs"
	"github.com/adrianmusante/subtitle-tools/internal/provider"
	"github.com/adrianmusante/subtitle-tools/internal/run"
	"github.com/adrianmusante/subtitle-tools/internal/srt"
)

const (
	DefaultBatchSizeTranslate = 100
	DefaultMaxWorkers         = 2
	DefaultRequestPerSecond   = 4
	MinTranslatableTextLen    = 3
)

// Options configures one Run over an already parsed (and, ideally,
// already language-detected) subtitle file.
type Options struct {
	InputPath  string // used only to derive a readable temp-file name
	OutputPath string
	VTTOutputPath string // optional; when set, a WebVTT sibling is also written
	DryRun     bool
	WorkDir    string

	SourceLanguage string
	TargetLanguage string
	ProviderHint   provider.ID

	Registry provider.Registry

	BatchSizeTranslate int
	MaxWorkers         int
	RPS                float64
}

// Result reports what Run actually did, including any segments whose
// translation failed and were preserved verbatim rather than emptied.
type Result struct {
	WrittenPath    string
	VTTWrittenPath string
	Batches        int
	Translated     int
	Preserved      int
	PreservedKeys  []string
}

// ErrBoundaryViolation is fatal: it means the reassembled output would
// not have the same segment count/index/timing as the input, and the
// caller must discard whatever partial output exists.
var ErrBoundaryViolation = errors.New("translate: segment boundary violation")

func validateAndDefaultOptions(opts Options) (Options, error) {
	if opts.OutputPath == "" {
		return Options{}, errors.New("translate: output path is required")
	}
	if opts.WorkDir == "" {
		return Options{}, errors.New("translate: workdir is required")
	}
	if opts.TargetLanguage == "" {
		return Options{}, errors.New("translate: target language is required")
	}
	if opts.BatchSizeTranslate <= 0 {
		opts.BatchSizeTranslate = DefaultBatchSizeTranslate
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}
	return opts, nil
}

// UniqueTextKey normalizes text for deduplication: whitespace-collapsed,
// so that two segments whose text differs only in spacing share one
// translation.
func UniqueTextKey(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func shouldTranslate(seg *srt.Segment, target srt.Language) bool {
	trimmed := strings.TrimSpace(seg.Text)
	if trimmed == "" {
		return false
	}
	if srt.IsNonVerbal(trimmed) {
		return false
	}
	if len(trimmed) < MinTranslatableTextLen {
		return false
	}
	return seg.DetectedLanguage != target
}

// Run executes the Orchestrator pipeline against file: translate,
// reassemble, validate boundaries, and persist only on success.
func Run(ctx context.Context, file *srt.File, opts Options) (Result, error) {
	opts, err := validateAndDefaultOptions(opts)
	if err != nil {
		return Result{}, err
	}

	target := provider.ClosedLanguage(opts.TargetLanguage)

	slog.Info("translating subtitles",
		"segments", len(file.Segments),
		"target_language", provider.NormalizeLabel(opts.TargetLanguage))

	original := file.Segments

	uniqueOrder := make([]string, 0)
	uniqueText := make(map[string]string)
	members := make(map[string][]int) // key -> segment positions

	for i, seg := range original {
		if !shouldTranslate(seg, target) {
			continue
		}
		key := UniqueTextKey(seg.Text)
		if _, ok := uniqueText[key]; !ok {
			uniqueText[key] = seg.Text
			uniqueOrder = append(uniqueOrder, key)
		}
		members[key] = append(members[key], i)
	}

	jobs := make([]translationJob, 0, len(uniqueOrder))
	for _, key := range uniqueOrder {
		jobs = append(jobs, translationJob{key: key, text: uniqueText[key]})
	}

	batches := buildBatches(jobs, opts.BatchSizeTranslate)

	translated, preservedKeys, err := translateBatches(ctx, opts, target, batches)
	if err != nil {
		return Result{}, err
	}

	outSegments := make([]*srt.Segment, len(original))
	translatedCount := 0
	preservedCount := 0
	for i, seg := range original {
		cp := *seg
		outSegments[i] = &cp
	}
	for key, idxs := range members {
		text, ok := translated[key]
		if !ok {
			preservedCount += len(idxs)
			continue
		}
		for _, i := range idxs {
			outSegments[i].Text = text
			translatedCount++
		}
	}

	outFile := &srt.File{SourcePath: file.SourcePath, Segments: outSegments}
	if err := ValidateBoundaries(original, outSegments); err != nil {
		return Result{}, err
	}

	writtenPath, vttPath, err := writeOutput(opts, outFile)
	if err != nil {
		return Result{}, err
	}

	return Result{
		WrittenPath:    writtenPath,
		VTTWrittenPath: vttPath,
		Batches:        len(batches),
		Translated:     translatedCount,
		Preserved:      preservedCount,
		PreservedKeys:  preservedKeys,
	}, nil
}

type translationJob struct {
	key  string
	text string
}

func buildBatches(jobs []translationJob, size int) [][]translationJob {
	var batches [][]translationJob
	for start := 0; start < len(jobs); start += size {
		end := start + size
		if end > len(jobs) {
			end = len(jobs)
		}
		batches = append(batches, jobs[start:end])
	}
	return batches
}

func translateBatches(
	ctx context.Context,
	opts Options,
	target srt.Language,
	batches [][]translationJob,
) (map[string]string, []string, error) {
	result := make(map[string]string)
	var resultMu sync.Mutex
	var preservedKeys []string

	adapter, routeErr := provider.Route(opts.Registry, target, opts.ProviderHint)
	if routeErr != nil {
		return nil, nil, routeErr
	}

	source := provider.ClosedLanguage(opts.SourceLanguage)

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}

	jobsCh := make(chan []translationJob)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	var wg sync.WaitGroup
	for i := 0; i < opts.MaxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobsCh {
				if ctx.Err() != nil {
					return
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				texts := make([]string, len(b))
				for i, j := range b {
					texts[i] = j.text
				}
				out, err := translateOneBatch(ctx, adapter, texts, target, source)
				if err != nil {
					select {
					case errCh <- err:
					default:
					}
					cancel()
					return
				}
				resultMu.Lock()
				for i, j := range b {
					if out[i] == "" && texts[i] != "" {
						preservedKeys = append(preservedKeys, j.key)
						continue
					}
					result[j.key] = out[i]
				}
				resultMu.Unlock()
			}
		}()
	}

	go func() {
		defer close(jobsCh)
		for _, b := range batches {
			select {
			case <-ctx.Done():
				return
			case jobsCh <- b:
			}
		}
	}()

	wg.Wait()
	select {
	case err := <-errCh:
		return nil, nil, err
	default:
	}
	if ctx.Err() != nil && !errors.Is(ctx.Err(), context.Canceled) {
		return nil, nil, ctx.Err()
	}

	return result, preservedKeys, nil
}

// translateOneBatch calls the adapter's batch translation, chunking any
// individual text that alone exceeds the adapter's per-request cap, and
// falling back to per-item translation when the batch call fails or
// violates the batch contract, rather than failing the whole batch.
func translateOneBatch(ctx context.Context, adapter provider.Capability, texts []string, target, source srt.Language) ([]string, error) {
	limit := adapter.MaxCharsPerRequest()

	needsChunking := false
	for _, t := range texts {
		if len(t) > limit {
			needsChunking = true
			break
		}
	}

	if !needsChunking && adapter.SupportsBatch() {
		out, err := adapter.BatchTranslate(ctx, texts, target, source)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		slog.Warn("provider batch request failed; falling back to per-item translation", "err", err)
	}

	out := make([]string, len(texts))
	for i, t := range texts {
		translated, err := translateSingle(ctx, adapter, t, target, source)
		if err != nil {
			slog.Warn("translation failed for segment; preserving original text", "err", err)
			out[i] = ""
			continue
		}
		out[i] = translated
	}
	return out, nil
}

func translateSingle(ctx context.Context, adapter provider.Capability, text string, target, source srt.Language) (string, error) {
	limit := adapter.MaxCharsPerRequest()
	if len(text) <= limit {
		return adapter.Translate(ctx, text, target, source)
	}
	chunks := provider.Chunk(text, limit)
	out := make([]string, len(chunks))
	for i, c := range chunks {
		t, err := adapter.Translate(ctx, c, target, source)
		if err != nil {
			return "", err
		}
		out[i] = t
	}
	return strings.Join(out, "\n\n"), nil
}

// ValidateBoundaries is the terminal, fatal check before persisting
// output: segment count, index, start and end must be identical between
// in and out. Any violation is unrecoverable for this run.
func ValidateBoundaries(in, out []*srt.Segment) error {
	if len(in) != len(out) {
		return fmt.Errorf("%w: segment count changed: %d -> %d", ErrBoundaryViolation, len(in), len(out))
	}
	for i := range in {
		if in[i].Index != out[i].Index {
			return fmt.Errorf("%w: segment %d index changed: %d -> %d", ErrBoundaryViolation, i, in[i].Index, out[i].Index)
		}
		if in[i].Start != out[i].Start || in[i].End != out[i].End {
			return fmt.Errorf("%w: segment %d timing changed", ErrBoundaryViolation, i)
		}
	}
	return nil
}

func writeOutput(opts Options, file *srt.File) (string, string, error) {
	namer := run.NewTempNamer(opts.WorkDir, opts.InputPath)

	srtTmp := namer.Step("output")
	if err := writeSRTFile(srtTmp, file); err != nil {
		return "", "", err
	}

	srtOut := opts.OutputPath
	if opts.DryRun {
		srtOut = srtTmp
	} else if err := fs.RenameOrMove(srtTmp, srtOut); err != nil {
		return "", "", err
	}

	if opts.VTTOutputPath == "" {
		return srtOut, "", nil
	}

	vttTmp := namer.Step("output-vtt")
	if err := writeVTTFile(vttTmp, file); err != nil {
		return srtOut, "", err
	}
	vttOut := opts.VTTOutputPath
	if opts.DryRun {
		vttOut = vttTmp
	} else if err := fs.RenameOrMove(vttTmp, vttOut); err != nil {
		return srtOut, "", err
	}
	return srtOut, vttOut, nil
}

func writeSRTFile(path string, file *srt.File) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fs.CloseOrLog(f, path)
	return srt.WriteSRT(f, file)
}

func writeVTTFile(path string, file *srt.File) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fs.CloseOrLog(f, path)
	return srt.WriteVTT(f, file)
}
