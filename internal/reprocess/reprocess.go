// Package reprocess implements the Batch Reprocessor: it drives the
// translation pipeline across many interviews and target languages with
// backup, resumable checkpointing via a marker file, atomic progress
// reporting, and rollback.
package reprocess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/adrianmusante/subtitle-tools/internal/detect"
	"github.com/adrianmusante/subtitle-tools/internal/fs"
	"github.com/adrianmusante/subtitle-tools/internal/provider"
	"github.com/adrianmusante/subtitle-tools/internal/srt"
	"github.com/adrianmusante/subtitle-tools/internal/translate"
	"github.com/adrianmusante/subtitle-tools/internal/whitespace"
)

const (
	PreservationMarkerName = ".preservation_fix_applied"
	SpacingBackupSuffix    = ".spacing_backup"
	rollingWindowSize      = 10
	// DefaultLowSuccessRateThreshold below which Run logs a warning without
	// halting the batch.
	DefaultLowSuccessRateThreshold = 0.80
)

// Status is the outcome of one interview/language unit of work.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Interview is one candidate unit of work, as reported by the registry.
type Interview struct {
	FileID        string
	SourceSRTPath string
	OutputDir     string
}

// PreservationMarkerPath is where the marker lives for a given interview
// output directory; its presence (not content) controls skip behavior.
func PreservationMarkerPath(outputDir string) string {
	return filepath.Join(outputDir, PreservationMarkerName)
}

// Registry is the external collaborator the Reprocessor consumes. No other
// coupling to an interview-tracking system is permitted in this package.
type Registry interface {
	EnumerateCompletedInterviews(ctx context.Context, limit int) ([]Interview, error)
	MarkLanguageStatus(ctx context.Context, fileID string, lang srt.Language, status Status) error
}

// Options configures one Run.
type Options struct {
	Registry        Registry
	TargetLanguages []string

	BackupRoot string
	WorkDir    string

	Limit     int
	StartFrom int
	ForceAll  bool
	Workers   int

	ProviderRegistry provider.Registry
	Classifier       detect.Classifier
	SkipDetect       bool

	BatchSizeTranslate int
	DetectBatchSize    int

	LowSuccessRateThreshold float64
}

// LanguageOutcome is the per-language result for one interview.
type LanguageOutcome struct {
	Language srt.Language
	Status   Status
	Err      string `json:",omitempty"`
}

// InterviewResult is the per-interview outcome of the pipeline.
type InterviewResult struct {
	FileID    string
	Languages []LanguageOutcome
	Success   bool
	Err       string `json:",omitempty"`
	Duration  time.Duration
}

// Summary is returned by Run.
type Summary struct {
	BatchID      string
	Total        int
	Processed    int
	Successful   int
	Failed       int
	PerInterview []InterviewResult
}

// SuccessRate returns Successful/Processed, or 1 when nothing was processed.
func (s *Summary) SuccessRate() float64 {
	if s.Processed == 0 {
		return 1
	}
	return float64(s.Successful) / float64(s.Processed)
}

var ErrBackupFailure = errors.New("reprocess: backup failed")
var ErrValidationFailure = errors.New("reprocess: output validation failed")

// Run discovers candidate interviews, filters by marker/limit/start-from,
// and processes them (sequentially when Workers<=1, the default, or across
// a small bounded worker pool otherwise). It returns a Summary even on
// partial failure: the batch continues past interview failures.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Registry == nil {
		return nil, errors.New("reprocess: registry is required")
	}
	if len(opts.TargetLanguages) == 0 {
		return nil, errors.New("reprocess: at least one target language is required")
	}
	if opts.BackupRoot == "" {
		return nil, errors.New("reprocess: backup root is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.LowSuccessRateThreshold <= 0 {
		opts.LowSuccessRateThreshold = DefaultLowSuccessRateThreshold
	}

	batchID := uuid.New().String()
	batchDir := filepath.Join(opts.BackupRoot, batchID)
	if err := os.MkdirAll(batchDir, 0o755); err != nil {
		return nil, fmt.Errorf("reprocess: creating batch dir: %w", err)
	}

	candidates, err := opts.Registry.EnumerateCompletedInterviews(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("reprocess: enumerating interviews: %w", err)
	}

	var work []Interview
	for _, iv := range candidates {
		if !opts.ForceAll {
			if _, err := os.Stat(PreservationMarkerPath(iv.OutputDir)); err == nil {
				continue
			}
		}
		work = append(work, iv)
	}
	if opts.StartFrom > 0 && opts.StartFrom < len(work) {
		work = work[opts.StartFrom:]
	} else if opts.StartFrom >= len(work) {
		work = nil
	}
	if opts.Limit > 0 && opts.Limit < len(work) {
		work = work[:opts.Limit]
	}

	run := &runState{
		batchID:    batchID,
		batchDir:   batchDir,
		total:      len(work),
		startedAt:  clockNow(),
		progLog:    filepath.Join(batchDir, "progress.log"),
		statusPath: filepath.Join(batchDir, "status.json"),
	}

	sem := make(chan struct{}, opts.Workers)
	g, gctx := errgroup.WithContext(ctx)

	for _, iv := range work {
		iv := iv
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			if gctx.Err() != nil {
				return gctx.Err()
			}

			res := processInterview(ctx, opts, batchDir, iv)
			run.record(res)
			if opts.Registry != nil {
				for _, lo := range res.Languages {
					_ = opts.Registry.MarkLanguageStatus(ctx, iv.FileID, lo.Language, lo.Status)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return run.summary(), err
	}

	summary := run.summary()
	if summary.SuccessRate() < opts.LowSuccessRateThreshold {
		slog.Warn("batch success rate below threshold",
			"batch_id", batchID,
			"success_rate", summary.SuccessRate(),
			"threshold", opts.LowSuccessRateThreshold)
	}

	reportPath := filepath.Join(batchDir, "final_report.md")
	if err := WriteFinalReport(summary, reportPath); err != nil {
		slog.Warn("failed to write final report", "err", err)
	}

	return summary, nil
}

// processInterview runs the ordered per-interview pipeline (§4.5.2):
// backup, spacing normalization, translate per language, derive VTT,
// validate, marker.
func processInterview(ctx context.Context, opts Options, batchDir string, iv Interview) InterviewResult {
	start := clockNow()
	res := InterviewResult{FileID: iv.FileID}

	if err := backupInterview(batchDir, iv); err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrBackupFailure, err).Error()
		res.Duration = clockNow().Sub(start)
		return res
	}

	file, _, err := srt.ParseFile(iv.SourceSRTPath)
	if err != nil {
		res.Err = err.Error()
		res.Duration = clockNow().Sub(start)
		return res
	}

	if err := normalizeSpacingOnce(iv.SourceSRTPath, file); err != nil {
		slog.Warn("spacing normalization failed; continuing with original spacing", "file_id", iv.FileID, "err", err)
	}

	if !opts.SkipDetect && opts.Classifier != nil {
		if _, err := detect.Detect(ctx, opts.Classifier, file, detect.Options{BatchSize: opts.DetectBatchSize}); err != nil {
			slog.Warn("language detection failed; translating unconditionally", "file_id", iv.FileID, "err", err)
		}
	}

	allSucceeded := true
	for _, langTag := range opts.TargetLanguages {
		target := provider.ClosedLanguage(langTag)
		writeHeartbeat(batchDir, iv.FileID, target)

		outcome := translateOneLanguage(ctx, opts, iv, file, langTag, target)
		res.Languages = append(res.Languages, outcome)
		if outcome.Status != StatusSuccess {
			allSucceeded = false
		}
	}

	res.Success = allSucceeded
	res.Duration = clockNow().Sub(start)

	if allSucceeded {
		if err := writePreservationMarker(iv.OutputDir, opts.TargetLanguages); err != nil {
			slog.Warn("failed to write preservation marker", "file_id", iv.FileID, "err", err)
		}
	}
	return res
}

func translateOneLanguage(ctx context.Context, opts Options, iv Interview, file *srt.File, langTag string, target srt.Language) LanguageOutcome {
	outcome := LanguageOutcome{Language: target}

	base := strings.TrimSuffix(filepath.Base(iv.SourceSRTPath), filepath.Ext(iv.SourceSRTPath))
	base = strings.TrimSuffix(base, ".orig")
	outSRT := filepath.Join(iv.OutputDir, fmt.Sprintf("%s.%s.srt", base, langTag))
	outVTT := filepath.Join(iv.OutputDir, fmt.Sprintf("%s.%s.vtt", base, langTag))

	topts := translate.Options{
		InputPath:      iv.SourceSRTPath,
		OutputPath:     outSRT,
		VTTOutputPath:  outVTT,
		WorkDir:        opts.WorkDir,
		TargetLanguage: langTag,
		Registry:       opts.ProviderRegistry,
	}
	if opts.BatchSizeTranslate > 0 {
		topts.BatchSizeTranslate = opts.BatchSizeTranslate
	}

	fileCopy := &srt.File{SourcePath: file.SourcePath, Segments: make([]*srt.Segment, len(file.Segments))}
	for i, seg := range file.Segments {
		cp := *seg
		fileCopy.Segments[i] = &cp
	}

	_, err := translate.Run(ctx, fileCopy, topts)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err.Error()
		return outcome
	}

	if err := validateProducedFile(outSRT); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = fmt.Errorf("%w: %v", ErrValidationFailure, err).Error()
		return outcome
	}

	outcome.Status = StatusSuccess
	return outcome
}

// validateProducedFile checks that the produced SRT exists, is non-empty,
// parses, and contains at least one timing line (§4.5.2 step 5).
func validateProducedFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("produced file %s is empty", path)
	}
	f, _, err := srt.ParseFile(path)
	if err != nil {
		return err
	}
	if len(f.Segments) == 0 {
		return fmt.Errorf("produced file %s has no timing lines", path)
	}
	return nil
}

func backupInterview(batchDir string, iv Interview) error {
	dir := filepath.Join(batchDir, iv.FileID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	entries, err := filepath.Glob(filepath.Join(iv.OutputDir, "*.srt"))
	if err != nil {
		return err
	}

	var backed []backedUpFile
	for _, src := range entries {
		dst := filepath.Join(dir, filepath.Base(src))
		if err := fs.CopyFile(src, dst); err != nil {
			return err
		}
		backed = append(backed, backedUpFile{OriginalPath: src, BackupPath: dst})
	}

	meta := backupMetadata{
		Timestamp: clockNow().UTC().Format(time.RFC3339),
		FileID:    iv.FileID,
		BatchID:   filepath.Base(batchDir),
		Files:     backed,
	}
	return writeJSONAtomic(filepath.Join(dir, "backup_metadata.json"), meta)
}

// normalizeSpacingOnce applies whitespace normalization to the source file
// in place, after first saving a one-time backup, matching the original
// pipeline's "pathological whitespace has hung a provider's tokenizer"
// rationale. It is a no-op on subsequent runs: the backup's presence marks
// the normalization as already applied.
func normalizeSpacingOnce(sourcePath string, file *srt.File) error {
	backupPath := sourcePath + SpacingBackupSuffix
	if _, err := os.Stat(backupPath); err == nil {
		return nil
	}
	if err := fs.CopyFile(sourcePath, backupPath); err != nil {
		return err
	}
	whitespace.NormalizeFile(file)
	raw, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}
	tmp := sourcePath + ".tmp"
	if err := os.WriteFile(tmp, []byte(whitespace.Normalize(string(raw))+"\n"), 0o644); err != nil {
		return err
	}
	return fs.RenameOrMove(tmp, sourcePath)
}

func writePreservationMarker(outputDir string, languages []string) error {
	marker := preservationMarker{
		ProcessedAt: clockNow().UTC().Format(time.RFC3339),
		Languages:   languages,
		Success:     true,
	}
	return writeJSONAtomic(PreservationMarkerPath(outputDir), marker)
}

func writeHeartbeat(batchDir, fileID string, lang srt.Language) {
	path := filepath.Join(batchDir, fmt.Sprintf("language_status_%s.json", lang))
	rec := languageStatusRecord{
		FileID:    fileID,
		Language:  string(lang),
		UpdatedAt: clockNow().UTC().Format(time.RFC3339),
	}
	if err := writeJSONAtomic(path, rec); err != nil {
		slog.Warn("failed to write heartbeat", "lang", lang, "err", err)
	}
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return fs.RenameOrMove(tmp, path)
}

// Rollback restores every backed-up .srt for batchID to its original
// location. Idempotent: it only copies each backup over its recorded
// original path, so repeating it gives the same result.
func Rollback(ctx context.Context, backupRoot, batchID string) error {
	_ = ctx
	batchDir := filepath.Join(backupRoot, batchID)
	entries, err := os.ReadDir(batchDir)
	if err != nil {
		return fmt.Errorf("reprocess: reading batch dir: %w", err)
	}

	var firstErr error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		fileID := e.Name()
		metaPath := filepath.Join(batchDir, fileID, "backup_metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		var meta backupMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, f := range meta.Files {
			if err := fs.CopyFile(f.BackupPath, f.OriginalPath); err != nil {
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

// runState tracks rolling progress for a Run invocation, guarded by mu so
// multiple workers can finish interviews concurrently.
type runState struct {
	mu         sync.Mutex
	batchID    string
	batchDir   string
	total      int
	startedAt  time.Time
	progLog    string
	statusPath string

	processed      int
	successful     int
	failed         int
	currentFileID  string
	durations      []time.Duration
	perInterview   []InterviewResult
}

func (r *runState) record(res InterviewResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.processed++
	r.currentFileID = res.FileID
	if res.Success {
		r.successful++
	} else {
		r.failed++
	}
	r.perInterview = append(r.perInterview, res)
	r.durations = append(r.durations, res.Duration)
	if len(r.durations) > rollingWindowSize {
		r.durations = r.durations[len(r.durations)-rollingWindowSize:]
	}

	r.appendProgressLine(res)
	r.writeStatusSnapshot()
}

func (r *runState) appendProgressLine(res InterviewResult) {
	f, err := os.OpenFile(r.progLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Warn("failed to open progress log", "err", err)
		return
	}
	defer fs.CloseOrLog(f, r.progLog)

	status := "ok"
	if !res.Success {
		status = "failed"
	}
	line := fmt.Sprintf("[%s] %s file=%s duration=%s\n",
		clockNow().UTC().Format(time.RFC3339), status, res.FileID, res.Duration.Round(time.Millisecond))
	_, _ = f.WriteString(line)
}

func (r *runState) writeStatusSnapshot() {
	elapsed := clockNow().Sub(r.startedAt)
	var avg time.Duration
	if len(r.durations) > 0 {
		var sum time.Duration
		for _, d := range r.durations {
			sum += d
		}
		avg = sum / time.Duration(len(r.durations))
	}
	var rate float64
	if elapsed > 0 {
		rate = float64(r.processed) / elapsed.Seconds()
	}
	var eta time.Duration
	if rate > 0 && r.total > r.processed {
		eta = time.Duration(float64(r.total-r.processed)/rate) * time.Second
	}
	pct := float64(0)
	if r.total > 0 {
		pct = 100 * float64(r.processed) / float64(r.total)
	}

	snap := statusSnapshot{
		BatchID:        r.batchID,
		Processed:      r.processed,
		Total:          r.total,
		Successful:     r.successful,
		Failed:         r.failed,
		CurrentFileID:  r.currentFileID,
		LastDurationS:  lastOf(r.durations).Seconds(),
		AvgDurationS:   avg.Seconds(),
		ElapsedS:       elapsed.Seconds(),
		ETAS:           eta.Seconds(),
		ProcessingRate: rate,
		UpdatedAt:      clockNow().UTC().Format(time.RFC3339),
		ProgressPct:    pct,
		HumanProgress:  fmt.Sprintf("%s/%s processed, %s remaining", humanize.Comma(int64(r.processed)), humanize.Comma(int64(r.total)), humanizeETA(eta)),
	}
	if err := writeJSONAtomic(r.statusPath, snap); err != nil {
		slog.Warn("failed to write status snapshot", "err", err)
	}
}

func humanizeETA(eta time.Duration) string {
	if eta <= 0 {
		return "done"
	}
	return humanize.Time(clockNow().Add(eta))
}

func lastOf(durs []time.Duration) time.Duration {
	if len(durs) == 0 {
		return 0
	}
	return durs[len(durs)-1]
}

func (r *runState) summary() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	sorted := make([]InterviewResult, len(r.perInterview))
	copy(sorted, r.perInterview)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FileID < sorted[j].FileID })
	return &Summary{
		BatchID:      r.batchID,
		Total:        r.total,
		Processed:    r.processed,
		Successful:   r.successful,
		Failed:       r.failed,
		PerInterview: sorted,
	}
}

// clockNow is the single indirection point for "now" so tests can reason
// about durations without the package depending on a wall clock seam.
var clockNow = time.Now
