package reprocess

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/adrianmusante/subtitle-tools/internal/srt"
)

// FilesystemRegistry is a minimal, dependency-free Registry: it discovers
// interviews from a directory layout of
// <root>/<file_id>/<file_id>.orig.srt, mirroring the original batch
// script's own output_dir/file_id/file_id.orig.srt convention. It is the
// Reprocessor's only concrete registry; a real deployment substitutes its
// own Registry backed by whatever interview database it already runs.
type FilesystemRegistry struct {
	Root string
}

func (f *FilesystemRegistry) EnumerateCompletedInterviews(ctx context.Context, limit int) ([]Interview, error) {
	_ = ctx
	entries, err := os.ReadDir(f.Root)
	if err != nil {
		return nil, err
	}

	var out []Interview
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		fileID := e.Name()
		srcPath := filepath.Join(f.Root, fileID, fileID+".orig.srt")
		if _, err := os.Stat(srcPath); err != nil {
			continue
		}
		out = append(out, Interview{
			FileID:        fileID,
			SourceSRTPath: srcPath,
			OutputDir:     filepath.Join(f.Root, fileID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileID < out[j].FileID })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// MarkLanguageStatus is a no-op: FilesystemRegistry has no cross-referenced
// store beyond the Reprocessor's own per-language heartbeat/status files.
func (f *FilesystemRegistry) MarkLanguageStatus(ctx context.Context, fileID string, lang srt.Language, status Status) error {
	_ = ctx
	_ = fileID
	_ = lang
	_ = status
	return nil
}
