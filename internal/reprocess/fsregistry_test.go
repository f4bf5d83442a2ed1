package reprocess

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrianmusante/subtitle-tools/internal/srt"
)

func writeInterviewDir(t *testing.T, root, fileID string) {
	t.Helper()
	dir := filepath.Join(root, fileID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	body := "1\n00:00:01,000 --> 00:00:02,000\nHello\n"
	if err := os.WriteFile(filepath.Join(dir, fileID+".orig.srt"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestFilesystemRegistry_EnumerateCompletedInterviews_SortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	writeInterviewDir(t, root, "b-interview")
	writeInterviewDir(t, root, "a-interview")

	if err := os.MkdirAll(filepath.Join(root, "no-orig-file"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	reg := &FilesystemRegistry{Root: root}
	out, err := reg.EnumerateCompletedInterviews(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 interviews, got %d: %+v", len(out), out)
	}
	if out[0].FileID != "a-interview" || out[1].FileID != "b-interview" {
		t.Fatalf("expected sorted order, got %q then %q", out[0].FileID, out[1].FileID)
	}
	if out[0].SourceSRTPath != filepath.Join(root, "a-interview", "a-interview.orig.srt") {
		t.Fatalf("unexpected source path: %q", out[0].SourceSRTPath)
	}
}

func TestFilesystemRegistry_EnumerateCompletedInterviews_Limit(t *testing.T) {
	root := t.TempDir()
	writeInterviewDir(t, root, "a-interview")
	writeInterviewDir(t, root, "b-interview")
	writeInterviewDir(t, root, "c-interview")

	reg := &FilesystemRegistry{Root: root}
	out, err := reg.EnumerateCompletedInterviews(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(out))
	}
}

func TestFilesystemRegistry_MarkLanguageStatus_NoopSucceeds(t *testing.T) {
	reg := &FilesystemRegistry{Root: t.TempDir()}
	if err := reg.MarkLanguageStatus(context.Background(), "file-1", srt.LanguageGerman, StatusSuccess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
