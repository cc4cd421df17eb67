package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBatchDownloader_Download(t *testing.T) {
	storage := newTestStorage(t, map[string]string{
		"a/kills.txt":    "kills",
		"b/kills.txt":    "other kills",
		"a/cheaters.txt": "cheaters",
	})
	scratch := t.TempDir()
	downloader := NewBatchDownloader(storage, 2, scratch)

	result := downloader.Download(context.Background(), []string{"a/kills.txt", "b/kills.txt", "a/cheaters.txt"})
	if err := result.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.LocalPaths) != 3 {
		t.Fatalf("expected 3 local paths, got %d", len(result.LocalPaths))
	}

	// Same base name, different objects: both survive.
	a, _ := os.ReadFile(result.LocalPaths["a/kills.txt"])
	b, _ := os.ReadFile(result.LocalPaths["b/kills.txt"])
	if string(a) != "kills" || string(b) != "other kills" {
		t.Errorf("got %q and %q", a, b)
	}
	if filepath.Base(result.LocalPaths["a/cheaters.txt"]) != "002_cheaters.txt" {
		t.Errorf("unexpected local name %s", result.LocalPaths["a/cheaters.txt"])
	}
}

func TestBatchDownloader_PartialFailure(t *testing.T) {
	storage := newTestStorage(t, map[string]string{"kills.txt": "kills"})
	downloader := NewBatchDownloader(storage, 0, t.TempDir())

	result := downloader.Download(context.Background(), []string{"kills.txt", "missing.txt"})
	if _, ok := result.LocalPaths["kills.txt"]; !ok {
		t.Error("expected kills.txt to download")
	}
	if !errors.Is(result.Errors["missing.txt"], ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", result.Errors["missing.txt"])
	}
	if !errors.Is(result.Err(), ErrObjectNotFound) {
		t.Errorf("Err() should wrap the download error, got %v", result.Err())
	}
}
