package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"
)

// BatchDownloader fetches several objects into a scratch directory in
// parallel.
type BatchDownloader struct {
	storage     ObjectStorage
	concurrency int
	scratchDir  string
}

// BatchResult maps each requested object to its local copy or its error.
type BatchResult struct {
	LocalPaths map[string]string
	Errors     map[string]error
}

// Err returns one of the download errors, or nil when every object arrived.
func (r *BatchResult) Err() error {
	for objectPath, err := range r.Errors {
		return fmt.Errorf("download %s: %w", objectPath, err)
	}
	return nil
}

// NewBatchDownloader creates a new batch downloader.
func NewBatchDownloader(storage ObjectStorage, concurrency int, scratchDir string) *BatchDownloader {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchDownloader{
		storage:     storage,
		concurrency: concurrency,
		scratchDir:  scratchDir,
	}
}

// Download fetches every object path. Objects with the same base name are
// kept apart by their position in the request.
func (b *BatchDownloader) Download(ctx context.Context, objectPaths []string) *BatchResult {
	result := &BatchResult{
		LocalPaths: make(map[string]string),
		Errors:     make(map[string]error),
	}

	sem := semaphore.NewWeighted(int64(b.concurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, p := range objectPaths {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			result.Errors[p] = fmt.Errorf("semaphore acquire failed: %w", err)
			mu.Unlock()
			continue
		}

		local := b.localPath(i, p)
		wg.Add(1)
		go func(objectPath, localPath string) {
			defer sem.Release(1)
			defer wg.Done()

			err := b.storage.Download(ctx, objectPath, localPath)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[objectPath] = err
				return
			}
			result.LocalPaths[objectPath] = localPath
		}(p, local)
	}

	wg.Wait()
	return result
}

// localPath keeps the object's base name so suffix-based decoding still works.
func (b *BatchDownloader) localPath(i int, objectPath string) string {
	return filepath.Join(b.scratchDir, fmt.Sprintf("%03d_%s", i, path.Base(objectPath)))
}
