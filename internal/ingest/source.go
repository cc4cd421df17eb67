package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/arkilian/contagion/internal/config"
	cerrors "github.com/arkilian/contagion/internal/errors"
	"github.com/arkilian/contagion/internal/storage"
	"github.com/arkilian/contagion/pkg/types"
)

// Dataset is the typed input of one analysis run.
type Dataset struct {
	Kills    []types.KillEvent
	Registry *types.Registry
}

// Source loads a Dataset.
type Source interface {
	Load(ctx context.Context) (*Dataset, error)
}

// FileSource reads the text inputs out of object storage. A KillsPath
// ending in "/" names a sharded kill log: every object under that prefix is
// read in listing order and the shards are concatenated.
type FileSource struct {
	Storage      storage.ObjectStorage
	KillsPath    string
	CheatersPath string
	ScratchDir   string
	Logger       *zap.Logger
}

// IsShardPrefix reports whether path names a prefix of kill log shards.
func IsShardPrefix(path string) bool {
	return strings.HasSuffix(path, "/")
}

// Load downloads the inputs in parallel into a private scratch directory
// and parses them.
func (s *FileSource) Load(ctx context.Context) (*Dataset, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	shards, err := s.killObjects(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkExists(ctx, s.CheatersPath); err != nil {
		return nil, err
	}

	scratch, err := os.MkdirTemp(s.ScratchDir, "inputs-")
	if err != nil {
		return nil, cerrors.NewStorageError(cerrors.CodeDownloadFailed, "failed to create scratch directory", err)
	}
	defer os.RemoveAll(scratch)

	downloader := storage.NewBatchDownloader(s.Storage, 2, scratch)
	res := downloader.Download(ctx, append(append([]string(nil), shards...), s.CheatersPath))
	if err := res.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, cerrors.NewStorageError(cerrors.CodeObjectNotFound, "input not found", err)
		}
		return nil, cerrors.NewStorageError(cerrors.CodeDownloadFailed, "failed to fetch inputs", err)
	}

	var kills []types.KillEvent
	for _, shard := range shards {
		events, err := readLocal(res.LocalPaths[shard], ReadKills)
		if err != nil {
			return nil, err
		}
		kills = append(kills, events...)
	}
	records, err := readLocal(res.LocalPaths[s.CheatersPath], ReadCheaters)
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(records)
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded inputs",
		zap.String("kills_path", s.KillsPath),
		zap.Int("kill_shards", len(shards)),
		zap.String("cheaters_path", s.CheatersPath),
		zap.Int("kills", len(kills)),
		zap.Int("cheaters", reg.Len()),
	)
	return &Dataset{Kills: kills, Registry: reg}, nil
}

// killObjects resolves KillsPath to the objects holding the kill log.
func (s *FileSource) killObjects(ctx context.Context) ([]string, error) {
	if !IsShardPrefix(s.KillsPath) {
		if err := s.checkExists(ctx, s.KillsPath); err != nil {
			return nil, err
		}
		return []string{s.KillsPath}, nil
	}

	listed, err := s.Storage.ListObjects(ctx, s.KillsPath)
	if err != nil {
		return nil, cerrors.NewStorageError(cerrors.CodeDownloadFailed, "failed to list kill log shards", err).
			WithDetails(map[string]interface{}{cerrors.DetailObject: s.KillsPath})
	}
	shards := make([]string, 0, len(listed))
	for _, obj := range listed {
		if !strings.HasSuffix(obj, "/") {
			shards = append(shards, obj)
		}
	}
	if len(shards) == 0 {
		return nil, cerrors.NewStorageError(cerrors.CodeObjectNotFound, "no kill log shards under prefix", nil).
			WithDetails(map[string]interface{}{cerrors.DetailObject: s.KillsPath})
	}
	return shards, nil
}

func (s *FileSource) checkExists(ctx context.Context, objectPath string) error {
	ok, err := s.Storage.Exists(ctx, objectPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return cerrors.NewStorageError(cerrors.CodeDownloadFailed, "failed to stat input", err).
			WithDetails(map[string]interface{}{cerrors.DetailObject: objectPath})
	}
	if !ok {
		return cerrors.NewStorageError(cerrors.CodeObjectNotFound, "input not found", nil).
			WithDetails(map[string]interface{}{cerrors.DetailObject: objectPath})
	}
	return nil
}

func readLocal[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := OpenFile(path)
	if err != nil {
		return nil, cerrors.NewIngestError(cerrors.CodeUnsupportedInput, fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	out, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// SQLiteSource reads both inputs from one SQLite database.
type SQLiteSource struct {
	Path   string
	Logger *zap.Logger
}

// Load reads the kills and cheaters tables.
func (s *SQLiteSource) Load(ctx context.Context) (*Dataset, error) {
	kills, records, err := LoadSQLite(ctx, s.Path)
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(records)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("Loaded sqlite input",
			zap.String("path", s.Path),
			zap.Int("kills", len(kills)),
			zap.Int("cheaters", reg.Len()),
		)
	}
	return &Dataset{Kills: kills, Registry: reg}, nil
}

// SampledSource truncates another source's kill log with Sample.
type SampledSource struct {
	Source Source
	N      int
}

// Load loads the underlying dataset and samples its kills.
func (s *SampledSource) Load(ctx context.Context) (*Dataset, error) {
	ds, err := s.Source.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &Dataset{Kills: Sample(ds.Kills, s.N), Registry: ds.Registry}, nil
}

// NewStorage builds the object storage named by cfg.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStorage, error) {
	switch cfg.Type {
	case "s3":
		s3cfg := storage.DefaultS3Config()
		if cfg.S3.Region != "" {
			s3cfg.Region = cfg.S3.Region
		}
		s3cfg.Endpoint = cfg.S3.Endpoint
		s3cfg.UsePathStyle = cfg.S3.Endpoint != ""
		return storage.NewS3Storage(ctx, cfg.S3.Bucket, s3cfg)
	case "local", "":
		return storage.NewLocalStorage(cfg.Path)
	default:
		return nil, cerrors.NewValidationError(cerrors.CodeInvalidConfig, fmt.Sprintf("unknown storage type %q", cfg.Type))
	}
}

// NewSource picks the source described by cfg: SQLite when a database is
// configured, otherwise the two text files from storage.
func NewSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Source, error) {
	var src Source
	switch {
	case cfg.Input.SQLitePath != "":
		src = &SQLiteSource{Path: cfg.Input.SQLitePath, Logger: logger}
	case cfg.HasFileInputs():
		store, err := NewStorage(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		src = &FileSource{
			Storage:      store,
			KillsPath:    cfg.Input.KillsPath,
			CheatersPath: cfg.Input.CheatersPath,
			ScratchDir:   cfg.Storage.ScratchDir,
			Logger:       logger,
		}
	default:
		return nil, cerrors.NewValidationError(cerrors.CodeInvalidConfig,
			"either a sqlite input or both kills and cheaters paths are required")
	}

	if cfg.Input.SampleSize > 0 {
		src = &SampledSource{Source: src, N: cfg.Input.SampleSize}
	}
	return src, nil
}
