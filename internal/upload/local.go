// Package upload persists user-submitted files. Two backends exist: a
// local-disk one for development and an S3-compatible one for everything
// else, chosen by configuration.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Storage persists a named blob. Names are generated by the caller and are
// filesystem- and key-safe by construction.
type Storage interface {
	Store(ctx context.Context, name string, r io.Reader) error
}

var _ Storage = (*LocalStorage)(nil)

type LocalStorage struct {
	logger *slog.Logger
	dir    string
}

func NewLocalStorage(dir string, logger *slog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &LocalStorage{logger: logger, dir: dir}, nil
}

func (s *LocalStorage) Store(ctx context.Context, name string, r io.Reader) error {
	path := filepath.Join(s.dir, filepath.Base(name))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create upload file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write upload file %s: %w", path, err)
	}
	s.logger.InfoContext(ctx, "Stored upload", slog.String("path", path))
	return nil
}
