package upload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/go-recruiter-hub/config"
)

// New selects the storage backend from configuration.
func New(ctx context.Context, cfg config.UploadConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStorage(cfg.LocalDir, logger)
	case "s3":
		return NewS3Storage(ctx, cfg, logger)
	}
	return nil, fmt.Errorf("unknown upload backend %q", cfg.Backend)
}
