// Package backend opens the configured store implementation.
package backend

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/inkwell/tagstore/internal/config"
	"github.com/inkwell/tagstore/internal/store"
	"github.com/inkwell/tagstore/internal/store/badgerstore"
	"github.com/inkwell/tagstore/internal/store/sqlite"
)

// Open creates the data directory if needed and opens the backend named in
// cfg inside it. It returns the store and the path it was opened at.
func Open(cfg config.StorageConfig, logger *slog.Logger, emitter store.EventEmitter) (store.Store, string, error) {
	if cfg.Path == "" {
		return nil, "", fmt.Errorf("data path is required")
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, "", fmt.Errorf("create data dir: %w", err)
	}

	switch cfg.Backend {
	case config.BackendSQLite:
		path := filepath.Join(cfg.Path, "tagstore.db")
		st, err := sqlite.Open(path, logger, emitter)
		if err != nil {
			return nil, "", err
		}
		return st, path, nil
	case config.BackendBadger, "":
		path := filepath.Join(cfg.Path, "db")
		st, err := badgerstore.New(path, logger, emitter)
		if err != nil {
			return nil, "", err
		}
		return st, path, nil
	default:
		return nil, "", fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
