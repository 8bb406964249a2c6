package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rexa/newscrawler/internal/config"
	"github.com/rexa/newscrawler/internal/storage"
)

// OpenStore opens one storage backend by name.
func OpenStore(ctx context.Context, cfg *config.Config, backend string, logger *slog.Logger) (storage.Store, error) {
	switch backend {
	case "file":
		fs := storage.NewFileStore(cfg.FilePath, time.Duration(cfg.FileRetentionHours)*time.Hour, logger)
		if err := fs.Load(); err != nil {
			return nil, err
		}
		return fs, nil
	case "csv":
		s, err := storage.NewCSVStore(cfg.CSVPath, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := storage.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := storage.NewPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mongo":
		s, err := storage.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sheets":
		s, err := storage.NewSheets(ctx, cfg.SheetsID, cfg.SheetsName, cfg.GoogleCredentials, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// OpenStores opens the primary backend and any mirrors. A mirror that fails
// to open is logged and left out; the primary is required.
func OpenStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	primary, err := OpenStore(ctx, cfg, cfg.StorageBackend, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StorageBackend, err)
	}
	if len(cfg.StorageMirrors) == 0 {
		return primary, nil
	}

	var mirrors []storage.Store
	for _, name := range cfg.StorageMirrors {
		m, err := OpenStore(ctx, cfg, name, logger)
		if err != nil {
			logger.Warn("storage mirror unavailable", "backend", name, "error", err)
			continue
		}
		mirrors = append(mirrors, m)
	}
	return storage.NewMulti(primary, mirrors, logger), nil
}
