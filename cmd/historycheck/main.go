// Command historycheck opens the configured store and reports what the
// history deduplicator would currently see.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rexa/newscrawler/internal/app"
	"github.com/rexa/newscrawler/internal/config"
	"github.com/rexa/newscrawler/internal/logger"
	"github.com/rexa/newscrawler/internal/storage"
)

func main() {
	var (
		recent  int
		cleanup time.Duration
	)
	flag.IntVar(&recent, "recent", 5, "list the newest records (SQL backends only)")
	flag.DurationVar(&cleanup, "cleanup", 0, "delete records older than this age (SQL backends only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("Opening %s store (%s)...\n", cfg.StorageBackend, describe(cfg))
	store, err := app.OpenStore(ctx, cfg, cfg.StorageBackend, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	urls, err := store.RecentURLs(ctx, cfg.URLWindow())
	if err != nil {
		fmt.Fprintf(os.Stderr, "url lookback: %v\n", err)
	} else {
		fmt.Printf("URLs in the last %v: %d\n", cfg.URLWindow(), len(urls))
	}

	titles, err := store.RecentTitles(ctx, cfg.TitleWindow())
	if err != nil {
		fmt.Fprintf(os.Stderr, "title lookback: %v\n", err)
	} else {
		fmt.Printf("Titles in the last %v: %d\n", cfg.TitleWindow(), len(titles))
	}

	sqlStore, ok := store.(*storage.SQLStore)
	if !ok {
		return
	}

	if recent > 0 {
		records, err := sqlStore.Recent(ctx, recent)
		if err != nil {
			fmt.Fprintf(os.Stderr, "recent records: %v\n", err)
		} else {
			fmt.Printf("\nNewest %d records:\n", len(records))
			for i, r := range records {
				fmt.Printf("  %d. [%d] %s\n     %s | %s\n", i+1, r.Score, r.Title,
					storage.FormatTimestamp(r.Timestamp), r.Reason)
			}
		}
	}

	if cleanup > 0 {
		n, err := sqlStore.Cleanup(ctx, cleanup)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cleanup: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nRemoved %d records older than %v\n", n, cleanup)
	}
}

// describe names the store location without leaking credentials.
func describe(cfg *config.Config) string {
	switch cfg.StorageBackend {
	case "postgres":
		return maskPassword(cfg.DatabaseURL)
	case "mongo":
		return maskPassword(cfg.MongoURI)
	case "sqlite":
		return cfg.SQLitePath
	case "csv":
		return cfg.CSVPath
	case "file":
		return cfg.FilePath
	case "sheets":
		return cfg.SheetsID
	default:
		return ""
	}
}

func maskPassword(dsn string) string {
	if len(dsn) > 50 {
		return dsn[:30] + "***" + dsn[len(dsn)-20:]
	}
	return dsn
}
