package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS news_records (
		id TEXT PRIMARY KEY,
		observed_at TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL,
		is_relevant INTEGER NOT NULL,
		relevance_score INTEGER NOT NULL,
		keywords TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		has_price INTEGER NOT NULL DEFAULT 0,
		has_policy INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		strategy TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS idx_news_records_observed_at ON news_records(observed_at);`,
	`CREATE INDEX IF NOT EXISTS idx_news_records_url ON news_records(url);`,
}

// OpenSQLite opens (creating if needed) a WAL-mode database file.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	s := newSQLStore(db, sq.Question, logger.With("component", "storage", "backend", "sqlite"))
	if err := s.migrate(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
