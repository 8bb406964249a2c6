package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS news_records (
		id UUID PRIMARY KEY,
		observed_at TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL,
		is_relevant BOOLEAN NOT NULL,
		relevance_score INTEGER NOT NULL,
		keywords TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		has_price BOOLEAN NOT NULL DEFAULT FALSE,
		has_policy BOOLEAN NOT NULL DEFAULT FALSE,
		reason TEXT NOT NULL DEFAULT '',
		strategy VARCHAR(20) NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_news_records_observed_at ON news_records(observed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_news_records_url ON news_records(url)`,
}

// NewPostgres connects, pings and initializes the schema.
func NewPostgres(ctx context.Context, connectionString string, logger *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	s := newSQLStore(db, sq.Dollar, logger.With("component", "storage", "backend", "postgres"))
	if err := s.migrate(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info("PostgreSQL store connected")
	return s, nil
}
