package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/rexa/newscrawler/internal/news"
)

const recordsTable = "news_records"

// SQLStore persists records in a relational table. Postgres and SQLite share
// it and differ only in placeholder format and schema DDL.
type SQLStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	logger  *slog.Logger
	now     func() time.Time
}

func newSQLStore(db *sql.DB, placeholder sq.PlaceholderFormat, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		logger:  logger,
		now:     time.Now,
	}
}

func (s *SQLStore) migrate(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Append(ctx context.Context, item news.Item) error {
	r := NewRecord(item, s.now())

	query, args, err := s.builder.
		Insert(recordsTable).
		Columns("id", "observed_at", "title", "description", "url",
			"is_relevant", "relevance_score", "keywords", "region",
			"has_price", "has_policy", "reason", "strategy", "user_id", "content").
		Values(r.ID, FormatTimestamp(r.Timestamp), r.Title, r.Description, r.URL,
			r.IsRelevant, r.Score, strings.Join(r.Keywords, ", "), r.Region,
			r.HasPrice, r.HasPolicy, r.Reason, r.Strategy, r.UserID, r.Content).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *SQLStore) RecentURLs(ctx context.Context, window time.Duration) (map[string]struct{}, error) {
	return s.recent(ctx, "url", window, func(v string) string { return v })
}

func (s *SQLStore) RecentTitles(ctx context.Context, window time.Duration) (map[string]struct{}, error) {
	return s.recent(ctx, "title", window, news.NormalizeTitle)
}

// recent relies on observed_at being fixed-width UTC text, so a string
// comparison is a time comparison.
func (s *SQLStore) recent(ctx context.Context, column string, window time.Duration, key func(string) string) (map[string]struct{}, error) {
	cutoff := FormatTimestamp(s.now().Add(-window))

	query, args, err := s.builder.
		Select(column).
		Distinct().
		From(recordsTable).
		Where(sq.GtOrEq{"observed_at": cutoff}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lookback: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent %s: %w", column, err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", column, err)
		}
		if v != "" {
			out[key(v)] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// Recent returns the newest records, newest first.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	query, args, err := s.builder.
		Select("id", "observed_at", "title", "url", "relevance_score", "reason", "user_id").
		From(recordsTable).
		OrderBy("observed_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r  Record
			ts string
		)
		if err := rows.Scan(&r.ID, &ts, &r.Title, &r.URL, &r.Score, &r.Reason, &r.UserID); err != nil {
			s.logger.Warn("error scanning row", "error", err)
			continue
		}
		if t, err := ParseTimestamp(ts); err == nil {
			r.Timestamp = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Cleanup deletes records older than maxAge.
func (s *SQLStore) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := FormatTimestamp(s.now().Add(-maxAge))

	query, args, err := s.builder.Delete(recordsTable).Where(sq.Lt{"observed_at": cutoff}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cleanup: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info("cleaned up old records", "rows", n)
	}
	return n, nil
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
