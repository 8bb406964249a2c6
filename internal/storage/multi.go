package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rexa/newscrawler/internal/news"
)

// Multi writes to a primary store and best-effort mirrors. Lookbacks are
// answered by the primary only; a mirror failure is logged, never returned.
type Multi struct {
	primary Store
	mirrors []Store
	logger  *slog.Logger
}

func NewMulti(primary Store, mirrors []Store, logger *slog.Logger) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{primary: primary, mirrors: mirrors, logger: logger.With("component", "storage")}
}

func (m *Multi) Append(ctx context.Context, item news.Item) error {
	err := m.primary.Append(ctx, item)
	for i, mirror := range m.mirrors {
		if merr := mirror.Append(ctx, item); merr != nil {
			m.logger.Warn("mirror write failed", "mirror", i, "url", item.URL, "error", merr)
		}
	}
	return err
}

func (m *Multi) RecentURLs(ctx context.Context, window time.Duration) (map[string]struct{}, error) {
	return m.primary.RecentURLs(ctx, window)
}

func (m *Multi) RecentTitles(ctx context.Context, window time.Duration) (map[string]struct{}, error) {
	return m.primary.RecentTitles(ctx, window)
}

func (m *Multi) Close() error {
	errs := []error{m.primary.Close()}
	for _, mirror := range m.mirrors {
		errs = append(errs, mirror.Close())
	}
	return errors.Join(errs...)
}
