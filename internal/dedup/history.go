package dedup

import (
	"context"
	"log/slog"
	"time"

	"github.com/rexa/newscrawler/internal/news"
)

const (
	DefaultURLWindow   = 3 * time.Hour
	DefaultTitleWindow = 24 * time.Hour
)

// Lookback reads recently persisted keys. Titles come back normalized with
// news.NormalizeTitle.
type Lookback interface {
	RecentURLs(ctx context.Context, window time.Duration) (map[string]struct{}, error)
	RecentTitles(ctx context.Context, window time.Duration) (map[string]struct{}, error)
}

// Snapshot is the history view frozen for one batch.
type Snapshot struct {
	URLs   map[string]struct{}
	Titles map[string]struct{}
}

// TakeSnapshot reads both windows once. A failing lookback yields an empty
// window for that side and is logged.
func TakeSnapshot(ctx context.Context, lb Lookback, urlWindow, titleWindow time.Duration, logger *slog.Logger) Snapshot {
	if logger == nil {
		logger = slog.Default()
	}
	snap := Snapshot{URLs: map[string]struct{}{}, Titles: map[string]struct{}{}}
	if lb == nil {
		return snap
	}

	if urls, err := lb.RecentURLs(ctx, urlWindow); err != nil {
		logger.Warn("history lookback failed, treating URL window as empty", "error", err)
	} else if urls != nil {
		snap.URLs = urls
	}

	if titles, err := lb.RecentTitles(ctx, titleWindow); err != nil {
		logger.Warn("history lookback failed, treating title window as empty", "error", err)
	} else if titles != nil {
		snap.Titles = titles
	}

	logger.Debug("history snapshot", "urls", len(snap.URLs), "titles", len(snap.Titles),
		"url_window", urlWindow, "title_window", titleWindow)
	return snap
}

// Dropped is an item suppressed by history.
type Dropped struct {
	Item   news.Item
	Reason news.Reason
}

// History drops items already persisted in a recent run.
type History struct {
	logger *slog.Logger
}

func NewHistory(logger *slog.Logger) *History {
	if logger == nil {
		logger = slog.Default()
	}
	return &History{logger: logger.With("component", "history")}
}

// Suppress checks the URL first, then the normalized title.
func (h *History) Suppress(items []news.Item, snap Snapshot) ([]news.Item, []Dropped) {
	var (
		kept    []news.Item
		dropped []Dropped
	)

	for _, it := range items {
		if _, ok := snap.URLs[it.URL]; ok && it.URL != "" {
			dropped = append(dropped, Dropped{Item: it, Reason: news.ReasonDuplicateURL})
			h.logger.Debug("duplicate url", "url", it.URL)
			continue
		}
		if _, ok := snap.Titles[news.NormalizeTitle(it.Title)]; ok {
			dropped = append(dropped, Dropped{Item: it, Reason: news.ReasonDuplicateTitle})
			h.logger.Debug("duplicate title", "title", news.Preview(it.Title, 40))
			continue
		}
		kept = append(kept, it)
	}

	return kept, dropped
}
