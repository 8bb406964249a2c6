package pipeline

import (
	"context"
	"time"

	"github.com/rexa/newscrawler/internal/news"
	"github.com/rexa/newscrawler/internal/scraper"
)

// Searcher returns cleaned candidate items for a query.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]news.Item, error)
}

// Sink persists accepted items. It does not deduplicate.
type Sink interface {
	Append(ctx context.Context, item news.Item) error
}

// HistoryLookback reads recently persisted URLs and normalized titles.
type HistoryLookback interface {
	RecentURLs(ctx context.Context, window time.Duration) (map[string]struct{}, error)
	RecentTitles(ctx context.Context, window time.Duration) (map[string]struct{}, error)
}

// ContentFetcher downloads full article text. Failures come back as a
// non-OK Result, never as an error.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) scraper.Result
}
