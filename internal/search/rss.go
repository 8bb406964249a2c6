package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/rexa/newscrawler/internal/news"
)

// DefaultRSSTemplate is the Google News search feed; %s is the escaped query.
const DefaultRSSTemplate = "https://news.google.com/rss/search?q=%s&hl=ko&gl=KR&ceid=KR:ko"

// RSS searches through a news search feed.
type RSS struct {
	template string
	client   *http.Client
	parser   *gofeed.Parser
	logger   *slog.Logger
	now      func() time.Time
}

func NewRSS(template string, timeout time.Duration, logger *slog.Logger) *RSS {
	if template == "" {
		template = DefaultRSSTemplate
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RSS{
		template: template,
		client:   &http.Client{Timeout: timeout},
		parser:   gofeed.NewParser(),
		logger:   logger.With("component", "search", "provider", "rss"),
		now:      time.Now,
	}
}

func (r *RSS) Search(ctx context.Context, query string, count int) ([]news.Item, error) {
	feedURL := fmt.Sprintf(r.template, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status: %d", resp.StatusCode)
	}

	feed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	observed := r.now()
	items := make([]news.Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		if count > 0 && len(items) >= count {
			break
		}
		if strings.TrimSpace(it.Link) == "" {
			continue
		}
		pub := it.Published
		if it.PublishedParsed != nil {
			pub = it.PublishedParsed.Format(time.RFC1123Z)
		}
		items = append(items, news.Item{
			Title:       CleanText(it.Title),
			Description: TruncateDescription(CleanText(it.Description)),
			URL:         it.Link,
			PubDate:     pub,
			ObservedAt:  observed,
		})
	}

	r.logger.Info("search complete", "query", query, "results", len(feed.Items), "kept", len(items))
	return items, nil
}
