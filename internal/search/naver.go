package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rexa/newscrawler/internal/news"
)

const (
	DefaultNaverEndpoint = "https://openapi.naver.com/v1/search/news.json"
	naverNewsHost        = "news.naver.com"
)

// Naver queries the Naver news search API, newest first.
type Naver struct {
	endpoint     string
	clientID     string
	clientSecret string
	client       *http.Client
	logger       *slog.Logger
	now          func() time.Time
}

type naverResponse struct {
	Items []struct {
		Title        string `json:"title"`
		OriginalLink string `json:"originallink"`
		Link         string `json:"link"`
		Description  string `json:"description"`
		PubDate      string `json:"pubDate"`
	} `json:"items"`
}

func NewNaver(endpoint, clientID, clientSecret string, timeout time.Duration, logger *slog.Logger) *Naver {
	if endpoint == "" {
		endpoint = DefaultNaverEndpoint
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Naver{
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: timeout},
		logger:       logger.With("component", "search", "provider", "naver"),
		now:          time.Now,
	}
}

func (n *Naver) Search(ctx context.Context, query string, count int) ([]news.Item, error) {
	if n.clientID == "" || n.clientSecret == "" {
		return nil, errors.New("naver credentials are not configured")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("display", strconv.Itoa(count))
	params.Set("sort", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", n.clientID)
	req.Header.Set("X-Naver-Client-Secret", n.clientSecret)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("naver search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("naver search returned status: %d", resp.StatusCode)
	}

	var body naverResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode naver response: %w", err)
	}

	raw := body.Items
	preferred := raw[:0:0]
	for _, it := range raw {
		if strings.Contains(it.Link, naverNewsHost) {
			preferred = append(preferred, it)
		}
	}
	if len(preferred) == 0 {
		if len(raw) > 0 {
			n.logger.Warn("no news.naver.com links in results, using all links", "results", len(raw))
		}
		preferred = raw
	}

	observed := n.now()
	items := make([]news.Item, 0, len(preferred))
	for _, it := range preferred {
		items = append(items, news.Item{
			Title:       CleanText(it.Title),
			Description: TruncateDescription(CleanText(it.Description)),
			URL:         it.Link,
			PubDate:     it.PubDate,
			ObservedAt:  observed,
		})
	}

	n.logger.Info("search complete", "query", query, "results", len(raw), "kept", len(items))
	return items, nil
}
