package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/rexa/newscrawler/internal/retry"
)

const (
	DefaultAttempts = 2
	DefaultBackoff  = 2 * time.Second
	DefaultTimeout  = 15 * time.Second

	minParagraphRunes = 50
	naverNewsHost     = "news.naver.com"
)

var naverSelectors = []string{"#dic_area", "#articeBody", ".news_end"}

// Status is the terminal state of a fetch.
type Status int

const (
	StatusOK Status = iota
	StatusTimeout
	StatusRateLimited
	StatusHTTPError
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTimeout:
		return "timeout"
	case StatusRateLimited:
		return "rate_limited"
	case StatusHTTPError:
		return "http_error"
	default:
		return "failed"
	}
}

// Result is the outcome of Fetch. It is never an error: callers that only
// need text use Text, which falls back to a readable sentinel.
type Result struct {
	URL      string
	Content  string
	Status   Status
	HTTPCode int
	Attempts int
}

func (r Result) OK() bool { return r.Status == StatusOK }

// Text returns the extracted content or a sentinel describing the failure.
func (r Result) Text() string {
	switch r.Status {
	case StatusOK:
		return r.Content
	case StatusTimeout:
		return "content unavailable (timeout)"
	case StatusRateLimited:
		return "content unavailable (rate limited)"
	case StatusHTTPError:
		return fmt.Sprintf("content unavailable (HTTP %d)", r.HTTPCode)
	default:
		return "content unavailable"
	}
}

type fetchError struct {
	status Status
	code   int
	err    error
}

func (e *fetchError) Error() string {
	if e.code != 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.status, e.code)
	}
	return fmt.Sprintf("%s: %v", e.status, e.err)
}

func (e *fetchError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var fe *fetchError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.status == StatusTimeout || fe.status == StatusRateLimited
}

// Options configures a Fetcher. Zero values take the defaults.
type Options struct {
	Attempts int
	Backoff  time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Fetcher downloads an article page and extracts its body text, retrying
// timeouts and HTTP 429 with a fixed backoff.
type Fetcher struct {
	client   *http.Client
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

func NewFetcher(opts Options) *Fetcher {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Fetcher{
		client:   &http.Client{Timeout: opts.Timeout},
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
		logger:   opts.Logger.With("component", "fetcher"),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, pageURL string) Result {
	res := Result{URL: pageURL}

	err := retry.WithRetry(ctx, retry.RetryConfig{
		MaxAttempts: f.attempts,
		Delay:       f.backoff,
		Retryable:   retryable,
	}, func() error {
		res.Attempts++
		content, err := f.fetchOnce(ctx, pageURL)
		if err != nil {
			if retryable(err) && res.Attempts < f.attempts {
				f.logger.Warn("fetch failed, retrying", "url", pageURL, "attempt", res.Attempts, "error", err)
			}
			return err
		}
		res.Content = content
		return nil
	})

	if err == nil {
		res.Status = StatusOK
		f.logger.Info("article fetched", "url", pageURL, "runes", utf8.RuneCountInString(res.Content))
		return res
	}

	var fe *fetchError
	if errors.As(err, &fe) {
		res.Status = fe.status
		res.HTTPCode = fe.code
	} else {
		res.Status = StatusFailed
	}
	f.logger.Error("fetch failed", "url", pageURL, "status", res.Status.String(), "attempts", res.Attempts, "error", err)
	return res
}

func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &fetchError{status: StatusFailed, err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.8")
	req.Header.Set("Referer", "https://news.naver.com/")

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", &fetchError{status: StatusTimeout, err: err}
		}
		return "", &fetchError{status: StatusFailed, err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &fetchError{status: StatusRateLimited, code: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &fetchError{status: StatusHTTPError, code: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return "", &fetchError{status: StatusTimeout, err: err}
		}
		return "", &fetchError{status: StatusFailed, err: fmt.Errorf("error parsing HTML: %w", err)}
	}

	content := extractContent(doc, pageURL)
	if content == "" {
		return "", &fetchError{status: StatusFailed, err: errors.New("can't get content")}
	}
	return content, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// extractContent picks the article body: the Naver containers first, then
// long paragraphs, then readability.
func extractContent(doc *goquery.Document, pageURL string) string {
	if strings.Contains(pageURL, naverNewsHost) {
		for _, sel := range naverSelectors {
			article := doc.Find(sel).First()
			if article.Length() == 0 {
				continue
			}
			article.Find("script, style, aside").Remove()
			if text := blockText(article); text != "" {
				return text
			}
		}
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(text) > minParagraphRunes {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, "\n")
	}

	return readabilityText(doc, pageURL)
}

// blockText renders a container one non-empty line per text block.
func blockText(s *goquery.Selection) string {
	s.Find("br").ReplaceWithHtml("\n")
	s.Find("p, div, li").Each(func(_ int, el *goquery.Selection) {
		el.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(s.Text(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func readabilityText(doc *goquery.Document, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	html, err := doc.Html()
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err != nil {
		return ""
	}

	body, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return ""
	}
	body.Find("figure, aside, script, style").Remove()
	return strings.Join(strings.Fields(body.Text()), " ")
}
