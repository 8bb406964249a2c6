// Package pipeline runs one crawl batch: search, gate, similarity dedup,
// history suppression, optional content enrichment and paced persistence.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rexa/newscrawler/internal/classify"
	"github.com/rexa/newscrawler/internal/dedup"
	"github.com/rexa/newscrawler/internal/metrics"
	"github.com/rexa/newscrawler/internal/news"
	"github.com/rexa/newscrawler/internal/ratelimit"
)

const (
	DefaultPersistInterval = 500 * time.Millisecond
	previewCount           = 3
)

// Deps wires the collaborators of a Pipeline. Fetcher, History and Metrics
// are optional.
type Deps struct {
	Searcher   Searcher
	Classifier classify.Classifier
	Sink       Sink
	History    HistoryLookback
	Fetcher    ContentFetcher
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Options tunes a Pipeline. Zero values fall back to the defaults.
type Options struct {
	SimilarityThreshold float64
	URLWindow           time.Duration
	TitleWindow         time.Duration
	PersistInterval     time.Duration
	EnrichLimit         int // max items fetched per batch when a Fetcher is set
}

// Stats counts what happened to the items of one batch.
type Stats struct {
	Fetched    int
	Rejected   map[news.Reason]int
	Deduped    int
	Suppressed int
	Persisted  int
	Skipped    int
	Enriched   int
	FetchFails int
}

// Result is the outcome of RunBatch. Accepted holds the items that survived
// every stage, highest score first.
type Result struct {
	Accepted []news.Item
	Stats    Stats
	Elapsed  time.Duration
}

type Pipeline struct {
	searcher Searcher
	sink     Sink
	history  HistoryLookback
	fetcher  ContentFetcher
	metrics  *metrics.Metrics
	logger   *slog.Logger

	gate        *Gate
	similarity  *dedup.Similarity
	suppressor  *dedup.History
	pacer       *ratelimit.Pacer
	urlWindow   time.Duration
	titleWindow time.Duration
	enrichLimit int

	now func() time.Time
}

func New(deps Deps, opts Options) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.URLWindow <= 0 {
		opts.URLWindow = dedup.DefaultURLWindow
	}
	if opts.TitleWindow <= 0 {
		opts.TitleWindow = dedup.DefaultTitleWindow
	}
	if opts.PersistInterval == 0 {
		opts.PersistInterval = DefaultPersistInterval
	}

	return &Pipeline{
		searcher:    deps.Searcher,
		sink:        deps.Sink,
		history:     deps.History,
		fetcher:     deps.Fetcher,
		metrics:     deps.Metrics,
		logger:      logger.With("component", "pipeline"),
		gate:        NewGate(deps.Classifier, logger),
		similarity:  dedup.NewSimilarity(opts.SimilarityThreshold, logger),
		suppressor:  dedup.NewHistory(logger),
		pacer:       ratelimit.NewPacer(opts.PersistInterval),
		urlWindow:   opts.URLWindow,
		titleWindow: opts.TitleWindow,
		enrichLimit: opts.EnrichLimit,
		now:         time.Now,
	}
}

// RunBatch processes one search result page. The only error is a failed
// search; every per-item fault is absorbed and counted.
func (p *Pipeline) RunBatch(ctx context.Context, query string, count int, userID string) (Result, error) {
	start := p.now()
	res := Result{Stats: Stats{Rejected: make(map[news.Reason]int)}}

	items, err := p.searcher.Search(ctx, query, count)
	if err != nil {
		if p.metrics != nil {
			p.metrics.SetError(err.Error())
		}
		return res, fmt.Errorf("search %q: %w", query, err)
	}
	res.Stats.Fetched = len(items)
	p.logger.Info("search finished", "query", query, "fetched", len(items))

	observed := start.UTC()
	for i := range items {
		items[i].ObservedAt = observed
		items[i].UserID = userID
	}

	snap := dedup.TakeSnapshot(ctx, p.history, p.urlWindow, p.titleWindow, p.logger)

	gated := p.gate.Filter(ctx, items)
	res.Stats.Skipped = gated.Skipped
	for r, n := range gated.Rejected {
		res.Stats.Rejected[r] += n
	}

	kept, collapsed := p.similarity.DedupeWithDropped(dedup.Rank(gated.Accepted))
	res.Stats.Deduped = len(collapsed)

	fresh, dropped := p.suppressor.Suppress(kept, snap)
	res.Stats.Suppressed = len(dropped)
	for _, d := range dropped {
		res.Stats.Rejected[d.Reason]++
	}

	res.Stats.Enriched, res.Stats.FetchFails = p.enrich(ctx, fresh)
	res.Stats.Persisted = p.persist(ctx, fresh)
	res.Accepted = fresh
	res.Elapsed = p.now().Sub(start)

	p.record(res)
	p.summarize(res)
	return res, nil
}

// enrich attaches full article text to the first enrichLimit items. A failed
// fetch leaves the fetcher's placeholder text as content.
func (p *Pipeline) enrich(ctx context.Context, items []news.Item) (enriched, failed int) {
	if p.fetcher == nil || p.enrichLimit <= 0 {
		return 0, 0
	}

	for i := range items {
		if i >= p.enrichLimit {
			break
		}
		r := p.fetcher.Fetch(ctx, items[i].URL)
		items[i].Content = r.Text()
		if r.OK() {
			enriched++
		} else {
			failed++
			p.logger.Warn("content fetch failed", "url", items[i].URL, "status", r.Status.String(), "attempts", r.Attempts)
		}
	}
	return enriched, failed
}

// persist writes items one by one, paced so the sink sees at most one write
// per interval. A failed write is logged and the rest still go out.
func (p *Pipeline) persist(ctx context.Context, items []news.Item) int {
	if p.sink == nil {
		return 0
	}

	persisted := 0
	for _, it := range items {
		if err := p.pacer.Wait(ctx); err != nil {
			p.logger.Warn("persistence interrupted", "error", err, "remaining", len(items)-persisted)
			break
		}
		if err := p.sink.Append(ctx, it); err != nil {
			p.logger.Error("failed to persist item", "url", it.URL, "error", err)
			continue
		}
		persisted++
	}
	return persisted
}

func (p *Pipeline) record(res Result) {
	if p.metrics == nil {
		return
	}
	rejected := make(map[string]int, len(res.Stats.Rejected))
	for r, n := range res.Stats.Rejected {
		rejected[r.String()] = n
	}
	p.metrics.RecordBatch(metrics.Batch{
		Fetched:    res.Stats.Fetched,
		Accepted:   len(res.Accepted),
		Rejected:   rejected,
		Deduped:    res.Stats.Deduped,
		Suppressed: res.Stats.Suppressed,
		Persisted:  res.Stats.Persisted,
		Skipped:    res.Stats.Skipped,
		Enriched:   res.Stats.Enriched,
		FetchFails: res.Stats.FetchFails,
	})
	p.metrics.RecordProcessingTime(res.Elapsed)
	p.metrics.SetLastRun()
}

func (p *Pipeline) summarize(res Result) {
	rate := 0.0
	if res.Stats.Fetched > 0 {
		rate = float64(len(res.Accepted)) / float64(res.Stats.Fetched) * 100
	}
	p.logger.Info("batch complete",
		"elapsed", res.Elapsed.Round(time.Millisecond),
		"fetched", res.Stats.Fetched,
		"accepted", len(res.Accepted),
		"deduped", res.Stats.Deduped,
		"suppressed", res.Stats.Suppressed,
		"persisted", res.Stats.Persisted,
		"acceptance_rate", fmt.Sprintf("%.1f%%", rate),
	)

	for i, it := range res.Accepted {
		if i >= previewCount {
			break
		}
		v := it.Relevance
		if v == nil {
			continue
		}
		p.logger.Info("top item",
			"rank", i+1,
			"title", news.Preview(it.Title, 50),
			"score", v.Score,
			"region", v.Region,
			"keywords", strings.Join(v.Keywords, ", "),
		)
	}
}
