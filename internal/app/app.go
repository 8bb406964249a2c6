// Package app wires configuration into a runnable crawler.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rexa/newscrawler/internal/cache"
	"github.com/rexa/newscrawler/internal/classify"
	"github.com/rexa/newscrawler/internal/config"
	"github.com/rexa/newscrawler/internal/gemini"
	"github.com/rexa/newscrawler/internal/metrics"
	"github.com/rexa/newscrawler/internal/news"
	"github.com/rexa/newscrawler/internal/openai"
	"github.com/rexa/newscrawler/internal/pipeline"
	"github.com/rexa/newscrawler/internal/ratelimit"
	"github.com/rexa/newscrawler/internal/scraper"
	"github.com/rexa/newscrawler/internal/search"
	"github.com/rexa/newscrawler/internal/storage"
)

const cacheCleanupInterval = 10 * time.Minute

type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	store    storage.Store
	budget   *ratelimit.Budget
	pipeline *pipeline.Pipeline
	closers  []func()
}

// New opens the store, builds the classifier cascade and the searcher, and
// assembles the pipeline.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	a := &App{cfg: cfg, logger: logger, metrics: m}

	store, err := OpenStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.store = store

	classifier, err := a.newClassifier(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var fetcher pipeline.ContentFetcher
	if cfg.FetchEnabled {
		fetcher = scraper.NewFetcher(scraper.Options{
			Attempts: cfg.FetchAttempts,
			Backoff:  cfg.FetchBackoff,
			Timeout:  cfg.FetchTimeout,
			Logger:   logger,
		})
	}

	a.pipeline = pipeline.New(pipeline.Deps{
		Searcher:   newSearcher(cfg, logger),
		Classifier: classifier,
		Sink:       store,
		History:    store,
		Fetcher:    fetcher,
		Metrics:    m,
		Logger:     logger,
	}, pipeline.Options{
		SimilarityThreshold: cfg.SimilarityThreshold,
		URLWindow:           cfg.URLWindow(),
		TitleWindow:         cfg.TitleWindow(),
		PersistInterval:     cfg.PersistInterval,
		EnrichLimit:         cfg.FetchMaxArticles,
	})
	return a, nil
}

func newSearcher(cfg *config.Config, logger *slog.Logger) pipeline.Searcher {
	if cfg.SearchProvider == "rss" {
		return search.NewRSS(cfg.RSSTemplate, cfg.SearchTimeout, logger)
	}
	return search.NewNaver(cfg.NaverEndpoint, cfg.NaverClientID, cfg.NaverClientSecret, cfg.SearchTimeout, logger)
}

// newClassifier returns the semantic cascade when a key is configured and
// the keyword strategy otherwise.
func (a *App) newClassifier(ctx context.Context) (classify.Classifier, error) {
	cfg := a.cfg
	key := cfg.ClassifierKey()
	if key == "" {
		if cfg.ClassifierProvider != "none" {
			a.logger.Warn("no API key for classifier, using keyword strategy", "provider", cfg.ClassifierProvider)
		}
		return classify.NewCascade(nil, a.logger), nil
	}

	var backend classify.Backend
	switch cfg.ClassifierProvider {
	case "gemini":
		c, err := gemini.NewClient(ctx, key, cfg.GeminiModel, cfg.Temperature)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		a.closers = append(a.closers, c.Close)
		backend = c
	default:
		c, err := openai.NewClient(key, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.Temperature)
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		backend = c
	}

	verdicts := cache.New[news.Verdict](cfg.ClassifierCacheTTL, cacheCleanupInterval)
	a.closers = append(a.closers, verdicts.Close)
	a.budget = ratelimit.NewBudget(map[string]int{cfg.ClassifierProvider: cfg.MaxSemanticCalls}, 0, a.logger)

	semantic := classify.NewSemantic(backend, classify.SemanticOptions{
		Provider: cfg.ClassifierProvider,
		Timeout:  cfg.ClassifierTimeout,
		Cache:    verdicts,
		Budget:   a.budget,
		Logger:   a.logger,
	})
	cascade := classify.NewCascade(semantic, a.logger)
	cascade.OnFallback(func(k classify.ErrorKind) { a.metrics.IncrementFallback(k.String()) })
	return cascade, nil
}

// Run executes one batch for the configured query. The semantic call budget
// is per run, so it starts fresh each time.
func (a *App) Run(ctx context.Context) (pipeline.Result, error) {
	if a.budget != nil {
		a.budget.Reset()
	}
	a.logger.Info("starting crawl", "query", a.cfg.Query, "count", a.cfg.Count,
		"search", a.cfg.SearchProvider, "classifier", a.cfg.ClassifierProvider, "storage", a.cfg.StorageBackend)

	res, err := a.pipeline.RunBatch(ctx, a.cfg.Query, a.cfg.Count, a.cfg.UserID)
	if err != nil {
		return res, err
	}
	if len(res.Accepted) == 0 {
		a.logger.Info("no relevant news in this batch")
	}
	if a.budget != nil {
		a.logger.Info("classifier budget", "stats", a.budget.Stats())
	}
	return res, nil
}

// Metrics and Budget back the monitoring handler. Budget is nil when the
// keyword strategy is in use.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }
func (a *App) Budget() *ratelimit.Budget { return a.budget }

func (a *App) Close() error {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	return a.store.Close()
}
