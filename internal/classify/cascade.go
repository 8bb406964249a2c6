package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rexa/newscrawler/internal/news"
)

// Cascade tries the semantic strategy and falls back to keywords. With a nil
// semantic classifier every item goes straight to keywords.
type Cascade struct {
	semantic   *Semantic
	logger     *slog.Logger
	onFallback func(ErrorKind)
}

func NewCascade(semantic *Semantic, logger *slog.Logger) *Cascade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cascade{semantic: semantic, logger: logger.With("component", "classifier")}
}

// OnFallback registers a hook invoked each time a semantic call degrades.
func (c *Cascade) OnFallback(fn func(ErrorKind)) {
	c.onFallback = fn
}

func (c *Cascade) Classify(ctx context.Context, title, description string) news.Verdict {
	if c.semantic == nil {
		return KeywordVerdict(title, description)
	}

	v, err := c.trySemantic(ctx, title, description)
	if err == nil {
		return v
	}

	kind := KindTransport
	var callErr *CallError
	if errors.As(err, &callErr) {
		kind = callErr.Kind
	}
	c.logger.Warn("semantic classification failed, using keywords", "kind", kind.String(), "error", err, "title", news.Preview(title, 40))
	if c.onFallback != nil {
		c.onFallback(kind)
	}
	return KeywordVerdict(title, description)
}

func (c *Cascade) trySemantic(ctx context.Context, title, description string) (v news.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CallError{Kind: KindTransport, Provider: c.semantic.provider, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return c.semantic.Classify(ctx, title, description)
}
