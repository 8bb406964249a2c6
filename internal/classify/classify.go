// Package classify decides whether a news item is about real estate.
//
// Two strategies exist: Semantic asks an LLM backend for a structured
// verdict, Keyword scores a fixed vocabulary. Cascade prefers the first and
// degrades to the second on any failure.
package classify

import (
	"context"
	"fmt"

	"github.com/rexa/newscrawler/internal/news"
)

// Backend is a chat-completion provider that answers with a JSON object.
type Backend interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Classifier produces a verdict for one item. Implementations never fail.
type Classifier interface {
	Classify(ctx context.Context, title, description string) news.Verdict
}

// ErrorKind classifies why a semantic call did not yield a verdict.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindTimeout
	KindMalformed
	KindBudgetExhausted
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindMalformed:
		return "malformed"
	case KindBudgetExhausted:
		return "budget_exhausted"
	default:
		return "transport"
	}
}

// CallError is returned by Semantic.Classify.
type CallError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s classifier %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }
