package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rexa/newscrawler/internal/classify"
	"github.com/rexa/newscrawler/internal/news"
)

// AcceptScore is the minimum relevance score an item needs to pass the gate.
const AcceptScore = 75

// GateResult is the outcome of filtering one batch. Discarded holds the
// rejected items in input order; those that reached the classifier carry its
// verdict.
type GateResult struct {
	Accepted  []news.Item
	Rejected  map[news.Reason]int
	Discarded []news.Item
	Processed int
	Skipped   int
}

// Gate runs the prefilter and the classifier over a batch.
type Gate struct {
	classifier classify.Classifier
	logger     *slog.Logger
}

func NewGate(classifier classify.Classifier, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	if classifier == nil {
		classifier = classify.Keyword{}
	}
	return &Gate{classifier: classifier, logger: logger.With("component", "gate")}
}

// Filter keeps items that are relevant with a score of at least AcceptScore.
// A fault on one item is logged and counted as skipped.
func (g *Gate) Filter(ctx context.Context, items []news.Item) GateResult {
	res := GateResult{Rejected: make(map[news.Reason]int)}

	for _, it := range items {
		res.Processed++

		out, reason, err := g.judge(ctx, it)
		switch {
		case err != nil:
			res.Skipped++
			g.logger.Error("item skipped", "error", err, "title", news.Preview(it.Title, 40))
		case reason != news.ReasonNone:
			res.Rejected[reason]++
			res.Discarded = append(res.Discarded, out)
		default:
			res.Accepted = append(res.Accepted, out)
		}
	}

	args := []any{"processed", res.Processed, "accepted", len(res.Accepted), "skipped", res.Skipped}
	for _, r := range news.Reasons {
		if n := res.Rejected[r]; n > 0 {
			args = append(args, r.String(), n)
		}
	}
	g.logger.Info("batch filtered", args...)
	return res
}

func (g *Gate) judge(ctx context.Context, it news.Item) (out news.Item, reason news.Reason, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	pre := news.PreFilter(it.Title, it.Description)
	if reason, note, rejected := pre.Rejected(); rejected {
		g.logger.Debug("prefilter rejected", "reason", reason.String(), "note", note, "title", news.Preview(it.Title, 40))
		return it, reason, nil
	}

	v := g.classifier.Classify(ctx, it.Title, it.Description)
	it.Relevance = &v
	if !v.IsRelevant || v.Score < AcceptScore {
		reason = news.ReasonOtherIrrelevant
		if v.Score < AcceptScore {
			reason = news.ReasonLowScore
		}
		g.logger.Debug("classifier rejected", "reason", reason.String(), "score", v.Score, "title", news.Preview(it.Title, 40))
		return it, reason, nil
	}
	return it, news.ReasonNone, nil
}
