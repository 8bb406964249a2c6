// Package dedup removes repeated stories, within a batch by title
// similarity and across runs by recently persisted URLs and titles.
package dedup

import (
	"log/slog"
	"sort"

	"github.com/rexa/newscrawler/internal/news"
)

// DefaultThreshold is the similarity at which two titles count as the same story.
const DefaultThreshold = 0.75

// Ranked is a batch ordered by score descending. Only Rank creates one.
type Ranked struct {
	items []news.Item
}

// Items returns the ranked items.
func (r Ranked) Items() []news.Item { return r.items }

func (r Ranked) Len() int { return len(r.items) }

// Rank stable-sorts items by score, highest first. Items without a verdict
// score 0; ties keep input order.
func Rank(items []news.Item) Ranked {
	out := make([]news.Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score() > out[j].Score()
	})
	return Ranked{items: out}
}

// Collapsed records an item dropped as a near-duplicate of a kept one.
type Collapsed struct {
	Item       news.Item
	KeptURL    string
	Similarity float64
}

// Similarity keeps the best-ranked item of every cluster of similar titles.
type Similarity struct {
	Threshold float64
	Logger    *slog.Logger
}

func NewSimilarity(threshold float64, logger *slog.Logger) *Similarity {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Similarity{Threshold: threshold, Logger: logger.With("component", "dedup")}
}

// Dedupe walks the ranked batch and keeps an item unless its title is at
// least Threshold similar to a title already kept.
func (s *Similarity) Dedupe(ranked Ranked) []news.Item {
	kept, _ := s.DedupeWithDropped(ranked)
	return kept
}

// DedupeWithDropped is Dedupe that also reports what collapsed into what.
func (s *Similarity) DedupeWithDropped(ranked Ranked) ([]news.Item, []Collapsed) {
	var (
		kept      []news.Item
		keptTitle []string
		dropped   []Collapsed
	)

	for _, it := range ranked.items {
		title := news.FoldText(it.Title)

		dup := -1
		var ratio float64
		for i, k := range keptTitle {
			if r := Ratio(title, k); r >= s.Threshold {
				dup, ratio = i, r
				break
			}
		}

		if dup >= 0 {
			dropped = append(dropped, Collapsed{Item: it, KeptURL: kept[dup].URL, Similarity: ratio})
			if s.Logger != nil {
				s.Logger.Debug("similar title collapsed",
					"title", news.Preview(it.Title, 40),
					"kept", news.Preview(kept[dup].Title, 40),
					"similarity", ratio)
			}
			continue
		}

		kept = append(kept, it)
		keptTitle = append(keptTitle, title)
	}

	return kept, dropped
}

// Ratio returns 2*LCS(a,b)/(|a|+|b|) over runes. Two empty strings are
// identical.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(lcs(ra, rb)) / float64(total)
}

// lcs is the longest common subsequence length, two-row DP.
func lcs(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
