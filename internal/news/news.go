package news

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
)

// Item is a single candidate article moving through the pipeline.
type Item struct {
	Title       string
	Description string
	URL         string
	PubDate     string
	ObservedAt  time.Time

	// Relevance is attached by the classifier; nil before classification.
	Relevance *Verdict

	UserID  string
	Content string // full text, only when enrichment ran
}

// Score returns the verdict score, or 0 for an unclassified item.
func (it Item) Score() int {
	if it.Relevance == nil {
		return 0
	}
	return it.Relevance.Score
}

// Strategy names the classifier path that produced a verdict.
type Strategy string

const (
	StrategySemantic  Strategy = "semantic"
	StrategyKeyword   Strategy = "keyword"
	StrategyPrefilter Strategy = "prefilter"
)

// Verdict is the structured relevance decision for one item.
type Verdict struct {
	IsRelevant bool
	Score      int
	Keywords   []string
	Region     string
	HasPrice   bool
	HasPolicy  bool
	Reason     string
	Strategy   Strategy
}

// MaxKeywords caps Verdict.Keywords.
const MaxKeywords = 5

// Reason is why an item was dropped. Each stage produces its own value;
// nothing downstream re-parses Verdict.Reason.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonHeadlineDigest
	ReasonCelebrityScandal
	ReasonLowScore
	ReasonOtherIrrelevant
	ReasonDuplicateURL
	ReasonDuplicateTitle
)

// Reasons lists every rejection reason in reporting order.
var Reasons = []Reason{
	ReasonHeadlineDigest,
	ReasonCelebrityScandal,
	ReasonLowScore,
	ReasonOtherIrrelevant,
	ReasonDuplicateURL,
	ReasonDuplicateTitle,
}

func (r Reason) String() string {
	switch r {
	case ReasonHeadlineDigest:
		return "headline_digest"
	case ReasonCelebrityScandal:
		return "celebrity_scandal"
	case ReasonLowScore:
		return "low_score"
	case ReasonOtherIrrelevant:
		return "other_irrelevant"
	case ReasonDuplicateURL:
		return "duplicate_url"
	case ReasonDuplicateTitle:
		return "duplicate_title"
	default:
		return "none"
	}
}

// NormalizeTitle is the history key for a title: case-folded with every
// whitespace rune removed.
func NormalizeTitle(title string) string {
	folded := cases.Fold().String(title)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, folded)
}

// FoldText case-folds and trims text for similarity comparison.
func FoldText(s string) string {
	return strings.TrimSpace(cases.Fold().String(s))
}

// ContainsAny reports whether text contains any of the keywords.
func ContainsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Matches returns the keywords found in text, in keyword order.
func Matches(text string, keywords []string) []string {
	var found []string
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			found = append(found, k)
		}
	}
	return found
}

// Preview shortens s to at most n runes for log lines.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
