// Package search fetches candidate articles for a query from Naver's news
// search API or a Google News RSS search feed.
package search

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// MaxDescriptionRunes bounds an item's description.
	MaxDescriptionRunes = 200
	// minSentenceCut is the earliest rune index a sentence boundary may end at.
	minSentenceCut = 100
)

// CleanText strips markup and decodes HTML entities.
func CleanText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// TruncateDescription caps s at MaxDescriptionRunes runes. It prefers to end
// on '.', '!' or '?' found at rune 100 or later, scanning back from the cap.
func TruncateDescription(s string) string {
	r := []rune(s)
	if len(r) <= MaxDescriptionRunes {
		return s
	}

	cut := MaxDescriptionRunes
	for i := MaxDescriptionRunes - 1; i >= minSentenceCut; i-- {
		if r[i] == '.' || r[i] == '!' || r[i] == '?' {
			cut = i + 1
			break
		}
	}
	return strings.TrimSpace(string(r[:cut]))
}
