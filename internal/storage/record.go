package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rexa/newscrawler/internal/news"
)

// TimestampLayout is fixed-width UTC so stored timestamps sort as strings.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Defaults written for an item that reached storage without a verdict.
const (
	defaultScore  = 50
	defaultReason = "classification unavailable"
)

// Columns is the shared row layout of the sheet and CSV sinks.
var Columns = []string{
	"timestamp", "title", "description", "url",
	"is_relevant", "relevance_score", "keywords", "region",
	"has_price", "has_policy", "reason", "user_id",
}

const (
	colTimestamp = 0
	colTitle     = 1
	colURL       = 3
)

// Sink appends one item. Writes are not deduplicated.
type Sink interface {
	Append(ctx context.Context, item news.Item) error
}

// Store is a sink that can also answer history lookbacks.
type Store interface {
	Sink
	RecentURLs(ctx context.Context, window time.Duration) (map[string]struct{}, error)
	RecentTitles(ctx context.Context, window time.Duration) (map[string]struct{}, error)
	Close() error
}

// Record is the persisted form of an item.
type Record struct {
	ID          string    `json:"id" bson:"_id"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	URL         string    `json:"url" bson:"url"`
	IsRelevant  bool      `json:"is_relevant" bson:"is_relevant"`
	Score       int       `json:"relevance_score" bson:"relevance_score"`
	Keywords    []string  `json:"keywords" bson:"keywords"`
	Region      string    `json:"region" bson:"region"`
	HasPrice    bool      `json:"has_price" bson:"has_price"`
	HasPolicy   bool      `json:"has_policy" bson:"has_policy"`
	Reason      string    `json:"reason" bson:"reason"`
	Strategy    string    `json:"strategy,omitempty" bson:"strategy,omitempty"`
	UserID      string    `json:"user_id" bson:"user_id"`
	Content     string    `json:"content,omitempty" bson:"content,omitempty"`
}

// NewRecord converts an item. ObservedAt is used when set, otherwise now.
func NewRecord(item news.Item, now time.Time) Record {
	ts := item.ObservedAt
	if ts.IsZero() {
		ts = now
	}

	r := Record{
		ID:          uuid.NewString(),
		Timestamp:   ts.UTC(),
		Title:       item.Title,
		Description: item.Description,
		URL:         item.URL,
		UserID:      item.UserID,
		Content:     item.Content,
	}

	if v := item.Relevance; v != nil {
		r.IsRelevant = v.IsRelevant
		r.Score = v.Score
		r.Keywords = v.Keywords
		r.Region = v.Region
		r.HasPrice = v.HasPrice
		r.HasPolicy = v.HasPolicy
		r.Reason = v.Reason
		r.Strategy = string(v.Strategy)
	} else {
		r.IsRelevant = true
		r.Score = defaultScore
		r.Reason = defaultReason
	}
	return r
}

// Row renders the record in Columns order.
func (r Record) Row() []string {
	return []string{
		FormatTimestamp(r.Timestamp),
		r.Title,
		r.Description,
		r.URL,
		formatBool(r.IsRelevant),
		strconv.Itoa(r.Score),
		strings.Join(r.Keywords, ", "),
		r.Region,
		formatBool(r.HasPrice),
		formatBool(r.HasPolicy),
		r.Reason,
		r.UserID,
	}
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// timestampLayouts accepts our own layout plus naive ISO timestamps written
// by older exports, which are read as local time.
var timestampLayouts = []string{
	TimestampLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp reads a stored timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for i, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if i < 2 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// collectRecent scans rows in Columns order and returns URLs and normalized
// titles whose timestamp is at or after the cutoffs. Header rows and rows
// with unparsable timestamps are skipped.
func collectRecent(rows [][]string, urlCutoff, titleCutoff time.Time) (urls, titles map[string]struct{}) {
	urls = make(map[string]struct{})
	titles = make(map[string]struct{})

	for _, row := range rows {
		if len(row) <= colURL {
			continue
		}
		ts, err := ParseTimestamp(row[colTimestamp])
		if err != nil {
			continue
		}
		if !ts.Before(urlCutoff) && row[colURL] != "" {
			urls[row[colURL]] = struct{}{}
		}
		if !ts.Before(titleCutoff) && row[colTitle] != "" {
			titles[news.NormalizeTitle(row[colTitle])] = struct{}{}
		}
	}
	return urls, titles
}
