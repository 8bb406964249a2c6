package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rexa/newscrawler/internal/news"
)

var baseTime = time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

func item(title, url string, observed time.Time) news.Item {
	return news.Item{
		Title:       title,
		Description: "설명",
		URL:         url,
		ObservedAt:  observed,
		UserID:      "user-1",
		Relevance: &news.Verdict{
			IsRelevant: true,
			Score:      88,
			Keywords:   []string{"아파트", "재건축"},
			Region:     "서울 강남구",
			HasPrice:   true,
			Reason:     "재건축 아파트",
			Strategy:   news.StrategySemantic,
		},
	}
}

func TestNewRecordDefaultsWithoutVerdict(t *testing.T) {
	t.Parallel()

	r := NewRecord(news.Item{Title: "t", URL: "u"}, baseTime)
	if !r.IsRelevant || r.Score != 50 || r.Reason != "classification unavailable" {
		t.Fatalf("unexpected defaults %+v", r)
	}
	if !r.Timestamp.Equal(baseTime) {
		t.Fatalf("timestamp should fall back to now, got %v", r.Timestamp)
	}
	if r.ID == "" {
		t.Fatalf("id not assigned")
	}
}

func TestRecordRow(t *testing.T) {
	t.Parallel()

	row := NewRecord(item("강남 재건축", "https://n.news/1", baseTime), baseTime).Row()
	if len(row) != len(Columns) {
		t.Fatalf("row has %d cells, want %d", len(row), len(Columns))
	}
	want := []string{
		"2025-03-03T12:00:00.000000Z", "강남 재건축", "설명", "https://n.news/1",
		"True", "88", "아파트, 재건축", "서울 강남구", "True", "False", "재건축 아파트", "user-1",
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %s = %q, want %q", Columns[i], row[i], want[i])
		}
	}
}

func TestTimestampsSortAsStrings(t *testing.T) {
	t.Parallel()

	a := FormatTimestamp(baseTime)
	b := FormatTimestamp(baseTime.Add(90 * time.Minute))
	c := FormatTimestamp(baseTime.Add(time.Microsecond))
	if !(a < c && c < b) {
		t.Fatalf("timestamps do not sort lexicographically: %s %s %s", a, c, b)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		"2025-03-03T12:00:00.000000Z",
		"2025-03-03T21:00:00+09:00",
		"2025-03-03T12:00:00.123456",
		"2025-03-03 12:00:00",
	} {
		if _, err := ParseTimestamp(s); err != nil {
			t.Errorf("ParseTimestamp(%q): %v", s, err)
		}
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected error for garbage")
	}
}

func TestCollectRecent(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		Columns,
		NewRecord(item("최근 기사", "https://n.news/new", baseTime.Add(-time.Hour)), baseTime).Row(),
		NewRecord(item("오래된 기사", "https://n.news/old", baseTime.Add(-5*time.Hour)), baseTime).Row(),
		{"bad-ts", "깨진 행", "", "https://n.news/bad"},
		{"short"},
	}

	urls, titles := collectRecent(rows, baseTime.Add(-3*time.Hour), baseTime.Add(-24*time.Hour))
	if _, ok := urls["https://n.news/new"]; !ok || len(urls) != 1 {
		t.Fatalf("unexpected urls %v", urls)
	}
	if len(titles) != 2 {
		t.Fatalf("expected both titles within 24h, got %v", titles)
	}
	if _, ok := titles[news.NormalizeTitle("오래된 기사")]; !ok {
		t.Fatalf("titles must be normalized")
	}
}

// exerciseStore checks the Store contract against any backend.
func exerciseStore(t *testing.T, s Store, setNow func(time.Time)) {
	t.Helper()
	ctx := context.Background()

	setNow(baseTime)
	if err := s.Append(ctx, item("강남구 아파트 신고가", "https://n.news/1", baseTime.Add(-4*time.Hour))); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, item("송파구 전세 하락", "https://n.news/2", baseTime.Add(-time.Hour))); err != nil {
		t.Fatalf("append: %v", err)
	}

	urls, err := s.RecentURLs(ctx, 3*time.Hour)
	if err != nil {
		t.Fatalf("RecentURLs: %v", err)
	}
	if len(urls) != 1 {
		t.Fatalf("expected only the 1h-old URL, got %v", urls)
	}
	if _, ok := urls["https://n.news/2"]; !ok {
		t.Fatalf("missing recent URL, got %v", urls)
	}

	titles, err := s.RecentTitles(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("RecentTitles: %v", err)
	}
	if _, ok := titles[news.NormalizeTitle("강남구 아파트 신고가")]; !ok || len(titles) != 2 {
		t.Fatalf("unexpected titles %v", titles)
	}
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "news.db"), nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	exerciseStore(t, s, func(now time.Time) { s.now = func() time.Time { return now } })

	recent, err := s.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].URL != "https://n.news/2" {
		t.Fatalf("unexpected recent records %+v", recent)
	}

	n, err := s.Cleanup(context.Background(), 2*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one record cleaned up, got %d", n)
	}
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "news.json")
	s := NewFileStore(path, 48*time.Hour, nil)
	if err := s.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}

	exerciseStore(t, s, func(now time.Time) { s.now = func() time.Time { return now } })

	reloaded := NewFileStore(path, 48*time.Hour, nil)
	reloaded.now = func() time.Time { return baseTime }
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("expected 2 persisted records, got %d", reloaded.Len())
	}

	pruned := NewFileStore(path, 2*time.Hour, nil)
	pruned.now = func() time.Time { return baseTime }
	if err := pruned.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if pruned.Len() != 1 {
		t.Fatalf("expected retention pruning to keep 1 record, got %d", pruned.Len())
	}
}

func TestCSVStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "news.csv")
	s, err := NewCSVStore(path, nil)
	if err != nil {
		t.Fatalf("NewCSVStore: %v", err)
	}

	exerciseStore(t, s, func(now time.Time) { s.now = func() time.Time { return now } })

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "timestamp" || len(rows[0]) != 12 {
		t.Fatalf("unexpected header %v", rows[0])
	}

	// reopening must not write a second header
	if _, err := NewCSVStore(path, nil); err != nil {
		t.Fatalf("reopen: %v", err)
	}
}

type failingStore struct {
	Store
	appends int
}

func (f *failingStore) Append(context.Context, news.Item) error {
	f.appends++
	return errors.New("quota exceeded")
}

func (f *failingStore) Close() error { return nil }

func TestMultiMirrorFailureIsNotReturned(t *testing.T) {
	t.Parallel()

	primary := NewFileStore(filepath.Join(t.TempDir(), "p.json"), 0, nil)
	mirror := &failingStore{}
	m := NewMulti(primary, []Store{mirror}, nil)

	if err := m.Append(context.Background(), item("제목", "https://n.news/1", time.Now())); err != nil {
		t.Fatalf("mirror failure leaked: %v", err)
	}
	if mirror.appends != 1 || primary.Len() != 1 {
		t.Fatalf("expected write to both sinks")
	}

	urls, err := m.RecentURLs(context.Background(), time.Hour)
	if err != nil || len(urls) != 1 {
		t.Fatalf("lookback should come from primary: %v %v", urls, err)
	}
}

func TestMultiPrimaryFailureIsReturned(t *testing.T) {
	t.Parallel()

	mirror := NewFileStore(filepath.Join(t.TempDir(), "m.json"), 0, nil)
	m := NewMulti(&failingStore{}, []Store{mirror}, nil)

	if err := m.Append(context.Background(), item("제목", "https://n.news/1", time.Now())); err == nil {
		t.Fatalf("primary failure must be returned")
	}
	if mirror.Len() != 1 {
		t.Fatalf("mirror should still receive the write")
	}
}
