package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"<b>강남</b> 아파트":             "강남 아파트",
		"&quot;집값&quot; 상승":         `"집값" 상승`,
		"전세 &amp; 월세":              "전세 & 월세",
		"  plain  ":                "plain",
		"&lt;b&gt;escaped&lt;/b&gt;": "<b>escaped</b>",
	}
	for in, want := range tests {
		if got := CleanText(in); got != want {
			t.Errorf("CleanText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateDescription(t *testing.T) {
	t.Parallel()

	short := "짧은 설명입니다."
	if got := TruncateDescription(short); got != short {
		t.Fatalf("short description changed: %q", got)
	}

	// sentence end at rune 150
	long := strings.Repeat("가", 149) + "." + strings.Repeat("나", 100)
	got := TruncateDescription(long)
	if utf8.RuneCountInString(got) != 150 || !strings.HasSuffix(got, ".") {
		t.Fatalf("expected cut after the period at rune 150, got %d runes", utf8.RuneCountInString(got))
	}

	// only boundary is before rune 100, so hard cut
	early := strings.Repeat("가", 50) + "!" + strings.Repeat("나", 200)
	got = TruncateDescription(early)
	if utf8.RuneCountInString(got) != MaxDescriptionRunes {
		t.Fatalf("expected hard cut at %d, got %d", MaxDescriptionRunes, utf8.RuneCountInString(got))
	}
}

const naverBody = `{
  "items": [
    {"title": "<b>강남구</b> 아파트 시세 5% 상승", "link": "https://n.news.naver.com/article/001/1", "description": "재건축 &quot;기대감&quot;", "pubDate": "Mon, 03 Mar 2025 09:00:00 +0900"},
    {"title": "외부 언론사 기사", "link": "https://example.com/a", "description": "설명", "pubDate": "Mon, 03 Mar 2025 09:01:00 +0900"}
  ]
}`

func TestNaverSearch_PrefersNaverLinks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Naver-Client-Id") != "id" || r.Header.Get("X-Naver-Client-Secret") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("query") != "부동산" || r.URL.Query().Get("sort") != "date" || r.URL.Query().Get("display") != "10" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(naverBody))
	}))
	defer srv.Close()

	n := NewNaver(srv.URL, "id", "secret", time.Second, nil)
	items, err := n.Search(context.Background(), "부동산", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected only the news.naver.com item, got %d", len(items))
	}
	if items[0].Title != "강남구 아파트 시세 5% 상승" || items[0].Description != `재건축 "기대감"` {
		t.Fatalf("unexpected cleaned item %+v", items[0])
	}
	if items[0].ObservedAt.IsZero() {
		t.Fatalf("ObservedAt not set")
	}
}

func TestNaverSearch_FallsBackToAllLinks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": [{"title": "a", "link": "https://example.com/a"}, {"title": "b", "link": "https://example.com/b"}]}`))
	}))
	defer srv.Close()

	items, err := NewNaver(srv.URL, "id", "secret", time.Second, nil).Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected both items, got %d", len(items))
	}
}

func TestNaverSearch_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := NewNaver(srv.URL, "id", "secret", time.Second, nil).Search(context.Background(), "q", 10); err == nil {
		t.Fatalf("expected status error")
	}
	if _, err := NewNaver(srv.URL, "", "", time.Second, nil).Search(context.Background(), "q", 10); err == nil {
		t.Fatalf("expected missing credential error")
	}
}

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Google News</title>
<item><title>서초구 재건축 단지 분양</title><link>https://news.example/1</link><description>&lt;a href="x"&gt;서초구&lt;/a&gt; 분양 일정</description><pubDate>Mon, 03 Mar 2025 00:00:00 GMT</pubDate></item>
<item><title>마포구 전세가 하락</title><link>https://news.example/2</link><description>전세 시장</description></item>
<item><title>세번째</title><link>https://news.example/3</link></item>
</channel></rss>`

func TestRSSSearch(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssBody))
	}))
	defer srv.Close()

	r := NewRSS(srv.URL+"/rss/search?q=%s", time.Second, nil)
	items, err := r.Search(context.Background(), "서울 부동산", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotQuery != "서울 부동산" {
		t.Fatalf("query not escaped/forwarded: %q", gotQuery)
	}
	if len(items) != 2 {
		t.Fatalf("count not applied, got %d", len(items))
	}
	if items[0].Description != "서초구 분양 일정" {
		t.Fatalf("description not cleaned: %q", items[0].Description)
	}
	if items[0].PubDate == "" {
		t.Fatalf("pub date missing")
	}
}

func TestRSSSearch_BadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewRSS(srv.URL+"?q=%s", time.Second, nil).Search(context.Background(), "q", 5); err == nil {
		t.Fatalf("expected error")
	}
}
