package classify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rexa/newscrawler/internal/cache"
	"github.com/rexa/newscrawler/internal/news"
	"github.com/rexa/newscrawler/internal/ratelimit"
)

type stubBackend struct {
	mu       sync.Mutex
	response string
	err      error
	delay    time.Duration
	calls    int
	panicMsg string
}

func (s *stubBackend) Complete(ctx context.Context, system, user string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.response, s.err
}

func (s *stubBackend) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

const validAnswer = `{"is_relevant": true, "relevance_score": 88, "keywords": ["아파트", "재건축"], "region": "서울 강남구", "has_price": true, "has_policy": false, "reason": "재건축 아파트 시세"}`

func TestKeywordVerdict_ScoreAndClamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		title    string
		want     int
		relevant bool
	}{
		{name: "no match", title: "프로야구 개막전 결과", want: 0, relevant: false},
		{name: "one match", title: "아파트 단지 공원 개장", want: 30, relevant: true},
		{name: "negative only", title: "비트코인 급등", want: 0, relevant: false},
		{name: "mixed", title: "아파트 분양 대신 주식 투자", want: 40, relevant: true},
		{name: "clamped", title: "아파트 오피스텔 빌딩 상가 토지 주택", want: 100, relevant: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := KeywordVerdict(tt.title, "")
			if v.Score != tt.want || v.IsRelevant != tt.relevant {
				t.Fatalf("KeywordVerdict(%q) = score %d relevant %v, want %d %v", tt.title, v.Score, v.IsRelevant, tt.want, tt.relevant)
			}
			if v.Strategy != news.StrategyKeyword {
				t.Fatalf("unexpected strategy %q", v.Strategy)
			}
		})
	}
}

func TestKeywordVerdict_Monotone(t *testing.T) {
	t.Parallel()

	base := KeywordVerdict("송파구 아파트", "")
	more := KeywordVerdict("송파구 아파트 재건축", "")
	if more.Score < base.Score {
		t.Fatalf("adding a positive keyword lowered the score: %d < %d", more.Score, base.Score)
	}
	less := KeywordVerdict("송파구 아파트 재건축", "펀드 자금 유입")
	if less.Score > more.Score {
		t.Fatalf("adding a negative keyword raised the score: %d > %d", less.Score, more.Score)
	}
}

func TestKeywordVerdict_Attributes(t *testing.T) {
	t.Parallel()

	v := KeywordVerdict("강남구 아파트 시세 상승", "대출 규제 완화")
	if v.Region != "서울 강남구" {
		t.Fatalf("region = %q", v.Region)
	}
	if !v.HasPrice || !v.HasPolicy {
		t.Fatalf("expected price and policy flags, got %+v", v)
	}
	if len(v.Keywords) != 2 || v.Keywords[0] != "아파트" || v.Keywords[1] != "시세" {
		t.Fatalf("keywords = %v", v.Keywords)
	}
	if v.Reason != "keyword match (2 matched)" {
		t.Fatalf("reason = %q", v.Reason)
	}
}

func TestKeywordVerdict_KeywordsCapped(t *testing.T) {
	t.Parallel()

	v := KeywordVerdict("아파트 오피스텔 빌딩 상가 토지 주택 매매", "")
	if len(v.Keywords) != news.MaxKeywords {
		t.Fatalf("expected %d keywords, got %v", news.MaxKeywords, v.Keywords)
	}
	if v.Keywords[0] != "아파트" || v.Keywords[4] != "토지" {
		t.Fatalf("keywords not in vocabulary order: %v", v.Keywords)
	}
}

func TestParseVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
		score   int
	}{
		{name: "plain", raw: validAnswer, score: 88},
		{name: "fenced", raw: "```json\n" + validAnswer + "\n```", score: 88},
		{name: "bare fence", raw: "```\n" + validAnswer + "```", score: 88},
		{name: "null region", raw: `{"is_relevant": false, "relevance_score": 10, "region": null, "reason": "주식"}`, score: 10},
		{name: "prose", raw: "이 기사는 부동산과 관련이 있습니다.", wantErr: true},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "missing score", raw: `{"is_relevant": true}`, wantErr: true},
		{name: "missing relevance", raw: `{"relevance_score": 90}`, wantErr: true},
		{name: "score too high", raw: `{"is_relevant": true, "relevance_score": 140}`, wantErr: true},
		{name: "negative score", raw: `{"is_relevant": true, "relevance_score": -1}`, wantErr: true},
		{name: "fractional score", raw: `{"is_relevant": true, "relevance_score": 74.5}`, wantErr: true},
		{name: "integral float", raw: `{"is_relevant": true, "relevance_score": 75.0}`, score: 75},
		{name: "wrong type", raw: `{"is_relevant": "yes", "relevance_score": 90}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVerdict(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", v)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if v.Score != tt.score {
				t.Fatalf("score = %d, want %d", v.Score, tt.score)
			}
			if v.Strategy != news.StrategySemantic {
				t.Fatalf("unexpected strategy %q", v.Strategy)
			}
		})
	}
}

func TestParseVerdict_TruncatesKeywords(t *testing.T) {
	t.Parallel()

	v, err := ParseVerdict(`{"is_relevant": true, "relevance_score": 80, "keywords": ["a","b","c","d","e","f","g"]}`)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(v.Keywords) != news.MaxKeywords {
		t.Fatalf("keywords = %v", v.Keywords)
	}
}

func TestSemantic_ErrorKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		backend *stubBackend
		timeout time.Duration
		want    ErrorKind
	}{
		{name: "transport", backend: &stubBackend{err: errors.New("connection refused")}, want: KindTransport},
		{name: "timeout", backend: &stubBackend{response: validAnswer, delay: time.Second}, timeout: 20 * time.Millisecond, want: KindTimeout},
		{name: "malformed", backend: &stubBackend{response: "not json"}, want: KindMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSemantic(tt.backend, SemanticOptions{Provider: "stub", Timeout: tt.timeout})
			_, err := s.Classify(context.Background(), "강남 아파트", "")
			var callErr *CallError
			if !errors.As(err, &callErr) {
				t.Fatalf("expected *CallError, got %v", err)
			}
			if callErr.Kind != tt.want {
				t.Fatalf("kind = %v, want %v", callErr.Kind, tt.want)
			}
		})
	}
}

func TestSemantic_CacheHitSkipsBackend(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{response: validAnswer}
	c := cache.New[news.Verdict](time.Hour, 0)
	defer c.Close()

	s := NewSemantic(backend, SemanticOptions{Provider: "stub", Cache: c})
	for i := 0; i < 3; i++ {
		v, err := s.Classify(context.Background(), "강남 아파트", "재건축")
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if v.Score != 88 {
			t.Fatalf("score = %d", v.Score)
		}
	}
	if backend.Calls() != 1 {
		t.Fatalf("expected a single backend call, got %d", backend.Calls())
	}
}

func TestSemantic_BudgetExhausted(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{response: validAnswer}
	budget := ratelimit.NewBudget(map[string]int{"stub": 1}, 0, nil)
	s := NewSemantic(backend, SemanticOptions{Provider: "stub", Budget: budget})

	if _, err := s.Classify(context.Background(), "first", ""); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	_, err := s.Classify(context.Background(), "second", "")
	var callErr *CallError
	if !errors.As(err, &callErr) || callErr.Kind != KindBudgetExhausted {
		t.Fatalf("expected budget exhaustion, got %v", err)
	}
	if backend.Calls() != 1 {
		t.Fatalf("exhausted budget must not reach the backend")
	}
}

func TestCascade_UsesSemanticVerdict(t *testing.T) {
	t.Parallel()

	s := NewSemantic(&stubBackend{response: validAnswer}, SemanticOptions{Provider: "stub"})
	v := NewCascade(s, nil).Classify(context.Background(), "강남 재건축 아파트", "")
	if v.Strategy != news.StrategySemantic || v.Score != 88 {
		t.Fatalf("unexpected verdict %+v", v)
	}
}

func TestCascade_FallsBackToKeywords(t *testing.T) {
	t.Parallel()

	backends := map[string]*stubBackend{
		"transport": {err: errors.New("boom")},
		"malformed": {response: "```\nnope\n```"},
		"panic":     {panicMsg: "sdk bug"},
	}

	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			var kinds []ErrorKind
			c := NewCascade(NewSemantic(backend, SemanticOptions{Provider: "stub"}), nil)
			c.OnFallback(func(k ErrorKind) { kinds = append(kinds, k) })

			v := c.Classify(context.Background(), "송파구 아파트 전세", "")
			want := KeywordVerdict("송파구 아파트 전세", "")
			if v.Strategy != news.StrategyKeyword || v.Score != want.Score {
				t.Fatalf("expected keyword verdict %+v, got %+v", want, v)
			}
			if len(kinds) != 1 {
				t.Fatalf("expected one fallback, got %v", kinds)
			}
		})
	}
}

func TestCascade_NoBackendUsesKeywords(t *testing.T) {
	t.Parallel()

	v := NewCascade(nil, nil).Classify(context.Background(), "아파트 분양", "")
	if v.Strategy != news.StrategyKeyword || v.Score != 60 {
		t.Fatalf("unexpected verdict %+v", v)
	}
}
