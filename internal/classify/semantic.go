package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/rexa/newscrawler/internal/cache"
	"github.com/rexa/newscrawler/internal/news"
	"github.com/rexa/newscrawler/internal/ratelimit"
)

const systemPrompt = `당신은 부동산 뉴스 필터링 전문가입니다.

기사 제목과 설명을 보고 이것이 "부동산과 관련이 있는지" 판단하세요.

부동산 관련 기사:
- 아파트, 오피스텔, 상가, 토지 등 부동산 매매/임대
- 부동산 가격, 시세, 거래량
- 부동산 정책, 세금, 대출, 금리
- 재건축, 재개발, 분양, 청약
- 부동산 투자, 수익형 부동산
- 연예인의 부동산 매수/매도/투자 (OK)

부동산 무관 기사:
- 헤드라인 뉴스, 종합 뉴스 (여러 기사를 모은 것)
- 연예인 분쟁/스캔들 (부동산 거래와 무관한 소송, 갈등)
- 주식, 채권, 코인 등 금융상품
- 일반 경제 뉴스 (부동산 언급 없음)
- 정치, 사회, 문화 이슈
- 건설사 실적이지만 부동산과 직접 연관 없음

JSON 형식으로 응답:
{
  "is_relevant": true/false,
  "relevance_score": 0-100,
  "keywords": ["키워드1", "키워드2", "키워드3"],
  "region": "지역명" or null,
  "has_price": true/false,
  "has_policy": true/false,
  "reason": "판단 근거 1-2줄"
}`

const userPromptFormat = `제목: %s
설명: %s

이 기사가 부동산과 관련이 있습니까?`

// DefaultTimeout bounds a single semantic call.
const DefaultTimeout = 10 * time.Second

// SemanticOptions configures NewSemantic. Cache and Budget are optional.
type SemanticOptions struct {
	Provider string
	Timeout  time.Duration
	Cache    *cache.Cache[news.Verdict]
	Budget   *ratelimit.Budget
	Logger   *slog.Logger
}

// Semantic classifies through an LLM backend.
type Semantic struct {
	backend  Backend
	provider string
	timeout  time.Duration
	cache    *cache.Cache[news.Verdict]
	budget   *ratelimit.Budget
	logger   *slog.Logger
}

func NewSemantic(backend Backend, opts SemanticOptions) *Semantic {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Provider == "" {
		opts.Provider = "llm"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Semantic{
		backend:  backend,
		provider: opts.Provider,
		timeout:  opts.Timeout,
		cache:    opts.Cache,
		budget:   opts.Budget,
		logger:   opts.Logger.With("component", "classifier", "provider", opts.Provider),
	}
}

// Classify asks the backend once. Failures come back as *CallError.
func (s *Semantic) Classify(ctx context.Context, title, description string) (news.Verdict, error) {
	key := cache.Key(title, description)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if s.budget != nil {
				s.budget.RecordCacheHit()
			}
			return v, nil
		}
	}

	if s.budget != nil {
		if err := s.budget.Use(s.provider); err != nil {
			return news.Verdict{}, &CallError{Kind: KindBudgetExhausted, Provider: s.provider, Err: err}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.backend.Complete(callCtx, systemPrompt, fmt.Sprintf(userPromptFormat, title, description))
	if err != nil {
		kind := KindTransport
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return news.Verdict{}, &CallError{Kind: kind, Provider: s.provider, Err: err}
	}

	v, err := ParseVerdict(raw)
	if err != nil {
		return news.Verdict{}, &CallError{Kind: KindMalformed, Provider: s.provider, Err: err}
	}

	s.logger.Debug("semantic verdict", "relevant", v.IsRelevant, "score", v.Score, "title", news.Preview(title, 40))

	if s.cache != nil {
		s.cache.Set(key, v)
	}
	return v, nil
}

type verdictPayload struct {
	IsRelevant     *bool    `json:"is_relevant"`
	RelevanceScore *float64 `json:"relevance_score"`
	Keywords       []string `json:"keywords"`
	Region         *string  `json:"region"`
	HasPrice       bool     `json:"has_price"`
	HasPolicy      bool     `json:"has_policy"`
	Reason         string   `json:"reason"`
}

// ParseVerdict decodes a backend answer. A surrounding markdown code fence
// is tolerated; a missing required field or a score that is not an integer
// in [0,100] is not.
func ParseVerdict(raw string) (news.Verdict, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return news.Verdict{}, errors.New("empty response")
	}

	var p verdictPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return news.Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	if p.IsRelevant == nil {
		return news.Verdict{}, errors.New("missing is_relevant")
	}
	if p.RelevanceScore == nil {
		return news.Verdict{}, errors.New("missing relevance_score")
	}
	score := *p.RelevanceScore
	if math.IsNaN(score) || score < 0 || score > 100 {
		return news.Verdict{}, fmt.Errorf("relevance_score %v out of range", score)
	}
	if score != math.Trunc(score) {
		return news.Verdict{}, fmt.Errorf("relevance_score %v is not an integer", score)
	}

	keywords := p.Keywords
	if len(keywords) > news.MaxKeywords {
		keywords = keywords[:news.MaxKeywords]
	}

	v := news.Verdict{
		IsRelevant: *p.IsRelevant,
		Score:      int(score),
		Keywords:   keywords,
		HasPrice:   p.HasPrice,
		HasPolicy:  p.HasPolicy,
		Reason:     strings.TrimSpace(p.Reason),
		Strategy:   news.StrategySemantic,
	}
	if p.Region != nil {
		v.Region = strings.TrimSpace(*p.Region)
	}
	return v, nil
}

// stripCodeFence removes a ```json ... ``` wrapper if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
