package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rexa/newscrawler/internal/news"
	"github.com/rexa/newscrawler/internal/region"
)

var positiveKeywords = []string{
	"아파트", "오피스텔", "빌딩", "상가", "토지", "주택",
	"매매", "전세", "월세", "분양", "청약", "입주",
	"재건축", "재개발", "정비구역", "부동산", "집값",
	"주택가격", "전세가", "시세", "주담대", "종부세",
	"양도세", "취득세", "국토부", "미분양",
}

var negativeKeywords = []string{"주식", "코인", "비트코인", "펀드", "채권"}

var (
	priceKeywords  = []string{"가격", "시세", "억", "만원", "상승", "하락"}
	policyKeywords = []string{"정책", "규제", "세금", "대출", "금리"}
)

const (
	keywordHit     = 30
	keywordPenalty = 20

	// KeywordRelevantScore is the score at which Keyword marks an item relevant.
	KeywordRelevantScore = 30
)

// Keyword is the vocabulary fallback. It needs no network and never fails.
type Keyword struct{}

func (Keyword) Classify(_ context.Context, title, description string) news.Verdict {
	return KeywordVerdict(title, description)
}

// KeywordVerdict scores title and description against the fixed vocabulary.
func KeywordVerdict(title, description string) news.Verdict {
	text := strings.ToLower(title + " " + description)

	matched := news.Matches(text, positiveKeywords)
	excluded := news.Matches(text, negativeKeywords)

	score := len(matched)*keywordHit - len(excluded)*keywordPenalty
	score = max(0, min(100, score))

	keywords := matched
	if len(keywords) > news.MaxKeywords {
		keywords = keywords[:news.MaxKeywords]
	}

	reg, _ := region.Extract(text)

	return news.Verdict{
		IsRelevant: score >= KeywordRelevantScore,
		Score:      score,
		Keywords:   keywords,
		Region:     reg,
		HasPrice:   news.ContainsAny(text, priceKeywords),
		HasPolicy:  news.ContainsAny(text, policyKeywords),
		Reason:     fmt.Sprintf("keyword match (%d matched)", len(matched)),
		Strategy:   news.StrategyKeyword,
	}
}
