package news

import (
	"regexp"
	"strings"
)

// Digest / roundup markers. A single article that bundles many headlines is
// never useful on its own.
var headlineKeywords = []string{
	"오늘의 부동산 뉴스",
	"오늘의 뉴스",
	"부동산 뉴스 총정리",
	"헤드라인",
	"뉴스 브리핑",
	"뉴스 모음",
	"주요 뉴스",
	"뉴스 정리",
}

// "뉴스 (총 5건)", "총 5건", "5건의 뉴스"
var headlinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`뉴스\s*\(총\s*\d+건\)`),
	regexp.MustCompile(`총\s*\d+건`),
	regexp.MustCompile(`\d+건의?\s*뉴스`),
}

var celebrityKeywords = []string{
	"배우", "가수", "연예인", "아이돌", "탤런트",
	"스타", "셀럽", "방송인", "코미디언", "개그맨",
}

var transactionKeywords = []string{
	"매매", "매입", "구입", "구매", "취득", "샀다", "사들",
	"매도", "판매", "처분", "팔았다", "팔아",
	"억원에", "억대", "억원대",
	"투자", "분양", "입주",
	"새집", "이사",
}

var scandalKeywords = []string{
	"분쟁", "갈등", "소송", "고소", "고발",
	"혐의", "의혹", "논란", "폭로",
	"사기", "횡령", "배임",
	"전 남편", "전 부인", "이혼", "위자료",
}

const (
	reasonHeadline       = "headline/digest news"
	reasonCelebScandal   = "celebrity dispute/scandal, unrelated to a property transaction"
	reasonCelebDeal      = "celebrity property purchase/sale (include)"
	reasonCelebAmbiguous = "celebrity related, needs further judgement"
	reasonNotCelebrity   = "not celebrity news"
)

// Celebrity is the outcome of the celebrity heuristic.
type Celebrity int

const (
	CelebrityNone      Celebrity = iota // no celebrity term
	CelebrityScandal                    // celebrity + dispute: reject
	CelebrityDeal                       // celebrity + transaction: include
	CelebrityAmbiguous                  // celebrity only: left to the classifier
)

// CelebrityVerdict pairs the heuristic outcome with a human-readable note.
type CelebrityVerdict struct {
	Kind   Celebrity
	Reason string
}

// PreFilterResult is the cheap rule-based verdict computed before any
// external classification.
type PreFilterResult struct {
	HeadlineDigest bool
	Celebrity      CelebrityVerdict
}

// Rejected reports whether the item must be dropped and why.
func (r PreFilterResult) Rejected() (Reason, string, bool) {
	if r.HeadlineDigest {
		return ReasonHeadlineDigest, reasonHeadline, true
	}
	if r.Celebrity.Kind == CelebrityScandal {
		return ReasonCelebrityScandal, r.Celebrity.Reason, true
	}
	return ReasonNone, "", false
}

// PreFilter runs the headline detector and the celebrity heuristic.
func PreFilter(title, description string) PreFilterResult {
	text := strings.ToLower(title + " " + description)
	return PreFilterResult{
		HeadlineDigest: isHeadline(text),
		Celebrity:      checkCelebrity(text),
	}
}

// IsHeadline reports whether title/description look like a digest article.
func IsHeadline(title, description string) bool {
	return isHeadline(strings.ToLower(title + " " + description))
}

func isHeadline(text string) bool {
	if ContainsAny(text, headlineKeywords) {
		return true
	}
	for _, re := range headlinePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// CheckCelebrity applies the celebrity decision table. Scandal terms win
// over transaction terms.
func CheckCelebrity(title, description string) CelebrityVerdict {
	return checkCelebrity(strings.ToLower(title + " " + description))
}

func checkCelebrity(text string) CelebrityVerdict {
	if !ContainsAny(text, celebrityKeywords) {
		return CelebrityVerdict{Kind: CelebrityNone, Reason: reasonNotCelebrity}
	}
	if ContainsAny(text, scandalKeywords) {
		return CelebrityVerdict{Kind: CelebrityScandal, Reason: reasonCelebScandal}
	}
	if ContainsAny(text, transactionKeywords) {
		return CelebrityVerdict{Kind: CelebrityDeal, Reason: reasonCelebDeal}
	}
	return CelebrityVerdict{Kind: CelebrityAmbiguous, Reason: reasonCelebAmbiguous}
}
