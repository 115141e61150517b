package extract

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/returnguard/returnguard/internal/model"
)

// Amount heuristics. The outlier thresholds are empirical guards against OCR
// noise inflating a single token; tune, don't derive.
const (
	minAmountCents        = 100
	percentLineCapCents   = 5000
	largeAmountCents      = 10000
	lowBestScoreThreshold = 8
	keywordRescueMinScore = 2
	outlierRatio          = 2
	outlierMinSecondCents = 1000
)

// AmountExtraction is the amount extractor result. Cents is 0 with source
// FALLBACK_EMPTY when no amount was found.
type AmountExtraction struct {
	Cents               int64
	Display             string
	Score               int
	Source              string
	Agreement           int
	KeywordSupported    bool
	HasKeywordCandidate bool
	Candidates          []model.Candidate
}

type amountCandidate struct {
	cents   int64
	score   int
	source  string
	keyword bool
}

func digitConfusion(c byte) (byte, bool) {
	switch c {
	case 'O', 'o', 'D', 'Q':
		return '0', true
	case 'I', 'l', '|':
		return '1', true
	}
	return 0, false
}

// repairDigits fixes common OCR digit/letter confusions (O->0, l->1) inside
// number-shaped runs. A run of digits, separators, and confusable letters is
// repaired only when it contains a real digit or separator, so plain words
// ("Oslo", "Ill") stay untouched.
func repairDigits(s string) string {
	isRun := func(c byte) bool {
		if c >= '0' && c <= '9' || c == '.' || c == ',' {
			return true
		}
		_, ok := digitConfusion(c)
		return ok
	}
	b := []byte(s)
	out := make([]byte, len(b))
	copy(out, b)
	for i := 0; i < len(b); {
		if !isRun(b[i]) {
			i++
			continue
		}
		j := i
		anchored := false
		for j < len(b) && isRun(b[j]) {
			if b[j] >= '0' && b[j] <= '9' || b[j] == '.' || b[j] == ',' {
				anchored = true
			}
			j++
		}
		if anchored && j-i >= 2 {
			for k := i; k < j; k++ {
				if rep, ok := digitConfusion(b[k]); ok {
					out[k] = rep
				}
			}
		}
		i = j
	}
	return string(out)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseCents converts a money-shaped token to integer cents. The rightmost
// of ','/'.' with a 1-2 digit tail is the decimal separator; the other is a
// thousands separator. Returns false for empty, digitless, or negative input.
func ParseCents(raw string) (int64, bool) {
	clean := strings.ReplaceAll(raw, "€", "")
	var b strings.Builder
	for _, r := range clean {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	compact := b.String()
	if strings.Contains(compact, "-") {
		return 0, false
	}

	intPart, decimals := compact, ""
	lastComma := strings.LastIndex(compact, ",")
	lastDot := strings.LastIndex(compact, ".")
	sep := lastComma
	if lastDot > sep {
		sep = lastDot
	}
	if sep >= 0 {
		if tail := compact[sep+1:]; len(tail) <= 2 && allDigits(tail) {
			intPart, decimals = compact[:sep], tail
		}
	}

	var digits strings.Builder
	for _, r := range intPart {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 && decimals == "" {
		return 0, false
	}

	cents := int64(0)
	if digits.Len() > 0 {
		v, err := strconv.ParseInt(digits.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		cents = v * 100
	}
	switch len(decimals) {
	case 1:
		cents += int64(decimals[0]-'0') * 10
	case 2:
		d, _ := strconv.ParseInt(decimals, 10, 64)
		cents += d
	}
	return cents, true
}

// FormatAmountInput renders cents as a German decimal-comma price input
// ("4500" -> "45,00").
func FormatAmountInput(cents int64) string {
	return fmt.Sprintf("%d,%02d", cents/100, cents%100)
}

// findAmountTokens returns money-shaped tokens with digit-boundary checks.
func findAmountTokens(s string) []string {
	var tokens []string
	for _, loc := range amountRe.FindAllStringIndex(s, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
			continue
		}
		if end < len(s) && s[end] >= '0' && s[end] <= '9' {
			continue
		}
		tokens = append(tokens, s[start:end])
	}
	return tokens
}

// extractAmount finds the receipt total. Lines are classified strong/weak/
// plain by total keywords; a low-scoring global best falls back to a
// keyword-backed candidate, then an outlier-safe pick, then the largest
// amount found anywhere.
func extractAmount(lines []Line) AmountExtraction {
	var cands []amountCandidate
	for _, l := range lines {
		repaired := repairDigits(l.Text)
		lower := strings.ToLower(l.Text)

		strong := containsAny(lower, strongTotalKeywords)
		weak := !strong && containsAny(lower, weakTotalKeywords)

		base := 1
		source := model.PriceLargeFallback
		switch {
		case strong:
			base = 10
			source = model.PriceStrongTotal
		case weak:
			base = 4
			source = model.PriceWeakTotal
		}
		if containsAny(lower, subtotalKeywords) {
			base -= 6
		}
		hasPercent := strings.Contains(l.Text, "%")
		if hasPercent {
			base -= 3
		}
		if dateRe.MatchString(l.Text) {
			base -= 3
		}
		if itemRowLooseRe.MatchString(repaired) {
			base -= 6
		}

		for _, token := range findAmountTokens(repaired) {
			cents, ok := ParseCents(token)
			if !ok || cents <= 0 {
				continue
			}
			if cents < minAmountCents && !strong {
				continue
			}
			if cents >= percentLineCapCents && hasPercent && !strong {
				continue
			}
			score := base
			if cents >= largeAmountCents {
				score++
			}
			if hasPercent {
				score -= 2
			}
			cands = append(cands, amountCandidate{
				cents:   cents,
				score:   score,
				source:  source,
				keyword: strong || weak,
			})
		}
	}

	if len(cands) == 0 {
		return AmountExtraction{
			Source: model.PriceFallbackEmpty,
			Candidates: []model.Candidate{
				{Value: "", Source: model.PriceFallbackEmpty},
			},
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].cents > cands[j].cents
	})

	chosen := cands[0]
	if chosen.score < lowBestScoreThreshold {
		if kw, ok := bestKeywordCandidate(cands); ok {
			chosen = kw
		} else if safe, ok := outlierSafePick(cands); ok {
			chosen = safe
		} else {
			chosen = largestAmount(cands)
		}
	}

	agreement := 0
	keywordSupported := false
	hasKeyword := false
	candidates := make([]model.Candidate, 0, len(cands))
	for _, c := range cands {
		candidates = append(candidates, model.Candidate{
			Value:  FormatAmountInput(c.cents),
			Score:  c.score,
			Source: c.source,
		})
		if c.keyword {
			hasKeyword = true
		}
		if c.cents == chosen.cents {
			agreement++
			if c != chosen && c.keyword {
				keywordSupported = true
			}
		}
	}
	// supporters only, not the chosen candidate itself
	agreement--
	if chosen.keyword {
		keywordSupported = true
	}

	return AmountExtraction{
		Cents:               chosen.cents,
		Display:             FormatAmountInput(chosen.cents),
		Score:               chosen.score,
		Source:              chosen.source,
		Agreement:           agreement,
		KeywordSupported:    keywordSupported,
		HasKeywordCandidate: hasKeyword,
		Candidates:          candidates,
	}
}

// bestKeywordCandidate returns the highest-scoring keyword-backed candidate
// at or above the rescue threshold.
func bestKeywordCandidate(sorted []amountCandidate) (amountCandidate, bool) {
	for _, c := range sorted {
		if c.keyword && c.score >= keywordRescueMinScore {
			return c, true
		}
	}
	return amountCandidate{}, false
}

// outlierSafePick prefers the second-largest amount when the single largest
// is at least outlierRatio times it and the second-largest is still a
// plausible total.
func outlierSafePick(cands []amountCandidate) (amountCandidate, bool) {
	byCents := make([]amountCandidate, len(cands))
	copy(byCents, cands)
	sort.SliceStable(byCents, func(i, j int) bool {
		return byCents[i].cents > byCents[j].cents
	})

	var distinct []amountCandidate
	for _, c := range byCents {
		if len(distinct) == 0 || distinct[len(distinct)-1].cents != c.cents {
			distinct = append(distinct, c)
		}
	}
	if len(distinct) < 2 {
		return amountCandidate{}, false
	}
	largest, second := distinct[0], distinct[1]
	if largest.cents >= outlierRatio*second.cents && second.cents >= outlierMinSecondCents {
		return second, true
	}
	return amountCandidate{}, false
}

func largestAmount(cands []amountCandidate) amountCandidate {
	best := cands[0]
	for _, c := range cands[1:] {
		if c.cents > best.cents {
			best = c
		}
	}
	return best
}
