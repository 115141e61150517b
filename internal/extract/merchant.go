package extract

import (
	"sort"
	"strings"
	"unicode"

	"github.com/returnguard/returnguard/internal/model"
)

// FallbackMerchant is proposed when no line scores as a merchant.
const FallbackMerchant = "Unbekannter Haendler"

// MerchantExtraction is the merchant extractor result: the winning value,
// its raw score and source tag, and the full ranked candidate list.
type MerchantExtraction struct {
	Value      string
	Score      int
	Source     string
	Candidates []model.Candidate
}

// cleanupCompanyLine cuts everything after a '|' delimiter and strips
// trailing Tel./Fax segments.
func cleanupCompanyLine(text string) string {
	if i := strings.Index(text, "|"); i >= 0 {
		text = text[:i]
	}
	lower := strings.ToLower(text)
	for _, marker := range []string{"tel.", "tel:", "fax"} {
		if i := strings.Index(lower, marker); i >= 0 {
			text = text[:i]
			lower = lower[:i]
		}
	}
	return normalizeText(text)
}

func countDigitsLetters(s string) (digits, letters int) {
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		}
	}
	return digits, letters
}

// scoreMerchantLine accumulates the merchant heuristics for one cleaned line.
// window is the lowercased text of lines index-2 through index+1.
func scoreMerchantLine(index int, line string, window string, merchants *Merchants) int {
	lower := strings.ToLower(line)
	score := 0
	if index < 20 {
		score += 3
	}
	if merchants.Match(line) != "" {
		score += 12
	}
	if containsAny(lower, companyHintKeywords) {
		score += 6
	}
	if strings.Contains(lower, "www.") {
		score += 2
	}
	if containsAny(lower, blockedMerchantKeywords) {
		score -= 6
	}
	if strings.Contains(window, "firma") || strings.Contains(window, "kunde") {
		score -= 8
	}
	if strings.HasSuffix(lower, "e.u.") || strings.HasSuffix(lower, "e.u") {
		score -= 3
	}
	digits, letters := countDigitsLetters(line)
	if digits > 7 {
		score -= 3
	}
	if letters < 4 {
		score -= 3
	}
	return score
}

// normalizeMerchant strips a leading "Firma " prefix and surrounding
// punctuation from the winning line.
func normalizeMerchant(value string) string {
	lower := strings.ToLower(value)
	if strings.HasPrefix(lower, "firma ") {
		value = value[len("firma "):]
	}
	return strings.TrimFunc(value, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// extractMerchant scans all lines for the merchant name. Lines scoring <=0
// are discarded; ties break toward the longer string. The winner snaps to a
// canonical name when it fuzzily matches the known-merchant dictionary.
func extractMerchant(lines []Line, merchants *Merchants) MerchantExtraction {
	var candidates []model.Candidate
	for _, l := range lines {
		cleaned := cleanupCompanyLine(l.Text)
		if len(cleaned) < 3 {
			continue
		}

		var window strings.Builder
		for i := l.Index - 2; i <= l.Index+1; i++ {
			if i >= 0 && i < len(lines) {
				window.WriteString(strings.ToLower(lines[i].Text))
				window.WriteString(" ")
			}
		}

		score := scoreMerchantLine(l.Index, cleaned, window.String(), merchants)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, model.Candidate{
			Value:  cleaned,
			Score:  score,
			Source: model.MerchantCandidate,
		})
	}

	if len(candidates) == 0 {
		return MerchantExtraction{
			Value:  FallbackMerchant,
			Source: model.MerchantFallback,
			Candidates: []model.Candidate{
				{Value: FallbackMerchant, Source: model.MerchantFallback},
			},
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return len(candidates[i].Value) > len(candidates[j].Value)
	})

	winner := candidates[0]
	value := normalizeMerchant(winner.Value)
	source := model.MerchantCandidate
	if canonical := merchants.Match(value); canonical != "" {
		value = canonical
		source = model.MerchantCanonicalMatch
	}

	return MerchantExtraction{
		Value:      value,
		Score:      winner.Score,
		Source:     source,
		Candidates: candidates,
	}
}
