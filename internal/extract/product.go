package extract

import (
	"sort"
	"strings"
	"unicode"

	"github.com/returnguard/returnguard/internal/model"
)

// FallbackProduct is the generic line-item placeholder.
const FallbackProduct = "Belegposition"

// Free-text scan bounds: skip the address/contact block at the top and stop
// before the footer when no table header was found.
const (
	freeTextHeaderWindow = 30
	freeTextSkipTop      = 14
	freeTextNoHeaderEnd  = 94
)

const freeTextMinScore = 8

// ProductExtraction is the product extractor result.
type ProductExtraction struct {
	Value      string
	Score      int
	Source     string
	Candidates []model.Candidate
}

// productKey collapses a value to its lowercase alphanumeric form for
// deduplication across the three candidate streams.
func productKey(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// cleanProductText strips leading qty/sku tokens and a trailing amount tail.
func cleanProductText(text string) string {
	text = leadingQtyRe.ReplaceAllString(text, "")
	text = leadingSkuRe.ReplaceAllString(text, "")
	text = trailingAmountRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// structuredRowCandidates parses lines matching the invoice-row shape
// (qty [unit] sku description amount [discount%] [amount]).
func structuredRowCandidates(lines []Line) []model.Candidate {
	var out []model.Candidate
	for _, l := range lines {
		m := itemRowRe.FindStringSubmatch(l.Text)
		if m == nil {
			continue
		}
		desc := strings.TrimSpace(m[3])
		desc = trailingAmountRe.ReplaceAllString(desc, "")
		if letterCount(desc) < 6 || len(desc) < 8 {
			continue
		}
		score := letterCount(desc) + 26
		if containsAny(strings.ToLower(desc), productBoostKeywords) {
			score += 6
		}
		out = append(out, model.Candidate{
			Value:  desc,
			Score:  score,
			Source: model.ProductItemLine,
		})
	}
	return out
}

// findProductHeader returns the index of the first item-table header line,
// or -1.
func findProductHeader(lines []Line) int {
	for _, l := range lines {
		if containsAny(strings.ToLower(l.Text), productHeaderKeywords) {
			return l.Index
		}
	}
	return -1
}

// tableCandidates parses up to 20 lines following the table header.
func tableCandidates(lines []Line, headerIdx int) []model.Candidate {
	if headerIdx < 0 {
		return nil
	}
	var out []model.Candidate
	end := headerIdx + 1 + 20
	for _, l := range lines {
		if l.Index <= headerIdx || l.Index >= end {
			continue
		}
		cleaned := cleanProductText(l.Text)
		if letterCount(cleaned) < 6 || len(cleaned) < 8 {
			continue
		}
		score := letterCount(cleaned) + 18
		if containsAny(strings.ToLower(cleaned), productBoostKeywords) {
			score += 8
		}
		if hasDigit(cleaned) {
			score++
		}
		out = append(out, model.Candidate{
			Value:  cleaned,
			Score:  score,
			Source: model.ProductTableLine,
		})
	}
	return out
}

// rejectFreeTextLine filters out lines that cannot be product descriptions:
// contact data, code dumps, financial rows, table headers used as labels.
func rejectFreeTextLine(text, lower string) bool {
	if containsAny(lower, blockedProductKeywords) {
		return true
	}
	if containsAny(lower, contactKeywords) {
		return true
	}
	if phoneRe.MatchString(lower) {
		return true
	}
	if codeTokenRe.MatchString(text) {
		return true
	}
	if containsAny(lower, productHeaderKeywords) {
		return true
	}
	return false
}

// freeTextCandidates scans prose lines for product-shaped text: after the
// table header when one exists, otherwise the document body below the
// address block.
func freeTextCandidates(lines []Line, headerIdx int, merchant string) []model.Candidate {
	start, end := freeTextSkipTop, freeTextNoHeaderEnd
	if headerIdx >= 0 {
		start, end = headerIdx+1, headerIdx+1+freeTextHeaderWindow
	}

	merchantLower := strings.ToLower(merchant)
	var out []model.Candidate
	for _, l := range lines {
		if l.Index < start || l.Index >= end {
			continue
		}
		lower := strings.ToLower(l.Text)
		if rejectFreeTextLine(l.Text, lower) {
			continue
		}

		score := 0
		if hasDigit(l.Text) && letterCount(l.Text) > 0 {
			score += 5
		}
		if containsAny(lower, productBoostKeywords) {
			score += 18
		}
		if strings.Contains(l.Text, ",") {
			score--
		}
		if merchantLower != "" && strings.Contains(lower, merchantLower) {
			score -= 4
		}
		if amountRe.MatchString(l.Text) {
			score--
		}
		if pathRe.MatchString(l.Text) && countDigits(l.Text) >= 4 {
			score -= 6
		}
		if strings.Contains(lower, "http") || strings.Contains(lower, "www.") || strings.Contains(l.Text, "@") {
			score -= 8
		}
		if strings.Contains(l.Text, "|") && countDigits(l.Text) >= 6 {
			score -= 12
		}

		cleaned := cleanProductText(l.Text)
		if len(cleaned) < 6 || len(strings.Fields(cleaned)) < 2 {
			continue
		}
		if score < freeTextMinScore {
			continue
		}
		out = append(out, model.Candidate{
			Value:  cleaned,
			Score:  score + 4,
			Source: model.ProductFreeText,
		})
	}
	return out
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// extractProduct merges the three candidate streams, deduplicates by
// normalized key keeping the highest score, and picks the winner (ties break
// toward the longer string).
func extractProduct(lines []Line, merchant string) ProductExtraction {
	headerIdx := findProductHeader(lines)

	var all []model.Candidate
	all = append(all, structuredRowCandidates(lines)...)
	all = append(all, tableCandidates(lines, headerIdx)...)
	all = append(all, freeTextCandidates(lines, headerIdx, merchant)...)

	best := make(map[string]model.Candidate, len(all))
	var order []string
	for _, c := range all {
		key := productKey(c.Value)
		if key == "" {
			continue
		}
		prev, seen := best[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || c.Score > prev.Score {
			best[key] = c
		}
	}

	candidates := make([]model.Candidate, 0, len(order))
	for _, key := range order {
		candidates = append(candidates, best[key])
	}

	if len(candidates) == 0 {
		return ProductExtraction{
			Value:  FallbackProduct,
			Source: model.ProductFallback,
			Candidates: []model.Candidate{
				{Value: FallbackProduct, Source: model.ProductFallback},
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
	return ProductExtraction{
		Value:      winner.Value,
		Score:      winner.Score,
		Source:     winner.Source,
		Candidates: candidates,
	}
}
