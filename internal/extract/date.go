package extract

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/returnguard/returnguard/internal/model"
)

// Two-digit years at or below this pivot belong to the 2000s.
const twoDigitYearPivot = 69

// DateExtraction is the date extractor result. Agreement counts the other
// candidates sharing the winning date; Total is the full candidate count.
type DateExtraction struct {
	Date       time.Time
	Score      int
	Source     string
	Agreement  int
	Total      int
	Candidates []model.Candidate
}

type dateCandidate struct {
	date   time.Time
	score  int
	hinted bool
}

// parseDateToken validates a D/M/Y token as a real calendar date. Two-digit
// years pivot at 69/70 (24 -> 2024, 99 -> 1999).
func parseDateToken(dayRaw, monthRaw, yearRaw string) (time.Time, bool) {
	day, err := strconv.Atoi(dayRaw)
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(monthRaw)
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		return time.Time{}, false
	}
	if len(yearRaw) == 2 {
		if year <= twoDigitYearPivot {
			year += 2000
		} else {
			year += 1900
		}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != time.Month(month) || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

// extractDate scans every line for D/M/Y tokens and scores them by position,
// hint keywords, and plausibility. Ties break toward the latest date.
func extractDate(lines []Line, today time.Time) DateExtraction {
	today = today.UTC().Truncate(24 * time.Hour)
	futureLimit := today.AddDate(0, 0, 7)

	var cands []dateCandidate
	for _, l := range lines {
		lower := strings.ToLower(l.Text)
		hinted := containsAny(lower, dateHintKeywords)
		for _, m := range dateRe.FindAllStringSubmatch(l.Text, -1) {
			parsed, ok := parseDateToken(m[1], m[2], m[3])
			if !ok {
				continue
			}
			score := 1
			if l.Index < 35 {
				score++
			}
			if hinted {
				score += 10
			}
			if containsAny(lower, nonPurchaseDateKeywords) {
				score -= 4
			}
			if parsed.After(futureLimit) {
				score -= 6
			}
			if parsed.Year() < 2000 {
				score -= 2
			}
			cands = append(cands, dateCandidate{date: parsed, score: score, hinted: hinted})
		}
	}

	if len(cands) == 0 {
		return DateExtraction{
			Date:   today,
			Source: model.DateFallbackToday,
			Candidates: []model.Candidate{
				{Value: today.Format("2006-01-02"), Source: model.DateFallbackToday},
			},
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].date.After(cands[j].date)
	})

	winner := cands[0]
	source := model.DateGeneric
	if winner.hinted {
		source = model.DateHinted
	}

	agreement := 0
	candidates := make([]model.Candidate, 0, len(cands))
	for i, c := range cands {
		tag := model.DateGeneric
		if c.hinted {
			tag = model.DateHinted
		}
		candidates = append(candidates, model.Candidate{
			Value:  c.date.Format("2006-01-02"),
			Score:  c.score,
			Source: tag,
		})
		if i > 0 && c.date.Equal(winner.date) {
			agreement++
		}
	}

	return DateExtraction{
		Date:       winner.date,
		Score:      winner.score,
		Source:     source,
		Agreement:  agreement,
		Total:      len(cands),
		Candidates: candidates,
	}
}
