package extract

import (
	"math"
	"time"

	"github.com/returnguard/returnguard/internal/model"
)

// Confidence percentages live in [percentFloor, percentCeil]. Each candidate
// source carries its own raw-score band; the band maps linearly onto the
// percent range so a structured item row and a free-text guess with the same
// raw score still land apart.
const (
	percentFloor = 15
	percentCeil  = 98
)

// Fixed percentages for sources whose raw score carries no gradation.
const (
	merchantCanonicalPercent = 92
	merchantFallbackPercent  = 20
	productFallbackPercent   = 18
	dateFallbackPercent      = 15
	priceLargeFallbackBase   = 50
	priceEmptyFallback       = 10
)

// Field-specific clamps and adjustment constants.
const (
	dateMinPercent  = 12
	dateMaxPercent  = 98
	priceMinPercent = 10
	priceMaxPercent = 98

	datePlausibleFloor    = 60
	dateHintedFloor       = 78
	dateStalePenalty      = 18
	dateAgreementBonus    = 12
	dateFewCandidateBonus = 8

	priceKeywordBonus    = 3
	priceAgreementFloor  = 70
	priceSupportedFloor  = 78
	priceHasKeywordBonus = 5
)

// Overall weights. Product dominates because it is what the user must fix
// when wrong; price carries more than merchant/date because a wrong amount
// is the costliest silent error.
const (
	weightProduct  = 0.35
	weightMerchant = 0.20
	weightDate     = 0.20
	weightPrice    = 0.25
)

const (
	levelHighMin   = 80
	levelMediumMin = 60
)

// scoreBand maps a source's raw-score range linearly onto the percent range.
type scoreBand struct {
	minScore int
	maxScore int
}

var sourceBands = map[string]scoreBand{
	model.ProductItemLine:   {14, 30},
	model.ProductTableLine:  {10, 26},
	model.ProductFreeText:   {5, 16},
	model.MerchantCandidate: {4, 16},
	model.PriceStrongTotal:  {8, 14},
	model.PriceWeakTotal:    {4, 10},
	model.DateHinted:        {6, 12},
	model.DateGeneric:       {2, 8},
}

func (b scoreBand) percent(score int) int {
	if score < b.minScore {
		score = b.minScore
	}
	if score > b.maxScore {
		score = b.maxScore
	}
	span := b.maxScore - b.minScore
	if span == 0 {
		return percentCeil
	}
	frac := float64(score-b.minScore) / float64(span)
	return percentFloor + int(math.Round(frac*float64(percentCeil-percentFloor)))
}

func clampPercent(p, lo, hi int) int {
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}

func merchantConfidence(ex MerchantExtraction) model.FieldConfidence {
	var percent int
	switch ex.Source {
	case model.MerchantCanonicalMatch:
		percent = merchantCanonicalPercent
	case model.MerchantFallback:
		percent = merchantFallbackPercent
	default:
		percent = sourceBands[model.MerchantCandidate].percent(ex.Score)
	}
	return model.FieldConfidence{Percent: percent, Source: ex.Source}
}

func productConfidence(ex ProductExtraction) model.FieldConfidence {
	if ex.Source == model.ProductFallback {
		return model.FieldConfidence{Percent: productFallbackPercent, Source: ex.Source}
	}
	band, ok := sourceBands[ex.Source]
	if !ok {
		band = sourceBands[model.ProductFreeText]
	}
	return model.FieldConfidence{Percent: band.percent(ex.Score), Source: ex.Source}
}

// dateConfidence adjusts the band percent by plausibility: a date within the
// receipt-typical range gets a floor, a very old date a penalty, agreement
// across candidates a bonus.
func dateConfidence(ex DateExtraction, today time.Time) model.FieldConfidence {
	if ex.Source == model.DateFallbackToday {
		return model.FieldConfidence{Percent: dateFallbackPercent, Source: ex.Source}
	}

	band := sourceBands[model.DateGeneric]
	if ex.Source == model.DateHinted {
		band = sourceBands[model.DateHinted]
	}
	percent := band.percent(ex.Score)

	today = today.UTC().Truncate(24 * time.Hour)
	plausible := !ex.Date.After(today.AddDate(0, 0, 7)) &&
		ex.Date.Year() >= 2000 && ex.Date.Year() <= today.Year()
	if plausible && percent < datePlausibleFloor {
		percent = datePlausibleFloor
	}
	if ex.Date.Before(today.AddDate(-7, 0, 0)) {
		percent -= dateStalePenalty
	}
	if ex.Agreement >= 2 {
		percent += dateAgreementBonus
	}
	if ex.Total <= 3 {
		percent += dateFewCandidateBonus
	}
	if ex.Source == model.DateHinted && percent < dateHintedFloor {
		percent = dateHintedFloor
	}
	return model.FieldConfidence{
		Percent: clampPercent(percent, dateMinPercent, dateMaxPercent),
		Source:  ex.Source,
	}
}

func priceConfidence(ex AmountExtraction) model.FieldConfidence {
	var percent int
	switch ex.Source {
	case model.PriceFallbackEmpty:
		return model.FieldConfidence{Percent: priceEmptyFallback, Source: ex.Source}
	case model.PriceLargeFallback:
		percent = priceLargeFallbackBase
		if ex.Agreement >= 2 && percent < priceAgreementFloor {
			percent = priceAgreementFloor
		}
		if ex.KeywordSupported && percent < priceSupportedFloor {
			percent = priceSupportedFloor
		}
		if ex.HasKeywordCandidate {
			percent += priceHasKeywordBonus
		}
	default:
		percent = sourceBands[ex.Source].percent(ex.Score) + priceKeywordBonus
	}
	return model.FieldConfidence{
		Percent: clampPercent(percent, priceMinPercent, priceMaxPercent),
		Source:  ex.Source,
	}
}

// overallConfidence folds the four field percentages into the weighted
// overall score and its level.
func overallConfidence(product, merchant, date, price model.FieldConfidence) model.ReceiptConfidence {
	overall := int(math.Round(
		weightProduct*float64(product.Percent) +
			weightMerchant*float64(merchant.Percent) +
			weightDate*float64(date.Percent) +
			weightPrice*float64(price.Percent),
	))
	overall = clampPercent(overall, 0, 100)

	level := model.ConfidenceLow
	switch {
	case overall >= levelHighMin:
		level = model.ConfidenceHigh
	case overall >= levelMediumMin:
		level = model.ConfidenceMedium
	}

	return model.ReceiptConfidence{
		OverallPercent: overall,
		Level:          level,
		Fields: map[string]model.FieldConfidence{
			model.FieldProduct:  product,
			model.FieldMerchant: merchant,
			model.FieldDate:     date,
			model.FieldPrice:    price,
		},
	}
}
