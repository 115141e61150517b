package extract

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/returnguard/returnguard/internal/model"
)

// DraftNote is prepended to every generated draft.
const DraftNote = "OCR-Entwurf automatisch erstellt. Bitte Werte pruefen."

// Fields below this confidence are flagged as uncertain in the draft note.
const uncertainPercent = 60

// Drafts carry at most this many candidates per field in debug output.
const debugCandidateLimit = 8

// Engine turns raw OCR text into a purchase draft. It is safe for concurrent
// use; NewEngine falls back to the embedded merchant dictionary and
// wall-clock time.
type Engine struct {
	merchants *Merchants
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithMerchants sets the known-merchant dictionary.
func WithMerchants(m *Merchants) Option {
	return func(e *Engine) { e.merchants = m }
}

// WithNow overrides the clock, used by tests and deterministic replays.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an extraction engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.merchants == nil {
		e.merchants = DefaultMerchants()
	}
	return e
}

// BuildDraft runs the four field extractors over the raw OCR text and
// assembles a draft. The merchant runs first because the product extractor
// penalizes lines repeating the merchant name; the remaining extractors run
// concurrently.
func (e *Engine) BuildDraft(ctx context.Context, rawText string) model.Draft {
	lines := NormalizeLines(rawText)
	today := e.now().UTC()

	merchant := extractMerchant(lines, e.merchants)

	var (
		product ProductExtraction
		date    DateExtraction
		amount  AmountExtraction
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		product = extractProduct(lines, merchant.Value)
		return nil
	})
	g.Go(func() error {
		date = extractDate(lines, today)
		return nil
	})
	g.Go(func() error {
		amount = extractAmount(lines)
		return nil
	})
	_ = g.Wait()

	productConf := productConfidence(product)
	merchantConf := merchantConfidence(merchant)
	dateConf := dateConfidence(date, today)
	priceConf := priceConfidence(amount)
	confidence := overallConfidence(productConf, merchantConf, dateConf, priceConf)

	priceInput := ""
	if amount.Source != model.PriceFallbackEmpty {
		priceInput = amount.Display
	}

	draft := model.Draft{
		ProductName:     product.Value,
		Merchant:        merchant.Value,
		PurchaseDateISO: date.Date.Format("2006-01-02"),
		PriceInput:      priceInput,
		ReturnDays:      model.DefaultReturnDays,
		WarrantyMonths:  model.DefaultWarrantyMonths,
		Notes:           buildNote(confidence),
		Confidence:      confidence,
		Debug: model.DraftDebug{
			RawText:  rawText,
			Merchant: truncateCandidates(merchant.Candidates),
			Product:  truncateCandidates(product.Candidates),
			Date:     truncateCandidates(date.Candidates),
			Price:    truncateCandidates(amount.Candidates),
		},
	}

	zap.L().Debug("extract: draft built",
		zap.String("product", draft.ProductName),
		zap.String("merchant", draft.Merchant),
		zap.String("date", draft.PurchaseDateISO),
		zap.String("price", draft.PriceInput),
		zap.Int("overall", confidence.OverallPercent),
		zap.String("level", string(confidence.Level)),
	)
	return draft
}

// buildNote renders the draft note, listing fields whose confidence is below
// the uncertainty threshold.
func buildNote(conf model.ReceiptConfidence) string {
	labels := []struct {
		field string
		label string
	}{
		{model.FieldProduct, "Produkt"},
		{model.FieldMerchant, "Haendler"},
		{model.FieldDate, "Datum"},
		{model.FieldPrice, "Preis"},
	}

	var uncertain []string
	for _, l := range labels {
		if fc, ok := conf.Fields[l.field]; ok && fc.Percent < uncertainPercent {
			uncertain = append(uncertain, l.label)
		}
	}
	if len(uncertain) == 0 {
		return DraftNote
	}
	return DraftNote + " Unsicher: " + strings.Join(uncertain, ", ") + "."
}

func truncateCandidates(cands []model.Candidate) []model.Candidate {
	if len(cands) <= debugCandidateLimit {
		return cands
	}
	return cands[:debugCandidateLimit]
}
