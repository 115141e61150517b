package model

// Candidate is one scored hypothesis for a field's value. Candidates are
// retained in ranked order for debugging even when not chosen.
type Candidate struct {
	Value  string `json:"value"`
	Score  int    `json:"score"`
	Source string `json:"source"`
}

// Merchant source tags.
const (
	MerchantCanonicalMatch = "CANONICAL_MATCH"
	MerchantCandidate      = "CANDIDATE"
	MerchantFallback       = "FALLBACK"
)

// Product source tags.
const (
	ProductItemLine  = "ITEM_LINE"
	ProductTableLine = "TABLE_LINE"
	ProductFreeText  = "FREE_TEXT"
	ProductFallback  = "FALLBACK"
)

// Date source tags.
const (
	DateHinted        = "HINTED_CANDIDATE"
	DateGeneric       = "GENERIC_CANDIDATE"
	DateFallbackToday = "FALLBACK_TODAY"
)

// Price source tags.
const (
	PriceStrongTotal   = "STRONG_TOTAL"
	PriceWeakTotal     = "WEAK_TOTAL"
	PriceLargeFallback = "LARGE_FALLBACK"
	PriceFallbackEmpty = "FALLBACK_EMPTY"
)

// ConfidenceLevel buckets the overall confidence for user-facing warnings.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// FieldConfidence is the calibrated 0-100 confidence for a single draft field
// together with the source tag that produced the winning candidate.
type FieldConfidence struct {
	Percent int    `json:"percent"`
	Source  string `json:"source"`
}

// ReceiptConfidence aggregates the four field confidences into an overall
// percent and a coarse level.
type ReceiptConfidence struct {
	OverallPercent int                        `json:"overall_percent"`
	Level          ConfidenceLevel            `json:"level"`
	Fields         map[string]FieldConfidence `json:"fields"`
}

// Field names used as keys in ReceiptConfidence.Fields and DraftDebug.
const (
	FieldProduct  = "product"
	FieldMerchant = "merchant"
	FieldDate     = "date"
	FieldPrice    = "price"
)

// DraftDebug carries the raw input and the ranked candidate trail per field,
// truncated for display.
type DraftDebug struct {
	RawText  string      `json:"raw_text"`
	Merchant []Candidate `json:"merchant"`
	Product  []Candidate `json:"product"`
	Date     []Candidate `json:"date"`
	Price    []Candidate `json:"price"`
}

// Draft is the structured, user-reviewable proposal produced from OCR text
// before it becomes a saved purchase. It lives only until the user accepts or
// discards it.
type Draft struct {
	ProductName     string            `json:"product_name"`
	Merchant        string            `json:"merchant"`
	PurchaseDateISO string            `json:"purchase_date"`
	PriceInput      string            `json:"price_input"`
	ReturnDays      int               `json:"return_days"`
	WarrantyMonths  int               `json:"warranty_months"`
	Notes           string            `json:"notes"`
	Confidence      ReceiptConfidence `json:"confidence"`
	Debug           DraftDebug        `json:"debug"`
}
