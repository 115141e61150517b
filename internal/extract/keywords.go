// Package extract implements the receipt-text-to-draft extraction engine:
// four heuristic field extractors over normalized OCR lines, a confidence
// scorer, and the draft assembler.
package extract

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// The keyword tables below are tuning data, not logic. They are matched
// against lowercased lines.

// dateHintKeywords mark a line as carrying the purchase date.
var dateHintKeywords = []string{
	"datum",
	"rechnungsdatum",
	"belegdatum",
	"kaufdatum",
	"invoice date",
}

// nonPurchaseDateKeywords mark dates that are not the purchase date
// (delivery, due, payment).
var nonPurchaseDateKeywords = []string{
	"versand",
	"liefer",
	"faellig",
	"zahlung",
}

// strongTotalKeywords identify the grand-total line of a receipt.
var strongTotalKeywords = []string{
	"gesamtsumme",
	"gesamtbetrag",
	"summe (eur)",
	"zu zahlen",
	"total",
	"endbetrag",
}

// weakTotalKeywords loosely suggest a total line.
var weakTotalKeywords = []string{
	"summe",
	"gesamt",
	"betrag",
	"zahlung",
	"bankeingang",
}

// subtotalKeywords mark intermediate amounts (net, tax, discount, shipping).
var subtotalKeywords = []string{
	"zwischensumme",
	"nettobetrag",
	"nettosumme",
	"mwst",
	"mehrwertsteuer",
	"ust",
	"rabatt",
	"versand",
	"zustellung",
}

// companyHintKeywords mark company-form suffixes and shop words.
var companyHintKeywords = []string{
	"gmbh",
	"ag",
	"kg",
	"e.u.",
	"e.u",
	"inc",
	"ltd",
	"llc",
	"maschinen",
	"shop",
}

// blockedMerchantKeywords mark administrative lines that never name the
// merchant.
var blockedMerchantKeywords = []string{
	"rechnung",
	"datum",
	"seite",
	"uid",
	"iban",
	"artikel",
	"anzahl",
	"summe",
	"kunden",
}

// productHeaderKeywords mark the header row of an item table.
var productHeaderKeywords = []string{
	"artikelbeschreibung",
	"bezeichnung",
	"position",
	"produkt",
	"item",
}

// blockedProductKeywords exclude financial/administrative lines from product
// candidates.
var blockedProductKeywords = []string{
	"gesamtsumme",
	"zwischensumme",
	"nettobetrag",
	"nettosumme",
	"mehrwertsteuer",
	"mwst",
	"uid",
	"iban",
	"rechnung",
	"adresse",
	"versand",
	"zahlung",
	"www.",
}

// productBoostKeywords raise candidates that look like actual goods.
var productBoostKeywords = []string{
	"akku",
	"aktion",
	"maschine",
	"geraet",
	"gerät",
	"profi",
	"set",
	"werkzeug",
}

// contactKeywords exclude address/contact lines from free-text product
// candidates.
var contactKeywords = []string{
	"tel.",
	"tel:",
	"telefon",
	"fax",
	"e-mail",
	"email",
	"strasse",
	"straße",
	"gasse",
	"platz",
	"postfach",
}

const (
	amountToken = `\d{1,3}(?:[.\s]\d{3})+,\d{2}|\d+[.,]\d{2}`
	skuToken    = `[A-Z0-9][A-Z0-9-]{3,}`
)

var (
	dateRe = regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](\d{4}|\d{2})\b`)

	amountRe = regexp.MustCompile(amountToken)

	// itemRowRe matches a structured invoice row:
	// qty [unit] sku description amount [discount%] [amount].
	itemRowRe = regexp.MustCompile(
		`^(\d{1,4})(?:\s+(?:x|stk\.?|st|pcs))?\s+(` + skuToken + `)\s+(.+?)\s+(` + amountToken + `)(?:\s+(\d{1,2}(?:[.,]\d{1,2})?)\s?%)?(?:\s+(` + amountToken + `))?$`,
	)

	// itemRowLooseRe detects per-item table rows for the amount extractor's
	// row penalty: qty, sku, and two trailing amounts.
	itemRowLooseRe = regexp.MustCompile(
		`^\d{1,4}\s+` + skuToken + `\s+.*(` + amountToken + `)\s+.*(` + amountToken + `)\s*$`,
	)

	// leadingQtyRe and leadingSkuRe strip row prefixes from product text.
	leadingQtyRe = regexp.MustCompile(`^\d+\s+`)
	leadingSkuRe = regexp.MustCompile(`^[A-Z0-9-]{4,}\s+`)

	// trailingAmountRe strips a tail of amounts and discount percentages.
	trailingAmountRe = regexp.MustCompile(`(?:\s+(?:(?:` + amountToken + `)|\d{1,3}(?:[.,]\d{1,2})?\s?%))+$`)

	// phoneRe matches phone-shaped digit runs.
	phoneRe = regexp.MustCompile(`(?:\+|0)\d[\d\s/-]{6,}`)

	// codeTokenRe matches code-like tokens (long upper/digit mixes).
	codeTokenRe = regexp.MustCompile(`\b[A-Z0-9]{8,}\b`)

	// pathRe matches path-like strings used by the free-text penalty.
	pathRe = regexp.MustCompile(`[/\\][^\s]+[/\\]`)
)

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// defaultMerchantNames seeds the known-merchant dictionary when no merchants
// file is configured.
var defaultMerchantNames = []string{
	"Haas Maschinen",
}

// DefaultMerchants returns the embedded known-merchant dictionary.
func DefaultMerchants() *Merchants {
	return NewMerchants(defaultMerchantNames)
}

// Merchants is the configurable known-merchant dictionary. A receipt line
// fuzzily matching one of the canonical names is snapped to it.
type Merchants struct {
	names    []string
	patterns []*regexp.Regexp
}

// NewMerchants builds fuzzy patterns for the given canonical names: the
// letters of each name in order, with optional non-alphanumeric separators
// between them, so OCR character splitting ("H A A S") still matches.
func NewMerchants(names []string) *Merchants {
	m := &Merchants{}
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		m.names = append(m.names, trimmed)
		m.patterns = append(m.patterns, fuzzyPattern(trimmed))
	}
	return m
}

func fuzzyPattern(name string) *regexp.Regexp {
	var parts []string
	for _, r := range name {
		if r == ' ' {
			continue
		}
		parts = append(parts, regexp.QuoteMeta(string(r)))
	}
	return regexp.MustCompile(`(?i)` + strings.Join(parts, `[^a-zA-Z0-9]{0,2}`))
}

// Match returns the canonical name the line fuzzily matches, or "".
func (m *Merchants) Match(line string) string {
	if m == nil {
		return ""
	}
	for i, re := range m.patterns {
		if re.MatchString(line) {
			return m.names[i]
		}
	}
	return ""
}

// LoadMerchants reads a known-merchant dictionary from a YAML file of the
// form {merchants: [name, ...]}.
func LoadMerchants(path string) (*Merchants, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read merchants %s", path)
	}
	var wrapper struct {
		Merchants []string `yaml:"merchants"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "extract: parse merchants")
	}
	return NewMerchants(wrapper.Merchants), nil
}
