package model

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Default draft proposal windows, in days and months.
const (
	DefaultReturnDays     = 14
	DefaultWarrantyMonths = 24
)

// Purchase is a saved purchase record with its return and warranty windows.
// PurchaseDate is persisted as an epoch day so date arithmetic stays exact
// across time zones.
type Purchase struct {
	ID             string `json:"id"`
	ProductName    string `json:"product_name"`
	Merchant       string `json:"merchant"`
	PurchaseDay    int64  `json:"purchase_date_epoch_day"`
	ReturnDays     int    `json:"return_days"`
	WarrantyMonths int    `json:"warranty_months"`
	PriceCents     *int64 `json:"price_cents,omitempty"`
	Notes          string `json:"notes"`
	Archived       bool   `json:"archived"`
	CreatedAtMs    int64  `json:"created_at_millis"`
	UpdatedAtMs    int64  `json:"updated_at_millis"`
}

// EpochDay converts a time to its epoch-day number in UTC.
func EpochDay(t time.Time) int64 {
	return t.UTC().Truncate(24*time.Hour).Unix() / 86400
}

// DayToTime converts an epoch-day number back to a UTC midnight time.
func DayToTime(day int64) time.Time {
	return time.Unix(day*86400, 0).UTC()
}

// PurchaseDate returns the purchase date as a UTC midnight time.
func (p Purchase) PurchaseDate() time.Time {
	return DayToTime(p.PurchaseDay)
}

// ReturnDueDay is the last epoch day on which the item can be returned.
func (p Purchase) ReturnDueDay() int64 {
	return p.PurchaseDay + int64(p.ReturnDays)
}

// WarrantyDue is the calendar date the warranty expires.
func (p Purchase) WarrantyDue() time.Time {
	return p.PurchaseDate().AddDate(0, p.WarrantyMonths, 0)
}

// DaysLeft returns the number of days from today until the return deadline.
// Negative values mean the window has passed.
func (p Purchase) DaysLeft(now time.Time) int {
	return int(p.ReturnDueDay() - EpochDay(now))
}

var germanPrinter = message.NewPrinter(language.German)

// PriceLabel formats the price in German locale grouping ("1.234,56 EUR"),
// or "-" when no price is recorded.
func (p Purchase) PriceLabel() string {
	if p.PriceCents == nil {
		return "-"
	}
	return germanPrinter.Sprintf("%.2f EUR", float64(*p.PriceCents)/100)
}

// BackupFile is the on-disk JSON backup contract for the full dataset.
type BackupFile struct {
	Version      int          `json:"version"`
	ExportedAtMs int64        `json:"exportedAtMillis"`
	Items        []BackupItem `json:"items"`
}

// BackupVersion is the current backup file format version.
const BackupVersion = 1

// BackupItem mirrors Purchase in the backup JSON field naming.
type BackupItem struct {
	ID             string `json:"id"`
	ProductName    string `json:"productName"`
	Merchant       string `json:"merchant"`
	PurchaseDay    int64  `json:"purchaseDateEpochDay"`
	ReturnDays     int    `json:"returnDays"`
	WarrantyMonths int    `json:"warrantyMonths"`
	PriceCents     *int64 `json:"priceCents"`
	Notes          string `json:"notes"`
	Archived       bool   `json:"archived"`
	CreatedAtMs    int64  `json:"createdAtMillis"`
	UpdatedAtMs    int64  `json:"updatedAtMillis"`
}

// ToBackupItem converts a Purchase to its backup representation.
func (p Purchase) ToBackupItem() BackupItem {
	return BackupItem{
		ID:             p.ID,
		ProductName:    p.ProductName,
		Merchant:       p.Merchant,
		PurchaseDay:    p.PurchaseDay,
		ReturnDays:     p.ReturnDays,
		WarrantyMonths: p.WarrantyMonths,
		PriceCents:     p.PriceCents,
		Notes:          p.Notes,
		Archived:       p.Archived,
		CreatedAtMs:    p.CreatedAtMs,
		UpdatedAtMs:    p.UpdatedAtMs,
	}
}
