// Package backup exports and imports the full purchase set as versioned JSON
// and renders XLSX reports.
package backup

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/returnguard/returnguard/internal/model"
	"github.com/returnguard/returnguard/internal/store"
)

// FallbackName replaces blank product names during import.
const FallbackName = "Unbenannt"

// Export collects every purchase, archived included, into a backup file.
func Export(ctx context.Context, st store.Store, now func() time.Time) (*model.BackupFile, error) {
	items, err := st.ListPurchases(ctx, store.ListFilter{IncludeArchived: true})
	if err != nil {
		return nil, eris.Wrap(err, "backup: list purchases")
	}

	file := &model.BackupFile{
		Version:      model.BackupVersion,
		ExportedAtMs: now().UnixMilli(),
		Items:        make([]model.BackupItem, 0, len(items)),
	}
	for i := range items {
		file.Items = append(file.Items, items[i].ToBackupItem())
	}
	return file, nil
}

// WriteJSON writes the backup file as indented JSON.
func WriteJSON(w io.Writer, file *model.BackupFile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(file), "backup: encode json")
}

// Import parses a backup and replaces the entire purchase set with its
// items. Returns the number of imported purchases.
func Import(ctx context.Context, st store.Store, r io.Reader) (int, error) {
	var file model.BackupFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		return 0, eris.Wrap(err, "backup: decode json")
	}
	if file.Version < 1 || file.Version > model.BackupVersion {
		return 0, eris.Errorf("backup: unsupported version %d", file.Version)
	}

	items := sanitizeItems(file.Items)
	if err := st.ReplaceAll(ctx, items); err != nil {
		return 0, eris.Wrap(err, "backup: replace purchases")
	}

	zap.L().Info("backup: imported purchases", zap.Int("count", len(items)))
	return len(items), nil
}

// sanitizeItems repairs imported records: blank and duplicate ids get fresh
// UUIDs, blank names a placeholder, and negative durations are clamped.
func sanitizeItems(raw []model.BackupItem) []model.Purchase {
	now := time.Now().UnixMilli()
	seen := make(map[string]bool, len(raw))
	out := make([]model.Purchase, 0, len(raw))
	for _, item := range raw {
		id := strings.TrimSpace(item.ID)
		if id == "" || seen[id] {
			id = uuid.New().String()
		}
		seen[id] = true

		name := strings.TrimSpace(item.ProductName)
		if name == "" {
			name = FallbackName
		}

		p := model.Purchase{
			ID:             id,
			ProductName:    name,
			Merchant:       strings.TrimSpace(item.Merchant),
			PurchaseDay:    item.PurchaseDay,
			ReturnDays:     item.ReturnDays,
			WarrantyMonths: item.WarrantyMonths,
			Notes:          item.Notes,
			Archived:       item.Archived,
			CreatedAtMs:    item.CreatedAtMs,
			UpdatedAtMs:    item.UpdatedAtMs,
		}
		if p.ReturnDays < 0 {
			p.ReturnDays = 0
		}
		if p.WarrantyMonths < 0 {
			p.WarrantyMonths = 0
		}
		if item.PriceCents != nil && *item.PriceCents >= 0 {
			v := *item.PriceCents
			p.PriceCents = &v
		}
		if p.CreatedAtMs <= 0 {
			p.CreatedAtMs = now
		}
		if p.UpdatedAtMs <= 0 {
			p.UpdatedAtMs = now
		}
		out = append(out, p)
	}
	return out
}
