package backup

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/returnguard/returnguard/internal/model"
)

var xlsxHeader = []string{
	"Produkt", "Haendler", "Kaufdatum", "Rueckgabe bis", "Garantie bis",
	"Preis (EUR)", "Notizen", "Archiviert",
}

// WriteXLSX renders the purchases as a single-sheet XLSX report.
func WriteXLSX(w io.Writer, items []model.Purchase) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Einkaeufe")
	if err != nil {
		return eris.Wrap(err, "backup: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().Value = h
	}

	for i := range items {
		p := &items[i]
		row := sheet.AddRow()
		row.AddCell().Value = p.ProductName
		row.AddCell().Value = p.Merchant
		row.AddCell().Value = p.PurchaseDate().Format("2006-01-02")

		returnCell := row.AddCell()
		if p.ReturnDays > 0 {
			returnCell.Value = model.DayToTime(p.ReturnDueDay()).Format("2006-01-02")
		}
		warrantyCell := row.AddCell()
		if p.WarrantyMonths > 0 {
			warrantyCell.Value = p.WarrantyDue().Format("2006-01-02")
		}

		row.AddCell().Value = p.PriceLabel()
		row.AddCell().Value = p.Notes
		archivedCell := row.AddCell()
		if p.Archived {
			archivedCell.Value = "ja"
		} else {
			archivedCell.Value = "nein"
		}
	}

	return eris.Wrap(f.Write(w), "backup: write xlsx")
}
