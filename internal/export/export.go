// Package export renders items and records as XLSX workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/evidenca/internal/model"
)

// ContentType is the MIME type of the produced workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var itemHeader = []any{
	"ID", "Name", "Model", "Category", "Origin", "Location", "Date",
	"Store", "Use", "Faulty (store)", "Faulty (use)", "Transfer", "Total",
}

var recordHeader = []any{
	"ID", "Date", "Item", "Model", "Category", "Kind", "Quantity",
	"Purpose", "Location", "Status", "Requested by", "Created",
}

// WriteItems writes one sheet listing items with their buckets.
func WriteItems(w io.Writer, block string, items []model.Item) error {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		q := it.Quantity
		rows = append(rows, []any{
			it.ID, it.Name, it.Model, it.Category, it.Origin, it.Location, it.Date,
			q.Store, q.Use, q.FaultyStore, q.FaultyUse, q.Transfer, it.Total,
		})
	}
	return write(w, "Items "+block, itemHeader, rows)
}

// WriteRecords writes one sheet listing adjustment records.
func WriteRecords(w io.Writer, block string, records []model.Record) error {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.ID, r.Date, r.ItemName, r.Model, r.Category, string(r.Kind), r.Amount,
			r.Purpose, r.Location, string(r.Status), r.RequestedByName,
			r.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return write(w, "Records "+block, recordHeader, rows)
}

func write(w io.Writer, sheet string, header []any, rows [][]any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
