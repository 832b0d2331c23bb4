package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter writes a report to an Excel workbook.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates a writer that replaces the workbook at path on every write.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) Write(_ context.Context, r Report) error {
	f, err := buildWorkbook(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", w.path, err)
	}
	return nil
}

// WriteXLSX writes a report as a workbook to out.
func WriteXLSX(out io.Writer, r Report) error {
	f, err := buildWorkbook(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func buildWorkbook(r Report) (*excelize.File, error) {
	f := excelize.NewFile()
	const defaultSheet = "Sheet1"

	for i, sheet := range r.Sheets() {
		idx, err := f.NewSheet(sheet.Name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("creating sheet %s: %w", sheet.Name, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		if err := writeRows(f, sheet); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := f.DeleteSheet(defaultSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet Sheet) error {
	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing %s row %d: %w", sheet.Name, i+1, err)
		}
		if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet.Name, i+1, err)
		}
	}
	if len(sheet.Rows) > 0 {
		if err := f.SetPanes(sheet.Name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("freezing %s header: %w", sheet.Name, err)
		}
	}
	return nil
}
