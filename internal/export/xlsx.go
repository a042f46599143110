package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const xlsxColumnWidth = 22

// XLSXWriter writes reports as a multi-sheet Excel workbook.
type XLSXWriter struct{}

// Ext implements Writer.
func (XLSXWriter) Ext() string { return "xlsx" }

// Write implements Writer. Each table becomes one sheet, in report order.
func (XLSXWriter) Write(path string, r Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	defaultSheet := f.GetSheetName(0)
	for i, t := range r.Tables {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.Name); err != nil {
				return fmt.Errorf("naming sheet %s: %w", t.Name, err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("adding sheet %s: %w", t.Name, err)
		}

		if err := writeSheet(f, t, headerStyle); err != nil {
			return fmt.Errorf("writing sheet %s: %w", t.Name, err)
		}
	}
	f.SetActiveSheet(0)

	return replaceFile(path, ".agent_metrics-*.xlsx", func(tmp string) error {
		if err := f.SaveAs(tmp); err != nil {
			return fmt.Errorf("saving workbook: %w", err)
		}
		return nil
	})
}

func writeSheet(f *excelize.File, t Table, headerStyle int) error {
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(t.Name, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
			return err
		}
	}

	if len(t.Columns) > 0 {
		last, err := excelize.ColumnNumberToName(len(t.Columns))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(t.Name, "A", last, xlsxColumnWidth); err != nil {
			return err
		}
	}
	return nil
}

func readXLSX(path string) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %s: %w", name, err)
		}
		s := Sheet{Name: name}
		if len(rows) > 0 {
			s.Header = rows[0]
			s.Rows = rows[1:]
		}
		sheets = append(sheets, s)
	}
	return sheets, nil
}
