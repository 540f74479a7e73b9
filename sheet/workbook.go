package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// DefaultSheetName is the worksheet the entry surface lives on.
const DefaultSheetName = "Projects"

// ReportSheetName is where the validation report is written back.
const ReportSheetName = "Validation Report"

// DefaultFirstDataRow skips the header row.
const DefaultFirstDataRow = 2

// LoadGrid reads the entry-surface worksheet into a Grid anchored at
// absolute column 1. excelize hands rows back origin-aligned, so the grid's
// origin is the sheet's own first column; all schema columns stay absolute.
func LoadGrid(r io.Reader, sheetName string) (*Grid, *excelize.File, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %v", err)
	}

	grid, err := gridFromFile(f, sheetName)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return grid, f, nil
}

func gridFromFile(f *excelize.File, sheetName string) (*Grid, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %q: %v", sheetName, err)
	}
	if len(rows) < DefaultFirstDataRow {
		return NewGrid(1, DefaultFirstDataRow, nil)
	}

	data := make([][]any, 0, len(rows)-1)
	for _, row := range rows[DefaultFirstDataRow-1:] {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		data = append(data, cells)
	}
	return NewGrid(1, DefaultFirstDataRow, data)
}

// WorkbookSurface adapts an open workbook to the RowSurface the archive
// reconciliation deletes against.
type WorkbookSurface struct {
	file      *excelize.File
	sheetName string
}

func NewWorkbookSurface(f *excelize.File, sheetName string) *WorkbookSurface {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	return &WorkbookSurface{file: f, sheetName: sheetName}
}

func (w *WorkbookSurface) DataRows() []int {
	rows, err := w.file.GetRows(w.sheetName)
	if err != nil {
		return nil
	}
	out := []int{}
	for i := DefaultFirstDataRow; i <= len(rows); i++ {
		c := Coerce(w.CellValue(i, KeyColumn), FieldString)
		if c.Kind != CoercedNull {
			out = append(out, i)
		}
	}
	return out
}

func (w *WorkbookSurface) CellValue(row int, col Column) any {
	cell, err := excelize.CoordinatesToCellName(int(col), row)
	if err != nil {
		return nil
	}
	v, err := w.file.GetCellValue(w.sheetName, cell)
	if err != nil {
		return nil
	}
	return v
}

func (w *WorkbookSurface) DeleteRow(row int) error {
	return w.file.RemoveRow(w.sheetName, row)
}

// ReportWriter writes the validation outcome back onto the workbook: a
// report sheet listing every error plus a highlight on each offending row.
type ReportWriter struct {
	file      *excelize.File
	sheetName string
}

func NewReportWriter(f *excelize.File, dataSheetName string) *ReportWriter {
	if dataSheetName == "" {
		dataSheetName = DefaultSheetName
	}
	return &ReportWriter{file: f, sheetName: dataSheetName}
}

// ReportRow is one row of the written-back report. Defined here rather than
// importing the validation package so the adapter stays at the boundary.
type ReportRow struct {
	RowNumber int
	Category  string
	Message   string
}

func (rw *ReportWriter) Write(rows []ReportRow) error {
	idx, err := rw.file.GetSheetIndex(ReportSheetName)
	if err == nil && idx >= 0 {
		rw.file.DeleteSheet(ReportSheetName)
	}
	if _, err := rw.file.NewSheet(ReportSheetName); err != nil {
		return fmt.Errorf("unable to create report sheet: %v", err)
	}

	headers := []string{"Row", "Category", "Message"}
	for j, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(j+1, 1)
		if err := rw.file.SetCellValue(ReportSheetName, cell, h); err != nil {
			return err
		}
	}

	highlight, err := rw.file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	})
	if err != nil {
		return err
	}

	lastCol := int(CostBlockStart) + len(Scenarios)*CostYears*3 - 1
	for i, row := range rows {
		for j, v := range []any{row.RowNumber, row.Category, row.Message} {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := rw.file.SetCellValue(ReportSheetName, cell, v); err != nil {
				return err
			}
		}

		first, _ := excelize.CoordinatesToCellName(1, row.RowNumber)
		last, _ := excelize.CoordinatesToCellName(lastCol, row.RowNumber)
		if err := rw.file.SetCellStyle(rw.sheetName, first, last, highlight); err != nil {
			return err
		}
	}
	return nil
}
