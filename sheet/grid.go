package sheet

import "fmt"

// Column is an absolute 1-based surface column. All lookups in this package
// take absolute columns; nothing exposes block-relative offsets. The original
// system corrupted data by mixing the two addressing schemes whenever the
// source range did not start at column 1 — the Grid API makes that mistake
// unrepresentable.
type Column int

// Grid is a rectangular block of raw cell values captured from the entry
// surface, together with the absolute coordinates of its top-left cell.
type Grid struct {
	originCol Column // absolute column of the first value in each row
	firstRow  int    // absolute surface row of rows[0] (1-based)
	rows      [][]any
}

func NewGrid(originCol Column, firstRow int, rows [][]any) (*Grid, error) {
	if originCol < 1 {
		return nil, fmt.Errorf("grid origin column must be >= 1, got %d", originCol)
	}
	if firstRow < 1 {
		return nil, fmt.Errorf("grid first row must be >= 1, got %d", firstRow)
	}
	return &Grid{originCol: originCol, firstRow: firstRow, rows: rows}, nil
}

func (g *Grid) RowCount() int {
	return len(g.rows)
}

// RowNumber translates a block index (0-based) to the absolute surface row.
func (g *Grid) RowNumber(i int) int {
	return g.firstRow + i
}

// Cell returns the raw value at block row i and absolute surface column col.
// Columns left of the grid origin or beyond its width read as nil, the same
// as an empty cell.
func (g *Grid) Cell(i int, col Column) any {
	if i < 0 || i >= len(g.rows) {
		return nil
	}
	offset := int(col - g.originCol)
	if offset < 0 || offset >= len(g.rows[i]) {
		return nil
	}
	return g.rows[i][offset]
}

// RowSurface is the mutable view of the entry surface that archive
// reconciliation works against. Rows are addressed by absolute surface row
// number; DeleteRow shifts every following row up by one, which is why the
// reconciliation deletes bottom-to-top.
type RowSurface interface {
	// DataRows returns the absolute row numbers currently holding records,
	// in ascending order.
	DataRows() []int
	// CellValue reads a raw cell at an absolute (row, column) position.
	CellValue(row int, col Column) any
	// DeleteRow removes one surface row.
	DeleteRow(row int) error
}
