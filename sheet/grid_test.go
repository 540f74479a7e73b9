package sheet

import "testing"

func TestGrid_AbsoluteAddressing(t *testing.T) {
	// Block captured from columns 10..12 of the surface, starting at row 5.
	g, err := NewGrid(10, 5, [][]any{
		{"a", "b", "c"},
		{"d", "e", "f"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := g.Cell(0, 10); got != "a" {
		t.Fatalf("cell (0, col 10): expected a, got %#v", got)
	}
	if got := g.Cell(1, 12); got != "f" {
		t.Fatalf("cell (1, col 12): expected f, got %#v", got)
	}

	// Columns outside the captured block read as empty, never as a
	// misaligned neighbour.
	if got := g.Cell(0, 9); got != nil {
		t.Fatalf("column left of origin must read nil, got %#v", got)
	}
	if got := g.Cell(0, 13); got != nil {
		t.Fatalf("column beyond width must read nil, got %#v", got)
	}
	if got := g.Cell(5, 10); got != nil {
		t.Fatalf("row beyond block must read nil, got %#v", got)
	}
}

func TestGrid_RowNumberIsAbsolute(t *testing.T) {
	g, err := NewGrid(1, 7, [][]any{{"x"}, {"y"}})
	if err != nil {
		t.Fatal(err)
	}
	if g.RowNumber(0) != 7 || g.RowNumber(1) != 8 {
		t.Fatalf("expected rows 7 and 8, got %d and %d", g.RowNumber(0), g.RowNumber(1))
	}
}

func TestNewGrid_RejectsInvalidOrigin(t *testing.T) {
	if _, err := NewGrid(0, 1, nil); err == nil {
		t.Fatal("expected error for origin column 0")
	}
	if _, err := NewGrid(1, 0, nil); err == nil {
		t.Fatal("expected error for first row 0")
	}
}
