package cellmodel

import "testing"

func TestGetOrInsertCellCreatesRowAndTracksExtent(t *testing.T) {
	s := NewSheet("Sheet1")
	c := s.GetOrInsertCell(3, 5)
	c.Content = CellContent{Kind: KindNumber, Number: 42}

	if s.MaxCol != 3 || s.MaxRow != 5 {
		t.Fatalf("extent = (%d,%d), want (3,5)", s.MaxCol, s.MaxRow)
	}
	row := s.Row(5)
	if row == nil {
		t.Fatal("row 5 not created")
	}
	cells := row.Cells()
	if len(cells) != 1 || cells[0].Col != 3 {
		t.Fatalf("row cells = %+v, want single cell at col 3", cells)
	}
	if cells[0].Content.Number != 42 {
		t.Errorf("cell number = %v, want 42", cells[0].Content.Number)
	}
}

func TestRowCellsOrderedByColumn(t *testing.T) {
	s := NewSheet("Sheet1")
	s.GetOrInsertCell(5, 0)
	s.GetOrInsertCell(1, 0)
	s.GetOrInsertCell(3, 0)

	cols := []int{}
	for _, c := range s.Row(0).Cells() {
		cols = append(cols, c.Col)
	}
	want := []int{1, 3, 5}
	if len(cols) != len(want) {
		t.Fatalf("got %v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("got %v, want %v", cols, want)
		}
	}
}

func TestSetColumnWidthRejectsBeyondMaxColumns(t *testing.T) {
	s := NewSheet("Sheet1")
	if err := s.SetColumnWidth(MaxColumns+1, ColumnFormat{WidthPt: 50, WidthSet: true}); err == nil {
		t.Fatal("expected error for column beyond MaxColumns, got nil")
	}
}

func TestSetColumnWidthRejectsImplausibleGap(t *testing.T) {
	s := NewSheet("Sheet1")
	if err := s.SetColumnWidth(0, ColumnFormat{WidthPt: 50, WidthSet: true}); err != nil {
		t.Fatalf("SetColumnWidth(0): %v", err)
	}
	if err := s.SetColumnWidth(maxColumnGap+5, ColumnFormat{WidthPt: 50, WidthSet: true}); err == nil {
		t.Fatal("expected error for a gap beyond maxColumnGap, got nil")
	}
}

func TestSetColumnWidthGrowsLazily(t *testing.T) {
	s := NewSheet("Sheet1")
	if err := s.SetColumnWidth(2, ColumnFormat{WidthPt: 90, WidthSet: true}); err != nil {
		t.Fatalf("SetColumnWidth: %v", err)
	}
	got := s.ColumnFormatAt(2)
	if got.WidthPt != 90 || !got.WidthSet {
		t.Fatalf("ColumnFormatAt(2) = %+v, want width 90", got)
	}
	if got := s.ColumnFormatAt(0); got.WidthSet {
		t.Fatalf("ColumnFormatAt(0) = %+v, want unset", got)
	}
	if got := s.ColumnFormatAt(99); got.WidthSet {
		t.Fatalf("ColumnFormatAt(99) (never set) = %+v, want zero value", got)
	}
}

func TestRowHeightCompressionPreservesLookup(t *testing.T) {
	s := NewSheet("Sheet1")
	s.SetRowHeight(0, RowFormat{HeightPt: 20})
	s.SetRowHeight(1, RowFormat{HeightPt: 20})
	s.SetRowHeight(2, RowFormat{HeightPt: 20})
	s.SetRowHeight(5, RowFormat{HeightPt: 30})

	before := []float64{s.RowHeightAt(0), s.RowHeightAt(1), s.RowHeightAt(2), s.RowHeightAt(5), s.RowHeightAt(9)}

	s.CompressRowHeights()

	after := []float64{s.RowHeightAt(0), s.RowHeightAt(1), s.RowHeightAt(2), s.RowHeightAt(5), s.RowHeightAt(9)}

	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("row height at index %d changed across compression: %v -> %v", i, before[i], after[i])
		}
	}
	if after[3] != 30 {
		t.Errorf("row 5 height = %v, want 30", after[3])
	}
	if after[4] != defaultRowHeightPt {
		t.Errorf("unset row 9 height = %v, want default %v", after[4], defaultRowHeightPt)
	}
}

func TestRowStyleIDExactLookup(t *testing.T) {
	s := NewSheet("Sheet1")
	s.SetRowStyleID(4, 7)
	if id, ok := s.RowStyleID(4); !ok || id != 7 {
		t.Fatalf("RowStyleID(4) = (%d,%v), want (7,true)", id, ok)
	}
	if _, ok := s.RowStyleID(5); ok {
		t.Fatal("RowStyleID(5) should be unset")
	}
}

func TestAbsolutePositionSumsPrecedingExtent(t *testing.T) {
	s := NewSheet("Sheet1")
	if err := s.SetColumnWidth(0, ColumnFormat{WidthPt: 100, WidthSet: true}); err != nil {
		t.Fatalf("SetColumnWidth: %v", err)
	}
	s.SetRowHeight(0, RowFormat{HeightPt: 15})

	x, y := s.AbsolutePosition(1, 1)
	if x != 100 {
		t.Errorf("x = %v, want 100 (width of column 0)", x)
	}
	if y != 15 {
		t.Errorf("y = %v, want 15 (height of row 0)", y)
	}

	x0, y0 := s.AbsolutePosition(0, 0)
	if x0 != 0 || y0 != 0 {
		t.Errorf("AbsolutePosition(0,0) = (%v,%v), want (0,0)", x0, y0)
	}
}

func TestRowsOrderedAscending(t *testing.T) {
	s := NewSheet("Sheet1")
	s.GetOrInsertCell(0, 9)
	s.GetOrInsertCell(0, 2)
	s.GetOrInsertCell(0, 5)

	rows := s.Rows()
	want := []int{2, 5, 9}
	if len(rows) != len(want) {
		t.Fatalf("got %v, want %v", rows, want)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("got %v, want %v", rows, want)
		}
	}
}
