// Package cellmodel holds the sheet grid: rows, columns, cells, and the
// row/column formatting side tables the record dispatchers populate as they
// walk a Lotus or Multiplan stream. Style references are stored as ids and
// resolved against the style package only at emission time.
package cellmodel

import (
	"fmt"
	"sort"

	"github.com/go-wks/wks/bytestream"
	"github.com/go-wks/wks/formula"
)

// MaxColumns is the largest column index (0-based) any family's column
// table may declare.
const MaxColumns = 255

// maxColumnGap is how far beyond the sheet's declared extent a new column
// width entry may reach before it is rejected as implausible.
const maxColumnGap = 10

// defaultColumnWidthPt and defaultRowHeightPt are used by AbsolutePosition
// when a column or row has no explicit width/height.
const (
	defaultColumnWidthPt = 72.0
	defaultRowHeightPt   = 12.75
)

// CellKind tags CellContent's active field.
type CellKind int

const (
	KindEmpty CellKind = iota
	KindNumber
	KindText
	KindBoolean
	KindError
	KindFormula
)

// CellContent is the tagged union of everything a cell can hold. A cell
// never carries both Number and Text; a formula may carry a cached value.
type CellContent struct {
	Kind     CellKind
	Number   float64
	Text     string
	Encoding bytestream.TextEncoding
	Boolean  bool
	Formula  *formula.Expression
	Cached   *float64
}

// MergeSpan describes a cell's merged extent, inclusive.
type MergeSpan struct {
	EndCol, EndRow int
}

// Cell is one sheet position.
type Cell struct {
	Col, Row int
	Content  CellContent

	// StyleID is 0 for "no/default", matching the style-id convention
	// shared across every family.
	StyleID int

	Comment *string
	// HAlignOverride comes from a leading sentinel character in some text
	// cells and, when set, wins over the resolved cell-format alignment.
	HAlignOverride *int
	Merge          *MergeSpan
}

// RowFormat is a row's own formatting, independent of any cell within it.
type RowFormat struct {
	HeightPt  float64
	IsMinimal bool
	IsHeader  bool
}

// ColumnFormat is one entry of a sheet's column-format vector.
type ColumnFormat struct {
	WidthPt      float64
	WidthSet     bool
	OptimalWidth bool
	Header       bool
	RepeatCount  int
}

// Row is an ordered, sparse mapping from column index to cell.
type Row struct {
	cells  map[int]*Cell
	Format *RowFormat
}

func newRow() *Row {
	return &Row{cells: make(map[int]*Cell)}
}

// Cells returns the row's cells ordered by ascending column, matching the
// "strictly ascending within a row" invariant.
func (r *Row) Cells() []*Cell {
	out := make([]*Cell, 0, len(r.cells))
	for _, c := range r.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Col < out[j].Col })
	return out
}

// rowHeightRun is one compressed run of adjacent rows sharing a height.
type rowHeightRun struct {
	minRow, maxRow int
	format         RowFormat
}

// FreezePane records a sheet's frozen rows/columns, if any.
type FreezePane struct {
	Col, Row int
}

// Sheet is the grid for one worksheet.
type Sheet struct {
	Name           string
	MaxCol, MaxRow int

	rows       map[int]*Row
	columns    []ColumnFormat
	rowHeights map[int]RowFormat // exact row -> format, pre-compression
	runs       []rowHeightRun    // populated by CompressRowHeights
	rowStyles  map[int]int       // exact row -> style id

	Comments map[[2]int]string

	FreezePane *FreezePane
	Zoom       int
	Protected  bool
}

// NewSheet returns an empty sheet named name.
func NewSheet(name string) *Sheet {
	return &Sheet{
		Name:       name,
		rows:       make(map[int]*Row),
		rowHeights: make(map[int]RowFormat),
		rowStyles:  make(map[int]int),
		Comments:   make(map[[2]int]string),
	}
}

// SetColumnWidth grows the column vector lazily and stores fmt at col. It
// rejects a column index past MaxColumns, and rejects growing the vector by
// more than maxColumnGap beyond the sheet's currently declared extent (a
// defense against a corrupt column index causing an enormous allocation).
func (s *Sheet) SetColumnWidth(col int, format ColumnFormat) error {
	if col > MaxColumns {
		return fmt.Errorf("cellmodel: column %d exceeds MaxColumns (%d)", col, MaxColumns)
	}
	extent := len(s.columns)
	if col > extent+maxColumnGap {
		return fmt.Errorf("cellmodel: column %d leaves a gap of more than %d beyond current extent %d", col, maxColumnGap, extent)
	}
	if col >= len(s.columns) {
		grown := make([]ColumnFormat, col+1)
		copy(grown, s.columns)
		s.columns = grown
	}
	s.columns[col] = format
	if col > s.MaxCol {
		s.MaxCol = col
	}
	return nil
}

// ColumnFormatAt returns the column format at col, or the zero value if col
// has never been set.
func (s *Sheet) ColumnFormatAt(col int) ColumnFormat {
	if col < 0 || col >= len(s.columns) {
		return ColumnFormat{}
	}
	return s.columns[col]
}

// Columns returns the sheet's full column-format vector, in column order.
// Emission walks this slice to open a sheet with its column table.
func (s *Sheet) Columns() []ColumnFormat {
	out := make([]ColumnFormat, len(s.columns))
	copy(out, s.columns)
	return out
}

// SetRowHeight stores the format for the exact row. Call
// CompressRowHeights once the sheet is fully populated to merge adjacent
// equal-valued runs.
func (s *Sheet) SetRowHeight(row int, format RowFormat) {
	s.rowHeights[row] = format
	if row > s.MaxRow {
		s.MaxRow = row
	}
	s.runs = nil // stale until recompressed
}

// CompressRowHeights merges adjacent rows with identical RowFormat values
// into ranges, so RowHeightAt can answer by range lookup instead of a
// per-row map scan. get_row_height must return the same value before and
// after compression.
func (s *Sheet) CompressRowHeights() {
	if len(s.rowHeights) == 0 {
		s.runs = nil
		return
	}
	rows := make([]int, 0, len(s.rowHeights))
	for r := range s.rowHeights {
		rows = append(rows, r)
	}
	sort.Ints(rows)

	var runs []rowHeightRun
	for _, r := range rows {
		f := s.rowHeights[r]
		if n := len(runs); n > 0 && runs[n-1].maxRow == r-1 && runs[n-1].format == f {
			runs[n-1].maxRow = r
			continue
		}
		runs = append(runs, rowHeightRun{minRow: r, maxRow: r, format: f})
	}
	s.runs = runs
}

// RowHeightAt returns the height in points for row, falling back to
// defaultRowHeightPt when unset. It is invariant across CompressRowHeights.
func (s *Sheet) RowHeightAt(row int) float64 {
	if f, ok := s.rowHeights[row]; ok && s.runs == nil {
		return f.HeightPt
	}
	for _, run := range s.runs {
		if row >= run.minRow && row <= run.maxRow {
			return run.format.HeightPt
		}
	}
	if f, ok := s.rowHeights[row]; ok {
		return f.HeightPt
	}
	return defaultRowHeightPt
}

// SetRowStyleID records row's own style id.
func (s *Sheet) SetRowStyleID(row, id int) {
	s.rowStyles[row] = id
}

// RowStyleID looks up a row's style id directly (exact match only; the
// parent-chain walk that turns a child row's pointer into a concrete id is
// style.ResolveRowChain, run once over the whole sheet before emission).
func (s *Sheet) RowStyleID(row int) (int, bool) {
	id, ok := s.rowStyles[row]
	return id, ok
}

// GetOrInsertCell returns the cell at (col, row), creating an empty one (and
// its row, if needed) on first access.
func (s *Sheet) GetOrInsertCell(col, row int) *Cell {
	r, ok := s.rows[row]
	if !ok {
		r = newRow()
		s.rows[row] = r
	}
	c, ok := r.cells[col]
	if !ok {
		c = &Cell{Col: col, Row: row}
		r.cells[col] = c
		if col > s.MaxCol {
			s.MaxCol = col
		}
		if row > s.MaxRow {
			s.MaxRow = row
		}
	}
	return c
}

// Row returns the row at index row, or nil if it has never been touched.
func (s *Sheet) Row(row int) *Row {
	return s.rows[row]
}

// Rows returns the sheet's populated rows ordered by ascending row index.
func (s *Sheet) Rows() []int {
	out := make([]int, 0, len(s.rows))
	for r := range s.rows {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

// AbsolutePosition sums column widths up to (but not including) col and row
// heights up to (but not including) row, in points from the sheet origin.
func (s *Sheet) AbsolutePosition(col, row int) (xPt, yPt float64) {
	for c := 0; c < col; c++ {
		w := defaultColumnWidthPt
		if c < len(s.columns) && s.columns[c].WidthSet {
			w = s.columns[c].WidthPt
		}
		xPt += w
	}
	for r := 0; r < row; r++ {
		yPt += s.RowHeightAt(r)
	}
	return xPt, yPt
}
