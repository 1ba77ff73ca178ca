package wks

import (
	"github.com/go-wks/wks/cellmodel"
	"github.com/go-wks/wks/chart"
	"github.com/go-wks/wks/style"
)

// ResolvedStyle is the concrete style composed for one cell at emission
// time: the cell's own style id, else (Lotus only) its row's style id, else
// the sheet default; a Multiplan cell uses only its own style id. A style id that fails to resolve substitutes the zero value
// and is logged as a record.MissingReference warning rather than
// aborting; the emitter always sees a best-effort value.
type ResolvedStyle struct {
	Format style.CellFormat
	Font   style.Font
}

// ChartHeader is the fixed per-chart header the emitter receives first,
// via OpenChart.
type ChartHeader struct {
	Name              string
	WidthPt, HeightPt float64
	View3D            chart.View3D
	Stacked           bool
}

// ChartStyleKind tags which item of the chart send-order contract one
// DeclareChartStyle call carries.
type ChartStyleKind int

const (
	// ChartStyleChart is the single whole-chart style declaration that
	// opens the contract, before legend/text-zone/plot-area/floor/wall.
	ChartStyleChart ChartStyleKind = iota
	ChartStyleLegend
	ChartStyleTextZone
	ChartStylePlotArea
	ChartStyleFloor
	ChartStyleWall
)

// ChartStyleProps is one item of the chart's style/structural stream.
// Only the fields relevant to Kind are populated; the rest are zero.
type ChartStyleProps struct {
	Kind     ChartStyleKind
	StyleID  int
	Legend   chart.Legend
	TextZone chart.TextZone
}

// Emitter is the sink the wks coordinator drives during Document.Emit. A
// downstream formatter implements it; this module ships no implementation
// of its own, only the drive loop.
//
// Method order is fixed: a sheet is OpenSheet, (OpenRow, (OpenCell,
// [InsertComment], CloseCell)*, CloseRow)*, CloseSheet; a chart declares
// its chart style, then legend, text zones (title/subtitle/footer),
// plot-area, floor and wall styles, the four axes (X, Y, Y2, Z), and
// finally each series in id order. Emitters may rely on this ordering;
// it is the streaming contract, not an implementation detail.
type Emitter interface {
	OpenSheet(name string, columns []cellmodel.ColumnFormat)
	CloseSheet()

	OpenRow(format cellmodel.RowFormat, numRepeated int)
	CloseRow()

	OpenCell(cell *cellmodel.Cell, content cellmodel.CellContent, resolved ResolvedStyle, numRepeated int)
	CloseCell()

	InsertComment(text string)

	OpenChart(header ChartHeader)
	DeclareChartStyle(props ChartStyleProps)
	InsertChartAxis(axis chart.Axis)
	OpenChartSeries(series chart.Series)
	CloseChartSeries()
	CloseChart()
}
