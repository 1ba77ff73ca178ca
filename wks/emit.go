package wks

import (
	"github.com/go-wks/wks/cellmodel"
	"github.com/go-wks/wks/chart"
	"github.com/go-wks/wks/lotus"
	"github.com/go-wks/wks/multiplan"
	"github.com/go-wks/wks/record"
)

// Emit walks the parsed Document and drives em, in file order for sheets
// and rows and per the chart send-order contract for charts. This is
// the second pass of the two-phase contract:
// pass 1 (Parse) populated every table; this pass resolves style ids to
// concrete styles as it walks, since forward style references are legal
// but the Emitter only ever sees resolved values.
func (d *Document) Emit(em Emitter, opts Options) error {
	switch d.Family {
	case FamilyLotus:
		return d.emitLotus(em, opts)
	case FamilyMultiplan:
		return d.emitMultiplan(em, opts)
	default:
		return &record.UnsupportedFormatVariantError{Variant: "emit: unrecognized family"}
	}
}

func (d *Document) emitLotus(em Emitter, opts Options) error {
	ld := d.Lotus
	for _, sh := range ld.Sheets {
		emitSheet(em, sh, func(cell *cellmodel.Cell) ResolvedStyle {
			return resolveLotusStyle(ld, sh, cell, opts)
		})
	}
	for _, c := range ld.Charts {
		emitChart(em, c)
	}
	return nil
}

func (d *Document) emitMultiplan(em Emitter, opts Options) error {
	md := d.Multiplan
	if md.Sheet == nil {
		return nil
	}
	emitSheet(em, md.Sheet, func(cell *cellmodel.Cell) ResolvedStyle {
		return resolveMultiplanStyle(md, cell, opts)
	})
	return nil
}

// emitSheet drives the open_sheet/(open_row/open_cell/close_cell/close_row)*/
// close_sheet sequence for one sheet, given a family-specific style
// resolver for each cell.
func emitSheet(em Emitter, sh *cellmodel.Sheet, resolve func(*cellmodel.Cell) ResolvedStyle) {
	em.OpenSheet(sh.Name, sh.Columns())
	for _, rowIdx := range sh.Rows() {
		row := sh.Row(rowIdx)
		format := cellmodel.RowFormat{HeightPt: sh.RowHeightAt(rowIdx)}
		if row.Format != nil {
			format = *row.Format
		}
		em.OpenRow(format, 1)
		for _, cell := range row.Cells() {
			resolved := resolve(cell)
			em.OpenCell(cell, cell.Content, resolved, 1)
			if cell.Comment != nil {
				em.InsertComment(*cell.Comment)
			}
			em.CloseCell()
		}
		em.CloseRow()
	}
	em.CloseSheet()
}

// resolveLotusStyle composes a cell's style id (else its row's, else the
// sheet default of 0) against the Lotus document's cell-format and font
// tables. A nonzero id that fails to resolve is logged and substituted
// with the zero value; a dangling reference never aborts emission.
func resolveLotusStyle(ld *lotus.Document, sh *cellmodel.Sheet, cell *cellmodel.Cell, opts Options) ResolvedStyle {
	id := cell.StyleID
	if id == 0 {
		if rid, ok := sh.RowStyleID(cell.Row); ok {
			id = rid
		}
	}
	if id == 0 {
		return ResolvedStyle{}
	}
	cf, ok := ld.CellFormats.Get(id)
	if !ok {
		opts.logf("wks: %v", &record.MissingReference{Kind: "cell format", ID: id})
		return ResolvedStyle{}
	}
	resolved := ResolvedStyle{Format: cf}
	if cf.FontID != 0 {
		if f, ok := ld.Fonts.Get(cf.FontID); ok {
			resolved.Font = f
		} else {
			opts.logf("wks: %v", &record.MissingReference{Kind: "font", ID: cf.FontID})
		}
	}
	return resolved
}

// resolveMultiplanStyle is resolveLotusStyle's Multiplan counterpart.
// Multiplan carries no font table of its own (readCell's form/digits/
// alignment fields never reference one), so the resolved style's Font is
// always the zero value.
func resolveMultiplanStyle(md *multiplan.Document, cell *cellmodel.Cell, opts Options) ResolvedStyle {
	id := cell.StyleID
	if id == 0 {
		return ResolvedStyle{}
	}
	cf, ok := md.CellFormats.Get(id)
	if !ok {
		opts.logf("wks: %v", &record.MissingReference{Kind: "cell format", ID: id})
		return ResolvedStyle{}
	}
	return ResolvedStyle{Format: cf}
}

// emitChart drives one chart through the send-order contract: declare
// chart style, legend, each text zone (title/subtitle/footer), plot-area
// style, floor style, wall style, each axis (X, Y, Y2, Z), each series in
// id order.
func emitChart(em Emitter, c *chart.Chart) {
	em.OpenChart(ChartHeader{
		Name:     c.Name,
		WidthPt:  c.WidthPt,
		HeightPt: c.HeightPt,
		View3D:   c.View3D,
		Stacked:  c.Stacked,
	})

	em.DeclareChartStyle(ChartStyleProps{Kind: ChartStyleChart, StyleID: c.GridColorID})
	em.DeclareChartStyle(ChartStyleProps{Kind: ChartStyleLegend, Legend: c.Legend})
	for _, kind := range []chart.TextZoneKind{chart.TextZoneTitle, chart.TextZoneSubtitle, chart.TextZoneFooter} {
		if z, ok := c.TextZones[kind]; ok {
			em.DeclareChartStyle(ChartStyleProps{Kind: ChartStyleTextZone, TextZone: *z})
		}
	}
	em.DeclareChartStyle(ChartStyleProps{Kind: ChartStylePlotArea, StyleID: c.PlotAreaStyle})
	em.DeclareChartStyle(ChartStyleProps{Kind: ChartStyleFloor, StyleID: c.FloorStyle})
	em.DeclareChartStyle(ChartStyleProps{Kind: ChartStyleWall, StyleID: c.WallStyle})

	for _, coord := range []chart.AxisCoord{chart.AxisX, chart.AxisY, chart.AxisY2, chart.AxisZ} {
		em.InsertChartAxis(*c.Axis(coord))
	}

	for _, id := range c.SeriesIDsOrdered() {
		em.OpenChartSeries(*c.Series[id])
		em.CloseChartSeries()
	}

	em.CloseChart()
}
