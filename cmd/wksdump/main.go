// Command wksdump is a debug CLI, not an emitter: it opens a Lotus or
// Multiplan file and prints a structural walk of what the parser built
// (sheets, rows, cells, charts), for use while developing or triaging a
// file this module fails to parse cleanly. It is deliberately a dump, not
// a converter: output-format fidelity belongs to the real emitter, not
// here.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-wks/wks/cellmodel"
	"github.com/go-wks/wks/chart"
	"github.com/go-wks/wks/wks"
)

func main() {
	password := flag.String("password", "", "password for an encrypted document")
	verbose := flag.Bool("v", false, "print the parser's annotation log to stderr")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: wksdump [-password PW] [-v] FILE")
		os.Exit(2)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "wksdump:", err)
		os.Exit(1)
	}

	opts := wks.Options{Password: *password}
	if *verbose {
		opts.Logfile = os.Stderr
		opts.Verbosity = 1
	}

	doc, err := wks.OpenBytes(data, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "wksdump:", err)
		os.Exit(1)
	}

	dumper := &dumpEmitter{w: os.Stdout}
	if err := doc.Emit(dumper, opts); err != nil {
		fmt.Fprintln(os.Stderr, "wksdump:", err)
		os.Exit(1)
	}
}

// dumpEmitter implements wks.Emitter by printing an indented trace of
// every call it receives, in the order the coordinator makes them.
type dumpEmitter struct {
	w      *os.File
	depth  int
	column string
}

func (d *dumpEmitter) line(format string, args ...interface{}) {
	for i := 0; i < d.depth; i++ {
		fmt.Fprint(d.w, "  ")
	}
	fmt.Fprintf(d.w, format+"\n", args...)
}

func (d *dumpEmitter) OpenSheet(name string, columns []cellmodel.ColumnFormat) {
	d.line("sheet %q (%d column formats)", name, len(columns))
	d.depth++
}

func (d *dumpEmitter) CloseSheet() { d.depth--; d.line("/sheet") }

func (d *dumpEmitter) OpenRow(format cellmodel.RowFormat, numRepeated int) {
	d.line("row height=%.2fpt x%d", format.HeightPt, numRepeated)
	d.depth++
}

func (d *dumpEmitter) CloseRow() { d.depth--; d.line("/row") }

func (d *dumpEmitter) OpenCell(cell *cellmodel.Cell, content cellmodel.CellContent, resolved wks.ResolvedStyle, numRepeated int) {
	d.line("cell (%d,%d) %s style-font=%q", cell.Col, cell.Row, describeContent(content), resolved.Font.Name)
	d.depth++
}

func (d *dumpEmitter) CloseCell() { d.depth--; d.line("/cell") }

func (d *dumpEmitter) InsertComment(text string) { d.line("comment %q", text) }

func (d *dumpEmitter) OpenChart(header wks.ChartHeader) {
	d.line("chart %q %.0fx%.0fpt", header.Name, header.WidthPt, header.HeightPt)
	d.depth++
}

func (d *dumpEmitter) DeclareChartStyle(props wks.ChartStyleProps) {
	d.line("chart-style kind=%d style=%d", props.Kind, props.StyleID)
}

func (d *dumpEmitter) InsertChartAxis(axis chart.Axis) {
	d.line("axis %d min=%g max=%g", axis.Coord, axis.Min, axis.Max)
}

func (d *dumpEmitter) OpenChartSeries(series chart.Series) {
	d.line("series %d type=%d", series.ID, series.Type)
	d.depth++
}

func (d *dumpEmitter) CloseChartSeries() { d.depth--; d.line("/series") }

func (d *dumpEmitter) CloseChart() { d.depth--; d.line("/chart") }

func describeContent(c cellmodel.CellContent) string {
	switch c.Kind {
	case cellmodel.KindEmpty:
		return "empty"
	case cellmodel.KindNumber:
		return fmt.Sprintf("number=%g", c.Number)
	case cellmodel.KindText:
		return fmt.Sprintf("text=%q", c.Text)
	case cellmodel.KindBoolean:
		return fmt.Sprintf("bool=%v", c.Boolean)
	case cellmodel.KindError:
		return "error"
	case cellmodel.KindFormula:
		return "formula"
	default:
		return "?"
	}
}
