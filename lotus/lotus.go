// Package lotus implements the record dispatcher and parse state machine
// for the Lotus 1-2-3 family: WK1 (DOS, version 1-2) and the compound-
// document-hosted WK3/WK4/123 (version 3-5), both DOS and Macintosh.
//
// It walks the tagged-record stream produced by record.DecodeNextLotus,
// activates decryption when a password record is present, and populates a
// Document (sheets, styles, names, links, charts) that the wks coordinator
// later walks to drive an Emitter.
package lotus

import (
	"fmt"
	"io"

	"github.com/go-wks/wks/bytestream"
	"github.com/go-wks/wks/cellmodel"
	"github.com/go-wks/wks/chart"
	"github.com/go-wks/wks/cipher"
	"github.com/go-wks/wks/formula"
	"github.com/go-wks/wks/record"
	"github.com/go-wks/wks/style"
)

// Options configures a Parse call: password, an optional debug sink, and
// a corruption tolerance toggle.
type Options struct {
	Password         string
	Logfile          io.Writer
	Verbosity        int
	IgnoreCorruption bool
}

func (o Options) logf(format string, args ...interface{}) {
	if o.Logfile == nil {
		return
	}
	fmt.Fprintf(o.Logfile, format+"\n", args...)
}

// state names the Lotus v3+ parse section. A v1/v2
// stream never leaves Body (there are no style/chart marker records to
// transition on), but the same state value is tracked for every version so
// the dispatch table does not need a separate code path.
type state int

const (
	statePreamble state = iota
	stateStyles
	stateBody
	stateCharts
	stateGraphics
	stateTrailer
)

// Document is the result of parsing one Lotus stream: every sheet, chart,
// and style table the dispatcher populated, plus the name/link pool used
// to resolve forward references at emission time.
type Document struct {
	Version int
	Mac     bool

	Sheets    []*cellmodel.Sheet
	sheetByID map[int]*cellmodel.Sheet

	Charts []*chart.Chart

	// Notes are document-level annotation texts with no cell anchor.
	Notes []string

	Fonts          *style.Table[style.Font]
	Borders        *style.Table[style.Border]
	Lines          *style.Table[style.Line]
	Colors         *style.Table[style.ColorStyle]
	Formats        *style.Table[style.FormatStyle]
	CellFormats    *style.Table[style.CellFormat]
	NumericFormats *style.Table[style.NumericFormat]
	GraphicStyles  *style.Table[style.GraphicStyle]

	names     map[int]formula.NameEntry
	nameByStr map[string]int
	nextName  int

	// links is the Link pool, keyed by owner id (for chart links, the
	// chart's id) and then by the link's own name.
	links map[int]map[string]Link

	// rowParent/rowExplicit mirror the style package's flat
	// parent-chain-resolution inputs, keyed by (sheetID<<16 | row) so one
	// fix-up pass at end of parse can cover every sheet at once.
	rowParent   map[int]int
	rowExplicit map[int]int

	warnings []string
}

func newDocument() *Document {
	return &Document{
		sheetByID:      make(map[int]*cellmodel.Sheet),
		Fonts:          style.NewTable[style.Font](),
		Borders:        style.NewTable[style.Border](),
		Lines:          style.NewTable[style.Line](),
		Colors:         style.NewTable[style.ColorStyle](),
		Formats:        style.NewTable[style.FormatStyle](),
		CellFormats:    style.NewTable[style.CellFormat](),
		NumericFormats: style.NewTable[style.NumericFormat](),
		GraphicStyles:  style.NewTable[style.GraphicStyle](),
		names:          make(map[int]formula.NameEntry),
		nameByStr:      make(map[string]int),
		links:          make(map[int]map[string]Link),
		rowParent:      make(map[int]int),
		rowExplicit:    make(map[int]int),
	}
}

// Link is one Link-pool entry: a name bound either to a cell range on a
// sheet of this document or to an external file reference.
type Link struct {
	Name  string
	File  string // nonempty for a cross-file link
	Cells [2]LinkCell
}

// LinkCell is one endpoint of a link's range.
type LinkCell struct {
	Col, Row, Sheet int
}

// dataRange resolves the link's endpoints against the document's sheet
// names.
func (l Link) dataRange(d *Document) chart.DataRange {
	if l.File != "" {
		return chart.DataRange{}
	}
	return chart.DataRange{
		Sheet:    d.sheet(l.Cells[0].Sheet).Name,
		StartCol: l.Cells[0].Col, StartRow: l.Cells[0].Row,
		EndCol: l.Cells[1].Col, EndRow: l.Cells[1].Row,
	}
}

// Resolve implements formula.NamePool.
func (d *Document) Resolve(id int) (formula.NameEntry, bool) {
	e, ok := d.names[id]
	return e, ok
}

// ResolveRange implements chart.LinkResolver.
func (d *Document) ResolveRange(linkID int) (chart.DataRange, bool) {
	e, ok := d.names[linkID]
	if !ok || !e.IsRange {
		return chart.DataRange{}, false
	}
	return chart.DataRange{
		Sheet:    e.Range[0].Sheet,
		StartCol: e.Range[0].Col, StartRow: e.Range[0].Row,
		EndCol: e.Range[1].Col, EndRow: e.Range[1].Row,
	}, true
}

// ResolveText implements chart.LinkResolver.
func (d *Document) ResolveText(linkID int) (string, bool) {
	e, ok := d.names[linkID]
	if !ok || e.IsRange {
		return "", false
	}
	return e.Text, ok
}

func (d *Document) addName(name string, entry formula.NameEntry) int {
	id := d.nextName
	d.nextName++
	d.names[id] = entry
	d.nameByStr[name] = id
	return id
}

func sheetKey(sheetID, row int) int { return sheetID<<16 | row }

// malformedBudget is the number of consecutive malformed records tolerated
// at a given nesting depth before parsing aborts for the stream.
const malformedBudget = 3

// parser holds the mutable state threaded through one Parse call: the
// cursor over the (possibly decrypted) stream, the document being built,
// and the nesting stack / level vector bookkeeping.
type parser struct {
	doc     *Document
	opts    Options
	data    []byte
	state   state
	version int

	// wk1 marks a DOS v1/v2 stream, whose record ids mean different things
	// than the v3+ ids sharing their numeric values.
	wk1 bool

	// currentSheetID tracks the sheet a cell/column/row record
	// without its own sheet id field should apply to; Lotus v1 has a
	// single implicit sheet, v3+ cell records carry an explicit sheet id.
	currentSheetID int

	consecutiveBad int
	lastDepth      int

	// The v3+ nesting bookkeeping: the current zone and its parent, the
	// table/column/row level vector, and the open/close-balanced stack.
	zoneID       int
	zoneParentID int
	levels       [][2]int
	zone1Stack   []uint32
	sheetZoneIDs []int

	inStyleZone bool

	// Chart build state, keyed by chart id; chartOrder preserves first-seen
	// order for the emission walk. macChartID scopes the wk3mac chart
	// records that carry no id of their own.
	charts     map[int]*chartBuild
	chartOrder []int
	macChartID int

	// Mac font-name indirection: style id -> font-name index, and the
	// font-name table itself, bound together at end of parse.
	macFontRefs  map[int]int
	macFontNames map[int]string

	// WK1 interning caches for the per-cell format byte.
	wk1NumFormats  map[int]int
	wk1CellFormats map[int]int

	// dataReplaced is set by readPassword when it splices a decoded tail
	// into p.data, so run's loop knows to rebuild its Reader over the new
	// backing array rather than keep reading the still-encrypted one.
	dataReplaced bool
}

// setState moves the v3+ parse state machine; transitions are monotonic in
// practice, and a backwards move is worth an annotation but nothing more,
// since out-of-order records are processed anyway.
func (p *parser) setState(s state) {
	if s < p.state && p.opts.Verbosity > 0 {
		p.opts.logf("lotus: state moved backwards (%d -> %d)", p.state, s)
	}
	p.state = s
}

// Parse decodes a raw (already-extracted) Lotus stream: the "WK3"/"123"
// compound-document substream, or the whole file for a DOS WK1. Password
// handling, when a Password record (id=2) is seen, is activated in place:
// the remainder of the stream is re-decoded and dispatch continues against
// the decoded bytes.
func Parse(data []byte, opts Options) (*Document, error) {
	p := &parser{
		doc: newDocument(), opts: opts, data: data, state: statePreamble,
		charts:         make(map[int]*chartBuild),
		macFontRefs:    make(map[int]int),
		macFontNames:   make(map[int]string),
		wk1NumFormats:  make(map[int]int),
		wk1CellFormats: make(map[int]int),
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	p.finish()
	return p.doc, nil
}

func (p *parser) run() error {
	r := bytestream.New(p.data)
	for {
		rec, err := record.DecodeNextLotus(r)
		if err != nil {
			if p.onBadRecord(len(p.levels), err) {
				// The header itself did not parse; the reader may already
				// have consumed part of it, so advance by one byte from
				// wherever it stopped to make progress before retrying.
				r.SeekAbs(r.Tell() + 1)
				continue
			}
			return err
		}
		if rec == nil {
			return nil
		}
		p.consecutiveBad = 0

		p.dataReplaced = false
		if err := p.dispatch(rec); err != nil {
			if isFatalParseError(err) {
				return err
			}
			if p.onBadRecord(len(p.levels), err) {
				continue
			}
			return err
		}
		if p.dataReplaced {
			// readPassword spliced in a freshly decoded tail; rebuild the
			// reader over the new backing array at the same position.
			pos := r.Tell()
			r = bytestream.New(p.data)
			r.SeekAbs(pos)
		}
		if p.state == stateTrailer {
			return nil
		}
	}
}

// isFatalParseError reports whether err must propagate to the caller
// instead of being treated as a skip-and-warn condition: a
// PasswordRequiredError always aborts the parse, and
// an UnsupportedFormatVariantError is returned so the caller can decide
// whether to skip or surface the file, rather than being silently retried
// as if it were a malformed record.
func isFatalParseError(err error) bool {
	switch err.(type) {
	case *record.PasswordRequiredError, *record.UnsupportedFormatVariantError:
		return true
	}
	return false
}

// onBadRecord logs a malformed-record warning and reports whether the
// dispatcher should keep going (true) or abort the stream (false), per the
// "three in a row at the same depth aborts" rule.
func (p *parser) onBadRecord(depth int, err error) bool {
	p.opts.logf("lotus: malformed record at depth %d: %v", depth, err)
	p.doc.warnings = append(p.doc.warnings, err.Error())
	if depth == p.lastDepth {
		p.consecutiveBad++
	} else {
		p.consecutiveBad = 1
		p.lastDepth = depth
	}
	return p.consecutiveBad < malformedBudget
}

// dispatch routes one top-level record. Lotus nests most of the
// interesting content under an outer envelope with type=0, switching on
// the id byte; the nonzero outer types carry the nesting bookkeeping,
// the sheet/chart zone trees, and a few zones with no known layout.
func (p *parser) dispatch(rec *record.Record) error {
	payload, err := rec.Payload(p.data)
	if err != nil {
		return err
	}
	if rec.TypeID != 0 {
		return p.dispatchOuterType(rec, payload)
	}
	return p.dispatchID(rec, payload)
}

func (p *parser) dispatchOuterType(rec *record.Record, payload []byte) error {
	switch rec.TypeID {
	case 1:
		return p.readZone1(rec, payload)
	case 2:
		return p.readSheetZone(rec, payload)
	case 3:
		p.setState(stateGraphics)
		p.opts.logf("lotus: skipping graphic zone id 0x%x (%d bytes)", rec.LotusID, len(payload))
		return nil
	case 5:
		p.setState(stateCharts)
		return p.readChartZone(payload)
	case 6, 7, 8, 0xa:
		p.opts.logf("lotus: skipping outer type 0x%x zone (%d bytes), no recovered layout", rec.TypeID, len(payload))
		return nil
	default:
		p.opts.logf("lotus: skipping unknown outer type 0x%x", rec.TypeID)
		return nil
	}
}

// readChartZone handles the outer type=5 records: the chart-node analogue
// of the sheet zone tree. The tree structure itself is bookkeeping the
// chart model does not need (charts key directly off their id byte), so
// the records are annotated and skipped.
func (p *parser) readChartZone(payload []byte) error {
	p.opts.logf("lotus: chart zone node (%d bytes)", len(payload))
	return nil
}

func (p *parser) dispatchID(rec *record.Record, payload []byte) error {
	id := rec.LotusID
	switch id {
	case 0:
		return p.readBOF(payload)
	case 1:
		p.state = stateTrailer
		return nil
	case 2:
		return p.readPassword(payload, rec)
	}
	if p.wk1 {
		return p.dispatchWK1(id, payload)
	}
	switch id {
	case 7:
		return p.readColumnSizes(payload)
	case 9:
		return p.readCellName(payload)
	case 0xa:
		return p.readLinkZone(payload)
	case 0x11:
		return p.readChart(payload)
	case 0x12:
		return p.readChartName(payload)
	case 0x13:
		return p.readRowFormats(payload)
	case 0x16, 0x17, 0x18, 0x19, 0x1a, 0x25, 0x26, 0x27, 0x28:
		p.warnOutOfOrderCell(id)
		return p.readCell(id, payload)
	case 0x1b:
		return p.readNestedZone(rec)
	case 0x1f:
		return p.readColumnDefinition(payload)
	case 0x23:
		return p.readSheetName(payload)
	default:
		p.opts.logf("lotus: skipping id 0x%x (%d bytes)", id, len(payload))
		return nil
	}
}

// warnOutOfOrderCell notes a cell record arriving after the body section
// closed; the record is still processed, per the state machine's
// warn-but-keep-building rule.
func (p *parser) warnOutOfOrderCell(id uint8) {
	if p.state == stateCharts || p.state == stateGraphics || p.state == stateTrailer {
		p.opts.logf("lotus: cell record 0x%x out of order for the current section", id)
	}
}

// readBOF handles the id=0 Begin-Of-File record: a fixed 26-byte payload
// whose first u16 is an 0x8007 FMT-stream marker, a DOS WK1/WK2 version
// word (0x0404, 0x0406, 0x0604), or 0x1000+version for the main content
// stream.
func (p *parser) readBOF(payload []byte) error {
	if len(payload) < 2 {
		return &record.BadPayload{RecordType: 0, Reason: "BOF shorter than 2 bytes"}
	}
	word := int(payload[0]) | int(payload[1])<<8
	if word == 0x8007 {
		p.opts.logf("lotus: FMT-stream BOF, not the main content stream")
		return nil
	}
	switch word {
	case 0x0404:
		p.wk1 = true
		p.version = 1
	case 0x0406, 0x0604:
		p.wk1 = true
		p.version = 2
	default:
		if word < 0x1000 || word > 0x1005 {
			return &record.UnsupportedFormatVariantError{Variant: fmt.Sprintf("BOF version word 0x%x", word)}
		}
		p.version = word - 0x1000
	}
	p.doc.Version = p.version
	if !p.wk1 && p.version >= 3 {
		p.state = stateStyles
	} else {
		p.state = stateBody
	}
	return nil
}

// readPassword handles the id=2 record: 16 stored file_keys bytes. If a
// password was supplied it is verified directly; otherwise (or on
// mismatch) short-password recovery is attempted. Either way, once keys
// are established the remainder of the stream from here to the end is
// decoded and dispatch continues against the decoded bytes.
func (p *parser) readPassword(payload []byte, rec *record.Record) error {
	if len(payload) < 16 {
		return &record.BadPayload{RecordType: 2, Reason: "password record shorter than 16 bytes"}
	}
	var fileKeys [cipher.LotusKeyCount]byte
	copy(fileKeys[:], payload[:16])

	var keys [cipher.LotusKeyCount]byte
	ok := false
	if p.opts.Password != "" {
		_, keys = cipher.EncodeLotusPassword(p.opts.Password)
		ok = cipher.VerifyLotusPassword(fileKeys, keys)
	}
	if !ok {
		keys, ok = cipher.RetrieveLotusPasswordKeys(fileKeys)
	}
	if !ok {
		return &record.PasswordRequiredError{Reason: "Lotus password did not verify and could not be recovered"}
	}

	tail := p.data[rec.PayloadEnd:]
	decodedTail, err := cipher.DecodeLotusStream(tail, len(tail), keys)
	if err != nil {
		return fmt.Errorf("lotus: decoding encrypted stream: %w", err)
	}
	// Splice: everything up to and including this record stays as-is (it
	// was never encrypted); the rest is replaced by the decoded form.
	p.data = append(append([]byte{}, p.data[:rec.PayloadEnd]...), decodedTail...)
	p.dataReplaced = true
	return nil
}

// readNestedZone handles the type=0, id=0x1b nested-subtype envelope: the
// style, chart, sheet-layout, and Macintosh records of the v3+ formats.
// Subtypes with no recovered layout are skipped with an annotation rather
// than aborting the stream, per the "skip unknown record, do not abort"
// rule.
func (p *parser) readNestedZone(rec *record.Record) error {
	if rec.Inner == nil {
		return &record.BadPayload{RecordType: 0x1b, Reason: "missing inner subtype"}
	}
	inner := rec.Inner
	payload, err := inner.Payload(p.data)
	if err != nil {
		return err
	}
	switch inner.TypeID {
	case subSheetBegin:
		return p.readSheetBegin(payload)
	case subRowSizes:
		return p.readRowSizes(payload)
	case subSheetName1B:
		return p.readSheetName1B(payload)
	case subNote:
		return p.readNote(payload)

	case subFontA0:
		return p.readFontStyleA0(payload)
	case subLineStyle, subLineStyle2:
		return p.readLineStyle(payload, inner.TypeID == subLineStyle2)
	case subColorStyle:
		return p.readColorStyle(payload)
	case subFormat:
		return p.readFormatStyle(payload)
	case subGraphic:
		return p.readGraphicStyle(payload)
	case subGraphicC9:
		p.opts.logf("lotus: 123 graphic style (%d bytes), layout not decoded", len(payload))
		return nil
	case subCellStyle:
		return p.readCellStyle(payload)
	case subFontF0:
		return p.readFontStyleF0(payload)
	case 0xfdc:
		return p.readMacFontName(payload)

	case subChartMacHeader:
		return p.readChartMacHeader(payload)
	case subChartMacLegend:
		return p.readChartMacLegend(payload)
	case subChartMacPlotArea:
		return p.readChartMacPlotArea(payload)
	case subChartMacAxis:
		return p.readChartMacAxis(payload)
	case subChartMacSerie:
		return p.readChartMacSerie(payload)
	case subChartMacFloor:
		return p.readChartMacFloor(payload)
	case subChartMacPlacement, subChartMacPosition:
		p.opts.logf("lotus: mac chart placement (%d bytes), layout only", len(payload))
		return nil
	case subChartPlotArea:
		return p.readChartPlotArea(payload)
	case subChartSerie:
		return p.readChartSerie(payload)
	case subChartSerieName:
		return p.readChartSerieName(payload)
	case subChartSerieWidth:
		return p.readChartSerieWidth(payload)
	case subChartFonts, subChartFrames:
		p.opts.logf("lotus: chart font/frame list subtype 0x%x (%d bytes), not decoded", inner.TypeID, len(payload))
		return nil

	default:
		p.opts.logf("lotus: nested zone subtype 0x%x (%d bytes), passthrough", inner.TypeID, len(payload))
		return nil
	}
}

// finish runs the end-of-parse fix-ups: Mac font-name binding, chart link
// resolution, row-style parent-chain resolution (style.ResolveRowChain),
// and row-height compression, matching the coordinator's "pass 1
// populates, pass 2 resolves" contract for the parts that are this
// package's responsibility rather than wks's.
func (p *parser) finish() {
	p.bindMacFontNames()
	for _, id := range p.chartOrder {
		p.updateChart(p.charts[id], id)
	}
	resolved, warnings := style.ResolveRowChain(p.doc.rowParent, p.doc.rowExplicit)
	for _, w := range warnings {
		p.opts.logf("lotus: row style chain did not resolve for key %d", w)
	}
	for key, id := range p.doc.rowExplicit {
		if _, chained := resolved[key]; !chained {
			resolved[key] = id
		}
	}
	for key, id := range resolved {
		sheetID := key >> 16
		row := key & 0xffff
		if sh, ok := p.doc.sheetByID[sheetID]; ok {
			sh.SetRowStyleID(row, id)
		}
	}
	for _, sh := range p.doc.Sheets {
		sh.CompressRowHeights()
	}
}

// sheet returns (creating if necessary) the sheet with the given id.
func (d *Document) sheet(id int) *cellmodel.Sheet {
	if sh, ok := d.sheetByID[id]; ok {
		return sh
	}
	sh := cellmodel.NewSheet(fmt.Sprintf("Sheet%d", id))
	d.sheetByID[id] = sh
	d.Sheets = append(d.Sheets, sh)
	return sh
}
