package lotus

import (
	"github.com/go-wks/wks/bytestream"
	"github.com/go-wks/wks/cellmodel"
	"github.com/go-wks/wks/formula"
	"github.com/go-wks/wks/numeric"
	"github.com/go-wks/wks/record"
	"github.com/go-wks/wks/style"
)

// WK1 (DOS v1/v2) record ids. The id space is disjoint from the v3+
// meanings of the same bytes, so Parse routes here whenever the BOF named
// a v1/v2 stream.
const (
	wk1Range      = 0x06
	wk1ColWidth   = 0x08
	wk1NamedRange = 0x0b
	wk1Blank      = 0x0c
	wk1Integer    = 0x0d
	wk1Label      = 0x0e
	wk1Number     = 0x0f
	wk1Formula    = 0x10
)

// wk1NameField is the fixed 16-byte name reservation in a named-range
// record.
const wk1NameField = 16

func (p *parser) dispatchWK1(id uint8, payload []byte) error {
	switch id {
	case wk1Range:
		return p.readWK1Range(payload)
	case wk1ColWidth:
		return p.readWK1ColumnWidth(payload)
	case wk1NamedRange:
		return p.readWK1NamedRange(payload)
	case wk1Blank, wk1Integer, wk1Label, wk1Number, wk1Formula:
		return p.readWK1Cell(id, payload)
	default:
		p.opts.logf("lotus: skipping wk1 id 0x%x (%d bytes)", id, len(payload))
		return nil
	}
}

// readWK1Range handles id=0x06: the active-area extent, four u16
// coordinates.
func (p *parser) readWK1Range(payload []byte) error {
	if len(payload) < 8 {
		return &record.BadPayload{RecordType: wk1Range, Reason: "range record too short"}
	}
	r := bytestream.New(payload)
	startCol, _ := r.U16()
	startRow, _ := r.U16()
	endCol, _ := r.U16()
	endRow, _ := r.U16()
	sh := p.doc.sheet(0)
	if int(endCol) > sh.MaxCol {
		sh.MaxCol = int(endCol)
	}
	if int(endRow) > sh.MaxRow {
		sh.MaxRow = int(endRow)
	}
	p.opts.logf("lotus: wk1 active area [%d,%d]-[%d,%d]", startCol, startRow, endCol, endRow)
	return nil
}

// readWK1ColumnWidth handles id=0x08: a column index and a width in
// characters.
func (p *parser) readWK1ColumnWidth(payload []byte) error {
	if len(payload) < 3 {
		return &record.BadPayload{RecordType: wk1ColWidth, Reason: "column width record too short"}
	}
	col := int(payload[0]) | int(payload[1])<<8
	width := int(payload[2])
	sh := p.doc.sheet(0)
	if err := sh.SetColumnWidth(col, cellmodel.ColumnFormat{WidthPt: float64(width) * columnWidthUnitPt, WidthSet: true}); err != nil {
		p.opts.logf("lotus: %v", err)
	}
	return nil
}

// readWK1NamedRange handles id=0x0b: a fixed 16-byte name and four u16
// coordinates.
func (p *parser) readWK1NamedRange(payload []byte) error {
	if len(payload) < wk1NameField+8 {
		return &record.BadPayload{RecordType: wk1NamedRange, Reason: "named range record too short"}
	}
	end := 0
	for end < wk1NameField && payload[end] != 0 {
		end++
	}
	name, err := bytestream.DecodeLatin1(payload[:end])
	if err != nil {
		return err
	}
	r := bytestream.New(payload[wk1NameField:])
	startCol, _ := r.U16()
	startRow, _ := r.U16()
	endCol, _ := r.U16()
	endRow, _ := r.U16()
	sheetName := p.doc.sheet(0).Name
	p.doc.addName(name, formula.NameEntry{
		IsRange: true,
		Range: [2]formula.CellRef{
			{Col: int(startCol), Row: int(startRow), Sheet: sheetName},
			{Col: int(endCol), Row: int(endRow), Sheet: sheetName},
		},
	})
	return nil
}

// readWK1Cell handles the five cell records, which share a 5-byte
// format/column/row header before their type-specific content.
func (p *parser) readWK1Cell(id uint8, payload []byte) error {
	if len(payload) < 5 {
		return &record.BadPayload{RecordType: int(id), Reason: "cell record shorter than its header"}
	}
	format := payload[0]
	col := int(payload[1]) | int(payload[2])<<8
	row := int(payload[3]) | int(payload[4])<<8
	sh := p.doc.sheet(0)
	cell := sh.GetOrInsertCell(col, row)
	cell.StyleID = p.wk1StyleID(format)
	rest := payload[5:]

	switch id {
	case wk1Blank:
		return nil

	case wk1Integer:
		if len(rest) < 2 {
			return &record.BadPayload{RecordType: wk1Integer, Reason: "integer cell missing its value"}
		}
		v := int16(uint16(rest[0]) | uint16(rest[1])<<8)
		cell.Content = cellmodel.CellContent{Kind: cellmodel.KindNumber, Number: float64(v)}
		return nil

	case wk1Label:
		pos := 0
		if len(rest) > 0 {
			if align, ok := halignSentinel(rest[0]); ok {
				v := int(align)
				cell.HAlignOverride = &v
				pos = 1
			}
		}
		end := pos
		for end < len(rest) && rest[end] != 0 {
			end++
		}
		text, err := bytestream.DecodeLatin1(rest[pos:end])
		if err != nil {
			return err
		}
		cell.Content = cellmodel.CellContent{Kind: cellmodel.KindText, Text: text}
		return nil

	case wk1Number:
		return readSimpleNumber(cell, rest, 8, numeric.DecodeF8)

	case wk1Formula:
		if len(rest) < 10 {
			return &record.BadPayload{RecordType: wk1Formula, Reason: "formula cell shorter than its cached value"}
		}
		cached, isNaN, err := numeric.DecodeF8(rest[:8])
		if err != nil {
			return err
		}
		size := int(rest[8]) | int(rest[9])<<8
		if 10+size > len(rest) {
			return &record.BadPayload{RecordType: wk1Formula, Reason: "formula program overruns the record"}
		}
		expr, ferr := formula.Decode(rest[10:10+size], formula.LotusOpcodeSet{}, p.doc, col, row)
		if ferr != nil {
			p.opts.logf("lotus: wk1 formula decode failed at (%d,%d): %v, keeping the cached value", col, row, ferr)
			if isNaN {
				cell.Content = cellmodel.CellContent{Kind: cellmodel.KindError}
			} else {
				cell.Content = cellmodel.CellContent{Kind: cellmodel.KindNumber, Number: cached}
			}
			return nil
		}
		cell.Content = cellmodel.CellContent{Kind: cellmodel.KindFormula, Formula: expr, Cached: &cached}
		return nil
	}
	return nil
}

// wk1FormatKind maps the format byte's 3-bit type field to a numeric
// format. Type 7 is the "special" family whose subtype lives in the digit
// nibble.
func wk1FormatKind(typ, digits int) (style.NumericFormatKind, bool) {
	switch typ {
	case 0, 4:
		return style.FormatFixed, true
	case 1:
		return style.FormatScientific, true
	case 2:
		return style.FormatCurrency, true
	case 3:
		return style.FormatPercent, true
	case 7:
		switch digits {
		case 2, 3, 4:
			return style.FormatDate, false
		case 7, 8, 9:
			return style.FormatTime, false
		default:
			return style.FormatGeneral, false
		}
	default:
		return style.FormatGeneral, false
	}
}

// wk1StyleID interns a cell style for the WK1 per-cell format byte: low
// nibble digits, bits 4-6 the format type, bit 7 the protection flag
// (sheet-level elsewhere, so dropped here). A default combination returns
// 0, the no-style id.
func (p *parser) wk1StyleID(format byte) int {
	digits := int(format & 0xf)
	typ := int(format>>4) & 7
	kind, hasDigits := wk1FormatKind(typ, digits)
	if kind == style.FormatGeneral {
		return 0
	}
	if !hasDigits {
		digits = 0
	}

	numKey := typ<<8 | digits
	numID, ok := p.wk1NumFormats[numKey]
	if !ok {
		numID = len(p.wk1NumFormats) + 1
		p.wk1NumFormats[numKey] = numID
		p.doc.NumericFormats.Insert(numID, style.NumericFormat{Kind: kind, Digits: digits})
	}
	cellID, ok := p.wk1CellFormats[numID]
	if !ok {
		cellID = len(p.wk1CellFormats) + 1
		p.wk1CellFormats[numID] = cellID
		p.doc.CellFormats.Insert(cellID, style.CellFormat{FormatID: numID, Digits: digits})
	}
	return cellID
}
