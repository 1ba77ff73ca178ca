package lotus

import (
	"github.com/go-wks/wks/bytestream"
	"github.com/go-wks/wks/cellmodel"
	"github.com/go-wks/wks/formula"
	"github.com/go-wks/wks/numeric"
	"github.com/go-wks/wks/record"
	"github.com/go-wks/wks/style"
)

// cell record ids; all nine share the 4-byte position header below.
const (
	cellText        = 0x16
	cellDoub10      = 0x17
	cellDoubU16     = 0x18
	cellDoub10Form  = 0x19
	cellTextForm    = 0x1a
	cellDoubU32     = 0x25
	cellComment     = 0x26
	cellDoub8       = 0x27
	cellDoub8Form   = 0x28
)

// readCell decodes one of the nine cell-content records. All nine share a
// 4-byte header (row:u16, sheetId:u8, col:u8) before their type-specific
// content.
func (p *parser) readCell(id uint8, payload []byte) error {
	r := bytestream.New(payload)
	row, err := r.U16()
	if err != nil {
		return &record.BadPayload{RecordType: int(id), Reason: "short row field"}
	}
	sheetID, err := r.U8()
	if err != nil {
		return &record.BadPayload{RecordType: int(id), Reason: "short sheet id field"}
	}
	col, err := r.U8()
	if err != nil {
		return &record.BadPayload{RecordType: int(id), Reason: "short col field"}
	}

	sh := p.doc.sheet(int(sheetID))
	cell := sh.GetOrInsertCell(int(col), int(row))
	rest := payload[4:]

	switch id {
	case cellText, cellTextForm, cellComment:
		return p.readTextCell(id, cell, rest)
	case cellDoub10:
		return readSimpleNumber(cell, rest, 10, numeric.DecodeF10)
	case cellDoubU16:
		return readSimpleNumber(cell, rest, 2, numeric.DecodeF2Inv)
	case cellDoubU32:
		return readSimpleNumber(cell, rest, 4, numeric.DecodeF4Inv)
	case cellDoub8:
		return readSimpleNumber(cell, rest, 8, numeric.DecodeF8)
	case cellDoub10Form:
		return p.readFormulaCell(cell, rest, 10, numeric.DecodeF10, int(col), int(row))
	case cellDoub8Form:
		return p.readFormulaCell(cell, rest, 8, numeric.DecodeF8, int(col), int(row))
	}
	return nil
}

// halignSentinel maps a text cell's optional leading alignment byte to a
// style.HAlign override.
func halignSentinel(b byte) (style.HAlign, bool) {
	switch b {
	case '\'':
		return style.HAlignGeneral, true
	case '\\':
		return style.HAlignLeft, true
	case '^':
		return style.HAlignCenter, true
	case '"':
		return style.HAlignRight, true
	}
	return 0, false
}

// readTextCell decodes a NUL-terminated text run, optionally preceded by an
// alignment sentinel byte. id==cellComment stores the text as the cell's
// comment instead of its content; id==cellTextForm only overwrites content
// if the cell is not already a formula result (it is the text rendering of
// an existing formula cell).
func (p *parser) readTextCell(id uint8, cell *cellmodel.Cell, data []byte) error {
	pos := 0
	if len(data) > 0 {
		if align, ok := halignSentinel(data[0]); ok {
			v := int(align)
			cell.HAlignOverride = &v
			pos = 1
		}
	}
	end := pos
	for end < len(data) && data[end] != 0 {
		end++
	}
	text, err := bytestream.DecodeLatin1(data[pos:end])
	if err != nil {
		return err
	}

	switch id {
	case cellComment:
		cell.Comment = &text
	case cellTextForm:
		if cell.Content.Kind != cellmodel.KindFormula {
			cell.Content = cellmodel.CellContent{Kind: cellmodel.KindText, Text: text}
		}
	default:
		cell.Content = cellmodel.CellContent{Kind: cellmodel.KindText, Text: text}
	}
	return nil
}

// numDecoder is the shape every numeric.Decode* function shares.
type numDecoder func([]byte) (float64, bool, error)

// readSimpleNumber decodes a plain (non-formula) numeric cell: the value
// occupies the first want bytes of data; extra trailing bytes, if any, are
// left unexamined (some record variants pad the payload).
func readSimpleNumber(cell *cellmodel.Cell, data []byte, want int, decode numDecoder) error {
	if len(data) < want {
		return &record.BadPayload{Reason: "numeric cell payload too short"}
	}
	v, isNaN, err := decode(data[:want])
	if err != nil {
		return err
	}
	if isNaN {
		cell.Content = cellmodel.CellContent{Kind: cellmodel.KindError}
		return nil
	}
	if cell.Content.Kind != cellmodel.KindFormula {
		cell.Content = cellmodel.CellContent{Kind: cellmodel.KindNumber, Number: v}
	}
	return nil
}

// readFormulaCell decodes a cached numeric value followed by an RPN
// formula program occupying the remainder of the payload.
func (p *parser) readFormulaCell(cell *cellmodel.Cell, data []byte, numWidth int, decode numDecoder, col, row int) error {
	if len(data) < numWidth {
		return &record.BadPayload{Reason: "formula cell payload shorter than its cached value"}
	}
	v, isNaN, err := decode(data[:numWidth])
	if err != nil {
		return err
	}
	cached := v
	formulaBytes := data[numWidth:]

	expr, ferr := formula.Decode(formulaBytes, formula.LotusOpcodeSet{}, p.doc, col, row)
	if ferr != nil {
		p.opts.logf("lotus: formula decode failed at (%d,%d): %v, reverting cell to numeric", col, row, ferr)
		if isNaN {
			cell.Content = cellmodel.CellContent{Kind: cellmodel.KindError}
			return nil
		}
		cell.Content = cellmodel.CellContent{Kind: cellmodel.KindNumber, Number: v}
		return nil
	}
	cell.Content = cellmodel.CellContent{Kind: cellmodel.KindFormula, Formula: expr, Cached: &cached}
	return nil
}
