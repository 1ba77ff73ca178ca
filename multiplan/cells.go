package multiplan

import (
	"github.com/go-wks/wks/bytestream"
	"github.com/go-wks/wks/cellmodel"
	"github.com/go-wks/wks/formula"
	"github.com/go-wks/wks/numeric"
	"github.com/go-wks/wks/style"
)

// decodeCells walks every row's position table, resolving each non-empty
// entry into the CellData zone it names and decoding the cell there.
func decodeCells(doc *Document, body []byte, cat *zoneCatalog, version int, opts Options) {
	for row, positions := range cat.rows {
		for col, p := range positions {
			if p == 0 {
				continue
			}
			zoneID := p >> 16
			if zoneID < 0 || zoneID >= len(cat.cellZones) {
				opts.logf("multiplan: cell (%d,%d) references unknown zone %d", col, row, zoneID)
				continue
			}
			zone := cat.cellZones[zoneID]
			offset := p & 0xffff
			if offset <= 0 || offset > zone.length {
				opts.logf("multiplan: cell (%d,%d) has out-of-range position %d", col, row, offset)
				continue
			}
			start := zone.begin + offset
			end := zone.endPosFor(offset)
			if end < start+4 || end > len(body) {
				opts.logf("multiplan: cell (%d,%d) record too short", col, row)
				continue
			}
			cell := doc.Sheet.GetOrInsertCell(col, row)
			if err := decodeCell(doc, body, body[start:end], cat.entries[zoneSharedData], version, cell, col, row); err != nil {
				opts.logf("multiplan: cell (%d,%d): %v", col, row, err)
			}
		}
	}
}

// multiplanAlign maps sendCell's 3-bit alignment field to a style.HAlign
// override, or reports that the value carries no override (default,
// generic, or a reserved code this build does not know).
func multiplanAlign(v int) (style.HAlign, bool) {
	switch v {
	case 1:
		return style.HAlignCenter, true
	case 3:
		return style.HAlignLeft, true
	case 4:
		return style.HAlignRight, true
	}
	return 0, false
}

// decodeCell decodes one cell's byte layout: a form-size/digits/format
// header, a type+alignment+shared byte, an optional trailing date/time
// sub-record, an optional two-field formula preamble (v2/v3), the value
// itself, and finally either a shared-data reference or an inline formula.
// body is the whole (decrypted) stream, which shared-data offsets resolve
// against.
func decodeCell(doc *Document, body, data []byte, sharedZone byteRange, version int, cell *cellmodel.Cell, col, row int) error {
	r := bytestream.New(data)
	formSize, err := r.U8()
	if err != nil {
		return errShort("form size")
	}
	fSize := int(formSize)
	if version >= 2 {
		fSize *= 2
	}

	valByte, err := r.U8()
	if err != nil {
		return errShort("format byte")
	}
	digits := int(valByte >> 4)
	form := int(valByte>>1) & 7
	// bit0 is the cell's protected flag; the cell model has no dedicated
	// field for it (protection is a sheet-level property elsewhere in this
	// module), so it is not stored.

	var dSz, valByte2 int
	if version == 1 {
		v, err1 := r.U8()
		d, err2 := r.U8()
		if err1 != nil || err2 != nil {
			return errShort("value header")
		}
		valByte2, dSz = int(v), int(d)
	} else {
		d, err1 := r.U8()
		v, err2 := r.U8()
		if err1 != nil || err2 != nil {
			return errShort("value header")
		}
		dSz, valByte2 = int(d), int(v)
	}

	extraSize := 0
	if version >= 2 && fSize != 0 {
		extraSize = 4
	}
	if len(data) < 4+dSz+extraSize {
		return errShort("cell record")
	}

	cellType := (valByte2 >> 6) & 3
	align := (valByte2 >> 3) & 7
	hasShared := valByte2&2 != 0
	hasTimeDate := align == 7 && version >= 3

	if ha, ok := multiplanAlign(align); ok {
		v := int(ha)
		cell.HAlignOverride = &v
	}
	cell.StyleID = doc.styleIDFor(form, digits, align)

	if hasTimeDate && 4+dSz+extraSize+4 <= len(data) {
		// The date/time sub-record lives at the tail of the cell's payload,
		// not inline; its own alignment byte can override the one above.
		tail := bytestream.New(data[len(data)-4:])
		_, _ = tail.U8() // expected 2
		tb, err := tail.U8()
		if err == nil {
			if ha, ok := multiplanAlign(int(tb) & 7); ok {
				v := int(ha)
				cell.HAlignOverride = &v
			}
		}
		_, _ = tail.U16() // date/time format selector, not surfaced on Cell
	}

	if version >= 2 && fSize != 0 {
		if _, err := r.Read(4); err != nil {
			return errShort("formula preamble")
		}
	}

	switch {
	case cellType == 0 && dSz == 8:
		b, err := r.Read(8)
		if err != nil {
			return errShort("double value")
		}
		v, isNaN, err := numeric.DecodeF8(b)
		if err != nil {
			return err
		}
		if isNaN {
			cell.Content = cellmodel.CellContent{Kind: cellmodel.KindError}
		} else {
			cell.Content = cellmodel.CellContent{Kind: cellmodel.KindNumber, Number: v}
		}
	case cellType == 1 && dSz != 0:
		b, err := r.Read(dSz)
		if err != nil {
			return errShort("text value")
		}
		text, err := bytestream.DecodeLatin1(b)
		if err != nil {
			return err
		}
		cell.Content = cellmodel.CellContent{Kind: cellmodel.KindText, Text: text}
	case cellType == 2 && dSz == 8:
		if _, err := r.Read(8); err != nil {
			return errShort("nan value")
		}
		cell.Content = cellmodel.CellContent{Kind: cellmodel.KindError}
	case cellType == 3 && dSz == 8:
		b, err := r.Read(8)
		if err != nil {
			return errShort("boolean value")
		}
		cell.Content = cellmodel.CellContent{Kind: cellmodel.KindBoolean, Boolean: b[0] != 0}
	}

	if hasShared && (fSize == 0 || fSize == 2) {
		if r.Tell()%2 != 0 {
			_, _ = r.U8()
		}
		nPos, err := r.U16()
		if err != nil {
			return nil
		}
		shared, ok := doc.readSharedData(body, sharedZone, int(nPos), cellType, version, col, row)
		if !ok {
			return &shortCellError{field: "shared-data referent"}
		}
		if shared.Kind == cellmodel.KindFormula {
			// The cell's own value block is the cached result; the shared
			// entry supplies the program.
			var cached *float64
			if cell.Content.Kind == cellmodel.KindNumber {
				v := cell.Content.Number
				cached = &v
			}
			cell.Content = cellmodel.CellContent{Kind: cellmodel.KindFormula, Formula: shared.Formula, Cached: cached}
		} else {
			cell.Content = shared
		}
		return nil
	}

	if !hasShared && fSize != 0 {
		formBytes, err := r.Read(fSize)
		if err != nil {
			return nil
		}
		primary, sideTable, err := formula.SplitFormulaEnvelope(formBytes)
		if err != nil {
			return nil
		}
		ops := formula.NewMultiplanOpcodeSet(sideTable)
		expr, ferr := formula.Decode(primary, ops, doc, col, row)
		if ferr != nil {
			return nil
		}
		cached := cell.Content.Number
		cell.Content = cellmodel.CellContent{Kind: cellmodel.KindFormula, Formula: expr, Cached: &cached}
	}
	return nil
}

type shortCellError struct{ field string }

func (e *shortCellError) Error() string { return "cell record too short for its " + e.field }

func errShort(field string) error { return &shortCellError{field: field} }
