package multiplan

import (
	"github.com/go-wks/wks/bytestream"
	"github.com/go-wks/wks/cellmodel"
	"github.com/go-wks/wks/formula"
	"github.com/go-wks/wks/numeric"
)

// sharedEntry is one decoded Shared-data pool value, memoized under its
// zone offset so every cell referencing the same offset shares the decode.
type sharedEntry struct {
	content cellmodel.CellContent
	ok      bool
}

// readSharedData resolves one shared-data reference: pos is the offset a
// cell record named, cellType the referencing cell's own 2-bit type (the
// pool stores values untyped and lets the cell pick the interpretation).
func (d *Document) readSharedData(body []byte, zone byteRange, pos, cellType, version, col, row int) (cellmodel.CellContent, bool) {
	if e, seen := d.shared[pos]; seen {
		return e.content, e.ok
	}
	content, ok := d.decodeSharedData(body, zone, pos, cellType, version, col, row)
	d.shared[pos] = sharedEntry{content: content, ok: ok}
	return content, ok
}

func (d *Document) decodeSharedData(body []byte, zone byteRange, pos, cellType, version, col, row int) (cellmodel.CellContent, bool) {
	headerLen := 4
	if version == 1 {
		headerLen = 3
	}
	if zone.length == 0 || pos < 0 || pos+headerLen > zone.length {
		return cellmodel.CellContent{}, false
	}
	data, err := bytestream.Slice(body, zone.begin, zone.begin+zone.length)
	if err != nil {
		return cellmodel.CellContent{}, false
	}
	r := bytestream.New(data)
	r.SeekAbs(pos)

	// The leading word is the entry's use count; v1 packs the
	// value-vs-formula tag into its top bit, v2+ carries a separate tag
	// byte whose bit 2 means formula.
	n, err := r.U16()
	if err != nil {
		return cellmodel.CellContent{}, false
	}
	isFormula := false
	if version == 1 {
		isFormula = n&0x8000 != 0
	} else {
		tag, err := r.U8()
		if err != nil {
			return cellmodel.CellContent{}, false
		}
		isFormula = tag&4 != 0
	}
	szByte, err := r.U8()
	if err != nil {
		return cellmodel.CellContent{}, false
	}
	dSz := int(szByte)
	if version >= 2 {
		dSz *= 2
	}
	if r.Tell()+dSz > zone.length {
		return cellmodel.CellContent{}, false
	}

	if isFormula {
		formBytes, err := r.Read(dSz)
		if err != nil {
			return cellmodel.CellContent{}, false
		}
		primary, sideTable, err := formula.SplitFormulaEnvelope(formBytes)
		if err != nil {
			return cellmodel.CellContent{}, false
		}
		ops := formula.NewMultiplanOpcodeSet(sideTable)
		expr, err := formula.Decode(primary, ops, d, col, row)
		if err != nil {
			return cellmodel.CellContent{}, false
		}
		return cellmodel.CellContent{Kind: cellmodel.KindFormula, Formula: expr}, true
	}

	switch cellType & 3 {
	case 0:
		if dSz != 8 {
			return cellmodel.CellContent{}, false
		}
		b, err := r.Read(8)
		if err != nil {
			return cellmodel.CellContent{}, false
		}
		v, isNaN, err := numeric.DecodeF8(b)
		if err != nil {
			return cellmodel.CellContent{}, false
		}
		if isNaN {
			return cellmodel.CellContent{Kind: cellmodel.KindError}, true
		}
		return cellmodel.CellContent{Kind: cellmodel.KindNumber, Number: v}, true
	case 1:
		b, err := r.Read(dSz)
		if err != nil {
			return cellmodel.CellContent{}, false
		}
		// v2+ pads the text to its doubled size with a trailing NUL.
		if version >= 2 && len(b) > 0 && b[len(b)-1] == 0 {
			b = b[:len(b)-1]
		}
		text, err := bytestream.DecodeLatin1(b)
		if err != nil {
			return cellmodel.CellContent{}, false
		}
		return cellmodel.CellContent{Kind: cellmodel.KindText, Text: text}, true
	case 2:
		if dSz != 8 {
			return cellmodel.CellContent{}, false
		}
		return cellmodel.CellContent{Kind: cellmodel.KindError}, true
	default:
		if dSz != 8 {
			return cellmodel.CellContent{}, false
		}
		b, err := r.Read(8)
		if err != nil {
			return cellmodel.CellContent{}, false
		}
		return cellmodel.CellContent{Kind: cellmodel.KindBoolean, Boolean: b[0] != 0}, true
	}
}
