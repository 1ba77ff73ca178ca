package formula

import "github.com/go-wks/wks/bytestream"

// readAxisRef reads one axis (column or row) of a cell reference: a
// little-endian u16 whose top bit is the absolute flag and whose low 15
// bits are either an absolute coordinate or a signed relative delta from
// ctx, sign-extended from bit 14.
func readAxisRef(r *bytestream.Reader, ctx int) (value int, absolute bool, err error) {
	raw, err := r.U16()
	if err != nil {
		return 0, false, err
	}
	absolute = raw&0x8000 != 0
	v := int(raw & 0x7fff)
	if absolute {
		return v, true, nil
	}
	if v&0x4000 != 0 {
		v -= 0x8000
	}
	return ctx + v, false, nil
}

// readCellRefAxes decodes one full cell reference (column axis then row
// axis) relative to the context cell (ctxCol, ctxRow).
func readCellRefAxes(r *bytestream.Reader, ctxCol, ctxRow int) (CellRef, error) {
	col, absCol, err := readAxisRef(r, ctxCol)
	if err != nil {
		return CellRef{}, err
	}
	row, absRow, err := readAxisRef(r, ctxRow)
	if err != nil {
		return CellRef{}, err
	}
	return CellRef{Col: col, Row: row, AbsCol: absCol, AbsRow: absRow}, nil
}
