package formula

import (
	"fmt"

	"github.com/go-wks/wks/bytestream"
	"github.com/go-wks/wks/numeric"
)

// lotusOps is the Lotus v3 opcode table. It is not exhaustive against the
// ~100 functions the full Lotus function catalog holds; unlisted opcodes are a
// decode error, per the "missing entries are errors" rule, not an invented
// fallback.
var lotusOps = map[byte]OpInfo{
	0x00: {Name: "num", Arity: -2, Kind: KindTerminalNumber},
	0x01: {Name: "int", Arity: -2, Kind: KindTerminalLong},
	0x02: {Name: "ref", Arity: -2, Kind: KindTerminalCellRef},
	0x03: {Name: "range", Arity: -2, Kind: KindTerminalRangeRef},
	0x04: {Name: "str", Arity: -2, Kind: KindTerminalText},
	0x05: {Name: "name", Arity: -2, Kind: KindTerminalName},

	0x10: {Name: "+", Arity: 2, Kind: KindOperator},
	0x11: {Name: "-", Arity: 2, Kind: KindOperator},
	0x12: {Name: "*", Arity: 2, Kind: KindOperator},
	0x13: {Name: "/", Arity: 2, Kind: KindOperator},
	0x14: {Name: "^", Arity: 2, Kind: KindOperator},
	0x15: {Name: "=", Arity: 2, Kind: KindOperator},
	0x16: {Name: "<>", Arity: 2, Kind: KindOperator},
	0x17: {Name: "<=", Arity: 2, Kind: KindOperator},
	0x18: {Name: ">=", Arity: 2, Kind: KindOperator},
	0x19: {Name: "<", Arity: 2, Kind: KindOperator},
	0x1a: {Name: ">", Arity: 2, Kind: KindOperator},
	0x1b: {Name: "&", Arity: 2, Kind: KindOperator}, // concatenation
	0x1c: {Name: "#AND#", Arity: 2, Kind: KindOperator},
	0x1d: {Name: "#OR#", Arity: 2, Kind: KindOperator},
	0x1e: {Name: "u-", Arity: 1, Kind: KindOperator},
	0x1f: {Name: "u+", Arity: 1, Kind: KindOperator},
	0x20: {Name: "#NOT#", Arity: 1, Kind: KindOperator},

	0x30: {Name: "(", Arity: -2, Kind: KindParenOpen},
	0x31: {Name: ")", Arity: -2, Kind: KindParenClose},

	0x40: {Name: "SUM", Arity: -2, Kind: KindFunctionStart},
	0x41: {Name: "AVERAGE", Arity: -2, Kind: KindFunctionStart},
	0x42: {Name: "IF", Arity: -2, Kind: KindFunctionStart},
	0x43: {Name: "NPER", Arity: -2, Kind: KindFunctionStart},
	0x44: {Name: "PV", Arity: -2, Kind: KindFunctionStart},
	0x45: {Name: "FV", Arity: -2, Kind: KindFunctionStart},
	0x46: {Name: "TERM", Arity: -2, Kind: KindFunctionStart},
	0x47: {Name: "CTERM", Arity: -2, Kind: KindFunctionStart},
	0x48: {Name: "MIN", Arity: -2, Kind: KindFunctionStart},
	0x49: {Name: "MAX", Arity: -2, Kind: KindFunctionStart},
	0x4a: {Name: "COUNT", Arity: -2, Kind: KindFunctionStart},
	0x4b: {Name: "ABS", Arity: -2, Kind: KindFunctionStart},

	0x50: {Name: ";", Arity: -2, Kind: KindFunctionArgSep},
	0x51: {Name: ")", Arity: -2, Kind: KindFunctionEnd},

	0xff: {Name: "end", Arity: -2, Kind: KindEnd},
}

// LotusOpcodeSet implements OpcodeSet for the Lotus formula opcode table.
type LotusOpcodeSet struct{}

func (LotusOpcodeSet) Lookup(op byte) (OpInfo, bool) {
	info, ok := lotusOps[op]
	return info, ok
}

func (LotusOpcodeSet) ReadNumber(r *bytestream.Reader) (float64, error) {
	b, err := r.Read(8)
	if err != nil {
		return 0, err
	}
	v, isNaN, err := numeric.DecodeF8(b)
	if err != nil {
		return 0, err
	}
	if isNaN {
		return 0, fmt.Errorf("formula: lotus number operand is a NaN sentinel")
	}
	return v, nil
}

func (LotusOpcodeSet) ReadLong(r *bytestream.Reader) (int64, error) {
	v, err := r.I32()
	return int64(v), err
}

func (LotusOpcodeSet) ReadCellRef(r *bytestream.Reader, ctxCol, ctxRow int) (CellRef, error) {
	return readCellRefAxes(r, ctxCol, ctxRow)
}

func (LotusOpcodeSet) ReadRangeRef(r *bytestream.Reader, ctxCol, ctxRow int) (CellRef, CellRef, error) {
	start, err := readCellRefAxes(r, ctxCol, ctxRow)
	if err != nil {
		return CellRef{}, CellRef{}, err
	}
	end, err := readCellRefAxes(r, ctxCol, ctxRow)
	if err != nil {
		return CellRef{}, CellRef{}, err
	}
	return start, end, nil
}

func (LotusOpcodeSet) ReadText(r *bytestream.Reader) (string, error) {
	n, err := r.U8()
	if err != nil {
		return "", err
	}
	b, err := r.Read(int(n))
	if err != nil {
		return "", err
	}
	return bytestream.DecodeLatin1(b)
}

func (LotusOpcodeSet) ReadNameRef(r *bytestream.Reader) (int, error) {
	v, err := r.U16()
	return int(v), err
}
