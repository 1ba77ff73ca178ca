package formula

import (
	"fmt"

	"github.com/go-wks/wks/bytestream"
	"github.com/go-wks/wks/numeric"
)

// multiplanSharedRefOp is the opcode that indexes into the shared-reference
// side table instead of decoding a cell reference inline.
const multiplanSharedRefOp = 0x06

var multiplanOps = map[byte]OpInfo{
	0x00: {Name: "num", Arity: -2, Kind: KindTerminalNumber},
	0x01: {Name: "int", Arity: -2, Kind: KindTerminalLong},
	0x02: {Name: "ref", Arity: -2, Kind: KindTerminalCellRef},
	0x03: {Name: "range", Arity: -2, Kind: KindTerminalRangeRef},
	0x04: {Name: "str", Arity: -2, Kind: KindTerminalText},
	0x05: {Name: "name", Arity: -2, Kind: KindTerminalName},
	multiplanSharedRefOp: {Name: "sharedref", Arity: -2, Kind: KindTerminalCellRef},

	0x10: {Name: "+", Arity: 2, Kind: KindOperator},
	0x11: {Name: "-", Arity: 2, Kind: KindOperator},
	0x12: {Name: "*", Arity: 2, Kind: KindOperator},
	0x13: {Name: "/", Arity: 2, Kind: KindOperator},
	0x14: {Name: "^", Arity: 2, Kind: KindOperator},
	0x15: {Name: "=", Arity: 2, Kind: KindOperator},
	0x16: {Name: "<>", Arity: 2, Kind: KindOperator},
	0x19: {Name: "<", Arity: 2, Kind: KindOperator},
	0x1a: {Name: ">", Arity: 2, Kind: KindOperator},
	0x1e: {Name: "u-", Arity: 1, Kind: KindOperator},

	0x30: {Name: "(", Arity: -2, Kind: KindParenOpen},
	0x31: {Name: ")", Arity: -2, Kind: KindParenClose},

	0x40: {Name: "SUM", Arity: -2, Kind: KindFunctionStart},
	0x41: {Name: "AVERAGE", Arity: -2, Kind: KindFunctionStart},
	0x42: {Name: "IF", Arity: -2, Kind: KindFunctionStart},
	0x43: {Name: "NPER", Arity: -2, Kind: KindFunctionStart},
	0x46: {Name: "TERM", Arity: -2, Kind: KindFunctionStart},
	0x47: {Name: "CTERM", Arity: -2, Kind: KindFunctionStart},

	0x50: {Name: ";", Arity: -2, Kind: KindFunctionArgSep},
	0x51: {Name: ")", Arity: -2, Kind: KindFunctionEnd},

	0xff: {Name: "end", Arity: -2, Kind: KindEnd},
}

// MultiplanOpcodeSet implements OpcodeSet for the Multiplan formula opcode
// table. SideTable is the secondary byte region a shared-reference opcode
// indexes into. The first byte of the formula envelope records the length
// of the primary payload and the side table is what follows it; the caller
// is responsible for slicing the two apart (SplitFormulaEnvelope) before
// calling Decode.
type MultiplanOpcodeSet struct {
	SideTable []byte

	// nextIsShared is set by Lookup when the opcode just read is the
	// shared-reference opcode, so the following ReadCellRef call knows to
	// index into SideTable instead of decoding inline axes.
	nextIsShared bool
}

func NewMultiplanOpcodeSet(sideTable []byte) *MultiplanOpcodeSet {
	return &MultiplanOpcodeSet{SideTable: sideTable}
}

func (m *MultiplanOpcodeSet) Lookup(op byte) (OpInfo, bool) {
	info, ok := multiplanOps[op]
	if ok && op == multiplanSharedRefOp {
		m.nextIsShared = true
	}
	return info, ok
}

func (m *MultiplanOpcodeSet) ReadNumber(r *bytestream.Reader) (float64, error) {
	b, err := r.Read(8)
	if err != nil {
		return 0, err
	}
	v, isNaN, err := numeric.DecodeF8(b)
	if err != nil {
		return 0, err
	}
	if isNaN {
		return 0, fmt.Errorf("formula: multiplan number operand is a NaN sentinel")
	}
	return v, nil
}

func (m *MultiplanOpcodeSet) ReadLong(r *bytestream.Reader) (int64, error) {
	v, err := r.I32()
	return int64(v), err
}

func (m *MultiplanOpcodeSet) ReadCellRef(r *bytestream.Reader, ctxCol, ctxRow int) (CellRef, error) {
	if m.nextIsShared {
		m.nextIsShared = false
		idx, err := r.U8()
		if err != nil {
			return CellRef{}, err
		}
		offset := int(idx) * 4
		if offset+4 > len(m.SideTable) {
			return CellRef{}, fmt.Errorf("formula: shared-ref index %d out of range (side table has %d bytes)", idx, len(m.SideTable))
		}
		sub := bytestream.New(m.SideTable[offset : offset+4])
		return readCellRefAxes(sub, ctxCol, ctxRow)
	}
	return readCellRefAxes(r, ctxCol, ctxRow)
}

func (m *MultiplanOpcodeSet) ReadRangeRef(r *bytestream.Reader, ctxCol, ctxRow int) (CellRef, CellRef, error) {
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

func (m *MultiplanOpcodeSet) ReadText(r *bytestream.Reader) (string, error) {
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

func (m *MultiplanOpcodeSet) ReadNameRef(r *bytestream.Reader) (int, error) {
	v, err := r.U16()
	return int(v), err
}

// SplitFormulaEnvelope reads the first byte of a Multiplan formula envelope
// (the primary-region length) and returns the primary payload and the
// trailing shared-reference side table separately, per the envelope's
// length-prefixed layout.
func SplitFormulaEnvelope(data []byte) (primary []byte, sideTable []byte, err error) {
	if len(data) < 1 {
		return nil, nil, fmt.Errorf("formula: empty multiplan formula envelope")
	}
	primaryLen := int(data[0])
	if 1+primaryLen > len(data) {
		return nil, nil, fmt.Errorf("formula: declared primary length %d exceeds envelope size %d", primaryLen, len(data)-1)
	}
	return data[1 : 1+primaryLen], data[1+primaryLen:], nil
}
