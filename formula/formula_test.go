package formula

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func axisBytes(delta int, absolute bool) []byte {
	v := uint16(delta) & 0x7fff
	if absolute {
		v |= 0x8000
	}
	return []byte{byte(v), byte(v >> 8)}
}

func refBytes(colDelta, rowDelta int) []byte {
	out := axisBytes(colDelta, false)
	out = append(out, axisBytes(rowDelta, false)...)
	return out
}

func TestDecodeCellRefPlusOperator(t *testing.T) {
	var data []byte
	data = append(data, 0x02)
	data = append(data, refBytes(0, 0)...) // A1 relative to ctx (0,0)
	data = append(data, 0x02)
	data = append(data, refBytes(1, 0)...) // B1
	data = append(data, 0x10)              // +
	data = append(data, 0xff)              // end

	expr, err := Decode(data, LotusOpcodeSet{}, nil, 0, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []Instruction{
		{Tag: TagCellRef, Ref: CellRef{Col: 0, Row: 0}},
		{Tag: TagCellRef, Ref: CellRef{Col: 1, Row: 0}},
		{Tag: TagOperator, Text: "+"},
	}
	if diff := cmp.Diff(want, expr.Instructions); diff != "" {
		t.Errorf("instructions mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeParenIsTransparent(t *testing.T) {
	var data []byte
	data = append(data, 0x30) // (
	data = append(data, 0x02)
	data = append(data, refBytes(0, 0)...)
	data = append(data, 0x31) // )
	data = append(data, 0xff)

	expr, err := Decode(data, LotusOpcodeSet{}, nil, 0, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []Instruction{{Tag: TagCellRef, Ref: CellRef{Col: 0, Row: 0}}}
	if diff := cmp.Diff(want, expr.Instructions); diff != "" {
		t.Errorf("instructions mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeFunctionWithArgSeparator(t *testing.T) {
	var data []byte
	data = append(data, 0x40) // SUM(
	data = append(data, 0x02)
	data = append(data, refBytes(0, 0)...)
	data = append(data, 0x50) // ;
	data = append(data, 0x02)
	data = append(data, refBytes(1, 0)...)
	data = append(data, 0x51) // )
	data = append(data, 0xff)

	expr, err := Decode(data, LotusOpcodeSet{}, nil, 0, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []Instruction{
		{Tag: TagCellRef, Ref: CellRef{Col: 0, Row: 0}},
		{Tag: TagCellRef, Ref: CellRef{Col: 1, Row: 0}},
		{Tag: TagFunction, Text: "SUM"},
	}
	if diff := cmp.Diff(want, expr.Instructions); diff != "" {
		t.Errorf("instructions mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTermRemapsToNper(t *testing.T) {
	var data []byte
	data = append(data, 0x46) // TERM(
	data = append(data, 0x00) // pmt: number literal
	data = append(data, f8Bytes(100)...)
	data = append(data, 0x50)
	data = append(data, 0x00) // pint
	data = append(data, f8Bytes(0.01)...)
	data = append(data, 0x50)
	data = append(data, 0x00) // fv
	data = append(data, f8Bytes(1000)...)
	data = append(data, 0x51)
	data = append(data, 0xff)

	expr, err := Decode(data, LotusOpcodeSet{}, nil, 0, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []Instruction{
		{Tag: TagDoubleLiteral, Number: 0.01},
		{Tag: TagDoubleLiteral, Number: 100},
		{Tag: TagOperator, Text: "u-"},
		{Tag: TagDoubleLiteral, Number: 0},
		{Tag: TagDoubleLiteral, Number: 1000},
		{Tag: TagFunction, Text: "NPER"},
	}
	if diff := cmp.Diff(want, expr.Instructions); diff != "" {
		t.Errorf("TERM should remap to NPER's argument order (-want +got):\n%s", diff)
	}
}

func TestDecodeUnreducedStackIsError(t *testing.T) {
	var data []byte
	data = append(data, 0x00)
	data = append(data, f8Bytes(1)...)
	data = append(data, 0x00)
	data = append(data, f8Bytes(2)...)
	data = append(data, 0xff) // end with two literals and no operator

	_, err := Decode(data, LotusOpcodeSet{}, nil, 0, 0)
	if err == nil {
		t.Fatal("expected error for unreduced stack, got nil")
	}
}

func TestDecodeUnknownOpcodeIsError(t *testing.T) {
	data := []byte{0xaa, 0xff}
	_, err := Decode(data, LotusOpcodeSet{}, nil, 0, 0)
	if err == nil {
		t.Fatal("expected error for unknown opcode, got nil")
	}
}

// f8Bytes encodes f as a little-endian IEEE-754 double, matching the layout
// numeric.DecodeF8 expects.
func f8Bytes(f float64) []byte {
	bits := math.Float64bits(f)
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(bits >> (8 * i))
	}
	return out
}

// FuzzDecodeLotus checks the decoder's safety contract: any byte sequence
// up to 256 bytes either decodes to a single expression or fails with a
// recoverable error, never a panic or an out-of-bounds read.
func FuzzDecodeLotus(f *testing.F) {
	f.Add([]byte{0x02, 0xfe, 0x7f, 0xfe, 0x7f, 0x02, 0xff, 0x7f, 0xfe, 0x7f, 0x10, 0xff})
	f.Add([]byte{0x40, 0x03, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00, 0x51, 0xff})
	f.Add([]byte{0xff})
	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 256 {
			data = data[:256]
		}
		expr, err := Decode(data, LotusOpcodeSet{}, nil, 3, 3)
		if err == nil && expr == nil {
			t.Fatal("Decode returned neither an expression nor an error")
		}
	})
}
