package lotus

import (
	"math"
	"testing"

	"github.com/go-wks/wks/cellmodel"
	"github.com/go-wks/wks/record"
)

// f8LE encodes v as 8 little-endian IEEE-754 binary64 bytes.
func f8LE(v float64) []byte {
	bits := math.Float64bits(v)
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(bits >> (8 * i))
	}
	return b
}

// envRecord builds one Lotus outer envelope: id, type, size (little-endian),
// payload.
func envRecord(id, typ byte, payload []byte) []byte {
	size := len(payload)
	out := []byte{id, typ, byte(size), byte(size >> 8)}
	return append(out, payload...)
}

func bofV1() []byte {
	return envRecord(0, 0, []byte{0x01, 0x10})
}

func eof() []byte {
	return envRecord(1, 0, nil)
}

// TestParseMinimalNumberCell parses a minimal stream with one numeric
// cell.
func TestParseMinimalNumberCell(t *testing.T) {
	payload := append([]byte{0x00, 0x00, 0x00, 0x00}, f8LE(42.0)...)
	data := append(bofV1(), envRecord(cellDoub8, 0, payload)...)
	data = append(data, eof()...)

	doc, err := Parse(data, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Version != 1 {
		t.Fatalf("version = %d, want 1", doc.Version)
	}
	if len(doc.Sheets) != 1 {
		t.Fatalf("sheets = %d, want 1", len(doc.Sheets))
	}
	cell := doc.Sheets[0].GetOrInsertCell(0, 0)
	if cell.Content.Kind != cellmodel.KindNumber {
		t.Fatalf("content kind = %v, want KindNumber", cell.Content.Kind)
	}
	if cell.Content.Number != 42.0 {
		t.Fatalf("content number = %v, want 42.0", cell.Content.Number)
	}
}

// TestParseFormulaCell decodes a formula cell whose
// RPN program is two relative cell references and an add operator. At cell
// C3 the references A1,B1 (encoded as (-2,-2) and (-1,-2) relative to the
// formula's context cell) must decode to cell refs with those same
// relative offsets, ready for the formula package's own rendering tests.
func TestParseFormulaCell(t *testing.T) {
	formulaBytes := []byte{
		0x02, 0xfe, 0x7f, 0xfe, 0x7f, // ref op: relative (col=-2, row=-2), i.e. A1 from C3
		0x02, 0xff, 0x7f, 0xfe, 0x7f, // ref op: relative (col=-1, row=-2), i.e. B1 from C3
		0x10, // +
		0xff, // end
	}
	cached := f8LE(0)
	payload := append([]byte{0x02, 0x00, 0x00, 0x02}, cached...) // row=2, sheet=0, col=2 (C3)
	payload = append(payload, formulaBytes...)

	data := append(bofV1(), envRecord(cellDoub8Form, 0, payload)...)
	data = append(data, eof()...)

	doc, err := Parse(data, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cell := doc.Sheets[0].GetOrInsertCell(2, 2)
	if cell.Content.Kind != cellmodel.KindFormula {
		t.Fatalf("content kind = %v, want KindFormula", cell.Content.Kind)
	}
	if cell.Content.Formula == nil || len(cell.Content.Formula.Instructions) != 3 {
		t.Fatalf("expected 3 instructions (ref, ref, +), got %+v", cell.Content.Formula)
	}
}

// TestParseBadVersionWord exercises the UnsupportedFormatVariantError path
// for a BOF word outside the recognized 0x1000-0x1005 range; this error
// must propagate to the caller rather than be swallowed as a skip-and-warn
// condition.
func TestParseBadVersionWord(t *testing.T) {
	data := envRecord(0, 0, []byte{0x00, 0x20})
	_, err := Parse(data, Options{})
	if err == nil {
		t.Fatal("expected an error for an unrecognized BOF version word")
	}
	if _, ok := err.(*record.UnsupportedFormatVariantError); !ok {
		t.Fatalf("err = %T, want *record.UnsupportedFormatVariantError", err)
	}
}
