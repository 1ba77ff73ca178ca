package lotus

import (
	"testing"

	"github.com/go-wks/wks/cellmodel"
)

// bofWK1 returns the DOS WK1 header bytes from the file-signature table:
// 00 00 02 00 04 06.
func bofWK1() []byte {
	return envRecord(0, 0, []byte{0x04, 0x06})
}

// TestWK1MinimalNumberCell parses a minimal WK1 stream: a
// BOF, one Number record (id=0x0F, format byte 0x7E, cell A1, IEEE 42.0),
// and an EOF, yielding one sheet with one numeric cell.
func TestWK1MinimalNumberCell(t *testing.T) {
	payload := append([]byte{0x7E, 0, 0, 0, 0}, f8LE(42.0)...)
	var data []byte
	data = append(data, bofWK1()...)
	data = append(data, envRecord(wk1Number, 0, payload)...)
	data = append(data, eof()...)

	doc, err := Parse(data, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Sheets) != 1 {
		t.Fatalf("sheets = %d, want 1", len(doc.Sheets))
	}
	cell := doc.Sheets[0].GetOrInsertCell(0, 0)
	if cell.Content.Kind != cellmodel.KindNumber || cell.Content.Number != 42.0 {
		t.Fatalf("cell = %+v, want number 42.0", cell.Content)
	}
}

func TestWK1LabelAndInteger(t *testing.T) {
	var data []byte
	data = append(data, bofWK1()...)
	data = append(data, envRecord(wk1Label, 0, append([]byte{0, 1, 0, 0, 0}, "'hello\x00"...))...)
	data = append(data, envRecord(wk1Integer, 0, []byte{0, 2, 0, 0, 0, 0xFE, 0xFF})...)
	data = append(data, eof()...)

	doc, err := Parse(data, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sh := doc.Sheets[0]
	label := sh.GetOrInsertCell(1, 0)
	if label.Content.Kind != cellmodel.KindText || label.Content.Text != "hello" {
		t.Fatalf("label = %+v, want text hello", label.Content)
	}
	if label.HAlignOverride == nil {
		t.Fatal("alignment sentinel not recorded")
	}
	integer := sh.GetOrInsertCell(2, 0)
	if integer.Content.Kind != cellmodel.KindNumber || integer.Content.Number != -2 {
		t.Fatalf("integer = %+v, want number -2", integer.Content)
	}
}

func TestWK1Formula(t *testing.T) {
	formulaBytes := []byte{
		0x02, 0xfe, 0x7f, 0xfe, 0x7f, // ref: relative (-2,-2)
		0x02, 0xff, 0x7f, 0xfe, 0x7f, // ref: relative (-1,-2)
		0x10, // +
		0xff, // end
	}
	payload := []byte{0, 2, 0, 2, 0} // format, col=2, row=2 (C3)
	payload = append(payload, f8LE(3.0)...)
	payload = append(payload, byte(len(formulaBytes)), 0)
	payload = append(payload, formulaBytes...)

	var data []byte
	data = append(data, bofWK1()...)
	data = append(data, envRecord(wk1Formula, 0, payload)...)
	data = append(data, eof()...)

	doc, err := Parse(data, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cell := doc.Sheets[0].GetOrInsertCell(2, 2)
	if cell.Content.Kind != cellmodel.KindFormula {
		t.Fatalf("cell kind = %v, want formula", cell.Content.Kind)
	}
	if cell.Content.Cached == nil || *cell.Content.Cached != 3.0 {
		t.Fatalf("cached = %v, want 3.0", cell.Content.Cached)
	}
	instrs := cell.Content.Formula.Instructions
	if len(instrs) != 3 {
		t.Fatalf("instructions = %d, want 3 (ref, ref, +)", len(instrs))
	}
	if instrs[0].Ref.Col != 0 || instrs[0].Ref.Row != 0 {
		t.Fatalf("first ref = %+v, want A1", instrs[0].Ref)
	}
}

func TestWK1ColumnWidthAndNamedRange(t *testing.T) {
	name := make([]byte, wk1NameField)
	copy(name, "TOTALS")
	rangeBytes := append(name, 1, 0, 0, 0, 1, 0, 9, 0)

	var data []byte
	data = append(data, bofWK1()...)
	data = append(data, envRecord(wk1ColWidth, 0, []byte{3, 0, 12})...)
	data = append(data, envRecord(wk1NamedRange, 0, rangeBytes)...)
	data = append(data, eof()...)

	doc, err := Parse(data, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cf := doc.Sheets[0].ColumnFormatAt(3)
	if !cf.WidthSet || cf.WidthPt != 12*columnWidthUnitPt {
		t.Fatalf("column 3 = %+v, want width set to 12 chars", cf)
	}
	id, ok := doc.nameByStr["TOTALS"]
	if !ok {
		t.Fatal("named range TOTALS not registered")
	}
	entry, _ := doc.Resolve(id)
	if !entry.IsRange || entry.Range[1].Row != 9 {
		t.Fatalf("named range = %+v, want B1:B10", entry)
	}
}
