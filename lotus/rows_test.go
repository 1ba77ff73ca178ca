package lotus

import "testing"

// rowFormatEntry packs one id=0x13 entry.
func rowFormatEntry(sheetID byte, row, height int, flags byte, styleWord int) []byte {
	return []byte{
		sheetID,
		byte(row), byte(row >> 8),
		byte(height), byte(height >> 8),
		flags,
		byte(styleWord), byte(styleWord >> 8),
	}
}

func TestRowFormatsAndStyleChain(t *testing.T) {
	var data []byte
	data = append(data, bofV3()...)
	// Row 1 carries style 7; rows 2 and 3 chain up to it.
	var entries []byte
	entries = append(entries, rowFormatEntry(0, 1, 14, 1, 7)...)
	entries = append(entries, rowFormatEntry(0, 2, 14, 0, 0x8001)...)
	entries = append(entries, rowFormatEntry(0, 3, 14, 0, 0x8002)...)
	data = append(data, envRecord(0x13, 0, entries)...)
	data = append(data, eof()...)

	doc, err := Parse(data, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sh := doc.Sheets[0]
	for _, row := range []int{1, 2, 3} {
		id, ok := sh.RowStyleID(row)
		if !ok || id != 7 {
			t.Fatalf("row %d style = %d ok=%v, want 7 via the parent chain", row, id, ok)
		}
	}
	if got := sh.RowHeightAt(1); got != 14 {
		t.Fatalf("row 1 height = %v, want 14", got)
	}
}

func TestRowStyleCycleWarns(t *testing.T) {
	var data []byte
	data = append(data, bofV3()...)
	var entries []byte
	entries = append(entries, rowFormatEntry(0, 1, 10, 0, 0x8002)...)
	entries = append(entries, rowFormatEntry(0, 2, 10, 0, 0x8001)...)
	data = append(data, envRecord(0x13, 0, entries)...)
	data = append(data, eof()...)

	doc, err := Parse(data, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sh := doc.Sheets[0]
	if id, ok := sh.RowStyleID(1); ok {
		t.Fatalf("cyclic row resolved to style %d, want unresolved", id)
	}
}

// TestRowSizes1B drives the nested 0x7d7 record: 8-byte entries whose
// height unit converts as (value+31)/32 points, with 0xFFFF meaning
// default.
func TestRowSizes1B(t *testing.T) {
	payload := []byte{
		0, 0, // sheet id, reserved
		2, 0, 0x41, 0x00, 0, 0, 0xFF, 0xFF, // row 2, height (0x41+31)/32 = 3pt
		5, 0, 0xFF, 0xFF, 0, 0, 0xFF, 0xFF, // row 5, default height
	}
	var data []byte
	data = append(data, bofV3()...)
	data = append(data, nestedRecord(subRowSizes, payload)...)
	data = append(data, eof()...)

	doc, err := Parse(data, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sh := doc.Sheets[0]
	if got := sh.RowHeightAt(2); got != 3 {
		t.Fatalf("row 2 height = %v, want 3", got)
	}
}
