package multiplan

import "testing"

// buildEmptyV2Stream constructs the minimal Multiplan v2 file this
// package's fixed-offset header walk requires: a valid signature, an
// all-zero LinkFiles/zoneC/column-width region, a zone-D position pointer
// aimed at an empty zones list (row count 0, then the row-position-table
// marker), and nothing else. It exercises the same "empty, unencrypted
// document" path an unencrypted v2/v3 file takes.
func buildEmptyV2Stream() []byte {
	colStart := zoneBStart(2) + linkFileCount*linkFileEntrySize + zoneCEntrySize(2)*8
	zoneDStart := colStart + numColsForVersion(2)
	zonesStart := zoneDStart + zoneDPointerOff + 2

	data := make([]byte, zonesStart+4)
	data[0], data[1] = sigV2a, sigV2b

	ptr := zoneDStart + zoneDPointerOff
	data[ptr] = byte(zonesStart)
	data[ptr+1] = byte(zonesStart >> 8)

	// N (row count) = 0, immediately followed by the row-position-table
	// marker (6), with no zone-catalog entries and no rows.
	data[zonesStart] = 0
	data[zonesStart+1] = 0
	data[zonesStart+2] = 6
	data[zonesStart+3] = 0
	return data
}

func TestParseEmptyV2NoPassword(t *testing.T) {
	doc, err := Parse(buildEmptyV2Stream(), Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Version != 2 {
		t.Fatalf("version = %d, want 2", doc.Version)
	}
	if doc.Sheet == nil {
		t.Fatal("expected a non-nil sheet even for an empty document")
	}
	if len(doc.Sheet.Rows()) != 0 {
		t.Fatalf("rows = %d, want 0", len(doc.Sheet.Rows()))
	}
}

func TestDetectVersion(t *testing.T) {
	cases := []struct {
		name    string
		sig     [2]byte
		want    int
		wantErr bool
	}{
		{"v1", [2]byte{sigV1a, sigV1b}, 1, false},
		{"v2", [2]byte{sigV2a, sigV2b}, 2, false},
		{"v3", [2]byte{sigV3a, sigV3b}, 3, false},
		{"unrecognized", [2]byte{0xaa, 0xbb}, 0, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := detectVersion([]byte{c.sig[0], c.sig[1]})
			if (err != nil) != c.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, c.wantErr)
			}
			if err == nil && got != c.want {
				t.Fatalf("version = %d, want %d", got, c.want)
			}
		})
	}
}
