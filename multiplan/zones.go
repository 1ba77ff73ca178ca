package multiplan

import (
	"sort"

	"github.com/go-wks/wks/bytestream"
	"github.com/go-wks/wks/formula"
	"github.com/go-wks/wks/record"
)

// The fixed header preceding the record-tagged zones list: a LinkFiles
// table ("zone B"), eight fixed-size descriptor slots ("zone C"), the
// column-width table, and "zone D" whose tail (v2/v3 only) carries a
// direct file-offset pointer to the zones list. Grounded on
// the format's fixed header layout (0x2/0x1a start, 8*0x1f-byte LinkFiles
// slots,
// 8 zoneC slots of 22/28 bytes, the numCols-byte column table, and the
// u16 position pointer 27 bytes into zone D).
const (
	linkFileEntrySize = 0x1f
	linkFileCount     = 8
	zoneDPointerOff   = 27
)

func zoneBStart(version int) int {
	if version == 1 {
		return 0x2
	}
	return 0x1a
}

func zoneCEntrySize(version int) int {
	if version == 1 {
		return 22
	}
	return 28
}

// findColumnWidthOffset returns the file offset of the column-width table.
func findColumnWidthOffset(data []byte, version int) (int, error) {
	start := zoneBStart(version) + linkFileCount*linkFileEntrySize
	start += zoneCEntrySize(version) * 8
	if start >= len(data) {
		return 0, &record.BadPayload{Reason: "file too short for the fixed header zones"}
	}
	return start, nil
}

// locateZonesList finds the absolute file offset where the record-tagged
// zones list begins, by reading the position pointer 27 bytes into zone D.
// v1 has no such pointer; its zones list uses an older offset-table format
// that predates the record-tagged layout and this package does not decode
// it, per the v1 early-return in Parse.
func locateZonesList(data []byte, zoneDStart int) (int, error) {
	ptrOffset := zoneDStart + zoneDPointerOff
	if ptrOffset+2 > len(data) {
		return 0, &record.BadPayload{Reason: "file too short for the zone D position pointer"}
	}
	r := bytestream.New(data[ptrOffset:])
	newPos, err := r.U16()
	if err != nil {
		return 0, &record.BadPayload{Reason: "short zone D position pointer"}
	}
	if int(newPos) < zoneDStart || int(newPos) >= len(data) {
		return 0, &record.BadPayload{Reason: "zone D position pointer out of range"}
	}
	return int(newPos), nil
}

// zoneKind enumerates the five pool zones named directly in the zone
// catalog (CellData is tracked separately in cellZones since, unlike the
// others, it can span several catalog entries).
type zoneKind int

const (
	zoneZone0 zoneKind = iota
	zoneLink
	zoneFileName
	zoneName
	zoneSharedData
)

type byteRange struct {
	begin, length int
}

// cellZone is one CellData zone: a byte range plus the set of offsets
// within it that a row's position table actually references, needed to
// bound a variable-length cell record (the next used offset, or the
// zone's end, whichever comes first).
type cellZone struct {
	begin, length int
	positions     []int
}

func (z cellZone) end() int { return z.begin + z.length }

// endPosFor returns the bound for a cell record starting at offset pos
// within this zone: the next referenced offset bounds the record.
func (z cellZone) endPosFor(pos int) int {
	idx := sort.SearchInts(z.positions, pos)
	if idx < len(z.positions) && z.positions[idx] == pos {
		idx++
	}
	if idx < len(z.positions) {
		return z.begin + z.positions[idx]
	}
	return z.end()
}

// zoneCatalog is the parsed record-tagged zones list (v2/v3 only).
type zoneCatalog struct {
	entries   [5]byteRange
	cellZones []cellZone
	rows      map[int][]int // row index -> column positions, zoneId<<16|offset, 0 = empty
}

// parseZonesListV2 decodes the N:u16 row count, activates decryption over
// the remainder if the document is password-protected, then reads the
// six-slot zone catalog, any extra CellData zones (tagged 0xc), and the
// per-row cell position table. Finally it walks every row's positions to
// populate the sheet, and gives the Name/Link pools a best-effort parse.
func parseZonesListV2(doc *Document, data []byte, version int, opts Options, hash, checksum int) error {
	head := bytestream.New(data)
	n, err := head.U16()
	if err != nil {
		return &record.BadPayload{Reason: "zones list too short for its row count"}
	}

	body := data[2:]
	if hash != 0 || checksum != 0 {
		body, err = activateEncryption(body, opts.Password, hash, checksum)
		if err != nil {
			return err
		}
	}

	cat := &zoneCatalog{rows: make(map[int][]int)}
	r := bytestream.New(body)

	for i := 0; i < 6; i++ {
		before := r.Tell()
		rec, err := record.DecodeNextMultiplan(r)
		if err != nil || rec == nil || rec.TypeID < 7 || rec.TypeID > 12 {
			r.SeekAbs(before)
			break
		}
		kind := rec.TypeID - 7
		begin := rec.PayloadStart - 6
		rng := byteRange{begin: begin, length: rec.PayloadEnd - begin}
		if kind == 5 {
			if len(cat.cellZones) == 0 {
				cat.cellZones = append(cat.cellZones, cellZone{begin: rng.begin, length: rng.length})
			}
			break
		}
		cat.entries[kind] = rng
	}

	for {
		before := r.Tell()
		rec, err := record.DecodeNextMultiplan(r)
		if err != nil || rec == nil || rec.TypeID != 0xc {
			r.SeekAbs(before)
			break
		}
		begin := rec.PayloadStart - 6
		cat.cellZones = append(cat.cellZones, cellZone{begin: begin, length: rec.PayloadEnd - begin})
	}

	marker, err := r.U16()
	if err != nil || marker != 6 {
		return &record.BadPayload{Reason: "missing row position table header"}
	}

	for i := 0; i < int(n); i++ {
		rowStart := r.Tell()
		if _, err := r.U16(); err != nil { // usually 6, informational only
			return &record.BadPayload{Reason: "row position entry too short"}
		}
		dSz, err := r.U16()
		if err != nil || int(dSz) < 4 {
			return &record.BadPayload{Reason: "row position entry too short"}
		}
		num, err := r.U16()
		if err != nil || 8+3*int(num) > 2*int(dSz) {
			return &record.BadPayload{Reason: "row position entry count inconsistent"}
		}
		row, err := r.U16()
		if err != nil {
			return &record.BadPayload{Reason: "row position entry missing row index"}
		}
		positions := make([]int, num)
		for d := 0; d < int(num); d++ {
			lo, err1 := r.U16()
			zb, err2 := r.U8()
			if err1 != nil || err2 != nil {
				return &record.BadPayload{Reason: "row position entry truncated"}
			}
			p := int(lo) + 0x10000*int(zb)
			positions[d] = p
			if p != 0 && int(zb) < len(cat.cellZones) {
				cat.cellZones[zb].positions = append(cat.cellZones[zb].positions, p&0xffff)
			}
		}
		cat.rows[int(row)] = positions
		r.SeekAbs(rowStart + 2*int(dSz))
	}

	for i := range cat.cellZones {
		sort.Ints(cat.cellZones[i].positions)
	}

	decodeCells(doc, body, cat, version, opts)
	parseNamePool(doc, body, cat.entries[zoneName], opts)
	parseLinkPool(doc, body, cat.entries[zoneLink], opts)
	return nil
}

// parseNamePool gives the Name zone a best-effort parse as a run of
// pascal-string-prefixed entries. The exact kind-byte layout beyond the
// common name+range shape varies between writers, so this sticks to the
// Lotus Link-record shape (name, then a range or text) rather than
// inventing one.
func parseNamePool(doc *Document, body []byte, zone byteRange, opts Options) {
	if zone.length == 0 {
		return
	}
	data, err := bytestream.Slice(body, zone.begin+6, zone.begin+zone.length)
	if err != nil {
		opts.logf("multiplan: name zone out of range: %v", err)
		return
	}
	pos := 0
	for pos < len(data) {
		name, next, err := bytestream.ReadPascalString(data, pos, 1, bytestream.EncodingLatin1)
		if err != nil || next >= len(data) {
			break
		}
		kind := data[next]
		pos = next + 1
		if kind == 0 {
			if pos+8 > len(data) {
				break
			}
			rr := bytestream.New(data[pos:])
			startCol, _ := rr.U16()
			startRow, _ := rr.U16()
			endCol, _ := rr.U16()
			endRow, _ := rr.U16()
			doc.addName(name, formula.NameEntry{
				IsRange: true,
				Range: [2]formula.CellRef{
					{Col: int(startCol), Row: int(startRow)},
					{Col: int(endCol), Row: int(endRow)},
				},
			})
			pos += 8
			continue
		}
		text, next2, err := bytestream.ReadPascalString(data, pos, 1, bytestream.EncodingLatin1)
		if err != nil {
			break
		}
		doc.addName(name, formula.NameEntry{Text: text})
		pos = next2
	}
}

// parseLinkPool mirrors parseNamePool for the Link zone: a pool of
// external-reference names, each binding to a cell range or text value.
func parseLinkPool(doc *Document, body []byte, zone byteRange, opts Options) {
	if zone.length == 0 {
		return
	}
	data, err := bytestream.Slice(body, zone.begin+6, zone.begin+zone.length)
	if err != nil {
		opts.logf("multiplan: link zone out of range: %v", err)
		return
	}
	pos := 0
	for pos < len(data) {
		name, next, err := bytestream.ReadPascalString(data, pos, 1, bytestream.EncodingLatin1)
		if err != nil || next >= len(data) {
			break
		}
		text, next2, err := bytestream.ReadPascalString(data, next, 1, bytestream.EncodingLatin1)
		if err != nil {
			break
		}
		doc.addName(name, formula.NameEntry{Text: text})
		pos = next2
	}
}
