package lotus

import (
	"github.com/go-wks/wks/bytestream"
	"github.com/go-wks/wks/cellmodel"
	"github.com/go-wks/wks/formula"
	"github.com/go-wks/wks/record"
)

// columnWidthUnitPt converts the stored character-unit column width to
// points (7 points per character).
const columnWidthUnitPt = 7.0

// readColumnSizes handles id=7: sheetId:u8, val:u8 (unused), f1:u16
// (unused), then (col:u8, width:u8) pairs for the rest of the payload.
func (p *parser) readColumnSizes(payload []byte) error {
	if len(payload) < 4 {
		return &record.BadPayload{RecordType: 7, Reason: "column sizes payload shorter than header"}
	}
	sheetID := payload[0]
	sh := p.doc.sheet(int(sheetID))
	body := payload[4:]
	for i := 0; i+1 < len(body); i += 2 {
		col := int(body[i])
		widthChars := int(body[i+1])
		fmt := cellmodel.ColumnFormat{WidthPt: float64(widthChars) * columnWidthUnitPt, WidthSet: true}
		if err := sh.SetColumnWidth(col, fmt); err != nil {
			p.opts.logf("lotus: %v", err)
		}
	}
	return nil
}

// readColumnDefinition handles id=0x1f: sheetId:u8, col:u8, N:u8, val:u8
// (unused), then N row-bound pairs. The bounds themselves are an internal
// optimization hint in the original and have no home in the cell model;
// we record the column as present (growing the width vector if needed)
// and otherwise only log the bounds.
func (p *parser) readColumnDefinition(payload []byte) error {
	if len(payload) < 4 {
		return &record.BadPayload{RecordType: 0x1f, Reason: "column definition payload shorter than header"}
	}
	sheetID, col, n := payload[0], payload[1], int(payload[2])
	sh := p.doc.sheet(int(sheetID))
	if err := sh.SetColumnWidth(int(col), sh.ColumnFormatAt(int(col))); err != nil {
		p.opts.logf("lotus: %v", err)
	}
	r := bytestream.New(payload[4:])
	for i := 0; i < n; i++ {
		lo, err1 := r.U16()
		hi, err2 := r.U16()
		if err1 != nil || err2 != nil {
			break
		}
		p.opts.logf("lotus: column %d bound [%d,%d]", col, lo, hi)
	}
	return nil
}

// readSheetName handles id=0x23: val:u16 (unused), sheetId:u8, f1:u8
// (unused), then a NUL-terminated name filling the remainder of the
// payload.
func (p *parser) readSheetName(payload []byte) error {
	if len(payload) < 4 {
		return &record.BadPayload{RecordType: 0x23, Reason: "sheet name payload shorter than header"}
	}
	sheetID := payload[2]
	nameBytes := payload[4:]
	end := 0
	for end < len(nameBytes) && nameBytes[end] != 0 {
		end++
	}
	name, err := bytestream.DecodeLatin1(nameBytes[:end])
	if err != nil {
		return err
	}
	p.doc.sheet(int(sheetID)).Name = name
	return nil
}

// rowFormatUnitPt converts the row-height field (recorded in the same
// character-row unit as Lotus's default row height) to points.
const rowFormatUnitPt = 1.0

// readRowFormats handles id=0x13: a packed run of per-row format entries,
// each sheetId:u8, row:u16, heightUnits:u16, flags:u8 (bit0 = is-minimal,
// bit1 = is-header), style:u16. The style word is either a cell-style id,
// or (top bit set) a parent-row reference the end-of-parse chain
// resolution follows until it finds a row with an actual style. This
// layout is a generalization consistent with cellmodel.RowFormat's fields
// rather than a byte-exact port, since the original's exact bit layout for
// this record was not fully recovered.
func (p *parser) readRowFormats(payload []byte) error {
	r := bytestream.New(payload)
	for !r.EndOfStream() {
		sheetID, err := r.U8()
		if err != nil {
			break
		}
		row, err := r.U16()
		if err != nil {
			return &record.BadPayload{RecordType: 0x13, Reason: "short row field"}
		}
		heightUnits, err := r.U16()
		if err != nil {
			return &record.BadPayload{RecordType: 0x13, Reason: "short height field"}
		}
		flags, err := r.U8()
		if err != nil {
			return &record.BadPayload{RecordType: 0x13, Reason: "short flags field"}
		}
		styleWord, err := r.U16()
		if err != nil {
			return &record.BadPayload{RecordType: 0x13, Reason: "short style field"}
		}
		sh := p.doc.sheet(int(sheetID))
		sh.SetRowHeight(int(row), cellmodel.RowFormat{
			HeightPt:  float64(heightUnits) * rowFormatUnitPt,
			IsMinimal: flags&1 != 0,
			IsHeader:  flags&2 != 0,
		})
		key := sheetKey(int(sheetID), int(row))
		switch {
		case styleWord == 0:
		case styleWord&0x8000 != 0:
			p.doc.rowParent[key] = sheetKey(int(sheetID), int(styleWord&0x7fff))
		default:
			p.doc.rowExplicit[key] = int(styleWord)
		}
	}
	return nil
}

// readCellName handles id=9: a named range binding, name as a length-
// prefixed string followed by sheetId:u8 and four u16 coordinates
// (startCol, startRow, endCol, endRow).
func (p *parser) readCellName(payload []byte) error {
	name, pos, err := bytestream.ReadPascalString(payload, 0, 1, bytestream.EncodingLatin1)
	if err != nil {
		return &record.BadPayload{RecordType: 9, Reason: "short name string"}
	}
	if pos+9 > len(payload) {
		return &record.BadPayload{RecordType: 9, Reason: "short range fields"}
	}
	sheetID := payload[pos]
	r := bytestream.New(payload[pos+1:])
	startCol, _ := r.U16()
	startRow, _ := r.U16()
	endCol, _ := r.U16()
	endRow, _ := r.U16()

	sheetName := p.doc.sheet(int(sheetID)).Name
	entry := formula.NameEntry{
		IsRange: true,
		Range: [2]formula.CellRef{
			{Col: int(startCol), Row: int(startRow), Sheet: sheetName},
			{Col: int(endCol), Row: int(endRow), Sheet: sheetName},
		},
	}
	p.doc.addName(name, entry)
	return nil
}

// Link-zone kinds, from the record's leading type word.
const (
	linkKindRange = 0 // chart/note link: two (row, sheet, col) endpoints
	linkKindFile  = 1 // cross-file link: a file name string
)

// linkNameField is the fixed reservation for a link's name: up to 14 bytes,
// NUL-terminated early, always followed at offset 18 by the value.
const linkNameField = 14

// readLinkZone handles id=0xa, the Link-pool record: a kind word, an owner
// id (the chart id for chart links), a fixed-width name, then either two
// range endpoints or a file name. Every link also lands in the Name pool
// under its name so formula name references and text legends resolve
// through the same table.
func (p *parser) readLinkZone(payload []byte) error {
	if len(payload) < 19 {
		return &record.BadPayload{RecordType: 0xa, Reason: "link record too short"}
	}
	r := bytestream.New(payload)
	kind, _ := r.U16()
	if kind != linkKindRange && kind != linkKindFile {
		return &record.BadPayload{RecordType: 0xa, Reason: "unknown link kind"}
	}
	r.Skip(1) // selection id, unused
	owner, _ := r.U8()

	nameBytes, _ := r.Read(linkNameField)
	end := 0
	for end < len(nameBytes) && nameBytes[end] != 0 {
		end++
	}
	name, err := bytestream.DecodeLatin1(nameBytes[:end])
	if err != nil {
		return err
	}

	link := Link{Name: name}
	switch kind {
	case linkKindRange:
		if len(payload) < 26 {
			return &record.BadPayload{RecordType: 0xa, Reason: "link range fields truncated"}
		}
		for i := 0; i < 2; i++ {
			row, _ := r.U16()
			sheet, _ := r.U8()
			col, err := r.U8()
			if err != nil {
				return err
			}
			link.Cells[i] = LinkCell{Col: int(col), Row: int(row), Sheet: int(sheet)}
		}
		sheetName := p.doc.sheet(link.Cells[0].Sheet).Name
		p.doc.addName(name, formula.NameEntry{
			IsRange: true,
			Range: [2]formula.CellRef{
				{Col: link.Cells[0].Col, Row: link.Cells[0].Row, Sheet: sheetName},
				{Col: link.Cells[1].Col, Row: link.Cells[1].Row, Sheet: sheetName},
			},
		})
	case linkKindFile:
		fileBytes := payload[18:]
		fend := 0
		for fend < len(fileBytes) && fileBytes[fend] != 0 {
			fend++
		}
		file, err := bytestream.DecodeLatin1(fileBytes[:fend])
		if err != nil {
			return err
		}
		link.File = file
		p.doc.addName(name, formula.NameEntry{Text: file})
	}

	if p.doc.links[int(owner)] == nil {
		p.doc.links[int(owner)] = make(map[string]Link)
	}
	p.doc.links[int(owner)][name] = link
	return nil
}

// Nested-zone subtypes for the sheet-layout records.
const (
	subSheetBegin  = 0x7d5
	subRowSizes    = 0x7d7
	subSheetName1B = 0x36b0
	subNote        = 0x6590
)

// readSheetBegin handles subtype 0x7d5: the marker that opens one sheet's
// record run and names the sheet every following per-sheet record without
// its own id applies to.
func (p *parser) readSheetBegin(payload []byte) error {
	if len(payload) != 11 {
		return &record.BadPayload{RecordType: subSheetBegin, Reason: "sheet begin has a bad size"}
	}
	p.currentSheetID = int(payload[0])
	p.doc.sheet(p.currentSheetID)
	p.setState(stateBody)
	return nil
}

// readRowSizes handles subtype 0x7d7: a sheet id, a reserved byte, then
// 8-byte entries of (row, height, two selectors). Height 0xFFFF means the
// row keeps the default; otherwise the stored unit converts to points as
// (value+31)/32.
func (p *parser) readRowSizes(payload []byte) error {
	if len(payload) < 10 || len(payload)%8 != 2 {
		return &record.BadPayload{RecordType: subRowSizes, Reason: "row sizes has a bad size"}
	}
	sh := p.doc.sheet(int(payload[0]))
	r := bytestream.New(payload[2:])
	n := len(payload) / 8
	for i := 0; i < n; i++ {
		row, _ := r.U16()
		dim, err := r.U16()
		if err != nil {
			return err
		}
		if dim != 0xFFFF {
			sh.SetRowHeight(int(row), cellmodel.RowFormat{HeightPt: float64(dim+31) / 32})
		}
		r.SeekAbs((i + 1) * 8)
	}
	return nil
}

// readSheetName1B handles subtype 0x36b0: a u16 sheet id and a
// NUL-terminated name, the v4.5+ replacement for the id=0x23 record.
func (p *parser) readSheetName1B(payload []byte) error {
	if len(payload) < 3 {
		return &record.BadPayload{RecordType: subSheetName1B, Reason: "sheet name too short"}
	}
	sheetID := int(payload[0]) | int(payload[1])<<8
	nameBytes := payload[2:]
	end := 0
	for end < len(nameBytes) && nameBytes[end] != 0 {
		end++
	}
	name, err := bytestream.DecodeLatin1(nameBytes[:end])
	if err != nil {
		return err
	}
	if name != "" {
		p.doc.sheet(sheetID).Name = name
	}
	return nil
}

// readNote handles subtype 0x6590: an id byte, two flag bytes, and the note
// text. Notes carry no cell anchor in the stream, so they collect on the
// document.
func (p *parser) readNote(payload []byte) error {
	if len(payload) < 4 {
		return &record.BadPayload{RecordType: subNote, Reason: "note too short"}
	}
	body := payload[3:]
	end := 0
	for end < len(body) && body[end] != 0 {
		end++
	}
	text, err := bytestream.DecodeLatin1(body[:end])
	if err != nil {
		return err
	}
	p.doc.Notes = append(p.doc.Notes, text)
	return nil
}
