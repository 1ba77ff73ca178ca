// Package multiplan implements the record dispatcher for Microsoft
// Multiplan versions 1-3: header/version detection, the column-width
// table, the Name/Link/FileName/SharedData/CellData zone catalog, password
// activation, and cell-content decoding.
//
// The v1 header uses an older offset-table mechanism to place its zones;
// v2/v3 carry a record-tagged zone catalog reached through a position
// pointer in the fixed header. Cell records share one byte layout across
// versions (form/digits/type/alignment/shared flags and four content
// types), with v1 swapping two header bytes.
package multiplan

import (
	"fmt"
	"io"

	"github.com/go-wks/wks/bytestream"
	"github.com/go-wks/wks/cellmodel"
	"github.com/go-wks/wks/cipher"
	"github.com/go-wks/wks/formula"
	"github.com/go-wks/wks/record"
	"github.com/go-wks/wks/style"
)

// Options configures a Parse call; see lotus.Options for the shared shape.
type Options struct {
	Password         string
	Logfile          io.Writer
	Verbosity        int
	IgnoreCorruption bool
}

func (o Options) logf(format string, args ...interface{}) {
	if o.Logfile == nil {
		return
	}
	fmt.Fprintf(o.Logfile, format+"\n", args...)
}

// Version signature bytes at offset 0-1.
const (
	sigV1a, sigV1b = 0x08, 0xE7
	sigV2a, sigV2b = 0x0C, 0xEC
	sigV3a, sigV3b = 0x0C, 0xED
)

// hashChecksumOffset is where a v2/v3 file stores its 16-bit hash and
// checksum pair.
const hashChecksumOffset = 22

// numColsForVersion is the column-width table length: 63 for v1, 255 for
// v2/v3, per Multiplan.cpp's readColumnsWidth.
func numColsForVersion(version int) int {
	if version == 1 {
		return 63
	}
	return 255
}

// Document is the result of parsing one Multiplan stream.
type Document struct {
	Version int
	Sheet   *cellmodel.Sheet

	ColumnWidths []int // raw per-column width byte, 255 meaning "unset"

	NumericFormats *style.Table[style.NumericFormat]
	CellFormats    *style.Table[style.CellFormat]

	names     map[int]formula.NameEntry
	nameByStr map[string]int
	nextName  int

	numFormatCache  map[int]int
	cellFormatCache map[int]int

	// shared memoizes the Shared-data pool by zone offset; entries decode
	// on first reference, per the pool contract.
	shared map[int]sharedEntry

	warnings []string
}

func newDocument() *Document {
	return &Document{
		Sheet:           cellmodel.NewSheet("Sheet1"),
		NumericFormats:  style.NewTable[style.NumericFormat](),
		CellFormats:     style.NewTable[style.CellFormat](),
		names:           make(map[int]formula.NameEntry),
		nameByStr:       make(map[string]int),
		numFormatCache:  make(map[int]int),
		cellFormatCache: make(map[int]int),
		shared:          make(map[int]sharedEntry),
	}
}

// styleIDFor returns the cell style id carrying the given numeric-format
// kind/digit count and alignment override, interning both the numeric
// format and the wrapping cell format so repeated cells with identical
// formatting share one id. form/digits/align follow sendCell's field
// encoding directly (form's subFormat mapping, digits, and the 3-bit
// alignment code); a fully default combination returns 0 (no style).
func (d *Document) styleIDFor(form, digits, align int) int {
	kind, hasDigits := multiplanFormatKind(form)
	ha, hasAlign := multiplanAlign(align)
	if kind == style.FormatGeneral && !hasAlign && (!hasDigits || digits == 0) {
		return 0
	}

	numKey := form<<8 | digits
	numID, ok := d.numFormatCache[numKey]
	if !ok {
		numID = len(d.numFormatCache) + 1
		d.numFormatCache[numKey] = numID
		d.NumericFormats.Insert(numID, style.NumericFormat{Kind: kind, Digits: digits})
	}

	cellKey := numID<<8 | int(ha)
	cellID, ok := d.cellFormatCache[cellKey]
	if !ok {
		cellID = len(d.cellFormatCache) + 1
		cf := style.CellFormat{FormatID: numID, Digits: digits}
		if hasAlign {
			cf.HAlign = ha
		}
		d.cellFormatCache[cellKey] = cellID
		d.CellFormats.Insert(cellID, cf)
	}
	return cellID
}

// multiplanFormatKind maps sendCell's 3-bit form field to a
// style.NumericFormatKind, reporting whether the kind also carries a
// meaningful digit count.
func multiplanFormatKind(form int) (style.NumericFormatKind, bool) {
	switch form {
	case 1:
		return style.FormatFixed, true
	case 2:
		return style.FormatScientific, true
	case 3:
		return style.FormatFixed, true
	case 5:
		return style.FormatCurrency, true
	case 7:
		return style.FormatPercent, true
	default:
		return style.FormatGeneral, false
	}
}

// Resolve implements formula.NamePool.
func (d *Document) Resolve(id int) (formula.NameEntry, bool) {
	e, ok := d.names[id]
	return e, ok
}

func (d *Document) addName(name string, entry formula.NameEntry) int {
	id := d.nextName
	d.nextName++
	d.names[id] = entry
	d.nameByStr[name] = id
	return id
}

// detectVersion reads the 2-byte signature and reports the Multiplan
// version, or an UnsupportedFormatVariantError for an unrecognized one.
func detectVersion(data []byte) (int, error) {
	if len(data) < 2 {
		return 0, &record.BadSignature{Reason: "file shorter than the signature"}
	}
	switch {
	case data[0] == sigV1a && data[1] == sigV1b:
		return 1, nil
	case data[0] == sigV2a && data[1] == sigV2b:
		return 2, nil
	case data[0] == sigV3a && data[1] == sigV3b:
		return 3, nil
	default:
		return 0, &record.BadSignature{Reason: fmt.Sprintf("unrecognized Multiplan signature %02x %02x", data[0], data[1])}
	}
}

// readHashChecksum reads the v3 encryption fingerprint at its fixed offset.
// v1 and v2 carry no password support, so callers only call this for
// version == 3.
func readHashChecksum(data []byte) (hash, checksum int, err error) {
	if len(data) < hashChecksumOffset+4 {
		return 0, 0, &record.BadPayload{Reason: "file too short for hash/checksum fields"}
	}
	h := bytestream.New(data[hashChecksumOffset:])
	hv, _ := h.U16()
	cv, _ := h.U16()
	return int(hv), int(cv), nil
}

// Parse decodes a raw Multiplan stream (the whole DOS file, or the
// extracted "MN0" compound-document substream).
func Parse(data []byte, opts Options) (*Document, error) {
	version, err := detectVersion(data)
	if err != nil {
		return nil, err
	}
	doc := newDocument()
	doc.Version = version

	var hash, checksum int
	if version == 3 {
		hash, checksum, err = readHashChecksum(data)
		if err != nil {
			return nil, err
		}
	}

	numCols := numColsForVersion(version)
	colStart, err := findColumnWidthOffset(data, version)
	if err != nil {
		opts.logf("multiplan: %v, column widths unavailable", err)
	} else if colStart+numCols <= len(data) {
		doc.ColumnWidths = make([]int, numCols)
		for i := 0; i < numCols; i++ {
			w := int(data[colStart+i])
			if w == 0 && version <= 2 {
				w = 255
			}
			doc.ColumnWidths[i] = w
		}
		for i, w := range doc.ColumnWidths {
			if w != 255 {
				_ = doc.Sheet.SetColumnWidth(i, cellmodel.ColumnFormat{WidthPt: float64(w) * columnWidthUnitPt, WidthSet: true})
			}
		}
	}

	if version == 1 {
		opts.logf("multiplan: v1 zones list uses the non-record-tagged offset table, not decoded in this build")
		return doc, nil
	}

	zonesStart, err := locateZonesList(data, colStart+numCols)
	if err != nil {
		return nil, err
	}

	if err := parseZonesListV2(doc, data[zonesStart:], version, opts, hash, checksum); err != nil {
		return nil, err
	}
	return doc, nil
}

// columnWidthUnitPt mirrors the Lotus character-width-to-points factor;
// Multiplan's column width byte is in the same coarse character unit.
const columnWidthUnitPt = 7.0

// activateEncryption derives (or recovers) the document's decode keys and
// returns the decoded body.
func activateEncryption(body []byte, password string, hash, checksum int) ([]byte, error) {
	keys, ok := cipher.CheckMultiplanPassword(password, hash, checksum)
	if !ok && len(body) >= 16 {
		var raw [16]byte
		copy(raw[:], body[:16])
		keys, _, ok = cipher.RetrieveMultiplanPasswordKeys(raw, hash, checksum)
	}
	if !ok {
		return nil, &record.PasswordRequiredError{Reason: "Multiplan password did not verify and could not be recovered"}
	}
	decoded, err := cipher.DecodeMultiplanStream(body, keys)
	if err != nil {
		return nil, fmt.Errorf("multiplan: decoding encrypted stream: %w", err)
	}
	return decoded, nil
}
