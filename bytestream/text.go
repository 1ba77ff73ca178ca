package bytestream

import (
	"fmt"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// DecodeLatin1 decodes a single-byte-per-character run using the Windows-1252
// / Latin-1 family encodings that pre-Unicode Lotus and Multiplan files use
// for text cells, labels, and names.
func DecodeLatin1(b []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("bytestream: latin-1 decode: %w", err)
	}
	return string(out), nil
}

// DecodeMacRoman decodes the Macintosh Roman single-byte encoding used by
// Lotus for Macintosh (WK3/WK4 on Mac) text runs.
func DecodeMacRoman(b []byte) (string, error) {
	out, err := charmap.Macintosh.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("bytestream: mac-roman decode: %w", err)
	}
	return string(out), nil
}

// DecodeUTF16LE decodes a little-endian UTF-16 run, as used by Lotus 4/123
// and Multiplan v3 "unicode" string records.
func DecodeUTF16LE(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("bytestream: odd-length utf-16 run (%d bytes)", len(b))
	}
	words := make([]uint16, len(b)/2)
	for i := range words {
		words[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return string(utf16.Decode(words)), nil
}

// TextEncoding names the byte-level encoding of a text run, selected by the
// record header or workbook-level codepage.
type TextEncoding int

const (
	EncodingLatin1 TextEncoding = iota
	EncodingMacRoman
	EncodingUTF16LE
)

// DecodeText dispatches to the right decoder for enc.
func DecodeText(b []byte, enc TextEncoding) (string, error) {
	switch enc {
	case EncodingMacRoman:
		return DecodeMacRoman(b)
	case EncodingUTF16LE:
		return DecodeUTF16LE(b)
	default:
		return DecodeLatin1(b)
	}
}

// EncodingFromCodepage maps the small set of codepage ids this system
// encounters in Lotus/Multiplan CODEPAGE-equivalent records to a TextEncoding.
// Unrecognized codepages fall back to Latin-1 (ISO-8859-1).
func EncodingFromCodepage(codepage int) TextEncoding {
	switch codepage {
	case 1200:
		return EncodingUTF16LE
	case 10000, 32768:
		return EncodingMacRoman
	default:
		return EncodingLatin1
	}
}

// ReadPascalString reads a length-prefixed string: a 1- or 2-byte count
// followed by that many encoded bytes, returning the decoded string and the
// offset in data just past the string's last byte.
func ReadPascalString(data []byte, pos int, lenBytes int, enc TextEncoding) (string, int, error) {
	if lenBytes != 1 && lenBytes != 2 {
		lenBytes = 1
	}
	if pos+lenBytes > len(data) {
		return "", pos, &ErrEOF{Pos: pos, Want: lenBytes, Len: len(data)}
	}
	var n int
	if lenBytes == 1 {
		n = int(data[pos])
	} else {
		n = int(data[pos]) | int(data[pos+1])<<8
	}
	pos += lenBytes

	byteLen := n
	if enc == EncodingUTF16LE {
		byteLen = n * 2
	}
	if pos+byteLen > len(data) {
		return "", pos, &ErrEOF{Pos: pos, Want: byteLen, Len: len(data)}
	}
	s, err := DecodeText(data[pos:pos+byteLen], enc)
	if err != nil {
		return "", pos, err
	}
	return s, pos + byteLen, nil
}
