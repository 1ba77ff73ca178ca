// Package record decodes the tagged-record envelope shared by every family
// this module reads: a short fixed header naming a type and a byte_size,
// followed by that many payload bytes. Lotus and Multiplan disagree on the
// header layout, so each gets its own decode_next, but both hand back the
// same Record shape to the dispatcher above them.
package record

import (
	"fmt"

	"github.com/go-wks/wks/bytestream"
)

// Record is a decoded envelope: a type tag and the bounds of its payload
// within the stream that produced it. payload_start/payload_end are
// absolute offsets, not lengths, so a dispatcher can re-seek to them.
type Record struct {
	TypeID       int
	PayloadStart int
	PayloadEnd   int

	// LotusID is the outer record's id byte (Lotus only); zero for
	// Multiplan and for the synthetic record produced by an inner 0x1b
	// envelope.
	LotusID uint8

	// Inner holds the nested record when this is a Lotus type=0, id=0x1b
	// envelope: the outer Record's payload is the inner subtype plus its
	// own payload, and Inner is that recursively-decoded Record.
	Inner *Record
}

// Payload returns the record's payload bytes from data.
func (r *Record) Payload(data []byte) ([]byte, error) {
	return bytestream.Slice(data, r.PayloadStart, r.PayloadEnd)
}

// BadRecord reports an envelope that failed a length or type check. The
// Lotus dispatcher logs it, advances one byte past where the reader
// stopped, and retries.
type BadRecord struct {
	Offset int
	Reason string
}

func (e *BadRecord) Error() string {
	return fmt.Sprintf("record: bad record at offset %d: %s", e.Offset, e.Reason)
}

// lotusNestedType is the type byte that introduces a nested subtype
// envelope in the id,type pair ("type=0, id=0x1b").
const (
	lotusNestedType = 0
	lotusNestedID   = 0x1b
)

// DecodeNextLotus reads one Lotus outer envelope: id:u8, type:u8,
// size:u16le, payload[size]. When the envelope is the nested type=0,
// id=0x1b shape, it recursively decodes the inner subtype envelope and
// attaches it via Inner. It returns (nil, nil) at a clean end of stream.
func DecodeNextLotus(r *bytestream.Reader) (*Record, error) {
	if r.EndOfStream() {
		return nil, nil
	}
	start := r.Tell()
	id, err := r.U8()
	if err != nil {
		return nil, &BadRecord{Offset: start, Reason: "short id byte"}
	}
	typ, err := r.U8()
	if err != nil {
		return nil, &BadRecord{Offset: start, Reason: "short type byte"}
	}
	size, err := r.U16()
	if err != nil {
		return nil, &BadRecord{Offset: start, Reason: "short size field"}
	}
	payloadStart := r.Tell()
	if !r.CheckPosition(payloadStart + int(size)) {
		return nil, &BadRecord{Offset: start, Reason: "declared size exceeds stream"}
	}
	payloadEnd := payloadStart + int(size)
	r.SeekAbs(payloadEnd)

	rec := &Record{
		TypeID:       int(typ),
		LotusID:      id,
		PayloadStart: payloadStart,
		PayloadEnd:   payloadEnd,
	}

	if typ == lotusNestedType && id == lotusNestedID {
		// Bound a fresh reader to this record's own payload so a malformed
		// inner subtype cannot read past the outer record.
		innerData, sliceErr := bytestream.Slice(r.Bytes(), payloadStart, payloadEnd)
		if sliceErr != nil {
			return nil, &BadRecord{Offset: start, Reason: "nested envelope payload out of range"}
		}
		ir := bytestream.New(innerData)
		subtype, err := ir.U16()
		if err != nil {
			return nil, &BadRecord{Offset: payloadStart, Reason: "short nested subtype"}
		}
		rec.Inner = &Record{
			TypeID:       int(subtype),
			PayloadStart: payloadStart + 2,
			PayloadEnd:   payloadEnd,
		}
	}

	return rec, nil
}

// multiplanMinHeader is the fixed portion of a Multiplan envelope:
// record_type, flag, byte_size, all u16le (6 bytes); byte_size counts
// itself, so a well-formed record always has byte_size >= 6.
const multiplanMinHeader = 6

// DecodeNextMultiplan reads one Multiplan envelope: record_type:u16le,
// flag:u16le, byte_size:u16le, payload[byte_size-6]. It returns (nil, nil)
// at a clean end of stream.
func DecodeNextMultiplan(r *bytestream.Reader) (*Record, error) {
	if r.EndOfStream() {
		return nil, nil
	}
	start := r.Tell()
	typ, err := r.U16()
	if err != nil {
		return nil, &BadRecord{Offset: start, Reason: "short record_type field"}
	}
	_, err = r.U16() // flag; carried by callers that need it via re-read of the header bytes
	if err != nil {
		return nil, &BadRecord{Offset: start, Reason: "short flag field"}
	}
	byteSize, err := r.U16()
	if err != nil {
		return nil, &BadRecord{Offset: start, Reason: "short byte_size field"}
	}
	if byteSize < multiplanMinHeader {
		return nil, &BadRecord{Offset: start, Reason: "byte_size smaller than header"}
	}
	payloadStart := r.Tell()
	payloadLen := int(byteSize) - multiplanMinHeader
	if !r.CheckPosition(payloadStart + payloadLen) {
		return nil, &BadRecord{Offset: start, Reason: "declared size exceeds stream"}
	}
	payloadEnd := payloadStart + payloadLen
	r.SeekAbs(payloadEnd)

	return &Record{
		TypeID:       int(typ),
		PayloadStart: payloadStart,
		PayloadEnd:   payloadEnd,
	}, nil
}
