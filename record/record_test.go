package record

import (
	"testing"

	"github.com/go-wks/wks/bytestream"
)

func TestDecodeNextLotusOuter(t *testing.T) {
	// id=0x0f, type=0x01, size=3, payload=AA BB CC
	data := []byte{0x0f, 0x01, 0x03, 0x00, 0xAA, 0xBB, 0xCC}
	r := bytestream.New(data)
	rec, err := DecodeNextLotus(r)
	if err != nil {
		t.Fatalf("DecodeNextLotus: %v", err)
	}
	if rec == nil {
		t.Fatal("DecodeNextLotus: want record, got nil")
	}
	if rec.TypeID != 0x01 || rec.LotusID != 0x0f {
		t.Errorf("rec = %+v, want type=1 id=0xf", rec)
	}
	if rec.PayloadStart != 4 || rec.PayloadEnd != 7 {
		t.Errorf("payload bounds = [%d,%d), want [4,7)", rec.PayloadStart, rec.PayloadEnd)
	}
	payload, err := rec.Payload(data)
	if err != nil || string(payload) != "\xAA\xBB\xCC" {
		t.Errorf("Payload() = %x, %v", payload, err)
	}
	if r.Tell() != 7 {
		t.Errorf("Tell() after decode = %d, want 7", r.Tell())
	}

	rec2, err := DecodeNextLotus(r)
	if err != nil || rec2 != nil {
		t.Errorf("DecodeNextLotus at EOF = %v, %v; want nil, nil", rec2, err)
	}
}

func TestDecodeNextLotusNested(t *testing.T) {
	// outer: id=0x1b, type=0, size=4 (2 subtype + 2 payload); inner subtype=0x0005, payload=CC DD
	data := []byte{0x1b, 0x00, 0x04, 0x00, 0x05, 0x00, 0xCC, 0xDD}
	r := bytestream.New(data)
	rec, err := DecodeNextLotus(r)
	if err != nil {
		t.Fatalf("DecodeNextLotus: %v", err)
	}
	if rec.TypeID != 0 || rec.LotusID != 0x1b {
		t.Fatalf("outer rec = %+v", rec)
	}
	if rec.Inner == nil {
		t.Fatal("want nested Inner record, got nil")
	}
	if rec.Inner.TypeID != 0x0005 {
		t.Errorf("Inner.TypeID = %x, want 5", rec.Inner.TypeID)
	}
	payload, err := rec.Inner.Payload(data)
	if err != nil || string(payload) != "\xCC\xDD" {
		t.Errorf("Inner.Payload() = %x, %v", payload, err)
	}
}

func TestDecodeNextLotusOversize(t *testing.T) {
	data := []byte{0x00, 0x00, 0xFF, 0xFF} // size = 0xFFFF, far past stream
	r := bytestream.New(data)
	if _, err := DecodeNextLotus(r); err == nil {
		t.Fatal("DecodeNextLotus with oversize declared length: want error, got nil")
	}
}

func TestDecodeNextLotusShortHeader(t *testing.T) {
	data := []byte{0x01}
	r := bytestream.New(data)
	if _, err := DecodeNextLotus(r); err == nil {
		t.Fatal("DecodeNextLotus with short header: want error, got nil")
	}
}

func TestDecodeNextMultiplan(t *testing.T) {
	// record_type=9, flag=0, byte_size=9 (6 header + 3 payload), payload=01 02 03
	data := []byte{0x09, 0x00, 0x00, 0x00, 0x09, 0x00, 0x01, 0x02, 0x03}
	r := bytestream.New(data)
	rec, err := DecodeNextMultiplan(r)
	if err != nil {
		t.Fatalf("DecodeNextMultiplan: %v", err)
	}
	if rec.TypeID != 9 {
		t.Errorf("TypeID = %d, want 9", rec.TypeID)
	}
	if rec.PayloadStart != 6 || rec.PayloadEnd != 9 {
		t.Errorf("payload bounds = [%d,%d), want [6,9)", rec.PayloadStart, rec.PayloadEnd)
	}
	payload, err := rec.Payload(data)
	if err != nil || string(payload) != "\x01\x02\x03" {
		t.Errorf("Payload() = %x, %v", payload, err)
	}

	rec2, err := DecodeNextMultiplan(r)
	if err != nil || rec2 != nil {
		t.Errorf("DecodeNextMultiplan at EOF = %v, %v; want nil, nil", rec2, err)
	}
}

func TestDecodeNextMultiplanByteSizeTooSmall(t *testing.T) {
	data := []byte{0x09, 0x00, 0x00, 0x00, 0x03, 0x00}
	r := bytestream.New(data)
	if _, err := DecodeNextMultiplan(r); err == nil {
		t.Fatal("DecodeNextMultiplan with byte_size < 6: want error, got nil")
	}
}

func TestDecodeNextMultiplanOversize(t *testing.T) {
	data := []byte{0x09, 0x00, 0x00, 0x00, 0xFF, 0xFF}
	r := bytestream.New(data)
	if _, err := DecodeNextMultiplan(r); err == nil {
		t.Fatal("DecodeNextMultiplan with oversize declared length: want error, got nil")
	}
}

func TestDecodeNextMultiplanShortHeader(t *testing.T) {
	data := []byte{0x09, 0x00}
	r := bytestream.New(data)
	if _, err := DecodeNextMultiplan(r); err == nil {
		t.Fatal("DecodeNextMultiplan with short header: want error, got nil")
	}
}

// FuzzDecodeNextLotus checks the envelope decoder's safety contract: for
// any input it must terminate with a well-formed record, an error, or a
// clean EOF, and a returned record's payload bounds must sit inside the
// stream.
func FuzzDecodeNextLotus(f *testing.F) {
	f.Add([]byte{0x00, 0x00, 0x02, 0x00, 0x04, 0x06})
	f.Add([]byte{0x1b, 0x00, 0x04, 0x00, 0xa0, 0x0f, 0x01, 0x02})
	f.Add([]byte{0xff})
	f.Fuzz(func(t *testing.T, data []byte) {
		r := bytestream.New(data)
		for {
			rec, err := DecodeNextLotus(r)
			if err != nil || rec == nil {
				return
			}
			if rec.PayloadStart > rec.PayloadEnd || rec.PayloadEnd > len(data) {
				t.Fatalf("record bounds [%d,%d) escape the %d-byte stream", rec.PayloadStart, rec.PayloadEnd, len(data))
			}
			if inner := rec.Inner; inner != nil {
				if inner.PayloadStart > inner.PayloadEnd || inner.PayloadEnd > rec.PayloadEnd {
					t.Fatalf("inner bounds [%d,%d) escape the outer record", inner.PayloadStart, inner.PayloadEnd)
				}
			}
		}
	})
}

// FuzzDecodeNextMultiplan is FuzzDecodeNextLotus's Multiplan counterpart.
func FuzzDecodeNextMultiplan(f *testing.F) {
	f.Add([]byte{0x07, 0x00, 0x00, 0x00, 0x08, 0x00, 0xaa, 0xbb})
	f.Add([]byte{0x0c, 0x00, 0x00, 0x00, 0x06, 0x00})
	f.Fuzz(func(t *testing.T, data []byte) {
		r := bytestream.New(data)
		for {
			rec, err := DecodeNextMultiplan(r)
			if err != nil || rec == nil {
				return
			}
			if rec.PayloadStart > rec.PayloadEnd || rec.PayloadEnd > len(data) {
				t.Fatalf("record bounds [%d,%d) escape the %d-byte stream", rec.PayloadStart, rec.PayloadEnd, len(data))
			}
		}
	})
}
