package cfb

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"
)

// buildMinimalDocument assembles the smallest possible OLE2 compound
// document holding one named stream: a 512-byte header, one SAT sector, one
// directory sector (root entry + the named stream's entry), and one data
// sector carrying payload.
func buildMinimalDocument(streamName string, payload []byte) []byte {
	const secSize = 512
	putInt32 := func(b []byte, off int, v int32) { binary.LittleEndian.PutUint32(b[off:off+4], uint32(v)) }
	putUint16 := func(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:off+2], v) }

	header := make([]byte, 512)
	copy(header, Signature)
	header[28], header[29] = 0xFE, 0xFF
	putUint16(header, 30, 9) // sector size 2^9 = 512
	putUint16(header, 32, 6) // short sector size 2^6 = 64
	putInt32(header, 48, 1)  // directory starts at sector 1
	putInt32(header, 56, 0)  // minSizeStdStream = 0: always use the standard path
	putInt32(header, 60, -2) // SSAT first sector: EOC (unused)
	putInt32(header, 64, 0)  // SSAT total secs
	putInt32(header, 68, -2) // MSAT extension first sector: EOC
	putInt32(header, 72, 0)  // MSAT extension total secs
	for i := 0; i < 109; i++ {
		if i == 0 {
			putInt32(header, 76+i*4, 0) // sector 0 holds the SAT
		} else {
			putInt32(header, 76+i*4, -1) // FREESID
		}
	}

	sat := make([]byte, secSize)
	for i := range sat {
		sat[i] = 0xff // fill as -1 (FREESID) via int32 -1 bytes
	}
	putInt32(sat, 1*4, -2) // sector 1 (directory): EOC
	putInt32(sat, 2*4, -2) // sector 2 (data): EOC

	writeEntry := func(buf []byte, name string, entryType, leftDID, rightDID, rootDID, firstSID, totSize int) {
		units := utf16.Encode([]rune(name))
		units = append(units, 0)
		nameBytes := make([]byte, len(units)*2)
		for i, u := range units {
			binary.LittleEndian.PutUint16(nameBytes[i*2:i*2+2], u)
		}
		copy(buf[0:64], nameBytes)
		putUint16(buf, 64, uint16(len(nameBytes)))
		buf[66] = byte(entryType)
		putInt32(buf, 68, int32(leftDID))
		putInt32(buf, 72, int32(rightDID))
		putInt32(buf, 76, int32(rootDID))
		putInt32(buf, 116, int32(firstSID))
		putInt32(buf, 120, int32(totSize))
	}

	dir := make([]byte, secSize)
	writeEntry(dir[0:128], "Root Entry", 5, -1, -1, 1, -1, 0)
	writeEntry(dir[128:256], streamName, 2, -1, -1, -1, 2, len(payload))

	data := make([]byte, secSize)
	copy(data, payload)

	var mem bytes.Buffer
	mem.Write(header)
	mem.Write(sat)
	mem.Write(dir)
	mem.Write(data)
	return mem.Bytes()
}

func TestOpenAndLocateNamedStream(t *testing.T) {
	payload := []byte("hello compound document")
	mem := buildMinimalDocument("WK3", payload)

	doc, err := Open(mem, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, ok, err := doc.LocateNamedStream("WK3")
	if err != nil {
		t.Fatalf("LocateNamedStream: %v", err)
	}
	if !ok {
		t.Fatal("expected WK3 stream to be found")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("stream contents = %q, want %q", got, payload)
	}
}

func TestLocateNamedStreamMissing(t *testing.T) {
	mem := buildMinimalDocument("WK3", []byte("data"))
	doc, err := Open(mem, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, ok, err := doc.LocateNamedStream("MN0")
	if err != nil {
		t.Fatalf("LocateNamedStream: %v", err)
	}
	if ok {
		t.Fatal("expected MN0 stream to be absent")
	}
}

func TestFindMainStreamTriesKnownNames(t *testing.T) {
	payload := []byte("multiplan stream body")
	mem := buildMinimalDocument("MN0", payload)
	doc, err := Open(mem, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	name, data, err := doc.FindMainStream()
	if err != nil {
		t.Fatalf("FindMainStream: %v", err)
	}
	if name != "MN0" {
		t.Errorf("name = %q, want MN0", name)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("data = %q, want %q", data, payload)
	}
}

func TestOpenRejectsBadSignature(t *testing.T) {
	mem := make([]byte, 512)
	_, err := Open(mem, Options{})
	if err == nil {
		t.Fatal("expected error for missing OLE2 signature")
	}
}

func TestFindMainStreamNoneKnown(t *testing.T) {
	mem := buildMinimalDocument("SomeOtherStream", []byte("x"))
	doc, err := Open(mem, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, _, err = doc.FindMainStream()
	if err == nil {
		t.Fatal("expected error when no known stream name is present")
	}
}
