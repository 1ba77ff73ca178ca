package bytestream

import "testing"

func TestReaderPrimitives(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF}
	r := New(data)

	u8, err := r.U8()
	if err != nil || u8 != 1 {
		t.Fatalf("U8() = %d, %v; want 1, nil", u8, err)
	}
	u16, err := r.U16()
	if err != nil || u16 != 0x0302 {
		t.Fatalf("U16() = %x, %v; want 0x0302, nil", u16, err)
	}
	i32, err := r.I32()
	if err != nil {
		t.Fatalf("I32() error: %v", err)
	}
	if i32 != 0x04 {
		t.Errorf("I32() = %d, want %d", i32, 0x04)
	}
	i32, err = r.I32()
	if err != nil || i32 != -1 {
		t.Fatalf("I32() = %d, %v; want -1, nil", i32, err)
	}
	if !r.EndOfStream() {
		t.Errorf("EndOfStream() = false, want true")
	}
}

func TestReaderEOF(t *testing.T) {
	r := New([]byte{0x01})
	if _, err := r.U16(); err == nil {
		t.Fatalf("U16() on short stream: want error, got nil")
	}
	if r.Tell() != 0 {
		t.Errorf("Tell() after failed read = %d, want 0 (cursor must not move)", r.Tell())
	}
}

func TestSeekAndSkip(t *testing.T) {
	r := New([]byte{0, 1, 2, 3, 4, 5})
	r.Skip(3)
	if r.Tell() != 3 {
		t.Fatalf("Tell() = %d, want 3", r.Tell())
	}
	v, err := r.U8()
	if err != nil || v != 3 {
		t.Fatalf("U8() after skip = %d, %v; want 3, nil", v, err)
	}
	r.SeekAbs(0)
	v, err = r.U8()
	if err != nil || v != 0 {
		t.Fatalf("U8() after seek = %d, %v; want 0, nil", v, err)
	}
}

func TestDecodeText(t *testing.T) {
	latin1 := []byte("caf\xe9")
	s, err := DecodeText(latin1, EncodingLatin1)
	if err != nil {
		t.Fatalf("DecodeText latin1: %v", err)
	}
	if s != "café" {
		t.Errorf("DecodeText latin1 = %q, want %q", s, "café")
	}

	utf16le := []byte{'h', 0, 'i', 0}
	s, err = DecodeText(utf16le, EncodingUTF16LE)
	if err != nil {
		t.Fatalf("DecodeText utf16: %v", err)
	}
	if s != "hi" {
		t.Errorf("DecodeText utf16 = %q, want %q", s, "hi")
	}
}

func TestReadPascalString(t *testing.T) {
	data := append([]byte{5}, []byte("hello")...)
	s, newPos, err := ReadPascalString(data, 0, 1, EncodingLatin1)
	if err != nil {
		t.Fatalf("ReadPascalString: %v", err)
	}
	if s != "hello" || newPos != 6 {
		t.Errorf("ReadPascalString = %q, %d; want hello, 6", s, newPos)
	}
}

func TestEncodingFromCodepage(t *testing.T) {
	cases := map[int]TextEncoding{
		1200:  EncodingUTF16LE,
		10000: EncodingMacRoman,
		1252:  EncodingLatin1,
		9999:  EncodingLatin1,
	}
	for cp, want := range cases {
		if got := EncodingFromCodepage(cp); got != want {
			t.Errorf("EncodingFromCodepage(%d) = %v, want %v", cp, got, want)
		}
	}
}
