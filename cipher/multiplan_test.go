package cipher

import "testing"

// computeMultiplanChecksum independently recomputes the checksum fold for a
// password/hash pair, mirroring CheckMultiplanPassword's internal steps, so
// a test can hand CheckMultiplanPassword a checksum it should accept without
// relying on a captured real-world file fixture.
func computeMultiplanChecksum(password string, hash int) int {
	var pw [16]byte
	pb := []byte(password)
	w := 0
	for w < 15 && w < len(pb) {
		pw[w] = pb[w]
		w++
	}
	for r := 0; w < 15; w++ {
		pw[w] = multiplanEndPassword[r]
		r++
	}
	pw[15] = 0

	which := hash & 0xf
	if which != 15 {
		pw[which]++
	}
	var res [16]byte
	for i := 0; i < 15; i++ {
		res[i] = pw[multiplanPerm[(i+which)%15]]
	}
	res[15] = 0

	dataIdx := 0
	val := checksumAt(dataIdx)
	dataIdx++
	for _, r := range res {
		for bit, dec := 1, 0; dec < 7; bit, dec = bit<<1, dec+1 {
			if int(r)&bit != 0 {
				val ^= checksumAt(dataIdx)
			}
			dataIdx++
		}
	}
	return val
}

func TestCheckMultiplanPasswordAccepts(t *testing.T) {
	password := "sheet1"
	hash := 3
	checksum := computeMultiplanChecksum(password, hash)

	keys, ok := CheckMultiplanPassword(password, hash, checksum)
	if !ok {
		t.Fatal("CheckMultiplanPassword rejected a matching checksum")
	}
	var zero [MultiplanKeyCount]byte
	if keys == zero {
		t.Error("expected nonzero derived keys")
	}
}

func TestCheckMultiplanPasswordRejectsWrongChecksum(t *testing.T) {
	if _, ok := CheckMultiplanPassword("sheet1", 3, 0); ok {
		t.Fatal("CheckMultiplanPassword accepted a wrong checksum")
	}
}

func TestCheckMultiplanPasswordRejectsEmpty(t *testing.T) {
	if _, ok := CheckMultiplanPassword("", 0, 0); ok {
		t.Fatal("CheckMultiplanPassword accepted an empty password")
	}
}

func TestRetrieveMultiplanPasswordKeysRoundTrip(t *testing.T) {
	password := "sheet1"
	hash := 3
	checksum := computeMultiplanChecksum(password, hash)
	keys, ok := CheckMultiplanPassword(password, hash, checksum)
	if !ok {
		t.Fatal("setup: CheckMultiplanPassword failed")
	}

	// Reconstruct the raw 16-byte zone that RetrieveMultiplanPasswordKeys
	// reads from the file: the decode keys shifted by six positions, with 8
	// XORed into the first byte.
	var res [16]byte
	lowByte := byte(checksum & 0xff)
	highByte := byte((checksum >> 8) & 0xff)
	// rebuild res[0..15] pre-rotate from keys: keys[i] = rot_right1(res[i]^xorByte)
	// so res[i]^xorByte = rot_left1(keys[i]); res[i] = rot_left1(keys[i]) ^ xorByte
	for i := 0; i < 16; i++ {
		var xorByte byte
		if i%2 == 0 {
			xorByte = lowByte
		} else {
			xorByte = highByte
		}
		rotLeft := (keys[i] << 1) | (keys[i] >> 7)
		res[i] = rotLeft ^ xorByte
	}

	var rawKeys [16]byte
	for i := 0; i < 16; i++ {
		srcIdx := (i + 6) & 0xf
		r := res[srcIdx]
		if srcIdx%2 == 0 {
			r ^= lowByte
		} else {
			r ^= highByte
		}
		k := (r >> 1) | (r << 7)
		if i == 0 {
			k ^= 8
		}
		rawKeys[i] = k
	}

	gotKeys, gotPassword, ok := RetrieveMultiplanPasswordKeys(rawKeys, hash, checksum)
	if !ok {
		t.Fatal("RetrieveMultiplanPasswordKeys failed to recover a known password")
	}
	if gotPassword != password {
		t.Errorf("recovered password = %q, want %q", gotPassword, password)
	}
	if gotKeys != keys {
		t.Errorf("recovered keys = %v, want %v", gotKeys, keys)
	}
}

func TestRetrieveMultiplanPasswordKeysGarbage(t *testing.T) {
	var junk [16]byte
	for i := range junk {
		junk[i] = byte(i * 13)
	}
	if _, _, ok := RetrieveMultiplanPasswordKeys(junk, 0, 0); ok {
		t.Fatal("recovery should fail on a garbage raw-key zone")
	}
}

func TestDecodeMultiplanStreamRoundTrip(t *testing.T) {
	var keys [MultiplanKeyCount]byte
	for i := range keys {
		keys[i] = byte(0x55 + i)
	}

	payload := []byte("numbers!")
	record := make([]byte, 6+len(payload))
	record[0] = 9 // type within 7..=12
	record[1] = 0
	record[2] = 0 // flag
	record[3] = 0
	sz := len(record)
	record[4] = byte(sz)
	record[5] = byte(sz >> 8)
	copy(record[6:], payload)

	ciphertext, err := DecodeMultiplanStream(record, keys)
	if err != nil {
		t.Fatalf("DecodeMultiplanStream (encrypt pass): %v", err)
	}
	plaintext, err := DecodeMultiplanStream(ciphertext, keys)
	if err != nil {
		t.Fatalf("DecodeMultiplanStream (decrypt pass): %v", err)
	}
	if string(plaintext[6:]) != string(payload) {
		t.Errorf("round trip payload = %q, want %q", plaintext[6:], payload)
	}
}

func TestDecodeMultiplanStreamStopsOutsideTypeRange(t *testing.T) {
	var keys [MultiplanKeyCount]byte
	record := []byte{13, 0, 0, 0, 6, 0} // type 13 is outside 7..=12
	out, err := DecodeMultiplanStream(record, keys)
	if err != nil {
		t.Fatalf("DecodeMultiplanStream: %v", err)
	}
	if string(out) != string(record) {
		t.Errorf("stream outside type range was modified: got %x, want %x", out, record)
	}
}

func TestDecodeMultiplanStreamSkipsEmptyRecord(t *testing.T) {
	var keys [MultiplanKeyCount]byte
	for i := range keys {
		keys[i] = 0xFF
	}
	record := []byte{7, 0, 0, 0, 6, 0} // byte_size == 6, no payload to transform
	out, err := DecodeMultiplanStream(record, keys)
	if err != nil {
		t.Fatalf("DecodeMultiplanStream: %v", err)
	}
	if string(out) != string(record) {
		t.Errorf("empty record was modified: got %x, want %x", out, record)
	}
}
