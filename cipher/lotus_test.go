package cipher

import "testing"

func TestEncodeLotusPasswordVerifiesAgainstItself(t *testing.T) {
	_, keys := EncodeLotusPassword("hunter2")
	if !VerifyLotusPassword(keys, keys) {
		t.Fatal("keys derived from a password must verify against themselves")
	}
}

func TestEncodeLotusPasswordDiffersByPassword(t *testing.T) {
	_, keysA := EncodeLotusPassword("hunter2")
	_, keysB := EncodeLotusPassword("other")
	if VerifyLotusPassword(keysA, keysB) {
		t.Fatal("keys from different passwords should not verify against each other")
	}
}

func TestEncodeLotusPasswordEmpty(t *testing.T) {
	key, keys := EncodeLotusPassword("")
	if key != 0xFFFF {
		t.Errorf("empty password running key = %#x, want 0xFFFF (unmixed)", key)
	}
	var want [LotusKeyCount]byte
	for i := range want {
		want[i] = lotusDefaultSuffix[i] ^ 0xFF
	}
	if keys != want {
		t.Errorf("empty password keys = %v, want %v", keys, want)
	}
}

func TestRetrieveLotusPasswordKeysShortPassword(t *testing.T) {
	key, keys := EncodeLotusPassword("ab")
	// A file stores the derived keys with the running key's low and high
	// bytes additionally XORed into positions 7 and 13.
	fileKeys := keys
	fileKeys[7] ^= byte(key)
	fileKeys[13] ^= byte(key >> 8)
	recovered, ok := RetrieveLotusPasswordKeys(fileKeys)
	if !ok {
		t.Fatal("expected short password to be recoverable from file keys")
	}
	if recovered != keys {
		t.Errorf("recovered keys = %v, want %v", recovered, keys)
	}
}

func TestRetrieveLotusPasswordKeysGarbage(t *testing.T) {
	var junk [LotusKeyCount]byte
	for i := range junk {
		junk[i] = byte(i * 37)
	}
	if _, ok := RetrieveLotusPasswordKeys(junk); ok {
		t.Fatal("recovery should fail on keys that don't correspond to any short password")
	}
}

// encodeLotusRecordForTest mirrors DecodeLotusStream's per-byte state
// machine, used here only to build a ciphertext fixture from a known
// plaintext so the decoder can be exercised against a real round trip.
func encodeLotusRecordForTest(plain []byte, keys [LotusKeyCount]byte) []byte {
	out := make([]byte, len(plain))
	var d7 byte
	d4 := byte(len(plain))
	d5 := keys[13]
	for i, p := range plain {
		c := p ^ keys[d7&0xf]
		out[i] = c
		d7 = c + d4
		d4 = d4 + d5
		d5++
	}
	return out
}

func TestDecodeLotusStreamRoundTrip(t *testing.T) {
	_, keys := EncodeLotusPassword("secret")
	plain := []byte("hello, lotus!")
	cipherPayload := encodeLotusRecordForTest(plain, keys)

	record := make([]byte, 4+len(cipherPayload))
	record[0] = 0x50
	record[1] = 0x00
	record[2] = byte(len(cipherPayload))
	record[3] = byte(len(cipherPayload) >> 8)
	copy(record[4:], cipherPayload)

	decoded, err := DecodeLotusStream(record, len(record), keys)
	if err != nil {
		t.Fatalf("DecodeLotusStream: %v", err)
	}
	if string(decoded[4:]) != string(plain) {
		t.Errorf("decoded payload = %q, want %q", decoded[4:], plain)
	}
}

func TestDecodeLotusStreamSkipsExcludedTypes(t *testing.T) {
	_, keys := EncodeLotusPassword("secret")
	payload := []byte{0xAA, 0xBB, 0xCC}
	record := make([]byte, 4+len(payload))
	record[0] = byte(lotusStackOpen & 0xFF)
	record[1] = byte(lotusStackOpen >> 8)
	record[2] = byte(len(payload))
	record[3] = byte(len(payload) >> 8)
	copy(record[4:], payload)

	decoded, err := DecodeLotusStream(record, len(record), keys)
	if err != nil {
		t.Fatalf("DecodeLotusStream: %v", err)
	}
	if string(decoded[4:]) != string(payload) {
		t.Errorf("excluded record type was transformed: got %x, want %x", decoded[4:], payload)
	}
}

func TestDecodeLotusStreamOversizeEndPos(t *testing.T) {
	if _, err := DecodeLotusStream([]byte{1, 2, 3}, 100, [LotusKeyCount]byte{}); err == nil {
		t.Fatal("DecodeLotusStream with endPos beyond data: want error, got nil")
	}
}
