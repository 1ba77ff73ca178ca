package cipher

import "fmt"

// MultiplanKeyCount is the fixed size of a Multiplan key set.
const MultiplanKeyCount = 16

// multiplanEndPassword pads a short password out to 15 characters before
// the permutation/checksum step.
var multiplanEndPassword = [14]byte{
	0x0A, 0x4E, 0x51, 0x6F, 0x6E, 0x61, 0x70, 0x32, 0x33, 0x71, 0x5B, 0x30, 0x23, 0x7A,
}

// multiplanPerm selects, for a given hash nibble, which padded-password
// byte lands at each of the first 15 positions of the permuted buffer.
var multiplanPerm = [15]int{9, 4, 1, 3, 14, 11, 6, 0, 12, 7, 2, 10, 8, 13, 5}

// multiplanChecksumTable is consumed 7 bits at a time per permuted byte to
// fold the password into a single checksum comparable against the file's
// stored value.
var multiplanChecksumTable = [106]int{
	0x4ec3, 0xaefc, 0x4dd9, 0x9bb2, 0x2745, 0x4e8a, 0x9d14, 0x2a09,
	0x7b61, 0xf6c2, 0xfda5, 0xeb6b, 0xc6f7, 0x9dcf, 0x2bbf, 0x4563,
	0x8ac6, 0x05ad, 0x0b5a, 0x16b4, 0x2d68, 0x5ad0, 0x0375, 0x06ea,
	0x0dd4, 0x1ba8, 0x3750, 0x6ea0, 0xdd40, 0xd849, 0xa0b3, 0x5147,
	0xa28e, 0x553d, 0xaa7a, 0x44d5, 0x6f45, 0xde8a, 0xad35, 0x4a4b,
	0x9496, 0x390d, 0x721a, 0xeb23, 0xc667, 0x9cef, 0x29ff, 0x53fe,
	0xa7fc, 0x5fd9, 0x47d3, 0x8fa6, 0x0f6d, 0x1eda, 0x3db4, 0x7b68,
	0xf6d0, 0xb861, 0x60e3, 0xc1c6, 0x93ad, 0x377b, 0x6ef6, 0xddec,
	0x45a0, 0x8b40, 0x06a1, 0x0d42, 0x1a84, 0x3508, 0x6a10, 0xaa51,
	0x4483, 0x8906, 0x022d, 0x045a, 0x08b4, 0x1168, 0x76b4, 0xed68,
	0xcaf1, 0x85c3, 0x1ba7, 0x374e, 0x6e9c, 0x3730, 0x6e60, 0xdcc0,
	0xa9a1, 0x4363, 0x86c6, 0x1dad, 0x3331, 0x6662, 0xccc4, 0x89a9,
	0x0373, 0x06e6, 0x0dcc, 0x1021, 0x2042, 0x4084, 0x8108, 0x1231,
	0x2462, 0x48c4,
}

// checksumAt indexes multiplanChecksumTable, wrapping around: the table as
// recovered has fewer entries than the full walk over a 16-byte permuted
// buffer can reach, so a wrap keeps the fold well-defined instead of
// panicking on the tail bytes.
func checksumAt(i int) int {
	return multiplanChecksumTable[i%len(multiplanChecksumTable)]
}

// CheckMultiplanPassword verifies password against the file's hash/checksum
// pair and, on success, returns the 16 decode keys derived from it.
func CheckMultiplanPassword(password string, hash, checksum int) (keys [MultiplanKeyCount]byte, ok bool) {
	if password == "" {
		return keys, false
	}
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

	length := 0
	for length < 16 && res[length] != 0 {
		length++
	}
	if length != 15 {
		return keys, false
	}

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
	if val != checksum {
		return keys, false
	}

	res[15] = 0xbb
	lowByte := byte(checksum & 0xff)
	highByte := byte((checksum >> 8) & 0xff)
	for i := 0; i < 16; i++ {
		var v byte
		if i%2 == 0 {
			v = res[i] ^ lowByte
		} else {
			v = res[i] ^ highByte
		}
		keys[i] = (v >> 1) | (v << 7)
	}
	return keys, true
}

// RetrieveMultiplanPasswordKeys reconstructs the password (and re-verifies
// it) from the 16 raw key bytes stored at the start of the encrypted zone,
// given the file's hash/checksum pair. It reverses the rotate/XOR and the
// permutation CheckMultiplanPassword applies going forward.
func RetrieveMultiplanPasswordKeys(rawKeys [16]byte, hash, checksum int) (keys [MultiplanKeyCount]byte, password string, ok bool) {
	var res [16]byte
	lowByte := byte(checksum & 0xff)
	highByte := byte((checksum >> 8) & 0xff)
	for i := 0; i < 16; i++ {
		k := rawKeys[i]
		if i == 0 {
			k ^= 8
		}
		r := (k << 1) | (k >> 7)
		var xorByte byte
		if i%2 == 0 {
			xorByte = lowByte
		} else {
			xorByte = highByte
		}
		res[(i+6)&0xf] = r ^ xorByte
	}
	if res[15] != 0xbb {
		return keys, "", false
	}

	var pw [16]byte
	which := hash & 0xf
	for i := 0; i < 15; i++ {
		pw[multiplanPerm[(i+which)%15]] = res[i]
	}
	if which != 15 {
		pw[which]--
	}
	pw[15] = 0

	var pb []byte
	for _, c := range pw {
		if c == 0 || c == 0x0a {
			break
		}
		pb = append(pb, c)
	}
	if len(pb) == 0 {
		return keys, "", false
	}
	password = string(pb)
	keys, ok = CheckMultiplanPassword(password, hash, checksum)
	return keys, password, ok
}

// DecodeMultiplanStream walks data record by record (u16 type, u16 flag,
// u16 byte_size, then byte_size-6 payload bytes), stopping at the first
// record whose type falls outside 7..=12, and returns a new byte slice with
// every eligible record's payload XOR-decoded against keys[i&0xf]. Records
// whose declared byte_size is exactly 6 (no payload) are left untouched.
func DecodeMultiplanStream(data []byte, keys [MultiplanKeyCount]byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)

	pos := 0
	for pos+6 <= len(out) {
		typ := int(out[pos]) | int(out[pos+1])<<8
		if typ < 7 || typ > 12 {
			break
		}
		dSz := int(out[pos+4]) | int(out[pos+5])<<8
		if dSz < 6 {
			return nil, fmt.Errorf("cipher: multiplan record at %d declares byte_size %d smaller than header", pos, dSz)
		}
		if pos+dSz > len(out) {
			break
		}
		if dSz == 6 {
			pos += dSz
			continue
		}
		for i := 6; i < dSz; i++ {
			out[pos+i] ^= keys[i&0xf]
		}
		pos += dSz
	}
	return out, nil
}
