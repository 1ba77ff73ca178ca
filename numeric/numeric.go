// Package numeric decodes the several floating-point encodings used across
// the Lotus 1-2-3 and Multiplan binary formats. Each format picked a
// different tradeoff between size and range, and none of them is a plain
// IEEE-754 value except the 8-byte form, so each gets its own decoder.
//
// Every decoder returns (value, isNaN, error). isNaN is distinct from error:
// certain bit patterns are a deliberate "error value present in this cell"
// sentinel rather than a malformed record, and callers should treat that as
// an XL-style error cell rather than discard the record.
package numeric

import (
	"fmt"
	"math"
)

// ErrShortBuffer is returned when the input is shorter than the codec
// requires.
type ErrShortBuffer struct {
	Codec string
	Want  int
	Got   int
}

func (e *ErrShortBuffer) Error() string {
	return fmt.Sprintf("numeric: %s needs %d bytes, got %d", e.Codec, e.Want, e.Got)
}

// DecodeF8 decodes the 8-byte compact float used for Lotus "double8"
// cell/formula records and Multiplan v2/v3 numbers: 6 mantissa bytes
// accumulated least-significant-first (mirroring DecodeF4Raw's compact
// path but over a wider mantissa), then a byte whose low nibble extends
// the mantissa and whose high nibble is the exponent's low 4 bits, then
// an exponent-high byte whose top bit is the sign.
func DecodeF8(b []byte) (float64, bool, error) {
	if len(b) < 8 {
		return 0, false, &ErrShortBuffer{"f8", 8, len(b)}
	}
	var mantissa float64
	for i := 0; i < 6; i++ {
		mantissa = mantissa/256 + float64(b[i])
	}
	mantExp := b[6]
	mantissa = (mantissa/256 + float64(0x10+int(mantExp&0x0F))) / 16
	exp := int(mantExp&0xF0)>>4 | int(b[7])<<4
	sign := 1.0
	if exp&0x800 != 0 {
		exp &= 0x7ff
		sign = -1
	}

	const epsilon = 1e-5
	if exp == 0 {
		if mantissa > 1-epsilon && mantissa < 1+epsilon {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("numeric: f8 zero-exponent value is not representable")
	}
	if exp == 0x7FF {
		if mantissa >= 1-epsilon {
			return math.NaN(), true, nil
		}
		return 0, false, fmt.Errorf("numeric: f8 max-exponent value is not a recognized NaN form")
	}

	exp -= 0x3ff
	return sign * math.Ldexp(mantissa, exp), false, nil
}

// DecodeF10 decodes the 10-byte extended float used by Lotus "double10"
// cell/formula records: 8 mantissa bytes read least-significant byte first
// with accumulating division (the last mantissa byte is the most
// significant), then a 16-bit word whose low 15 bits are a
// biased exponent and whose top bit is the sign.
func DecodeF10(b []byte) (float64, bool, error) {
	if len(b) < 10 {
		return 0, false, &ErrShortBuffer{"f10", 10, len(b)}
	}
	var mantissa float64
	for i := 0; i < 8; i++ {
		mantissa = mantissa/256 + float64(b[i])/128
	}
	exp := int(b[8]) | int(b[9])<<8
	sign := 1.0
	if exp&0x8000 != 0 {
		exp &= 0x7fff
		sign = -1
	}
	const epsilon = 1e-5
	if exp == 0 {
		if mantissa < epsilon {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("numeric: f10 zero-exponent nonzero mantissa is not representable")
	}
	if exp == 0x7fff {
		if mantissa >= 1-epsilon {
			return math.NaN(), true, nil
		}
		return 0, false, fmt.Errorf("numeric: f10 max-exponent value is not a recognized NaN form")
	}
	exp -= 0x3fff
	return sign * math.Ldexp(mantissa, exp), false, nil
}

// DecodeF4Raw decodes the 4-byte "raw" compact float used by some Lotus
// cell records. The low 2 bits of the first byte are flags (its top 6 bits
// are the lowest mantissa bits): when
// bits&0b11 == 0b10, the remaining bits hold a packed 30-bit signed integer;
// otherwise the value is a compact float with a 4-bit exponent tag and an
// 11-bit exponent, and flag bit 0 divides the decoded result by 100.
func DecodeF4Raw(b []byte) (float64, bool, error) {
	if len(b) < 4 {
		return 0, false, &ErrShortBuffer{"f4-raw", 4, len(b)}
	}
	first := b[0]
	if first&3 == 2 {
		u16a := uint32(b[0]) | uint32(b[1])<<8
		u16b := uint32(b[2]) | uint32(b[3])<<8
		val := int64(u16a>>2) + int64(u16b)<<14
		if val&0x20000000 != 0 {
			val -= 0x40000000
		}
		return float64(val), false, nil
	}

	mantissa := float64(first&0xFC)/256 + float64(b[1])
	mantExp := b[2]
	mantissa = (mantissa/256 + float64(0x10+int(mantExp&0x0F))) / 16
	exp := int(mantExp&0xF0)>>4 | int(b[3])<<4
	sign := 1.0
	if exp&0x800 != 0 {
		exp &= 0x7ff
		sign = -1
	}

	if exp == 0 {
		if mantissa > 1-1e-4 {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("numeric: f4-raw zero-exponent value is not representable")
	}
	if exp == 0x7FF {
		if mantissa > 1-1e-4 {
			return math.NaN(), true, nil
		}
		return 0, false, fmt.Errorf("numeric: f4-raw max-exponent value is not a recognized NaN form")
	}

	exp -= 0x3ff
	res := sign * math.Ldexp(mantissa, exp)
	if first&1 != 0 {
		res /= 100
	}
	return res, false, nil
}

// DecodeF4Inv decodes the 4-byte "inverse-exponent" float: low 4 bits of the
// little-endian word are a base-10 exponent, bit 5 is the sign, and the
// remaining high bits (shift right 6) are the mantissa. When bit 4 is set
// the value is mantissa/10^exp, otherwise mantissa*10^exp.
func DecodeF4Inv(b []byte) (float64, bool, error) {
	if len(b) < 4 {
		return 0, false, &ErrShortBuffer{"f4-inv", 4, len(b)}
	}
	val := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	exp := int(val & 0xf)
	mantissa := float64(val >> 6)
	if val&0x20 != 0 {
		mantissa = -mantissa
	}
	if exp == 0 {
		return mantissa, false, nil
	}
	if val&0x10 != 0 {
		return mantissa / math.Pow(10, float64(exp)), false, nil
	}
	return mantissa * math.Pow(10, float64(exp)), false, nil
}

var f2InvFactors = [8]float64{5000, 500, 0.05, 0.005, 0.0005, 0.00005, 1.0 / 16, 1.0 / 64}

// DecodeF2Inv decodes the 2-byte "inverse" float: a 3-bit exponent selector
// in the low nibble picks a static scale factor against a signed 12-bit
// mantissa when the selector is odd; an even selector means the whole word
// (shifted right one bit) is a plain signed integer.
func DecodeF2Inv(b []byte) (float64, bool, error) {
	if len(b) < 2 {
		return 0, false, &ErrShortBuffer{"f2-inv", 2, len(b)}
	}
	val := int(b[0]) | int(b[1])<<8
	exp := val & 0xf
	if exp&1 == 1 {
		mantissa := val >> 4
		if mantissa&0x800 != 0 {
			mantissa -= 0x1000
		}
		return float64(mantissa) * f2InvFactors[exp/2], false, nil
	}
	if val&0x8000 != 0 {
		val -= 0x10000
	}
	return float64(val >> 1), false, nil
}

// DecodeBCD7 decodes the Multiplan v1 7-mantissa-byte + 1-exponent/sign-byte
// BCD float: two packed decimal digits per mantissa byte (most significant
// digit first), scaled by 10^(exponent-0x40), negated when the sign bit of
// the exponent byte is set. A nibble of 10 or more is a malformed digit.
func DecodeBCD7(b []byte) (float64, error) {
	if len(b) < 8 {
		return 0, &ErrShortBuffer{"bcd7", 8, len(b)}
	}
	expByte := b[0]
	sign := 1.0
	exp := int(expByte)
	if exp&0x80 != 0 {
		exp &= 0x7f
		sign = -1
	}
	var value float64
	factor := 1.0
	for i := 1; i <= 7; i++ {
		hi := b[i] >> 4
		lo := b[i] & 0xf
		if hi >= 10 || lo >= 10 {
			return 0, fmt.Errorf("numeric: bcd7 invalid digit in byte %d (0x%02x)", i, b[i])
		}
		factor /= 10
		value += factor * float64(hi)
		factor /= 10
		value += factor * float64(lo)
	}
	return sign * value * math.Pow(10, float64(exp-0x40)), nil
}
