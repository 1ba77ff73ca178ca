package style

// Palette8, Palette16, and Palette256 are the built-in color tables the
// Lotus and Multiplan formats index into; unlike fonts or formats, palettes
// are never populated from records, only selected by size at parse time.
var Palette8 = [8]Color{
	{0, 0, 0}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
	{0, 0, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
}

var Palette16 = [16]Color{
	{0, 0, 0}, {0, 0, 128}, {0, 128, 0}, {0, 128, 128},
	{128, 0, 0}, {128, 0, 128}, {128, 128, 0}, {192, 192, 192},
	{128, 128, 128}, {0, 0, 255}, {0, 255, 0}, {0, 255, 255},
	{255, 0, 0}, {255, 0, 255}, {255, 255, 0}, {255, 255, 255},
}

// Palette256 extends Palette16 with a 6x6x6 web-safe color cube followed by
// a 24-step grayscale ramp, the standard layout for a legacy 256-entry
// palette when the low 16 entries are reserved for the EGA colors above.
var Palette256 = buildPalette256()

func buildPalette256() [256]Color {
	var p [256]Color
	copy(p[:16], Palette16[:])
	idx := 16
	levels := [6]uint8{0, 51, 102, 153, 204, 255}
	for r := 0; r < 6 && idx < 256; r++ {
		for g := 0; g < 6 && idx < 256; g++ {
			for b := 0; b < 6 && idx < 256; b++ {
				p[idx] = Color{levels[r], levels[g], levels[b]}
				idx++
			}
		}
	}
	for i := 0; idx < 256; i++ {
		v := uint8(8 + i*10)
		p[idx] = Color{v, v, v}
		idx++
	}
	return p
}

// PaletteForSize returns the built-in palette with n entries (8, 16, or
// 256); n values outside that set fall back to Palette256.
func PaletteForSize(n int) []Color {
	switch n {
	case 8:
		return Palette8[:]
	case 16:
		return Palette16[:]
	default:
		return Palette256[:]
	}
}

// Pattern48 and Pattern64 are the built-in 8x8 monochrome fill patterns;
// each row is a byte whose bits are pixels, most-significant bit first.
// Index 0 is always solid-background ("no pattern"); the rest are generated
// procedurally, without a hand-transcribed bitmap table: id%4 picks one of
// four stripe/hatch/dot generators, so ids with the same id%4 of 1, 2 or 3
// share one bitmap.
var Pattern48 = buildPatterns(48)
var Pattern64 = buildPatterns(64)

// Pattern is one 8x8 monochrome fill cell.
type Pattern [8]byte

func buildPatterns(n int) []Pattern {
	out := make([]Pattern, n)
	for id := 0; id < n; id++ {
		var p Pattern
		switch {
		case id == 0:
			// solid: all background, no foreground pixels
		case id%4 == 1:
			for row := range p {
				if row%2 == 0 {
					p[row] = 0xFF
				}
			}
		case id%4 == 2:
			for row := range p {
				p[row] = 1 << uint(row%8)
			}
		case id%4 == 3:
			for row := range p {
				p[row] = byte(0xAA >> uint(row%2))
			}
		default:
			for row := range p {
				p[row] = byte(id)
			}
		}
		out[id] = p
	}
	return out
}

// PatternsForSize returns the built-in pattern set with n entries (48 or
// 64); other sizes fall back to the 64-entry set.
func PatternsForSize(n int) []Pattern {
	if n == 48 {
		return Pattern48
	}
	return Pattern64
}

// NearestPaletteIndex returns the index of the palette entry closest to c
// by squared RGB distance, for callers that computed a composed color but
// must store a palette reference.
func NearestPaletteIndex(c Color, palette []Color) int {
	best, bestDist := 0, 1<<31
	for i, p := range palette {
		dr, dg, db := int(p.R)-int(c.R), int(p.G)-int(c.G), int(p.B)-int(c.B)
		d := dr*dr + dg*dg + db*db
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// ComposeColor averages the foreground and background colors of a pattern,
// weighted by the fraction of set bits, for emitters that cannot carry a
// fill pattern through to their output format.
func ComposeColor(p Pattern, fg, bg Color) Color {
	var setBits int
	for _, row := range p {
		for b := 0; b < 8; b++ {
			if row&(1<<uint(b)) != 0 {
				setBits++
			}
		}
	}
	total := 64
	if setBits == 0 {
		return bg
	}
	if setBits == total {
		return fg
	}
	frac := float64(setBits) / float64(total)
	mix := func(f, b uint8) uint8 {
		return uint8(float64(f)*frac + float64(b)*(1-frac))
	}
	return Color{mix(fg.R, bg.R), mix(fg.G, bg.G), mix(fg.B, bg.B)}
}
