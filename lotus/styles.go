package lotus

import (
	"github.com/go-wks/wks/bytestream"
	"github.com/go-wks/wks/record"
	"github.com/go-wks/wks/style"
)

// Nested-zone subtypes for the style records.
const (
	subFontA0     = 0xfa0
	subLineStyle  = 0xfaa
	subLineStyle2 = 0xfab
	subColorStyle = 0xfb4
	subFormat     = 0xfbe
	subGraphic    = 0xfc8
	subGraphicC9  = 0xfc9
	subCellStyle  = 0xfd2
	subFontF0     = 0xff0
)

// insertOnce logs a duplicated style id instead of overwriting; the first
// definition wins.
func insertOnce[T any](p *parser, t *style.Table[T], id int, v T, what string) {
	if _, ok := t.Get(id); ok {
		p.opts.logf("lotus: %s style %d already exists", what, id)
		return
	}
	t.Insert(id, v)
}

// readLineStyle handles subtype 0xfaa (8 bytes) and 0xfab (14 bytes, wider
// color/width fields). The pattern field selects a built-in pattern that the
// emitter composes with the two colors; pattern 0 means no line at all and
// pattern 2 swaps to the second color.
func (p *parser) readLineStyle(payload []byte, wide bool) error {
	want := 8
	if wide {
		want = 14
	}
	if len(payload) != want {
		return &record.BadPayload{RecordType: subLineStyle, Reason: "line style has a bad size"}
	}
	r := bytestream.New(payload)
	id, _ := r.U8()
	if fl, _ := r.U8(); fl != 0x10 {
		p.opts.logf("lotus: line style %d with unexpected flag 0x%x", id, fl)
	}
	_, _ = r.U16()

	var cols [2]int
	for i := range cols {
		if wide {
			v, err := r.U16()
			if err != nil {
				return err
			}
			cols[i] = int(v)
		} else {
			v, err := r.U8()
			if err != nil {
				return err
			}
			cols[i] = int(v)
		}
	}

	line := style.Line{Color: cols[0]}
	var patID int
	if !wide {
		v, err := r.U16()
		if err != nil {
			return err
		}
		patID = int(v & 0x3f)
		line.Width = float64((v >> 6) & 0xf)
		line.DashID = int(v >> 11)
	} else {
		pv, err := r.U16()
		if err != nil {
			return err
		}
		patID = int(pv)
		wv, err := r.U16()
		if err != nil {
			return err
		}
		line.Width = float64(wv) / 256
		dv, err := r.U16()
		if err != nil {
			return err
		}
		line.DashID = int(dv)
	}
	switch patID {
	case 0:
		line.Width = 0
	case 1:
		// plain
	case 2:
		line.Color = cols[1]
	default:
		if pats := style.PatternsForSize(48); patID < len(pats) {
			pal := style.PaletteForSize(256)
			if cols[0] < len(pal) && cols[1] < len(pal) {
				c := style.ComposeColor(pats[patID], pal[cols[1]], pal[cols[0]])
				line.Color = style.NearestPaletteIndex(c, pal)
			}
		}
	}
	insertOnce(p, p.doc.Lines, int(id), line, "line")
	return nil
}

// readColorStyle handles subtype 0xfb4: four palette-256 color slots and a
// pattern id (7-byte narrow form, 11-byte wide form).
func (p *parser) readColorStyle(payload []byte) error {
	var wide bool
	switch len(payload) {
	case 7:
		wide = false
	case 11:
		wide = true
	default:
		return &record.BadPayload{RecordType: subColorStyle, Reason: "color style has a bad size"}
	}
	r := bytestream.New(payload)
	id, _ := r.U8()
	if fl, _ := r.U8(); fl != 0x20 {
		p.opts.logf("lotus: color style %d with unexpected flag 0x%x", id, fl)
	}
	var cs style.ColorStyle
	for i := range cs.Colors {
		if wide {
			v, err := r.U16()
			if err != nil {
				return err
			}
			cs.Colors[i] = int(v)
		} else {
			v, err := r.U8()
			if err != nil {
				return err
			}
			cs.Colors[i] = int(v)
		}
	}
	pv, err := r.U8()
	if err != nil {
		return err
	}
	cs.PatternID = int(pv)
	insertOnce(p, p.doc.Colors, int(id), cs, "color")
	return nil
}

// readFontStyleA0 handles subtype 0xfa0 (wk3): a 12-byte font style whose
// name is bound later by the Mac font-name record, so only the numeric
// fields are stored here.
func (p *parser) readFontStyleA0(payload []byte) error {
	if len(payload) != 12 {
		return &record.BadPayload{RecordType: subFontA0, Reason: "font style has a bad size"}
	}
	r := bytestream.New(payload)
	id, _ := r.U8()
	r.Skip(3) // flag + two reserved bytes
	r.Skip(1) // always 0xff
	fontID, _ := r.U8()
	sz, _ := r.U16()
	colorID, _ := r.U8()
	r.Skip(1) // default color, equal to the color above in every seen file
	attrs, _ := r.U8()

	font := style.Font{SizePt: float64(sz) / 32, Color: int(colorID)}
	if attrs&1 != 0 {
		font.Attrs |= style.FontBold
	}
	if attrs&2 != 0 {
		font.Attrs |= style.FontItalic
	}
	if attrs&4 != 0 {
		font.Attrs |= style.FontUnderline
	}
	if attrs&8 != 0 {
		font.Attrs |= style.FontOutline
	}
	if attrs&0x10 != 0 {
		font.Attrs |= style.FontShadow
	}
	if attrs&0x20 != 0 {
		font.Attrs |= style.FontSubscript
	}
	if attrs&0x40 != 0 {
		font.Attrs |= style.FontSuperscript
	}
	p.macFontRefs[int(id)] = int(fontID)
	insertOnce(p, p.doc.Fonts, int(id), font, "font")
	return nil
}

// readFontStyleF0 handles subtype 0xff0 (wk5): bold/italic packed into the
// id byte, a /256 size, a palette color, and an inline NUL-terminated name.
func (p *parser) readFontStyleF0(payload []byte) error {
	if len(payload) < 20 {
		return &record.BadPayload{RecordType: subFontF0, Reason: "font style too short"}
	}
	r := bytestream.New(payload)
	id, _ := r.U8()
	var font style.Font
	if id&8 != 0 {
		font.Attrs |= style.FontBold
	}
	if id&0x10 != 0 {
		font.Attrs |= style.FontItalic
	}
	sz, _ := r.U16()
	font.SizePt = float64(sz) / 256
	_, _ = r.U16() // duplicate size
	r.Skip(5)
	r.Skip(8) // render flags; the last byte repeats the font id
	colorID, err := r.U8()
	if err != nil {
		return err
	}
	font.Color = int(colorID)

	nameBytes := payload[19:]
	end := 0
	for end < len(nameBytes) && nameBytes[end] != 0 {
		end++
	}
	name, err := bytestream.DecodeLatin1(nameBytes[:end])
	if err != nil {
		return err
	}
	font.Name = name
	insertOnce(p, p.doc.Fonts, int(id), font, "font")
	return nil
}

// readFormatStyle handles subtype 0xfbe: ten reserved words, then up to two
// 0x3c-tagged length-prefixed strings (prefix, suffix). A 0xf tag means the
// slot is empty.
func (p *parser) readFormatStyle(payload []byte) error {
	if len(payload) < 23 {
		return &record.BadPayload{RecordType: subFormat, Reason: "format style too short"}
	}
	r := bytestream.New(payload)
	id, _ := r.U8()
	if fl, _ := r.U8(); fl != 0x30 {
		p.opts.logf("lotus: format style %d with unexpected flag 0x%x", id, fl)
	}
	r.Skip(20)

	var fs style.FormatStyle
	for i := 0; i < 2; i++ {
		tag, err := r.U8()
		if err != nil {
			return err
		}
		if tag == 0xf {
			continue
		}
		if tag != 0x3c {
			return &record.BadPayload{RecordType: subFormat, Reason: "format style has an unknown string tag"}
		}
		n, err := r.U8()
		if err != nil {
			return err
		}
		b, err := r.Read(int(n))
		if err != nil {
			return &record.BadPayload{RecordType: subFormat, Reason: "format style string overruns the record"}
		}
		s, err := bytestream.DecodeLatin1(b)
		if err != nil {
			return err
		}
		if i == 0 {
			fs.Prefix = s
		} else {
			fs.Suffix = s
		}
	}
	insertOnce(p, p.doc.Formats, int(id), fs, "format")
	return nil
}

// readGraphicStyle handles subtype 0xfc8: four (id, kind-flag) reference
// pairs — one unknown, one line ref (0x10), two color refs (0x20).
func (p *parser) readGraphicStyle(payload []byte) error {
	if len(payload) != 13 {
		return &record.BadPayload{RecordType: subGraphic, Reason: "graphic style has a bad size"}
	}
	r := bytestream.New(payload)
	id, _ := r.U8()
	if fl, _ := r.U8(); fl != 0x40 {
		p.opts.logf("lotus: graphic style %d with unexpected flag 0x%x", id, fl)
	}
	var gs style.GraphicStyle
	for i := 0; i < 4; i++ {
		val, err1 := r.U8()
		fl, err2 := r.U8()
		if err1 != nil || err2 != nil {
			return &record.BadPayload{RecordType: subGraphic, Reason: "graphic style reference truncated"}
		}
		if val == 0 {
			continue
		}
		switch i {
		case 0:
			// unknown reference slot
		case 1:
			if fl != 0x10 {
				p.opts.logf("lotus: graphic style %d line ref with flag 0x%x", id, fl)
			}
			if _, ok := p.doc.Lines.Get(int(val)); !ok {
				p.opts.logf("lotus: %v", &record.MissingReference{Kind: "line", ID: int(val)})
				continue
			}
			gs.LineID = int(val)
		case 2, 3:
			if fl != 0x20 {
				p.opts.logf("lotus: graphic style %d color ref with flag 0x%x", id, fl)
			}
			if _, ok := p.doc.Colors.Get(int(val)); !ok {
				p.opts.logf("lotus: %v", &record.MissingReference{Kind: "color", ID: int(val)})
				continue
			}
			if i == 2 {
				gs.SurfaceFg = int(val)
			} else {
				gs.SurfaceBg = int(val)
			}
		}
	}
	insertOnce(p, p.doc.GraphicStyles, int(id), gs, "graphic")
	return nil
}

// readCellStyle handles subtype 0xfd2 in its wk3/wk4 21-byte form: eight
// (id, kind-flag) reference pairs — four border line refs, two color refs,
// a font ref and a format ref — plus a borders nibble. The 33-byte 123
// variant defers to a parent-style entry whose chain layout was not
// recovered; it is annotated and skipped.
func (p *parser) readCellStyle(payload []byte) error {
	if len(payload) == 33 {
		p.opts.logf("lotus: deferred 123 cell style entry (id %d) not decoded", payload[0])
		return nil
	}
	if len(payload) != 21 {
		return &record.BadPayload{RecordType: subCellStyle, Reason: "cell style has a bad size"}
	}
	r := bytestream.New(payload)
	id, _ := r.U8()
	if fl, _ := r.U8(); fl != 0x50 {
		p.opts.logf("lotus: cell style %d with unexpected flag 0x%x", id, fl)
	}
	r.Skip(2)

	var cf style.CellFormat
	for i := 0; i < 8; i++ {
		val, err1 := r.U8()
		fl, err2 := r.U8()
		if err1 != nil || err2 != nil {
			return &record.BadPayload{RecordType: subCellStyle, Reason: "cell style reference truncated"}
		}
		if val == 0 {
			continue
		}
		switch {
		case i < 4:
			if fl != 0x10 {
				p.opts.logf("lotus: cell style %d border ref with flag 0x%x", id, fl)
			}
			if _, ok := p.doc.Lines.Get(int(val)); !ok {
				p.opts.logf("lotus: %v", &record.MissingReference{Kind: "line", ID: int(val)})
				continue
			}
			switch i {
			case 0:
				cf.BorderTop = int(val)
			case 1:
				cf.BorderLeft = int(val)
			case 2:
				cf.BorderBottom = int(val)
			case 3:
				cf.BorderRight = int(val)
			}
		case i == 4 || i == 7:
			if fl != 0x20 {
				p.opts.logf("lotus: cell style %d color ref with flag 0x%x", id, fl)
			}
			if _, ok := p.doc.Colors.Get(int(val)); !ok {
				p.opts.logf("lotus: %v", &record.MissingReference{Kind: "color", ID: int(val)})
				continue
			}
			if i == 4 {
				cf.FillColorID = int(val)
			} else {
				cf.FillColor2ID = int(val)
			}
		case i == 5:
			if fl != 0 {
				p.opts.logf("lotus: cell style %d font ref with flag 0x%x", id, fl)
			}
			if _, ok := p.doc.Fonts.Get(int(val)); !ok {
				p.opts.logf("lotus: %v", &record.MissingReference{Kind: "font", ID: int(val)})
				continue
			}
			cf.FontID = int(val)
		default:
			if fl != 0x30 {
				p.opts.logf("lotus: cell style %d format ref with flag 0x%x", id, fl)
			}
			if _, ok := p.doc.Formats.Get(int(val)); !ok {
				p.opts.logf("lotus: %v", &record.MissingReference{Kind: "format", ID: int(val)})
				continue
			}
			cf.FormatID = int(val)
		}
	}
	bordersNibble, err := r.U8()
	if err != nil {
		return err
	}
	// The low nibble names which of the four borders are actually drawn;
	// a reference without its bit stays resolvable but undrawn.
	if bordersNibble&0x1 == 0 {
		cf.BorderTop = 0
	}
	if bordersNibble&0x2 == 0 {
		cf.BorderLeft = 0
	}
	if bordersNibble&0x4 == 0 {
		cf.BorderBottom = 0
	}
	if bordersNibble&0x8 == 0 {
		cf.BorderRight = 0
	}
	insertOnce(p, p.doc.CellFormats, int(id), cf, "cell")
	return nil
}

// readMacFontName handles subtype 0xfdc: the Macintosh font-name table that
// font style A0 records point into by index.
func (p *parser) readMacFontName(payload []byte) error {
	if len(payload) < 2 {
		return &record.BadPayload{RecordType: 0xfdc, Reason: "mac font name too short"}
	}
	idx := int(payload[0])
	nameBytes := payload[2:]
	end := 0
	for end < len(nameBytes) && nameBytes[end] != 0 {
		end++
	}
	name, err := bytestream.DecodeMacRoman(nameBytes[:end])
	if err != nil {
		return err
	}
	p.macFontNames[idx] = name
	return nil
}

// bindMacFontNames copies the Mac font-name table into every font style
// that referenced a name by index, a fix-up that must wait until the end of
// the parse because the name records trail the styles that use them.
func (p *parser) bindMacFontNames() {
	for styleID, fontIdx := range p.macFontRefs {
		name, ok := p.macFontNames[fontIdx]
		if !ok {
			continue
		}
		if f, ok := p.doc.Fonts.Get(styleID); ok && f.Name == "" {
			f.Name = name
			p.doc.Fonts.Replace(styleID, f)
		}
	}
}
