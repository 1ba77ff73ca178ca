package style

// FontAttr is a bit in Font.Attrs.
type FontAttr uint16

const (
	FontBold FontAttr = 1 << iota
	FontItalic
	FontUnderline
	FontDoubleUnderline
	FontStrikeout
	FontOutline
	FontShadow
	FontSuperscript
	FontSubscript
	FontHidden
)

// Font is one entry of the font table.
type Font struct {
	Name     string
	SizePt   float64
	Color    int // index into the active color palette
	Attrs    FontAttr
	Language int
}

// Color is a single RGB palette entry; the palette arrays themselves are
// built-in constants (see palette.go), never populated from records.
type Color struct {
	R, G, B uint8
}

// BorderStyle enumerates the border line styles a CellFormat can reference.
type BorderStyle int

const (
	BorderNone BorderStyle = iota
	BorderSimple
	BorderDouble
	BorderTriple
	BorderDot
	BorderLargeDot
	BorderDash
)

// Border is one entry of the border table.
type Border struct {
	Style       BorderStyle
	Width       float64
	Color       int
	RelWidths   []float64 // relative-width components for multi-line styles
}

// Line is one entry of the line table, used by graphic and chart styles.
type Line struct {
	Width  float64
	Color  int
	DashID int
}

// NumericFormatKind enumerates the coarse numeric format families.
type NumericFormatKind int

const (
	FormatGeneral NumericFormatKind = iota
	FormatFixed
	FormatScientific
	FormatCurrency
	FormatPercent
	FormatDate
	FormatTime
	FormatBoolean
	FormatText
)

// NumericFormat is one entry of the numeric-format table.
type NumericFormat struct {
	Kind    NumericFormatKind
	Digits  int
	Pattern string // date/time pattern string, when Kind is FormatDate/FormatTime
}

// HAlign and VAlign enumerate cell alignment.
type HAlign int

const (
	HAlignGeneral HAlign = iota
	HAlignLeft
	HAlignCenter
	HAlignRight
	HAlignFill
)

type VAlign int

const (
	VAlignTop VAlign = iota
	VAlignCenter
	VAlignBottom
)

// ColorStyle is one entry of the color-style table: a foreground/background
// color pair (plus two auxiliary slots some records carry) and a pattern id,
// all indexed into the built-in 256 palette and pattern arrays. Lotus cell
// and graphic styles reference these by id rather than carrying raw colors.
type ColorStyle struct {
	Colors    [4]int
	PatternID int
}

// Fg and Bg name the two colors pattern composition uses.
func (c ColorStyle) Fg() int { return c.Colors[0] }
func (c ColorStyle) Bg() int { return c.Colors[1] }

// FormatStyle is one entry of the format-style table: the prefix/suffix
// strings a numeric format wraps around a rendered value (currency symbols,
// unit suffixes).
type FormatStyle struct {
	Prefix string
	Suffix string
}

// CellFormat is one entry of the cell-format table: the composed style a
// cell or row points at by id.
type CellFormat struct {
	FontID        int
	BorderTop     int
	BorderLeft    int
	BorderBottom  int
	BorderRight   int
	FillPatternID int
	// FillColorID / FillColor2ID reference the color-style table; the
	// pattern id above indexes the built-in pattern array directly.
	FillColorID  int
	FillColor2ID int
	FormatID     int
	Digits        int
	Prefix        string
	Suffix        string
	HAlign        HAlign
	VAlign        VAlign
	Wrap          bool
	RotationDeg   int
}

// GraphicStyle is one entry of the graphic-style table, used by chart
// elements (plot area, floor, wall, series fill).
type GraphicStyle struct {
	LineID      int
	SurfaceFg   int
	SurfaceBg   int
	PatternID   int
	ShadowColor int
}
