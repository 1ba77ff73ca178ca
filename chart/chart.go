// Package chart holds the chart data model: series, axes, legend, and text
// zones assembled from chart records, with link references resolved into
// concrete cell ranges at emission time. The model carries more variety
// than a plain series/axis/legend triple (3D view angles, per-series
// line/area/marker formatting) because the file formats do.
package chart

import "fmt"

// SeriesType is the fixed set of chart series kinds.
type SeriesType int

const (
	SeriesArea SeriesType = iota
	SeriesBar
	SeriesBubble
	SeriesCircle
	SeriesColumn
	SeriesGantt
	SeriesLine
	SeriesRadar
	SeriesRing
	SeriesScatter
	SeriesStock
	SeriesSurface
)

// PointMarker is the fixed set of point markers a series may use.
type PointMarker int

const (
	MarkerNone PointMarker = iota
	MarkerAuto
	MarkerSquare
	MarkerDiamond
	MarkerArrowUp
	MarkerArrowDown
	MarkerArrowLeft
	MarkerArrowRight
	MarkerBowTie
	MarkerHourglass
	MarkerCircle
	MarkerStar
	MarkerX
	MarkerPlus
	MarkerAsterisk
	MarkerBarH
	MarkerBarV
)

// AxisCoord names which of the four fixed axes a record belongs to.
type AxisCoord int

const (
	AxisX AxisCoord = iota
	AxisY
	AxisY2
	AxisZ
)

// DataRange is a resolved (sheet, column, row) span, the form a Link pool
// entry becomes once its referent is known. An unresolved range (the link
// named only a text, or resolution failed) has Sheet == "".
type DataRange struct {
	Sheet              string
	StartCol, StartRow int
	EndCol, EndRow     int
}

// Valid reports whether the range resolved to an actual sheet location.
func (d DataRange) Valid() bool {
	return d.Sheet != "" && d.StartCol >= 0 && d.StartRow >= 0
}

// Format is a series' line/area/marker rendering reference, carried as style
// ids to resolve against the style package at emission time like every other
// style reference.
type Format struct {
	LineStyleID   int
	MarkerStyleID int
	FillStyleID   int
}

// Series is one chart series: a data range plus optional label/legend ranges
// and id-referenced formatting.
type Series struct {
	ID            int
	Type          SeriesType
	Point         PointMarker
	Range         DataRange
	LabelRange    DataRange
	LegendRange   DataRange
	LegendText    string
	UseSecondaryY bool
	Format        Format
}

// Axis is one of the four fixed chart axes.
type Axis struct {
	Coord           AxisCoord
	ShowGrid        bool
	ShowLabel       bool
	AutomaticScale  bool
	Min, Max        float64
	ShowTitle       bool
	Logarithmic     bool
	Title, SubTitle string
	TitleRange      DataRange
	LabelRange      DataRange
	StyleID         int
}

// Legend is the chart's single legend.
type Legend struct {
	Show           bool
	AutoPosition   bool
	XPt, YPt       float64
	FontID         int
	StyleID        int
}

// TextZoneKind tags a TextZone's role.
type TextZoneKind int

const (
	TextZoneTitle TextZoneKind = iota
	TextZoneSubtitle
	TextZoneFooter
)

// TextZone is a title/subtitle/footer, sourced from either a literal string
// or a cell reference resolved at emission time.
type TextZone struct {
	Kind    TextZoneKind
	Show    bool
	Text    string
	Cell    DataRange
	FontID  int
	StyleID int
}

// View3D carries the optional 3D viewing parameters; the zero value means
// "not a 3D chart".
type View3D struct {
	ElevationDeg, RotationDeg, PerspectivePct float64
}

// Chart is the full assembled chart model for one chart record group.
type Chart struct {
	Name          string
	WidthPt       float64
	HeightPt      float64
	Series        map[int]*Series
	Axes          [4]Axis
	Legend        Legend
	TextZones     map[TextZoneKind]*TextZone
	PlotAreaStyle int
	FloorStyle    int
	WallStyle     int
	GridColorID   int
	View3D        View3D
	Stacked       bool
}

// New returns an empty chart of the given dimensions in points.
func New(name string, widthPt, heightPt float64) *Chart {
	return &Chart{
		Name:      name,
		WidthPt:   widthPt,
		HeightPt:  heightPt,
		Series:    make(map[int]*Series),
		TextZones: make(map[TextZoneKind]*TextZone),
	}
}

// GetOrCreateSeries returns the series with the given id, creating it (with
// its type set) on first reference.
func (c *Chart) GetOrCreateSeries(id int, typ SeriesType) *Series {
	if s, ok := c.Series[id]; ok {
		return s
	}
	s := &Series{ID: id, Type: typ}
	c.Series[id] = s
	return s
}

// Axis returns a pointer to the fixed axis at coord.
func (c *Chart) Axis(coord AxisCoord) *Axis {
	return &c.Axes[coord]
}

// SetTextZone installs or replaces the text zone of the given kind.
func (c *Chart) SetTextZone(z *TextZone) {
	c.TextZones[z.Kind] = z
}

// SeriesIDsOrdered returns the chart's series ids in ascending order, the
// order the send-order contract requires.
func (c *Chart) SeriesIDsOrdered() []int {
	ids := make([]int, 0, len(c.Series))
	for id := range c.Series {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// LinkResolver resolves a Link pool entry (by id) into a concrete data
// range, or into a plain text legend when the link names only a text.
type LinkResolver interface {
	ResolveRange(linkID int) (DataRange, bool)
	ResolveText(linkID int) (string, bool)
}

// ResolveLinks resolves the series legend links in pendingSeriesLegendLinks
// (series id to link id): a link that resolves to a range becomes the
// series' LegendRange, otherwise one that resolves to text becomes its
// LegendText, and one that resolves to neither leaves the series unchanged.
// No other range-valued chart field is touched. A series id with no series
// on the chart is an error.
func (c *Chart) ResolveLinks(pendingSeriesLegendLinks map[int]int, resolver LinkResolver) error {
	for seriesID, linkID := range pendingSeriesLegendLinks {
		s, ok := c.Series[seriesID]
		if !ok {
			return fmt.Errorf("chart: legend link references unknown series %d", seriesID)
		}
		if rng, ok := resolver.ResolveRange(linkID); ok {
			s.LegendRange = rng
			continue
		}
		if text, ok := resolver.ResolveText(linkID); ok {
			s.LegendText = text
			continue
		}
	}
	return nil
}
