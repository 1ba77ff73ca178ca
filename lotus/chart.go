package lotus

import (
	"github.com/go-wks/wks/bytestream"
	"github.com/go-wks/wks/chart"
	"github.com/go-wks/wks/numeric"
	"github.com/go-wks/wks/record"
)

// Nested-zone subtypes for the chart records.
const (
	subChartMacHeader    = 0x2710
	subChartMacPlacement = 0x2774
	subChartMacLegend    = 0x277e
	subChartMacPlotArea  = 0x2788
	subChartMacAxis      = 0x27d8
	subChartMacSerie     = 0x27e2
	subChartMacFloor     = 0x2846
	subChartMacPosition  = 0x2904
	subChartPlotArea     = 0x2a30
	subChartSerie        = 0x2a31
	subChartSerieName    = 0x2a32
	subChartSerieWidth   = 0x2a33
	subChartFonts        = 0x2a34
	subChartFrames       = 0x2a35
)

// serieFormat is the per-series slot block a ChartDef carries for its first
// six series; the values are applied to the series themselves during the
// end-of-parse link fix-up, once it is known which series actually exist.
type serieFormat struct {
	color  int
	hash   int
	yAxis  int // 1 primary, 2 secondary
	format int // 0 both, 1 lines, 2 symbols, 3 neither, 4 area
	align  int
}

// chartBuild wraps a chart.Chart with the parse-time bookkeeping that never
// leaves this package: the file's own chart-type code, the six fixed
// serie-format slots, and whether per-series style records were seen.
type chartBuild struct {
	c               *chart.Chart
	fileType        int
	fileSerieStyles bool
	serieFormats    [6]serieFormat
	hasLegend       bool
}

// chartFor returns (creating if necessary) the build state for chart id.
func (p *parser) chartFor(id int) *chartBuild {
	if cb, ok := p.charts[id]; ok {
		return cb
	}
	cb := &chartBuild{c: chart.New("", 0, 0)}
	p.charts[id] = cb
	p.chartOrder = append(p.chartOrder, id)
	p.doc.Charts = append(p.doc.Charts, cb.c)
	return cb
}

// seriesTypeForFile maps the ChartDef type byte to a series type; mixed (7)
// stays Bar until a per-series record refines it.
func seriesTypeForFile(fileType int) (chart.SeriesType, bool) {
	switch fileType {
	case 0:
		return chart.SeriesLine, false
	case 1, 7:
		return chart.SeriesBar, false
	case 2:
		return chart.SeriesScatter, false
	case 3:
		return chart.SeriesBar, true
	case 4:
		return chart.SeriesCircle, false
	case 5:
		return chart.SeriesStock, false
	case 6:
		return chart.SeriesRadar, false
	default:
		return chart.SeriesBar, false
	}
}

// chartDefMinSize is the smallest ChartDef payload seen in the wild (0xb2);
// anything shorter cannot hold the fixed blocks below.
const chartDefMinSize = 0xb2

// readChart handles id=0x11, the ChartDef record: name, the six
// serie-format slots, grid/type/axis flags, and the six extended-float
// axis bounds.
func (p *parser) readChart(payload []byte) error {
	p.setState(stateCharts)
	if len(payload) < chartDefMinSize {
		return &record.BadPayload{RecordType: 0x11, Reason: "chart definition too short"}
	}
	r := bytestream.New(payload)
	id, _ := r.U8()
	cb := p.chartFor(int(id))
	c := cb.c

	nameBytes, _ := r.Read(16)
	end := 0
	for end < len(nameBytes) && nameBytes[end] != 0 {
		end++
	}
	name, err := bytestream.DecodeLatin1(nameBytes[:end])
	if err != nil {
		return err
	}
	c.Name = name

	r.Skip(3) // font group refs
	for i := 0; i < 6; i++ {
		v, _ := r.U8()
		cb.serieFormats[i].color = int(v)
	}
	r.Skip(1)
	for i := 0; i < 6; i++ {
		v, _ := r.U8()
		cb.serieFormats[i].hash = int(v)
	}

	// Block A: per-group sizes, grid flags, color mode, chart type, and the
	// per-axis scale/exponent/legend/log/width selectors.
	r.Skip(6 + 3)
	grid, _ := r.U8()
	c.Axis(chart.AxisX).ShowGrid = grid&1 != 0
	showGridY := grid&2 != 0
	c.Axis(chart.AxisY).ShowGrid = showGridY
	r.Skip(1) // black-and-white flag
	ft, _ := r.U8()
	cb.fileType = int(ft)
	_, stacked := seriesTypeForFile(int(ft))
	c.Stacked = stacked
	for i := 0; i < 3; i++ {
		v, _ := r.I8()
		if v == -1 {
			p.chartAxis(c, i).AutomaticScale = false
		}
	}
	r.Skip(3 + 3) // exponent and legend selectors
	for i := 0; i < 3; i++ {
		v, _ := r.I8()
		p.chartAxis(c, i).Logarithmic = v == 1
	}
	r.Skip(3) // width selectors

	// Block B: the per-series axis/format/alignment slots.
	for i := 0; i < 6; i++ {
		v, _ := r.I8()
		cb.serieFormats[i].yAxis = int(v)
	}
	for i := 0; i < 6; i++ {
		v, _ := r.U8()
		cb.serieFormats[i].format = int(v)
	}
	for i := 0; i < 6; i++ {
		v, _ := r.U8()
		cb.serieFormats[i].align = int(v)
	}

	// Block C: horizontal grid routing, orientation and stacking bits,
	// group colors, tick/width words.
	for i := 0; i < 7; i++ {
		v, _ := r.I8()
		switch i {
		case 0:
			c.Axis(chart.AxisY).ShowGrid = false
			c.Axis(chart.AxisY2).ShowGrid = false
			if showGridY {
				switch v {
				case 0:
					c.Axis(chart.AxisY).ShowGrid = true
				case 1:
					c.Axis(chart.AxisY2).ShowGrid = true
				case 2:
					c.Axis(chart.AxisY).ShowGrid = true
					c.Axis(chart.AxisY2).ShowGrid = true
				}
			}
		case 3:
			if v&1 != 0 {
				c.Stacked = true // percent-stacked collapses to stacked here
			}
		case 4:
			if v&1 != 0 {
				c.Stacked = true
			}
		case 5:
			if v&3 != 0 {
				c.View3D = chart.View3D{ElevationDeg: 30, RotationDeg: 30}
			}
		}
	}
	r.Skip(3)         // group color refs
	r.Skip(2 + 6 + 4) // tick word, three axis widths, two reserved words
	r.Skip(6)         // manual exponents

	// Block D: per-axis format bytes then the six extended-float bounds.
	r.Skip(12)
	for i := 0; i < 3; i++ {
		b, err := r.Read(10)
		if err != nil {
			return &record.BadPayload{RecordType: 0x11, Reason: "chart definition axis minimum truncated"}
		}
		if v, isNaN, err := numeric.DecodeF10(b); err == nil && !isNaN {
			p.chartAxis(c, i).Min = v
		}
	}
	for i := 0; i < 3; i++ {
		b, err := r.Read(10)
		if err != nil {
			return &record.BadPayload{RecordType: 0x11, Reason: "chart definition axis maximum truncated"}
		}
		if v, isNaN, err := numeric.DecodeF10(b); err == nil && !isNaN {
			p.chartAxis(c, i).Max = v
		}
	}
	return nil
}

// chartAxis maps the file's 0/1/2 axis index (X, Y, second Y) to the fixed
// axis slots.
func (p *parser) chartAxis(c *chart.Chart, i int) *chart.Axis {
	switch i {
	case 0:
		return c.Axis(chart.AxisX)
	case 1:
		return c.Axis(chart.AxisY)
	default:
		return c.Axis(chart.AxisY2)
	}
}

// readChartName handles id=0x12: a chart id, a data id naming which chart
// element the text belongs to (series legend, axis title or subtitle, or a
// text zone), and the text itself.
func (p *parser) readChartName(payload []byte) error {
	p.setState(stateCharts)
	if len(payload) < 3 {
		return &record.BadPayload{RecordType: 0x12, Reason: "chart name too short"}
	}
	cb := p.chartFor(int(payload[0]))
	dataID := int(payload[1])
	nameBytes := payload[2:]
	end := 0
	for end < len(nameBytes) && nameBytes[end] != 0 {
		end++
	}
	name, err := bytestream.DecodeLatin1(nameBytes[:end])
	if err != nil {
		return err
	}
	if name == "" {
		return nil
	}
	switch {
	case dataID < 6:
		typ, _ := seriesTypeForFile(cb.fileType)
		s := cb.c.GetOrCreateSeries(dataID, typ)
		s.LegendText = name
		cb.hasLegend = true
	case dataID < 9:
		p.chartAxis(cb.c, dataID-6).Title = name
	case dataID < 12:
		p.chartAxis(cb.c, dataID-9).SubTitle = name
	case dataID < 16:
		kind := chart.TextZoneFooter
		if dataID == 12 {
			kind = chart.TextZoneTitle
		} else if dataID == 13 {
			kind = chart.TextZoneSubtitle
		}
		cb.c.SetTextZone(&chart.TextZone{Kind: kind, Show: true, Text: name})
	}
	return nil
}

// readChartSerie handles subtype 0x2a31: per-series axis binding, format,
// and color for the wk4/123 files that carry explicit series styles.
func (p *parser) readChartSerie(payload []byte) error {
	p.setState(stateCharts)
	if len(payload) != 22 {
		return &record.BadPayload{RecordType: subChartSerie, Reason: "chart series has a bad size"}
	}
	r := bytestream.New(payload)
	cID, _ := r.U8()
	cb := p.chartFor(int(cID))
	cb.fileSerieStyles = true
	r.Skip(3)
	sID, _ := r.U8()
	typ, _ := seriesTypeForFile(cb.fileType)
	s := cb.c.GetOrCreateSeries(int(sID), typ)

	yAxis, _ := r.U8()
	if yAxis == 2 {
		s.UseSecondaryY = true
	}
	format, _ := r.U8()
	forceBar := format&8 != 0
	format &= 0xf7
	if !forceBar && cb.fileType == 7 {
		s.Type = chart.SeriesLine
	}
	applySerieFormat(s, cb.fileType, int(format))

	r.Skip(2)
	colorID, err := r.U8()
	if err != nil {
		return err
	}
	s.Format.FillStyleID = int(colorID)
	lineStyle, err := r.I8()
	if err != nil {
		return err
	}
	s.Format.LineStyleID = int(lineStyle)
	return nil
}

// applySerieFormat maps the shared 0-4 format code onto a series' type and
// marker, per the line/bar/XY/mixed chart families that honor it.
func applySerieFormat(s *chart.Series, fileType, format int) {
	if fileType > 3 && fileType != 7 {
		return
	}
	switch format {
	case 0:
		s.Point = chart.MarkerAuto
	case 1:
		s.Type = chart.SeriesLine
	case 2:
		s.Point = chart.MarkerAuto
	case 3:
		// neither line nor symbols; nothing to record
	case 4:
		s.Type = chart.SeriesArea
	}
}

// readChartSerieName handles subtype 0x2a32: a legend text for one series.
func (p *parser) readChartSerieName(payload []byte) error {
	p.setState(stateCharts)
	if len(payload) < 6 {
		return &record.BadPayload{RecordType: subChartSerieName, Reason: "chart series name too short"}
	}
	cb := p.chartFor(int(payload[0]))
	sID := int(payload[4])
	nameBytes := payload[5:]
	end := 0
	for end < len(nameBytes) && nameBytes[end] != 0 {
		end++
	}
	name, err := bytestream.DecodeLatin1(nameBytes[:end])
	if err != nil {
		return err
	}
	if name == "" {
		return nil
	}
	typ, _ := seriesTypeForFile(cb.fileType)
	cb.c.GetOrCreateSeries(sID, typ).LegendText = name
	cb.hasLegend = true
	return nil
}

// readChartSerieWidth handles subtype 0x2a33; the width itself has no home
// in the chart model, so the record is only validated and annotated.
func (p *parser) readChartSerieWidth(payload []byte) error {
	if len(payload) != 8 {
		return &record.BadPayload{RecordType: subChartSerieWidth, Reason: "chart series width has a bad size"}
	}
	w := int(payload[6]) | int(payload[7])<<8
	p.opts.logf("lotus: chart %d series %d inverse width %d", payload[0], payload[4], w)
	return nil
}

// readChartPlotArea handles subtype 0x2a30: the title/note/legend/plot
// placement rectangles. Only the legend's manual position survives into the
// model; the rest is layout fidelity the emitter does not consume.
func (p *parser) readChartPlotArea(payload []byte) error {
	p.setState(stateCharts)
	if len(payload) != 111 {
		return &record.BadPayload{RecordType: subChartPlotArea, Reason: "chart plot area has a bad size"}
	}
	cb := p.chartFor(int(payload[0]))
	r := bytestream.New(payload)
	r.Skip(4)
	for i := 0; i < 6; i++ { // six extended floats, value unknown
		if _, err := r.Read(10); err != nil {
			return err
		}
	}
	r.Skip(6)
	for i := 0; i < 4; i++ {
		var dim [4]int
		for j := range dim {
			v, err := r.U16()
			if err != nil {
				return err
			}
			dim[j] = int(v)
		}
		if i == 2 && (dim[0] != 0 || dim[1] != 0 || dim[2] != 0 || dim[3] != 0) {
			cb.c.Legend.AutoPosition = false
			cb.c.Legend.XPt = float64(dim[0]) / 65536
			cb.c.Legend.YPt = 1 - float64(dim[1])/65536
		}
	}
	return nil
}

// Mac chart records (wk3mac). The header names the chart every following
// mac chart record applies to, the way the zone-id records scope cell
// records elsewhere in the stream.

func (p *parser) readChartMacHeader(payload []byte) error {
	p.setState(stateCharts)
	if len(payload) < 12 {
		return &record.BadPayload{RecordType: subChartMacHeader, Reason: "mac chart header too short"}
	}
	id := int(int16(uint16(payload[0]) | uint16(payload[1])<<8))
	p.macChartID = id
	cb := p.chartFor(id)
	flags := int(uint16(payload[4]) | uint16(payload[5])<<8)
	if flags&0x20 != 0 {
		cb.c.Stacked = true
	}
	return nil
}

func (p *parser) readChartMacLegend(payload []byte) error {
	if len(payload) != 7 {
		return &record.BadPayload{RecordType: subChartMacLegend, Reason: "mac legend has a bad size"}
	}
	cb := p.chartFor(p.macChartID)
	if payload[0]&0x10 != 0 {
		cb.c.Legend.AutoPosition = false
	}
	if payload[1]&1 == 0 {
		cb.hasLegend = false
		cb.c.Legend.Show = false
	} else {
		cb.hasLegend = true
	}
	if ref := int(uint16(payload[2]) | uint16(payload[3])<<8); ref>>8 == 0x40 {
		cb.c.Legend.StyleID = ref & 0xff
	}
	return nil
}

func (p *parser) readChartMacPlotArea(payload []byte) error {
	if len(payload) != 18 {
		return &record.BadPayload{RecordType: subChartMacPlotArea, Reason: "mac plot area has a bad size"}
	}
	cb := p.chartFor(p.macChartID)
	if ref := int(uint16(payload[2]) | uint16(payload[3])<<8); ref>>8 == 0x20 {
		cb.c.WallStyle = ref & 0xff
	}
	return nil
}

func (p *parser) readChartMacFloor(payload []byte) error {
	if len(payload) != 17 {
		return &record.BadPayload{RecordType: subChartMacFloor, Reason: "mac floor has a bad size"}
	}
	cb := p.chartFor(p.macChartID)
	r := bytestream.New(payload)
	r.Skip(4)
	for i := 0; i < 5; i++ {
		v, err := r.U16()
		if err != nil {
			return err
		}
		if i == 4 && int(v)>>8 == 0x20 {
			cb.c.FloorStyle = int(v) & 0xff
		}
	}
	return nil
}

func (p *parser) readChartMacAxis(payload []byte) error {
	if len(payload) != 56 {
		return &record.BadPayload{RecordType: subChartMacAxis, Reason: "mac axis has a bad size"}
	}
	cb := p.chartFor(p.macChartID)
	id := int(payload[0])
	if id >= 3 {
		return &record.BadPayload{RecordType: subChartMacAxis, Reason: "mac axis id out of range"}
	}
	axis := p.chartAxis(cb.c, id)
	axis.ShowLabel = true
	axis.ShowTitle = payload[1]&0x20 != 0
	return nil
}

// macMarkerFor maps the mac point-style code to a marker.
func macMarkerFor(v int) (chart.PointMarker, bool) {
	switch v {
	case 0, 3:
		return chart.MarkerSquare, true
	case 1, 4:
		return chart.MarkerDiamond, true
	case 2, 5:
		return chart.MarkerArrowUp, true
	case 8:
		return chart.MarkerArrowDown, true
	case 6:
		return chart.MarkerCircle, true
	case 7:
		return chart.MarkerStar, true
	case 12:
		return chart.MarkerX, true
	case 14:
		return chart.MarkerAsterisk, true
	case 16:
		return chart.MarkerPlus, true
	case 18:
		return chart.MarkerBowTie, true
	case 19:
		return chart.MarkerBarH, true
	case 20:
		return chart.MarkerBarV, true
	}
	return chart.MarkerNone, false
}

func (p *parser) readChartMacSerie(payload []byte) error {
	if len(payload) != 28 {
		return &record.BadPayload{RecordType: subChartMacSerie, Reason: "mac series has a bad size"}
	}
	cb := p.chartFor(p.macChartID)
	cb.fileSerieStyles = true
	r := bytestream.New(payload)
	sID, _ := r.U8()
	typ, _ := seriesTypeForFile(cb.fileType)
	s := cb.c.GetOrCreateSeries(int(sID), typ)

	format, _ := r.U8()
	if int(sID) < 6 {
		sf := cb.serieFormats[sID]
		if sf.yAxis == 2 {
			s.UseSecondaryY = true
		}
		applySerieFormat(s, cb.fileType, sf.format)
	} else {
		switch format & 3 {
		case 1:
			if cb.fileType == 7 {
				s.Type = chart.SeriesLine
			}
			s.Point = chart.MarkerAuto
		}
		if format&4 != 0 && (cb.fileType <= 3 || cb.fileType == 7) {
			s.Type = chart.SeriesArea
		}
	}

	// Four typed style references: line select, surface color, line, border
	// line; then the external surface color and the point-style word.
	for i := 0; i < 5; i++ {
		v, err := r.U16()
		if err != nil {
			return err
		}
		kind := int(v) >> 8
		ref := int(v) & 0xff
		switch {
		case i == 1 && kind == 0x20:
			s.Format.FillStyleID = ref
		case i == 2 && kind == 0x10:
			s.Format.LineStyleID = ref
		case i == 4 && kind == 0x20 && s.Format.FillStyleID == 0:
			s.Format.FillStyleID = ref
		}
	}
	pv, err := r.U16()
	if err != nil {
		return err
	}
	if s.Point != chart.MarkerNone {
		if m, ok := macMarkerFor(int(pv)); ok {
			s.Point = m
		}
	}
	return nil
}

// Link-name conventions: links attached to a
// chart id are named "G" plus one or two raw index bytes, each byte naming
// a chart element slot.
const (
	linkSerieDataBase  = 0x39 // series 0-5 data
	linkAxisXLabels    = 0x3f
	linkSerieLabelBase = 0x40 // series 0-5 labels
	linkExtSerieA      = 0x47 // series 6-18, 5-slot stride
	linkExtSerieB      = 0x48 // series 19-22
	linkAxisTitleBase  = 0x4f // axis x/y/second-y title ranges
	linkTextZoneBase   = 0x52 // title, subtitle, footer, second footer
)

// serieLinkNames returns the data and label link names for series sID.
func serieLinkNames(sID int) (data, label string, ok bool) {
	switch {
	case sID < 0 || sID > 22:
		return "", "", false
	case sID < 6:
		return "G" + string(rune(linkSerieDataBase+sID)), "G" + string(rune(linkSerieLabelBase+sID)), true
	case sID <= 18:
		off := 0x22 + 5*(sID-6)
		return "G" + string(rune(linkExtSerieA)) + string(rune(off)),
			"G" + string(rune(linkExtSerieA)) + string(rune(off+1)), true
	default:
		off := 0x23 + 5*(sID-19)
		return "G" + string(rune(linkExtSerieB)) + string(rune(off)),
			"G" + string(rune(linkExtSerieB)) + string(rune(off+1)), true
	}
}

// updateChart resolves a chart's link references into concrete data ranges
// at the end of the parse, once the Link pool is complete: series data and
// label ranges, axis title and label ranges, and cell-sourced text zones.
func (p *parser) updateChart(cb *chartBuild, id int) {
	c := cb.c
	if cb.hasLegend && cb.fileType != 4 {
		c.Legend.Show = true
		if c.Legend.XPt == 0 && c.Legend.YPt == 0 {
			c.Legend.AutoPosition = true
		}
	}
	links := p.doc.links[id]
	lookup := func(name string) (chart.DataRange, bool) {
		l, ok := links[name]
		if !ok || l.File != "" {
			return chart.DataRange{}, false
		}
		return l.dataRange(p.doc), true
	}

	if !cb.fileSerieStyles {
		// wk3 DOS: series exist only through their links; walk the six
		// fixed slots and create whichever have data.
		for i := 5; i >= 0; i-- {
			dataName, labelName, _ := serieLinkNames(i)
			rng, ok := lookup(dataName)
			if !ok || !rng.Valid() {
				continue
			}
			typ, _ := seriesTypeForFile(cb.fileType)
			s := c.GetOrCreateSeries(i, typ)
			s.Range = rng
			if lrng, ok := lookup(labelName); ok && lrng.Valid() {
				s.LabelRange = lrng
			}
			sf := cb.serieFormats[i]
			if sf.yAxis == 2 {
				s.UseSecondaryY = true
			}
			applySerieFormat(s, cb.fileType, sf.format)
			if sf.color != 0 && sf.color < 254 {
				s.Format.FillStyleID = sf.color
			}
		}
	} else {
		for _, sID := range c.SeriesIDsOrdered() {
			dataName, labelName, ok := serieLinkNames(sID)
			if !ok {
				p.opts.logf("lotus: chart %d has an out-of-range series id %d", id, sID)
				continue
			}
			rng, found := lookup(dataName)
			if !found || !rng.Valid() {
				continue
			}
			s := c.Series[sID]
			s.Range = rng
			if lrng, ok := lookup(labelName); ok && lrng.Valid() {
				s.LabelRange = lrng
			}
		}
	}

	for i := 0; i < 7; i++ {
		name := "G" + string(rune(linkAxisTitleBase+i))
		rng, ok := lookup(name)
		if !ok || !rng.Valid() {
			continue
		}
		if i < 3 {
			p.chartAxis(c, i).TitleRange = rng
		} else {
			kind := chart.TextZoneFooter
			if i == 3 {
				kind = chart.TextZoneTitle
			} else if i == 4 {
				kind = chart.TextZoneSubtitle
			}
			if z, exists := c.TextZones[kind]; exists {
				z.Cell = rng
			} else {
				c.SetTextZone(&chart.TextZone{Kind: kind, Show: true, Cell: rng})
			}
		}
	}

	if rng, ok := lookup("G" + string(rune(linkAxisXLabels))); ok && rng.Valid() {
		c.Axis(chart.AxisX).LabelRange = rng
	} else if cb.fileType == 2 {
		// A scatter chart's first series doubles as its X labels.
		if s, ok := c.Series[0]; ok && s.Range.Valid() {
			c.Axis(chart.AxisX).LabelRange = s.Range
			s.Range = chart.DataRange{}
		}
	}

	// A series label link whose referent is only a text (a cross-file link)
	// becomes that series' legend text.
	pending := make(map[int]int)
	for _, sID := range c.SeriesIDsOrdered() {
		_, labelName, ok := serieLinkNames(sID)
		if !ok {
			continue
		}
		l, exists := links[labelName]
		if !exists || l.File == "" {
			continue
		}
		if nameID, ok := p.doc.nameByStr[labelName]; ok {
			pending[sID] = nameID
		}
	}
	if len(pending) > 0 {
		if err := c.ResolveLinks(pending, p.doc); err != nil {
			p.opts.logf("lotus: %v", err)
		}
	}
}
