package lotus

import (
	"github.com/go-wks/wks/bytestream"
	"github.com/go-wks/wks/record"
)

// Zone1 record ids. These records carry the
// v3+ nesting bookkeeping: the current zone id and its parent, the
// open/close-balanced numeric stack, the table/column/row level vector,
// and the styles-definition begin/end markers that bound the cipher's
// style exclusion zone.
const (
	zone1ID         = 0x0
	zone1ParentID   = 0x3
	zone1StackOpen  = 0x4
	zone1StackClose = 0x5
	zone1LevelOpen  = 0x6
	zone1LevelClose = 0x7
	zone1Dimension  = 0x9
	zone1Parent2ID  = 0xb
	zone1StyleBegin = 0xe
	zone1StyleEnd   = 0xf
)

// readZone1 handles the outer type=1 records. Sizes are fixed per id; a
// record whose payload disagrees is a BadPayload, which the dispatcher
// turns into skip-and-warn.
func (p *parser) readZone1(rec *record.Record, payload []byte) error {
	id := int(rec.LotusID)
	switch id {
	case zone1ID, zone1ParentID, zone1Parent2ID:
		if len(payload) != 4 {
			return &record.BadPayload{RecordType: id, Reason: "zone id record is not 4 bytes"}
		}
		v := int(payload[0]) | int(payload[1])<<8 | int(payload[2])<<16 | int(payload[3])<<24
		if id == zone1ID {
			p.zoneID = v
		} else if id == zone1ParentID && v != 0 {
			p.zoneParentID = v
		}
		return nil

	case zone1StackOpen:
		if len(payload) != 4 {
			return &record.BadPayload{RecordType: id, Reason: "stack open record is not 4 bytes"}
		}
		v := uint32(payload[0]) | uint32(payload[1])<<8 | uint32(payload[2])<<16 | uint32(payload[3])<<24
		p.zone1Stack = append(p.zone1Stack, v)
		return nil

	case zone1StackClose:
		if len(payload) != 4 {
			return &record.BadPayload{RecordType: id, Reason: "stack close record is not 4 bytes"}
		}
		v := uint32(payload[0]) | uint32(payload[1])<<8 | uint32(payload[2])<<16 | uint32(payload[3])<<24
		if len(p.zone1Stack) == 0 || p.zone1Stack[len(p.zone1Stack)-1] != v {
			p.opts.logf("lotus: mismatched stack close value 0x%x", v)
		}
		if len(p.zone1Stack) > 0 {
			p.zone1Stack = p.zone1Stack[:len(p.zone1Stack)-1]
		}
		return nil

	case zone1LevelOpen:
		p.levels = append(p.levels, [2]int{0, 0})
		return nil

	case zone1LevelClose:
		if len(p.levels) == 0 {
			p.opts.logf("lotus: level close with no open level")
			return nil
		}
		p.levels = p.levels[:len(p.levels)-1]
		return nil

	case zone1Dimension:
		if len(payload) != 20 {
			return &record.BadPayload{RecordType: id, Reason: "dimension record is not 20 bytes"}
		}
		r := bytestream.New(payload)
		var dim [4]int
		for i := range dim {
			v, err := r.I32()
			if err != nil {
				return err
			}
			dim[i] = int(v)
		}
		p.opts.logf("lotus: document dimension [%d,%d]-[%d,%d]", dim[0], dim[1], dim[2], dim[3])
		return nil

	case zone1StyleBegin:
		p.inStyleZone = true
		p.setState(stateStyles)
		return nil

	case zone1StyleEnd:
		p.inStyleZone = false
		p.setState(stateBody)
		return nil

	default:
		p.opts.logf("lotus: skipping zone1 id 0x%x (%d bytes)", id, len(payload))
		return nil
	}
}

// readSheetZone handles the outer type=2 records: the sheet-node tree
// that names which zone ids are sheets. Only the list (id=2) and the
// root pointer (id=0, which also resets the current parent) affect the
// parse; the rest are annotated and skipped.
func (p *parser) readSheetZone(rec *record.Record, payload []byte) error {
	id := int(rec.LotusID)
	switch id {
	case 0:
		if len(payload) != 10 {
			return &record.BadPayload{RecordType: id, Reason: "sheet root record is not 10 bytes"}
		}
		p.zoneParentID = 0
		root := int(payload[0]) | int(payload[1])<<8 | int(payload[2])<<16 | int(payload[3])<<24
		p.opts.logf("lotus: sheet root zone Z%d", root)
		return nil

	case 2:
		if len(payload) < 16 || len(payload)%4 != 0 {
			return &record.BadPayload{RecordType: id, Reason: "sheet zone list has a bad size"}
		}
		r := bytestream.New(payload)
		n, err := r.U16()
		if err != nil {
			return err
		}
		if 16+4*int(n) != len(payload) {
			return &record.BadPayload{RecordType: id, Reason: "sheet zone list count disagrees with its size"}
		}
		if len(p.sheetZoneIDs) != 0 {
			p.opts.logf("lotus: sheet zone list seen twice")
			p.sheetZoneIDs = p.sheetZoneIDs[:0]
		}
		for i := 0; i < int(n); i++ {
			v, err := r.U32()
			if err != nil {
				return err
			}
			p.sheetZoneIDs = append(p.sheetZoneIDs, int(v))
		}
		return nil

	default:
		p.opts.logf("lotus: skipping sheet zone id 0x%x (%d bytes)", id, len(payload))
		return nil
	}
}
