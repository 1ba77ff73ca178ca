// Package cfb reads OLE2 compound document files: the SAT/SSAT walk and
// directory tree that let a caller pull named streams out of one, adapted
// on top of the standard OLE2 sector allocation tables.
//
// Lotus WK3/WK4/.123 store their records inside one of these containers,
// under a fixed stream name (WK3, 123, FM3, MN0); the wks package's
// Container interface is satisfied by *Document so a caller may substitute
// another implementation.
package cfb

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
)

// Signature is the magic cookie at the start of every OLE2 compound
// document.
var Signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

const (
	eocSID  = -2
	freeSID = -1
	evilSID = -5
)

// Error reports a malformed or corrupt compound document.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

type dirNode struct {
	did        int
	name       string
	entryType  int // 1=storage, 2=stream, 5=root
	firstSID   int
	totSize    int
	children   []int
	parent     int
	leftDID    int
	rightDID   int
	rootDID    int
}

// Document is a parsed OLE2 compound document, ready for named-stream
// lookup via LocateNamedStream.
type Document struct {
	mem []byte

	logfile                  io.Writer
	debug                    int
	ignoreStreamCorruption   bool

	secSize          int
	shortSecSize     int
	sat              []int
	ssat             []int
	sscs             []byte
	dirList          []*dirNode
	memDataSecs      int
	memDataLen       int
	minSizeStdStream int
	seen             []int
}

// Options controls how a Document is parsed.
type Options struct {
	Logfile io.Writer
	Debug   int
	// IgnoreStreamCorruption downgrades otherwise-fatal sector-reuse checks
	// to warnings on the log sink, continuing with best-effort data.
	IgnoreStreamCorruption bool
}

// LocateNamedStream returns the bytes of the named stream (storage paths
// separated by "/"), or (nil, false, nil) if no such stream exists.
func (d *Document) LocateNamedStream(qname string) (data []byte, ok bool, err error) {
	path := strings.Split(qname, "/")
	node := d.dirSearch(path, 0)
	if node == nil {
		return nil, false, nil
	}
	if node.totSize > d.memDataLen {
		return nil, false, &Error{Message: fmt.Sprintf("%q stream length (%d bytes) exceeds file data size (%d bytes)", qname, node.totSize, d.memDataLen)}
	}
	if node.totSize >= d.minSizeStdStream {
		result, base, streamLen, err := d.locateStream(d.mem, 512, d.sat, d.secSize, node.firstSID, node.totSize, qname, node.did+6)
		if err != nil {
			return nil, false, err
		}
		return result[base : base+streamLen], true, nil
	}
	result := d.getStream(d.sscs, 0, d.ssat, d.shortSecSize, node.firstSID, node.totSize, qname+" (short stream)", 0)
	return result, true, nil
}

func (d *Document) dirSearch(path []string, storageDID int) *dirNode {
	if len(path) == 0 {
		return nil
	}
	head := strings.ToLower(path[0])
	tail := path[1:]
	for _, child := range d.dirList[storageDID].children {
		if strings.ToLower(d.dirList[child].name) != head {
			continue
		}
		switch d.dirList[child].entryType {
		case 2:
			if len(tail) == 0 {
				return d.dirList[child]
			}
			return nil
		case 1:
			if len(tail) == 0 {
				return nil
			}
			return d.dirSearch(tail, child)
		}
	}
	return nil
}

func (d *Document) locateStream(mem []byte, base int, sat []int, secSize int, startSID int, expectedStreamSize int, qname string, seenID int) ([]byte, int, int, error) {
	s := startSID
	if s < 0 {
		return nil, 0, 0, &Error{Message: fmt.Sprintf("locateStream(%s): start sid %d is negative", qname, startSID)}
	}
	foundLimit := (expectedStreamSize + secSize - 1) / secSize
	totFound := 0
	type span struct{ start, end int }
	var slices []span

	for s >= 0 {
		if s >= len(d.seen) {
			break
		}
		if d.seen[s] != 0 {
			if !d.ignoreStreamCorruption {
				return nil, 0, 0, &Error{Message: fmt.Sprintf("%s corruption: sector %d already claimed by %d", qname, s, d.seen[s])}
			}
			break
		}
		d.seen[s] = seenID
		totFound++
		if totFound > foundLimit {
			return nil, 0, 0, &Error{Message: fmt.Sprintf("%s: size exceeds expected %d bytes; corrupt?", qname, foundLimit*secSize)}
		}
		startPos := base + s*secSize
		endPos := startPos + secSize
		if n := len(slices); n > 0 && slices[n-1].end == startPos {
			slices[n-1].end = endPos
		} else {
			slices = append(slices, span{startPos, endPos})
		}
		if s >= len(sat) {
			return nil, 0, 0, &Error{Message: fmt.Sprintf("%s: sector allocation table has no entry for %d", qname, s)}
		}
		s = sat[s]
	}

	if len(slices) == 1 {
		startPos := slices[0].start
		streamLen := slices[0].end - startPos
		if streamLen > expectedStreamSize {
			streamLen = expectedStreamSize
		}
		return mem, startPos, streamLen, nil
	}
	if len(slices) > 0 {
		result := make([]byte, 0, expectedStreamSize)
		for _, part := range slices {
			if part.start < 0 || part.end > len(mem) || part.start >= part.end {
				continue
			}
			result = append(result, mem[part.start:part.end]...)
			if len(result) >= expectedStreamSize {
				result = result[:expectedStreamSize]
				break
			}
		}
		return result, 0, len(result), nil
	}
	return nil, 0, 0, nil
}

func (d *Document) getStream(mem []byte, base int, sat []int, secSize int, startSID int, size int, name string, seenID int) []byte {
	var sectors [][]byte
	s := startSID
	todo := size
	for s >= 0 && todo > 0 {
		if s >= len(sat) {
			if d.ignoreStreamCorruption {
				d.warnf("OLE2 stream %q: sector allocation table has no entry for %d\n", name, s)
				break
			}
			return nil
		}
		if seenID != 0 && s < len(d.seen) && d.seen[s] != 0 {
			if !d.ignoreStreamCorruption {
				d.warnf("getStream(%s): corruption at sector %d (claimed by %d)\n", name, s, d.seen[s])
				return nil
			}
			d.warnf("getStream(%s): ignoring corruption at sector %d (claimed by %d)\n", name, s, d.seen[s])
		}
		if seenID != 0 && s < len(d.seen) {
			d.seen[s] = seenID
		}
		startPos := base + s*secSize
		grab := secSize
		if grab > todo {
			grab = todo
		}
		if startPos+grab > len(mem) {
			break
		}
		sectors = append(sectors, mem[startPos:startPos+grab])
		todo -= grab
		s = sat[s]
	}
	result := make([]byte, 0, size)
	for _, sector := range sectors {
		result = append(result, sector...)
	}
	if todo != 0 {
		d.warnf("OLE2 stream %q: expected size %d, actual size %d\n", name, size, size-todo)
	}
	return result
}

func (d *Document) warnf(format string, args ...interface{}) {
	if d.logfile != nil {
		fmt.Fprintf(d.logfile, format, args...)
	}
}

// Open parses an OLE2 compound document from mem.
func Open(mem []byte, opts Options) (*Document, error) {
	if len(mem) < 8 || string(mem[:8]) != string(Signature) {
		return nil, &Error{Message: "not an OLE2 compound document"}
	}
	if len(mem) < 76 {
		return nil, &Error{Message: "file too short to hold an OLE2 header"}
	}
	if mem[28] != 0xFE || mem[29] != 0xFF {
		return nil, &Error{Message: "expected little-endian byte-order marker"}
	}

	d := &Document{
		mem:                    mem,
		logfile:                opts.Logfile,
		debug:                  opts.Debug,
		ignoreStreamCorruption: opts.IgnoreStreamCorruption,
	}

	fail := func(msg string) error {
		if d.ignoreStreamCorruption {
			d.warnf("WARNING: %s\n", msg)
			return nil
		}
		return &Error{Message: msg}
	}

	ssz := int(binary.LittleEndian.Uint16(mem[30:32]))
	sssz := int(binary.LittleEndian.Uint16(mem[32:34]))
	if ssz > 20 {
		d.warnf("sector size exponent %d is implausible; assuming 512 and continuing\n", ssz)
		ssz = 9
	}
	if sssz > ssz {
		d.warnf("short-sector size exponent %d is implausible; assuming 64 and continuing\n", sssz)
		sssz = 6
	}
	d.secSize = 1 << ssz
	d.shortSecSize = 1 << sssz

	dirFirstSecSID := int(binary.LittleEndian.Uint32(mem[48:52]))
	d.minSizeStdStream = int(binary.LittleEndian.Uint32(mem[56:60]))
	ssatFirstSecSID := int(binary.LittleEndian.Uint32(mem[60:64]))
	ssatTotSecs := int(binary.LittleEndian.Uint32(mem[64:68]))

	memDataLen := len(mem) - 512
	memDataSecs := (memDataLen + d.secSize - 1) / d.secSize
	d.memDataSecs = memDataSecs
	d.memDataLen = memDataLen
	d.seen = make([]int, memDataSecs)

	msat := make([]int, 109)
	for i := 0; i < 109; i++ {
		msat[i] = int(int32(binary.LittleEndian.Uint32(mem[76+i*4 : 80+i*4])))
	}
	nent := d.secSize / 4

	msatxFirstSecSID := int(int32(binary.LittleEndian.Uint32(mem[68:72])))
	msatxTotSecs := int(binary.LittleEndian.Uint32(mem[72:76]))
	hasMSATExt := !(msatxTotSecs == 0 && (msatxFirstSecSID == eocSID || msatxFirstSecSID == freeSID || msatxFirstSecSID == 0))

	if hasMSATExt {
		sid := msatxFirstSecSID
		for sid != eocSID && sid != freeSID && sid != -3 {
			if sid < 0 || sid >= memDataSecs {
				if err := fail(fmt.Sprintf("MSAT extension: invalid or out-of-range sector %d", sid)); err != nil {
					return nil, err
				}
				break
			}
			if d.seen[sid] != 0 {
				if err := fail(fmt.Sprintf("MSAT extension corruption: sector %d already claimed", sid)); err != nil {
					return nil, err
				}
				break
			}
			d.seen[sid] = 1
			offset := 512 + sid*d.secSize
			if offset+d.secSize > len(mem) {
				break
			}
			ext := make([]int, d.secSize/4)
			for j := range ext {
				ext[j] = int(int32(binary.LittleEndian.Uint32(mem[offset+j*4 : offset+(j+1)*4])))
			}
			msat = append(msat, ext[:len(ext)-1]...)
			sid = ext[len(ext)-1]
		}
	}

	d.sat = make([]int, 0)
	truncWarned := false
	for _, msid := range msat {
		if msid == freeSID || msid == eocSID {
			continue
		}
		if msid < 0 || msid >= memDataSecs {
			if !truncWarned {
				d.warnf("WARNING: file is truncated, or the MSAT is corrupt (sector %d, only %d available)\n", msid, memDataSecs)
				truncWarned = true
			}
			continue
		}
		if d.seen[msid] != 0 {
			if err := fail(fmt.Sprintf("MSAT corruption: sector %d already claimed", msid)); err != nil {
				return nil, err
			}
			break
		}
		d.seen[msid] = 2
		offset := 512 + msid*d.secSize
		if offset+d.secSize > len(mem) {
			continue
		}
		sector := make([]int, nent)
		for i := 0; i < nent; i++ {
			sector[i] = int(int32(binary.LittleEndian.Uint32(mem[offset+i*4 : offset+(i+1)*4])))
		}
		d.sat = append(d.sat, sector...)
	}
	for i := memDataSecs; i < len(d.sat); i++ {
		d.sat[i] = evilSID
	}

	dirSize := 0
	seenDir := make(map[int]bool)
	for sid := dirFirstSecSID; sid >= 0 && sid < len(d.sat); {
		if seenDir[sid] {
			if err := fail(fmt.Sprintf("directory chain corruption: sector %d seen twice", sid)); err != nil {
				return nil, err
			}
			break
		}
		seenDir[sid] = true
		dirSize += d.secSize
		next := d.sat[sid]
		if next == eocSID {
			break
		}
		sid = next
	}
	dirBytes := d.getStream(mem, 512, d.sat, d.secSize, dirFirstSecSID, dirSize, "directory", 3)
	d.dirList = make([]*dirNode, 0)
	for pos := 0; pos+128 <= len(dirBytes); pos += 128 {
		dent := dirBytes[pos : pos+128]
		cbufsize := binary.LittleEndian.Uint16(dent[64:66])
		var name string
		if cbufsize > 0 && cbufsize <= 64 && (cbufsize-2)%2 == 0 {
			nameBytes := dent[0 : cbufsize-2]
			words := make([]uint16, len(nameBytes)/2)
			for i := range words {
				words[i] = binary.LittleEndian.Uint16(nameBytes[i*2 : (i+1)*2])
			}
			name = string(utf16.Decode(words))
		}
		did := len(d.dirList)
		d.dirList = append(d.dirList, &dirNode{
			did:       did,
			name:      name,
			entryType: int(dent[66]),
			leftDID:   int(int32(binary.LittleEndian.Uint32(dent[68:72]))),
			rightDID:  int(int32(binary.LittleEndian.Uint32(dent[72:76]))),
			rootDID:   int(int32(binary.LittleEndian.Uint32(dent[76:80]))),
			firstSID:  int(int32(binary.LittleEndian.Uint32(dent[116:120]))),
			totSize:   int(int32(binary.LittleEndian.Uint32(dent[120:124]))),
			children:  nil,
			parent:    -1,
		})
	}
	if len(d.dirList) > 0 {
		d.buildFamilyTree(0, d.dirList[0].rootDID)
	}

	if len(d.dirList) > 0 {
		root := d.dirList[0]
		if root.firstSID >= 0 && root.totSize > 0 {
			d.sscs = d.getStream(mem, 512, d.sat, d.secSize, root.firstSID, root.totSize, "SSCS", 4)
		}
		d.ssat = make([]int, 0)
		if ssatTotSecs > 0 && len(d.sscs) > 0 {
			sid := ssatFirstSecSID
			remaining := ssatTotSecs
			for sid >= 0 && remaining > 0 {
				if sid < len(d.seen) && d.seen[sid] != 0 {
					if err := fail(fmt.Sprintf("SSAT corruption: sector %d already claimed", sid)); err != nil {
						return nil, err
					}
					break
				}
				if sid < len(d.seen) {
					d.seen[sid] = 5
				}
				if sid >= len(d.sat) {
					break
				}
				offset := 512 + sid*d.secSize
				if offset+d.secSize > len(mem) {
					break
				}
				sector := make([]int, nent)
				for i := 0; i < nent; i++ {
					sector[i] = int(int32(binary.LittleEndian.Uint32(mem[offset+i*4 : offset+(i+1)*4])))
				}
				d.ssat = append(d.ssat, sector...)
				sid = d.sat[sid]
				remaining--
			}
			if remaining != 0 || sid != eocSID {
				if err := fail("SSAT chain ended prematurely"); err != nil {
					return nil, err
				}
			}
		}
	}

	return d, nil
}

func (d *Document) buildFamilyTree(parentDID, childDID int) {
	if childDID < 0 || childDID >= len(d.dirList) {
		return
	}
	d.buildFamilyTree(parentDID, d.dirList[childDID].leftDID)
	d.dirList[parentDID].children = append(d.dirList[parentDID].children, childDID)
	d.dirList[childDID].parent = parentDID
	d.buildFamilyTree(parentDID, d.dirList[childDID].rightDID)
	if d.dirList[childDID].entryType == 1 {
		d.buildFamilyTree(childDID, d.dirList[childDID].rootDID)
	}
}

// Lotus/Multiplan's fixed named streams within a compound document.
const (
	StreamWK3 = "WK3"
	Stream123 = "123"
	StreamFM3 = "FM3"
	StreamMN0 = "MN0"
)

// StreamNames is the ordered set of stream names the coordinator tries, per
// the file-family dispatch table.
var StreamNames = []string{StreamWK3, Stream123, StreamFM3, StreamMN0}

// FindMainStream tries each of StreamNames in order and returns the first
// one present in the document.
func (d *Document) FindMainStream() (name string, data []byte, err error) {
	for _, candidate := range StreamNames {
		data, ok, err := d.LocateNamedStream(candidate)
		if err != nil {
			return "", nil, fmt.Errorf("cfb: locating stream %q: %w", candidate, err)
		}
		if ok {
			return candidate, data, nil
		}
	}
	return "", nil, &Error{Message: "no known main stream (WK3/123/FM3/MN0) found in compound document"}
}
