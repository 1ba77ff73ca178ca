// Package wks is the coordinator: it opens a file (raw DOS bytes or a
// compound document), locates the right stream for its family, runs the
// matching record dispatcher, and walks the resulting document to drive
// an Emitter. Detection tries each known signature in turn: a compound
// document names its family through its main stream, a bare DOS file
// through its first bytes.
package wks

import (
	"fmt"
	"io"

	"github.com/go-wks/wks/cfb"
	"github.com/go-wks/wks/lotus"
	"github.com/go-wks/wks/multiplan"
	"github.com/go-wks/wks/record"
)

// Options configures Open/OpenBytes. Password only matters for an
// encrypted Lotus or Multiplan v3 stream; Logfile receives the same
// skip-and-warn annotations the family dispatchers produce.
type Options struct {
	Password  string
	Logfile   io.Writer
	Verbosity int
}

func (o Options) logf(format string, args ...interface{}) {
	if o.Logfile == nil {
		return
	}
	fmt.Fprintf(o.Logfile, format+"\n", args...)
}

func (o Options) lotusOptions() lotus.Options {
	return lotus.Options{Password: o.Password, Logfile: o.Logfile, Verbosity: o.Verbosity}
}

func (o Options) multiplanOptions() multiplan.Options {
	return multiplan.Options{Password: o.Password, Logfile: o.Logfile, Verbosity: o.Verbosity}
}

// Container is the subset of cfb.Document's surface the coordinator needs:
// enough to locate the family's main stream by its fixed name. *cfb.Document
// satisfies this structurally.
type Container interface {
	FindMainStream() (name string, data []byte, err error)
}

// Family tags which parser produced a Document.
type Family int

const (
	FamilyLotus Family = iota
	FamilyMultiplan
)

// Document is the parsed result, still keyed by family. Emit walks whichever
// side is populated.
type Document struct {
	Family     Family
	StreamName string

	Lotus     *lotus.Document
	Multiplan *multiplan.Document
}

// OpenBytes opens a whole input file: a compound document (WK3/WK4/123,
// FM3/MN0-hosted Multiplan) or a bare DOS stream (WK1, DOS Multiplan). It
// tries cfb.Open first; a file that is not a compound document at all
// falls back to treating the raw bytes as a single family stream.
func OpenBytes(data []byte, opts Options) (*Document, error) {
	if doc, err := cfb.Open(data, cfb.Options{}); err == nil {
		return Open(doc, opts)
	}
	return parseRawStream(data, opts)
}

// Open locates the family's main stream inside an already-opened container
// and runs the matching dispatcher.
func Open(c Container, opts Options) (*Document, error) {
	name, data, err := c.FindMainStream()
	if err != nil {
		return nil, err
	}
	switch name {
	case cfb.StreamWK3, cfb.Stream123:
		ld, err := lotus.Parse(data, opts.lotusOptions())
		if err != nil {
			return nil, err
		}
		return &Document{Family: FamilyLotus, StreamName: name, Lotus: ld}, nil
	case cfb.StreamFM3, cfb.StreamMN0:
		md, err := multiplan.Parse(data, opts.multiplanOptions())
		if err != nil {
			return nil, err
		}
		return &Document{Family: FamilyMultiplan, StreamName: name, Multiplan: md}, nil
	default:
		return nil, &record.UnsupportedFormatVariantError{Variant: "unrecognized main stream " + name}
	}
}

// multiplanSignatures are the first two bytes of a Multiplan v1/v2/v3
// file. A DOS Lotus WK1 stream, by
// contrast, always opens with its id=0,type=0 BOF header (0x00 0x00), so
// peeking these two bytes is enough to tell the families apart without a
// compound document to name the stream for us.
var multiplanSignatures = [][2]byte{{0x08, 0xE7}, {0x0C, 0xEC}, {0x0C, 0xED}}

func looksLikeMultiplan(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	for _, sig := range multiplanSignatures {
		if data[0] == sig[0] && data[1] == sig[1] {
			return true
		}
	}
	return false
}

// parseRawStream handles a file that never went through cfb.Open: a bare
// DOS WK1, or a bare DOS Multiplan file.
func parseRawStream(data []byte, opts Options) (*Document, error) {
	if looksLikeMultiplan(data) {
		md, err := multiplan.Parse(data, opts.multiplanOptions())
		if err != nil {
			return nil, err
		}
		return &Document{Family: FamilyMultiplan, Multiplan: md}, nil
	}
	ld, err := lotus.Parse(data, opts.lotusOptions())
	if err != nil {
		return nil, err
	}
	return &Document{Family: FamilyLotus, Lotus: ld}, nil
}
