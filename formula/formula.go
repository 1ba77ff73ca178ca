// Package formula decodes the RPN (postfix) formula programs embedded in
// Lotus and Multiplan cell/formula records into an instruction list.
// Operands keep their program order; a binary operator follows both of its
// operands, a function call follows its arguments, and a unary operator
// precedes its operand. No parenthesis or argument-separator instructions
// are emitted, so the list is not in infix order.
// The algorithm is identical across families; lotus_ops.go and
// multiplan_ops.go supply the family-specific opcode tables and operand
// readers that plug into it.
package formula

import (
	"fmt"

	"github.com/go-wks/wks/bytestream"
)

// InstrTag tags an Instruction's role in the rendered expression.
type InstrTag int

const (
	TagOperator InstrTag = iota
	TagFunction
	TagTextLiteral
	TagDoubleLiteral
	TagLongLiteral
	TagCellRef
	TagCellRangeRef
)

// CellRef is one endpoint of a cell or range reference, with independent
// absolute/relative flags per axis and optional cross-sheet/cross-file
// qualifiers.
type CellRef struct {
	Col, Row         int
	AbsCol, AbsRow   bool
	Sheet            string
	File             string
}

// Instruction is one token of the rendered expression.
type Instruction struct {
	Tag     InstrTag
	Text    string  // operator symbol, function name, or text literal
	Number  float64 // TagDoubleLiteral
	Long    int64   // TagLongLiteral
	Ref     CellRef // TagCellRef
	RefEnd  CellRef // TagCellRangeRef, second endpoint
}

// Expression is the fully-decoded, ordered rendering program for one
// formula.
type Expression struct {
	Instructions []Instruction
}

// OpKind classifies how an opcode's operand is decoded and how it combines
// with the instruction-list stack.
type OpKind int

const (
	KindTerminalNumber OpKind = iota
	KindTerminalLong
	KindTerminalCellRef
	KindTerminalRangeRef
	KindTerminalText
	KindTerminalName
	KindOperator
	KindParenOpen
	KindParenClose
	KindFunctionStart
	KindFunctionArgSep
	KindFunctionEnd
	KindEnd
)

// OpInfo describes one opcode: its rendered name/symbol and, for operators
// and functions, its arity. Arity -2 marks a non-operator terminal, per the
// opcode-table convention every family uses.
type OpInfo struct {
	Name  string
	Arity int
	Kind  OpKind
}

// NameEntry is what the Name pool resolves a name reference to: either a
// text value or a cell range.
type NameEntry struct {
	IsRange bool
	Text    string
	Range   [2]CellRef
}

// NamePool resolves named-reference operands against the document's Name
// pool (see the data model's Link/Name/SharedData pools).
type NamePool interface {
	Resolve(id int) (NameEntry, bool)
}

// OpcodeSet is the family-specific plug-in: an opcode table plus the
// operand readers whose byte layout differs between Lotus and Multiplan.
type OpcodeSet interface {
	Lookup(op byte) (OpInfo, bool)
	ReadNumber(r *bytestream.Reader) (float64, error)
	ReadLong(r *bytestream.Reader) (int64, error)
	ReadCellRef(r *bytestream.Reader, ctxCol, ctxRow int) (CellRef, error)
	ReadRangeRef(r *bytestream.Reader, ctxCol, ctxRow int) (CellRef, CellRef, error)
	ReadText(r *bytestream.Reader) (string, error)
	ReadNameRef(r *bytestream.Reader) (int, error)
}

// DecodeError reports a formula that did not reduce to a single expression.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "formula: " + e.Reason }

type frame struct {
	// marker is true for an explicit paren/function-open marker frame; such
	// frames carry no instructions of their own, only bookkeeping.
	marker   bool
	isFunc   bool
	funcName string
	instrs   []Instruction
}

// Decode runs the shared RPN decoding algorithm (see the package doc for the
// order of the resulting instructions) against data using ops for
// opcode lookup and operand decoding, names to resolve name references, and
// (ctxCol, ctxRow) as the context cell for relative references.
func Decode(data []byte, ops OpcodeSet, names NamePool, ctxCol, ctxRow int) (*Expression, error) {
	r := bytestream.New(data)
	var stack []frame

	push := func(f frame) { stack = append(stack, f) }
	pop := func() (frame, bool) {
		if len(stack) == 0 {
			return frame{}, false
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return top, true
	}

	for !r.EndOfStream() {
		opByte, err := r.U8()
		if err != nil {
			return nil, &DecodeError{Reason: fmt.Sprintf("short opcode byte: %v", err)}
		}
		info, ok := ops.Lookup(opByte)
		if !ok {
			return nil, &DecodeError{Reason: fmt.Sprintf("unknown opcode 0x%02x", opByte)}
		}

		switch info.Kind {
		case KindEnd:
			goto done

		case KindTerminalNumber:
			v, err := ops.ReadNumber(r)
			if err != nil {
				return nil, &DecodeError{Reason: fmt.Sprintf("number operand: %v", err)}
			}
			push(frame{instrs: []Instruction{{Tag: TagDoubleLiteral, Number: v}}})

		case KindTerminalLong:
			v, err := ops.ReadLong(r)
			if err != nil {
				return nil, &DecodeError{Reason: fmt.Sprintf("long operand: %v", err)}
			}
			push(frame{instrs: []Instruction{{Tag: TagLongLiteral, Long: v}}})

		case KindTerminalCellRef:
			ref, err := ops.ReadCellRef(r, ctxCol, ctxRow)
			if err != nil {
				return nil, &DecodeError{Reason: fmt.Sprintf("cell-ref operand: %v", err)}
			}
			push(frame{instrs: []Instruction{{Tag: TagCellRef, Ref: ref}}})

		case KindTerminalRangeRef:
			start, end, err := ops.ReadRangeRef(r, ctxCol, ctxRow)
			if err != nil {
				return nil, &DecodeError{Reason: fmt.Sprintf("range-ref operand: %v", err)}
			}
			push(frame{instrs: []Instruction{{Tag: TagCellRangeRef, Ref: start, RefEnd: end}}})

		case KindTerminalText:
			s, err := ops.ReadText(r)
			if err != nil {
				return nil, &DecodeError{Reason: fmt.Sprintf("text operand: %v", err)}
			}
			push(frame{instrs: []Instruction{{Tag: TagTextLiteral, Text: s}}})

		case KindTerminalName:
			id, err := ops.ReadNameRef(r)
			if err != nil {
				return nil, &DecodeError{Reason: fmt.Sprintf("name-ref operand: %v", err)}
			}
			entry, found := nameLookup(names, id)
			if !found {
				push(frame{instrs: []Instruction{{Tag: TagTextLiteral, Text: ""}}})
				continue
			}
			if entry.IsRange {
				push(frame{instrs: []Instruction{{Tag: TagCellRangeRef, Ref: entry.Range[0], RefEnd: entry.Range[1]}}})
			} else {
				push(frame{instrs: []Instruction{{Tag: TagTextLiteral, Text: entry.Text}}})
			}

		case KindOperator:
			if len(stack) < info.Arity {
				return nil, &DecodeError{Reason: fmt.Sprintf("operator %q needs %d operands, stack has %d", info.Name, info.Arity, len(stack))}
			}
			if info.Arity == 1 {
				operand, _ := pop()
				merged := append([]Instruction{{Tag: TagOperator, Text: info.Name}}, operand.instrs...)
				push(frame{instrs: merged})
			} else {
				right, _ := pop()
				left, _ := pop()
				merged := append(append([]Instruction{}, left.instrs...), right.instrs...)
				merged = append(merged, Instruction{Tag: TagOperator, Text: info.Name})
				push(frame{instrs: merged})
			}

		case KindParenOpen:
			push(frame{marker: true})

		case KindParenClose:
			var inner []Instruction
			for {
				top, ok := pop()
				if !ok {
					return nil, &DecodeError{Reason: "unmatched closing paren"}
				}
				if top.marker && !top.isFunc {
					break
				}
				inner = append(top.instrs, inner...)
			}
			push(frame{instrs: inner})

		case KindFunctionStart:
			push(frame{marker: true, isFunc: true, funcName: info.Name})

		case KindFunctionArgSep:
			// arguments accumulate on the stack between a function-start
			// marker and the matching end opcode; nothing to do here.

		case KindFunctionEnd:
			var args []frame
			for {
				top, ok := pop()
				if !ok {
					return nil, &DecodeError{Reason: "unmatched function close"}
				}
				if top.marker && top.isFunc {
					name := top.funcName
					if name == "" {
						name = info.Name
					}
					if remapped, handled := applyKnownRemap(name, args); handled {
						push(frame{instrs: remapped})
						break
					}
					var merged []Instruction
					for _, a := range args {
						merged = append(merged, a.instrs...)
					}
					merged = append(merged, Instruction{Tag: TagFunction, Text: name})
					push(frame{instrs: merged})
					break
				}
				args = append([]frame{top}, args...)
			}
		}
	}

done:
	if len(stack) != 1 {
		return nil, &DecodeError{Reason: fmt.Sprintf("expression did not reduce to a single value (stack depth %d)", len(stack))}
	}
	return &Expression{Instructions: stack[0].instrs}, nil
}

func nameLookup(names NamePool, id int) (NameEntry, bool) {
	if names == nil {
		return NameEntry{}, false
	}
	return names.Resolve(id)
}

// applyKnownRemap rewrites TERM/CTERM calls into their NPER equivalent
// immediately after the function name and argument frames are known, per
// the known function remappings every family applies during decoding.
// It reports handled=false for any other function, leaving the generic
// flatten-and-wrap path in Decode to run instead.
func applyKnownRemap(name string, args []frame) (instrs []Instruction, handled bool) {
	zero := Instruction{Tag: TagDoubleLiteral, Number: 0}
	negate := Instruction{Tag: TagOperator, Text: "u-"}

	switch {
	case name == "TERM" && len(args) == 3:
		pmt, pint, fv := args[0], args[1], args[2]
		instrs = append(instrs, pint.instrs...)
		instrs = append(instrs, pmt.instrs...)
		instrs = append(instrs, negate)
		instrs = append(instrs, zero)
		instrs = append(instrs, fv.instrs...)
		instrs = append(instrs, Instruction{Tag: TagFunction, Text: "NPER"})
		return instrs, true

	case name == "CTERM" && len(args) == 3:
		pint, fv, pv := args[0], args[1], args[2]
		instrs = append(instrs, pint.instrs...)
		instrs = append(instrs, zero)
		instrs = append(instrs, pv.instrs...)
		instrs = append(instrs, negate)
		instrs = append(instrs, fv.instrs...)
		instrs = append(instrs, Instruction{Tag: TagFunction, Text: "NPER"})
		return instrs, true
	}
	return nil, false
}
