package vm

import (
	"fmt"
	"slices"
)

// Kind identifies an instruction. Kinds are grouped by class so that the
// engine can tell control instructions apart from stack effects.
type Kind byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	KindPush  Kind = 0x00 // Push the embedded literal
	KindPop   Kind = 0x01 // Pop and yield the top
	KindPeek  Kind = 0x02 // Yield the top without removing it
	KindEmpty Kind = 0x03 // Clear the stack
	KindNonOp Kind = 0x04 // No operation
	KindChr   Kind = 0x05 // Yield the top as a character
	KindCopy  Kind = 0x06 // Duplicate the top

	// ========================================================================
	// Unary operations (0x10-0x1F)
	// ========================================================================

	KindNot    Kind = 0x10 // nonzero -> 0, zero -> 1
	KindNegate Kind = 0x11 // a -> -a

	// ========================================================================
	// Binary operations (0x20-0x3F)
	// ========================================================================

	KindAdd         Kind = 0x20 // a + b
	KindSubtract    Kind = 0x21 // a - b where b is TOS
	KindMultiply    Kind = 0x22 // a * b
	KindDivide      Kind = 0x23 // floor(a / b)
	KindModulo      Kind = 0x24 // a mod b, sign of b
	KindAnd         Kind = 0x25 // a & b
	KindOr          Kind = 0x26 // a | b
	KindEquality    Kind = 0x27 // 1 if a == b
	KindGreaterThan Kind = 0x28 // 1 if a > b
	KindLessThan    Kind = 0x29 // 1 if a < b

	// ========================================================================
	// Formatters (0x40-0x4F)
	// ========================================================================

	KindToString Kind = 0x40 // Decode the whole stack as UTF-32 text

	// ========================================================================
	// Control flow (0x80-0x8F)
	// ========================================================================

	KindIf              Kind = 0x80
	KindEndIf           Kind = 0x81
	KindElse            Kind = 0x82
	KindReturn          Kind = 0x83
	KindJump            Kind = 0x84
	KindConditionalJump Kind = 0x85
	KindSave            Kind = 0x86
	KindLoad            Kind = 0x87
)

// Class groups kinds by how the engine dispatches them.
type Class int

const (
	ClassStack Class = iota
	ClassUnary
	ClassBinary
	ClassFormatter
	ClassControl
)

func (c Class) String() string {
	switch c {
	case ClassStack:
		return "stack"
	case ClassUnary:
		return "unary"
	case ClassBinary:
		return "binary"
	case ClassFormatter:
		return "formatter"
	case ClassControl:
		return "control"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// KindInfo provides metadata about each kind for listings, diagnostics and
// editor support.
type KindInfo struct {
	Name   string // Human-readable name
	Symbol rune   // Source symbol, 0 for kinds with no single symbol
	Pops   int    // Values removed from the stack (-1 = whole stack)
	Pushes int    // Values left on the stack
	Class  Class
	Doc    string
}

var kindInfoTable = map[Kind]KindInfo{
	KindPush:  {"push", 0, 0, 1, ClassStack, "Push a literal onto the stack."},
	KindPop:   {"pop", '.', 1, 0, ClassStack, "Remove the top value and print it."},
	KindPeek:  {"peek", ':', 1, 1, ClassStack, "Print the top value without removing it."},
	KindEmpty: {"empty", 'e', -1, 0, ClassStack, "Clear the stack."},
	KindNonOp: {"non_op", ',', 0, 0, ClassStack, "Do nothing. Useful as a separator."},
	KindChr:   {"chr", 'c', 1, 1, ClassStack, "Print the top value as a character without removing it."},
	KindCopy:  {"copy", '?', 1, 2, ClassStack, "Duplicate the top value."},

	KindNot:    {"not", '!', 1, 1, ClassUnary, "Logical negation: nonzero becomes 0, zero becomes 1."},
	KindNegate: {"negate", '~', 1, 1, ClassUnary, "Arithmetic negation."},

	KindAdd:         {"add", '+', 2, 1, ClassBinary, "a + b"},
	KindSubtract:    {"subtract", '-', 2, 1, ClassBinary, "a - b"},
	KindMultiply:    {"multiply", '*', 2, 1, ClassBinary, "a * b"},
	KindDivide:      {"divide", '/', 2, 1, ClassBinary, "a / b, rounded toward negative infinity."},
	KindModulo:      {"modulo", '%', 2, 1, ClassBinary, "a mod b, taking the sign of b."},
	KindAnd:         {"and", '&', 2, 1, ClassBinary, "Bitwise and."},
	KindOr:          {"or", '|', 2, 1, ClassBinary, "Bitwise or."},
	KindEquality:    {"equality", '=', 2, 1, ClassBinary, "1 if a equals b, else 0."},
	KindGreaterThan: {"greater_than", '>', 2, 1, ClassBinary, "1 if a > b, else 0."},
	KindLessThan:    {"less_than", '<', 2, 1, ClassBinary, "1 if a < b, else 0."},

	KindToString: {"tostring", 's', 0, 0, ClassFormatter, "Print the whole stack decoded as UTF-32 text."},

	KindIf:              {"if", '(', 1, 1, ClassControl, "Run the block up to the matching ) if the top is nonzero."},
	KindEndIf:           {"endif", ')', 0, 0, ClassControl, "Close the innermost if or else block."},
	KindElse:            {"else", '{', 0, 0, ClassControl, "Run the block up to the matching ) if the previous if was not taken."},
	KindReturn:          {"return", 'r', 0, 0, ClassControl, "Mark a jump target."},
	KindJump:            {"jump", 'j', 0, 0, ClassControl, "Jump back to the most recent return mark."},
	KindConditionalJump: {"conditional_jump", 'q', 1, 1, ClassControl, "Jump back to the most recent return mark if the top is nonzero."},
	KindSave:            {"save", '$', 1, 1, ClassControl, "Copy the top value into the register."},
	KindLoad:            {"load", '^', 0, 1, ClassControl, "Push the register value."},
}

// GetKindInfo returns metadata for a kind.
// Returns a zero KindInfo with name "UNKNOWN" if the kind is not recognized.
func GetKindInfo(k Kind) KindInfo {
	if info, ok := kindInfoTable[k]; ok {
		return info
	}
	return KindInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(k))}
}

// String returns the human-readable name of a kind.
func (k Kind) String() string {
	return GetKindInfo(k).Name
}

// Class returns the dispatch class of a kind.
func (k Kind) Class() Class {
	return GetKindInfo(k).Class
}

// IsControl reports whether the engine interprets k directly.
func (k Kind) IsControl() bool {
	return k >= KindIf && k <= KindLoad
}

// AllKinds returns every defined kind in ascending order.
func AllKinds() []Kind {
	kinds := make([]Kind, 0, len(kindInfoTable))
	for k := range kindInfoTable {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Position is a location in source text.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based, in runes
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Instruction is one lexed unit of a program. Only push instructions carry a
// value.
type Instruction struct {
	Kind  Kind
	Value int64
	Pos   Position
}

// NewInstruction builds a payload-free instruction of the given kind.
func NewInstruction(k Kind, pos Position) Instruction {
	return Instruction{Kind: k, Pos: pos}
}

// NewPush builds a push instruction, rejecting literals that do not fit in
// byteWidth bytes.
func NewPush(value int64, byteWidth int, pos Position) (Instruction, error) {
	if err := CheckMagnitude(value, byteWidth); err != nil {
		return Instruction{}, err
	}
	return Instruction{Kind: KindPush, Value: value, Pos: pos}, nil
}

func (in Instruction) String() string {
	if in.Kind == KindPush {
		return fmt.Sprintf("push(%d)", in.Value)
	}
	return in.Kind.String()
}

// Program is the ordered instruction sequence produced by one lexing pass.
type Program []Instruction
