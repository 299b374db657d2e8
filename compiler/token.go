package compiler

import (
	"fmt"

	"github.com/chazu/playlang/vm"
)

// ---------------------------------------------------------------------------
// Symbol table
// ---------------------------------------------------------------------------

// symbols maps every single-character operator to the kind it builds. The
// table is exhaustive: anything else outside strings and comments that is
// not whitespace or a digit is a lex error.
var symbols = map[rune]vm.Kind{
	'+': vm.KindAdd,
	'-': vm.KindSubtract,
	'*': vm.KindMultiply,
	'/': vm.KindDivide,
	'%': vm.KindModulo,
	'.': vm.KindPop,
	',': vm.KindNonOp,
	':': vm.KindPeek,
	'e': vm.KindEmpty,
	'c': vm.KindChr,
	'!': vm.KindNot,
	'~': vm.KindNegate,
	'&': vm.KindAnd,
	'|': vm.KindOr,
	's': vm.KindToString,
	'?': vm.KindCopy,
	'(': vm.KindIf,
	')': vm.KindEndIf,
	'{': vm.KindElse,
	'=': vm.KindEquality,
	'>': vm.KindGreaterThan,
	'<': vm.KindLessThan,
	'r': vm.KindReturn,
	'j': vm.KindJump,
	'q': vm.KindConditionalJump,
	'$': vm.KindSave,
	'^': vm.KindLoad,
}

const (
	quoteChar   = '"'
	escapeChar  = '\\'
	commentChar = '#'
)

// LookupSymbol returns the kind built by an operator character.
func LookupSymbol(r rune) (vm.Kind, bool) {
	k, ok := symbols[r]
	return k, ok
}

// Symbols returns a copy of the operator table.
func Symbols() map[rune]vm.Kind {
	out := make(map[rune]vm.Kind, len(symbols))
	for r, k := range symbols {
		out[r] = k
	}
	return out
}

// LexError reports a character that is not part of the language, or a byte
// that is not valid UTF-8 (Invalid set, Byte holds the raw byte).
type LexError struct {
	Char    rune
	Byte    byte
	Invalid bool
	Pos     vm.Position
}

func (e *LexError) Error() string {
	if e.Invalid {
		return fmt.Sprintf("%s: invalid UTF-8 byte 0x%02X at offset %d", e.Pos, e.Byte, e.Pos.Offset)
	}
	return fmt.Sprintf("%s: unknown symbol %q", e.Pos, e.Char)
}

// LiteralError attaches the source position to a push literal that failed to
// build, typically a *vm.OverflowError.
type LiteralError struct {
	Pos vm.Position
	Err error
}

func (e *LiteralError) Error() string {
	return fmt.Sprintf("%s: %v", e.Pos, e.Err)
}

func (e *LiteralError) Unwrap() error {
	return e.Err
}
