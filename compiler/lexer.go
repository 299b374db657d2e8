package compiler

import (
	"math"
	"unicode"
	"unicode/utf8"

	"github.com/tliron/commonlog"

	"github.com/chazu/playlang/vm"
)

var log = commonlog.GetLogger("playlang.compiler")

// ---------------------------------------------------------------------------
// Lexer: source text to instruction sequence
// ---------------------------------------------------------------------------

// Mode is the scanning state of a Lexer.
type Mode int

const (
	ModeNormal Mode = iota
	ModeString
	ModeEscape // inside a string, right after a backslash
	ModeComment
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeString:
		return "string"
	case ModeEscape:
		return "escape"
	case ModeComment:
		return "comment"
	}
	return "unknown"
}

// Lexer converts source text into a vm.Program.
type Lexer struct {
	input     string
	byteWidth int

	pos  int // offset of the current character
	line int
	col  int

	mode      Mode
	modeStart vm.Position // where the current string or comment opened
	reading   bool        // accumulating a number
	number    int64
	numberPos vm.Position
	program   vm.Program
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:     input,
		byteWidth: vm.DefaultByteWidth,
	}
}

// SetByteWidth sets the width push literals must fit in.
func (l *Lexer) SetByteWidth(n int) {
	l.byteWidth = n
}

// Tokenize lexes source with the default byte width.
func Tokenize(source string) (vm.Program, error) {
	return NewLexer(source).Tokenize()
}

// Tokenize scans the whole input. The program is only returned if every
// character lexed cleanly.
func (l *Lexer) Tokenize() (vm.Program, error) {
	l.reset()
	log.Info("tokenizing program")

	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if r == utf8.RuneError && size == 1 {
			return nil, &LexError{Char: r, Byte: l.input[l.pos], Invalid: true, Pos: l.position()}
		}
		if err := l.scan(r); err != nil {
			return nil, err
		}
		l.advance(r, size)
	}

	// A number at the very end still becomes a push.
	if err := l.flush(); err != nil {
		return nil, err
	}
	return l.program, nil
}

// Unterminated reports whether the last Tokenize ended inside a string or
// comment, and where that construct opened.
func (l *Lexer) Unterminated() (Mode, vm.Position, bool) {
	switch l.mode {
	case ModeNormal:
		return ModeNormal, vm.Position{}, false
	case ModeEscape:
		return ModeString, l.modeStart, true
	}
	return l.mode, l.modeStart, true
}

func (l *Lexer) reset() {
	l.pos = 0
	l.line = 1
	l.col = 1
	l.mode = ModeNormal
	l.reading = false
	l.number = 0
	l.program = nil
}

func (l *Lexer) position() vm.Position {
	return vm.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) advance(r rune, size int) {
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) scan(r rune) error {
	switch l.mode {
	case ModeComment:
		if r == commentChar {
			l.mode = ModeNormal
		}
		return nil

	case ModeEscape:
		l.mode = ModeString
		return l.emitChar(r)

	case ModeString:
		switch r {
		case escapeChar:
			l.mode = ModeEscape
			return nil
		case quoteChar:
			l.mode = ModeNormal
			return nil
		}
		return l.emitChar(r)
	}

	switch {
	case unicode.IsSpace(r):
		return l.flush()

	case r == quoteChar:
		l.mode = ModeString
		l.modeStart = l.position()
		return nil

	case r == commentChar:
		l.mode = ModeComment
		l.modeStart = l.position()
		return nil

	case isDigit(r):
		return l.digit(r)
	}

	kind, ok := LookupSymbol(r)
	if !ok {
		return &LexError{Char: r, Pos: l.position()}
	}
	log.Debugf("reading symbol %q", r)
	if err := l.flush(); err != nil {
		return err
	}
	log.Infof("building %s", kind)
	l.program = append(l.program, vm.NewInstruction(kind, l.position()))
	return nil
}

func (l *Lexer) digit(r rune) error {
	log.Debugf("reading digit %q", r)
	d := int64(r - '0')
	if !l.reading {
		l.reading = true
		l.number = 0
		l.numberPos = l.position()
	}
	if l.number > (math.MaxInt64-d)/10 {
		return &LiteralError{Pos: l.numberPos, Err: &vm.OverflowError{Value: l.number, ByteWidth: l.byteWidth}}
	}
	l.number = l.number*10 + d
	// Digits only grow the literal, so fail as soon as it is out of range.
	if err := vm.CheckMagnitude(l.number, l.byteWidth); err != nil {
		return &LiteralError{Pos: l.numberPos, Err: err}
	}
	return nil
}

// flush turns a pending number into a push instruction.
func (l *Lexer) flush() error {
	if !l.reading {
		return nil
	}
	log.Infof("building push %d", l.number)
	in, err := vm.NewPush(l.number, l.byteWidth, l.numberPos)
	if err != nil {
		return &LiteralError{Pos: l.numberPos, Err: err}
	}
	l.program = append(l.program, in)
	l.reading = false
	l.number = 0
	return nil
}

// emitChar pushes the code point of a string literal character.
func (l *Lexer) emitChar(r rune) error {
	in, err := vm.NewPush(int64(r), l.byteWidth, l.position())
	if err != nil {
		return &LiteralError{Pos: l.position(), Err: err}
	}
	l.program = append(l.program, in)
	return nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
