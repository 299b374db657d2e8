package compiler

import (
	"errors"
	"testing"

	"github.com/chazu/playlang/vm"
)

func kinds(prog vm.Program) []vm.Kind {
	out := make([]vm.Kind, len(prog))
	for i, in := range prog {
		out[i] = in.Kind
	}
	return out
}

func mustTokenize(t *testing.T, src string) vm.Program {
	t.Helper()
	prog, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q) failed: %v", src, err)
	}
	return prog
}

func TestLexerSymbols(t *testing.T) {
	input := `+-*/%.,:ec!~&|s?(){=><rjq$^`
	expected := []vm.Kind{
		vm.KindAdd, vm.KindSubtract, vm.KindMultiply, vm.KindDivide, vm.KindModulo,
		vm.KindPop, vm.KindNonOp, vm.KindPeek, vm.KindEmpty, vm.KindChr,
		vm.KindNot, vm.KindNegate, vm.KindAnd, vm.KindOr, vm.KindToString,
		vm.KindCopy, vm.KindIf, vm.KindEndIf, vm.KindElse, vm.KindEquality,
		vm.KindGreaterThan, vm.KindLessThan, vm.KindReturn, vm.KindJump,
		vm.KindConditionalJump, vm.KindSave, vm.KindLoad,
	}

	prog := mustTokenize(t, input)
	if len(prog) != len(expected) {
		t.Fatalf("got %d instructions, want %d", len(prog), len(expected))
	}
	for i, exp := range expected {
		if prog[i].Kind != exp {
			t.Errorf("instruction[%d] = %v, want %v", i, prog[i].Kind, exp)
		}
	}
}

func TestLexerSymbolTableMatchesKindInfo(t *testing.T) {
	for r, k := range Symbols() {
		if got := vm.GetKindInfo(k).Symbol; got != r {
			t.Errorf("symbol %q builds %s, whose info lists %q", r, k, got)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  []int64
	}{
		{"42", []int64{42}},
		{"0", []int64{0}},
		{"007", []int64{7}},
		{"3 4", []int64{3, 4}},
		{"1\t2\n3", []int64{1, 2, 3}},
		{"  9  ", []int64{9}},
		{"4294967296", []int64{1 << 32}},
	}

	for _, tc := range tests {
		prog := mustTokenize(t, tc.input)
		if len(prog) != len(tc.want) {
			t.Errorf("Tokenize(%q): %d instructions, want %d", tc.input, len(prog), len(tc.want))
			continue
		}
		for i, v := range tc.want {
			if prog[i].Kind != vm.KindPush || prog[i].Value != v {
				t.Errorf("Tokenize(%q)[%d] = %v, want push(%d)", tc.input, i, prog[i], v)
			}
		}
	}
}

func TestLexerSymbolFlushesNumber(t *testing.T) {
	prog := mustTokenize(t, "12+3.")
	want := []vm.Kind{vm.KindPush, vm.KindAdd, vm.KindPush, vm.KindPop}
	got := kinds(prog)
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kind[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if prog[0].Value != 12 || prog[2].Value != 3 {
		t.Errorf("values = %d, %d; want 12, 3", prog[0].Value, prog[2].Value)
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  []int64
	}{
		{`"hi"`, []int64{'h', 'i'}},
		{`""`, nil},
		{`"a b"`, []int64{'a', ' ', 'b'}},
		{`"\""`, []int64{'"'}},
		{`"\\"`, []int64{'\\'}},
		{`"#."`, []int64{'#', '.'}},
		{`"x\#"`, []int64{'x', '#'}},
		{`"é"`, []int64{0xE9}},
	}

	for _, tc := range tests {
		prog := mustTokenize(t, tc.input)
		if len(prog) != len(tc.want) {
			t.Errorf("Tokenize(%q): %d instructions, want %d", tc.input, len(prog), len(tc.want))
			continue
		}
		for i, v := range tc.want {
			if prog[i].Kind != vm.KindPush || prog[i].Value != v {
				t.Errorf("Tokenize(%q)[%d] = %v, want push(%d)", tc.input, i, prog[i], v)
			}
		}
	}
}

func TestLexerComments(t *testing.T) {
	prog := mustTokenize(t, "1 # ignored: z%& \"not a string #2")
	if len(prog) != 2 || prog[0].Value != 1 || prog[1].Value != 2 {
		t.Errorf("program = %v, want [push(1) push(2)]", prog)
	}
}

func TestLexerNoOperatorsNeverFails(t *testing.T) {
	for _, src := range []string{"", " ", "\n\t", "1 2 3", "#x# 4", `"text"`, "  # open comment"} {
		if _, err := Tokenize(src); err != nil {
			t.Errorf("Tokenize(%q) failed: %v", src, err)
		}
	}
}

func TestLexerUnknownSymbol(t *testing.T) {
	tests := []struct {
		input string
		char  rune
		pos   vm.Position
	}{
		{"x", 'x', vm.Position{Offset: 0, Line: 1, Column: 1}},
		{"1 2 +\n  @", '@', vm.Position{Offset: 8, Line: 2, Column: 3}},
		{"}", '}', vm.Position{Offset: 0, Line: 1, Column: 1}},
		{"é", 'é', vm.Position{Offset: 0, Line: 1, Column: 1}},
		{`"é" z`, 'z', vm.Position{Offset: 5, Line: 1, Column: 5}},
	}

	for _, tc := range tests {
		_, err := Tokenize(tc.input)
		var lexErr *LexError
		if !errors.As(err, &lexErr) {
			t.Errorf("Tokenize(%q) error = %v, want *LexError", tc.input, err)
			continue
		}
		if lexErr.Char != tc.char {
			t.Errorf("Tokenize(%q) char = %q, want %q", tc.input, lexErr.Char, tc.char)
		}
		if lexErr.Pos != tc.pos {
			t.Errorf("Tokenize(%q) pos = %+v, want %+v", tc.input, lexErr.Pos, tc.pos)
		}
	}
}

func TestLexerOverflow(t *testing.T) {
	for _, src := range []string{"4294967297", "1 99999999999999999999999 .", "12345678901234567890123"} {
		_, err := Tokenize(src)
		var overflow *vm.OverflowError
		if !errors.As(err, &overflow) {
			t.Errorf("Tokenize(%q) error = %v, want *vm.OverflowError", src, err)
		}
		var litErr *LiteralError
		if !errors.As(err, &litErr) {
			t.Errorf("Tokenize(%q) error = %v, want *LiteralError", src, err)
		}
	}
}

func TestLexerByteWidth(t *testing.T) {
	l := NewLexer("256")
	l.SetByteWidth(1)
	if _, err := l.Tokenize(); err != nil {
		t.Errorf("256 at width 1 failed: %v", err)
	}

	l = NewLexer("257")
	l.SetByteWidth(1)
	if _, err := l.Tokenize(); err == nil {
		t.Error("257 at width 1 succeeded")
	}

	l = NewLexer(`"😀"`)
	l.SetByteWidth(1)
	if _, err := l.Tokenize(); err == nil {
		t.Error("code point 0x1F600 at width 1 succeeded")
	}
}

func TestLexerPositions(t *testing.T) {
	prog := mustTokenize(t, "12 +\n\"ab\" .")
	want := []vm.Position{
		{Offset: 0, Line: 1, Column: 1},
		{Offset: 3, Line: 1, Column: 4},
		{Offset: 6, Line: 2, Column: 2},
		{Offset: 7, Line: 2, Column: 3},
		{Offset: 10, Line: 2, Column: 6},
	}
	if len(prog) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(prog), len(want))
	}
	for i, p := range want {
		if prog[i].Pos != p {
			t.Errorf("instruction[%d] %v at %+v, want %+v", i, prog[i], prog[i].Pos, p)
		}
	}
}

func TestLexerUnterminated(t *testing.T) {
	tests := []struct {
		input string
		mode  Mode
		open  bool
		pos   vm.Position
	}{
		{"1 2", ModeNormal, false, vm.Position{}},
		{`1 "abc`, ModeString, true, vm.Position{Offset: 2, Line: 1, Column: 3}},
		{`"abc\`, ModeString, true, vm.Position{Offset: 0, Line: 1, Column: 1}},
		{"\n # note", ModeComment, true, vm.Position{Offset: 2, Line: 2, Column: 2}},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		if _, err := l.Tokenize(); err != nil {
			t.Fatalf("Tokenize(%q) failed: %v", tc.input, err)
		}
		mode, pos, open := l.Unterminated()
		if mode != tc.mode || open != tc.open || pos != tc.pos {
			t.Errorf("Unterminated(%q) = %s, %+v, %v; want %s, %+v, %v", tc.input, mode, pos, open, tc.mode, tc.pos, tc.open)
		}
	}
}

func TestLookupSymbol(t *testing.T) {
	tests := []struct {
		r    rune
		kind vm.Kind
		ok   bool
	}{
		{'+', vm.KindAdd, true},
		{'q', vm.KindConditionalJump, true},
		{'(', vm.KindIf, true},
		{'}', 0, false},
		{'7', 0, false},
		{'"', 0, false},
	}
	for _, tc := range tests {
		k, ok := LookupSymbol(tc.r)
		if ok != tc.ok || (ok && k != tc.kind) {
			t.Errorf("LookupSymbol(%q) = %s, %v; want %s, %v", tc.r, k, ok, tc.kind, tc.ok)
		}
	}
}

func TestLexerInvalidUTF8(t *testing.T) {
	tests := []struct {
		input string
		b     byte
		pos   vm.Position
	}{
		{"1 \xff", 0xFF, vm.Position{Offset: 2, Line: 1, Column: 3}},
		{"\"a\xc3\"", 0xC3, vm.Position{Offset: 2, Line: 1, Column: 3}},
		{"# \x80 #", 0x80, vm.Position{Offset: 2, Line: 1, Column: 3}},
	}

	for _, tc := range tests {
		_, err := Tokenize(tc.input)
		var lexErr *LexError
		if !errors.As(err, &lexErr) {
			t.Errorf("Tokenize(%q) error = %v, want *LexError", tc.input, err)
			continue
		}
		if !lexErr.Invalid || lexErr.Byte != tc.b {
			t.Errorf("Tokenize(%q) = invalid %v byte 0x%02X, want byte 0x%02X", tc.input, lexErr.Invalid, lexErr.Byte, tc.b)
		}
		if lexErr.Pos != tc.pos {
			t.Errorf("Tokenize(%q) pos = %+v, want %+v", tc.input, lexErr.Pos, tc.pos)
		}
	}

	// A correctly encoded U+FFFD is an ordinary string character.
	prog := mustTokenize(t, "\"�\"")
	if len(prog) != 1 || prog[0].Value != 0xFFFD {
		t.Errorf("program = %v, want [push(65533)]", prog)
	}
}
