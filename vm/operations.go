package vm

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode/utf32"
)

// effect applies an instruction's stack effect. If the instruction yields a
// value, out holds its textual form and yielded is true.
type effect func(m *Machine, in Instruction) (out string, yielded bool, err error)

type unaryOp func(a int64) (int64, error)

type binaryOp func(a, b int64) (int64, error)

var unaryOps = map[Kind]unaryOp{
	KindNot: func(a int64) (int64, error) { return boolInt(a == 0), nil },
	KindNegate: func(a int64) (int64, error) {
		if a == math.MinInt64 {
			return 0, ErrIntegerOverflow
		}
		return -a, nil
	},
}

var binaryOps = map[Kind]binaryOp{
	KindAdd:         checked((*big.Int).Add),
	KindSubtract:    checked((*big.Int).Sub),
	KindMultiply:    checked((*big.Int).Mul),
	KindDivide:      floorDiv,
	KindModulo:      floorMod,
	KindAnd:         func(a, b int64) (int64, error) { return a & b, nil },
	KindOr:          func(a, b int64) (int64, error) { return a | b, nil },
	KindEquality:    func(a, b int64) (int64, error) { return boolInt(a == b), nil },
	KindGreaterThan: func(a, b int64) (int64, error) { return boolInt(a > b), nil },
	KindLessThan:    func(a, b int64) (int64, error) { return boolInt(a < b), nil },
}

// checked lifts a big.Int operation to int64, failing instead of wrapping.
func checked(op func(z, x, y *big.Int) *big.Int) binaryOp {
	return func(a, b int64) (int64, error) {
		r := op(new(big.Int), big.NewInt(a), big.NewInt(b))
		if !r.IsInt64() {
			return 0, ErrIntegerOverflow
		}
		return r.Int64(), nil
	}
}

// effects maps every non-control kind to its behavior.
var effects map[Kind]effect

func init() {
	effects = map[Kind]effect{
		KindPush:     push,
		KindPop:      pop,
		KindPeek:     peek,
		KindEmpty:    empty,
		KindNonOp:    nonOp,
		KindChr:      chr,
		KindCopy:     copyTop,
		KindToString: toString,
	}
	for k, op := range unaryOps {
		effects[k] = unary(op)
	}
	for k, op := range binaryOps {
		effects[k] = binaryEffect(op)
	}
}

// Apply runs the stack effect of a non-control instruction against m.
func Apply(m *Machine, in Instruction) (string, bool, error) {
	fn, ok := effects[in.Kind]
	if !ok {
		return "", false, fmt.Errorf("no stack effect for %s", in.Kind)
	}
	return fn(m, in)
}

func push(m *Machine, in Instruction) (string, bool, error) {
	return "", false, m.Push(in.Value)
}

func pop(m *Machine, _ Instruction) (string, bool, error) {
	v, err := m.Pop()
	if err != nil {
		return "", false, err
	}
	return strconv.FormatInt(v, 10), true, nil
}

func peek(m *Machine, _ Instruction) (string, bool, error) {
	v, err := m.Peek()
	if err != nil {
		return "", false, err
	}
	return strconv.FormatInt(v, 10), true, nil
}

func empty(m *Machine, _ Instruction) (string, bool, error) {
	m.Stack.Clear()
	return "", false, nil
}

func nonOp(*Machine, Instruction) (string, bool, error) {
	return "", false, nil
}

func chr(m *Machine, _ Instruction) (string, bool, error) {
	v, err := m.Peek()
	if err != nil {
		return "", false, err
	}
	if !validRune(v) {
		return "", false, fmt.Errorf("%w: %d", ErrInvalidCodePoint, v)
	}
	return string(rune(v)), true, nil
}

func copyTop(m *Machine, _ Instruction) (string, bool, error) {
	v, err := m.Peek()
	if err != nil {
		return "", false, err
	}
	m.Stack.Push(v)
	return "", false, nil
}

func unary(op unaryOp) effect {
	return func(m *Machine, _ Instruction) (string, bool, error) {
		a, err := m.Pop()
		if err != nil {
			return "", false, err
		}
		r, err := op(a)
		if err != nil {
			return "", false, err
		}
		return "", false, m.Push(r)
	}
}

// binaryEffect pops b then a, so a is the operand pushed first.
func binaryEffect(op binaryOp) effect {
	return func(m *Machine, _ Instruction) (string, bool, error) {
		if m.Stack.Len() < 2 {
			return "", false, ErrStackUnderflow
		}
		b, _ := m.Pop()
		a, _ := m.Pop()
		r, err := op(a, b)
		if err != nil {
			return "", false, err
		}
		return "", false, m.Push(r)
	}
}

// toString packs the stack bottom to top as 4-byte little-endian integers and
// decodes the buffer as UTF-32. The stack is left as it was.
func toString(m *Machine, _ Instruction) (string, bool, error) {
	values := m.Stack.Values()
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		if !validRune(v) {
			return "", false, fmt.Errorf("%w: %d at depth %d", ErrInvalidCodePoint, v, len(values)-1-i)
		}
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(int32(v)))
	}
	text, err := utf32.UTF32(utf32.LittleEndian, utf32.UseBOM).NewDecoder().Bytes(buf)
	if err != nil {
		return "", false, fmt.Errorf("decode stack: %w", err)
	}
	return string(text), true, nil
}

func floorDiv(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	if a == math.MinInt64 && b == -1 {
		return 0, ErrIntegerOverflow
	}
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q, nil
}

func floorMod(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	r := a % b
	if r != 0 && ((r < 0) != (b < 0)) {
		r += b
	}
	return r, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func validRune(v int64) bool {
	return v >= 0 && v <= utf8.MaxRune && utf8.ValidRune(rune(v))
}

// Truthy reports whether v counts as true for if and conditional jump.
func Truthy(v int64) bool {
	return v != 0
}
