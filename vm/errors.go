package vm

import (
	"errors"
	"fmt"
)

// DefaultByteWidth is the width, in bytes, that stack values must fit in
// unless configured otherwise.
const DefaultByteWidth = 4

// MaxByteWidth is the widest supported value width.
const MaxByteWidth = 8

// Runtime failures. Every failure aborts the run; output written before the
// failure stays written.
var (
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrEmptyControlStack = errors.New("empty control stack")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrUnsetRegister     = errors.New("register read before save")
	ErrInvalidCodePoint  = errors.New("invalid code point")
	ErrInvalidByteWidth  = errors.New("invalid byte width")
	ErrIntegerOverflow   = errors.New("integer overflow")
)

// OverflowError reports a value whose magnitude exceeds the configured bound.
type OverflowError struct {
	Value     int64
	ByteWidth int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("value %d exceeds max byte size of %d", e.Value, e.ByteWidth)
}

// Bound returns the largest magnitude accepted for byteWidth. ok is false
// when every int64 fits.
func Bound(byteWidth int) (bound int64, ok bool) {
	if byteWidth <= 0 {
		byteWidth = DefaultByteWidth
	}
	if byteWidth >= MaxByteWidth {
		return 0, false
	}
	return int64(1) << (8 * byteWidth), true
}

// CheckMagnitude returns an *OverflowError if |value| > 1<<(8*byteWidth).
func CheckMagnitude(value int64, byteWidth int) error {
	bound, ok := Bound(byteWidth)
	if !ok {
		return nil
	}
	if value > bound || value < -bound {
		if byteWidth <= 0 {
			byteWidth = DefaultByteWidth
		}
		return &OverflowError{Value: value, ByteWidth: byteWidth}
	}
	return nil
}

// ValidateByteWidth rejects widths outside 1..MaxByteWidth.
func ValidateByteWidth(byteWidth int) error {
	if byteWidth < 1 || byteWidth > MaxByteWidth {
		return fmt.Errorf("%w: %d (want 1-%d)", ErrInvalidByteWidth, byteWidth, MaxByteWidth)
	}
	return nil
}

// RuntimeError is a fatal failure at a specific instruction.
type RuntimeError struct {
	Err  error       // ErrStackUnderflow, ErrDivisionByZero, *OverflowError, ...
	Inst Instruction // the failing instruction
	IP   int         // its index in the program
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at instruction %d (%s, %s): %v", e.IP, e.Inst, e.Inst.Pos, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}
