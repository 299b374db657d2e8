package vm

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("playlang.vm")

// scope is an open if or else block. Frames replace recursion: the innermost
// frame's condition gates execution and EndIf pops it.
type scope struct {
	kind      Kind // KindIf or KindElse
	condition bool // whether instructions inside run
	live      bool // opened while the enclosing gate was true
}

// Engine executes programs. Each call to Run uses a fresh Machine.
type Engine struct {
	out       io.Writer
	byteWidth int
	trace     bool

	// State of the current or most recent run.
	machine *Machine
	scopes  []scope
	ip      int
	end     int
	steps   int
	runID   string
	lastErr error
}

// Option configures an Engine.
type Option func(*Engine)

// WithByteWidth sets the width, in bytes, that stack values must fit.
func WithByteWidth(n int) Option {
	return func(e *Engine) { e.byteWidth = n }
}

// WithTrace logs every executed instruction at debug level.
func WithTrace(on bool) Option {
	return func(e *Engine) { e.trace = on }
}

// NewEngine creates an engine that writes yielded values to out.
func NewEngine(out io.Writer, opts ...Option) *Engine {
	e := &Engine{out: out, byteWidth: DefaultByteWidth}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Machine returns the execution context of the current or most recent run.
func (e *Engine) Machine() *Machine {
	return e.machine
}

// RunID returns the identifier of the current or most recent run.
func (e *Engine) RunID() string {
	return e.runID
}

// Run executes prog from the first instruction to the end. The first failure
// aborts the run and is returned as a *RuntimeError.
func (e *Engine) Run(prog Program) error {
	e.machine = NewMachine(e.byteWidth)
	e.scopes = e.scopes[:0]
	e.ip = 0
	e.end = len(prog)
	e.steps = 0
	e.lastErr = nil
	e.runID = uuid.NewString()

	log.Infof("run %s: %d instructions", e.runID, len(prog))

	for e.ip < len(prog) {
		ip := e.ip
		in := prog[ip]
		e.ip++
		e.steps++

		if err := e.step(in, ip); err != nil {
			e.lastErr = &RuntimeError{Err: err, Inst: in, IP: ip}
			log.Errorf("run %s: %s", e.runID, e.lastErr)
			return e.lastErr
		}
	}

	log.Infof("run %s: finished after %d steps", e.runID, e.steps)
	return nil
}

// gate reports whether the innermost open block is running.
func (e *Engine) gate() bool {
	if len(e.scopes) == 0 {
		return true
	}
	return e.scopes[len(e.scopes)-1].condition
}

func (e *Engine) step(in Instruction, ip int) error {
	m := e.machine

	if !e.gate() {
		// Inside a skipped block only nesting is tracked.
		switch in.Kind {
		case KindIf, KindElse:
			e.scopes = append(e.scopes, scope{kind: in.Kind})
		case KindEndIf:
			return e.closeScope()
		}
		return nil
	}

	if e.trace {
		log.Debugf("[%04d] %-16s depth=%d scopes=%d", ip, in, m.Stack.Len(), len(e.scopes))
	}

	switch in.Kind {
	case KindIf:
		top, err := m.Peek()
		if err != nil {
			return err
		}
		e.scopes = append(e.scopes, scope{kind: KindIf, condition: Truthy(top), live: true})

	case KindElse:
		taken, ok := m.Outcomes.Pop()
		if !ok {
			return fmt.Errorf("%w: else without a preceding if", ErrEmptyControlStack)
		}
		e.scopes = append(e.scopes, scope{kind: KindElse, condition: !taken, live: true})

	case KindEndIf:
		return e.closeScope()

	case KindReturn:
		m.Returns.Push(ip)

	case KindJump:
		target, ok := m.Returns.Pop()
		if !ok {
			return fmt.Errorf("%w: jump without a return mark", ErrEmptyControlStack)
		}
		e.ip = target

	case KindConditionalJump:
		target, ok := m.Returns.Pop()
		if !ok {
			return fmt.Errorf("%w: conditional jump without a return mark", ErrEmptyControlStack)
		}
		top, err := m.Peek()
		if err != nil {
			return err
		}
		if Truthy(top) {
			e.ip = target
		}

	case KindSave:
		return m.Save()

	case KindLoad:
		return m.Load()

	default:
		out, yielded, err := Apply(m, in)
		if err != nil {
			return err
		}
		if yielded {
			if _, err := io.WriteString(e.out, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
	}
	return nil
}

// closeScope ends the innermost block. A live if records whether it was taken
// so that a following else can pick the other branch. With no block open the
// endif ends the program.
func (e *Engine) closeScope() error {
	if len(e.scopes) == 0 {
		log.Debugf("run %s: endif at top level, stopping", e.runID)
		e.ip = e.end
		return nil
	}
	s := e.scopes[len(e.scopes)-1]
	e.scopes = e.scopes[:len(e.scopes)-1]
	if s.kind == KindIf && s.live {
		e.machine.Outcomes.Push(s.condition)
	}
	return nil
}
