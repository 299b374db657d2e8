package vm

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot is the engine state after a run, kept for post-mortem inspection.
type Snapshot struct {
	RunID     string  `cbor:"1,keyasint"`
	IP        int     `cbor:"2,keyasint"`
	Steps     int     `cbor:"3,keyasint"`
	Stack     []int64 `cbor:"4,keyasint"`
	Register  *int64  `cbor:"5,keyasint,omitempty"`
	Returns   []int   `cbor:"6,keyasint"`
	Outcomes  []bool  `cbor:"7,keyasint"`
	OpenScope int     `cbor:"8,keyasint"`
	ByteWidth int     `cbor:"9,keyasint"`
	Error     string  `cbor:"10,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot captures the state of the current or most recent run. It returns
// nil if the engine has never run.
func (e *Engine) Snapshot() *Snapshot {
	if e.machine == nil {
		return nil
	}
	m := e.machine
	s := &Snapshot{
		RunID:     e.runID,
		IP:        e.ip,
		Steps:     e.steps,
		Stack:     m.Stack.Values(),
		Returns:   m.Returns.Values(),
		Outcomes:  m.Outcomes.Values(),
		OpenScope: len(e.scopes),
		ByteWidth: m.ByteWidth(),
	}
	if v, ok := m.Register(); ok {
		s.Register = &v
	}
	if e.lastErr != nil {
		s.Error = e.lastErr.Error()
	}
	return s
}

// MarshalSnapshot serializes a Snapshot to canonical CBOR.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("vm: unmarshal snapshot: %w", err)
	}
	return &s, nil
}

// String renders the snapshot for humans.
func (s *Snapshot) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; run %s\n", s.RunID)
	fmt.Fprintf(&sb, "; ip=%d steps=%d byte-width=%d open-blocks=%d\n", s.IP, s.Steps, s.ByteWidth, s.OpenScope)
	fmt.Fprintf(&sb, "stack:    %v\n", s.Stack)
	if s.Register != nil {
		fmt.Fprintf(&sb, "register: %d\n", *s.Register)
	} else {
		sb.WriteString("register: <unset>\n")
	}
	fmt.Fprintf(&sb, "returns:  %v\n", s.Returns)
	fmt.Fprintf(&sb, "outcomes: %v\n", s.Outcomes)
	if s.Error != "" {
		fmt.Fprintf(&sb, "error:    %s\n", s.Error)
	}
	return sb.String()
}
