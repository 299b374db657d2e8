package vm

// Machine is the execution context of a single run: the runtime stack, the
// register and both control stacks. Every effect function receives it
// explicitly; nothing here is shared between runs.
type Machine struct {
	Stack    Stack[int64]
	Returns  Stack[int]  // return-address stack, positions of return instructions
	Outcomes Stack[bool] // branch-outcome stack, one entry per closed if block

	register    int64
	registerSet bool
	byteWidth   int
}

// NewMachine creates an empty machine whose values must fit byteWidth bytes.
func NewMachine(byteWidth int) *Machine {
	if byteWidth <= 0 {
		byteWidth = DefaultByteWidth
	}
	return &Machine{byteWidth: byteWidth}
}

// ByteWidth returns the configured value width.
func (m *Machine) ByteWidth() int {
	return m.byteWidth
}

// Push checks the magnitude bound and pushes v.
func (m *Machine) Push(v int64) error {
	if err := CheckMagnitude(v, m.byteWidth); err != nil {
		return err
	}
	m.Stack.Push(v)
	return nil
}

// Pop removes the top value.
func (m *Machine) Pop() (int64, error) {
	v, ok := m.Stack.Pop()
	if !ok {
		return 0, ErrStackUnderflow
	}
	return v, nil
}

// Peek returns the top value.
func (m *Machine) Peek() (int64, error) {
	v, ok := m.Stack.Peek()
	if !ok {
		return 0, ErrStackUnderflow
	}
	return v, nil
}

// Save copies the top value into the register.
func (m *Machine) Save() error {
	v, err := m.Peek()
	if err != nil {
		return err
	}
	m.register = v
	m.registerSet = true
	return nil
}

// Load pushes the register value.
func (m *Machine) Load() error {
	if !m.registerSet {
		return ErrUnsetRegister
	}
	m.Stack.Push(m.register)
	return nil
}

// Register returns the register value and whether it has been set.
func (m *Machine) Register() (int64, bool) {
	return m.register, m.registerSet
}
