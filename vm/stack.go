package vm

// Stack is a LIFO sequence. The zero value is an empty stack.
type Stack[T any] struct {
	items []T
}

// Push places v on top.
func (s *Stack[T]) Push(v T) {
	s.items = append(s.items, v)
}

// Pop removes and returns the top. ok is false if the stack is empty.
func (s *Stack[T]) Pop() (v T, ok bool) {
	if len(s.items) == 0 {
		return v, false
	}
	last := len(s.items) - 1
	v = s.items[last]
	s.items = s.items[:last]
	return v, true
}

// Peek returns the top without removing it.
func (s *Stack[T]) Peek() (v T, ok bool) {
	if len(s.items) == 0 {
		return v, false
	}
	return s.items[len(s.items)-1], true
}

// Len returns the number of items.
func (s *Stack[T]) Len() int {
	return len(s.items)
}

// Clear removes every item.
func (s *Stack[T]) Clear() {
	clear(s.items)
	s.items = s.items[:0]
}

// Values returns a copy of the items, bottom first.
func (s *Stack[T]) Values() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}
