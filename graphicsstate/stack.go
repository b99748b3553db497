package graphicsstate

// Stack is the q/Q save stack. The bottom entry is the base state and is
// never popped.
type Stack struct {
	states []GraphicsState
}

// NewStack returns a stack whose base state is a copy of initial. A nil
// initial state starts from NewGraphicsState.
func NewStack(initial *GraphicsState) *Stack {
	if initial == nil {
		initial = NewGraphicsState()
	}
	return &Stack{states: []GraphicsState{initial.Clone()}}
}

// Current returns the top state. The pointer is invalidated by the next
// Push or Pop.
func (s *Stack) Current() *GraphicsState {
	return &s.states[len(s.states)-1]
}

// Push saves a copy of the current state (q operator).
func (s *Stack) Push() {
	s.states = append(s.states, s.Current().Clone())
}

// Pop discards the current state and returns it (Q operator). At the base
// state it does nothing and reports false.
func (s *Stack) Pop() (GraphicsState, bool) {
	if len(s.states) == 1 {
		return GraphicsState{}, false
	}
	top := s.states[len(s.states)-1]
	s.states[len(s.states)-1] = GraphicsState{}
	s.states = s.states[:len(s.states)-1]
	return top, true
}

// Depth is the number of saved states above the base.
func (s *Stack) Depth() int {
	return len(s.states) - 1
}
