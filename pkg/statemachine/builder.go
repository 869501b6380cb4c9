package statemachine

// Builder collects transitions for a Table.
type Builder[S, E comparable] struct {
	transitions []Transition[S, E]
	terminal    map[S]struct{}
}

func NewBuilder[S, E comparable]() *Builder[S, E] {
	return &Builder[S, E]{terminal: make(map[S]struct{})}
}

// Permit registers a from --event--> to transition.
func (b *Builder[S, E]) Permit(from S, event E, to S, guards ...Guard[S, E]) *Builder[S, E] {
	b.transitions = append(b.transitions, Transition[S, E]{From: from, To: to, Event: event, Guards: guards})
	return b
}

// PermitFrom registers the same event/target pair for several source states.
func (b *Builder[S, E]) PermitFrom(sources []S, event E, to S, guards ...Guard[S, E]) *Builder[S, E] {
	for _, from := range sources {
		b.Permit(from, event, to, guards...)
	}
	return b
}

// Terminal marks states that accept no further events.
func (b *Builder[S, E]) Terminal(states ...S) *Builder[S, E] {
	for _, s := range states {
		b.terminal[s] = struct{}{}
	}
	return b
}

// Build validates the collected transitions and returns the table.
func (b *Builder[S, E]) Build() (*Table[S, E], error) {
	t := &Table[S, E]{
		transitions: make(map[S]map[E][]Transition[S, E]),
		terminal:    make(map[S]struct{}, len(b.terminal)),
	}
	for s := range b.terminal {
		t.terminal[s] = struct{}{}
	}
	for _, tr := range b.transitions {
		if _, ok := t.terminal[tr.From]; ok {
			return nil, ErrTerminalStateTransition
		}
		if t.transitions[tr.From] == nil {
			t.transitions[tr.From] = make(map[E][]Transition[S, E])
		}
		t.transitions[tr.From][tr.Event] = append(t.transitions[tr.From][tr.Event], tr)
	}
	return t, nil
}

// MustBuild is Build that panics on error. Intended for package-level tables.
func (b *Builder[S, E]) MustBuild() *Table[S, E] {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
