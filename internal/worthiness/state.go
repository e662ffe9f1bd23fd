package worthiness

// State is the position of a round in the worthiness state machine.
type State int

const (
	// StateAccumulating means the accumulation is not yet worth emitting.
	StateAccumulating State = iota
	// StateWorthy means the judge accepted the accumulation.
	StateWorthy
	// StateExhausted means the per-round commit cap was reached.
	StateExhausted
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateAccumulating:
		return "accumulating"
	case StateWorthy:
		return "worthy"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the state ends a round.
func (s State) Terminal() bool {
	return s == StateWorthy || s == StateExhausted
}
