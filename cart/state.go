package cart

// LineState tracks a line through an optimistic mutation.
type LineState int

const (
	StateIdle LineState = iota
	StatePending
	StateCommitted
	StateRolledBack
)

func (s LineState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "idle"
	}
}

// Outcome is how a mutation request ended.
type Outcome int

const (
	// OutcomeCommitted means the backend accepted the change.
	OutcomeCommitted Outcome = iota
	// OutcomeRolledBack means the backend call failed and the local change
	// was discarded.
	OutcomeRolledBack
	// OutcomeSuperseded means a newer request for the same product replaced
	// this one inside the debounce window. Nothing was sent.
	OutcomeSuperseded
	// OutcomeIgnored means another mutation was in flight. Nothing was sent
	// and local state is unchanged.
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeRolledBack:
		return "rolled_back"
	case OutcomeSuperseded:
		return "superseded"
	default:
		return "ignored"
	}
}

// Result reports a mutation. Cart is the local snapshot once the call
// returned.
type Result struct {
	Outcome   Outcome
	ProductID string
	// Quantity is what was sent; zero for a removal.
	Quantity int
	Cart     Cart
	// Reason says why nothing was sent: core.ErrMutationInFlight for
	// OutcomeIgnored. It is not a failure and is nil otherwise.
	Reason error
}
