package graph

// ---------------------------------------------------------------------------
// Mutation events
// ---------------------------------------------------------------------------

// EventKind discriminates graph mutation events.
type EventKind int

const (
	// EventCreated fires when a node enters the graph.
	EventCreated EventKind = iota
	// EventMoved fires when a node changes slot occupancy, including
	// detachment (empty NewParent).
	EventMoved
	// EventFieldChanged fires when a field value changes.
	EventFieldChanged
	// EventRemoved fires when a node leaves the graph.
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventMoved:
		return "moved"
	case EventFieldChanged:
		return "fieldChanged"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event describes one settled graph mutation.
//
// Synthetic marks mutations produced by invariant maintenance; listeners
// that react to edits must ignore synthetic events or they would react to
// their own fixes.
type Event struct {
	Kind      EventKind
	Node      NodeID
	OldParent SlotRef
	NewParent SlotRef
	Field     string
	Synthetic bool
}
