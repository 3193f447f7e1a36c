package graph

import "fmt"

// ---------------------------------------------------------------------------
// Nodes: concrete block instances in the program graph
// ---------------------------------------------------------------------------

// NodeID is a stable opaque identifier for a node. Zero means "no node".
type NodeID uint32

// None is the absent node id.
const None NodeID = 0

// SlotRef identifies one attachment point on one node.
type SlotRef struct {
	Parent NodeID
	Slot   string
}

// IsZero reports whether the reference points at nothing.
func (r SlotRef) IsZero() bool { return r.Parent == None }

func (r SlotRef) String() string {
	if r.IsZero() {
		return "<detached>"
	}
	return fmt.Sprintf("%d.%s", r.Parent, r.Slot)
}

// Branching is the branch annotation carried by conditional nodes. It
// controls how many alternative arms the node renders and whether a final
// unconditional arm is present, without declaring ad hoc slots per arm.
type Branching struct {
	ElseIf int  `cbor:"1,keyasint"`
	Else   bool `cbor:"2,keyasint"`
}

// Node is one placed instance of a block kind.
//
// Structural links are explicit back-references rather than owning
// pointers: Parent/ParentSlot record which slot this node currently
// occupies (empty when the node is a root or floating), and Prev/Next
// form the statement chain for statement-shaped nodes.
type Node struct {
	ID     NodeID
	Kind   string
	Fields map[string]string

	// Inputs maps value-input slot name to the expression node filling it.
	Inputs map[string]NodeID
	// Bodies maps statement-input slot name to the head of the chain
	// filling it.
	Bodies map[string]NodeID

	Parent     NodeID
	ParentSlot string
	Prev       NodeID
	Next       NodeID

	Branching Branching
}

// Field returns the named field value, or the empty string.
func (n *Node) Field(name string) string { return n.Fields[name] }

// SetLocalField sets a field value without going through a workspace.
// Mutation-event producers should use Workspace.SetField instead.
func (n *Node) SetLocalField(name, value string) {
	if n.Fields == nil {
		n.Fields = make(map[string]string)
	}
	n.Fields[name] = value
}

// Input returns the node filling the named value-input slot, or None.
func (n *Node) Input(slot string) NodeID { return n.Inputs[slot] }

// Body returns the head of the chain filling the named statement-input
// slot, or None.
func (n *Node) Body(slot string) NodeID { return n.Bodies[slot] }

// Attached reports whether the node occupies a slot or chain position.
func (n *Node) Attached() bool { return n.Parent != None || n.Prev != None }

// BranchSlots returns the conditional arm slot pairs implied by the
// node's branch annotation: IF0/DO0 for the primary arm, IF<i>/DO<i> for
// each alternative, plus ELSE when the final arm is enabled.
func (n *Node) BranchSlots() []SlotPair {
	pairs := []SlotPair{{Cond: "IF0", Body: "DO0"}}
	for i := 1; i <= n.Branching.ElseIf; i++ {
		pairs = append(pairs, SlotPair{
			Cond: fmt.Sprintf("IF%d", i),
			Body: fmt.Sprintf("DO%d", i),
		})
	}
	return pairs
}

// SlotPair names one conditional arm: its condition input and its body.
type SlotPair struct {
	Cond string
	Body string
}
