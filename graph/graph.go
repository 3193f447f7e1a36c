package graph

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Graph: arena of nodes with explicit structural links
// ---------------------------------------------------------------------------

var (
	// ErrNoSuchNode indicates an id that is not (or no longer) in the arena.
	ErrNoSuchNode = errors.New("no such node")
	// ErrSlotOccupied indicates an attempt to fill an already-filled slot.
	ErrSlotOccupied = errors.New("slot already occupied")
	// ErrAlreadyAttached indicates the child already occupies some slot.
	ErrAlreadyAttached = errors.New("node already attached")
	// ErrWouldCycle indicates an attachment that would make a node its own
	// ancestor.
	ErrWouldCycle = errors.New("attachment would create a cycle")
)

// Graph owns every node of one program as an arena indexed by id. Roots
// (parentless nodes) are kept in insertion order so traversal and
// compilation are deterministic.
//
// All structural checks run before any mutation, so a failed operation
// leaves the graph exactly as it was.
type Graph struct {
	nodes  map[NodeID]*Node
	roots  []NodeID
	nextID NodeID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:  make(map[NodeID]*Node),
		nextID: 1,
	}
}

// NewNode allocates a node of the given kind. The node starts as a root.
func (g *Graph) NewNode(kind string) *Node {
	n := &Node{
		ID:     g.nextID,
		Kind:   kind,
		Fields: make(map[string]string),
		Inputs: make(map[string]NodeID),
		Bodies: make(map[string]NodeID),
	}
	g.nextID++
	g.nodes[n.ID] = n
	g.roots = append(g.roots, n.ID)
	return n
}

// Node returns the node for id, or nil.
func (g *Graph) Node(id NodeID) *Node { return g.nodes[id] }

// Len returns the number of live nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Roots returns the parentless nodes in insertion order.
func (g *Graph) Roots() []NodeID {
	out := make([]NodeID, len(g.roots))
	copy(out, g.roots)
	return out
}

// Nodes returns every live node in id order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for id := NodeID(1); id < g.nextID; id++ {
		if n, ok := g.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Structural mutation
// ---------------------------------------------------------------------------

// Attach fills the named value-input slot of parent with child.
func (g *Graph) Attach(child, parent NodeID, slot string) error {
	c, p, err := g.pair(child, parent)
	if err != nil {
		return err
	}
	if c.Attached() {
		return fmt.Errorf("attach %d to %d.%s: %w", child, parent, slot, ErrAlreadyAttached)
	}
	if p.Inputs[slot] != None {
		return fmt.Errorf("attach %d to %d.%s: %w", child, parent, slot, ErrSlotOccupied)
	}
	if g.isAncestor(child, parent) {
		return fmt.Errorf("attach %d to %d.%s: %w", child, parent, slot, ErrWouldCycle)
	}
	p.Inputs[slot] = child
	c.Parent = parent
	c.ParentSlot = slot
	g.dropRoot(child)
	return nil
}

// CanAttach reports whether child could fill the named value-input slot
// of parent once detached from its current position: the destination
// checks of Attach without the child-attachment check. Move-style
// operations use it to validate the destination before unlinking, so a
// rejected move never has to rebuild the old chain position.
func (g *Graph) CanAttach(child, parent NodeID, slot string) error {
	_, p, err := g.pair(child, parent)
	if err != nil {
		return err
	}
	if p.Inputs[slot] != None {
		return fmt.Errorf("attach %d to %d.%s: %w", child, parent, slot, ErrSlotOccupied)
	}
	if g.isAncestor(child, parent) {
		return fmt.Errorf("attach %d to %d.%s: %w", child, parent, slot, ErrWouldCycle)
	}
	return nil
}

// AttachBody makes child the head of the named statement-input slot of
// parent. The slot must be empty; use Append to extend an existing chain.
func (g *Graph) AttachBody(child, parent NodeID, slot string) error {
	c, p, err := g.pair(child, parent)
	if err != nil {
		return err
	}
	if c.Attached() {
		return fmt.Errorf("attach body %d to %d.%s: %w", child, parent, slot, ErrAlreadyAttached)
	}
	if p.Bodies[slot] != None {
		return fmt.Errorf("attach body %d to %d.%s: %w", child, parent, slot, ErrSlotOccupied)
	}
	if g.isAncestor(child, parent) {
		return fmt.Errorf("attach body %d to %d.%s: %w", child, parent, slot, ErrWouldCycle)
	}
	p.Bodies[slot] = child
	c.Parent = parent
	c.ParentSlot = slot
	g.dropRoot(child)
	return nil
}

// Append links stmt into a statement chain directly after prev. Whatever
// followed prev now follows stmt.
func (g *Graph) Append(stmt, prev NodeID) error {
	s, p, err := g.pair(stmt, prev)
	if err != nil {
		return err
	}
	if s.Attached() {
		return fmt.Errorf("append %d after %d: %w", stmt, prev, ErrAlreadyAttached)
	}
	if g.isAncestor(stmt, prev) {
		return fmt.Errorf("append %d after %d: %w", stmt, prev, ErrWouldCycle)
	}
	s.Next = p.Next
	if p.Next != None {
		g.nodes[p.Next].Prev = stmt
	}
	p.Next = stmt
	s.Prev = prev
	g.dropRoot(stmt)
	return nil
}

// Detach removes a node from whatever slot or chain position it occupies,
// making it a root again. The node's own subtree is untouched; any chain
// tail following it stays with the old location.
func (g *Graph) Detach(id NodeID) error {
	n := g.nodes[id]
	if n == nil {
		return fmt.Errorf("detach %d: %w", id, ErrNoSuchNode)
	}
	if !n.Attached() {
		return nil
	}
	tail := n.Next
	switch {
	case n.Prev != None:
		prev := g.nodes[n.Prev]
		prev.Next = tail
		if tail != None {
			g.nodes[tail].Prev = n.Prev
		}
	case n.Parent != None:
		p := g.nodes[n.Parent]
		if p.Inputs[n.ParentSlot] == id {
			delete(p.Inputs, n.ParentSlot)
		} else if p.Bodies[n.ParentSlot] == id {
			if tail != None {
				// Chain head removed: successor becomes the new head.
				p.Bodies[n.ParentSlot] = tail
				t := g.nodes[tail]
				t.Prev = None
				t.Parent = n.Parent
				t.ParentSlot = n.ParentSlot
			} else {
				delete(p.Bodies, n.ParentSlot)
			}
		}
	}
	n.Parent = None
	n.ParentSlot = ""
	n.Prev = None
	n.Next = None
	g.roots = append(g.roots, id)
	return nil
}

// Remove detaches a node and deletes its entire subtree from the arena.
func (g *Graph) Remove(id NodeID) error {
	if err := g.Detach(id); err != nil {
		return err
	}
	g.removeTree(id)
	g.dropRoot(id)
	return nil
}

// Owner resolves the slot a node transitively hangs off: for a chained
// statement this is the slot holding the head of its chain. Returns the
// zero SlotRef for roots.
func (g *Graph) Owner(id NodeID) SlotRef {
	n := g.nodes[id]
	for n != nil && n.Prev != None {
		n = g.nodes[n.Prev]
	}
	if n == nil || n.Parent == None {
		return SlotRef{}
	}
	return SlotRef{Parent: n.Parent, Slot: n.ParentSlot}
}

// Sweep deletes every floating tree whose root is not a statement kept by
// keep. It reports how many nodes were collected.
func (g *Graph) Sweep(keep func(*Node) bool) int {
	before := len(g.nodes)
	var kept []NodeID
	for _, id := range g.roots {
		n := g.nodes[id]
		if n == nil {
			continue
		}
		if keep != nil && keep(n) {
			kept = append(kept, id)
			continue
		}
		g.removeTree(id)
	}
	g.roots = kept
	return before - len(g.nodes)
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

func (g *Graph) pair(a, b NodeID) (*Node, *Node, error) {
	na := g.nodes[a]
	if na == nil {
		return nil, nil, fmt.Errorf("node %d: %w", a, ErrNoSuchNode)
	}
	nb := g.nodes[b]
	if nb == nil {
		return nil, nil, fmt.Errorf("node %d: %w", b, ErrNoSuchNode)
	}
	return na, nb, nil
}

// isAncestor reports whether a is an ancestor of b (following both slot
// parents and chain predecessors), including a == b.
func (g *Graph) isAncestor(a, b NodeID) bool {
	for b != None {
		if a == b {
			return true
		}
		n := g.nodes[b]
		if n == nil {
			return false
		}
		if n.Prev != None {
			b = n.Prev
		} else {
			b = n.Parent
		}
	}
	return false
}

func (g *Graph) removeTree(id NodeID) {
	n := g.nodes[id]
	if n == nil {
		return
	}
	for _, c := range n.Inputs {
		g.removeTree(c)
	}
	for _, head := range n.Bodies {
		for head != None {
			next := NodeID(None)
			if cn := g.nodes[head]; cn != nil {
				next = cn.Next
			}
			g.removeTree(head)
			head = next
		}
	}
	if n.Next != None && n.Prev == None && n.Parent == None {
		// Floating chain root: take the tail with it.
		g.removeTree(n.Next)
	}
	delete(g.nodes, id)
}

func (g *Graph) dropRoot(id NodeID) {
	for i, r := range g.roots {
		if r == id {
			g.roots = append(g.roots[:i], g.roots[i+1:]...)
			return
		}
	}
}
