// Package workspace owns a live block graph and serializes every mutation
// to it: user edits, extractor-driven bulk loads, and invariant fixes all
// flow through one Workspace. Listeners observe settled mutations and may
// defer follow-up fixes; fixes run strictly after the triggering edit, in
// a second phase whose mutations are tagged synthetic so they are never
// re-reacted to.
package workspace

import (
	"errors"
	"fmt"

	"github.com/Magrawal16/moontinker/blocks"
	"github.com/Magrawal16/moontinker/compiler"
	"github.com/Magrawal16/moontinker/graph"
)

// ErrReentrantMutation indicates a listener mutated the workspace during
// notification instead of deferring the mutation with Defer.
var ErrReentrantMutation = errors.New("mutation during notification, use Defer")

// Listener observes settled graph mutations.
type Listener interface {
	Notify(w *Workspace, ev graph.Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(w *Workspace, ev graph.Event)

// Notify implements Listener.
func (f ListenerFunc) Notify(w *Workspace, ev graph.Event) { f(w, ev) }

// Workspace is the single logical owner of one program graph.
type Workspace struct {
	g   *graph.Graph
	reg *blocks.Registry

	listeners []Listener
	fixes     []func(*Workspace)
	notifying bool
	draining  bool
	synthetic bool
}

// New creates a workspace with an empty graph.
func New(reg *blocks.Registry) *Workspace {
	return &Workspace{g: graph.New(), reg: reg}
}

// FromGraph wraps an existing graph, typically one built by extraction.
func FromGraph(g *graph.Graph, reg *blocks.Registry) *Workspace {
	return &Workspace{g: g, reg: reg}
}

// Graph returns the owned graph. Callers must treat it as read-only;
// mutations go through the workspace.
func (w *Workspace) Graph() *graph.Graph { return w.g }

// Registry returns the block kind registry.
func (w *Workspace) Registry() *blocks.Registry { return w.reg }

// Subscribe adds a mutation listener. Subscription order is notification
// order.
func (w *Workspace) Subscribe(l Listener) {
	w.listeners = append(w.listeners, l)
}

// Defer queues a fix to run after the current mutation settles. Fixes
// mutate through the workspace as usual; their events carry the Synthetic
// flag.
func (w *Workspace) Defer(fix func(*Workspace)) {
	w.fixes = append(w.fixes, fix)
}

// Text renders the current graph.
func (w *Workspace) Text() (string, error) {
	return compiler.Compile(w.g, w.reg)
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// Create adds a detached node of the given kind with default fields.
func (w *Workspace) Create(kindTag string) (*graph.Node, error) {
	if w.notifying {
		return nil, ErrReentrantMutation
	}
	k, err := w.reg.Lookup(kindTag)
	if err != nil {
		return nil, err
	}
	n := k.NewNode(w.g)
	w.settle(graph.Event{Kind: graph.EventCreated, Node: n.ID})
	return n, nil
}

// SetField updates one field value.
func (w *Workspace) SetField(id graph.NodeID, name, value string) error {
	if w.notifying {
		return ErrReentrantMutation
	}
	n := w.g.Node(id)
	if n == nil {
		return fmt.Errorf("set field on %d: %w", id, graph.ErrNoSuchNode)
	}
	n.SetLocalField(name, value)
	w.settle(graph.Event{Kind: graph.EventFieldChanged, Node: id, Field: name})
	return nil
}

// Attach fills a value-input slot and reports the move.
func (w *Workspace) Attach(child, parent graph.NodeID, slot string) error {
	return w.move(child, parent, slot, w.g.Attach)
}

// AttachBody fills a statement-input slot and reports the move.
func (w *Workspace) AttachBody(child, parent graph.NodeID, slot string) error {
	return w.move(child, parent, slot, w.g.AttachBody)
}

// Append links a statement after prev in its chain.
func (w *Workspace) Append(stmt, prev graph.NodeID) error {
	if w.notifying {
		return ErrReentrantMutation
	}
	old := w.g.Owner(stmt)
	if err := w.g.Append(stmt, prev); err != nil {
		return err
	}
	w.settle(graph.Event{
		Kind:      graph.EventMoved,
		Node:      stmt,
		OldParent: old,
		NewParent: w.g.Owner(stmt),
	})
	return nil
}

// Detach removes a node from its slot or chain, leaving it floating.
// Mid-chain statements are attached through their predecessor rather than
// a parent, so attachment, not slot occupancy, decides whether anything
// moved.
func (w *Workspace) Detach(id graph.NodeID) error {
	if w.notifying {
		return ErrReentrantMutation
	}
	n := w.g.Node(id)
	if n == nil {
		return fmt.Errorf("detach %d: %w", id, graph.ErrNoSuchNode)
	}
	if !n.Attached() {
		return nil // was already floating, nothing moved
	}
	old := w.g.Owner(id)
	if err := w.g.Detach(id); err != nil {
		return err
	}
	w.settle(graph.Event{Kind: graph.EventMoved, Node: id, OldParent: old})
	return nil
}

// Move detaches a node and fills a value-input slot elsewhere in one
// settled mutation. The destination is validated before the node is
// unlinked, so a rejected move leaves the graph untouched, chain
// positions included.
func (w *Workspace) Move(child, parent graph.NodeID, slot string) error {
	if w.notifying {
		return ErrReentrantMutation
	}
	c := w.g.Node(child)
	if c == nil {
		return fmt.Errorf("move %d: %w", child, graph.ErrNoSuchNode)
	}
	if parent != graph.None && c.Parent == parent && c.ParentSlot == slot {
		return nil // already there
	}
	old := w.g.Owner(child)
	if err := w.g.CanAttach(child, parent, slot); err != nil {
		return err
	}
	if err := w.g.Detach(child); err != nil {
		return err
	}
	if err := w.g.Attach(child, parent, slot); err != nil {
		return err
	}
	w.settle(graph.Event{
		Kind:      graph.EventMoved,
		Node:      child,
		OldParent: old,
		NewParent: graph.SlotRef{Parent: parent, Slot: slot},
	})
	return nil
}

// Remove detaches a node and deletes its subtree.
func (w *Workspace) Remove(id graph.NodeID) error {
	if w.notifying {
		return ErrReentrantMutation
	}
	old := w.g.Owner(id)
	if err := w.g.Remove(id); err != nil {
		return err
	}
	w.settle(graph.Event{Kind: graph.EventRemoved, Node: id, OldParent: old})
	return nil
}

// Collect deletes floating value trees: expressions dragged onto the
// canvas without a home compile to nothing and do not survive a save.
// Statement chains and trees of unknown kinds stay. Bulk removal at the
// graph boundary, so no per-node events are emitted. It reports the
// number of nodes collected.
func (w *Workspace) Collect() (int, error) {
	if w.notifying {
		return 0, ErrReentrantMutation
	}
	n := w.g.Sweep(func(n *graph.Node) bool {
		k, err := w.reg.Lookup(n.Kind)
		if err != nil {
			return true
		}
		return !k.IsValue
	})
	return n, nil
}

// ---------------------------------------------------------------------------
// Two-phase settling
// ---------------------------------------------------------------------------

func (w *Workspace) move(child, parent graph.NodeID, slot string, op func(graph.NodeID, graph.NodeID, string) error) error {
	if w.notifying {
		return ErrReentrantMutation
	}
	old := w.g.Owner(child)
	if err := op(child, parent, slot); err != nil {
		return err
	}
	w.settle(graph.Event{
		Kind:      graph.EventMoved,
		Node:      child,
		OldParent: old,
		NewParent: graph.SlotRef{Parent: parent, Slot: slot},
	})
	return nil
}

// settle fans a settled mutation out to listeners (phase 1), then drains
// the pending-fix queue (phase 2). Phase 2 mutations re-enter settle with
// the synthetic flag set, so listeners can suppress them and no further
// fixes are queued for them.
func (w *Workspace) settle(ev graph.Event) {
	ev.Synthetic = w.synthetic
	w.notifying = true
	for _, l := range w.listeners {
		l.Notify(w, ev)
	}
	w.notifying = false

	if w.draining {
		return
	}
	w.draining = true
	for len(w.fixes) > 0 {
		fix := w.fixes[0]
		w.fixes = w.fixes[1:]
		w.synthetic = true
		fix(w)
		w.synthetic = false
	}
	w.draining = false
}
