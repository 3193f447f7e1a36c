package workspace

import (
	"testing"

	"github.com/Magrawal16/moontinker/blocks"
	"github.com/Magrawal16/moontinker/graph"
)

// setupLoop builds a for loop whose VAR slot holds a reference to "k" and
// returns the workspace with the guard subscribed.
func setupLoop(t *testing.T, before ...Listener) (*Workspace, *graph.Node, *graph.Node) {
	t.Helper()
	w := New(blocks.Builtin())
	for _, l := range before {
		w.Subscribe(l)
	}
	w.Subscribe(NewLoopVarGuard(w.Registry()))

	loop, err := w.Create("control_for")
	if err != nil {
		t.Fatal(err)
	}
	v, err := w.Create(blocks.VariableKind)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.SetField(v.ID, blocks.VariableField, "k"); err != nil {
		t.Fatal(err)
	}
	if err := w.Attach(v.ID, loop.ID, "VAR"); err != nil {
		t.Fatal(err)
	}
	return w, loop, v
}

func TestLoopVarRefillOnDetach(t *testing.T) {
	w, loop, v := setupLoop(t)

	if err := w.Detach(v.ID); err != nil {
		t.Fatal(err)
	}

	got := loop.Input("VAR")
	if got == graph.None {
		t.Fatal("vacated slot was not refilled")
	}
	if got == v.ID {
		t.Fatal("detached reference must stay out of the slot")
	}
	fresh := w.Graph().Node(got)
	if fresh.Kind != blocks.VariableKind {
		t.Errorf("refill kind = %q", fresh.Kind)
	}
	if fresh.Field(blocks.VariableField) != "k" {
		t.Errorf("refill variable = %q, want k", fresh.Field(blocks.VariableField))
	}
	// The dragged-out reference survives as a floating node.
	if v.Attached() {
		t.Error("detached reference should be floating")
	}
	if w.Graph().Len() != 3 {
		t.Errorf("len = %d, want loop + old + fresh", w.Graph().Len())
	}
}

func TestLoopVarRefillOnRemove(t *testing.T) {
	w, loop, v := setupLoop(t)

	if err := w.Remove(v.ID); err != nil {
		t.Fatal(err)
	}

	got := loop.Input("VAR")
	if got == graph.None {
		t.Fatal("vacated slot was not refilled")
	}
	if w.Graph().Node(got).Field(blocks.VariableField) != "k" {
		t.Error("refill must preserve the variable identity")
	}
}

func TestLoopVarRefillDoesNotCascade(t *testing.T) {
	// The refill's own attach is synthetic; it must not trigger another
	// round of tracking fixes when the fresh reference is later moved.
	w, loop, v := setupLoop(t)
	if err := w.Detach(v.ID); err != nil {
		t.Fatal(err)
	}
	lenAfterFirst := w.Graph().Len()

	// Detaching the fresh reference triggers exactly one more refill.
	fresh := loop.Input("VAR")
	if err := w.Detach(fresh); err != nil {
		t.Fatal(err)
	}
	if loop.Input("VAR") == graph.None {
		t.Fatal("second vacancy was not refilled")
	}
	if w.Graph().Len() != lenAfterFirst+1 {
		t.Errorf("len = %d, want exactly one node per refill", w.Graph().Len())
	}
}

func TestLoopVarRefillSkipsOccupiedSlot(t *testing.T) {
	// A fix queued before the guard's refill fills the slot first; the
	// guard must leave the interim occupant alone.
	var loopID graph.NodeID
	filler := ListenerFunc(func(w *Workspace, ev graph.Event) {
		if ev.Synthetic || ev.Kind != graph.EventMoved || !ev.NewParent.IsZero() {
			return
		}
		w.Defer(func(w *Workspace) {
			n, err := w.Create(blocks.VariableKind)
			if err != nil {
				return
			}
			_ = w.SetField(n.ID, blocks.VariableField, "z")
			_ = w.Attach(n.ID, loopID, "VAR")
		})
	})
	w, loop, v := setupLoop(t, filler)
	loopID = loop.ID

	if err := w.Detach(v.ID); err != nil {
		t.Fatal(err)
	}

	got := loop.Input("VAR")
	if got == graph.None {
		t.Fatal("slot left empty")
	}
	if name := w.Graph().Node(got).Field(blocks.VariableField); name != "z" {
		t.Errorf("occupant = %q, the earlier fix must win", name)
	}
	// loop + detached v + filler's node: the guard created nothing.
	if w.Graph().Len() != 3 {
		t.Errorf("len = %d, want 3", w.Graph().Len())
	}
}

func TestLoopVarRefillSkipsRemovedLoop(t *testing.T) {
	var loopID graph.NodeID
	reaper := ListenerFunc(func(w *Workspace, ev graph.Event) {
		if ev.Synthetic || ev.Kind != graph.EventMoved || !ev.NewParent.IsZero() {
			return
		}
		w.Defer(func(w *Workspace) { _ = w.Remove(loopID) })
	})
	w, loop, v := setupLoop(t, reaper)
	loopID = loop.ID

	if err := w.Detach(v.ID); err != nil {
		t.Fatal(err)
	}

	if w.Graph().Node(loop.ID) != nil {
		t.Fatal("loop should be gone")
	}
	// Only the detached reference remains; no orphan reference synthesized.
	if w.Graph().Len() != 1 {
		t.Errorf("len = %d, want just the floating reference", w.Graph().Len())
	}
	if w.Graph().Node(v.ID) == nil {
		t.Error("floating reference should survive")
	}
}

func TestLoopVarGuardIgnoresUnboundReferences(t *testing.T) {
	// A variable reference in an ordinary value slot is not guarded.
	w := New(blocks.Builtin())
	w.Subscribe(NewLoopVarGuard(w.Registry()))

	show, _ := w.Create("display_show")
	v, _ := w.Create(blocks.VariableKind)
	if err := w.Attach(v.ID, show.ID, "VALUE"); err != nil {
		t.Fatal(err)
	}
	if err := w.Detach(v.ID); err != nil {
		t.Fatal(err)
	}
	if show.Input("VALUE") != graph.None {
		t.Error("ordinary slots must stay empty after detach")
	}
	if w.Graph().Len() != 2 {
		t.Errorf("len = %d, want 2", w.Graph().Len())
	}
}
