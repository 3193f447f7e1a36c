package workspace

import (
	"errors"
	"testing"

	"github.com/Magrawal16/moontinker/blocks"
	"github.com/Magrawal16/moontinker/graph"
)

func TestTextRendersGraph(t *testing.T) {
	w := New(blocks.Builtin())
	show, err := w.Create("display_show")
	if err != nil {
		t.Fatal(err)
	}
	msg, err := w.Create("text_literal")
	if err != nil {
		t.Fatal(err)
	}
	if err := w.SetField(msg.ID, "TEXT", "hi"); err != nil {
		t.Fatal(err)
	}
	if err := w.Attach(msg.ID, show.ID, "VALUE"); err != nil {
		t.Fatal(err)
	}
	out, err := w.Text()
	if err != nil {
		t.Fatal(err)
	}
	if out != "display \"hi\"\n" {
		t.Errorf("text = %q", out)
	}
}

func TestListenerSeesOneEventPerMutation(t *testing.T) {
	w := New(blocks.Builtin())
	var events []graph.Event
	w.Subscribe(ListenerFunc(func(_ *Workspace, ev graph.Event) {
		events = append(events, ev)
	}))

	n, err := w.Create("display_clear")
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Remove(n.ID); err != nil {
		t.Fatal(err)
	}

	if len(events) != 2 {
		t.Fatalf("events = %v, want create + remove", events)
	}
	if events[0].Kind != graph.EventCreated || events[1].Kind != graph.EventRemoved {
		t.Errorf("kinds = %v, %v", events[0].Kind, events[1].Kind)
	}
	if events[0].Synthetic || events[1].Synthetic {
		t.Error("direct mutations must not be synthetic")
	}
}

func TestMutationDuringNotifyFails(t *testing.T) {
	w := New(blocks.Builtin())
	var inner error
	w.Subscribe(ListenerFunc(func(w *Workspace, ev graph.Event) {
		if ev.Kind == graph.EventCreated {
			_, inner = w.Create("display_clear")
		}
	}))
	if _, err := w.Create("display_show"); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(inner, ErrReentrantMutation) {
		t.Fatalf("inner err = %v, want ErrReentrantMutation", inner)
	}
	if w.Graph().Len() != 1 {
		t.Errorf("len = %d, reentrant create must not land", w.Graph().Len())
	}
}

func TestDeferRunsAfterSettle(t *testing.T) {
	w := New(blocks.Builtin())
	var order []string
	w.Subscribe(ListenerFunc(func(w *Workspace, ev graph.Event) {
		if ev.Synthetic {
			order = append(order, "synthetic "+ev.Kind.String())
			return
		}
		order = append(order, "notify "+ev.Kind.String())
		if ev.Kind == graph.EventCreated {
			w.Defer(func(w *Workspace) {
				order = append(order, "fix")
				if _, err := w.Create("display_clear"); err != nil {
					t.Errorf("fix create: %v", err)
				}
			})
		}
	}))

	if _, err := w.Create("display_show"); err != nil {
		t.Fatal(err)
	}
	want := []string{"notify created", "fix", "synthetic created"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestMoveRestoresOnFailure(t *testing.T) {
	w := New(blocks.Builtin())
	p1, _ := w.Create("display_show")
	p2, _ := w.Create("display_show")
	a, _ := w.Create("math_number")
	b, _ := w.Create("math_number")

	if err := w.Attach(a.ID, p1.ID, "VALUE"); err != nil {
		t.Fatal(err)
	}
	if err := w.Attach(b.ID, p2.ID, "VALUE"); err != nil {
		t.Fatal(err)
	}

	err := w.Move(a.ID, p2.ID, "VALUE")
	if !errors.Is(err, graph.ErrSlotOccupied) {
		t.Fatalf("err = %v, want ErrSlotOccupied", err)
	}
	if p1.Input("VALUE") != a.ID {
		t.Error("failed move must restore the old position")
	}
}

func TestDetachFloatingEmitsNothing(t *testing.T) {
	w := New(blocks.Builtin())
	n, _ := w.Create("math_number")

	var moved int
	w.Subscribe(ListenerFunc(func(_ *Workspace, ev graph.Event) {
		if ev.Kind == graph.EventMoved {
			moved++
		}
	}))
	if err := w.Detach(n.ID); err != nil {
		t.Fatal(err)
	}
	if moved != 0 {
		t.Errorf("moved events = %d, detaching a floating node is a no-op", moved)
	}
}

func TestDetachChainedStatementNotifies(t *testing.T) {
	w := New(blocks.Builtin())
	first, _ := w.Create("display_clear")
	second, _ := w.Create("display_clear")
	if err := w.Append(second.ID, first.ID); err != nil {
		t.Fatal(err)
	}

	var moved []graph.Event
	w.Subscribe(ListenerFunc(func(_ *Workspace, ev graph.Event) {
		if ev.Kind == graph.EventMoved {
			moved = append(moved, ev)
		}
	}))
	if err := w.Detach(second.ID); err != nil {
		t.Fatal(err)
	}
	if len(moved) != 1 || moved[0].Node != second.ID {
		t.Fatalf("moved events = %v, want exactly one for node %d", moved, second.ID)
	}
	if !moved[0].NewParent.IsZero() {
		t.Errorf("NewParent = %v, detached node must report as floating", moved[0].NewParent)
	}
	if second.Attached() {
		t.Error("node still attached after detach")
	}
}

func TestDetachBodyChainReportsOwner(t *testing.T) {
	w := New(blocks.Builtin())
	loop, _ := w.Create("control_repeat")
	first, _ := w.Create("display_clear")
	second, _ := w.Create("display_clear")
	if err := w.AttachBody(first.ID, loop.ID, "DO"); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(second.ID, first.ID); err != nil {
		t.Fatal(err)
	}

	var moved []graph.Event
	w.Subscribe(ListenerFunc(func(_ *Workspace, ev graph.Event) {
		if ev.Kind == graph.EventMoved {
			moved = append(moved, ev)
		}
	}))
	if err := w.Detach(second.ID); err != nil {
		t.Fatal(err)
	}
	want := graph.SlotRef{Parent: loop.ID, Slot: "DO"}
	if len(moved) != 1 || moved[0].OldParent != want {
		t.Fatalf("moved events = %v, want one with OldParent %v", moved, want)
	}
}

func TestMoveLeavesChainIntactOnFailure(t *testing.T) {
	w := New(blocks.Builtin())
	first, _ := w.Create("display_clear")
	second, _ := w.Create("display_clear")
	if err := w.Append(second.ID, first.ID); err != nil {
		t.Fatal(err)
	}
	show, _ := w.Create("display_show")
	filler, _ := w.Create("math_number")
	if err := w.Attach(filler.ID, show.ID, "VALUE"); err != nil {
		t.Fatal(err)
	}

	err := w.Move(second.ID, show.ID, "VALUE")
	if !errors.Is(err, graph.ErrSlotOccupied) {
		t.Fatalf("err = %v, want ErrSlotOccupied", err)
	}
	if first.Next != second.ID || second.Prev != first.ID {
		t.Error("failed move must leave the chain linked")
	}
}

func TestCollectDropsFloatingValues(t *testing.T) {
	w := New(blocks.Builtin())
	show, _ := w.Create("display_show")
	kept, _ := w.Create("math_number")
	if err := w.Attach(kept.ID, show.ID, "VALUE"); err != nil {
		t.Fatal(err)
	}
	w.Create("math_number") // floating literal
	sum, _ := w.Create("math_arithmetic")
	addend, _ := w.Create("math_number")
	if err := w.Attach(addend.ID, sum.ID, "A"); err != nil {
		t.Fatal(err)
	}
	stray, _ := w.Create("display_clear") // floating statement stays

	n, err := w.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("collected = %d, want 3", n)
	}
	if w.Graph().Node(show.ID) == nil || w.Graph().Node(kept.ID) == nil {
		t.Error("attached value tree must survive collection")
	}
	if w.Graph().Node(stray.ID) == nil {
		t.Error("floating statement must survive collection")
	}
	if w.Graph().Node(sum.ID) != nil {
		t.Error("floating value tree must be collected")
	}
}
