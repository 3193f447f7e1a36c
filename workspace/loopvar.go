package workspace

import (
	"github.com/tliron/commonlog"

	"github.com/Magrawal16/moontinker/blocks"
	"github.com/Magrawal16/moontinker/graph"
)

var log = commonlog.GetLogger("moontinker.workspace")

// binding records where a tracked variable reference lives and the
// variable identity it last carried.
type binding struct {
	loop    graph.NodeID
	slot    string
	varName string
}

// LoopVarGuard keeps loop bound-variable slots occupied: when the
// variable reference filling such a slot is dragged out, the guard
// synthesizes a fresh reference bound to the same variable identity and
// re-fills the vacated slot.
//
// The guard only reacts to user-initiated mutations; its own fixes arrive
// as synthetic events and are ignored, which is what stops the reaction
// from feeding itself.
type LoopVarGuard struct {
	reg     *blocks.Registry
	tracked map[graph.NodeID]binding
}

// NewLoopVarGuard creates a guard for kinds registered in reg.
func NewLoopVarGuard(reg *blocks.Registry) *LoopVarGuard {
	return &LoopVarGuard{reg: reg, tracked: make(map[graph.NodeID]binding)}
}

// Notify implements Listener.
func (lv *LoopVarGuard) Notify(w *Workspace, ev graph.Event) {
	if ev.Synthetic {
		return
	}
	if ev.Kind == graph.EventMoved || ev.Kind == graph.EventRemoved {
		if b, ok := lv.tracked[ev.Node]; ok && ev.NewParent.IsZero() {
			w.Defer(func(w *Workspace) { lv.refill(w, b) })
		}
	}
	lv.rescan(w)
}

// rescan rebuilds the tracking map from the current graph: every variable
// reference occupying a variable-binding value slot is tracked together
// with its last-known identity.
func (lv *LoopVarGuard) rescan(w *Workspace) {
	lv.tracked = make(map[graph.NodeID]binding)
	for _, n := range w.Graph().Nodes() {
		if n.Kind != blocks.VariableKind || n.Parent == graph.None {
			continue
		}
		owner := w.Graph().Node(n.Parent)
		if owner == nil {
			continue
		}
		ok, err := bindsVariable(lv.reg, owner.Kind, n.ParentSlot)
		if err != nil || !ok {
			continue
		}
		lv.tracked[n.ID] = binding{
			loop:    owner.ID,
			slot:    n.ParentSlot,
			varName: n.Field(blocks.VariableField),
		}
	}
}

// refill runs in phase 2, after the triggering move has settled. It is
// silently skipped when the owner is gone or the slot was independently
// refilled in the interim.
func (lv *LoopVarGuard) refill(w *Workspace, b binding) {
	owner := w.Graph().Node(b.loop)
	if owner == nil {
		return
	}
	if owner.Input(b.slot) != graph.None {
		return
	}
	n, err := w.Create(blocks.VariableKind)
	if err != nil {
		log.Errorf("loop variable synthesis: %s", err.Error())
		return
	}
	if err := w.SetField(n.ID, blocks.VariableField, b.varName); err != nil {
		log.Errorf("loop variable synthesis: %s", err.Error())
		return
	}
	if err := w.Attach(n.ID, b.loop, b.slot); err != nil {
		// The slot vanished under us; drop the orphan.
		_ = w.Remove(n.ID)
		return
	}
	// Synthetic attaches skip the rescan, so track the fresh reference
	// directly; dragging it out must refill just like the original.
	lv.tracked[n.ID] = b
	log.Debugf("refilled %d.%s with variable %q", b.loop, b.slot, b.varName)
}

// bindsVariable reports whether the named slot of a kind is a
// variable-binding value slot.
func bindsVariable(reg *blocks.Registry, kindTag, slot string) (bool, error) {
	k, err := reg.Lookup(kindTag)
	if err != nil {
		return false, err
	}
	s := k.Slot(slot)
	return s != nil && s.Kind == blocks.ValueSlot && s.Check == "variable", nil
}
