package blocks

import (
	"fmt"
	"strings"

	"github.com/Magrawal16/moontinker/graph"
)

// ---------------------------------------------------------------------------
// Builtin catalog: statement kinds
// ---------------------------------------------------------------------------

// Continuation headers of the conditional kind. They are not kinds of
// their own: the extractor folds them into the preceding conditional
// node's branch annotation. Kept here next to the kind that renders them.
var (
	ElifPattern = MustPattern(`elif (?P<COND>.+):`)
	ElsePattern = MustPattern(`else:`)
)

// Builtin returns a registry populated with the full builtin catalog.
// Registration order is matching order: specific statement forms precede
// general ones, and expression splitters run loosest binding first with
// the variable fallback last.
func Builtin() *Registry {
	r := NewRegistry()
	registerStatements(r)
	registerValues(r)
	return r
}

func registerStatements(r *Registry) {
	r.MustRegister(kindSet())
	r.MustRegister(kindChange())
	r.MustRegister(kindClearDisplay())
	r.MustRegister(kindDisplay())
	r.MustRegister(kindDigitalWrite())
	r.MustRegister(kindAnalogWrite())
	r.MustRegister(kindWait())
	r.MustRegister(kindIf())
	r.MustRegister(kindRepeat())
	r.MustRegister(kindWhile())
	r.MustRegister(kindFor())
	r.MustRegister(kindOnButton())
	r.MustRegister(kindOnPinHigh())
}

// stdBuild fills the default constructor: a bare node of the kind with
// the extracted fields applied over the defaults.
func stdBuild(k *Kind) {
	if k.Build != nil {
		return
	}
	k.Build = func(g *graph.Graph, p Params) (*graph.Node, error) {
		n := k.NewNode(g)
		for name, value := range p.Fields {
			n.SetLocalField(name, value)
		}
		return n, nil
	}
}

// fieldsAndExprs is the common extractor shape: every named capture is
// either a field or a nested expression, decided by the kind's slots.
func fieldsAndExprs(k *Kind) ExtractFunc {
	return func(caps Captures) (Params, error) {
		p := Params{Fields: make(map[string]string), Exprs: make(map[string]string)}
		for name, value := range caps {
			s := k.Slot(name)
			if s != nil && s.Kind == ValueSlot {
				p.Exprs[name] = value
			} else {
				p.Fields[name] = value
			}
		}
		return p, nil
	}
}

func finish(k *Kind) *Kind {
	if k.Extract == nil {
		k.Extract = fieldsAndExprs(k)
	}
	stdBuild(k)
	return k
}

func kindSet() *Kind {
	k := &Kind{
		Tag:      "variable_set",
		Category: "variables",
		Slots: []Slot{
			{Name: "VAR", Kind: FieldSlot, Default: "item"},
			{Name: "VALUE", Kind: ValueSlot, Default: "0"},
		},
		Match: MustPattern(`set (?P<VAR>[A-Za-z_]\w*) = (?P<VALUE>.+)`),
	}
	k.Emit = func(n *graph.Node, e Emitter) {
		e.Line("set " + n.Field("VAR") + " = " + e.Value(n, "VALUE", PrecNone))
	}
	return finish(k)
}

func kindChange() *Kind {
	k := &Kind{
		Tag:      "variable_change",
		Category: "variables",
		Slots: []Slot{
			{Name: "VAR", Kind: FieldSlot, Default: "item"},
			{Name: "DELTA", Kind: ValueSlot, Check: "number", Default: "1"},
		},
		Match: MustPattern(`change (?P<VAR>[A-Za-z_]\w*) by (?P<DELTA>.+)`),
	}
	k.Emit = func(n *graph.Node, e Emitter) {
		e.Line("change " + n.Field("VAR") + " by " + e.Value(n, "DELTA", PrecNone))
	}
	return finish(k)
}

func kindClearDisplay() *Kind {
	k := &Kind{
		Tag:      "display_clear",
		Category: "display",
		Match:    MustPattern(`clear display`),
	}
	k.Emit = func(n *graph.Node, e Emitter) { e.Line("clear display") }
	return finish(k)
}

func kindDisplay() *Kind {
	k := &Kind{
		Tag:      "display_show",
		Category: "display",
		Slots: []Slot{
			{Name: "VALUE", Kind: ValueSlot, Default: `""`},
		},
		Match: MustPattern(`display (?P<VALUE>.+)`),
	}
	k.Emit = func(n *graph.Node, e Emitter) {
		e.Line("display " + e.Value(n, "VALUE", PrecNone))
	}
	return finish(k)
}

func kindDigitalWrite() *Kind {
	k := &Kind{
		Tag:      "pin_digital_write",
		Category: "pins",
		Slots: []Slot{
			{Name: "PIN", Kind: FieldSlot, Default: "0"},
			{Name: "VALUE", Kind: ValueSlot, Check: "number", Default: "0"},
		},
		Match: MustPattern(`digital write (?P<PIN>\d+) (?P<VALUE>.+)`),
	}
	k.Emit = func(n *graph.Node, e Emitter) {
		e.Line("digital write " + n.Field("PIN") + " " + e.Value(n, "VALUE", PrecNone))
	}
	return finish(k)
}

func kindAnalogWrite() *Kind {
	k := &Kind{
		Tag:      "pin_analog_write",
		Category: "pins",
		Slots: []Slot{
			{Name: "PIN", Kind: FieldSlot, Default: "0"},
			{Name: "VALUE", Kind: ValueSlot, Check: "number", Default: "0"},
		},
		Match: MustPattern(`analog write (?P<PIN>\d+) (?P<VALUE>.+)`),
	}
	k.Emit = func(n *graph.Node, e Emitter) {
		e.Line("analog write " + n.Field("PIN") + " " + e.Value(n, "VALUE", PrecNone))
	}
	return finish(k)
}

func kindWait() *Kind {
	k := &Kind{
		Tag:      "control_wait",
		Category: "control",
		Slots: []Slot{
			{Name: "MS", Kind: ValueSlot, Check: "number", Default: "0"},
		},
		Match: MustPattern(`wait (?P<MS>.+) ms`),
	}
	k.Emit = func(n *graph.Node, e Emitter) {
		e.Line("wait " + e.Value(n, "MS", PrecNone) + " ms")
	}
	return finish(k)
}

func kindIf() *Kind {
	k := &Kind{
		Tag:      "control_if",
		Category: "logic",
		Slots: []Slot{
			{Name: "IF0", Kind: ValueSlot, Check: "boolean", Default: "false"},
			{Name: "DO0", Kind: StatementSlot},
			{Name: "ELSE", Kind: StatementSlot},
		},
		Match: MustPattern(`if (?P<IF0>.+):`),
	}
	k.Emit = func(n *graph.Node, e Emitter) {
		for i, arm := range n.BranchSlots() {
			keyword := "if"
			if i > 0 {
				keyword = "elif"
			}
			e.Line(keyword + " " + e.Value(n, arm.Cond, PrecNone) + ":")
			e.Body(n, arm.Body)
		}
		if n.Branching.Else {
			e.Line("else:")
			e.Body(n, "ELSE")
		}
	}
	return finish(k)
}

func kindRepeat() *Kind {
	k := &Kind{
		Tag:      "control_repeat",
		Category: "loops",
		Slots: []Slot{
			{Name: "TIMES", Kind: ValueSlot, Check: "number", Default: "10"},
			{Name: "DO", Kind: StatementSlot},
		},
		Match: MustPattern(`repeat (?P<TIMES>.+) times:`),
	}
	k.Emit = func(n *graph.Node, e Emitter) {
		e.Line("repeat " + e.Value(n, "TIMES", PrecNone) + " times:")
		e.Body(n, "DO")
	}
	return finish(k)
}

func kindWhile() *Kind {
	k := &Kind{
		Tag:      "control_while",
		Category: "loops",
		Slots: []Slot{
			{Name: "COND", Kind: ValueSlot, Check: "boolean", Default: "false"},
			{Name: "DO", Kind: StatementSlot},
		},
		Match: MustPattern(`while (?P<COND>.+):`),
	}
	k.Emit = func(n *graph.Node, e Emitter) {
		e.Line("while " + e.Value(n, "COND", PrecNone) + ":")
		e.Body(n, "DO")
	}
	return finish(k)
}

func kindFor() *Kind {
	k := &Kind{
		Tag:      "control_for",
		Category: "loops",
		Slots: []Slot{
			{Name: "VAR", Kind: ValueSlot, Check: "variable", Default: "i"},
			{Name: "FROM", Kind: ValueSlot, Check: "number", Default: "1"},
			{Name: "TO", Kind: ValueSlot, Check: "number", Default: "10"},
			{Name: "DO", Kind: StatementSlot},
		},
		Match: MustPattern(`for (?P<VAR>[A-Za-z_]\w*) from (?P<FROM>.+?) to (?P<TO>.+):`),
	}
	k.Emit = func(n *graph.Node, e Emitter) {
		e.Line("for " + e.Value(n, "VAR", PrecAtom) +
			" from " + e.Value(n, "FROM", PrecNone) +
			" to " + e.Value(n, "TO", PrecNone) + ":")
		e.Body(n, "DO")
	}
	return finish(k)
}

func kindOnButton() *Kind {
	k := &Kind{
		Tag:      "event_button_pressed",
		Category: "events",
		Hat:      true,
		Slots: []Slot{
			{Name: "BUTTON", Kind: FieldSlot, Default: "A"},
			{Name: "DO", Kind: StatementSlot},
		},
		Match: MustPattern(`when button pressed "(?P<BUTTON>[A-Za-z0-9]+)" run (?P<PROC>\w+)`),
	}
	k.HandlerName = func(n *graph.Node) string {
		return "on_button_" + strings.ToLower(n.Field("BUTTON")) + "_pressed"
	}
	// The PROC capture names the generated procedure; it is re-derived
	// from the condition on every compile, not stored.
	k.Extract = func(caps Captures) (Params, error) {
		return Params{Fields: map[string]string{"BUTTON": caps["BUTTON"]}}, nil
	}
	k.Emit = func(n *graph.Node, e Emitter) {
		name := k.HandlerName(n)
		e.Line("def " + name + "():")
		e.Body(n, "DO")
		e.Register(fmt.Sprintf("when button pressed %q run %s", n.Field("BUTTON"), name))
	}
	return finish(k)
}

func kindOnPinHigh() *Kind {
	k := &Kind{
		Tag:      "event_pin_high",
		Category: "events",
		Hat:      true,
		Slots: []Slot{
			{Name: "PIN", Kind: FieldSlot, Default: "0"},
			{Name: "DO", Kind: StatementSlot},
		},
		Match: MustPattern(`when pin (?P<PIN>\d+) high run (?P<PROC>\w+)`),
	}
	k.HandlerName = func(n *graph.Node) string {
		return "on_pin_" + n.Field("PIN") + "_high"
	}
	k.Extract = func(caps Captures) (Params, error) {
		return Params{Fields: map[string]string{"PIN": caps["PIN"]}}, nil
	}
	k.Emit = func(n *graph.Node, e Emitter) {
		name := k.HandlerName(n)
		e.Line("def " + name + "():")
		e.Body(n, "DO")
		e.Register(fmt.Sprintf("when pin %s high run %s", n.Field("PIN"), name))
	}
	return finish(k)
}
