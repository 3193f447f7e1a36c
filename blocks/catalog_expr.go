package blocks

import (
	"regexp"

	"github.com/Magrawal16/moontinker/graph"
)

// ---------------------------------------------------------------------------
// Builtin catalog: expression kinds
// ---------------------------------------------------------------------------

// VariableKind tags the variable-reference kind; VariableField is its
// identity field. The workspace guard synthesizes nodes of this kind.
const (
	VariableKind  = "variable_get"
	VariableField = "VAR"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// reserved words never usable as variable names.
var reserved = map[string]bool{
	"and": true, "or": true, "not": true,
	"true": true, "false": true, "pass": true,
}

// registerValues adds the expression kinds. Binary splitters go loosest
// binding first so mixed expressions split at their top operator; fully
// anchored literal patterns follow, and the bare variable reference is the
// final fallback.
func registerValues(r *Registry) {
	r.MustRegister(kindOr())
	r.MustRegister(kindAnd())
	r.MustRegister(kindNot())
	r.MustRegister(kindCompare())
	r.MustRegister(kindArith())
	r.MustRegister(kindNumber())
	r.MustRegister(kindText())
	r.MustRegister(kindBoolean())
	r.MustRegister(kindReadDigital())
	r.MustRegister(kindReadAnalog())
	r.MustRegister(kindRandom())
	r.MustRegister(kindNegate())
	r.MustRegister(kindVariable())
}

func kindOr() *Kind {
	k := &Kind{
		Tag:      "logic_or",
		Category: "logic",
		IsValue:  true,
		Slots: []Slot{
			{Name: "A", Kind: ValueSlot, Check: "boolean", Default: "false"},
			{Name: "B", Kind: ValueSlot, Check: "boolean", Default: "false"},
		},
		Match: binaryMatcher("or"),
	}
	k.Eval = func(n *graph.Node, e Emitter) (string, Prec) {
		return e.Value(n, "A", PrecOr) + " or " + e.Value(n, "B", PrecOr+1), PrecOr
	}
	return finish(k)
}

func kindAnd() *Kind {
	k := &Kind{
		Tag:      "logic_and",
		Category: "logic",
		IsValue:  true,
		Slots: []Slot{
			{Name: "A", Kind: ValueSlot, Check: "boolean", Default: "false"},
			{Name: "B", Kind: ValueSlot, Check: "boolean", Default: "false"},
		},
		Match: binaryMatcher("and"),
	}
	k.Eval = func(n *graph.Node, e Emitter) (string, Prec) {
		return e.Value(n, "A", PrecAnd) + " and " + e.Value(n, "B", PrecAnd+1), PrecAnd
	}
	return finish(k)
}

func kindNot() *Kind {
	k := &Kind{
		Tag:      "logic_not",
		Category: "logic",
		IsValue:  true,
		Slots: []Slot{
			{Name: "A", Kind: ValueSlot, Check: "boolean", Default: "false"},
		},
		Match: MatchFunc(func(s string) (Captures, bool) {
			if len(s) > 4 && s[:4] == "not " {
				return Captures{"A": s[4:]}, true
			}
			return nil, false
		}),
	}
	k.Eval = func(n *graph.Node, e Emitter) (string, Prec) {
		return "not " + e.Value(n, "A", PrecNot), PrecNot
	}
	return finish(k)
}

func kindCompare() *Kind {
	k := &Kind{
		Tag:      "logic_compare",
		Category: "logic",
		IsValue:  true,
		Slots: []Slot{
			{Name: "OP", Kind: FieldSlot, Default: "="},
			{Name: "A", Kind: ValueSlot, Default: "0"},
			{Name: "B", Kind: ValueSlot, Default: "0"},
		},
		Match: binaryMatcher("!=", "<=", ">=", "=", "<", ">"),
	}
	k.Eval = func(n *graph.Node, e Emitter) (string, Prec) {
		op := n.Field("OP")
		if op == "" {
			op = "="
		}
		return e.Value(n, "A", PrecCompare) + " " + op + " " + e.Value(n, "B", PrecCompare+1),
			PrecCompare
	}
	return finish(k)
}

func kindArith() *Kind {
	k := &Kind{
		Tag:      "math_arithmetic",
		Category: "math",
		IsValue:  true,
		Slots: []Slot{
			{Name: "OP", Kind: FieldSlot, Default: "+"},
			{Name: "A", Kind: ValueSlot, Check: "number", Default: "0"},
			{Name: "B", Kind: ValueSlot, Check: "number", Default: "0"},
		},
		Match: tieredMatcher([]string{"+", "-"}, []string{"*", "/", "%"}),
	}
	k.Eval = func(n *graph.Node, e Emitter) (string, Prec) {
		op := n.Field("OP")
		if op == "" {
			op = "+"
		}
		prec := PrecAdd
		switch op {
		case "*", "/", "%":
			prec = PrecMul
		}
		return e.Value(n, "A", prec) + " " + op + " " + e.Value(n, "B", prec+1), prec
	}
	return finish(k)
}

func kindNumber() *Kind {
	k := &Kind{
		Tag:      "math_number",
		Category: "math",
		IsValue:  true,
		Slots: []Slot{
			{Name: "NUM", Kind: FieldSlot, Default: "0"},
		},
		Match: MustPattern(`(?P<NUM>-?\d+)`),
	}
	k.Eval = func(n *graph.Node, e Emitter) (string, Prec) {
		v := n.Field("NUM")
		if v == "" {
			v = "0"
		}
		return v, PrecAtom
	}
	return finish(k)
}

func kindText() *Kind {
	k := &Kind{
		Tag:      "text_literal",
		Category: "text",
		IsValue:  true,
		Slots: []Slot{
			{Name: "TEXT", Kind: FieldSlot},
		},
		Match: MustPattern(`"(?P<TEXT>[^"]*)"`),
	}
	k.Eval = func(n *graph.Node, e Emitter) (string, Prec) {
		return `"` + n.Field("TEXT") + `"`, PrecAtom
	}
	return finish(k)
}

func kindBoolean() *Kind {
	k := &Kind{
		Tag:      "logic_boolean",
		Category: "logic",
		IsValue:  true,
		Slots: []Slot{
			{Name: "BOOL", Kind: FieldSlot, Default: "false"},
		},
		Match: MustPattern(`(?P<BOOL>true|false)`),
	}
	k.Eval = func(n *graph.Node, e Emitter) (string, Prec) {
		v := n.Field("BOOL")
		if v != "true" {
			v = "false"
		}
		return v, PrecAtom
	}
	return finish(k)
}

func kindReadDigital() *Kind {
	k := &Kind{
		Tag:      "pin_digital_read",
		Category: "pins",
		IsValue:  true,
		Slots: []Slot{
			{Name: "PIN", Kind: FieldSlot, Default: "0"},
		},
		Match: MustPattern(`read digital (?P<PIN>\d+)`),
	}
	k.Eval = func(n *graph.Node, e Emitter) (string, Prec) {
		return "read digital " + n.Field("PIN"), PrecAtom
	}
	return finish(k)
}

func kindReadAnalog() *Kind {
	k := &Kind{
		Tag:      "pin_analog_read",
		Category: "pins",
		IsValue:  true,
		Slots: []Slot{
			{Name: "PIN", Kind: FieldSlot, Default: "0"},
		},
		Match: MustPattern(`read analog (?P<PIN>\d+)`),
	}
	k.Eval = func(n *graph.Node, e Emitter) (string, Prec) {
		return "read analog " + n.Field("PIN"), PrecAtom
	}
	return finish(k)
}

func kindRandom() *Kind {
	k := &Kind{
		Tag:      "math_random",
		Category: "math",
		IsValue:  true,
		Slots: []Slot{
			{Name: "A", Kind: ValueSlot, Check: "number", Default: "0"},
			{Name: "B", Kind: ValueSlot, Check: "number", Default: "10"},
		},
		Match: MatchFunc(func(s string) (Captures, bool) {
			if len(s) < len("random()") || s[:7] != "random(" || s[len(s)-1] != ')' {
				return nil, false
			}
			a, b, ok := splitTopComma(s[7 : len(s)-1])
			if !ok {
				return nil, false
			}
			return Captures{"A": a, "B": b}, true
		}),
	}
	k.Eval = func(n *graph.Node, e Emitter) (string, Prec) {
		return "random(" + e.Value(n, "A", PrecNone) + ", " + e.Value(n, "B", PrecNone) + ")",
			PrecAtom
	}
	return finish(k)
}

func kindNegate() *Kind {
	k := &Kind{
		Tag:      "math_negate",
		Category: "math",
		IsValue:  true,
		Slots: []Slot{
			{Name: "A", Kind: ValueSlot, Check: "number", Default: "0"},
		},
		// The number literal kind matches plain negative literals first,
		// so only composite operands reach here.
		Match: MatchFunc(func(s string) (Captures, bool) {
			if len(s) > 1 && s[0] == '-' && s[1] != ' ' {
				return Captures{"A": s[1:]}, true
			}
			return nil, false
		}),
	}
	k.Eval = func(n *graph.Node, e Emitter) (string, Prec) {
		return "-" + e.Value(n, "A", PrecUnary), PrecUnary
	}
	return finish(k)
}

func kindVariable() *Kind {
	k := &Kind{
		Tag:      "variable_get",
		Category: "variables",
		IsValue:  true,
		Slots: []Slot{
			{Name: "VAR", Kind: FieldSlot, Default: "item"},
		},
		Match: MatchFunc(func(s string) (Captures, bool) {
			if !identPattern.MatchString(s) || reserved[s] {
				return nil, false
			}
			return Captures{"VAR": s}, true
		}),
	}
	k.Eval = func(n *graph.Node, e Emitter) (string, Prec) {
		v := n.Field("VAR")
		if v == "" {
			v = "item"
		}
		return v, PrecAtom
	}
	return finish(k)
}
