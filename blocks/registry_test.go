package blocks

import (
	"errors"
	"testing"

	"github.com/Magrawal16/moontinker/graph"
)

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	k := &Kind{Tag: "display_show"}
	if err := r.Register(k); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(&Kind{Tag: "display_show"}); !errors.Is(err, ErrDuplicateKind) {
		t.Fatalf("err = %v, want ErrDuplicateKind", err)
	}
}

func TestLookupUnknown(t *testing.T) {
	r := Builtin()
	if _, err := r.Lookup("no_such_kind"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err = %v, want ErrUnknownKind", err)
	}
}

func TestBuiltinShape(t *testing.T) {
	r := Builtin()

	for _, tag := range []string{
		"variable_set", "control_if", "control_for",
		"event_button_pressed", "math_arithmetic", "variable_get",
	} {
		k, err := r.Lookup(tag)
		if err != nil {
			t.Errorf("lookup %q: %v", tag, err)
			continue
		}
		if k.IsValue {
			if k.Eval == nil {
				t.Errorf("%q: value kind without Eval", tag)
			}
		} else if k.Emit == nil {
			t.Errorf("%q: statement kind without Emit", tag)
		}
		if k.Match == nil || k.Extract == nil || k.Build == nil {
			t.Errorf("%q: incomplete recognizer", tag)
		}
	}

	// The variable fallback must come last, after every other value kind.
	values := r.ValueKinds()
	if len(values) == 0 || values[len(values)-1].Tag != VariableKind {
		t.Errorf("value matching order must end with %s", VariableKind)
	}
}

func TestCategories(t *testing.T) {
	r := Builtin()
	cats := r.Categories()
	seen := make(map[string]bool)
	for _, c := range cats {
		if seen[c] {
			t.Errorf("category %q listed twice", c)
		}
		seen[c] = true
	}
	for _, want := range []string{"variables", "display", "pins", "control", "logic", "loops", "events", "math"} {
		if !seen[want] {
			t.Errorf("missing category %q in %v", want, cats)
		}
	}
	if n := len(r.KindsIn("loops")); n != 3 {
		t.Errorf("loops category has %d kinds, want 3", n)
	}
}

func TestDefaultFor(t *testing.T) {
	r := Builtin()
	ifKind, err := r.Lookup("control_if")
	if err != nil {
		t.Fatal(err)
	}
	if got := ifKind.DefaultFor("IF0"); got != "false" {
		t.Errorf("IF0 default = %q, want false", got)
	}
	// Dynamic branch slots inherit the primary arm's default.
	if got := ifKind.DefaultFor("IF2"); got != "false" {
		t.Errorf("IF2 default = %q, want false", got)
	}
	if got := ifKind.DefaultFor("NOPE"); got != "0" {
		t.Errorf("unknown slot default = %q, want 0", got)
	}
}

func TestNewNodeAppliesFieldDefaults(t *testing.T) {
	r := Builtin()
	k, err := r.Lookup("event_button_pressed")
	if err != nil {
		t.Fatal(err)
	}
	g := graph.New()
	n := k.NewNode(g)
	if n.Field("BUTTON") != "A" {
		t.Errorf("BUTTON = %q, want A", n.Field("BUTTON"))
	}
}

func TestHandlerNames(t *testing.T) {
	r := Builtin()
	g := graph.New()

	button, _ := r.Lookup("event_button_pressed")
	n := button.NewNode(g)
	n.SetLocalField("BUTTON", "B")
	if got := button.HandlerName(n); got != "on_button_b_pressed" {
		t.Errorf("handler = %q", got)
	}

	pin, _ := r.Lookup("event_pin_high")
	p := pin.NewNode(g)
	p.SetLocalField("PIN", "3")
	if got := pin.HandlerName(p); got != "on_pin_3_high" {
		t.Errorf("handler = %q", got)
	}
}

func TestStatementMatchers(t *testing.T) {
	r := Builtin()
	tests := []struct {
		line string
		tag  string
	}{
		{"set x = 1 + 2", "variable_set"},
		{"change x by 1", "variable_change"},
		{"clear display", "display_clear"},
		{`display "hi"`, "display_show"},
		{"digital write 3 1", "pin_digital_write"},
		{"analog write 3 255", "pin_analog_write"},
		{"wait 100 ms", "control_wait"},
		{"if x = 1:", "control_if"},
		{"repeat 10 times:", "control_repeat"},
		{"while true:", "control_while"},
		{"for i from 1 to 10:", "control_for"},
		{`when button pressed "A" run on_button_a_pressed`, "event_button_pressed"},
		{"when pin 2 high run on_pin_2_high", "event_pin_high"},
	}
	for _, tt := range tests {
		var matched string
		for _, k := range r.StatementKinds() {
			if _, ok := k.Match.Match(tt.line); ok {
				matched = k.Tag
				break
			}
		}
		if matched != tt.tag {
			t.Errorf("%q matched %q, want %q", tt.line, matched, tt.tag)
		}
	}
}

func TestValueMatchers(t *testing.T) {
	r := Builtin()
	tests := []struct {
		expr string
		tag  string
	}{
		{"1 + 2", "math_arithmetic"},
		{"a or b", "logic_or"},
		{"a and b", "logic_and"},
		{"not done", "logic_not"},
		{"x = 1", "logic_compare"},
		{"x <= 10", "logic_compare"},
		{"42", "math_number"},
		{"-42", "math_number"},
		{`"hello"`, "text_literal"},
		{"true", "logic_boolean"},
		{"read digital 2", "pin_digital_read"},
		{"read analog 1", "pin_analog_read"},
		{"random(1, 10)", "math_random"},
		{"-x", "math_negate"},
		{"speed", "variable_get"},
	}
	for _, tt := range tests {
		var matched string
		for _, k := range r.ValueKinds() {
			if _, ok := k.Match.Match(tt.expr); ok {
				matched = k.Tag
				break
			}
		}
		if matched != tt.tag {
			t.Errorf("%q matched %q, want %q", tt.expr, matched, tt.tag)
		}
	}
	// Reserved words never fall through to the variable kind.
	for _, word := range []string{"pass", "and", "not"} {
		for _, k := range r.ValueKinds() {
			if k.Tag != VariableKind {
				continue
			}
			if _, ok := k.Match.Match(word); ok {
				t.Errorf("%q must not match as a variable", word)
			}
		}
	}
}
