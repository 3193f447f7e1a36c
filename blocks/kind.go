// Package blocks defines block kind descriptors and the registry that maps
// kind tags to their shape, text rendering, and text recognition behavior.
package blocks

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/Magrawal16/moontinker/graph"
)

// ---------------------------------------------------------------------------
// Precedence
// ---------------------------------------------------------------------------

// Prec orders expression binding strength for minimal parenthesization.
// A rendered child is parenthesized only when its precedence is below the
// context its parent requires.
type Prec int

const (
	PrecNone    Prec = iota // statement context, never parenthesized
	PrecOr                  // or
	PrecAnd                 // and
	PrecNot                 // not e
	PrecCompare             // = != < > <= >=
	PrecAdd                 // + -
	PrecMul                 // * / %
	PrecUnary               // -e
	PrecAtom                // literals, calls, variables
)

// ---------------------------------------------------------------------------
// Slots
// ---------------------------------------------------------------------------

// SlotKind discriminates the three attachment point shapes.
type SlotKind int

const (
	FieldSlot     SlotKind = iota // scalar field edited in place
	ValueSlot                     // holds one expression node
	StatementSlot                 // holds a chain of statement nodes
)

// Slot declares one attachment point of a kind.
type Slot struct {
	Name string
	Kind SlotKind
	// Check constrains what may fill a value slot ("number", "string",
	// "boolean", "variable"); empty accepts anything.
	Check string
	// Default is the literal rendered when a value slot is empty, or the
	// initial value of a field. Statement slots render "pass" when empty.
	Default string
}

// ---------------------------------------------------------------------------
// Matching and extraction
// ---------------------------------------------------------------------------

// Captures holds the named groups of one successful match.
type Captures map[string]string

// Matcher recognizes one statement line or expression fragment.
type Matcher interface {
	Match(s string) (Captures, bool)
}

// MatchFunc adapts a function to the Matcher interface.
type MatchFunc func(s string) (Captures, bool)

// Match implements Matcher.
func (f MatchFunc) Match(s string) (Captures, bool) { return f(s) }

// Pattern wraps an anchored regexp with named groups as a Matcher.
type Pattern struct {
	re *regexp.Regexp
}

// MustPattern compiles an anchored pattern, panicking on error. Catalog
// patterns are fixed at startup, so a bad pattern is a programming error.
func MustPattern(expr string) *Pattern {
	return &Pattern{re: regexp.MustCompile("^" + expr + "$")}
}

// Match implements Matcher.
func (p *Pattern) Match(s string) (Captures, bool) {
	m := p.re.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	caps := make(Captures)
	for i, name := range p.re.SubexpNames() {
		if i > 0 && name != "" {
			caps[name] = m[i]
		}
	}
	return caps, true
}

// Params carries the parameters an extractor recovered from a match. The
// extraction engine turns Exprs entries into child nodes recursively and
// attaches statement bodies by indentation, so extractors deal only in
// flat strings.
type Params struct {
	Fields map[string]string
	// Exprs maps value-slot name to the raw expression text to extract
	// into that slot. Absent entries leave the slot empty.
	Exprs map[string]string
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

// Emitter is the rendering surface handed to kind render functions. The
// forward compiler implements it; kinds never format indentation or
// resolve children themselves.
type Emitter interface {
	// Line emits one statement line at the current indentation level.
	Line(text string)
	// Value renders the expression filling the named value slot of n at
	// the given precedence context, or the slot's default literal when
	// the slot is empty.
	Value(n *graph.Node, slot string, ctx Prec) string
	// Body emits the chain filling the named statement slot of n at one
	// deeper indentation level, or an empty pass-through body.
	Body(n *graph.Node, slot string)
	// Register defers a top-level registration line to the end of the
	// compiled output.
	Register(line string)
}

// EmitFunc renders one statement node.
type EmitFunc func(n *graph.Node, e Emitter)

// ValueFunc renders one expression node, returning the fragment and the
// precedence it binds at.
type ValueFunc func(n *graph.Node, e Emitter) (string, Prec)

// ExtractFunc converts a match's captures into parameters.
type ExtractFunc func(caps Captures) (Params, error)

// BuildFunc constructs a node for extracted parameters. Children are
// attached by the extraction engine afterwards.
type BuildFunc func(g *graph.Graph, p Params) (*graph.Node, error)

// ---------------------------------------------------------------------------
// Kind
// ---------------------------------------------------------------------------

// Kind is the immutable descriptor of one block kind. Render and Match
// are kept together here so a kind's generator and recognizer cannot
// drift apart unnoticed; the round-trip tests hold them inverse.
type Kind struct {
	Tag      string
	Category string
	Slots    []Slot

	// IsValue marks expression-producing kinds; all others are
	// statement-shaped with predecessor/successor connections.
	IsValue bool
	// Hat marks event-handler kinds, which render a procedure definition
	// plus a registration line and sit only at the top level.
	Hat bool

	Emit EmitFunc  // statement kinds
	Eval ValueFunc // value kinds

	Match   Matcher
	Extract ExtractFunc
	Build   BuildFunc

	// HandlerName derives the generated procedure name for hat kinds,
	// deterministic in the node's condition fields.
	HandlerName func(n *graph.Node) string
}

// Slot returns the named slot declaration, or nil.
func (k *Kind) Slot(name string) *Slot {
	for i := range k.Slots {
		if k.Slots[i].Name == name {
			return &k.Slots[i]
		}
	}
	return nil
}

// DefaultFor returns the default literal for a value slot. Dynamic branch
// slots (IF1, IF2, …) inherit the declaration of their zeroth sibling.
// Unknown slots default to the numeric zero so a partially built graph
// still compiles.
func (k *Kind) DefaultFor(slot string) string {
	if s := k.Slot(slot); s != nil && s.Default != "" {
		return s.Default
	}
	base := strings.TrimRightFunc(slot, unicode.IsDigit)
	if base != slot {
		if s := k.Slot(base + "0"); s != nil && s.Default != "" {
			return s.Default
		}
	}
	return "0"
}

// NewNode builds a bare node of this kind with default field values.
func (k *Kind) NewNode(g *graph.Graph) *graph.Node {
	n := g.NewNode(k.Tag)
	for _, s := range k.Slots {
		if s.Kind == FieldSlot && s.Default != "" {
			n.SetLocalField(s.Name, s.Default)
		}
	}
	return n
}
