package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Magrawal16/moontinker/blocks"
	"github.com/Magrawal16/moontinker/graph"
)

// Unrecognized reports one fragment of input the extractor could not map
// to any registered kind. The fragment is never silently dropped; the
// caller decides whether its presence is fatal.
type Unrecognized struct {
	Line int // 1-based
	Text string
}

// Error implements the error interface.
func (u Unrecognized) Error() string {
	return fmt.Sprintf("line %d: unrecognized fragment %q", u.Line, u.Text)
}

var defPattern = regexp.MustCompile(`^def (?P<NAME>\w+)\(\):$`)

// Extract recognizes textual source and reconstructs the block graph that
// produced it. Statement patterns are tried in registration order (most
// specific first); nested expression text is recursively extracted against
// the expression-shaped kinds. The returned slice lists every fragment no
// pattern claimed. Only text that is output of Compile, or structurally
// isomorphic to such output, needs to round-trip.
func Extract(text string, reg *blocks.Registry) (*graph.Graph, []Unrecognized, error) {
	x := &extractor{
		g:        graph.New(),
		reg:      reg,
		handlers: make(map[string]*handlerEntry),
	}
	lines := strings.Split(text, "\n")
	x.scanRegistrations(lines)
	x.run(lines)
	return x.g, x.bad, nil
}

// handlerEntry pairs one registration line's parameters with the defs
// realized for it. The compiler emits registrations after all procedure
// definitions, so a pre-scan lets the def line construct the handler node
// with its condition already known.
type handlerEntry struct {
	kind *blocks.Kind
	caps blocks.Captures
	// defsBuilt counts definitions already realized, so each trailing
	// registration line is consumed by exactly one definition.
	defsBuilt int
}

type extractor struct {
	g   *graph.Graph
	reg *blocks.Registry
	bad []Unrecognized

	handlers map[string]*handlerEntry
}

// frame is one open statement context: the top-level stream or the body
// of a container node.
type frame struct {
	level  int
	parent graph.NodeID // None for the top level
	slot   string
	last   graph.NodeID // previous statement in this chain
}

func (x *extractor) scanRegistrations(lines []string) {
	for _, raw := range lines {
		line := strings.TrimRight(raw, " \t")
		if line == "" || strings.HasPrefix(line, " ") {
			continue
		}
		for _, k := range x.reg.StatementKinds() {
			if !k.Hat {
				continue
			}
			if caps, ok := k.Match.Match(line); ok {
				x.handlers[caps["PROC"]] = &handlerEntry{kind: k, caps: caps}
				break
			}
		}
	}
}

func (x *extractor) run(lines []string) {
	stack := []*frame{{level: 0}}
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimRight(raw, " \t")
		if strings.TrimSpace(line) == "" {
			// Blank lines separate top-level chunks.
			stack[0].last = graph.None
			continue
		}
		level, content, ok := splitIndent(line)
		if !ok {
			x.report(lineNo, content)
			continue
		}
		for len(stack) > 1 && stack[len(stack)-1].level > level {
			stack = stack[:len(stack)-1]
		}
		top := stack[len(stack)-1]
		if top.level != level {
			// Indentation that matches no open body.
			x.report(lineNo, content)
			continue
		}

		switch {
		case content == "pass":
			// Empty body marker.
		case x.tryContinuation(content, top, &stack, lineNo):
		case x.tryDefinition(content, top, &stack, lineNo):
		default:
			x.statement(content, top, &stack, lineNo)
		}
	}
}

// tryContinuation folds elif/else headers into the branch annotation of
// the conditional that precedes them in the current chain.
func (x *extractor) tryContinuation(content string, top *frame, stack *[]*frame, lineNo int) bool {
	caps, isElif := blocks.ElifPattern.Match(content)
	_, isElse := blocks.ElsePattern.Match(content)
	if !isElif && !isElse {
		return false
	}
	n := x.g.Node(top.last)
	if n == nil || n.Kind != "control_if" {
		x.report(lineNo, content)
		return true
	}
	if isElif {
		n.Branching.ElseIf++
		idx := n.Branching.ElseIf
		id, err := x.expr(caps["COND"])
		if err == nil {
			if err = x.g.Attach(id, n.ID, fmt.Sprintf("IF%d", idx)); err != nil {
				x.g.Remove(id)
			}
		}
		if err != nil {
			// The arm stays, its condition degrades to the default.
			x.report(lineNo, content)
		}
		*stack = append(*stack, &frame{level: top.level + 1, parent: n.ID, slot: fmt.Sprintf("DO%d", idx)})
		return true
	}
	n.Branching.Else = true
	*stack = append(*stack, &frame{level: top.level + 1, parent: n.ID, slot: "ELSE"})
	return true
}

// tryDefinition recognizes a procedure definition line and realizes the
// event handler node its registration line described.
func (x *extractor) tryDefinition(content string, top *frame, stack *[]*frame, lineNo int) bool {
	m := defPattern.FindStringSubmatch(content)
	if m == nil {
		return false
	}
	if top.level != 0 {
		x.report(lineNo, content)
		return true
	}
	entry := x.handlers[m[1]]
	if entry == nil {
		// A definition with no registration binding it to a condition
		// has no block equivalent.
		x.report(lineNo, content)
		return true
	}
	n, err := x.build(entry.kind, entry.caps)
	if err != nil {
		x.report(lineNo, content)
		return true
	}
	entry.defsBuilt++
	top.last = graph.None // hat nodes do not chain
	*stack = append(*stack, &frame{level: 1, parent: n.ID, slot: "DO"})
	return true
}

// statement matches one line against the statement kinds and attaches the
// resulting node at the current structural position.
func (x *extractor) statement(content string, top *frame, stack *[]*frame, lineNo int) {
	for _, k := range x.reg.StatementKinds() {
		caps, ok := k.Match.Match(content)
		if !ok {
			continue
		}
		if k.Hat {
			// Registration line: consumed by its definition, or realized
			// with an empty body when no definition appeared.
			x.registration(k, caps, top, lineNo, content)
			return
		}
		n, err := x.build(k, caps)
		if err != nil {
			x.report(lineNo, content)
			return
		}
		if err := x.attach(n, top); err != nil {
			x.g.Remove(n.ID)
			x.report(lineNo, content)
			return
		}
		top.last = n.ID
		if slot := firstStatementSlot(k); slot != "" && strings.HasSuffix(content, ":") {
			*stack = append(*stack, &frame{level: top.level + 1, parent: n.ID, slot: slot})
		}
		return
	}
	x.report(lineNo, content)
}

func (x *extractor) registration(k *blocks.Kind, caps blocks.Captures, top *frame, lineNo int, content string) {
	if top.level != 0 {
		x.report(lineNo, content)
		return
	}
	entry := x.handlers[caps["PROC"]]
	if entry != nil && entry.defsBuilt > 0 {
		entry.defsBuilt--
		return
	}
	if _, err := x.build(k, caps); err != nil {
		x.report(lineNo, content)
	}
	top.last = graph.None
}

// build constructs a node from a match and recursively extracts its
// nested expressions. On any failure the partially built subtree is
// removed, keeping extraction all-or-nothing per statement.
func (x *extractor) build(k *blocks.Kind, caps blocks.Captures) (*graph.Node, error) {
	params, err := k.Extract(caps)
	if err != nil {
		return nil, err
	}
	n, err := k.Build(x.g, params)
	if err != nil {
		return nil, err
	}
	for slot, sub := range params.Exprs {
		id, err := x.expr(sub)
		if err != nil {
			x.g.Remove(n.ID)
			return nil, err
		}
		if err := x.g.Attach(id, n.ID, slot); err != nil {
			x.g.Remove(id)
			x.g.Remove(n.ID)
			return nil, err
		}
	}
	return n, nil
}

// expr recursively extracts one expression fragment against the value
// kinds, most specific first, with minimal-parenthesization undone.
func (x *extractor) expr(s string) (graph.NodeID, error) {
	s = blocks.StripParens(strings.TrimSpace(s))
	if s == "" {
		return graph.None, fmt.Errorf("empty expression")
	}
	for _, k := range x.reg.ValueKinds() {
		caps, ok := k.Match.Match(s)
		if !ok {
			continue
		}
		n, err := x.build(k, caps)
		if err != nil {
			return graph.None, err
		}
		return n.ID, nil
	}
	return graph.None, fmt.Errorf("unrecognized expression %q", s)
}

func (x *extractor) attach(n *graph.Node, top *frame) error {
	if top.parent == graph.None {
		if top.last != graph.None {
			return x.g.Append(n.ID, top.last)
		}
		return nil // stays a root
	}
	if top.last != graph.None {
		return x.g.Append(n.ID, top.last)
	}
	return x.g.AttachBody(n.ID, top.parent, top.slot)
}

func (x *extractor) report(lineNo int, text string) {
	x.bad = append(x.bad, Unrecognized{Line: lineNo, Text: text})
}

// splitIndent strips leading indentation, returning the depth in units.
// Tab or non-unit indentation is not something the compiler emits.
func splitIndent(line string) (level int, content string, ok bool) {
	spaces := 0
	for spaces < len(line) && line[spaces] == ' ' {
		spaces++
	}
	content = line[spaces:]
	if spaces%len(IndentUnit) != 0 || strings.HasPrefix(content, "\t") {
		return 0, content, false
	}
	return spaces / len(IndentUnit), content, true
}

// firstStatementSlot returns the body slot a container opens, or "".
func firstStatementSlot(k *blocks.Kind) string {
	for _, s := range k.Slots {
		if s.Kind == blocks.StatementSlot {
			return s.Name
		}
	}
	return ""
}
