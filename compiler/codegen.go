// Package compiler translates between block graphs and textual source:
// codegen renders a graph to text, extract recognizes text back into a
// graph. Both sides go through the same block kind registry, which keeps
// the two directions inverse for everything the catalog can express.
package compiler

import (
	"fmt"
	"strings"

	"github.com/Magrawal16/moontinker/blocks"
	"github.com/Magrawal16/moontinker/graph"
)

// IndentUnit is the fixed indentation step of generated source.
const IndentUnit = "    "

// Compile renders a graph to textual source. Roots are rendered in
// insertion order; floating expression nodes are not part of the program
// and are skipped. Compilation never fails on an incomplete graph — empty
// value slots render their kind's default literal and empty bodies render
// a pass-through line — but an unregistered kind in the graph is a fatal
// registry mismatch.
func Compile(g *graph.Graph, reg *blocks.Registry) (string, error) {
	e := &emitter{g: g, reg: reg}
	var chunks []string
	for _, id := range g.Roots() {
		n := g.Node(id)
		k, err := reg.Lookup(n.Kind)
		if err != nil {
			return "", err
		}
		if k.IsValue {
			continue
		}
		e.lines = nil
		e.chain(id)
		if e.err != nil {
			return "", e.err
		}
		chunks = append(chunks, strings.Join(e.lines, "\n"))
	}
	if len(e.registrations) > 0 {
		chunks = append(chunks, strings.Join(e.registrations, "\n"))
	}
	if len(chunks) == 0 {
		return "", nil
	}
	return strings.Join(chunks, "\n\n") + "\n", nil
}

// emitter implements blocks.Emitter for one compilation run.
type emitter struct {
	g   *graph.Graph
	reg *blocks.Registry

	indent        int
	lines         []string
	registrations []string
	err           error
}

// chain renders a statement chain starting at id.
func (e *emitter) chain(id graph.NodeID) {
	for id != graph.None && e.err == nil {
		n := e.g.Node(id)
		k, err := e.reg.Lookup(n.Kind)
		if err != nil {
			e.err = err
			return
		}
		if k.Emit == nil {
			e.err = fmt.Errorf("kind %q is not statement-shaped", n.Kind)
			return
		}
		k.Emit(n, e)
		id = n.Next
	}
}

// Line implements blocks.Emitter.
func (e *emitter) Line(text string) {
	e.lines = append(e.lines, strings.Repeat(IndentUnit, e.indent)+text)
}

// Body implements blocks.Emitter.
func (e *emitter) Body(n *graph.Node, slot string) {
	e.indent++
	if head := n.Body(slot); head != graph.None {
		e.chain(head)
	} else {
		e.Line("pass")
	}
	e.indent--
}

// Value implements blocks.Emitter. The child expression is parenthesized
// only when it binds looser than the context requires.
func (e *emitter) Value(n *graph.Node, slot string, ctx blocks.Prec) string {
	k, err := e.reg.Lookup(n.Kind)
	if err != nil {
		e.fail(err)
		return "0"
	}
	child := n.Input(slot)
	if child == graph.None {
		return k.DefaultFor(slot)
	}
	cn := e.g.Node(child)
	ck, err := e.reg.Lookup(cn.Kind)
	if err != nil {
		e.fail(err)
		return "0"
	}
	if ck.Eval == nil {
		e.fail(fmt.Errorf("kind %q is not value-shaped", cn.Kind))
		return "0"
	}
	text, prec := ck.Eval(cn, e)
	if prec < ctx {
		return "(" + text + ")"
	}
	return text
}

// Register implements blocks.Emitter.
func (e *emitter) Register(line string) {
	e.registrations = append(e.registrations, line)
}

func (e *emitter) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}
