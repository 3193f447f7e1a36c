// Package storage persists sketches: a CBOR snapshot codec for block
// graphs and a SQLite store keyed by sketch name.
package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/Magrawal16/moontinker/graph"
)

// cborEncMode uses canonical options so structurally identical graphs
// encode to identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("storage: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is the wire form of one graph. Node order is arena id order,
// so the root list alone carries program order.
type Snapshot struct {
	Nodes []SnapshotNode `cbor:"1,keyasint"`
	Roots []graph.NodeID `cbor:"2,keyasint"`
}

// SnapshotNode mirrors graph.Node without behavior, decoupling the wire
// format from the in-memory arena.
type SnapshotNode struct {
	ID         graph.NodeID            `cbor:"1,keyasint"`
	Kind       string                  `cbor:"2,keyasint"`
	Fields     map[string]string       `cbor:"3,keyasint,omitempty"`
	Inputs     map[string]graph.NodeID `cbor:"4,keyasint,omitempty"`
	Bodies     map[string]graph.NodeID `cbor:"5,keyasint,omitempty"`
	Parent     graph.NodeID            `cbor:"6,keyasint,omitempty"`
	ParentSlot string                  `cbor:"7,keyasint,omitempty"`
	Prev       graph.NodeID            `cbor:"8,keyasint,omitempty"`
	Next       graph.NodeID            `cbor:"9,keyasint,omitempty"`
	Branching  graph.Branching         `cbor:"10,keyasint,omitempty"`
}

// MarshalSnapshot serializes a graph to CBOR bytes.
func MarshalSnapshot(g *graph.Graph) ([]byte, error) {
	snap := Snapshot{Roots: g.Roots()}
	for _, n := range g.Nodes() {
		snap.Nodes = append(snap.Nodes, SnapshotNode{
			ID:         n.ID,
			Kind:       n.Kind,
			Fields:     n.Fields,
			Inputs:     n.Inputs,
			Bodies:     n.Bodies,
			Parent:     n.Parent,
			ParentSlot: n.ParentSlot,
			Prev:       n.Prev,
			Next:       n.Next,
			Branching:  n.Branching,
		})
	}
	return cborEncMode.Marshal(&snap)
}

// UnmarshalSnapshot rebuilds a graph from CBOR bytes. Structural links
// are replayed through the graph's own operations so a corrupt snapshot
// cannot smuggle in a double-filled slot or a cycle.
func UnmarshalSnapshot(data []byte) (*graph.Graph, error) {
	var snap Snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("storage: unmarshal snapshot: %w", err)
	}

	g := graph.New()
	ids := make(map[graph.NodeID]graph.NodeID, len(snap.Nodes))
	byOld := make(map[graph.NodeID]*SnapshotNode, len(snap.Nodes))

	// Nodes are created in root-first program order so insertion order
	// (and with it compile order) survives the round trip.
	var create func(old graph.NodeID)
	create = func(old graph.NodeID) {
		sn := byOld[old]
		if sn == nil {
			return
		}
		if _, done := ids[old]; done {
			return
		}
		n := g.NewNode(sn.Kind)
		for name, value := range sn.Fields {
			n.SetLocalField(name, value)
		}
		n.Branching = sn.Branching
		ids[old] = n.ID
		for _, c := range sn.Inputs {
			create(c)
		}
		for _, head := range sn.Bodies {
			create(head)
		}
		create(sn.Next)
	}
	for i := range snap.Nodes {
		byOld[snap.Nodes[i].ID] = &snap.Nodes[i]
	}
	for _, root := range snap.Roots {
		create(root)
	}

	for _, root := range snap.Roots {
		if byOld[root] == nil {
			return nil, fmt.Errorf("storage: snapshot references missing node %d", root)
		}
		prev := root
		for {
			if err := replay(g, byOld, ids, prev); err != nil {
				return nil, err
			}
			next := byOld[prev].Next
			if next == graph.None {
				break
			}
			if byOld[next] == nil {
				return nil, fmt.Errorf("storage: snapshot references missing node %d", next)
			}
			if err := g.Append(ids[next], ids[prev]); err != nil {
				return nil, fmt.Errorf("storage: replay snapshot: %w", err)
			}
			prev = next
		}
	}
	return g, nil
}

// replay re-attaches the subtree below old using validated operations.
func replay(g *graph.Graph, byOld map[graph.NodeID]*SnapshotNode, ids map[graph.NodeID]graph.NodeID, old graph.NodeID) error {
	sn := byOld[old]
	if sn == nil {
		return fmt.Errorf("storage: snapshot references missing node %d", old)
	}
	for slot, c := range sn.Inputs {
		if err := attachOne(g, ids, c, sn.ID, slot, g.Attach); err != nil {
			return err
		}
		if err := replay(g, byOld, ids, c); err != nil {
			return err
		}
	}
	for slot, head := range sn.Bodies {
		if err := attachOne(g, ids, head, sn.ID, slot, g.AttachBody); err != nil {
			return err
		}
		prev := head
		for {
			if err := replay(g, byOld, ids, prev); err != nil {
				return err
			}
			next := byOld[prev].Next
			if next == graph.None {
				break
			}
			if byOld[next] == nil {
				return fmt.Errorf("storage: snapshot references missing node %d", next)
			}
			if err := g.Append(ids[next], ids[prev]); err != nil {
				return fmt.Errorf("storage: replay snapshot: %w", err)
			}
			prev = next
		}
	}
	return nil
}

func attachOne(g *graph.Graph, ids map[graph.NodeID]graph.NodeID, child, parent graph.NodeID, slot string, op func(graph.NodeID, graph.NodeID, string) error) error {
	cid, ok := ids[child]
	if !ok {
		return fmt.Errorf("storage: snapshot references missing node %d", child)
	}
	if err := op(cid, ids[parent], slot); err != nil {
		return fmt.Errorf("storage: replay snapshot: %w", err)
	}
	return nil
}
