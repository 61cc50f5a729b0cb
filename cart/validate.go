package cart

import (
	"fmt"

	"github.com/ieee0824/hts-go/feature"
)

// Validate checks the structure of t against def: every node is reachable
// from the root exactly once, daughter references are in range, node kinds
// match feature kinds, binary nodes have two daughters, n-ary nodes one per
// feature value, and Parent indices agree with the daughter lists.
func (t *Tree) Validate(def *feature.Definition) error {
	if t.Root == NullRef {
		return t.inconsistent(-1, "tree has no root")
	}
	if t.Root.IsLeaf() {
		if t.Root.Index() >= len(t.Leaves) {
			return t.inconsistent(-1, "root leaf out of range")
		}
		if len(t.Nodes) > 0 {
			return t.inconsistent(0, "node unreachable from leaf root")
		}
		return t.validateLeaves()
	}
	if t.Root.Index() >= len(t.Nodes) {
		return t.inconsistent(t.Root.Index(), "root out of range")
	}
	if t.Nodes[t.Root.Index()].Parent != -1 {
		return t.inconsistent(t.Root.Index(), "root has a parent")
	}

	seen := make([]bool, len(t.Nodes))
	queue := []int{t.Root.Index()}
	seen[t.Root.Index()] = true
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if err := t.validateNode(i, def); err != nil {
			return err
		}
		for _, d := range t.Nodes[i].Daughters {
			if !d.IsNode() {
				continue
			}
			j := d.Index()
			if seen[j] {
				return t.inconsistent(j, "node reached twice")
			}
			if t.Nodes[j].Parent != int32(i) {
				return t.inconsistent(j, fmt.Sprintf("parent is %d, want %d", t.Nodes[j].Parent, i))
			}
			seen[j] = true
			queue = append(queue, j)
		}
	}
	for i, ok := range seen {
		if !ok {
			return t.inconsistent(i, "node unreachable from root")
		}
	}
	return t.validateLeaves()
}

func (t *Tree) validateNode(i int, def *feature.Definition) error {
	n := &t.Nodes[i]
	bad := func(reason string) error {
		return &ConsistencyError{Tree: t.Name, Node: i, Feature: n.Feature, Value: n.Value, Reason: reason}
	}
	if n.Feature < 0 || n.Feature >= def.NumFeatures() {
		return bad("feature index out of range")
	}
	want := feature.Byte
	switch n.Kind {
	case BinaryShort, NaryShort:
		want = feature.Short
	case BinaryFloat:
		want = feature.Continuous
	case BinaryByte, NaryByte:
	default:
		return bad(fmt.Sprintf("unknown node kind %v", n.Kind))
	}
	if got := def.Kind(n.Feature); got != want {
		return bad(fmt.Sprintf("%v node on %v feature", n.Kind, got))
	}
	if n.Kind.Binary() {
		if len(n.Daughters) != 2 {
			return bad(fmt.Sprintf("binary node has %d daughters", len(n.Daughters)))
		}
		if n.Kind != BinaryFloat && (n.Value < 0 || n.Value >= def.NumValues(n.Feature)) {
			return bad("value out of range")
		}
	} else if len(n.Daughters) != def.NumValues(n.Feature) {
		return bad(fmt.Sprintf("n-ary node has %d daughters for %d values", len(n.Daughters), def.NumValues(n.Feature)))
	}
	for _, d := range n.Daughters {
		switch {
		case d == NullRef:
			if n.Kind.Binary() {
				return bad("binary node with a null daughter")
			}
		case d.IsLeaf():
			if d.Index() >= len(t.Leaves) {
				return bad(fmt.Sprintf("daughter %v out of range", d))
			}
		default:
			if d.Index() >= len(t.Nodes) {
				return bad(fmt.Sprintf("daughter %v out of range", d))
			}
		}
	}
	return nil
}

func (t *Tree) validateLeaves() error {
	for i := range t.Leaves {
		if len(t.Leaves[i].Mean) != len(t.Leaves[i].Var) {
			return t.inconsistent(-1, fmt.Sprintf("leaf %d has %d means and %d variances", i, len(t.Leaves[i].Mean), len(t.Leaves[i].Var)))
		}
	}
	return nil
}
