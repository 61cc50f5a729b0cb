package cart

import (
	"fmt"
	"strconv"

	"github.com/ieee0824/hts-go/feature"
)

// Resolve walks the tree from the root to a leaf for v. The walk never
// backtracks; any inconsistency between the tree and v is reported as a
// *ConsistencyError.
func (t *Tree) Resolve(v feature.Vector) (*Leaf, error) {
	ref, err := t.walk(v, nil)
	if err != nil {
		return nil, err
	}
	return &t.Leaves[ref.Index()], nil
}

// ResolveRef is Resolve returning the leaf reference.
func (t *Tree) ResolveRef(v feature.Vector) (Ref, error) {
	return t.walk(v, nil)
}

func (t *Tree) walk(v feature.Vector, visit func(node, daughter int)) (Ref, error) {
	ref := t.Root
	for steps := 0; ; steps++ {
		switch {
		case ref == NullRef:
			return NullRef, t.inconsistent(-1, "null root")
		case ref.IsLeaf():
			if ref.Index() >= len(t.Leaves) {
				return NullRef, t.inconsistent(-1, fmt.Sprintf("leaf %d out of range", ref.Index()))
			}
			return ref, nil
		}
		i := ref.Index()
		if i >= len(t.Nodes) {
			return NullRef, t.inconsistent(i, "node out of range")
		}
		if steps >= len(t.Nodes) {
			return NullRef, t.inconsistent(i, "traversal longer than the tree")
		}
		n := &t.Nodes[i]
		d, err := n.choose(v)
		if err != nil {
			err.Tree, err.Node = t.Name, i
			return NullRef, err
		}
		if d >= len(n.Daughters) || n.Daughters[d] == NullRef {
			return NullRef, &ConsistencyError{Tree: t.Name, Node: i, Feature: n.Feature, Value: d, Reason: "no daughter for value"}
		}
		if visit != nil {
			visit(i, d)
		}
		ref = n.Daughters[d]
	}
}

// choose returns the daughter index selected by v. The returned error has
// Tree and Node unset.
func (n *Node) choose(v feature.Vector) (int, *ConsistencyError) {
	bad := func(reason string, value int) *ConsistencyError {
		return &ConsistencyError{Feature: n.Feature, Value: value, Reason: reason}
	}
	switch n.Kind {
	case BinaryByte, NaryByte:
		b, ok := v.ByteAt(n.Feature)
		if !ok {
			return 0, bad("feature is not a byte feature of the vector", -1)
		}
		if n.Kind == NaryByte {
			return int(b), nil
		}
		if int(b) == n.Value {
			return 0, nil
		}
		return 1, nil
	case BinaryShort, NaryShort:
		s, ok := v.ShortAt(n.Feature)
		if !ok {
			return 0, bad("feature is not a short feature of the vector", -1)
		}
		if n.Kind == NaryShort {
			if s < 0 {
				return 0, bad("negative value", int(s))
			}
			return int(s), nil
		}
		if int(s) == n.Value {
			return 0, nil
		}
		return 1, nil
	case BinaryFloat:
		f, ok := v.FloatAt(n.Feature)
		if !ok {
			return 0, bad("feature is not a continuous feature of the vector", -1)
		}
		if f < n.Threshold {
			return 0, nil
		}
		return 1, nil
	}
	return 0, bad(fmt.Sprintf("unknown node kind %v", n.Kind), -1)
}

// DecisionPath lists the questions answered while resolving v, one entry per
// decision node, e.g. "phone==a -> yes".
func (t *Tree) DecisionPath(v feature.Vector, def *feature.Definition) ([]string, error) {
	var path []string
	_, err := t.walk(v, func(node, daughter int) {
		path = append(path, t.describe(node, daughter, def))
	})
	if err != nil {
		return path, err
	}
	return path, nil
}

func (t *Tree) describe(node, daughter int, def *feature.Definition) string {
	n := &t.Nodes[node]
	name := def.FeatureName(n.Feature)
	if name == "" {
		name = "#" + strconv.Itoa(n.Feature)
	}
	answer := "no"
	if daughter == 0 {
		answer = "yes"
	}
	switch n.Kind {
	case BinaryByte, BinaryShort:
		return fmt.Sprintf("%s==%s -> %s", name, def.ValueString(n.Feature, n.Value), answer)
	case BinaryFloat:
		return fmt.Sprintf("%s<%g -> %s", name, n.Threshold, answer)
	}
	return fmt.Sprintf("%s -> %s", name, def.ValueString(n.Feature, daughter))
}

// PathTo returns the chain of references from the root down to r, following
// Parent indices. A shared leaf is traced through its first parent. It
// returns nil when r is not attached to the root.
func (t *Tree) PathTo(r Ref) []Ref {
	var parent int32
	switch {
	case r.IsNode() && r.Index() < len(t.Nodes):
		parent = t.Nodes[r.Index()].Parent
	case r.IsLeaf() && r.Index() < len(t.Leaves):
		parent = t.Leaves[r.Index()].Parent
	default:
		return nil
	}
	path := []Ref{r}
	for parent >= 0 && int(parent) < len(t.Nodes) && len(path) <= len(t.Nodes) {
		path = append(path, NodeRef(int(parent)))
		parent = t.Nodes[parent].Parent
	}
	if path[len(path)-1] != t.Root {
		return nil
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
