// Package cart implements the decision trees that select a leaf pdf for a
// context feature vector.
//
// Nodes and leaves live in flat slices owned by their Tree and refer to each
// other by index. A Ref names either a node or a leaf.
package cart

import (
	"fmt"
	"math"
)

// Kind is the decision rule of a node.
type Kind uint8

const (
	// BinaryByte tests a byte feature for equality with Value.
	BinaryByte Kind = iota
	// BinaryShort tests a short feature for equality with Value.
	BinaryShort
	// BinaryFloat tests a continuous feature against Threshold.
	BinaryFloat
	// NaryByte selects the daughter indexed by a byte feature.
	NaryByte
	// NaryShort selects the daughter indexed by a short feature.
	NaryShort
)

var kindNames = [...]string{"binary-byte", "binary-short", "binary-float", "nary-byte", "nary-short"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Binary reports whether nodes of this kind have exactly two daughters.
func (k Kind) Binary() bool { return k <= BinaryFloat }

// Ref is a daughter reference: a node index when >= 0, a leaf index encoded
// as -(i+1) when negative, or NullRef.
type Ref int32

// NullRef marks a missing daughter.
const NullRef Ref = math.MinInt32

// NodeRef returns the reference to node i.
func NodeRef(i int) Ref { return Ref(i) }

// LeafRef returns the reference to leaf i.
func LeafRef(i int) Ref { return Ref(-(i + 1)) }

// IsNode reports whether r refers to a decision node.
func (r Ref) IsNode() bool { return r >= 0 }

// IsLeaf reports whether r refers to a leaf.
func (r Ref) IsLeaf() bool { return r < 0 && r != NullRef }

// Index returns the node or leaf index of r.
func (r Ref) Index() int {
	if r >= 0 {
		return int(r)
	}
	return int(-r) - 1
}

func (r Ref) String() string {
	switch {
	case r == NullRef:
		return "-"
	case r.IsLeaf():
		return fmt.Sprintf("l%d", r.Index())
	}
	return fmt.Sprintf("n%d", r.Index())
}

// Node is a decision node. Feature is the global feature index. Value is used
// by the binary equality kinds, Threshold by BinaryFloat. Parent is the index
// of the parent node, -1 for the root.
type Node struct {
	Kind      Kind
	Feature   int
	Value     int
	Threshold float32
	Daughters []Ref
	Parent    int32
}

// Leaf is a terminal pdf. Mean and Var are per state for duration trees and
// per dimension otherwise; they are filled when the pdf file is attached.
type Leaf struct {
	Name         string
	PdfIndex     int
	Mean         []float64
	Var          []float64
	VoicedWeight float64
	Parent       int32
}

// Tree is one decision tree.
type Tree struct {
	Name   string
	Root   Ref
	Nodes  []Node
	Leaves []Leaf
}

// NewTree returns an empty tree.
func NewTree(name string) *Tree {
	return &Tree{Name: name, Root: NullRef}
}

// AddNode appends a node and returns its reference. The first node or leaf
// added to an empty tree becomes the root.
func (t *Tree) AddNode(n Node) Ref {
	n.Parent = -1
	n.Daughters = append([]Ref(nil), n.Daughters...)
	t.Nodes = append(t.Nodes, n)
	ref := NodeRef(len(t.Nodes) - 1)
	if t.Root == NullRef {
		t.Root = ref
	}
	return ref
}

// AddLeaf appends a leaf and returns its reference.
func (t *Tree) AddLeaf(l Leaf) Ref {
	l.Parent = -1
	t.Leaves = append(t.Leaves, l)
	ref := LeafRef(len(t.Leaves) - 1)
	if t.Root == NullRef {
		t.Root = ref
	}
	return ref
}

// SetDaughter sets daughter i of parent to child, growing the daughter list
// with NullRef as needed, and records parent as the child's parent.
// A shared leaf keeps its first parent.
func (t *Tree) SetDaughter(parent Ref, i int, child Ref) error {
	if !parent.IsNode() || parent.Index() >= len(t.Nodes) {
		return fmt.Errorf("%w: parent %v is not a node", ErrInconsistent, parent)
	}
	if i < 0 {
		return fmt.Errorf("%w: negative daughter index %d", ErrInconsistent, i)
	}
	switch {
	case child.IsNode():
		if child.Index() >= len(t.Nodes) {
			return fmt.Errorf("%w: node %v out of range", ErrInconsistent, child)
		}
		t.Nodes[child.Index()].Parent = int32(parent.Index())
	case child.IsLeaf():
		if child.Index() >= len(t.Leaves) {
			return fmt.Errorf("%w: leaf %v out of range", ErrInconsistent, child)
		}
		if l := &t.Leaves[child.Index()]; l.Parent < 0 {
			l.Parent = int32(parent.Index())
		}
	}
	n := &t.Nodes[parent.Index()]
	for len(n.Daughters) <= i {
		n.Daughters = append(n.Daughters, NullRef)
	}
	n.Daughters[i] = child
	return nil
}

// NumLeaves returns the number of leaves.
func (t *Tree) NumLeaves() int { return len(t.Leaves) }

// Leaf returns the leaf referenced by r, or nil.
func (t *Tree) Leaf(r Ref) *Leaf {
	if !r.IsLeaf() || r.Index() >= len(t.Leaves) {
		return nil
	}
	return &t.Leaves[r.Index()]
}
