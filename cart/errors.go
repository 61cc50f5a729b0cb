package cart

import (
	"errors"
	"fmt"
)

var (
	// ErrInconsistent is returned when a tree and a feature vector or
	// definition disagree.
	ErrInconsistent = errors.New("cart: inconsistent model")
	// ErrFormat is returned for malformed tree files.
	ErrFormat = errors.New("cart: invalid tree file")
)

// ConsistencyError locates a model-consistency failure inside a tree.
// Feature is -1 when the failure is not tied to a feature.
type ConsistencyError struct {
	Tree    string
	Node    int
	Feature int
	Value   int
	Reason  string
}

func (e *ConsistencyError) Error() string {
	s := fmt.Sprintf("cart: tree %q node %d: %s", e.Tree, e.Node, e.Reason)
	if e.Feature >= 0 {
		s += fmt.Sprintf(" (feature %d, value %d)", e.Feature, e.Value)
	}
	return s
}

func (e *ConsistencyError) Unwrap() error { return ErrInconsistent }

func (t *Tree) inconsistent(node int, reason string) *ConsistencyError {
	return &ConsistencyError{Tree: t.Name, Node: node, Feature: -1, Reason: reason}
}
