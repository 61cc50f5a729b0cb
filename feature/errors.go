package feature

import "errors"

var (
	// ErrFormat reports a malformed feature definition or vector line.
	ErrFormat = errors.New("feature: malformed input")
	// ErrUnknownFeature reports a feature name missing from the definition.
	ErrUnknownFeature = errors.New("feature: unknown feature")
	// ErrUnknownValue reports a value outside a discrete feature's value set.
	ErrUnknownValue = errors.New("feature: unknown feature value")
)
