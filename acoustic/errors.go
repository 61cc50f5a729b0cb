package acoustic

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is returned for malformed pdf, GV or voice files.
	ErrFormat = errors.New("acoustic: invalid model file")
	// ErrMissingStream is returned when a required stream has no model.
	ErrMissingStream = errors.New("acoustic: missing stream")
	// ErrProsody is returned when external prosody does not line up with the
	// feature vectors.
	ErrProsody = errors.New("acoustic: prosody does not match phones")
)

// ResolveError locates a failure while building the utterance model.
// State is -1 when the failure is not tied to a state.
type ResolveError struct {
	Phone  int
	Name   string
	Stream Stream
	State  int
	Err    error
}

func (e *ResolveError) Error() string {
	if e.State < 0 {
		return fmt.Sprintf("acoustic: phone %d (%s) stream %s: %v", e.Phone, e.Name, e.Stream, e.Err)
	}
	return fmt.Sprintf("acoustic: phone %d (%s) stream %s state %d: %v", e.Phone, e.Name, e.Stream, e.State, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }
