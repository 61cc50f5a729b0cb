package paramgen

import (
	"errors"
	"fmt"

	"github.com/ieee0824/hts-go/acoustic"
)

var (
	// ErrAlignment reports an external log F0 contour whose length differs
	// from the utterance by more than the tolerated slack.
	ErrAlignment = errors.New("paramgen: log F0 contour does not match utterance length")

	// ErrSingular reports an MLPG system that is not positive definite.
	ErrSingular = errors.New("paramgen: singular parameter generation system")
)

// StreamError locates a generation failure. Frame is -1 when the failure is
// not tied to a single frame.
type StreamError struct {
	Stream acoustic.Stream
	Dim    int
	Frame  int
	Err    error
}

func (e *StreamError) Error() string {
	if e.Frame >= 0 {
		return fmt.Sprintf("paramgen: %s dim %d frame %d: %v", e.Stream, e.Dim, e.Frame, e.Err)
	}
	return fmt.Sprintf("paramgen: %s dim %d: %v", e.Stream, e.Dim, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }
