package vocoder

import "errors"

var (
	// ErrMissingStream reports parameters without mel-cepstrum or log F0.
	ErrMissingStream = errors.New("vocoder: required parameter stream missing")

	// ErrFilterMismatch reports a filter bank whose size differs from the
	// number of generated band strengths.
	ErrFilterMismatch = errors.New("vocoder: mixed-excitation filter count does not match strengths")

	// ErrFormat reports a malformed filter or parameter file.
	ErrFormat = errors.New("vocoder: invalid file format")
)
