package hts

import "errors"

var (
	ErrConfig             = errors.New("hts: invalid config")
	ErrNoVoice            = errors.New("hts: no voice files configured")
	ErrDefinitionMismatch = errors.New("hts: feature definition does not match the voice")
)
