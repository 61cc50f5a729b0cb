package acoustic

import "fmt"

// Stream identifies one of the parameter streams modeled by the voice.
type Stream int

const (
	Dur Stream = iota
	LF0
	Mcep
	Str
	Mag
	NumStreams
)

var streamNames = [NumStreams]string{"dur", "lf0", "mgc", "str", "mag"}

func (s Stream) String() string {
	if s >= 0 && s < NumStreams {
		return streamNames[s]
	}
	return fmt.Sprintf("Stream(%d)", int(s))
}

// ParseStream maps a stream name (dur, lf0, mgc, str, mag) to its Stream.
func ParseStream(name string) (Stream, error) {
	for i, n := range streamNames {
		if n == name {
			return Stream(i), nil
		}
	}
	return 0, fmt.Errorf("acoustic: unknown stream %q", name)
}

// Streams lists all streams in order.
func Streams() []Stream {
	return []Stream{Dur, LF0, Mcep, Str, Mag}
}
