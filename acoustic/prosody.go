package acoustic

import (
	"fmt"
	"strconv"
	"strings"
)

// F0Target is a pitch target at a relative position (0..100) of the voiced
// frames of a phone.
type F0Target struct {
	Percent int
	Hz      float64
}

// Prosody carries externally specified prosody for one phone. A zero
// DurationMs keeps the generated duration. Boundary marks a pause whose
// duration is rescaled as a whole.
type Prosody struct {
	DurationMs float64
	Boundary   bool
	F0         []F0Target
}

// ParseF0Targets parses "(percent,Hz)(percent,Hz)..." as produced by
// prosody markup.
func ParseF0Targets(s string) ([]F0Target, error) {
	var targets []F0Target
	rest := strings.TrimSpace(s)
	for rest != "" {
		if rest[0] != '(' {
			return nil, fmt.Errorf("acoustic: f0 targets %q: expected (", s)
		}
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return nil, fmt.Errorf("acoustic: f0 targets %q: missing )", s)
		}
		pos, hz, ok := strings.Cut(rest[1:end], ",")
		if !ok {
			return nil, fmt.Errorf("acoustic: f0 target %q: expected percent,Hz", rest[:end+1])
		}
		p, err := strconv.Atoi(strings.TrimSpace(pos))
		if err != nil || p < 0 || p > 100 {
			return nil, fmt.Errorf("acoustic: f0 target %q: bad position", rest[:end+1])
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(hz), 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("acoustic: f0 target %q: bad frequency", rest[:end+1])
		}
		targets = append(targets, F0Target{Percent: p, Hz: f})
		rest = strings.TrimSpace(rest[end+1:])
	}
	return targets, nil
}

// FormatF0Targets is the inverse of ParseF0Targets with integer frequencies.
func FormatF0Targets(targets []F0Target) string {
	var b strings.Builder
	for _, t := range targets {
		fmt.Fprintf(&b, "(%d,%d)", t.Percent, int(t.Hz))
	}
	return b.String()
}
