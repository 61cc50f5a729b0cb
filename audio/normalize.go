package audio

import "math"

// DefaultPeak is the peak level of synthesized speech.
const DefaultPeak = 17000.0 / 32768.0

// Normalize returns a copy of samples scaled so that the largest magnitude
// equals peak. Silence is returned unchanged.
func Normalize(samples []float64, peak float64) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)
	var top float64
	for _, s := range samples {
		if a := math.Abs(s); a > top {
			top = a
		}
	}
	if top == 0 || math.IsInf(top, 0) || math.IsNaN(top) {
		return out
	}
	g := math.Min(math.Abs(peak), 1) / top
	for i := range out {
		out[i] *= g
	}
	return out
}
