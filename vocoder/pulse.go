package vocoder

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// PulseFromFourierMagnitudes builds one excitation pulse whose harmonic
// amplitudes follow mag; harmonics beyond len(mag) have unit amplitude and
// DC is removed. The pulse is centered len(mag) samples in and scaled by
// the square root of the rounded pitch period.
func PulseFromFourierMagnitudes(mag []float64, period float64) []float64 {
	p := int(math.Round(period))
	n := 512
	if p >= 512 {
		n = 1024
	}
	h := min(len(mag), n/2)
	spectrum := make([]complex128, n)
	for i := 1; i < n; i++ {
		spectrum[i] = 1
	}
	for i := 1; i <= h; i++ {
		spectrum[i] = complex(mag[i-1], 0)
		spectrum[n-i] = spectrum[i]
	}
	x := fft.IFFT(spectrum)
	g := math.Sqrt(float64(p))
	out := make([]float64, n)
	for i := range out {
		out[i] = real(x[((i-h)%n+n)%n]) * g
	}
	return out
}
