package vocoder

import "math"

// IRLength is the impulse response length used for energy estimates.
const IRLength = 96

// MC2B converts mel-cepstrum to MLSA filter coefficients. b and mc may
// alias.
func MC2B(b, mc []float64, alpha float64) {
	m := len(mc) - 1
	b[m] = mc[m]
	for i := m - 1; i >= 0; i-- {
		b[i] = mc[i] - alpha*b[i+1]
	}
}

// B2MC converts MLSA filter coefficients back to mel-cepstrum. mc and b may
// alias.
func B2MC(mc, b []float64, alpha float64) {
	m := len(b) - 1
	d := b[m]
	mc[m] = d
	for i := m - 1; i >= 0; i-- {
		o := b[i] + alpha*d
		d = b[i]
		mc[i] = o
	}
}

// Freqt warps cepstrum c1 by alpha and returns m2+1 coefficients.
func Freqt(c1 []float64, m2 int, alpha float64) []float64 {
	b := 1 - alpha*alpha
	g := make([]float64, m2+1)
	d := make([]float64, m2+1)
	for i := len(c1) - 1; i >= 0; i-- {
		copy(d, g)
		g[0] = c1[i] + alpha*d[0]
		if m2 >= 1 {
			g[1] = b*d[0] + alpha*d[1]
		}
		for j := 2; j <= m2; j++ {
			g[j] = d[j-1] + alpha*(d[j]-g[j-1])
		}
	}
	return g
}

// C2IR returns the first n samples of the minimum phase impulse response of
// cepstrum c.
func C2IR(c []float64, n int) []float64 {
	h := make([]float64, n)
	if n == 0 {
		return h
	}
	h[0] = math.Exp(c[0])
	for i := 1; i < n; i++ {
		upl := min(i, len(c)-1)
		var d float64
		for k := 1; k <= upl; k++ {
			d += float64(k) * c[k] * h[i-k]
		}
		h[i] = d / float64(i)
	}
	return h
}

// B2EN returns the energy of the impulse response of MLSA coefficients b.
func B2EN(b []float64, alpha float64) float64 {
	mc := make([]float64, len(b))
	B2MC(mc, b, alpha)
	ir := C2IR(Freqt(mc, IRLength-1, -alpha), IRLength)
	var en float64
	for _, v := range ir {
		en += v * v
	}
	return en
}

// Postfilter emphasizes the formant structure of mc in place while keeping
// its energy. It is a no-op for beta <= 0 or fewer than three coefficients.
func Postfilter(mc []float64, alpha, beta float64) {
	m := len(mc) - 1
	if beta <= 0 || m <= 1 {
		return
	}
	b := make([]float64, m+1)
	MC2B(b, mc, alpha)
	e1 := B2EN(b, alpha)
	b[1] -= beta * alpha * mc[2]
	for k := 2; k < m; k++ {
		b[k] *= 1 + beta
	}
	e2 := B2EN(b, alpha)
	b[0] += math.Log(e1/e2) / 2
	B2MC(mc, b, alpha)
}
