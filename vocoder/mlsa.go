package vocoder

// padeOrder is the order of the Pade approximation of exp in the MLSA
// filter.
const padeOrder = 5

// pade holds the modified Pade coefficients of order 5.
var pade = [padeOrder + 1]float64{1.0, 0.4999391, 0.1107098, 0.01369984, 0.0009564853, 0.00003041721}

// mlsaFilter approximates exp(sum b[m] Phi_m(z)) for m >= 1 with two
// cascaded stages: one for b[1] and an FIR chain for b[2:].
type mlsaFilter struct {
	alpha float64
	order int // highest coefficient index

	d1   [padeOrder + 1]float64
	out1 [padeOrder + 1]float64

	fir  [padeOrder + 1][]float64
	out2 [padeOrder + 1]float64
}

func newMLSAFilter(order int, alpha float64) *mlsaFilter {
	f := &mlsaFilter{alpha: alpha, order: order}
	for i := 1; i <= padeOrder; i++ {
		f.fir[i] = make([]float64, order+2)
	}
	return f
}

// filter processes one sample; b[0] is ignored.
func (f *mlsaFilter) filter(x float64, b []float64) float64 {
	var b1 float64
	if len(b) > 1 {
		b1 = b[1]
	}
	return f.stage2(f.stage1(x, b1), b)
}

func (f *mlsaFilter) stage1(x, b1 float64) float64 {
	aa := 1 - f.alpha*f.alpha
	var y float64
	for i := padeOrder; i > 0; i-- {
		f.d1[i] = aa*f.out1[i-1] + f.alpha*f.d1[i]
		f.out1[i] = f.d1[i] * b1
		v := f.out1[i] * pade[i]
		if i&1 == 1 {
			x += v
		} else {
			x -= v
		}
		y += v
	}
	f.out1[0] = x
	return y + x
}

func (f *mlsaFilter) stage2(x float64, b []float64) float64 {
	var y float64
	for i := padeOrder; i > 0; i-- {
		f.out2[i] = f.firStep(f.fir[i], f.out2[i-1], b)
		v := f.out2[i] * pade[i]
		if i&1 == 1 {
			x += v
		} else {
			x -= v
		}
		y += v
	}
	f.out2[0] = x
	return y + x
}

// firStep runs one sample through the warped FIR sum b[m] Phi_m for
// m = 2..order. d has order+2 taps.
func (f *mlsaFilter) firStep(d []float64, x float64, b []float64) float64 {
	a := f.alpha
	m := f.order
	d[0] = x
	d[1] = (1-a*a)*d[0] + a*d[1]
	for i := 2; i <= m; i++ {
		d[i] += a * (d[i+1] - d[i-1])
	}
	var y float64
	for i := 2; i <= m; i++ {
		y += d[i] * b[i]
	}
	for i := m + 1; i > 1; i-- {
		d[i] = d[i-1]
	}
	return y
}
