// Package paramgen generates smooth parameter trajectories from the
// state-level pdfs of an utterance: maximum likelihood parameter generation
// under dynamic-feature constraints, optionally followed by global variance
// compensation.
package paramgen

import (
	"errors"
	"fmt"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"

	"github.com/ieee0824/hts-go/acoustic"
	"github.com/ieee0824/hts-go/internal/mathutil"
)

var log = logging.MustGetLogger("paramgen")

// PStream is the generation problem of one stream. Mean and IVar hold the
// observation pdfs [T][VSize] laid out as static, delta and delta-delta
// blocks of Order values; Par receives the static trajectory [T][Order].
type PStream struct {
	Stream acoustic.Stream
	VSize  int
	Order  int
	T      int

	Mean mathutil.Mat
	IVar mathutil.Mat
	Par  mathutil.Mat

	GVSwitch []bool
	GVLength int

	win *Window
}

// NewPStream allocates a stream of T frames. A nil window means
// DefaultWindow.
func NewPStream(s acoustic.Stream, vsize, T int, win *Window) (*PStream, error) {
	if win == nil {
		win = DefaultWindow()
	}
	if vsize <= 0 || vsize%win.Num() != 0 {
		return nil, fmt.Errorf("paramgen: %s vector size %d is not a multiple of %d windows", s, vsize, win.Num())
	}
	ps := &PStream{
		Stream:   s,
		VSize:    vsize,
		Order:    vsize / win.Num(),
		T:        T,
		Mean:     mathutil.NewMat(T, vsize),
		IVar:     mathutil.NewMat(T, vsize),
		Par:      mathutil.NewMat(T, vsize/win.Num()),
		GVSwitch: make([]bool, T),
		GVLength: T,
		win:      win,
	}
	for t := range ps.GVSwitch {
		ps.GVSwitch[t] = true
	}
	return ps, nil
}

// SetGVSwitch includes or excludes frame t from the GV statistics.
func (ps *PStream) SetGVSwitch(t int, on bool) {
	if ps.GVSwitch[t] == on {
		return
	}
	ps.GVSwitch[t] = on
	if on {
		ps.GVLength++
	} else {
		ps.GVLength--
	}
}

// MLPG solves every static dimension. When gv is non-nil and at least one
// frame takes part in GV, the trajectory is then optimized towards the
// global variance pdf.
func (ps *PStream) MLPG(gv *GVTarget) error {
	if ps.T == 0 {
		return nil
	}
	log.Debugf("%s: %d frames, order %d", ps.Stream, ps.T, ps.Order)
	for m := 0; m < ps.Order; m++ {
		band, r := ps.system(m)
		if err := ps.solve(m, band, r); err != nil {
			return err
		}
		if gv != nil && ps.GVLength > 0 && m < len(gv.Mean) {
			ps.applyGV(m, band, r, gv)
		}
	}
	return nil
}

func (ps *PStream) bandwidth() int {
	k := 2 * ps.win.Width()
	if k > ps.T-1 {
		k = ps.T - 1
	}
	return k
}

// system builds R = W'U^-1W as upper band rows (band[t][j] = R[t][t+j]) and
// r = W'U^-1mu for dimension m.
func (ps *PStream) system(m int) (band mathutil.Mat, r []float64) {
	k := ps.bandwidth()
	band = mathutil.NewMat(ps.T, k+1)
	r = make([]float64, ps.T)
	for tau := 0; tau < ps.T; tau++ {
		for i := 0; i < ps.win.Num(); i++ {
			u := ps.IVar[tau][i*ps.Order+m]
			if u == 0 {
				continue
			}
			mu := ps.Mean[tau][i*ps.Order+m]
			for a := ps.win.Left(i); a <= ps.win.Right(i); a++ {
				t := tau + a
				ca := ps.win.Coef(i, a)
				if t < 0 || t >= ps.T || ca == 0 {
					continue
				}
				r[t] += ca * u * mu
				for b := a; b <= ps.win.Right(i); b++ {
					t2 := tau + b
					cb := ps.win.Coef(i, b)
					if t2 >= ps.T || cb == 0 || t2-t > k {
						continue
					}
					band[t][t2-t] += ca * cb * u
				}
			}
		}
	}
	return band, r
}

func (ps *PStream) solve(m int, band mathutil.Mat, r []float64) error {
	k := len(band[0]) - 1
	a := mat.NewSymBandDense(ps.T, k, nil)
	for t := range band {
		for j := 0; j <= k && t+j < ps.T; j++ {
			a.SetSymBand(t, t+j, band[t][j])
		}
	}
	var ch mat.BandCholesky
	if !ch.Factorize(a) {
		return &StreamError{Stream: ps.Stream, Dim: m, Frame: -1, Err: ErrSingular}
	}
	x := mat.NewVecDense(ps.T, nil)
	if err := ch.SolveVecTo(x, mat.NewVecDense(ps.T, r)); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return &StreamError{Stream: ps.Stream, Dim: m, Frame: -1, Err: err}
		}
		log.Warningf("%s dim %d: %v", ps.Stream, m, err)
	}
	for t := 0; t < ps.T; t++ {
		ps.Par[t][m] = x.AtVec(t)
	}
	return nil
}

func (ps *PStream) applyGV(m int, band mathutil.Mat, r []float64, gv *GVTarget) {
	o := &gvOptimizer{
		c:       mathutil.Column(ps.Par, m, nil),
		r:       r,
		g:       make([]float64, ps.T),
		band:    band,
		weights: make([]float64, ps.T),
		mean:    gv.Mean[m],
		ivar:    gv.IVar[m],
		w:       1 / float64(ps.win.Num()*ps.T),
		w2:      gv.Weight,
	}
	for t, on := range ps.GVSwitch {
		if on {
			o.weights[t] = 1
		}
	}
	switch gv.Method {
	case GVDerivative:
		o.runDerivative(gv.MaxIter)
		log.Debugf("%s dim %d: derivative GV, %d iterations", ps.Stream, m, gv.MaxIter)
	default:
		iters, ok := o.runGradient(gv.MaxIter)
		if !ok {
			log.Warningf("%s dim %d: gradient GV stopped after %d iterations", ps.Stream, m, iters)
		} else {
			log.Debugf("%s dim %d: gradient GV converged in %d iterations", ps.Stream, m, iters)
		}
	}
	mathutil.SetColumn(ps.Par, m, o.c)
}
