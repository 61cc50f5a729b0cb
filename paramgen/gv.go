package paramgen

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ieee0824/hts-go/internal/mathutil"
)

// GVMethod selects the global variance optimization.
type GVMethod int

const (
	// GVGradient is Newton-diagonal steepest ascent with adaptive step size
	// and convergence checks.
	GVGradient GVMethod = iota
	// GVDerivative runs a fixed number of updates.
	GVDerivative
)

func (m GVMethod) String() string {
	switch m {
	case GVGradient:
		return "gradient"
	case GVDerivative:
		return "derivative"
	}
	return fmt.Sprintf("GVMethod(%d)", int(m))
}

// ParseGVMethod maps "gradient" or "derivative" to a GVMethod.
func ParseGVMethod(s string) (GVMethod, error) {
	switch s {
	case "gradient":
		return GVGradient, nil
	case "derivative":
		return GVDerivative, nil
	}
	return 0, fmt.Errorf("paramgen: unknown GV method %q", s)
}

// GVTarget is the global variance pdf of one stream and the optimization
// settings applied to it. IVar holds inverted variances.
type GVTarget struct {
	Method  GVMethod
	MaxIter int
	Weight  float64
	Mean    []float64
	IVar    []float64
}

const (
	gvEpsilon  = 1e-4
	minEucNorm = 1e-2
	stepInit   = 0.1
	stepDec    = 0.5
	stepInc    = 1.2
	maxDown    = 100
)

// gvOptimizer maximizes the HMM likelihood plus the weighted GV likelihood
// of one dimension c. band and r are the untouched MLPG system.
type gvOptimizer struct {
	c, r, g []float64
	band    mathutil.Mat
	weights []float64

	mean, ivar float64
	w, w2      float64
}

func (o *gvOptimizer) stats() (mean, variance float64) {
	return stat.PopMeanVariance(o.c, o.weights)
}

// convert scales the switched frames so that their variance matches the
// GV mean.
func (o *gvOptimizer) convert() {
	mu, v := o.stats()
	if v <= 0 || o.mean < 0 {
		return
	}
	ratio := math.Sqrt(o.mean / v)
	for t := range o.c {
		if o.weights[t] != 0 {
			o.c[t] = ratio*(o.c[t]-mu) + mu
		}
	}
}

// rc stores R*c in g.
func (o *gvOptimizer) rc() {
	T := len(o.c)
	k := len(o.band[0]) - 1
	for t := 0; t < T; t++ {
		s := o.band[t][0] * o.c[t]
		for j := 1; j <= k; j++ {
			if t+j < T {
				s += o.band[t][j] * o.c[t+j]
			}
			if t-j >= 0 {
				s += o.band[t-j][j] * o.c[t-j]
			}
		}
		o.g[t] = s
	}
}

// gradient stores the Newton-scaled gradient in g and returns the objective
// and the gradient norm.
func (o *gvOptimizer) gradient() (obj, norm float64) {
	mu, v := o.stats()
	T := float64(len(o.c))
	dv := v - o.mean
	gvObj := -0.5 * o.w2 * dv * o.ivar * dv
	vd := o.ivar * dv
	o.rc()
	var hmmObj float64
	for t, c := range o.c {
		hmmObj += -0.5 * o.w * c * (o.g[t] - 2*o.r[t])
		h := (T-1)*vd + 2*o.ivar*(c-mu)*(c-mu)
		h = -1 / (-o.w*o.band[t][0] - o.w2*2/(T*T)*h)
		grad := o.w * (o.r[t] - o.g[t])
		if o.weights[t] != 0 {
			grad += o.w2 * -2 / T * (c - mu) * vd
		}
		o.g[t] = h * grad
	}
	return hmmObj + gvObj, floats.Norm(o.g, 2)
}

// derivative is the hts_engine 1.04 update; the returned objective is
// negated.
func (o *gvOptimizer) derivative() float64 {
	mu, v := o.stats()
	T := float64(len(o.c))
	gvObj := -0.5 * o.w2 * v * o.ivar * (v - 2*o.mean)
	vd := -2 * o.ivar * (v - o.mean) / T
	o.rc()
	var hmmObj float64
	for t, c := range o.c {
		hmmObj += o.w * c * (o.r[t] - 0.5*o.g[t])
		h := -o.w*o.band[t][0] - o.w2*2/(T*T)*((T-1)*o.ivar*(v-o.mean)+2*o.ivar*(c-mu)*(c-mu))
		grad := o.w * (o.r[t] - o.g[t])
		if o.weights[t] != 0 {
			grad += o.w2 * vd * (c - mu)
		}
		o.g[t] = grad / h
	}
	return -(hmmObj + gvObj)
}

// runGradient returns the number of iterations and whether the objective
// converged. Hitting maxIter restores the maximum likelihood trajectory.
func (o *gvOptimizer) runGradient(maxIter int) (int, bool) {
	orig := append([]float64(nil), o.c...)
	o.convert()
	step := stepInit
	diag := make([]float64, len(o.c))
	var prev float64
	down := 0
	for iter := 1; iter <= maxIter; {
		obj, norm := o.gradient()
		if iter > 1 {
			if obj > prev {
				step *= stepInc
				down = 0
			}
			if obj < prev {
				// step back and retry with a shorter step
				floats.AddScaled(o.c, -step, diag)
				step *= stepDec
				floats.AddScaled(o.c, step, diag)
				down++
				if down < maxDown {
					continue
				}
				return iter, false
			}
		}
		if norm < minEucNorm || (iter > 1 && math.Abs(obj-prev) < gvEpsilon) {
			return iter, true
		}
		floats.AddScaled(o.c, step, o.g)
		copy(diag, o.g)
		prev = obj
		iter++
	}
	copy(o.c, orig)
	return maxIter, false
}

func (o *gvOptimizer) runDerivative(maxIter int) {
	o.convert()
	step := stepInit
	prev := -mathutil.LogZero
	for iter := 0; iter < maxIter; iter++ {
		obj := o.derivative()
		if obj > prev {
			step *= stepDec
		}
		if obj < prev {
			step *= stepInc
		}
		floats.AddScaled(o.c, step, o.g)
		prev = obj
	}
}
