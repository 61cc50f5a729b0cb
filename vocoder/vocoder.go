// Package vocoder synthesizes speech from generated parameters with an MLSA
// filter driven by pulse, noise or mixed excitation.
package vocoder

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ieee0824/hts-go/internal/mathutil"
	"github.com/ieee0824/hts-go/paramgen"
)

var log = logging.MustGetLogger("vocoder")

// Vocoder holds the read-only synthesis setup. It is safe for concurrent
// use; every Synthesize call allocates its own filter state.
type Vocoder struct {
	cfg     Config
	filters [][]float64
}

// New creates a vocoder. filters is the mixed-excitation filter bank and may
// be nil.
func New(cfg Config, filters [][]float64) (*Vocoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for i, h := range filters {
		if len(h) == 0 || len(h) != len(filters[0]) {
			return nil, fmt.Errorf("%w: filter %d has %d taps", ErrFormat, i, len(h))
		}
	}
	return &Vocoder{cfg: cfg, filters: filters}, nil
}

// Config returns the synthesis settings.
func (v *Vocoder) Config() Config { return v.cfg }

// state is the per-call synthesis state.
type state struct {
	c, cc, cinc []float64
	mlsa        *mlsaFilter

	p1, pc float64 // current pitch period and phase, in samples
	rng    *rand.Rand
	gauss  bool

	mixed    bool
	hp, hn   []float64
	xp, xn   []float64
	fourier  bool
	pulse    []float64
	pulsePos int
}

func (st *state) noise() float64 {
	if st.gauss {
		u := st.rng.Float64()
		for u == 0 {
			u = st.rng.Float64()
		}
		return distuv.UnitNormal.Quantile(u)
	}
	if st.rng.Intn(2) == 0 {
		return -1
	}
	return 1
}

// shapeFilters mixes the band-pass filters by the band strengths: pulse
// bands weighted by str, noise bands by 1-str.
func (st *state) shapeFilters(h [][]float64, str []float64) {
	for j := range st.hp {
		st.hp[j], st.hn[j] = 0, 0
		for i, s := range str {
			st.hp[j] += s * h[i][j]
			st.hn[j] += (1 - s) * h[i][j]
		}
	}
}

// excitation returns the next excitation sample. mag is the Fourier
// magnitude row of the current frame, nil without magnitudes.
func (st *state) excitation(mag []float64) float64 {
	var x, xp, xn float64
	if st.p1 == 0 {
		x = st.noise()
		xn = x
	} else {
		st.pc++
		if st.pc >= st.p1 {
			if st.fourier {
				st.pulse = PulseFromFourierMagnitudes(mag, st.p1)
				st.pulsePos = 0
				x = st.pulse[0]
				st.pulsePos++
			} else {
				x = math.Sqrt(st.p1)
			}
			st.pc -= st.p1
		} else if st.fourier {
			if st.pulsePos < len(st.pulse) {
				x = st.pulse[st.pulsePos]
			}
			st.pulsePos++
		}
		xp = x
		if st.mixed {
			xn = st.noise()
		}
	}
	if !st.mixed {
		return x
	}
	var fxp, fxn float64
	for k := len(st.hp) - 1; k > 0; k-- {
		fxp += st.hp[k] * st.xp[k]
		fxn += st.hn[k] * st.xn[k]
		st.xp[k] = st.xp[k-1]
		st.xn[k] = st.xn[k-1]
	}
	fxp += st.hp[0] * xp
	fxn += st.hn[0] * xn
	st.xp[0] = xp
	st.xn[0] = xn
	return fxp + fxn
}

// Synthesize renders p into FramePeriod samples per frame.
func (v *Vocoder) Synthesize(p *paramgen.Params) ([]float64, error) {
	if len(p.Mcep) == 0 && p.NumFrames() > 0 {
		return nil, fmt.Errorf("mel-cepstrum: %w", ErrMissingStream)
	}
	if len(p.Mcep) != p.NumFrames() {
		return nil, fmt.Errorf("%w: %d mel-cepstrum frames for %d voicing flags", ErrFormat, len(p.Mcep), p.NumFrames())
	}
	if nv := p.NumVoiced(); len(p.LF0) < nv {
		return nil, fmt.Errorf("log F0 has %d values for %d voiced frames: %w", len(p.LF0), nv, ErrMissingStream)
	}
	T := len(p.Mcep)
	if T == 0 {
		return nil, nil
	}
	cfg := v.cfg
	order := len(p.Mcep[0])
	st := &state{
		c:     make([]float64, order),
		cc:    make([]float64, order),
		cinc:  make([]float64, order),
		mlsa:  newMLSAFilter(order-1, cfg.Alpha),
		p1:    -1,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		gauss: cfg.GaussianNoise,
	}
	if cfg.MixedExcitation && p.Str != nil && len(v.filters) > 0 {
		if len(v.filters) != len(p.Str[0]) {
			return nil, fmt.Errorf("%w: %d filters, %d strengths", ErrFilterMismatch, len(v.filters), len(p.Str[0]))
		}
		n := len(v.filters[0])
		st.mixed = true
		st.hp, st.hn = make([]float64, n), make([]float64, n)
		st.xp, st.xn = make([]float64, n), make([]float64, n)
		log.Debug("mixed excitation")
	}
	st.fourier = cfg.FourierMagnitudes && p.Mag != nil && len(p.Mag) == T
	if cfg.Beta != 0 {
		log.Debugf("postfilter beta %g", cfg.Beta)
	}

	lf0 := p.LF0
	var meanF0 float64
	if nv := p.NumVoiced(); nv > 0 {
		for _, l := range lf0[:nv] {
			meanF0 += math.Exp(l)
		}
		meanF0 /= float64(nv)
	}

	fprd := cfg.FramePeriod
	out := make([]float64, 0, T*fprd)
	mc := make([]float64, order)
	vi := 0
	for t := 0; t < T; t++ {
		copy(mc, p.Mcep[t])
		f0 := 0.0
		if p.Voiced[t] {
			f0 = cfg.F0Std*math.Exp(lf0[vi]) + (1-cfg.F0Std)*meanF0 + cfg.F0Mean
			f0 = math.Max(0, f0)
			vi++
		}
		if st.mixed {
			st.shapeFilters(v.filters, p.Str[t])
		}
		period := 0.0
		if f0 != 0 {
			period = float64(cfg.SampleRate) / f0
		}
		if st.p1 < 0 {
			st.p1 = period
			st.pc = period
		}

		Postfilter(mc, cfg.Alpha, cfg.Beta)
		MC2B(st.cc, mc, cfg.Alpha)
		for i := range st.cinc {
			st.cinc[i] = (st.cc[i] - st.c[i]) / float64(fprd)
		}
		inc := 0.0
		if st.p1 != 0 && period != 0 {
			inc = (period - st.p1) / float64(fprd)
		} else {
			st.pc = period
			st.p1 = 0
		}

		var mag []float64
		if st.fourier {
			mag = p.Mag[t]
		}
		for n := 0; n < fprd; n++ {
			x := st.excitation(mag)
			if x != 0 {
				x *= math.Exp(st.c[0])
			}
			out = append(out, st.mlsa.filter(x, st.c))
			st.p1 += inc
			for k := range st.c {
				st.c[k] += st.cinc[k]
			}
		}
		st.p1 = period
		copy(st.c, st.cc)
	}
	log.Infof("synthesized %d frames, %d samples", T, len(out))
	return out, nil
}

// VocodeMatrices synthesizes raw parameter matrices: per-frame log F0 with
// non-positive values unvoiced, and optional strengths and magnitudes.
func (v *Vocoder) VocodeMatrices(mcep mathutil.Mat, lf0 []float64, str, mag mathutil.Mat) ([]float64, error) {
	if len(lf0) != len(mcep) {
		return nil, fmt.Errorf("%w: %d log F0 frames for %d mel-cepstrum frames", ErrFormat, len(lf0), len(mcep))
	}
	p := &paramgen.Params{Mcep: mcep, Str: str, Mag: mag, Voiced: make([]bool, len(lf0))}
	for t, l := range lf0 {
		if l > 0 {
			p.Voiced[t] = true
			p.LF0 = append(p.LF0, l)
		}
	}
	if str != nil && len(str) != len(mcep) {
		return nil, fmt.Errorf("%w: %d strength frames for %d mel-cepstrum frames", ErrFormat, len(str), len(mcep))
	}
	return v.Synthesize(p)
}
