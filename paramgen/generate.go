package paramgen

import (
	"fmt"

	"github.com/ieee0824/hts-go/acoustic"
	"github.com/ieee0824/hts-go/internal/mathutil"
)

// Option customizes a single Generate call.
type Option func(*options)

type options struct {
	window   *Window
	lf0      []float64
	external bool
}

// WithExternalLF0 replaces the generated voicing and log F0 with a
// per-frame contour; non-positive values are unvoiced.
func WithExternalLF0(contour []float64) Option {
	return func(o *options) {
		o.lf0 = contour
		o.external = true
	}
}

// WithWindow overrides the dynamic feature windows.
func WithWindow(w *Window) Option {
	return func(o *options) { o.window = w }
}

type frameState struct {
	model *acoustic.Model
	state int
}

func frameStates(utt *acoustic.Utterance) []frameState {
	out := make([]frameState, 0, utt.TotalFrames)
	for _, m := range utt.Models {
		for s, d := range m.Dur {
			for i := 0; i < d; i++ {
				out = append(out, frameState{model: m, state: s})
			}
		}
	}
	return out
}

// Generate computes the parameter trajectories of an utterance. gv may be
// nil.
func Generate(utt *acoustic.Utterance, gv *acoustic.GVModel, cfg Config, opts ...Option) (*Params, error) {
	o := options{window: DefaultWindow()}
	for _, opt := range opts {
		opt(&o)
	}
	frames := frameStates(utt)
	if len(frames) != utt.TotalFrames {
		return nil, fmt.Errorf("paramgen: utterance has %d frames, state durations sum to %d", utt.TotalFrames, len(frames))
	}
	T := len(frames)
	p := &Params{Voiced: make([]bool, T)}
	for t, f := range frames {
		p.Voiced[t] = f.model.Voiced[f.state]
	}

	for _, s := range []acoustic.Stream{acoustic.Mcep, acoustic.Str, acoustic.Mag} {
		ps, err := spectralStream(s, frames, o.window)
		if err != nil {
			return nil, err
		}
		if ps == nil {
			continue
		}
		if err := ps.MLPG(cfg.gvTarget(s, gv)); err != nil {
			return nil, err
		}
		switch s {
		case acoustic.Mcep:
			p.Mcep = ps.Par
		case acoustic.Str:
			p.Str = ps.Par
		case acoustic.Mag:
			p.Mag = ps.Par
		}
	}

	if o.external {
		contour, err := Align(o.lf0, T)
		if err != nil {
			return nil, err
		}
		p.Voiced, p.LF0 = splitContour(contour)
		log.Infof("generated %d frames, %d voiced from external log F0", T, p.NumVoiced())
		return p, nil
	}

	ps, err := lf0Stream(frames, p.Voiced, o.window)
	if err != nil {
		return nil, err
	}
	if ps != nil {
		if err := ps.MLPG(cfg.gvTarget(acoustic.LF0, gv)); err != nil {
			return nil, err
		}
		p.LF0 = mathutil.Column(ps.Par, 0, nil)
	}
	if hasTargets(utt) {
		if lf0, ok := TargetContour(utt, p.Voiced); ok {
			p.LF0 = lf0
		}
	}
	log.Infof("generated %d frames, %d voiced", T, p.NumVoiced())
	return p, nil
}

func spectralStream(s acoustic.Stream, frames []frameState, win *Window) (*PStream, error) {
	if len(frames) == 0 {
		return nil, nil
	}
	mean0, _ := frames[0].model.Pdfs(s)
	if len(mean0) == 0 || len(mean0[0]) == 0 {
		return nil, nil
	}
	T := len(frames)
	ps, err := NewPStream(s, len(mean0[0]), T, win)
	if err != nil {
		return nil, err
	}
	for t, f := range frames {
		mean, variance := f.model.Pdfs(s)
		if len(mean[f.state]) != ps.VSize || len(variance[f.state]) != ps.VSize {
			return nil, &StreamError{Stream: s, Dim: -1, Frame: t,
				Err: fmt.Errorf("%w: pdf size %d, want %d", acoustic.ErrFormat, len(mean[f.state]), ps.VSize)}
		}
		copy(ps.Mean[t], mean[f.state])
		for k, v := range variance[f.state] {
			if (t == 0 || t == T-1) && k >= ps.Order {
				ps.IVar[t][k] = 0
			} else {
				ps.IVar[t][k] = mathutil.Finv(v)
			}
		}
		if !f.model.GVSwitch {
			ps.SetGVSwitch(t, false)
		}
	}
	return ps, nil
}

// lf0Stream copies the log F0 pdfs of the voiced frames. A dynamic channel
// is only constrained when its whole window lies on voiced frames inside
// the utterance.
func lf0Stream(frames []frameState, voiced []bool, win *Window) (*PStream, error) {
	n := 0
	var vsize int
	for t, f := range frames {
		if voiced[t] {
			n++
			vsize = len(f.model.LF0Mean[f.state])
		}
	}
	if n == 0 {
		return nil, nil
	}
	ps, err := NewPStream(acoustic.LF0, vsize, n, win)
	if err != nil {
		return nil, err
	}
	T := len(frames)
	i := 0
	for t, f := range frames {
		if !voiced[t] {
			continue
		}
		mean, variance := f.model.LF0Mean[f.state], f.model.LF0Var[f.state]
		if len(mean) != vsize || len(variance) != vsize {
			return nil, &StreamError{Stream: acoustic.LF0, Dim: -1, Frame: t,
				Err: fmt.Errorf("%w: pdf size %d, want %d", acoustic.ErrFormat, len(mean), vsize)}
		}
		for k := 0; k < vsize; k++ {
			ps.Mean[i][k] = mean[k]
			if k < ps.Order || noBound(voiced, t, win.Left(k/ps.Order), win.Right(k/ps.Order), T) {
				ps.IVar[i][k] = mathutil.Finv(variance[k])
			}
		}
		if !f.model.GVSwitch {
			ps.SetGVSwitch(i, false)
		}
		i++
	}
	return ps, nil
}

func noBound(voiced []bool, t, left, right, T int) bool {
	for n := left; n <= right; n++ {
		if t+n <= 0 || t+n >= T || !voiced[t+n] {
			return false
		}
	}
	return true
}
