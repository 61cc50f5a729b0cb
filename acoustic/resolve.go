package acoustic

import (
	"fmt"
	"math"

	"github.com/ieee0824/hts-go/feature"
)

// Config controls utterance model construction.
type Config struct {
	Rho           float64 // speaking rate control, added as rho*variance to duration means
	DurationScale float64
	UV            float64 // voicing threshold on the leaf voiced weight
	FramePeriodMs float64
	PhoneFeature  string

	ContextDependentGV bool
	GVOffPhones        []string
}

// DefaultConfig returns the settings of a 16 kHz voice with 80-sample frames.
func DefaultConfig() Config {
	return Config{
		DurationScale: 1.0,
		UV:            0.5,
		FramePeriodMs: 5,
		PhoneFeature:  "phone",
		GVOffPhones:   []string{"_"},
	}
}

// ResolveDuration selects the duration pdf for v and fills m.Dur. Each state
// gets (mean + rho*var) * durationScale frames, rounded with the fractional
// remainder carried between states; the updated carry is returned and must
// be threaded through all phones of the utterance.
func (ts *TreeSet) ResolveDuration(m *Model, v feature.Vector, cfg Config, carry float64) (float64, error) {
	if !ts.Has(Dur) {
		return carry, ErrMissingStream
	}
	leaf, err := ts.Trees[Dur][0].Resolve(v)
	if err != nil {
		return carry, err
	}
	if len(leaf.Mean) < ts.NumStates {
		return carry, fmt.Errorf("%w: duration leaf %s has %d states", ErrFormat, leaf.Name, len(leaf.Mean))
	}
	m.TotalDur = 0
	for s := 0; s < ts.NumStates; s++ {
		data := (leaf.Mean[s] + cfg.Rho*leaf.Var[s]) * cfg.DurationScale
		d := int(data + carry + 0.5)
		if d < 1 {
			d = 1
		}
		m.Dur[s] = d
		m.TotalDur += d
		carry += data - float64(d)
	}
	return carry, nil
}

// ResolveLF0 selects the log F0 pdfs of every state and marks a state voiced
// when its leaf voiced weight exceeds uv.
func (ts *TreeSet) ResolveLF0(m *Model, v feature.Vector, uv float64) error {
	for s := 0; s < ts.NumStates; s++ {
		leaf, err := ts.Trees[LF0][s].Resolve(v)
		if err != nil {
			return stateErr(s, err)
		}
		m.LF0Mean[s] = leaf.Mean
		m.LF0Var[s] = leaf.Var
		m.Voiced[s] = leaf.VoicedWeight > uv
	}
	return nil
}

// ResolveStream selects the pdfs of every state for mcep, str or mag.
func (ts *TreeSet) ResolveStream(m *Model, v feature.Vector, s Stream) error {
	mean, variance := m.Pdfs(s)
	if mean == nil || s == LF0 {
		return fmt.Errorf("acoustic: ResolveStream on %s", s)
	}
	for state := 0; state < ts.NumStates; state++ {
		leaf, err := ts.Trees[s][state].Resolve(v)
		if err != nil {
			return stateErr(state, err)
		}
		if len(leaf.Mean) != ts.VectorSize[s] {
			return stateErr(state, fmt.Errorf("%w: leaf %s has %d dimensions, want %d", ErrFormat, leaf.Name, len(leaf.Mean), ts.VectorSize[s]))
		}
		mean[state] = leaf.Mean
		variance[state] = leaf.Var
	}
	return nil
}

type stateError struct {
	state int
	err   error
}

func (e *stateError) Error() string { return e.err.Error() }
func (e *stateError) Unwrap() error { return e.err }

func stateErr(state int, err error) error { return &stateError{state, err} }

// Resolve builds the utterance model for a sequence of phone feature
// vectors. prosody is either nil or has one entry per vector.
func (ts *TreeSet) Resolve(vectors []feature.Vector, prosody []Prosody, cfg Config) (*Utterance, error) {
	if prosody != nil && len(prosody) != len(vectors) {
		return nil, fmt.Errorf("%w: %d prosody entries for %d phones", ErrProsody, len(prosody), len(vectors))
	}
	for _, s := range []Stream{Dur, LF0, Mcep} {
		if !ts.Has(s) {
			return nil, fmt.Errorf("%w: %s", ErrMissingStream, s)
		}
	}
	phoneIdx, err := ts.Def.FeatureIndex(cfg.PhoneFeature)
	if err != nil {
		return nil, err
	}
	gvOff := make(map[string]bool, len(cfg.GVOffPhones))
	for _, p := range cfg.GVOffPhones {
		gvOff[p] = true
	}

	utt := &Utterance{NumStates: ts.NumStates}
	carry := 0.0
	for i, v := range vectors {
		m := newModel(ts.NumStates)
		fail := func(s Stream, err error) error {
			re := &ResolveError{Phone: i, Name: m.Name, Stream: s, State: -1, Err: err}
			if se, ok := err.(*stateError); ok {
				re.State, re.Err = se.state, se.err
			}
			return re
		}
		if len(v.Bytes) != ts.Def.NumByteFeatures() || len(v.Shorts) != ts.Def.NumShortFeatures() || len(v.Floats) != ts.Def.NumContinuousFeatures() {
			return nil, fail(Dur, fmt.Errorf("%w: feature vector does not match the voice definition", feature.ErrFormat))
		}
		x, _ := v.Discrete(phoneIdx)
		m.Name = ts.Def.ValueString(phoneIdx, x)
		if cfg.ContextDependentGV && gvOff[m.Name] {
			m.GVSwitch = false
		}
		if prosody != nil {
			m.Prosody = prosody[i]
		}

		if carry, err = ts.ResolveDuration(m, v, cfg, carry); err != nil {
			return nil, fail(Dur, err)
		}
		m.applyDuration(cfg.FramePeriodMs)
		utt.TotalFrames += m.TotalDur

		if err := ts.ResolveLF0(m, v, cfg.UV); err != nil {
			return nil, fail(LF0, err)
		}
		for _, s := range []Stream{Mcep, Str, Mag} {
			if !ts.Has(s) {
				continue
			}
			if err := ts.ResolveStream(m, v, s); err != nil {
				return nil, fail(s, err)
			}
		}
		for s, voiced := range m.Voiced {
			if voiced {
				m.NumVoiced += m.Dur[s]
			}
		}
		utt.LF0Frames += m.NumVoiced
		utt.Models = append(utt.Models, m)
	}
	log.Infof("utterance: %d models, %d states, %d frames, %d voiced", len(utt.Models), len(utt.Models)*ts.NumStates, utt.TotalFrames, utt.LF0Frames)
	return utt, nil
}

// applyDuration rescales the generated state durations to an external
// phone or pause duration.
func (m *Model) applyDuration(framePeriodMs float64) {
	durMs := m.Prosody.DurationMs
	if durMs <= 0 || framePeriodMs <= 0 || m.TotalDur == 0 {
		return
	}
	total := float64(m.TotalDur)
	durFrames := math.Round(durMs / framePeriodMs)
	m.TotalDur = 0
	for k, d := range m.Dur {
		var n int
		if m.Prosody.Boundary {
			n = int(math.Round(float64(d) / total * durFrames))
		} else {
			n = int(math.Round(durMs * float64(d) / (total * framePeriodMs)))
		}
		if n < 1 {
			n = 1
		}
		m.Dur[k] = n
		m.TotalDur += n
	}
}
