// Package hts synthesizes speech from phone feature vectors with an HMM
// voice: decision trees select state pdfs, parameter generation produces
// smooth trajectories and an MLSA vocoder renders the waveform.
package hts

import (
	"fmt"
	"os"

	"github.com/op/go-logging"

	"github.com/ieee0824/hts-go/acoustic"
	"github.com/ieee0824/hts-go/audio"
	"github.com/ieee0824/hts-go/feature"
	"github.com/ieee0824/hts-go/paramgen"
	"github.com/ieee0824/hts-go/vocoder"
)

var log = logging.MustGetLogger("hts")

// Synthesizer is the top-level speech synthesizer. It is safe for
// concurrent use once constructed.
type Synthesizer struct {
	Voice  *acoustic.Voice
	Config Config

	lf0File string
	lf0     []float64
	vocoder *vocoder.Vocoder
}

// Option configures a Synthesizer. Options are applied in order.
type Option func(*Synthesizer)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(s *Synthesizer) {
		s.Config = cfg
	}
}

// WithGV enables or disables global variance in parameter generation.
func WithGV(enabled bool) Option {
	return func(s *Synthesizer) {
		s.Config.UseGV = enabled
	}
}

// WithGVMethod selects the GV optimization method.
func WithGVMethod(m paramgen.GVMethod) Option {
	return func(s *Synthesizer) {
		s.Config.GVMethodGradient = m == paramgen.GVGradient
	}
}

// WithMixedExcitation enables or disables mixed excitation.
func WithMixedExcitation(enabled bool) Option {
	return func(s *Synthesizer) {
		s.Config.UseMixedExcitation = enabled
	}
}

// WithFourierMagnitudes enables pulses built from Fourier magnitudes.
func WithFourierMagnitudes(enabled bool) Option {
	return func(s *Synthesizer) {
		s.Config.UseFourierMagnitudes = enabled
	}
}

// WithPostfilter sets the postfilter strength (0 disables).
func WithPostfilter(beta float64) Option {
	return func(s *Synthesizer) {
		s.Config.Beta = beta
	}
}

// WithF0Control scales the F0 contour by std around its mean and shifts it
// by mean Hz.
func WithF0Control(std, mean float64) Option {
	return func(s *Synthesizer) {
		s.Config.F0Std = std
		s.Config.F0Mean = mean
	}
}

// WithDurationScale stretches (>1) or compresses (<1) phone durations.
func WithDurationScale(scale float64) Option {
	return func(s *Synthesizer) {
		s.Config.DurationScale = scale
	}
}

// WithRho sets the speaking rate control.
func WithRho(rho float64) Option {
	return func(s *Synthesizer) {
		s.Config.Rho = rho
	}
}

// WithLogF0File replaces the generated log F0 by the contour in path
// (little-endian float32 per frame, values <= 0 unvoiced).
func WithLogF0File(path string) Option {
	return func(s *Synthesizer) {
		s.lf0File = path
	}
}

// WithGaussianNoise uses Gaussian instead of binary noise excitation.
func WithGaussianNoise(enabled bool) Option {
	return func(s *Synthesizer) {
		s.Config.UseGaussianNoise = enabled
	}
}

// NewSynthesizer loads the voice named by the JSON config at configPath.
func NewSynthesizer(configPath string, opts ...Option) (*Synthesizer, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	s := &Synthesizer{Config: cfg}
	for _, opt := range opts {
		opt(s)
	}
	cfg = s.Config

	switch {
	case cfg.Compiled != "":
		f, err := os.Open(cfg.Compiled)
		if err != nil {
			return nil, fmt.Errorf("open compiled voice: %w", err)
		}
		defer f.Close()
		s.Voice, err = acoustic.ReadVoice(f)
		if err != nil {
			return nil, fmt.Errorf("load compiled voice: %w", err)
		}
	case cfg.FeatureDefinition != "":
		s.Voice, err = acoustic.LoadVoice(cfg.VoiceFiles())
		if err != nil {
			return nil, fmt.Errorf("load voice: %w", err)
		}
	default:
		return nil, ErrNoVoice
	}

	if cfg.MixFilters != "" && s.Voice.MixFilters == nil {
		s.Voice.MixFilters, err = vocoder.ReadMixFiltersFile(cfg.MixFilters, cfg.NumFilters)
		if err != nil {
			return nil, fmt.Errorf("load mixed excitation filters: %w", err)
		}
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSynthesizerFromVoice creates a Synthesizer from a loaded voice with the
// default configuration.
func NewSynthesizerFromVoice(v *acoustic.Voice, opts ...Option) (*Synthesizer, error) {
	s := &Synthesizer{Voice: v, Config: DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Synthesizer) init() error {
	if s.Voice == nil || s.Voice.Trees == nil {
		return ErrNoVoice
	}
	if err := s.Config.Validate(); err != nil {
		return err
	}
	var err error
	if s.lf0File != "" {
		if s.lf0, err = paramgen.ReadLF0File(s.lf0File); err != nil {
			return fmt.Errorf("load log F0: %w", err)
		}
	}
	s.vocoder, err = vocoder.New(s.Config.vocoderConfig(), s.Voice.MixFilters)
	return err
}

// Result is a synthesized utterance.
type Result struct {
	Samples     []float64 // normalized to [-1, 1]
	SampleRate  int
	FramePeriod int
	Utterance   *acoustic.Utterance
	Params      *paramgen.Params
}

// Synthesize renders one utterance. prosody is nil or has one entry per
// vector.
func (s *Synthesizer) Synthesize(vectors []feature.Vector, prosody []acoustic.Prosody) (*Result, error) {
	acfg := s.Config.acousticConfig()
	if s.Voice.GVOffPhones != nil {
		acfg.GVOffPhones = s.Voice.GVOffPhones
	}
	utt, err := s.Voice.Trees.Resolve(vectors, prosody, acfg)
	if err != nil {
		return nil, fmt.Errorf("resolve models: %w", err)
	}

	var opts []paramgen.Option
	if s.lf0 != nil {
		opts = append(opts, paramgen.WithExternalLF0(s.lf0))
	}
	params, err := paramgen.Generate(utt, s.Voice.GV, s.Config.paramgenConfig(), opts...)
	if err != nil {
		return nil, fmt.Errorf("generate parameters: %w", err)
	}

	samples, err := s.vocoder.Synthesize(params)
	if err != nil {
		return nil, fmt.Errorf("vocode: %w", err)
	}
	log.Debugf("synthesized %d samples from %d frames", len(samples), params.NumFrames())
	return &Result{
		Samples:     audio.Normalize(samples, audio.DefaultPeak),
		SampleRate:  s.Config.SampleRate,
		FramePeriod: s.Config.FramePeriod,
		Utterance:   utt,
		Params:      params,
	}, nil
}

// SynthesizeFile renders the phone feature vectors of a target feature file.
func (s *Synthesizer) SynthesizeFile(path string) (*Result, error) {
	def, vectors, err := feature.ReadFeatureFileFrom(path)
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	if !def.Equal(s.Voice.Trees.Def) {
		return nil, fmt.Errorf("%s: %w", path, ErrDefinitionMismatch)
	}
	return s.Synthesize(vectors, nil)
}

// WriteWAV writes the samples as a 16-bit mono WAV file.
func (r *Result) WriteWAV(path string) error {
	return audio.WriteWAVFile(path, r.Samples, r.SampleRate)
}

// WAVBytes returns the samples as an in-memory 16-bit WAV file.
func (r *Result) WAVBytes() ([]byte, error) {
	return audio.EncodeWAV(r.Samples, r.SampleRate)
}

// RealisedDurations lists the end time in seconds of every phone.
func (r *Result) RealisedDurations() string {
	return r.Utterance.RealisedDurations(float64(r.FramePeriod) / float64(r.SampleRate))
}

// RealisedF0 returns "(percent,Hz)..." targets for every phone.
func (r *Result) RealisedF0() []string {
	return paramgen.RealisedF0(r.Utterance, r.Params)
}
