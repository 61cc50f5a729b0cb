package hts

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ieee0824/hts-go/acoustic"
	"github.com/ieee0824/hts-go/paramgen"
	"github.com/ieee0824/hts-go/vocoder"
)

// Config is the voice configuration, read from JSON. Stream keyed maps use
// the stream names dur, lf0, mgc, str and mag.
type Config struct {
	SampleRate    int     `json:"sample_rate"`
	FramePeriod   int     `json:"frame_period"` // samples
	Alpha         float64 `json:"alpha"`
	Beta          float64 `json:"beta"`
	Stage         int     `json:"stage"`
	Rho           float64 `json:"rho"`
	UV            float64 `json:"uv"`
	DurationScale float64 `json:"duration_scale"`
	F0Std         float64 `json:"f0_std"`
	F0Mean        float64 `json:"f0_mean"`

	UseMixedExcitation    bool  `json:"use_mixed_excitation"`
	UseFourierMagnitudes  bool  `json:"use_fourier_magnitudes"`
	UseGaussianNoise      bool  `json:"use_gaussian_noise"`
	Seed                  int64 `json:"seed"`
	UseGV                 bool  `json:"use_gv"`
	UseContextDependentGV bool  `json:"use_context_dependent_gv"`
	GVMethodGradient      bool  `json:"gv_method_gradient"`

	MaxGVIter    map[string]int     `json:"max_gv_iter"`
	GVWeight     map[string]float64 `json:"gv_weight"`
	NumFilters   int                `json:"num_filters"`
	PhoneFeature string             `json:"phone_feature"`

	FeatureDefinition string            `json:"feature_definition"`
	Trees             map[string]string `json:"trees"`
	PDFs              map[string]string `json:"pdfs"`
	GV                map[string]string `json:"gv"`
	GVSwitch          string            `json:"gv_switch"`
	MixFilters        string            `json:"mix_filters"`
	TrickyPhones      string            `json:"tricky_phones"`
	Compiled          string            `json:"compiled"`
}

// DefaultConfig returns the settings of a 16 kHz voice with 5 ms frames.
func DefaultConfig() Config {
	return Config{
		SampleRate:         16000,
		FramePeriod:        80,
		Alpha:              0.55,
		UV:                 0.5,
		DurationScale:      1.0,
		F0Std:              1.0,
		UseMixedExcitation: true,
		Seed:               1,
		GVMethodGradient:   true,
		MaxGVIter:          map[string]int{"lf0": 100, "mgc": 100, "str": 100, "mag": 100},
		GVWeight:           map[string]float64{"lf0": 1.0, "mgc": 1.0, "str": 1.0, "mag": 1.0},
		NumFilters:         5,
		PhoneFeature:       "phone",
	}
}

// LoadConfig reads a JSON voice config on top of DefaultConfig. Relative file
// paths are resolved against the directory of the config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.FeatureDefinition = abs(c.FeatureDefinition)
	c.GVSwitch = abs(c.GVSwitch)
	c.MixFilters = abs(c.MixFilters)
	c.TrickyPhones = abs(c.TrickyPhones)
	c.Compiled = abs(c.Compiled)
	for _, m := range []map[string]string{c.Trees, c.PDFs, c.GV} {
		for k, p := range m {
			m[k] = abs(p)
		}
	}
}

// Validate rejects unsupported or out-of-range settings.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Stage != 0:
		return bad("stage %d: only mel-cepstral voices (stage 0) are supported", c.Stage)
	case math.IsNaN(c.DurationScale) || c.DurationScale < 0.1 || c.DurationScale > 3:
		return bad("duration_scale %g out of range [0.1, 3]", c.DurationScale)
	case c.UseMixedExcitation && c.MixFilters != "" && c.NumFilters <= 0:
		return bad("num_filters %d must be positive", c.NumFilters)
	case c.FeatureDefinition == "" && c.Compiled == "" && c.Trees != nil:
		return bad("feature_definition is required with trees")
	}
	for _, m := range []map[string]string{c.Trees, c.PDFs, c.GV} {
		for k := range m {
			if _, err := acoustic.ParseStream(k); err != nil {
				return bad("%v", err)
			}
		}
	}
	for k := range c.MaxGVIter {
		if _, err := acoustic.ParseStream(k); err != nil {
			return bad("max_gv_iter: %v", err)
		}
	}
	for k := range c.GVWeight {
		if _, err := acoustic.ParseStream(k); err != nil {
			return bad("gv_weight: %v", err)
		}
	}
	if err := c.vocoderConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

func (c Config) framePeriodMs() float64 {
	return 1000 * float64(c.FramePeriod) / float64(c.SampleRate)
}

func (c Config) acousticConfig() acoustic.Config {
	ac := acoustic.DefaultConfig()
	ac.Rho = c.Rho
	ac.DurationScale = c.DurationScale
	ac.UV = c.UV
	ac.FramePeriodMs = c.framePeriodMs()
	ac.PhoneFeature = c.PhoneFeature
	ac.ContextDependentGV = c.UseContextDependentGV
	return ac
}

func (c Config) paramgenConfig() paramgen.Config {
	pc := paramgen.DefaultConfig()
	pc.UseGV = c.UseGV
	if !c.GVMethodGradient {
		pc.GVMethod = paramgen.GVDerivative
	}
	for k, n := range c.MaxGVIter {
		if s, err := acoustic.ParseStream(k); err == nil {
			pc.MaxGVIter[s] = n
		}
	}
	for k, w := range c.GVWeight {
		if s, err := acoustic.ParseStream(k); err == nil {
			pc.GVWeight[s] = w
		}
	}
	return pc
}

func (c Config) vocoderConfig() vocoder.Config {
	return vocoder.Config{
		SampleRate:        c.SampleRate,
		FramePeriod:       c.FramePeriod,
		Alpha:             c.Alpha,
		Beta:              c.Beta,
		F0Std:             c.F0Std,
		F0Mean:            c.F0Mean,
		MixedExcitation:   c.UseMixedExcitation,
		FourierMagnitudes: c.UseFourierMagnitudes,
		GaussianNoise:     c.UseGaussianNoise,
		Seed:              c.Seed,
	}
}

// VoiceFiles returns the HTS file set named by the config.
func (c Config) VoiceFiles() acoustic.VoiceFiles {
	files := acoustic.VoiceFiles{
		FeatureDefinition: c.FeatureDefinition,
		GVSwitch:          c.GVSwitch,
		TrickyPhones:      c.TrickyPhones,
	}
	for k, p := range c.Trees {
		if s, err := acoustic.ParseStream(k); err == nil {
			files.HTS.Trees[s] = p
		}
	}
	for k, p := range c.PDFs {
		if s, err := acoustic.ParseStream(k); err == nil {
			files.HTS.PDFs[s] = p
		}
	}
	for k, p := range c.GV {
		if s, err := acoustic.ParseStream(k); err == nil {
			files.GV[s] = p
		}
	}
	return files
}
