package vocoder

import (
	"fmt"
	"math"
)

// Config holds the synthesis settings.
type Config struct {
	SampleRate  int
	FramePeriod int     // samples per frame
	Alpha       float64 // all-pass constant of the mel-cepstrum
	Beta        float64 // postfilter strength, 0 disables

	F0Std  float64 // scales the F0 contour around its mean
	F0Mean float64 // Hz added to every voiced frame

	MixedExcitation   bool
	FourierMagnitudes bool
	GaussianNoise     bool
	Seed              int64
}

// DefaultConfig returns the settings for a 16 kHz voice with 5 ms frames.
func DefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		FramePeriod:     80,
		Alpha:           0.55,
		F0Std:           1.0,
		MixedExcitation: true,
		Seed:            1,
	}
}

// Validate checks that every setting is in range.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("vocoder: sample rate %d must be positive", c.SampleRate)
	case c.FramePeriod <= 0:
		return fmt.Errorf("vocoder: frame period %d must be positive", c.FramePeriod)
	case math.IsNaN(c.Alpha) || math.Abs(c.Alpha) >= 1:
		return fmt.Errorf("vocoder: alpha %g out of range (-1, 1)", c.Alpha)
	case math.IsNaN(c.Beta) || c.Beta < 0 || c.Beta > 1:
		return fmt.Errorf("vocoder: beta %g out of range [0, 1]", c.Beta)
	case math.IsNaN(c.F0Std) || c.F0Std < 0 || c.F0Std > 3:
		return fmt.Errorf("vocoder: f0 std %g out of range [0, 3]", c.F0Std)
	case math.IsNaN(c.F0Mean) || c.F0Mean < -300 || c.F0Mean > 300:
		return fmt.Errorf("vocoder: f0 mean %g out of range [-300, 300]", c.F0Mean)
	}
	return nil
}
