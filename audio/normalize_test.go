package audio

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	in := []float64{0.1, -0.4, 0.2}
	out := Normalize(in, DefaultPeak)
	if math.Abs(out[1]+DefaultPeak) > 1e-12 {
		t.Errorf("peak sample = %g, want %g", out[1], -DefaultPeak)
	}
	if math.Abs(out[0]-DefaultPeak/4) > 1e-12 {
		t.Errorf("out[0] = %g, want %g", out[0], DefaultPeak/4)
	}
	if in[1] != -0.4 {
		t.Error("input modified")
	}
}

func TestNormalizeSilenceAndLimits(t *testing.T) {
	out := Normalize([]float64{0, 0}, DefaultPeak)
	if out[0] != 0 || out[1] != 0 {
		t.Errorf("silence = %v", out)
	}
	out = Normalize([]float64{40, -20}, 2)
	if out[0] != 1 || out[1] != -0.5 {
		t.Errorf("peak above 1 = %v, want [1 -0.5]", out)
	}
	if len(Normalize(nil, 1)) != 0 {
		t.Error("nil input")
	}
}
