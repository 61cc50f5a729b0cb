package mathutil

import (
	"math"
	"testing"
)

func TestFinvSentinels(t *testing.T) {
	tests := []struct {
		x    float64
		want float64
	}{
		{Infty2, 0},
		{-Infty2, 0},
		{1e30, 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
		{0, Infty},
		{InvInf2, Infty},
		{1e-25, Infty},
		{-InvInf2, -Infty},
		{-1e-30, -Infty},
		{4, 0.25},
		{-2, -0.5},
	}
	for _, tt := range tests {
		if got := Finv(tt.x); got != tt.want {
			t.Errorf("Finv(%g) = %g, want %g", tt.x, got, tt.want)
		}
	}
}

func TestFinvNaN(t *testing.T) {
	if got := Finv(math.NaN()); got != 0 {
		t.Errorf("Finv(NaN) = %g, want 0", got)
	}
}

func TestFinvInvolution(t *testing.T) {
	// Strictly between the inner and outer thresholds finv is its own inverse.
	for _, x := range []float64{1e-18, 3.5e-7, 0.01, 1, 42, 7.5e8, 9e18, -1e-18, -0.3, -6e17} {
		got := Finv(Finv(x))
		if math.Abs(got-x) > 1e-12*math.Abs(x) {
			t.Errorf("Finv(Finv(%g)) = %g", x, got)
		}
	}
}

func TestFinvVec(t *testing.T) {
	src := []float64{2, 0, 1e20}
	dst := make([]float64, 3)
	FinvVec(dst, src)
	want := []float64{0.5, Infty, 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %g, want %g", i, dst[i], want[i])
		}
	}
}
