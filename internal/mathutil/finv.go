package mathutil

// Sentinels for the guarded reciprocal. Variances at or beyond Infty2 are
// treated as infinite (precision 0); variances at or below InvInf2 as zero
// (precision Infty).
const (
	Infty   = 1.0e+38
	Infty2  = 1.0e+19
	InvInf  = 1.0e-38
	InvInf2 = 1.0e-19
)

// LogZero stands in for log(0) in log-F0 and log-gain arithmetic.
const LogZero = -1.0e+10

// Finv returns 1/x with sentinel substitution at both magnitude extremes.
// NaN maps to 0 so an undefined variance never constrains the solve.
func Finv(x float64) float64 {
	switch {
	case x != x:
		return 0
	case x >= Infty2 || x <= -Infty2:
		return 0
	case x >= 0 && x <= InvInf2:
		return Infty
	case x < 0 && x >= -InvInf2:
		return -Infty
	}
	return 1.0 / x
}

// FinvVec applies Finv element-wise into dst.
func FinvVec(dst, src []float64) {
	for i, v := range src {
		dst[i] = Finv(v)
	}
}
