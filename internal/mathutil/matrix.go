package mathutil

// Mat is a 2D float64 matrix stored as row-major [][]float64.
type Mat = [][]float64

// NewMat creates a rows x cols matrix initialized to zero.
// All rows share one backing array.
func NewMat(rows, cols int) Mat {
	m := make(Mat, rows)
	data := make([]float64, rows*cols)
	for i := range m {
		m[i] = data[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return m
}

// Column copies column j of m into dst (allocated when too short) and returns it.
func Column(m Mat, j int, dst []float64) []float64 {
	if cap(dst) < len(m) {
		dst = make([]float64, len(m))
	}
	dst = dst[:len(m)]
	for i := range m {
		dst[i] = m[i][j]
	}
	return dst
}

// SetColumn writes src into column j of m.
func SetColumn(m Mat, j int, src []float64) {
	for i := range m {
		m[i][j] = src[i]
	}
}

