package paramgen

import "fmt"

// Window is a set of dynamic feature windows. Window 0 is the static
// window; each window is a coefficient list centered on the current frame.
type Window struct {
	coef  [][]float64
	left  []int
	right []int
}

// DefaultWindow returns the static, delta [-0.5 0 0.5] and delta-delta
// [1 -2 1] windows.
func DefaultWindow() *Window {
	w, _ := NewWindow([]float64{1}, []float64{-0.5, 0, 0.5}, []float64{1, -2, 1})
	return w
}

// NewWindow builds a window set from odd-length coefficient lists.
func NewWindow(coefs ...[]float64) (*Window, error) {
	if len(coefs) == 0 {
		return nil, fmt.Errorf("paramgen: no windows")
	}
	w := &Window{}
	for i, c := range coefs {
		if len(c)%2 == 0 {
			return nil, fmt.Errorf("paramgen: window %d has even length %d", i, len(c))
		}
		half := len(c) / 2
		w.coef = append(w.coef, append([]float64(nil), c...))
		w.left = append(w.left, -half)
		w.right = append(w.right, half)
	}
	return w, nil
}

// Num returns the number of windows.
func (w *Window) Num() int { return len(w.coef) }

// Left returns the leftmost offset of window i (<= 0).
func (w *Window) Left(i int) int { return w.left[i] }

// Right returns the rightmost offset of window i (>= 0).
func (w *Window) Right(i int) int { return w.right[i] }

// Coef returns the coefficient of window i at frame offset j, 0 outside the
// window.
func (w *Window) Coef(i, j int) float64 {
	if j < w.left[i] || j > w.right[i] {
		return 0
	}
	return w.coef[i][j-w.left[i]]
}

// Width returns the largest half width over all windows.
func (w *Window) Width() int {
	width := 0
	for i := range w.coef {
		width = max(width, -w.left[i], w.right[i])
	}
	return width
}

// Apply computes the observation vectors of a static trajectory:
// [T][D] -> [T][Num()*D]. Frames outside the utterance contribute nothing.
func (w *Window) Apply(static [][]float64) [][]float64 {
	T := len(static)
	if T == 0 {
		return nil
	}
	dim := len(static[0])
	n := w.Num()
	out := make([][]float64, T)
	buf := make([]float64, T*dim*n)
	for t := 0; t < T; t++ {
		row := buf[t*dim*n : (t+1)*dim*n]
		for i := 0; i < n; i++ {
			for j := w.left[i]; j <= w.right[i]; j++ {
				tj := t + j
				if tj < 0 || tj >= T {
					continue
				}
				c := w.Coef(i, j)
				for d := 0; d < dim; d++ {
					row[i*dim+d] += c * static[tj][d]
				}
			}
		}
		out[t] = row
	}
	return out
}
