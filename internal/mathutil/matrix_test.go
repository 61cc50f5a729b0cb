package mathutil

import "testing"

func TestNewMat(t *testing.T) {
	m := NewMat(3, 4)
	if len(m) != 3 {
		t.Fatalf("rows = %d, want 3", len(m))
	}
	for i, row := range m {
		if len(row) != 4 {
			t.Fatalf("row %d cols = %d, want 4", i, len(row))
		}
	}
	// Appending to a row must not clobber the next one.
	m[0] = append(m[0], 9)
	if m[1][0] != 0 {
		t.Errorf("m[1][0] = %f after append to row 0, want 0", m[1][0])
	}
}

func TestColumnRoundTrip(t *testing.T) {
	m := NewMat(3, 2)
	SetColumn(m, 1, []float64{1, 2, 3})
	col := Column(m, 1, nil)
	for i, want := range []float64{1, 2, 3} {
		if col[i] != want {
			t.Errorf("col[%d] = %f, want %f", i, col[i], want)
		}
		if m[i][0] != 0 {
			t.Errorf("m[%d][0] = %f, want 0", i, m[i][0])
		}
	}
}
