package vocoder

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ieee0824/hts-go/internal/mathutil"
)

// ReadParams reads a little-endian float32 parameter matrix with dim values
// per frame.
func ReadParams(r io.Reader, dim int) (mathutil.Mat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrFormat, dim)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read params: %w", err)
	}
	if len(data)%(4*dim) != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d-dimensional frames", ErrFormat, len(data), dim)
	}
	m := mathutil.NewMat(len(data)/(4*dim), dim)
	for t := range m {
		for d := range m[t] {
			off := (t*dim + d) * 4
			m[t][d] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:])))
		}
	}
	return m, nil
}

// ReadParamsFile reads a parameter matrix from path.
func ReadParamsFile(path string, dim int) (mathutil.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open params: %w", err)
	}
	defer f.Close()
	return ReadParams(f, dim)
}
