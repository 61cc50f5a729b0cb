package paramgen

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ieee0824/hts-go/internal/mathutil"
)

// alignSlack is the largest tolerated length difference, exclusive.
const alignSlack = 5

// ReadLF0 reads a contour of little-endian float32 log F0 values, one per
// frame. Non-positive values mark unvoiced frames.
func ReadLF0(r io.Reader) ([]float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read log F0: %w", err)
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("read log F0: size %d is not a multiple of 4", len(data))
	}
	out := make([]float64, len(data)/4)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return out, nil
}

// ReadLF0File reads a log F0 contour from path.
func ReadLF0File(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log F0: %w", err)
	}
	defer f.Close()
	return ReadLF0(f)
}

// Align fits a contour to totalFrames. Up to four frames of difference are
// tolerated: missing frames become unvoiced and extra frames are dropped.
func Align(contour []float64, totalFrames int) ([]float64, error) {
	diff := len(contour) - totalFrames
	if diff == 0 {
		return contour, nil
	}
	if diff >= alignSlack || diff <= -alignSlack {
		return nil, fmt.Errorf("%w: %d frames, utterance has %d", ErrAlignment, len(contour), totalFrames)
	}
	log.Warningf("log F0 contour has %d frames, utterance has %d", len(contour), totalFrames)
	out := make([]float64, totalFrames)
	n := copy(out, contour)
	for t := n; t < totalFrames; t++ {
		out[t] = mathutil.LogZero
	}
	return out, nil
}

// splitContour derives voicing and the voiced log F0 values of a per-frame
// contour.
func splitContour(contour []float64) (voiced []bool, lf0 []float64) {
	voiced = make([]bool, len(contour))
	for t, v := range contour {
		if v > 0 {
			voiced[t] = true
			lf0 = append(lf0, v)
		}
	}
	return voiced, lf0
}
