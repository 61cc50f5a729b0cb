package paramgen

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/ieee0824/hts-go/acoustic"
	"github.com/ieee0824/hts-go/internal/mathutil"
)

// Params is the generated parameter set of an utterance. Spectral streams
// are [T][order]; LF0 holds one log F0 value per voiced frame in frame
// order. Str and Mag are nil when the voice does not model them.
type Params struct {
	Mcep   mathutil.Mat
	Str    mathutil.Mat
	Mag    mathutil.Mat
	LF0    []float64
	Voiced []bool
}

// NumFrames returns the utterance length in frames.
func (p *Params) NumFrames() int { return len(p.Voiced) }

// NumVoiced returns the number of voiced frames.
func (p *Params) NumVoiced() int {
	n := 0
	for _, v := range p.Voiced {
		if v {
			n++
		}
	}
	return n
}

// LF0Frames returns the log F0 of every frame, LogZero when unvoiced.
func (p *Params) LF0Frames() []float64 {
	out := make([]float64, len(p.Voiced))
	i := 0
	for t, v := range p.Voiced {
		out[t] = mathutil.LogZero
		if v && i < len(p.LF0) {
			out[t] = p.LF0[i]
			i++
		}
	}
	return out
}

// F0Hz returns the F0 of every frame in Hz, 0 when unvoiced.
func (p *Params) F0Hz() []float64 {
	out := p.LF0Frames()
	for t, v := range p.Voiced {
		if v {
			out[t] = math.Exp(out[t])
		} else {
			out[t] = 0
		}
	}
	return out
}

// Matrix returns the trajectory of stream s as [T][order]; log F0 is one
// column with LogZero on unvoiced frames.
func (p *Params) Matrix(s acoustic.Stream) mathutil.Mat {
	switch s {
	case acoustic.Mcep:
		return p.Mcep
	case acoustic.Str:
		return p.Str
	case acoustic.Mag:
		return p.Mag
	case acoustic.LF0:
		lf0 := p.LF0Frames()
		m := mathutil.NewMat(len(lf0), 1)
		mathutil.SetColumn(m, 0, lf0)
		return m
	}
	return nil
}

// WriteFloat32 writes stream s as little-endian float32 values, frame by
// frame.
func (p *Params) WriteFloat32(w io.Writer, s acoustic.Stream) error {
	m := p.Matrix(s)
	if m == nil {
		return fmt.Errorf("write %s: %w", s, acoustic.ErrMissingStream)
	}
	bw := bufio.NewWriter(w)
	buf := make([]byte, 4)
	for _, row := range m {
		for _, v := range row {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
			if _, err := bw.Write(buf); err != nil {
				return fmt.Errorf("write %s: %w", s, err)
			}
		}
	}
	return bw.Flush()
}
