package acoustic

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ieee0824/hts-go/internal/mathutil"
)

const (
	maxPdfCount   = 1 << 24
	maxVectorSize = 1 << 12
)

// PDF is one leaf distribution. For duration pdfs Mean and Var hold one value
// per HMM state; for log F0 one value per MSD stream.
type PDF struct {
	Mean         []float64
	Var          []float64
	VoicedWeight float64
}

// PDFSet holds the pdfs of one stream indexed by [state][pdf]. Duration pdfs
// are stored in a single state row.
type PDFSet struct {
	Stream     Stream
	NumStates  int
	VectorSize int
	PDFs       [][]PDF
}

// ReadPDF reads an HTS pdf file (big-endian). numStates is the number of
// emitting states of the voice; it is ignored for duration files, whose
// header defines it.
func ReadPDF(r io.Reader, stream Stream, numStates int) (*PDFSet, error) {
	br := bufio.NewReader(r)
	var hdr [3]int32 // msd flag, stream count, vector size
	if err := binary.Read(br, binary.BigEndian, &hdr); err != nil {
		return nil, readErr(stream, "header", err)
	}
	numStream, vsize := int(hdr[1]), int(hdr[2])

	set := &PDFSet{Stream: stream, NumStates: numStates}
	switch stream {
	case Dur:
		if numStream <= 0 || numStream > maxVectorSize {
			return nil, fmt.Errorf("%w: %s: %d HMM states", ErrFormat, stream, numStream)
		}
		set.NumStates, set.VectorSize = numStream, numStream
		var n int32
		if err := binary.Read(br, binary.BigEndian, &n); err != nil {
			return nil, readErr(stream, "pdf count", err)
		}
		if n < 0 || n > maxPdfCount {
			return nil, fmt.Errorf("%w: %s: %d pdfs", ErrFormat, stream, n)
		}
		set.PDFs = [][]PDF{make([]PDF, n)}
		buf := make([]float32, 2*numStream)
		for i := range set.PDFs[0] {
			if err := binary.Read(br, binary.BigEndian, buf); err != nil {
				return nil, readErr(stream, fmt.Sprintf("pdf %d", i), err)
			}
			set.PDFs[0][i] = interleaved(buf)
		}
		return set, nil
	case LF0:
		if numStream <= 0 || numStream > maxVectorSize {
			return nil, fmt.Errorf("%w: %s: %d MSD streams", ErrFormat, stream, numStream)
		}
		set.VectorSize = numStream
	default:
		if vsize <= 0 || vsize > maxVectorSize {
			return nil, fmt.Errorf("%w: %s: vector size %d", ErrFormat, stream, vsize)
		}
		set.VectorSize = vsize
	}
	if numStates <= 0 {
		return nil, fmt.Errorf("%w: %s: %d states", ErrFormat, stream, numStates)
	}

	counts := make([]int32, numStates)
	if err := binary.Read(br, binary.BigEndian, counts); err != nil {
		return nil, readErr(stream, "pdf counts", err)
	}
	set.PDFs = make([][]PDF, numStates)
	for s, n := range counts {
		if n < 0 || n > maxPdfCount {
			return nil, fmt.Errorf("%w: %s state %d: %d pdfs", ErrFormat, stream, s, n)
		}
		set.PDFs[s] = make([]PDF, n)
	}

	if stream == LF0 {
		buf := make([]float32, 4)
		for s := range set.PDFs {
			for i := range set.PDFs[s] {
				p := PDF{Mean: make([]float64, numStream), Var: make([]float64, numStream)}
				for k := 0; k < numStream; k++ {
					if err := binary.Read(br, binary.BigEndian, buf); err != nil {
						return nil, readErr(stream, fmt.Sprintf("state %d pdf %d", s, i), err)
					}
					vw, uvw := float64(buf[2]), float64(buf[3])
					if vw < 0 || uvw < 0 || vw+uvw < 0.99 || vw+uvw > 1.01 {
						return nil, fmt.Errorf("%w: %s state %d pdf %d: voiced/unvoiced weights %g/%g", ErrFormat, stream, s, i, vw, uvw)
					}
					p.Mean[k], p.Var[k] = float64(buf[0]), float64(buf[1])
					if k == 0 {
						p.VoicedWeight = vw
					}
				}
				set.PDFs[s][i] = p
			}
		}
		return set, nil
	}

	buf := make([]float32, 2*vsize)
	for s := range set.PDFs {
		for i := range set.PDFs[s] {
			if err := binary.Read(br, binary.BigEndian, buf); err != nil {
				return nil, readErr(stream, fmt.Sprintf("state %d pdf %d", s, i), err)
			}
			set.PDFs[s][i] = interleaved(buf)
		}
	}
	return set, nil
}

// interleaved splits mean/variance pairs.
func interleaved(buf []float32) PDF {
	n := len(buf) / 2
	p := PDF{Mean: make([]float64, n), Var: make([]float64, n)}
	for k := 0; k < n; k++ {
		p.Mean[k], p.Var[k] = float64(buf[2*k]), float64(buf[2*k+1])
	}
	return p
}

func readErr(stream Stream, where string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s: truncated %s", ErrFormat, stream, where)
	}
	return fmt.Errorf("read %s pdf %s: %w", stream, where, err)
}

// WritePDF writes set in the format read by ReadPDF.
func WritePDF(w io.Writer, set *PDFSet) error {
	pw := &pdfWriter{w: bufio.NewWriter(w)}
	msd, numStream, vsize := int32(0), int32(1), int32(set.VectorSize)
	switch set.Stream {
	case Dur:
		numStream = int32(set.NumStates)
	case LF0:
		msd, numStream, vsize = 1, int32(set.VectorSize), 1
	}
	pw.put([3]int32{msd, numStream, vsize})
	if set.Stream == Dur {
		pw.put(int32(len(set.PDFs[0])))
	} else {
		for _, row := range set.PDFs {
			pw.put(int32(len(row)))
		}
	}
	for _, row := range set.PDFs {
		for _, p := range row {
			for k := range p.Mean {
				if set.Stream == LF0 {
					vw := p.VoicedWeight
					pw.put([4]float32{float32(p.Mean[k]), float32(p.Var[k]), float32(vw), float32(1 - vw)})
					continue
				}
				pw.put([2]float32{float32(p.Mean[k]), float32(p.Var[k])})
			}
		}
	}
	if pw.err != nil {
		return pw.err
	}
	return pw.w.Flush()
}

type pdfWriter struct {
	w   *bufio.Writer
	err error
}

func (p *pdfWriter) put(v any) {
	if p.err == nil {
		p.err = binary.Write(p.w, binary.BigEndian, v)
	}
}

// ReadGV reads a global variance file: a header of four int32 values
// (msd flag, stream count, vector size, duration pdf count) followed by one
// (mean, variance) float32 pair per dimension. The variance is returned
// inverted.
func ReadGV(r io.Reader, stream Stream) (mean, ivar []float64, err error) {
	br := bufio.NewReader(r)
	var hdr [4]int32
	if err := binary.Read(br, binary.BigEndian, &hdr); err != nil {
		return nil, nil, readErr(stream, "GV header", err)
	}
	vsize := int(hdr[2])
	if vsize <= 0 || vsize > maxVectorSize {
		return nil, nil, fmt.Errorf("%w: %s GV: vector size %d", ErrFormat, stream, vsize)
	}
	buf := make([]float32, 2*vsize)
	if err := binary.Read(br, binary.BigEndian, buf); err != nil {
		return nil, nil, readErr(stream, "GV data", err)
	}
	p := interleaved(buf)
	mathutil.FinvVec(p.Var, p.Var)
	return p.Mean, p.Var, nil
}

// ReadGVSwitch reads the list of phones for which GV is switched off, one per
// line; '#' starts a comment line.
func ReadGVSwitch(r io.Reader) ([]string, error) {
	var phones []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		phones = append(phones, strings.Fields(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return phones, nil
}
