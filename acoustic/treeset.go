// Package acoustic holds the HMM voice: decision trees with their state
// pdfs, duration generation and the utterance model built from a sequence
// of phone feature vectors.
package acoustic

import (
	"fmt"
	"os"

	"github.com/op/go-logging"

	"github.com/ieee0824/hts-go/cart"
	"github.com/ieee0824/hts-go/feature"
)

var log = logging.MustGetLogger("acoustic")

// TreeSet holds the decision trees of every stream, with pdf data attached
// to their leaves. It is read-only after loading and may be shared.
type TreeSet struct {
	Def        *feature.Definition
	NumStates  int
	Trees      [NumStreams][]*cart.Tree
	VectorSize [NumStreams]int
}

// NewTreeSet returns an empty tree set for def.
func NewTreeSet(def *feature.Definition, numStates int) *TreeSet {
	return &TreeSet{Def: def, NumStates: numStates}
}

// Has reports whether stream s is modeled.
func (ts *TreeSet) Has(s Stream) bool { return len(ts.Trees[s]) > 0 }

// SetStream attaches pdfs to the leaves of trees and installs them as stream
// s. The duration stream has a single tree whose leaves get one mean and
// variance per state; every other stream has one tree per state.
func (ts *TreeSet) SetStream(s Stream, trees []*cart.Tree, pdfs *PDFSet) error {
	want := ts.NumStates
	if s == Dur {
		want = 1
		if ts.NumStates == 0 {
			ts.NumStates = pdfs.NumStates
		}
		if pdfs.NumStates != ts.NumStates {
			return fmt.Errorf("%w: duration pdfs have %d states, voice has %d", ErrFormat, pdfs.NumStates, ts.NumStates)
		}
	}
	if len(trees) != want {
		return fmt.Errorf("%w: %s: %d trees, want %d", ErrFormat, s, len(trees), want)
	}
	if len(pdfs.PDFs) < want {
		return fmt.Errorf("%w: %s: pdfs for %d states, want %d", ErrFormat, s, len(pdfs.PDFs), want)
	}
	for state, t := range trees {
		t.Name = fmt.Sprintf("%s[%d]", s, state+2)
		row := pdfs.PDFs[state]
		for i := range t.Leaves {
			l := &t.Leaves[i]
			if l.PdfIndex < 0 || l.PdfIndex >= len(row) {
				return fmt.Errorf("%w: %s state %d: leaf %s pdf %d of %d", ErrFormat, s, state, l.Name, l.PdfIndex+1, len(row))
			}
			p := row[l.PdfIndex]
			l.Mean = append([]float64(nil), p.Mean...)
			l.Var = append([]float64(nil), p.Var...)
			l.VoicedWeight = p.VoicedWeight
		}
		log.Debugf("%s: %d nodes, %d leaves", t.Name, len(t.Nodes), len(t.Leaves))
	}
	ts.Trees[s] = trees
	ts.VectorSize[s] = pdfs.VectorSize
	return nil
}

// Check verifies the shape of the whole tree set: one duration tree whose
// leaves hold a mean and variance per state, one tree per state for every
// other stream present, and leaf dimensions matching the stream vector size.
func (ts *TreeSet) Check() error {
	if ts.NumStates <= 0 {
		return fmt.Errorf("%w: %d states", ErrFormat, ts.NumStates)
	}
	for _, s := range Streams() {
		trees := ts.Trees[s]
		if len(trees) == 0 {
			if s == Str || s == Mag {
				continue
			}
			return fmt.Errorf("%w: %s", ErrMissingStream, s)
		}
		want, size := ts.NumStates, ts.VectorSize[s]
		if s == Dur {
			want, size = 1, ts.NumStates
		}
		if len(trees) != want {
			return fmt.Errorf("%w: %s: %d trees, want %d", ErrFormat, s, len(trees), want)
		}
		if size <= 0 {
			return fmt.Errorf("%w: %s: vector size %d", ErrFormat, s, size)
		}
		for state, t := range trees {
			if t == nil {
				return fmt.Errorf("%w: %s state %d: no tree", ErrFormat, s, state)
			}
			for _, l := range t.Leaves {
				if len(l.Mean) != size || len(l.Var) != size {
					return fmt.Errorf("%w: %s state %d: leaf %s has %d means and %d variances, want %d",
						ErrFormat, s, state, l.Name, len(l.Mean), len(l.Var), size)
				}
			}
		}
	}
	return nil
}

// HTSFiles names the tree (tree-*.inf) and pdf files of each stream.
// Empty entries mark absent streams.
type HTSFiles struct {
	Trees [NumStreams]string
	PDFs  [NumStreams]string
}

// LoadHTS loads the tree and pdf files of every stream. Duration, log F0 and
// mel-cepstrum are required; strengths and Fourier magnitudes are optional.
// The number of states comes from the duration pdf file.
func LoadHTS(files HTSFiles, def *feature.Definition, labels cart.Unescaper) (*TreeSet, error) {
	ts := NewTreeSet(def, 0)
	for _, s := range Streams() {
		if files.Trees[s] == "" || files.PDFs[s] == "" {
			if s == Str || s == Mag {
				continue
			}
			return nil, fmt.Errorf("%w: %s", ErrMissingStream, s)
		}
		trees, err := loadTrees(files.Trees[s], def, labels)
		if err != nil {
			return nil, fmt.Errorf("load %s trees: %w", s, err)
		}
		pdfs, err := loadPDF(files.PDFs[s], s, ts.NumStates)
		if err != nil {
			return nil, fmt.Errorf("load %s pdfs: %w", s, err)
		}
		if err := ts.SetStream(s, trees, pdfs); err != nil {
			return nil, err
		}
	}
	if err := ts.Check(); err != nil {
		return nil, err
	}
	log.Infof("loaded tree set: %d states, vector sizes lf0=%d mgc=%d str=%d mag=%d",
		ts.NumStates, ts.VectorSize[LF0], ts.VectorSize[Mcep], ts.VectorSize[Str], ts.VectorSize[Mag])
	return ts, nil
}

func loadTrees(path string, def *feature.Definition, labels cart.Unescaper) ([]*cart.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return cart.ParseHTS(f, def, labels)
}

func loadPDF(path string, s Stream, numStates int) (*PDFSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPDF(f, s, numStates)
}
