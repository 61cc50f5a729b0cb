package acoustic

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ieee0824/hts-go/cart"
	"github.com/ieee0824/hts-go/feature"
	"github.com/ieee0824/hts-go/lexicon"
)

// GVModel holds the global variance pdf of each stream, variances inverted.
type GVModel struct {
	Mean [NumStreams][]float64
	IVar [NumStreams][]float64
}

// Has reports whether stream s has a GV pdf.
func (g *GVModel) Has(s Stream) bool { return g != nil && len(g.Mean[s]) > 0 }

// Voice is a complete synthesis voice: trees with attached pdfs, optional GV
// pdfs, the phones without GV, and mixed-excitation filters.
type Voice struct {
	Trees       *TreeSet
	GV          *GVModel
	GVOffPhones []string
	MixFilters  [][]float64
}

// VoiceFiles names the files of an HTS voice.
type VoiceFiles struct {
	FeatureDefinition string
	HTS               HTSFiles
	GV                [NumStreams]string
	GVSwitch          string
	TrickyPhones      string
}

// LoadVoice reads the feature definition, the trees and pdfs of all streams
// and the optional GV files. Mixed-excitation filters are left to the
// caller.
func LoadVoice(files VoiceFiles) (*Voice, error) {
	def, err := feature.ReadDefinitionFile(files.FeatureDefinition)
	if err != nil {
		return nil, fmt.Errorf("load feature definition: %w", err)
	}
	labels := lexicon.DefaultTable()
	if files.TrickyPhones != "" {
		if labels, err = lexicon.LoadFile(files.TrickyPhones); err != nil {
			return nil, fmt.Errorf("load tricky phones: %w", err)
		}
	}
	ts, err := LoadHTS(files.HTS, def, labels)
	if err != nil {
		return nil, err
	}
	v := &Voice{Trees: ts}
	for _, s := range []Stream{LF0, Mcep, Str, Mag} {
		if files.GV[s] == "" {
			continue
		}
		mean, ivar, err := readGVFile(files.GV[s], s)
		if err != nil {
			return nil, fmt.Errorf("load %s GV: %w", s, err)
		}
		if s != LF0 && len(mean) != ts.VectorSize[s]/3 && len(mean) != ts.VectorSize[s] {
			return nil, fmt.Errorf("%w: %s GV has %d dimensions for vector size %d", ErrFormat, s, len(mean), ts.VectorSize[s])
		}
		if v.GV == nil {
			v.GV = &GVModel{}
		}
		v.GV.Mean[s], v.GV.IVar[s] = mean, ivar
	}
	if files.GVSwitch != "" {
		f, err := os.Open(files.GVSwitch)
		if err != nil {
			return nil, fmt.Errorf("load GV switch: %w", err)
		}
		v.GVOffPhones, err = ReadGVSwitch(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("load GV switch: %w", err)
		}
	}
	return v, nil
}

func readGVFile(path string, s Stream) ([]float64, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadGV(f, s)
}

// serializable types for gob encoding
type serializedVoice struct {
	Definition  string
	NumStates   int
	VectorSize  [NumStreams]int
	Trees       [NumStreams][]serializedTree
	GVMean      [NumStreams][]float64
	GVIVar      [NumStreams][]float64
	GVOffPhones []string
	MixFilters  [][]float64
}

type serializedTree struct {
	Name   string
	Root   int32
	Nodes  []serializedNode
	Leaves []cart.Leaf
}

type serializedNode struct {
	Kind      uint8
	Feature   int
	Value     int
	Threshold float32
	Daughters []int32
	Parent    int32
}

// Save serializes the voice to a writer using gob encoding.
func (v *Voice) Save(w io.Writer) error {
	var def bytes.Buffer
	if _, err := v.Trees.Def.WriteTo(&def); err != nil {
		return err
	}
	sv := serializedVoice{
		Definition:  def.String(),
		NumStates:   v.Trees.NumStates,
		VectorSize:  v.Trees.VectorSize,
		GVOffPhones: v.GVOffPhones,
		MixFilters:  v.MixFilters,
	}
	if v.GV != nil {
		sv.GVMean, sv.GVIVar = v.GV.Mean, v.GV.IVar
	}
	for s, trees := range v.Trees.Trees {
		for _, t := range trees {
			st := serializedTree{Name: t.Name, Root: int32(t.Root), Leaves: t.Leaves}
			for _, n := range t.Nodes {
				sn := serializedNode{
					Kind:      uint8(n.Kind),
					Feature:   n.Feature,
					Value:     n.Value,
					Threshold: n.Threshold,
					Parent:    n.Parent,
				}
				for _, d := range n.Daughters {
					sn.Daughters = append(sn.Daughters, int32(d))
				}
				st.Nodes = append(st.Nodes, sn)
			}
			sv.Trees[s] = append(sv.Trees[s], st)
		}
	}
	return gob.NewEncoder(w).Encode(sv)
}

// ReadVoice deserializes a voice written by Save and validates its trees.
func ReadVoice(r io.Reader) (*Voice, error) {
	var sv serializedVoice
	if err := gob.NewDecoder(r).Decode(&sv); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	def, err := feature.ReadDefinition(strings.NewReader(sv.Definition))
	if err != nil {
		return nil, fmt.Errorf("voice feature definition: %w", err)
	}

	ts := NewTreeSet(def, sv.NumStates)
	ts.VectorSize = sv.VectorSize
	for s, trees := range sv.Trees {
		for _, st := range trees {
			t := &cart.Tree{Name: st.Name, Root: cart.Ref(st.Root), Leaves: st.Leaves}
			for _, sn := range st.Nodes {
				n := cart.Node{
					Kind:      cart.Kind(sn.Kind),
					Feature:   sn.Feature,
					Value:     sn.Value,
					Threshold: sn.Threshold,
					Parent:    sn.Parent,
				}
				for _, d := range sn.Daughters {
					n.Daughters = append(n.Daughters, cart.Ref(d))
				}
				t.Nodes = append(t.Nodes, n)
			}
			if err := t.Validate(def); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrFormat, err)
			}
			ts.Trees[s] = append(ts.Trees[s], t)
		}
	}

	if err := ts.Check(); err != nil {
		return nil, err
	}

	v := &Voice{Trees: ts, GVOffPhones: sv.GVOffPhones, MixFilters: sv.MixFilters}
	for s := range sv.GVMean {
		if len(sv.GVMean[s]) == 0 {
			continue
		}
		if len(sv.GVIVar[s]) != len(sv.GVMean[s]) {
			return nil, fmt.Errorf("%w: %s GV has %d means and %d variances", ErrFormat, Stream(s), len(sv.GVMean[s]), len(sv.GVIVar[s]))
		}
		if v.GV == nil {
			v.GV = &GVModel{}
		}
		v.GV.Mean[s], v.GV.IVar[s] = sv.GVMean[s], sv.GVIVar[s]
	}
	return v, nil
}
