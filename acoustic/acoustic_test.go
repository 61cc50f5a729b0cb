package acoustic

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ieee0824/hts-go/cart"
	"github.com/ieee0824/hts-go/feature"
)

const testDefinition = `ByteValuedFeatureProcessors
phone 0 _ a i
stressed 0 1
ShortValuedFeatureProcessors
ContinuousFeatureProcessors
`

const testStates = 3

func testDef(t *testing.T) *feature.Definition {
	t.Helper()
	def, err := feature.ReadDefinition(strings.NewReader(testDefinition))
	if err != nil {
		t.Fatalf("ReadDefinition: %v", err)
	}
	return def
}

func phones(t *testing.T, def *feature.Definition, names ...string) []feature.Vector {
	t.Helper()
	var vs []feature.Vector
	for i, n := range names {
		v, err := def.ParseSymbolic(n+" 0", i)
		if err != nil {
			t.Fatal(err)
		}
		vs = append(vs, v)
	}
	return vs
}

func singleLeaf(name string) *cart.Tree {
	t := cart.NewTree(name)
	t.AddLeaf(cart.Leaf{Name: name, PdfIndex: 0})
	return t
}

// phoneTree answers phone==a: yes -> pdf 0, no -> pdf 1.
func phoneTree() *cart.Tree {
	t := cart.NewTree("dur")
	root := t.AddNode(cart.Node{Kind: cart.BinaryByte, Feature: 0, Value: 2})
	yes := t.AddLeaf(cart.Leaf{Name: "dur_1", PdfIndex: 0})
	no := t.AddLeaf(cart.Leaf{Name: "dur_2", PdfIndex: 1})
	t.SetDaughter(root, 0, yes)
	t.SetDaughter(root, 1, no)
	return t
}

func testPDFs() map[Stream]*PDFSet {
	lf0 := &PDFSet{Stream: LF0, NumStates: testStates, VectorSize: 3, PDFs: make([][]PDF, testStates)}
	mgc := &PDFSet{Stream: Mcep, NumStates: testStates, VectorSize: 3, PDFs: make([][]PDF, testStates)}
	for s := 0; s < testStates; s++ {
		vw := 0.9
		if s == testStates-1 {
			vw = 0.1
		}
		lf0.PDFs[s] = []PDF{{Mean: []float64{5, 0, 0}, Var: []float64{0.01, 0.001, 0.001}, VoicedWeight: vw}}
		mgc.PDFs[s] = []PDF{{Mean: []float64{float64(s), 0, 0}, Var: []float64{1, 1, 1}}}
	}
	return map[Stream]*PDFSet{
		Dur: {Stream: Dur, NumStates: testStates, VectorSize: testStates, PDFs: [][]PDF{{
			{Mean: []float64{2.4, 3.3, 2.2}, Var: []float64{1, 1, 1}},
			{Mean: []float64{1, 1, 1}, Var: []float64{0.5, 0.5, 0.5}},
		}}},
		LF0:  lf0,
		Mcep: mgc,
	}
}

func testTreeSet(t *testing.T) *TreeSet {
	t.Helper()
	pdfs := testPDFs()
	ts := NewTreeSet(testDef(t), testStates)
	if err := ts.SetStream(Dur, []*cart.Tree{phoneTree()}, pdfs[Dur]); err != nil {
		t.Fatal(err)
	}
	for _, s := range []Stream{LF0, Mcep} {
		var trees []*cart.Tree
		for i := 0; i < testStates; i++ {
			trees = append(trees, singleLeaf(fmt.Sprintf("%s_%d", s, i)))
		}
		if err := ts.SetStream(s, trees, pdfs[s]); err != nil {
			t.Fatal(err)
		}
	}
	return ts
}

func TestResolveDuration(t *testing.T) {
	ts := testTreeSet(t)
	def := ts.Def
	m := newModel(testStates)
	carry, err := ts.ResolveDuration(m, phones(t, def, "a")[0], DefaultConfig(), 0)
	if err != nil {
		t.Fatalf("ResolveDuration: %v", err)
	}
	want := []int{2, 4, 2}
	for s := range want {
		if m.Dur[s] != want[s] {
			t.Errorf("Dur[%d] = %d, want %d", s, m.Dur[s], want[s])
		}
	}
	if m.TotalDur != 8 {
		t.Errorf("TotalDur = %d, want 8", m.TotalDur)
	}
	if math.Abs(carry-(-0.1)) > 1e-9 {
		t.Errorf("carry = %f, want -0.1", carry)
	}
}

func TestResolveDurationMinimumAndRho(t *testing.T) {
	ts := testTreeSet(t)
	cfg := DefaultConfig()
	cfg.DurationScale = 0.1
	m := newModel(testStates)
	if _, err := ts.ResolveDuration(m, phones(t, ts.Def, "_")[0], cfg, 0); err != nil {
		t.Fatal(err)
	}
	for s, d := range m.Dur {
		if d != 1 {
			t.Errorf("Dur[%d] = %d, want 1", s, d)
		}
	}

	cfg = DefaultConfig()
	cfg.Rho = 2 // (1 + 2*0.5) = 2 frames per state
	if _, err := ts.ResolveDuration(m, phones(t, ts.Def, "_")[0], cfg, 0); err != nil {
		t.Fatal(err)
	}
	if m.TotalDur != 6 {
		t.Errorf("TotalDur with rho = %d, want 6", m.TotalDur)
	}
}

func TestResolveUtterance(t *testing.T) {
	ts := testTreeSet(t)
	cfg := DefaultConfig()
	cfg.ContextDependentGV = true
	utt, err := ts.Resolve(phones(t, ts.Def, "_", "a", "_"), nil, cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(utt.Models) != 3 || utt.NumStates != testStates {
		t.Fatalf("models = %d, states = %d", len(utt.Models), utt.NumStates)
	}
	if utt.TotalFrames != 14 {
		t.Errorf("TotalFrames = %d, want 14", utt.TotalFrames)
	}
	if utt.LF0Frames != 10 {
		t.Errorf("LF0Frames = %d, want 10", utt.LF0Frames)
	}
	if utt.Models[1].Name != "a" || utt.Models[1].NumVoiced != 6 {
		t.Errorf("model 1 = %s with %d voiced frames", utt.Models[1].Name, utt.Models[1].NumVoiced)
	}
	if utt.Models[0].GVSwitch || !utt.Models[1].GVSwitch {
		t.Error("GV switch should be off for pauses only")
	}
	if !utt.Models[1].Voiced[0] || utt.Models[1].Voiced[2] {
		t.Errorf("Voiced = %v, want [true true false]", utt.Models[1].Voiced)
	}
	if utt.Models[1].McepMean[2][0] != 2 {
		t.Errorf("mcep mean of state 2 = %f", utt.Models[1].McepMean[2][0])
	}
	want := "#\n1.5 0 _\n5.5 1 a\n7 2 _\n"
	if got := utt.RealisedDurations(0.5); got != want {
		t.Errorf("RealisedDurations = %q, want %q", got, want)
	}
}

func TestResolveExternalDurations(t *testing.T) {
	ts := testTreeSet(t)
	prosody := []Prosody{{DurationMs: 60, Boundary: true}, {DurationMs: 100}, {}}
	utt, err := ts.Resolve(phones(t, ts.Def, "_", "a", "_"), prosody, DefaultConfig())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	tests := []struct {
		model int
		want  []int
	}{
		{0, []int{4, 4, 4}},
		{1, []int{5, 10, 5}},
		{2, []int{1, 1, 1}},
	}
	for _, tt := range tests {
		for s, d := range utt.Models[tt.model].Dur {
			if d != tt.want[s] {
				t.Errorf("model %d Dur = %v, want %v", tt.model, utt.Models[tt.model].Dur, tt.want)
				break
			}
		}
	}
	if utt.TotalFrames != 35 {
		t.Errorf("TotalFrames = %d, want 35", utt.TotalFrames)
	}
	if _, err := ts.Resolve(phones(t, ts.Def, "a"), prosody, DefaultConfig()); !errors.Is(err, ErrProsody) {
		t.Errorf("prosody length mismatch error = %v", err)
	}
}

func TestResolveError(t *testing.T) {
	ts := testTreeSet(t)
	ts.Trees[Mcep][1].Leaves = nil
	ts.Trees[Mcep][1].Root = cart.NullRef
	_, err := ts.Resolve(phones(t, ts.Def, "_", "a"), nil, DefaultConfig())
	var re *ResolveError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want *ResolveError", err)
	}
	if re.Phone != 0 || re.Stream != Mcep || re.State != 1 || re.Name != "_" {
		t.Errorf("ResolveError = %+v", re)
	}
	if !errors.Is(err, cart.ErrInconsistent) {
		t.Errorf("error %v should wrap cart.ErrInconsistent", err)
	}
}

func TestResolveMissingStream(t *testing.T) {
	ts := NewTreeSet(testDef(t), testStates)
	if _, err := ts.Resolve(nil, nil, DefaultConfig()); !errors.Is(err, ErrMissingStream) {
		t.Errorf("error = %v, want ErrMissingStream", err)
	}
}

func TestStateAt(t *testing.T) {
	ts := testTreeSet(t)
	utt, err := ts.Resolve(phones(t, ts.Def, "_", "a"), nil, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	// frames: _ [1 1 1], a [2 4 2]
	tests := []struct {
		frame, model, state int
	}{
		{0, 0, 0}, {2, 0, 2}, {3, 1, 0}, {5, 1, 1}, {10, 1, 2},
	}
	for _, tt := range tests {
		m, s, ok := utt.StateAt(tt.frame)
		if !ok || m != utt.Models[tt.model] || s != tt.state {
			t.Errorf("StateAt(%d) = %v/%d, want model %d state %d", tt.frame, ok, s, tt.model, tt.state)
		}
	}
	if _, _, ok := utt.StateAt(11); ok {
		t.Error("StateAt past the end should fail")
	}
}

func TestParseF0Targets(t *testing.T) {
	got, err := ParseF0Targets("(0,120)(50, 135.5) (100,110)")
	if err != nil {
		t.Fatalf("ParseF0Targets: %v", err)
	}
	want := []F0Target{{0, 120}, {50, 135.5}, {100, 110}}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("target %d = %v, want %v", i, got[i], want[i])
		}
	}
	if s := FormatF0Targets(got); s != "(0,120)(50,135)(100,110)" {
		t.Errorf("FormatF0Targets = %q", s)
	}
	for _, bad := range []string{"(0,120", "0,120)", "(x,120)", "(101,120)", "(0,-5)", "(0)"} {
		if _, err := ParseF0Targets(bad); err == nil {
			t.Errorf("ParseF0Targets(%q) should fail", bad)
		}
	}
}

func TestVoiceFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	writePDF := func(name string, set *PDFSet) string {
		var buf bytes.Buffer
		if err := WritePDF(&buf, set); err != nil {
			t.Fatal(err)
		}
		return write(name, buf.String())
	}
	var states strings.Builder
	for s := 2; s < 2+testStates; s++ {
		fmt.Fprintf(&states, "{*}[%d]\n\"x_s%d_1\"\n", s, s)
	}
	pdfs := testPDFs()
	files := VoiceFiles{
		FeatureDefinition: write("features.txt", testDefinition),
		TrickyPhones:      write("trickyPhones.txt", "a ANa\n"),
		GVSwitch:          write("gv-switch.txt", "_\n# comment\nsil\n"),
	}
	files.HTS.Trees[Dur] = write("tree-dur.inf", "QS \"C-a\" {*-a+*}\n{*}[2]\n{\n0 phone=ANa \"dur_s2_2\" \"dur_s2_1\"\n}\n")
	files.HTS.Trees[LF0] = write("tree-lf0.inf", states.String())
	files.HTS.Trees[Mcep] = write("tree-mgc.inf", states.String())
	files.HTS.PDFs[Dur] = writePDF("dur.pdf", pdfs[Dur])
	files.HTS.PDFs[LF0] = writePDF("lf0.pdf", pdfs[LF0])
	files.HTS.PDFs[Mcep] = writePDF("mgc.pdf", pdfs[Mcep])

	var gv bytes.Buffer
	gv.Write([]byte{0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 0})
	gv.Write([]byte{0x3f, 0x80, 0, 0, 0x3f, 0, 0, 0}) // mean 1.0, var 0.5
	files.GV[Mcep] = write("gv-mgc.pdf", gv.String())

	voice, err := LoadVoice(files)
	if err != nil {
		t.Fatalf("LoadVoice: %v", err)
	}
	if voice.Trees.NumStates != testStates || voice.Trees.VectorSize[LF0] != 3 || voice.Trees.Has(Str) {
		t.Fatalf("tree set: states %d, lf0 size %d", voice.Trees.NumStates, voice.Trees.VectorSize[LF0])
	}
	if !voice.GV.Has(Mcep) || voice.GV.Has(LF0) || math.Abs(voice.GV.IVar[Mcep][0]-2) > 1e-9 {
		t.Errorf("GV = %+v", voice.GV)
	}
	if strings.Join(voice.GVOffPhones, ",") != "_,sil" {
		t.Errorf("GVOffPhones = %v", voice.GVOffPhones)
	}

	voice.MixFilters = [][]float64{{0.5, 0.5}, {0.25, -0.25}}
	var buf bytes.Buffer
	if err := voice.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := ReadVoice(&buf)
	if err != nil {
		t.Fatalf("ReadVoice: %v", err)
	}
	if !loaded.Trees.Def.Equal(voice.Trees.Def) || len(loaded.MixFilters) != 2 {
		t.Fatal("voice changed after Save/ReadVoice")
	}
	for _, v := range []*Voice{voice, loaded} {
		utt, err := v.Trees.Resolve(phones(t, v.Trees.Def, "_", "a"), nil, DefaultConfig())
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if utt.TotalFrames != 11 {
			t.Errorf("TotalFrames = %d, want 11", utt.TotalFrames)
		}
	}
}

func TestResolveDurationSum(t *testing.T) {
	def := testDef(t)
	v := phones(t, def, "a")[0]
	rng := rand.New(rand.NewSource(7))
	for n := 1; n <= 8; n++ {
		for _, rho := range []float64{0, 0.5, 1, 2} {
			cfg := DefaultConfig()
			cfg.Rho = rho
			carry, total, want := 0.0, 0, 0.0
			for phone := 0; phone < 5; phone++ {
				tr := cart.NewTree("dur")
				leaf := cart.Leaf{Name: "dur_1", Mean: make([]float64, n), Var: make([]float64, n)}
				for s := 0; s < n; s++ {
					leaf.Mean[s] = 1 + 5*rng.Float64()
					leaf.Var[s] = 0.1 + 1.9*rng.Float64()
					want += leaf.Mean[s] + rho*leaf.Var[s]
				}
				tr.AddLeaf(leaf)
				ts := NewTreeSet(def, n)
				ts.Trees[Dur] = []*cart.Tree{tr}
				m := newModel(n)
				var err error
				if carry, err = ts.ResolveDuration(m, v, cfg, carry); err != nil {
					t.Fatalf("ResolveDuration: %v", err)
				}
				for s, d := range m.Dur {
					if d < 1 {
						t.Errorf("states %d rho %g: Dur[%d] = %d", n, rho, s, d)
					}
				}
				total += m.TotalDur
			}
			if math.Abs(float64(total)-want) > 1 {
				t.Errorf("states %d rho %g: total %d frames, want %.2f", n, rho, total, want)
			}
		}
	}

	// Negative rho drives the raw durations below one frame.
	cfg := DefaultConfig()
	cfg.Rho = -4
	ts := testTreeSet(t)
	m := newModel(testStates)
	carry := 0.0
	for _, p := range phones(t, def, "a", "_", "a") {
		var err error
		if carry, err = ts.ResolveDuration(m, p, cfg, carry); err != nil {
			t.Fatal(err)
		}
		for s, d := range m.Dur {
			if d < 1 {
				t.Errorf("rho -4: Dur[%d] = %d, want >= 1", s, d)
			}
		}
	}
}

func TestReadVoiceShape(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Voice)
		want error
	}{
		{"one lf0 tree", func(v *Voice) { v.Trees.Trees[LF0] = v.Trees.Trees[LF0][:1] }, ErrFormat},
		{"two duration trees", func(v *Voice) { v.Trees.Trees[Dur] = append(v.Trees.Trees[Dur], v.Trees.Trees[Dur][0]) }, ErrFormat},
		{"vector size", func(v *Voice) { v.Trees.VectorSize[Mcep] = 4 }, ErrFormat},
		{"short duration leaf", func(v *Voice) {
			l := &v.Trees.Trees[Dur][0].Leaves[0]
			l.Mean, l.Var = l.Mean[:2], l.Var[:2]
		}, ErrFormat},
		{"no states", func(v *Voice) { v.Trees.NumStates = 0 }, ErrFormat},
		{"gv variances", func(v *Voice) {
			v.GV = &GVModel{}
			v.GV.Mean[LF0], v.GV.IVar[LF0] = []float64{1, 2}, []float64{1}
		}, ErrFormat},
		{"no mcep", func(v *Voice) { v.Trees.Trees[Mcep] = nil }, ErrMissingStream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Voice{Trees: testTreeSet(t)}
			tt.edit(v)
			var buf bytes.Buffer
			if err := v.Save(&buf); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if _, err := ReadVoice(&buf); !errors.Is(err, tt.want) {
				t.Errorf("ReadVoice = %v, want %v", err, tt.want)
			}
		})
	}

	var buf bytes.Buffer
	if err := (&Voice{Trees: testTreeSet(t)}).Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	v, err := ReadVoice(&buf)
	if err != nil {
		t.Fatalf("ReadVoice: %v", err)
	}
	if _, err := v.Trees.Resolve(phones(t, v.Trees.Def, "_", "a", "_"), nil, DefaultConfig()); err != nil {
		t.Errorf("Resolve: %v", err)
	}
}

func TestReadVoiceGarbage(t *testing.T) {
	if _, err := ReadVoice(strings.NewReader("not a voice")); !errors.Is(err, ErrFormat) {
		t.Errorf("error = %v, want ErrFormat", err)
	}
}
