package hts

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ieee0824/hts-go/acoustic"
	"github.com/ieee0824/hts-go/audio"
	"github.com/ieee0824/hts-go/feature"
	"github.com/ieee0824/hts-go/paramgen"
)

const testDefinition = `ByteValuedFeatureProcessors
phone 0 _ a i
stressed 0 1
ShortValuedFeatureProcessors
ContinuousFeatureProcessors
`

const testStates = 3

// "_ a _" resolves to 3 + 8 + 3 frames.
const testFrames = 14

func testPDFs() map[acoustic.Stream]*acoustic.PDFSet {
	lf0 := &acoustic.PDFSet{Stream: acoustic.LF0, NumStates: testStates, VectorSize: 3, PDFs: make([][]acoustic.PDF, testStates)}
	mgc := &acoustic.PDFSet{Stream: acoustic.Mcep, NumStates: testStates, VectorSize: 3, PDFs: make([][]acoustic.PDF, testStates)}
	for s := 0; s < testStates; s++ {
		vw := 0.9
		if s == testStates-1 {
			vw = 0.1
		}
		lf0.PDFs[s] = []acoustic.PDF{{Mean: []float64{5, 0, 0}, Var: []float64{0.01, 0.001, 0.001}, VoicedWeight: vw}}
		mgc.PDFs[s] = []acoustic.PDF{{Mean: []float64{float64(s) * 0.5, 0, 0}, Var: []float64{1, 1, 1}}}
	}
	return map[acoustic.Stream]*acoustic.PDFSet{
		acoustic.Dur: {Stream: acoustic.Dur, NumStates: testStates, VectorSize: testStates, PDFs: [][]acoustic.PDF{{
			{Mean: []float64{2.4, 3.3, 2.2}, Var: []float64{1, 1, 1}},
			{Mean: []float64{1, 1, 1}, Var: []float64{0.5, 0.5, 0.5}},
		}}},
		acoustic.LF0:  lf0,
		acoustic.Mcep: mgc,
	}
}

// writeVoice writes an HTS voice and its JSON config to a temp dir and
// returns the config path. extra is merged into the config object.
func writeVoice(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	var states strings.Builder
	for s := 2; s < 2+testStates; s++ {
		fmt.Fprintf(&states, "{*}[%d]\n\"x_s%d_1\"\n", s, s)
	}
	write("features.txt", testDefinition)
	write("trickyPhones.txt", "a ANa\n")
	write("tree-dur.inf", "QS \"C-a\" {*-a+*}\n{*}[2]\n{\n0 phone=ANa \"dur_s2_2\" \"dur_s2_1\"\n}\n")
	write("tree-lf0.inf", states.String())
	write("tree-mgc.inf", states.String())
	for s, set := range testPDFs() {
		var buf bytes.Buffer
		if err := acoustic.WritePDF(&buf, set); err != nil {
			t.Fatal(err)
		}
		write(s.String()+".pdf", buf.String())
	}
	var gv bytes.Buffer
	gv.Write([]byte{0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 0})
	gv.Write([]byte{0x3f, 0x80, 0, 0, 0x3f, 0, 0, 0}) // mean 1.0, var 0.5
	write("gv-mgc.pdf", gv.String())
	write("target.pfeats", testDefinition+"\n_ 0\na 0\n_ 0\n\n1 0\n2 0\n1 0\n")

	cfg := `{
	"feature_definition": "features.txt",
	"tricky_phones": "trickyPhones.txt",
	"trees": {"dur": "tree-dur.inf", "lf0": "tree-lf0.inf", "mgc": "tree-mgc.inf"},
	"pdfs": {"dur": "dur.pdf", "lf0": "lf0.pdf", "mgc": "mgc.pdf"},
	"gv": {"mgc": "gv-mgc.pdf"}` + extra + `
}`
	write("voice.json", cfg)
	return filepath.Join(dir, "voice.json")
}

func testVectors(t *testing.T, s *Synthesizer, names ...string) []feature.Vector {
	t.Helper()
	var vs []feature.Vector
	for i, n := range names {
		v, err := s.Voice.Trees.Def.ParseSymbolic(n+" 0", i)
		if err != nil {
			t.Fatal(err)
		}
		vs = append(vs, v)
	}
	return vs
}

func peak(x []float64) float64 {
	var m float64
	for _, v := range x {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

func TestSynthesizeFile(t *testing.T) {
	path := writeVoice(t, "")
	s, err := NewSynthesizer(path)
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	res, err := s.SynthesizeFile(filepath.Join(filepath.Dir(path), "target.pfeats"))
	if err != nil {
		t.Fatalf("SynthesizeFile: %v", err)
	}
	if res.Utterance.TotalFrames != testFrames {
		t.Fatalf("TotalFrames = %d, want %d", res.Utterance.TotalFrames, testFrames)
	}
	if len(res.Samples) != testFrames*80 {
		t.Errorf("len(Samples) = %d, want %d", len(res.Samples), testFrames*80)
	}
	if p := peak(res.Samples); math.Abs(p-audio.DefaultPeak) > 1e-9 {
		t.Errorf("peak = %g, want %g", p, audio.DefaultPeak)
	}
	if res.Params.NumVoiced() == 0 || res.Params.NumVoiced() == testFrames {
		t.Errorf("NumVoiced = %d", res.Params.NumVoiced())
	}
}

func TestSynthesizeFileDefinitionMismatch(t *testing.T) {
	path := writeVoice(t, "")
	s, err := NewSynthesizer(path)
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	other := filepath.Join(t.TempDir(), "other.pfeats")
	def := strings.Replace(testDefinition, "phone 0 _ a i", "phone 0 _ a o", 1)
	if err := os.WriteFile(other, []byte(def+"\n1 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SynthesizeFile(other); !errors.Is(err, ErrDefinitionMismatch) {
		t.Errorf("error = %v, want ErrDefinitionMismatch", err)
	}
}

func TestSynthesizeResult(t *testing.T) {
	s, err := NewSynthesizer(writeVoice(t, ""))
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	res, err := s.Synthesize(testVectors(t, s, "_", "a", "_"), nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	want := "#\n0.015 0 _\n0.055 1 a\n0.07 2 _\n"
	if got := res.RealisedDurations(); got != want {
		t.Errorf("RealisedDurations = %q, want %q", got, want)
	}
	f0 := res.RealisedF0()
	if len(f0) != 3 {
		t.Fatalf("len(RealisedF0) = %d", len(f0))
	}
	if !strings.HasPrefix(f0[1], "(") || !strings.HasSuffix(f0[1], ",148)") {
		t.Errorf("RealisedF0[1] = %q", f0[1])
	}

	data, err := res.WAVBytes()
	if err != nil {
		t.Fatalf("WAVBytes: %v", err)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Errorf("WAVBytes header = %q", data[:12])
	}

	out := filepath.Join(t.TempDir(), "out.wav")
	if err := res.WriteWAV(out); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	samples, hdr, err := audio.ReadWAVFile(out)
	if err != nil {
		t.Fatalf("ReadWAVFile: %v", err)
	}
	if int(hdr.SampleRate) != 16000 || len(samples) != len(res.Samples) {
		t.Errorf("read back %d samples at %d Hz", len(samples), hdr.SampleRate)
	}
}

func TestSynthesizeReproducible(t *testing.T) {
	s, err := NewSynthesizer(writeVoice(t, ""))
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	vectors := testVectors(t, s, "_", "a", "_")
	ref, err := s.Synthesize(vectors, nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]*Result, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Synthesize(vectors, nil)
		}(i)
	}
	wg.Wait()
	for i, res := range results {
		if errs[i] != nil {
			t.Fatalf("Synthesize %d: %v", i, errs[i])
		}
		for n := range ref.Samples {
			if res.Samples[n] != ref.Samples[n] {
				t.Fatalf("run %d differs at sample %d", i, n)
			}
		}
	}
}

func TestSynthesizerOptions(t *testing.T) {
	path := writeVoice(t, "")
	s, err := NewSynthesizer(path, WithDurationScale(2), WithGV(true), WithGVMethod(paramgen.GVDerivative), WithF0Control(0.5, 10), WithPostfilter(0.3))
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	if !s.Config.UseGV || s.Config.GVMethodGradient || s.Config.Beta != 0.3 {
		t.Errorf("options not applied: %+v", s.Config)
	}
	res, err := s.Synthesize(testVectors(t, s, "_", "a", "_"), nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Utterance.TotalFrames <= testFrames {
		t.Errorf("TotalFrames = %d, want more than %d", res.Utterance.TotalFrames, testFrames)
	}

	for _, opt := range []Option{WithDurationScale(5), WithF0Control(4, 0), WithF0Control(1, 400), WithPostfilter(2)} {
		if _, err := NewSynthesizer(path, opt); !errors.Is(err, ErrConfig) {
			t.Errorf("error = %v, want ErrConfig", err)
		}
	}
}

func TestSynthesizeProsody(t *testing.T) {
	s, err := NewSynthesizer(writeVoice(t, ""))
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	prosody := []acoustic.Prosody{
		{DurationMs: 100, Boundary: true},
		{DurationMs: 60},
		{},
	}
	res, err := s.Synthesize(testVectors(t, s, "_", "a", "_"), prosody)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := res.Utterance.Models[0].TotalDur; got != 21 {
		t.Errorf("pause frames = %d, want 21", got)
	}
	if got := res.Utterance.Models[1].TotalDur; got != 12 {
		t.Errorf("phone frames = %d, want 12", got)
	}

	if _, err := s.Synthesize(testVectors(t, s, "_", "a"), prosody); !errors.Is(err, acoustic.ErrProsody) {
		t.Errorf("error = %v, want ErrProsody", err)
	}
}

func TestSynthesizeExternalLF0(t *testing.T) {
	path := writeVoice(t, "")
	lf0 := filepath.Join(t.TempDir(), "ext.lf0")
	var buf bytes.Buffer
	for i := 0; i < testFrames; i++ {
		v := float32(0)
		if i >= 4 && i < 10 {
			v = float32(math.Log(200))
		}
		buf.Write(float32le(v))
	}
	if err := os.WriteFile(lf0, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewSynthesizer(path, WithLogF0File(lf0))
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	res, err := s.Synthesize(testVectors(t, s, "_", "a", "_"), nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Params.NumVoiced() != 6 {
		t.Errorf("NumVoiced = %d, want 6", res.Params.NumVoiced())
	}
	for _, hz := range res.Params.F0Hz()[4:10] {
		if math.Abs(hz-200) > 1e-3 {
			t.Fatalf("F0 = %g, want 200", hz)
		}
	}

	if _, err := NewSynthesizer(path, WithLogF0File(filepath.Join(t.TempDir(), "missing.lf0"))); err == nil {
		t.Error("missing log F0 file should fail")
	}
}

func float32le(v float32) []byte {
	b := math.Float32bits(v)
	return []byte{byte(b), byte(b >> 8), byte(b >> 16), byte(b >> 24)}
}

func TestNewSynthesizerFromVoice(t *testing.T) {
	compiled, err := NewSynthesizer(writeVoice(t, ""))
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	var buf bytes.Buffer
	if err := compiled.Voice.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	voice, err := acoustic.ReadVoice(&buf)
	if err != nil {
		t.Fatalf("ReadVoice: %v", err)
	}
	s, err := NewSynthesizerFromVoice(voice, WithMixedExcitation(false), WithGaussianNoise(true))
	if err != nil {
		t.Fatalf("NewSynthesizerFromVoice: %v", err)
	}
	res, err := s.Synthesize(testVectors(t, s, "_", "a", "_"), nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(res.Samples) != testFrames*80 {
		t.Errorf("len(Samples) = %d", len(res.Samples))
	}

	if _, err := NewSynthesizerFromVoice(nil); !errors.Is(err, ErrNoVoice) {
		t.Errorf("error = %v, want ErrNoVoice", err)
	}
}

func TestNewSynthesizerCompiled(t *testing.T) {
	src, err := NewSynthesizer(writeVoice(t, ""))
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "voice.htsv"))
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Voice.Save(f); err != nil {
		t.Fatalf("Save: %v", err)
	}
	f.Close()
	cfg := filepath.Join(dir, "compiled.json")
	if err := os.WriteFile(cfg, []byte(`{"compiled": "voice.htsv", "use_gv": true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewSynthesizer(cfg)
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	if !s.Voice.GV.Has(acoustic.Mcep) {
		t.Error("compiled voice lost its GV")
	}
	if _, err := s.Synthesize(testVectors(t, s, "_", "a", "_"), nil); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSynthesizer(empty); !errors.Is(err, ErrNoVoice) {
		t.Errorf("error = %v, want ErrNoVoice", err)
	}
}
