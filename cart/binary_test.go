package cart

import (
	"bytes"
	"errors"
	"testing"
)

func TestTreeFile(t *testing.T) {
	def := testDef(t)
	single := NewTree("single")
	single.AddLeaf(Leaf{Name: "only", PdfIndex: 4, Mean: []float64{0.5, 1.5}, Var: []float64{0.25, 2}, VoicedWeight: 0.75})
	f := &File{Type: 3, Trees: []*Tree{testTree(t), single}}

	var buf bytes.Buffer
	if err := WriteTrees(&buf, f, def); err != nil {
		t.Fatalf("WriteTrees: %v", err)
	}
	got, err := ReadTrees(&buf, def)
	if err != nil {
		t.Fatalf("ReadTrees: %v", err)
	}
	if got.Type != 3 || len(got.Trees) != 2 {
		t.Fatalf("got type %d with %d trees", got.Type, len(got.Trees))
	}
	for _, in := range []string{"a 0 0 0", "a 0 3 0", "k 0 0 0.05", "k 0 0 0.5"} {
		v := vec(t, def, in)
		want, _ := f.Trees[0].Resolve(v)
		have, err := got.Trees[0].Resolve(v)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", in, err)
		}
		if have.Name != want.Name {
			t.Errorf("Resolve(%q) = %s, want %s", in, have.Name, want.Name)
		}
	}
	if got.Trees[0].Nodes[2].Threshold != 0.1 {
		t.Errorf("threshold = %v, want 0.1", got.Trees[0].Nodes[2].Threshold)
	}
	if d := got.Trees[0].Nodes[1].Daughters[2]; d != NullRef {
		t.Errorf("null daughter decoded as %v", d)
	}
	l := got.Trees[1].Leaves[0]
	if l.Name != "only" || l.PdfIndex != 4 || l.VoicedWeight != 0.75 || l.Mean[1] != 1.5 || l.Var[0] != 0.25 {
		t.Errorf("leaf = %+v", l)
	}
}

func TestReadTreesErrors(t *testing.T) {
	def := testDef(t)
	var buf bytes.Buffer
	if err := WriteTrees(&buf, &File{Trees: []*Tree{testTree(t)}}, def); err != nil {
		t.Fatal(err)
	}
	good := buf.Bytes()

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 'X'
	badVersion := append([]byte(nil), good...)
	badVersion[7] = 9

	tests := map[string][]byte{
		"magic":     badMagic,
		"version":   badVersion,
		"truncated": good[:len(good)-3],
		"header":    good[:6],
	}
	for name, data := range tests {
		if _, err := ReadTrees(bytes.NewReader(data), def); !errors.Is(err, ErrFormat) {
			t.Errorf("%s: error = %v, want ErrFormat", name, err)
		}
	}
}

func TestReadTreesDaughterMismatch(t *testing.T) {
	def := testDef(t)
	tr := testTree(t)
	tr.SetDaughter(NodeRef(0), 2, LeafRef(0))
	var buf bytes.Buffer
	if err := WriteTrees(&buf, &File{Trees: []*Tree{tr}}, def); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadTrees(&buf, def); !errors.Is(err, ErrFormat) {
		t.Errorf("error = %v, want ErrFormat", err)
	}
}

func TestWriteTreesRootOrder(t *testing.T) {
	def := testDef(t)
	tr := testTree(t)
	tr.Root = NodeRef(1)
	if err := WriteTrees(&bytes.Buffer{}, &File{Trees: []*Tree{tr}}, def); !errors.Is(err, ErrFormat) {
		t.Errorf("error = %v, want ErrFormat", err)
	}
}
