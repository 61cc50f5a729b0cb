package cart

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ieee0824/hts-go/feature"
)

const (
	fileMagic   = 0x48545343 // "HTSC"
	fileVersion = 1
)

// File is the content of a binary tree file: the trees of one stream.
type File struct {
	Type  uint32
	Trees []*Tree
}

// WriteTrees encodes f. Node definitions are written as text so that the
// file stays readable against any definition with the same feature names and
// values. Every tree must be rooted at its first node, or at its only leaf
// when it has no nodes.
func WriteTrees(w io.Writer, f *File, def *feature.Definition) error {
	bw := &binWriter{w: bufio.NewWriter(w)}
	bw.u32(fileMagic)
	bw.u32(fileVersion)
	bw.u32(f.Type)
	bw.u32(uint32(len(f.Trees)))
	for _, t := range f.Trees {
		switch {
		case len(t.Nodes) > 0 && t.Root != NodeRef(0):
			return fmt.Errorf("%w: tree %q is not rooted at node 0", ErrFormat, t.Name)
		case len(t.Nodes) == 0 && (len(t.Leaves) != 1 || t.Root != LeafRef(0)):
			return fmt.Errorf("%w: tree %q has no nodes and not exactly one leaf", ErrFormat, t.Name)
		}
		bw.str(t.Name)
		bw.u32(uint32(len(t.Nodes)))
		for i := range t.Nodes {
			s, err := nodeDefinition(&t.Nodes[i], def)
			if err != nil {
				return fmt.Errorf("tree %q node %d: %w", t.Name, i, err)
			}
			bw.str(s)
		}
		bw.u32(uint32(len(t.Leaves)))
		for i := range t.Leaves {
			l := &t.Leaves[i]
			if len(l.Mean) != len(l.Var) {
				return fmt.Errorf("%w: tree %q leaf %d: mean and variance lengths differ", ErrFormat, t.Name, i)
			}
			bw.str(l.Name)
			bw.u32(uint32(l.PdfIndex))
			bw.f32(l.VoicedWeight)
			bw.u32(uint32(len(l.Mean)))
			for k := range l.Mean {
				bw.f32(l.Mean[k])
				bw.f32(l.Var[k])
			}
		}
	}
	if bw.err != nil {
		return bw.err
	}
	return bw.w.Flush()
}

func nodeDefinition(n *Node, def *feature.Definition) (string, error) {
	name := def.FeatureName(n.Feature)
	if name == "" {
		return "", fmt.Errorf("%w: feature index %d out of range", ErrFormat, n.Feature)
	}
	var op, value string
	switch n.Kind {
	case BinaryByte, BinaryShort:
		op, value = "==", def.ValueString(n.Feature, n.Value)
		if value == "" {
			return "", fmt.Errorf("%w: value %d out of range for %s", ErrFormat, n.Value, name)
		}
	case BinaryFloat:
		op, value = "<", strconv.FormatFloat(float64(n.Threshold), 'g', -1, 32)
	case NaryByte, NaryShort:
		op, value = "[]", "-"
	default:
		return "", fmt.Errorf("%w: unknown node kind %v", ErrFormat, n.Kind)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s %d", name, op, value, len(n.Daughters))
	for _, d := range n.Daughters {
		b.WriteByte(' ')
		b.WriteString(d.String())
	}
	return b.String(), nil
}

// ReadTrees decodes a binary tree file against def and validates every tree.
func ReadTrees(r io.Reader, def *feature.Definition) (*File, error) {
	br := &binReader{r: bufio.NewReader(r)}
	magic, version := br.u32(), br.u32()
	if br.err != nil {
		return nil, br.fail("header")
	}
	if magic != fileMagic {
		return nil, fmt.Errorf("%w: bad magic %#08x", ErrFormat, magic)
	}
	if version != fileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, version)
	}
	f := &File{Type: br.u32()}
	n := br.u32()
	if br.err != nil {
		return nil, br.fail("header")
	}
	for i := uint32(0); i < n; i++ {
		t, err := readTree(br, def)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		f.Trees = append(f.Trees, t)
	}
	return f, nil
}

func readTree(br *binReader, def *feature.Definition) (*Tree, error) {
	t := NewTree(br.str())
	nodeCount := br.u32()
	if br.err != nil {
		return nil, br.fail("tree header")
	}
	defs := make([]string, 0, min(nodeCount, 1<<16))
	for i := uint32(0); i < nodeCount; i++ {
		defs = append(defs, br.str())
		if br.err != nil {
			return nil, br.fail(fmt.Sprintf("node %d", i))
		}
		t.AddNode(Node{})
	}
	leafCount := br.u32()
	if br.err != nil {
		return nil, br.fail("leaf count")
	}
	for i := uint32(0); i < leafCount; i++ {
		l := Leaf{Name: br.str(), PdfIndex: int(br.u32()), VoicedWeight: br.f32()}
		dim := br.u32()
		if br.err != nil {
			return nil, br.fail(fmt.Sprintf("leaf %d", i))
		}
		if dim > 1<<16 {
			return nil, fmt.Errorf("%w: leaf %d: dimension %d too large", ErrFormat, i, dim)
		}
		l.Mean = make([]float64, dim)
		l.Var = make([]float64, dim)
		for k := range l.Mean {
			l.Mean[k] = br.f32()
			l.Var[k] = br.f32()
		}
		if br.err != nil {
			return nil, br.fail(fmt.Sprintf("leaf %d", i))
		}
		t.AddLeaf(l)
	}
	if nodeCount == 0 && leafCount != 1 {
		return nil, fmt.Errorf("%w: tree %q has no nodes and %d leaves", ErrFormat, t.Name, leafCount)
	}
	for i, s := range defs {
		if err := t.parseNodeDefinition(i, s, def); err != nil {
			return nil, fmt.Errorf("tree %q node %d: %w", t.Name, i, err)
		}
	}
	if err := t.Validate(def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return t, nil
}

func (t *Tree) parseNodeDefinition(i int, s string, def *feature.Definition) error {
	fields := strings.Fields(s)
	if len(fields) < 4 {
		return fmt.Errorf("%w: malformed node definition %q", ErrFormat, s)
	}
	fi, err := def.FeatureIndex(fields[0])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFormat, err)
	}
	n := &t.Nodes[i]
	n.Feature = fi
	kind := def.Kind(fi)
	switch {
	case fields[1] == "==" && kind == feature.Byte:
		n.Kind = BinaryByte
	case fields[1] == "==" && kind == feature.Short:
		n.Kind = BinaryShort
	case fields[1] == "<" && kind == feature.Continuous:
		n.Kind = BinaryFloat
	case fields[1] == "[]" && kind == feature.Byte:
		n.Kind = NaryByte
	case fields[1] == "[]" && kind == feature.Short:
		n.Kind = NaryShort
	default:
		return fmt.Errorf("%w: operator %q on %v feature %s", ErrFormat, fields[1], kind, fields[0])
	}
	switch n.Kind {
	case BinaryByte, BinaryShort:
		if n.Value, err = def.ValueIndex(fi, fields[2]); err != nil {
			return fmt.Errorf("%w: %w", ErrFormat, err)
		}
	case BinaryFloat:
		x, err := strconv.ParseFloat(fields[2], 32)
		if err != nil {
			return fmt.Errorf("%w: threshold %q", ErrFormat, fields[2])
		}
		n.Threshold = float32(x)
	}

	count, err := strconv.Atoi(fields[3])
	if err != nil || count < 0 {
		return fmt.Errorf("%w: bad daughter count %q", ErrFormat, fields[3])
	}
	want := 2
	if !n.Kind.Binary() {
		want = def.NumValues(fi)
	}
	if count != want || len(fields) != 4+count {
		return fmt.Errorf("%w: daughter count mismatch: %d declared, %d given, %d expected", ErrFormat, count, len(fields)-4, want)
	}
	for d, tok := range fields[4:] {
		ref, err := parseRef(tok)
		if err != nil {
			return err
		}
		if err := t.SetDaughter(NodeRef(i), d, ref); err != nil {
			return fmt.Errorf("%w: %w", ErrFormat, err)
		}
	}
	return nil
}

func parseRef(tok string) (Ref, error) {
	if tok == "-" {
		return NullRef, nil
	}
	if len(tok) < 2 || (tok[0] != 'n' && tok[0] != 'l') {
		return NullRef, fmt.Errorf("%w: bad reference %q", ErrFormat, tok)
	}
	i, err := strconv.Atoi(tok[1:])
	if err != nil || i < 0 || i > math.MaxInt32-1 {
		return NullRef, fmt.Errorf("%w: bad reference %q", ErrFormat, tok)
	}
	if tok[0] == 'l' {
		return LeafRef(i), nil
	}
	return NodeRef(i), nil
}

type binWriter struct {
	w   *bufio.Writer
	err error
}

func (b *binWriter) u32(v uint32) {
	if b.err == nil {
		b.err = binary.Write(b.w, binary.BigEndian, v)
	}
}

func (b *binWriter) f32(v float64) {
	if b.err == nil {
		b.err = binary.Write(b.w, binary.BigEndian, float32(v))
	}
}

func (b *binWriter) str(s string) {
	if b.err != nil {
		return
	}
	if len(s) > math.MaxUint16 {
		b.err = fmt.Errorf("%w: string of %d bytes too long", ErrFormat, len(s))
		return
	}
	if b.err = binary.Write(b.w, binary.BigEndian, uint16(len(s))); b.err == nil {
		_, b.err = b.w.WriteString(s)
	}
}

type binReader struct {
	r   *bufio.Reader
	err error
}

func (b *binReader) u32() uint32 {
	var v uint32
	if b.err == nil {
		b.err = binary.Read(b.r, binary.BigEndian, &v)
	}
	return v
}

func (b *binReader) f32() float64 {
	var v float32
	if b.err == nil {
		b.err = binary.Read(b.r, binary.BigEndian, &v)
	}
	return float64(v)
}

func (b *binReader) str() string {
	var n uint16
	if b.err == nil {
		b.err = binary.Read(b.r, binary.BigEndian, &n)
	}
	if b.err != nil {
		return ""
	}
	buf := make([]byte, n)
	_, b.err = io.ReadFull(b.r, buf)
	return string(buf)
}

// fail converts a read error into a format error naming where it happened.
func (b *binReader) fail(where string) error {
	if errors.Is(b.err, io.EOF) || errors.Is(b.err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s", ErrFormat, where)
	}
	return fmt.Errorf("read %s: %w", where, b.err)
}
