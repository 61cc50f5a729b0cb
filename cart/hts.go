package cart

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/op/go-logging"

	"github.com/ieee0824/hts-go/feature"
)

var log = logging.MustGetLogger("cart")

// maxStates bounds the state number of a tree header.
const maxStates = 64

// Unescaper maps the HTK-safe spelling of a feature value back to the symbol
// used in the feature definition.
type Unescaper interface {
	Unescape(featureName, value string) string
}

// ParseHTS reads an HTS tree file (tree-*.inf) and returns one tree per
// emitting state, in state order. Question definitions are skipped; each
// "{*}[s]" header starts the tree of state s, whose body is either a single
// quoted leaf name or a braced list of lines
//
//	<id> <feature>=<value> <no> <yes>
//
// The NO child becomes daughter 1 and the YES child daughter 0. Leaves carry
// the zero-based pdf index taken from the trailing "_K" of their name; their
// pdf data is attached later. labels may be nil.
func ParseHTS(r io.Reader, def *feature.Definition, labels Unescaper) ([]*Tree, error) {
	p := &htsParser{sc: bufio.NewScanner(r), def: def, labels: labels}
	p.sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var trees []*Tree
	for {
		line, ok := p.next()
		if !ok {
			break
		}
		if strings.HasPrefix(line, "QS") {
			continue
		}
		if !strings.Contains(line, "{*}") {
			return nil, p.errorf("unexpected line %q", line)
		}
		state, err := parseStateHeader(line)
		if err != nil {
			return nil, p.errorf("%v", err)
		}
		idx := state - 2
		for len(trees) <= idx {
			trees = append(trees, nil)
		}
		if trees[idx] != nil {
			return nil, p.errorf("duplicate tree for state %d", state)
		}
		t, err := p.parseTree(fmt.Sprintf("s%d", state))
		if err != nil {
			return nil, err
		}
		trees[idx] = t
		log.Debugf("tree %s: %d nodes, %d leaves", t.Name, len(t.Nodes), len(t.Leaves))
	}
	if err := p.sc.Err(); err != nil {
		return nil, fmt.Errorf("read tree file: %w", err)
	}
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: no trees", ErrFormat)
	}
	for i, t := range trees {
		if t == nil {
			return nil, fmt.Errorf("%w: missing tree for state %d", ErrFormat, i+2)
		}
		if err := t.Validate(def); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
	}
	return trees, nil
}

type htsParser struct {
	sc     *bufio.Scanner
	line   int
	def    *feature.Definition
	labels Unescaper
}

// next returns the next non-blank trimmed line.
func (p *htsParser) next() (string, bool) {
	for p.sc.Scan() {
		p.line++
		if s := strings.TrimSpace(p.sc.Text()); s != "" {
			return s, true
		}
	}
	return "", false
}

func (p *htsParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrFormat, p.line, fmt.Sprintf(format, args...))
}

func parseStateHeader(line string) (int, error) {
	open := strings.Index(line, "[")
	end := strings.Index(line, "]")
	if open < 0 || end <= open {
		return 0, fmt.Errorf("malformed tree header %q", line)
	}
	state, err := strconv.Atoi(line[open+1 : end])
	if err != nil || state < 2 || state >= maxStates+2 {
		return 0, fmt.Errorf("bad state in tree header %q", line)
	}
	return state, nil
}

func (p *htsParser) parseTree(name string) (*Tree, error) {
	t := NewTree(name)
	leaves := make(map[string]Ref)

	line, ok := p.next()
	if !ok {
		return nil, p.errorf("tree %s: unexpected end of file", name)
	}
	if strings.HasPrefix(line, `"`) {
		if _, err := p.leaf(t, leaves, line); err != nil {
			return nil, err
		}
		return t, nil
	}
	if line != "{" {
		return nil, p.errorf("tree %s: expected {, got %q", name, line)
	}

	ids := map[int]Ref{0: t.AddNode(Node{Feature: -1})}
	var defined []bool
	defined = append(defined, false)
	for {
		line, ok = p.next()
		if !ok {
			return nil, p.errorf("tree %s: missing }", name)
		}
		if line == "}" {
			break
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, p.errorf("expected 4 fields, got %d", len(fields))
		}
		id, err := parseNodeID(fields[0])
		if err != nil {
			return nil, p.errorf("%v", err)
		}
		ref, ok := ids[id]
		if !ok {
			return nil, p.errorf("node %s used before it is referenced", fields[0])
		}
		if defined[ref.Index()] {
			return nil, p.errorf("node %s defined twice", fields[0])
		}
		defined[ref.Index()] = true
		if err := p.question(&t.Nodes[ref.Index()], fields[1]); err != nil {
			return nil, err
		}
		for d, tok := range [2]string{fields[3], fields[2]} { // yes, no
			var child Ref
			if strings.HasPrefix(tok, "-") {
				cid, err := parseNodeID(tok)
				if err != nil {
					return nil, p.errorf("%v", err)
				}
				if _, dup := ids[cid]; dup {
					return nil, p.errorf("node %s referenced twice", tok)
				}
				child = t.AddNode(Node{Feature: -1})
				ids[cid] = child
				defined = append(defined, false)
			} else if child, err = p.leaf(t, leaves, tok); err != nil {
				return nil, err
			}
			if err := t.SetDaughter(ref, d, child); err != nil {
				return nil, p.errorf("%v", err)
			}
		}
	}
	for id, ref := range ids {
		if !defined[ref.Index()] {
			return nil, fmt.Errorf("%w: tree %s: node -%d referenced but not defined", ErrFormat, name, id)
		}
	}
	return t, nil
}

func parseNodeID(tok string) (int, error) {
	if tok == "0" {
		return 0, nil
	}
	if !strings.HasPrefix(tok, "-") {
		return 0, fmt.Errorf("bad node id %q", tok)
	}
	id, err := strconv.Atoi(tok[1:])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad node id %q", tok)
	}
	return id, nil
}

func (p *htsParser) question(n *Node, q string) error {
	name, value, ok := strings.Cut(q, "=")
	if !ok {
		return p.errorf("question %q is not feature=value", q)
	}
	fi, err := p.def.FeatureIndex(name)
	if err != nil {
		return p.errorf("%v", err)
	}
	switch p.def.Kind(fi) {
	case feature.Byte:
		n.Kind = BinaryByte
	case feature.Short:
		n.Kind = BinaryShort
	default:
		return p.errorf("question on continuous feature %s", name)
	}
	if p.labels != nil {
		value = p.labels.Unescape(name, value)
	}
	vi, err := p.def.ValueIndex(fi, value)
	if err != nil {
		return p.errorf("%v", err)
	}
	n.Feature, n.Value = fi, vi
	return nil
}

func (p *htsParser) leaf(t *Tree, leaves map[string]Ref, tok string) (Ref, error) {
	name := strings.Trim(tok, `"`)
	if ref, ok := leaves[name]; ok {
		return ref, nil
	}
	i := strings.LastIndex(name, "_")
	if i < 0 {
		return NullRef, p.errorf("leaf %q has no pdf index", tok)
	}
	k, err := strconv.Atoi(name[i+1:])
	if err != nil || k < 1 {
		return NullRef, p.errorf("leaf %q has no pdf index", tok)
	}
	ref := t.AddLeaf(Leaf{Name: name, PdfIndex: k - 1})
	leaves[name] = ref
	return ref, nil
}
