// Package lexicon maps the HTK-safe aliases used in HTS label and tree files
// back to the symbols of the feature definition.
package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Class is a label class with its own alias map.
type Class int

const (
	Phone Class = iota
	Punctuation
	ToBI
	numClasses
)

// Table holds alias -> symbol maps per class, plus the reverse direction.
type Table struct {
	back [numClasses]map[string]string // alias -> symbol
	fwd  [numClasses]map[string]string // symbol -> alias
}

// NewTable returns an empty table.
func NewTable() *Table {
	t := &Table{}
	for c := range t.back {
		t.back[c] = make(map[string]string)
		t.fwd[c] = make(map[string]string)
	}
	return t
}

// DefaultTable returns the built-in aliases for German and English phone
// sets, punctuation and ToBI symbols.
func DefaultTable() *Table {
	t := NewTable()
	for _, p := range [][2]string{
		{"6", "ER6"}, {"2:", "EU2"}, {"9", "EU9"}, {"9~", "UM9"}, {"e~", "IMe"},
		{"a~", "ANa"}, {"o~", "ONo"}, {"?", "gstop"}, {"r=", "rr"},
	} {
		t.Add(Phone, p[0], p[1])
	}
	t.fwd[Phone]["=6"] = "ER6"
	for _, p := range [][2]string{
		{".", "pt"}, {",", "cm"}, {"(", "op"}, {")", "cp"}, {"?", "in"}, {`"`, "qt"},
	} {
		t.Add(Punctuation, p[0], p[1])
	}
	for _, p := range [][2]string{{"*", "st"}, {"%", "pc"}, {"^", "ht"}} {
		t.Add(ToBI, p[0], p[1])
	}
	return t
}

// Add registers alias as the escaped spelling of symbol.
func (t *Table) Add(c Class, symbol, alias string) {
	t.back[c][alias] = symbol
	t.fwd[c][symbol] = alias
}

// Load reads a tricky-phones file on top of the default table.
// Format: one "symbol alias" pair per line, '#' starts a comment line.
func Load(r io.Reader) (*Table, error) {
	t := DefaultTable()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: expected symbol and alias, got %d fields", lineNum, len(parts))
		}
		t.Add(Phone, parts[0], parts[1])
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return t, nil
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// ClassOf returns the label class of a feature, and false for features
// whose values are never escaped.
func ClassOf(featureName string) (Class, bool) {
	switch {
	case featureName == "sentence_punc" || featureName == "prev_punctuation" || featureName == "next_punctuation":
		return Punctuation, true
	case strings.Contains(featureName, "tobi_"):
		return ToBI, true
	case strings.Contains(featureName, "phone"):
		return Phone, true
	}
	return 0, false
}

// Unescape maps an escaped value of the named feature back to its symbol.
// Unknown values are returned unchanged.
func (t *Table) Unescape(featureName, value string) string {
	c, ok := ClassOf(featureName)
	if !ok {
		return value
	}
	if s, ok := t.back[c][value]; ok {
		return s
	}
	return value
}

// Escape is the inverse of Unescape.
func (t *Table) Escape(featureName, value string) string {
	c, ok := ClassOf(featureName)
	if !ok {
		return value
	}
	if a, ok := t.fwd[c][value]; ok {
		return a
	}
	return value
}

// Aliases returns the alias -> symbol pairs of class c.
func (t *Table) Aliases(c Class) map[string]string {
	m := make(map[string]string, len(t.back[c]))
	for k, v := range t.back[c] {
		m[k] = v
	}
	return m
}
