// Package feature holds the context feature layout consumed by the decision
// trees: the per-voice feature definition and the per-phone feature vectors.
package feature

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Kind is the storage class of a feature.
type Kind int

const (
	Byte Kind = iota
	Short
	Continuous
)

func (k Kind) String() string {
	switch k {
	case Byte:
		return "byte"
	case Short:
		return "short"
	case Continuous:
		return "continuous"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

const (
	byteHeader       = "ByteValuedFeatureProcessors"
	shortHeader      = "ShortValuedFeatureProcessors"
	continuousHeader = "ContinuousFeatureProcessors"

	maxByteValues  = 256
	maxShortValues = 32767
)

// Definition is the ordered feature layout of a voice. Byte-valued features
// come first, then short-valued, then continuous; the global feature index
// follows that order. A Definition is immutable once built and may be shared
// between goroutines.
type Definition struct {
	names   []string
	values  [][]string       // discrete features only
	lookup  []map[string]int // value name -> index, discrete features only
	index   map[string]int
	nBytes  int
	nShorts int
}

// NewDefinition builds a definition from explicit value lists.
// bytes and shorts map feature names to their ordered values; the order of
// the feature names is given by the byteNames/shortNames slices.
func NewDefinition(byteNames []string, byteValues [][]string, shortNames []string, shortValues [][]string, floatNames []string) (*Definition, error) {
	if len(byteNames) != len(byteValues) || len(shortNames) != len(shortValues) {
		return nil, fmt.Errorf("%w: names and value lists differ in length", ErrFormat)
	}
	d := &Definition{index: make(map[string]int)}
	for i, name := range byteNames {
		if err := d.addDiscrete(name, byteValues[i], maxByteValues); err != nil {
			return nil, err
		}
	}
	d.nBytes = len(byteNames)
	for i, name := range shortNames {
		if err := d.addDiscrete(name, shortValues[i], maxShortValues); err != nil {
			return nil, err
		}
	}
	d.nShorts = len(shortNames)
	for _, name := range floatNames {
		if err := d.addName(name); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Definition) addName(name string) error {
	if _, dup := d.index[name]; dup {
		return fmt.Errorf("%w: duplicate feature %q", ErrFormat, name)
	}
	d.index[name] = len(d.names)
	d.names = append(d.names, name)
	return nil
}

func (d *Definition) addDiscrete(name string, values []string, limit int) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: feature %q has no values", ErrFormat, name)
	}
	if len(values) > limit {
		return fmt.Errorf("%w: feature %q has %d values, limit %d", ErrFormat, name, len(values), limit)
	}
	if err := d.addName(name); err != nil {
		return err
	}
	lk := make(map[string]int, len(values))
	for i, v := range values {
		if _, dup := lk[v]; !dup {
			lk[v] = i
		}
	}
	d.values = append(d.values, append([]string(nil), values...))
	d.lookup = append(d.lookup, lk)
	return nil
}

// ReadDefinition parses the text form of a feature definition:
//
//	ByteValuedFeatureProcessors
//	phone 0 _ a b ...
//	ShortValuedFeatureProcessors
//	...
//	ContinuousFeatureProcessors
//	unit_duration float
//
// Leading '#' comment lines are skipped. The continuous section ends at a
// blank line or EOF. A "weight | " prefix on a feature line is ignored.
func ReadDefinition(r io.Reader) (*Definition, error) {
	return readDefinition(newLineScanner(r))
}

func readDefinition(sc *lineScanner) (*Definition, error) {
	var (
		byteNames, shortNames, floatNames []string
		byteValues, shortValues           [][]string
	)
	section := ""
scan:
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if section == "" {
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if line != byteHeader {
				return nil, fmt.Errorf("%w: line %d: expected %s, got %q", ErrFormat, sc.line, byteHeader, line)
			}
			section = byteHeader
			continue
		}
		switch line {
		case shortHeader:
			if section != byteHeader {
				return nil, fmt.Errorf("%w: line %d: unexpected %s", ErrFormat, sc.line, line)
			}
			section = shortHeader
			continue
		case continuousHeader:
			if section != shortHeader {
				return nil, fmt.Errorf("%w: line %d: unexpected %s", ErrFormat, sc.line, line)
			}
			section = continuousHeader
			continue
		}
		if line == "" {
			if section == continuousHeader {
				break scan
			}
			return nil, fmt.Errorf("%w: line %d: blank line inside %s", ErrFormat, sc.line, section)
		}
		if i := strings.Index(line, "|"); i >= 0 {
			line = strings.TrimSpace(line[i+1:])
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil, fmt.Errorf("%w: line %d: missing feature name", ErrFormat, sc.line)
		}
		switch section {
		case byteHeader:
			byteNames = append(byteNames, fields[0])
			byteValues = append(byteValues, fields[1:])
		case shortHeader:
			shortNames = append(shortNames, fields[0])
			shortValues = append(shortValues, fields[1:])
		case continuousHeader:
			floatNames = append(floatNames, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read feature definition: %w", err)
	}
	if section != continuousHeader {
		return nil, fmt.Errorf("%w: missing %s section", ErrFormat, continuousHeader)
	}
	return NewDefinition(byteNames, byteValues, shortNames, shortValues, floatNames)
}

// WriteTo writes the definition in the text form accepted by ReadDefinition,
// followed by the terminating blank line.
func (d *Definition) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	b.WriteString(byteHeader + "\n")
	for i := 0; i < d.nBytes+d.nShorts; i++ {
		if i == d.nBytes {
			b.WriteString(shortHeader + "\n")
		}
		b.WriteString(d.names[i])
		for _, v := range d.values[i] {
			b.WriteByte(' ')
			b.WriteString(v)
		}
		b.WriteByte('\n')
	}
	if d.nShorts == 0 {
		b.WriteString(shortHeader + "\n")
	}
	b.WriteString(continuousHeader + "\n")
	for _, name := range d.names[d.nBytes+d.nShorts:] {
		b.WriteString(name + " float\n")
	}
	b.WriteByte('\n')
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// NumFeatures returns the total number of features.
func (d *Definition) NumFeatures() int { return len(d.names) }

// NumByteFeatures returns the number of byte-valued features.
func (d *Definition) NumByteFeatures() int { return d.nBytes }

// NumShortFeatures returns the number of short-valued features.
func (d *Definition) NumShortFeatures() int { return d.nShorts }

// NumContinuousFeatures returns the number of continuous features.
func (d *Definition) NumContinuousFeatures() int { return len(d.names) - d.nBytes - d.nShorts }

// FeatureIndex returns the global index of the named feature.
func (d *Definition) FeatureIndex(name string) (int, error) {
	i, ok := d.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}
	return i, nil
}

// HasFeature reports whether the named feature exists.
func (d *Definition) HasFeature(name string) bool {
	_, ok := d.index[name]
	return ok
}

// FeatureName returns the name of feature i, or "" when out of range.
func (d *Definition) FeatureName(i int) string {
	if i < 0 || i >= len(d.names) {
		return ""
	}
	return d.names[i]
}

// Kind returns the storage class of feature i.
func (d *Definition) Kind(i int) Kind {
	switch {
	case i < d.nBytes:
		return Byte
	case i < d.nBytes+d.nShorts:
		return Short
	}
	return Continuous
}

// NumValues returns the value cardinality of discrete feature i, 0 for
// continuous or out-of-range features.
func (d *Definition) NumValues(i int) int {
	if i < 0 || i >= len(d.values) {
		return 0
	}
	return len(d.values[i])
}

// ValueIndex maps a symbolic value of discrete feature i to its index.
func (d *Definition) ValueIndex(i int, value string) (int, error) {
	if i < 0 || i >= len(d.lookup) {
		return -1, fmt.Errorf("%w: feature %d is not discrete", ErrUnknownFeature, i)
	}
	v, ok := d.lookup[i][value]
	if !ok {
		return -1, fmt.Errorf("%w: %q for feature %s", ErrUnknownValue, value, d.names[i])
	}
	return v, nil
}

// ValueString maps value index v of discrete feature i to its name.
func (d *Definition) ValueString(i, v int) string {
	if i < 0 || i >= len(d.values) || v < 0 || v >= len(d.values[i]) {
		return ""
	}
	return d.values[i][v]
}

// Equal reports whether both definitions describe the same layout.
func (d *Definition) Equal(o *Definition) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil || d.nBytes != o.nBytes || d.nShorts != o.nShorts || len(d.names) != len(o.names) {
		return false
	}
	for i := range d.names {
		if d.names[i] != o.names[i] {
			return false
		}
	}
	for i := range d.values {
		if len(d.values[i]) != len(o.values[i]) {
			return false
		}
		for j := range d.values[i] {
			if d.values[i][j] != o.values[i][j] {
				return false
			}
		}
	}
	return true
}

// lineScanner wraps bufio.Scanner with a line counter for error messages.
type lineScanner struct {
	*bufio.Scanner
	line int
}

func newLineScanner(r io.Reader) *lineScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &lineScanner{Scanner: sc}
}

func (s *lineScanner) Scan() bool {
	ok := s.Scanner.Scan()
	if ok {
		s.line++
	}
	return ok
}
