package feature

import (
	"fmt"
	"strconv"
	"strings"
)

// Vector is the context feature record of one linguistic unit (a phone).
// Values are stored by kind in definition order; accessors take the global
// feature index.
type Vector struct {
	Unit   int
	Bytes  []uint8
	Shorts []int16
	Floats []float32
}

// ByteAt returns byte feature i.
func (v Vector) ByteAt(i int) (uint8, bool) {
	if i < 0 || i >= len(v.Bytes) {
		return 0, false
	}
	return v.Bytes[i], true
}

// ShortAt returns short feature i (global index).
func (v Vector) ShortAt(i int) (int16, bool) {
	j := i - len(v.Bytes)
	if j < 0 || j >= len(v.Shorts) {
		return 0, false
	}
	return v.Shorts[j], true
}

// FloatAt returns continuous feature i (global index).
func (v Vector) FloatAt(i int) (float32, bool) {
	j := i - len(v.Bytes) - len(v.Shorts)
	if j < 0 || j >= len(v.Floats) {
		return 0, false
	}
	return v.Floats[j], true
}

// Discrete returns discrete feature i as an int regardless of storage class.
func (v Vector) Discrete(i int) (int, bool) {
	if b, ok := v.ByteAt(i); ok {
		return int(b), true
	}
	if s, ok := v.ShortAt(i); ok {
		return int(s), true
	}
	return 0, false
}

// String renders the vector with symbolic values.
func (v Vector) String(d *Definition) string {
	var b strings.Builder
	for i := 0; i < d.NumFeatures(); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		if d.Kind(i) == Continuous {
			f, _ := v.FloatAt(i)
			b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
			continue
		}
		x, _ := v.Discrete(i)
		b.WriteString(d.ValueString(i, x))
	}
	return b.String()
}

// NewVector allocates a zero vector with the definition's layout.
func (d *Definition) NewVector(unit int) Vector {
	return Vector{
		Unit:   unit,
		Bytes:  make([]uint8, d.nBytes),
		Shorts: make([]int16, d.nShorts),
		Floats: make([]float32, d.NumContinuousFeatures()),
	}
}

// ParseVector parses a line of whitespace separated numeric values, one per
// feature in definition order.
func (d *Definition) ParseVector(line string, unit int) (Vector, error) {
	return d.parse(line, unit, false)
}

// ParseSymbolic is ParseVector with discrete values given by name.
func (d *Definition) ParseSymbolic(line string, unit int) (Vector, error) {
	return d.parse(line, unit, true)
}

func (d *Definition) parse(line string, unit int, symbolic bool) (Vector, error) {
	fields := strings.Fields(line)
	if len(fields) != d.NumFeatures() {
		return Vector{}, fmt.Errorf("%w: expected %d values, got %d", ErrFormat, d.NumFeatures(), len(fields))
	}
	v := d.NewVector(unit)
	for i, f := range fields {
		if d.Kind(i) == Continuous {
			x, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return Vector{}, fmt.Errorf("%w: feature %s: %v", ErrFormat, d.names[i], err)
			}
			v.Floats[i-d.nBytes-d.nShorts] = float32(x)
			continue
		}
		var x int
		if symbolic {
			var err error
			if x, err = d.ValueIndex(i, f); err != nil {
				return Vector{}, err
			}
		} else {
			n, err := strconv.Atoi(f)
			if err != nil {
				return Vector{}, fmt.Errorf("%w: feature %s: %v", ErrFormat, d.names[i], err)
			}
			if n < 0 || n >= len(d.values[i]) {
				return Vector{}, fmt.Errorf("%w: %d for feature %s (%d values)", ErrUnknownValue, n, d.names[i], len(d.values[i]))
			}
			x = n
		}
		if i < d.nBytes {
			v.Bytes[i] = uint8(x)
		} else {
			v.Shorts[i-d.nBytes] = int16(x)
		}
	}
	return v, nil
}
