package feature

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadFeatureFile reads a target feature file: a feature definition, a blank
// line, then blocks separated by blank lines. The last block holds one
// numeric feature vector per phone; earlier blocks (symbolic listings) are
// skipped.
func ReadFeatureFile(r io.Reader) (*Definition, []Vector, error) {
	sc := newLineScanner(r)
	def, err := readDefinition(sc)
	if err != nil {
		return nil, nil, err
	}

	var blocks [][]string
	var cur []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			if cur != nil {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read feature vectors: %w", err)
	}
	if cur != nil {
		blocks = append(blocks, cur)
	}
	if len(blocks) == 0 {
		return nil, nil, fmt.Errorf("%w: no feature vectors", ErrFormat)
	}

	lines := blocks[len(blocks)-1]
	vectors := make([]Vector, len(lines))
	for i, line := range lines {
		v, err := def.ParseVector(line, i)
		if err != nil {
			return nil, nil, fmt.Errorf("vector %d: %w", i, err)
		}
		vectors[i] = v
	}
	return def, vectors, nil
}

// ReadFeatureFileFrom opens path and reads it with ReadFeatureFile.
func ReadFeatureFileFrom(path string) (*Definition, []Vector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadFeatureFile(f)
}

// ReadDefinitionFile opens path and reads it with ReadDefinition.
func ReadDefinitionFile(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDefinition(f)
}
