package vocoder

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadMixFilters reads the band-pass filter bank of mixed excitation: all
// taps of filter 0, then filter 1, and so on, separated by whitespace.
// Lines starting with '#' are comments.
func ReadMixFilters(r io.Reader, numFilters int) ([][]float64, error) {
	if numFilters <= 0 {
		return nil, fmt.Errorf("%w: %d filters", ErrFormat, numFilters)
	}
	var taps []float64
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, f := range strings.Fields(line) {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %q", ErrFormat, lineNo, f)
			}
			taps = append(taps, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read mix filters: %w", err)
	}
	if len(taps) == 0 || len(taps)%numFilters != 0 {
		return nil, fmt.Errorf("%w: %d taps for %d filters", ErrFormat, len(taps), numFilters)
	}
	order := len(taps) / numFilters
	h := make([][]float64, numFilters)
	for i := range h {
		h[i] = taps[i*order : (i+1)*order : (i+1)*order]
	}
	return h, nil
}

// ReadMixFiltersFile reads a filter bank from path.
func ReadMixFiltersFile(path string, numFilters int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mix filters: %w", err)
	}
	defer f.Close()
	return ReadMixFilters(f, numFilters)
}
