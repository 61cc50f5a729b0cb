package paramgen

import "github.com/ieee0824/hts-go/acoustic"

// Config controls parameter generation.
type Config struct {
	UseGV     bool
	GVMethod  GVMethod
	MaxGVIter [acoustic.NumStreams]int
	GVWeight  [acoustic.NumStreams]float64
}

// DefaultConfig returns generation without GV; enabling GV uses the
// gradient method with 100 iterations and unit weight per stream.
func DefaultConfig() Config {
	cfg := Config{GVMethod: GVGradient}
	for s := range cfg.MaxGVIter {
		cfg.MaxGVIter[s] = 100
		cfg.GVWeight[s] = 1.0
	}
	return cfg
}

// gvTarget returns the GV settings of stream s, nil when GV does not apply.
func (c Config) gvTarget(s acoustic.Stream, gv *acoustic.GVModel) *GVTarget {
	if !c.UseGV || !gv.Has(s) {
		return nil
	}
	return &GVTarget{
		Method:  c.GVMethod,
		MaxIter: c.MaxGVIter[s],
		Weight:  c.GVWeight[s],
		Mean:    gv.Mean[s],
		IVar:    gv.IVar[s],
	}
}
