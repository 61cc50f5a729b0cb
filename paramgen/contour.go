package paramgen

import (
	"math"
	"slices"

	"github.com/ieee0824/hts-go/acoustic"
)

// hasTargets reports whether any phone carries F0 targets.
func hasTargets(utt *acoustic.Utterance) bool {
	for _, m := range utt.Models {
		if len(m.Prosody.F0) > 0 {
			return true
		}
	}
	return false
}

// phoneVoiced counts the voiced frames of every phone.
func phoneVoiced(utt *acoustic.Utterance, voiced []bool) []int {
	counts := make([]int, len(utt.Models))
	t := 0
	for i, m := range utt.Models {
		for end := t + m.TotalDur; t < end && t < len(voiced); t++ {
			if voiced[t] {
				counts[i]++
			}
		}
	}
	return counts
}

// TargetContour builds the log F0 of the voiced frames from the F0 targets
// of the phones. A target at 0% lands on the first voiced frame of its
// phone, 100% on the last, p% on frame n*p/100; a phone with exactly one
// target per voiced frame takes them in order. Frames between targets are
// interpolated linearly in Hz and frames before the first or after the last
// target hold its value. ok is false when no target falls on a voiced
// frame.
func TargetContour(utt *acoustic.Utterance, voiced []bool) (lf0 []float64, ok bool) {
	counts := phoneVoiced(utt, voiced)
	var hz []float64
	for i, m := range utt.Models {
		n := counts[i]
		start := len(hz)
		hz = append(hz, make([]float64, n)...)
		if n == 0 || len(m.Prosody.F0) == 0 {
			continue
		}
		seg := hz[start:]
		targets := slices.Clone(m.Prosody.F0)
		slices.SortStableFunc(targets, func(a, b acoustic.F0Target) int { return a.Percent - b.Percent })
		if len(targets) == n {
			for k, tg := range targets {
				seg[k] = tg.Hz
			}
			continue
		}
		for _, tg := range targets {
			var k int
			switch tg.Percent {
			case 0:
				k = 0
			case 100:
				k = n - 1
			default:
				k = min(n*tg.Percent/100, n-1)
			}
			seg[k] = tg.Hz
		}
	}
	if !interpolate(hz) {
		return nil, false
	}
	for i, v := range hz {
		hz[i] = math.Log(v)
	}
	return hz, true
}

// interpolate fills the non-positive entries of x between positive anchors
// linearly and extends the outermost anchors to the edges.
func interpolate(x []float64) bool {
	prev := -1
	for i, v := range x {
		if v <= 0 {
			continue
		}
		if prev < 0 {
			for j := 0; j < i; j++ {
				x[j] = v
			}
		} else {
			slope := (v - x[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				x[j] = x[prev] + slope*float64(j-prev)
			}
		}
		prev = i
	}
	if prev < 0 {
		return false
	}
	for j := prev + 1; j < len(x); j++ {
		x[j] = x[prev]
	}
	return true
}

// RealisedF0 lists for every phone the F0 of its voiced frames as
// "(percent,Hz)" pairs, percent = k*100/n for the k-th of n voiced frames.
// Phones without voiced frames get an empty string.
func RealisedF0(utt *acoustic.Utterance, p *Params) []string {
	counts := phoneVoiced(utt, p.Voiced)
	out := make([]string, len(utt.Models))
	v := 0
	for i, n := range counts {
		if n == 0 {
			continue
		}
		targets := make([]acoustic.F0Target, 0, n)
		for k := 1; k <= n && v < len(p.LF0); k++ {
			targets = append(targets, acoustic.F0Target{Percent: k * 100 / n, Hz: math.Exp(p.LF0[v])})
			v++
		}
		out[i] = acoustic.FormatF0Targets(targets)
	}
	return out
}
