package acoustic

import (
	"fmt"
	"strings"

	"github.com/ieee0824/hts-go/internal/mathutil"
)

// Model holds the state-level pdfs selected for one phone. Per-state
// matrices are indexed [state][dimension]; LF0Mean and LF0Var are indexed
// [state][msd stream].
type Model struct {
	Name     string
	Dur      []int
	TotalDur int

	LF0Mean, LF0Var   mathutil.Mat
	Voiced            []bool
	McepMean, McepVar mathutil.Mat
	StrMean, StrVar   mathutil.Mat
	MagMean, MagVar   mathutil.Mat

	GVSwitch  bool
	NumVoiced int
	Prosody   Prosody
}

func newModel(numStates int) *Model {
	return &Model{
		Dur:      make([]int, numStates),
		LF0Mean:  make(mathutil.Mat, numStates),
		LF0Var:   make(mathutil.Mat, numStates),
		Voiced:   make([]bool, numStates),
		McepMean: make(mathutil.Mat, numStates),
		McepVar:  make(mathutil.Mat, numStates),
		StrMean:  make(mathutil.Mat, numStates),
		StrVar:   make(mathutil.Mat, numStates),
		MagMean:  make(mathutil.Mat, numStates),
		MagVar:   make(mathutil.Mat, numStates),
		GVSwitch: true,
	}
}

// Pdfs returns the mean and variance matrices of stream s. Duration has
// none.
func (m *Model) Pdfs(s Stream) (mean, variance mathutil.Mat) {
	switch s {
	case LF0:
		return m.LF0Mean, m.LF0Var
	case Mcep:
		return m.McepMean, m.McepVar
	case Str:
		return m.StrMean, m.StrVar
	case Mag:
		return m.MagMean, m.MagVar
	}
	return nil, nil
}

// Utterance is the sequence of phone models of one sentence.
type Utterance struct {
	Models      []*Model
	NumStates   int
	TotalFrames int
	LF0Frames   int
}

// StateAt returns the model and state occupied by frame t.
func (u *Utterance) StateAt(t int) (*Model, int, bool) {
	for _, m := range u.Models {
		if t < m.TotalDur {
			for s, d := range m.Dur {
				if t < d {
					return m, s, true
				}
				t -= d
			}
		}
		t -= m.TotalDur
	}
	return nil, 0, false
}

// RealisedDurations lists the cumulative end time of every phone:
// "#" followed by one "<seconds> <index> <phone>" line per phone.
func (u *Utterance) RealisedDurations(framePeriodSec float64) string {
	var b strings.Builder
	b.WriteString("#\n")
	frames := 0
	for i, m := range u.Models {
		frames += m.TotalDur
		fmt.Fprintf(&b, "%g %d %s\n", float64(frames)*framePeriodSec, i, m.Name)
	}
	return b.String()
}
