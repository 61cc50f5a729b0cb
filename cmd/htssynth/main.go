package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	hts "github.com/ieee0824/hts-go"
	"github.com/ieee0824/hts-go/acoustic"
	"github.com/ieee0824/hts-go/internal/cli"
	"github.com/ieee0824/hts-go/paramgen"
)

func main() {
	configPath := flag.String("config", "", "path to voice config (JSON)")
	pfeatsPath := flag.String("pfeats", "", "path to target feature file")
	outPath := flag.String("o", "out.wav", "output WAV file")
	useGV := flag.Bool("gv", false, "use global variance")
	gvMethod := flag.String("gv-method", "gradient", "GV optimization: gradient or derivative")
	f0Std := flag.Float64("f0-std", 1.0, "F0 scaling around the mean (0..3)")
	f0Mean := flag.Float64("f0-mean", 0, "F0 shift in Hz (-300..300)")
	durScale := flag.Float64("dur-scale", 1.0, "duration scale (0.1..3)")
	rho := flag.Float64("rho", 0, "speaking rate control")
	beta := flag.Float64("beta", 0, "postfilter strength (0..1)")
	mixed := flag.Bool("mixed", true, "use mixed excitation")
	fourier := flag.Bool("fourier", false, "use Fourier magnitude pulses")
	gauss := flag.Bool("gauss", false, "use Gaussian noise")
	lf0Path := flag.String("lf0", "", "external log F0 file (float32 per frame)")
	durPath := flag.String("durations", "", "write realised phone durations to this file")
	f0Path := flag.String("f0", "", "write realised F0 targets to this file")
	paramsDir := flag.String("params", "", "write generated parameters to this directory")
	verbose := flag.Bool("v", false, "verbose output")

	flag.Parse()
	cli.SetupLogging(*verbose)

	if *configPath == "" || *pfeatsPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: htssynth -config VOICE.json -pfeats TARGET.pfeats [-o OUT.wav]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Only flags given on the command line override the voice config.
	var opts []hts.Option
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "gv":
			opts = append(opts, hts.WithGV(*useGV))
		case "gv-method":
			m, err := paramgen.ParseGVMethod(*gvMethod)
			if err != nil {
				flagErr = err
				return
			}
			opts = append(opts, hts.WithGVMethod(m))
		case "f0-std", "f0-mean":
			opts = append(opts, hts.WithF0Control(*f0Std, *f0Mean))
		case "dur-scale":
			opts = append(opts, hts.WithDurationScale(*durScale))
		case "rho":
			opts = append(opts, hts.WithRho(*rho))
		case "beta":
			opts = append(opts, hts.WithPostfilter(*beta))
		case "mixed":
			opts = append(opts, hts.WithMixedExcitation(*mixed))
		case "fourier":
			opts = append(opts, hts.WithFourierMagnitudes(*fourier))
		case "gauss":
			opts = append(opts, hts.WithGaussianNoise(*gauss))
		case "lf0":
			opts = append(opts, hts.WithLogF0File(*lf0Path))
		}
	})
	if flagErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", flagErr)
		os.Exit(1)
	}

	synth, err := hts.NewSynthesizer(*configPath, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result, err := synth.SynthesizeFile(*pfeatsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := result.WriteWAV(*outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *durPath != "" {
		if err := os.WriteFile(*durPath, []byte(result.RealisedDurations()), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *f0Path != "" {
		data := strings.Join(result.RealisedF0(), "\n") + "\n"
		if err := os.WriteFile(*f0Path, []byte(data), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *paramsDir != "" {
		if err := writeParams(*paramsDir, result.Params); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Frames: %d (%d voiced)\n", result.Params.NumFrames(), result.Params.NumVoiced())
		fmt.Fprintf(os.Stderr, "Samples: %d at %d Hz\n", len(result.Samples), result.SampleRate)
	}
}

// writeParams writes one <stream>.bin file of float32 values per generated
// stream.
func writeParams(dir string, p *paramgen.Params) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, s := range []acoustic.Stream{acoustic.LF0, acoustic.Mcep, acoustic.Str, acoustic.Mag} {
		if p.Matrix(s) == nil {
			continue
		}
		f, err := os.Create(filepath.Join(dir, s.String()+".bin"))
		if err != nil {
			return err
		}
		err = p.WriteFloat32(f, s)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}
	return nil
}
