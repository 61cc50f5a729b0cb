package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ieee0824/hts-go/audio"
	"github.com/ieee0824/hts-go/internal/cli"
	"github.com/ieee0824/hts-go/internal/mathutil"
	"github.com/ieee0824/hts-go/paramgen"
	"github.com/ieee0824/hts-go/vocoder"
)

func main() {
	defaults := vocoder.DefaultConfig()
	mcepPath := flag.String("mcep", "", "mel-cepstrum file (float32, order+1 per frame)")
	lf0Path := flag.String("lf0", "", "log F0 file (float32 per frame, <= 0 unvoiced)")
	order := flag.Int("order", 24, "mel-cepstral order")
	strPath := flag.String("str", "", "bandpass voicing strengths file")
	filtersPath := flag.String("filters", "", "mixed excitation filter file")
	numFilters := flag.Int("num-filters", 5, "number of mixed excitation bands")
	magPath := flag.String("mag", "", "Fourier magnitudes file")
	magOrder := flag.Int("mag-order", 10, "Fourier magnitudes per frame")
	alpha := flag.Float64("alpha", defaults.Alpha, "all-pass constant")
	beta := flag.Float64("beta", defaults.Beta, "postfilter strength (0..1)")
	rate := flag.Int("rate", defaults.SampleRate, "sample rate in Hz")
	period := flag.Int("period", defaults.FramePeriod, "frame period in samples")
	f0Std := flag.Float64("f0-std", defaults.F0Std, "F0 scaling around the mean")
	f0Mean := flag.Float64("f0-mean", defaults.F0Mean, "F0 shift in Hz")
	gauss := flag.Bool("gauss", false, "use Gaussian noise")
	seed := flag.Int64("seed", defaults.Seed, "noise seed")
	outPath := flag.String("o", "out.wav", "output WAV file")
	verbose := flag.Bool("v", false, "verbose output")

	flag.Parse()
	cli.SetupLogging(*verbose)

	if *mcepPath == "" || *lf0Path == "" {
		fmt.Fprintln(os.Stderr, "Usage: mlsavocode -mcep MCEP -lf0 LF0 -order N [-str STR -filters FILTERS] [-mag MAG] -o OUT.wav")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := vocoder.Config{
		SampleRate:  *rate,
		FramePeriod: *period,
		Alpha:       *alpha,
		Beta:        *beta,
		F0Std:       *f0Std,
		F0Mean:      *f0Mean,
		Seed:        *seed,

		MixedExcitation:   *strPath != "" && *filtersPath != "",
		FourierMagnitudes: *magPath != "",
		GaussianNoise:     *gauss,
	}

	mcep, err := vocoder.ReadParamsFile(*mcepPath, *order+1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: read mel-cepstrum: %v\n", err)
		os.Exit(1)
	}
	lf0, err := paramgen.ReadLF0File(*lf0Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: read log F0: %v\n", err)
		os.Exit(1)
	}
	var str, mag mathutil.Mat
	var filters [][]float64
	if cfg.MixedExcitation {
		if str, err = vocoder.ReadParamsFile(*strPath, *numFilters); err != nil {
			fmt.Fprintf(os.Stderr, "Error: read strengths: %v\n", err)
			os.Exit(1)
		}
		if filters, err = vocoder.ReadMixFiltersFile(*filtersPath, *numFilters); err != nil {
			fmt.Fprintf(os.Stderr, "Error: read filters: %v\n", err)
			os.Exit(1)
		}
	}
	if cfg.FourierMagnitudes {
		if mag, err = vocoder.ReadParamsFile(*magPath, *magOrder); err != nil {
			fmt.Fprintf(os.Stderr, "Error: read Fourier magnitudes: %v\n", err)
			os.Exit(1)
		}
	}

	voc, err := vocoder.New(cfg, filters)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	samples, err := voc.VocodeMatrices(mcep, lf0, str, mag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	samples = audio.Normalize(samples, audio.DefaultPeak)
	if err := audio.WriteWAVFile(*outPath, samples, cfg.SampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Frames: %d, samples: %d\n", len(mcep), len(samples))
	}
}
