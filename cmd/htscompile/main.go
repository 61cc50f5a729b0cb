package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	hts "github.com/ieee0824/hts-go"
	"github.com/ieee0824/hts-go/acoustic"
	"github.com/ieee0824/hts-go/cart"
	"github.com/ieee0824/hts-go/internal/cli"
	"github.com/ieee0824/hts-go/vocoder"
)

func main() {
	configPath := flag.String("config", "", "path to voice config (JSON)")
	outPath := flag.String("o", "", "output compiled voice file")
	treesDir := flag.String("trees-dir", "", "also write one binary tree file per stream to this directory")
	verbose := flag.Bool("v", false, "verbose output")

	flag.Parse()
	cli.SetupLogging(*verbose)

	if *configPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: htscompile -config VOICE.json -o VOICE.htsv [-trees-dir DIR]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := hts.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.FeatureDefinition == "" {
		fmt.Fprintf(os.Stderr, "Error: %v\n", hts.ErrNoVoice)
		os.Exit(1)
	}
	voice, err := acoustic.LoadVoice(cfg.VoiceFiles())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.MixFilters != "" {
		voice.MixFilters, err = vocoder.ReadMixFiltersFile(cfg.MixFilters, cfg.NumFilters)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := save(*outPath, voice); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *treesDir != "" {
		if err := writeTrees(*treesDir, voice.Trees); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *verbose {
		for _, s := range acoustic.Streams() {
			fmt.Fprintf(os.Stderr, "%s: %d trees, vector size %d\n", s, len(voice.Trees.Trees[s]), voice.Trees.VectorSize[s])
		}
	}
}

func save(path string, voice *acoustic.Voice) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create voice: %w", err)
	}
	if err := voice.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("save voice: %w", err)
	}
	return f.Close()
}

func writeTrees(dir string, ts *acoustic.TreeSet) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, s := range acoustic.Streams() {
		if !ts.Has(s) {
			continue
		}
		f, err := os.Create(filepath.Join(dir, "tree-"+s.String()+".bin"))
		if err != nil {
			return err
		}
		err = cart.WriteTrees(f, &cart.File{Type: uint32(s), Trees: ts.Trees[s]}, ts.Def)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write %s trees: %w", s, err)
		}
	}
	return nil
}
