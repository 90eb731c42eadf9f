package main

import (
	"flag"
	"fmt"

	"github.com/kshedden/raptor/internal/config"
	"github.com/kshedden/raptor/internal/precompute"
)

func runPrepare(args []string) error {
	fs := flag.NewFlagSet("prepare", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "TOML config file (internal/config.Prepare)")
	var c config.Prepare
	fs.IntVar(&c.Threads, "threads", 0, "number of worker goroutines")
	fs.BoolVar(&c.Quiet, "quiet", false, "accepted but has no effect; progress goes only to the log file")
	fs.StringVar(&c.TimingOutput, "timing-output", "", "directory for the run's log file/profile")
	fs.StringVar(&c.Output, "output", "", "output directory for precomputed .minimiser/.header files")
	fs.StringVar(&c.Input, "input", "", "bin-path list file")
	fs.IntVar(&c.KmerSize, "kmer", 0, "ungapped k-mer size")
	fs.StringVar(&c.ShapeBitmask, "shape", "", "gapped shape bitmask (binary string)")
	fs.IntVar(&c.WindowSize, "window", 0, "minimiser window size")
	fs.StringVar(&c.CutoffPolicy, "cutoff-policy", "filesize", "cutoff policy: \"fixed\" or \"filesize\"")
	fs.IntVar(&c.FixedCutoff, "cutoff", 0, "fixed minimum minimiser occurrence count (requires --cutoff-policy fixed)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgPath != "" {
		var fileCfg config.Prepare
		if err := config.Load(*cfgPath, &fileCfg); err != nil {
			return err
		}
		mergePrepareConfig(&fileCfg, &c, fs)
		c = fileCfg
	}

	if c.Input == "" || c.Output == "" {
		return fmt.Errorf("--input and --output are required")
	}
	sh, err := resolveShape(c.KmerSize, c.ShapeBitmask)
	if err != nil {
		return err
	}
	if c.WindowSize < int(sh.Size) {
		return fmt.Errorf("--window (%d) must be >= shape size (%d)", c.WindowSize, sh.Size)
	}

	var policy precompute.CutoffPolicy
	switch c.CutoffPolicy {
	case "fixed":
		policy = precompute.CutoffFixed
		if c.FixedCutoff <= 0 {
			return fmt.Errorf("--cutoff-policy fixed requires --cutoff > 0")
		}
	case "filesize", "":
		policy = precompute.CutoffFileSize
	default:
		return fmt.Errorf("--cutoff-policy must be \"fixed\" or \"filesize\", got %q", c.CutoffPolicy)
	}

	dir, err := timingDir(c.TimingOutput)
	if err != nil {
		return err
	}
	logger, err = setupLog(dir, "prepare.log")
	if err != nil {
		return err
	}

	bins, err := parseBinPathList(c.Input)
	if err != nil {
		return err
	}
	logger.Printf("loaded %d user bins from %s", len(bins), c.Input)

	opts := precompute.Options{
		Shape:       sh,
		WindowSize:  c.WindowSize,
		Policy:      policy,
		FixedCutoff: c.FixedCutoff,
	}

	skipped := 0
	for i, files := range bins {
		outBase := binOutputBase(c.Output, i)
		result, err := opts.Run(files, outBase)
		if err != nil {
			return fmt.Errorf("bin %d: %w", i, err)
		}
		if result.Skipped {
			skipped++
			continue
		}
		if i%1000 == 0 {
			logger.Printf("precomputed bin %d/%d (cutoff=%d kept=%d)", i, len(bins), result.Cutoff, result.KeptCount)
		}
	}
	logger.Printf("finished: %d bins processed, %d already complete", len(bins)-skipped, skipped)
	return nil
}

// binOutputBase names a user bin's output file pair deterministically
// by its position in the bin-path list, so a resumed run addresses
// the same "<dir>/<index>.minimiser"/".header" pair it would have
// written on a prior attempt.
func binOutputBase(outDir string, binIndex int) string {
	return fmt.Sprintf("%s/%08d", outDir, binIndex)
}

func mergePrepareConfig(fileCfg, flagCfg *config.Prepare, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "threads":
			fileCfg.Threads = flagCfg.Threads
		case "quiet":
			fileCfg.Quiet = flagCfg.Quiet
		case "timing-output":
			fileCfg.TimingOutput = flagCfg.TimingOutput
		case "output":
			fileCfg.Output = flagCfg.Output
		case "input":
			fileCfg.Input = flagCfg.Input
		case "kmer":
			fileCfg.KmerSize = flagCfg.KmerSize
		case "shape":
			fileCfg.ShapeBitmask = flagCfg.ShapeBitmask
		case "window":
			fileCfg.WindowSize = flagCfg.WindowSize
		case "cutoff-policy":
			fileCfg.CutoffPolicy = flagCfg.CutoffPolicy
		case "cutoff":
			fileCfg.FixedCutoff = flagCfg.FixedCutoff
		}
	})
}
