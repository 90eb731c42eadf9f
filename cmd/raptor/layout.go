package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kshedden/raptor/internal/config"
	"github.com/kshedden/raptor/internal/index"
	"github.com/kshedden/raptor/internal/ioutil"
	"github.com/kshedden/raptor/internal/layout"
	"github.com/kshedden/raptor/internal/reader"
)

func runLayout(args []string) error {
	fs := flag.NewFlagSet("layout", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "TOML config file (internal/config.Layout)")
	var c config.Layout
	fs.IntVar(&c.Threads, "threads", 0, "number of worker goroutines")
	fs.BoolVar(&c.Quiet, "quiet", false, "accepted but has no effect; progress goes only to the log file")
	fs.StringVar(&c.TimingOutput, "timing-output", "", "directory for the run's log file/profile")
	fs.StringVar(&c.Output, "output", "", "output index path")
	fs.StringVar(&c.Input, "input", "", "layout file")
	fs.IntVar(&c.KmerSize, "kmer", 0, "ungapped k-mer size")
	fs.StringVar(&c.ShapeBitmask, "shape", "", "gapped shape bitmask (binary string)")
	fs.IntVar(&c.WindowSize, "window", 0, "minimiser window size")
	fs.Float64Var(&c.FPR, "fpr", 0.01, "target false-positive rate")
	fs.IntVar(&c.HashCount, "hash", 2, "number of hash functions per IBF")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgPath != "" {
		var fileCfg config.Layout
		if err := config.Load(*cfgPath, &fileCfg); err != nil {
			return err
		}
		mergeLayoutConfig(&fileCfg, &c, fs)
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

	dir, err := timingDir(c.TimingOutput)
	if err != nil {
		return err
	}
	logger, err = setupLog(dir, "layout.log")
	if err != nil {
		return err
	}

	f, err := os.Open(c.Input)
	if err != nil {
		return err
	}
	header, records, err := layout.Parse(f)
	f.Close()
	if err != nil {
		return err
	}
	logger.Printf("parsed %d user-bin records from %s", len(records), c.Input)

	sr := reader.NewSequenceReader(sh, c.WindowSize)
	load := func(filenames []string) ([]uint64, error) {
		var hashes []uint64
		if err := sr.HashInto(filenames, func(h uint64) { hashes = append(hashes, h) }); err != nil {
			return nil, err
		}
		return hashes, nil
	}

	tree, err := layout.Build(header, records, load, c.HashCount, c.FPR)
	if err != nil {
		return err
	}
	logger.Printf("built hierarchical tree with %d IBF nodes, %d user bins", len(tree.Tree.IBFs), len(tree.BinPath))

	idx := &index.Index{
		WindowSize:   c.WindowSize,
		Shape:        sh,
		Parts:        1,
		BinPath:      tree.BinPath,
		FPR:          c.FPR,
		HashCount:    c.HashCount,
		IsHIBF:       true,
		Hierarchical: tree.Tree,
	}
	if err := index.Write(c.Output, idx, ioutil.CodecSnappy); err != nil {
		return err
	}
	logger.Printf("wrote hierarchical index to %s", c.Output)
	return nil
}

func mergeLayoutConfig(fileCfg, flagCfg *config.Layout, fs *flag.FlagSet) {
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
		case "fpr":
			fileCfg.FPR = flagCfg.FPR
		case "hash":
			fileCfg.HashCount = flagCfg.HashCount
		}
	})
}
