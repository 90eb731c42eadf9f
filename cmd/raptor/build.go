package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/kshedden/raptor/internal/config"
	"github.com/kshedden/raptor/internal/hll"
	"github.com/kshedden/raptor/internal/ibf"
	"github.com/kshedden/raptor/internal/index"
	"github.com/kshedden/raptor/internal/ioutil"
	"github.com/kshedden/raptor/internal/partition"
	"github.com/kshedden/raptor/internal/reader"
	"github.com/kshedden/raptor/internal/shape"
)

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "TOML config file (internal/config.Build)")
	var c config.Build
	fs.IntVar(&c.Threads, "threads", 0, "number of worker goroutines")
	fs.BoolVar(&c.Quiet, "quiet", false, "accepted but has no effect; progress goes only to the log file")
	fs.StringVar(&c.TimingOutput, "timing-output", "", "directory for the run's log file/profile")
	fs.StringVar(&c.Output, "output", "", "output index path")
	fs.StringVar(&c.Input, "input", "", "bin-path list file")
	fs.IntVar(&c.KmerSize, "kmer", 0, "ungapped k-mer size")
	fs.StringVar(&c.ShapeBitmask, "shape", "", "gapped shape bitmask (binary string)")
	fs.IntVar(&c.WindowSize, "window", 0, "minimiser window size")
	fs.Float64Var(&c.FPR, "fpr", 0.01, "target false-positive rate")
	fs.IntVar(&c.HashCount, "hash", 2, "number of hash functions per IBF")
	fs.IntVar(&c.Parts, "parts", 1, "number of partitions (power of two)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgPath != "" {
		var fileCfg config.Build
		if err := config.Load(*cfgPath, &fileCfg); err != nil {
			return err
		}
		mergeBuildConfig(&fileCfg, &c, fs)
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
	logger, err = setupLog(dir, "build.log")
	if err != nil {
		return err
	}

	bins, err := parseBinPathList(c.Input)
	if err != nil {
		return err
	}
	logger.Printf("loaded %d user bins from %s", len(bins), c.Input)

	sr := reader.NewSequenceReader(sh, c.WindowSize)
	binHashes := make([][]uint64, len(bins))
	for i, files := range bins {
		var hashes []uint64
		if err := sr.HashInto(files, func(h uint64) { hashes = append(hashes, h) }); err != nil {
			return fmt.Errorf("bin %d (%s): %w", i, strings.Join(files, ","), err)
		}
		binHashes[i] = hashes
		if i%1000 == 0 {
			logger.Printf("hashed bin %d/%d", i, len(bins))
		}
	}

	if c.Parts <= 1 {
		idx, err := buildFlatIndex(sh, c, bins, binHashes)
		if err != nil {
			return err
		}
		if err := index.Write(c.Output, idx, ioutil.CodecSnappy); err != nil {
			return err
		}
	} else {
		indexes, err := buildPartitionedIndex(sh, c, bins, binHashes)
		if err != nil {
			return err
		}
		if err := index.WriteParts(c.Output, indexes, ioutil.CodecSnappy); err != nil {
			return err
		}
	}
	logger.Printf("wrote index to %s", c.Output)
	return nil
}

func mergeBuildConfig(fileCfg, flagCfg *config.Build, fs *flag.FlagSet) {
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
		case "parts":
			fileCfg.Parts = flagCfg.Parts
		}
	})
}

// buildFlatIndex sizes and fills a single, non-partitioned IBF (C5,
// C7): one bin per user bin, width chosen by sketching every bin with
// hll.PickMax and exactly recounting only the one it picks, then
// feeding that count into the classical Bloom sizing formula.
func buildFlatIndex(sh shape.Shape, c config.Build, bins [][]string, binHashes [][]uint64) (*index.Index, error) {
	_, maxCard := hll.PickMax(binHashes)
	if maxCard == 0 {
		maxCard = 1
	}
	binWidth, err := hll.BinSizeBits(maxCard, c.HashCount, c.FPR, 1)
	if err != nil {
		return nil, err
	}

	filter, err := ibf.New(len(bins), binWidth, c.HashCount)
	if err != nil {
		return nil, err
	}
	for bin, hashes := range binHashes {
		for _, h := range hashes {
			filter.Emplace(h, bin)
		}
	}

	return &index.Index{
		WindowSize: c.WindowSize,
		Shape:      sh,
		Parts:      1,
		BinPath:    bins,
		FPR:        c.FPR,
		HashCount:  c.HashCount,
		IsHIBF:     false,
		Flat:       filter,
	}, nil
}

// buildPartitionedIndex shards every bin's hashes across P IBFs (C6),
// each sized independently from its own largest bin, picked the same
// sketch-then-exact-recount way as buildFlatIndex.
func buildPartitionedIndex(sh shape.Shape, c config.Build, bins [][]string, binHashes [][]uint64) ([]*index.Index, error) {
	router, err := partition.New(c.Parts)
	if err != nil {
		return nil, err
	}

	perPartition := make([][][]uint64, c.Parts)
	for p := range perPartition {
		perPartition[p] = make([][]uint64, len(bins))
	}
	for bin, hashes := range binHashes {
		for p, part := range router.Split(hashes) {
			perPartition[p][bin] = part
		}
	}

	indexes := make([]*index.Index, c.Parts)
	for p, binsForPart := range perPartition {
		_, maxCard := hll.PickMax(binsForPart)
		if maxCard == 0 {
			maxCard = 1
		}
		binWidth, err := hll.BinSizeBits(maxCard, c.HashCount, c.FPR, 1)
		if err != nil {
			return nil, err
		}
		filter, err := ibf.New(len(bins), binWidth, c.HashCount)
		if err != nil {
			return nil, err
		}
		for bin, hashes := range binsForPart {
			for _, h := range hashes {
				filter.Emplace(h, bin)
			}
		}
		indexes[p] = &index.Index{
			WindowSize: c.WindowSize,
			Shape:      sh,
			Parts:      c.Parts,
			BinPath:    bins,
			FPR:        c.FPR,
			HashCount:  c.HashCount,
			IsHIBF:     false,
			Flat:       filter,
		}
	}
	return indexes, nil
}
