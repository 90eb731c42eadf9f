package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/kshedden/raptor/internal/config"
	"github.com/kshedden/raptor/internal/ibf"
	"github.com/kshedden/raptor/internal/index"
	"github.com/kshedden/raptor/internal/ioutil"
	"github.com/kshedden/raptor/internal/minimiser"
	"github.com/kshedden/raptor/internal/partition"
	"github.com/kshedden/raptor/internal/reader"
	"github.com/kshedden/raptor/internal/search"
	"github.com/kshedden/raptor/internal/threshold"
)

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "TOML config file (internal/config.Search)")
	var c config.Search
	fs.IntVar(&c.Threads, "threads", 0, "number of worker goroutines")
	fs.BoolVar(&c.Quiet, "quiet", false, "suppress progress logging")
	fs.StringVar(&c.TimingOutput, "timing-output", "", "directory for the run's log file/profile")
	fs.StringVar(&c.Output, "output", "", "search results output path")
	fs.StringVar(&c.IndexPath, "index", "", "index archive path")
	fs.StringVar(&c.QueryPath, "query", "", "query FASTA/FASTQ file")
	fs.IntVar(&c.Errors, "error", 0, "substitution errors tolerated")
	fs.Float64Var(&c.Threshold, "threshold", math.NaN(), "percentage threshold override (fraction of minimisers)")
	fs.Float64Var(&c.Tau, "tau", 0, "confidence that a true hit is not missed (probabilistic threshold)")
	fs.Float64Var(&c.PMax, "p_max", 0, "bound on the probability of an extra false-positive hit (probabilistic threshold)")
	fs.IntVar(&c.QueryLength, "query_length", 0, "expected query length")
	fs.BoolVar(&c.CacheThresholds, "cache-thresholds", false, "memoise threshold/correction tables on disk")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgPath != "" {
		fileCfg := config.Search{Threshold: math.NaN()}
		if err := config.Load(*cfgPath, &fileCfg); err != nil {
			return err
		}
		mergeSearchConfig(&fileCfg, &c, fs)
		c = fileCfg
	}
	if c.IndexPath == "" || c.QueryPath == "" || c.Output == "" {
		return fmt.Errorf("--index, --query, and --output are required")
	}

	dir, err := timingDir(c.TimingOutput)
	if err != nil {
		return err
	}
	logger, err = setupLog(dir, "search.log")
	if err != nil {
		return err
	}

	idx, searchIndex, err := loadSearchIndex(c)
	if err != nil {
		return err
	}
	logger.Printf("loaded index %s (hibf=%t parts=%d)", c.IndexPath, idx.IsHIBF, idx.Parts)

	cacheDir := ""
	if c.CacheThresholds {
		cacheDir = c.IndexPath + "_thresholds"
	}
	th, err := threshold.New(threshold.Parameters{
		WindowSize:  idx.WindowSize,
		Shape:       idx.Shape,
		QueryLength: c.QueryLength,
		Errors:      c.Errors,
		Percentage:  c.Threshold,
		PMax:        c.PMax,
		FPR:         idx.FPR,
		Tau:         c.Tau,
		CacheDir:    cacheDir,
	})
	if err != nil {
		return err
	}

	var queries []search.Query
	err = reader.ForEachRecord([]string{c.QueryPath}, func(name string, seq []byte) error {
		hashes := minimiser.Collect(idx.Shape, idx.WindowSize, seq)
		queries = append(queries, search.Query{Name: name, Hashes: hashes})
		return nil
	})
	if err != nil {
		return fmt.Errorf("reading queries: %w", err)
	}
	logger.Printf("loaded %d queries from %s", len(queries), c.QueryPath)

	threads := resolveThreads(c.Threads)
	driver := search.NewDriver(searchIndex, th, threads)

	out, err := os.Create(c.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	manifest := search.ManifestParams{
		WindowSize:      idx.WindowSize,
		Shape:           idx.Shape.String(),
		ShapeSize:       int(idx.Shape.Size),
		ShapeWeight:     int(idx.Shape.Weight),
		QueryFile:       c.QueryPath,
		QueryLength:     c.QueryLength,
		OutputFile:      c.Output,
		Threads:         threads,
		Tau:             c.Tau,
		PMax:            c.PMax,
		Threshold:       c.Threshold,
		Errors:          c.Errors,
		CacheThresholds: c.CacheThresholds,
		IndexFile:       c.IndexPath,
		IndexHashes:     idx.HashCount,
		IndexParts:      idx.Parts,
		FPR:             idx.FPR,
		IsHIBF:          idx.IsHIBF,
		BinPath:         idx.BinPath,
	}
	if err := driver.Run(queries, manifest, out); err != nil {
		return err
	}
	logger.Printf("wrote results to %s", c.Output)
	return nil
}

func mergeSearchConfig(fileCfg, flagCfg *config.Search, fs *flag.FlagSet) {
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
		case "index":
			fileCfg.IndexPath = flagCfg.IndexPath
		case "query":
			fileCfg.QueryPath = flagCfg.QueryPath
		case "error":
			fileCfg.Errors = flagCfg.Errors
		case "threshold":
			fileCfg.Threshold = flagCfg.Threshold
		case "tau":
			fileCfg.Tau = flagCfg.Tau
		case "p_max":
			fileCfg.PMax = flagCfg.PMax
		case "query_length":
			fileCfg.QueryLength = flagCfg.QueryLength
		case "cache-thresholds":
			fileCfg.CacheThresholds = flagCfg.CacheThresholds
		}
	})
}

// loadSearchIndex opens the index archive at c.IndexPath and adapts
// it to search.Index, choosing the flat, partitioned-flat, or
// hierarchical adapter based on the archive's own IsHIBF/Parts
// metadata.
func loadSearchIndex(c config.Search) (*index.Index, search.Index, error) {
	// Try the base path first (the non-partitioned layout); fall back
	// to partition 0, whose metadata (IsHIBF, Parts, Shape, ...) is
	// identical across every partition of the same archive.
	probe, err := index.Read(c.IndexPath, ioutil.CodecSnappy)
	if err != nil {
		probe, err = index.Read(ioutil.PartitionPath(c.IndexPath, 0), ioutil.CodecSnappy)
		if err != nil {
			return nil, nil, fmt.Errorf("opening index %s: %w", c.IndexPath, err)
		}
	}

	if probe.IsHIBF {
		return probe, probe.Hierarchical, nil
	}
	if probe.Parts <= 1 {
		return probe, search.NewFlatIndex(probe.Flat), nil
	}

	parts, err := index.ReadPartitioned(c.IndexPath, probe.Parts, ioutil.CodecSnappy)
	if err != nil {
		return nil, nil, err
	}
	filters := make([]*ibf.IBF, len(parts))
	for i, p := range parts {
		filters[i] = p.Flat
	}
	router, err := partition.New(probe.Parts)
	if err != nil {
		return nil, nil, err
	}
	return probe, search.NewPartitionedFlatIndex(filters, router), nil
}
