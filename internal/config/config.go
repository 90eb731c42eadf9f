// Package config defines the per-verb parameter structs cmd/raptor
// decodes from TOML files and/or populates from command-line flags,
// generalising utils.Config (muscato/utils/config.go) from JSON to
// TOML: Raptor's subcommands are run far more often from flags alone
// than muscato's pipeline ever was, so a human-edited config file
// needs a format that tolerates comments and nesting better than
// JSON does.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Common holds the flags every subcommand accepts.
type Common struct {
	// Number of worker goroutines to run concurrently. Zero means use
	// runtime.GOMAXPROCS(0).
	Threads int `toml:"threads"`

	// Accepted by every verb, but no verb reads it: progress is only
	// ever logged to the log file under TimingOutput (or the default
	// log directory), never to stderr.
	Quiet bool `toml:"quiet"`

	// Directory to write the run's log file. Defaults to
	// raptor_logs/<run-id>. A pprof profile, when one is taken, goes
	// to the directory named by the RAPTOR_PROFILE environment
	// variable instead.
	TimingOutput string `toml:"timing_output"`

	// Output path. Meaning is verb-specific (index archive, search
	// results, precompute output directory, ...).
	Output string `toml:"output"`

	// Input file path. Meaning is verb-specific (bin-path list,
	// layout file, ...). Search reads its queries from QueryPath.
	Input string `toml:"input"`
}

// Build holds the `build` verb's parameters (C1, C5, C6, C7): builds
// a flat, optionally partitioned, Interleaved Bloom Filter from a
// bin-path list.
type Build struct {
	Common

	// k-mer size for an ungapped shape. Mutually exclusive with
	// ShapeBitmask.
	KmerSize int `toml:"kmer"`

	// Explicit gapped-shape bitmask, as a binary string (e.g.
	// "1111011101111"). Mutually exclusive with KmerSize.
	ShapeBitmask string `toml:"shape"`

	// Minimiser window size; must be >= the shape's size.
	WindowSize int `toml:"window"`

	// Target false-positive rate used to size each IBF's bins.
	FPR float64 `toml:"fpr"`

	// Number of independent hash functions per IBF.
	HashCount int `toml:"hash"`

	// Number of partitions to split the index across (a power of
	// two). 1 disables partitioning.
	Parts int `toml:"parts"`
}

// Layout holds the `layout` verb's parameters (C13): builds a
// Hierarchical Interleaved Bloom Filter from a precomputed layout
// file produced by an external partitioning collaborator.
type Layout struct {
	Common

	ShapeBitmask string  `toml:"shape"`
	KmerSize     int     `toml:"kmer"`
	WindowSize   int     `toml:"window"`
	FPR          float64 `toml:"fpr"`
	HashCount    int     `toml:"hash"`
}

// Search holds the `search` verb's parameters (C10, C12).
type Search struct {
	Common

	// Path to the index archive to query (Build's or Layout's Output).
	IndexPath string `toml:"index"`

	// Path to the FASTA/FASTQ file of queries.
	QueryPath string `toml:"query"`

	// Number of substitution errors the threshold model tolerates.
	Errors int `toml:"error"`

	// Direct percentage threshold override (fraction of a query's
	// minimisers that must hit a bin). NaN (the zero value's absence)
	// selects the probabilistic/k-mer-lemma model instead.
	Threshold float64 `toml:"threshold"`

	// Tau, the confidence level of the probabilistic threshold
	// model: the probability that a true hit still reaches the
	// threshold despite Errors substitutions.
	Tau float64 `toml:"tau"`

	// PMax, the bound the probabilistic threshold model's FPR
	// correction keeps the probability of an additional
	// false-positive hit under.
	PMax float64 `toml:"p_max"`

	// Expected query length, used to derive the probabilistic
	// threshold model's window count.
	QueryLength int `toml:"query_length"`

	// Enable on-disk memoisation of threshold/correction tables under
	// the index's parent directory.
	CacheThresholds bool `toml:"cache_thresholds"`
}

// Prepare holds the `prepare` verb's parameters (C4): the minimiser
// precompute pipeline run once per user bin ahead of `build`/`layout`.
type Prepare struct {
	Common

	ShapeBitmask string `toml:"shape"`
	KmerSize     int    `toml:"kmer"`
	WindowSize   int    `toml:"window"`

	// "fixed" or "filesize"; see internal/precompute.CutoffPolicy.
	CutoffPolicy string `toml:"cutoff_policy"`

	// Cutoff used when CutoffPolicy is "fixed".
	FixedCutoff int `toml:"cutoff"`
}

// Update holds the `update insert|delete` verb's parameters (C9):
// mutates an existing HIBF archive in place.
type Update struct {
	Common

	// Path to the HIBF archive to mutate; also the rewrite target
	// unless Output is set.
	IndexPath string `toml:"index"`

	// User bin IDs to delete. Only used by `update delete`.
	DeleteIDs []int64 `toml:"delete_ids"`

	// Source files for one new user bin to insert, and the ID to
	// assign it. Only used by `update insert`.
	InsertFiles []string `toml:"insert_files"`
	InsertID    int64    `toml:"insert_id"`
}

// Upgrade holds the `upgrade` verb's parameters: rewrites an archive
// at an older format version at the current version.
type Upgrade struct {
	Common

	IndexPath string `toml:"index"`
}

// Load decodes a TOML file into v, which must be a pointer to one of
// the structs above.
func Load(path string, v interface{}) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := toml.DecodeFile(path, v); err != nil {
		return fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return nil
}

// Save encodes v as TOML and writes it to path, the same
// saveConfig(config) muscato's cmd/muscato/main.go does for its
// JSON config. No verb calls it; the verbs only read config files,
// through Load.
func Save(path string, v interface{}) error {
	fid, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer fid.Close()
	if err := toml.NewEncoder(fid).Encode(v); err != nil {
		return fmt.Errorf("config: encoding %s: %w", path, err)
	}
	return nil
}
