package search

import (
	"fmt"
	"strings"
)

// ManifestParams carries everything sync_out.hpp's write_header prints
// before the first result line: the minimiser/search/index parameters
// the run was invoked with, plus the UB-id -> file-path mapping drawn
// from the index's BinPath table.
type ManifestParams struct {
	WindowSize  int
	Shape       string
	ShapeSize   int
	ShapeWeight int

	QueryFile       string
	QueryLength     int
	OutputFile      string
	Threads         int
	Tau             float64
	PMax            float64
	Threshold       float64 // NaN when not using percentage mode
	Errors          int
	CacheThresholds bool

	IndexFile   string
	IndexHashes int
	IndexParts  int
	FPR         float64
	IsHIBF      bool

	// BinPath[i] lists the source files for user bin i, the same
	// table internal/index.Index.BinPath carries.
	BinPath [][]string
}

func writeHeader(sw *syncWriter, p ManifestParams) error {
	var b strings.Builder
	fmt.Fprintf(&b, "### Minimiser parameters\n")
	fmt.Fprintf(&b, "## Window size = %d\n", p.WindowSize)
	fmt.Fprintf(&b, "## Shape = %s\n", p.Shape)
	fmt.Fprintf(&b, "## Shape size (length) = %d\n", p.ShapeSize)
	fmt.Fprintf(&b, "## Shape count (number of 1s) = %d\n", p.ShapeWeight)
	fmt.Fprintf(&b, "### Search parameters\n")
	fmt.Fprintf(&b, "## Query file = %s\n", p.QueryFile)
	fmt.Fprintf(&b, "## Pattern size = %d\n", p.QueryLength)
	fmt.Fprintf(&b, "## Output file = %s\n", p.OutputFile)
	fmt.Fprintf(&b, "## Threads = %d\n", p.Threads)
	fmt.Fprintf(&b, "## tau = %v\n", p.Tau)
	fmt.Fprintf(&b, "## p_max = %v\n", p.PMax)
	fmt.Fprintf(&b, "## Percentage threshold = %v\n", p.Threshold)
	fmt.Fprintf(&b, "## Errors = %d\n", p.Errors)
	fmt.Fprintf(&b, "## Cache thresholds = %t\n", p.CacheThresholds)
	fmt.Fprintf(&b, "### Index parameters\n")
	fmt.Fprintf(&b, "## Index = %s\n", p.IndexFile)
	fmt.Fprintf(&b, "## Index hashes = %d\n", p.IndexHashes)
	fmt.Fprintf(&b, "## Index parts = %d\n", p.IndexParts)
	fmt.Fprintf(&b, "## False positive rate = %v\n", p.FPR)
	fmt.Fprintf(&b, "## Index is HIBF = %t\n", p.IsHIBF)

	for userBinID, files := range p.BinPath {
		fmt.Fprintf(&b, "#%d\t%s\n", userBinID, strings.Join(files, ","))
	}
	b.WriteString("#QUERY_NAME\tUSER_BINS\n")

	return sw.writeString(b.String())
}
