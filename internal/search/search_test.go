package search

import (
	"strconv"
	"strings"
	"testing"

	"github.com/kshedden/raptor/internal/hibf"
	"github.com/kshedden/raptor/internal/ibf"
	"github.com/kshedden/raptor/internal/threshold"
)

func percentageThreshold(t *testing.T, pct float64) *threshold.Threshold {
	t.Helper()
	th, err := threshold.New(threshold.Parameters{WindowSize: 20, Percentage: pct})
	if err != nil {
		t.Fatal(err)
	}
	return th
}

func testManifest(binPath [][]string) ManifestParams {
	return ManifestParams{
		WindowSize:  20,
		Shape:       "1111",
		IndexHashes: 2,
		IndexParts:  1,
		BinPath:     binPath,
	}
}

func resultLines(t *testing.T, output string) map[string]string {
	t.Helper()
	lines := map[string]string{}
	for _, l := range strings.Split(output, "\n") {
		if l == "" || strings.HasPrefix(l, "#") || strings.HasPrefix(l, "##") || strings.HasPrefix(l, "###") {
			continue
		}
		parts := strings.SplitN(l, "\t", 2)
		if len(parts) != 2 {
			t.Fatalf("malformed result line %q", l)
		}
		lines[parts[0]] = parts[1]
	}
	return lines
}

func TestDriverRunWritesManifestHeader(t *testing.T) {
	filter, err := ibf.New(4, 256, 1)
	if err != nil {
		t.Fatal(err)
	}
	d := NewDriver(NewFlatIndex(filter), percentageThreshold(t, 0.1), 0)

	var out strings.Builder
	m := testManifest([][]string{{"a.fasta", "b.fasta"}, {"c.fasta"}})
	if err := d.Run(nil, m, &out); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.Contains(got, "#0\ta.fasta,b.fasta\n") {
		t.Errorf("missing bin 0 manifest line: %q", got)
	}
	if !strings.Contains(got, "#1\tc.fasta\n") {
		t.Errorf("missing bin 1 manifest line: %q", got)
	}
	if !strings.Contains(got, "#QUERY_NAME\tUSER_BINS\n") {
		t.Errorf("missing query-name separator line: %q", got)
	}
}

func TestDriverRunAgainstFlatIndex(t *testing.T) {
	filter, err := ibf.New(8, 2048, 2)
	if err != nil {
		t.Fatal(err)
	}
	hashes := []uint64{1, 2, 3, 4}
	for _, h := range hashes {
		filter.Emplace(h, 3)
	}

	idx := NewFlatIndex(filter)
	th := percentageThreshold(t, 0.5)
	d := NewDriver(idx, th, 4)

	queries := []Query{
		{Name: "q1", Hashes: hashes},
		{Name: "q2", Hashes: []uint64{999, 1000}},
	}

	var out strings.Builder
	if err := d.Run(queries, testManifest(nil), &out); err != nil {
		t.Fatal(err)
	}

	results := resultLines(t, out.String())
	if len(results) != 2 {
		t.Fatalf("got %d result lines, want 2: %q", len(results), out.String())
	}
	if !strings.Contains(results["q1"], "3") {
		t.Errorf("q1 should match bin 3: %q", results["q1"])
	}
	if results["q2"] != "" {
		t.Errorf("q2 should match nothing, got %q", results["q2"])
	}
}

func TestDriverRunAgainstHierarchicalIndex(t *testing.T) {
	tr := hibf.New(2, 0.05)
	root, err := ibf.New(4, 1024, 2)
	if err != nil {
		t.Fatal(err)
	}
	tr.AddIBF(root, hibf.Location{IBFIdx: -1})
	tr.SetUserBin(0, 1, 42)
	root.Emplace(77, 1)

	th := percentageThreshold(t, 1.0)
	d := NewDriver(tr, th, 2)

	var out strings.Builder
	err = d.Run([]Query{{Name: "hit", Hashes: []uint64{77}}}, testManifest(nil), &out)
	if err != nil {
		t.Fatal(err)
	}
	results := resultLines(t, out.String())
	if results["hit"] != "42" {
		t.Errorf("got %q, want %q", results["hit"], "42")
	}
}

func TestDriverRunEmptyQueries(t *testing.T) {
	filter, _ := ibf.New(4, 256, 1)
	d := NewDriver(NewFlatIndex(filter), percentageThreshold(t, 0.1), 0)
	var out strings.Builder
	if err := d.Run(nil, testManifest(nil), &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "#QUERY_NAME\tUSER_BINS\n") {
		t.Error("expected a manifest header even with no queries")
	}
}

func TestDriverConcurrentQueriesProduceAllResults(t *testing.T) {
	filter, _ := ibf.New(16, 4096, 2)
	for i := uint64(0); i < 200; i++ {
		filter.Emplace(i, int(i%16))
	}
	idx := NewFlatIndex(filter)
	th := percentageThreshold(t, 0.0001)
	d := NewDriver(idx, th, 16)

	queries := make([]Query, 100)
	for i := range queries {
		queries[i] = Query{Name: strings.Repeat("q", 1) + strconv.Itoa(i), Hashes: []uint64{uint64(i)}}
	}

	var out strings.Builder
	if err := d.Run(queries, testManifest(nil), &out); err != nil {
		t.Fatal(err)
	}
	results := resultLines(t, out.String())
	if len(results) != len(queries) {
		t.Errorf("got %d result lines, want %d", len(results), len(queries))
	}
}

func TestDriverChunksQueriesWithSmallChunkSize(t *testing.T) {
	filter, _ := ibf.New(4, 256, 1)
	idx := NewFlatIndex(filter)
	th := percentageThreshold(t, 0.1)
	d := NewDriver(idx, th, 4)
	d.ChunkSize = 3 // force multiple chunks over few queries

	queries := make([]Query, 10)
	for i := range queries {
		queries[i] = Query{Name: strconv.Itoa(i), Hashes: []uint64{uint64(i)}}
	}

	var out strings.Builder
	if err := d.Run(queries, testManifest(nil), &out); err != nil {
		t.Fatal(err)
	}
	results := resultLines(t, out.String())
	if len(results) != len(queries) {
		t.Errorf("got %d result lines across chunks, want %d", len(results), len(queries))
	}
}
