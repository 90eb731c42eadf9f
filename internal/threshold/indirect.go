package threshold

import (
	"math"
	"math/rand"

	"github.com/kshedden/raptor/internal/shape"
)

// monteCarloSeed reproduces the original model's fixed RNG seed so
// repeated runs of the same build always derive the same indirect
// error distribution. Go's math/rand is a different generator than
// the upstream mt19937_64, so the bitstream differs, but both are
// deterministic given this seed.
const monteCarloSeed = 0x1D2B8284D988C4D0

const monteCarloIterations = 10_000

var dnaBases = [4]byte{'A', 'C', 'G', 'T'}

// oneIndirectErrorModel estimates, by simulation, the probability
// that a single substitution indirectly shifts i minimiser window
// boundaries (0 <= i <= windowSize) without directly falling inside
// the winning k-mer of that window. Returns log probabilities indexed
// by i.
func oneIndirectErrorModel(queryLength, windowSize int, sh shape.Shape) []float64 {
	kmerSize := int(sh.Size)
	maxMinimiser := queryLength - windowSize + 1
	result := make([]float64, windowSize+1)

	rng := rand.New(rand.NewSource(monteCarloSeed))
	hasher := shape.NewHasher(sh)
	seq := make([]byte, queryLength)
	mutated := make([]byte, queryLength)

	for iter := 0; iter < monteCarloIterations; iter++ {
		for i := range seq {
			seq[i] = dnaBases[rng.Intn(4)]
		}
		copy(mutated, seq)

		origBegins := windowMinimiserBegins(hasher, windowSize, seq)

		errorPos := rng.Intn(queryLength)
		originalBase := seq[errorPos]
		var newBase byte
		for {
			newBase = dnaBases[rng.Intn(4)]
			if newBase != originalBase {
				break
			}
		}
		mutated[errorPos] = newBase

		errBegins := windowMinimiserBegins(hasher, windowSize, mutated)

		markedOrig := markPositions(origBegins, maxMinimiser)
		markedErr := markPositions(errBegins, maxMinimiser)

		affected := 0
		for i := 0; i < maxMinimiser; i++ {
			if markedOrig[i] != markedErr[i] && (errorPos < i || i+kmerSize < errorPos) {
				affected++
			}
		}
		if affected > windowSize {
			affected = windowSize
		}
		result[affected]++
	}

	logIterations := math.Log(float64(monteCarloIterations))
	for i, count := range result {
		result[i] = math.Log(count) - logIterations
	}
	return result
}

// windowMinimiserBegins returns, for every window of windowSize
// consecutive k-mers in seq, the position of the leftmost minimal
// k-mer hash -- one entry per window, with repeats when the same
// k-mer dominates several consecutive windows. This differs
// deliberately from internal/minimiser.Producer, which suppresses
// repeats: this model needs the per-window begin position even when
// unchanged, to detect when an error shifts which k-mer wins.
func windowMinimiserBegins(hasher *shape.Hasher, windowSize int, seq []byte) []int {
	kmerSize := int(hasher.Shape().Size)
	kmersPerWindow := windowSize - kmerSize + 1
	if kmersPerWindow < 1 {
		kmersPerWindow = 1
	}

	hashes := hasher.Stream(seq)
	numWindows := len(hashes) - kmersPerWindow + 1
	if numWindows <= 0 {
		return nil
	}

	begins := make([]int, numWindows)
	for w := 0; w < numWindows; w++ {
		bestPos := w
		bestHash := hashes[w]
		for k := w + 1; k < w+kmersPerWindow; k++ {
			if hashes[k] < bestHash {
				bestHash = hashes[k]
				bestPos = k
			}
		}
		begins[w] = bestPos
	}
	return begins
}

func markPositions(begins []int, size int) []bool {
	marked := make([]bool, size)
	for _, pos := range begins {
		if pos >= 0 && pos < size {
			marked[pos] = true
		}
	}
	return marked
}
