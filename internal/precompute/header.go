package precompute

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kshedden/raptor/internal/shape"
)

// Header is the parsed form of a `.header` sidecar.
type Header struct {
	Shape      shape.Shape
	WindowSize int
	Cutoff     int
	KeptCount  int
}

// ReadHeaderFile parses a `.header` file written by writeHeaderFile:
// "shape_string window_size cutoff kept_count".
func ReadHeaderFile(path string) (Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, err
	}
	fields := strings.Fields(string(data))
	if len(fields) != 4 {
		return Header{}, fmt.Errorf("precompute: %s: want 4 whitespace-separated fields, got %d", path, len(fields))
	}

	mask, err := strconv.ParseUint(fields[0], 2, 64)
	if err != nil {
		return Header{}, fmt.Errorf("precompute: %s: shape field: %w", path, err)
	}
	sh, err := shape.New(mask)
	if err != nil {
		return Header{}, fmt.Errorf("precompute: %s: %w", path, err)
	}

	windowSize, err := strconv.Atoi(fields[1])
	if err != nil {
		return Header{}, fmt.Errorf("precompute: %s: window size field: %w", path, err)
	}
	cutoff, err := strconv.Atoi(fields[2])
	if err != nil {
		return Header{}, fmt.Errorf("precompute: %s: cutoff field: %w", path, err)
	}
	keptCount, err := strconv.Atoi(fields[3])
	if err != nil {
		return Header{}, fmt.Errorf("precompute: %s: kept count field: %w", path, err)
	}

	return Header{Shape: sh, WindowSize: windowSize, Cutoff: cutoff, KeptCount: keptCount}, nil
}
