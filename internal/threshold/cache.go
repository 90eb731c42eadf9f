package threshold

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// cacheFilename builds the on-disk cache key for a probabilistic
// Threshold's parameters, hex-encoding the integer fields the same
// way threshold_filename does upstream so repeated builds with
// identical parameters hit the cache instead of recomputing the
// Monte Carlo model.
func cacheFilename(p Parameters) string {
	return fmt.Sprintf("threshold_%x_%x_%x_%x_%x_%x_%x.gob",
		p.QueryLength, p.WindowSize, p.Shape.Mask, p.Errors, int64(p.Tau*1e9),
		int64(p.FPR*1e9), int64(p.PMax*1e9))
}

type cachePayload struct {
	Correction []int
	Thresholds []int
}

func readCache(p Parameters) (correction, thresholds []int, ok bool) {
	path := filepath.Join(p.CacheDir, cacheFilename(p))
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, false
	}
	defer f.Close()

	var payload cachePayload
	if err := gob.NewDecoder(f).Decode(&payload); err != nil {
		return nil, nil, false
	}
	return payload.Correction, payload.Thresholds, true
}

func writeCache(p Parameters, correction, thresholds []int) error {
	if err := os.MkdirAll(p.CacheDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(p.CacheDir, cacheFilename(p))
	tmp := path + ".in_progress"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	payload := cachePayload{Correction: correction, Thresholds: thresholds}
	if err := gob.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
