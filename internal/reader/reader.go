// Package reader implements the file-reader facade (C3): a single
// capability set, HashInto/HashIntoIf/ForEachHash, backed by two
// variants that share it -- one hashing raw sequence files through
// the shape/minimiser pipeline, the other replaying a precomputed
// minimiser file verbatim.
package reader

// HashReader is the capability set both variants implement.
type HashReader interface {
	// HashInto calls sink once per distinct hash across files.
	HashInto(files []string, sink func(hash uint64)) error

	// HashIntoIf calls sink once per distinct hash across files for
	// which predicate returns true, so a caller can keep, say, one
	// partition's hashes without materialising the full set first.
	HashIntoIf(files []string, sink func(hash uint64), predicate func(hash uint64) bool) error

	// ForEachHash calls callback once per hash occurrence (not
	// deduplicated), used by internal/precompute to count each
	// minimiser's occurrences.
	ForEachHash(files []string, callback func(hash uint64)) error
}

// dedupeInto wraps a raw ForEachHash-shaped function with distinct-hash
// filtering, shared by both HashReader implementations.
func dedupeInto(forEach func(func(uint64)) error, sink func(uint64)) error {
	seen := make(map[uint64]struct{})
	return forEach(func(h uint64) {
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		sink(h)
	})
}

// dedupeIntoIf is dedupeInto with an additional predicate gate applied
// before the dedupe check, so a hash rejected by predicate is never
// added to the seen set.
func dedupeIntoIf(forEach func(func(uint64)) error, sink func(uint64), predicate func(uint64) bool) error {
	seen := make(map[uint64]struct{})
	return forEach(func(h uint64) {
		if !predicate(h) {
			return
		}
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		sink(h)
	})
}
