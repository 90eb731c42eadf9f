package hibf

import "fmt"

// findFreeBin returns the lowest (ibf, bin) pair whose technical bin
// is unoccupied -- either never assigned or previously cleared by
// DeleteUserBins -- scanning IBFs in construction order so reuse
// always prefers bins closest to the root. ok is false if the tree
// has no spare capacity anywhere.
func (t *Tree) findFreeBin() (Location, bool) {
	for i, filter := range t.IBFs {
		occ := filter.Occupancy()
		for b, n := range occ {
			if n != 0 {
				continue
			}
			if !t.IsMergedBin(i, b) {
				return Location{IBFIdx: i, BinIdx: b}, true
			}
		}
	}
	return Location{}, false
}

// InsertUserBin places a new user bin's hashes into the tree,
// reusing the lowest-index empty or previously-deleted technical bin
// tree-wide. Technical bin counts are fixed at IBF construction time
// (same as the original's build-time spare-bin reservation), so if no
// free bin exists anywhere the insert fails outright: the caller
// should fall back to a full layout/build rebuild with extra spare
// capacity requested.
func (t *Tree) InsertUserBin(hashes []uint64, userBinID int64) (Location, error) {
	loc, ok := t.findFreeBin()
	if !ok {
		return Location{}, fmt.Errorf("hibf: no spare technical bin available for insert, rebuild required")
	}

	filter := t.IBFs[loc.IBFIdx]
	for _, h := range hashes {
		filter.Emplace(h, loc.BinIdx)
	}
	t.UserBinID[loc.IBFIdx][loc.BinIdx] = userBinID
	return loc, nil
}
