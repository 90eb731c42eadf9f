package hibf

// DeleteUserBins removes every user bin whose id appears in ids from
// the tree: each technical bin holding one of those ids is cleared
// and tagged BinDeleted, and if clearing empties an entire non-root
// IBF (every bin's occupancy drops to zero), the parent's technical
// bin pointing at that now-empty IBF is cleared and tagged
// BinDeleted too, cascading the removal one level up. This is a
// direct transcription of raptor::delete_user_bins.
func (t *Tree) DeleteUserBins(ids []int64) {
	toDelete := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		toDelete[id] = struct{}{}
	}

	for ibfIdx := 0; ibfIdx < len(t.IBFs); ibfIdx++ {
		filter := t.IBFs[ibfIdx]
		userBins := t.UserBinID[ibfIdx]

		var binsToDelete []int
		for binIdx, userBinID := range userBins {
			if _, found := toDelete[userBinID]; found {
				binsToDelete = append(binsToDelete, binIdx)
				userBins[binIdx] = int64(BinDeleted)
			}
		}
		if len(binsToDelete) == 0 {
			continue
		}

		filter.ClearBins(binsToDelete)

		allZero := true
		for _, occ := range filter.Occupancy() {
			if occ != 0 {
				allZero = false
				break
			}
		}

		if ibfIdx != 0 && allZero {
			parent := t.PrevIBFID[ibfIdx]
			parentFilter := t.IBFs[parent.IBFIdx]
			parentFilter.Clear(parent.BinIdx)
			t.UserBinID[parent.IBFIdx][parent.BinIdx] = int64(BinDeleted)
		}
	}
}
