package models

// SyncResult reports how a replace-set call changed a product's category
// associations.
type SyncResult struct {
	Attached  int `json:"attached"`
	Detached  int `json:"detached"`
	Unchanged int `json:"unchanged"`
}

// diffIDs computes the symmetric difference between the current and desired
// id sets. Members present in both are left untouched so their original
// association timestamps survive. Duplicates in either input count once.
func diffIDs(current, desired []uint) (toAttach, toDetach []uint, unchanged int) {
	have := make(map[uint]bool, len(current))
	for _, id := range current {
		have[id] = true
	}

	want := make(map[uint]bool, len(desired))
	for _, id := range desired {
		if want[id] {
			continue
		}
		want[id] = true
		if have[id] {
			unchanged++
		} else {
			toAttach = append(toAttach, id)
		}
	}

	for _, id := range current {
		if have[id] && !want[id] {
			toDetach = append(toDetach, id)
			have[id] = false
		}
	}
	return toAttach, toDetach, unchanged
}

// dedupe returns ids with duplicates removed, preserving order.
func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
