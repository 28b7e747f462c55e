package dataset

// Merge combines the stored records with a freshly fetched batch.
//
// Identifiers are unique in the result. When an identifier appears in both
// inputs the fetched record replaces the stored one; within a single input
// the later occurrence wins. The result is sorted by identifier descending.
func Merge(existing, fetched []Record) Snapshot {
	out := make([]Record, 0, len(existing)+len(fetched))
	pos := make(map[int64]int, len(existing)+len(fetched))

	add := func(r Record) {
		if i, ok := pos[r.ID]; ok {
			out[i] = r
			return
		}
		pos[r.ID] = len(out)
		out = append(out, r)
	}
	for _, r := range existing {
		add(r)
	}
	for _, r := range fetched {
		add(r)
	}

	SortDescending(out)
	return Snapshot{Records: out}
}
