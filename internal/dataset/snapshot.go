package dataset

import (
	"cmp"
	"slices"
)

// Snapshot is the full published collection of records.
type Snapshot struct {
	Records []Record
}

// Len returns the number of records.
func (s Snapshot) Len() int {
	return len(s.Records)
}

// MaxID returns the highest identifier, or false for an empty snapshot.
func (s Snapshot) MaxID() (int64, bool) {
	if len(s.Records) == 0 {
		return 0, false
	}
	maxID := s.Records[0].ID
	for _, r := range s.Records[1:] {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	return maxID, true
}

// MinID returns the lowest identifier, or false for an empty snapshot.
func (s Snapshot) MinID() (int64, bool) {
	if len(s.Records) == 0 {
		return 0, false
	}
	minID := s.Records[0].ID
	for _, r := range s.Records[1:] {
		if r.ID < minID {
			minID = r.ID
		}
	}
	return minID, true
}

// IDs returns the identifiers in snapshot order.
func (s Snapshot) IDs() []int64 {
	ids := make([]int64, len(s.Records))
	for i, r := range s.Records {
		ids[i] = r.ID
	}
	return ids
}

// Without strips the named columns from every record.
func (s Snapshot) Without(columns ...string) Snapshot {
	if len(columns) == 0 {
		return s
	}
	out := make([]Record, len(s.Records))
	for i, r := range s.Records {
		out[i] = r.Without(columns...)
	}
	return Snapshot{Records: out}
}

// Encode returns the JSONL encoding of the snapshot.
func (s Snapshot) Encode() ([]byte, error) {
	return EncodeJSONL(s.Records)
}

// SortDescending orders records by identifier, highest first.
func SortDescending(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return cmp.Compare(b.ID, a.ID)
	})
}
