package dataset

// LoadStatus distinguishes the outcomes of reading a stored snapshot.
type LoadStatus int

// Load outcomes.
const (
	// LoadFound means a snapshot was read, possibly with zero records.
	LoadFound LoadStatus = iota
	// LoadAbsent means the store holds no snapshot yet.
	LoadAbsent
	// LoadFailed means the store could not be read.
	LoadFailed
)

// String returns the lowercase status name.
func (s LoadStatus) String() string {
	switch s {
	case LoadFound:
		return "found"
	case LoadAbsent:
		return "absent"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LoadResult is the outcome of reading a stored snapshot.
type LoadResult struct {
	Status   LoadStatus
	Snapshot Snapshot
	Err      error
	Attempts int
}

// Found wraps a snapshot that was read successfully.
func Found(s Snapshot) LoadResult {
	return LoadResult{Status: LoadFound, Snapshot: s}
}

// Absent reports that no snapshot exists.
func Absent() LoadResult {
	return LoadResult{Status: LoadAbsent}
}

// Failed reports a read failure.
func Failed(err error) LoadResult {
	return LoadResult{Status: LoadFailed, Err: err}
}

// Existing returns the snapshot when one was found.
func (r LoadResult) Existing() (Snapshot, bool) {
	if r.Status != LoadFound {
		return Snapshot{}, false
	}
	return r.Snapshot, true
}
