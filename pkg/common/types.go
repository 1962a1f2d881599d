package common

// Row is one table row. Field 0 is the primary key.
type Row []string

// Key returns the primary key of the row.
func (r Row) Key() string {
	if len(r) == 0 {
		return ""
	}
	return r[0]
}

// Clone returns a copy that shares no backing array with r.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// SnapshotVersion is bumped whenever the snapshot document layout changes.
const SnapshotVersion = 1

// TableSnapshot is the persisted form of one table. Rows are stored in
// primary-key order.
type TableSnapshot struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Degree  int      `json:"degree"`
	Rows    []Row    `json:"rows"`
}

// Snapshot is the whole-database document written after every mutation.
type Snapshot struct {
	Version int             `json:"version"`
	Tables  []TableSnapshot `json:"tables"`
}
