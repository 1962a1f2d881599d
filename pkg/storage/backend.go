package storage

import (
	"errors"
	"fmt"

	"simplerdb/pkg/common"
)

var (
	ErrPersistence = errors.New("persistence error")
	ErrReadFailure  = fmt.Errorf("%w: read failure", ErrPersistence)
	ErrWriteFailure = fmt.Errorf("%w: write failure", ErrPersistence)

	// ErrNoSnapshot means nothing has been saved at the location yet. It is
	// not a failure: callers start from an empty database.
	ErrNoSnapshot = errors.New("storage: no snapshot")

	ErrUnknownBackend = errors.New("storage: unknown backend")
)

// Backend persists whole-database snapshots. Save replaces whatever was
// stored before.
type Backend interface {
	Load() (*common.Snapshot, error)
	Save(snap *common.Snapshot) error
	Close() error
}

const (
	KindJSON    = "json"
	KindSQLite  = "sqlite"
	KindLevelDB = "leveldb"
	KindMemory  = "memory"
)

// Kinds lists the accepted backend names.
var Kinds = []string{KindJSON, KindSQLite, KindLevelDB, KindMemory}

// Open returns the backend of the given kind rooted at path.
func Open(kind, path string) (Backend, error) {
	switch kind {
	case KindJSON:
		return NewJSONFile(path), nil
	case KindSQLite:
		return NewSQLiteBackend(path)
	case KindLevelDB:
		return NewLevelDBBackend(path)
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}

func readErr(where string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrReadFailure, where, err)
}

func writeErr(where string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrWriteFailure, where, err)
}

func checkVersion(where string, snap *common.Snapshot) error {
	if snap.Version != common.SnapshotVersion {
		return readErr(where, fmt.Errorf("unsupported snapshot version %d", snap.Version))
	}
	return nil
}

// Memory keeps the last snapshot in process memory.
type Memory struct {
	snap *common.Snapshot
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load() (*common.Snapshot, error) {
	if m.snap == nil {
		return nil, ErrNoSnapshot
	}
	return cloneSnapshot(m.snap), nil
}

func (m *Memory) Save(snap *common.Snapshot) error {
	m.snap = cloneSnapshot(snap)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func cloneSnapshot(s *common.Snapshot) *common.Snapshot {
	out := &common.Snapshot{Version: s.Version, Tables: make([]common.TableSnapshot, len(s.Tables))}
	for i, t := range s.Tables {
		rows := make([]common.Row, len(t.Rows))
		for j, r := range t.Rows {
			rows[j] = r.Clone()
		}
		out.Tables[i] = common.TableSnapshot{
			Name:    t.Name,
			Columns: append([]string(nil), t.Columns...),
			Degree:  t.Degree,
			Rows:    rows,
		}
	}
	return out
}
