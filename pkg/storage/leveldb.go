package storage

import (
	"encoding/json"
	"fmt"
	"strconv"

	"simplerdb/pkg/common"

	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	levelVersionKey  = []byte("meta/version")
	levelTablePrefix = []byte("table/")
)

type levelTable struct {
	Position int `json:"position"`
	common.TableSnapshot
}

// LevelDBBackend stores one key per table (table/<name>) holding the table's
// JSON document. A save is a single batch, so readers see either the old or
// the new snapshot. An empty path keeps everything in memory.
type LevelDBBackend struct {
	db   *leveldb.DB
	path string
}

func NewLevelDBBackend(path string) (*LevelDBBackend, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, readErr(path, fmt.Errorf("open leveldb: %w", err))
	}
	return &LevelDBBackend{db: db, path: path}, nil
}

func (l *LevelDBBackend) Load() (*common.Snapshot, error) {
	raw, err := l.db.Get(levelVersionKey, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, readErr(l.path, err)
	}
	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return nil, readErr(l.path, fmt.Errorf("bad version %q", raw))
	}
	snap := &common.Snapshot{Version: v}
	if err := checkVersion(l.path, snap); err != nil {
		return nil, err
	}

	iter := l.db.NewIterator(util.BytesPrefix(levelTablePrefix), nil)
	defer iter.Release()

	var tables []levelTable
	for iter.Next() {
		var t levelTable
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			return nil, readErr(l.path, fmt.Errorf("key %s: %w", iter.Key(), err))
		}
		tables = append(tables, t)
	}
	if err := iter.Error(); err != nil {
		return nil, readErr(l.path, err)
	}

	snap.Tables = make([]common.TableSnapshot, len(tables))
	for _, t := range tables {
		if t.Position < 0 || t.Position >= len(tables) {
			return nil, readErr(l.path, fmt.Errorf("table %q has position %d", t.Name, t.Position))
		}
		snap.Tables[t.Position] = t.TableSnapshot
	}
	return snap, nil
}

func (l *LevelDBBackend) Save(snap *common.Snapshot) error {
	batch := new(leveldb.Batch)

	// Drop tables that are no longer part of the snapshot.
	keep := make(map[string]bool, len(snap.Tables))
	for _, t := range snap.Tables {
		keep[string(tableKey(t.Name))] = true
	}
	iter := l.db.NewIterator(util.BytesPrefix(levelTablePrefix), nil)
	for iter.Next() {
		if !keep[string(iter.Key())] {
			batch.Delete(append([]byte(nil), iter.Key()...))
		}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return writeErr(l.path, err)
	}

	for pos, t := range snap.Tables {
		data, err := json.Marshal(levelTable{Position: pos, TableSnapshot: t})
		if err != nil {
			return writeErr(l.path, err)
		}
		batch.Put(tableKey(t.Name), data)
	}
	batch.Put(levelVersionKey, []byte(strconv.Itoa(snap.Version)))

	if err := l.db.Write(batch, nil); err != nil {
		return writeErr(l.path, err)
	}
	return nil
}

func (l *LevelDBBackend) Close() error {
	return l.db.Close()
}

func tableKey(name string) []byte {
	return append(append([]byte(nil), levelTablePrefix...), name...)
}
