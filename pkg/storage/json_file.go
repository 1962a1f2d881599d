package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"simplerdb/pkg/common"
)

// JSONFile stores the snapshot as one pretty-printed JSON document. Saves go
// to a temporary file in the same directory which is then renamed over the
// target, so a failed save never leaves a half-written document behind.
type JSONFile struct {
	path string
}

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

func (f *JSONFile) Load() (*common.Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, readErr(f.path, err)
	}

	var snap common.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, readErr(f.path, err)
	}
	if err := checkVersion(f.path, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (f *JSONFile) Save(snap *common.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return writeErr(f.path, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return writeErr(f.path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return writeErr(f.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return writeErr(f.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return writeErr(f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return writeErr(f.path, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return writeErr(f.path, err)
	}
	return nil
}

func (f *JSONFile) Close() error {
	return nil
}
