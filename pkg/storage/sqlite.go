package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"simplerdb/pkg/common"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshot_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot_tables (
	name     TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	columns  TEXT NOT NULL,
	degree   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot_rows (
	table_name TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	fields     TEXT NOT NULL,
	PRIMARY KEY (table_name, seq)
);`

// SQLiteBackend keeps the snapshot in a SQLite file. Every Save replaces the
// previous snapshot inside a single transaction.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, readErr(path, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, readErr(path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, readErr(path, fmt.Errorf("init schema: %w", err))
	}
	return &SQLiteBackend{db: db, path: path}, nil
}

func (s *SQLiteBackend) Load() (*common.Snapshot, error) {
	var version string
	err := s.db.QueryRow("SELECT value FROM snapshot_meta WHERE key = 'version'").Scan(&version)
	if err == sql.ErrNoRows {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, readErr(s.path, err)
	}
	v, err := strconv.Atoi(version)
	if err != nil {
		return nil, readErr(s.path, fmt.Errorf("bad version %q", version))
	}
	snap := &common.Snapshot{Version: v}
	if err := checkVersion(s.path, snap); err != nil {
		return nil, err
	}

	rows, err := s.db.Query("SELECT name, columns, degree FROM snapshot_tables ORDER BY position ASC")
	if err != nil {
		return nil, readErr(s.path, err)
	}
	for rows.Next() {
		var (
			t    common.TableSnapshot
			cols string
		)
		if err := rows.Scan(&t.Name, &cols, &t.Degree); err != nil {
			rows.Close()
			return nil, readErr(s.path, err)
		}
		if err := json.Unmarshal([]byte(cols), &t.Columns); err != nil {
			rows.Close()
			return nil, readErr(s.path, fmt.Errorf("table %q columns: %w", t.Name, err))
		}
		snap.Tables = append(snap.Tables, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, readErr(s.path, err)
	}

	for i := range snap.Tables {
		if err := s.loadRows(&snap.Tables[i]); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (s *SQLiteBackend) loadRows(t *common.TableSnapshot) error {
	rows, err := s.db.Query("SELECT fields FROM snapshot_rows WHERE table_name = ? ORDER BY seq ASC", t.Name)
	if err != nil {
		return readErr(s.path, err)
	}
	defer rows.Close()

	for rows.Next() {
		var fields string
		if err := rows.Scan(&fields); err != nil {
			return readErr(s.path, err)
		}
		var row common.Row
		if err := json.Unmarshal([]byte(fields), &row); err != nil {
			return readErr(s.path, fmt.Errorf("table %q row: %w", t.Name, err))
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return readErr(s.path, err)
	}
	return nil
}

func (s *SQLiteBackend) Save(snap *common.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return writeErr(s.path, err)
	}

	if err := s.saveTx(tx, snap); err != nil {
		tx.Rollback()
		return writeErr(s.path, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(s.path, err)
	}
	return nil
}

func (s *SQLiteBackend) saveTx(tx *sql.Tx, snap *common.Snapshot) error {
	for _, q := range []string{"DELETE FROM snapshot_rows", "DELETE FROM snapshot_tables"} {
		if _, err := tx.Exec(q); err != nil {
			return err
		}
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO snapshot_meta (key, value) VALUES ('version', ?)",
		strconv.Itoa(snap.Version)); err != nil {
		return err
	}

	tableStmt, err := tx.Prepare("INSERT INTO snapshot_tables (name, position, columns, degree) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer tableStmt.Close()
	rowStmt, err := tx.Prepare("INSERT INTO snapshot_rows (table_name, seq, fields) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer rowStmt.Close()

	for pos, t := range snap.Tables {
		cols, err := json.Marshal(t.Columns)
		if err != nil {
			return err
		}
		if _, err := tableStmt.Exec(t.Name, pos, string(cols), t.Degree); err != nil {
			return err
		}
		for seq, row := range t.Rows {
			fields, err := json.Marshal(row)
			if err != nil {
				return err
			}
			if _, err := rowStmt.Exec(t.Name, seq, string(fields)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
