package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplerdb/pkg/common"
	"simplerdb/pkg/config"
	"simplerdb/pkg/sql"
	"simplerdb/pkg/storage"
)

func mustExec(t *testing.T, db *Database, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		_, err := db.ExecuteString(s)
		require.NoError(t, err, s)
	}
}

func TestDatabaseStatements(t *testing.T) {
	db, err := Open(nil, Options{}, nil)
	require.NoError(t, err)

	res, err := db.ExecuteString("CREATE TABLE users (id, name, city)")
	require.NoError(t, err)
	assert.Equal(t, "Table 'users' created.", res.Message)

	mustExec(t, db,
		"INSERT INTO users VALUES (2, 'Bo', Oslo)",
		"INSERT INTO users VALUES (1, \"Al\", 'Rome')",
		"INSERT INTO users VALUES (3, 'Cy, Jr', Oslo);",
	)

	res, err = db.ExecuteString("SELECT * FROM users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "city"}, res.Set.Columns)
	assert.Equal(t, []common.Row{
		{"1", "Al", "Rome"},
		{"2", "Bo", "Oslo"},
		{"3", "Cy, Jr", "Oslo"},
	}, res.Set.Rows)

	res, err = db.ExecuteString("SELECT name FROM users WHERE city = 'Oslo'")
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, res.Set.Columns)
	assert.Equal(t, []common.Row{{"Bo"}, {"Cy, Jr"}}, res.Set.Rows)

	res, err = db.ExecuteString("SELECT * FROM users WHERE id = 2")
	require.NoError(t, err)
	assert.Equal(t, []common.Row{{"2", "Bo", "Oslo"}}, res.Set.Rows)
}

func TestDatabaseErrors(t *testing.T) {
	db, err := Open(nil, Options{}, nil)
	require.NoError(t, err)
	mustExec(t, db, "CREATE TABLE users (id, name)", "INSERT INTO users VALUES (1, Al)")

	tests := []struct {
		stmt string
		want error
	}{
		{"CREATE TABLE users (a)", ErrTableExists},
		{"INSERT INTO ghosts VALUES (1)", ErrTableNotFound},
		{"SELECT * FROM ghosts", ErrTableNotFound},
		{"INSERT INTO users VALUES (2)", ErrColumnCountMismatch},
		{"INSERT INTO users VALUES (1, Bob)", ErrDuplicateKey},
		{"SELECT * FROM users WHERE email = x", ErrColumnNotFound},
		{"SELECT email FROM users", ErrColumnNotFound},
		{"SELECT * FROM users WHERE id > 0", ErrUnsupportedOperator},
		{"SELECT * FROM users WHERE id != 0", ErrUnsupportedOperator},
		{"DELETE FROM users", sql.ErrInvalidSyntax},
		{"CREATE TABLE dup (a, a)", ErrDuplicateColumn},
	}
	for _, tt := range tests {
		_, err := db.ExecuteString(tt.stmt)
		assert.ErrorIs(t, err, tt.want, tt.stmt)
	}

	// Nothing above may have changed the data.
	set, err := db.Select("users", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []common.Row{{"1", "Al"}}, set.Rows)
	assert.Equal(t, []string{"users"}, db.TableNames())

	stats := db.Stats()
	assert.EqualValues(t, len(tests), stats["errors"])
	assert.EqualValues(t, 1, stats["rows"])
}

func TestDatabaseTablesListedInNameOrder(t *testing.T) {
	db, err := Open(nil, Options{}, nil)
	require.NoError(t, err)
	mustExec(t, db, "CREATE TABLE zeta (a)", "CREATE TABLE alpha (a)", "CREATE TABLE mid (a)")
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, db.TableNames())
}

func TestDatabasePersistsAcrossReopen(t *testing.T) {
	for _, kind := range []string{storage.KindJSON, storage.KindSQLite, storage.KindLevelDB} {
		t.Run(kind, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "db")
			store, err := storage.Open(kind, path)
			require.NoError(t, err)

			db, err := Open(store, Options{Degree: 3}, nil)
			require.NoError(t, err)
			mustExec(t, db, "CREATE TABLE users (id, name)")
			for _, id := range []string{"5", "3", "9", "1", "7", "2", "8"} {
				mustExec(t, db, "INSERT INTO users VALUES ("+id+", 'n"+id+"')")
			}
			require.NoError(t, db.Close())

			store, err = storage.Open(kind, path)
			require.NoError(t, err)
			db2, err := Open(store, Options{}, nil)
			require.NoError(t, err)
			defer db2.Close()

			tbl, err := db2.Table("users")
			require.NoError(t, err)
			assert.Equal(t, 3, tbl.Degree())
			require.NoError(t, tbl.Check())

			set, err := db2.Select("users", []string{"id"}, nil)
			require.NoError(t, err)
			assert.Equal(t, []common.Row{{"1"}, {"2"}, {"3"}, {"5"}, {"7"}, {"8"}, {"9"}}, set.Rows)

			_, err = db2.ExecuteString("INSERT INTO users VALUES (3, again)")
			assert.ErrorIs(t, err, ErrDuplicateKey)
		})
	}
}

func TestOpenCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	_, err := Open(storage.NewJSONFile(path), Options{}, nil)
	require.ErrorIs(t, err, storage.ErrReadFailure)

	db, err := Open(storage.NewJSONFile(path), Options{ResetOnCorrupt: true}, nil)
	require.NoError(t, err)
	assert.Empty(t, db.TableNames())

	// The next mutation overwrites the bad document.
	mustExec(t, db, "CREATE TABLE t (a)")
	db2, err := Open(storage.NewJSONFile(path), Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, db2.TableNames())
}

func TestOpenSnapshotWithDuplicateRows(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Save(&common.Snapshot{
		Version: common.SnapshotVersion,
		Tables: []common.TableSnapshot{
			{Name: "t", Columns: []string{"id"}, Degree: 2, Rows: []common.Row{{"1"}, {"1"}}},
		},
	}))

	_, err := Open(store, Options{}, nil)
	assert.ErrorIs(t, err, storage.ErrReadFailure)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, "persistence", Category(err))
}

func TestOpenSnapshotWithDuplicateTables(t *testing.T) {
	store := storage.NewMemory()
	table := common.TableSnapshot{Name: "t", Columns: []string{"id"}, Degree: 2}
	require.NoError(t, store.Save(&common.Snapshot{
		Version: common.SnapshotVersion,
		Tables:  []common.TableSnapshot{table, table},
	}))

	_, err := Open(store, Options{}, nil)
	require.ErrorIs(t, err, storage.ErrReadFailure)
	assert.NotErrorIs(t, err, ErrSchema)
	assert.Equal(t, "persistence", Category(err))
}

type failingStore struct {
	storage.Memory
	saves int
}

func (f *failingStore) Save(*common.Snapshot) error {
	f.saves++
	return errors.Join(storage.ErrWriteFailure, errors.New("disk full"))
}

func TestSaveFailureKeepsMutation(t *testing.T) {
	store := &failingStore{}
	db, err := Open(store, Options{}, nil)
	require.NoError(t, err)

	_, err = db.ExecuteString("CREATE TABLE t (id)")
	require.ErrorIs(t, err, storage.ErrWriteFailure)
	assert.ErrorIs(t, err, storage.ErrPersistence)
	assert.Equal(t, 1, store.saves)

	_, err = db.ExecuteString("INSERT INTO t VALUES (1)")
	require.ErrorIs(t, err, storage.ErrWriteFailure)

	set, err := db.Select("t", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []common.Row{{"1"}}, set.Rows)

	// Both failed saves count as errors.
	stats := db.Stats()
	assert.EqualValues(t, 2, stats["errors"])
	assert.EqualValues(t, 2, stats["writes"])
}

func TestSelectDoesNotSave(t *testing.T) {
	store := &countingStore{}
	db, err := Open(store, Options{}, nil)
	require.NoError(t, err)
	mustExec(t, db, "CREATE TABLE t (id)", "INSERT INTO t VALUES (1)")
	mustExec(t, db, "SELECT * FROM t", "SELECT * FROM t WHERE id = 1")
	_, _ = db.ExecuteString("INSERT INTO t VALUES (1)")
	assert.Equal(t, 2, store.saves)
}

type countingStore struct {
	storage.Memory
	saves int
}

func (c *countingStore) Save(s *common.Snapshot) error {
	c.saves++
	return c.Memory.Save(s)
}

func TestSnapshotContents(t *testing.T) {
	db, err := Open(nil, Options{Degree: 4}, nil)
	require.NoError(t, err)
	mustExec(t, db,
		"CREATE TABLE b (k, v)",
		"CREATE TABLE a (k)",
		"INSERT INTO b VALUES (2, two)",
		"INSERT INTO b VALUES (1, one)",
	)
	snap := db.Snapshot()
	assert.Equal(t, common.SnapshotVersion, snap.Version)
	require.Len(t, snap.Tables, 2)
	assert.Equal(t, "a", snap.Tables[0].Name)
	assert.Equal(t, "b", snap.Tables[1].Name)
	assert.Equal(t, 4, snap.Tables[1].Degree)
	assert.Equal(t, []common.Row{{"1", "one"}, {"2", "two"}}, snap.Tables[1].Rows)
}

func TestCategory(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: %q", ErrTableNotFound, "x"), "schema"},
		{ErrDuplicateKey, "data"},
		{ErrUnsupportedOperator, "query"},
		{storage.ErrWriteFailure, "persistence"},
		{fmt.Errorf("%w: table %q: %w", storage.ErrReadFailure, "t", ErrDuplicateKey), "persistence"},
		{&sql.SyntaxError{Reason: "bad"}, "syntax"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Category(tt.err), tt.err.Error())
	}
}

func TestLockedSharesDatabase(t *testing.T) {
	db, err := Open(nil, Options{}, nil)
	require.NoError(t, err)
	l := NewLocked(db)

	_, err = l.ExecuteString("CREATE TABLE t (id)")
	require.NoError(t, err)

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 25; j++ {
				_, _ = l.ExecuteString(fmt.Sprintf("INSERT INTO t VALUES (%d)", i*100+j))
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	l.Do(func(db *Database) {
		tbl, err := db.Table("t")
		require.NoError(t, err)
		assert.Equal(t, 100, tbl.Len())
		assert.NoError(t, tbl.Check())
	})
	assert.NoError(t, l.Close())
}

func TestOpenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = storage.KindSQLite
	cfg.Storage.Path = filepath.Join(t.TempDir(), "db.sqlite")
	cfg.Tree.Degree = 5

	db, err := OpenConfigured(cfg, nil)
	require.NoError(t, err)
	mustExec(t, db, "CREATE TABLE t (id)")
	require.NoError(t, db.Close())

	db, err = OpenConfigured(cfg, nil)
	require.NoError(t, err)
	defer db.Close()
	tbl, err := db.Table("t")
	require.NoError(t, err)
	assert.Equal(t, 5, tbl.Degree())

	cfg.Storage.Backend = "tape"
	_, err = OpenConfigured(cfg, nil)
	assert.ErrorIs(t, err, storage.ErrUnknownBackend)
}

func TestOpenConfiguredResetsCorruptSnapshot(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(cfg.Storage.Path, []byte("{"), 0644))

	_, err := OpenConfigured(cfg, nil)
	require.ErrorIs(t, err, storage.ErrReadFailure)

	cfg.Storage.OnCorrupt = config.OnCorruptReset
	db, err := OpenConfigured(cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, db.TableNames())
}
