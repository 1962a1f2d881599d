package core

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"simplerdb/pkg/common"
	"simplerdb/pkg/core/catalog"
	"simplerdb/pkg/logger"
	"simplerdb/pkg/monitor"
	"simplerdb/pkg/sql"
	"simplerdb/pkg/storage"
)

const catalogDegree = 8

// Options controls how a Database is opened.
type Options struct {
	// Degree is the branching parameter for tables created from now on.
	Degree int
	// ResetOnCorrupt starts from an empty database, instead of failing,
	// when the stored snapshot cannot be read.
	ResetOnCorrupt bool
}

// ResultSet is the output of a SELECT.
type ResultSet struct {
	Columns []string     `json:"columns"`
	Rows    []common.Row `json:"rows"`
}

// Result is the outcome of one executed statement. Set is only filled for
// SELECT.
type Result struct {
	Message string     `json:"message,omitempty"`
	Set     *ResultSet `json:"result,omitempty"`
}

// Database maps table names to tables and writes a full snapshot to its
// backend after every successful mutation. It is not safe for concurrent
// use.
type Database struct {
	tables *catalog.Catalog[*Table]
	store  storage.Backend
	opts   Options
	log    *zap.Logger
	stats  *monitor.WorkloadStats
}

// Open restores the database from store. A nil store keeps everything in
// memory only.
func Open(store storage.Backend, opts Options, log *zap.Logger) (*Database, error) {
	if opts.Degree == 0 {
		opts.Degree = DefaultDegree
	}
	db := &Database{
		tables: catalog.New[*Table](catalogDegree),
		store:  store,
		opts:   opts,
		log:    logger.OrNop(log),
		stats:  monitor.NewWorkloadStats(),
	}
	if store == nil {
		return db, nil
	}

	snap, err := store.Load()
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		db.log.Info("no snapshot found, starting empty")
		return db, nil
	case err != nil:
		return db.onLoadError(err)
	}

	if err := db.restore(snap); err != nil {
		return db.onLoadError(err)
	}
	db.log.Info("snapshot restored", zap.Int("tables", db.tables.Len()))
	return db, nil
}

func (db *Database) onLoadError(err error) (*Database, error) {
	if !db.opts.ResetOnCorrupt {
		return nil, err
	}
	db.log.Warn("snapshot unreadable, starting empty", zap.Error(err))
	db.tables = catalog.New[*Table](catalogDegree)
	return db, nil
}

func (db *Database) restore(snap *common.Snapshot) error {
	for _, ts := range snap.Tables {
		degree := ts.Degree
		if degree == 0 {
			degree = db.opts.Degree
		}
		t, err := NewTable(ts.Columns, degree)
		if err != nil {
			return fmt.Errorf("%w: table %q: %w", storage.ErrReadFailure, ts.Name, err)
		}
		for _, row := range ts.Rows {
			if err := t.Insert(row); err != nil {
				return fmt.Errorf("%w: table %q: %w", storage.ErrReadFailure, ts.Name, err)
			}
		}
		if !db.tables.Add(ts.Name, t) {
			return fmt.Errorf("%w: table %q listed twice", storage.ErrReadFailure, ts.Name)
		}
	}
	return nil
}

// Snapshot returns the persisted form of the whole database, tables in name
// order and rows in primary-key order.
func (db *Database) Snapshot() *common.Snapshot {
	snap := &common.Snapshot{Version: common.SnapshotVersion}
	db.tables.Each(func(name string, t *Table) bool {
		snap.Tables = append(snap.Tables, common.TableSnapshot{
			Name:    name,
			Columns: t.Columns(),
			Degree:  t.Degree(),
			Rows:    t.SelectAll(),
		})
		return true
	})
	return snap
}

// persist saves a full snapshot. The in-memory change has already happened
// and is kept even when the save fails.
func (db *Database) persist() error {
	if db.store == nil {
		return nil
	}
	if err := db.store.Save(db.Snapshot()); err != nil {
		db.log.Error("snapshot save failed", zap.Error(err))
		return db.fail(err)
	}
	return nil
}

func (db *Database) CreateTable(name string, columns []string) error {
	if _, exists := db.tables.Get(name); exists {
		return db.fail(fmt.Errorf("%w: %q", ErrTableExists, name))
	}
	t, err := NewTable(columns, db.opts.Degree)
	if err != nil {
		return db.fail(err)
	}
	db.tables.Add(name, t)
	db.stats.RecordWrite()
	db.log.Debug("table created", zap.String("table", name), zap.Strings("columns", columns))
	return db.persist()
}

func (db *Database) Insert(table string, values []string) error {
	t, err := db.Table(table)
	if err != nil {
		return db.fail(err)
	}
	if err := t.Insert(values); err != nil {
		return db.fail(err)
	}
	db.stats.RecordWrite()
	return db.persist()
}

// Select returns the rows of table matching cond (all rows when cond is
// nil), narrowed to columns (all columns when nil).
func (db *Database) Select(table string, columns []string, cond *sql.Condition) (*ResultSet, error) {
	t, err := db.Table(table)
	if err != nil {
		return nil, db.fail(err)
	}

	var rows []common.Row
	if cond == nil {
		rows = t.SelectAll()
	} else {
		if cond.Op != sql.OpEq {
			return nil, db.fail(fmt.Errorf("%w: got %q", ErrUnsupportedOperator, cond.Op))
		}
		rows, err = t.SelectWhere(cond.Column, cond.Value)
		if err != nil {
			return nil, db.fail(err)
		}
	}

	rows, err = t.Project(rows, columns)
	if err != nil {
		return nil, db.fail(err)
	}
	db.stats.RecordRead()

	header := columns
	if header == nil {
		header = t.Columns()
	}
	return &ResultSet{Columns: header, Rows: rows}, nil
}

// Table looks a table up by name.
func (db *Database) Table(name string) (*Table, error) {
	t, ok := db.tables.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return t, nil
}

// TableNames lists every table in name order.
func (db *Database) TableNames() []string {
	return db.tables.Names()
}

// Execute runs one parsed statement.
func (db *Database) Execute(q sql.Query) (*Result, error) {
	switch stmt := q.(type) {
	case *sql.CreateTableStmt:
		if err := db.CreateTable(stmt.Table, stmt.Columns); err != nil {
			return nil, err
		}
		return &Result{Message: fmt.Sprintf("Table '%s' created.", stmt.Table)}, nil
	case *sql.InsertStmt:
		if err := db.Insert(stmt.Table, stmt.Values); err != nil {
			return nil, err
		}
		return &Result{Message: "1 row inserted."}, nil
	case *sql.SelectStmt:
		set, err := db.Select(stmt.Table, stmt.Columns, stmt.Where)
		if err != nil {
			return nil, err
		}
		return &Result{Set: set}, nil
	default:
		return nil, db.fail(fmt.Errorf("%w: %T", ErrUnsupportedQuery, q))
	}
}

// ExecuteString parses and runs one statement.
func (db *Database) ExecuteString(text string) (*Result, error) {
	q, err := sql.Parse(text)
	if err != nil {
		return nil, db.fail(err)
	}
	return db.Execute(q)
}

// Stats reports workload counters and table sizes.
func (db *Database) Stats() map[string]interface{} {
	rows := 0
	db.tables.Each(func(_ string, t *Table) bool {
		rows += t.Len()
		return true
	})
	w := db.stats.Snapshot()
	return map[string]interface{}{
		"tables":   db.tables.Len(),
		"rows":     rows,
		"reads":    w.Reads,
		"writes":   w.Writes,
		"errors":   w.Errors,
		"rw_ratio": w.Ratio,
		"degree":   db.opts.Degree,
	}
}

// Close releases the backend.
func (db *Database) Close() error {
	if db.store == nil {
		return nil
	}
	return db.store.Close()
}

func (db *Database) fail(err error) error {
	db.stats.RecordError()
	return err
}
