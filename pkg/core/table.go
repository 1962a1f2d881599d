package core

import (
	"fmt"

	"simplerdb/pkg/common"
	"simplerdb/pkg/core/bptree"
)

// DefaultDegree is the branching parameter used for table indexes unless
// configured otherwise.
const DefaultDegree = 2

// Table binds a fixed column schema to a B+Tree keyed by the first column.
type Table struct {
	columns   []string
	positions map[string]int
	index     *bptree.Tree[string, common.Row]
}

func NewTable(columns []string, degree int) (*Table, error) {
	if len(columns) == 0 {
		return nil, ErrEmptySchema
	}
	index, err := bptree.New[string, common.Row](degree)
	if err != nil {
		return nil, err
	}

	positions := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := positions[c]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		positions[c] = i
	}

	return &Table{
		columns:   append([]string(nil), columns...),
		positions: positions,
		index:     index,
	}, nil
}

// Columns returns a copy of the schema.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t *Table) PrimaryKey() string {
	return t.columns[0]
}

func (t *Table) Len() int {
	return t.index.Len()
}

func (t *Table) Degree() int {
	return t.index.Degree()
}

// Insert stores row under its first field. The table is left unchanged when
// the arity is wrong or the key is already present.
func (t *Table) Insert(row common.Row) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("%w: expected %d, got %d", ErrColumnCountMismatch, len(t.columns), len(row))
	}
	key := row.Key()
	if _, exists := t.index.Search(key); exists {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	t.index.Insert(key, row.Clone())
	return nil
}

// SelectAll returns every row in ascending primary-key order.
func (t *Table) SelectAll() []common.Row {
	rows := make([]common.Row, 0, t.index.Len())
	t.index.Ascend(func(_ string, row common.Row) bool {
		rows = append(rows, row.Clone())
		return true
	})
	return rows
}

// SelectWhere returns the rows whose column equals value. The primary-key
// column is answered with a single tree lookup, any other column with a
// scan of the leaf chain.
func (t *Table) SelectWhere(column, value string) ([]common.Row, error) {
	pos, ok := t.positions[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}

	if pos == 0 {
		row, found := t.index.Search(value)
		if !found {
			return []common.Row{}, nil
		}
		return []common.Row{row.Clone()}, nil
	}

	rows := []common.Row{}
	t.index.Ascend(func(_ string, row common.Row) bool {
		if row[pos] == value {
			rows = append(rows, row.Clone())
		}
		return true
	})
	return rows, nil
}

// Project narrows rows to the given columns, in the given order. A nil
// column list keeps every column.
func (t *Table) Project(rows []common.Row, columns []string) ([]common.Row, error) {
	if columns == nil {
		return rows, nil
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		pos, ok := t.positions[c]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, c)
		}
		idx[i] = pos
	}

	out := make([]common.Row, len(rows))
	for i, row := range rows {
		projected := make(common.Row, len(idx))
		for j, pos := range idx {
			projected[j] = row[pos]
		}
		out[i] = projected
	}
	return out, nil
}

// Render draws the shape of the table's index.
func (t *Table) Render() string {
	return t.index.Render(func(k string) string { return k })
}

// Check verifies the structural invariants of the table's index.
func (t *Table) Check() error {
	return t.index.Check()
}

// Height returns the number of levels of the table's index.
func (t *Table) Height() int {
	return t.index.Height()
}
