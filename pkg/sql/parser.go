package sql

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidSyntax = errors.New("invalid syntax")

// SyntaxError describes why a statement could not be parsed. It matches
// ErrInvalidSyntax with errors.Is.
type SyntaxError struct {
	Reason string
}

func (e *SyntaxError) Error() string {
	return "invalid syntax: " + e.Reason
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrInvalidSyntax
}

func syntaxErr(reason string) error {
	return &SyntaxError{Reason: reason}
}

// Query is one of *CreateTableStmt, *InsertStmt or *SelectStmt.
type Query interface {
	// Mutates reports whether executing the statement changes database state.
	Mutates() bool
	statement()
}

// CreateTableStmt represents CREATE TABLE name (col, ...).
type CreateTableStmt struct {
	Table   string
	Columns []string
}

// InsertStmt represents INSERT INTO name VALUES (v, ...).
type InsertStmt struct {
	Table  string
	Values []string
}

// SelectStmt represents SELECT * | col, ... FROM name [WHERE col <op> value].
// Columns is nil for *.
type SelectStmt struct {
	Table   string
	Columns []string
	Where   *Condition
}

type Operator string

const (
	OpEq Operator = "="
	OpNe Operator = "!="
	OpGt Operator = ">"
	OpLt Operator = "<"
	OpGe Operator = ">="
	OpLe Operator = "<="
)

// Condition is a single-column comparison. Only OpEq is executable; the
// other operators are recognized so that the executor can reject them
// explicitly.
type Condition struct {
	Column string
	Op     Operator
	Value  string
}

func (*CreateTableStmt) Mutates() bool { return true }
func (*InsertStmt) Mutates() bool      { return true }
func (*SelectStmt) Mutates() bool      { return false }

func (*CreateTableStmt) statement() {}
func (*InsertStmt) statement()      {}
func (*SelectStmt) statement()      {}

const ident = `[a-zA-Z_][a-zA-Z0-9_]*`

var (
	identRe  = regexp.MustCompile(`^` + ident + `$`)
	createRe = regexp.MustCompile(`(?is)^CREATE\s+TABLE\s+(` + ident + `)\s*\((.*)\)$`)
	insertRe = regexp.MustCompile(`(?is)^INSERT\s+INTO\s+(` + ident + `)\s+VALUES\s*\((.*)\)$`)
	selectRe = regexp.MustCompile(`(?is)^SELECT\s+(.+?)\s+FROM\s+(` + ident + `)(?:\s+WHERE\s+(.+))?$`)
	whereRe  = regexp.MustCompile(`(?s)^(` + ident + `)\s*(!=|<>|>=|<=|=|>|<)\s*(.+)$`)
)

// Parse parses one statement:
// "CREATE TABLE users (id, name)"
// "INSERT INTO users VALUES (1, 'Al')"
// "SELECT * FROM users"
// "SELECT id, name FROM users WHERE name = 'Al'"
// Keywords are case-insensitive and a trailing ';' is ignored.
func Parse(s string) (Query, error) {
	orig := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";"))
	if orig == "" {
		return nil, syntaxErr("empty query")
	}

	upper := strings.ToUpper(orig)
	switch {
	case strings.HasPrefix(upper, "CREATE"):
		return parseCreateTable(orig)
	case strings.HasPrefix(upper, "INSERT"):
		return parseInsert(orig)
	case strings.HasPrefix(upper, "SELECT"):
		return parseSelect(orig)
	default:
		return nil, syntaxErr("unknown command")
	}
}

func parseCreateTable(s string) (*CreateTableStmt, error) {
	m := createRe.FindStringSubmatch(s)
	if m == nil {
		return nil, syntaxErr("expected CREATE TABLE <name> (<column>, ...)")
	}
	cols, err := parseIdentList(m[2])
	if err != nil {
		return nil, err
	}
	return &CreateTableStmt{Table: m[1], Columns: cols}, nil
}

func parseInsert(s string) (*InsertStmt, error) {
	m := insertRe.FindStringSubmatch(s)
	if m == nil {
		return nil, syntaxErr("expected INSERT INTO <name> VALUES (<value>, ...)")
	}
	values, err := SplitValues(m[2])
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, syntaxErr("no values to insert")
	}
	return &InsertStmt{Table: m[1], Values: values}, nil
}

func parseSelect(s string) (*SelectStmt, error) {
	m := selectRe.FindStringSubmatch(s)
	if m == nil {
		return nil, syntaxErr("expected SELECT <columns> FROM <name> [WHERE <column> <op> <value>]")
	}

	stmt := &SelectStmt{Table: m[2]}
	if cols := strings.TrimSpace(m[1]); cols != "*" {
		list, err := parseIdentList(cols)
		if err != nil {
			return nil, err
		}
		stmt.Columns = list
	}

	if m[3] != "" {
		cond, err := parseCondition(strings.TrimSpace(m[3]))
		if err != nil {
			return nil, err
		}
		stmt.Where = cond
	}
	return stmt, nil
}

func parseCondition(s string) (*Condition, error) {
	m := whereRe.FindStringSubmatch(s)
	if m == nil {
		return nil, syntaxErr("expected WHERE <column> <op> <value>")
	}
	op := Operator(m[2])
	if m[2] == "<>" {
		op = OpNe
	}
	values, err := SplitValues(m[3])
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, syntaxErr("WHERE expects a single value")
	}
	return &Condition{Column: m[1], Op: op, Value: values[0]}, nil
}

func parseIdentList(s string) ([]string, error) {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if !identRe.MatchString(name) {
			if name == "" {
				return nil, syntaxErr("empty column name")
			}
			return nil, syntaxErr("invalid column name " + name)
		}
		out = append(out, name)
	}
	return out, nil
}

// SplitValues splits a comma separated value list. A value may be wrapped in
// single or double quotes to embed commas or the other quote character;
// whitespace outside quotes is trimmed and unquoted text is kept verbatim.
// An empty input yields no values.
func SplitValues(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var (
		values []string
		cur    strings.Builder
		keep   int // length of cur up to its last significant byte
		quote  rune
	)
	flush := func() {
		values = append(values, cur.String()[:keep])
		cur.Reset()
		keep = 0
	}

	for _, c := range s {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
				continue
			}
			cur.WriteRune(c)
			keep = cur.Len()
		case c == '\'' || c == '"':
			quote = c
		case c == ',':
			flush()
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if keep > 0 {
				cur.WriteRune(c)
			}
		default:
			cur.WriteRune(c)
			keep = cur.Len()
		}
	}
	if quote != 0 {
		return nil, syntaxErr("unterminated quoted value")
	}
	flush()
	return values, nil
}
