package core

import (
	"errors"
	"fmt"

	"simplerdb/pkg/sql"
	"simplerdb/pkg/storage"
)

// Error categories. Every error below matches exactly one of them with
// errors.Is.
var (
	ErrSchema = errors.New("schema error")
	ErrData   = errors.New("data error")
	ErrQuery  = errors.New("query error")
)

// Schema errors
var (
	ErrTableExists         = fmt.Errorf("%w: table already exists", ErrSchema)
	ErrTableNotFound       = fmt.Errorf("%w: table not found", ErrSchema)
	ErrColumnCountMismatch = fmt.Errorf("%w: column count mismatch", ErrSchema)
	ErrColumnNotFound      = fmt.Errorf("%w: column not found", ErrSchema)
	ErrEmptySchema         = fmt.Errorf("%w: table needs at least one column", ErrSchema)
	ErrDuplicateColumn     = fmt.Errorf("%w: duplicate column name", ErrSchema)
)

// Data errors
var (
	ErrDuplicateKey = fmt.Errorf("%w: duplicate key", ErrData)
)

// Query errors
var (
	ErrUnsupportedOperator = fmt.Errorf("%w: only '=' conditions can be executed", ErrQuery)
	ErrUnsupportedQuery    = fmt.Errorf("%w: unsupported statement", ErrQuery)
)

// Category names the taxonomy branch err belongs to: "syntax", "schema",
// "data", "query", "persistence", or "internal" for anything else. A
// persistence failure wins over the cause it wraps, so a bad snapshot row
// is reported as "persistence".
func Category(err error) string {
	switch {
	case errors.Is(err, storage.ErrPersistence):
		return "persistence"
	case errors.Is(err, sql.ErrInvalidSyntax):
		return "syntax"
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrData):
		return "data"
	case errors.Is(err, ErrQuery):
		return "query"
	default:
		return "internal"
	}
}
