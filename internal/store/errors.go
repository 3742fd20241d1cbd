package store

import "errors"

// Sentinel errors for store operations.
var (
	ErrKeyNotFound   = errors.New("store: key not found")
	ErrIndexNotFound = errors.New("store: index not found")
	ErrIndexExists   = errors.New("store: index already exists")
)

// Op constants name the failed backend command for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpHSet        = "HSET"
	OpDel         = "DEL"
	OpGet         = "GET"
	OpSet         = "SET"
	OpSchema      = "schema"
	OpBatch       = "batch"
	OpAggregate   = "aggregate"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
