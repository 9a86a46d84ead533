package hnsw

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInitialized is returned by Init when the index already owns an engine.
	ErrAlreadyInitialized = errors.New("hnsw: index already initialized")

	// ErrNotInitialized is returned by operations that need an engine before Init or Load.
	ErrNotInitialized = errors.New("hnsw: index not initialized")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("hnsw: k must be positive")

	// ErrVectorCountMismatch is returned when a batch does not hold rows*dim values.
	ErrVectorCountMismatch = errors.New("hnsw: vector data does not match rows*dim")

	// ErrIDCountMismatch is returned when ids are given but not one per row.
	ErrIDCountMismatch = errors.New("hnsw: id count does not match rows")

	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("hnsw: index closed")

	// ErrNotIndexFile is returned by Load when the blob is not a saved index.
	ErrNotIndexFile = errors.New("hnsw: not an index file")
)

// ConfigurationError indicates an index that cannot be created as requested.
//
// The underlying error, if any, is available through errors.Unwrap.
type ConfigurationError struct {
	Space     string
	Dimension int
	cause     error
}

func (e *ConfigurationError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("hnsw: invalid configuration: %v", e.cause)
	}
	return fmt.Sprintf("hnsw: invalid configuration: space %q, dimension %d", e.Space, e.Dimension)
}

func (e *ConfigurationError) Unwrap() error { return e.cause }

// ResultCardinalityError indicates a query row for which the engine did not
// return exactly k neighbors. Either the index holds fewer than k elements or
// ef is too small for the graph to reach k of them.
type ResultCardinalityError struct {
	Row  int
	Want int
	Got  int
}

func (e *ResultCardinalityError) Error() string {
	return fmt.Sprintf("hnsw: query row %d returned %d neighbors, want %d; increase ef or M", e.Row, e.Got, e.Want)
}

// RowError attaches the batch row to an error raised while processing it.
type RowError struct {
	Row   int
	cause error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("hnsw: row %d: %v", e.Row, e.cause)
}

func (e *RowError) Unwrap() error { return e.cause }
