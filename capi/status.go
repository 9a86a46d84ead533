package capi

import (
	"errors"
	"io/fs"

	hnsw "github.com/sameraamar/HNSW"
	"github.com/sameraamar/HNSW/graph"
	"github.com/sameraamar/HNSW/internal/compress"
	"github.com/sameraamar/HNSW/resource"
)

// Status is the result code of a boundary call.
type Status int32

// Status codes. StatusOK is the zero value.
const (
	StatusOK Status = iota
	StatusConfiguration
	StatusAlreadyInitialized
	StatusNotInitialized
	StatusInvalidArgument
	StatusResultCardinality
	StatusCapacityExceeded
	StatusDuplicateID
	StatusIO
	StatusInvalidHandle
	StatusResourceExhausted
	StatusInternal
)

var statusNames = [...]string{
	StatusOK:                 "ok",
	StatusConfiguration:      "configuration error",
	StatusAlreadyInitialized: "already initialized",
	StatusNotInitialized:     "not initialized",
	StatusInvalidArgument:    "invalid argument",
	StatusResultCardinality:  "result cardinality",
	StatusCapacityExceeded:   "capacity exceeded",
	StatusDuplicateID:        "duplicate id",
	StatusIO:                 "i/o error",
	StatusInvalidHandle:      "invalid handle",
	StatusResourceExhausted:  "resource exhausted",
	StatusInternal:           "internal error",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown status"
	}
	return statusNames[s]
}

// errInvalidHandle is recorded at registry level for unknown handles.
var errInvalidHandle = errors.New("capi: invalid handle")

// errBufferTooSmall is recorded when a caller-owned result buffer cannot
// hold the batch.
var errBufferTooSmall = errors.New("capi: result buffer too small")

// statusOf translates an error into the status reported to the caller.
func statusOf(err error) Status {
	var (
		cfgErr  *hnsw.ConfigurationError
		cardErr *hnsw.ResultCardinalityError
		dimErr  *graph.ErrDimensionMismatch
		compErr *compress.ErrUnknownType
		pathErr *fs.PathError
	)

	switch {
	case err == nil:
		return StatusOK
	case errors.As(err, &cfgErr):
		return StatusConfiguration
	case errors.Is(err, hnsw.ErrAlreadyInitialized):
		return StatusAlreadyInitialized
	case errors.Is(err, hnsw.ErrNotInitialized):
		return StatusNotInitialized
	case errors.As(err, &cardErr):
		return StatusResultCardinality
	case errors.Is(err, graph.ErrCapacityExceeded):
		return StatusCapacityExceeded
	case errors.Is(err, graph.ErrDuplicateLabel):
		return StatusDuplicateID
	case errors.Is(err, hnsw.ErrInvalidK),
		errors.Is(err, hnsw.ErrVectorCountMismatch),
		errors.Is(err, hnsw.ErrIDCountMismatch),
		errors.Is(err, errBufferTooSmall),
		errors.As(err, &dimErr):
		return StatusInvalidArgument
	case errors.Is(err, hnsw.ErrNotIndexFile),
		errors.Is(err, graph.ErrCorrupt),
		errors.Is(err, graph.ErrIncompatible),
		errors.As(err, &compErr),
		errors.As(err, &pathErr):
		return StatusIO
	case errors.Is(err, errInvalidHandle), errors.Is(err, hnsw.ErrClosed):
		return StatusInvalidHandle
	case errors.Is(err, resource.ErrMemoryLimitExceeded):
		return StatusResourceExhausted
	default:
		return StatusInternal
	}
}
