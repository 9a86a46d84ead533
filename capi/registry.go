package capi

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	hnsw "github.com/sameraamar/HNSW"
)

// Handle identifies an index owned by a Registry. The zero Handle is never
// issued.
type Handle uint64

// RowCount is the reduced per-row search result.
type RowCount struct {
	ID    uint64
	Count int64
}

// ItemAndScore is one neighbor of the detailed search result. Score is the
// engine distance, smaller is nearer.
type ItemAndScore struct {
	Item  uint64
	Score float32
}

type entry struct {
	index *hnsw.Index

	mu      sync.Mutex
	lastErr error
}

func (e *entry) record(err error) Status {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
	return statusOf(err)
}

// Registry owns the indexes behind a set of handles. A Registry is safe for
// concurrent use; calls on one handle are serialized by its index.
type Registry struct {
	opts []hnsw.Option
	next atomic.Uint64

	mu      sync.RWMutex
	entries map[Handle]*entry
	lastErr error
}

// NewRegistry returns an empty registry. opts are applied to every index it
// creates.
func NewRegistry(opts ...hnsw.Option) *Registry {
	return &Registry{
		opts:    opts,
		entries: make(map[Handle]*entry),
	}
}

func (r *Registry) fail(err error) Status {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
	return statusOf(err)
}

func (r *Registry) lookup(h Handle) (*entry, Status) {
	r.mu.RLock()
	e, ok := r.entries[h]
	r.mu.RUnlock()
	if !ok {
		return nil, r.fail(fmt.Errorf("%w: %d", errInvalidHandle, h))
	}
	return e, StatusOK
}

// Create makes a new uninitialized index. An unknown space name yields
// StatusConfiguration and no handle. debug lowers the index logger to debug
// level, including a logger given to NewRegistry.
func (r *Registry) Create(space string, dim int, debug bool) (Handle, Status) {
	opts := r.opts
	if debug {
		opts = append(append([]hnsw.Option(nil), r.opts...), hnsw.WithDebug(true))
	}

	idx, err := hnsw.New(space, dim, opts...)
	if err != nil {
		return 0, r.fail(err)
	}

	h := Handle(r.next.Add(1))
	r.mu.Lock()
	r.entries[h] = &entry{index: idx}
	r.mu.Unlock()
	return h, StatusOK
}

// Delete closes the index and releases the handle.
func (r *Registry) Delete(h Handle) Status {
	r.mu.Lock()
	e, ok := r.entries[h]
	delete(r.entries, h)
	r.mu.Unlock()
	if !ok {
		return r.fail(fmt.Errorf("%w: %d", errInvalidHandle, h))
	}
	if err := e.index.Close(); err != nil {
		return r.fail(err)
	}
	return StatusOK
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Init builds an empty engine.
func (r *Registry) Init(h Handle, maxElements, m, efConstruction int, seed int64) Status {
	e, st := r.lookup(h)
	if st != StatusOK {
		return st
	}
	return e.record(e.index.Init(maxElements, m, efConstruction, seed))
}

// Save writes the index to path.
func (r *Registry) Save(h Handle, path string) Status {
	e, st := r.lookup(h)
	if st != StatusOK {
		return st
	}
	return e.record(e.index.Save(context.Background(), path))
}

// Load replaces the index's engine with the one saved at path.
func (r *Registry) Load(h Handle, path string, maxElements int) Status {
	e, st := r.lookup(h)
	if st != StatusOK {
		return st
	}
	return e.record(e.index.Load(context.Background(), path, maxElements))
}

// AddItems inserts rows vectors. ids may be nil.
func (r *Registry) AddItems(h Handle, vectors []float32, ids []uint64, rows, threads int) Status {
	e, st := r.lookup(h)
	if st != StatusOK {
		return st
	}
	return e.record(e.index.AddItems(vectors, ids, rows, threads))
}

// Search fills out with the row id and neighbor count of every query row.
// out must hold at least rows entries.
func (r *Registry) Search(h Handle, queries []float32, rows, k, threads int, out []RowCount) Status {
	e, st := r.lookup(h)
	if st != StatusOK {
		return st
	}
	if len(out) < rows {
		return e.record(fmt.Errorf("%w: %d row counts for %d rows", errBufferTooSmall, len(out), rows))
	}

	flat, err := e.index.SearchFlat(queries, rows, k, threads)
	if err != nil {
		return e.record(err)
	}
	for row := 0; row < rows; row++ {
		out[row] = RowCount{ID: uint64(row), Count: int64(flat.K)}
	}
	return e.record(nil)
}

// Search1 writes the neighbors of query row i to items[i*k:(i+1)*k], nearest
// first, and the row's neighbor count to sizes[i].
func (r *Registry) Search1(h Handle, queries []float32, rows, k, threads int, items []ItemAndScore, sizes []int64) Status {
	e, st := r.lookup(h)
	if st != StatusOK {
		return st
	}
	if k > 0 && (len(items) < rows*k || len(sizes) < rows) {
		return e.record(fmt.Errorf("%w: %d items and %d sizes for %d rows of %d", errBufferTooSmall, len(items), len(sizes), rows, k))
	}

	flat, err := e.index.SearchFlat(queries, rows, k, threads)
	if err != nil {
		return e.record(err)
	}
	for row := 0; row < rows; row++ {
		ids, dists := flat.Row(row)
		for j := range ids {
			items[row*k+j] = ItemAndScore{Item: ids[j], Score: dists[j]}
		}
		sizes[row] = int64(len(ids))
	}
	return e.record(nil)
}

// SetEf sets the search-time candidate list size.
func (r *Registry) SetEf(h Handle, ef int) Status {
	e, st := r.lookup(h)
	if st != StatusOK {
		return st
	}
	e.index.SetEf(ef)
	return e.record(nil)
}

// ElementCount reports the logical element count of the index.
func (r *Registry) ElementCount(h Handle) (int, Status) {
	e, st := r.lookup(h)
	if st != StatusOK {
		return 0, st
	}
	return e.index.ElementCount(), StatusOK
}

// PrintInfo writes a human-readable description of the index to w.
func (r *Registry) PrintInfo(h Handle, label string, w io.Writer) Status {
	e, st := r.lookup(h)
	if st != StatusOK {
		return st
	}
	return e.record(e.index.PrintInfo(w, label))
}

// LastError returns the message of the last failed call on h, or of the last
// registry-level failure (unknown handle, failed Create) when h is zero. It
// returns "" after a successful call.
func (r *Registry) LastError(h Handle) string {
	var err error
	if h == 0 {
		r.mu.RLock()
		err = r.lastErr
		r.mu.RUnlock()
	} else {
		e, st := r.lookup(h)
		if st != StatusOK {
			return errInvalidHandle.Error()
		}
		e.mu.Lock()
		err = e.lastErr
		e.mu.Unlock()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
