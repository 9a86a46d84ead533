package hnsw

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/google/uuid"
	"github.com/sameraamar/HNSW/blobstore"
	"github.com/sameraamar/HNSW/distance"
	"github.com/sameraamar/HNSW/graph"
	"github.com/sameraamar/HNSW/resource"
)

// Index is a batch facade over one HNSW engine.
//
// Batch inserts and lifecycle calls are serialized; searches run
// concurrently with each other.
type Index struct {
	mu sync.RWMutex

	id         string
	space      distance.Space
	dim        int
	normalize  bool
	ef         int
	numThreads int

	// curL is the logical element count; it only advances after a fully
	// successful insert batch.
	curL          int
	entryPointSet bool
	engine        Engine
	closed        bool

	store       blobstore.Store
	compression Compression
	factory     EngineFactory
	resources   *resource.Controller
	reserved    int64
	logger      *Logger
	metrics     MetricsCollector
}

// New creates an uninitialized index for vectors of length dim in the named
// space ("l2", "ip" or "cosine"). Call Init or Load before inserting.
func New(space string, dim int, optFns ...Option) (*Index, error) {
	s, err := distance.ParseSpace(space)
	if err != nil {
		return nil, &ConfigurationError{Space: space, Dimension: dim, cause: err}
	}
	if dim <= 0 {
		return nil, &ConfigurationError{Space: space, Dimension: dim}
	}

	o := applyOptions(optFns)
	id := uuid.NewString()

	ix := &Index{
		id:          id,
		space:       s,
		dim:         dim,
		normalize:   s.Normalized(),
		ef:          o.defaultEF,
		numThreads:  o.numThreads,
		store:       o.store,
		compression: o.compression,
		factory:     o.engineFactory,
		resources:   o.resources,
		logger:      o.logger.WithIndexID(id),
		metrics:     o.metricsCollector,
	}

	ix.logger.Debug("index created",
		"space", s.String(),
		"dimension", dim,
		"threads", ix.numThreads,
	)

	return ix, nil
}

// Init builds an empty engine. It fails with ErrAlreadyInitialized when the
// index already has one, leaving it untouched.
func (ix *Index) Init(maxElements, m, efConstruction int, seed int64) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return ErrClosed
	}
	if ix.engine != nil {
		return ErrAlreadyInitialized
	}

	reserve := resource.GraphBytes(maxElements, ix.dim, m)
	if err := ix.resources.AcquireMemory(reserve); err != nil {
		return fmt.Errorf("hnsw: init: %w", err)
	}

	engine, err := ix.factory.Create(graph.Config{
		Space:          ix.space,
		Dimension:      ix.dim,
		MaxElements:    maxElements,
		M:              m,
		EfConstruction: efConstruction,
		Seed:           seed,
	})
	if err != nil {
		ix.resources.ReleaseMemory(reserve)
		return fmt.Errorf("hnsw: init: %w", err)
	}
	engine.SetEf(ix.ef)

	ix.engine = engine
	ix.reserved = reserve
	ix.curL = 0
	ix.entryPointSet = false

	ix.logger.Debug("index initialized",
		"max_elements", maxElements,
		"m", m,
		"ef_construction", efConstruction,
		"seed", seed,
	)
	return nil
}

// Close releases the engine. Further calls return ErrClosed.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return nil
	}
	ix.closed = true

	if ix.engine == nil {
		return nil
	}
	err := ix.engine.Close()
	ix.engine = nil
	ix.resources.ReleaseMemory(ix.reserved)
	ix.reserved = 0
	return err
}

// ID returns the instance id attached to the index's log records.
func (ix *Index) ID() string { return ix.id }

// Space returns the similarity space.
func (ix *Index) Space() distance.Space { return ix.space }

// Dimension returns the vector length.
func (ix *Index) Dimension() int { return ix.dim }

// NumThreads returns the default worker count of batch calls.
func (ix *Index) NumThreads() int { return ix.numThreads }

// SetEf sets the search-time candidate list size. It is kept across Load.
func (ix *Index) SetEf(ef int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ef < 1 {
		ef = 1
	}
	ix.ef = ef
	if ix.engine != nil {
		ix.engine.SetEf(ef)
	}
}

// Ef returns the search-time candidate list size.
func (ix *Index) Ef() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.ef
}

// ElementCount returns the logical number of elements: the count after the
// last Init or Load plus the rows of every successful AddItems since.
func (ix *Index) ElementCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.curL
}

// IDs returns the ids stored in the engine.
func (ix *Index) IDs() (*roaring64.Bitmap, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := ix.ready(); err != nil {
		return nil, err
	}
	return ix.engine.Labels(), nil
}

// GetItems returns copies of the stored vectors for ids, in order. Cosine
// indexes return the normalized vectors.
func (ix *Index) GetItems(ids []uint64) ([][]float32, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := ix.ready(); err != nil {
		return nil, err
	}

	out := make([][]float32, len(ids))
	for i, id := range ids {
		v, err := ix.engine.Vector(id)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ready reports whether batch operations may run. The caller holds mu.
func (ix *Index) ready() error {
	if ix.closed {
		return ErrClosed
	}
	if ix.engine == nil {
		return ErrNotInitialized
	}
	return nil
}

// replaceEngine swaps in a loaded engine holding a reservation of reserved
// bytes. The caller holds mu exclusively.
func (ix *Index) replaceEngine(ctx context.Context, engine Engine, reserved int64) {
	if ix.engine != nil {
		ix.logger.WarnContext(ctx, "discarding existing engine on load",
			"element_count", ix.curL,
		)
		if err := ix.engine.Close(); err != nil && !errors.Is(err, graph.ErrClosed) {
			ix.logger.WarnContext(ctx, "closing replaced engine failed", "error", err)
		}
		ix.resources.ReleaseMemory(ix.reserved)
	}

	engine.SetEf(ix.ef)
	ix.engine = engine
	ix.reserved = reserved
	ix.curL = engine.ElementCount()
	ix.entryPointSet = ix.curL > 0
}
