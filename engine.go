package hnsw

import (
	"io"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/sameraamar/HNSW/distance"
	"github.com/sameraamar/HNSW/graph"
)

// Engine is the graph index an Index drives. AddPoint and SearchKnn must be
// safe for concurrent use once the first point has been inserted.
type Engine interface {
	// AddPoint inserts a copy of vector under label.
	AddPoint(vector []float32, label uint64) error
	// SearchKnn returns up to k neighbors, farthest first.
	SearchKnn(query []float32, k int) ([]graph.Result, error)
	SetEf(ef int)
	ElementCount() int
	// Vector returns a copy of the stored vector for label.
	Vector(label uint64) ([]float32, error)
	Labels() *roaring64.Bitmap
	Save(w io.Writer) error
	Close() error
}

// EngineFactory creates and loads engines.
type EngineFactory interface {
	Create(cfg graph.Config) (Engine, error)
	Load(r io.Reader, space distance.Space, dimension, maxElements int) (Engine, error)
}

// engineStats is implemented by engines that can report their graph parameters.
type engineStats interface {
	Capacity() int
	M() int
	EfConstruction() int
	Ef() int
	MaxLevel() int
}

// GraphFactory builds engines from the graph package.
type GraphFactory struct{}

// Create implements EngineFactory.
func (GraphFactory) Create(cfg graph.Config) (Engine, error) {
	g, err := graph.New(cfg)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Load implements EngineFactory.
func (GraphFactory) Load(r io.Reader, space distance.Space, dimension, maxElements int) (Engine, error) {
	g, err := graph.Load(r, space, dimension, maxElements)
	if err != nil {
		return nil, err
	}
	return g, nil
}

var (
	_ Engine      = (*graph.Graph)(nil)
	_ engineStats = (*graph.Graph)(nil)
)
