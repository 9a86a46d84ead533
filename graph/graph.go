package graph

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/bits-and-blooms/bitset"
	"github.com/sameraamar/HNSW/distance"
	"github.com/sameraamar/HNSW/internal/queue"
)

const (
	// DefaultM is the default number of links per node.
	DefaultM = 16

	// DefaultEfConstruction is the default candidate list size while inserting.
	DefaultEfConstruction = 200

	// DefaultEf is the default candidate list size while searching.
	DefaultEf = 10

	minimumM = 2
)

var (
	// ErrCapacityExceeded is returned when an insert would exceed MaxElements.
	ErrCapacityExceeded = errors.New("graph: the number of elements exceeds the specified limit")

	// ErrDuplicateLabel is returned when a label is inserted twice.
	ErrDuplicateLabel = errors.New("graph: label already exists")

	// ErrLabelNotFound is returned when a label is not in the graph.
	ErrLabelNotFound = errors.New("graph: label not found")

	// ErrInvalidK is returned when a search asks for fewer than one neighbor.
	ErrInvalidK = errors.New("graph: k must be positive")

	// ErrClosed is returned by operations on a closed graph.
	ErrClosed = errors.New("graph: closed")
)

// ErrDimensionMismatch indicates a vector whose length differs from the graph dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("graph: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Config holds the construction parameters of a graph.
type Config struct {
	Space          distance.Space
	Dimension      int
	MaxElements    int
	M              int
	EfConstruction int
	Seed           int64
}

// Result is one neighbor produced by SearchKnn.
type Result struct {
	Distance float32
	Label    uint64
}

type node struct {
	mu     sync.RWMutex // guards links
	label  uint64
	level  int
	vector []float32
	links  [][]uint32
}

// Graph is a concurrent HNSW graph over float32 vectors.
type Graph struct {
	space          distance.Space
	dist           distance.Func
	dim            int
	capacity       int
	m              int
	maxM           int
	maxM0          int
	efConstruction int
	levelMult      float64
	seed           int64
	ef             atomic.Int64

	rngMu sync.Mutex
	rng   *rand.Rand

	// nodes has a fixed length of capacity; slots below count are populated.
	nodes   []*node
	count   atomic.Int64
	labelMu sync.RWMutex
	labels  map[uint64]uint32

	// promoteMu is held for the whole insert of a node that raises maxLevel.
	promoteMu  sync.Mutex
	epMu       sync.RWMutex
	entryPoint int64
	maxLevel   int

	ctxPool sync.Pool
	closed  atomic.Bool
}

type searchContext struct {
	visited    *bitset.BitSet
	candidates *queue.Queue
	top        *queue.Queue
	links      []uint32
}

// New creates an empty graph.
func New(cfg Config) (*Graph, error) {
	if !cfg.Space.Valid() {
		return nil, fmt.Errorf("graph: invalid space %v", cfg.Space)
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("graph: invalid dimension %d", cfg.Dimension)
	}
	if cfg.MaxElements < 0 {
		return nil, fmt.Errorf("graph: invalid max elements %d", cfg.MaxElements)
	}
	if cfg.M < minimumM {
		// M == 1 would divide by log(1) when computing the level multiplier.
		cfg.M = minimumM
	}
	if cfg.M > maxLinkM {
		return nil, fmt.Errorf("graph: M %d exceeds %d", cfg.M, maxLinkM)
	}
	if cfg.EfConstruction < cfg.M {
		cfg.EfConstruction = cfg.M
	}
	if cfg.EfConstruction > maxLinksPerLevel {
		return nil, fmt.Errorf("graph: ef construction %d exceeds %d", cfg.EfConstruction, maxLinksPerLevel)
	}

	g := &Graph{
		space:          cfg.Space,
		dist:           cfg.Space.Func(),
		dim:            cfg.Dimension,
		capacity:       cfg.MaxElements,
		m:              cfg.M,
		maxM:           cfg.M,
		maxM0:          2 * cfg.M,
		efConstruction: cfg.EfConstruction,
		levelMult:      1 / math.Log(float64(cfg.M)),
		seed:           cfg.Seed,
		rng:            rand.New(rand.NewSource(cfg.Seed)),
		nodes:          make([]*node, cfg.MaxElements),
		labels:         make(map[uint64]uint32, cfg.MaxElements),
		entryPoint:     -1,
		maxLevel:       -1,
	}
	g.ef.Store(DefaultEf)
	g.ctxPool.New = func() any {
		return &searchContext{
			visited:    bitset.New(uint(g.capacity)),
			candidates: queue.NewMin(g.efConstruction),
			top:        queue.NewMax(g.efConstruction + 1),
			links:      make([]uint32, 0, g.maxM0+1),
		}
	}

	return g, nil
}

// Space returns the similarity space of the graph.
func (g *Graph) Space() distance.Space { return g.space }

// Dimension returns the vector dimension.
func (g *Graph) Dimension() int { return g.dim }

// Capacity returns the maximum number of elements.
func (g *Graph) Capacity() int { return g.capacity }

// M returns the link count parameter.
func (g *Graph) M() int { return g.m }

// EfConstruction returns the insert-time candidate list size.
func (g *Graph) EfConstruction() int { return g.efConstruction }

// Ef returns the search-time candidate list size.
func (g *Graph) Ef() int { return int(g.ef.Load()) }

// SetEf sets the search-time candidate list size.
func (g *Graph) SetEf(ef int) {
	if ef < 1 {
		ef = 1
	}
	g.ef.Store(int64(ef))
}

// ElementCount returns the number of inserted elements.
func (g *Graph) ElementCount() int { return int(g.count.Load()) }

// MaxLevel returns the top layer of the graph, or -1 when empty.
func (g *Graph) MaxLevel() int {
	_, level := g.entry()
	return level
}

// Close releases the graph storage. Further calls return ErrClosed.
func (g *Graph) Close() error {
	if g.closed.Swap(true) {
		return nil
	}
	g.labelMu.Lock()
	defer g.labelMu.Unlock()
	g.promoteMu.Lock()
	defer g.promoteMu.Unlock()

	g.nodes = nil
	g.labels = nil
	return nil
}

// AddPoint inserts vector under label. The vector is copied.
func (g *Graph) AddPoint(vector []float32, label uint64) error {
	if g.closed.Load() {
		return ErrClosed
	}
	if len(vector) != g.dim {
		return &ErrDimensionMismatch{Expected: g.dim, Actual: len(vector)}
	}

	n := &node{
		label:  label,
		level:  g.randomLevel(),
		vector: slices.Clone(vector),
	}
	n.links = make([][]uint32, n.level+1)

	id, err := g.claim(n)
	if err != nil {
		return err
	}

	ep, maxLevel := g.entry()
	if n.level > maxLevel {
		g.promoteMu.Lock()
		defer g.promoteMu.Unlock()
		ep, maxLevel = g.entry()
	}

	if ep < 0 {
		g.setEntry(id, n.level)
		return nil
	}

	ctx := g.getContext()
	defer g.ctxPool.Put(ctx)

	cur := uint32(ep)
	curDist := g.dist(n.vector, g.nodes[cur].vector)
	for level := maxLevel; level > n.level; level-- {
		cur, curDist = g.greedy(ctx, n.vector, cur, curDist, level)
	}

	for level := min(n.level, maxLevel); level >= 0; level-- {
		g.searchLayer(ctx, n.vector, cur, level, g.efConstruction)
		cur = g.connect(ctx, id, n, level)
	}

	if n.level > maxLevel {
		g.setEntry(id, n.level)
	}
	return nil
}

// Vector returns a copy of the vector stored under label.
func (g *Graph) Vector(label uint64) ([]float32, error) {
	g.labelMu.RLock()
	defer g.labelMu.RUnlock()

	if g.closed.Load() {
		return nil, ErrClosed
	}
	id, ok := g.labels[label]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrLabelNotFound, label)
	}
	return slices.Clone(g.nodes[id].vector), nil
}

// Labels returns the set of labels in the graph.
func (g *Graph) Labels() *roaring64.Bitmap {
	g.labelMu.RLock()
	defer g.labelMu.RUnlock()

	bm := roaring64.New()
	for label := range g.labels {
		bm.Add(label)
	}
	return bm
}

// claim reserves a slot for n and publishes it under its label.
func (g *Graph) claim(n *node) (uint32, error) {
	g.labelMu.Lock()
	defer g.labelMu.Unlock()

	if g.closed.Load() {
		return 0, ErrClosed
	}
	if _, ok := g.labels[n.label]; ok {
		return 0, fmt.Errorf("%w: %d", ErrDuplicateLabel, n.label)
	}
	count := g.count.Load()
	if count >= int64(g.capacity) {
		return 0, ErrCapacityExceeded
	}

	id := uint32(count)
	g.nodes[id] = n
	g.labels[n.label] = id
	g.count.Store(count + 1)
	return id, nil
}

func (g *Graph) randomLevel() int {
	g.rngMu.Lock()
	r := g.rng.Float64()
	g.rngMu.Unlock()
	return int(-math.Log(1-r) * g.levelMult)
}

func (g *Graph) entry() (int64, int) {
	g.epMu.RLock()
	defer g.epMu.RUnlock()
	return g.entryPoint, g.maxLevel
}

func (g *Graph) setEntry(id uint32, level int) {
	g.epMu.Lock()
	g.entryPoint = int64(id)
	g.maxLevel = level
	g.epMu.Unlock()
}

func (g *Graph) getContext() *searchContext {
	return g.ctxPool.Get().(*searchContext)
}

// linksOf copies the links of id at level into ctx.links.
func (g *Graph) linksOf(ctx *searchContext, id uint32, level int) []uint32 {
	n := g.nodes[id]
	n.mu.RLock()
	ctx.links = ctx.links[:0]
	if level < len(n.links) {
		ctx.links = append(ctx.links, n.links[level]...)
	}
	n.mu.RUnlock()
	return ctx.links
}

// connect links the freshly searched node to its selected neighbors at level
// and returns the closest of them as the entry point for the next level.
func (g *Graph) connect(ctx *searchContext, id uint32, n *node, level int) uint32 {
	selected := g.selectNeighbors(ctx.top, g.m, id)

	ids := make([]uint32, len(selected))
	for i, s := range selected {
		ids[i] = s.ID
	}
	n.mu.Lock()
	n.links[level] = ids
	n.mu.Unlock()

	maxM := g.maxM
	if level == 0 {
		maxM = g.maxM0
	}

	for _, s := range selected {
		nb := g.nodes[s.ID]
		nb.mu.Lock()
		if level < len(nb.links) {
			links := nb.links[level]
			if len(links) < maxM {
				nb.links[level] = append(links, id)
			} else {
				nb.links[level] = g.prune(nb, links, queue.Item{ID: id, Distance: s.Distance}, maxM)
			}
		}
		nb.mu.Unlock()
	}

	return selected[0].ID
}

// prune picks the maxM best links of nb among its current links and extra.
// The caller holds nb.mu.
func (g *Graph) prune(nb *node, links []uint32, extra queue.Item, maxM int) []uint32 {
	candidates := queue.NewMax(len(links) + 1)
	candidates.Push(extra)
	for _, l := range links {
		candidates.Push(queue.Item{ID: l, Distance: g.dist(nb.vector, g.nodes[l].vector)})
	}

	kept := g.selectNeighbors(candidates, maxM, math.MaxUint32)
	out := make([]uint32, len(kept))
	for i, k := range kept {
		out[i] = k.ID
	}
	return out
}

// selectNeighbors drains candidates and keeps at most m of them using the
// HNSW diversity heuristic: a candidate is kept only if it is closer to the
// query than to every candidate kept before it. The result is nearest first.
func (g *Graph) selectNeighbors(candidates *queue.Queue, m int, self uint32) []queue.Item {
	closest := queue.NewMin(candidates.Len())
	for candidates.Len() > 0 {
		item, _ := candidates.Pop()
		if item.ID != self {
			closest.Push(item)
		}
	}

	selected := make([]queue.Item, 0, m)
	if closest.Len() <= m {
		for closest.Len() > 0 {
			item, _ := closest.Pop()
			selected = append(selected, item)
		}
		return selected
	}

	for closest.Len() > 0 && len(selected) < m {
		item, _ := closest.Pop()
		candidate := g.nodes[item.ID].vector

		keep := true
		for _, s := range selected {
			if g.dist(candidate, g.nodes[s.ID].vector) < item.Distance {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, item)
		}
	}
	return selected
}
