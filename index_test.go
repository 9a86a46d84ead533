package hnsw

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/sameraamar/HNSW/blobstore"
	"github.com/sameraamar/HNSW/distance"
	"github.com/sameraamar/HNSW/graph"
	"github.com/sameraamar/HNSW/internal/parallel"
	"github.com/sameraamar/HNSW/resource"
	"github.com/sameraamar/HNSW/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T, space string, dim, capacity int, opts ...Option) *Index {
	t.Helper()
	idx, err := New(space, dim, opts...)
	require.NoError(t, err)
	require.NoError(t, idx.Init(capacity, 16, 200, 100))
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestNewConfigurationError(t *testing.T) {
	_, err := New("hamming", 4)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "hamming", cfgErr.Space)

	var unknown *distance.ErrUnknownSpace
	require.ErrorAs(t, err, &unknown)

	_, err = New("l2", 0)
	require.ErrorAs(t, err, &cfgErr)
}

func TestEndToEndL2(t *testing.T) {
	idx := newIndex(t, "l2", 4, 100)

	vectors := make([]float32, 0, 40)
	for i := 0; i < 10; i++ {
		f := float32(i)
		vectors = append(vectors, f, f*0.5, -f, f*f)
	}
	require.NoError(t, idx.AddItems(vectors, testutil.SequentialIDs(0, 10), 10, 0))
	assert.Equal(t, 10, idx.ElementCount())

	results, err := idx.Search(vectors[5*4:6*4], 1, 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(0), results[0].ID)
	assert.Equal(t, 1, results[0].Count)
	assert.Equal(t, uint64(5), results[0].Neighbors[0].ID)
	assert.InDelta(t, 0, results[0].Neighbors[0].Distance, 1e-6)
}

func TestCosineSelfQuery(t *testing.T) {
	const dim = 16
	rng := testutil.NewRNG(1)
	vectors := testutil.Flatten(rng.UniformRangeVectors(200, dim))

	idx := newIndex(t, "cosine", dim, 200)
	require.NoError(t, idx.AddItems(vectors, nil, 200, 4))

	// A scaled copy has the same direction.
	query := make([]float32, dim)
	for i, v := range vectors[42*dim : 43*dim] {
		query[i] = v * 3
	}

	flat, err := idx.SearchFlat(query, 1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), flat.IDs[0])
	// distance = 1 - cosine similarity
	assert.InDelta(t, 0, flat.Distances[0], 1e-5)
}

func TestSearchIsNearestFirst(t *testing.T) {
	idx := newIndex(t, "l2", 1, 10)
	require.NoError(t, idx.AddItems([]float32{0, 1, 2, 3, 4}, []uint64{10, 11, 12, 13, 14}, 5, 1))

	results, err := idx.Search([]float32{0, 4}, 2, 3, 1)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, []Neighbor{{10, 0}, {11, 1}, {12, 4}}, results[0].Neighbors)
	assert.Equal(t, []Neighbor{{14, 0}, {13, 1}, {12, 4}}, results[1].Neighbors)
	assert.Equal(t, uint64(1), results[1].ID)

	flat, err := idx.SearchFlat([]float32{0, 4}, 2, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 11, 12, 14, 13, 12}, flat.IDs)
}

func TestStrictK(t *testing.T) {
	for _, space := range []string{"l2", "cosine"} {
		t.Run(space, func(t *testing.T) {
			idx := newIndex(t, space, 2, 10)
			require.NoError(t, idx.AddItems([]float32{1, 0, 0, 1, 1, 1}, nil, 3, 0))

			results, err := idx.Search([]float32{1, 0}, 1, 5, 0)
			var card *ResultCardinalityError
			require.ErrorAs(t, err, &card)
			assert.Equal(t, 0, card.Row)
			assert.Equal(t, 5, card.Want)
			assert.Equal(t, 3, card.Got)
			assert.Nil(t, results)
		})
	}
}

func TestSearchValidation(t *testing.T) {
	idx := newIndex(t, "l2", 2, 10)
	require.NoError(t, idx.AddItems([]float32{1, 0}, nil, 1, 0))

	_, err := idx.Search([]float32{1, 0}, 1, 0, 0)
	require.ErrorIs(t, err, ErrInvalidK)

	_, err = idx.Search([]float32{1, 0, 1}, 1, 1, 0)
	require.ErrorIs(t, err, ErrVectorCountMismatch)

	results, err := idx.Search(nil, 0, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCountConservation(t *testing.T) {
	const dim = 8
	rng := testutil.NewRNG(3)
	idx := newIndex(t, "l2", dim, 1000)

	first := rng.UniformVectors(300, dim)
	require.NoError(t, idx.AddItems(testutil.Flatten(first), nil, 300, 4))
	require.Equal(t, 300, idx.ElementCount())

	second := rng.UniformVectors(200, dim)
	ids := testutil.SequentialIDs(10_000, 200)
	require.NoError(t, idx.AddItems(testutil.Flatten(second), ids, 200, 4))
	assert.Equal(t, 500, idx.ElementCount())

	idx.SetEf(64)
	results, err := idx.Search(testutil.Flatten(second), 200, 1, 4)
	require.NoError(t, err)
	misses := 0
	for i, r := range results {
		if r.Neighbors[0].ID != ids[i] {
			misses++
		}
	}
	assert.LessOrEqual(t, misses, 2)

	labels, err := idx.IDs()
	require.NoError(t, err)
	assert.Equal(t, uint64(500), labels.GetCardinality())
	assert.True(t, labels.Contains(299))
	assert.True(t, labels.Contains(10_199))
}

func TestFailedInsertKeepsCount(t *testing.T) {
	idx := newIndex(t, "l2", 2, 10)
	require.NoError(t, idx.AddItems([]float32{1, 1, 2, 2}, []uint64{1, 2}, 2, 1))

	err := idx.AddItems([]float32{3, 3, 4, 4}, []uint64{3, 1}, 2, 1)
	require.ErrorIs(t, err, graph.ErrDuplicateLabel)
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 1, rowErr.Row)

	assert.Equal(t, 2, idx.ElementCount())
	// Row 0 of the failed batch stays in the engine.
	items, err := idx.GetItems([]uint64{3})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3, 3}}, items)
}

func TestAddItemsValidation(t *testing.T) {
	idx := newIndex(t, "l2", 2, 10)

	require.ErrorIs(t, idx.AddItems([]float32{1, 2, 3}, nil, 2, 0), ErrVectorCountMismatch)
	require.ErrorIs(t, idx.AddItems([]float32{1, 2}, []uint64{1, 2}, 1, 0), ErrIDCountMismatch)
	require.NoError(t, idx.AddItems(nil, nil, 0, 0))
	assert.Equal(t, 0, idx.ElementCount())
}

func TestLifecycle(t *testing.T) {
	idx, err := New("ip", 3)
	require.NoError(t, err)

	require.ErrorIs(t, idx.AddItems([]float32{1, 2, 3}, nil, 1, 0), ErrNotInitialized)
	_, err = idx.Search([]float32{1, 2, 3}, 1, 1, 0)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.ErrorIs(t, idx.Save(context.Background(), "x"), ErrNotInitialized)

	require.NoError(t, idx.Init(10, 16, 200, 1))
	require.NoError(t, idx.AddItems([]float32{1, 2, 3}, nil, 1, 0))

	require.ErrorIs(t, idx.Init(10, 16, 200, 1), ErrAlreadyInitialized)
	assert.Equal(t, 1, idx.ElementCount(), "double init leaves state untouched")

	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())
	require.ErrorIs(t, idx.AddItems([]float32{1, 2, 3}, nil, 1, 0), ErrClosed)
	require.ErrorIs(t, idx.Init(10, 16, 200, 1), ErrClosed)
}

func TestGetItems(t *testing.T) {
	idx := newIndex(t, "cosine", 2, 10)
	require.NoError(t, idx.AddItems([]float32{3, 4, 0, 2}, []uint64{7, 8}, 2, 0))

	items, err := idx.GetItems([]uint64{8, 7})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0, 1}, items[0], 1e-6)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, items[1], 1e-6)

	_, err = idx.GetItems([]uint64{9})
	require.ErrorIs(t, err, graph.ErrLabelNotFound)
}

func TestSaveLoad(t *testing.T) {
	const dim = 8
	rng := testutil.NewRNG(11)
	vectors := testutil.Flatten(rng.UniformVectors(500, dim))
	queries := testutil.Flatten(rng.UniformVectors(20, dim))

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			ctx := context.Background()
			store := blobstore.NewMemoryStore()

			src := newIndex(t, "l2", dim, 500, WithBlobStore(store), WithCompression(c))
			require.NoError(t, src.AddItems(vectors, nil, 500, 4))
			src.SetEf(40)
			require.NoError(t, src.Save(ctx, "idx.hnsw"))

			blob, err := store.Open(ctx, "idx.hnsw")
			require.NoError(t, err)
			header := make([]byte, 5)
			_, err = io.ReadFull(blob, header)
			require.NoError(t, err)
			assert.Equal(t, []byte{'H', 'N', 'S', 'X', byte(c)}, header)

			dst, err := New("l2", dim, WithBlobStore(store), WithDefaultEF(40))
			require.NoError(t, err)
			defer dst.Close()
			require.NoError(t, dst.Load(ctx, "idx.hnsw", 100))
			assert.Equal(t, 500, dst.ElementCount())
			assert.Equal(t, 500, dst.Info().MaxElements)

			want, err := src.SearchFlat(queries, 20, 5, 1)
			require.NoError(t, err)
			got, err := dst.SearchFlat(queries, 20, 5, 1)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			// The loaded engine is full.
			more := testutil.Flatten(rng.UniformVectors(10, dim))
			require.ErrorIs(t, dst.AddItems(more, nil, 10, 0), graph.ErrCapacityExceeded)
		})
	}
}

func TestSaveLoadLocalStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := blobstore.NewLocalStore(dir)

	src := newIndex(t, "ip", 2, 10, WithBlobStore(store), WithCompression(CompressionZstd))
	require.NoError(t, src.AddItems([]float32{1, 0, 0, 1}, []uint64{5, 6}, 2, 0))
	require.NoError(t, src.Save(ctx, "nested/idx.hnsw"))

	dst, err := New("ip", 2, WithBlobStore(store))
	require.NoError(t, err)
	defer dst.Close()
	require.NoError(t, dst.Load(ctx, "nested/idx.hnsw", 20))

	assert.Equal(t, 2, dst.ElementCount())
	assert.Equal(t, 20, dst.Info().MaxElements)
	require.NoError(t, dst.AddItems([]float32{1, 1}, nil, 1, 0))
	assert.Equal(t, 3, dst.ElementCount())
}

func TestLoadReplacesEngineWithWarning(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	src := newIndex(t, "l2", 2, 10, WithBlobStore(store))
	require.NoError(t, src.AddItems([]float32{1, 1, 2, 2, 3, 3}, nil, 3, 0))
	require.NoError(t, src.Save(ctx, "a"))

	var logs bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))

	dst := newIndex(t, "l2", 2, 10, WithBlobStore(store), WithLogger(logger))
	require.NoError(t, dst.AddItems([]float32{9, 9}, nil, 1, 0))
	require.NoError(t, dst.Load(ctx, "a", 10))

	assert.Equal(t, 3, dst.ElementCount())
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "discarding existing engine")
	assert.Contains(t, logs.String(), "index_id="+dst.ID())

	// Label 0 now holds the saved vector, not the discarded one.
	items, err := dst.GetItems([]uint64{0})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}}, items)
	labels, err := dst.IDs()
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 2}, labels.ToArray())
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	idx, err := New("l2", 2, WithBlobStore(store))
	require.NoError(t, err)
	defer idx.Close()

	require.ErrorIs(t, idx.Load(ctx, "missing", 10), blobstore.ErrNotFound)

	store.Put("garbage", []byte("definitely not an index"))
	require.ErrorIs(t, idx.Load(ctx, "garbage", 10), ErrNotIndexFile)

	store.Put("short", []byte("HN"))
	require.ErrorIs(t, idx.Load(ctx, "short", 10), ErrNotIndexFile)

	other := newIndex(t, "l2", 3, 10, WithBlobStore(store))
	require.NoError(t, other.AddItems([]float32{1, 2, 3}, nil, 1, 0))
	require.NoError(t, other.Save(ctx, "dim3"))
	require.ErrorIs(t, idx.Load(ctx, "dim3", 10), graph.ErrIncompatible)

	assert.False(t, idx.Info().Initialized)
}

func TestSetEfSurvivesLoad(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	src := newIndex(t, "l2", 2, 10, WithBlobStore(store))
	require.NoError(t, src.AddItems([]float32{1, 1}, nil, 1, 0))
	require.NoError(t, src.Save(ctx, "a"))

	idx, err := New("l2", 2, WithBlobStore(store))
	require.NoError(t, err)
	defer idx.Close()
	assert.Equal(t, graph.DefaultEf, idx.Ef())

	idx.SetEf(123)
	require.NoError(t, idx.Load(ctx, "a", 10))
	assert.Equal(t, 123, idx.Ef())
	assert.Equal(t, 123, idx.Info().Ef)
}

func TestPrintInfo(t *testing.T) {
	idx, err := New("cosine", 4, WithNumThreads(3))
	require.NoError(t, err)
	defer idx.Close()

	var buf bytes.Buffer
	require.NoError(t, idx.PrintInfo(&buf, "before"))
	assert.Contains(t, buf.String(), "engine: not initialized")

	require.NoError(t, idx.Init(50, 8, 100, 1))
	require.NoError(t, idx.AddItems([]float32{1, 0, 0, 0}, nil, 1, 0))

	buf.Reset()
	require.NoError(t, idx.PrintInfo(&buf, "products"))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "products\n"))
	assert.Contains(t, out, "space: cosine")
	assert.Contains(t, out, "dimension: 4")
	assert.Contains(t, out, "elements: 1")
	assert.Contains(t, out, "threads: 3")
	assert.Contains(t, out, "max elements: 50")
	assert.Contains(t, out, "M: 8")
}

func TestMetrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	idx := newIndex(t, "l2", 2, 10, WithMetricsCollector(metrics), WithBlobStore(blobstore.NewMemoryStore()))

	require.NoError(t, idx.AddItems([]float32{1, 1, 2, 2}, nil, 2, 0))
	require.Error(t, idx.AddItems([]float32{3, 3}, []uint64{0}, 1, 0))
	_, err := idx.Search([]float32{1, 1}, 1, 2, 0)
	require.NoError(t, err)
	_, err = idx.Search([]float32{1, 1}, 1, 5, 0)
	require.Error(t, err)
	require.NoError(t, idx.Save(context.Background(), "m"))
	require.NoError(t, idx.Load(context.Background(), "m", 10))

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.BatchInsertCount)
	assert.Equal(t, int64(1), stats.BatchInsertErrors)
	assert.Equal(t, int64(2), stats.BatchInsertRows)
	assert.Equal(t, int64(2), stats.SearchCount)
	assert.Equal(t, int64(1), stats.SearchErrors)
	assert.Equal(t, int64(1), stats.SearchRows)
	assert.Equal(t, int64(1), stats.SaveCount)
	assert.Equal(t, int64(1), stats.LoadCount)
}

// fakeEngine records the order and overlap of engine calls.
type fakeEngine struct {
	mu          sync.Mutex
	events      []string
	inflight    int
	maxInflight int
	delay       time.Duration
	failOn      map[uint64]error
	points      map[uint64][]float32
	ef          int
	closed      bool
}

func newFakeEngine(delay time.Duration) *fakeEngine {
	return &fakeEngine{delay: delay, points: map[uint64][]float32{}, failOn: map[uint64]error{}}
}

func (f *fakeEngine) AddPoint(vector []float32, label uint64) error {
	f.mu.Lock()
	f.events = append(f.events, fmt.Sprintf("start:%d", label))
	f.inflight++
	f.maxInflight = max(f.maxInflight, f.inflight)
	f.mu.Unlock()

	time.Sleep(f.delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight--
	f.events = append(f.events, fmt.Sprintf("end:%d", label))
	if err := f.failOn[label]; err != nil {
		return err
	}
	f.points[label] = append([]float32(nil), vector...)
	return nil
}

func (f *fakeEngine) SearchKnn(query []float32, k int) ([]graph.Result, error) {
	f.mu.Lock()
	f.inflight++
	f.maxInflight = max(f.maxInflight, f.inflight)
	f.mu.Unlock()

	time.Sleep(f.delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight--

	results := make([]graph.Result, 0, len(f.points))
	for label, v := range f.points {
		results = append(results, graph.Result{Label: label, Distance: distance.SquaredL2(query, v)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	results = results[:min(k, len(results))]
	// farthest first
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

func (f *fakeEngine) SetEf(ef int) { f.ef = ef }

func (f *fakeEngine) ElementCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points)
}

func (f *fakeEngine) Vector(label uint64) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.points[label]
	if !ok {
		return nil, graph.ErrLabelNotFound
	}
	return v, nil
}

func (f *fakeEngine) Labels() *roaring64.Bitmap {
	f.mu.Lock()
	defer f.mu.Unlock()
	bm := roaring64.New()
	for label := range f.points {
		bm.Add(label)
	}
	return bm
}

func (f *fakeEngine) Save(io.Writer) error { return errors.New("fake engine cannot save") }

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

type fakeFactory struct{ engine *fakeEngine }

func (f fakeFactory) Create(graph.Config) (Engine, error) { return f.engine, nil }

func (f fakeFactory) Load(io.Reader, distance.Space, int, int) (Engine, error) {
	return nil, errors.New("fake factory cannot load")
}

func TestBootstrapBeforeParallel(t *testing.T) {
	engine := newFakeEngine(2 * time.Millisecond)
	idx := newIndex(t, "l2", 2, 100, WithEngineFactory(fakeFactory{engine}))

	rows := 100
	vectors := make([]float32, rows*2)
	require.NoError(t, idx.AddItems(vectors, nil, rows, 4))

	// Row 0 starts and ends before anything else starts.
	require.GreaterOrEqual(t, len(engine.events), 2)
	assert.Equal(t, "start:0", engine.events[0])
	assert.Equal(t, "end:0", engine.events[1])
	assert.Greater(t, engine.maxInflight, 1, "rest of the batch runs in parallel")

	// A second batch needs no bootstrap.
	engine.events = nil
	require.NoError(t, idx.AddItems(make([]float32, 2*rows), nil, rows, 4))
	assert.Equal(t, 2*rows, idx.ElementCount())
}

func TestSmallBatchRunsSequentially(t *testing.T) {
	engine := newFakeEngine(time.Millisecond)
	idx := newIndex(t, "l2", 2, 100, WithEngineFactory(fakeFactory{engine}))

	const threads = 4
	rows := threads * 4
	require.Equal(t, 1, parallel.Threads(threads, 0, rows))

	require.NoError(t, idx.AddItems(make([]float32, rows*2), nil, rows, threads))
	assert.Equal(t, 1, engine.maxInflight)

	// Events are strictly start/end pairs in row order.
	for row := 0; row < rows; row++ {
		assert.Equal(t, fmt.Sprintf("start:%d", row), engine.events[2*row])
		assert.Equal(t, fmt.Sprintf("end:%d", row), engine.events[2*row+1])
	}

	engine.maxInflight = 0
	_, err := idx.Search(make([]float32, rows*2), rows, 1, threads)
	require.NoError(t, err)
	assert.Equal(t, 1, engine.maxInflight, "small search batch runs on one worker")

	engine.maxInflight = 0
	_, err = idx.Search(make([]float32, 100*2), 100, 1, threads)
	require.NoError(t, err)
	assert.Greater(t, engine.maxInflight, 1, "large search batch runs in parallel")
}

func TestLoadOverMemoryLimit(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	src := newIndex(t, "l2", 4, 10, WithBlobStore(store))
	require.NoError(t, src.AddItems([]float32{1, 0, 0, 0, 0, 1, 0, 0}, []uint64{1, 2}, 2, 0))
	require.NoError(t, src.Save(ctx, "x"))

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	dst := newIndex(t, "l2", 4, 10, WithBlobStore(store), WithResourceController(rc))
	require.NoError(t, dst.AddItems([]float32{0, 0, 1, 0}, []uint64{7}, 1, 0))
	used := rc.MemoryUsage()

	// The hint alone exceeds the budget; nothing is allocated for it.
	require.ErrorIs(t, dst.Load(ctx, "x", 1<<30), resource.ErrMemoryLimitExceeded)
	assert.Equal(t, used, rc.MemoryUsage())
	assert.Equal(t, 1, dst.ElementCount())
	got, err := dst.GetItems([]uint64{7})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 0, 1, 0}}, got)

	require.NoError(t, dst.Load(ctx, "x", 10))
	assert.Equal(t, 2, dst.ElementCount())
	assert.Equal(t, resource.GraphBytes(10, 4, 16), rc.MemoryUsage())
}

func TestLoadFailureReleasesReservation(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	src := newIndex(t, "l2", 4, 10, WithBlobStore(store))
	require.NoError(t, src.AddItems([]float32{1, 0, 0, 0}, nil, 1, 0))
	require.NoError(t, src.Save(ctx, "x"))

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	dst, err := New("l2", 3, WithBlobStore(store), WithResourceController(rc))
	require.NoError(t, err)
	defer dst.Close()

	require.ErrorIs(t, dst.Load(ctx, "x", 10), graph.ErrIncompatible)
	assert.Zero(t, rc.MemoryUsage())
}

func TestWorkerErrorIsReturnedAfterJoin(t *testing.T) {
	engine := newFakeEngine(time.Millisecond)
	boom := errors.New("engine exploded")
	engine.failOn[37] = boom
	idx := newIndex(t, "l2", 2, 100, WithEngineFactory(fakeFactory{engine}))

	err := idx.AddItems(make([]float32, 200), nil, 100, 4)
	require.ErrorIs(t, err, boom)

	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 37, rowErr.Row)

	assert.Equal(t, 0, engine.inflight, "all workers joined")
	assert.Equal(t, 0, idx.ElementCount())
	assert.Less(t, engine.ElementCount(), 100)
}

func TestCosineNormalizesBeforeEngine(t *testing.T) {
	engine := newFakeEngine(0)
	idx := newIndex(t, "cosine", 2, 100, WithEngineFactory(fakeFactory{engine}))

	rows := 64
	vectors := make([]float32, 0, rows*2)
	for i := 0; i < rows; i++ {
		vectors = append(vectors, float32(i+1), float32(2*(i+1)))
	}
	original := append([]float32(nil), vectors...)
	require.NoError(t, idx.AddItems(vectors, nil, rows, 4))

	assert.Equal(t, original, vectors, "caller data is untouched")
	for label, v := range engine.points {
		assert.InDelta(t, 1, distance.Norm(v), 1e-5, "label %d", label)
	}
}

func TestResourceReservations(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{MaxConcurrentBatches: 1, IOLimitBytesPerSec: 1 << 30})
	store := blobstore.NewMemoryStore()

	idx := newIndex(t, "l2", 4, 100, WithResourceController(rc), WithBlobStore(store))
	assert.Equal(t, resource.GraphBytes(100, 4, 16), rc.MemoryUsage())

	require.NoError(t, idx.AddItems(make([]float32, 8), []uint64{1, 2}, 2, 0))
	assert.True(t, rc.TryAcquireBatch(), "batch slot is returned")
	rc.ReleaseBatch()

	require.NoError(t, idx.Save(ctx, "r"))
	require.NoError(t, idx.Load(ctx, "r", 300))
	assert.Equal(t, resource.GraphBytes(300, 4, 16), rc.MemoryUsage())

	require.NoError(t, idx.Close())
	assert.Zero(t, rc.MemoryUsage())
}

func TestInitOverMemoryLimit(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1024})
	idx, err := New("l2", 4, WithResourceController(rc))
	require.NoError(t, err)
	defer idx.Close()

	require.ErrorIs(t, idx.Init(1000, 16, 200, 1), resource.ErrMemoryLimitExceeded)
	assert.False(t, idx.Info().Initialized)
	assert.Zero(t, rc.MemoryUsage())
}

func TestInspect(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	idx := newIndex(t, "ip", 3, 40, WithBlobStore(store), WithCompression(CompressionZstd))
	require.NoError(t, idx.AddItems([]float32{1, 0, 0, 0, 1, 0}, nil, 2, 0))
	require.NoError(t, idx.Save(ctx, "i"))

	params, err := Inspect(ctx, store, "i")
	require.NoError(t, err)
	assert.Equal(t, distance.SpaceIP, params.Space)
	assert.Equal(t, 3, params.Dimension)
	assert.Equal(t, 2, params.Count)
	assert.Equal(t, 40, params.Capacity)

	_, err = Inspect(ctx, store, "nope")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestDebugLowersConfiguredLogger(t *testing.T) {
	var logs bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))

	quiet, err := New("l2", 2, WithLogger(logger))
	require.NoError(t, err)
	defer quiet.Close()
	assert.NotContains(t, logs.String(), "index created")

	loud, err := New("l2", 2, WithLogger(logger), WithDebug(true))
	require.NoError(t, err)
	defer loud.Close()
	assert.Contains(t, logs.String(), "index created")
	assert.Contains(t, logs.String(), "index_id="+loud.ID())
}
