// Package exact implements exhaustive k-nearest-neighbor search. It produces
// the ground truth that approximate results are scored against.
package exact

import (
	"errors"
	"fmt"

	"github.com/sameraamar/HNSW/distance"
	"github.com/sameraamar/HNSW/internal/parallel"
	"github.com/sameraamar/HNSW/internal/queue"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("exact: k must be positive")

	// ErrShape is returned when data or queries do not hold whole rows.
	ErrShape = errors.New("exact: data does not match dimension")
)

// Index scans every stored vector for each query.
type Index struct {
	space distance.Space
	dim   int
	fn    distance.Func
	data  []float32
	ids   []uint64
}

// New indexes the row-major data. ids holds one id per row; nil uses the row
// numbers. Cosine data is normalized into a private copy on threads workers.
func New(space distance.Space, dim int, data []float32, ids []uint64, threads int) (*Index, error) {
	if !space.Valid() || dim <= 0 {
		return nil, fmt.Errorf("exact: invalid space %s or dimension %d", space, dim)
	}
	if len(data)%dim != 0 {
		return nil, fmt.Errorf("%w: %d values, dimension %d", ErrShape, len(data), dim)
	}
	rows := len(data) / dim
	if ids != nil && len(ids) != rows {
		return nil, fmt.Errorf("%w: %d ids for %d rows", ErrShape, len(ids), rows)
	}

	ix := &Index{space: space, dim: dim, fn: space.Func(), data: data, ids: ids}
	if space.Normalized() {
		normalized := make([]float32, len(data))
		err := parallel.For(0, rows, parallel.Threads(threads, 0, rows), func(row, _ int) error {
			distance.Normalize(normalized[row*dim:(row+1)*dim], data[row*dim:(row+1)*dim])
			return nil
		})
		if err != nil {
			return nil, err
		}
		ix.data = normalized
	}
	return ix, nil
}

// Len returns the number of indexed rows.
func (ix *Index) Len() int { return len(ix.data) / ix.dim }

func (ix *Index) id(row uint32) uint64 {
	if ix.ids == nil {
		return uint64(row)
	}
	return ix.ids[row]
}

// Search returns, for every query row, the ids of its min(k, Len) nearest
// rows, nearest first.
func (ix *Index) Search(queries []float32, k, threads int) ([][]uint64, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if len(queries)%ix.dim != 0 {
		return nil, fmt.Errorf("%w: %d query values, dimension %d", ErrShape, len(queries), ix.dim)
	}

	dim := ix.dim
	rows := len(queries) / dim
	threads = parallel.Threads(threads, 0, rows)
	results := make([][]uint64, rows)

	var scratch []float32
	if ix.space.Normalized() {
		scratch = make([]float32, threads*dim)
	}

	err := parallel.For(0, rows, threads, func(row, workerID int) error {
		query := queries[row*dim : (row+1)*dim]
		if scratch != nil {
			query = distance.Normalize(scratch[workerID*dim:(workerID+1)*dim], query)
		}
		results[row] = ix.scan(query, k)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (ix *Index) scan(query []float32, k int) []uint64 {
	top := queue.NewMax(k + 1)
	for row := 0; row < ix.Len(); row++ {
		d := ix.fn(query, ix.data[row*ix.dim:(row+1)*ix.dim])
		if top.Len() < k {
			top.Push(queue.Item{ID: uint32(row), Distance: d})
			continue
		}
		if worst, _ := top.Top(); d < worst.Distance {
			top.Pop()
			top.Push(queue.Item{ID: uint32(row), Distance: d})
		}
	}

	out := make([]uint64, top.Len())
	for i := len(out) - 1; i >= 0; i-- {
		item, _ := top.Pop()
		out[i] = ix.id(item.ID)
	}
	return out
}

// Recall returns the mean per-row share of truth ids present in approx.
func Recall(truth, approx [][]uint64) float64 {
	n := min(len(truth), len(approx))
	if n == 0 {
		return 0
	}

	var total float64
	for i := 0; i < n; i++ {
		want := make(map[uint64]struct{}, len(truth[i]))
		for _, id := range truth[i] {
			want[id] = struct{}{}
		}
		if len(want) == 0 {
			total++
			continue
		}
		hits := 0
		for _, id := range approx[i] {
			if _, ok := want[id]; ok {
				hits++
			}
		}
		total += float64(hits) / float64(len(want))
	}
	return total / float64(n)
}
