package hnsw

import (
	"context"
	"fmt"
	"time"

	"github.com/sameraamar/HNSW/distance"
	"github.com/sameraamar/HNSW/internal/parallel"
)

// Search returns the k nearest neighbors of each of rows queries packed
// row-major in queries. threads follows the same rules as AddItems.
//
// Every row must yield exactly k neighbors; otherwise the batch fails with a
// *ResultCardinalityError and no results are returned.
func (ix *Index) Search(queries []float32, rows, k, threads int) ([]SearchResult, error) {
	flat, threads, err := ix.search(queries, rows, k, threads)
	if err != nil {
		return nil, err
	}
	return packageResults(flat, threads)
}

// SearchFlat is Search without the per-row packaging.
func (ix *Index) SearchFlat(queries []float32, rows, k, threads int) (*FlatResult, error) {
	flat, _, err := ix.search(queries, rows, k, threads)
	return flat, err
}

func (ix *Index) search(queries []float32, rows, k, threads int) (flat *FlatResult, _ int, err error) {
	start := time.Now()

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := ix.ready(); err != nil {
		return nil, 0, err
	}
	if k < 1 {
		return nil, 0, ErrInvalidK
	}
	if rows < 0 || len(queries) != rows*ix.dim {
		return nil, 0, fmt.Errorf("%w: %d values for %d rows of dimension %d", ErrVectorCountMismatch, len(queries), rows, ix.dim)
	}

	ctx := context.Background()
	if err := ix.resources.AcquireBatch(ctx); err != nil {
		return nil, 0, err
	}
	defer ix.resources.ReleaseBatch()

	threads = parallel.Threads(threads, ix.numThreads, rows)
	defer func() {
		ix.metrics.RecordSearch(rows, k, time.Since(start), err)
		ix.logger.LogSearch(ctx, rows, k, threads, err)
	}()

	dim := ix.dim
	var scratch []float32
	if ix.normalize {
		scratch = make([]float32, threads*dim)
	}

	flat = &FlatResult{
		Rows:      rows,
		K:         k,
		IDs:       make([]uint64, rows*k),
		Distances: make([]float32, rows*k),
	}

	err = parallel.For(0, rows, threads, func(row, workerID int) error {
		query := queries[row*dim : (row+1)*dim]
		if ix.normalize {
			query = distance.Normalize(scratch[workerID*dim:(workerID+1)*dim], query)
		}

		candidates, err := ix.engine.SearchKnn(query, k)
		if err != nil {
			return &RowError{Row: row, cause: err}
		}
		if len(candidates) != k {
			return &ResultCardinalityError{Row: row, Want: k, Got: len(candidates)}
		}

		// Candidates come farthest first.
		ids, dists := flat.Row(row)
		for i, c := range candidates {
			ids[k-1-i] = c.Label
			dists[k-1-i] = c.Distance
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return flat, threads, nil
}
