package hnsw

import (
	"github.com/sameraamar/HNSW/internal/parallel"
)

// Neighbor is one search hit.
type Neighbor struct {
	ID       uint64
	Distance float32
}

// SearchResult holds the neighbors of one query row, nearest first.
// It is allocated per call and owned by the caller.
type SearchResult struct {
	// ID is the query's row index in the batch.
	ID        uint64
	Count     int
	Neighbors []Neighbor
}

// FlatResult holds the neighbors of a query batch in row-major arrays of
// Rows*K entries, nearest first within each row.
type FlatResult struct {
	Rows      int
	K         int
	IDs       []uint64
	Distances []float32
}

// Row returns the ids and distances of one query row. The slices alias the
// flat arrays.
func (r *FlatResult) Row(row int) ([]uint64, []float32) {
	lo, hi := row*r.K, (row+1)*r.K
	return r.IDs[lo:hi], r.Distances[lo:hi]
}

// packageResults splits a flat result into one SearchResult per row on the
// given number of workers.
func packageResults(flat *FlatResult, threads int) ([]SearchResult, error) {
	results := make([]SearchResult, flat.Rows)

	err := parallel.For(0, flat.Rows, threads, func(row, _ int) error {
		ids, dists := flat.Row(row)
		neighbors := make([]Neighbor, flat.K)
		for i := range neighbors {
			neighbors[i] = Neighbor{ID: ids[i], Distance: dists[i]}
		}
		results[row] = SearchResult{
			ID:        uint64(row),
			Count:     flat.K,
			Neighbors: neighbors,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
