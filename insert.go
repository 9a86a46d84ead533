package hnsw

import (
	"context"
	"fmt"
	"time"

	"github.com/sameraamar/HNSW/distance"
	"github.com/sameraamar/HNSW/internal/parallel"
)

// AddItems inserts rows vectors packed row-major in vectors.
//
// ids holds one id per row; nil assigns sequential ids continuing from
// ElementCount. threads <= 0 uses the index default, and batches of at most
// threads*4 rows run on the calling goroutine.
//
// On a fresh index the first row is inserted alone before the rest are
// dispatched. If any row fails the first error is returned after every
// worker has stopped; rows inserted before the failure stay in the engine
// but ElementCount does not change.
func (ix *Index) AddItems(vectors []float32, ids []uint64, rows, threads int) (err error) {
	start := time.Now()

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.ready(); err != nil {
		return err
	}
	if rows < 0 || len(vectors) != rows*ix.dim {
		return fmt.Errorf("%w: %d values for %d rows of dimension %d", ErrVectorCountMismatch, len(vectors), rows, ix.dim)
	}
	if ids != nil && len(ids) != rows {
		return fmt.Errorf("%w: %d ids for %d rows", ErrIDCountMismatch, len(ids), rows)
	}
	if rows == 0 {
		return nil
	}

	ctx := context.Background()
	if err := ix.resources.AcquireBatch(ctx); err != nil {
		return err
	}
	defer ix.resources.ReleaseBatch()

	threads = parallel.Threads(threads, ix.numThreads, rows)
	defer func() {
		ix.metrics.RecordBatchInsert(rows, time.Since(start), err)
		ix.logger.LogBatchInsert(ctx, rows, threads, ix.curL, err)
	}()

	dim := ix.dim
	var scratch []float32
	if ix.normalize {
		scratch = make([]float32, threads*dim)
	}

	insert := func(row, workerID int) error {
		vector := vectors[row*dim : (row+1)*dim]
		if ix.normalize {
			vector = distance.Normalize(scratch[workerID*dim:(workerID+1)*dim], vector)
		}

		id := uint64(ix.curL + row)
		if ids != nil {
			id = ids[row]
		}

		if err := ix.engine.AddPoint(vector, id); err != nil {
			return &RowError{Row: row, cause: err}
		}
		return nil
	}

	offset := 0
	if !ix.entryPointSet {
		if err := insert(0, 0); err != nil {
			return err
		}
		ix.entryPointSet = true
		offset = 1
	}

	if err := parallel.For(offset, rows, threads, insert); err != nil {
		return err
	}

	ix.curL += rows
	return nil
}
