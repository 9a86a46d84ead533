package parallel

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForVisitsEveryIndexOnce(t *testing.T) {
	for _, threads := range []int{1, 2, 4, 16} {
		t.Run(fmt.Sprintf("threads=%d", threads), func(t *testing.T) {
			const start, end = 3, 1000
			counts := make([]atomic.Int32, end)

			err := For(start, end, threads, func(i, _ int) error {
				counts[i].Add(1)
				return nil
			})
			require.NoError(t, err)

			for i := range counts {
				want := int32(1)
				if i < start {
					want = 0
				}
				assert.Equal(t, want, counts[i].Load(), "index %d", i)
			}
		})
	}
}

func TestForEmptyRange(t *testing.T) {
	called := false
	err := For(5, 5, 4, func(int, int) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestForSingleThreadRunsInOrderOnCaller(t *testing.T) {
	var order []int
	workers := map[int]struct{}{}

	// order is appended without a lock: a second goroutine would trip -race.
	err := For(0, 50, 1, func(i, workerID int) error {
		order = append(order, i)
		workers[workerID] = struct{}{}
		return nil
	})
	require.NoError(t, err)

	for i, v := range order {
		assert.Equal(t, i, v)
	}
	assert.Equal(t, map[int]struct{}{0: {}}, workers)
}

func TestForSingleThreadStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	var visited []int

	err := For(0, 10, 1, func(i, _ int) error {
		visited = append(visited, i)
		if i == 3 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []int{0, 1, 2, 3}, visited)
}

func TestForWorkerIDsAreBounded(t *testing.T) {
	const threads = 4
	var mu sync.Mutex
	seen := map[int]struct{}{}

	err := For(0, 200, threads, func(_ int, workerID int) error {
		mu.Lock()
		seen[workerID] = struct{}{}
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	for id := range seen {
		assert.GreaterOrEqual(t, id, 0)
		assert.Less(t, id, threads)
	}
}

func TestForFailFastStopsNewClaims(t *testing.T) {
	const (
		threads = 2
		end     = 1000
	)
	boom := errors.New("boom")

	var executed atomic.Int64
	err := For(0, end, threads, func(i, _ int) error {
		executed.Add(1)
		if i == 0 {
			return boom
		}
		time.Sleep(time.Millisecond)
		return nil
	})

	require.ErrorIs(t, err, boom)
	// Only units claimed before the abort became visible may have run.
	assert.Less(t, executed.Load(), int64(50))
}

func TestForReturnsExactlyOneOfManyErrors(t *testing.T) {
	const threads = 8
	var gate sync.WaitGroup
	gate.Add(threads)

	errs := make(map[error]struct{})
	all := make([]error, threads)
	for i := range all {
		all[i] = fmt.Errorf("unit %d", i)
		errs[all[i]] = struct{}{}
	}

	err := For(0, threads, threads, func(i, _ int) error {
		// Every worker holds its unit until all have claimed one, so all fail together.
		gate.Done()
		gate.Wait()
		return all[i]
	})

	require.Error(t, err)
	_, known := errs[err]
	assert.True(t, known, "returned error must be one of the unit errors, got %v", err)
}

func TestForRecoversPanics(t *testing.T) {
	for _, threads := range []int{1, 4} {
		err := For(0, 20, threads, func(i, _ int) error {
			if i == 7 {
				panic("kaboom")
			}
			return nil
		})

		var pe *PanicError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 7, pe.Index)
		assert.Equal(t, "kaboom", pe.Value)
		assert.NotEmpty(t, pe.Stack)
	}
}

func TestThreads(t *testing.T) {
	tests := []struct {
		name            string
		hint, def, rows int
		want            int
	}{
		{"hint used", 4, 8, 1000, 4},
		{"default when hint zero", 0, 8, 1000, 8},
		{"default when hint negative", -1, 6, 1000, 6},
		{"small batch forces one", 4, 8, 16, 1},
		{"boundary is inclusive", 4, 8, 17, 4},
		{"single row", 0, 8, 1, 1},
		{"huge hint is a small batch", math.MaxInt, 8, 1000, 1},
		{"huge default is a small batch", 0, math.MaxInt, 1000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Threads(tt.hint, tt.def, tt.rows))
		})
	}
}

func TestForClampsWorkersToRange(t *testing.T) {
	var maxWorker atomic.Int64
	err := For(0, 3, 64, func(_, workerID int) error {
		for {
			cur := maxWorker.Load()
			if int64(workerID) <= cur || maxWorker.CompareAndSwap(cur, int64(workerID)) {
				return nil
			}
		}
	})
	require.NoError(t, err)
	assert.Less(t, maxWorker.Load(), int64(3))
}

func TestResolve(t *testing.T) {
	assert.Equal(t, HardwareThreads(), Resolve(0))
	assert.Equal(t, HardwareThreads(), Resolve(-3))
	assert.Equal(t, 5, Resolve(5))
}
