// Package parallel distributes a fixed index range over a bounded number of
// goroutines with fail-fast error propagation.
//
// Workers claim indices from a shared atomic cursor. The first unit that
// fails wins: its error is kept, the cursor jumps to the end of the range so
// no new unit is claimed, and the error is returned once every worker has
// exited. Units already running are not interrupted.
package parallel

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// smallBatchFactor is the rows-per-thread threshold below which batches run
// on the calling goroutine.
const smallBatchFactor = 4

// Func is one unit of work. i is the claimed index, workerID identifies the
// executing worker in [0, numThreads).
type Func func(i, workerID int) error

// PanicError wraps a panic recovered from a unit of work.
type PanicError struct {
	Index int
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("parallel: unit %d panicked: %v", e.Index, e.Value)
}

// HardwareThreads reports the number of logical CPUs usable by the process.
func HardwareThreads() int {
	return runtime.NumCPU()
}

// Resolve maps a thread hint to a concrete worker count. Hints <= 0 mean
// hardware concurrency.
func Resolve(numThreads int) int {
	if numThreads <= 0 {
		return HardwareThreads()
	}
	return numThreads
}

// Threads applies the batch sizing heuristic: a non-positive hint falls back
// to def, and batches of at most threads*4 rows run single-threaded. The
// result never exceeds rows.
func Threads(hint, def, rows int) int {
	threads := hint
	if threads <= 0 {
		threads = Resolve(def)
	}
	threads = min(threads, max(rows, 1))
	if rows <= threads*smallBatchFactor {
		return 1
	}
	return threads
}

// For executes fn exactly once for every index in [start, end) using up to
// numThreads workers, unless a unit fails first.
//
// With a single thread the range runs in increasing order on the calling
// goroutine and the first error is returned immediately.
func For(start, end, numThreads int, fn Func) error {
	if start >= end {
		return nil
	}

	numThreads = min(Resolve(numThreads), end-start)
	if numThreads == 1 {
		for i := start; i < end; i++ {
			if err := call(fn, i, 0); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		g       errgroup.Group
		current atomic.Int64
		last    = int64(end)
	)
	current.Store(int64(start))

	for workerID := 0; workerID < numThreads; workerID++ {
		g.Go(func() error {
			for {
				i := current.Add(1) - 1
				if i >= last {
					return nil
				}
				if err := call(fn, int(i), workerID); err != nil {
					// Stop further claims; running units finish on their own.
					current.Store(last)
					return err
				}
			}
		})
	}

	return g.Wait()
}

func call(fn Func, i, workerID int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Index: i, Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(i, workerID)
}
