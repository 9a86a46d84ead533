package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation would exceed the
// memory limit.
var ErrMemoryLimitExceeded = errors.New("resource: memory limit exceeded")

// Config holds resource limits. Zero values mean unlimited.
type Config struct {
	// MemoryLimitBytes caps the graph memory reserved across indexes.
	MemoryLimitBytes int64

	// MaxConcurrentBatches caps AddItems and Search calls running at once.
	MaxConcurrentBatches int64

	// IOLimitBytesPerSec caps the throughput of Save and Load.
	IOLimitBytesPerSec int64
}

// Controller enforces a Config.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	batchSem *semaphore.Weighted // nil if unlimited

	ioLimiter *rate.Limiter // nil if unlimited
}

// NewController creates a controller for cfg.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.MaxConcurrentBatches > 0 {
		c.batchSem = semaphore.NewWeighted(cfg.MaxConcurrentBatches)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// AcquireMemory reserves bytes without blocking.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return ErrMemoryLimitExceeded
	}
	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory returns a reservation.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the reserved bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured limit, 0 if unlimited.
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AcquireBatch waits for a batch slot.
func (c *Controller) AcquireBatch(ctx context.Context) error {
	if c == nil || c.batchSem == nil {
		return nil
	}
	return c.batchSem.Acquire(ctx, 1)
}

// TryAcquireBatch takes a batch slot if one is free.
func (c *Controller) TryAcquireBatch() bool {
	if c == nil || c.batchSem == nil {
		return true
	}
	return c.batchSem.TryAcquire(1)
}

// ReleaseBatch returns a batch slot.
func (c *Controller) ReleaseBatch() {
	if c == nil || c.batchSem == nil {
		return
	}
	c.batchSem.Release(1)
}

// AcquireIO waits until the I/O limit allows bytes more. Requests larger
// than one second of budget are split.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// GraphBytes estimates the memory of a graph holding maxElements vectors of
// dim float32 values with up to 2*m links each on the base layer.
func GraphBytes(maxElements, dim, m int) int64 {
	if maxElements <= 0 {
		return 0
	}
	const nodeOverhead = 64
	perNode := int64(dim)*4 + int64(2*m)*4 + nodeOverhead
	return int64(maxElements) * perNode
}
