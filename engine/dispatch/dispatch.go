// Package dispatch runs blocking work (fetches, decodes) off the caller's goroutine.
package dispatch

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// Executor runs work asynchronously and hands its result to complete.
// complete is called exactly once per submitted work item, on an executor goroutine.
type Executor interface {
	// Submit schedules work. It does not block on work itself.
	//
	// Parameters:
	//   - work: the blocking operation
	//   - complete: receives the result of work
	Submit(work func() (any, error), complete func(result any, err error))
}

type poolExecutor struct {
	pool   worker.DynamicWorkerPool
	nextID atomic.Int64
	once   sync.Once
}

// PoolExecutor is an Executor backed by a dynamic worker pool.
type PoolExecutor interface {
	Executor

	// Wait blocks until every submitted work item has completed.
	Wait()

	// Stop stops the pool. Queued work is dropped. Safe to call multiple times.
	Stop()
}

var _ PoolExecutor = &poolExecutor{}

// NewPoolExecutor creates a PoolExecutor with up to maxWorkers concurrent work items.
//
// Parameters:
//   - maxWorkers: maximum concurrent work items (defaults to 1 if <= 0)
//   - queueSize: pending work capacity before Submit blocks
//
// Returns:
//   - PoolExecutor: the executor
func NewPoolExecutor(maxWorkers, queueSize int) PoolExecutor {
	return &poolExecutor{
		pool: worker.NewDynamicWorkerPool(maxWorkers, queueSize, 1*time.Second),
	}
}

func (p *poolExecutor) Submit(work func() (any, error), complete func(result any, err error)) {
	id := int(p.nextID.Add(1))
	p.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			res, err := work()
			if complete != nil {
				complete(res, err)
			}
			return res, err
		},
	})
}

func (p *poolExecutor) Wait() {
	p.pool.Wait()
}

func (p *poolExecutor) Stop() {
	p.once.Do(func() {
		p.pool.ClearTaskQueue()
		p.pool.Stop()
	})
}

// goExecutor runs every work item on its own goroutine.
type goExecutor struct{}

// NewGoExecutor returns an Executor that starts a goroutine per work item.
func NewGoExecutor() Executor {
	return goExecutor{}
}

func (goExecutor) Submit(work func() (any, error), complete func(result any, err error)) {
	go func() {
		res, err := work()
		if complete != nil {
			complete(res, err)
		}
	}()
}
