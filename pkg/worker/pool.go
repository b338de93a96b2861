package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/hbromell/grab/pkg/logger"
)

var log = logger.Get("Worker")

var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a blocking unit of work submitted to a Pool. The error returned
// by the task is handed back, unchanged, to the submitter.
type Task func() error

type submission struct {
	ctx   context.Context
	label string
	task  Task
	done  chan error
}

// Pool is a bounded worker pool. A fixed number of worker goroutines drain
// a shared submission channel; the pool's capacity therefore bounds how many
// tasks execute simultaneously, with excess submissions queueing until a
// worker frees up.
type Pool struct {
	label       string
	size        int
	submissions chan submission
	quit        chan struct{}
	wg          sync.WaitGroup
	started     atomic.Bool
}

// NewPool creates a new Pool with the given number of workers. The label
// is used purely for logging.
func NewPool(label string, size int) *Pool {
	if size < 1 {
		size = 1
	}

	return &Pool{
		label:       label,
		size:        size,
		submissions: make(chan submission),
		quit:        make(chan struct{}),
	}
}

// Start spawns the pool's worker goroutines. Start does not block.
func (pool *Pool) Start() error {
	if !pool.started.CompareAndSwap(false, true) {
		return errors.New("cannot start an already started worker pool")
	}

	for i := 0; i < pool.size; i++ {
		pool.wg.Add(1)
		go func(id int) {
			defer pool.wg.Done()
			pool.work(id)
		}(i)
	}

	return nil
}

// Submit hands the task to the pool and blocks until a worker has executed
// it, returning the task's own error. If the provided context is cancelled
// before a worker picks the task up, the context's error is returned and
// the task never runs.
func (pool *Pool) Submit(ctx context.Context, label string, task Task) error {
	if !pool.started.Load() {
		return errors.New("cannot submit task to a worker pool that is not started")
	}

	sub := submission{ctx: ctx, label: label, task: task, done: make(chan error, 1)}
	select {
	case pool.submissions <- sub:
	case <-ctx.Done():
		return ctx.Err()
	case <-pool.quit:
		return ErrPoolClosed
	}

	return <-sub.done
}

// Close stops the pool. Tasks already claimed by a worker run to completion;
// submissions still waiting for a worker receive ErrPoolClosed. Close blocks
// until all workers exit.
func (pool *Pool) Close() {
	if !pool.started.CompareAndSwap(true, false) {
		return
	}

	close(pool.quit)
	pool.wg.Wait()
}

func (pool *Pool) work(id int) {
	log.Emit(logger.NEW, "Worker %s-%d started\n", pool.label, id)
	defer log.Emit(logger.STOP, "Worker %s-%d stopped\n", pool.label, id)

	for {
		select {
		case sub := <-pool.submissions:
			pool.execute(id, sub)
		case <-pool.quit:
			return
		}
	}
}

func (pool *Pool) execute(id int, sub submission) {
	// Submitter may have long since abandoned a queued task.
	if err := sub.ctx.Err(); err != nil {
		sub.done <- err
		return
	}

	log.Emit(logger.DEBUG, "Worker %s-%d executing task '%s'\n", pool.label, id, sub.label)
	if err := sub.task(); err != nil {
		log.Emit(logger.ERROR, "Worker %s-%d task '%s' reported an error: %v\n", pool.label, id, sub.label, err)
		sub.done <- err
		return
	}

	sub.done <- nil
}
