package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hbromell/grab/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Submit_ReturnsTaskError(t *testing.T) {
	pool := worker.NewPool("test", 1)
	require.NoError(t, pool.Start())
	defer pool.Close()

	taskErr := errors.New("task exploded")
	err := pool.Submit(context.Background(), "failing", func() error { return taskErr })
	assert.Equal(t, taskErr, err)

	err = pool.Submit(context.Background(), "succeeding", func() error { return nil })
	assert.NoError(t, err)
}

func Test_Submit_BeforeStartFails(t *testing.T) {
	pool := worker.NewPool("test", 1)
	err := pool.Submit(context.Background(), "early", func() error { return nil })
	assert.Error(t, err)
}

func Test_Start_TwiceFails(t *testing.T) {
	pool := worker.NewPool("test", 1)
	require.NoError(t, pool.Start())
	defer pool.Close()

	assert.Error(t, pool.Start())
}

func Test_LifecycleIsRaceFree(t *testing.T) {
	// Start, Submit and Close race from separate goroutines; run under the
	// race detector this pins down the lifecycle flag's synchronisation.
	pool := worker.NewPool("test", 2)

	wg := sync.WaitGroup{}
	wg.Add(3)
	go func() {
		defer wg.Done()
		pool.Start()
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			pool.Submit(context.Background(), "racing", func() error { return nil })
		}
	}()
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		pool.Close()
	}()
	wg.Wait()

	// Close is idempotent once the pool has stopped.
	pool.Close()
}

func Test_Submit_CancelledWhileQueued(t *testing.T) {
	pool := worker.NewPool("test", 1)
	require.NoError(t, pool.Start())
	defer pool.Close()

	// Occupy the only worker.
	release := make(chan struct{})
	claimed := make(chan struct{})
	go pool.Submit(context.Background(), "blocker", func() error {
		close(claimed)
		<-release
		return nil
	})
	<-claimed
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := pool.Submit(ctx, "queued", func() error { ran = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran, "cancelled submission must never execute")
}

func Test_PoolCapacityBoundsConcurrency(t *testing.T) {
	const capacity = 3
	pool := worker.NewPool("test", capacity)
	require.NoError(t, pool.Start())
	defer pool.Close()

	var running, peak int32
	release := make(chan struct{})

	wg := sync.WaitGroup{}
	for i := 0; i < capacity*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Submit(context.Background(), "counting", func() error {
				now := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
						break
					}
				}
				<-release
				atomic.AddInt32(&running, -1)
				return nil
			})
		}()
	}

	// Give the first wave time to be claimed, then let everything finish.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(capacity))
	assert.Equal(t, int32(capacity), atomic.LoadInt32(&peak), "all workers should have been busy")
}

func Test_Close_RejectsWaitingSubmissions(t *testing.T) {
	pool := worker.NewPool("test", 1)
	require.NoError(t, pool.Start())

	release := make(chan struct{})
	claimed := make(chan struct{})
	go pool.Submit(context.Background(), "blocker", func() error {
		close(claimed)
		<-release
		return nil
	})
	<-claimed

	queuedErr := make(chan error, 1)
	go func() {
		queuedErr <- pool.Submit(context.Background(), "queued", func() error { return nil })
	}()

	// Let the queued submission reach the pool before closing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	pool.Close()

	err := <-queuedErr
	if err != nil {
		assert.ErrorIs(t, err, worker.ErrPoolClosed)
	}
}
