package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobQueueRunsJobs(t *testing.T) {
	queue := NewJobQueueService(context.Background(), 10, 2)

	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, queue.Enqueue(func(ctx context.Context) {
			done <- struct{}{}
		}))
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("job was not executed")
		}
	}

	queue.Shutdown()
}

func TestJobQueueIsFull(t *testing.T) {
	queue := NewJobQueueService(context.Background(), 1, 0)

	require.NoError(t, queue.Enqueue(func(ctx context.Context) {}))
	assert.ErrorIs(t, queue.Enqueue(func(ctx context.Context) {}), ErrJobQueueIsFull)
}

func TestJobQueueRejectsJobsAfterShutdown(t *testing.T) {
	queue := NewJobQueueService(context.Background(), 1, 1)
	queue.Shutdown()

	assert.ErrorIs(t, queue.Enqueue(func(ctx context.Context) {}), ErrJobQueueClosed)

	// Повторный Shutdown безопасен
	queue.Shutdown()
}

func TestJobQueuePauseAndResume(t *testing.T) {
	queue := NewJobQueueService(context.Background(), 10, 1)
	defer queue.Shutdown()

	var executed atomic.Int32

	queue.Pause()
	require.NoError(t, queue.Enqueue(func(ctx context.Context) {
		executed.Add(1)
	}))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), executed.Load())

	queue.Resume()

	assert.Eventually(t, func() bool {
		return executed.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestJobQueuePauseAndResumeAfterDelay(t *testing.T) {
	queue := NewJobQueueService(context.Background(), 10, 1)
	defer queue.Shutdown()

	var executed atomic.Int32

	queue.PauseAndResume(100 * time.Millisecond)
	require.NoError(t, queue.Enqueue(func(ctx context.Context) {
		executed.Add(1)
	}))

	assert.Equal(t, int32(0), executed.Load())
	assert.Eventually(t, func() bool {
		return executed.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestJobQueueScheduleJob(t *testing.T) {
	queue := NewJobQueueService(context.Background(), 10, 1)
	defer queue.Shutdown()

	var executed atomic.Int32
	queue.ScheduleJob(func(ctx context.Context) {
		executed.Add(1)
	}, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		return executed.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestJobQueueScheduledJobsDuringShutdown(t *testing.T) {
	queue := NewJobQueueService(context.Background(), 1000, 2)

	for i := 0; i < 200; i++ {
		queue.ScheduleJob(func(ctx context.Context) {}, time.Duration(i%5)*time.Millisecond)
	}

	time.Sleep(2 * time.Millisecond)
	assert.NotPanics(t, queue.Shutdown)

	// Таймеры, сработавшие после Shutdown, получают ErrJobQueueClosed
	time.Sleep(10 * time.Millisecond)
	assert.ErrorIs(t, queue.Enqueue(func(ctx context.Context) {}), ErrJobQueueClosed)
}

func TestJobQueueConcurrentEnqueueAndShutdown(t *testing.T) {
	queue := NewJobQueueService(context.Background(), 1000, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				err := queue.Enqueue(func(ctx context.Context) {})
				if err != nil {
					assert.ErrorIs(t, err, ErrJobQueueClosed)
				}
			}
		}()
	}

	queue.Shutdown()
	wg.Wait()
}
