package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSubmit(t *testing.T) {
	p, err := NewPool("test", DefaultPool, DefaultPoolConfig())
	require.NoError(t, err)
	defer p.Release()

	var counter atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.Equal(t, int64(50), counter.Load())
	assert.Eventually(t, func() bool {
		return p.Stats().CompletedTasks == 50
	}, time.Second, 5*time.Millisecond)
}

func TestPoolDoWaitsForResult(t *testing.T) {
	p, err := NewPool("test", DefaultPool, DefaultPoolConfig())
	require.NoError(t, err)
	defer p.Release()

	var result int
	err = p.Do(context.Background(), func() {
		result = 42
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestPoolDoContextCancelled(t *testing.T) {
	p, err := NewPool("test", GenerationPool, GenerationPoolConfig())
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = p.Do(ctx, func() {
		t.Fatal("task should not run after cancellation")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerationPoolSerializes(t *testing.T) {
	p, err := NewPool("generation", GenerationPool, GenerationPoolConfig())
	require.NoError(t, err)
	defer p.Release()

	require.Equal(t, 1, p.Cap())

	var inFlight atomic.Int64
	var maxInFlight atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(context.Background(), func() {
				cur := inFlight.Add(1)
				if cur > maxInFlight.Load() {
					maxInFlight.Store(cur)
				}
				time.Sleep(10 * time.Millisecond)
				inFlight.Add(-1)
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), maxInFlight.Load())
}

func TestPoolReleaseTimeout(t *testing.T) {
	p, err := NewPool("test", DefaultPool, DefaultPoolConfig())
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Submit(func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
	}))

	require.NoError(t, p.ReleaseTimeout(time.Second))
	wg.Wait()

	err = p.Submit(func() {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolSubmitAfterRelease(t *testing.T) {
	p, err := NewPool("test", DefaultPool, DefaultPoolConfig())
	require.NoError(t, err)
	p.Release()

	err = p.Submit(func() {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}
