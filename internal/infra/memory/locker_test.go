package memory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"jobengine/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_MutualExclusion(t *testing.T) {
	l := memory.NewLocker()
	ctx := context.Background()

	ok, err := l.TryAcquire(ctx, "digest")
	require.NoError(t, err)
	require.True(t, ok)

	// A second acquire while held must fail without blocking.
	ok, err = l.TryAcquire(ctx, "digest")
	require.NoError(t, err)
	assert.False(t, ok)

	// An unrelated key is not affected.
	ok, err = l.TryAcquire(ctx, "email")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Release(ctx, "digest"))
	ok, err = l.TryAcquire(ctx, "digest")
	require.NoError(t, err)
	assert.True(t, ok)
}

// Two concurrent acquisitions of the same key never both succeed.
func TestLocker_ConcurrentAcquireSingleWinner(t *testing.T) {
	l := memory.NewLocker()
	ctx := context.Background()

	const attempts = 64
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := l.TryAcquire(ctx, "digest")
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestLocker_ReleaseUnheldIsNoop(t *testing.T) {
	l := memory.NewLocker()
	assert.NoError(t, l.Release(context.Background(), "never-acquired"))
}

func TestLocker_ReleaseIsIdempotent(t *testing.T) {
	l := memory.NewLocker()
	ctx := context.Background()

	ok, err := l.TryAcquire(ctx, "digest")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Release(ctx, "digest"))
	require.NoError(t, l.Release(ctx, "digest"))
	assert.False(t, l.Held("digest"))
}
