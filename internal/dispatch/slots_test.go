package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSlotPoolTryAcquireUpToCapacity(t *testing.T) {
	t.Parallel()

	p := NewSlotPool(2)
	require.Equal(t, 2, p.Capacity())

	require.True(t, p.TryAcquire())
	require.True(t, p.TryAcquire())
	require.False(t, p.TryAcquire())
	require.Equal(t, 2, p.InUse())

	p.Release()
	require.Equal(t, 1, p.InUse())
	require.True(t, p.TryAcquire())
}

func TestSlotPoolAcquireBlocksUntilRelease(t *testing.T) {
	t.Parallel()

	p := NewSlotPool(1)
	require.NoError(t, p.Acquire(context.Background()))

	acquired := make(chan struct{})
	go func() {
		if err := p.Acquire(context.Background()); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("acquire succeeded while pool was full")
	case <-time.After(20 * time.Millisecond):
	}

	p.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("acquire did not proceed after release")
	}
}

func TestSlotPoolAcquireHonorsContext(t *testing.T) {
	t.Parallel()

	p := NewSlotPool(1)
	require.NoError(t, p.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, p.Acquire(ctx), context.DeadlineExceeded)
}

func TestSlotPoolReleaseWithoutAcquirePanics(t *testing.T) {
	t.Parallel()

	p := NewSlotPool(1)
	require.Panics(t, func() { p.Release() })
}

func TestSlotPoolMinimumCapacity(t *testing.T) {
	t.Parallel()

	p := NewSlotPool(0)
	require.Equal(t, 1, p.Capacity())
}
