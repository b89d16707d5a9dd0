package redemption

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_TryRedeemOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	redeemed, err := store.IsRedeemed(ctx, "SIG_A")
	require.NoError(t, err)
	assert.False(t, redeemed)

	won, err := store.TryRedeem(ctx, "SIG_A", time.Now())
	require.NoError(t, err)
	assert.True(t, won)

	won, err = store.TryRedeem(ctx, "SIG_A", time.Now())
	require.NoError(t, err)
	assert.False(t, won, "second insert must lose without error")

	redeemed, err = store.IsRedeemed(ctx, "SIG_A")
	require.NoError(t, err)
	assert.True(t, redeemed)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_ConcurrentRedeemSingleWinner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const n = 64
	var wins int32
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := store.TryRedeem(ctx, "SIG_A", time.Now())
			require.NoError(t, err)
			if won {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_ReferencesAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, ref := range []string{"SIG_A", "SIG_B", "SIG_C"} {
		won, err := store.TryRedeem(ctx, ref, time.Now())
		require.NoError(t, err)
		assert.True(t, won, ref)
	}
	assert.Equal(t, 3, store.Len())

	records := store.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "SIG_A", records[0].Reference)
	assert.Equal(t, "SIG_C", records[2].Reference)
	assert.False(t, records[0].RedeemedAt.IsZero())
}
