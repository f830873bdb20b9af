package blockchain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-presale.backend/pkg/redis"
)

type fakeNonceChecker struct {
	used  bool
	err   error
	calls int
}

func (f *fakeNonceChecker) IsNonceUsed(ctx context.Context, wallet string, nonce uint64) (bool, error) {
	f.calls++
	return f.used, f.err
}

func setupNonceRedis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	redis.SetClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
}

func TestNonceService_Generate(t *testing.T) {
	setupNonceRedis(t)
	svc := NewNonceService(&fakeNonceChecker{})
	fixed := time.UnixMilli(1_700_000_000_000)
	svc.now = func() time.Time { return fixed }

	first, err := svc.Generate(context.Background(), "wallet-a")
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), "wallet-a")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, uint64(fixed.UnixMilli()), first>>nonceCounterBits)
	assert.Equal(t, first+1, second) // consecutive counter values at the same instant
}

func TestNonceService_GenerateFailsClosed(t *testing.T) {
	redis.SetClient(goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:0",
		DialTimeout: 50 * time.Millisecond,
	}))
	svc := NewNonceService(&fakeNonceChecker{})

	_, err := svc.Generate(context.Background(), "wallet-a")
	assert.Error(t, err)
}

func TestNonceService_IsAvailable(t *testing.T) {
	setupNonceRedis(t)
	chain := &fakeNonceChecker{}
	svc := NewNonceService(chain)
	ctx := context.Background()

	ok, err := svc.IsAvailable(ctx, "wallet-a", 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, chain.calls)

	require.NoError(t, svc.MarkPending(ctx, "wallet-a", 42))
	ok, err = svc.IsAvailable(ctx, "wallet-a", 42)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, chain.calls) // answered from cache
}

func TestNonceService_SelfHealsFromChain(t *testing.T) {
	setupNonceRedis(t)
	chain := &fakeNonceChecker{used: true}
	svc := NewNonceService(chain)
	ctx := context.Background()

	ok, err := svc.IsAvailable(ctx, "wallet-a", 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, chain.calls)

	// second check answered from the healed cache
	ok, err = svc.IsAvailable(ctx, "wallet-a", 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, chain.calls)
}

func TestNonceService_ChainErrorPropagates(t *testing.T) {
	setupNonceRedis(t)
	chain := &fakeNonceChecker{err: errors.New("rpc down")}
	svc := NewNonceService(chain)

	_, err := svc.IsAvailable(context.Background(), "wallet-a", 1)
	assert.Error(t, err)
}

func TestNonceService_MarkUsedDistinctPerWallet(t *testing.T) {
	setupNonceRedis(t)
	chain := &fakeNonceChecker{}
	svc := NewNonceService(chain)
	ctx := context.Background()

	require.NoError(t, svc.MarkUsed(ctx, "wallet-a", 5))

	ok, err := svc.IsAvailable(ctx, "wallet-a", 5)
	require.NoError(t, err)
	assert.False(t, ok)

	// same nonce for a different wallet is independent
	ok, err = svc.IsAvailable(ctx, "wallet-b", 5)
	require.NoError(t, err)
	assert.True(t, ok)
}
