package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupChallengeRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	return mr
}

func TestNewChallengeStore_InvalidTTL(t *testing.T) {
	_, err := NewChallengeStore(0)
	assert.Error(t, err)

	_, err = NewChallengeStore(-time.Second)
	assert.Error(t, err)
}

func TestChallengeStore_IssueAndConsume(t *testing.T) {
	setupChallengeRedis(t)
	store, err := NewChallengeStore(5 * time.Minute)
	require.NoError(t, err)

	wallet := "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	claim := "0x1111111111111111111111111111111111111111"

	message, err := store.Issue(context.Background(), wallet, claim)
	require.NoError(t, err)
	assert.Contains(t, message, wallet)
	assert.Contains(t, message, claim)
	assert.Contains(t, message, "Nonce: ")

	got, err := store.Consume(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, message, got)

	// consumed once, gone forever
	_, err = store.Consume(context.Background(), wallet)
	assert.Error(t, err)
}

func TestChallengeStore_IssueReplacesPrevious(t *testing.T) {
	setupChallengeRedis(t)
	store, err := NewChallengeStore(5 * time.Minute)
	require.NoError(t, err)

	wallet := "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	claim := "0x1111111111111111111111111111111111111111"

	first, err := store.Issue(context.Background(), wallet, claim)
	require.NoError(t, err)
	second, err := store.Issue(context.Background(), wallet, claim)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, err := store.Consume(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestChallengeStore_ConsumeExpired(t *testing.T) {
	mr := setupChallengeRedis(t)
	store, err := NewChallengeStore(time.Minute)
	require.NoError(t, err)

	wallet := "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	_, err = store.Issue(context.Background(), wallet, "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Consume(context.Background(), wallet)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no active challenge")
}

func TestChallengeStore_NonceRandomnessFailure(t *testing.T) {
	setupChallengeRedis(t)
	store, err := NewChallengeStore(time.Minute)
	require.NoError(t, err)

	original := randRead
	randRead = func([]byte) (int, error) { return 0, errors.New("entropy exhausted") }
	defer func() { randRead = original }()

	_, err = store.Issue(context.Background(), "wallet", "0xabc")
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "challenge nonce"))
}

func TestChallengeStore_StoreFailure(t *testing.T) {
	setupChallengeRedis(t)
	store, err := NewChallengeStore(time.Minute)
	require.NoError(t, err)

	original := setChallengeValue
	setChallengeValue = func(context.Context, string, interface{}, time.Duration) error {
		return errors.New("connection reset")
	}
	defer func() { setChallengeValue = original }()

	_, err = store.Issue(context.Background(), "wallet", "0xabc")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store challenge")
}
