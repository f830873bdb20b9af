package blockchain

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"duck-presale.backend/pkg/logger"
	"duck-presale.backend/pkg/redis"
)

const (
	nonceKeyPrefix  = "presale:solana:nonce:"
	nonceCounterKey = "presale:solana:nonce:counter"
	nonceTTL        = 24 * time.Hour

	nonceStatePending = "pending"
	nonceStateUsed    = "used"

	// low 20 bits of the nonce carry the counter, the rest the timestamp
	nonceCounterBits = 20
	nonceCounterMask = (1 << nonceCounterBits) - 1
)

// nonceChecker is the on-chain view the service falls back to when the
// cache has no record.
type nonceChecker interface {
	IsNonceUsed(ctx context.Context, wallet string, nonce uint64) (bool, error)
}

// NonceService issues single-use purchase nonces and tracks their state in
// Redis, with the chain as the source of truth. Unreachable Redis fails
// closed: no nonce is issued or approved on guesswork.
type NonceService struct {
	chain nonceChecker
	now   func() time.Time
}

// NewNonceService creates a nonce service backed by the shared Redis client.
func NewNonceService(chain nonceChecker) *NonceService {
	return &NonceService{chain: chain, now: time.Now}
}

// Generate returns a fresh nonce: millisecond timestamp shifted left with a
// Redis counter in the low bits, unique across concurrent callers.
func (s *NonceService) Generate(ctx context.Context, wallet string) (uint64, error) {
	counter, err := redis.Incr(ctx, nonceCounterKey)
	if err != nil {
		return 0, fmt.Errorf("nonce counter unavailable: %w", err)
	}
	nonce := uint64(s.now().UnixMilli())<<nonceCounterBits | uint64(counter)&nonceCounterMask
	return nonce, nil
}

// IsAvailable reports whether the nonce is free for the wallet. Locally
// known nonces are rejected immediately; unknown ones are checked on-chain
// and the answer cached.
func (s *NonceService) IsAvailable(ctx context.Context, wallet string, nonce uint64) (bool, error) {
	_, err := redis.Get(ctx, s.key(wallet, nonce))
	if err == nil {
		return false, nil
	}
	if !redis.IsNil(err) {
		return false, fmt.Errorf("nonce cache unavailable: %w", err)
	}

	used, err := s.chain.IsNonceUsed(ctx, wallet, nonce)
	if err != nil {
		return false, err
	}
	if used {
		// heal the cache so the next check is local
		if cacheErr := s.MarkUsed(ctx, wallet, nonce); cacheErr != nil {
			logger.Warn(ctx, "failed to cache used nonce", zap.Error(cacheErr))
		}
		return false, nil
	}
	return true, nil
}

// MarkPending reserves the nonce while the buyer completes the purchase.
func (s *NonceService) MarkPending(ctx context.Context, wallet string, nonce uint64) error {
	return redis.Set(ctx, s.key(wallet, nonce), nonceStatePending, nonceTTL)
}

// MarkUsed records the nonce as consumed on-chain.
func (s *NonceService) MarkUsed(ctx context.Context, wallet string, nonce uint64) error {
	return redis.Set(ctx, s.key(wallet, nonce), nonceStateUsed, nonceTTL)
}

func (s *NonceService) key(wallet string, nonce uint64) string {
	return fmt.Sprintf("%s%s:%d", nonceKeyPrefix, wallet, nonce)
}
