package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// indirection for testing
var (
	setChallengeValue = Set
	getDelChallenge   = GetDel
	randRead          = rand.Read
)

const challengeKeyPrefix = "presale:challenge:"

// ChallengeStore issues short-lived signing challenges for wallet binding.
// One live challenge per presale wallet; issuing a new one replaces the old.
type ChallengeStore struct {
	ttl time.Duration
}

// NewChallengeStore creates a challenge store with the given TTL.
func NewChallengeStore(ttl time.Duration) (*ChallengeStore, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("challenge TTL must be positive")
	}
	return &ChallengeStore{ttl: ttl}, nil
}

// Issue builds a human-readable challenge message binding claimWallet to
// wallet, stores it under the wallet key, and returns it for signing.
func (s *ChallengeStore) Issue(ctx context.Context, wallet, claimWallet string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := randRead(nonce); err != nil {
		return "", fmt.Errorf("failed to generate challenge nonce: %w", err)
	}

	message := fmt.Sprintf(
		"Link wallet %s as the claim destination for presale identity %s\nNonce: %s",
		claimWallet, wallet, hex.EncodeToString(nonce),
	)

	if err := setChallengeValue(ctx, challengeKeyPrefix+wallet, message, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store challenge: %w", err)
	}

	return message, nil
}

// Consume atomically fetches and deletes the live challenge for wallet.
// A consumed or expired challenge cannot be replayed.
func (s *ChallengeStore) Consume(ctx context.Context, wallet string) (string, error) {
	message, err := getDelChallenge(ctx, challengeKeyPrefix+wallet)
	if err != nil {
		if IsNil(err) {
			return "", fmt.Errorf("no active challenge for wallet")
		}
		return "", fmt.Errorf("failed to load challenge: %w", err)
	}
	return message, nil
}
