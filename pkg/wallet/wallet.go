package wallet

import (
	"crypto/sha256"
	"errors"
	"regexp"
	"strings"
)

// Chain identifies the address family a wallet string belongs to.
type Chain string

const (
	ChainSolana  Chain = "solana"
	ChainEVM     Chain = "evm"
	ChainUnknown Chain = "unknown"
)

var (
	solanaAddressRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	evmAddressRe    = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// ErrInvalidAddress is returned when an address matches no known chain format.
var ErrInvalidAddress = errors.New("invalid wallet address")

// Classify buckets a raw address string into a chain family.
// Unclassifiable input yields ChainUnknown; callers must treat that as invalid.
func Classify(address string) Chain {
	address = strings.TrimSpace(address)
	switch {
	case evmAddressRe.MatchString(address):
		return ChainEVM
	case solanaAddressRe.MatchString(address):
		return ChainSolana
	default:
		return ChainUnknown
	}
}

// Validate reports whether the address belongs to a supported chain family.
func Validate(address string) bool {
	return Classify(address) != ChainUnknown
}

// IsSolana reports whether the address is in the Solana base58 format.
func IsSolana(address string) bool {
	return Classify(address) == ChainSolana
}

// IdentityKey derives the 32-byte key that seeds all on-chain storage for a
// buyer. The address is trimmed and lower-cased first so different casings of
// the same wallet map to the same allocation account.
func IdentityKey(address string) ([32]byte, error) {
	var key [32]byte
	if !Validate(address) {
		return key, ErrInvalidAddress
	}
	normalized := strings.ToLower(strings.TrimSpace(address))
	key = sha256.Sum256([]byte(normalized))
	return key, nil
}
