package blockchain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	domainerrors "duck-presale.backend/internal/domain/errors"
)

// VerifyEVMSignature checks a personal_sign signature over message and
// confirms the recovered address matches wallet.
func VerifyEVMSignature(wallet, message, signature string) error {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature encoding", domainerrors.ErrInvalidSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: signature must be %d bytes", domainerrors.ErrInvalidSignature, crypto.SignatureLength)
	}

	// wallets emit V as 27/28, go-ethereum expects 0/1
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return fmt.Errorf("%w: signature recovery failed", domainerrors.ErrInvalidSignature)
	}

	recovered := crypto.PubkeyToAddress(*pub)
	if !strings.EqualFold(recovered.Hex(), wallet) {
		return domainerrors.ErrInvalidSignature
	}
	return nil
}
