package blockchain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	domain "duck-presale.backend/internal/domain/blockchain"
)

// purchase authorization message: "PRESALE_V1" + program(32) + buyer(32) +
// payment mint(32) + type(1) + payment amount(8) + token amount(8) + nonce(8)
const (
	messagePrefix = "PRESALE_V1"
	messageLength = len(messagePrefix) + 32 + 32 + 32 + 1 + 8 + 8 + 8
)

// SolanaSigner signs purchase authorizations with the program's authorized
// signer key. Purely computational.
type SolanaSigner struct {
	key       solana.PrivateKey
	programID solana.PublicKey
	usdtMint  solana.PublicKey
	usdcMint  solana.PublicKey
}

// NewSolanaSigner creates a purchase authorization signer.
func NewSolanaSigner(privateKey, programID, usdtMint, usdcMint string) (*SolanaSigner, error) {
	key, err := solana.PrivateKeyFromBase58(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}
	program, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id: %w", err)
	}
	usdt, err := solana.PublicKeyFromBase58(usdtMint)
	if err != nil {
		return nil, fmt.Errorf("invalid USDT mint: %w", err)
	}
	usdc, err := solana.PublicKeyFromBase58(usdcMint)
	if err != nil {
		return nil, fmt.Errorf("invalid USDC mint: %w", err)
	}
	return &SolanaSigner{key: key, programID: program, usdtMint: usdt, usdcMint: usdc}, nil
}

// SignPurchase builds and signs the authorization message for one purchase.
func (s *SolanaSigner) SignPurchase(params domain.PurchaseParams) (*domain.Authorization, error) {
	buyer, err := solana.PublicKeyFromBase58(params.Buyer)
	if err != nil {
		return nil, fmt.Errorf("invalid buyer wallet: %w", err)
	}
	mint, err := s.paymentMint(params.PaymentType)
	if err != nil {
		return nil, err
	}

	message := make([]byte, 0, messageLength)
	message = append(message, messagePrefix...)
	message = append(message, s.programID.Bytes()...)
	message = append(message, buyer.Bytes()...)
	message = append(message, mint.Bytes()...)
	message = append(message, byte(params.PaymentType))
	message = append(message, uint64LE(params.PaymentAmount)...)
	message = append(message, uint64LE(params.TokenAmount)...)
	message = append(message, uint64LE(params.Nonce)...)

	sig, err := s.key.Sign(message)
	if err != nil {
		return nil, fmt.Errorf("sign purchase message: %w", err)
	}

	return &domain.Authorization{
		Signature:       base58.Encode(sig[:]),
		Message:         base58.Encode(message),
		SignerPublicKey: s.key.PublicKey().String(),
		Nonce:           params.Nonce,
	}, nil
}

// paymentMint maps a payment type to the mint committed in the message.
// Native SOL uses the zero key.
func (s *SolanaSigner) paymentMint(t domain.PaymentType) (solana.PublicKey, error) {
	switch t {
	case domain.PaymentTypeSOL:
		return solana.PublicKey{}, nil
	case domain.PaymentTypeUSDT:
		return s.usdtMint, nil
	case domain.PaymentTypeUSDC:
		return s.usdcMint, nil
	default:
		return solana.PublicKey{}, fmt.Errorf("unknown payment type %d", t)
	}
}
