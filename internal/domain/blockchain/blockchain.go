package blockchain

import "context"

// ContractStatus is the lifecycle stage stored in the on-chain config account.
type ContractStatus uint8

const (
	StatusPresaleActive ContractStatus = 0
	StatusPresaleEnded  ContractStatus = 1
	StatusTokenLaunched ContractStatus = 2
)

func (s ContractStatus) String() string {
	switch s {
	case StatusPresaleActive:
		return "presale_active"
	case StatusPresaleEnded:
		return "presale_ended"
	case StatusTokenLaunched:
		return "token_launched"
	default:
		return "unknown"
	}
}

// ConfigSnapshot is the parsed on-chain presale config account.
type ConfigSnapshot struct {
	Admin            string         `json:"admin"`
	TokenMint        string         `json:"tokenMint"`
	PriceUSD         uint64         `json:"priceUsd"` // USD × 10^9
	TGE              uint8          `json:"tge"`
	StartTime        int64          `json:"startTime"` // unix seconds
	DailyCap         uint64         `json:"dailyCap"`
	TotalSold        uint64         `json:"totalSold"`
	PresaleSupply    uint64         `json:"presaleSupply"`
	TotalBurned      uint64         `json:"totalBurned"`
	Status           ContractStatus `json:"status"`
	TotalRaisedUSD   uint64         `json:"totalRaisedUsd"`
	SoldToday        uint64         `json:"soldToday"`
	GlobalUnlockPct  uint8          `json:"globalUnlockPct"`
	VestingStartTime int64          `json:"vestingStartTime"` // unix seconds, 0 = not scheduled
	CliffDuration    int64          `json:"cliffDuration"`    // seconds
	VestingDuration  int64          `json:"vestingDuration"`  // seconds
}

// Allocation is the parsed per-buyer allocation account.
type Allocation struct {
	Purchased      uint64 `json:"purchased"`
	Claimed        uint64 `json:"claimed"`
	Claimable      uint64 `json:"claimable"`
	Vesting        uint64 `json:"vesting"`
	LastUnlockPct  uint8  `json:"lastUnlockPct"`
	ClaimAuthority string `json:"claimAuthority"`
}

// VestingInfo is the derived vesting view for one buyer.
type VestingInfo struct {
	Purchased     uint64  `json:"purchased"`
	Claimed       uint64  `json:"claimed"`
	Vested        uint64  `json:"vested"`
	Claimable     uint64  `json:"claimable"`
	VestedPercent float64 `json:"vestedPercent"` // 2-decimal display value
}

// UnsignedClaim is a claim transaction prepared for client-side signing.
type UnsignedClaim struct {
	Transaction       string `json:"transaction"` // base64 serialized, unsigned
	DestinationWallet string `json:"destinationWallet"`
	TokenAccount      string `json:"tokenAccount"`
	RecentBlockhash   string `json:"recentBlockhash"`
}

// PaymentType tags the currency of a signed purchase authorization.
type PaymentType uint8

const (
	PaymentTypeSOL  PaymentType = 0
	PaymentTypeUSDT PaymentType = 1
	PaymentTypeUSDC PaymentType = 2
)

// PurchaseParams are the inputs of a purchase authorization signature.
type PurchaseParams struct {
	Buyer         string
	PaymentType   PaymentType
	PaymentAmount uint64 // smallest units of the payment currency
	TokenAmount   uint64 // smallest token units
	Nonce         uint64
}

// Authorization is a signed purchase message the buyer submits on-chain.
type Authorization struct {
	Signature       string `json:"signature"` // base58
	Message         string `json:"message"`   // base58 of the signed bytes
	SignerPublicKey string `json:"signerPublicKey"`
	Nonce           uint64 `json:"nonce"`
}

// Service is the chain capability set the settlement pipeline depends on.
// Reads distinguish expected absence (domain errors.ErrNotFound) from real
// failure; writes confirm before returning.
type Service interface {
	GetConfig(ctx context.Context) (*ConfigSnapshot, error)
	GetAllocation(ctx context.Context, identityKey [32]byte) (*Allocation, error)
	GetVestingInfo(ctx context.Context, identityKey [32]byte) (*VestingInfo, error)
	CreditAllocation(ctx context.Context, identityKey [32]byte, tokenAmount, usdAmount uint64, paymentID string) (string, error)
	UpdateDailyConfig(ctx context.Context, priceUSD uint64, tge uint8, dailyCap uint64) (string, error)
	BindClaimWallet(ctx context.Context, identityKey [32]byte, claimWallet string) (string, error)
	PrepareClaim(ctx context.Context, identityKey [32]byte, destinationWallet, tokenAccount string) (*UnsignedClaim, error)
	IsNonceUsed(ctx context.Context, wallet string, nonce uint64) (bool, error)
}

// Signer produces purchase authorizations with the chain's native signature
// scheme. Purely computational, no I/O.
type Signer interface {
	SignPurchase(params PurchaseParams) (*Authorization, error)
}

// NonceManager issues and tracks single-use purchase nonces.
type NonceManager interface {
	Generate(ctx context.Context, wallet string) (uint64, error)
	IsAvailable(ctx context.Context, wallet string, nonce uint64) (bool, error)
	MarkPending(ctx context.Context, wallet string, nonce uint64) error
	MarkUsed(ctx context.Context, wallet string, nonce uint64) error
}
