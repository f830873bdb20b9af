package blockchain

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	domain "duck-presale.backend/internal/domain/blockchain"
	domainerrors "duck-presale.backend/internal/domain/errors"
	"duck-presale.backend/pkg/logger"
)

const (
	seedConfig     = "config"
	seedDailyState = "daily_state"
	seedAllocation = "allocation"
	seedVault      = "vault"
	seedNonce      = "nonce"

	defaultConfirmTimeout = 60 * time.Second
)

var confirmPollInterval = 2 * time.Second

// anchor instruction discriminators: sha256("global:<name>")[:8]
var (
	creditAllocationDisc  = anchorDiscriminator("credit_allocation")
	updateDailyConfigDisc = anchorDiscriminator("update_daily_config")
	bindClaimWalletDisc   = anchorDiscriminator("bind_claim_wallet")
	claimDisc             = anchorDiscriminator("claim")
)

func anchorDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:8]
}

// solanaRPC is the slice of the RPC surface the client uses.
type solanaRPC interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// SolanaClient talks to the presale program. All writes are signed by the
// operator key and confirmed before returning.
type SolanaClient struct {
	rpc            solanaRPC
	programID      solana.PublicKey
	admin          solana.PrivateKey
	configPDA      solana.PublicKey
	dailyStatePDA  solana.PublicKey
	confirmTimeout time.Duration
	now            func() time.Time
}

// NewSolanaClient creates a presale program client.
func NewSolanaClient(rpcURL, programID, adminKey string, confirmTimeout time.Duration) (*SolanaClient, error) {
	program, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id: %w", err)
	}
	admin, err := solana.PrivateKeyFromBase58(adminKey)
	if err != nil {
		return nil, fmt.Errorf("invalid admin key: %w", err)
	}
	if confirmTimeout <= 0 {
		confirmTimeout = defaultConfirmTimeout
	}

	c := &SolanaClient{
		rpc:            rpc.New(rpcURL),
		programID:      program,
		admin:          admin,
		confirmTimeout: confirmTimeout,
		now:            time.Now,
	}
	if c.configPDA, _, err = solana.FindProgramAddress([][]byte{[]byte(seedConfig)}, program); err != nil {
		return nil, fmt.Errorf("derive config address: %w", err)
	}
	if c.dailyStatePDA, _, err = solana.FindProgramAddress([][]byte{[]byte(seedDailyState)}, program); err != nil {
		return nil, fmt.Errorf("derive daily state address: %w", err)
	}
	return c, nil
}

func (c *SolanaClient) allocationPDA(identityKey [32]byte) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedAllocation), identityKey[:]}, c.programID)
	return addr, err
}

func (c *SolanaClient) vaultPDA() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedVault), c.configPDA.Bytes()}, c.programID)
	return addr, err
}

func (c *SolanaClient) noncePDA(buyer solana.PublicKey, nonce uint64) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedNonce), buyer.Bytes(), uint64LE(nonce)},
		c.programID,
	)
	return addr, err
}

// GetConfig fetches and parses the program config account.
func (c *SolanaClient) GetConfig(ctx context.Context) (*domain.ConfigSnapshot, error) {
	data, err := c.accountData(ctx, c.configPDA)
	if err != nil {
		return nil, err
	}
	return parseConfig(data)
}

// GetAllocation fetches the buyer's allocation account. ErrNotFound means the
// identity has never been credited.
func (c *SolanaClient) GetAllocation(ctx context.Context, identityKey [32]byte) (*domain.Allocation, error) {
	pda, err := c.allocationPDA(identityKey)
	if err != nil {
		return nil, err
	}
	data, err := c.accountData(ctx, pda)
	if err != nil {
		return nil, err
	}
	return parseAllocation(data)
}

// GetVestingInfo derives the vesting view from config and allocation state.
func (c *SolanaClient) GetVestingInfo(ctx context.Context, identityKey [32]byte) (*domain.VestingInfo, error) {
	cfg, err := c.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	alloc, err := c.GetAllocation(ctx, identityKey)
	if err != nil {
		return nil, err
	}
	return deriveVesting(cfg, alloc, c.now()), nil
}

// CreditAllocation records a settled purchase on-chain and returns the
// confirmed transaction signature.
func (c *SolanaClient) CreditAllocation(ctx context.Context, identityKey [32]byte, tokenAmount, usdAmount uint64, paymentID string) (string, error) {
	allocation, err := c.allocationPDA(identityKey)
	if err != nil {
		return "", err
	}

	data := make([]byte, 0, 8+32+8+8+4+len(paymentID))
	data = append(data, creditAllocationDisc...)
	data = append(data, identityKey[:]...)
	data = append(data, uint64LE(tokenAmount)...)
	data = append(data, uint64LE(usdAmount)...)
	data = append(data, uint32LE(uint32(len(paymentID)))...)
	data = append(data, paymentID...)

	inst := solana.NewInstruction(c.programID, solana.AccountMetaSlice{
		{PublicKey: c.configPDA, IsWritable: true},
		{PublicKey: c.dailyStatePDA, IsWritable: true},
		{PublicKey: allocation, IsWritable: true},
		{PublicKey: c.admin.PublicKey(), IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID},
	}, data)

	sig, err := c.sendAndConfirm(ctx, inst)
	if err != nil {
		return "", err
	}
	logger.Info(ctx, "allocation credited on-chain",
		zap.String("tx", sig),
		zap.Uint64("token_amount", tokenAmount),
		zap.Uint64("usd_amount", usdAmount),
		zap.String("payment_id", paymentID),
	)
	return sig, nil
}

// UpdateDailyConfig pushes a new day's price, TGE percent and cap.
func (c *SolanaClient) UpdateDailyConfig(ctx context.Context, priceUSD uint64, tge uint8, dailyCap uint64) (string, error) {
	data := make([]byte, 0, 8+8+1+8)
	data = append(data, updateDailyConfigDisc...)
	data = append(data, uint64LE(priceUSD)...)
	data = append(data, tge)
	data = append(data, uint64LE(dailyCap)...)

	inst := solana.NewInstruction(c.programID, solana.AccountMetaSlice{
		{PublicKey: c.configPDA, IsWritable: true},
		{PublicKey: c.dailyStatePDA, IsWritable: true},
		{PublicKey: c.admin.PublicKey(), IsSigner: true, IsWritable: true},
	}, data)

	sig, err := c.sendAndConfirm(ctx, inst)
	if err != nil {
		return "", err
	}
	logger.Info(ctx, "daily config updated on-chain",
		zap.String("tx", sig),
		zap.Uint64("price_usd", priceUSD),
		zap.Uint8("tge", tge),
		zap.Uint64("daily_cap", dailyCap),
	)
	return sig, nil
}

// BindClaimWallet sets the claim authority on the buyer's allocation.
func (c *SolanaClient) BindClaimWallet(ctx context.Context, identityKey [32]byte, claimWallet string) (string, error) {
	claim, err := solana.PublicKeyFromBase58(claimWallet)
	if err != nil {
		return "", fmt.Errorf("invalid claim wallet: %w", err)
	}
	allocation, err := c.allocationPDA(identityKey)
	if err != nil {
		return "", err
	}

	data := make([]byte, 0, 8+32+32)
	data = append(data, bindClaimWalletDisc...)
	data = append(data, identityKey[:]...)
	data = append(data, claim.Bytes()...)

	inst := solana.NewInstruction(c.programID, solana.AccountMetaSlice{
		{PublicKey: c.configPDA},
		{PublicKey: allocation, IsWritable: true},
		{PublicKey: c.admin.PublicKey(), IsSigner: true, IsWritable: true},
	}, data)

	sig, err := c.sendAndConfirm(ctx, inst)
	if err != nil {
		return "", err
	}
	logger.Info(ctx, "claim wallet bound on-chain",
		zap.String("tx", sig),
		zap.String("claim_wallet", claimWallet),
	)
	return sig, nil
}

// PrepareClaim builds an unsigned claim transaction for the bound claim
// wallet to sign and submit itself. An empty tokenAccount resolves to the
// destination's associated token account for the presale mint.
func (c *SolanaClient) PrepareClaim(ctx context.Context, identityKey [32]byte, destinationWallet, tokenAccount string) (*domain.UnsignedClaim, error) {
	dest, err := solana.PublicKeyFromBase58(destinationWallet)
	if err != nil {
		return nil, fmt.Errorf("invalid destination wallet: %w", err)
	}
	var tokenAcct solana.PublicKey
	if tokenAccount == "" {
		cfg, err := c.GetConfig(ctx)
		if err != nil {
			return nil, err
		}
		mint, err := solana.PublicKeyFromBase58(cfg.TokenMint)
		if err != nil {
			return nil, fmt.Errorf("invalid token mint in config: %w", err)
		}
		if tokenAcct, _, err = solana.FindAssociatedTokenAddress(dest, mint); err != nil {
			return nil, fmt.Errorf("derive associated token account: %w", err)
		}
		tokenAccount = tokenAcct.String()
	} else if tokenAcct, err = solana.PublicKeyFromBase58(tokenAccount); err != nil {
		return nil, fmt.Errorf("invalid token account: %w", err)
	}
	allocation, err := c.allocationPDA(identityKey)
	if err != nil {
		return nil, err
	}
	vault, err := c.vaultPDA()
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, 8+32)
	data = append(data, claimDisc...)
	data = append(data, identityKey[:]...)

	inst := solana.NewInstruction(c.programID, solana.AccountMetaSlice{
		{PublicKey: c.configPDA, IsWritable: true},
		{PublicKey: allocation, IsWritable: true},
		{PublicKey: vault, IsWritable: true},
		{PublicKey: tokenAcct, IsWritable: true},
		{PublicKey: dest, IsSigner: true, IsWritable: true},
		{PublicKey: solana.TokenProgramID},
	}, data)

	bh, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{inst},
		bh.Value.Blockhash,
		solana.TransactionPayer(dest),
	)
	if err != nil {
		return nil, fmt.Errorf("build claim transaction: %w", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialize claim transaction: %w", err)
	}

	return &domain.UnsignedClaim{
		Transaction:       base64.StdEncoding.EncodeToString(raw),
		DestinationWallet: destinationWallet,
		TokenAccount:      tokenAccount,
		RecentBlockhash:   bh.Value.Blockhash.String(),
	}, nil
}

// IsNonceUsed checks the per-buyer nonce account on-chain.
func (c *SolanaClient) IsNonceUsed(ctx context.Context, wallet string, nonce uint64) (bool, error) {
	buyer, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return false, fmt.Errorf("invalid buyer wallet: %w", err)
	}
	pda, err := c.noncePDA(buyer, nonce)
	if err != nil {
		return false, err
	}
	data, err := c.accountData(ctx, pda)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return len(data) > 8 && data[8] == 1, nil
}

func (c *SolanaClient) accountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	resp, err := c.rpc.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, fmt.Errorf("get account %s: %w", account, err)
	}
	if resp == nil || resp.Value == nil || resp.Value.Data == nil {
		return nil, domainerrors.ErrNotFound
	}
	return resp.Value.Data.GetBinary(), nil
}

func (c *SolanaClient) sendAndConfirm(ctx context.Context, insts ...solana.Instruction) (string, error) {
	bh, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return "", fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(insts, bh.Value.Blockhash, solana.TransactionPayer(c.admin.PublicKey()))
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.admin.PublicKey()) {
			return &c.admin
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	if err := c.waitForConfirmation(ctx, sig); err != nil {
		return "", err
	}
	return sig.String(), nil
}

func (c *SolanaClient) waitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("transaction %s not confirmed within %s: %w", sig, c.confirmTimeout, ctx.Err())
		case <-ticker.C:
			statuses, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
			if err != nil {
				logger.Warn(ctx, "signature status poll failed", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			st := statuses.Value[0]
			if st.Err != nil {
				return fmt.Errorf("transaction %s failed on-chain: %v", sig, st.Err)
			}
			switch st.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
		}
	}
}

type configAccount struct {
	Admin            solana.PublicKey
	TokenMint        solana.PublicKey
	PriceUSD         uint64
	TGE              uint8
	StartTime        int64
	DailyCap         uint64
	TotalSold        uint64
	PresaleSupply    uint64
	TotalBurned      uint64
	Status           uint8
	TotalRaisedUSD   uint64
	SoldToday        uint64
	GlobalUnlockPct  uint8
	VestingStartTime int64
	CliffDuration    int64
	VestingDuration  int64
}

// discriminator plus the fixed-size config layout
const configAccountLen = 8 + 32 + 32 + 8 + 1 + 8 + 8 + 8 + 8 + 8 + 1 + 8 + 8 + 1 + 8 + 8 + 8

func parseConfig(data []byte) (*domain.ConfigSnapshot, error) {
	if len(data) < configAccountLen {
		// a truncated account is one the program never initialized
		return nil, fmt.Errorf("%w: config account has %d bytes", domainerrors.ErrNotFound, len(data))
	}
	var acc configAccount
	if err := bin.NewBinDecoder(data[8:]).Decode(&acc); err != nil {
		return nil, fmt.Errorf("decode config account: %w", err)
	}
	return &domain.ConfigSnapshot{
		Admin:            acc.Admin.String(),
		TokenMint:        acc.TokenMint.String(),
		PriceUSD:         acc.PriceUSD,
		TGE:              acc.TGE,
		StartTime:        acc.StartTime,
		DailyCap:         acc.DailyCap,
		TotalSold:        acc.TotalSold,
		PresaleSupply:    acc.PresaleSupply,
		TotalBurned:      acc.TotalBurned,
		Status:           domain.ContractStatus(acc.Status),
		TotalRaisedUSD:   acc.TotalRaisedUSD,
		SoldToday:        acc.SoldToday,
		GlobalUnlockPct:  acc.GlobalUnlockPct,
		VestingStartTime: acc.VestingStartTime,
		CliffDuration:    acc.CliffDuration,
		VestingDuration:  acc.VestingDuration,
	}, nil
}

type allocationAccount struct {
	Purchased     uint64
	Claimed       uint64
	Claimable     uint64
	Vesting       uint64
	LastUnlockPct uint8
}

// discriminator plus four u64 counters and the unlock pct
const allocationAccountLen = 8 + 8*4 + 1

func parseAllocation(data []byte) (*domain.Allocation, error) {
	if len(data) < allocationAccountLen {
		return nil, fmt.Errorf("%w: allocation account has %d bytes", domainerrors.ErrNotFound, len(data))
	}
	var acc allocationAccount
	if err := bin.NewBinDecoder(data[8:]).Decode(&acc); err != nil {
		return nil, fmt.Errorf("decode allocation account: %w", err)
	}

	alloc := &domain.Allocation{
		Purchased:     acc.Purchased,
		Claimed:       acc.Claimed,
		Claimable:     acc.Claimable,
		Vesting:       acc.Vesting,
		LastUnlockPct: acc.LastUnlockPct,
	}

	// claim authority is an optional trailing field on older accounts
	if len(data) >= allocationAccountLen+32 {
		authority := solana.PublicKeyFromBytes(data[allocationAccountLen : allocationAccountLen+32])
		if !authority.IsZero() {
			alloc.ClaimAuthority = authority.String()
		}
	}
	return alloc, nil
}

// deriveVesting evaluates the config's vesting schedule at the given instant.
// Nothing vests before the cliff ends, everything is vested once the vesting
// window has fully elapsed, and the amount grows linearly in between.
func deriveVesting(cfg *domain.ConfigSnapshot, alloc *domain.Allocation, now time.Time) *domain.VestingInfo {
	info := &domain.VestingInfo{
		Purchased: alloc.Purchased,
		Claimed:   alloc.Claimed,
	}
	if alloc.Purchased == 0 || cfg.VestingStartTime == 0 {
		return info
	}

	cliffEnd := cfg.VestingStartTime + cfg.CliffDuration
	vestingEnd := cfg.VestingStartTime + cfg.VestingDuration
	ts := now.Unix()

	var vested uint64
	switch {
	case ts < cliffEnd:
		vested = 0
	case ts >= vestingEnd:
		vested = alloc.Purchased
	default:
		// split to keep purchased*elapsed inside uint64 range
		elapsed := uint64(ts - cfg.VestingStartTime)
		period := uint64(cfg.VestingDuration)
		vested = alloc.Purchased / period * elapsed
		vested += alloc.Purchased % period * elapsed / period
	}

	info.Vested = vested
	if vested > alloc.Claimed {
		info.Claimable = vested - alloc.Claimed
	}
	info.VestedPercent = math.Round(float64(vested)/float64(alloc.Purchased)*10000) / 100
	return info
}

func uint64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func uint32LE(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
