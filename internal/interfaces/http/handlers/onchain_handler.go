package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainerrors "duck-presale.backend/internal/domain/errors"
	"duck-presale.backend/internal/interfaces/http/response"
	"duck-presale.backend/internal/usecases"
)

// OnchainHandler exposes chain reads and the claim-wallet binding flow.
type OnchainHandler struct {
	onchain *usecases.OnchainUsecase
}

func NewOnchainHandler(onchain *usecases.OnchainUsecase) *OnchainHandler {
	return &OnchainHandler{onchain: onchain}
}

// GetConfig handles GET /onchain/config
func (h *OnchainHandler) GetConfig(c *gin.Context) {
	cfg, err := h.onchain.GetConfig(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, cfg)
}

// GetStats handles GET /stats
func (h *OnchainHandler) GetStats(c *gin.Context) {
	stats, err := h.onchain.GetStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// GetAllocation handles GET /allocation/:wallet
func (h *OnchainHandler) GetAllocation(c *gin.Context) {
	alloc, err := h.onchain.GetAllocation(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, alloc)
}

// GetVesting handles GET /vesting/:wallet
func (h *OnchainHandler) GetVesting(c *gin.Context) {
	info, err := h.onchain.GetVesting(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, info)
}

type bindChallengeRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	ClaimWallet   string `json:"claimWallet" binding:"required"`
}

// RequestBindChallenge handles POST /claim-wallet/challenge
func (h *OnchainHandler) RequestBindChallenge(c *gin.Context) {
	var req bindChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request body: "+err.Error()))
		return
	}

	message, err := h.onchain.RequestBindChallenge(c.Request.Context(), req.WalletAddress, req.ClaimWallet)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": message})
}

type bindClaimWalletRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	ClaimWallet   string `json:"claimWallet" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
}

// BindClaimWallet handles POST /claim-wallet/bind
func (h *OnchainHandler) BindClaimWallet(c *gin.Context) {
	var req bindClaimWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request body: "+err.Error()))
		return
	}

	tx, err := h.onchain.BindClaimWallet(c.Request.Context(), req.WalletAddress, req.ClaimWallet, req.Signature)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"transaction": tx})
}

type prepareClaimRequest struct {
	WalletAddress     string `json:"walletAddress" binding:"required"`
	DestinationWallet string `json:"destinationWallet"`
	TokenAccount      string `json:"tokenAccount"`
}

// PrepareClaim handles POST /claim/prepare
func (h *OnchainHandler) PrepareClaim(c *gin.Context) {
	var req prepareClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request body: "+err.Error()))
		return
	}

	claim, err := h.onchain.PrepareClaim(c.Request.Context(), req.WalletAddress, req.DestinationWallet, req.TokenAccount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, claim)
}
