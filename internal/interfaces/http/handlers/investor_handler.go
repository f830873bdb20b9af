package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainerrors "duck-presale.backend/internal/domain/errors"
	"duck-presale.backend/internal/interfaces/http/response"
	"duck-presale.backend/internal/usecases"
)

// InvestorHandler exposes investor aggregates, referrals and pricing info.
type InvestorHandler struct {
	investors *usecases.InvestorUsecase
}

func NewInvestorHandler(investors *usecases.InvestorUsecase) *InvestorHandler {
	return &InvestorHandler{investors: investors}
}

// GetInvestor handles GET /investors/:wallet
func (h *InvestorHandler) GetInvestor(c *gin.Context) {
	investor, err := h.investors.GetInvestor(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, investor)
}

// Leaderboard handles GET /leaderboard?page=...&limit=...
func (h *InvestorHandler) Leaderboard(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))

	board, err := h.investors.Leaderboard(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, board)
}

type createReferralCodeRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	Code          string `json:"code" binding:"required"`
}

// CreateReferralCode handles POST /referral/code
func (h *InvestorHandler) CreateReferralCode(c *gin.Context) {
	var req createReferralCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request body: "+err.Error()))
		return
	}

	if err := h.investors.CreateReferralCode(c.Request.Context(), req.WalletAddress, req.Code); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"code": req.Code})
}

// GetReferralStats handles GET /referral/:wallet
func (h *InvestorHandler) GetReferralStats(c *gin.Context) {
	stats, err := h.investors.GetReferralStats(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// GetPriceInfo handles GET /price
func (h *InvestorHandler) GetPriceInfo(c *gin.Context) {
	response.Success(c, http.StatusOK, h.investors.GetPriceInfo(c.Request.Context()))
}
