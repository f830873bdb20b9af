package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainerrors "duck-presale.backend/internal/domain/errors"
	"duck-presale.backend/internal/interfaces/http/response"
	"duck-presale.backend/internal/usecases"
)

// AuthorizationHandler exposes server-signed direct purchase authorizations.
type AuthorizationHandler struct {
	auth *usecases.AuthorizationUsecase
}

func NewAuthorizationHandler(auth *usecases.AuthorizationUsecase) *AuthorizationHandler {
	return &AuthorizationHandler{auth: auth}
}

// AuthorizePurchase handles POST /purchase/authorize
func (h *AuthorizationHandler) AuthorizePurchase(c *gin.Context) {
	var input usecases.AuthorizePurchaseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request body: "+err.Error()))
		return
	}

	auth, err := h.auth.AuthorizePurchase(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, auth)
}

// CheckNonce handles GET /purchase/nonce/:wallet/:nonce
func (h *AuthorizationHandler) CheckNonce(c *gin.Context) {
	nonce, err := strconv.ParseUint(c.Param("nonce"), 10, 64)
	if err != nil {
		response.Error(c, domainerrors.BadRequest("nonce must be a number"))
		return
	}

	available, err := h.auth.CheckNonce(c.Request.Context(), c.Param("wallet"), nonce)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"available": available})
}

type confirmPurchaseRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	Nonce         uint64 `json:"nonce" binding:"required"`
}

// ConfirmPurchase handles POST /purchase/confirm
func (h *AuthorizationHandler) ConfirmPurchase(c *gin.Context) {
	var req confirmPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request body: "+err.Error()))
		return
	}

	used, err := h.auth.ConfirmPurchase(c.Request.Context(), req.WalletAddress, req.Nonce)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"confirmed": used})
}
