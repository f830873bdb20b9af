package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"duck-presale.backend/internal/domain/entities"
	domainerrors "duck-presale.backend/internal/domain/errors"
	"duck-presale.backend/internal/interfaces/http/response"
	"duck-presale.backend/internal/usecases"
	"duck-presale.backend/pkg/utils"
)

// PaymentHandler exposes invoice creation and payment lookups.
type PaymentHandler struct {
	invoices *usecases.InvoiceUsecase
}

func NewPaymentHandler(invoices *usecases.InvoiceUsecase) *PaymentHandler {
	return &PaymentHandler{invoices: invoices}
}

// CreateInvoice handles POST /invoice
func (h *PaymentHandler) CreateInvoice(c *gin.Context) {
	var input entities.CreateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request body: "+err.Error()))
		return
	}

	resp, err := h.invoices.CreateInvoice(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp)
}

// GetPayment handles GET /payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid payment id"))
		return
	}

	payment, err := h.invoices.GetPayment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, payment)
}

// ListPayments handles GET /payments?wallet=...&page=...&limit=...
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" {
		response.Error(c, domainerrors.BadRequest("wallet query parameter is required"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	params := utils.GetPaginationParams(page, limit)

	payments, total, err := h.invoices.ListPayments(c.Request.Context(), wallet, params.Limit, params.CalculateOffset())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"payments": payments,
		"meta":     utils.CalculateMeta(int64(total), params.Page, params.Limit),
	})
}

// GatewayStatus handles GET /gateway/status
func (h *PaymentHandler) GatewayStatus(c *gin.Context) {
	if err := h.invoices.GatewayStatus(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"gateway": "ok"})
}

// Currencies handles GET /currencies
func (h *PaymentHandler) Currencies(c *gin.Context) {
	currencies, err := h.invoices.GatewayCurrencies(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"currencies": currencies})
}

// Estimate handles GET /estimate?amount=...&currency=...
func (h *PaymentHandler) Estimate(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		response.Error(c, domainerrors.BadRequest("amount must be a number"))
		return
	}

	est, err := h.invoices.EstimatePayAmount(c.Request.Context(), amount, c.Query("currency"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, est)
}
