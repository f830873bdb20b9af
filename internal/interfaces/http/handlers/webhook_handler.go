package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"duck-presale.backend/internal/domain/entities"
	domainerrors "duck-presale.backend/internal/domain/errors"
	"duck-presale.backend/internal/interfaces/http/response"
	"duck-presale.backend/internal/metrics"
	"duck-presale.backend/internal/usecases"
	"duck-presale.backend/pkg/logger"
)

// SignatureHeader carries the gateway's HMAC over the webhook body.
const SignatureHeader = "x-nowpayments-sig"

// WebhookHandler receives gateway IPN deliveries.
type WebhookHandler struct {
	settlement *usecases.SettlementUsecase
}

func NewWebhookHandler(settlement *usecases.SettlementUsecase) *WebhookHandler {
	return &WebhookHandler{settlement: settlement}
}

// HandleIPN verifies and applies one webhook delivery. The gateway retries on
// non-2xx, so transient failures return 500 and permanent conditions return
// 200 to stop the redelivery loop.
func (h *WebhookHandler) HandleIPN(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues(metrics.OutcomeRejected).Inc()
		response.Error(c, domainerrors.BadRequest("unreadable body"))
		return
	}

	if err := h.settlement.VerifyIPNSignature(body, c.GetHeader(SignatureHeader)); err != nil {
		metrics.WebhookDeliveries.WithLabelValues(metrics.OutcomeRejected).Inc()
		logger.Warn(c.Request.Context(), "rejected webhook delivery",
			zap.String("remote", c.ClientIP()),
			zap.Error(err),
		)
		response.Error(c, domainerrors.Forbidden("invalid webhook signature"))
		return
	}

	var payload entities.IPNPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.WebhookDeliveries.WithLabelValues(metrics.OutcomeRejected).Inc()
		response.Error(c, domainerrors.BadRequest("malformed webhook payload"))
		return
	}

	if err := h.settlement.ProcessIPN(c.Request.Context(), &payload); err != nil {
		// an order id we never issued is not ours to settle; acknowledge so
		// the gateway stops redelivering
		if errors.Is(err, domainerrors.ErrNotFound) {
			metrics.WebhookDeliveries.WithLabelValues(metrics.OutcomeIgnored).Inc()
			logger.Warn(c.Request.Context(), "webhook for unknown order",
				zap.String("order_id", payload.OrderID),
			)
			response.Success(c, http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		metrics.WebhookDeliveries.WithLabelValues(metrics.OutcomeError).Inc()
		logger.Error(c.Request.Context(), "webhook processing failed",
			zap.String("order_id", payload.OrderID),
			zap.Error(err),
		)
		response.Error(c, domainerrors.InternalError(err))
		return
	}

	metrics.WebhookDeliveries.WithLabelValues(metrics.OutcomeProcessed).Inc()
	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}
