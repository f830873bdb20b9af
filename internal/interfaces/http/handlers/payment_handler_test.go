package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"duck-presale.backend/internal/usecases"
)

func newPaymentRouter() *gin.Engine {
	h := NewPaymentHandler(&usecases.InvoiceUsecase{})
	r := gin.New()
	r.POST("/invoice", h.CreateInvoice)
	r.GET("/payments", h.ListPayments)
	r.GET("/payments/:id", h.GetPayment)
	r.GET("/estimate", h.Estimate)
	return r
}

func TestCreateInvoice_BindingErrors(t *testing.T) {
	r := newPaymentRouter()

	for _, body := range []string{"", "{}", `{"walletAddress":"0xabc"}`, "not json"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/invoice", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body=%q", body)
	}
}

func TestGetPayment_InvalidID(t *testing.T) {
	r := newPaymentRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/payments/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPayments_RequiresWallet(t *testing.T) {
	r := newPaymentRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/payments", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEstimate_RequiresNumericAmount(t *testing.T) {
	r := newPaymentRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/estimate?amount=abc&currency=eth", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
