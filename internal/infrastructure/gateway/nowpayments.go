package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	domainerrors "duck-presale.backend/internal/domain/errors"
	domain "duck-presale.backend/internal/domain/gateway"
	"duck-presale.backend/pkg/logger"
)

const requestTimeout = 30 * time.Second

// NOWPaymentsClient talks to the NOWPayments REST API.
type NOWPaymentsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewNOWPaymentsClient creates a gateway client.
func NewNOWPaymentsClient(apiKey, baseURL string) *NOWPaymentsClient {
	return &NOWPaymentsClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Status checks API availability.
func (c *NOWPaymentsClient) Status(ctx context.Context) error {
	var out struct {
		Message string `json:"message"`
	}
	return c.get(ctx, "/status", nil, &out)
}

// Currencies returns the tickers the gateway currently accepts.
func (c *NOWPaymentsClient) Currencies(ctx context.Context) ([]string, error) {
	var out struct {
		Currencies []string `json:"currencies"`
	}
	if err := c.get(ctx, "/currencies", nil, &out); err != nil {
		return nil, err
	}
	return out.Currencies, nil
}

// Estimate quotes the crypto amount for a fiat price.
func (c *NOWPaymentsClient) Estimate(ctx context.Context, amount float64, from, to string) (*domain.Estimate, error) {
	q := url.Values{}
	q.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	q.Set("currency_from", from)
	q.Set("currency_to", to)

	var out domain.Estimate
	if err := c.get(ctx, "/estimate", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MinAmount returns the smallest payable amount for a currency pair.
func (c *NOWPaymentsClient) MinAmount(ctx context.Context, from, to string) (float64, error) {
	q := url.Values{}
	q.Set("currency_from", from)
	q.Set("currency_to", to)

	var out struct {
		MinAmount float64 `json:"min_amount"`
	}
	if err := c.get(ctx, "/min-amount", q, &out); err != nil {
		return 0, err
	}
	return out.MinAmount, nil
}

// CreateInvoice opens a hosted invoice and returns its redirect URL.
func (c *NOWPaymentsClient) CreateInvoice(ctx context.Context, req *domain.InvoiceRequest) (*domain.Invoice, error) {
	var out domain.Invoice
	if err := c.post(ctx, "/invoice", req, &out); err != nil {
		return nil, err
	}
	logger.Info(ctx, "gateway invoice created",
		zap.String("invoice_id", out.ID),
		zap.String("order_id", req.OrderID),
	)
	return &out, nil
}

// GetPaymentStatus fetches the gateway's current view of a payment.
func (c *NOWPaymentsClient) GetPaymentStatus(ctx context.Context, paymentID int64) (*domain.PaymentStatus, error) {
	var out domain.PaymentStatus
	if err := c.get(ctx, "/payment/"+strconv.FormatInt(paymentID, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *NOWPaymentsClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *NOWPaymentsClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *NOWPaymentsClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrGatewayFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domainerrors.ErrGatewayFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn(req.Context(), "gateway request rejected",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return fmt.Errorf("%w: %s returned %d: %s", domainerrors.ErrGatewayFailure, req.URL.Path, resp.StatusCode, body)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", domainerrors.ErrGatewayFailure, err)
		}
	}
	return nil
}
