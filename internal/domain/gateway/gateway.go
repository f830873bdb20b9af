package gateway

import "context"

// InvoiceRequest opens a hosted invoice at the payment gateway.
type InvoiceRequest struct {
	PriceAmount      float64 `json:"price_amount"`
	PriceCurrency    string  `json:"price_currency"`
	PayCurrency      string  `json:"pay_currency,omitempty"`
	OrderID          string  `json:"order_id"`
	OrderDescription string  `json:"order_description,omitempty"`
	IPNCallbackURL   string  `json:"ipn_callback_url"`
	SuccessURL       string  `json:"success_url,omitempty"`
	CancelURL        string  `json:"cancel_url,omitempty"`
}

// Invoice is the gateway's created-invoice response.
type Invoice struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	InvoiceURL string `json:"invoice_url"`
	CreatedAt  string `json:"created_at"`
}

// PaymentStatus is the gateway's view of one payment.
type PaymentStatus struct {
	PaymentID     int64   `json:"payment_id"`
	PaymentStatus string  `json:"payment_status"`
	PayAddress    string  `json:"pay_address"`
	PriceAmount   float64 `json:"price_amount"`
	PriceCurrency string  `json:"price_currency"`
	PayAmount     float64 `json:"pay_amount"`
	ActuallyPaid  float64 `json:"actually_paid"`
	PayCurrency   string  `json:"pay_currency"`
	OrderID       string  `json:"order_id"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// Estimate is a fiat-to-crypto conversion quote.
type Estimate struct {
	CurrencyFrom    string  `json:"currency_from"`
	AmountFrom      float64 `json:"amount_from"`
	CurrencyTo      string  `json:"currency_to"`
	EstimatedAmount float64 `json:"estimated_amount"`
}

// Gateway is the payment provider surface the invoice and settlement flows
// depend on.
type Gateway interface {
	Status(ctx context.Context) error
	Currencies(ctx context.Context) ([]string, error)
	Estimate(ctx context.Context, amount float64, from, to string) (*Estimate, error)
	MinAmount(ctx context.Context, from, to string) (float64, error)
	CreateInvoice(ctx context.Context, req *InvoiceRequest) (*Invoice, error)
	GetPaymentStatus(ctx context.Context, paymentID int64) (*PaymentStatus, error)
}
