package plisio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	cfgpkg "github.com/cardwave/giftpay/pkg/config"
	"github.com/cardwave/giftpay/pkg/types"
)

const (
	// requestTimeout bounds every gateway call; a timeout is reported to the
	// caller as a gateway failure.
	requestTimeout = 10 * time.Second
	// operationsLimit caps the bulk listing used for single-transaction
	// lookups. The provider has no per-id status endpoint, only the listing.
	operationsLimit = 100
)

// ErrMissingAPIKey is returned by NewClient when no gateway API key is
// configured. This is a startup failure, not a per-call error.
var ErrMissingAPIKey = errors.New("plisio: api key is not configured")

// Client wraps the Plisio invoice API. All calls inject the process-wide API
// key and normalize the provider's {status, data, message} envelope.
type Client struct {
	apiKey  string
	baseURL string
	appURL  string
	httpc   *http.Client
	log     *zap.SugaredLogger
}

func NewClient(cfg *cfgpkg.Config, log *zap.SugaredLogger) (*Client, error) {
	if cfg.Gateway.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Client{
		apiKey:  cfg.Gateway.APIKey,
		baseURL: cfg.Gateway.BaseURL,
		appURL:  cfg.AppURL,
		httpc:   &http.Client{Timeout: requestTimeout},
		log:     log,
	}, nil
}

// envelope is the provider's response wrapper. The provider reports errors
// both as a top-level message and nested under data, depending on endpoint.
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (e *envelope) errorMessage() string {
	if e.Message != "" {
		return e.Message
	}
	var nested struct {
		Message string `json:"message"`
	}
	if len(e.Data) > 0 && json.Unmarshal(e.Data, &nested) == nil && nested.Message != "" {
		return nested.Message
	}
	return ""
}

// Invoice is the normalized result of invoice creation.
type Invoice struct {
	TxnID      string
	InvoiceURL string
	// TotalSum is the invoice total as reported by the provider, decimal text.
	TotalSum string
	// Raw preserves every field the provider sent, known or not.
	Raw map[string]any
}

// StatusInfo is the normalized result of a status query.
type StatusInfo struct {
	TxnID  string
	Status types.PaymentStatus
	// Amount is the provider-reported received amount, decimal text.
	Amount string
	Raw    map[string]any
}

// CreateInvoiceRequest carries the caller-controlled invoice fields. Fixed
// gateway parameters (source currency, fee handling, callback URLs, expiry)
// are merged in by the client so callers cannot omit them.
type CreateInvoiceRequest struct {
	OrderNumber string
	OrderName   string
	Amount      decimal.Decimal
	Currency    string
	Email       string
	Description string
	// Extra entries override nothing: base and request fields win.
	Extra map[string]string
}

// CreateInvoice calls GET /invoices/new. Non-success provider status, bad
// payloads, and transport errors all come back as a single gateway error
// carrying the provider message when one exists.
func (c *Client) CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*Invoice, error) {
	if req == nil || req.OrderNumber == "" {
		return nil, fmt.Errorf("plisio: order number is required")
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return nil, fmt.Errorf("plisio: amount must be positive")
	}

	q := url.Values{}
	for k, v := range req.Extra {
		q.Set(k, v)
	}
	// Fixed base parameters. Set after Extra so a caller cannot override them.
	q.Set("api_key", c.apiKey)
	q.Set("source_currency", "USD")
	q.Set("language", "en")
	q.Set("allow_anonymous", "false")
	q.Set("plisio_fee_to_user", "false")
	q.Set("timeout", "1440")
	q.Set("callback_url", c.appURL+"/api/payments/callback")
	q.Set("success_url", c.appURL+"/payment/success?orderId="+url.QueryEscape(req.OrderNumber))
	q.Set("cancel_url", c.appURL+"/payment/cancel?orderId="+url.QueryEscape(req.OrderNumber))

	q.Set("order_number", req.OrderNumber)
	q.Set("amount", req.Amount.String())
	if req.Currency != "" {
		q.Set("currency", req.Currency)
	}
	if req.OrderName != "" {
		q.Set("order_name", req.OrderName)
	}
	if req.Email != "" {
		q.Set("email", req.Email)
	}
	if req.Description != "" {
		q.Set("description", req.Description)
	}

	env, err := c.get(ctx, "/invoices/new", q)
	if err != nil {
		return nil, err
	}

	var data struct {
		TxnID           string `json:"txn_id"`
		InvoiceURL      string `json:"invoice_url"`
		InvoiceTotalSum string `json:"invoice_total_sum"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("plisio: malformed invoice payload: %w", err)
	}
	if data.TxnID == "" {
		return nil, fmt.Errorf("plisio: invoice payload missing txn_id")
	}
	var raw map[string]any
	_ = json.Unmarshal(env.Data, &raw)

	return &Invoice{
		TxnID:      data.TxnID,
		InvoiceURL: data.InvoiceURL,
		TotalSum:   data.InvoiceTotalSum,
		Raw:        raw,
	}, nil
}

// QueryStatus looks up one transaction through GET /operations. The provider
// only exposes a bulk listing, so the client fetches a bounded page filtered
// by the transaction id and locates the entry itself.
func (c *Client) QueryStatus(ctx context.Context, txnID string) (*StatusInfo, error) {
	if txnID == "" {
		return nil, fmt.Errorf("plisio: txn id is required")
	}

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("search", txnID)
	q.Set("limit", fmt.Sprintf("%d", operationsLimit))

	env, err := c.get(ctx, "/operations", q)
	if err != nil {
		return nil, err
	}

	var data struct {
		Operations []json.RawMessage `json:"operations"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("plisio: malformed operations payload: %w", err)
	}

	for _, rawOp := range data.Operations {
		var op struct {
			TxnID  string `json:"txn_id"`
			Status string `json:"status"`
			Amount string `json:"amount"`
		}
		if err := json.Unmarshal(rawOp, &op); err != nil {
			continue
		}
		if op.TxnID != txnID {
			continue
		}
		var raw map[string]any
		_ = json.Unmarshal(rawOp, &raw)
		return &StatusInfo{
			TxnID:  op.TxnID,
			Status: types.NormalizePaymentStatus(op.Status),
			Amount: op.Amount,
			Raw:    raw,
		}, nil
	}
	return nil, fmt.Errorf("plisio: transaction %s not found in operations listing", txnID)
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*envelope, error) {
	u := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("plisio: build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plisio: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("plisio: read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("plisio: malformed response (http %d): %w", resp.StatusCode, err)
	}
	if env.Status != "success" {
		msg := env.errorMessage()
		if msg == "" {
			msg = fmt.Sprintf("provider returned status %q (http %d)", env.Status, resp.StatusCode)
		}
		return nil, fmt.Errorf("plisio: %s", msg)
	}
	return &env, nil
}
