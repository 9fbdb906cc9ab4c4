package hubble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/cardwave/giftpay/pkg/config"
	"github.com/cardwave/giftpay/pkg/types"
)

const requestTimeout = 15 * time.Second

// TokenSource supplies the partner API bearer token. Implemented by the
// token service; the login job keeps the underlying row fresh.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client wraps the partner gift-card order API.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenSource
	log     *zap.SugaredLogger
}

func NewClient(cfg *cfgpkg.Config, tokens TokenSource, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: cfg.Partner.BaseURL,
		httpc:   &http.Client{Timeout: requestTimeout},
		tokens:  tokens,
		log:     log,
	}
}

// LoginResponse is the partner auth payload. Different partner versions have
// shipped the token under different field names.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	Token       string `json:"token"`
}

func (r *LoginResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

// Login exchanges client credentials for a bearer token. Unlike the other
// calls it is unauthenticated and used only by the token refresh job.
func (c *Client) Login(ctx context.Context, clientID, clientSecret string) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"clientId":     clientID,
		"clientSecret": clientSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/partners/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("hubble: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("hubble: login failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("hubble: read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("hubble: login returned http %d: %s", resp.StatusCode, string(raw))
	}

	var lr LoginResponse
	if err := json.Unmarshal(raw, &lr); err != nil {
		return "", fmt.Errorf("hubble: malformed login response: %w", err)
	}
	if lr.BearerToken() == "" {
		return "", fmt.Errorf("hubble: no token in login response")
	}
	return lr.BearerToken(), nil
}

// DenominationDetail is one denomination line of an order.
type DenominationDetail struct {
	Denomination string `json:"denomination"`
	Quantity     int    `json:"quantity"`
}

type CustomerDetails struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
}

type RecipientDetails struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

// OrderRequest is the partner order placement payload.
type OrderRequest struct {
	ProductID           string               `json:"productId"`
	ReferenceID         string               `json:"referenceId"`
	Amount              string               `json:"amount"`
	DenominationDetails []DenominationDetail `json:"denominationDetails"`
	CustomerDetails     CustomerDetails      `json:"customerDetails"`
	RecipientDetails    RecipientDetails     `json:"recipientDetails"`
}

// OrderResponse is the partner's reply. Vouchers is empty when the order is
// still processing or has failed; FailureReason is set on rejection.
type OrderResponse struct {
	ID            string                `json:"id"`
	ReferenceID   string                `json:"referenceId"`
	Status        string                `json:"status"`
	Vouchers      []types.VoucherDetail `json:"-"`
	FailureReason string                `json:"failureReason"`
	Raw           map[string]any        `json:"-"`
}

// PlaceOrder calls POST /v1/partners/orders with the current bearer token.
func (c *Client) PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	if req == nil || req.ProductID == "" || req.ReferenceID == "" {
		return nil, fmt.Errorf("hubble: productId and referenceId are required")
	}

	raw, err := c.do(ctx, http.MethodPost, "/v1/partners/orders", req)
	if err != nil {
		return nil, err
	}

	var out OrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("hubble: malformed order response: %w", err)
	}
	_ = json.Unmarshal(raw, &out.Raw)
	out.Vouchers = parseVouchers(raw)
	return &out, nil
}

// GetOrder reads an order back by partner id. The payload is returned raw:
// the proxy routes forward it untouched.
func (c *Client) GetOrder(ctx context.Context, orderID string) (map[string]any, error) {
	return c.getRaw(ctx, "/v1/partners/orders/"+orderID)
}

// GetOrderByReference reads an order back by our reference id.
func (c *Client) GetOrderByReference(ctx context.Context, referenceID string) (map[string]any, error) {
	return c.getRaw(ctx, "/v1/partners/orders/by-reference/"+referenceID)
}

// GetVoucher reads a single voucher by partner voucher id.
func (c *Client) GetVoucher(ctx context.Context, voucherID string) (map[string]any, error) {
	return c.getRaw(ctx, "/v1/partners/orders/vouchers/"+voucherID)
}

// GetBrands lists the partner gift-card catalog.
func (c *Client) GetBrands(ctx context.Context) ([]map[string]any, error) {
	raw, err := c.do(ctx, http.MethodGet, "/v1/partners/brands", nil)
	if err != nil {
		return nil, err
	}
	// The partner has shipped both a bare array and a {brands: []} wrapper.
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Brands []map[string]any `json:"brands"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("hubble: malformed brands response: %w", err)
	}
	return wrapped.Brands, nil
}

func (c *Client) getRaw(ctx context.Context, path string) (map[string]any, error) {
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("hubble: malformed response: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("hubble: no partner token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("hubble: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("hubble: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hubble: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hubble: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("hubble: %s %s returned http %d: %s", method, path, resp.StatusCode, string(raw))
	}
	return raw, nil
}

// parseVouchers pulls the voucher list out of an order payload, tolerating
// absent or partial entries.
func parseVouchers(raw json.RawMessage) []types.VoucherDetail {
	var probe struct {
		Vouchers []map[string]any `json:"vouchers"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || len(probe.Vouchers) == 0 {
		return nil
	}
	out := make([]types.VoucherDetail, 0, len(probe.Vouchers))
	for _, v := range probe.Vouchers {
		out = append(out, types.VoucherDetail{
			ID:         str(v["id"]),
			CardType:   str(v["cardType"]),
			CardNumber: str(v["cardNumber"]),
			CardPin:    str(v["cardPin"]),
			ValidTill:  str(v["validTill"]),
			Amount:     str(v["amount"]),
			Raw:        v,
		})
	}
	return out
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return ""
	}
}
