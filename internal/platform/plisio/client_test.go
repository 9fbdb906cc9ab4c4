package plisio

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/cardwave/giftpay/pkg/config"
	"github.com/cardwave/giftpay/pkg/types"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &cfgpkg.Config{
		AppURL: "http://localhost:4000",
		Gateway: cfgpkg.GatewayConfig{
			APIKey:  "test-key",
			BaseURL: baseURL,
		},
	}
	c, err := NewClient(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	return c
}

func TestNewClient_MissingAPIKeyIsFatal(t *testing.T) {
	cfg := &cfgpkg.Config{Gateway: cfgpkg.GatewayConfig{BaseURL: "https://plisio.net/api/v1"}}
	_, err := NewClient(cfg, zap.NewNop().Sugar())
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCreateInvoice_MergesBaseParams(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/invoices/new", r.URL.Path)
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": map[string]any{
				"txn_id":            "t1",
				"invoice_url":       "https://pay/t1",
				"invoice_total_sum": "1",
			},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	inv, err := c.CreateInvoice(context.Background(), &CreateInvoiceRequest{
		OrderNumber: "order_abc",
		Amount:      decimal.NewFromInt(1),
		Currency:    "USDT",
		Email:       "user-42@giftcardstore.com",
		Extra:       map[string]string{"api_key": "evil", "metadata": "x"},
	})
	require.NoError(t, err)
	require.Equal(t, "t1", inv.TxnID)
	require.Equal(t, "https://pay/t1", inv.InvoiceURL)
	require.Equal(t, "1", inv.TotalSum)

	// Fixed base params always win over caller-supplied extras.
	require.Equal(t, "test-key", gotQuery.Get("api_key"))
	require.Equal(t, "USD", gotQuery.Get("source_currency"))
	require.Equal(t, "false", gotQuery.Get("allow_anonymous"))
	require.Equal(t, "1440", gotQuery.Get("timeout"))
	require.Equal(t, "http://localhost:4000/api/payments/callback", gotQuery.Get("callback_url"))
	require.Equal(t, "order_abc", gotQuery.Get("order_number"))
	require.Equal(t, "1", gotQuery.Get("amount"))
	require.Equal(t, "USDT", gotQuery.Get("currency"))
	require.Equal(t, "x", gotQuery.Get("metadata"))
}

func TestCreateInvoice_ProviderErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "error",
			"data":   map[string]any{"message": "invalid currency"},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.CreateInvoice(context.Background(), &CreateInvoiceRequest{
		OrderNumber: "order_abc",
		Amount:      decimal.NewFromInt(5),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid currency")
}

func TestCreateInvoice_ValidatesInput(t *testing.T) {
	c := testClient(t, "http://unreachable.invalid")

	_, err := c.CreateInvoice(context.Background(), &CreateInvoiceRequest{Amount: decimal.NewFromInt(1)})
	require.Error(t, err)

	_, err = c.CreateInvoice(context.Background(), &CreateInvoiceRequest{OrderNumber: "o", Amount: decimal.Zero})
	require.Error(t, err)
}

func TestQueryStatus_LocatesEntryInListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/operations", r.URL.Path)
		require.Equal(t, "t2", r.URL.Query().Get("search"))
		require.NotEmpty(t, r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": map[string]any{
				"operations": []map[string]any{
					{"txn_id": "t1", "status": "NEW"},
					{"txn_id": "t2", "status": "COMPLETED", "amount": "1.5", "psys_cid": "USDT"},
				},
			},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	info, err := c.QueryStatus(context.Background(), "t2")
	require.NoError(t, err)
	require.Equal(t, "t2", info.TxnID)
	require.Equal(t, types.PaymentStatusCompleted, info.Status)
	require.Equal(t, "1.5", info.Amount)
	require.Equal(t, "USDT", info.Raw["psys_cid"])
}

func TestQueryStatus_UnknownStatusPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": map[string]any{
				"operations": []map[string]any{
					{"txn_id": "t9", "status": "Completed_"},
				},
			},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	info, err := c.QueryStatus(context.Background(), "t9")
	require.NoError(t, err)
	require.Equal(t, types.PaymentStatus("completed_"), info.Status)
	require.True(t, info.Status.IsSuccess())
	require.False(t, info.Status.Known())
}

func TestQueryStatus_NotInListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]any{"operations": []map[string]any{}},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.QueryStatus(context.Background(), "missing")
	require.Error(t, err)
}

func TestVerifyCallback(t *testing.T) {
	c := testClient(t, "http://unused.invalid")

	payload := map[string]any{
		"order_number": "order_abc",
		"status":       "completed",
		"txn_id":       "t1",
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	mac := hmac.New(sha1.New, []byte("test-key"))
	mac.Write(body)
	payload[verifyHashField] = hex.EncodeToString(mac.Sum(nil))

	require.True(t, c.VerifyCallback(payload))

	payload["status"] = "failed" // tamper
	require.False(t, c.VerifyCallback(payload))

	require.False(t, c.VerifyCallback(map[string]any{"order_number": "x"}))
	require.False(t, c.VerifyCallback(nil))
}
