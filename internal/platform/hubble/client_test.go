package hubble

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/cardwave/giftpay/pkg/config"
)

type staticTokens string

func (s staticTokens) Token(ctx context.Context) (string, error) { return string(s), nil }

func testClient(baseURL string) *Client {
	cfg := &cfgpkg.Config{Partner: cfgpkg.PartnerConfig{BaseURL: baseURL}}
	return NewClient(cfg, staticTokens("tok-1"), zap.NewNop().Sugar())
}

func TestLogin_AcceptsBothTokenFieldNames(t *testing.T) {
	for _, field := range []string{"accessToken", "token"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/partners/auth/login", r.URL.Path)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "cid", body["clientId"])
			_ = json.NewEncoder(w).Encode(map[string]string{field: "jwt-abc"})
		}))
		c := testClient(srv.URL)
		tok, err := c.Login(context.Background(), "cid", "secret")
		require.NoError(t, err)
		require.Equal(t, "jwt-abc", tok)
		srv.Close()
	}
}

func TestPlaceOrder_ParsesVouchersAndKeepsRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/partners/orders", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "ref-1", req.ReferenceID)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "po-9",
			"referenceId": req.ReferenceID,
			"status":      "SUCCESS",
			"vouchers": []map[string]any{
				{"id": "v1", "cardType": "EGV", "cardNumber": "4111", "cardPin": "9999", "validTill": "2027-01-01", "amount": "500"},
			},
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	resp, err := c.PlaceOrder(context.Background(), &OrderRequest{
		ProductID:   "brand-1",
		ReferenceID: "ref-1",
		Amount:      "500",
	})
	require.NoError(t, err)
	require.Equal(t, "po-9", resp.ID)
	require.Equal(t, "SUCCESS", resp.Status)
	require.Len(t, resp.Vouchers, 1)
	require.Equal(t, "4111", resp.Vouchers[0].CardNumber)
	require.Equal(t, "9999", resp.Vouchers[0].CardPin)
	require.NotNil(t, resp.Raw)
}

func TestPlaceOrder_RequiresProductAndReference(t *testing.T) {
	c := testClient("http://unreachable.invalid")
	_, err := c.PlaceOrder(context.Background(), &OrderRequest{ProductID: "p"})
	require.Error(t, err)
}

func TestPlaceOrder_HTTPErrorSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"failureReason":"OUT_OF_STOCK"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.PlaceOrder(context.Background(), &OrderRequest{ProductID: "p", ReferenceID: "r"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "OUT_OF_STOCK")
}

func TestGetBrands_AcceptsArrayAndWrapper(t *testing.T) {
	cases := map[string]struct {
		body string
		want int
	}{
		"bare array": {`[{"id":"b1"},{"id":"b2"}]`, 2},
		"wrapper":    {`{"brands":[{"id":"b1"}]}`, 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/v1/partners/brands", r.URL.Path)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			brands, err := testClient(srv.URL).GetBrands(context.Background())
			require.NoError(t, err)
			require.Len(t, brands, tc.want)
		})
	}
}
