package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/cardwave/giftpay/internal/app/service/payment"
	"github.com/cardwave/giftpay/internal/models"
	"github.com/cardwave/giftpay/pkg/response"
	"github.com/cardwave/giftpay/pkg/types"
)

type stubManager struct {
	createResp *payment.PaymentSummary
	createErr  error
	statusResp *models.Payment
	statusErr  error
}

func (m *stubManager) CreatePayment(context.Context, *payment.CreatePaymentRequest) (*payment.PaymentSummary, error) {
	return m.createResp, m.createErr
}

func (m *stubManager) GetPaymentStatus(context.Context, string) (*models.Payment, error) {
	return m.statusResp, m.statusErr
}

func (m *stubManager) HandlePaymentCallback(context.Context, map[string]any) (*models.Payment, error) {
	return m.statusResp, m.statusErr
}

func (m *stubManager) ScanPayments(context.Context, *payment.ScanPaymentsRequest) (*payment.ScanPaymentsResponse, error) {
	return nil, nil
}

func newTestRouter(mgr payment.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterPaymentRoutes(r.Group("/api/v1"), mgr)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return w, envelope
}

func TestApiCreatePayment(t *testing.T) {
	mgr := &stubManager{createResp: &payment.PaymentSummary{
		OrderID:    "order_1",
		InvoiceID:  "t1",
		InvoiceURL: "https://pay/t1",
		Amount:     "2",
		Currency:   "USDT",
		Status:     types.PaymentStatusNew,
	}}
	r := newTestRouter(mgr)

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/payments", `{"user_id":"u1","amount":"2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, response.APIResponseCodeOK, env["code"])
	data := env["data"].(map[string]any)
	require.Equal(t, "https://pay/t1", data["invoice_url"])
}

func TestApiCreatePaymentRejectsBadAmount(t *testing.T) {
	r := newTestRouter(&stubManager{})

	_, env := doJSON(t, r, http.MethodPost, "/api/v1/payments", `{"user_id":"u1","amount":"two"}`)
	require.EqualValues(t, response.APIResponseCodeBadRequest, env["code"])

	_, env = doJSON(t, r, http.MethodPost, "/api/v1/payments", `{"user_id":"u1"}`)
	require.EqualValues(t, response.APIResponseCodeBadRequest, env["code"])
}

func TestApiGetPaymentStatusNotFound(t *testing.T) {
	r := newTestRouter(&stubManager{statusErr: payment.ErrNotFound})

	w, env := doJSON(t, r, http.MethodGet, "/api/v1/payments/order_missing", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, response.APIResponseCodeNotFound, env["code"])
}

func TestApiGetPaymentStatusOK(t *testing.T) {
	r := newTestRouter(&stubManager{statusResp: &models.Payment{
		OrderID: "order_1",
		Status:  types.PaymentStatusCompleted,
	}})

	_, env := doJSON(t, r, http.MethodGet, "/api/v1/payments/order_1", "")
	require.EqualValues(t, response.APIResponseCodeOK, env["code"])
	data := env["data"].(map[string]any)
	require.Equal(t, "completed", data["status"])
}
