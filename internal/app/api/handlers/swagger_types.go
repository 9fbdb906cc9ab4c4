package handlers

import (
	"time"

	"github.com/cardwave/giftpay/internal/app/service/payment"
	"github.com/cardwave/giftpay/internal/app/service/statistics"
	"github.com/cardwave/giftpay/pkg/response"
	types "github.com/cardwave/giftpay/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespCreatePayment wraps the payment creation summary in the standard envelope.
type RespCreatePayment struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    payment.PaymentSummary   `json:"data"`
}

// RespPayment wraps a full payment record in the standard envelope.
type RespPayment struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    SwaggerPayment           `json:"data"`
}

// RespScanPayments wraps the admin listing in the standard envelope.
type RespScanPayments struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    payment.ScanPaymentsResponse `json:"data"`
}

// RespPaymentStatistic wraps PaymentStatisticResponse in the standard envelope.
type RespPaymentStatistic struct {
	Code    response.APIResponseCode            `json:"code"`
	Message string                              `json:"message"`
	Data    statistics.PaymentStatisticResponse `json:"data"`
}

// RespBrands wraps the partner brand catalog in the standard envelope.
type RespBrands struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []map[string]interface{} `json:"data"`
}

// SwaggerPayment is a simplified view of models.Payment for documentation purposes.
type SwaggerPayment struct {
	ID             string                `json:"id"`
	OrderID        string                `json:"order_id"`
	UserID         string                `json:"user_id"`
	Amount         string                `json:"amount"`
	LocalAmount    string                `json:"local_amount"`
	Currency       string                `json:"currency"`
	Status         types.PaymentStatus   `json:"status"`
	InvoiceID      string                `json:"invoice_id"`
	InvoiceURL     string                `json:"invoice_url"`
	VoucherDetails []types.VoucherDetail `json:"voucher_details"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}
