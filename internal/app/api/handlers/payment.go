package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/cardwave/giftpay/internal/app/service/payment"
	"github.com/cardwave/giftpay/pkg/response"
)

// CreatePaymentRequest is the HTTP shape of a payment creation. Amount is a
// decimal string; floats are rejected at the type level.
type CreatePaymentRequest struct {
	UserID    string         `json:"user_id" binding:"required"`
	Amount    string         `json:"amount" binding:"required"`
	Currency  string         `json:"currency"`
	Email     string         `json:"email"`
	BrandID   string         `json:"brand_id"`
	ProductID string         `json:"product_id"`
	Metadata  map[string]any `json:"metadata"`
}

// @Summary      Create Payment
// @Description  Creates a gateway invoice for a gift-card purchase and returns the checkout URL.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body handlers.CreatePaymentRequest true "Payment creation request"
// @Success      200  {object}  handlers.RespCreatePayment
// @Router       /api/v1/payments [post]
func ApiCreatePayment(mgr payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid amount"))
			return
		}

		sum, err := mgr.CreatePayment(c.Request.Context(), &payment.CreatePaymentRequest{
			UserID:    req.UserID,
			Amount:    amount,
			Currency:  req.Currency,
			Email:     req.Email,
			BrandID:   req.BrandID,
			ProductID: req.ProductID,
			Metadata:  req.Metadata,
		})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](errCode(err), err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(sum))
	}
}

// @Summary      Get Payment Status
// @Description  Reconciles one payment against the gateway and returns the current record. Accepts the order id or the gateway transaction id.
// @Tags         Payment
// @Produce      json
// @Param        orderId path string true "Order id or gateway transaction id"
// @Success      200  {object}  handlers.RespPayment
// @Router       /api/v1/payments/{orderId} [get]
func ApiGetPaymentStatus(mgr payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := mgr.GetPaymentStatus(c.Request.Context(), c.Param("orderId"))
		if err != nil {
			// A fulfillment failure still carries the confirmed record; the
			// caller sees both the payment state and the error.
			if errors.Is(err, payment.ErrFulfillment) && record != nil {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, gin.H{
					"error":   err.Error(),
					"payment": record,
				}))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](errCode(err), err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(record))
	}
}

func errCode(err error) response.APIResponseCode {
	switch {
	case errors.Is(err, payment.ErrValidation), errors.Is(err, payment.ErrInvalidCallback):
		return response.APIResponseCodeBadRequest
	case errors.Is(err, payment.ErrNotFound):
		return response.APIResponseCodeNotFound
	default:
		return response.APIResponseCodeError
	}
}

func RegisterPaymentRoutes(r gin.IRouter, mgr payment.Manager) {
	r.POST("/payments", ApiCreatePayment(mgr))
	r.GET("/payments/:orderId", ApiGetPaymentStatus(mgr))
}
