package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cardwave/giftpay/internal/app/service/payment"
	"github.com/cardwave/giftpay/pkg/logctx"
	"github.com/cardwave/giftpay/pkg/response"
)

// @Summary      Payment Gateway Callback
// @Description  Handles signed payment status callbacks pushed by the crypto gateway.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body map[string]interface{} true "Gateway callback payload with verify_hash"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/payments/callback [post]
func ApiPaymentCallback(mgr payment.Manager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		logctx.FromCtx(c.Request.Context(), log).Infow("gateway_callback_received",
			"order_number", payload["order_number"], "status", payload["status"])

		record, err := mgr.HandlePaymentCallback(c.Request.Context(), payload)
		if err != nil {
			logctx.FromCtx(c.Request.Context(), log).Errorw("gateway_callback_handle_error", "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](errCode(err), err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{
			"order_id": record.OrderID,
			"status":   record.Status,
		}))
	}
}

func RegisterCallbackRoutes(r gin.IRouter, mgr payment.Manager, log *zap.SugaredLogger) {
	// Mount under provided group, expected at "/api/payments"
	r.POST("/callback", ApiPaymentCallback(mgr, log))
}
