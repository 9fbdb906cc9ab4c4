package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardwave/giftpay/internal/platform/hubble"
	"github.com/cardwave/giftpay/pkg/response"
)

// The catalog endpoints are thin proxies over the partner API: the bot reads
// brands and order state through us so the partner token never leaves the
// backend.

// @Summary      List Gift Card Brands
// @Description  Lists the partner gift-card catalog.
// @Tags         Catalog
// @Produce      json
// @Success      200  {object}  handlers.RespBrands
// @Router       /api/v1/brands [get]
func ApiListBrands(client *hubble.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		brands, err := client.GetBrands(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(brands))
	}
}

// @Summary      Get Partner Order
// @Description  Reads one partner order by partner order id.
// @Tags         Catalog
// @Produce      json
// @Param        id path string true "Partner order id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/orders/{id} [get]
func ApiGetOrder(client *hubble.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := client.GetOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(order))
	}
}

// @Summary      Get Partner Order By Reference
// @Description  Reads one partner order by our reference id (the payment order id).
// @Tags         Catalog
// @Produce      json
// @Param        referenceId path string true "Reference id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/order-by-reference/{referenceId} [get]
func ApiGetOrderByReference(client *hubble.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := client.GetOrderByReference(c.Request.Context(), c.Param("referenceId"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(order))
	}
}

// @Summary      Get Voucher
// @Description  Reads one voucher by partner voucher id.
// @Tags         Catalog
// @Produce      json
// @Param        id path string true "Voucher id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/vouchers/{id} [get]
func ApiGetVoucher(client *hubble.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		voucher, err := client.GetVoucher(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(voucher))
	}
}

func RegisterCatalogRoutes(r gin.IRouter, client *hubble.Client) {
	r.GET("/brands", ApiListBrands(client))
	r.GET("/orders/:id", ApiGetOrder(client))
	// A sibling static segment under /orders would clash with :id in gin's
	// route tree, hence the flat path.
	r.GET("/order-by-reference/:referenceId", ApiGetOrderByReference(client))
	r.GET("/vouchers/:id", ApiGetVoucher(client))
}
