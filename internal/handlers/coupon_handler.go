package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"intihelp/internal/logging"
	"intihelp/internal/pricing"
	"intihelp/internal/services"
)

type CouponHandler struct {
	service services.CouponService
}

func NewCouponHandler(service services.CouponService) *CouponHandler {
	return &CouponHandler{service: service}
}

// POST /coupons/validate
func (h *CouponHandler) Validate(c *gin.Context) {
	var req struct {
		Code  string          `json:"code" binding:"required"`
		Total decimal.Decimal `json:"total"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[coupon][validate]", err)
		return
	}
	discount, coupon, err := h.service.Discount(c.Request.Context(), req.Code, req.Total)
	if err != nil {
		respondError(c, "[coupon][validate]", err)
		return
	}
	q := pricing.Quote{Total: req.Total}.WithDiscount(discount)
	c.JSON(http.StatusOK, gin.H{
		"coupon":   coupon,
		"discount": q.Discount,
		"payable":  q.Payable,
	})
}

// POST /coupons
func (h *CouponHandler) Create(c *gin.Context) {
	var req services.CreateCouponInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[coupon][create]", err)
		return
	}
	coupon, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, "[coupon][create]", err)
		return
	}
	logging.Info("[coupon][create][ok]", "code", coupon.Code)
	c.JSON(http.StatusCreated, coupon)
}

// DELETE /coupons/:code
func (h *CouponHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, "[coupon][deactivate]", err)
		return
	}
	logging.Info("[coupon][deactivate][ok]", "code", c.Param("code"))
	c.Status(http.StatusNoContent)
}
