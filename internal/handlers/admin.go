package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/storefront-settlement/internal/apperr"
	"github.com/imrishuroy/storefront-settlement/internal/orders"
	"github.com/imrishuroy/storefront-settlement/internal/promo"
	"github.com/imrishuroy/storefront-settlement/internal/validation"
)

// adminOrder exposes the fields hidden from customers.
type adminOrder struct {
	orders.Order
	GatewayData string `json:"gatewayData,omitempty"`
	Version     int64  `json:"version"`
}

func toAdminOrder(o orders.Order) adminOrder {
	return adminOrder{Order: o, GatewayData: o.GatewayData, Version: o.Version}
}

func (s *server) loadOrder(c *gin.Context) (*orders.Order, bool) {
	id := c.Param("id")
	o, err := s.cfg.Orders.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	if o == nil {
		s.writeError(c, apperr.NotFoundf("order %s", id))
		return nil, false
	}
	return o, true
}

func (s *server) getOrder(c *gin.Context) {
	o, ok := s.loadOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toAdminOrder(*o))
}

func (s *server) updateOrderStatus(c *gin.Context) {
	var req validation.StatusUpdateRequest
	if err := validation.BindAndValidate(c, &req, s.v); err != nil {
		return
	}
	next, err := orders.ParseStatus(req.Status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	o, ok := s.loadOrder(c)
	if !ok {
		return
	}
	if err := orders.CheckOverride(next, o.PaymentStatus); err != nil {
		s.writeError(c, err)
		return
	}

	prev := o.Status
	o.Status = next
	if req.TrackingNumber != nil {
		o.TrackingNumber = req.TrackingNumber
	}
	if err := s.cfg.Orders.UpdateStatus(c.Request.Context(), o); err != nil {
		s.writeError(c, err)
		return
	}
	s.log.Info("order status overridden",
		"order_number", o.OrderNumber, "from", prev, "to", next, "version", o.Version)
	c.JSON(http.StatusOK, toAdminOrder(*o))
}

func (s *server) paymentCheck(c *gin.Context) {
	res, err := s.cfg.Settlement.ReconcileManual(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":          toAdminOrder(res.Order),
		"paymentChanged": res.Outcome.PaymentChanged,
		"becamePaid":     res.Outcome.BecamePaid,
	})
}

func promoFromRequest(req validation.PromoCodeRequest) promo.Code {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return promo.Code{
		Code:           req.Code,
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		MinOrderAmount: req.MinOrderAmount,
		MaxUses:        req.MaxUses,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		IsActive:       active,
	}
}

func (s *server) listPromoCodes(c *gin.Context) {
	codes, err := s.cfg.Promos.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if codes == nil {
		codes = []promo.Code{}
	}
	c.JSON(http.StatusOK, gin.H{"items": codes})
}

func (s *server) getPromoCode(c *gin.Context) {
	code, err := s.cfg.Promos.Get(c.Request.Context(), promo.NormalizeCode(c.Param("code")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if code == nil {
		s.writeError(c, promo.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, code)
}

func (s *server) createPromoCode(c *gin.Context) {
	var req validation.PromoCodeRequest
	if err := validation.BindAndValidate(c, &req, s.v); err != nil {
		return
	}
	created, err := s.cfg.Promos.Create(c.Request.Context(), promoFromRequest(req))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Location", "/admin/promo-codes/"+created.Code)
	c.JSON(http.StatusCreated, created)
}

func (s *server) updatePromoCode(c *gin.Context) {
	var req validation.PromoCodeRequest
	if err := validation.BindAndValidate(c, &req, s.v); err != nil {
		return
	}
	if promo.NormalizeCode(req.Code) != promo.NormalizeCode(c.Param("code")) {
		s.writeError(c, apperr.Validationf("code in body does not match path"))
		return
	}
	updated, err := s.cfg.Promos.Update(c.Request.Context(), promoFromRequest(req))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *server) deactivatePromoCode(c *gin.Context) {
	if err := s.cfg.Promos.Deactivate(c.Request.Context(), c.Param("code")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
