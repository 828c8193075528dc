package handlers

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/storefront-settlement/internal/apperr"
	"github.com/imrishuroy/storefront-settlement/internal/checkout"
	"github.com/imrishuroy/storefront-settlement/internal/delivery"
	"github.com/imrishuroy/storefront-settlement/internal/orders"
	"github.com/imrishuroy/storefront-settlement/internal/promo"
	"github.com/imrishuroy/storefront-settlement/internal/validation"
)

const dateLayout = "2006-01-02"

func (s *server) validatePromo(c *gin.Context) {
	var req validation.PromoValidateRequest
	if err := validation.BindAndValidate(c, &req, s.v); err != nil {
		return
	}
	res, err := s.cfg.Validator.Validate(c.Request.Context(), req.Code, req.OrderAmount, s.cfg.NowFunc())
	if err != nil {
		reason := promo.Reason(err)
		if reason == "" {
			s.writeError(c, err)
			return
		}
		status, _ := errorCode(err)
		c.JSON(status, gin.H{"valid": false, "error": reason, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func deliveryJSON(e delivery.Estimate) gin.H {
	return gin.H{
		"from":      e.From.Format(dateLayout),
		"to":        e.To.Format(dateLayout),
		"cutoffMet": e.CutoffMet,
	}
}

func (s *server) placeOrder(c *gin.Context) {
	var req validation.CheckoutRequest
	if err := validation.BindAndValidate(c, &req, s.v); err != nil {
		return
	}

	items := make([]orders.LineItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = orders.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}
	receipt, err := s.cfg.Checkout.PlaceOrder(c.Request.Context(), checkout.Request{
		Customer: orders.Customer{
			Name:   req.Customer.Name,
			Email:  req.Customer.Email,
			Phone:  req.Customer.Phone,
			UserID: req.Customer.UserID,
		},
		Items:           items,
		PromoCode:       req.PromoCode,
		ShippingMethod:  req.ShippingMethod,
		DeliveryPointID: req.DeliveryPointID,
	})
	if err != nil {
		if reason := promo.Reason(err); reason != "" {
			status, _ := errorCode(err)
			c.JSON(status, gin.H{"error": reason, "message": err.Error()})
			return
		}
		s.writeError(c, err)
		return
	}

	o := receipt.Order
	c.Header("Location", "/orders/"+o.OrderNumber)
	c.JSON(http.StatusCreated, gin.H{
		"order":         o,
		"securityToken": o.SecurityToken,
		"quote":         receipt.Quote,
		"delivery":      deliveryJSON(receipt.Delivery),
	})
}

// lookupOrder is the customer's view of an order, authorised by the security
// token handed out at checkout.
func (s *server) lookupOrder(c *gin.Context) {
	number := c.Param("orderNumber")
	token := c.Query("token")
	if token == "" {
		s.writeError(c, apperr.Unauthorizedf("token required"))
		return
	}
	o, err := s.cfg.Orders.GetByOrderNumber(c.Request.Context(), number)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if o == nil {
		s.writeError(c, apperr.NotFoundf("order %s", number))
		return
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(o.SecurityToken)) != 1 {
		s.writeError(c, apperr.Unauthorizedf("token does not match order"))
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *server) deliveryEstimate(c *gin.Context) {
	c.JSON(http.StatusOK, deliveryJSON(s.cfg.Estimator.Estimate(s.cfg.NowFunc())))
}

func (s *server) shippingQuote(c *gin.Context) {
	subtotal, err := strconv.ParseInt(c.Query("subtotal"), 10, 64)
	if err != nil || subtotal < 0 {
		s.writeError(c, apperr.Validationf("subtotal must be a non-negative integer"))
		return
	}
	rules := s.cfg.Shipping
	c.JSON(http.StatusOK, gin.H{
		"subtotal":              subtotal,
		"shippingCost":          rules.Cost(subtotal),
		"amountToFreeShipping":  rules.AmountToFreeShipping(subtotal),
		"freeShippingThreshold": rules.FreeShippingThreshold,
	})
}
