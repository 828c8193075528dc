// Package checkout turns a cart into a persisted PENDING order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/imrishuroy/storefront-settlement/internal/apperr"
	"github.com/imrishuroy/storefront-settlement/internal/delivery"
	"github.com/imrishuroy/storefront-settlement/internal/orders"
	"github.com/imrishuroy/storefront-settlement/internal/pricing"
	"github.com/imrishuroy/storefront-settlement/internal/promo"
)

// maxNumberAttempts bounds retries on order number collisions.
const maxNumberAttempts = 3

// OrderCreator persists new orders.
type OrderCreator interface {
	Create(ctx context.Context, o orders.Order) error
}

// PromoValidator validates a code against a subtotal.
type PromoValidator interface {
	Validate(ctx context.Context, code string, orderAmount int64, now time.Time) (promo.Result, error)
}

// Request is a cart ready for checkout. Unit prices are the catalog prices at
// this moment and are copied onto the order.
type Request struct {
	Customer        orders.Customer
	Items           []orders.LineItem
	PromoCode       string
	ShippingMethod  string
	DeliveryPointID string
}

// Receipt is what the customer sees after placing an order.
type Receipt struct {
	Order    orders.Order
	Quote    pricing.Quote
	Delivery delivery.Estimate
}

// Service places orders.
type Service struct {
	orders    OrderCreator
	promos    PromoValidator
	rules     pricing.Rules
	estimator *delivery.Estimator
	log       *slog.Logger
	nowFunc   func() time.Time
}

func NewService(o OrderCreator, p PromoValidator, rules pricing.Rules, est *delivery.Estimator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		orders:    o,
		promos:    p,
		rules:     rules,
		estimator: est,
		log:       log.With("component", "checkout"),
		nowFunc:   time.Now,
	}
}

// Quote prices a cart without persisting anything.
func (s *Service) Quote(ctx context.Context, items []orders.LineItem, code string) (pricing.Quote, *promo.Result, error) {
	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity}
	}
	subtotal, err := pricing.Subtotal(lines)
	if err != nil {
		return pricing.Quote{}, nil, apperr.Validationf("%v", err)
	}

	var discount int64
	var applied *promo.Result
	if strings.TrimSpace(code) != "" {
		res, err := s.promos.Validate(ctx, code, subtotal, s.nowFunc())
		if err != nil {
			return pricing.Quote{}, nil, err
		}
		discount = res.DiscountAmount
		applied = &res
	}
	return s.rules.NewQuote(subtotal, discount), applied, nil
}

// PlaceOrder prices the cart, applies the promo code and persists the order as
// PENDING/PENDING. The promo usage counter is not touched here; it is counted
// when the order is paid.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (Receipt, error) {
	if len(req.Items) == 0 {
		return Receipt{}, apperr.Validationf("cart is empty")
	}
	q, applied, err := s.Quote(ctx, req.Items, req.PromoCode)
	if err != nil {
		return Receipt{}, err
	}

	params := orders.NewParams{
		Customer:        req.Customer,
		Items:           req.Items,
		Subtotal:        q.Subtotal,
		Discount:        q.Discount,
		ShippingCost:    q.ShippingCost,
		ShippingMethod:  req.ShippingMethod,
		DeliveryPointID: req.DeliveryPointID,
	}
	if applied != nil {
		code := applied.Code
		params.PromoCode = &code
	}

	now := s.nowFunc()
	var order orders.Order
	for attempt := 1; ; attempt++ {
		order, err = orders.New(params, now)
		if err != nil {
			return Receipt{}, err
		}
		err = s.orders.Create(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, orders.ErrOrderNumberTaken) || attempt >= maxNumberAttempts {
			return Receipt{}, fmt.Errorf("create order: %w", err)
		}
		s.log.Warn("order number collision, regenerating", "order_number", order.OrderNumber, "attempt", attempt)
	}

	s.log.Info("order placed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"total", order.TotalPrice,
		"promo_code", params.PromoCode,
	)
	return Receipt{
		Order:    order,
		Quote:    q,
		Delivery: s.estimator.Estimate(now),
	}, nil
}
