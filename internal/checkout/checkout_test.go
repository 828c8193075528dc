package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/storefront-settlement/internal/apperr"
	"github.com/imrishuroy/storefront-settlement/internal/aws/awstest"
	"github.com/imrishuroy/storefront-settlement/internal/delivery"
	"github.com/imrishuroy/storefront-settlement/internal/idempotency"
	"github.com/imrishuroy/storefront-settlement/internal/logger"
	"github.com/imrishuroy/storefront-settlement/internal/orders"
	"github.com/imrishuroy/storefront-settlement/internal/pricing"
	"github.com/imrishuroy/storefront-settlement/internal/promo"
)

// Wednesday 2025-10-15 10:00 in Prague
var placedAt = time.Date(2025, time.October, 15, 8, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *orders.Store, *awstest.Dynamo) {
	t.Helper()
	mock := awstest.NewDynamo(map[string]string{
		"orders":      "order_id",
		"promo_codes": "code",
		"idempotency": "idempotency_key",
	})
	claims := idempotency.NewStore(mock, "idempotency", time.Hour)
	orderStore := orders.NewStore(mock, "orders", claims)
	promoStore := promo.NewStore(mock, "promo_codes", claims)

	minAmount := int64(1000)
	_, err := promoStore.Create(context.Background(), promo.Code{
		Code:           "SUMMER10",
		DiscountType:   promo.DiscountPercentage,
		DiscountValue:  10,
		MinOrderAmount: &minAmount,
		ValidFrom:      placedAt.AddDate(0, -1, 0),
		ValidUntil:     placedAt.AddDate(0, 1, 0),
		IsActive:       true,
	})
	require.NoError(t, err)

	est, err := delivery.NewEstimator(14, "Europe/Prague")
	require.NoError(t, err)

	svc := NewService(orderStore, promo.NewValidator(promoStore), pricing.DefaultRules(), est, logger.Discard())
	svc.nowFunc = func() time.Time { return placedAt }
	return svc, orderStore, mock
}

func cart() []orders.LineItem {
	return []orders.LineItem{
		{ProductID: "tee", Name: "Tričko", Size: "M", Quantity: 2, UnitPrice: 500},
		{ProductID: "cap", Name: "Kšiltovka", Quantity: 1, UnitPrice: 500},
	}
}

func TestPlaceOrder_Summer10(t *testing.T) {
	svc, store, _ := newService(t)

	r, err := svc.PlaceOrder(context.Background(), Request{
		Customer:       orders.Customer{Name: "Jana", Email: "jana@example.cz"},
		Items:          cart(),
		PromoCode:      "summer10",
		ShippingMethod: "PARCEL_LOCKER",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1500), r.Order.Subtotal)
	assert.Equal(t, int64(150), r.Order.Discount)
	assert.Equal(t, int64(79), r.Order.ShippingCost)
	assert.Equal(t, int64(1429), r.Order.TotalPrice)
	assert.Equal(t, int64(500), r.Quote.AmountToFreeShipping)
	require.NotNil(t, r.Order.PromoCode)
	assert.Equal(t, "SUMMER10", *r.Order.PromoCode)
	assert.Equal(t, orders.StatusPending, r.Order.Status)
	assert.Equal(t, orders.PaymentPending, r.Order.PaymentStatus)

	assert.True(t, r.Delivery.CutoffMet)
	assert.Equal(t, "2025-10-16", r.Delivery.From.Format("2006-01-02"))
	assert.Equal(t, "2025-10-17", r.Delivery.To.Format("2006-01-02"))

	stored, err := store.Get(context.Background(), r.Order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(1429), stored.TotalPrice)
}

func TestPlaceOrder_FreeShippingUsesSubtotalBeforeDiscount(t *testing.T) {
	svc, _, _ := newService(t)
	items := []orders.LineItem{{ProductID: "jacket", Quantity: 1, UnitPrice: 2000}}

	r, err := svc.PlaceOrder(context.Background(), Request{Items: items, PromoCode: "SUMMER10"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), r.Order.ShippingCost)
	assert.Equal(t, int64(1800), r.Order.TotalPrice)
}

func TestPlaceOrder_InvalidPromoFailsCheckout(t *testing.T) {
	svc, _, mock := newService(t)
	items := []orders.LineItem{{ProductID: "sock", Quantity: 1, UnitPrice: 200}}

	_, err := svc.PlaceOrder(context.Background(), Request{Items: items, PromoCode: "SUMMER10"})
	require.ErrorIs(t, err, promo.ErrBelowMinimum)
	assert.Equal(t, 0, mock.Len("orders"))

	_, err = svc.PlaceOrder(context.Background(), Request{Items: items, PromoCode: "NOPE"})
	require.ErrorIs(t, err, promo.ErrNotFound)
}

func TestPlaceOrder_RejectsBadCart(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.PlaceOrder(context.Background(), Request{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.PlaceOrder(context.Background(), Request{Items: []orders.LineItem{{ProductID: "x", Quantity: 0, UnitPrice: 10}}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

type collidingStore struct {
	failures int
	created  []orders.Order
}

func (c *collidingStore) Create(ctx context.Context, o orders.Order) error {
	if c.failures > 0 {
		c.failures--
		return orders.ErrOrderNumberTaken
	}
	c.created = append(c.created, o)
	return nil
}

func TestPlaceOrder_RetriesOrderNumberCollision(t *testing.T) {
	svc, _, _ := newService(t)
	store := &collidingStore{failures: 2}
	svc.orders = store

	_, err := svc.PlaceOrder(context.Background(), Request{Items: cart()})
	require.NoError(t, err)
	assert.Len(t, store.created, 1)

	store.failures = maxNumberAttempts
	_, err = svc.PlaceOrder(context.Background(), Request{Items: cart()})
	assert.True(t, errors.Is(err, orders.ErrOrderNumberTaken))
}

func TestQuote_NoPromo(t *testing.T) {
	svc, _, _ := newService(t)
	q, applied, err := svc.Quote(context.Background(), cart(), "")
	require.NoError(t, err)
	assert.Nil(t, applied)
	assert.Equal(t, pricing.Quote{Subtotal: 1500, ShippingCost: 79, Total: 1579, AmountToFreeShipping: 500}, q)
}
