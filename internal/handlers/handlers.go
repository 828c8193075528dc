package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/storefront-settlement/internal/apperr"
	"github.com/imrishuroy/storefront-settlement/internal/checkout"
	"github.com/imrishuroy/storefront-settlement/internal/delivery"
	"github.com/imrishuroy/storefront-settlement/internal/orders"
	"github.com/imrishuroy/storefront-settlement/internal/pricing"
	"github.com/imrishuroy/storefront-settlement/internal/promo"
	"github.com/imrishuroy/storefront-settlement/internal/settlement"
	"github.com/imrishuroy/storefront-settlement/internal/validation"
)

// webhookRetryAfter is sent with a 404 so the gateway retries once the order
// number index has caught up.
const webhookRetryAfter = "30"

// Settler runs settlements.
type Settler interface {
	HandleWebhook(ctx context.Context, n settlement.Notification) (settlement.Result, error)
	ReconcileManual(ctx context.Context, orderID string) (settlement.Result, error)
}

// OrderStore is what the order endpoints read and write.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, next *orders.Order) error
}

// PromoStore is the admin side of promo codes.
type PromoStore interface {
	Get(ctx context.Context, code string) (*promo.Code, error)
	List(ctx context.Context) ([]promo.Code, error)
	Create(ctx context.Context, c promo.Code) (promo.Code, error)
	Update(ctx context.Context, c promo.Code) (promo.Code, error)
	Deactivate(ctx context.Context, code string) error
}

// PromoValidator checks codes customers apply.
type PromoValidator interface {
	Validate(ctx context.Context, code string, orderAmount int64, now time.Time) (promo.Result, error)
}

// Checkout places orders.
type Checkout interface {
	PlaceOrder(ctx context.Context, req checkout.Request) (checkout.Receipt, error)
}

// HandlerConfig groups dependencies for the storefront handlers.
type HandlerConfig struct {
	Settlement Settler
	Orders     OrderStore
	Promos     PromoStore
	Validator  PromoValidator
	Checkout   Checkout
	Estimator  *delivery.Estimator
	Shipping   pricing.Rules

	AdminToken    string
	WebhookSecret string

	Logger  *slog.Logger
	NowFunc func() time.Time
}

type server struct {
	cfg HandlerConfig
	v   *validatorv10.Validate
	log *slog.Logger
}

// RegisterRoutes registers every storefront route on r.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NowFunc == nil {
		cfg.NowFunc = time.Now
	}
	if cfg.Shipping == (pricing.Rules{}) {
		cfg.Shipping = pricing.DefaultRules()
	}
	s := &server{cfg: cfg, v: validation.New(), log: cfg.Logger.With("component", "http")}

	r.POST("/webhooks/payment", s.paymentWebhook)

	r.POST("/promo/validate", s.validatePromo)
	r.POST("/checkout", s.placeOrder)
	r.GET("/orders/:orderNumber", s.lookupOrder)
	r.GET("/delivery/estimate", s.deliveryEstimate)
	r.GET("/shipping/quote", s.shippingQuote)

	admin := r.Group("/admin", s.requireAdmin)
	{
		admin.GET("/orders/:id", s.getOrder)
		admin.PATCH("/orders/:id/status", s.updateOrderStatus)
		admin.POST("/orders/:id/payment-check", s.paymentCheck)

		admin.GET("/promo-codes", s.listPromoCodes)
		admin.POST("/promo-codes", s.createPromoCode)
		admin.GET("/promo-codes/:code", s.getPromoCode)
		admin.PUT("/promo-codes/:code", s.updatePromoCode)
		admin.POST("/promo-codes/:code/deactivate", s.deactivatePromoCode)
	}
}

// errorCode is the machine readable "error" field for each kind.
func errorCode(err error) (int, string) {
	switch apperr.Kind(err) {
	case apperr.ErrNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case apperr.ErrUnauthorized:
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case apperr.ErrValidation:
		return http.StatusBadRequest, "VALIDATION"
	case apperr.ErrUpstreamUnavailable:
		return http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"
	case apperr.ErrConflict:
		return http.StatusConflict, "CONFLICT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// writeError maps err onto the response. Upstream and unclassified errors are
// logged in full and answered with a generic message.
func (s *server) writeError(c *gin.Context, err error) {
	status, code := errorCode(err)
	msg := err.Error()

	switch {
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		s.log.Error("upstream call failed", "path", c.FullPath(), "err", err)
		msg = "payment gateway is unavailable, try again later"
	case status == http.StatusInternalServerError:
		s.log.Error("request failed", "path", c.FullPath(), "err", err)
		msg = "internal error"
	}
	if apperr.IsRetryable(err) && status == http.StatusNotFound {
		c.Header("Retry-After", webhookRetryAfter)
	}
	c.JSON(status, gin.H{"error": code, "message": msg})
}
