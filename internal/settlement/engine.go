package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/imrishuroy/storefront-settlement/internal/apperr"
	"github.com/imrishuroy/storefront-settlement/internal/gateway"
	"github.com/imrishuroy/storefront-settlement/internal/orders"
)

// MaxAttempts bounds the read-reduce-write loop on version conflicts.
const MaxAttempts = 3

// Source names the producer of a gateway state.
type Source string

const (
	SourceWebhook Source = "webhook"
	SourceManual  Source = "manual"
)

// OrderStore is the subset of orders.Store the engine uses.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*orders.Order, error)
	UpdateSettlement(ctx context.Context, next *orders.Order) error
}

// Gateway fetches payment state out of band.
type Gateway interface {
	PaymentStatus(ctx context.Context, paymentID string) (gateway.Payment, error)
}

// Notifier announces paid orders.
type Notifier interface {
	OrderPaid(ctx context.Context, o orders.Order) error
}

// Redeemer counts a promo code use for a paid order. Implementations must
// be idempotent per order number.
type Redeemer interface {
	Redeem(ctx context.Context, code, orderNumber string) (bool, error)
}

// Metrics counts settlement transitions.
type Metrics interface {
	Count(ctx context.Context, name string, dimensions map[string]string) error
}

// Notification is an inbound gateway webhook.
type Notification struct {
	PaymentID   string
	State       string
	OrderNumber string
	// Raw is the request body, stored as the order's gateway data.
	Raw string
}

// Result is what a settlement committed.
type Result struct {
	Order   orders.Order
	Outcome Outcome
}

// Engine runs both settlement entry points through Reduce.
type Engine struct {
	orders   OrderStore
	gateway  Gateway
	notifier Notifier
	redeemer Redeemer
	metrics  Metrics
	log      *slog.Logger
}

// Deps are the engine's collaborators. Redeemer and Metrics are optional.
type Deps struct {
	Orders   OrderStore
	Gateway  Gateway
	Notifier Notifier
	Redeemer Redeemer
	Metrics  Metrics
	Logger   *slog.Logger
}

func NewEngine(d Deps) *Engine {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		orders:   d.Orders,
		gateway:  d.Gateway,
		notifier: d.Notifier,
		redeemer: d.Redeemer,
		metrics:  d.Metrics,
		log:      log.With("component", "settlement"),
	}
}

// HandleWebhook applies a gateway push. A missing order is a retryable
// NotFound: the gateway may notify before the order number index catches up.
func (e *Engine) HandleWebhook(ctx context.Context, n Notification) (Result, error) {
	if n.OrderNumber == "" || n.PaymentID == "" {
		return Result{}, apperr.Validationf("webhook needs id and order_number")
	}
	log := e.log.With("source", SourceWebhook, "order_number", n.OrderNumber, "payment_id", n.PaymentID)

	order, err := e.orders.GetByOrderNumber(ctx, n.OrderNumber)
	if err != nil {
		return Result{}, err
	}
	if order == nil {
		log.Warn("webhook for unknown order")
		return Result{}, apperr.Retryable(apperr.NotFoundf("order %s", n.OrderNumber))
	}

	state := gateway.ParseState(n.State)
	pushed := func(context.Context) (gateway.State, string, error) { return state, n.Raw, nil }
	return e.settle(ctx, log, SourceWebhook, order, n.PaymentID, pushed)
}

// ReconcileManual polls the gateway for the order's payment and applies the
// result. Gateway failures come back as retryable UpstreamUnavailable errors.
func (e *Engine) ReconcileManual(ctx context.Context, orderID string) (Result, error) {
	log := e.log.With("source", SourceManual, "order_id", orderID)

	order, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	if order == nil {
		return Result{}, apperr.NotFoundf("order %s", orderID)
	}
	if !order.HasPayment() {
		return Result{}, apperr.Validationf("order %s has no payment yet", order.OrderNumber)
	}
	paymentID := *order.PaymentID
	log = log.With("order_number", order.OrderNumber, "payment_id", paymentID)

	// Polled on every attempt: after a conflict the gateway may have moved on too.
	poll := func(ctx context.Context) (gateway.State, string, error) {
		payment, err := e.gateway.PaymentStatus(ctx, paymentID)
		if err != nil {
			log.Error("gateway status query failed", "err", err)
			return gateway.State{}, "", err
		}
		return payment.State, payment.Raw, nil
	}
	return e.settle(ctx, log, SourceManual, order, paymentID, poll)
}

// stateSource yields the gateway state to fold into the order and the raw
// payload to store with it.
type stateSource func(ctx context.Context) (gateway.State, string, error)

// settle runs read-reduce-conditional-write until the write lands on the
// version it read. Side effects run once, after the commit.
func (e *Engine) settle(ctx context.Context, log *slog.Logger, src Source, order *orders.Order, paymentID string, source stateSource) (Result, error) {
	for attempt := 1; ; attempt++ {
		if order.HasPayment() && *order.PaymentID != paymentID {
			return Result{}, apperr.Validationf("order %s belongs to payment %s, not %s",
				order.OrderNumber, *order.PaymentID, paymentID)
		}

		state, raw, err := source(ctx)
		if err != nil {
			return Result{}, err
		}
		if state.Kind == gateway.KindUnknown {
			log.Warn("unknown gateway state, recording payload only", "state", state.Raw)
		}

		out := Reduce(*order, state)
		next := out.Next
		if !next.HasPayment() {
			next.PaymentID = &paymentID
		}
		next.GatewayData = raw

		err = e.orders.UpdateSettlement(ctx, &next)
		if err == nil {
			out.Next = next
			e.afterCommit(ctx, log, src, out)
			return Result{Order: next, Outcome: out}, nil
		}
		if !errors.Is(err, orders.ErrVersionConflict) {
			return Result{}, fmt.Errorf("persist settlement: %w", err)
		}
		if attempt >= MaxAttempts {
			return Result{}, apperr.Retryable(fmt.Errorf("settle %s after %d attempts: %w", order.OrderNumber, attempt, err))
		}

		log.Info("version conflict, re-reading order", "attempt", attempt)
		fresh, err := e.orders.Get(ctx, order.ID)
		if err != nil {
			return Result{}, err
		}
		if fresh == nil {
			return Result{}, apperr.NotFoundf("order %s", order.ID)
		}
		order = fresh
	}
}

func (e *Engine) afterCommit(ctx context.Context, log *slog.Logger, src Source, out Outcome) {
	o := out.Next
	log.Info("settlement applied",
		"status", o.Status,
		"payment_status", o.PaymentStatus,
		"payment_changed", out.PaymentChanged,
		"became_paid", out.BecamePaid,
		"version", o.Version,
	)

	if e.metrics != nil && out.PaymentChanged {
		err := e.metrics.Count(ctx, "PaymentTransition", map[string]string{
			"PaymentStatus": string(o.PaymentStatus),
			"Source":        string(src),
		})
		if err != nil {
			log.Warn("metric not recorded", "err", err)
		}
	}

	if out.BecamePaid {
		if err := e.notifier.OrderPaid(ctx, o); err != nil {
			log.Error("paid notification failed", "err", err)
		}
	}

	// Redemption is idempotent per order number, so every PAID settlement
	// retries one that failed earlier.
	if e.redeemer != nil && o.PromoCode != nil && o.PaymentStatus == orders.PaymentPaid {
		counted, err := e.redeemer.Redeem(ctx, *o.PromoCode, o.OrderNumber)
		if err != nil {
			log.Error("promo redemption failed", "promo_code", *o.PromoCode, "err", err)
		} else if counted {
			log.Info("promo redemption recorded", "promo_code", *o.PromoCode)
		}
	}
}
