// Package notify announces settlement outcomes to asynchronous consumers.
package notify

import (
	"context"
	"time"

	"github.com/imrishuroy/storefront-settlement/internal/orders"
)

// EventOrderPaid is published once per order, on its first transition into PAID.
const EventOrderPaid = "order.paid"

// PaidEvent is the SQS payload consumed by the mail worker.
type PaidEvent struct {
	OrderID       string            `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	Items         []orders.LineItem `json:"items"`
	TotalPrice    int64             `json:"total_price"`
	PaymentID     string            `json:"payment_id,omitempty"`
	PaidAt        time.Time         `json:"paid_at"`
}

// Publisher is satisfied by aws.Publisher.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any, attributes map[string]string) error
}

// Notifier turns order transitions into queue events.
type Notifier struct {
	pub Publisher
}

func New(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

// NewPaidEvent snapshots what the confirmation email needs.
func NewPaidEvent(o orders.Order) PaidEvent {
	ev := PaidEvent{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.Customer.Name,
		CustomerEmail: o.Customer.Email,
		Items:         o.Items,
		TotalPrice:    o.TotalPrice,
		PaidAt:        o.UpdatedAt,
	}
	if o.HasPayment() {
		ev.PaymentID = *o.PaymentID
	}
	return ev
}

// OrderPaid publishes EventOrderPaid for o. The order number travels as a
// message attribute so consumers can filter without decoding the body.
func (n *Notifier) OrderPaid(ctx context.Context, o orders.Order) error {
	return n.pub.Publish(ctx, EventOrderPaid, NewPaidEvent(o), map[string]string{
		"order_number": o.OrderNumber,
	})
}
