// Package settlement folds gateway payment states into orders.
package settlement

import (
	"github.com/imrishuroy/storefront-settlement/internal/gateway"
	"github.com/imrishuroy/storefront-settlement/internal/orders"
)

// Outcome is the result of applying one gateway state to an order.
type Outcome struct {
	Next orders.Order

	PaymentChanged bool
	StatusChanged  bool
	// BecamePaid is true only on the first move of the payment into PAID.
	BecamePaid bool
}

// Reduce applies state to o. It is pure and total: unknown states leave the
// order as it is, status only ever leaves PENDING and in-progress gateway
// states never pull a PAID or REFUNDED payment back to PENDING, so stale or
// reordered gateway reports cannot move an order backwards.
func Reduce(o orders.Order, state gateway.State) Outcome {
	next := o

	payment, status, ok := transition(state.Kind)
	if ok && payment == orders.PaymentPending && settledPayment(o.PaymentStatus) {
		// a late CREATED or PAYMENT_METHOD_CHOSEN report
		ok = false
	}
	if ok {
		next.PaymentStatus = payment
		if status != "" && o.Status == orders.StatusPending {
			next.Status = status
		}
	}

	return Outcome{
		Next:           next,
		PaymentChanged: next.PaymentStatus != o.PaymentStatus,
		StatusChanged:  next.Status != o.Status,
		BecamePaid:     o.PaymentStatus != orders.PaymentPaid && next.PaymentStatus == orders.PaymentPaid,
	}
}

// transition maps a gateway state to the payment status and, for an order
// still PENDING, the order status. An empty status means unchanged.
func transition(k gateway.Kind) (orders.PaymentStatus, orders.Status, bool) {
	switch k {
	case gateway.KindPaid:
		return orders.PaymentPaid, orders.StatusPaid, true
	case gateway.KindCanceled, gateway.KindTimeouted:
		return orders.PaymentFailed, orders.StatusCancelled, true
	case gateway.KindRefunded:
		return orders.PaymentRefunded, "", true
	case gateway.KindCreated, gateway.KindPaymentMethodChosen:
		return orders.PaymentPending, "", true
	default:
		return "", "", false
	}
}

func settledPayment(p orders.PaymentStatus) bool {
	return p == orders.PaymentPaid || p == orders.PaymentRefunded
}
