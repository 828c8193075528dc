package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imrishuroy/storefront-settlement/internal/gateway"
	"github.com/imrishuroy/storefront-settlement/internal/orders"
)

func order(status orders.Status, payment orders.PaymentStatus) orders.Order {
	return orders.Order{ID: "o-1", OrderNumber: "250701000001", Status: status, PaymentStatus: payment, TotalPrice: 1429}
}

func TestReduce_FromPending(t *testing.T) {
	cases := []struct {
		state       string
		wantStatus  orders.Status
		wantPayment orders.PaymentStatus
		becamePaid  bool
	}{
		{"PAID", orders.StatusPaid, orders.PaymentPaid, true},
		{"CANCELED", orders.StatusCancelled, orders.PaymentFailed, false},
		{"TIMEOUTED", orders.StatusCancelled, orders.PaymentFailed, false},
		{"REFUNDED", orders.StatusPending, orders.PaymentRefunded, false},
		{"CREATED", orders.StatusPending, orders.PaymentPending, false},
		{"PAYMENT_METHOD_CHOSEN", orders.StatusPending, orders.PaymentPending, false},
		{"SOMETHING_NEW", orders.StatusPending, orders.PaymentPending, false},
	}
	for _, tc := range cases {
		t.Run(tc.state, func(t *testing.T) {
			out := Reduce(order(orders.StatusPending, orders.PaymentPending), gateway.ParseState(tc.state))
			assert.Equal(t, tc.wantStatus, out.Next.Status)
			assert.Equal(t, tc.wantPayment, out.Next.PaymentStatus)
			assert.Equal(t, tc.becamePaid, out.BecamePaid)
		})
	}
}

func TestReduce_NeverRegressesStatus(t *testing.T) {
	advanced := []orders.Status{orders.StatusPaid, orders.StatusProcessing, orders.StatusShipped, orders.StatusCompleted, orders.StatusCancelled}
	states := []string{"PAID", "CANCELED", "TIMEOUTED", "REFUNDED", "CREATED", "PAYMENT_METHOD_CHOSEN", "??"}

	for _, st := range advanced {
		for _, s := range states {
			out := Reduce(order(st, orders.PaymentPaid), gateway.ParseState(s))
			assert.Equal(t, st, out.Next.Status, "status %s must survive gateway state %s", st, s)
			assert.False(t, out.StatusChanged)
		}
	}
}

func TestReduce_CanceledAfterShipped(t *testing.T) {
	out := Reduce(order(orders.StatusShipped, orders.PaymentPaid), gateway.ParseState("CANCELED"))
	assert.Equal(t, orders.StatusShipped, out.Next.Status)
	assert.Equal(t, orders.PaymentFailed, out.Next.PaymentStatus)
	assert.True(t, out.PaymentChanged)
	assert.False(t, out.BecamePaid)
}

func TestReduce_PaidReplayIsNoop(t *testing.T) {
	in := order(orders.StatusPaid, orders.PaymentPaid)
	out := Reduce(in, gateway.ParseState("PAID"))
	assert.Equal(t, in, out.Next)
	assert.False(t, out.BecamePaid)
	assert.False(t, out.PaymentChanged)
}

func TestReduce_RefundedThenPaidCountsAsBecamePaid(t *testing.T) {
	out := Reduce(order(orders.StatusPaid, orders.PaymentRefunded), gateway.ParseState("PAID"))
	assert.True(t, out.BecamePaid)
	assert.Equal(t, orders.StatusPaid, out.Next.Status)
}

func TestReduce_DoesNotTouchPriceOrToken(t *testing.T) {
	in := order(orders.StatusPending, orders.PaymentPending)
	in.Subtotal, in.Discount, in.ShippingCost = 1500, 150, 79
	in.SecurityToken = "tok"
	out := Reduce(in, gateway.ParseState("PAID"))
	assert.Equal(t, in.TotalPrice, out.Next.TotalPrice)
	assert.Equal(t, in.Subtotal, out.Next.Subtotal)
	assert.Equal(t, in.Discount, out.Next.Discount)
	assert.Equal(t, in.SecurityToken, out.Next.SecurityToken)
}

func TestReduce_InProgressStatesKeepSettledPayment(t *testing.T) {
	for _, p := range []orders.PaymentStatus{orders.PaymentPaid, orders.PaymentRefunded} {
		for _, s := range []string{"CREATED", "PAYMENT_METHOD_CHOSEN"} {
			in := order(orders.StatusPaid, p)
			out := Reduce(in, gateway.ParseState(s))
			assert.Equal(t, p, out.Next.PaymentStatus, "%s must not reopen a %s payment", s, p)
			assert.False(t, out.PaymentChanged)
			assert.False(t, out.BecamePaid)
		}
	}

	out := Reduce(order(orders.StatusCancelled, orders.PaymentFailed), gateway.ParseState("CREATED"))
	assert.Equal(t, orders.PaymentPending, out.Next.PaymentStatus)
	assert.Equal(t, orders.StatusCancelled, out.Next.Status)
}
