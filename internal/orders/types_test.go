package orders

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/imrishuroy/storefront-settlement/internal/apperr"
)

func TestNew_Invariants(t *testing.T) {
	o, err := New(NewParams{
		Items:        []LineItem{{ProductID: "p", Quantity: 2, UnitPrice: 750}},
		Subtotal:     1500,
		Discount:     150,
		ShippingCost: 79,
	}, time.Date(2025, time.July, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != StatusPending || o.PaymentStatus != PaymentPending {
		t.Fatalf("new orders start PENDING/PENDING, got %s/%s", o.Status, o.PaymentStatus)
	}
	if o.TotalPrice != 1429 {
		t.Fatalf("total = %d, want 1429", o.TotalPrice)
	}
	if !regexp.MustCompile(`^250701\d{6}$`).MatchString(o.OrderNumber) {
		t.Fatalf("unexpected order number %q", o.OrderNumber)
	}
	if len(o.SecurityToken) != 64 {
		t.Fatalf("security token should be 64 hex chars, got %d", len(o.SecurityToken))
	}
	if o.ID == "" || o.ID == o.OrderNumber {
		t.Fatalf("storage id must be set and differ from the order number")
	}
	if o.HasPayment() {
		t.Fatal("new orders have no payment id")
	}

	other, _ := New(NewParams{Items: o.Items, Subtotal: 1500}, time.Now())
	if other.SecurityToken == o.SecurityToken {
		t.Fatal("security tokens must be unique")
	}
}

func TestNew_SubtotalMismatch(t *testing.T) {
	_, err := New(NewParams{
		Items:    []LineItem{{ProductID: "p", Quantity: 1, UnitPrice: 100}},
		Subtotal: 99,
	}, time.Now())
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		if err != nil || got != s {
			t.Fatalf("ParseStatus(%s) = %s, %v", s, got, err)
		}
	}
	for _, bad := range []string{"", "pending", "LOST", "REFUNDED"} {
		if _, err := ParseStatus(bad); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("ParseStatus(%q) should fail with validation error, got %v", bad, err)
		}
	}
}

func TestCheckOverride(t *testing.T) {
	if err := CheckOverride(StatusCompleted, PaymentFailed); err == nil {
		t.Fatal("COMPLETED with FAILED payment must be rejected")
	}
	if err := CheckOverride(StatusShipped, PaymentFailed); err == nil {
		t.Fatal("SHIPPED with FAILED payment must be rejected")
	}
	if err := CheckOverride(StatusCancelled, PaymentFailed); err != nil {
		t.Fatalf("cancelling a failed payment is fine: %v", err)
	}
	if err := CheckOverride(StatusShipped, PaymentPaid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckOverride_PaidNeedsPayment(t *testing.T) {
	if err := CheckOverride(StatusPaid, PaymentPending); err == nil {
		t.Fatal("PAID with PENDING payment must be rejected")
	}
	if err := CheckOverride(StatusProcessing, PaymentPending); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
