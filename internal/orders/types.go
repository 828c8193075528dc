package orders

import (
	"fmt"
	"time"

	"github.com/imrishuroy/storefront-settlement/internal/apperr"
)

// Status is the order lifecycle.
type Status string

// Order statuses
const (
	StatusPending    Status = "PENDING"
	StatusPaid       Status = "PAID"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// PaymentStatus is the payment lifecycle, driven by the gateway.
type PaymentStatus string

// Payment statuses
const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Statuses lists every order status, in lifecycle order.
var Statuses = []Status{StatusPending, StatusPaid, StatusProcessing, StatusShipped, StatusCompleted, StatusCancelled}

// ParseStatus accepts only the fixed status values.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", apperr.Validationf("unknown order status %q", s)
}

// Customer identifies who placed the order.
type Customer struct {
	Name   string `dynamodbav:"name" json:"name"`
	Email  string `dynamodbav:"email" json:"email"`
	Phone  string `dynamodbav:"phone" json:"phone"`
	UserID string `dynamodbav:"user_id,omitempty" json:"userId,omitempty"`
}

// LineItem is a snapshot of a product line at checkout time.
type LineItem struct {
	ProductID string `dynamodbav:"product_id" json:"productId"`
	Name      string `dynamodbav:"name" json:"name"`
	Size      string `dynamodbav:"size,omitempty" json:"size,omitempty"`
	Quantity  int    `dynamodbav:"quantity" json:"quantity"`
	UnitPrice int64  `dynamodbav:"unit_price" json:"unitPrice"`
}

// Order represents the item stored in the Orders DynamoDB table.
type Order struct {
	ID              string        `dynamodbav:"order_id" json:"id"`              // PK
	OrderNumber     string        `dynamodbav:"order_number" json:"orderNumber"` // GSI order_number-index
	Customer        Customer      `dynamodbav:"customer" json:"customer"`
	Items           []LineItem    `dynamodbav:"items" json:"items"`
	Subtotal        int64         `dynamodbav:"subtotal" json:"subtotal"`
	Discount        int64         `dynamodbav:"discount" json:"discount"`
	ShippingCost    int64         `dynamodbav:"shipping_cost" json:"shippingCost"`
	TotalPrice      int64         `dynamodbav:"total_price" json:"totalPrice"`
	PromoCode       *string       `dynamodbav:"promo_code,omitempty" json:"promoCode,omitempty"`
	Status          Status        `dynamodbav:"status" json:"status"`
	PaymentStatus   PaymentStatus `dynamodbav:"payment_status" json:"paymentStatus"`
	PaymentID       *string       `dynamodbav:"payment_id,omitempty" json:"paymentId,omitempty"`
	GatewayData     string        `dynamodbav:"gateway_data,omitempty" json:"-"` // last raw gateway payload
	ShippingMethod  string        `dynamodbav:"shipping_method" json:"shippingMethod"`
	DeliveryPointID string        `dynamodbav:"delivery_point_id,omitempty" json:"deliveryPointId,omitempty"`
	TrackingNumber  *string       `dynamodbav:"tracking_number,omitempty" json:"trackingNumber,omitempty"`
	SecurityToken   string        `dynamodbav:"security_token" json:"-"`
	CreatedAt       time.Time     `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `dynamodbav:"updated_at" json:"updatedAt"`
	Version         int64         `dynamodbav:"version" json:"-"`
}

// HasPayment reports whether the gateway has assigned a payment id.
func (o Order) HasPayment() bool {
	return o.PaymentID != nil && *o.PaymentID != ""
}

// Validate checks the invariants fixed at creation.
func (o Order) Validate() error {
	if len(o.Items) == 0 {
		return apperr.Validationf("order has no items")
	}
	var subtotal int64
	for i, it := range o.Items {
		if it.Quantity <= 0 {
			return apperr.Validationf("item %d: quantity must be positive", i)
		}
		if it.UnitPrice < 0 {
			return apperr.Validationf("item %d: unit price cannot be negative", i)
		}
		subtotal += it.UnitPrice * int64(it.Quantity)
	}
	if subtotal != o.Subtotal {
		return apperr.Validationf("subtotal %d does not match items %d", o.Subtotal, subtotal)
	}
	if o.TotalPrice != o.Subtotal-o.Discount+o.ShippingCost {
		return apperr.Validationf("total %d != subtotal %d - discount %d + shipping %d",
			o.TotalPrice, o.Subtotal, o.Discount, o.ShippingCost)
	}
	if o.SecurityToken == "" {
		return apperr.Validationf("security token is required")
	}
	return nil
}

// CheckOverride rejects admin status overrides that would pair an advanced
// order status with a failed payment, or claim PAID before the gateway did.
func CheckOverride(next Status, payment PaymentStatus) error {
	switch {
	case payment == PaymentFailed && next != StatusPending && next != StatusCancelled:
		return apperr.Validationf("cannot set status %s while payment is %s", next, payment)
	case payment == PaymentPending && next == StatusPaid:
		return apperr.Validationf("cannot set status %s while payment is %s", next, payment)
	}
	return nil
}

// String helps log formatting.
func (o Order) String() string {
	return fmt.Sprintf("order %s (%s/%s v%d)", o.OrderNumber, o.Status, o.PaymentStatus, o.Version)
}
