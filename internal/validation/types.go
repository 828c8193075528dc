package validation

import (
	"encoding/json"
	"time"
)

// WebhookRequest is the gateway's push notification. Payment ids are numeric;
// a quoted number is accepted, any other string fails binding.
type WebhookRequest struct {
	ID          json.Number `json:"id" validate:"required"`           // gateway payment id
	State       string      `json:"state" validate:"required"`        // raw gateway state
	OrderNumber string      `json:"order_number" validate:"required"` // external order number
}

// PromoValidateRequest is the payload for POST /promo/validate.
type PromoValidateRequest struct {
	Code        string `json:"code" validate:"required,max=64"`
	OrderAmount int64  `json:"orderAmount" validate:"gte=0"`
}

// PromoCodeRequest creates or replaces a promo code.
type PromoCodeRequest struct {
	Code           string    `json:"code" validate:"required,alphanum,max=64"`
	DiscountType   string    `json:"discountType" validate:"required,oneof=PERCENTAGE FIXED"`
	DiscountValue  int64     `json:"discountValue" validate:"gt=0"`
	MinOrderAmount *int64    `json:"minOrderAmount,omitempty" validate:"omitempty,gte=0"`
	MaxUses        *int64    `json:"maxUses,omitempty" validate:"omitempty,gt=0"`
	ValidFrom      time.Time `json:"validFrom" validate:"required"`
	ValidUntil     time.Time `json:"validUntil" validate:"required,gtefield=ValidFrom"`
	IsActive       *bool     `json:"isActive,omitempty"` // defaults to true
}

// StatusUpdateRequest is the admin override of an order's status.
type StatusUpdateRequest struct {
	Status         string  `json:"status" validate:"required,oneof=PENDING PAID PROCESSING SHIPPED COMPLETED CANCELLED"`
	TrackingNumber *string `json:"trackingNumber,omitempty" validate:"omitempty,min=1,max=64"`
}

// CheckoutCustomer identifies the buyer.
type CheckoutCustomer struct {
	Name   string `json:"name" validate:"required,max=200"`
	Email  string `json:"email" validate:"required,email"`
	Phone  string `json:"phone" validate:"omitempty,max=32"`
	UserID string `json:"userId,omitempty"`
}

// CheckoutItem is a cart line with the price the storefront displayed.
type CheckoutItem struct {
	ProductID string `json:"productId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=99"`
	UnitPrice int64  `json:"unitPrice" validate:"gte=0"`
}

// Shipping methods
const (
	ShippingCourier      = "COURIER"
	ShippingParcelLocker = "PARCEL_LOCKER"
	ShippingPickup       = "PICKUP"
)

// CheckoutRequest is the payload for POST /checkout.
type CheckoutRequest struct {
	Customer        CheckoutCustomer `json:"customer" validate:"required"`
	Items           []CheckoutItem   `json:"items" validate:"required,min=1,dive"`
	PromoCode       string           `json:"promoCode,omitempty" validate:"omitempty,max=64"`
	ShippingMethod  string           `json:"shippingMethod" validate:"required,oneof=COURIER PARCEL_LOCKER PICKUP"`
	DeliveryPointID string           `json:"deliveryPointId,omitempty"` // required for PARCEL_LOCKER
}
