package orders

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// NewParams carries what checkout has decided about a new order.
type NewParams struct {
	Customer        Customer
	Items           []LineItem
	Subtotal        int64
	Discount        int64
	ShippingCost    int64
	PromoCode       *string
	ShippingMethod  string
	DeliveryPointID string
}

// New builds a PENDING/PENDING order with fresh identifiers. The security
// token is generated here and nowhere else.
func New(p NewParams, now time.Time) (Order, error) {
	number, err := NewOrderNumber(now)
	if err != nil {
		return Order{}, err
	}
	token, err := NewSecurityToken()
	if err != nil {
		return Order{}, err
	}

	o := Order{
		ID:              uuid.NewString(),
		OrderNumber:     number,
		Customer:        p.Customer,
		Items:           p.Items,
		Subtotal:        p.Subtotal,
		Discount:        p.Discount,
		ShippingCost:    p.ShippingCost,
		TotalPrice:      p.Subtotal - p.Discount + p.ShippingCost,
		PromoCode:       p.PromoCode,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		ShippingMethod:  p.ShippingMethod,
		DeliveryPointID: p.DeliveryPointID,
		SecurityToken:   token,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
	return o, o.Validate()
}

// NewOrderNumber is the creation date (YYMMDD) followed by six random digits.
func NewOrderNumber(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	return fmt.Sprintf("%s%06d", now.Format("060102"), n.Int64()), nil
}

// NewSecurityToken returns 32 random bytes, hex encoded.
func NewSecurityToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate security token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
