package promo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/imrishuroy/storefront-settlement/internal/apperr"
)

// DiscountType values
const (
	DiscountPercentage = "PERCENTAGE"
	DiscountFixed      = "FIXED"
)

// Code is the item stored in the promo codes table.
type Code struct {
	Code           string    `dynamodbav:"code" json:"code"` // PK, upper-cased
	DiscountType   string    `dynamodbav:"discount_type" json:"discountType"`
	DiscountValue  int64     `dynamodbav:"discount_value" json:"discountValue"`
	MinOrderAmount *int64    `dynamodbav:"min_order_amount,omitempty" json:"minOrderAmount,omitempty"`
	MaxUses        *int64    `dynamodbav:"max_uses,omitempty" json:"maxUses,omitempty"`
	CurrentUses    int64     `dynamodbav:"current_uses" json:"currentUses"`
	ValidFrom      time.Time `dynamodbav:"valid_from" json:"validFrom"`
	ValidUntil     time.Time `dynamodbav:"valid_until" json:"validUntil"`
	IsActive       bool      `dynamodbav:"is_active" json:"isActive"`
	CreatedAt      time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// Result is the outcome of a successful validation.
type Result struct {
	Valid          bool   `json:"valid"`
	Code           string `json:"code"`
	DiscountAmount int64  `json:"discountAmount"`
	DiscountType   string `json:"discountType"`
	DiscountValue  int64  `json:"discountValue"`
}

// Validation failures, in check order.
var (
	ErrNotFound      = fmt.Errorf("%w: promo code does not exist", apperr.ErrNotFound)
	ErrInactive      = fmt.Errorf("%w: promo code is not active", apperr.ErrValidation)
	ErrNotYetValid   = fmt.Errorf("%w: promo code is not valid yet", apperr.ErrValidation)
	ErrExpired       = fmt.Errorf("%w: promo code has expired", apperr.ErrValidation)
	ErrUsageExceeded = fmt.Errorf("%w: promo code usage limit reached", apperr.ErrValidation)
	ErrBelowMinimum  = fmt.Errorf("%w: order amount is below the promo code minimum", apperr.ErrValidation)
	ErrInvalidCode   = fmt.Errorf("%w: invalid promo code configuration", apperr.ErrValidation)
	ErrAlreadyExists = fmt.Errorf("%w: promo code already exists", apperr.ErrConflict)
)

var reasons = []struct {
	err  error
	code string
}{
	{ErrNotFound, "NOT_FOUND"},
	{ErrInactive, "INACTIVE"},
	{ErrNotYetValid, "NOT_YET_VALID"},
	{ErrExpired, "EXPIRED"},
	{ErrUsageExceeded, "USAGE_EXCEEDED"},
	{ErrBelowMinimum, "BELOW_MINIMUM"},
	{ErrInvalidCode, "INVALID_CONFIGURATION"},
	{ErrAlreadyExists, "ALREADY_EXISTS"},
}

// Reason maps a promo error to its API error code; "" for unrelated errors.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.code
		}
	}
	return ""
}

// NormalizeCode trims and upper-cases a code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the code's configuration. It runs on create and update only,
// never when a customer applies the code.
func (c Code) Validate() error {
	if c.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidCode)
	}
	if c.Code != NormalizeCode(c.Code) {
		return fmt.Errorf("%w: code must be upper-case without surrounding spaces", ErrInvalidCode)
	}
	switch c.DiscountType {
	case DiscountPercentage:
		if c.DiscountValue <= 0 || c.DiscountValue > 100 {
			return fmt.Errorf("%w: percentage must be in (0, 100], got %d", ErrInvalidCode, c.DiscountValue)
		}
	case DiscountFixed:
		if c.DiscountValue <= 0 {
			return fmt.Errorf("%w: fixed discount must be positive, got %d", ErrInvalidCode, c.DiscountValue)
		}
	default:
		return fmt.Errorf("%w: unknown discount type %q", ErrInvalidCode, c.DiscountType)
	}
	if c.MinOrderAmount != nil && *c.MinOrderAmount < 0 {
		return fmt.Errorf("%w: minimum order amount cannot be negative", ErrInvalidCode)
	}
	if c.MaxUses != nil && *c.MaxUses <= 0 {
		return fmt.Errorf("%w: max uses must be positive", ErrInvalidCode)
	}
	if c.ValidUntil.Before(c.ValidFrom) {
		return fmt.Errorf("%w: validUntil is before validFrom", ErrInvalidCode)
	}
	return nil
}
