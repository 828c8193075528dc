package promo

import (
	"context"
	"math"
	"time"
)

// Lookup finds a promo code by its normalized value; (nil, nil) when missing.
type Lookup interface {
	Get(ctx context.Context, code string) (*Code, error)
}

// Validator checks codes customers apply at checkout.
type Validator struct {
	codes Lookup
}

func NewValidator(codes Lookup) *Validator {
	return &Validator{codes: codes}
}

// Validate looks the code up and runs Check. It has no side effects.
func (v *Validator) Validate(ctx context.Context, code string, orderAmount int64, now time.Time) (Result, error) {
	c, err := v.codes.Get(ctx, NormalizeCode(code))
	if err != nil {
		return Result{}, err
	}
	return Check(c, orderAmount, now)
}

// Check validates c for orderAmount at now, short-circuiting on the first
// failure: existence, active flag, validity window, usage cap, minimum amount.
func Check(c *Code, orderAmount int64, now time.Time) (Result, error) {
	switch {
	case c == nil:
		return Result{}, ErrNotFound
	case !c.IsActive:
		return Result{}, ErrInactive
	case now.Before(c.ValidFrom):
		return Result{}, ErrNotYetValid
	case now.After(c.ValidUntil):
		return Result{}, ErrExpired
	case c.MaxUses != nil && c.CurrentUses >= *c.MaxUses:
		return Result{}, ErrUsageExceeded
	case c.MinOrderAmount != nil && orderAmount < *c.MinOrderAmount:
		return Result{}, ErrBelowMinimum
	}

	return Result{
		Valid:          true,
		Code:           c.Code,
		DiscountAmount: Discount(c.DiscountType, c.DiscountValue, orderAmount),
		DiscountType:   c.DiscountType,
		DiscountValue:  c.DiscountValue,
	}, nil
}

// Discount computes the discount for orderAmount. Percentages round half away
// from zero; fixed amounts are not capped at the order amount.
func Discount(discountType string, value, orderAmount int64) int64 {
	if discountType == DiscountPercentage {
		return int64(math.Round(float64(orderAmount) * float64(value) / 100))
	}
	return value
}
