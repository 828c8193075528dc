package promo

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/storefront-settlement/internal/apperr"
)

var now = time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC)

func ptr(n int64) *int64 { return &n }

func summer10() *Code {
	return &Code{
		Code:           "SUMMER10",
		DiscountType:   DiscountPercentage,
		DiscountValue:  10,
		MinOrderAmount: ptr(1000),
		ValidFrom:      now.AddDate(0, -1, 0),
		ValidUntil:     now.AddDate(0, 1, 0),
		IsActive:       true,
	}
}

type mapLookup map[string]*Code

func (m mapLookup) Get(ctx context.Context, code string) (*Code, error) {
	return m[code], nil
}

func TestCheck_Summer10(t *testing.T) {
	res, err := Check(summer10(), 1500, now)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, int64(150), res.DiscountAmount)
	assert.Equal(t, DiscountPercentage, res.DiscountType)
	assert.Equal(t, int64(10), res.DiscountValue)
}

func TestCheck_OrderOfFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Code)
		amount int64
		want   error
	}{
		{"inactive wins over expired", func(c *Code) { c.IsActive = false; c.ValidUntil = now.Add(-time.Hour) }, 1500, ErrInactive},
		{"not yet valid", func(c *Code) { c.ValidFrom = now.Add(time.Minute) }, 1500, ErrNotYetValid},
		{"expired", func(c *Code) { c.ValidUntil = now.Add(-time.Nanosecond) }, 1500, ErrExpired},
		{"expired wins over usage", func(c *Code) { c.ValidUntil = now.Add(-time.Hour); c.MaxUses = ptr(1); c.CurrentUses = 1 }, 1500, ErrExpired},
		{"usage exceeded", func(c *Code) { c.MaxUses = ptr(5); c.CurrentUses = 5 }, 1500, ErrUsageExceeded},
		{"usage wins over minimum", func(c *Code) { c.MaxUses = ptr(5); c.CurrentUses = 6 }, 10, ErrUsageExceeded},
		{"below minimum", func(c *Code) {}, 999, ErrBelowMinimum},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := summer10()
			tc.mutate(c)
			_, err := Check(c, tc.amount, now)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCheck_Boundaries(t *testing.T) {
	c := summer10()
	c.ValidFrom = now
	c.ValidUntil = now
	c.MaxUses = ptr(3)
	c.CurrentUses = 2

	res, err := Check(c, 1000, now)
	require.NoError(t, err, "validFrom/validUntil are inclusive and amount == minimum is accepted")
	assert.Equal(t, int64(100), res.DiscountAmount)
}

func TestCheck_Missing(t *testing.T) {
	_, err := Check(nil, 100, now)
	require.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "NOT_FOUND", Reason(err))
}

func TestCheck_ErrorKinds(t *testing.T) {
	c := summer10()
	c.IsActive = false
	_, err := Check(c, 1500, now)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "INACTIVE", Reason(err))
	assert.Equal(t, "", Reason(errors.New("other")))
}

func TestDiscount_PercentageProperty(t *testing.T) {
	for v := int64(1); v <= 100; v++ {
		for _, a := range []int64{0, 1, 5, 99, 150, 1499, 1500, 12345} {
			got := Discount(DiscountPercentage, v, a)
			want := int64(math.Round(float64(a) * float64(v) / 100))
			if got != want {
				t.Fatalf("Discount(%d%%, %d) = %d, want %d", v, a, got, want)
			}
			if got > a {
				t.Fatalf("Discount(%d%%, %d) = %d exceeds the order amount", v, a, got)
			}
		}
	}
	// half rounds away from zero
	assert.Equal(t, int64(1), Discount(DiscountPercentage, 10, 5))
	assert.Equal(t, int64(0), Discount(DiscountPercentage, 10, 4))
}

func TestDiscount_FixedIsUncapped(t *testing.T) {
	assert.Equal(t, int64(500), Discount(DiscountFixed, 500, 100))
}

func TestValidate_FixedIsRepeatable(t *testing.T) {
	fixed := &Code{
		Code:          "MINUS200",
		DiscountType:  DiscountFixed,
		DiscountValue: 200,
		ValidFrom:     now.AddDate(0, 0, -1),
		ValidUntil:    now.AddDate(0, 0, 1),
		IsActive:      true,
		MaxUses:       ptr(10),
		CurrentUses:   3,
	}
	v := NewValidator(mapLookup{"MINUS200": fixed})

	first, err := v.Validate(context.Background(), " minus200 ", 800, now)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := v.Validate(context.Background(), "MINUS200", 800, now)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, int64(3), fixed.CurrentUses, "validation must not touch the usage counter")
	assert.Equal(t, int64(200), first.DiscountAmount)
}

func TestValidate_NotFound(t *testing.T) {
	v := NewValidator(mapLookup{})
	_, err := v.Validate(context.Background(), "NOPE", 800, now)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCode_Validate(t *testing.T) {
	valid := *summer10()
	require.NoError(t, valid.Validate())

	cases := map[string]func(c *Code){
		"percentage over 100": func(c *Code) { c.DiscountValue = 101 },
		"percentage zero":     func(c *Code) { c.DiscountValue = 0 },
		"fixed negative":      func(c *Code) { c.DiscountType = DiscountFixed; c.DiscountValue = -5 },
		"unknown type":        func(c *Code) { c.DiscountType = "BOGO" },
		"lower-case code":     func(c *Code) { c.Code = "summer10" },
		"empty code":          func(c *Code) { c.Code = "" },
		"inverted window":     func(c *Code) { c.ValidUntil = c.ValidFrom.Add(-time.Second) },
		"zero max uses":       func(c *Code) { c.MaxUses = ptr(0) },
		"negative minimum":    func(c *Code) { c.MinOrderAmount = ptr(-1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := *summer10()
			mutate(&c)
			err := c.Validate()
			require.ErrorIs(t, err, ErrInvalidCode)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	hundred := *summer10()
	hundred.DiscountValue = 100
	assert.NoError(t, hundred.Validate())
}
