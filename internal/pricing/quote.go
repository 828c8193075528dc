package pricing

import "fmt"

// Line is a priced cart line.
type Line struct {
	UnitPrice int64
	Quantity  int
}

// Quote is the price breakdown fixed on an order at creation.
type Quote struct {
	Subtotal             int64 `json:"subtotal"`
	Discount             int64 `json:"discount"`
	ShippingCost         int64 `json:"shippingCost"`
	Total                int64 `json:"total"`
	AmountToFreeShipping int64 `json:"amountToFreeShipping"`
}

// Subtotal sums unit price times quantity.
func Subtotal(lines []Line) (int64, error) {
	var sum int64
	for i, l := range lines {
		if l.Quantity <= 0 {
			return 0, fmt.Errorf("line %d: quantity must be positive, got %d", i, l.Quantity)
		}
		if l.UnitPrice < 0 {
			return 0, fmt.Errorf("line %d: unit price cannot be negative, got %d", i, l.UnitPrice)
		}
		sum += l.UnitPrice * int64(l.Quantity)
	}
	return sum, nil
}

// NewQuote prices an order: total = subtotal - discount + shipping. Shipping is
// decided on the subtotal before discount. The discount is not capped.
func (r Rules) NewQuote(subtotal, discount int64) Quote {
	shipping := r.Cost(subtotal)
	return Quote{
		Subtotal:             subtotal,
		Discount:             discount,
		ShippingCost:         shipping,
		Total:                subtotal - discount + shipping,
		AmountToFreeShipping: r.AmountToFreeShipping(subtotal),
	}
}
