package pricing

// Default shipping rules, in whole crowns.
const (
	FreeShippingThreshold int64 = 2000
	StandardShippingCost  int64 = 79
)

// Rules holds the free-shipping threshold and the flat shipping cost.
type Rules struct {
	FreeShippingThreshold int64
	StandardShippingCost  int64
}

// DefaultRules returns the storefront's standard shipping rules.
func DefaultRules() Rules {
	return Rules{
		FreeShippingThreshold: FreeShippingThreshold,
		StandardShippingCost:  StandardShippingCost,
	}
}

// Cost is free at or above the threshold, flat otherwise.
func (r Rules) Cost(subtotal int64) int64 {
	if subtotal >= r.FreeShippingThreshold {
		return 0
	}
	return r.StandardShippingCost
}

// AmountToFreeShipping is how much more the customer needs to spend; never negative.
func (r Rules) AmountToFreeShipping(subtotal int64) int64 {
	return max(0, r.FreeShippingThreshold-subtotal)
}

// Cost applies DefaultRules.
func Cost(subtotal int64) int64 { return DefaultRules().Cost(subtotal) }

// AmountToFreeShipping applies DefaultRules.
func AmountToFreeShipping(subtotal int64) int64 {
	return DefaultRules().AmountToFreeShipping(subtotal)
}
