package idempotency

import "time"

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// Record is the shape persisted in the idempotency DynamoDB table. One record
// guards one side effect, e.g. "paid-email:<orderNumber>" or
// "promo-redemption:<orderNumber>".
type Record struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key"` // PK
	Status         string    `dynamodbav:"status"`
	Subject        string    `dynamodbav:"subject,omitempty"` // order number the effect belongs to
	Result         string    `dynamodbav:"result,omitempty"`  // small results only
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note           string    `dynamodbav:"note,omitempty"`
}

// ClaimOutcome tells a caller whether it may perform the guarded side effect.
type ClaimOutcome int

const (
	// Acquired: the caller owns the key and must MarkDone or MarkFailed.
	Acquired ClaimOutcome = iota
	// AlreadyDone: the effect completed earlier; skip it.
	AlreadyDone
	// InProgress: another caller holds the key; retry later.
	InProgress
)

func (o ClaimOutcome) String() string {
	switch o {
	case Acquired:
		return "acquired"
	case AlreadyDone:
		return "already_done"
	case InProgress:
		return "in_progress"
	default:
		return "unknown"
	}
}

// PaidEmailKey guards the payment confirmation email of an order.
func PaidEmailKey(orderNumber string) string { return "paid-email:" + orderNumber }

// PromoRedemptionKey guards the promo usage increment of an order.
func PromoRedemptionKey(orderNumber string) string { return "promo-redemption:" + orderNumber }
