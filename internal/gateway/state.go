package gateway

import "strings"

// Kind is the payment state reported by the gateway.
type Kind int

const (
	KindUnknown Kind = iota
	KindCreated
	KindPaymentMethodChosen
	KindPaid
	KindCanceled
	KindTimeouted
	KindRefunded
)

var kindNames = map[string]Kind{
	"CREATED":               KindCreated,
	"PAYMENT_METHOD_CHOSEN": KindPaymentMethodChosen,
	"PAID":                  KindPaid,
	"CANCELED":              KindCanceled,
	"TIMEOUTED":             KindTimeouted,
	"REFUNDED":              KindRefunded,
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "UNKNOWN"
}

// State keeps the raw gateway string next to its parsed kind, so states the
// gateway adds later are still logged and stored verbatim.
type State struct {
	Kind Kind
	Raw  string
}

// ParseState never fails; unrecognised values become KindUnknown.
func ParseState(raw string) State {
	return State{
		Kind: kindNames[strings.ToUpper(strings.TrimSpace(raw))],
		Raw:  raw,
	}
}

func (s State) String() string {
	if s.Kind == KindUnknown {
		return "UNKNOWN(" + s.Raw + ")"
	}
	return s.Kind.String()
}
