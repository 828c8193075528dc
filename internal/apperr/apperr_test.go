package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"not found", NotFoundf("order %s", "123"), ErrNotFound},
		{"validation", Validationf("bad status %q", "LOST"), ErrValidation},
		{"unauthorized", Unauthorizedf("token mismatch"), ErrUnauthorized},
		{"conflict", Conflictf("version moved"), ErrConflict},
		{"upstream", Upstream("oauth token", errors.New("timeout")), ErrUpstreamUnavailable},
		{"wrapped twice", fmt.Errorf("handler: %w", NotFoundf("x")), ErrNotFound},
		{"plain", errors.New("boom"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Kind(tc.err); got != tc.want {
				t.Fatalf("Kind() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	err := Upstream("status query", errors.New("503"))
	if !IsRetryable(err) {
		t.Fatal("upstream errors must be retryable")
	}
	if !IsRetryable(fmt.Errorf("manual check: %w", err)) {
		t.Fatal("retryable marker must survive wrapping")
	}
	if IsRetryable(Validationf("nope")) {
		t.Fatal("validation errors are not retryable")
	}
	if Retryable(nil) != nil {
		t.Fatal("Retryable(nil) must be nil")
	}
	if got := Upstream("oauth", errors.New("timeout")).Error(); got != "upstream unavailable: oauth: timeout" {
		t.Fatalf("unexpected message %q", got)
	}
}
