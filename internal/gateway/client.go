// Package gateway talks to the payment gateway's REST API: an OAuth2
// client-credentials token exchange followed by a payment status query.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/imrishuroy/storefront-settlement/internal/apperr"
)

// DefaultTimeout bounds the token exchange and the status query separately.
const DefaultTimeout = 10 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Scope        string
	Timeout      time.Duration
	// HTTPClient is used for both token and API calls; its Timeout is
	// overwritten with Timeout.
	HTTPClient *http.Client
}

// Payment is the gateway's view of one payment.
type Payment struct {
	ID          string
	OrderNumber string
	State       State
	// Raw is the response body as received.
	Raw string
}

// Client queries payment status. Tokens are cached until they expire.
type Client struct {
	baseURL string
	http    *http.Client
	creds   clientcredentials.Config

	mu  sync.Mutex
	tok *oauth2.Token
}

// NewClient builds a client for the gateway at opts.BaseURL.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := &http.Client{Timeout: timeout}
	if opts.HTTPClient != nil {
		c := *opts.HTTPClient
		c.Timeout = timeout
		hc = &c
	}
	base := strings.TrimRight(opts.BaseURL, "/")

	cc := clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     base + "/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	if opts.Scope != "" {
		cc.Scopes = []string{opts.Scope}
	}
	return &Client{
		baseURL: base,
		http:    hc,
		creds:   cc,
	}
}

// token returns the cached token or exchanges a new one on the caller's
// context, so cancelling a status query also aborts its token exchange.
func (c *Client) token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tok.Valid() {
		return c.tok, nil
	}
	tok, err := c.creds.Token(context.WithValue(ctx, oauth2.HTTPClient, c.http))
	if err != nil {
		return nil, err
	}
	c.tok = tok
	return tok, nil
}

type paymentResponse struct {
	ID          json.Number `json:"id"`
	OrderNumber string      `json:"order_number"`
	State       string      `json:"state"`
}

// PaymentStatus fetches the current state of paymentID. Transport failures,
// timeouts and 5xx answers are retryable ErrUpstreamUnavailable errors; an
// unknown payment is ErrNotFound.
func (c *Client) PaymentStatus(ctx context.Context, paymentID string) (Payment, error) {
	if paymentID == "" {
		return Payment{}, apperr.Validationf("payment id is required")
	}
	tok, err := c.token(ctx)
	if err != nil {
		return Payment{}, apperr.Upstream("oauth token", err)
	}

	endpoint := c.baseURL + "/payments/payment/" + url.PathEscape(paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Payment{}, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	tok.SetAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return Payment{}, apperr.Upstream("payment status", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Payment{}, apperr.Upstream("payment status", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Payment{}, apperr.NotFoundf("payment %s not found at gateway", paymentID)
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return Payment{}, apperr.Upstream("payment status", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return Payment{}, fmt.Errorf("payment status %s: unexpected status %d: %s", paymentID, resp.StatusCode, body)
	}

	var pr paymentResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return Payment{}, apperr.Upstream("payment status", fmt.Errorf("decode body: %w", err))
	}
	id := pr.ID.String()
	if id == "" {
		id = paymentID
	}
	return Payment{
		ID:          id,
		OrderNumber: pr.OrderNumber,
		State:       ParseState(pr.State),
		Raw:         string(body),
	}, nil
}
