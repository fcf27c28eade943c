package sns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultConfirmTimeout bounds the SubscribeURL request.
const DefaultConfirmTimeout = 10 * time.Second

var ErrConfirmationFailed = errors.New("subscription confirmation failed")

// Confirmer acknowledges a SubscriptionConfirmation by visiting its SubscribeURL.
type Confirmer interface {
	Confirm(ctx context.Context, subscribeURL string) error
}

// HTTPConfirmer performs the confirmation GET.
type HTTPConfirmer struct {
	client  Doer
	timeout time.Duration
}

// NewHTTPConfirmer creates a confirmer. A nil client falls back to
// http.DefaultClient.
func NewHTTPConfirmer(client Doer, timeout time.Duration) *HTTPConfirmer {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	return &HTTPConfirmer{client: client, timeout: timeout}
}

// Confirm requires a 200 response from subscribeURL.
func (c *HTTPConfirmer) Confirm(ctx context.Context, subscribeURL string) error {
	if subscribeURL == "" {
		return fmt.Errorf("%w: SubscribeURL is empty", ErrConfirmationFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, subscribeURL, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", subscribeURL, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrConfirmationFailed, subscribeURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s: status %d", ErrConfirmationFailed, subscribeURL, resp.StatusCode)
	}
	return nil
}
