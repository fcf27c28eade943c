package sns

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/valinor-ai/snsgate/internal/platform/metrics"
)

// Certificate fetch defaults.
const (
	DefaultFetchAttempts = 3
	DefaultRetryDelay    = 100 * time.Millisecond

	maxCertSize = 64 << 10
)

// Doer is the HTTP client capability used for outbound calls. *http.Client
// satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CertFetcher retrieves PEM text for a signing certificate URL.
type CertFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// CertificateFetchError is returned once certificate resolution has given up.
// Attempts is the number of downloads actually tried, zero when the caller
// stopped waiting before any result.
type CertificateFetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *CertificateFetchError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("fetching signing certificate %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching signing certificate %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *CertificateFetchError) Unwrap() error { return e.Err }

// FetcherConfig controls certificate download retries.
type FetcherConfig struct {
	Attempts   int
	RetryDelay time.Duration
}

// HTTPCertFetcher downloads certificates with a fixed-delay retry loop.
type HTTPCertFetcher struct {
	client   Doer
	attempts int
	delay    time.Duration
}

// NewHTTPCertFetcher creates a fetcher. A nil client falls back to
// http.DefaultClient.
func NewHTTPCertFetcher(client Doer, cfg FetcherConfig) *HTTPCertFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultFetchAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &HTTPCertFetcher{
		client:   client,
		attempts: cfg.Attempts,
		delay:    cfg.RetryDelay,
	}
}

// Fetch returns the response body verbatim. It does not parse the body.
// Bodies larger than 64 KiB are rejected.
func (f *HTTPCertFetcher) Fetch(ctx context.Context, url string) (string, error) {
	var (
		pem      string
		attempts int
	)
	err := Retry(ctx, f.attempts, f.delay, func(ctx context.Context, attempt int) error {
		attempts = attempt
		body, err := f.get(ctx, url)
		if err != nil {
			metrics.CertFetchAttempts.WithLabelValues("failure").Inc()
			slog.Warn("signing certificate fetch failed",
				"url", url,
				"attempt", attempt,
				"error", err,
			)
			return err
		}
		metrics.CertFetchAttempts.WithLabelValues("success").Inc()
		pem = body
		return nil
	})
	if err != nil {
		return "", &CertificateFetchError{URL: url, Attempts: attempts, Err: err}
	}
	return pem, nil
}

func (f *HTTPCertFetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request for %s: %w", url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCertSize+1))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	if len(body) > maxCertSize {
		return "", fmt.Errorf("GET %s: body exceeds %d bytes", url, maxCertSize)
	}
	return string(body), nil
}
