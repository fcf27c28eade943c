package sns

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // SignatureVersion 1 is SHA1withRSA on the SNS wire.
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/valinor-ai/snsgate/internal/platform/metrics"
)

// DefaultFetchTimeout bounds a single certificate resolution, retries included.
const DefaultFetchTimeout = 10 * time.Second

// VerifierConfig tunes certificate resolution.
type VerifierConfig struct {
	FetchTimeout time.Duration
}

// Verifier checks SNS SignatureVersion 1 signatures against the signing
// certificate named in the message.
type Verifier struct {
	cache        *CertCache
	fetcher      CertFetcher
	fetchTimeout time.Duration
	inflight     singleflight.Group
}

// NewVerifier creates a verifier that resolves certificates through cache
// first and fetcher on a miss.
func NewVerifier(cache *CertCache, fetcher CertFetcher, cfg VerifierConfig) *Verifier {
	if cache == nil {
		cache = NewCertCache(DefaultCertCacheSize, DefaultCertCacheTTL)
	}
	if fetcher == nil {
		fetcher = NewHTTPCertFetcher(nil, FetcherConfig{})
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Verifier{
		cache:        cache,
		fetcher:      fetcher,
		fetchTimeout: cfg.FetchTimeout,
	}
}

// CanonicalPlaintext builds the byte string SNS signs for msg: "name\nvalue\n"
// for each signed field of the message type, in schema order. Fields the
// message does not carry are skipped.
func CanonicalPlaintext(msg Message) ([]byte, error) {
	fields, err := FieldsFor(msg.Type())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for _, field := range fields {
		value, ok := msg.Lookup(field)
		if !ok {
			continue
		}
		buf.WriteString(field)
		buf.WriteByte('\n')
		buf.WriteString(value)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Verify reports whether msg carries a valid signature. A mismatch is a false
// result, not an error. An error means the certificate could not be obtained.
// Callers must treat an error as a rejection.
func (v *Verifier) Verify(ctx context.Context, msg Message) (bool, error) {
	plaintext, err := CanonicalPlaintext(msg)
	if err != nil {
		return false, &ValidationError{Reason: ReasonInvalidType, Field: FieldType, Value: msg.Type()}
	}

	certURL := msg.SigningCertURL()
	if !ValidCertURL(certURL) {
		return false, &ValidationError{Reason: ReasonInvalidCertURL, Field: FieldSigningCertURL, Value: certURL}
	}

	pemText, err := v.certificate(ctx, certURL)
	if err != nil {
		return false, err
	}

	return checkSignature(pemText, plaintext, msg.Get(FieldSignature)), nil
}

func (v *Verifier) certificate(ctx context.Context, url string) (string, error) {
	if pemText, ok := v.cache.Get(url); ok {
		metrics.CertCacheLookups.WithLabelValues("hit").Inc()
		return pemText, nil
	}
	metrics.CertCacheLookups.WithLabelValues("miss").Inc()

	// The download outlives the originating request so a slow fetch can still
	// warm the cache for later deliveries. The caller stops waiting at its own
	// deadline.
	ch := v.inflight.DoChan(url, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.fetchTimeout)
		defer cancel()

		pemText, err := v.fetcher.Fetch(fetchCtx, url)
		if err != nil {
			return "", err
		}
		v.cache.Put(url, pemText)
		return pemText, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", &CertificateFetchError{URL: url, Err: ctx.Err()}
	}
}

func checkSignature(pemText string, plaintext []byte, signature string) bool {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		slog.Debug("signing certificate is not PEM encoded")
		return false
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		slog.Debug("parsing signing certificate", "error", err)
		return false
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		slog.Debug("signing certificate does not carry an RSA key")
		return false
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	digest := sha1.Sum(plaintext) //nolint:gosec
	return rsa.VerifyPKCS1v15(pub, crypto.SHA1, digest[:], sig) == nil
}
