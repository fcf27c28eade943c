package sns_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valinor-ai/snsgate/internal/sns"
)

const (
	testTopicArn = "arn:aws:sns:us-east-1:1:topic"
	testCertURL  = "https://sns.us-east-1.amazonaws.com/SimpleNotificationService-aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.pem"
)

type testSigner struct {
	key *rsa.PrivateKey
	pem string
}

var (
	signerOnce   sync.Once
	sharedSigner *testSigner
)

// newTestSigner returns a process-wide RSA key with a matching self-signed
// certificate. Key generation is slow, so it is done once.
func newTestSigner(t *testing.T) *testSigner {
	t.Helper()
	signerOnce.Do(func() {
		sharedSigner = generateSigner(t)
	})
	require.NotNil(t, sharedSigner)
	return sharedSigner
}

func generateSigner(t *testing.T) *testSigner {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "sns.amazonaws.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	return &testSigner{
		key: key,
		pem: string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})),
	}
}

func (s *testSigner) signPlaintext(t *testing.T, plaintext string) string {
	t.Helper()
	digest := sha1.Sum([]byte(plaintext)) //nolint:gosec
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA1, digest[:])
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(sig)
}

// sign sets msg's Signature over its canonical plaintext.
func (s *testSigner) sign(t *testing.T, msg sns.Message) sns.Message {
	t.Helper()
	plaintext, err := sns.CanonicalPlaintext(msg)
	require.NoError(t, err)
	msg[sns.FieldSignature] = s.signPlaintext(t, string(plaintext))
	return msg
}

func notification() sns.Message {
	return sns.Message{
		"Type":             "Notification",
		"MessageId":        "m1",
		"TopicArn":         testTopicArn,
		"SignatureVersion": "1",
		"SigningCertURL":   testCertURL,
		"Timestamp":        "2024-01-01T00:00:00Z",
		"Message":          "hello",
		"Subject":          "",
		"Signature":        "placeholder",
	}
}

func subscriptionConfirmation() sns.Message {
	return sns.Message{
		"Type":             "SubscriptionConfirmation",
		"MessageId":        "c1",
		"Token":            "token-123",
		"TopicArn":         testTopicArn,
		"SignatureVersion": "1",
		"SigningCertURL":   testCertURL,
		"SubscribeURL":     "https://sns.us-east-1.amazonaws.com/?Action=ConfirmSubscription&Token=token-123",
		"Timestamp":        "2024-01-01T00:00:00Z",
		"Message":          "You have chosen to subscribe to the topic.",
		"Signature":        "placeholder",
	}
}

// countingFetcher serves a fixed certificate and records calls.
type countingFetcher struct {
	pem   string
	err   error
	calls atomic.Int32
}

func (f *countingFetcher) Fetch(_ context.Context, _ string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.pem, nil
}

// blockingFetcher holds every download until release is closed.
type blockingFetcher struct {
	pem     string
	release chan struct{}
	calls   atomic.Int32
}

func (f *blockingFetcher) Fetch(ctx context.Context, _ string) (string, error) {
	f.calls.Add(1)
	select {
	case <-f.release:
		return f.pem, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func textResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}
