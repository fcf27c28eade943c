package sns

import (
	"context"
	"errors"

	"github.com/valinor-ai/snsgate/internal/platform/metrics"
)

const outcomeVerified = "verified"

// Result is the outcome of authenticating one delivery.
type Result struct {
	Verified bool
	Reason   Reason
}

// Authenticator runs the validation and signature checks for inbound deliveries.
type Authenticator struct {
	verifier *Verifier
}

// NewAuthenticator wraps a signature verifier.
func NewAuthenticator(verifier *Verifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// VerifyMessage runs these checks in order:
// required fields -> type -> signature version -> cert URL -> topic -> signature.
// The signature is only checked once every structural check has passed.
// Validation failures and signature mismatches come back as an unverified Result
// with a nil error. A non-nil error means the certificate could not be obtained.
// That error also yields an unverified Result, with ReasonCertificateUnavailable.
func (a *Authenticator) VerifyMessage(ctx context.Context, msg Message, allowed TopicAllowList) (Result, error) {
	if err := Validate(msg, allowed); err != nil {
		return a.reject(reasonOf(err)), nil
	}

	ok, err := a.verifier.Verify(ctx, msg)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return a.reject(vErr.Reason), nil
		}
		return a.reject(ReasonCertificateUnavailable), err
	}
	if !ok {
		return a.reject(ReasonSignatureMismatch), nil
	}

	metrics.Verifications.WithLabelValues(outcomeVerified).Inc()
	return Result{Verified: true}, nil
}

func (a *Authenticator) reject(reason Reason) Result {
	metrics.Verifications.WithLabelValues(string(reason)).Inc()
	return Result{Reason: reason}
}

func reasonOf(err error) Reason {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Reason
	}
	return ReasonInvalidType
}
