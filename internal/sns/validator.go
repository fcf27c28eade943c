package sns

import (
	"fmt"
	"regexp"
)

// Reason is a machine-readable rejection code.
type Reason string

const (
	ReasonMissingField            Reason = "missing_field"
	ReasonInvalidType             Reason = "invalid_type"
	ReasonInvalidSignatureVersion Reason = "invalid_signature_version"
	ReasonInvalidCertURL          Reason = "invalid_cert_url"
	ReasonTopicNotAllowed         Reason = "topic_not_allowed"
	ReasonSignatureMismatch       Reason = "signature_mismatch"
	ReasonCertificateUnavailable  Reason = "certificate_unavailable"
)

// SignatureVersionV1 is the only supported signing scheme (SHA1withRSA).
const SignatureVersionV1 = "1"

var certURLPattern = regexp.MustCompile(`^https://sns\.[a-zA-Z0-9-]{3,}\.amazonaws\.com(\.cn)?/SimpleNotificationService-[a-zA-Z0-9]{32}\.pem$`)

var requiredFields = []string{FieldSignatureVersion, FieldSigningCertURL, FieldType, FieldSignature}

// ValidationError reports the first structural check a message failed.
type ValidationError struct {
	Reason Reason
	Field  string
	Value  string
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonMissingField:
		return fmt.Sprintf("sns validation: %s: %s", e.Reason, e.Field)
	default:
		return fmt.Sprintf("sns validation: %s: %q", e.Reason, e.Value)
	}
}

// TopicAllowList is the set of TopicArns accepted by the receiver.
type TopicAllowList map[string]struct{}

// NewTopicAllowList builds an allow-list. An empty list rejects every topic.
func NewTopicAllowList(arns []string) TopicAllowList {
	l := make(TopicAllowList, len(arns))
	for _, arn := range arns {
		if arn == "" {
			continue
		}
		l[arn] = struct{}{}
	}
	return l
}

// Allows reports whether arn is on the list.
func (l TopicAllowList) Allows(arn string) bool {
	_, ok := l[arn]
	return ok
}

// ValidCertURL reports whether rawURL is an SNS signing certificate location.
func ValidCertURL(rawURL string) bool {
	return certURLPattern.MatchString(rawURL)
}

// Validate runs the structural checks in order and returns the first failure as
// a *ValidationError.
func Validate(msg Message, allowed TopicAllowList) error {
	for _, field := range requiredFields {
		if msg.Get(field) == "" {
			return &ValidationError{Reason: ReasonMissingField, Field: field}
		}
	}

	if _, err := ParseMessageType(msg.Type()); err != nil {
		return &ValidationError{Reason: ReasonInvalidType, Field: FieldType, Value: msg.Type()}
	}

	if v := msg.Get(FieldSignatureVersion); v != SignatureVersionV1 {
		return &ValidationError{Reason: ReasonInvalidSignatureVersion, Field: FieldSignatureVersion, Value: v}
	}

	if !ValidCertURL(msg.SigningCertURL()) {
		return &ValidationError{Reason: ReasonInvalidCertURL, Field: FieldSigningCertURL, Value: msg.SigningCertURL()}
	}

	if !allowed.Allows(msg.TopicArn()) {
		return &ValidationError{Reason: ReasonTopicNotAllowed, Field: FieldTopicArn, Value: msg.TopicArn()}
	}

	return nil
}
