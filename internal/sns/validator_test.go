package sns_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valinor-ai/snsgate/internal/sns"
)

func requireReason(t *testing.T, err error, want sns.Reason) *sns.ValidationError {
	t.Helper()
	var vErr *sns.ValidationError
	require.True(t, errors.As(err, &vErr), "expected *ValidationError, got %v", err)
	assert.Equal(t, want, vErr.Reason)
	return vErr
}

func TestValidate_Valid(t *testing.T) {
	allowed := sns.NewTopicAllowList([]string{testTopicArn})

	assert.NoError(t, sns.Validate(notification(), allowed))
	assert.NoError(t, sns.Validate(subscriptionConfirmation(), allowed))
}

func TestValidate_MissingField(t *testing.T) {
	allowed := sns.NewTopicAllowList([]string{testTopicArn})

	for _, field := range []string{"SignatureVersion", "SigningCertURL", "Type", "Signature"} {
		t.Run(field+" absent", func(t *testing.T) {
			msg := notification()
			delete(msg, field)
			vErr := requireReason(t, sns.Validate(msg, allowed), sns.ReasonMissingField)
			assert.Equal(t, field, vErr.Field)
		})
		t.Run(field+" empty", func(t *testing.T) {
			msg := notification()
			msg[field] = ""
			requireReason(t, sns.Validate(msg, allowed), sns.ReasonMissingField)
		})
	}
}

func TestValidate_InvalidType(t *testing.T) {
	msg := notification()
	msg["Type"] = "UnsubscribeConfirmation"

	requireReason(t, sns.Validate(msg, sns.NewTopicAllowList([]string{testTopicArn})), sns.ReasonInvalidType)
}

func TestValidate_InvalidSignatureVersion(t *testing.T) {
	msg := notification()
	msg["SignatureVersion"] = "2"

	requireReason(t, sns.Validate(msg, sns.NewTopicAllowList([]string{testTopicArn})), sns.ReasonInvalidSignatureVersion)
}

func TestValidate_InvalidCertURL(t *testing.T) {
	allowed := sns.NewTopicAllowList([]string{testTopicArn})
	const key = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	cases := map[string]string{
		"http scheme":         "http://sns.us-east-1.amazonaws.com/SimpleNotificationService-" + key + ".pem",
		"foreign host":        "https://sns.us-east-1.evil.com/SimpleNotificationService-" + key + ".pem",
		"host suffix attack":  "https://sns.us-east-1.amazonaws.com.evil.com/SimpleNotificationService-" + key + ".pem",
		"short region":        "https://sns.us.amazonaws.com/SimpleNotificationService-" + key + ".pem",
		"missing sns prefix":  "https://s3.us-east-1.amazonaws.com/SimpleNotificationService-" + key + ".pem",
		"wrong path prefix":   "https://sns.us-east-1.amazonaws.com/Other-" + key + ".pem",
		"short key":           "https://sns.us-east-1.amazonaws.com/SimpleNotificationService-abc.pem",
		"wrong extension":     "https://sns.us-east-1.amazonaws.com/SimpleNotificationService-" + key + ".crt",
		"nested path":         "https://sns.us-east-1.amazonaws.com/x/SimpleNotificationService-" + key + ".pem",
		"query suffix":        "https://sns.us-east-1.amazonaws.com/SimpleNotificationService-" + key + ".pem?x=1",
		"userinfo":            "https://sns.us-east-1.amazonaws.com@evil.com/SimpleNotificationService-" + key + ".pem",
		"explicit port":       "https://sns.us-east-1.amazonaws.com:8443/SimpleNotificationService-" + key + ".pem",
		"uppercase scheme":    "HTTPS://sns.us-east-1.amazonaws.com/SimpleNotificationService-" + key + ".pem",
		"trailing whitespace": testCertURL + " ",
	}

	for name, certURL := range cases {
		t.Run(name, func(t *testing.T) {
			msg := notification()
			msg["SigningCertURL"] = certURL
			requireReason(t, sns.Validate(msg, allowed), sns.ReasonInvalidCertURL)
		})
	}
}

func TestValidCertURL_ChinaPartition(t *testing.T) {
	assert.True(t, sns.ValidCertURL("https://sns.cn-north-1.amazonaws.com.cn/SimpleNotificationService-0123456789abcdef0123456789abcdef.pem"))
}

func TestValidate_TopicNotAllowed(t *testing.T) {
	t.Run("unknown topic", func(t *testing.T) {
		msg := notification()
		msg["TopicArn"] = "arn:aws:sns:us-east-1:1:other"
		requireReason(t, sns.Validate(msg, sns.NewTopicAllowList([]string{testTopicArn})), sns.ReasonTopicNotAllowed)
	})

	t.Run("empty allow-list rejects everything", func(t *testing.T) {
		requireReason(t, sns.Validate(notification(), sns.NewTopicAllowList(nil)), sns.ReasonTopicNotAllowed)
	})

	t.Run("missing topic", func(t *testing.T) {
		msg := notification()
		delete(msg, "TopicArn")
		requireReason(t, sns.Validate(msg, sns.NewTopicAllowList([]string{testTopicArn, ""})), sns.ReasonTopicNotAllowed)
	})
}

func TestValidate_CheckOrder(t *testing.T) {
	msg := notification()
	msg["Type"] = "Bogus"
	msg["SignatureVersion"] = "2"
	msg["SigningCertURL"] = "http://evil.com/cert.pem"
	msg["TopicArn"] = "arn:aws:sns:us-east-1:1:other"

	requireReason(t, sns.Validate(msg, sns.NewTopicAllowList(nil)), sns.ReasonInvalidType)

	msg["Type"] = "Notification"
	requireReason(t, sns.Validate(msg, sns.NewTopicAllowList(nil)), sns.ReasonInvalidSignatureVersion)

	msg["SignatureVersion"] = "1"
	requireReason(t, sns.Validate(msg, sns.NewTopicAllowList(nil)), sns.ReasonInvalidCertURL)
}
