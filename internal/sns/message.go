package sns

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Field names used by SNS HTTP(S) deliveries.
const (
	FieldType             = "Type"
	FieldMessageID        = "MessageId"
	FieldTopicArn         = "TopicArn"
	FieldSubject          = "Subject"
	FieldMessage          = "Message"
	FieldTimestamp        = "Timestamp"
	FieldToken            = "Token"
	FieldSubscribeURL     = "SubscribeURL"
	FieldSignature        = "Signature"
	FieldSignatureVersion = "SignatureVersion"
	FieldSigningCertURL   = "SigningCertURL"
)

// MessageType is the closed set of SNS deliveries this package authenticates.
type MessageType string

const (
	TypeSubscriptionConfirmation MessageType = "SubscriptionConfirmation"
	TypeNotification             MessageType = "Notification"
)

var (
	ErrUnknownMessageType = errors.New("unknown sns message type")
	ErrMalformedMessage   = errors.New("malformed sns message")
)

// ParseMessageType maps a raw Type value onto a known MessageType.
func ParseMessageType(raw string) (MessageType, error) {
	switch MessageType(raw) {
	case TypeSubscriptionConfirmation, TypeNotification:
		return MessageType(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMessageType, raw)
	}
}

// SignedFields returns the ordered field names whose values form the signed
// plaintext. The order is part of the SNS wire contract.
func (t MessageType) SignedFields() []string {
	switch t {
	case TypeSubscriptionConfirmation:
		return []string{FieldMessage, FieldMessageID, FieldSubscribeURL, FieldTimestamp, FieldToken, FieldTopicArn, FieldType}
	case TypeNotification:
		return []string{FieldMessage, FieldMessageID, FieldSubject, FieldTimestamp, FieldTopicArn, FieldType}
	default:
		return nil
	}
}

// FieldsFor returns the signed field list for a raw Type value.
func FieldsFor(raw string) ([]string, error) {
	t, err := ParseMessageType(raw)
	if err != nil {
		return nil, err
	}
	return t.SignedFields(), nil
}

// Message is a decoded SNS delivery. It is treated as immutable once parsed.
type Message map[string]string

// ParseMessage decodes a JSON delivery body. Every value must be a JSON
// string; null values are dropped.
func ParseMessage(body []byte) (Message, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedMessage)
	}

	msg := make(Message, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			msg[key] = v
		default:
			return nil, fmt.Errorf("%w: field %s is not a string", ErrMalformedMessage, key)
		}
	}
	return msg, nil
}

// Get returns the value of field, or "" when absent.
func (m Message) Get(field string) string {
	return m[field]
}

// Lookup reports whether field is present alongside its value.
func (m Message) Lookup(field string) (string, bool) {
	v, ok := m[field]
	return v, ok
}

func (m Message) Type() string           { return m[FieldType] }
func (m Message) TopicArn() string       { return m[FieldTopicArn] }
func (m Message) SigningCertURL() string { return m[FieldSigningCertURL] }
