package events

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	KindNotification             = "sns.notification"
	KindSubscriptionConfirmation = "sns.subscription_confirmation"
)

// Event is a verified SNS delivery handed to downstream consumers.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	TopicArn   string    `json:"topic_arn"`
	MessageID  string    `json:"message_id"`
	Subject    string    `json:"subject,omitempty"`
	Message    string    `json:"message"`
	Timestamp  string    `json:"timestamp"`
	ReceivedAt time.Time `json:"received_at"`
}

// NewID returns a lexically sortable event identifier.
func NewID() string {
	return ulid.Make().String()
}

// Emitter is the downstream dispatch interface. Emit is fire-and-forget.
type Emitter interface {
	Emit(ctx context.Context, event Event)
	Close() error
}

// Sink delivers a batch of events to their destination.
type Sink interface {
	Deliver(ctx context.Context, events []Event) error
}

// NopEmitter discards events.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Event) {}
func (NopEmitter) Close() error                { return nil }
