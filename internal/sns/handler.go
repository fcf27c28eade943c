package sns

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/valinor-ai/snsgate/internal/events"
	"github.com/valinor-ai/snsgate/internal/platform/middleware"
)

const maxBodySize = 1 << 20

// Handler serves the SNS HTTP(S) subscription endpoint.
type Handler struct {
	auth      *Authenticator
	topics    TopicAllowList
	confirmer Confirmer
	emitter   events.Emitter
	now       func() time.Time
}

// NewHandler creates the delivery handler. A nil emitter discards verified
// messages.
func NewHandler(auth *Authenticator, topics TopicAllowList, confirmer Confirmer, emitter events.Emitter) *Handler {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if confirmer == nil {
		confirmer = NewHTTPConfirmer(nil, 0)
	}
	return &Handler{
		auth:      auth,
		topics:    topics,
		confirmer: confirmer,
		emitter:   emitter,
		now:       time.Now,
	}
}

// HandleNotification authenticates a delivery, confirms subscriptions, and
// emits verified messages downstream.
func (h *Handler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now()

	correlationID := middleware.GetRequestID(ctx)
	if correlationID == "" {
		correlationID = "sns-" + strconv.FormatInt(now.UnixNano(), 10)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":          "invalid request body",
			"correlation_id": correlationID,
		})
		return
	}

	msg, err := ParseMessage(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":          "invalid sns message",
			"correlation_id": correlationID,
		})
		return
	}

	result, err := h.auth.VerifyMessage(ctx, msg, h.topics)
	if err != nil {
		slog.Error("sns signing certificate unavailable",
			"signing_cert_url", msg.SigningCertURL(),
			"topic_arn", msg.TopicArn(),
			"correlation_id", correlationID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":          string(ReasonCertificateUnavailable),
			"correlation_id": correlationID,
		})
		return
	}
	if !result.Verified {
		status := statusForReason(result.Reason)
		slog.Info("sns message rejected",
			"status", status,
			"reason", string(result.Reason),
			"type", msg.Type(),
			"topic_arn", msg.TopicArn(),
			"correlation_id", correlationID,
		)
		writeJSON(w, status, map[string]string{
			"error":          string(result.Reason),
			"correlation_id": correlationID,
		})
		return
	}

	kind := events.KindNotification
	if MessageType(msg.Type()) == TypeSubscriptionConfirmation {
		kind = events.KindSubscriptionConfirmation
		if err := h.confirmer.Confirm(ctx, msg.Get(FieldSubscribeURL)); err != nil {
			slog.Error("sns subscription confirmation failed",
				"topic_arn", msg.TopicArn(),
				"correlation_id", correlationID,
				"error", err,
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":          "failed to confirm subscription",
				"correlation_id": correlationID,
			})
			return
		}
		slog.Info("sns subscription confirmed",
			"topic_arn", msg.TopicArn(),
			"correlation_id", correlationID,
		)
	}

	h.emitter.Emit(ctx, events.Event{
		ID:         events.NewID(),
		Kind:       kind,
		TopicArn:   msg.TopicArn(),
		MessageID:  msg.Get(FieldMessageID),
		Subject:    msg.Get(FieldSubject),
		Message:    msg.Get(FieldMessage),
		Timestamp:  msg.Get(FieldTimestamp),
		ReceivedAt: now.UTC(),
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "ok",
		"correlation_id": correlationID,
	})
}

func statusForReason(reason Reason) int {
	switch reason {
	case ReasonTopicNotAllowed, ReasonSignatureMismatch:
		return http.StatusForbidden
	case ReasonCertificateUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
