package submission

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"leftmove.org/leftmove-web/internal/contact"
)

// ErrNoSink is returned by Fanout when no sink is configured.
var ErrNoSink = errors.New("submission: no sink configured")

// Message is a validated contact submission ready for delivery.
type Message struct {
	ID         string    `json:"id" firestore:"id"`
	Name       string    `json:"name" firestore:"name"`
	Email      string    `json:"email" firestore:"email"`
	Message    string    `json:"message" firestore:"message"`
	Lang       string    `json:"lang,omitempty" firestore:"lang,omitempty"`
	RequestID  string    `json:"requestId,omitempty" firestore:"requestId,omitempty"`
	ReceivedAt time.Time `json:"receivedAt" firestore:"receivedAt"`
}

// Sink delivers submissions somewhere outside the process.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// Builder turns contact payloads into messages with ULID ids.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder using now as its clock. A nil clock means time.Now.
func NewBuilder(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

// Build stamps the payload with an id and receive time. The visitor's values are
// carried exactly as submitted.
func (b *Builder) Build(data contact.Data, lang, requestID string) Message {
	at := b.now().UTC()
	return Message{
		ID:         ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		Name:       data.Name,
		Email:      data.Email,
		Message:    data.Message,
		Lang:       lang,
		RequestID:  requestID,
		ReceivedAt: at,
	}
}
