// Package outbox relays rows written in the same transaction as a domain
// change to Kafka, so publication never diverges from the committed state.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message is one outbox row.
type Message struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// NewMessage encodes payload as JSON and stamps a fresh id.
func NewMessage(aggregateType, aggregateID, eventType string, payload any, now time.Time) (Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:            uuid.NewString(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
		CreatedAt:     now,
	}, nil
}

// Source reads pending rows and acknowledges published ones.
type Source interface {
	FetchUnpublished(ctx context.Context, limit int) ([]Message, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
}

// Producer delivers a batch. It returns only once every message was
// acknowledged, or an error.
type Producer interface {
	Produce(ctx context.Context, msgs []Message) error
}
