// Package events publishes and consumes service events over Redis Streams.
package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event types emitted by the data tier.
const (
	TypeUserCreated  = "user.created"
	TypeOrderCreated = "order.created"
)

// Event is the payload carried on the service-events stream.
type Event struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Service    string `json:"service"`
	RecordID   int64  `json:"recordId,omitempty"`
	OccurredAt int64  `json:"occurredAt"` // Unix milliseconds
}

// NewEvent stamps a new event with a ULID and the current time.
func NewEvent(eventType, service string, recordID int64) Event {
	now := time.Now()
	return Event{
		ID:         ulid.Make().String(),
		Type:       eventType,
		Service:    service,
		RecordID:   recordID,
		OccurredAt: now.UnixMilli(),
	}
}

// Validate checks the fields a consumer relies on.
func Validate(e Event) error {
	if e.ID == "" {
		return errors.New("id is required")
	}
	if _, err := ulid.ParseStrict(e.ID); err != nil {
		return fmt.Errorf("id is not a ULID: %w", err)
	}
	if e.Type == "" {
		return errors.New("type is required")
	}
	if e.Service == "" {
		return errors.New("service is required")
	}
	if e.OccurredAt <= 0 {
		return errors.New("occurredAt is required")
	}
	return nil
}
