package events

import (
	"context"
	"log/slog"
	"time"
)

// Handler consumes one event. It has no return channel to any request:
// an error is logged by the worker and the message is still acknowledged.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// LogHandler simulates processing for delay and logs the event.
func LogHandler(logger *slog.Logger, delay time.Duration) Handler {
	return HandlerFunc(func(ctx context.Context, event Event) error {
		logger.Info("received event",
			"event_id", event.ID,
			"type", event.Type,
			"source", event.Service,
			"record_id", event.RecordID,
		)

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		logger.Info("processed event", "event_id", event.ID)
		return nil
	})
}
