// Package service implements the operations every tier exposes: workload
// generators, forwarding to the next tier, and record access on the data tier.
package service

import (
	"context"
	"time"

	"github.com/tracechain/tracechain/internal/events"
	"github.com/tracechain/tracechain/internal/model"
)

// RecordStore is the keyed storage owned by the data tier.
// Identity is assigned by the store and never reused.
type RecordStore interface {
	CreateUser(ctx context.Context, in model.NewUser) (model.User, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateOrder(ctx context.Context, in model.NewOrder) (model.Order, error)
	GetOrder(ctx context.Context, id int64) (model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
}

// EventPublisher emits record events without blocking the caller.
type EventPublisher interface {
	PublishAsync(event events.Event)
}

// Business event types recorded in business_events_total.
const (
	EventDataFetch  = "data_fetch"
	EventDataCreate = "data_create"
	EventForward    = "forward"
	EventErrorTest  = "error_test"
)

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// sleepCtx pauses for d or until ctx ends.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
