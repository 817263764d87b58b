package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tracechain/tracechain/internal/events"
	"github.com/tracechain/tracechain/internal/fault"
	"github.com/tracechain/tracechain/internal/metrics"
	"github.com/tracechain/tracechain/internal/model"
	"github.com/tracechain/tracechain/internal/repository"
)

// DataService reads and creates records on the data tier.
type DataService struct {
	service   string
	store     RecordStore
	publisher EventPublisher
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewDataService creates a new DataService. publisher may be nil.
func NewDataService(service string, store RecordStore, publisher EventPublisher, recorder metrics.Recorder, logger *slog.Logger) *DataService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &DataService{
		service:   service,
		store:     store,
		publisher: publisher,
		metrics:   recorder,
		logger:    logger.With("component", "data"),
	}
}

// GetUser reads one user by its textual id.
func (s *DataService) GetUser(ctx context.Context, rawID string) (model.Envelope, error) {
	id, err := parseID(model.KindUser, rawID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	user, err := s.store.GetUser(ctx, id)
	queryTime := time.Since(start)
	s.metrics.IncBusinessEvent(EventDataFetch, outcome(err))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.WarnContext(ctx, "user not found", "user_id", id)
			return nil, fault.NotFound("User not found").With("userId", rawID)
		}
		return nil, fault.Internal("Failed to fetch user", err)
	}

	s.logger.InfoContext(ctx, "fetched user", "user_id", id, "query_ms", model.Millis(queryTime))
	return s.envelope(model.UserFields(user), queryTime), nil
}

// GetOrder reads one order by its textual id.
func (s *DataService) GetOrder(ctx context.Context, rawID string) (model.Envelope, error) {
	id, err := parseID(model.KindOrder, rawID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	order, err := s.store.GetOrder(ctx, id)
	queryTime := time.Since(start)
	s.metrics.IncBusinessEvent(EventDataFetch, outcome(err))
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			s.logger.WarnContext(ctx, "order not found", "order_id", id)
			return nil, fault.NotFound("Order not found").With("orderId", rawID)
		}
		return nil, fault.Internal("Failed to fetch order", err)
	}

	s.logger.InfoContext(ctx, "fetched order", "order_id", id, "query_ms", model.Millis(queryTime))
	return s.envelope(model.OrderFields(order), queryTime), nil
}

// CreateUser validates fields and stores a new user.
// username and email are required; status defaults to active.
func (s *DataService) CreateUser(ctx context.Context, fields map[string]any) (model.Envelope, error) {
	in, err := parseNewUser(fields)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	user, err := s.store.CreateUser(ctx, in)
	queryTime := time.Since(start)
	s.metrics.IncBusinessEvent(EventDataCreate, outcome(err))
	if err != nil {
		return nil, fault.Internal("Failed to create user", err)
	}

	s.logger.InfoContext(ctx, "created user", "user_id", user.ID, "query_ms", model.Millis(queryTime))
	s.publish(events.TypeUserCreated, user.ID)
	return s.envelope(model.UserFields(user), queryTime), nil
}

// CreateOrder validates fields and stores a new order.
// orderNumber, userId and amount are required; userId is not checked against users.
func (s *DataService) CreateOrder(ctx context.Context, fields map[string]any) (model.Envelope, error) {
	in, err := parseNewOrder(fields)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	order, err := s.store.CreateOrder(ctx, in)
	queryTime := time.Since(start)
	s.metrics.IncBusinessEvent(EventDataCreate, outcome(err))
	if err != nil {
		return nil, fault.Internal("Failed to create order", err)
	}

	s.logger.InfoContext(ctx, "created order", "order_id", order.ID, "query_ms", model.Millis(queryTime))
	s.publish(events.TypeOrderCreated, order.ID)
	return s.envelope(model.OrderFields(order), queryTime), nil
}

// ListUsers returns every user.
func (s *DataService) ListUsers(ctx context.Context) (model.Envelope, error) {
	start := time.Now()
	users, err := s.store.ListUsers(ctx)
	queryTime := time.Since(start)
	s.metrics.IncBusinessEvent(EventDataFetch, outcome(err))
	if err != nil {
		return nil, fault.Internal("Failed to list users", err)
	}

	return s.envelope(map[string]any{"users": users, "count": len(users)}, queryTime), nil
}

// ListOrders returns every order.
func (s *DataService) ListOrders(ctx context.Context) (model.Envelope, error) {
	start := time.Now()
	orders, err := s.store.ListOrders(ctx)
	queryTime := time.Since(start)
	s.metrics.IncBusinessEvent(EventDataFetch, outcome(err))
	if err != nil {
		return nil, fault.Internal("Failed to list orders", err)
	}

	return s.envelope(map[string]any{"orders": orders, "count": len(orders)}, queryTime), nil
}

// ListOrdersByUser returns the orders referencing a user id.
// An unknown user yields an empty list, not a fault.
func (s *DataService) ListOrdersByUser(ctx context.Context, rawID string) (model.Envelope, error) {
	id, err := parseID(model.KindUser, rawID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	orders, err := s.store.ListOrdersByUser(ctx, id)
	queryTime := time.Since(start)
	s.metrics.IncBusinessEvent(EventDataFetch, outcome(err))
	if err != nil {
		return nil, fault.Internal("Failed to list orders", err)
	}

	return s.envelope(map[string]any{"userId": id, "orders": orders, "count": len(orders)}, queryTime), nil
}

func (s *DataService) envelope(fields map[string]any, queryTime time.Duration) model.Envelope {
	return model.NewEnvelope(s.service).
		Merge(fields).
		Set("queryTime", model.Millis(queryTime)).
		Stamp()
}

func (s *DataService) publish(eventType string, recordID int64) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishAsync(events.NewEvent(eventType, s.service, recordID))
}

// parseID accepts only positive base-10 integers.
func parseID(kind model.ResourceKind, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fault.Validation(fmt.Sprintf("Invalid %s format", kind.IDField())).With(kind.IDField(), raw)
	}
	return id, nil
}

func parseNewUser(fields map[string]any) (model.NewUser, error) {
	username := stringField(fields, "username")
	email := stringField(fields, "email")
	if username == "" || email == "" {
		return model.NewUser{}, fault.Validation("Username and email are required")
	}

	status := stringField(fields, "status")
	if status == "" {
		status = model.DefaultUserStatus
	}
	return model.NewUser{Username: username, Email: email, Status: status}, nil
}

func parseNewOrder(fields map[string]any) (model.NewOrder, error) {
	orderNumber := stringField(fields, "orderNumber")
	rawUserID := scalarField(fields, "userId")
	rawAmount := scalarField(fields, "amount")
	if orderNumber == "" || rawUserID == "" || rawAmount == "" {
		return model.NewOrder{}, fault.Validation("orderNumber, userId, and amount are required")
	}

	userID, err := strconv.ParseInt(rawUserID, 10, 64)
	if err != nil || userID <= 0 {
		return model.NewOrder{}, fault.Validation("userId must be a positive integer").With("userId", rawUserID)
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return model.NewOrder{}, fault.Validation("amount must be a decimal number").With("amount", rawAmount)
	}

	itemsCount := model.DefaultItemsCount
	if raw := scalarField(fields, "itemsCount"); raw != "" {
		itemsCount, err = strconv.Atoi(raw)
		if err != nil {
			return model.NewOrder{}, fault.Validation("itemsCount must be an integer").With("itemsCount", raw)
		}
	}

	status := stringField(fields, "status")
	if status == "" {
		status = model.DefaultOrderStatus
	}

	return model.NewOrder{
		OrderNumber: orderNumber,
		UserID:      userID,
		Amount:      amount,
		Status:      status,
		ItemsCount:  itemsCount,
	}, nil
}

// stringField returns a trimmed string value, or "" when absent or not a string.
func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

// scalarField renders a string or JSON number value as text.
func scalarField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
