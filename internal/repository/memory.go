package repository

import (
	"context"
	"sync"
	"time"

	"github.com/tracechain/tracechain/internal/model"
)

// Memory is an in-process record store used when no database is configured.
// Identities come from per-kind counters advanced under the lock, so
// concurrent creates never share an id.
type Memory struct {
	mu          sync.RWMutex
	nextUserID  int64
	nextOrderID int64
	users       map[int64]model.User
	orders      map[int64]model.Order
	userOrder   []int64
	orderOrder  []int64
	now         func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:  make(map[int64]model.User),
		orders: make(map[int64]model.Order),
		now:    time.Now,
	}
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

// CreateUser stores a user under the next identity.
func (m *Memory) CreateUser(ctx context.Context, in model.NewUser) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextUserID++
	now := m.now().UTC()
	u := model.User{
		ID:        m.nextUserID,
		Username:  in.Username,
		Email:     in.Email,
		Status:    in.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.users[u.ID] = u
	m.userOrder = append(m.userOrder, u.ID)
	return u, nil
}

// GetUser retrieves a user by ID.
func (m *Memory) GetUser(ctx context.Context, id int64) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return u, nil
}

// ListUsers returns every user in creation order.
func (m *Memory) ListUsers(ctx context.Context) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]model.User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		users = append(users, m.users[id])
	}
	return users, nil
}

// CreateOrder stores an order under the next identity.
func (m *Memory) CreateOrder(ctx context.Context, in model.NewOrder) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextOrderID++
	now := m.now().UTC()
	o := model.Order{
		ID:          m.nextOrderID,
		OrderNumber: in.OrderNumber,
		UserID:      in.UserID,
		Amount:      in.Amount,
		Status:      in.Status,
		ItemsCount:  in.ItemsCount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.orders[o.ID] = o
	m.orderOrder = append(m.orderOrder, o.ID)
	return o, nil
}

// GetOrder retrieves an order by ID.
func (m *Memory) GetOrder(ctx context.Context, id int64) (model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return model.Order{}, ErrOrderNotFound
	}
	return o, nil
}

// ListOrders returns every order in creation order.
func (m *Memory) ListOrders(ctx context.Context) ([]model.Order, error) {
	return m.filterOrders(func(model.Order) bool { return true }), nil
}

// ListOrdersByUser returns the orders referencing userID.
func (m *Memory) ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return m.filterOrders(func(o model.Order) bool { return o.UserID == userID }), nil
}

func (m *Memory) filterOrders(keep func(model.Order) bool) []model.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orders := make([]model.Order, 0)
	for _, id := range m.orderOrder {
		if o := m.orders[id]; keep(o) {
			orders = append(orders, o)
		}
	}
	return orders
}
