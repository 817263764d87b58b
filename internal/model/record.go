package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default statuses applied on create.
const (
	DefaultUserStatus  = "active"
	DefaultOrderStatus = "pending"
	DefaultItemsCount  = 1
)

// ResourceKind names a forwardable record type.
type ResourceKind string

const (
	KindUser  ResourceKind = "user"
	KindOrder ResourceKind = "order"
)

// IDField returns the envelope field that echoes the record identifier.
func (k ResourceKind) IDField() string {
	if k == KindOrder {
		return "orderId"
	}
	return "userId"
}

// IsValid reports whether k is a known kind.
func (k ResourceKind) IsValid() bool {
	return k == KindUser || k == KindOrder
}

// User is a stored user record.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Order is a stored order record. UserID is not checked against users.
type Order struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	UserID      int64           `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	ItemsCount  int             `json:"itemsCount"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// NewUser holds validated input for a user create.
type NewUser struct {
	Username string
	Email    string
	Status   string
}

// NewOrder holds validated input for an order create.
type NewOrder struct {
	OrderNumber string
	UserID      int64
	Amount      decimal.Decimal
	Status      string
	ItemsCount  int
}

// UserFields renders a user with the single-record wire names.
func UserFields(u User) map[string]any {
	return map[string]any{
		"userId":    u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"status":    u.Status,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
}

// OrderFields renders an order with the single-record wire names.
func OrderFields(o Order) map[string]any {
	return map[string]any{
		"orderId":     o.ID,
		"orderNumber": o.OrderNumber,
		"userId":      o.UserID,
		"amount":      o.Amount,
		"status":      o.Status,
		"items":       o.ItemsCount,
		"createdAt":   o.CreatedAt,
		"updatedAt":   o.UpdatedAt,
	}
}
