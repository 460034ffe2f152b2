package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by Store.Get when no order exists for the given id.
// Callers use errors.Is to distinguish a missing order from other failures.
var ErrNotFound = errors.New("order not found")

// Order is a customer order. Total is held as an exact decimal so monetary
// rules never see binary floating-point rounding.
type Order struct {
	ID         string          `json:"id"`
	Total      decimal.Decimal `json:"total"`
	ItemsCount int             `json:"items_count"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Validate checks the field constraints enforced at the persistence boundary.
func (o *Order) Validate() error {
	if o.Total.IsNegative() {
		return fmt.Errorf("total must be non-negative, got %s", o.Total)
	}
	if o.ItemsCount < 1 {
		return fmt.Errorf("items_count must be at least 1, got %d", o.ItemsCount)
	}
	return nil
}

// Store manages order persistence and retrieval.
type Store interface {
	// Create persists a new order. The order must already carry an ID.
	Create(ctx context.Context, order *Order) error

	// Get retrieves an order by ID. Returns an error wrapping ErrNotFound
	// when no such order exists.
	Get(ctx context.Context, id string) (*Order, error)

	// List returns all orders, newest first.
	List(ctx context.Context) ([]*Order, error)
}
