package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InMemoryStore implements Store using an in-memory map.
// Thread-safe with RWMutex. Used by tests and databaseless runs.
type InMemoryStore struct {
	orders map[string]*Order
	mu     sync.RWMutex
}

// NewInMemoryStore creates an empty in-memory order store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orders: make(map[string]*Order),
	}
}

// Create adds a new order to the store and sets its timestamps.
func (s *InMemoryStore) Create(ctx context.Context, order *Order) error {
	if err := order.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("order with ID %s already exists", order.ID)
	}

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	stored := *order
	s.orders[order.ID] = &stored
	return nil
}

// Get retrieves an order by ID.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.orders[id]
	if !exists {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}

	// Return a copy to prevent external modifications.
	o := *order
	return &o, nil
}

// List returns all orders, newest first.
func (s *InMemoryStore) List(ctx context.Context) ([]*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Order, 0, len(s.orders))
	for _, order := range s.orders {
		o := *order
		list = append(list, &o)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	return list, nil
}
