package main

import (
	"github.com/shopspring/decimal"

	"github.com/ordercheck/ordercheck/orders"
	"github.com/ordercheck/ordercheck/rules"
)

// API request and response models.

// CheckRequest is the body for POST /api/v1/rules/check.
type CheckRequest struct {
	OrderID string   `json:"order_id"`
	Rules   []string `json:"rules"`
}

// CheckResponse is the body for a successful rule check.
type CheckResponse struct {
	Passed  bool          `json:"passed"`
	Details rules.Details `json:"details"`
}

// RulesListResponse is the body for GET /api/v1/rules.
type RulesListResponse struct {
	Rules []rules.Info `json:"rules"`
}

// CreateOrderRequest is the body for POST /api/v1/orders.
type CreateOrderRequest struct {
	Total      decimal.Decimal `json:"total"`
	ItemsCount int             `json:"items_count"`
}

// OrdersListResponse is the body for GET /api/v1/orders.
type OrdersListResponse struct {
	Orders []*orders.Order `json:"orders"`
}

// ErrorResponse is the body for all error statuses.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse is the body for GET /api/v1/health.
type HealthResponse struct {
	Status          string `json:"status"`
	RulesRegistered int    `json:"rulesRegistered"`
}
