package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ordercheck/ordercheck/internal/config"
	"github.com/ordercheck/ordercheck/orders"
)

// newTestServer builds a server on an in-memory store with the built-in
// rules plus any configured expression rules.
func newTestServer(t *testing.T, cfg *config.Config) (*Server, *orders.InMemoryStore) {
	t.Helper()

	if cfg == nil {
		cfg = config.Default()
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		t.Fatalf("buildRegistry() failed: %v", err)
	}

	store := orders.NewInMemoryStore()
	return newServerWith(cfg, nil, store, registry), store
}

func createOrder(t *testing.T, store *orders.InMemoryStore, total string, items int) *orders.Order {
	t.Helper()

	order := &orders.Order{
		ID:         uuid.New().String(),
		Total:      decimal.RequireFromString(total),
		ItemsCount: items,
	}
	if err := store.Create(context.Background(), order); err != nil {
		t.Fatalf("Failed to create order: %v", err)
	}
	return order
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestCheckRulesSuccess(t *testing.T) {
	server, store := newTestServer(t, nil)
	order := createOrder(t, store, "150.00", 3)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/rules/check", CheckRequest{
		OrderID: order.ID,
		Rules:   []string{"min_total_100", "min_items_2", "divisible_by_5"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Passed {
		t.Error("Expected passed=true")
	}
	for _, name := range []string{"min_total_100", "min_items_2", "divisible_by_5"} {
		passed, ok := resp.Details.Get(name)
		if !ok || !passed {
			t.Errorf("Expected %q to be present and true, got present=%v passed=%v", name, ok, passed)
		}
	}
}

func TestCheckRulesSomeFail(t *testing.T) {
	server, store := newTestServer(t, nil)
	order := createOrder(t, store, "75.50", 1)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/rules/check", CheckRequest{
		OrderID: order.ID,
		Rules:   []string{"min_total_100", "min_items_2"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Passed {
		t.Error("Expected passed=false")
	}
	for _, name := range []string{"min_total_100", "min_items_2"} {
		passed, ok := resp.Details.Get(name)
		if !ok {
			t.Fatalf("Details missing entry for %q", name)
		}
		if passed {
			t.Errorf("Expected %q to be false", name)
		}
	}
}

func TestCheckRulesDetailsPreserveRequestOrder(t *testing.T) {
	server, store := newTestServer(t, nil)
	order := createOrder(t, store, "150.00", 3)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/rules/check", CheckRequest{
		OrderID: order.ID,
		Rules:   []string{"divisible_by_5", "min_total_100", "min_items_2"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := rec.Body.String()
	iDiv := strings.Index(body, "divisible_by_5")
	iTotal := strings.Index(body, "min_total_100")
	iItems := strings.Index(body, "min_items_2")
	if iDiv < 0 || iTotal < 0 || iItems < 0 {
		t.Fatalf("Response missing detail entries: %s", body)
	}
	if !(iDiv < iTotal && iTotal < iItems) {
		t.Errorf("Details should serialize in request order, got: %s", body)
	}
}

func TestCheckRulesOrderNotFound(t *testing.T) {
	server, _ := newTestServer(t, nil)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/rules/check", CheckRequest{
		OrderID: uuid.New().String(),
		Rules:   []string{"min_total_100"},
	})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Error == "" {
		t.Error("Expected an error message")
	}
}

func TestCheckRulesInvalidRuleName(t *testing.T) {
	server, store := newTestServer(t, nil)
	order := createOrder(t, store, "150.00", 3)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/rules/check", CheckRequest{
		OrderID: order.ID,
		Rules:   []string{"fake_rule"},
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !strings.Contains(resp.Detail, "fake_rule") {
		t.Errorf("Error detail should name the unknown rule, got %q", resp.Detail)
	}
	for _, name := range []string{"min_total_100", "min_items_2", "divisible_by_5"} {
		if !strings.Contains(resp.Detail, name) {
			t.Errorf("Error detail should list available rule %q, got %q", name, resp.Detail)
		}
	}
}

func TestCheckRulesValidation(t *testing.T) {
	server, store := newTestServer(t, nil)
	order := createOrder(t, store, "150.00", 3)

	testCases := []struct {
		name string
		body any
	}{
		{"missing order_id", CheckRequest{Rules: []string{"min_total_100"}}},
		{"invalid order_id", CheckRequest{OrderID: "not-a-uuid", Rules: []string{"min_total_100"}}},
		{"empty rules", CheckRequest{OrderID: order.ID}},
		{"malformed body", "not json"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if s, ok := tc.body.(string); ok {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/rules/check", strings.NewReader(s))
				rec = httptest.NewRecorder()
				server.ServeHTTP(rec, req)
			} else {
				rec = doJSON(t, server, http.MethodPost, "/api/v1/rules/check", tc.body)
			}

			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestListRules(t *testing.T) {
	server, _ := newTestServer(t, nil)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/rules/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp RulesListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Rules) != 3 {
		t.Fatalf("Expected 3 rules, got %d", len(resp.Rules))
	}

	names := make([]string, 0, len(resp.Rules))
	for _, r := range resp.Rules {
		names = append(names, r.Name)
		if r.Description == "" {
			t.Errorf("Rule %q should have a description", r.Name)
		}
	}
	for _, want := range []string{"min_total_100", "min_items_2", "divisible_by_5"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected rule %q in listing, got %v", want, names)
		}
	}

	// Listing order is stable across calls.
	second := doJSON(t, server, http.MethodGet, "/api/v1/rules/", nil)
	if rec.Body.String() != second.Body.String() {
		t.Error("Rule listing should be stable across repeated calls")
	}
}

func TestConfiguredExprRuleIsServed(t *testing.T) {
	cfg := config.Default()
	cfg.Rules = []config.ExprRuleConfig{
		{Name: "big_spender", Description: "Total over 500", Expression: `Order.Total > 500.0`},
	}
	server, store := newTestServer(t, cfg)
	order := createOrder(t, store, "750.00", 2)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/rules/check", CheckRequest{
		OrderID: order.ID,
		Rules:   []string{"big_spender", "min_items_2"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Passed {
		t.Errorf("Expected passed=true, got %s", rec.Body.String())
	}
	if passed, ok := resp.Details.Get("big_spender"); !ok || !passed {
		t.Error("Expected big_spender=true in details")
	}
}

func TestBuildRegistryRejectsBadExprRule(t *testing.T) {
	cfg := config.Default()
	cfg.Rules = []config.ExprRuleConfig{
		{Name: "broken", Expression: `Order.Total >`},
	}

	if _, err := buildRegistry(cfg); err == nil {
		t.Error("buildRegistry() should fail for a malformed configured rule")
	}
}

func TestBuildRegistryRejectsNameCollision(t *testing.T) {
	cfg := config.Default()
	cfg.Rules = []config.ExprRuleConfig{
		{Name: "min_total_100", Expression: `Order.Total > 1.0`},
	}

	if _, err := buildRegistry(cfg); err == nil {
		t.Error("buildRegistry() should fail when a configured rule collides with a built-in")
	}
}

func TestCreateAndGetOrder(t *testing.T) {
	server, _ := newTestServer(t, nil)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/orders/", CreateOrderRequest{
		Total:      decimal.RequireFromString("150.00"),
		ItemsCount: 3,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created orders.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if _, err := uuid.Parse(created.ID); err != nil {
		t.Errorf("Expected a UUID order ID, got %q", created.ID)
	}

	got := doJSON(t, server, http.MethodGet, "/api/v1/orders/"+created.ID, nil)
	if got.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", got.Code, got.Body.String())
	}
}

func TestCreateOrderRejectsInvalid(t *testing.T) {
	server, _ := newTestServer(t, nil)

	testCases := []struct {
		name string
		body CreateOrderRequest
	}{
		{"negative total", CreateOrderRequest{Total: decimal.RequireFromString("-5.00"), ItemsCount: 1}},
		{"zero items", CreateOrderRequest{Total: decimal.RequireFromString("10.00"), ItemsCount: 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, server, http.MethodPost, "/api/v1/orders/", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetOrderNotFound(t *testing.T) {
	server, _ := newTestServer(t, nil)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/orders/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t, nil)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Expected status healthy, got %q", resp.Status)
	}
	if resp.RulesRegistered != 3 {
		t.Errorf("Expected 3 registered rules, got %d", resp.RulesRegistered)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server, store := newTestServer(t, func() *config.Config {
		cfg := config.Default()
		cfg.Metrics.Enabled = true
		return cfg
	}())

	order := createOrder(t, store, "150.00", 3)
	rec := doJSON(t, server, http.MethodPost, "/api/v1/rules/check", CheckRequest{
		OrderID: order.ID,
		Rules:   []string{"min_total_100"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	metricsRec := doJSON(t, server, http.MethodGet, "/metrics", nil)
	if metricsRec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /metrics, got %d", metricsRec.Code)
	}
	if !strings.Contains(metricsRec.Body.String(), "ordercheck_evaluations_total") {
		t.Error("Expected evaluations counter in metrics exposition")
	}
}
