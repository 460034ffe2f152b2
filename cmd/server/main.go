package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/ordercheck/ordercheck/internal/config"
	"github.com/ordercheck/ordercheck/internal/logger"
	"github.com/ordercheck/ordercheck/internal/metrics"
	"github.com/ordercheck/ordercheck/orders"
	"github.com/ordercheck/ordercheck/rules"
)

type Server struct {
	db       *sql.DB // nil when backed by the in-memory store
	store    orders.Store
	registry *rules.Registry
	engine   *rules.Engine
	metrics  *metrics.Collector
	cfg      *config.Config
	router   *chi.Mux
}

// NewServer wires the order store, rule registry, engine and routes from
// configuration. Registration happens here, single-threaded, before any
// request is served; a malformed rule is fatal.
func NewServer(cfg *config.Config) (*Server, error) {
	var db *sql.DB
	var store orders.Store

	if cfg.Database.URL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		store = orders.NewPostgresStore(db)
	} else {
		logger.Warn("no database URL configured, using in-memory order store")
		store = orders.NewInMemoryStore()
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	s := newServerWith(cfg, db, store, registry)
	return s, nil
}

// newServerWith assembles a server from already-built collaborators.
// Tests use it to run against an isolated registry and in-memory store.
func newServerWith(cfg *config.Config, db *sql.DB, store orders.Store, registry *rules.Registry) *Server {
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, nil)
	}

	s := &Server{
		db:       db,
		store:    store,
		registry: registry,
		engine:   rules.NewEngine(registry),
		metrics:  collector,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

// buildRegistry registers the built-in rules plus any expression-defined
// rules declared in configuration.
func buildRegistry(cfg *config.Config) (*rules.Registry, error) {
	registry := rules.NewRegistry()

	if err := rules.RegisterBuiltins(registry); err != nil {
		return nil, fmt.Errorf("failed to register built-in rules: %w", err)
	}

	for _, rc := range cfg.Rules {
		rule, err := rules.NewExprRule(rc.Name, rc.Description, rc.Expression)
		if err != nil {
			return nil, fmt.Errorf("failed to build configured rule: %w", err)
		}
		if err := registry.Register(rule); err != nil {
			return nil, fmt.Errorf("failed to register configured rule: %w", err)
		}
		logger.Info("registered configured rule", "rule", rc.Name)
	}

	logger.Info("rule registry ready", "rules", len(registry.Names()))
	return registry, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	r.Get("/api/v1/health", s.handleHealth)

	r.Route("/api/v1/rules", func(r chi.Router) {
		r.Get("/", s.handleListRules)
		r.Post("/check", s.handleCheckRules)
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Get("/", s.handleListOrders)
		r.Post("/", s.handleCreateOrder)
		r.Get("/{orderId}", s.handleGetOrder)
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:          "healthy",
		RulesRegistered: len(s.registry.Names()),
	})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, RulesListResponse{Rules: s.registry.List()})
}

func (s *Server) handleCheckRules(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.OrderID == "" {
		respondError(w, http.StatusBadRequest, "order_id is required", nil)
		return
	}
	if _, err := uuid.Parse(req.OrderID); err != nil {
		respondError(w, http.StatusBadRequest, "order_id must be a valid UUID", err)
		return
	}
	if len(req.Rules) == 0 {
		respondError(w, http.StatusBadRequest, "at least one rule is required", nil)
		return
	}

	order, err := s.store.Get(r.Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			respondError(w, http.StatusNotFound, "order not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load order", err)
		return
	}

	result, err := s.engine.Evaluate(order, req.Rules)
	if err != nil {
		var notFound *rules.RuleNotFoundError
		if errors.As(err, &notFound) {
			respondError(w, http.StatusBadRequest, "invalid rule name", notFound)
			return
		}
		respondError(w, http.StatusBadRequest, "evaluation rejected", err)
		return
	}

	if s.metrics != nil {
		outcomes := make(map[string]bool, len(result.Details))
		for _, o := range result.Details {
			outcomes[o.Name] = o.Passed
		}
		s.metrics.ObserveCheck(result.Passed, outcomes)
	}

	logger.Info("rules evaluated",
		"order", order.ID,
		"rules", len(result.Details),
		"passed", result.Passed,
	)

	respondJSON(w, http.StatusOK, CheckResponse{
		Passed:  result.Passed,
		Details: result.Details,
	})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	order := &orders.Order{
		ID:         uuid.New().String(),
		Total:      req.Total,
		ItemsCount: req.ItemsCount,
	}
	if err := order.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid order", err)
		return
	}

	if err := s.store.Create(r.Context(), order); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create order", err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	order, err := s.store.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			respondError(w, http.StatusNotFound, "order not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load order", err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list orders", err)
		return
	}
	if list == nil {
		list = []*orders.Order{}
	}

	respondJSON(w, http.StatusOK, OrdersListResponse{Orders: list})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Detail = err.Error()
	}
	respondJSON(w, status, resp)
}

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	flag.Parse()

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal("failed to load configuration", "error", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
		if url := os.Getenv("DATABASE_URL"); url != "" {
			cfg.Database.URL = url
		}
	}

	if level, err := logger.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	if server.db != nil {
		defer server.db.Close()
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
