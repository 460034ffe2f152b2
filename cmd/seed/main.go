package main

import (
	"context"
	"database/sql"
	"flag"
	"os"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ordercheck/ordercheck/internal/logger"
	"github.com/ordercheck/ordercheck/orders"
)

// Seeds the database with the canonical example orders.

func main() {
	var databaseURL string
	var clearExisting bool

	flag.StringVar(&databaseURL, "database", "", "Database URL (required)")
	flag.BoolVar(&clearExisting, "clear", true, "Delete existing orders before seeding")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		logger.Fatal("database URL is required; use -database flag or DATABASE_URL environment variable")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		logger.Fatal("failed to open database", "error", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("failed to ping database", "error", err)
	}

	ctx := context.Background()

	if clearExisting {
		if _, err := db.ExecContext(ctx, "DELETE FROM orders"); err != nil {
			logger.Fatal("failed to clear orders", "error", err)
		}
		logger.Warn("cleared existing orders")
	}

	store := orders.NewPostgresStore(db)

	seed := []struct {
		total      string
		itemsCount int
	}{
		{"150.00", 3},
		{"75.50", 1},
		{"200.00", 5},
	}

	for _, s := range seed {
		order := &orders.Order{
			ID:         uuid.New().String(),
			Total:      decimal.RequireFromString(s.total),
			ItemsCount: s.itemsCount,
		}
		if err := store.Create(ctx, order); err != nil {
			logger.Fatal("failed to create order", "error", err)
		}
		logger.Info("created order",
			"id", order.ID,
			"total", order.Total.StringFixed(2),
			"items", order.ItemsCount,
		)
	}

	logger.Info("seeding complete", "orders", len(seed))
}
