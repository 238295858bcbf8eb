// Command seed provisions the admin account and a starter catalog for a
// fresh environment. It is idempotent: existing rows are left untouched.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/w3-80717/SuprabhatGroceries/internal/catalog"
	"github.com/w3-80717/SuprabhatGroceries/internal/domain"
	"github.com/w3-80717/SuprabhatGroceries/internal/telemetry"
	"github.com/w3-80717/SuprabhatGroceries/internal/users"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		logger.Error("ADMIN_EMAIL and ADMIN_PASSWORD environment variables are required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	userRepo := users.NewUserRepository(db)

	_, err = userRepo.GetByEmail(ctx, adminEmail)
	switch {
	case err == nil:
		logger.Info("admin user already exists", "email", adminEmail)
	case errors.Is(err, domain.ErrUserNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("failed to hash admin password", "error", err)
			os.Exit(1)
		}

		admin := &domain.User{
			Name:  "Suprabhat Admin",
			Email: adminEmail,
			Role:  domain.RoleAdmin,
		}
		if err := userRepo.Create(ctx, admin, string(hash)); err != nil {
			logger.Error("failed to create admin user", "error", err)
			os.Exit(1)
		}
		logger.Info("admin user created", "email", adminEmail, "id", admin.ID)
	default:
		logger.Error("failed to look up admin user", "error", err)
		os.Exit(1)
	}

	productRepo := catalog.NewProductRepository(db)
	for _, p := range starterCatalog() {
		existing, err := productRepo.ListPublished(ctx, p.Category)
		if err != nil {
			logger.Error("failed to list products", "error", err)
			os.Exit(1)
		}
		if hasProduct(existing, p.Name) {
			continue
		}

		product := p
		if err := productRepo.Create(ctx, &product); err != nil {
			logger.Error("failed to seed product", "error", err, "name", p.Name)
			os.Exit(1)
		}
		logger.Info("product seeded", "name", product.Name, "id", product.ID)
	}
}

func hasProduct(products []domain.Product, name string) bool {
	for _, p := range products {
		if p.Name == name {
			return true
		}
	}
	return false
}

func starterCatalog() []domain.Product {
	return []domain.Product{
		{Name: "Tomatoes", Description: "Farm-fresh ripe tomatoes", Price: decimal.NewFromInt(40), Unit: domain.UnitKg, Category: "vegetables", Stock: 100, IsPublished: true},
		{Name: "Spinach", Description: "Picked today", Price: decimal.NewFromInt(25), Unit: domain.UnitBunch, Category: "leafy-greens", Stock: 60, IsPublished: true},
		{Name: "Bananas", Description: "Sweet yelakki bananas", Price: decimal.NewFromInt(55), Unit: domain.UnitDozen, Category: "fruits", Stock: 40, IsPublished: true},
		{Name: "Coconut", Description: "Tender coconuts", Price: decimal.NewFromInt(35), Unit: domain.UnitPiece, Category: "fruits", Stock: 80, IsPublished: true},
	}
}
