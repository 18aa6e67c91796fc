package integration

import (
	"context"
	"database/sql"
	"testing"

	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
	"github.com/shopspring/decimal"
)

func createTestCollection(t *testing.T, db *sql.DB, title string) *models.Collection {
	t.Helper()

	collection, err := store.CreateCollection(context.Background(), db, title, nil)
	if err != nil {
		t.Fatalf("Create collection: %v", err)
	}
	return collection
}

func createTestProduct(t *testing.T, db *sql.DB, collectionID int64, title string, price int64, inventory int) *models.Product {
	t.Helper()

	product, err := store.CreateProduct(context.Background(), db, store.CreateProductRequest{
		Title:        title,
		Description:  "Test",
		Price:        decimal.NewFromInt(price),
		Inventory:    inventory,
		CollectionID: collectionID,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	return product
}

func createTestAccount(t *testing.T, db *sql.DB, email string) (*models.User, *models.Customer) {
	t.Helper()

	ctx := context.Background()
	user, err := store.CreateUser(ctx, db, email, "Test User", false)
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	customer, err := store.GetCustomerByUserID(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("Get customer: %v", err)
	}
	return user, customer
}

func createTestCart(t *testing.T, db *sql.DB) *models.Cart {
	t.Helper()

	cart, err := store.CreateCart(context.Background(), db)
	if err != nil {
		t.Fatalf("Create cart: %v", err)
	}
	return cart
}
