package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/events"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
	"github.com/shopspring/decimal"
)

func TestPlaceOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	collection := createTestCollection(t, db, "Gadgets")
	productA := createTestProduct(t, db, collection.ID, "Product A", 10, 50)
	productB := createTestProduct(t, db, collection.ID, "Product B", 5, 30)
	user, customer := createTestAccount(t, db, "buyer@example.com")

	cart := createTestCart(t, db)
	if _, err := store.AddCartItem(ctx, db, cart.ID, productA.ID, 2); err != nil {
		t.Fatalf("Add product A: %v", err)
	}
	if _, err := store.AddCartItem(ctx, db, cart.ID, productB.ID, 1); err != nil {
		t.Fatalf("Add product B: %v", err)
	}

	bus := events.NewBus()
	var notified []int64
	bus.SubscribeOrderCreated(func(ctx context.Context, event events.OrderCreated) error {
		notified = append(notified, event.Order.ID)
		return nil
	})

	order, err := store.PlaceOrder(ctx, db, bus, cart.ID, user.ID)
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}

	if order.CustomerID != customer.ID {
		t.Errorf("Expected customer %d, got %d", customer.ID, order.CustomerID)
	}
	if order.PaymentStatus != models.PaymentStatusPending {
		t.Errorf("Expected pending payment status, got %s", order.PaymentStatus)
	}
	if len(order.Items) != 2 {
		t.Fatalf("Expected 2 order items, got %d", len(order.Items))
	}

	byProduct := map[int64]models.OrderItem{}
	for _, item := range order.Items {
		byProduct[item.ProductID] = item
	}
	if item := byProduct[productA.ID]; item.Quantity != 2 || !item.UnitPrice.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Product A item mismatch: qty %d price %s", item.Quantity, item.UnitPrice)
	}
	if item := byProduct[productB.ID]; item.Quantity != 1 || !item.UnitPrice.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Product B item mismatch: qty %d price %s", item.Quantity, item.UnitPrice)
	}

	if len(notified) != 1 || notified[0] != order.ID {
		t.Errorf("Expected one order_created notification for order %d, got %v", order.ID, notified)
	}

	_, err = store.GetCart(ctx, db, cart.ID)
	if !errors.Is(err, database.ErrCartNotFound) {
		t.Errorf("Expected cart gone after checkout, got: %v", err)
	}
}

func TestPlaceOrderFreezesUnitPrice(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	collection := createTestCollection(t, db, "Gadgets")
	product := createTestProduct(t, db, collection.ID, "Product", 10, 50)
	user, _ := createTestAccount(t, db, "buyer@example.com")

	cart := createTestCart(t, db)
	if _, err := store.AddCartItem(ctx, db, cart.ID, product.ID, 3); err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	order, err := store.PlaceOrder(ctx, db, nil, cart.ID, user.ID)
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}

	newPrice := decimal.NewFromInt(99)
	if _, err := store.UpdateProduct(ctx, db, product.ID, store.UpdateProductRequest{Price: &newPrice}); err != nil {
		t.Fatalf("Update price: %v", err)
	}

	reloaded, err := store.GetOrder(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if !reloaded.Items[0].UnitPrice.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Unit price should stay frozen at 10, got %s", reloaded.Items[0].UnitPrice)
	}
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user, _ := createTestAccount(t, db, "buyer@example.com")
	cart := createTestCart(t, db)

	var validationErr *database.ValidationError
	_, err := store.PlaceOrder(ctx, db, nil, cart.ID, user.ID)
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected validation error for empty cart, got: %v", err)
	}

	var orderCount int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orderCount); err != nil {
		t.Fatalf("Count orders: %v", err)
	}
	if orderCount != 0 {
		t.Errorf("Empty-cart checkout must not write orders, found %d", orderCount)
	}

	if _, err := store.GetCart(ctx, db, cart.ID); err != nil {
		t.Errorf("Cart should survive a failed checkout: %v", err)
	}
}

func TestPlaceOrderMissingCustomerRollsBack(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	collection := createTestCollection(t, db, "Gadgets")
	product := createTestProduct(t, db, collection.ID, "Product", 10, 50)

	cart := createTestCart(t, db)
	if _, err := store.AddCartItem(ctx, db, cart.ID, product.ID, 1); err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	_, err := store.PlaceOrder(ctx, db, nil, cart.ID, 99999)
	if !errors.Is(err, database.ErrCustomerNotFound) {
		t.Fatalf("Expected customer not found, got: %v", err)
	}

	if _, err := store.GetCart(ctx, db, cart.ID); err != nil {
		t.Errorf("Cart should survive a failed checkout: %v", err)
	}
}

func TestPlaceOrderUnknownCart(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	user, _ := createTestAccount(t, db, "buyer@example.com")

	_, err := store.PlaceOrder(context.Background(), db, nil, "11111111-2222-3333-4444-555555555555", user.ID)
	if !errors.Is(err, database.ErrCartNotFound) {
		t.Errorf("Expected cart not found, got: %v", err)
	}

	_, err = store.PlaceOrder(context.Background(), db, nil, "not-a-cart-token", user.ID)
	if !errors.Is(err, database.ErrCartNotFound) {
		t.Errorf("Expected cart not found for malformed token, got: %v", err)
	}
}

func TestPlaceOrderNotificationFailureDoesNotAffectOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	collection := createTestCollection(t, db, "Gadgets")
	product := createTestProduct(t, db, collection.ID, "Product", 10, 50)
	user, _ := createTestAccount(t, db, "buyer@example.com")

	cart := createTestCart(t, db)
	if _, err := store.AddCartItem(ctx, db, cart.ID, product.ID, 1); err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	bus := events.NewBus()
	bus.SubscribeOrderCreated(func(ctx context.Context, event events.OrderCreated) error {
		panic("subscriber exploded")
	})
	var secondRan bool
	bus.SubscribeOrderCreated(func(ctx context.Context, event events.OrderCreated) error {
		secondRan = true
		return nil
	})

	order, err := store.PlaceOrder(ctx, db, bus, cart.ID, user.ID)
	if err != nil {
		t.Fatalf("Place order should succeed despite subscriber panic: %v", err)
	}
	if !secondRan {
		t.Error("Second subscriber should run even when the first panics")
	}

	if _, err := store.GetOrder(ctx, db, order.ID); err != nil {
		t.Errorf("Order should be durable: %v", err)
	}
}

func TestConcurrentCheckoutSameCart(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	collection := createTestCollection(t, db, "Gadgets")
	product := createTestProduct(t, db, collection.ID, "Product", 10, 50)
	user, _ := createTestAccount(t, db, "buyer@example.com")

	cart := createTestCart(t, db)
	if _, err := store.AddCartItem(ctx, db, cart.ID, product.ID, 1); err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	concurrency := 5
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.PlaceOrder(ctx, db, nil, cart.ID, user.ID)
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		}
	}
	if successCount != 1 {
		t.Errorf("Exactly one checkout should win, got %d", successCount)
	}

	var orderCount int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orderCount); err != nil {
		t.Fatalf("Count orders: %v", err)
	}
	if orderCount != 1 {
		t.Errorf("Expected exactly one durable order, got %d", orderCount)
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	collection := createTestCollection(t, db, "Gadgets")
	product := createTestProduct(t, db, collection.ID, "Product", 10, 50)
	user, _ := createTestAccount(t, db, "buyer@example.com")

	cart := createTestCart(t, db)
	if _, err := store.AddCartItem(ctx, db, cart.ID, product.ID, 1); err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	order, err := store.PlaceOrder(ctx, db, nil, cart.ID, user.ID)
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}

	updated, err := store.UpdatePaymentStatus(ctx, db, order.ID, models.PaymentStatusComplete)
	if err != nil {
		t.Fatalf("Update payment status: %v", err)
	}
	if updated.PaymentStatus != models.PaymentStatusComplete {
		t.Errorf("Expected complete, got %s", updated.PaymentStatus)
	}

	var validationErr *database.ValidationError
	_, err = store.UpdatePaymentStatus(ctx, db, order.ID, "refunded")
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected validation error for unknown status, got: %v", err)
	}
}

func TestDeleteOrderRemovesItemsFirst(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	collection := createTestCollection(t, db, "Gadgets")
	product := createTestProduct(t, db, collection.ID, "Product", 10, 50)
	user, _ := createTestAccount(t, db, "buyer@example.com")

	cart := createTestCart(t, db)
	if _, err := store.AddCartItem(ctx, db, cart.ID, product.ID, 1); err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	order, err := store.PlaceOrder(ctx, db, nil, cart.ID, user.ID)
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}

	if err := store.DeleteOrder(ctx, db, order.ID); err != nil {
		t.Fatalf("Delete order: %v", err)
	}

	_, err = store.GetOrder(ctx, db, order.ID)
	if !errors.Is(err, database.ErrOrderNotFound) {
		t.Errorf("Expected order gone, got: %v", err)
	}

	var itemCount int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items WHERE order_id = $1`, order.ID).Scan(&itemCount); err != nil {
		t.Fatalf("Count order items: %v", err)
	}
	if itemCount != 0 {
		t.Errorf("Expected order items gone, got %d", itemCount)
	}
}

func TestListOrdersCursor(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	collection := createTestCollection(t, db, "Gadgets")
	product := createTestProduct(t, db, collection.ID, "Product", 10, 500)
	user, customer := createTestAccount(t, db, "buyer@example.com")

	for i := 0; i < 15; i++ {
		cart := createTestCart(t, db)
		if _, err := store.AddCartItem(ctx, db, cart.ID, product.ID, 1); err != nil {
			t.Fatalf("Add cart item %d: %v", i, err)
		}
		if _, err := store.PlaceOrder(ctx, db, nil, cart.ID, user.ID); err != nil {
			t.Fatalf("Place order %d: %v", i, err)
		}
	}

	page1, err := store.ListOrdersCursor(ctx, db, &customer.ID, "", 10)
	if err != nil {
		t.Fatalf("List orders page 1: %v", err)
	}
	if !page1.HasMore {
		t.Error("Page 1 should have more results")
	}
	if page1.NextCursor == "" {
		t.Error("Page 1 should have a next cursor")
	}

	page2, err := store.ListOrdersCursor(ctx, db, &customer.ID, page1.NextCursor, 10)
	if err != nil {
		t.Fatalf("List orders page 2: %v", err)
	}
	if page2.HasMore {
		t.Error("Page 2 should not have more results")
	}

	all, err := store.ListOrdersCursor(ctx, db, nil, "", 20)
	if err != nil {
		t.Fatalf("List all orders: %v", err)
	}
	if all.HasMore {
		t.Error("Staff listing of 15 orders with limit 20 should not have more")
	}

	var validationErr *database.ValidationError
	_, err = store.ListOrdersCursor(ctx, db, &customer.ID, "%%%not-base64%%%", 10)
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected validation error for malformed cursor, got: %v", err)
	}
}
