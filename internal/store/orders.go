package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/events"
	"github.com/safar/go-storefront/internal/models"
)

// PlaceOrder converts a cart into an order. Inside one transaction it
// resolves the acting customer, creates the order, snapshots every cart item
// into an order item with the product's price frozen at this moment, and
// deletes the cart. The cart delete doubles as the double-checkout guard: if
// a concurrent checkout consumed the cart first, the delete hits zero rows
// and the whole transaction rolls back.
//
// The order_created notification goes out after commit and is best-effort;
// subscriber failures never reach the caller.
func PlaceOrder(ctx context.Context, db *sql.DB, bus *events.Bus, cartID string, actingUserID int64) (*models.Order, error) {
	if err := checkCartToken(cartID); err != nil {
		return nil, err
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		var cartExists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM carts WHERE id = $1)`, cartID).Scan(&cartExists)
		if err != nil {
			return fmt.Errorf("check cart exists: %w", err)
		}
		if !cartExists {
			return database.ErrCartNotFound
		}

		var itemCount int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM cart_items WHERE cart_id = $1`, cartID).Scan(&itemCount)
		if err != nil {
			return fmt.Errorf("count cart items: %w", err)
		}
		if itemCount == 0 {
			return database.Validationf("cart_id", "cart is empty")
		}

		var customerID int64
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM customers WHERE user_id = $1`, actingUserID).Scan(&customerID)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrCustomerNotFound
			}
			return fmt.Errorf("resolve customer: %w", err)
		}

		order = &models.Order{}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (customer_id, payment_status, placed_at)
			 VALUES ($1, $2, NOW())
			 RETURNING id, customer_id, payment_status, placed_at`,
			customerID, models.PaymentStatusPending).Scan(
			&order.ID,
			&order.CustomerID,
			&order.PaymentStatus,
			&order.PlacedAt,
		)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		// One statement snapshots every cart item with the current product
		// price. The price on the order item never changes again.
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			 SELECT $1, ci.product_id, ci.quantity, p.price
			 FROM cart_items ci
			 JOIN products p ON p.id = ci.product_id
			 WHERE ci.cart_id = $2`,
			order.ID, cartID)
		if err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
		if err != nil {
			return fmt.Errorf("delete cart: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return database.ErrCartNotFound
		}

		order.Items, err = orderItems(ctx, tx, order.ID)
		if err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if bus != nil {
		bus.PublishOrderCreated(ctx, events.OrderCreated{Order: order})
	}

	return order, nil
}

type rowQuerier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func orderItems(ctx context.Context, q rowQuerier, orderID int64) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT id, customer_id, payment_status, placed_at
		FROM orders
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.CustomerID,
		&order.PaymentStatus,
		&order.PlacedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	order.Items, err = orderItems(ctx, db, id)
	if err != nil {
		return nil, err
	}

	return order, nil
}

// UpdatePaymentStatus moves an order between payment states. Enum membership
// is the only check; there is no transition ordering.
func UpdatePaymentStatus(ctx context.Context, db *sql.DB, id int64, status string) (*models.Order, error) {
	if !models.ValidPaymentStatus(status) {
		return nil, database.Validationf("payment_status", "must be one of pending, complete, failed")
	}

	order := &models.Order{}
	query := `
		UPDATE orders
		SET payment_status = $1
		WHERE id = $2
		RETURNING id, customer_id, payment_status, placed_at`

	err := db.QueryRowContext(ctx, query, status, id).Scan(
		&order.ID,
		&order.CustomerID,
		&order.PaymentStatus,
		&order.PlacedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("update payment status: %w", err)
	}

	order.Items, err = orderItems(ctx, db, id)
	if err != nil {
		return nil, err
	}

	return order, nil
}

// DeleteOrder removes an order administratively: items first, then the order,
// since order items protect their order from deletion.
func DeleteOrder(ctx context.Context, db *sql.DB, id int64) error {
	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete order: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return database.ErrOrderNotFound
		}

		return nil
	})
}

// ListOrdersCursor pages orders newest first. A nil customerID lists every
// order (the staff view); otherwise only the customer's own.
func ListOrdersCursor(ctx context.Context, db *sql.DB, customerID *int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, database.Validationf("cursor", "is not a valid pagination cursor")
	}

	query := `
		SELECT id, customer_id, payment_status, placed_at
		FROM orders
		WHERE ($1::bigint IS NULL OR customer_id = $1)
		  AND (placed_at, id) < ($2, $3)
		ORDER BY placed_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, customerID, cursorData.PlacedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.CustomerID,
			&order.PaymentStatus,
			&order.PlacedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			PlacedAt: lastOrder.PlacedAt,
			ID:       lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
