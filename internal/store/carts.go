package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

// CreateCart mints a new empty cart under an opaque token. The token is the
// only handle clients ever get; it never changes.
func CreateCart(ctx context.Context, db *sql.DB) (*models.Cart, error) {
	cart := &models.Cart{ID: uuid.NewString(), Items: []models.CartItem{}}

	err := db.QueryRowContext(ctx,
		`INSERT INTO carts (id, created_at) VALUES ($1, NOW()) RETURNING created_at`,
		cart.ID).Scan(&cart.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	return cart, nil
}

// checkCartToken screens the client-supplied token before it reaches a
// query. carts.id is a UUID column, so a token that is not UUID syntax would
// fail the parameter cast (22P02) instead of just matching nothing; such a
// token can never name a cart and resolves the same as a missing one.
func checkCartToken(cartID string) error {
	if _, err := uuid.Parse(cartID); err != nil {
		return database.ErrCartNotFound
	}
	return nil
}

// GetCart returns the cart with its items priced against the current product
// prices. Carts carry no price lock; totals move with the catalog.
func GetCart(ctx context.Context, db *sql.DB, cartID string) (*models.Cart, error) {
	if err := checkCartToken(cartID); err != nil {
		return nil, err
	}

	cart := &models.Cart{ID: cartID, Items: []models.CartItem{}}

	err := db.QueryRowContext(ctx,
		`SELECT created_at FROM carts WHERE id = $1`, cartID).Scan(&cart.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity,
		       p.id, p.title, p.slug, p.description, p.price, p.inventory, p.collection_id, p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`

	rows, err := db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var item models.CartItem
		product := &models.Product{}
		err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&product.ID,
			&product.Title,
			&product.Slug,
			&product.Description,
			&product.Price,
			&product.Inventory,
			&product.CollectionID,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}

		item.Product = product
		item.TotalPrice = product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(item.TotalPrice)
		cart.Items = append(cart.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	cart.TotalPrice = total
	return cart, nil
}

// AddCartItem adds a product to the cart. If the product is already in the
// cart the quantities accumulate; there is never more than one row per
// (cart, product) pair.
func AddCartItem(ctx context.Context, db *sql.DB, cartID string, productID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, database.Validationf("quantity", "must be at least 1")
	}
	if err := checkCartToken(cartID); err != nil {
		return nil, err
	}

	var cartExists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM carts WHERE id = $1)`, cartID).Scan(&cartExists)
	if err != nil {
		return nil, fmt.Errorf("check cart exists: %w", err)
	}
	if !cartExists {
		return nil, database.ErrCartNotFound
	}

	var productExists bool
	err = db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&productExists)
	if err != nil {
		return nil, fmt.Errorf("check product exists: %w", err)
	}
	if !productExists {
		return nil, database.Validationf("product_id", "no product found with given id")
	}

	item := &models.CartItem{}
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, cart_id, product_id, quantity`

	err = db.QueryRowContext(ctx, query, cartID, productID, quantity).Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	return item, nil
}

// UpdateCartItem replaces the item's quantity outright.
func UpdateCartItem(ctx context.Context, db *sql.DB, cartID string, itemID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, database.Validationf("quantity", "must be at least 1")
	}
	if err := checkCartToken(cartID); err != nil {
		return nil, err
	}

	item := &models.CartItem{}
	query := `
		UPDATE cart_items
		SET quantity = $1
		WHERE id = $2 AND cart_id = $3
		RETURNING id, cart_id, product_id, quantity`

	err := db.QueryRowContext(ctx, query, quantity, itemID, cartID).Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Quantity,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}

	return item, nil
}

func RemoveCartItem(ctx context.Context, db *sql.DB, cartID string, itemID int64) error {
	if err := checkCartToken(cartID); err != nil {
		return err
	}

	result, err := db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrCartItemNotFound
	}

	return nil
}

// DeleteCart removes the cart; its items go with it by cascade.
func DeleteCart(ctx context.Context, db *sql.DB, cartID string) error {
	if err := checkCartToken(cartID); err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
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

	return nil
}
