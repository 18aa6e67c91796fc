package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Title        string
	Description  string
	Price        decimal.Decimal
	Inventory    int
	CollectionID int64
}

type UpdateProductRequest struct {
	Title        *string
	Description  *string
	Price        *decimal.Decimal
	Inventory    *int
	CollectionID *int64
}

// ProductFilter narrows ListProducts. Zero-value fields are ignored.
type ProductFilter struct {
	CollectionID *int64
	PriceGT      *decimal.Decimal
	PriceLT      *decimal.Decimal
	InventoryGT  *int
	InventoryLT  *int
}

func validateProduct(title string, price decimal.Decimal, inventory int) error {
	if title == "" {
		return database.Validationf("title", "must not be empty")
	}
	if price.LessThan(decimal.NewFromInt(1)) {
		return database.Validationf("price", "must be at least 1")
	}
	if inventory < 0 {
		return database.Validationf("inventory", "must not be negative")
	}
	return nil
}

const productColumns = `id, title, slug, description, price, inventory, collection_id, created_at, updated_at`

func scanProduct(row interface {
	Scan(dest ...interface{}) error
}) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
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
		return nil, err
	}
	return product, nil
}

func CreateProduct(ctx context.Context, db *sql.DB, req CreateProductRequest) (*models.Product, error) {
	if err := validateProduct(req.Title, req.Price, req.Inventory); err != nil {
		return nil, err
	}

	var collectionExists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM collections WHERE id = $1)`,
		req.CollectionID).Scan(&collectionExists)
	if err != nil {
		return nil, fmt.Errorf("check collection exists: %w", err)
	}
	if !collectionExists {
		return nil, database.ErrCollectionNotFound
	}

	query := `
		INSERT INTO products (title, slug, description, price, inventory, collection_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		req.Title, MakeSlug(req.Title), req.Description, req.Price, req.Inventory, req.CollectionID))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// UpdateProduct applies a partial update. A title change regenerates the slug
// with a fresh unique suffix; no other field touches the slug.
func UpdateProduct(ctx context.Context, db *sql.DB, id int64, req UpdateProductRequest) (*models.Product, error) {
	current, err := GetProduct(ctx, db, id)
	if err != nil {
		return nil, err
	}

	title := current.Title
	slug := current.Slug
	if req.Title != nil && *req.Title != current.Title {
		title = *req.Title
		slug = UniquifySlug(title)
	}
	description := current.Description
	if req.Description != nil {
		description = *req.Description
	}
	price := current.Price
	if req.Price != nil {
		price = *req.Price
	}
	inventory := current.Inventory
	if req.Inventory != nil {
		inventory = *req.Inventory
	}
	collectionID := current.CollectionID
	if req.CollectionID != nil {
		collectionID = *req.CollectionID
	}

	if err := validateProduct(title, price, inventory); err != nil {
		return nil, err
	}

	query := `
		UPDATE products
		SET title = $1, slug = $2, description = $3, price = $4, inventory = $5, collection_id = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		title, slug, description, price, inventory, collectionID, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

// DeleteProduct refuses to delete a product that appears on any order item;
// the order history protects its products.
func DeleteProduct(ctx context.Context, db *sql.DB, id int64) error {
	var referenced bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM order_items WHERE product_id = $1)`,
		id).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("check order items: %w", err)
	}
	if referenced {
		return database.Conflictf("product cannot be deleted because it is associated with an order item")
	}

	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func ListProducts(ctx context.Context, db *sql.DB, filter ProductFilter, page, pageSize int) (*OffsetPage, error) {
	where := "WHERE 1=1"
	args := []interface{}{}

	addArg := func(clause string, value interface{}) {
		args = append(args, value)
		where += fmt.Sprintf(" AND %s $%d", clause, len(args))
	}

	if filter.CollectionID != nil {
		addArg("collection_id =", *filter.CollectionID)
	}
	if filter.PriceGT != nil {
		addArg("price >", *filter.PriceGT)
	}
	if filter.PriceLT != nil {
		addArg("price <", *filter.PriceLT)
	}
	if filter.InventoryGT != nil {
		addArg("inventory >", *filter.InventoryGT)
	}
	if filter.InventoryLT != nil {
		addArg("inventory <", *filter.InventoryLT)
	}

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT `+productColumns+`
		FROM products
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(products, total, page, pageSize), nil
}
