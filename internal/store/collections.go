package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

func CreateCollection(ctx context.Context, db *sql.DB, title string, featuredProductID *int64) (*models.Collection, error) {
	if title == "" {
		return nil, database.Validationf("title", "must not be empty")
	}

	if featuredProductID != nil {
		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`,
			*featuredProductID).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check featured product: %w", err)
		}
		if !exists {
			return nil, database.ErrProductNotFound
		}
	}

	collection := &models.Collection{}
	query := `
		INSERT INTO collections (title, featured_product_id, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, title, featured_product_id, created_at, updated_at`

	err := db.QueryRowContext(ctx, query, title, featuredProductID).Scan(
		&collection.ID,
		&collection.Title,
		&collection.FeaturedProductID,
		&collection.CreatedAt,
		&collection.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return collection, nil
}

func GetCollection(ctx context.Context, db *sql.DB, id int64) (*models.Collection, error) {
	collection := &models.Collection{}

	query := `
		SELECT c.id, c.title, c.featured_product_id, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM products p WHERE p.collection_id = c.id)
		FROM collections c
		WHERE c.id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&collection.ID,
		&collection.Title,
		&collection.FeaturedProductID,
		&collection.CreatedAt,
		&collection.UpdatedAt,
		&collection.ProductCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}

	return collection, nil
}

func UpdateCollection(ctx context.Context, db *sql.DB, id int64, title string, featuredProductID *int64) (*models.Collection, error) {
	if title == "" {
		return nil, database.Validationf("title", "must not be empty")
	}

	if featuredProductID != nil {
		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`,
			*featuredProductID).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check featured product: %w", err)
		}
		if !exists {
			return nil, database.ErrProductNotFound
		}
	}

	collection := &models.Collection{}
	query := `
		UPDATE collections
		SET title = $1, featured_product_id = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING id, title, featured_product_id, created_at, updated_at`

	err := db.QueryRowContext(ctx, query, title, featuredProductID, id).Scan(
		&collection.ID,
		&collection.Title,
		&collection.FeaturedProductID,
		&collection.CreatedAt,
		&collection.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("update collection: %w", err)
	}

	return collection, nil
}

// DeleteCollection refuses to delete a collection that still has products.
func DeleteCollection(ctx context.Context, db *sql.DB, id int64) error {
	var referenced bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE collection_id = $1)`,
		id).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("check products: %w", err)
	}
	if referenced {
		return database.Conflictf("collection cannot be deleted because it is associated with a product")
	}

	result, err := db.ExecContext(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrCollectionNotFound
	}

	return nil
}

func ListCollections(ctx context.Context, db *sql.DB) ([]models.Collection, error) {
	query := `
		SELECT c.id, c.title, c.featured_product_id, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM products p WHERE p.collection_id = c.id)
		FROM collections c
		ORDER BY c.title`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var collections []models.Collection
	for rows.Next() {
		var collection models.Collection
		err := rows.Scan(
			&collection.ID,
			&collection.Title,
			&collection.FeaturedProductID,
			&collection.CreatedAt,
			&collection.UpdatedAt,
			&collection.ProductCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		collections = append(collections, collection)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return collections, nil
}
