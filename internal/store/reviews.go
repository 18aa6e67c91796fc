package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

// CreateReview attaches a review to a product, optionally as a reply to an
// existing review on the same product.
func CreateReview(ctx context.Context, db *sql.DB, productID, customerID int64, description string, parentID *int64) (*models.Review, error) {
	if description == "" {
		return nil, database.Validationf("description", "must not be empty")
	}

	if _, err := GetProduct(ctx, db, productID); err != nil {
		return nil, err
	}
	if _, err := GetCustomer(ctx, db, customerID); err != nil {
		return nil, err
	}
	if parentID != nil {
		var parentProductID int64
		err := db.QueryRowContext(ctx,
			`SELECT product_id FROM reviews WHERE id = $1`, *parentID).Scan(&parentProductID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, database.ErrReviewNotFound
			}
			return nil, fmt.Errorf("get parent review: %w", err)
		}
		if parentProductID != productID {
			return nil, database.Validationf("parent_id", "parent review belongs to a different product")
		}
	}

	review := &models.Review{}
	query := `
		INSERT INTO reviews (product_id, customer_id, description, parent_id, date)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, product_id, customer_id, description, parent_id, date`

	err := db.QueryRowContext(ctx, query, productID, customerID, description, parentID).Scan(
		&review.ID,
		&review.ProductID,
		&review.CustomerID,
		&review.Description,
		&review.ParentID,
		&review.Date,
	)
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	return review, nil
}

func GetReview(ctx context.Context, db *sql.DB, id int64) (*models.Review, error) {
	review := &models.Review{}

	query := `
		SELECT id, product_id, customer_id, description, parent_id, date
		FROM reviews
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&review.ID,
		&review.ProductID,
		&review.CustomerID,
		&review.Description,
		&review.ParentID,
		&review.Date,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrReviewNotFound
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	return review, nil
}

func ListProductReviews(ctx context.Context, db *sql.DB, productID int64) ([]models.Review, error) {
	query := `
		SELECT id, product_id, customer_id, description, parent_id, date
		FROM reviews
		WHERE product_id = $1
		ORDER BY date DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var review models.Review
		err := rows.Scan(
			&review.ID,
			&review.ProductID,
			&review.CustomerID,
			&review.Description,
			&review.ParentID,
			&review.Date,
		)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return reviews, nil
}

// DeleteReview removes a review; replies cascade with it.
func DeleteReview(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrReviewNotFound
	}

	return nil
}
