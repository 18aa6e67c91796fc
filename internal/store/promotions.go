package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

func validateDiscount(discount decimal.Decimal) error {
	if discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(100)) {
		return database.Validationf("discount", "must be between 0 and 100")
	}
	return nil
}

func CreatePromotion(ctx context.Context, db *sql.DB, description string, discount decimal.Decimal) (*models.Promotion, error) {
	if description == "" {
		return nil, database.Validationf("description", "must not be empty")
	}
	if err := validateDiscount(discount); err != nil {
		return nil, err
	}

	promotion := &models.Promotion{}
	query := `
		INSERT INTO promotions (description, discount, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, description, discount, created_at`

	err := db.QueryRowContext(ctx, query, description, discount).Scan(
		&promotion.ID,
		&promotion.Description,
		&promotion.Discount,
		&promotion.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create promotion: %w", err)
	}

	return promotion, nil
}

func GetPromotion(ctx context.Context, db *sql.DB, id int64) (*models.Promotion, error) {
	promotion := &models.Promotion{}

	query := `SELECT id, description, discount, created_at FROM promotions WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&promotion.ID,
		&promotion.Description,
		&promotion.Discount,
		&promotion.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("get promotion: %w", err)
	}

	return promotion, nil
}

func DeletePromotion(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrPromotionNotFound
	}

	return nil
}

// AttachPromotion links a promotion to a product. Attaching the same pair
// twice is a no-op.
func AttachPromotion(ctx context.Context, db *sql.DB, productID, promotionID int64) error {
	if _, err := GetProduct(ctx, db, productID); err != nil {
		return err
	}
	if _, err := GetPromotion(ctx, db, promotionID); err != nil {
		return err
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO product_promotions (product_id, promotion_id)
		 VALUES ($1, $2)
		 ON CONFLICT (product_id, promotion_id) DO NOTHING`,
		productID, promotionID)
	if err != nil {
		return fmt.Errorf("attach promotion: %w", err)
	}

	return nil
}

func DetachPromotion(ctx context.Context, db *sql.DB, productID, promotionID int64) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM product_promotions WHERE product_id = $1 AND promotion_id = $2`,
		productID, promotionID)
	if err != nil {
		return fmt.Errorf("detach promotion: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrPromotionNotFound
	}

	return nil
}

func ListProductPromotions(ctx context.Context, db *sql.DB, productID int64) ([]models.Promotion, error) {
	query := `
		SELECT p.id, p.description, p.discount, p.created_at
		FROM promotions p
		JOIN product_promotions pp ON pp.promotion_id = p.id
		WHERE pp.product_id = $1
		ORDER BY p.id`

	rows, err := db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list product promotions: %w", err)
	}
	defer rows.Close()

	promotions := []models.Promotion{}
	for rows.Next() {
		var promotion models.Promotion
		err := rows.Scan(
			&promotion.ID,
			&promotion.Description,
			&promotion.Discount,
			&promotion.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		promotions = append(promotions, promotion)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return promotions, nil
}
