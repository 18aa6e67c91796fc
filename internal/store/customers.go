package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

// CreateUser creates the account row and provisions its customer record in
// one transaction; every user has exactly one customer.
func CreateUser(ctx context.Context, db *sql.DB, email, name string, staff bool) (*models.User, error) {
	if email == "" {
		return nil, database.Validationf("email", "must not be empty")
	}

	user := &models.User{}
	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO users (email, name, staff, created_at)
			 VALUES ($1, $2, $3, NOW())
			 RETURNING id, email, name, staff, created_at`,
			email, name, staff).Scan(
			&user.ID,
			&user.Email,
			&user.Name,
			&user.Staff,
			&user.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO customers (user_id, phone, membership, created_at, updated_at)
			 VALUES ($1, '', $2, NOW(), NOW())`,
			user.ID, models.MembershipBronze)
		if err != nil {
			return fmt.Errorf("create customer: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func GetUser(ctx context.Context, db *sql.DB, id int64) (*models.User, error) {
	user := &models.User{}

	query := `SELECT id, email, name, staff, created_at FROM users WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Staff,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

const customerColumns = `c.id, c.user_id, c.phone, c.birth_date, c.membership, c.created_at, c.updated_at`

func scanCustomer(row interface {
	Scan(dest ...interface{}) error
}) (*models.Customer, error) {
	customer := &models.Customer{}
	err := row.Scan(
		&customer.ID,
		&customer.UserID,
		&customer.Phone,
		&customer.BirthDate,
		&customer.Membership,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func getCustomer(ctx context.Context, db *sql.DB, where string, arg interface{}) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers c WHERE ` + where

	customer, err := scanCustomer(db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	address := &models.Address{}
	err = db.QueryRowContext(ctx,
		`SELECT customer_id, street, city, zip FROM addresses WHERE customer_id = $1`,
		customer.ID).Scan(&address.CustomerID, &address.Street, &address.City, &address.Zip)
	switch err {
	case nil:
		customer.Address = address
	case sql.ErrNoRows:
	default:
		return nil, fmt.Errorf("get address: %w", err)
	}

	return customer, nil
}

func GetCustomer(ctx context.Context, db *sql.DB, id int64) (*models.Customer, error) {
	return getCustomer(ctx, db, "c.id = $1", id)
}

// GetCustomerByUserID resolves the customer linked to an account. A missing
// row signals an inconsistent account state to the caller.
func GetCustomerByUserID(ctx context.Context, db *sql.DB, userID int64) (*models.Customer, error) {
	return getCustomer(ctx, db, "c.user_id = $1", userID)
}

type UpdateCustomerRequest struct {
	Phone      *string
	BirthDate  *time.Time
	Membership *string
}

// UpdateCustomer applies a partial update. Membership changes are reserved
// for staff principals.
func UpdateCustomer(ctx context.Context, db *sql.DB, id int64, req UpdateCustomerRequest, actingStaff bool) (*models.Customer, error) {
	current, err := GetCustomer(ctx, db, id)
	if err != nil {
		return nil, err
	}

	phone := current.Phone
	if req.Phone != nil {
		phone = *req.Phone
	}
	birthDate := current.BirthDate
	if req.BirthDate != nil {
		birthDate = req.BirthDate
	}
	membership := current.Membership
	if req.Membership != nil && *req.Membership != current.Membership {
		if !actingStaff {
			return nil, database.Validationf("membership", "only staff may change membership")
		}
		if !models.ValidMembership(*req.Membership) {
			return nil, database.Validationf("membership", "must be one of bronze, silver, gold")
		}
		membership = *req.Membership
	}

	query := `
		UPDATE customers c
		SET phone = $1, birth_date = $2, membership = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + customerColumns

	customer, err := scanCustomer(db.QueryRowContext(ctx, query, phone, birthDate, membership, id))
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	customer.Address = current.Address

	return customer, nil
}

// SetAddress creates or replaces the customer's single address.
func SetAddress(ctx context.Context, db *sql.DB, customerID int64, street, city, zip string) (*models.Address, error) {
	if _, err := GetCustomer(ctx, db, customerID); err != nil {
		return nil, err
	}

	address := &models.Address{}
	query := `
		INSERT INTO addresses (customer_id, street, city, zip)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_id) DO UPDATE SET street = $2, city = $3, zip = $4
		RETURNING customer_id, street, city, zip`

	err := db.QueryRowContext(ctx, query, customerID, street, city, zip).Scan(
		&address.CustomerID,
		&address.Street,
		&address.City,
		&address.Zip,
	)
	if err != nil {
		return nil, fmt.Errorf("set address: %w", err)
	}

	return address, nil
}

func ListCustomers(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + customerColumns + `
		FROM customers c
		ORDER BY c.created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, *customer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(customers, total, page, pageSize), nil
}
