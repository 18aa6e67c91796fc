package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Collection struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	FeaturedProductID *int64    `json:"featured_product_id,omitempty"`
	ProductCount      int64     `json:"product_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Product struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Inventory    int             `json:"inventory"`
	CollectionID int64           `json:"collection_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Promotion struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Discount    decimal.Decimal `json:"discount"`
	CreatedAt   time.Time       `json:"created_at"`
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Staff     bool      `json:"staff"`
	CreatedAt time.Time `json:"created_at"`
}

type Customer struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Phone      string     `json:"phone"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Membership string     `json:"membership"`
	Address    *Address   `json:"address,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Address is keyed by the owning customer; there is at most one per customer.
type Address struct {
	CustomerID int64  `json:"customer_id"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Zip        string `json:"zip"`
}

// Cart is identified by an opaque token handed to clients verbatim. Carts are
// single-use: a successful checkout deletes the cart and its items.
type Cart struct {
	ID         string          `json:"id"`
	Items      []CartItem      `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

type CartItem struct {
	ID         int64           `json:"id"`
	CartID     string          `json:"cart_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	Product    *Product        `json:"product,omitempty"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type Order struct {
	ID            int64       `json:"id"`
	CustomerID    int64       `json:"customer_id"`
	PaymentStatus string      `json:"payment_status"`
	PlacedAt      time.Time   `json:"placed_at"`
	Items         []OrderItem `json:"items,omitempty"`
}

// OrderItem.UnitPrice is captured from the product at checkout time and is
// never re-derived from the live product row afterwards.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Review struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	CustomerID  int64     `json:"customer_id"`
	Description string    `json:"description"`
	ParentID    *int64    `json:"parent_id,omitempty"`
	Date        time.Time `json:"date"`
}

type Tag struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

const (
	MembershipBronze = "bronze"
	MembershipSilver = "silver"
	MembershipGold   = "gold"
)

func ValidMembership(m string) bool {
	switch m {
	case MembershipBronze, MembershipSilver, MembershipGold:
		return true
	}
	return false
}

const (
	PaymentStatusPending  = "pending"
	PaymentStatusComplete = "complete"
	PaymentStatusFailed   = "failed"
)

func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusComplete, PaymentStatusFailed:
		return true
	}
	return false
}
