package store

import "github.com/safar/go-storefront/internal/tags"

// Every entity kind that wants to be taggable or likeable registers here.
var (
	KindProduct    = tags.Register("product")
	KindCollection = tags.Register("collection")
	KindCustomer   = tags.Register("customer")
	KindOrder      = tags.Register("order")
	KindReview     = tags.Register("review")
)
