package store

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// MakeSlug derives the URL slug for a product title. Called once at creation
// and again whenever the title changes; never on other updates.
func MakeSlug(title string) string {
	return slug.Make(title)
}

// UniquifySlug appends a random suffix so a regenerated slug cannot collide
// with an existing product's.
func UniquifySlug(title string) string {
	return fmt.Sprintf("%s-%s", slug.Make(title), uuid.NewString())
}
