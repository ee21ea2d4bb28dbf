package models

import (
	"time"

	"github.com/google/uuid"
)

type Category struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Picture   string     `json:"picture" db:"picture"`
	ParentID  *uuid.UUID `json:"parent_id" db:"parent_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// CategoryDetail is the read view of a single category with one level of
// surrounding context.
type CategoryDetail struct {
	Category
	Parent   *Category   `json:"parent"`
	Children []*Category `json:"children"`
	Products []*Product  `json:"products"`
}

// CategoryWithCount annotates a category with the number of products in its
// entire subtree (direct products plus all descendants' products).
type CategoryWithCount struct {
	Category
	ProductCount int `json:"product_count"`
}
