package models

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Picture    string    `json:"picture" db:"picture"`
	CategoryID uuid.UUID `json:"category_id" db:"category_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ProductDetail is the read view of a product with its category and the
// category's parent for display context.
type ProductDetail struct {
	Product
	Category *CategoryDetailRef `json:"category"`
}

// CategoryDetailRef is the category context embedded in product reads.
type CategoryDetailRef struct {
	Category
	Parent *Category `json:"parent"`
}
