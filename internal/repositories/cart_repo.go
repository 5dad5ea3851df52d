package repositories

import (
	"context"

	"plantmart/internal/models"
)

// CartRepository defines the gateway operations on the cart_items table.
// Every read returns items with their product joined inline. Every call is
// scoped to one user id.
type CartRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.CartItem, error)
	// Insert adds a (user, product) row and returns it joined with its product.
	Insert(ctx context.Context, userID, productID string, quantity int) (*models.CartItem, error)
	// UpdateQuantity sets the quantity of the (user, product) row. Updating
	// an absent row is not an error.
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error
	// Delete removes the (user, product) row. Deleting an absent row is not
	// an error.
	Delete(ctx context.Context, userID, productID string) error
	DeleteAll(ctx context.Context, userID string) error
}
