package repositories

import (
	"context"
	"errors"

	"plantmart/internal/models"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("record not found")

// ProductRepository defines the gateway operations on the products table.
type ProductRepository interface {
	// List returns every product, newest first.
	List(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// Create stores product and returns the row as the gateway saved it.
	Create(ctx context.Context, product models.Product) (*models.Product, error)
	Update(ctx context.Context, id string, patch models.ProductPatch) error
	Delete(ctx context.Context, id string) error
}
