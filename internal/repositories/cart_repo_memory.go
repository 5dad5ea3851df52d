package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"plantmart/internal/models"

	"github.com/google/uuid"
)

type cartKey struct {
	userID    string
	productID string
}

// MemoryCartRepository is an in-memory implementation of CartRepository.
// Products are joined from the product repository on every read.
type MemoryCartRepository struct {
	items    map[cartKey]models.CartItemRow
	products *MemoryProductRepository
	mu       sync.RWMutex
	now      func() time.Time
}

// NewMemoryCartRepository creates a new instance of MemoryCartRepository.
func NewMemoryCartRepository(products *MemoryProductRepository) *MemoryCartRepository {
	return &MemoryCartRepository{
		items:    make(map[cartKey]models.CartItemRow),
		products: products,
		now:      monotonicClock(),
	}
}

// ListByUser returns the user's cart lines in insertion order.
func (r *MemoryCartRepository) ListByUser(_ context.Context, userID string) ([]models.CartItem, error) {
	r.mu.RLock()
	rows := make([]models.CartItemRow, 0)
	for key, row := range r.items {
		if key.userID == userID {
			rows = append(rows, row)
		}
	}
	r.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	items := make([]models.CartItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, r.join(row).ToCartItem())
	}
	return items, nil
}

// Insert adds a cart line. The (user, product) pair must be new and the
// product must exist.
func (r *MemoryCartRepository) Insert(_ context.Context, userID, productID string, quantity int) (*models.CartItem, error) {
	if _, ok := r.products.row(productID); !ok {
		return nil, fmt.Errorf("cart item references unknown product %s: %w", productID, ErrNotFound)
	}

	r.mu.Lock()
	key := cartKey{userID: userID, productID: productID}
	if _, exists := r.items[key]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("duplicate cart item for user %s and product %s", userID, productID)
	}
	row := models.CartItemRow{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: r.now(),
	}
	r.items[key] = row
	r.mu.Unlock()

	item := r.join(row).ToCartItem()
	return &item, nil
}

// UpdateQuantity sets the quantity of the (user, product) line if present.
func (r *MemoryCartRepository) UpdateQuantity(_ context.Context, userID, productID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cartKey{userID: userID, productID: productID}
	if row, ok := r.items[key]; ok {
		row.Quantity = quantity
		r.items[key] = row
	}
	return nil
}

// Delete removes the (user, product) line if present.
func (r *MemoryCartRepository) Delete(_ context.Context, userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, cartKey{userID: userID, productID: productID})
	return nil
}

// DeleteAll removes every line of the user's cart.
func (r *MemoryCartRepository) DeleteAll(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.items {
		if key.userID == userID {
			delete(r.items, key)
		}
	}
	return nil
}

func (r *MemoryCartRepository) join(row models.CartItemRow) models.CartItemRow {
	if product, ok := r.products.row(row.ProductID); ok {
		row.Product = &product
	}
	return row
}
