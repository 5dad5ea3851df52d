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

// MemoryProductRepository is an in-memory implementation of ProductRepository.
type MemoryProductRepository struct {
	products map[string]models.ProductRow
	mu       sync.RWMutex
	now      func() time.Time
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[string]models.ProductRow),
		now:      monotonicClock(),
	}
}

// List returns all products, newest first.
func (r *MemoryProductRepository) List(_ context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, row := range r.products {
		productList = append(productList, row.ToProduct())
	}
	sort.Slice(productList, func(i, j int) bool {
		return productList[i].CreatedAt.After(productList[j].CreatedAt)
	})
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MemoryProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	row, ok := r.row(id)
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	product := row.ToProduct()
	return &product, nil
}

// Create adds a new product.
func (r *MemoryProductRepository) Create(_ context.Context, product models.Product) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := models.NewProductRow(product)
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if _, exists := r.products[row.ID]; exists {
		return nil, fmt.Errorf("product with ID %s already exists", row.ID)
	}
	row.CreatedAt = r.now()
	r.products[row.ID] = row
	saved := row.ToProduct()
	return &saved, nil
}

// Update applies a partial update to an existing product.
func (r *MemoryProductRepository) Update(_ context.Context, id string, patch models.ProductPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.products[id]
	if !ok {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	r.products[id] = models.NewProductRow(patch.Apply(row.ToProduct()))
	return nil
}

// Delete removes a product by its ID.
func (r *MemoryProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	delete(r.products, id)
	return nil
}

func (r *MemoryProductRepository) row(id string) (models.ProductRow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.products[id]
	return row, ok
}

// monotonicClock returns a clock that never repeats a timestamp, so
// created_at ordering stays total for rows created within one tick.
func monotonicClock() func() time.Time {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now().UTC()
		if !now.After(last) {
			now = last.Add(time.Microsecond)
		}
		last = now
		return now
	}
}
