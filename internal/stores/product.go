package stores

import (
	"context"
	"fmt"
	"sync"

	"plantmart/internal/identity"
	"plantmart/internal/metrics"
	"plantmart/internal/models"
	"plantmart/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// ProductStore mirrors the products table.
type ProductStore struct {
	repo     repositories.ProductRepository
	validate *validator.Validate
	log      logrus.FieldLogger

	mu       sync.RWMutex
	products []models.Product
	loading  bool
}

// NewProductStore creates a ProductStore backed by repo. The mirror starts
// empty and loading until Start or FetchProducts runs.
func NewProductStore(repo repositories.ProductRepository, validate *validator.Validate, log logrus.FieldLogger) *ProductStore {
	return &ProductStore{
		repo:     repo,
		validate: validate,
		log:      log.WithField("store", "products"),
		products: []models.Product{},
		loading:  true,
	}
}

// Start performs the initial fetch.
func (s *ProductStore) Start(ctx context.Context) error {
	return s.FetchProducts(ctx)
}

// AddProduct validates input, inserts it and appends the stored product to
// the mirror.
func (s *ProductStore) AddProduct(ctx context.Context, session *identity.Session, input models.NewProduct) (*models.Product, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid product: %w", err)
	}

	product, err := s.repo.Create(ctx, input.Product())
	metrics.RecordGateway("products", "insert", err)
	if err != nil {
		s.log.WithField("user_id", session.UserID).WithError(err).Error("error adding product")
		return nil, fmt.Errorf("add product: %w", err)
	}

	s.mu.Lock()
	s.products = append(s.products, *product)
	s.mu.Unlock()
	return product, nil
}

// RemoveProduct deletes a product and drops it from the mirror.
func (s *ProductStore) RemoveProduct(ctx context.Context, session *identity.Session, id string) error {
	if !session.Authenticated() {
		return ErrUnauthenticated
	}

	err := s.repo.Delete(ctx, id)
	metrics.RecordGateway("products", "delete", err)
	if err != nil {
		s.log.WithFields(logrus.Fields{"user_id": session.UserID, "product_id": id}).
			WithError(err).Error("error removing product")
		return fmt.Errorf("remove product %s: %w", id, err)
	}

	s.mu.Lock()
	kept := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.products = kept
	s.mu.Unlock()
	return nil
}

// UpdateProduct applies patch to a product and merges it into the mirror.
// An empty patch is a successful no-op.
func (s *ProductStore) UpdateProduct(ctx context.Context, session *identity.Session, id string, patch models.ProductPatch) error {
	if !session.Authenticated() {
		return ErrUnauthenticated
	}
	if err := s.validate.Struct(patch); err != nil {
		return fmt.Errorf("invalid product update: %w", err)
	}
	if patch.Empty() {
		return nil
	}

	err := s.repo.Update(ctx, id, patch)
	metrics.RecordGateway("products", "update", err)
	if err != nil {
		s.log.WithFields(logrus.Fields{"user_id": session.UserID, "product_id": id}).
			WithError(err).Error("error updating product")
		return fmt.Errorf("update product %s: %w", id, err)
	}

	s.mu.Lock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products[i] = patch.Apply(s.products[i])
		}
	}
	s.mu.Unlock()
	return nil
}

// FetchProducts replaces the mirror with every product, newest first. On
// failure the previous mirror is kept.
func (s *ProductStore) FetchProducts(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	products, err := s.repo.List(ctx)
	metrics.RecordGateway("products", "list", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.log.WithError(err).Error("error fetching products")
		return fmt.Errorf("fetch products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	s.products = products
	return nil
}

// Products returns a copy of the mirror.
func (s *ProductStore) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Product returns the mirrored product with id.
func (s *ProductStore) Product(id string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// Loading reports whether a fetch is in flight or has not run yet.
func (s *ProductStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
