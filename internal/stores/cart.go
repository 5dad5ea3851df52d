package stores

import (
	"context"
	"fmt"
	"sync"

	"plantmart/internal/identity"
	"plantmart/internal/metrics"
	"plantmart/internal/models"
	"plantmart/internal/repositories"

	"github.com/sirupsen/logrus"
)

type cartState struct {
	items   []models.CartItem
	loading bool
	loaded  bool
}

// CartStore mirrors each signed-in user's cart_items rows.
type CartStore struct {
	repo repositories.CartRepository
	log  logrus.FieldLogger

	mu    sync.RWMutex
	carts map[string]*cartState
}

// NewCartStore creates a CartStore backed by repo.
func NewCartStore(repo repositories.CartRepository, log logrus.FieldLogger) *CartStore {
	return &CartStore{
		repo:  repo,
		log:   log.WithField("store", "cart"),
		carts: make(map[string]*cartState),
	}
}

// AddItem puts one unit of product in the cart. A product already in the
// cart has its quantity incremented instead of a second row being inserted.
func (s *CartStore) AddItem(ctx context.Context, session *identity.Session, product models.Product) error {
	if !session.Authenticated() {
		return ErrUnauthenticated
	}
	if err := s.ensureLoaded(ctx, session); err != nil {
		return err
	}

	if existing, ok := s.find(session.UserID, product.ID); ok {
		return s.UpdateQuantity(ctx, session, product.ID, existing.Quantity+1)
	}

	item, err := s.repo.Insert(ctx, session.UserID, product.ID, 1)
	metrics.RecordGateway("cart", "insert", err)
	if err != nil {
		s.log.WithFields(logrus.Fields{"user_id": session.UserID, "product_id": product.ID}).
			WithError(err).Error("error adding to cart")
		return fmt.Errorf("add product %s to cart: %w", product.ID, err)
	}

	s.mu.Lock()
	state := s.state(session.UserID)
	state.items = append(state.items, *item)
	s.mu.Unlock()
	return nil
}

// RemoveItem deletes the product's line. Removing a product that is not in
// the cart succeeds.
func (s *CartStore) RemoveItem(ctx context.Context, session *identity.Session, productID string) error {
	if !session.Authenticated() {
		return ErrUnauthenticated
	}

	err := s.repo.Delete(ctx, session.UserID, productID)
	metrics.RecordGateway("cart", "delete", err)
	if err != nil {
		s.log.WithFields(logrus.Fields{"user_id": session.UserID, "product_id": productID}).
			WithError(err).Error("error removing from cart")
		return fmt.Errorf("remove product %s from cart: %w", productID, err)
	}

	s.mu.Lock()
	state := s.state(session.UserID)
	kept := make([]models.CartItem, 0, len(state.items))
	for _, item := range state.items {
		if item.Product.ID != productID {
			kept = append(kept, item)
		}
	}
	state.items = kept
	s.mu.Unlock()
	return nil
}

// UpdateQuantity sets the product's quantity. A quantity of zero or less
// removes the line.
func (s *CartStore) UpdateQuantity(ctx context.Context, session *identity.Session, productID string, quantity int) error {
	if !session.Authenticated() {
		return ErrUnauthenticated
	}
	if quantity <= 0 {
		return s.RemoveItem(ctx, session, productID)
	}

	err := s.repo.UpdateQuantity(ctx, session.UserID, productID, quantity)
	metrics.RecordGateway("cart", "update", err)
	if err != nil {
		s.log.WithFields(logrus.Fields{"user_id": session.UserID, "product_id": productID}).
			WithError(err).Error("error updating quantity")
		return fmt.Errorf("update quantity of product %s: %w", productID, err)
	}

	s.mu.Lock()
	state := s.state(session.UserID)
	for i := range state.items {
		if state.items[i].Product.ID == productID {
			state.items[i].Quantity = quantity
		}
	}
	s.mu.Unlock()
	return nil
}

// ClearCart deletes every line of the user's cart.
func (s *CartStore) ClearCart(ctx context.Context, session *identity.Session) error {
	if !session.Authenticated() {
		return ErrUnauthenticated
	}

	err := s.repo.DeleteAll(ctx, session.UserID)
	metrics.RecordGateway("cart", "clear", err)
	if err != nil {
		s.log.WithField("user_id", session.UserID).WithError(err).Error("error clearing cart")
		return fmt.Errorf("clear cart: %w", err)
	}

	s.mu.Lock()
	state := s.state(session.UserID)
	state.items = []models.CartItem{}
	state.loaded = true
	s.mu.Unlock()
	return nil
}

// FetchCart replaces the user's mirror with the gateway's rows. Without a
// session it returns an empty cart and no error. On failure the previous
// mirror is kept.
func (s *CartStore) FetchCart(ctx context.Context, session *identity.Session) ([]models.CartItem, error) {
	if !session.Authenticated() {
		return []models.CartItem{}, nil
	}

	s.mu.Lock()
	s.state(session.UserID).loading = true
	s.mu.Unlock()

	items, err := s.repo.ListByUser(ctx, session.UserID)
	metrics.RecordGateway("cart", "list", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state(session.UserID)
	state.loading = false
	if err != nil {
		s.log.WithField("user_id", session.UserID).WithError(err).Error("error fetching cart")
		return copyItems(state.items), fmt.Errorf("fetch cart: %w", err)
	}
	state.items = items
	state.loaded = true
	return copyItems(items), nil
}

// Items returns a copy of the user's mirrored cart.
func (s *CartStore) Items(session *identity.Session) []models.CartItem {
	if !session.Authenticated() {
		return []models.CartItem{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.carts[session.UserID]; ok {
		return copyItems(state.items)
	}
	return []models.CartItem{}
}

// Loading reports whether a fetch of the user's cart is in flight.
func (s *CartStore) Loading(session *identity.Session) bool {
	if !session.Authenticated() {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.carts[session.UserID]; ok {
		return state.loading
	}
	return false
}

// Loaded reports whether the user's cart has been fetched at least once.
func (s *CartStore) Loaded(session *identity.Session) bool {
	if !session.Authenticated() {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.carts[session.UserID]
	return ok && state.loaded
}

// Forget drops the user's mirror.
func (s *CartStore) Forget(userID string) {
	s.mu.Lock()
	delete(s.carts, userID)
	s.mu.Unlock()
}

// ensureLoaded fills the mirror on a user's first use.
func (s *CartStore) ensureLoaded(ctx context.Context, session *identity.Session) error {
	if s.Loaded(session) {
		return nil
	}
	_, err := s.FetchCart(ctx, session)
	return err
}

func (s *CartStore) find(userID, productID string) (models.CartItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.carts[userID]; ok {
		for _, item := range state.items {
			if item.Product.ID == productID {
				return item, true
			}
		}
	}
	return models.CartItem{}, false
}

// state returns the user's cart state, creating it. Callers hold s.mu.
func (s *CartStore) state(userID string) *cartState {
	state, ok := s.carts[userID]
	if !ok {
		state = &cartState{items: []models.CartItem{}}
		s.carts[userID] = state
	}
	return state
}

func copyItems(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return out
}
