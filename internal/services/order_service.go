package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plantmart/internal/identity"
	"plantmart/internal/models"
	"plantmart/internal/stores"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrEmptyCart is returned when confirming an order with nothing in the cart.
var ErrEmptyCart = errors.New("cart is empty")

// OrderPublisher publishes order events to a message broker.
type OrderPublisher interface {
	PublishOrderConfirmed(ctx context.Context, order models.OrderConfirmation) error
}

// OrderService handles checkout of a user's cart.
type OrderService struct {
	carts     *stores.CartStore
	profiles  *stores.ProfileStore
	publisher OrderPublisher // nil when no broker is configured
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(carts *stores.CartStore, profiles *stores.ProfileStore, publisher OrderPublisher, log logrus.FieldLogger) *OrderService {
	return &OrderService{
		carts:     carts,
		profiles:  profiles,
		publisher: publisher,
		log:       log.WithField("service", "orders"),
		now:       time.Now,
	}
}

// ConfirmOrder checks out the session's cart: the cart is cleared, the
// profile's order count is bumped and an order.confirmed event is published.
// Only clearing the cart can fail the call; the other two steps are logged.
func (s *OrderService) ConfirmOrder(ctx context.Context, session *identity.Session) (*models.OrderConfirmation, error) {
	if !session.Authenticated() {
		return nil, stores.ErrUnauthenticated
	}

	items := s.carts.Items(session)
	if !s.carts.Loaded(session) {
		var err error
		if items, err = s.carts.FetchCart(ctx, session); err != nil {
			return nil, fmt.Errorf("load cart: %w", err)
		}
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	order := models.OrderConfirmation{
		ID:          uuid.New().String(),
		UserID:      session.UserID,
		Items:       make([]models.OrderLine, 0, len(items)),
		ConfirmedAt: s.now().UTC(),
	}
	for _, item := range items {
		order.Items = append(order.Items, models.OrderLine{
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Price:     item.Product.Price,
			Quantity:  item.Quantity,
		})
		order.ItemCount += item.Quantity
	}

	if err := s.carts.ClearCart(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to clear cart for order %s: %w", order.ID, err)
	}

	entry := s.log.WithFields(logrus.Fields{"user_id": session.UserID, "order_id": order.ID})
	if err := s.bumpOrderCount(ctx, session); err != nil {
		entry.WithError(err).Warn("order confirmed but total_orders was not updated")
	}

	if s.publisher == nil {
		entry.Debug("message broker is not configured, skipping order event")
		return &order, nil
	}
	if err := s.publisher.PublishOrderConfirmed(ctx, order); err != nil {
		entry.WithError(err).Warn("failed to publish order confirmed event")
	} else {
		entry.Info("published order confirmed event")
	}
	return &order, nil
}

func (s *OrderService) bumpOrderCount(ctx context.Context, session *identity.Session) error {
	profile, ok := s.profiles.Profile(session.UserID)
	if !ok {
		var err error
		if profile, err = s.profiles.FetchProfile(ctx, session); err != nil {
			return err
		}
	}
	total := profile.TotalOrders + 1
	_, err := s.profiles.UpdateProfile(ctx, session, models.ProfilePatch{TotalOrders: &total})
	return err
}
