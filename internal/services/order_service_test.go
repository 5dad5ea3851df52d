package services_test

import (
	"context"
	"errors"
	"testing"

	"plantmart/internal/identity"
	"plantmart/internal/logging"
	"plantmart/internal/models"
	"plantmart/internal/services"
	"plantmart/internal/stores"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderPublisher is a mock implementation of services.OrderPublisher
type MockOrderPublisher struct {
	mock.Mock
}

func (m *MockOrderPublisher) PublishOrderConfirmed(ctx context.Context, order models.OrderConfirmation) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func signedInWithCart(t *testing.T, f fixture) *identity.Session {
	t.Helper()
	ctx := context.Background()
	_, _, err := f.auth.Register(ctx, registerInput(), "password123")
	require.NoError(t, err)
	session, _, err := f.auth.Login(ctx, "test@example.com", "password123")
	require.NoError(t, err)

	carrots := models.Product{ID: "7", Name: "Organic Carrots", Price: "4.50€/kg", Category: "Vegetables"}
	_, err = f.products.Create(ctx, carrots)
	require.NoError(t, err)
	require.NoError(t, f.carts.AddItem(ctx, session, carrots))
	require.NoError(t, f.carts.AddItem(ctx, session, carrots))
	return session
}

func TestOrderService_ConfirmOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	session := signedInWithCart(t, f)

	publisher := new(MockOrderPublisher)
	publisher.On("PublishOrderConfirmed", ctx, mock.AnythingOfType("models.OrderConfirmation")).Return(nil).Once()
	service := services.NewOrderService(f.carts, f.profiles, publisher, logging.Discard())

	order, err := service.ConfirmOrder(ctx, session)
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, session.UserID, order.UserID)
	assert.Equal(t, 2, order.ItemCount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, models.OrderLine{ProductID: "7", Name: "Organic Carrots", Price: "4.50€/kg", Quantity: 2}, order.Items[0])

	assert.Empty(t, f.carts.Items(session))
	profile, ok := f.profiles.Profile(session.UserID)
	require.True(t, ok)
	assert.Equal(t, 1, profile.TotalOrders)

	published := publisher.Calls[0].Arguments.Get(1).(models.OrderConfirmation)
	assert.Equal(t, order.ID, published.ID)
	publisher.AssertExpectations(t)

	// Test empty cart
	_, err = service.ConfirmOrder(ctx, session)
	assert.ErrorIs(t, err, services.ErrEmptyCart)
}

func TestOrderService_PublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	session := signedInWithCart(t, f)

	publisher := new(MockOrderPublisher)
	publisher.On("PublishOrderConfirmed", ctx, mock.Anything).Return(errors.New("broker unreachable")).Once()
	service := services.NewOrderService(f.carts, f.profiles, publisher, logging.Discard())

	order, err := service.ConfirmOrder(ctx, session)
	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Empty(t, f.carts.Items(session))
}

func TestOrderService_NoBroker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	session := signedInWithCart(t, f)
	service := services.NewOrderService(f.carts, f.profiles, nil, logging.Discard())

	_, err := service.ConfirmOrder(ctx, session)
	require.NoError(t, err)
}

func TestOrderService_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	service := services.NewOrderService(f.carts, f.profiles, nil, logging.Discard())

	_, err := service.ConfirmOrder(context.Background(), nil)
	assert.ErrorIs(t, err, stores.ErrUnauthenticated)
}
