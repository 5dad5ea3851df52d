package stores_test

import (
	"context"
	"errors"
	"testing"

	"plantmart/internal/identity"
	"plantmart/internal/logging"
	"plantmart/internal/models"
	"plantmart/internal/repositories"
	"plantmart/internal/stores"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var alice = &identity.Session{UserID: "user-alice", Email: "alice@example.com"}

type cartFixture struct {
	store    *stores.CartStore
	carts    *repositories.MemoryCartRepository
	products *repositories.MemoryProductRepository
}

func newCartFixture(t *testing.T, products ...models.Product) cartFixture {
	t.Helper()
	productRepo := repositories.NewMemoryProductRepository()
	for _, p := range products {
		_, err := productRepo.Create(context.Background(), p)
		require.NoError(t, err)
	}
	cartRepo := repositories.NewMemoryCartRepository(productRepo)
	return cartFixture{
		store:    stores.NewCartStore(cartRepo, logging.Discard()),
		carts:    cartRepo,
		products: productRepo,
	}
}

func tomato() models.Product {
	return models.Product{ID: "p-tomato", Name: "Heirloom Tomato", Price: "3.20€/kg", Category: "Vegetables"}
}

func basil() models.Product {
	return models.Product{ID: "p-basil", Name: "Genovese Basil", Price: "2.00€", Category: "Herbs"}
}

func TestCartStore_AddThenFetch(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, tomato())

	require.NoError(t, f.store.AddItem(ctx, alice, tomato()))

	items, err := f.store.FetchCart(ctx, alice)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p-tomato", items[0].Product.ID)
	assert.Equal(t, "Heirloom Tomato", items[0].Product.Name)
	assert.Equal(t, 1, items[0].Quantity)
	assert.NotEmpty(t, items[0].ID)
}

func TestCartStore_RepeatedAddIncrements(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, tomato(), basil())

	for i := 0; i < 3; i++ {
		require.NoError(t, f.store.AddItem(ctx, alice, tomato()))
	}
	require.NoError(t, f.store.AddItem(ctx, alice, basil()))

	items := f.store.Items(alice)
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)

	remote, err := f.carts.ListByUser(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, remote, 2)
	assert.Equal(t, 3, remote[0].Quantity)
}

func TestCartStore_NonPositiveQuantityRemoves(t *testing.T) {
	for _, quantity := range []int{0, -1} {
		ctx := context.Background()
		f := newCartFixture(t, tomato(), basil())
		require.NoError(t, f.store.AddItem(ctx, alice, tomato()))
		require.NoError(t, f.store.AddItem(ctx, alice, basil()))

		require.NoError(t, f.store.UpdateQuantity(ctx, alice, "p-tomato", quantity))

		items := f.store.Items(alice)
		require.Len(t, items, 1, "quantity %d", quantity)
		assert.Equal(t, "p-basil", items[0].Product.ID)

		remote, err := f.carts.ListByUser(ctx, alice.UserID)
		require.NoError(t, err)
		assert.Len(t, remote, 1)
	}
}

func TestCartStore_UpdateQuantityHasNoUpperBound(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, tomato())
	require.NoError(t, f.store.AddItem(ctx, alice, tomato()))

	require.NoError(t, f.store.UpdateQuantity(ctx, alice, "p-tomato", 10000))
	assert.Equal(t, 10000, f.store.Items(alice)[0].Quantity)
}

func TestCartStore_RemoveAbsentProduct(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, tomato())
	require.NoError(t, f.store.AddItem(ctx, alice, tomato()))
	before := f.store.Items(alice)

	require.NoError(t, f.store.RemoveItem(ctx, alice, "not-in-cart"))
	assert.Equal(t, before, f.store.Items(alice))
}

func TestCartStore_ClearCart(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, tomato(), basil())
	require.NoError(t, f.store.AddItem(ctx, alice, tomato()))
	require.NoError(t, f.store.AddItem(ctx, alice, basil()))

	require.NoError(t, f.store.ClearCart(ctx, alice))
	assert.Empty(t, f.store.Items(alice))

	remote, err := f.carts.ListByUser(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, remote)
}

func TestCartStore_UnauthenticatedMakesNoRemoteCall(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCartRepository)
	store := stores.NewCartStore(repo, logging.Discard())

	for _, session := range []*identity.Session{nil, {}} {
		assert.ErrorIs(t, store.AddItem(ctx, session, tomato()), stores.ErrUnauthenticated)
		assert.ErrorIs(t, store.RemoveItem(ctx, session, "p-tomato"), stores.ErrUnauthenticated)
		assert.ErrorIs(t, store.UpdateQuantity(ctx, session, "p-tomato", 2), stores.ErrUnauthenticated)
		assert.ErrorIs(t, store.UpdateQuantity(ctx, session, "p-tomato", 0), stores.ErrUnauthenticated)
		assert.ErrorIs(t, store.ClearCart(ctx, session), stores.ErrUnauthenticated)

		items, err := store.FetchCart(ctx, session)
		assert.NoError(t, err)
		assert.Empty(t, items)
		assert.False(t, store.Loading(session))
	}
	repo.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "DeleteAll", mock.Anything, mock.Anything)
}

func TestCartStore_Scenario(t *testing.T) {
	ctx := context.Background()
	seven := models.Product{ID: "7", Name: "Organic Carrots", Price: "4.50€/kg", Category: "Vegetables", Organic: true}
	f := newCartFixture(t, seven)

	require.NoError(t, f.store.AddItem(ctx, alice, seven))
	require.NoError(t, f.store.AddItem(ctx, alice, seven))
	items := f.store.Items(alice)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "4.50€/kg", items[0].Product.Price)

	require.NoError(t, f.store.UpdateQuantity(ctx, alice, "7", 1))
	items = f.store.Items(alice)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)

	require.NoError(t, f.store.RemoveItem(ctx, alice, "7"))
	assert.Empty(t, f.store.Items(alice))
}

func TestCartStore_UsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	bob := &identity.Session{UserID: "user-bob"}
	f := newCartFixture(t, tomato(), basil())

	require.NoError(t, f.store.AddItem(ctx, alice, tomato()))
	require.NoError(t, f.store.AddItem(ctx, bob, basil()))
	require.NoError(t, f.store.AddItem(ctx, bob, basil()))

	require.Len(t, f.store.Items(alice), 1)
	assert.Equal(t, 1, f.store.Items(alice)[0].Quantity)
	require.Len(t, f.store.Items(bob), 1)
	assert.Equal(t, 2, f.store.Items(bob)[0].Quantity)

	require.NoError(t, f.store.ClearCart(ctx, bob))
	assert.Len(t, f.store.Items(alice), 1)
}

func TestCartStore_FetchErrorKeepsMirror(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCartRepository)
	store := stores.NewCartStore(repo, logging.Discard())
	line := models.CartItem{ID: "ci-1", Product: tomato(), Quantity: 2}

	repo.On("ListByUser", mock.Anything, alice.UserID).Return([]models.CartItem{line}, nil).Once()
	_, err := store.FetchCart(ctx, alice)
	require.NoError(t, err)

	gatewayErr := errors.New("connection reset")
	repo.On("ListByUser", mock.Anything, alice.UserID).Return(nil, gatewayErr).Once()
	items, err := store.FetchCart(ctx, alice)
	assert.ErrorIs(t, err, gatewayErr)
	assert.Equal(t, []models.CartItem{line}, items)
	assert.Equal(t, []models.CartItem{line}, store.Items(alice))
	assert.False(t, store.Loading(alice))
	repo.AssertExpectations(t)
}

func TestCartStore_FailedWritesLeaveMirror(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCartRepository)
	store := stores.NewCartStore(repo, logging.Discard())
	line := models.CartItem{ID: "ci-1", Product: tomato(), Quantity: 2}
	gatewayErr := errors.New("permission denied")

	repo.On("ListByUser", mock.Anything, alice.UserID).Return([]models.CartItem{line}, nil).Once()
	repo.On("Insert", mock.Anything, alice.UserID, "p-basil", 1).Return(nil, gatewayErr).Once()
	repo.On("UpdateQuantity", mock.Anything, alice.UserID, "p-tomato", 3).Return(gatewayErr).Once()
	repo.On("Delete", mock.Anything, alice.UserID, "p-tomato").Return(gatewayErr).Once()
	repo.On("DeleteAll", mock.Anything, alice.UserID).Return(gatewayErr).Once()

	assert.ErrorIs(t, store.AddItem(ctx, alice, basil()), gatewayErr)
	assert.ErrorIs(t, store.AddItem(ctx, alice, tomato()), gatewayErr)
	assert.ErrorIs(t, store.RemoveItem(ctx, alice, "p-tomato"), gatewayErr)
	assert.ErrorIs(t, store.ClearCart(ctx, alice), gatewayErr)

	assert.Equal(t, []models.CartItem{line}, store.Items(alice))
	repo.AssertExpectations(t)
}

func TestCartStore_AddLoadsMirrorOnFirstUse(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, tomato())

	// a row written by another session
	_, err := f.carts.Insert(ctx, alice.UserID, "p-tomato", 4)
	require.NoError(t, err)

	require.NoError(t, f.store.AddItem(ctx, alice, tomato()))
	items := f.store.Items(alice)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestCartStore_Forget(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, tomato())
	require.NoError(t, f.store.AddItem(ctx, alice, tomato()))
	assert.True(t, f.store.Loaded(alice))

	f.store.Forget(alice.UserID)
	assert.Empty(t, f.store.Items(alice))
	assert.False(t, f.store.Loaded(alice))

	// the remote rows survive
	items, err := f.store.FetchCart(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
