package repositories_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"plantmart/internal/models"
	"plantmart/internal/repositories"
	"plantmart/pkg/supabase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T, handler http.HandlerFunc) *supabase.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := supabase.New(supabase.Config{URL: server.URL, APIKey: "service-key"})
	require.NoError(t, err)
	return client
}

const carrotRow = `{"id":"7","name":"Organic Carrots","seller":"Marie","price":"4.50€/kg","image_url":"/carrots.jpg","category":"Vegetables","organic":true,"badge":null,"created_at":"2024-03-01T10:00:00Z"}`

func TestSupabaseCartRepository_ListByUser(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/cart_items", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "*,product:products(*)", q.Get("select"))
		assert.Equal(t, "eq.user-1", q.Get("user_id"))
		assert.Equal(t, "created_at.asc", q.Get("order"))
		_, _ = w.Write([]byte(`[{"id":"c1","user_id":"user-1","product_id":"7","quantity":2,"product":` + carrotRow + `}]`))
	})
	repo := repositories.NewSupabaseCartRepository(client)

	items, err := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c1", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "Organic Carrots", items[0].Product.Name)
	assert.Equal(t, "/carrots.jpg", items[0].Product.Image)
	assert.Empty(t, items[0].Product.Badge)
}

func TestSupabaseCartRepository_Insert(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/vnd.pgrst.object+json", r.Header.Get("Accept"))
		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "user-1", payload["user_id"])
		assert.Equal(t, "7", payload["product_id"])
		assert.EqualValues(t, 1, payload["quantity"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"c1","user_id":"user-1","product_id":"7","quantity":1,"product":` + carrotRow + `}`))
	})
	repo := repositories.NewSupabaseCartRepository(client)

	item, err := repo.Insert(context.Background(), "user-1", "7", 1)
	require.NoError(t, err)
	assert.Equal(t, "4.50€/kg", item.Product.Price)
}

func TestSupabaseProductRepository_NotFound(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotAcceptable)
			_, _ = w.Write([]byte(`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`))
		default:
			// PATCH and DELETE matching nothing return an empty representation
			_, _ = w.Write([]byte(`[]`))
		}
	})
	repo := repositories.NewSupabaseProductRepository(client)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	price := "1€"
	assert.ErrorIs(t, repo.Update(ctx, "missing", models.ProductPatch{Price: &price}), repositories.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), repositories.ErrNotFound)
}

func TestSupabaseProductRepository_CreateOmitsGatewayColumns(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.NotContains(t, payload, "id")
		assert.NotContains(t, payload, "created_at")
		assert.Equal(t, "Basil", payload["name"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"p9","name":"Basil","price":"2€","category":"Herbs","created_at":"2024-03-02T09:00:00Z"}`))
	})
	repo := repositories.NewSupabaseProductRepository(client)

	created, err := repo.Create(context.Background(), models.Product{Name: "Basil", Price: "2€", Category: "Herbs"})
	require.NoError(t, err)
	assert.Equal(t, "p9", created.ID)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestSupabaseProfileRepository_Update(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.user-1", r.URL.Query().Get("id"))
		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []any{"Herbs"}, payload["favorite_categories"])
		_, _ = w.Write([]byte(`[{"id":"user-1"}]`))
	})
	repo := repositories.NewSupabaseProfileRepository(client)

	categories := []string{"Herbs"}
	require.NoError(t, repo.Update(context.Background(), "user-1", models.ProfilePatch{FavoriteCategories: &categories}))
}

func TestSupabaseRepository_GatewayError(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"XX000","message":"boom"}`))
	})
	repo := repositories.NewSupabaseCartRepository(client)

	err := repo.DeleteAll(context.Background(), "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, repositories.ErrNotFound)
	assert.Contains(t, err.Error(), "boom")
}
