package repositories

import (
	"context"
	"errors"
	"fmt"

	"plantmart/internal/models"
	"plantmart/pkg/supabase"
)

const cartSelect = "*,product:products(*)"

// SupabaseProductRepository implements ProductRepository over PostgREST.
type SupabaseProductRepository struct {
	client *supabase.Client
}

// NewSupabaseProductRepository creates a product repository on client.
func NewSupabaseProductRepository(client *supabase.Client) *SupabaseProductRepository {
	return &SupabaseProductRepository{client: client}
}

// List returns all products, newest first.
func (r *SupabaseProductRepository) List(ctx context.Context) ([]models.Product, error) {
	var rows []models.ProductRow
	if err := run(r.client.From("products").Select("*").Order("created_at", false).Execute(ctx)).into(&rows); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	products := make([]models.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.ToProduct())
	}
	return products, nil
}

// GetByID returns a product by its ID.
func (r *SupabaseProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var row models.ProductRow
	err := run(r.client.From("products").Select("*").Eq("id", id).Single().Execute(ctx)).into(&row)
	if err != nil {
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	product := row.ToProduct()
	return &product, nil
}

// Create inserts a product and returns the stored row.
func (r *SupabaseProductRepository) Create(ctx context.Context, product models.Product) (*models.Product, error) {
	row := models.NewProductRow(product)
	payload := productInsert{
		ID:       row.ID,
		Name:     row.Name,
		Seller:   row.Seller,
		Location: row.Location,
		Price:    row.Price,
		Rating:   row.Rating,
		Reviews:  row.Reviews,
		ImageURL: row.ImageURL,
		Category: row.Category,
		Organic:  row.Organic,
		Badge:    row.Badge,
	}
	var saved models.ProductRow
	err := run(r.client.From("products").Select("*").Single().Insert(ctx, payload)).into(&saved)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	created := saved.ToProduct()
	return &created, nil
}

// Update applies a partial update to an existing product.
func (r *SupabaseProductRepository) Update(ctx context.Context, id string, patch models.ProductPatch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	var rows []models.ProductRow
	if err := run(r.client.From("products").Select("id").Eq("id", id).Update(ctx, cols)).into(&rows); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete deletes a product by its ID.
func (r *SupabaseProductRepository) Delete(ctx context.Context, id string) error {
	var rows []models.ProductRow
	if err := run(r.client.From("products").Eq("id", id).Delete(ctx)).into(&rows); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// productInsert omits id and created_at when empty so the gateway assigns them.
type productInsert struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Seller   string  `json:"seller"`
	Location string  `json:"location"`
	Price    string  `json:"price"`
	Rating   float64 `json:"rating"`
	Reviews  int     `json:"reviews"`
	ImageURL string  `json:"image_url"`
	Category string  `json:"category"`
	Organic  bool    `json:"organic"`
	Badge    *string `json:"badge"`
}

// SupabaseCartRepository implements CartRepository over PostgREST.
type SupabaseCartRepository struct {
	client *supabase.Client
}

// NewSupabaseCartRepository creates a cart repository on client.
func NewSupabaseCartRepository(client *supabase.Client) *SupabaseCartRepository {
	return &SupabaseCartRepository{client: client}
}

// ListByUser returns the user's cart lines joined with their products.
func (r *SupabaseCartRepository) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	var rows []models.CartItemRow
	err := run(r.client.From("cart_items").Select(cartSelect).Eq("user_id", userID).Order("created_at", true).Execute(ctx)).into(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart for user %s: %w", userID, err)
	}
	items := make([]models.CartItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.ToCartItem())
	}
	return items, nil
}

// Insert adds a cart line and returns it joined with its product.
func (r *SupabaseCartRepository) Insert(ctx context.Context, userID, productID string, quantity int) (*models.CartItem, error) {
	payload := map[string]any{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	}
	var row models.CartItemRow
	if err := run(r.client.From("cart_items").Select(cartSelect).Single().Insert(ctx, payload)).into(&row); err != nil {
		return nil, fmt.Errorf("failed to insert cart item: %w", err)
	}
	item := row.ToCartItem()
	return &item, nil
}

// UpdateQuantity sets the quantity of the (user, product) line.
func (r *SupabaseCartRepository) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	resp := run(r.client.From("cart_items").Select("id").Eq("user_id", userID).Eq("product_id", productID).
		Update(ctx, map[string]any{"quantity": quantity}))
	if err := resp.err(); err != nil {
		return fmt.Errorf("failed to update cart item quantity: %w", err)
	}
	return nil
}

// Delete removes the (user, product) line.
func (r *SupabaseCartRepository) Delete(ctx context.Context, userID, productID string) error {
	if err := run(r.client.From("cart_items").Eq("user_id", userID).Eq("product_id", productID).Delete(ctx)).err(); err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return nil
}

// DeleteAll removes every line of the user's cart.
func (r *SupabaseCartRepository) DeleteAll(ctx context.Context, userID string) error {
	if err := run(r.client.From("cart_items").Eq("user_id", userID).Delete(ctx)).err(); err != nil {
		return fmt.Errorf("failed to clear cart for user %s: %w", userID, err)
	}
	return nil
}

// SupabaseProfileRepository implements ProfileRepository over PostgREST.
type SupabaseProfileRepository struct {
	client *supabase.Client
}

// NewSupabaseProfileRepository creates a profile repository on client.
func NewSupabaseProfileRepository(client *supabase.Client) *SupabaseProfileRepository {
	return &SupabaseProfileRepository{client: client}
}

// Create inserts the profile row for an identity.
func (r *SupabaseProfileRepository) Create(ctx context.Context, profile models.UserProfile) (*models.UserProfile, error) {
	if profile.ID == "" {
		return nil, fmt.Errorf("profile id is required")
	}
	payload := profileInsert(models.NewProfileRow(profile))
	var saved models.ProfileRow
	if err := run(r.client.From("profiles").Select("*").Single().Insert(ctx, payload)).into(&saved); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	created := saved.ToProfile()
	return &created, nil
}

// GetByID returns the profile of an identity.
func (r *SupabaseProfileRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var row models.ProfileRow
	if err := run(r.client.From("profiles").Select("*").Eq("id", id).Single().Execute(ctx)).into(&row); err != nil {
		return nil, fmt.Errorf("failed to get profile by ID %s: %w", id, err)
	}
	profile := row.ToProfile()
	return &profile, nil
}

// Update applies a partial update to a profile.
func (r *SupabaseProfileRepository) Update(ctx context.Context, id string, patch models.ProfilePatch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	var rows []models.ProfileRow
	if err := run(r.client.From("profiles").Select("id").Eq("id", id).Update(ctx, cols)).into(&rows); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("profile with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// profileInsert leaves created_at to the gateway.
func profileInsert(row models.ProfileRow) map[string]any {
	return map[string]any{
		"id":                   row.ID,
		"name":                 row.Name,
		"email":                row.Email,
		"location":             row.Location,
		"job":                  row.Job,
		"passion":              row.Passion,
		"best_plant":           row.BestPlant,
		"favorite_plant_type":  row.FavoritePlantType,
		"gardening_experience": row.GardeningExperience,
		"plant_goals":          row.PlantGoals,
		"favorite_season":      row.FavoriteSeason,
		"garden_size":          row.GardenSize,
		"social_media":         row.SocialMedia,
		"bio":                  row.Bio,
		"avatar_url":           row.AvatarURL,
		"total_orders":         row.TotalOrders,
		"favorite_categories":  row.FavoriteCategories,
	}
}

// result folds a transport error and a status error into one value.
type result struct {
	resp *supabase.Response
	fail error
}

func run(resp *supabase.Response, err error) result {
	return result{resp: resp, fail: err}
}

func (r result) err() error {
	if r.fail != nil {
		return r.fail
	}
	if err := r.resp.Err(); err != nil {
		var se *supabase.Error
		if errors.As(err, &se) && se.NotFound() {
			return fmt.Errorf("%w: %s", ErrNotFound, se.Error())
		}
		return err
	}
	return nil
}

func (r result) into(v any) error {
	if err := r.err(); err != nil {
		return err
	}
	return r.resp.JSON(v)
}
