package repositories

import (
	"context"
	"fmt"

	"plantmart/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

// ListByUser returns the user's cart lines with their products preloaded.
func (r *GORMCartRepository) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	var rows []models.CartItemRow
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cart for user %s: %w", userID, err)
	}
	items := make([]models.CartItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.ToCartItem())
	}
	return items, nil
}

// Insert creates a cart line and reads it back joined with its product.
func (r *GORMCartRepository) Insert(ctx context.Context, userID, productID string, quantity int) (*models.CartItem, error) {
	row := models.CartItemRow{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}
	db := r.db.WithContext(ctx)
	if err := db.Omit("Product").Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to insert cart item: %w", err)
	}

	var joined models.CartItemRow
	if err := db.Preload("Product").First(&joined, "id = ?", row.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to read back cart item %s: %w", row.ID, err)
	}
	item := joined.ToCartItem()
	return &item, nil
}

// UpdateQuantity sets the quantity of the (user, product) line.
func (r *GORMCartRepository) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	err := r.scope(ctx, userID).
		Where("product_id = ?", productID).
		Update("quantity", quantity).Error
	if err != nil {
		return fmt.Errorf("failed to update cart item quantity: %w", err)
	}
	return nil
}

// Delete removes the (user, product) line.
func (r *GORMCartRepository) Delete(ctx context.Context, userID, productID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItemRow{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return nil
}

// DeleteAll removes every line of the user's cart.
func (r *GORMCartRepository) DeleteAll(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItemRow{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear cart for user %s: %w", userID, err)
	}
	return nil
}

func (r *GORMCartRepository) scope(ctx context.Context, userID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.CartItemRow{}).Where("user_id = ?", userID)
}
