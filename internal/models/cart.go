package models

import "time"

// CartItem is one line of a user's cart. Product is re-resolved through the
// gateway join on every insert and fetch.
type CartItem struct {
	ID       string  `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// CartItemRow is the wire/database representation of a cart line.
// (user_id, product_id) is unique.
type CartItemRow struct {
	ID        string      `json:"id,omitempty" gorm:"primaryKey;type:varchar(36)"`
	UserID    string      `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_user_product"`
	ProductID string      `json:"product_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_user_product"`
	Quantity  int         `json:"quantity" gorm:"not null"`
	CreatedAt time.Time   `json:"created_at,omitempty"`
	Product   *ProductRow `json:"product,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// TableName pins the gateway table name.
func (CartItemRow) TableName() string {
	return "cart_items"
}

// ToCartItem maps a joined row onto the in-memory cart item.
func (r CartItemRow) ToCartItem() CartItem {
	item := CartItem{
		ID:       r.ID,
		Quantity: r.Quantity,
	}
	if r.Product != nil {
		item.Product = r.Product.ToProduct()
	} else {
		item.Product = Product{ID: r.ProductID}
	}
	return item
}
