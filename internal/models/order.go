package models

import "time"

// OrderLine is a single cart line captured at confirmation time.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"` // display price at the time of order
	Quantity  int    `json:"quantity"`
}

// OrderConfirmation is published when a user confirms their cart.
type OrderConfirmation struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Items       []OrderLine `json:"items"`
	ItemCount   int         `json:"item_count"`
	ConfirmedAt time.Time   `json:"confirmed_at"`
}
