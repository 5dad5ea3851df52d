package models

import "time"

// Identity is a locally managed login. Only the local identity driver
// stores these; hosted providers keep their own.
type Identity struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	Name         string    `json:"name" gorm:"type:varchar(100)"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName pins the table name.
func (Identity) TableName() string {
	return "identities"
}
