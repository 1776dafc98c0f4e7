// internal/storage/models/account.go
package models

import "time"

// Account is one id-keyed account of the engine arena. Data is the borsh
// encoding including the 8-byte discriminator.
type Account struct {
	Address   string    `gorm:"primaryKey;type:varchar(44)"`
	Data      []byte    `gorm:"not null"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}
