// internal/storage/models/trade.go
package models

import "time"

// Trade is one committed buy or sell in the trade journal.
type Trade struct {
	BaseModel
	Pool          string    `gorm:"index;not null;type:varchar(44)"`
	Trader        string    `gorm:"index;not null;type:varchar(44)"`
	Side          string    `gorm:"not null;type:varchar(4)"`
	TargetAmount  uint64    `gorm:"not null"`
	ReserveAmount uint64    `gorm:"not null"`
	Fee           uint64    `gorm:"not null"`
	SupplyAfter   uint64    `gorm:"not null"`
	SpotPrice     string    `gorm:"not null;type:varchar(48)"`
	ExecutedAt    time.Time `gorm:"index;not null"`
}
