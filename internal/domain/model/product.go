package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quantityは在庫数。注文確定時に減算される
type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity    int64           `gorm:"not null;default:0" json:"quantity"`
	ImagePath   *string         `gorm:"type:varchar(512)" json:"image_path,omitempty"`
	Description *string         `gorm:"type:text" json:"description,omitempty"`
	OwnerID     int64           `gorm:"not null;index" json:"owner_id"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (p Product) InStock(qty int64) bool {
	return qty > 0 && p.Quantity >= qty
}
