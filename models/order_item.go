package models

import (
	"time"
)

type OrderItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"not null;index" json:"order_id"`
	// Omitting Order field from JSON to avoid recursive nesting
	Order     Order     `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Price     float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// Subtotal in the smallest currency unit.
func (i OrderItem) SubtotalCents() int64 {
	return int64(i.Quantity) * ToCents(i.Price)
}
