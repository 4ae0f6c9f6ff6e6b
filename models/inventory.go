package models

import "time"

type InventoryItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(255);unique;not null" json:"name"`
	Unit         string    `gorm:"type:varchar(20);not null" json:"unit"`
	Quantity     float64   `gorm:"type:decimal(12,3);not null;default:0" json:"quantity"`
	ReorderLevel float64   `gorm:"type:decimal(12,3);not null;default:0" json:"reorder_level"`
	UnitCost     float64   `gorm:"type:decimal(10,2);not null;default:0" json:"unit_cost"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (i InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.ReorderLevel
}
