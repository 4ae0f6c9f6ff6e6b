package models

import (
	"time"
)

type Order struct {
	ID                  uint        `gorm:"primaryKey" json:"id"`
	CustomerName        string      `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone       string      `gorm:"type:varchar(32)" json:"customer_phone"`
	CustomerAddress     string      `gorm:"type:text" json:"customer_address"`
	TotalAmount         float64     `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_amount"`
	Status              OrderStatus `gorm:"type:varchar(20);not null;default:'placed';index" json:"status"`
	EstimatedDeliveryAt *time.Time  `json:"estimated_delivery_at,omitempty"`
	CurrentLat          *float64    `json:"current_lat,omitempty"`
	CurrentLng          *float64    `json:"current_lng,omitempty"`
	LocationUpdatedAt   *time.Time  `json:"location_updated_at,omitempty"`
	Version             uint64      `gorm:"not null;default:1" json:"version"`
	CreatedAt           time.Time   `gorm:"not null;index" json:"created_at"`
	UpdatedAt           time.Time   `gorm:"not null" json:"updated_at"`
	OrderItems          []OrderItem `gorm:"foreignKey:OrderID" json:"order_items"`
}

// Location is a point reported by a delivery device.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within WGS84 bounds.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// CurrentLocation returns nil until a delivery device has reported a position.
func (o *Order) CurrentLocation() *Location {
	if o.CurrentLat == nil || o.CurrentLng == nil {
		return nil
	}
	return &Location{Lat: *o.CurrentLat, Lng: *o.CurrentLng}
}
