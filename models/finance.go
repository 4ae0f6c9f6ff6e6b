package models

import "time"

// Sale is a manually entered takings record, e.g. walk-in cash sales.
type Sale struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Description string    `gorm:"type:varchar(255);not null" json:"description"`
	Amount      float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	SoldAt      time.Time `gorm:"not null;index" json:"sold_at"`
	CreatedBy   *uint     `json:"created_by,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

type Expense struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Category    string    `gorm:"type:varchar(100);not null;index" json:"category"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	Amount      float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	SpentAt     time.Time `gorm:"not null;index" json:"spent_at"`
	CreatedBy   *uint     `json:"created_by,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}
