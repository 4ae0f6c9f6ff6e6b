package models

import (
	"time"
)

type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"type:varchar(100)" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Source    string    `gorm:"type:varchar(50);index" json:"source"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
