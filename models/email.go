package models

import (
	"time"

	"gorm.io/datatypes"
)

type ReportType string

const (
	ReportDaily  ReportType = "daily"
	ReportWeekly ReportType = "weekly"
)

func (t ReportType) Valid() bool {
	return t == ReportDaily || t == ReportWeekly
}

const (
	EmailStatusSuccess = "success"
	EmailStatusFailed  = "failed"
)

// EmailRecipient subscribes one address to one report type.
type EmailRecipient struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ReportType ReportType `gorm:"type:varchar(10);not null;uniqueIndex:idx_recipient_type_email" json:"report_type"`
	Email      string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_recipient_type_email" json:"email"`
	Name       *string    `gorm:"type:varchar(255)" json:"name,omitempty"`
	IsActive   bool       `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
}

// EmailLog records one delivery attempt. Rows are never updated.
type EmailLog struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ReportType     ReportType     `gorm:"type:varchar(10);not null;index" json:"report_type"`
	RecipientEmail string         `gorm:"type:varchar(255);not null" json:"recipient_email"`
	Subject        string         `gorm:"type:varchar(255);not null" json:"subject"`
	Status         string         `gorm:"type:varchar(10);not null" json:"status"`
	ErrorMessage   *string        `gorm:"type:text" json:"error_message,omitempty"`
	SentAt         time.Time      `gorm:"not null;index" json:"sent_at"`
	Data           datatypes.JSON `json:"data"`
}
