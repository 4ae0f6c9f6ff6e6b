package models

import (
	"time"
)

const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// DBChange is one entry of the change journal polled by the change monitor.
type DBChange struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TableName  string    `gorm:"type:varchar(50);not null;index:idx_table_action" json:"table_name"`
	RecordID   int64     `gorm:"not null" json:"record_id"`
	ActionType string    `gorm:"type:varchar(10);not null;index:idx_table_action" json:"action_type"`
	ChangedAt  time.Time `gorm:"not null;index" json:"changed_at"`
	Processed  bool      `gorm:"not null;default:false;index:idx_processed" json:"processed"`
}
