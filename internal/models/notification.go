package models

import "time"

// Notification is an in-app message produced by lifecycle fan-out.
// CorrelationID groups the messages of one fan-out batch.
type Notification struct {
	ID            uint   `gorm:"primaryKey"`
	CorrelationID string `gorm:"size:36;index"`
	RecipientID   uint   `gorm:"index;not null"`
	Role          Role   `gorm:"size:50"`
	Message       string `gorm:"size:500;not null"`
	Type          string `gorm:"size:50;not null"`
	RelatedEntity string `gorm:"size:50"`
	RelatedID     uint
	ReadAt        *time.Time
	CreatedAt     time.Time
}
