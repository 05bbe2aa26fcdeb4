package models

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING_ACCEPTANCE"
	OrderStatusAccepted  OrderStatus = "ACCEPTED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is a work order, created either directly by a PM or by RFQ
// conversion (SourceRFQID set). ContractorID is the assigned portal user;
// external-only counterparts are tracked by email.
type Order struct {
	ID              uint   `gorm:"primaryKey"`
	OrderNumber     string `gorm:"size:32;uniqueIndex;not null"`
	OwnerPMID       uint   `gorm:"index;not null"`
	ContractorID    *uint  `gorm:"index"`
	ContractorEmail string `gorm:"size:255"`
	SourceRFQID     *uint  `gorm:"index"`
	ScopeOfWork     string `gorm:"type:text"`
	TotalAmount     float64
	Status          OrderStatus `gorm:"size:30;not null;index"`
	AcceptedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
