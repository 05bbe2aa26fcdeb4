package models

import "time"

// RFQ lifecycle states.
type RFQStatus string

const (
	RFQStatusSubmitted        RFQStatus = "SUBMITTED"
	RFQStatusReceived         RFQStatus = "RECEIVED"
	RFQStatusUnderReview      RFQStatus = "UNDER_REVIEW"
	RFQStatusQuoted           RFQStatus = "QUOTED"
	RFQStatusApproved         RFQStatus = "APPROVED"
	RFQStatusRejected         RFQStatus = "REJECTED"
	RFQStatusConvertedToOrder RFQStatus = "CONVERTED_TO_ORDER"
)

// RFQ is a request-for-quote owned exclusively by its property manager.
// GeneratedOrderID is set exactly once, on conversion.
type RFQ struct {
	ID              uint      `gorm:"primaryKey"`
	Number          string    `gorm:"size:32;uniqueIndex;not null"`
	OwnerPMID       uint      `gorm:"index;not null"`
	Title           string    `gorm:"size:255;not null"`
	ScopeOfWork     string    `gorm:"type:text"`
	BuildingRef     string    `gorm:"size:100"`
	Urgency         string    `gorm:"size:20"`
	EstimatedBudget *float64
	Status          RFQStatus `gorm:"size:30;not null;index"`
	RejectionReason string    `gorm:"size:500"`
	SubmittedAt     time.Time
	QuotedAt        *time.Time
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	GeneratedOrderID *uint       `gorm:"uniqueIndex"`
	GeneratedOrder   *Order      `gorm:"foreignKey:GeneratedOrderID"`
	Targets          []RFQTarget `gorm:"foreignKey:RFQID"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RFQTarget links an RFQ to a contractor portal user invited to quote.
// External-only contacts are not targets; they get invite tokens instead.
type RFQTarget struct {
	ID           uint `gorm:"primaryKey"`
	RFQID        uint `gorm:"index;not null"`
	ContractorID uint `gorm:"index;not null"`
}
