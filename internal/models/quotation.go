package models

import "time"

type QuotationStatus string

const (
	QuotationStatusDraft          QuotationStatus = "DRAFT"
	QuotationStatusSentToCustomer QuotationStatus = "SENT_TO_CUSTOMER"
	QuotationStatusApproved       QuotationStatus = "APPROVED"
	QuotationStatusRejected       QuotationStatus = "REJECTED"
)

// Quotation is a candidate answer to an RFQ. The RFQ link is a soft
// correlation by business number string, not a foreign key: quotations
// authored through the external token path have no database relation to the
// RFQ. Callers must tolerate zero-or-many matches and go through
// lifecycle.CandidateQuotations instead of filtering ad hoc.
type Quotation struct {
	ID              uint            `gorm:"primaryKey"`
	QuoteNumber     string          `gorm:"size:32;uniqueIndex;not null"`
	RFQNumber       string          `gorm:"size:32;index"`
	CreatedByID     *uint           `gorm:"index"`
	SubmitterEmail  string          `gorm:"size:255"`
	Items           []QuotationItem `gorm:"foreignKey:QuotationID"`
	Subtotal        float64
	Tax             float64
	Total           float64
	Status          QuotationStatus `gorm:"size:30;not null;index"`
	RejectionReason string          `gorm:"size:500"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type QuotationItem struct {
	ID          uint    `gorm:"primaryKey"`
	QuotationID uint    `gorm:"index;not null"`
	Description string  `gorm:"size:500;not null"`
	Quantity    float64 `gorm:"not null"`
	UnitPrice   float64 `gorm:"not null"`
	Amount      float64 `gorm:"not null"`
}
