package models

import "time"

type InvoiceStatus string

const (
	InvoiceStatusDraft    InvoiceStatus = "DRAFT"
	InvoiceStatusSentToPM InvoiceStatus = "SENT_TO_PM"
	InvoiceStatusPaid     InvoiceStatus = "PAID"
)

// Invoice bills an order. ContactEmail records the counterpart for
// invoices submitted through the external token path (no portal author).
type Invoice struct {
	ID            uint   `gorm:"primaryKey"`
	InvoiceNumber string `gorm:"size:32;uniqueIndex;not null"`
	OrderID       uint   `gorm:"index;not null"`
	OwnerPMID     uint   `gorm:"index;not null"`
	CreatedByID   *uint  `gorm:"index"`
	ContactEmail  string `gorm:"size:255"`
	Items         []InvoiceItem       `gorm:"foreignKey:InvoiceID"`
	Attachments   []InvoiceAttachment `gorm:"foreignKey:InvoiceID"`
	Subtotal      float64
	Tax           float64
	Total         float64
	Status        InvoiceStatus `gorm:"size:30;not null;index"`
	SentAt        *time.Time
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type InvoiceItem struct {
	ID          uint    `gorm:"primaryKey"`
	InvoiceID   uint    `gorm:"index;not null"`
	Description string  `gorm:"size:500;not null"`
	Quantity    float64 `gorm:"not null"`
	UnitPrice   float64 `gorm:"not null"`
	Amount      float64 `gorm:"not null"`
}

// InvoiceAttachment is an uploaded supporting document. External
// submissions require at least one.
type InvoiceAttachment struct {
	ID        uint   `gorm:"primaryKey"`
	InvoiceID uint   `gorm:"index;not null"`
	FileName  string `gorm:"size:255;not null"`
	FileType  string `gorm:"size:100"`
	URL       string `gorm:"size:1000;not null"`
	CreatedAt time.Time
}
