package models

import "time"

// CompanySettings holds the operator's company details and the document
// numbering prefixes. Single row; read through the settings cache.
type CompanySettings struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"size:255;not null"`
	Email   string `gorm:"size:255"`
	Phone   string `gorm:"size:50"`
	Address string `gorm:"size:500"`
	LogoURL string `gorm:"size:1000"`

	VATRate float64 `gorm:"not null;default:0.15"`

	RFQPrefix     string `gorm:"size:16;not null;default:'PMRFQ'"`
	QuotePrefix   string `gorm:"size:16;not null;default:'PMQ'"`
	OrderPrefix   string `gorm:"size:16;not null;default:'PMO'"`
	InvoicePrefix string `gorm:"size:16;not null;default:'PMINV'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
