package models

import "time"

// PdfCopy is an immutable snapshot of a quotation at the moment of a
// selection decision, keyed by (owner PM, quotation, decision). Rows are
// upserted, not inserted: a snapshot may be regenerated by a later
// self-heal pass.
type PdfCopy struct {
	ID          uint   `gorm:"primaryKey"`
	OwnerPMID   uint   `gorm:"not null;uniqueIndex:idx_pdf_copies_key"`
	QuotationID uint   `gorm:"not null;uniqueIndex:idx_pdf_copies_key"`
	Decision    string `gorm:"size:20;not null;uniqueIndex:idx_pdf_copies_key"`
	Content     []byte
	GeneratedAt time.Time
}
