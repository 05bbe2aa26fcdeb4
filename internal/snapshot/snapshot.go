// Package snapshot produces the immutable PDF record of a quotation at the
// moment of a selection decision. Snapshots are upserted, not inserted,
// keyed by (owner PM, quotation, decision): a later self-heal pass may
// regenerate one.
package snapshot

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

// Renderer turns a stored quotation into PDF bytes. Pure function of
// stored data.
type Renderer interface {
	RenderQuotationPDF(q *models.Quotation) ([]byte, error)
}

// PDFRenderer is the default renderer.
type PDFRenderer struct {
	CompanyName string
}

func (r *PDFRenderer) RenderQuotationPDF(q *models.Quotation) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "B", 16)
	doc.Cell(0, 10, fmt.Sprintf("Quotation %s", q.QuoteNumber))
	doc.Ln(12)
	doc.SetFont("Helvetica", "", 10)
	if r.CompanyName != "" {
		doc.Cell(0, 6, r.CompanyName)
		doc.Ln(8)
	}
	if q.RFQNumber != "" {
		doc.Cell(0, 6, fmt.Sprintf("In answer to RFQ %s", q.RFQNumber))
		doc.Ln(8)
	}
	doc.Cell(0, 6, fmt.Sprintf("Status: %s", q.Status))
	doc.Ln(10)
	for _, item := range q.Items {
		doc.Cell(120, 6, item.Description)
		doc.Cell(0, 6, fmt.Sprintf("%.2f x %.2f = %.2f", item.Quantity, item.UnitPrice, item.Amount))
		doc.Ln(6)
	}
	doc.Ln(4)
	doc.SetFont("Helvetica", "B", 10)
	doc.Cell(0, 6, fmt.Sprintf("Subtotal %.2f  Tax %.2f  Total %.2f", q.Subtotal, q.Tax, q.Total))

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Store upserts snapshot rows.
type Store struct {
	db       *gorm.DB
	renderer Renderer
}

func NewStore(db *gorm.DB, renderer Renderer) *Store {
	return &Store{db: db, renderer: renderer}
}

// Record renders and upserts the snapshot for one decision.
func (s *Store) Record(ownerPMID uint, q *models.Quotation, decision string) error {
	content, err := s.renderer.RenderQuotationPDF(q)
	if err != nil {
		return err
	}
	row := models.PdfCopy{
		OwnerPMID:   ownerPMID,
		QuotationID: q.ID,
		Decision:    decision,
		Content:     content,
		GeneratedAt: time.Now(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_pm_id"}, {Name: "quotation_id"}, {Name: "decision"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "generated_at"}),
	}).Create(&row).Error
}
