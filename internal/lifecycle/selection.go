package lifecycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/domain"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/identity"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/invite"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/notify"
	"github.com/chalatsithapelo-ops/square15management-sub012/validation"
)

// rejectionNotSelected is the reason recorded on losing quotations.
const rejectionNotSelected = "Not selected"

// candidateStatuses are the quotation states that participate in selection.
var candidateStatuses = []models.QuotationStatus{
	models.QuotationStatusSentToCustomer,
	models.QuotationStatusApproved,
	models.QuotationStatusRejected,
}

// CandidateQuotations is the single home of the soft RFQ correlation:
// every quotation whose business number matches the RFQ and whose status
// participates in selection. All call sites use this; the string link
// behaves as a derived index, never an ad hoc filter.
func (e *Engine) CandidateQuotations(ctx context.Context, rfqNumber string) ([]models.Quotation, error) {
	var quotes []models.Quotation
	err := e.db.WithContext(ctx).Preload("Items").
		Where("rfq_number = ? AND status IN ?", rfqNumber, candidateStatuses).
		Order("id").
		Find(&quotes).Error
	return quotes, err
}

// SubmitQuotationInput is a portal quotation submission.
type SubmitQuotationInput struct {
	RFQNumber string      `json:"rfq_number"`
	Items     []ItemInput `json:"items"`
}

// SubmitQuotation creates a quotation answering an RFQ. Contractors must be
// targeted (directly or via a company colleague); an admin-authored
// quotation additionally moves the RFQ from UNDER_REVIEW to QUOTED.
func (e *Engine) SubmitQuotation(ctx context.Context, actor *identity.Actor, in SubmitQuotationInput) (*models.Quotation, error) {
	if !actor.Role.IsContractor() && !actor.Role.IsAdmin() {
		return nil, domain.Forbidden("contractor_or_admin_only")
	}
	v := make(validation.Violations)
	validation.Required("rfq_number", in.RFQNumber, v)
	validateItems(in.Items, v)
	if !v.Empty() {
		return nil, domain.Validation("validation_failed", v)
	}
	rfq, err := e.rfqByNumber(ctx, in.RFQNumber)
	if err != nil {
		return nil, err
	}
	switch rfq.Status {
	case models.RFQStatusReceived, models.RFQStatusUnderReview, models.RFQStatusQuoted:
	default:
		return nil, domain.Conflict("rfq_not_open_for_quotes")
	}

	var createdBy *uint
	if actor.Role.IsContractor() {
		ids, err := e.vis.CompanyUserIDs(ctx, actor)
		if err != nil {
			return nil, err
		}
		var targeted int64
		err = e.db.WithContext(ctx).Model(&models.RFQTarget{}).
			Where("rfq_id = ? AND contractor_id IN ?", rfq.ID, ids).
			Count(&targeted).Error
		if err != nil {
			return nil, err
		}
		if targeted == 0 {
			return nil, domain.Forbidden("not_targeted")
		}
		id := actor.ID
		createdBy = &id
	}

	rows, subtotal, tax, total, err := e.quotationTotals(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	cs, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	quote := models.Quotation{
		RFQNumber:   rfq.Number,
		CreatedByID: createdBy,
		Items:       rows,
		Subtotal:    subtotal,
		Tax:         tax,
		Total:       total,
		Status:      models.QuotationStatusSentToCustomer,
	}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createNumbered(tx, &quote, "quote_number", cs.QuotePrefix, func(n string) { quote.QuoteNumber = n }); err != nil {
			return err
		}
		if createdBy == nil {
			// Admin quote: RFQ advances to QUOTED, gated on review state.
			res := tx.Model(&models.RFQ{}).
				Where("id = ? AND status = ?", rfq.ID, models.RFQStatusUnderReview).
				Updates(map[string]any{"status": models.RFQStatusQuoted, "quoted_at": time.Now()})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return domain.Conflict("rfq_not_under_review")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	e.notifier.Notify(ctx, correlationID, notify.Message{
		RecipientID:   rfq.OwnerPMID,
		Role:          models.RolePropertyManager,
		Text:          fmt.Sprintf("Quotation %s received for RFQ %s", quote.QuoteNumber, rfq.Number),
		Type:          "QUOTE_SUBMITTED",
		RelatedEntity: "quotation",
		RelatedID:     quote.ID,
	})
	e.broadcastAdmins(ctx, correlationID, fmt.Sprintf("Quotation %s submitted", quote.QuoteNumber), "QUOTE_SUBMITTED", "quotation", quote.ID)
	return &quote, nil
}

// CompareQuotationsForRFQ returns the candidate quotations for the owning
// PM (or an admin) to compare before selecting.
func (e *Engine) CompareQuotationsForRFQ(ctx context.Context, actor *identity.Actor, rfqNumber string) (*models.RFQ, []models.Quotation, error) {
	rfq, err := e.rfqByNumber(ctx, rfqNumber)
	if err != nil {
		return nil, nil, err
	}
	if err := e.requireOwnerOrAdmin(actor, rfq); err != nil {
		return nil, nil, err
	}
	quotes, err := e.CandidateQuotations(ctx, rfq.Number)
	if err != nil {
		return nil, nil, err
	}
	return rfq, quotes, nil
}

// SelectQuotationForRFQ picks the winning quotation for an RFQ under
// review. Inside one transaction the winner becomes APPROVED, every other
// candidate becomes REJECTED ("Not selected") and the RFQ becomes APPROVED;
// a reader can never observe two approved quotations. PDF snapshots and
// notification fan-out happen after commit and are best-effort.
func (e *Engine) SelectQuotationForRFQ(ctx context.Context, actor *identity.Actor, rfqNumber string, winnerID uint) (*models.RFQ, error) {
	rfq, err := e.rfqByNumber(ctx, rfqNumber)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(actor, rfq); err != nil {
		return nil, err
	}
	if rfq.GeneratedOrderID != nil {
		return nil, domain.Conflict("rfq_already_converted")
	}
	if rfq.Status != models.RFQStatusUnderReview {
		return nil, domain.Conflict("rfq_not_under_review")
	}
	candidates, err := e.CandidateQuotations(ctx, rfq.Number)
	if err != nil {
		return nil, err
	}
	var winner *models.Quotation
	loserIDs := make([]uint, 0, len(candidates))
	for i := range candidates {
		if candidates[i].ID == winnerID {
			winner = &candidates[i]
		} else {
			loserIDs = append(loserIDs, candidates[i].ID)
		}
	}
	if winner == nil {
		return nil, domain.Validation("validation_failed", validation.Violations{"quotation_id": "not_a_candidate"})
	}

	now := time.Now()
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional update re-checks the review state; a concurrent
		// selection loses here and sees a conflict.
		res := tx.Model(&models.RFQ{}).
			Where("id = ? AND status = ? AND generated_order_id IS NULL", rfq.ID, models.RFQStatusUnderReview).
			Updates(map[string]any{"status": models.RFQStatusApproved, "approved_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return domain.Conflict("rfq_not_under_review")
		}
		if err := tx.Model(&models.Quotation{}).Where("id = ?", winner.ID).
			Updates(map[string]any{"status": models.QuotationStatusApproved, "rejection_reason": ""}).Error; err != nil {
			return err
		}
		if len(loserIDs) > 0 {
			if err := tx.Model(&models.Quotation{}).Where("id IN ?", loserIDs).
				Updates(map[string]any{"status": models.QuotationStatusRejected, "rejection_reason": rejectionNotSelected}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Post-commit record keeping and fan-out; failures are logged, never
	// rolled back into the committed transition.
	decided, err := e.CandidateQuotations(ctx, rfq.Number)
	if err != nil {
		log.Printf("lifecycle: snapshot reload for %s failed: %v", rfq.Number, err)
		decided = nil
	}
	correlationID := uuid.NewString()
	for i := range decided {
		q := &decided[i]
		if err := e.snapshots.Record(rfq.OwnerPMID, q, string(q.Status)); err != nil {
			log.Printf("lifecycle: snapshot for quotation %s failed: %v", q.QuoteNumber, err)
		}
		if q.CreatedByID != nil {
			text := fmt.Sprintf("Your quotation %s was not selected for RFQ %s", q.QuoteNumber, rfq.Number)
			typ := "QUOTE_REJECTED"
			if q.ID == winner.ID {
				text = fmt.Sprintf("Your quotation %s was selected for RFQ %s", q.QuoteNumber, rfq.Number)
				typ = "QUOTE_SELECTED"
			}
			e.notifier.Notify(ctx, correlationID, notify.Message{
				RecipientID:   *q.CreatedByID,
				Role:          models.RoleContractor,
				Text:          text,
				Type:          typ,
				RelatedEntity: "quotation",
				RelatedID:     q.ID,
			})
		} else if q.SubmitterEmail != "" {
			subject := fmt.Sprintf("Quotation %s update", q.QuoteNumber)
			body := fmt.Sprintf("<p>Your quotation for RFQ %s was not selected.</p>", rfq.Number)
			if q.ID == winner.ID {
				body = fmt.Sprintf("<p>Your quotation for RFQ %s was selected.</p>", rfq.Number)
			}
			e.notifier.Email(q.SubmitterEmail, subject, body)
		}
	}
	e.broadcastAdmins(ctx, correlationID,
		fmt.Sprintf("Quotation selected for RFQ %s", rfq.Number), "QUOTE_SELECTED", "rfq", rfq.ID)
	return e.rfqByID(ctx, rfq.ID)
}

// ConvertRFQToOrder converts an APPROVED RFQ to an order exactly once. The
// generated-order link is written in the same conditional update that
// flips the status, so a second conversion attempt conflicts instead of
// producing a duplicate order.
func (e *Engine) ConvertRFQToOrder(ctx context.Context, actor *identity.Actor, rfqNumber string) (*models.Order, error) {
	rfq, err := e.rfqByNumber(ctx, rfqNumber)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(actor, rfq); err != nil {
		return nil, err
	}
	if rfq.GeneratedOrderID != nil {
		return nil, domain.Conflict("rfq_already_converted")
	}
	if rfq.Status != models.RFQStatusApproved {
		return nil, domain.Conflict("rfq_not_approved")
	}

	candidates, err := e.CandidateQuotations(ctx, rfq.Number)
	if err != nil {
		return nil, err
	}
	var winner *models.Quotation
	for i := range candidates {
		if candidates[i].Status == models.QuotationStatusApproved {
			winner = &candidates[i]
			break
		}
	}

	cs, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		OwnerPMID:   rfq.OwnerPMID,
		SourceRFQID: &rfq.ID,
		ScopeOfWork: rfq.ScopeOfWork,
		Status:      models.OrderStatusPending,
	}
	if winner != nil {
		order.ContractorID = winner.CreatedByID
		order.ContractorEmail = winner.SubmitterEmail
		order.TotalAmount = winner.Total
	}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createNumbered(tx, &order, "order_number", cs.OrderPrefix, func(n string) { order.OrderNumber = n }); err != nil {
			return err
		}
		res := tx.Model(&models.RFQ{}).
			Where("id = ? AND status = ? AND generated_order_id IS NULL", rfq.ID, models.RFQStatusApproved).
			Updates(map[string]any{"status": models.RFQStatusConvertedToOrder, "generated_order_id": order.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return domain.Conflict("rfq_already_converted")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	if order.ContractorID != nil {
		e.notifier.Notify(ctx, correlationID, notify.Message{
			RecipientID:   *order.ContractorID,
			Role:          models.RoleContractor,
			Text:          fmt.Sprintf("Order %s created from RFQ %s", order.OrderNumber, rfq.Number),
			Type:          "ORDER_CREATED",
			RelatedEntity: "order",
			RelatedID:     order.ID,
		})
	} else if order.ContractorEmail != "" {
		// External winner: grant an acceptance capability by email.
		_, link, err := e.invites.Issue(ctx, invite.IssueInput{
			Type:    models.TokenTypeOrderAccept,
			Email:   order.ContractorEmail,
			OrderID: &order.ID,
			TTLDays: defaultInviteTTLDays,
		})
		if err != nil {
			log.Printf("lifecycle: order accept invite for %s failed: %v", order.OrderNumber, err)
		} else {
			e.notifier.Email(order.ContractorEmail, fmt.Sprintf("Work order %s", order.OrderNumber),
				fmt.Sprintf("<p>Order %s has been placed with you.</p><p><a href=%q>Accept the order</a></p>", order.OrderNumber, link))
		}
	}
	e.broadcastAdmins(ctx, correlationID,
		fmt.Sprintf("RFQ %s converted to order %s", rfq.Number, order.OrderNumber), "ORDER_CREATED", "order", order.ID)
	return &order, nil
}

// RepairGeneratedOrder backfills the generated-order link for a
// CONVERTED_TO_ORDER RFQ whose relation is missing, by finding the order
// that points back at it. Repair-on-read: the read still succeeds if the
// backfill write fails.
func (e *Engine) RepairGeneratedOrder(ctx context.Context, rfq *models.RFQ) {
	if rfq.Status != models.RFQStatusConvertedToOrder || rfq.GeneratedOrderID != nil {
		return
	}
	var order models.Order
	err := e.db.WithContext(ctx).Where("source_rfq_id = ?", rfq.ID).First(&order).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("lifecycle: repair lookup for RFQ %s failed: %v", rfq.Number, err)
		}
		return
	}
	rfq.GeneratedOrderID = &order.ID
	rfq.GeneratedOrder = &order
	if err := e.db.WithContext(ctx).Model(&models.RFQ{}).
		Where("id = ? AND generated_order_id IS NULL", rfq.ID).
		Update("generated_order_id", order.ID).Error; err != nil {
		log.Printf("lifecycle: repair backfill for RFQ %s failed: %v", rfq.Number, err)
	}
}
