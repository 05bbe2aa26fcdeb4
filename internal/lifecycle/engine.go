// Package lifecycle is the procurement state machine: it enacts every legal
// transition for RFQs, quotations, orders and invoices, enforcing guards
// inside database transactions and fanning out best-effort side effects
// only after commit.
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
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/settings"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/snapshot"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/visibility"
	"github.com/chalatsithapelo-ops/square15management-sub012/validation"
)

const defaultInviteTTLDays = 14

var urgencies = []string{"LOW", "MEDIUM", "HIGH", "EMERGENCY"}

// Engine orchestrates lifecycle transitions.
type Engine struct {
	db        *gorm.DB
	invites   *invite.Ledger
	notifier  *notify.Service
	snapshots *snapshot.Store
	settings  *settings.Cache
	vis       *visibility.Partitioner
}

func NewEngine(db *gorm.DB, invites *invite.Ledger, notifier *notify.Service, snapshots *snapshot.Store, cache *settings.Cache, vis *visibility.Partitioner) *Engine {
	return &Engine{
		db:        db,
		invites:   invites,
		notifier:  notifier,
		snapshots: snapshots,
		settings:  cache,
		vis:       vis,
	}
}

// ItemInput is one line of a quotation or invoice.
type ItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

func validateItems(items []ItemInput, v validation.Violations) {
	if len(items) == 0 {
		v["items"] = "required"
		return
	}
	for i, it := range items {
		validation.Required(fmt.Sprintf("items[%d].description", i), it.Description, v)
		validation.PositiveFloat(fmt.Sprintf("items[%d].quantity", i), it.Quantity, v)
		validation.PositiveFloat(fmt.Sprintf("items[%d].unit_price", i), it.UnitPrice, v)
	}
}

// quotationTotals computes line amounts and document totals. Totals are
// server-derived; clients never set them.
func (e *Engine) quotationTotals(ctx context.Context, items []ItemInput) ([]models.QuotationItem, float64, float64, float64, error) {
	cs, err := e.settings.Get(ctx)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	rows := make([]models.QuotationItem, 0, len(items))
	var subtotal float64
	for _, it := range items {
		amount := it.Quantity * it.UnitPrice
		subtotal += amount
		rows = append(rows, models.QuotationItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      amount,
		})
	}
	tax := subtotal * cs.VATRate
	return rows, subtotal, tax, subtotal + tax, nil
}

func (e *Engine) invoiceTotals(ctx context.Context, items []ItemInput) ([]models.InvoiceItem, float64, float64, float64, error) {
	cs, err := e.settings.Get(ctx)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	rows := make([]models.InvoiceItem, 0, len(items))
	var subtotal float64
	for _, it := range items {
		amount := it.Quantity * it.UnitPrice
		subtotal += amount
		rows = append(rows, models.InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      amount,
		})
	}
	tax := subtotal * cs.VATRate
	return rows, subtotal, tax, subtotal + tax, nil
}

// adminIDs returns every admin-variant portal user, for broadcasts.
func (e *Engine) adminIDs(ctx context.Context) []uint {
	var ids []uint
	err := e.db.WithContext(ctx).Model(&models.User{}).
		Where("role IN ?", []models.Role{models.RoleAdmin, models.RoleAdminJunior, models.RoleAdminSenior}).
		Pluck("id", &ids).Error
	if err != nil {
		log.Printf("lifecycle: admin broadcast lookup failed: %v", err)
	}
	return ids
}

func (e *Engine) broadcastAdmins(ctx context.Context, correlationID, text, typ, entity string, relatedID uint) {
	for _, id := range e.adminIDs(ctx) {
		e.notifier.Notify(ctx, correlationID, notify.Message{
			RecipientID:   id,
			Role:          models.RoleAdmin,
			Text:          text,
			Type:          typ,
			RelatedEntity: entity,
			RelatedID:     relatedID,
		})
	}
}

func (e *Engine) rfqByNumber(ctx context.Context, number string) (*models.RFQ, error) {
	var rfq models.RFQ
	err := e.db.WithContext(ctx).Preload("Targets").Where("number = ?", number).First(&rfq).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.NotFound("rfq_not_found")
	}
	if err != nil {
		return nil, err
	}
	return &rfq, nil
}

func (e *Engine) rfqByID(ctx context.Context, id uint) (*models.RFQ, error) {
	var rfq models.RFQ
	err := e.db.WithContext(ctx).Preload("Targets").First(&rfq, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.NotFound("rfq_not_found")
	}
	if err != nil {
		return nil, err
	}
	return &rfq, nil
}

// CreateRFQInput is the payload for a new RFQ. Target contractors are
// portal users; external emails receive RFQ_QUOTE invite tokens instead.
type CreateRFQInput struct {
	Title               string   `json:"title"`
	ScopeOfWork         string   `json:"scope_of_work"`
	BuildingRef         string   `json:"building_ref"`
	Urgency             string   `json:"urgency"`
	EstimatedBudget     *float64 `json:"estimated_budget,omitempty"`
	TargetContractorIDs []uint   `json:"target_contractor_ids"`
	ExternalEmails      []string `json:"external_emails"`
	InviteTTLDays       int      `json:"invite_ttl_days"`
}

// CreateRFQ creates an RFQ in SUBMITTED, resolves its target contractors,
// and issues invite tokens for external-only contacts.
func (e *Engine) CreateRFQ(ctx context.Context, actor *identity.Actor, in CreateRFQInput) (*models.RFQ, error) {
	if !actor.IsPM() {
		return nil, domain.Forbidden("property_manager_only")
	}
	if in.Urgency == "" {
		in.Urgency = "MEDIUM"
	}
	v := make(validation.Violations)
	validation.Required("title", in.Title, v)
	validation.Required("scope_of_work", in.ScopeOfWork, v)
	validation.OneOf("urgency", in.Urgency, urgencies, v)
	for i, email := range in.ExternalEmails {
		validation.Required(fmt.Sprintf("external_emails[%d]", i), email, v)
		validation.Email(fmt.Sprintf("external_emails[%d]", i), email, v)
	}
	if !v.Empty() {
		return nil, domain.Validation("validation_failed", v)
	}

	if len(in.TargetContractorIDs) > 0 {
		var count int64
		err := e.db.WithContext(ctx).Model(&models.User{}).
			Where("id IN ? AND role IN ?", in.TargetContractorIDs, []models.Role{
				models.RoleContractor, models.RoleContractorJuniorManager, models.RoleContractorSeniorManager,
			}).Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count != int64(len(in.TargetContractorIDs)) {
			return nil, domain.Validation("validation_failed", validation.Violations{"target_contractor_ids": "unknown_contractor"})
		}
	}

	cs, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	rfq := models.RFQ{
		OwnerPMID:       actor.ID,
		Title:           in.Title,
		ScopeOfWork:     in.ScopeOfWork,
		BuildingRef:     in.BuildingRef,
		Urgency:         in.Urgency,
		EstimatedBudget: in.EstimatedBudget,
		Status:          models.RFQStatusSubmitted,
		SubmittedAt:     time.Now(),
	}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createNumbered(tx, &rfq, "number", cs.RFQPrefix, func(n string) { rfq.Number = n }); err != nil {
			return err
		}
		for _, cid := range in.TargetContractorIDs {
			if err := tx.Create(&models.RFQTarget{RFQID: rfq.ID, ContractorID: cid}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Side effects after commit, best-effort.
	correlationID := uuid.NewString()
	for _, cid := range in.TargetContractorIDs {
		e.notifier.Notify(ctx, correlationID, notify.Message{
			RecipientID:   cid,
			Role:          models.RoleContractor,
			Text:          fmt.Sprintf("New request for quote %s: %s", rfq.Number, rfq.Title),
			Type:          "RFQ_CREATED",
			RelatedEntity: "rfq",
			RelatedID:     rfq.ID,
		})
	}
	e.broadcastAdmins(ctx, correlationID, fmt.Sprintf("RFQ %s submitted", rfq.Number), "RFQ_CREATED", "rfq", rfq.ID)

	ttl := in.InviteTTLDays
	if ttl <= 0 {
		ttl = defaultInviteTTLDays
	}
	for _, email := range in.ExternalEmails {
		_, link, err := e.invites.Issue(ctx, invite.IssueInput{
			Type:    models.TokenTypeRFQQuote,
			Email:   email,
			RFQID:   &rfq.ID,
			TTLDays: ttl,
		})
		if err != nil {
			log.Printf("lifecycle: invite for %s on %s failed: %v", email, rfq.Number, err)
			continue
		}
		e.notifier.Email(email, fmt.Sprintf("Request for quote %s", rfq.Number),
			fmt.Sprintf("<p>You have been invited to quote on %s.</p><p><a href=%q>Submit your quotation</a></p>", rfq.Title, link))
	}
	return e.rfqByID(ctx, rfq.ID)
}

// AcknowledgeRFQ moves a freshly submitted RFQ to RECEIVED (admin intake).
func (e *Engine) AcknowledgeRFQ(ctx context.Context, actor *identity.Actor, number string) (*models.RFQ, error) {
	if !actor.Role.IsAdmin() {
		return nil, domain.Forbidden("admin_only")
	}
	rfq, err := e.rfqByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := e.transitionRFQ(ctx, rfq.ID, models.RFQStatusSubmitted, map[string]any{
		"status": models.RFQStatusReceived,
	}); err != nil {
		return nil, err
	}
	return e.rfqByID(ctx, rfq.ID)
}

// StartReview moves a RECEIVED RFQ to UNDER_REVIEW. Owning PM or admin.
func (e *Engine) StartReview(ctx context.Context, actor *identity.Actor, number string) (*models.RFQ, error) {
	rfq, err := e.rfqByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwnerOrAdmin(actor, rfq); err != nil {
		return nil, err
	}
	if err := e.transitionRFQ(ctx, rfq.ID, models.RFQStatusReceived, map[string]any{
		"status": models.RFQStatusUnderReview,
	}); err != nil {
		return nil, err
	}
	return e.rfqByID(ctx, rfq.ID)
}

// ApproveRFQ approves a QUOTED RFQ (the admin-quote path). Requires at
// least one candidate quotation to exist.
func (e *Engine) ApproveRFQ(ctx context.Context, actor *identity.Actor, number string) (*models.RFQ, error) {
	rfq, err := e.rfqByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(actor, rfq); err != nil {
		return nil, err
	}
	candidates, err := e.CandidateQuotations(ctx, rfq.Number)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, domain.Conflict("no_quotation_to_approve")
	}
	now := time.Now()
	if err := e.transitionRFQ(ctx, rfq.ID, models.RFQStatusQuoted, map[string]any{
		"status":      models.RFQStatusApproved,
		"approved_at": now,
	}); err != nil {
		return nil, err
	}
	correlationID := uuid.NewString()
	e.broadcastAdmins(ctx, correlationID, fmt.Sprintf("RFQ %s approved", rfq.Number), "RFQ_APPROVED", "rfq", rfq.ID)
	return e.rfqByID(ctx, rfq.ID)
}

// RejectRFQ rejects a QUOTED RFQ, recording the reason.
func (e *Engine) RejectRFQ(ctx context.Context, actor *identity.Actor, number, reason string) (*models.RFQ, error) {
	rfq, err := e.rfqByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(actor, rfq); err != nil {
		return nil, err
	}
	v := make(validation.Violations)
	validation.Required("reason", reason, v)
	if !v.Empty() {
		return nil, domain.Validation("validation_failed", v)
	}
	now := time.Now()
	if err := e.transitionRFQ(ctx, rfq.ID, models.RFQStatusQuoted, map[string]any{
		"status":           models.RFQStatusRejected,
		"rejection_reason": reason,
		"rejected_at":      now,
	}); err != nil {
		return nil, err
	}
	correlationID := uuid.NewString()
	e.broadcastAdmins(ctx, correlationID, fmt.Sprintf("RFQ %s rejected", rfq.Number), "RFQ_REJECTED", "rfq", rfq.ID)
	return e.rfqByID(ctx, rfq.ID)
}

// transitionRFQ performs a conditional status update. The WHERE clause
// re-checks the expected state inside the statement, closing the window
// between two concurrent callers; losing the race is a conflict.
func (e *Engine) transitionRFQ(ctx context.Context, id uint, expected models.RFQStatus, updates map[string]any) error {
	res := e.db.WithContext(ctx).Model(&models.RFQ{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return domain.Conflict("invalid_state")
	}
	return nil
}

func (e *Engine) requireOwner(actor *identity.Actor, rfq *models.RFQ) error {
	if !actor.IsPM() || rfq.OwnerPMID != actor.ID {
		return domain.Forbidden("not_rfq_owner")
	}
	return nil
}

func (e *Engine) requireOwnerOrAdmin(actor *identity.Actor, rfq *models.RFQ) error {
	if actor.Role.IsAdmin() {
		return nil
	}
	return e.requireOwner(actor, rfq)
}
