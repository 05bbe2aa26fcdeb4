package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/domain"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/identity"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/notify"
	"github.com/chalatsithapelo-ops/square15management-sub012/validation"
)

// CreateOrderInput creates an order directly, without an RFQ.
type CreateOrderInput struct {
	ContractorID    *uint   `json:"contractor_id,omitempty"`
	ContractorEmail string  `json:"contractor_email,omitempty"`
	ScopeOfWork     string  `json:"scope_of_work"`
	TotalAmount     float64 `json:"total_amount"`
}

// CreateOrder places a direct order owned by the calling PM.
func (e *Engine) CreateOrder(ctx context.Context, actor *identity.Actor, in CreateOrderInput) (*models.Order, error) {
	if !actor.IsPM() {
		return nil, domain.Forbidden("property_manager_only")
	}
	v := make(validation.Violations)
	validation.Required("scope_of_work", in.ScopeOfWork, v)
	validation.PositiveFloat("total_amount", in.TotalAmount, v)
	validation.Email("contractor_email", in.ContractorEmail, v)
	if in.ContractorID == nil && in.ContractorEmail == "" {
		v["contractor"] = "required"
	}
	if !v.Empty() {
		return nil, domain.Validation("validation_failed", v)
	}
	if in.ContractorID != nil {
		var user models.User
		if err := e.db.WithContext(ctx).First(&user, *in.ContractorID).Error; err != nil || !user.Role.IsContractor() {
			return nil, domain.Validation("validation_failed", validation.Violations{"contractor_id": "unknown_contractor"})
		}
	}
	cs, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		OwnerPMID:       actor.ID,
		ContractorID:    in.ContractorID,
		ContractorEmail: in.ContractorEmail,
		ScopeOfWork:     in.ScopeOfWork,
		TotalAmount:     in.TotalAmount,
		Status:          models.OrderStatusPending,
	}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createNumbered(tx, &order, "order_number", cs.OrderPrefix, func(n string) { order.OrderNumber = n })
	})
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	if order.ContractorID != nil {
		e.notifier.Notify(ctx, correlationID, notify.Message{
			RecipientID:   *order.ContractorID,
			Role:          models.RoleContractor,
			Text:          fmt.Sprintf("New order %s", order.OrderNumber),
			Type:          "ORDER_CREATED",
			RelatedEntity: "order",
			RelatedID:     order.ID,
		})
	}
	return &order, nil
}

// AcceptOrder records a portal contractor's acceptance of an assigned order.
func (e *Engine) AcceptOrder(ctx context.Context, actor *identity.Actor, orderNumber string) (*models.Order, error) {
	if !actor.Role.IsContractor() {
		return nil, domain.Forbidden("contractor_only")
	}
	order, err := e.orderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	ids, err := e.vis.CompanyUserIDs(ctx, actor)
	if err != nil {
		return nil, err
	}
	if order.ContractorID == nil || !containsID(ids, *order.ContractorID) {
		return nil, domain.Forbidden("not_assigned")
	}
	now := time.Now()
	res := e.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
		Updates(map[string]any{"status": models.OrderStatusAccepted, "accepted_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, domain.Conflict("order_not_pending")
	}
	correlationID := uuid.NewString()
	e.notifier.Notify(ctx, correlationID, notify.Message{
		RecipientID:   order.OwnerPMID,
		Role:          models.RolePropertyManager,
		Text:          fmt.Sprintf("Order %s accepted", order.OrderNumber),
		Type:          "ORDER_ACCEPTED",
		RelatedEntity: "order",
		RelatedID:     order.ID,
	})
	return e.orderByNumber(ctx, orderNumber)
}

// CreateInvoiceInput is a portal contractor invoice for an accepted order.
type CreateInvoiceInput struct {
	OrderNumber string      `json:"order_number"`
	Items       []ItemInput `json:"items"`
}

// CreateInvoice bills an accepted order on behalf of the assigned company.
func (e *Engine) CreateInvoice(ctx context.Context, actor *identity.Actor, in CreateInvoiceInput) (*models.Invoice, error) {
	if !actor.Role.IsContractor() {
		return nil, domain.Forbidden("contractor_only")
	}
	v := make(validation.Violations)
	validation.Required("order_number", in.OrderNumber, v)
	validateItems(in.Items, v)
	if !v.Empty() {
		return nil, domain.Validation("validation_failed", v)
	}
	order, err := e.orderByNumber(ctx, in.OrderNumber)
	if err != nil {
		return nil, err
	}
	ids, err := e.vis.CompanyUserIDs(ctx, actor)
	if err != nil {
		return nil, err
	}
	if order.ContractorID == nil || !containsID(ids, *order.ContractorID) {
		return nil, domain.Forbidden("not_assigned")
	}
	if order.Status != models.OrderStatusAccepted {
		return nil, domain.Conflict("order_not_accepted")
	}

	rows, subtotal, tax, total, err := e.invoiceTotals(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	cs, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	creator := actor.ID
	now := time.Now()
	inv := models.Invoice{
		OrderID:     order.ID,
		OwnerPMID:   order.OwnerPMID,
		CreatedByID: &creator,
		Items:       rows,
		Subtotal:    subtotal,
		Tax:         tax,
		Total:       total,
		Status:      models.InvoiceStatusSentToPM,
		SentAt:      &now,
	}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createNumbered(tx, &inv, "invoice_number", cs.InvoicePrefix, func(n string) { inv.InvoiceNumber = n })
	})
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	e.notifier.Notify(ctx, correlationID, notify.Message{
		RecipientID:   order.OwnerPMID,
		Role:          models.RolePropertyManager,
		Text:          fmt.Sprintf("Invoice %s submitted for order %s", inv.InvoiceNumber, order.OrderNumber),
		Type:          "INVOICE_SUBMITTED",
		RelatedEntity: "invoice",
		RelatedID:     inv.ID,
	})
	return &inv, nil
}

// MarkInvoicePaid settles a sent invoice. Owning PM only.
func (e *Engine) MarkInvoicePaid(ctx context.Context, actor *identity.Actor, invoiceNumber string) (*models.Invoice, error) {
	var inv models.Invoice
	err := e.db.WithContext(ctx).Where("invoice_number = ?", invoiceNumber).First(&inv).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.NotFound("invoice_not_found")
	}
	if err != nil {
		return nil, err
	}
	if !actor.IsPM() || inv.OwnerPMID != actor.ID {
		return nil, domain.Forbidden("not_invoice_owner")
	}
	now := time.Now()
	res := e.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND status = ?", inv.ID, models.InvoiceStatusSentToPM).
		Updates(map[string]any{"status": models.InvoiceStatusPaid, "paid_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, domain.Conflict("invoice_not_payable")
	}
	correlationID := uuid.NewString()
	if inv.CreatedByID != nil {
		e.notifier.Notify(ctx, correlationID, notify.Message{
			RecipientID:   *inv.CreatedByID,
			Role:          models.RoleContractor,
			Text:          fmt.Sprintf("Invoice %s paid", inv.InvoiceNumber),
			Type:          "INVOICE_PAID",
			RelatedEntity: "invoice",
			RelatedID:     inv.ID,
		})
	} else if inv.ContactEmail != "" {
		e.notifier.Email(inv.ContactEmail, fmt.Sprintf("Invoice %s paid", inv.InvoiceNumber),
			fmt.Sprintf("<p>Invoice %s has been settled.</p>", inv.InvoiceNumber))
	}
	if err := e.db.WithContext(ctx).Preload("Items").Preload("Attachments").First(&inv, inv.ID).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (e *Engine) orderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := e.db.WithContext(ctx).Where("order_number = ?", number).First(&order).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.NotFound("order_not_found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
