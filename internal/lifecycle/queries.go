package lifecycle

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/domain"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/identity"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

// ListRFQs returns the RFQs visible to the actor, newest first.
func (e *Engine) ListRFQs(ctx context.Context, actor *identity.Actor) ([]models.RFQ, error) {
	scope, err := e.vis.ForRFQs(ctx, actor)
	if err != nil {
		return nil, err
	}
	var rfqs []models.RFQ
	err = e.db.WithContext(ctx).Scopes(scope).
		Preload("Targets").Preload("GeneratedOrder").
		Order("id DESC").Find(&rfqs).Error
	if err != nil {
		return nil, err
	}
	for i := range rfqs {
		e.RepairGeneratedOrder(ctx, &rfqs[i])
	}
	return rfqs, nil
}

// GetRFQ returns one visible RFQ by business number.
func (e *Engine) GetRFQ(ctx context.Context, actor *identity.Actor, number string) (*models.RFQ, error) {
	scope, err := e.vis.ForRFQs(ctx, actor)
	if err != nil {
		return nil, err
	}
	var rfq models.RFQ
	err = e.db.WithContext(ctx).Scopes(scope).
		Preload("Targets").Preload("GeneratedOrder").
		Where("number = ?", number).First(&rfq).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.NotFound("rfq_not_found")
	}
	if err != nil {
		return nil, err
	}
	e.RepairGeneratedOrder(ctx, &rfq)
	return &rfq, nil
}

// ListQuotations returns the quotations visible to the actor.
func (e *Engine) ListQuotations(ctx context.Context, actor *identity.Actor) ([]models.Quotation, error) {
	scope, err := e.vis.ForQuotations(ctx, actor)
	if err != nil {
		return nil, err
	}
	var quotes []models.Quotation
	err = e.db.WithContext(ctx).Scopes(scope).
		Preload("Items").Order("id DESC").Find(&quotes).Error
	return quotes, err
}

// GetQuotation returns one visible quotation by quote number.
func (e *Engine) GetQuotation(ctx context.Context, actor *identity.Actor, number string) (*models.Quotation, error) {
	scope, err := e.vis.ForQuotations(ctx, actor)
	if err != nil {
		return nil, err
	}
	var quote models.Quotation
	err = e.db.WithContext(ctx).Scopes(scope).
		Preload("Items").Where("quote_number = ?", number).First(&quote).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.NotFound("quotation_not_found")
	}
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// ListOrders returns the orders visible to the actor.
func (e *Engine) ListOrders(ctx context.Context, actor *identity.Actor) ([]models.Order, error) {
	scope, err := e.vis.ForOrders(ctx, actor)
	if err != nil {
		return nil, err
	}
	var orders []models.Order
	err = e.db.WithContext(ctx).Scopes(scope).Order("id DESC").Find(&orders).Error
	return orders, err
}

// GetOrder returns one visible order by order number.
func (e *Engine) GetOrder(ctx context.Context, actor *identity.Actor, number string) (*models.Order, error) {
	scope, err := e.vis.ForOrders(ctx, actor)
	if err != nil {
		return nil, err
	}
	var order models.Order
	err = e.db.WithContext(ctx).Scopes(scope).
		Where("order_number = ?", number).First(&order).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.NotFound("order_not_found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListInvoices returns the invoices visible to the actor.
func (e *Engine) ListInvoices(ctx context.Context, actor *identity.Actor) ([]models.Invoice, error) {
	scope, err := e.vis.ForInvoices(ctx, actor)
	if err != nil {
		return nil, err
	}
	var invoices []models.Invoice
	err = e.db.WithContext(ctx).Scopes(scope).
		Preload("Items").Preload("Attachments").Order("id DESC").Find(&invoices).Error
	return invoices, err
}

// GetInvoice returns one visible invoice by invoice number.
func (e *Engine) GetInvoice(ctx context.Context, actor *identity.Actor, number string) (*models.Invoice, error) {
	scope, err := e.vis.ForInvoices(ctx, actor)
	if err != nil {
		return nil, err
	}
	var inv models.Invoice
	err = e.db.WithContext(ctx).Scopes(scope).
		Preload("Items").Preload("Attachments").
		Where("invoice_number = ?", number).First(&inv).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.NotFound("invoice_not_found")
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListNotifications returns the actor's notifications, newest first.
func (e *Engine) ListNotifications(ctx context.Context, actor *identity.Actor) ([]models.Notification, error) {
	scope, err := e.vis.ForNotifications(ctx, actor)
	if err != nil {
		return nil, err
	}
	var notes []models.Notification
	err = e.db.WithContext(ctx).Scopes(scope).Order("id DESC").Limit(200).Find(&notes).Error
	return notes, err
}

// MarkNotificationRead stamps a notification owned by the actor.
func (e *Engine) MarkNotificationRead(ctx context.Context, actor *identity.Actor, id uint) error {
	res := e.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND read_at IS NULL", id, actor.ID).
		Update("read_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return domain.NotFound("notification_not_found")
	}
	return nil
}
