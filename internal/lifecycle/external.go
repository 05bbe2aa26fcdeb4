package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/domain"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/invite"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/notify"
	"github.com/chalatsithapelo-ops/square15management-sub012/validation"
)

// ExternalContext is what a token holder may read before acting: the
// grant itself plus the bound record. Exactly one of RFQ/Order is set,
// matching the token type.
type ExternalContext struct {
	Type       models.TokenType `json:"type"`
	BoundEmail string           `json:"email"`
	ExpiresAt  time.Time        `json:"expires_at"`
	RFQ        *models.RFQ      `json:"rfq,omitempty"`
	Order      *models.Order    `json:"order,omitempty"`
}

// ExternalContext resolves a token of any type into the record it is bound
// to. Reading context never marks the token used.
func (e *Engine) ExternalContext(ctx context.Context, rawToken string) (*ExternalContext, error) {
	token, err := e.invites.Inspect(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	out := &ExternalContext{Type: token.Type, BoundEmail: token.BoundEmail, ExpiresAt: token.ExpiresAt}
	switch {
	case token.RFQID != nil:
		rfq, err := e.rfqByID(ctx, *token.RFQID)
		if err != nil {
			return nil, err
		}
		out.RFQ = rfq
	case token.OrderID != nil:
		var order models.Order
		if err := e.db.WithContext(ctx).First(&order, *token.OrderID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, domain.NotFound("order_not_found")
			}
			return nil, err
		}
		out.Order = &order
	}
	return out, nil
}

// SubmitExternalQuotationInput is an unauthenticated quotation submission
// gated by an RFQ_QUOTE token.
type SubmitExternalQuotationInput struct {
	Token string      `json:"token"`
	Items []ItemInput `json:"items"`
}

// SubmitExternalRFQQuotation accepts a quotation from a non-portal
// contractor. The token is consumed in the same transaction that inserts
// the quotation; either both happen or neither does.
func (e *Engine) SubmitExternalRFQQuotation(ctx context.Context, in SubmitExternalQuotationInput) (*models.Quotation, error) {
	token, err := e.invites.Redeem(ctx, in.Token, models.TokenTypeRFQQuote)
	if err != nil {
		return nil, err
	}
	v := make(validation.Violations)
	validateItems(in.Items, v)
	if !v.Empty() {
		return nil, domain.Validation("validation_failed", v)
	}
	rfq, err := e.rfqByID(ctx, *token.RFQID)
	if err != nil {
		return nil, err
	}
	switch rfq.Status {
	case models.RFQStatusReceived, models.RFQStatusUnderReview, models.RFQStatusQuoted:
	default:
		return nil, domain.Conflict("rfq_not_open_for_quotes")
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
		RFQNumber:      rfq.Number,
		SubmitterEmail: token.BoundEmail,
		Items:          rows,
		Subtotal:       subtotal,
		Tax:            tax,
		Total:          total,
		Status:         models.QuotationStatusSentToCustomer,
	}
	now := time.Now()
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createNumbered(tx, &quote, "quote_number", cs.QuotePrefix, func(n string) { quote.QuoteNumber = n }); err != nil {
			return err
		}
		return e.invites.Consume(tx, token.ID, now)
	})
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	e.notifier.Notify(ctx, correlationID, notify.Message{
		RecipientID:   rfq.OwnerPMID,
		Role:          models.RolePropertyManager,
		Text:          fmt.Sprintf("Quotation %s received for RFQ %s from %s", quote.QuoteNumber, rfq.Number, token.BoundEmail),
		Type:          "QUOTE_SUBMITTED",
		RelatedEntity: "quotation",
		RelatedID:     quote.ID,
	})
	e.broadcastAdmins(ctx, correlationID, fmt.Sprintf("External quotation %s submitted", quote.QuoteNumber), "QUOTE_SUBMITTED", "quotation", quote.ID)
	return &quote, nil
}

// AcceptExternalOrder records acceptance of an order by the email the
// ORDER_ACCEPT token was bound to.
func (e *Engine) AcceptExternalOrder(ctx context.Context, rawToken string) (*models.Order, error) {
	token, err := e.invites.Redeem(ctx, rawToken, models.TokenTypeOrderAccept)
	if err != nil {
		return nil, err
	}
	var order models.Order
	if err := e.db.WithContext(ctx).First(&order, *token.OrderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.NotFound("order_not_found")
		}
		return nil, err
	}

	now := time.Now()
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			Updates(map[string]any{
				"status":           models.OrderStatusAccepted,
				"accepted_at":      now,
				"contractor_email": token.BoundEmail,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return domain.Conflict("order_not_pending")
		}
		return e.invites.Consume(tx, token.ID, now)
	})
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	e.notifier.Notify(ctx, correlationID, notify.Message{
		RecipientID:   order.OwnerPMID,
		Role:          models.RolePropertyManager,
		Text:          fmt.Sprintf("Order %s accepted by %s", order.OrderNumber, token.BoundEmail),
		Type:          "ORDER_ACCEPTED",
		RelatedEntity: "order",
		RelatedID:     order.ID,
	})

	// Acceptance opens the billing path for the same counterparty.
	_, link, err := e.invites.Issue(ctx, invite.IssueInput{
		Type:    models.TokenTypeOrderInvoice,
		Email:   token.BoundEmail,
		OrderID: &order.ID,
		TTLDays: defaultInviteTTLDays,
	})
	if err != nil {
		e.notifier.Email(token.BoundEmail, fmt.Sprintf("Order %s accepted", order.OrderNumber),
			fmt.Sprintf("<p>Thank you for accepting order %s.</p>", order.OrderNumber))
	} else {
		e.notifier.Email(token.BoundEmail, fmt.Sprintf("Order %s accepted", order.OrderNumber),
			fmt.Sprintf("<p>Thank you for accepting order %s.</p><p><a href=%q>Submit your invoice</a></p>", order.OrderNumber, link))
	}

	if err := e.db.WithContext(ctx).First(&order, order.ID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// AttachmentInput is an uploaded supporting document reference.
type AttachmentInput struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	URL      string `json:"url"`
}

// SubmitExternalInvoiceInput is an unauthenticated invoice submission gated
// by an ORDER_INVOICE token.
type SubmitExternalInvoiceInput struct {
	Token       string            `json:"token"`
	Items       []ItemInput       `json:"items"`
	Attachments []AttachmentInput `json:"attachments"`
}

// SubmitExternalOrderInvoice bills an accepted order from outside the
// portal. At least one supporting attachment is mandatory. Token
// consumption and the invoice insert share one transaction.
func (e *Engine) SubmitExternalOrderInvoice(ctx context.Context, in SubmitExternalInvoiceInput) (*models.Invoice, error) {
	token, err := e.invites.Redeem(ctx, in.Token, models.TokenTypeOrderInvoice)
	if err != nil {
		return nil, err
	}
	v := make(validation.Violations)
	validateItems(in.Items, v)
	if len(in.Attachments) == 0 {
		v["attachments"] = "required"
	}
	for i, a := range in.Attachments {
		validation.Required(fmt.Sprintf("attachments[%d].file_name", i), a.FileName, v)
		validation.Required(fmt.Sprintf("attachments[%d].url", i), a.URL, v)
	}
	if !v.Empty() {
		return nil, domain.Validation("validation_failed", v)
	}

	var order models.Order
	if err := e.db.WithContext(ctx).First(&order, *token.OrderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.NotFound("order_not_found")
		}
		return nil, err
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
	attachments := make([]models.InvoiceAttachment, 0, len(in.Attachments))
	for _, a := range in.Attachments {
		attachments = append(attachments, models.InvoiceAttachment{
			FileName: a.FileName,
			FileType: a.FileType,
			URL:      a.URL,
		})
	}

	now := time.Now()
	inv := models.Invoice{
		OrderID:      order.ID,
		OwnerPMID:    order.OwnerPMID,
		ContactEmail: token.BoundEmail,
		Items:        rows,
		Attachments:  attachments,
		Subtotal:     subtotal,
		Tax:          tax,
		Total:        total,
		Status:       models.InvoiceStatusSentToPM,
		SentAt:       &now,
	}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createNumbered(tx, &inv, "invoice_number", cs.InvoicePrefix, func(n string) { inv.InvoiceNumber = n }); err != nil {
			return err
		}
		return e.invites.Consume(tx, token.ID, now)
	})
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	e.notifier.Notify(ctx, correlationID, notify.Message{
		RecipientID:   order.OwnerPMID,
		Role:          models.RolePropertyManager,
		Text:          fmt.Sprintf("Invoice %s submitted for order %s by %s", inv.InvoiceNumber, order.OrderNumber, token.BoundEmail),
		Type:          "INVOICE_SUBMITTED",
		RelatedEntity: "invoice",
		RelatedID:     inv.ID,
	})
	e.broadcastAdmins(ctx, correlationID, fmt.Sprintf("External invoice %s submitted", inv.InvoiceNumber), "INVOICE_SUBMITTED", "invoice", inv.ID)
	return &inv, nil
}
