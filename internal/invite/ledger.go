// Package invite issues and redeems the capability tokens that let
// non-portal counterparties participate in the lifecycle via emailed links.
// One token grants exactly one capability type against exactly one target
// entity, transitions unused -> used exactly once, and carries an absolute
// expiry checked at redemption time.
package invite

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/domain"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
	"github.com/chalatsithapelo-ops/square15management-sub012/validation"
)

// Ledger manages external submission tokens.
type Ledger struct {
	db      *gorm.DB
	baseURL string
}

func NewLedger(db *gorm.DB, baseURL string) *Ledger {
	return &Ledger{db: db, baseURL: baseURL}
}

// IssueInput describes a token grant. Exactly one of RFQID/OrderID must be
// set, and it must match the token type's target entity.
type IssueInput struct {
	Type    models.TokenType
	Email   string
	RFQID   *uint
	OrderID *uint
	TTLDays int
}

// Issue persists a new unused token and returns it with the public link
// embedding the opaque value.
func (l *Ledger) Issue(ctx context.Context, in IssueInput) (*models.ExternalSubmissionToken, string, error) {
	v := make(validation.Violations)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	if in.TTLDays <= 0 {
		v["ttl_days"] = "must_be_positive"
	}
	switch in.Type {
	case models.TokenTypeRFQQuote:
		if in.RFQID == nil || in.OrderID != nil {
			v["target"] = "rfq_required"
		}
	case models.TokenTypeOrderAccept, models.TokenTypeOrderInvoice:
		if in.OrderID == nil || in.RFQID != nil {
			v["target"] = "order_required"
		}
	default:
		v["type"] = "unknown_token_type"
	}
	if !v.Empty() {
		return nil, "", domain.Validation("validation_failed", v)
	}

	raw, err := newOpaqueToken()
	if err != nil {
		return nil, "", err
	}
	token := models.ExternalSubmissionToken{
		PublicID:   uuid.NewString(),
		Token:      raw,
		Type:       in.Type,
		BoundEmail: in.Email,
		RFQID:      in.RFQID,
		OrderID:    in.OrderID,
		ExpiresAt:  time.Now().AddDate(0, 0, in.TTLDays),
	}
	if err := l.db.WithContext(ctx).Create(&token).Error; err != nil {
		return nil, "", err
	}
	return &token, l.link(&token), nil
}

// Redeem looks up a token and validates type, expiry and single-use state.
// Redeeming for context does not mark the token used; only a mutating
// action consumes it, via Consume inside that action's transaction.
func (l *Ledger) Redeem(ctx context.Context, raw string, want models.TokenType) (*models.ExternalSubmissionToken, error) {
	var token models.ExternalSubmissionToken
	err := l.db.WithContext(ctx).Where("token = ?", raw).First(&token).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.NotFound("token_not_found")
		}
		return nil, err
	}
	if token.Type != want {
		return nil, domain.Forbidden("token_type_mismatch")
	}
	if token.Expired(time.Now()) {
		return nil, domain.Conflict("token_expired")
	}
	if token.Used() {
		return nil, domain.Conflict("token_already_used")
	}
	return &token, nil
}

// Inspect validates a token of any type for a context read. Same expiry
// and single-use checks as Redeem, without binding to an operation.
func (l *Ledger) Inspect(ctx context.Context, raw string) (*models.ExternalSubmissionToken, error) {
	var token models.ExternalSubmissionToken
	err := l.db.WithContext(ctx).Where("token = ?", raw).First(&token).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.NotFound("token_not_found")
		}
		return nil, err
	}
	if token.Expired(time.Now()) {
		return nil, domain.Conflict("token_expired")
	}
	if token.Used() {
		return nil, domain.Conflict("token_already_used")
	}
	return &token, nil
}

// Consume marks the token used. The conditional update closes the race
// between two concurrent redemptions: only one caller sees a row change.
// Must run on the same transaction as the action's primary write.
func (l *Ledger) Consume(tx *gorm.DB, tokenID uint, now time.Time) error {
	res := tx.Model(&models.ExternalSubmissionToken{}).
		Where("id = ? AND used_at IS NULL AND expires_at > ?", tokenID, now).
		Update("used_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return domain.Conflict("token_already_used")
	}
	return nil
}

func (l *Ledger) link(t *models.ExternalSubmissionToken) string {
	var path string
	switch t.Type {
	case models.TokenTypeRFQQuote:
		path = "/external/rfq/quote"
	case models.TokenTypeOrderAccept:
		path = "/external/order/accept"
	case models.TokenTypeOrderInvoice:
		path = "/external/order/invoice"
	}
	return fmt.Sprintf("%s%s?token=%s", l.baseURL, path, t.Token)
}

// newOpaqueToken returns 32 bytes of cryptographic randomness, hex-encoded.
func newOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
