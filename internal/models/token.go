package models

import "time"

// TokenType scopes an external submission token to exactly one mutating
// operation. Enforced at redemption time, not left to caller discipline.
type TokenType string

const (
	TokenTypeRFQQuote     TokenType = "RFQ_QUOTE"
	TokenTypeOrderAccept  TokenType = "ORDER_ACCEPT"
	TokenTypeOrderInvoice TokenType = "ORDER_INVOICE"
)

// ExternalSubmissionToken is a single-use, time-boxed capability grant for
// a non-portal counterparty. It stands in for authentication on the public
// channel; it is not a user.
type ExternalSubmissionToken struct {
	ID         uint      `gorm:"primaryKey"`
	PublicID   string    `gorm:"size:36;uniqueIndex;not null"`
	Token      string    `gorm:"size:128;uniqueIndex;not null"`
	Type       TokenType `gorm:"size:20;not null"`
	BoundEmail string    `gorm:"size:255;not null"`
	RFQID      *uint     `gorm:"index"`
	OrderID    *uint     `gorm:"index"`
	ExpiresAt  time.Time `gorm:"not null"`
	UsedAt     *time.Time
	CreatedAt  time.Time
}

// Expired reports whether the token's absolute expiry has passed.
func (t *ExternalSubmissionToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Used reports whether the token has already been consumed.
func (t *ExternalSubmissionToken) Used() bool {
	return t.UsedAt != nil
}
