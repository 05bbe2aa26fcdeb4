// Package notify delivers in-app notifications and emails on lifecycle
// transitions. Delivery is best-effort: failures are logged and swallowed,
// never rolled back into the transition that triggered them.
package notify

import (
	"context"
	"log"

	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

// EmailSender is the external email sink. Failure is non-fatal to callers.
type EmailSender interface {
	SendEmail(to, subject, html string) error
}

// LogEmailSender is the default sink: it logs instead of delivering.
type LogEmailSender struct{}

func (LogEmailSender) SendEmail(to, subject, _ string) error {
	log.Printf("email to=%s subject=%q (delivery disabled)", to, subject)
	return nil
}

// Message is one in-app notification to fan out.
type Message struct {
	RecipientID   uint
	Role          models.Role
	Text          string
	Type          string
	RelatedEntity string
	RelatedID     uint
}

// Service writes notification rows and forwards emails to the sink.
type Service struct {
	db    *gorm.DB
	email EmailSender
}

func NewService(db *gorm.DB, email EmailSender) *Service {
	if email == nil {
		email = LogEmailSender{}
	}
	return &Service{db: db, email: email}
}

// Notify persists one in-app notification. Errors are logged and dropped.
func (s *Service) Notify(ctx context.Context, correlationID string, m Message) {
	n := models.Notification{
		CorrelationID: correlationID,
		RecipientID:   m.RecipientID,
		Role:          m.Role,
		Message:       m.Text,
		Type:          m.Type,
		RelatedEntity: m.RelatedEntity,
		RelatedID:     m.RelatedID,
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		log.Printf("notify: dropped notification for user %d: %v", m.RecipientID, err)
	}
}

// FanOut persists a batch of notifications under one correlation id.
func (s *Service) FanOut(ctx context.Context, correlationID string, msgs []Message) {
	for _, m := range msgs {
		s.Notify(ctx, correlationID, m)
	}
}

// Email forwards to the sink. Errors are logged and dropped.
func (s *Service) Email(to, subject, html string) {
	if to == "" {
		return
	}
	if err := s.email.SendEmail(to, subject, html); err != nil {
		log.Printf("notify: dropped email to %s: %v", to, err)
	}
}
