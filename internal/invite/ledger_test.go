package invite

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/domain"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

func setupLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.ExternalSubmissionToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewLedger(conn, "http://test"), conn
}

func TestIssueValidation(t *testing.T) {
	ledger, _ := setupLedger(t)
	rfqID := uint(1)
	orderID := uint(2)

	cases := []IssueInput{
		{Type: models.TokenTypeRFQQuote, Email: "", RFQID: &rfqID, TTLDays: 7},
		{Type: models.TokenTypeRFQQuote, Email: "not-an-email", RFQID: &rfqID, TTLDays: 7},
		{Type: models.TokenTypeRFQQuote, Email: "a@b.example", RFQID: &rfqID, TTLDays: 0},
		{Type: models.TokenTypeRFQQuote, Email: "a@b.example", OrderID: &orderID, TTLDays: 7},
		{Type: models.TokenTypeOrderAccept, Email: "a@b.example", RFQID: &rfqID, TTLDays: 7},
		{Type: "BOGUS", Email: "a@b.example", RFQID: &rfqID, TTLDays: 7},
	}
	for i, in := range cases {
		if _, _, err := ledger.Issue(context.Background(), in); !domain.IsKind(err, domain.KindValidation) {
			t.Errorf("case %d: expected validation, got %v", i, err)
		}
	}
}

func TestIssueAndRedeem(t *testing.T) {
	ledger, _ := setupLedger(t)
	rfqID := uint(42)

	token, link, err := ledger.Issue(context.Background(), IssueInput{
		Type: models.TokenTypeRFQQuote, Email: "sub@outside.example", RFQID: &rfqID, TTLDays: 7,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(token.Token) != 64 {
		t.Fatalf("token length = %d", len(token.Token))
	}
	if !strings.Contains(link, "/external/rfq/quote?token="+token.Token) {
		t.Fatalf("link = %s", link)
	}

	got, err := ledger.Redeem(context.Background(), token.Token, models.TokenTypeRFQQuote)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if got.RFQID == nil || *got.RFQID != rfqID {
		t.Fatalf("rfq id = %v", got.RFQID)
	}

	// Redeem does not consume; a second context lookup still works.
	if _, err := ledger.Redeem(context.Background(), token.Token, models.TokenTypeRFQQuote); err != nil {
		t.Fatalf("second redeem: %v", err)
	}
}

func TestRedeemFailures(t *testing.T) {
	ledger, conn := setupLedger(t)
	rfqID := uint(1)
	token, _, err := ledger.Issue(context.Background(), IssueInput{
		Type: models.TokenTypeRFQQuote, Email: "a@b.example", RFQID: &rfqID, TTLDays: 7,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ledger.Redeem(context.Background(), "unknown", models.TokenTypeRFQQuote); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("unknown: %v", err)
	}
	if _, err := ledger.Redeem(context.Background(), token.Token, models.TokenTypeOrderAccept); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("type mismatch: %v", err)
	}

	conn.Model(&models.ExternalSubmissionToken{}).Where("id = ?", token.ID).
		Update("expires_at", time.Now().Add(-time.Minute))
	if _, err := ledger.Redeem(context.Background(), token.Token, models.TokenTypeRFQQuote); !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expired: %v", err)
	}
}

func TestInspectIgnoresType(t *testing.T) {
	ledger, conn := setupLedger(t)
	orderID := uint(7)
	token, _, err := ledger.Issue(context.Background(), IssueInput{
		Type: models.TokenTypeOrderAccept, Email: "a@b.example", OrderID: &orderID, TTLDays: 7,
	})
	if err != nil {
		t.Fatal(err)
	}

	// A context read works for any token type and does not consume.
	got, err := ledger.Inspect(context.Background(), token.Token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if got.Type != models.TokenTypeOrderAccept || got.OrderID == nil || *got.OrderID != orderID {
		t.Fatalf("inspected = %+v", got)
	}
	var fresh models.ExternalSubmissionToken
	conn.First(&fresh, token.ID)
	if fresh.UsedAt != nil {
		t.Fatal("inspect consumed the token")
	}

	// Expiry and single-use still apply.
	if _, err := ledger.Inspect(context.Background(), "unknown"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("unknown: %v", err)
	}
	if err := ledger.Consume(conn, token.ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.Inspect(context.Background(), token.Token); !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("inspect after consume: %v", err)
	}
}

func TestConsumeOnce(t *testing.T) {
	ledger, conn := setupLedger(t)
	rfqID := uint(1)
	token, _, err := ledger.Issue(context.Background(), IssueInput{
		Type: models.TokenTypeRFQQuote, Email: "a@b.example", RFQID: &rfqID, TTLDays: 7,
	})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	if err := ledger.Consume(conn, token.ID, now); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if err := ledger.Consume(conn, token.ID, now); !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("second consume: %v", err)
	}
	if _, err := ledger.Redeem(context.Background(), token.Token, models.TokenTypeRFQQuote); !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("redeem after consume: %v", err)
	}
}
