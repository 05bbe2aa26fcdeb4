package lifecycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/db"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/identity"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/invite"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/notify"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/settings"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/snapshot"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/visibility"
)

func setupEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	engine := NewEngine(
		conn,
		invite.NewLedger(conn, "http://test"),
		notify.NewService(conn, nil),
		snapshot.NewStore(conn, &snapshot.PDFRenderer{}),
		settings.NewCache(conn, time.Minute),
		visibility.New(conn),
	)
	return engine, conn
}

func seedUser(t *testing.T, conn *gorm.DB, email string, role models.Role, company string) models.User {
	t.Helper()
	u := models.User{Email: email, Name: email, Role: role, CompanyAffiliation: company, PortalActive: true}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func actorFor(u models.User) *identity.Actor {
	return &identity.Actor{ID: u.ID, Role: u.Role, Email: u.Email, CompanyAffiliation: u.CompanyAffiliation}
}

func mustCreateRFQ(t *testing.T, engine *Engine, pm *identity.Actor, in CreateRFQInput) *models.RFQ {
	t.Helper()
	rfq, err := engine.CreateRFQ(context.Background(), pm, in)
	if err != nil {
		t.Fatalf("create rfq: %v", err)
	}
	return rfq
}

// forceRFQStatus moves an RFQ into a state directly, bypassing the guards,
// so individual transitions can be tested in isolation.
func forceRFQStatus(t *testing.T, conn *gorm.DB, rfqID uint, status models.RFQStatus) {
	t.Helper()
	if err := conn.Model(&models.RFQ{}).Where("id = ?", rfqID).Update("status", status).Error; err != nil {
		t.Fatalf("force status: %v", err)
	}
}

var testItems = []ItemInput{
	{Description: "Labour", Quantity: 2, UnitPrice: 100},
}
