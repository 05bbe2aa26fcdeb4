package identity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/domain"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

func setupOracle(t *testing.T) (*Oracle, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewOracle("test-secret", conn), conn
}

func TestVerifyRoundTrip(t *testing.T) {
	oracle, conn := setupOracle(t)
	user := models.User{Email: "c@test", Role: models.RoleContractor, CompanyAffiliation: "Acme", PortalActive: true}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatal(err)
	}

	cred, err := oracle.IssueCredential(&user, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	actor, err := oracle.Verify(context.Background(), cred)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if actor.ID != user.ID || actor.Role != models.RoleContractor || actor.CompanyAffiliation != "Acme" {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestVerifyReadsUserRowNotClaims(t *testing.T) {
	oracle, conn := setupOracle(t)
	user := models.User{Email: "c@test", Role: models.RoleContractor, PortalActive: true}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatal(err)
	}
	cred, err := oracle.IssueCredential(&user, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	// A role change after issuance takes effect on the next request.
	conn.Model(&models.User{}).Where("id = ?", user.ID).Update("role", models.RoleContractorSeniorManager)
	actor, err := oracle.Verify(context.Background(), cred)
	if err != nil {
		t.Fatal(err)
	}
	if actor.Role != models.RoleContractorSeniorManager {
		t.Fatalf("role = %s", actor.Role)
	}

	// Deactivation revokes access immediately, expiry notwithstanding.
	conn.Model(&models.User{}).Where("id = ?", user.ID).Update("portal_active", false)
	if _, err := oracle.Verify(context.Background(), cred); !domain.IsKind(err, domain.KindUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestVerifyRejectsBadCredentials(t *testing.T) {
	oracle, conn := setupOracle(t)
	user := models.User{Email: "c@test", Role: models.RoleContractor, PortalActive: true}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatal(err)
	}

	if _, err := oracle.Verify(context.Background(), "garbage"); !domain.IsKind(err, domain.KindUnauthenticated) {
		t.Fatalf("garbage: %v", err)
	}

	expired, err := oracle.IssueCredential(&user, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := oracle.Verify(context.Background(), expired); !domain.IsKind(err, domain.KindUnauthenticated) {
		t.Fatalf("expired: %v", err)
	}

	other := NewOracle("different-secret", conn)
	cred, err := other.IssueCredential(&user, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := oracle.Verify(context.Background(), cred); !domain.IsKind(err, domain.KindUnauthenticated) {
		t.Fatalf("wrong secret: %v", err)
	}
}
