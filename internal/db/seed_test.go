package db

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestSeedRoleProfilesIdempotent(t *testing.T) {
	conn := openTestDB(t)
	if err := SeedRoleProfiles(conn); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := SeedRoleProfiles(conn); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var profiles int64
	conn.Model(&models.RoleProfile{}).Count(&profiles)
	if int(profiles) != len(rolePermissions) {
		t.Fatalf("profiles = %d, want %d", profiles, len(rolePermissions))
	}

	// Each role holds exactly its configured grant count, not duplicates.
	for role, codes := range rolePermissions {
		var profile models.RoleProfile
		if err := conn.Preload("Permissions").Where("role = ?", role).First(&profile).Error; err != nil {
			t.Fatalf("profile %s: %v", role, err)
		}
		if len(profile.Permissions) != len(codes) {
			t.Fatalf("%s has %d permissions, want %d", role, len(profile.Permissions), len(codes))
		}
	}
}

func TestSeedReplacesChangedGrants(t *testing.T) {
	conn := openTestDB(t)
	if err := SeedRoleProfiles(conn); err != nil {
		t.Fatal(err)
	}

	// A manually added grant disappears on the next seed: the binary's
	// grant table is authoritative.
	var profile models.RoleProfile
	if err := conn.Where("role = ?", models.RoleContractor).First(&profile).Error; err != nil {
		t.Fatal(err)
	}
	rogue := models.RolePermission{RoleProfileID: profile.ID, Resource: "company", Action: "update"}
	if err := conn.Create(&rogue).Error; err != nil {
		t.Fatal(err)
	}

	if err := SeedRoleProfiles(conn); err != nil {
		t.Fatal(err)
	}
	var count int64
	conn.Model(&models.RolePermission{}).
		Where("role_profile_id = ? AND resource = ? AND action = ?", profile.ID, "company", "update").
		Count(&count)
	if count != 0 {
		t.Fatal("rogue grant survived reseed")
	}
}

func TestSeedCompanySettingsOnce(t *testing.T) {
	conn := openTestDB(t)
	defaults := &models.CompanySettings{Name: "Square15", VATRate: 0.15, RFQPrefix: "PMRFQ", QuotePrefix: "PMQ", OrderPrefix: "PMO", InvoicePrefix: "PMINV"}
	if err := SeedCompanySettings(conn, defaults); err != nil {
		t.Fatal(err)
	}

	// An operator edit survives restarts.
	conn.Model(&models.CompanySettings{}).Where("id = ?", defaults.ID).Update("vat_rate", 0.2)
	if err := SeedCompanySettings(conn, &models.CompanySettings{Name: "Other"}); err != nil {
		t.Fatal(err)
	}

	var rows []models.CompanySettings
	conn.Find(&rows)
	if len(rows) != 1 || rows[0].VATRate != 0.2 {
		t.Fatalf("rows = %+v", rows)
	}
}
