// Package db opens the database and applies schema migrations and the
// role-profile seed.
package db

import (
	"fmt"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

// ConnectAndMigrate connects to Postgres and applies the schema. With
// sqlMigrations set it runs the versioned SQL migrations in ./migrations;
// otherwise GORM AutoMigrate keeps dev databases current.
func ConnectAndMigrate(dsn string, sqlMigrations bool) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	// Retry gives Postgres time to come up under docker compose.
	for i := 0; i < 5; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			break
		}
		fmt.Printf("db connect attempt %d/5 failed, retrying...\n", i+1)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if sqlMigrations {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
		return db, nil
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// runSQLMigrations applies the migrations in ./migrations via golang-migrate.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// Migrate applies the schema to an already-open database.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Tenant{},
		&models.CompanySettings{},
		&models.RoleProfile{},
		&models.RolePermission{},
		&models.RFQ{},
		&models.RFQTarget{},
		&models.Quotation{},
		&models.QuotationItem{},
		&models.Order{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.InvoiceAttachment{},
		&models.ExternalSubmissionToken{},
		&models.PdfCopy{},
		&models.Notification{},
	); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	return nil
}
