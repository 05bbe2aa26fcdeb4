package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/domain"
)

// nextNumber allocates the next document number for a prefix by counting
// existing rows. Uniqueness is enforced by the insert's unique index, not
// here: callers go through createNumbered so a lost race recomputes once.
func nextNumber(tx *gorm.DB, model any, column, prefix string) (string, error) {
	var count int64
	if err := tx.Model(model).Where(column+" LIKE ?", prefix+"-%").Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", prefix, count+1), nil
}

// createNumbered assigns a number, inserts, and on a uniqueness violation
// recomputes the number and retries exactly once. Numbered inserts are not
// idempotent, so a second collision surfaces as a conflict instead of
// risking a duplicate-number race.
func createNumbered(tx *gorm.DB, model any, column, prefix string, assign func(number string)) error {
	for attempt := 0; attempt < 2; attempt++ {
		number, err := nextNumber(tx, model, column, prefix)
		if err != nil {
			return err
		}
		assign(number)
		err = tx.Create(model).Error
		if err == nil {
			return nil
		}
		if !isDuplicate(err) {
			return err
		}
	}
	return domain.Conflict("duplicate_document_number")
}

// isDuplicate detects a unique-constraint violation across the drivers in
// use (postgres in production, sqlite in tests).
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
