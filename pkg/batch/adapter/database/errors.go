package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
)

// constraintViolationMarkers are driver message fragments reported on constraint violations
// by SQLite, MySQL and PostgreSQL.
var constraintViolationMarkers = []string{
	"constraint failed",          // SQLite: UNIQUE/NOT NULL/FOREIGN KEY constraint failed
	"Error 1062",                 // MySQL: duplicate entry
	"Error 1452",                 // MySQL: foreign key
	"Duplicate entry",            // MySQL
	"duplicate key value",        // PostgreSQL
	"violates",                   // PostgreSQL: violates ... constraint
	"duplicated key not allowed", // gorm.ErrDuplicatedKey
}

// ClassifyError maps a storage error onto the storage taxonomy. A constraint violation becomes
// exception.ErrWriteConflict and every other failure becomes exception.ErrStorageUnavailable.
// The original error stays in the chain. Context cancellation and errors that are already
// classified are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, exception.ErrWriteConflict) || errors.Is(err, exception.ErrStorageUnavailable) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if IsConstraintViolation(err) {
		return fmt.Errorf("%w: %w", exception.ErrWriteConflict, err)
	}
	return fmt.Errorf("%w: %w", exception.ErrStorageUnavailable, err)
}

// IsConstraintViolation reports whether err was raised by a violated table constraint.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range constraintViolationMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
