package repository

import (
	"errors"
	"fmt"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/shipment"
	"github.com/dgraph-io/badger/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL error codes as constants
const (
	// Class 23: Integrity Constraint Violation
	PgErrForeignKeyViolation = "23503" // foreign_key_violation
	PgErrUniqueViolation     = "23505" // unique_violation
	PgErrCheckViolation      = "23514" // check_violation
	PgErrNotNullViolation    = "23502" // not_null_violation

	// Class 40: Transaction Rollback
	PgErrSerializationFailure = "40001" // serialization_failure
	PgErrDeadlockDetected     = "40P01" // deadlock_detected
)

// RepositoryError represent an error in the repository layer (db)
type RepositoryError struct {
	Code    string
	Message string
	Detail  string
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
}

// toWorkflowError maps a driver error onto the workflow taxonomy. Errors that
// are already typed pass through unchanged.
func toWorkflowError(err error, notFound string) error {
	if err == nil {
		return nil
	}
	var typed *shipment.Error
	if errors.As(err, &typed) {
		return typed
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, badger.ErrKeyNotFound) {
		return shipment.NotFound(notFound)
	}
	if errors.Is(err, badger.ErrConflict) {
		return shipment.Conflict("record was modified concurrently, re-fetch and retry")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		repoErr := &RepositoryError{Code: pgErr.Code, Message: pgErr.Message, Detail: pgErr.Detail}
		switch pgErr.Code {
		case PgErrUniqueViolation:
			e := shipment.Validation("duplicate value: " + pgErr.Detail)
			e.Detail, e.Err = pgErr.ConstraintName, repoErr
			return e
		case PgErrForeignKeyViolation, PgErrCheckViolation, PgErrNotNullViolation:
			e := shipment.Validation(pgErr.Message)
			e.Detail, e.Err = pgErr.Detail, repoErr
			return e
		case PgErrSerializationFailure, PgErrDeadlockDetected:
			e := shipment.Conflict("record was modified concurrently, re-fetch and retry")
			e.Err = repoErr
			return e
		}
		return shipment.Storage("database error occurred", repoErr)
	}
	return shipment.Storage("database error occurred", err)
}
