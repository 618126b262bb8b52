package errorz

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConstraintViolated = errors.New("constraint violated")

	// ErrUniqueViolated, ErrForeignKeyViolated and ErrCheckViolated all match
	// ErrConstraintViolated via errors.Is.
	ErrUniqueViolated     = fmt.Errorf("unique %w", ErrConstraintViolated)
	ErrForeignKeyViolated = fmt.Errorf("foreign key %w", ErrConstraintViolated)
	ErrCheckViolated      = fmt.Errorf("check %w", ErrConstraintViolated)
)

// MapDBErr maps database errors to appropriate errorz errors.
// If err is nil, MapDBErr returns nil.
func MapDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	sErr := sqlite3.Error{}
	if !errors.As(err, &sErr) || sErr.Code != sqlite3.ErrConstraint {
		return err
	}

	switch sErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return ErrUniqueViolated
	case sqlite3.ErrConstraintForeignKey:
		return ErrForeignKeyViolated
	case sqlite3.ErrConstraintCheck:
		return ErrCheckViolated
	default:
		return ErrConstraintViolated
	}
}
