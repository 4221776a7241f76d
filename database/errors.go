package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrTableNotFound       = errors.New("table not provisioned")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrDuplicate           = errors.New("duplicate key")
)

// Classify maps driver and gorm errors onto the package sentinels, wrapping the
// original so the SQLSTATE detail survives in logs.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Join(ErrDuplicate, ErrConstraintViolation, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42P01":
			return errors.Join(ErrTableNotFound, err)
		case pgErr.Code == "23505":
			return errors.Join(ErrDuplicate, ErrConstraintViolation, err)
		case strings.HasPrefix(pgErr.Code, "23"):
			return errors.Join(ErrConstraintViolation, err)
		}
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) || errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return errors.Join(ErrConstraintViolation, err)
	}
	// PostgREST-era wording kept by some proxies in front of the database.
	if strings.Contains(err.Error(), "schema cache") {
		return errors.Join(ErrTableNotFound, err)
	}
	return err
}
