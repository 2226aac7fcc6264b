package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/transportops/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// notFoundOr maps gorm.ErrRecordNotFound to a NOT_FOUND domain error for what
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(what + " not found")
	}
	return translate(err)
}

// translate converts driver errors gorm can classify into domain errors
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewDomainError(shared.CodeConflict, "record already exists").WithCause(err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return shared.NewDomainError(shared.CodeConflict, "referenced record is missing or still in use").WithCause(err)
	}
	return err
}

// versionConflict is returned when an optimistic version check matches no row
func versionConflict(what string) error {
	return shared.NewDomainError(shared.CodeConcurrencyConflict,
		fmt.Sprintf("the %s record has been modified by another transaction", what))
}

// exists runs a SELECT EXISTS query built from sql and args
func exists(ctx context.Context, db *gorm.DB, sql string, args ...any) (bool, error) {
	var found bool
	if err := db.WithContext(ctx).Raw("SELECT EXISTS("+sql+")", args...).Scan(&found).Error; err != nil {
		return false, err
	}
	return found, nil
}
