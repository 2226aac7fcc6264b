package billing

import "github.com/transportops/backoffice/internal/domain/shared"

// asIntegrity passes domain errors through and wraps anything else as an
// IntegrityError so the cause is kept for logs but not shown to clients.
func asIntegrity(message string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := shared.AsDomainError(err); ok {
		return err
	}
	return shared.NewIntegrityError(message, err)
}
