package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// Settings configures numbering, due dates and calendar handling
type Settings struct {
	InvoicePrefix  string
	BillPrefix     string
	DueDays        int
	Location       *time.Location
	IdempotencyTTL time.Duration
}

// DefaultSettings returns IN/BL numbering, 30 day terms and UTC dates
func DefaultSettings() Settings {
	return Settings{
		InvoicePrefix:  billing.DefaultInvoicePrefix,
		BillPrefix:     billing.DefaultBillPrefix,
		DueDays:        30,
		Location:       time.UTC,
		IdempotencyTTL: 24 * time.Hour,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.InvoicePrefix == "" {
		s.InvoicePrefix = d.InvoicePrefix
	}
	if s.BillPrefix == "" {
		s.BillPrefix = d.BillPrefix
	}
	if s.Location == nil {
		s.Location = d.Location
	}
	if s.IdempotencyTTL <= 0 {
		s.IdempotencyTTL = d.IdempotencyTTL
	}
	return s
}

// Today returns the current calendar day in the configured timezone
func (s Settings) Today(now time.Time) time.Time {
	return shared.CalendarDate(now, s.Location)
}

func parseOptionalUUID(s, field string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, shared.NewValidationError("invalid " + field)
	}
	return &id, nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := shared.ParseCalendarDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
