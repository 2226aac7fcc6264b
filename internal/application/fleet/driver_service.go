package fleet

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/fleet"
	"github.com/transportops/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// Driver service errors
var (
	ErrDuplicateLicense = shared.NewConflictError("driver with this license number already exists")
	ErrDriverHasTrips   = shared.NewInvalidStateError("driver has trips")
)

// DefaultLicenseWarningDays is the look-ahead of the license-expiry report
const DefaultLicenseWarningDays = 30

// DriverService handles driver master data and license tracking
type DriverService struct {
	drivers  fleet.DriverRepository
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewDriverService creates a new DriverService. Calendar days are evaluated
// in loc; nil means UTC.
func NewDriverService(drivers fleet.DriverRepository, loc *time.Location, logger *zap.Logger) *DriverService {
	if loc == nil {
		loc = time.UTC
	}
	return &DriverService{drivers: drivers, location: loc, now: time.Now, logger: logger}
}

func (s *DriverService) today() time.Time {
	return shared.CalendarDate(s.now(), s.location)
}

// Create registers a driver. License numbers are unique.
func (s *DriverService) Create(ctx context.Context, req CreateDriverRequest) (*DriverResponse, error) {
	driver, err := fleet.NewDriver(req.Name, req.LicenseNumber)
	if err != nil {
		return nil, err
	}
	expiry, err := parseOptionalDate(req.LicenseExpiry)
	if err != nil {
		return nil, err
	}
	driver.LicenseExpiry = expiry
	driver.Phone = strings.TrimSpace(req.Phone)
	driver.Address = strings.TrimSpace(req.Address)

	if err := s.ensureLicenseFree(ctx, driver.LicenseNumber, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.drivers.Save(ctx, driver); err != nil {
		return nil, err
	}

	s.logger.Info("driver created",
		zap.String("driver_id", driver.ID.String()),
		zap.String("license_number", driver.LicenseNumber),
	)
	resp := ToDriverResponse(driver, s.today())
	return &resp, nil
}

// GetByID retrieves a driver by ID
func (s *DriverService) GetByID(ctx context.Context, id uuid.UUID) (*DriverResponse, error) {
	driver, err := s.drivers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToDriverResponse(driver, s.today())
	return &resp, nil
}

// List retrieves a page of drivers
func (s *DriverService) List(ctx context.Context, filter DriverListFilter) ([]DriverResponse, int64, error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "name"
		if filter.OrderDir == "" {
			filter.OrderDir = "asc"
		}
	}
	f := fleet.DriverFilter{
		Filter: shared.NewFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search),
		Status: fleet.DriverStatus(filter.Status),
	}

	drivers, err := s.drivers.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.drivers.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	today := s.today()
	out := make([]DriverResponse, len(drivers))
	for i := range drivers {
		out[i] = ToDriverResponse(&drivers[i], today)
	}
	return out, total, nil
}

// Update changes a driver's details and, when given, the license
func (s *DriverService) Update(ctx context.Context, id uuid.UUID, req UpdateDriverRequest) (*DriverResponse, error) {
	driver, err := s.drivers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := driver.Update(req.Name, req.Phone, req.Address); err != nil {
		return nil, err
	}

	if req.LicenseNumber != nil || req.LicenseExpiry != nil {
		license := driver.LicenseNumber
		if req.LicenseNumber != nil {
			license = *req.LicenseNumber
		}
		expiry := driver.LicenseExpiry
		if req.LicenseExpiry != nil {
			if expiry, err = parseOptionalDate(req.LicenseExpiry); err != nil {
				return nil, err
			}
		}
		if err := driver.ChangeLicense(license, expiry); err != nil {
			return nil, err
		}
		if err := s.ensureLicenseFree(ctx, driver.LicenseNumber, driver.ID); err != nil {
			return nil, err
		}
	}

	if err := s.drivers.Save(ctx, driver); err != nil {
		return nil, err
	}
	resp := ToDriverResponse(driver, s.today())
	return &resp, nil
}

// Activate allows the driver to be assigned to new trips
func (s *DriverService) Activate(ctx context.Context, id uuid.UUID) (*DriverResponse, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate blocks the driver from new trips
func (s *DriverService) Deactivate(ctx context.Context, id uuid.UUID) (*DriverResponse, error) {
	return s.setActive(ctx, id, false)
}

func (s *DriverService) setActive(ctx context.Context, id uuid.UUID, active bool) (*DriverResponse, error) {
	driver, err := s.drivers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		driver.Activate()
	} else {
		driver.Deactivate()
	}
	if err := s.drivers.Save(ctx, driver); err != nil {
		return nil, err
	}
	resp := ToDriverResponse(driver, s.today())
	return &resp, nil
}

// Delete removes a driver without trips
func (s *DriverService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.drivers.FindByID(ctx, id); err != nil {
		return err
	}
	has, err := s.drivers.HasTrips(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return ErrDriverHasTrips
	}
	return s.drivers.Delete(ctx, id)
}

// ExpiringLicenses lists active drivers whose license has expired or expires
// within days, soonest first
func (s *DriverService) ExpiringLicenses(ctx context.Context, days int) ([]ExpiringLicenseResponse, error) {
	if days < 0 {
		return nil, shared.NewValidationError("days cannot be negative")
	}
	today := s.today()
	drivers, err := s.drivers.FindLicenseExpiring(ctx, today.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}

	out := make([]ExpiringLicenseResponse, 0, len(drivers))
	for i := range drivers {
		d := &drivers[i]
		remaining, ok := d.LicenseDaysRemaining(today)
		if !ok {
			continue
		}
		out = append(out, ExpiringLicenseResponse{
			DriverID:      d.ID,
			Name:          d.Name,
			Phone:         d.Phone,
			LicenseNumber: d.LicenseNumber,
			LicenseExpiry: d.LicenseExpiry.Format(shared.DateLayout),
			DaysRemaining: remaining,
			Expired:       remaining < 0,
		})
	}
	return out, nil
}

func (s *DriverService) ensureLicenseFree(ctx context.Context, license string, self uuid.UUID) error {
	existing, err := s.drivers.FindByLicenseNumber(ctx, license)
	switch {
	case err == nil:
		if existing.ID != self {
			return ErrDuplicateLicense
		}
		return nil
	case shared.IsCode(err, shared.CodeNotFound):
		return nil
	default:
		return err
	}
}
