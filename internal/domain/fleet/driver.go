package fleet

import (
	"math"
	"strings"
	"time"

	"github.com/transportops/backoffice/internal/domain/shared"
)

// DriverStatus represents the status of a driver
type DriverStatus string

const (
	DriverStatusActive   DriverStatus = "active"
	DriverStatusInactive DriverStatus = "inactive"
)

// IsValid checks if the status is known
func (s DriverStatus) IsValid() bool {
	return s == DriverStatusActive || s == DriverStatusInactive
}

// Driver is a person who drives vehicles on trips
type Driver struct {
	shared.BaseAggregateRoot
	Name          string
	Phone         string
	Address       string
	LicenseNumber string
	LicenseExpiry *time.Time
	Status        DriverStatus
}

// NewDriver creates an active driver. The license number is unique across drivers;
// uniqueness is checked by the application service.
func NewDriver(name, licenseNumber string) (*Driver, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("driver name is required")
	}
	license, err := normalizeLicenseNumber(licenseNumber)
	if err != nil {
		return nil, err
	}

	return &Driver{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		LicenseNumber:     license,
		Status:            DriverStatusActive,
	}, nil
}

// Update changes the driver's personal details
func (d *Driver) Update(name, phone, address string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("driver name is required")
	}
	d.Name = name
	d.Phone = strings.TrimSpace(phone)
	d.Address = strings.TrimSpace(address)
	d.MarkModified()
	return nil
}

// ChangeLicense replaces the license number and its expiry date
func (d *Driver) ChangeLicense(licenseNumber string, expiry *time.Time) error {
	license, err := normalizeLicenseNumber(licenseNumber)
	if err != nil {
		return err
	}
	d.LicenseNumber = license
	d.LicenseExpiry = expiry
	d.MarkModified()
	return nil
}

// Activate marks the driver as active
func (d *Driver) Activate() {
	d.setStatus(DriverStatusActive)
}

// Deactivate marks the driver as inactive
func (d *Driver) Deactivate() {
	d.setStatus(DriverStatusInactive)
}

// IsActive reports whether the driver can be assigned to new trips
func (d *Driver) IsActive() bool {
	return d.Status == DriverStatusActive
}

// LicenseDaysRemaining returns whole days from today until expiry.
// Negative values mean the license has already expired. ok is false when no
// expiry date is on file.
func (d *Driver) LicenseDaysRemaining(today time.Time) (days int, ok bool) {
	if d.LicenseExpiry == nil {
		return 0, false
	}
	diff := shared.CalendarDate(*d.LicenseExpiry, time.UTC).Sub(shared.CalendarDate(today, time.UTC))
	return int(math.Floor(diff.Hours() / 24)), true
}

// LicenseExpiresWithin reports whether the license expires within the given
// number of days (already expired licenses included)
func (d *Driver) LicenseExpiresWithin(today time.Time, days int) bool {
	remaining, ok := d.LicenseDaysRemaining(today)
	return ok && remaining <= days
}

func (d *Driver) setStatus(status DriverStatus) {
	if d.Status == status {
		return
	}
	d.Status = status
	d.MarkModified()
}

func normalizeLicenseNumber(s string) (string, error) {
	s = strings.ToUpper(strings.Join(strings.Fields(s), ""))
	if s == "" {
		return "", shared.NewValidationError("license number is required")
	}
	if len(s) > 50 {
		return "", shared.NewValidationError("license number cannot exceed 50 characters")
	}
	return s, nil
}
