package fleet

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// VehicleStatus represents the status of a vehicle
type VehicleStatus string

const (
	VehicleStatusActive   VehicleStatus = "Active"
	VehicleStatusInactive VehicleStatus = "Inactive"
)

// IsValid checks if the status is known
func (s VehicleStatus) IsValid() bool {
	return s == VehicleStatusActive || s == VehicleStatusInactive
}

// Vehicle is a truck identified by its registration number
type Vehicle struct {
	shared.BaseAggregateRoot
	RegistrationNumber string
	VehicleType        string
	Capacity           decimal.Decimal
	OwnerDriverID      *uuid.UUID
	OwnerClientID      *uuid.UUID
	Status             VehicleStatus
}

// NewVehicle creates an active vehicle
func NewVehicle(registrationNumber, vehicleType string, capacity decimal.Decimal) (*Vehicle, error) {
	reg, err := NormalizeRegistrationNumber(registrationNumber)
	if err != nil {
		return nil, err
	}
	if capacity.IsNegative() {
		return nil, shared.NewValidationError("capacity cannot be negative")
	}

	return &Vehicle{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		RegistrationNumber: reg,
		VehicleType:        strings.TrimSpace(vehicleType),
		Capacity:           capacity,
		Status:             VehicleStatusActive,
	}, nil
}

// Update changes the vehicle's descriptive fields
func (v *Vehicle) Update(registrationNumber, vehicleType string, capacity decimal.Decimal) error {
	reg, err := NormalizeRegistrationNumber(registrationNumber)
	if err != nil {
		return err
	}
	if capacity.IsNegative() {
		return shared.NewValidationError("capacity cannot be negative")
	}
	v.RegistrationNumber = reg
	v.VehicleType = strings.TrimSpace(vehicleType)
	v.Capacity = capacity
	v.MarkModified()
	return nil
}

// AssignOwner sets the optional owning driver and client
func (v *Vehicle) AssignOwner(driverID, clientID *uuid.UUID) {
	v.OwnerDriverID = driverID
	v.OwnerClientID = clientID
	v.MarkModified()
}

// Activate marks the vehicle as active
func (v *Vehicle) Activate() {
	v.setStatus(VehicleStatusActive)
}

// Deactivate marks the vehicle as inactive
func (v *Vehicle) Deactivate() {
	v.setStatus(VehicleStatusInactive)
}

// IsActive reports whether the vehicle can be used for new trips
func (v *Vehicle) IsActive() bool {
	return v.Status == VehicleStatusActive
}

func (v *Vehicle) setStatus(status VehicleStatus) {
	if v.Status == status {
		return
	}
	v.Status = status
	v.MarkModified()
}

// NormalizeRegistrationNumber upper-cases a registration number and strips whitespace
func NormalizeRegistrationNumber(s string) (string, error) {
	s = strings.ToUpper(strings.Join(strings.Fields(s), ""))
	if s == "" {
		return "", shared.NewValidationError("registration number is required")
	}
	if len(s) > 20 {
		return "", shared.NewValidationError("registration number cannot exceed 20 characters")
	}
	return s, nil
}
