package fleet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// ClientFilter narrows client listings
type ClientFilter struct {
	shared.Filter
	Status ClientStatus
}

// DriverFilter narrows driver listings
type DriverFilter struct {
	shared.Filter
	Status DriverStatus
}

// VehicleFilter narrows vehicle listings
type VehicleFilter struct {
	shared.Filter
	Status        VehicleStatus
	OwnerClientID *uuid.UUID
	OwnerDriverID *uuid.UUID
}

// TripFilter narrows trip listings
type TripFilter struct {
	shared.Filter
	ClientID  *uuid.UUID
	DriverID  *uuid.UUID
	VehicleID *uuid.UUID
	Status    TripStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Invoiced  *bool
	InvoiceID *uuid.UUID
}

// ClientRepository defines the interface for client persistence
type ClientRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)
	FindAll(ctx context.Context, filter ClientFilter) ([]Client, error)
	Count(ctx context.Context, filter ClientFilter) (int64, error)
	Save(ctx context.Context, client *Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	// HasDependents reports whether any trip, invoice or vehicle references the client
	HasDependents(ctx context.Context, id uuid.UUID) (bool, error)
}

// DriverRepository defines the interface for driver persistence
type DriverRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Driver, error)
	FindByLicenseNumber(ctx context.Context, licenseNumber string) (*Driver, error)
	FindAll(ctx context.Context, filter DriverFilter) ([]Driver, error)
	Count(ctx context.Context, filter DriverFilter) (int64, error)
	// FindLicenseExpiring returns active drivers whose license expires on or before the given date
	FindLicenseExpiring(ctx context.Context, before time.Time) ([]Driver, error)
	Save(ctx context.Context, driver *Driver) error
	Delete(ctx context.Context, id uuid.UUID) error
	HasTrips(ctx context.Context, id uuid.UUID) (bool, error)
}

// VehicleRepository defines the interface for vehicle persistence
type VehicleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Vehicle, error)
	FindByRegistrationNumber(ctx context.Context, registrationNumber string) (*Vehicle, error)
	FindAll(ctx context.Context, filter VehicleFilter) ([]Vehicle, error)
	Count(ctx context.Context, filter VehicleFilter) (int64, error)
	Save(ctx context.Context, vehicle *Vehicle) error
	Delete(ctx context.Context, id uuid.UUID) error
	HasTrips(ctx context.Context, id uuid.UUID) (bool, error)
}

// TripRepository defines the interface for trip persistence
type TripRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Trip, error)
	// FindByIDsForUpdate loads trips and holds row locks until the transaction ends
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Trip, error)
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Trip, error)
	FindAll(ctx context.Context, filter TripFilter) ([]Trip, error)
	Count(ctx context.Context, filter TripFilter) (int64, error)
	Save(ctx context.Context, trip *Trip) error
	// SaveWithLock saves with an optimistic version check
	SaveWithLock(ctx context.Context, trip *Trip) error
	// AssignInvoice points every listed, not yet invoiced trip at the invoice.
	// It returns the number of trips updated.
	AssignInvoice(ctx context.Context, tripIDs []uuid.UUID, invoiceID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
