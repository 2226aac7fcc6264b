package fleet

import (
	"context"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/fleet"
	"github.com/transportops/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// TripService books and maintains trips. Invoiced trips are read-only.
type TripService struct {
	scope    TransactionScope
	trips    fleet.TripRepository
	clients  fleet.ClientRepository
	drivers  fleet.DriverRepository
	vehicles fleet.VehicleRepository
	logger   *zap.Logger
}

// NewTripService creates a new TripService
func NewTripService(
	scope TransactionScope,
	trips fleet.TripRepository,
	clients fleet.ClientRepository,
	drivers fleet.DriverRepository,
	vehicles fleet.VehicleRepository,
	logger *zap.Logger,
) *TripService {
	return &TripService{
		scope:    scope,
		trips:    trips,
		clients:  clients,
		drivers:  drivers,
		vehicles: vehicles,
		logger:   logger,
	}
}

// Create books a trip for an active client, driver and vehicle
func (s *TripService) Create(ctx context.Context, req TripRequest) (*TripResponse, error) {
	details, err := req.details()
	if err != nil {
		return nil, err
	}
	trip, err := fleet.NewTrip(details)
	if err != nil {
		return nil, err
	}
	if err := s.ensureParties(ctx, details, nil); err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Trips().Save(ctx, trip); err != nil {
			return err
		}
		return repos.SaveEvents(ctx, trip.PendingEvents()...)
	})
	if err != nil {
		return nil, err
	}
	trip.ClearEvents()

	s.logger.Info("trip created",
		zap.String("trip_id", trip.ID.String()),
		zap.String("client_id", trip.ClientID.String()),
		zap.String("amount", trip.Amount.StringFixed(2)),
	)
	resp := ToTripResponse(trip)
	return &resp, nil
}

// GetByID retrieves a trip by ID
func (s *TripService) GetByID(ctx context.Context, id uuid.UUID) (*TripResponse, error) {
	trip, err := s.trips.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTripResponse(trip)
	return &resp, nil
}

// List retrieves a page of trips
func (s *TripService) List(ctx context.Context, filter TripListFilter) ([]TripResponse, int64, error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "date"
	}
	f := fleet.TripFilter{
		Filter:   shared.NewFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search),
		Status:   fleet.TripStatus(filter.Status),
		Invoiced: filter.Invoiced,
	}
	var err error
	if f.ClientID, err = parseOptionalUUID(filter.ClientID, "client_id"); err != nil {
		return nil, 0, err
	}
	if f.DriverID, err = parseOptionalUUID(filter.DriverID, "driver_id"); err != nil {
		return nil, 0, err
	}
	if f.VehicleID, err = parseOptionalUUID(filter.VehicleID, "vehicle_id"); err != nil {
		return nil, 0, err
	}
	if f.DateFrom, err = parseOptionalDate(&filter.DateFrom); err != nil {
		return nil, 0, err
	}
	if f.DateTo, err = parseOptionalDate(&filter.DateTo); err != nil {
		return nil, 0, err
	}

	trips, err := s.trips.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.trips.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	out := make([]TripResponse, len(trips))
	for i := range trips {
		out[i] = ToTripResponse(&trips[i])
	}
	return out, total, nil
}

// Update replaces a trip's fields. Invoiced trips are rejected.
func (s *TripService) Update(ctx context.Context, id uuid.UUID, req TripRequest) (*TripResponse, error) {
	details, err := req.details()
	if err != nil {
		return nil, err
	}

	current, err := s.trips.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := current.EnsureMutable(); err != nil {
		return nil, err
	}
	if err := s.ensureParties(ctx, details, current); err != nil {
		return nil, err
	}

	var trip *fleet.Trip
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if trip, err = s.lock(ctx, repos, id); err != nil {
			return err
		}
		if err := trip.Update(details); err != nil {
			return err
		}
		return repos.Trips().SaveWithLock(ctx, trip)
	})
	if err != nil {
		return nil, err
	}
	resp := ToTripResponse(trip)
	return &resp, nil
}

// ChangeStatus moves a trip through its lifecycle
func (s *TripService) ChangeStatus(ctx context.Context, id uuid.UUID, req ChangeTripStatusRequest) (*TripResponse, error) {
	var trip *fleet.Trip
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if trip, err = s.lock(ctx, repos, id); err != nil {
			return err
		}
		from := trip.Version
		if err := trip.ChangeStatus(fleet.TripStatus(req.Status)); err != nil {
			return err
		}
		if trip.Version == from {
			return nil
		}
		if err := repos.Trips().SaveWithLock(ctx, trip); err != nil {
			return err
		}
		return repos.SaveEvents(ctx, trip.PendingEvents()...)
	})
	if err != nil {
		return nil, err
	}
	trip.ClearEvents()

	s.logger.Info("trip status changed",
		zap.String("trip_id", trip.ID.String()),
		zap.String("status", string(trip.Status)),
	)
	resp := ToTripResponse(trip)
	return &resp, nil
}

// Delete removes a trip that is not invoiced
func (s *TripService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		trip, err := s.lock(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := trip.EnsureDeletable(); err != nil {
			return err
		}
		return repos.Trips().Delete(ctx, id)
	})
}

func (s *TripService) lock(ctx context.Context, repos TransactionalRepositories, id uuid.UUID) (*fleet.Trip, error) {
	trips, err := repos.Trips().FindByIDsForUpdate(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(trips) == 0 {
		return nil, shared.NewNotFoundError("trip not found")
	}
	return &trips[0], nil
}

// ensureParties checks that the referenced client, driver and vehicle exist
// and are active. On update only references that change are checked.
func (s *TripService) ensureParties(ctx context.Context, d fleet.TripDetails, current *fleet.Trip) error {
	if current == nil || current.ClientID != d.ClientID {
		client, err := s.clients.FindByID(ctx, d.ClientID)
		if err != nil {
			return err
		}
		if !client.IsActive() {
			return shared.NewValidationError("client is not active")
		}
	}
	if current == nil || current.DriverID != d.DriverID {
		driver, err := s.drivers.FindByID(ctx, d.DriverID)
		if err != nil {
			return err
		}
		if !driver.IsActive() {
			return shared.NewValidationError("driver is not active")
		}
	}
	if current == nil || current.VehicleID != d.VehicleID {
		vehicle, err := s.vehicles.FindByID(ctx, d.VehicleID)
		if err != nil {
			return err
		}
		if !vehicle.IsActive() {
			return shared.NewValidationError("vehicle is not active")
		}
	}
	return nil
}
