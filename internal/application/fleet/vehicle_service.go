package fleet

import (
	"context"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/fleet"
	"github.com/transportops/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// Vehicle service errors
var (
	ErrDuplicateRegistration = shared.NewConflictError("vehicle with this registration number already exists")
	ErrVehicleHasTrips       = shared.NewInvalidStateError("vehicle has trips")
)

// VehicleService handles vehicle master data
type VehicleService struct {
	vehicles fleet.VehicleRepository
	drivers  fleet.DriverRepository
	clients  fleet.ClientRepository
	logger   *zap.Logger
}

// NewVehicleService creates a new VehicleService
func NewVehicleService(vehicles fleet.VehicleRepository, drivers fleet.DriverRepository, clients fleet.ClientRepository, logger *zap.Logger) *VehicleService {
	return &VehicleService{vehicles: vehicles, drivers: drivers, clients: clients, logger: logger}
}

// Create registers a vehicle. Registration numbers are unique and owners must exist.
func (s *VehicleService) Create(ctx context.Context, req VehicleRequest) (*VehicleResponse, error) {
	vehicle, err := fleet.NewVehicle(req.RegistrationNumber, req.VehicleType, req.Capacity)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOwners(ctx, req.OwnerDriverID, req.OwnerClientID); err != nil {
		return nil, err
	}
	vehicle.OwnerDriverID = req.OwnerDriverID
	vehicle.OwnerClientID = req.OwnerClientID

	if err := s.ensureRegistrationFree(ctx, vehicle.RegistrationNumber, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.vehicles.Save(ctx, vehicle); err != nil {
		return nil, err
	}

	s.logger.Info("vehicle created",
		zap.String("vehicle_id", vehicle.ID.String()),
		zap.String("registration_number", vehicle.RegistrationNumber),
	)
	resp := ToVehicleResponse(vehicle)
	return &resp, nil
}

// GetByID retrieves a vehicle by ID
func (s *VehicleService) GetByID(ctx context.Context, id uuid.UUID) (*VehicleResponse, error) {
	vehicle, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToVehicleResponse(vehicle)
	return &resp, nil
}

// List retrieves a page of vehicles
func (s *VehicleService) List(ctx context.Context, filter VehicleListFilter) ([]VehicleResponse, int64, error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "registration_number"
		if filter.OrderDir == "" {
			filter.OrderDir = "asc"
		}
	}
	f := fleet.VehicleFilter{
		Filter: shared.NewFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search),
		Status: fleet.VehicleStatus(filter.Status),
	}
	var err error
	if f.OwnerClientID, err = parseOptionalUUID(filter.OwnerClientID, "owner_client_id"); err != nil {
		return nil, 0, err
	}
	if f.OwnerDriverID, err = parseOptionalUUID(filter.OwnerDriverID, "owner_driver_id"); err != nil {
		return nil, 0, err
	}

	vehicles, err := s.vehicles.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.vehicles.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	out := make([]VehicleResponse, len(vehicles))
	for i := range vehicles {
		out[i] = ToVehicleResponse(&vehicles[i])
	}
	return out, total, nil
}

// Update replaces a vehicle's details and owners
func (s *VehicleService) Update(ctx context.Context, id uuid.UUID, req VehicleRequest) (*VehicleResponse, error) {
	vehicle, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := vehicle.Update(req.RegistrationNumber, req.VehicleType, req.Capacity); err != nil {
		return nil, err
	}
	if err := s.ensureOwners(ctx, req.OwnerDriverID, req.OwnerClientID); err != nil {
		return nil, err
	}
	vehicle.AssignOwner(req.OwnerDriverID, req.OwnerClientID)

	if err := s.ensureRegistrationFree(ctx, vehicle.RegistrationNumber, vehicle.ID); err != nil {
		return nil, err
	}
	if err := s.vehicles.Save(ctx, vehicle); err != nil {
		return nil, err
	}
	resp := ToVehicleResponse(vehicle)
	return &resp, nil
}

// Activate allows the vehicle to be used for new trips
func (s *VehicleService) Activate(ctx context.Context, id uuid.UUID) (*VehicleResponse, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate blocks the vehicle from new trips
func (s *VehicleService) Deactivate(ctx context.Context, id uuid.UUID) (*VehicleResponse, error) {
	return s.setActive(ctx, id, false)
}

func (s *VehicleService) setActive(ctx context.Context, id uuid.UUID, active bool) (*VehicleResponse, error) {
	vehicle, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		vehicle.Activate()
	} else {
		vehicle.Deactivate()
	}
	if err := s.vehicles.Save(ctx, vehicle); err != nil {
		return nil, err
	}
	resp := ToVehicleResponse(vehicle)
	return &resp, nil
}

// Delete removes a vehicle without trips
func (s *VehicleService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.vehicles.FindByID(ctx, id); err != nil {
		return err
	}
	has, err := s.vehicles.HasTrips(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return ErrVehicleHasTrips
	}
	return s.vehicles.Delete(ctx, id)
}

func (s *VehicleService) ensureOwners(ctx context.Context, driverID, clientID *uuid.UUID) error {
	if driverID != nil {
		if _, err := s.drivers.FindByID(ctx, *driverID); err != nil {
			return err
		}
	}
	if clientID != nil {
		if _, err := s.clients.FindByID(ctx, *clientID); err != nil {
			return err
		}
	}
	return nil
}

func (s *VehicleService) ensureRegistrationFree(ctx context.Context, registration string, self uuid.UUID) error {
	existing, err := s.vehicles.FindByRegistrationNumber(ctx, registration)
	switch {
	case err == nil:
		if existing.ID != self {
			return ErrDuplicateRegistration
		}
		return nil
	case shared.IsCode(err, shared.CodeNotFound):
		return nil
	default:
		return err
	}
}
