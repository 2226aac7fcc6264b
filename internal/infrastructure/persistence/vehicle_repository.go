package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/fleet"
	"github.com/transportops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormVehicleRepository implements fleet.VehicleRepository using GORM
type GormVehicleRepository struct {
	db *gorm.DB
}

// NewGormVehicleRepository creates a new GormVehicleRepository
func NewGormVehicleRepository(db *gorm.DB) *GormVehicleRepository {
	return &GormVehicleRepository{db: db}
}

// FindByID finds a vehicle by ID
func (r *GormVehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*fleet.Vehicle, error) {
	var model models.VehicleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "vehicle")
	}
	return model.ToDomain(), nil
}

// FindByIDs loads every listed vehicle that exists
func (r *GormVehicleRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]fleet.Vehicle, error) {
	if len(ids) == 0 {
		return []fleet.Vehicle{}, nil
	}
	var rows []models.VehicleModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return vehiclesToDomain(rows), nil
}

// FindByRegistrationNumber finds a vehicle by normalized registration number
func (r *GormVehicleRepository) FindByRegistrationNumber(ctx context.Context, registrationNumber string) (*fleet.Vehicle, error) {
	var model models.VehicleModel
	if err := r.db.WithContext(ctx).First(&model, "registration_number = ?", registrationNumber).Error; err != nil {
		return nil, notFoundOr(err, "vehicle")
	}
	return model.ToDomain(), nil
}

// FindAll lists vehicles matching the filter
func (r *GormVehicleRepository) FindAll(ctx context.Context, filter fleet.VehicleFilter) ([]fleet.Vehicle, error) {
	var rows []models.VehicleModel
	q := paginate(r.filtered(ctx, filter), "vehicles", filter.Filter, VehicleSortFields, "registration_number")
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return vehiclesToDomain(rows), nil
}

// Count counts vehicles matching the filter
func (r *GormVehicleRepository) Count(ctx context.Context, filter fleet.VehicleFilter) (int64, error) {
	var n int64
	err := r.filtered(ctx, filter).Count(&n).Error
	return n, err
}

// Save creates or updates a vehicle
func (r *GormVehicleRepository) Save(ctx context.Context, vehicle *fleet.Vehicle) error {
	return translate(r.db.WithContext(ctx).Save(models.VehicleModelFromDomain(vehicle)).Error)
}

// Delete hard-deletes a vehicle
func (r *GormVehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.VehicleModel{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return notFoundOr(gorm.ErrRecordNotFound, "vehicle")
	}
	return nil
}

// HasTrips reports whether any trip references the vehicle
func (r *GormVehicleRepository) HasTrips(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM trips WHERE vehicle_id = ?", id)
}

func (r *GormVehicleRepository) filtered(ctx context.Context, f fleet.VehicleFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.VehicleModel{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OwnerClientID != nil {
		q = q.Where("owner_client_id = ?", *f.OwnerClientID)
	}
	if f.OwnerDriverID != nil {
		q = q.Where("owner_driver_id = ?", *f.OwnerDriverID)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where(`(LOWER(registration_number) LIKE ? ESCAPE '\' OR LOWER(vehicle_type) LIKE ? ESCAPE '\')`, p, p)
	}
	return q
}

func vehiclesToDomain(rows []models.VehicleModel) []fleet.Vehicle {
	vehicles := make([]fleet.Vehicle, len(rows))
	for i := range rows {
		vehicles[i] = *rows[i].ToDomain()
	}
	return vehicles
}

var _ fleet.VehicleRepository = (*GormVehicleRepository)(nil)
