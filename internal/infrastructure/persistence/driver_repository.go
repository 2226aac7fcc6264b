package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/fleet"
	"github.com/transportops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDriverRepository implements fleet.DriverRepository using GORM
type GormDriverRepository struct {
	db *gorm.DB
}

// NewGormDriverRepository creates a new GormDriverRepository
func NewGormDriverRepository(db *gorm.DB) *GormDriverRepository {
	return &GormDriverRepository{db: db}
}

// FindByID finds a driver by ID
func (r *GormDriverRepository) FindByID(ctx context.Context, id uuid.UUID) (*fleet.Driver, error) {
	var model models.DriverModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "driver")
	}
	return model.ToDomain(), nil
}

// FindByLicenseNumber finds a driver by normalized license number
func (r *GormDriverRepository) FindByLicenseNumber(ctx context.Context, licenseNumber string) (*fleet.Driver, error) {
	var model models.DriverModel
	if err := r.db.WithContext(ctx).First(&model, "license_number = ?", licenseNumber).Error; err != nil {
		return nil, notFoundOr(err, "driver")
	}
	return model.ToDomain(), nil
}

// FindAll lists drivers matching the filter
func (r *GormDriverRepository) FindAll(ctx context.Context, filter fleet.DriverFilter) ([]fleet.Driver, error) {
	var rows []models.DriverModel
	q := paginate(r.filtered(ctx, filter), "drivers", filter.Filter, DriverSortFields, "name")
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return driversToDomain(rows), nil
}

// Count counts drivers matching the filter
func (r *GormDriverRepository) Count(ctx context.Context, filter fleet.DriverFilter) (int64, error) {
	var n int64
	err := r.filtered(ctx, filter).Count(&n).Error
	return n, err
}

// FindLicenseExpiring returns active drivers whose license expires on or before the given day
func (r *GormDriverRepository) FindLicenseExpiring(ctx context.Context, before time.Time) ([]fleet.Driver, error) {
	var rows []models.DriverModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND license_expiry IS NOT NULL AND license_expiry <= ?", fleet.DriverStatusActive, models.DateValue(before)).
		Order("license_expiry ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return driversToDomain(rows), nil
}

// Save creates or updates a driver
func (r *GormDriverRepository) Save(ctx context.Context, driver *fleet.Driver) error {
	return translate(r.db.WithContext(ctx).Save(models.DriverModelFromDomain(driver)).Error)
}

// Delete hard-deletes a driver
func (r *GormDriverRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.DriverModel{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return notFoundOr(gorm.ErrRecordNotFound, "driver")
	}
	return nil
}

// HasTrips reports whether any trip references the driver
func (r *GormDriverRepository) HasTrips(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM trips WHERE driver_id = ?", id)
}

func (r *GormDriverRepository) filtered(ctx context.Context, f fleet.DriverFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.DriverModel{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(license_number) LIKE ? ESCAPE '\' OR LOWER(phone) LIKE ? ESCAPE '\')`, p, p, p)
	}
	return q
}

func driversToDomain(rows []models.DriverModel) []fleet.Driver {
	drivers := make([]fleet.Driver, len(rows))
	for i := range rows {
		drivers[i] = *rows[i].ToDomain()
	}
	return drivers
}

var _ fleet.DriverRepository = (*GormDriverRepository)(nil)
