package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/domain/fleet"
	"github.com/transportops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTripRepository implements fleet.TripRepository and billing.TripLineReader using GORM
type GormTripRepository struct {
	db *gorm.DB
}

// NewGormTripRepository creates a new GormTripRepository
func NewGormTripRepository(db *gorm.DB) *GormTripRepository {
	return &GormTripRepository{db: db}
}

// FindByID finds a trip by ID
func (r *GormTripRepository) FindByID(ctx context.Context, id uuid.UUID) (*fleet.Trip, error) {
	var model models.TripModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "trip")
	}
	return model.ToDomain(), nil
}

// FindByIDsForUpdate loads the listed trips with row locks
func (r *GormTripRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]fleet.Trip, error) {
	if len(ids) == 0 {
		return []fleet.Trip{}, nil
	}
	var rows []models.TripModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return tripsToDomain(rows), nil
}

// FindByInvoice returns the trips billed on an invoice, oldest first
func (r *GormTripRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]fleet.Trip, error) {
	var rows []models.TripModel
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("date ASC").Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return tripsToDomain(rows), nil
}

// FindAll lists trips matching the filter
func (r *GormTripRepository) FindAll(ctx context.Context, filter fleet.TripFilter) ([]fleet.Trip, error) {
	var rows []models.TripModel
	q := paginate(r.filtered(ctx, filter), "trips", filter.Filter, TripSortFields, "date")
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return tripsToDomain(rows), nil
}

// Count counts trips matching the filter
func (r *GormTripRepository) Count(ctx context.Context, filter fleet.TripFilter) (int64, error) {
	var n int64
	err := r.filtered(ctx, filter).Count(&n).Error
	return n, err
}

// Save creates or updates a trip
func (r *GormTripRepository) Save(ctx context.Context, trip *fleet.Trip) error {
	if err := r.db.WithContext(ctx).Save(models.TripModelFromDomain(trip)).Error; err != nil {
		return translate(err)
	}
	trip.MarkSaved()
	return nil
}

// SaveWithLock updates a trip only if its stored version is the one it was loaded with
func (r *GormTripRepository) SaveWithLock(ctx context.Context, trip *fleet.Trip) error {
	model := models.TripModelFromDomain(trip)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("version = ?", trip.StoredVersion()).
		Select("*").Omit("created_at").
		Updates(model)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return versionConflict("trip")
	}
	trip.MarkSaved()
	return nil
}

// AssignInvoice links every listed trip that has no invoice yet
func (r *GormTripRepository) AssignInvoice(ctx context.Context, tripIDs []uuid.UUID, invoiceID uuid.UUID) (int64, error) {
	if len(tripIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.TripModel{}).
		Where("id IN ? AND invoice_id IS NULL", tripIDs).
		Updates(map[string]any{
			"invoice_id": invoiceID,
			"version":    gorm.Expr("version + 1"),
			"updated_at": r.db.NowFunc(),
		})
	return result.RowsAffected, translate(result.Error)
}

// Delete hard-deletes a trip
func (r *GormTripRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.TripModel{}, "id = ? AND invoice_id IS NULL", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return notFoundOr(gorm.ErrRecordNotFound, "trip")
	}
	return nil
}

// LinesForUpdate joins the listed trips with their vehicle and driver and
// row-locks the trips. Unknown IDs are skipped.
func (r *GormTripRepository) LinesForUpdate(ctx context.Context, tripIDs []uuid.UUID) ([]billing.TripLine, error) {
	if len(tripIDs) == 0 {
		return []billing.TripLine{}, nil
	}
	q := r.lineQuery(ctx).
		Where("trips.id IN ?", tripIDs).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "trips"}})
	return scanLines(q)
}

// LinesByInvoice returns the billing view of an invoice's trips
func (r *GormTripRepository) LinesByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.TripLine, error) {
	return scanLines(r.lineQuery(ctx).Where("trips.invoice_id = ?", invoiceID))
}

func (r *GormTripRepository) lineQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("trips").
		Select("trips.id, trips.client_id, trips.date, trips.vehicle_id, " +
			"vehicles.registration_number AS vehicle_number, drivers.name AS driver_name, " +
			"trips.source, trips.destination, trips.amount, trips.amount_paid, trips.invoice_id").
		Joins("LEFT JOIN vehicles ON vehicles.id = trips.vehicle_id").
		Joins("LEFT JOIN drivers ON drivers.id = trips.driver_id").
		Order("trips.date ASC").Order("trips.created_at ASC").Order("trips.id ASC")
}

func scanLines(q *gorm.DB) ([]billing.TripLine, error) {
	var rows []models.TripLineRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	lines := make([]billing.TripLine, len(rows))
	for i := range rows {
		lines[i] = rows[i].ToDomain()
	}
	return lines, nil
}

func (r *GormTripRepository) filtered(ctx context.Context, f fleet.TripFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.TripModel{})
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.DriverID != nil {
		q = q.Where("driver_id = ?", *f.DriverID)
	}
	if f.VehicleID != nil {
		q = q.Where("vehicle_id = ?", *f.VehicleID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DateFrom != nil {
		q = q.Where("date >= ?", models.DateValue(*f.DateFrom))
	}
	if f.DateTo != nil {
		q = q.Where("date <= ?", models.DateValue(*f.DateTo))
	}
	if f.Invoiced != nil {
		if *f.Invoiced {
			q = q.Where("invoice_id IS NOT NULL")
		} else {
			q = q.Where("invoice_id IS NULL")
		}
	}
	if f.InvoiceID != nil {
		q = q.Where("invoice_id = ?", *f.InvoiceID)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where(`(LOWER(source) LIKE ? ESCAPE '\' OR LOWER(destination) LIKE ? ESCAPE '\' OR LOWER(material) LIKE ? ESCAPE '\')`, p, p, p)
	}
	return q
}

func tripsToDomain(rows []models.TripModel) []fleet.Trip {
	trips := make([]fleet.Trip, len(rows))
	for i := range rows {
		trips[i] = *rows[i].ToDomain()
	}
	return trips
}

var (
	_ fleet.TripRepository   = (*GormTripRepository)(nil)
	_ billing.TripLineReader = (*GormTripRepository)(nil)
	_ billing.TripLinker     = (*GormTripRepository)(nil)
)
