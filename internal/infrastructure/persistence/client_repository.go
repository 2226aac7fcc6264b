package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/fleet"
	"github.com/transportops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormClientRepository implements fleet.ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID finds a client by ID
func (r *GormClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*fleet.Client, error) {
	var model models.ClientModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "client")
	}
	return model.ToDomain(), nil
}

// FindAll lists clients matching the filter
func (r *GormClientRepository) FindAll(ctx context.Context, filter fleet.ClientFilter) ([]fleet.Client, error) {
	var rows []models.ClientModel
	q := paginate(r.filtered(ctx, filter), "clients", filter.Filter, ClientSortFields, "name")
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	clients := make([]fleet.Client, len(rows))
	for i := range rows {
		clients[i] = *rows[i].ToDomain()
	}
	return clients, nil
}

// Count counts clients matching the filter
func (r *GormClientRepository) Count(ctx context.Context, filter fleet.ClientFilter) (int64, error) {
	var n int64
	err := r.filtered(ctx, filter).Count(&n).Error
	return n, err
}

// Save creates or updates a client
func (r *GormClientRepository) Save(ctx context.Context, client *fleet.Client) error {
	return translate(r.db.WithContext(ctx).Save(models.ClientModelFromDomain(client)).Error)
}

// Delete hard-deletes a client
func (r *GormClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ClientModel{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return notFoundOr(gorm.ErrRecordNotFound, "client")
	}
	return nil
}

// HasDependents reports whether trips, invoices or owned vehicles reference the client
func (r *GormClientRepository) HasDependents(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.db,
		"SELECT 1 FROM trips WHERE client_id = ? "+
			"UNION ALL SELECT 1 FROM invoices WHERE client_id = ? "+
			"UNION ALL SELECT 1 FROM vehicles WHERE owner_client_id = ?",
		id, id, id)
}

func (r *GormClientRepository) filtered(ctx context.Context, f fleet.ClientFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.ClientModel{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(contact_person) LIKE ? ESCAPE '\' OR LOWER(phone) LIKE ? ESCAPE '\')`, p, p, p)
	}
	return q
}

var _ fleet.ClientRepository = (*GormClientRepository)(nil)
