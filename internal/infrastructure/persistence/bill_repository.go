package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBillRepository implements billing.BillRepository using GORM.
// Soft-deleted bills carry a deleted_at timestamp and are filtered explicitly.
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

// FindByID finds a live bill by ID
func (r *GormBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	var model models.BillModel
	if err := r.db.WithContext(ctx).First(&model, "id = ? AND deleted_at IS NULL", id).Error; err != nil {
		return nil, notFoundOr(err, "bill")
	}
	return model.ToDomain(), nil
}

// FindByIDIncludingDeleted finds a bill by ID whether or not it is deleted
func (r *GormBillRepository) FindByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	var model models.BillModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "bill")
	}
	return model.ToDomain(), nil
}

// FindByInvoiceForUpdate finds the live bill of an invoice and row-locks it
func (r *GormBillRepository) FindByInvoiceForUpdate(ctx context.Context, invoiceID uuid.UUID) (*billing.Bill, error) {
	var model models.BillModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "invoice_id = ? AND deleted_at IS NULL", invoiceID).Error
	if err != nil {
		return nil, notFoundOr(err, "bill")
	}
	return model.ToDomain(), nil
}

// ExistsForInvoice reports whether the invoice has a live bill
func (r *GormBillRepository) ExistsForInvoice(ctx context.Context, invoiceID uuid.UUID) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM bills WHERE invoice_id = ? AND deleted_at IS NULL", invoiceID)
}

// FindAll lists bills matching the filter
func (r *GormBillRepository) FindAll(ctx context.Context, filter billing.BillFilter) ([]billing.Bill, error) {
	var rows []models.BillModel
	q := paginate(r.filtered(ctx, filter), "bills", filter.Filter, BillSortFields, "date")
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	bills := make([]billing.Bill, len(rows))
	for i := range rows {
		bills[i] = *rows[i].ToDomain()
	}
	return bills, nil
}

// Count counts bills matching the filter
func (r *GormBillRepository) Count(ctx context.Context, filter billing.BillFilter) (int64, error) {
	var n int64
	err := r.filtered(ctx, filter).Count(&n).Error
	return n, err
}

// Save inserts or fully overwrites a bill
func (r *GormBillRepository) Save(ctx context.Context, bill *billing.Bill) error {
	if err := r.db.WithContext(ctx).Save(models.BillModelFromDomain(bill)).Error; err != nil {
		return translate(err)
	}
	bill.MarkSaved()
	return nil
}

// SaveWithLock updates a bill only if its stored version is the one it was loaded with.
// Every column is written so that restoring a bill clears deleted_at.
func (r *GormBillRepository) SaveWithLock(ctx context.Context, bill *billing.Bill) error {
	model := models.BillModelFromDomain(bill)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("version = ?", bill.StoredVersion()).
		Select("*").Omit("created_at").
		Updates(model)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return versionConflict("bill")
	}
	bill.MarkSaved()
	return nil
}

// NumbersWithPrefix returns every bill number starting with prefix-, deleted bills included
func (r *GormBillRepository) NumbersWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Where(`bill_number LIKE ? ESCAPE '\'`, prefixPattern(prefix)).
		Pluck("bill_number", &numbers).Error
	return numbers, err
}

func (r *GormBillRepository) filtered(ctx context.Context, f billing.BillFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.BillModel{})
	if !f.IncludeDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	if f.Search != "" {
		q = q.Where(`LOWER(bill_number) LIKE ? ESCAPE '\'`, likePattern(f.Search))
	}
	return q
}

var _ billing.BillRepository = (*GormBillRepository)(nil)
