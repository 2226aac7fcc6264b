package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "invoice")
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds an invoice by ID and row-locks it
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "invoice")
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "invoice_number = ?", number).Error; err != nil {
		return nil, notFoundOr(err, "invoice")
	}
	return model.ToDomain(), nil
}

// FindAll lists invoices matching the filter
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	var rows []models.InvoiceModel
	q := paginate(r.filtered(ctx, filter), "invoices", filter.Filter, InvoiceSortFields, "date")
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	invoices := make([]billing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	var n int64
	err := r.filtered(ctx, filter).Count(&n).Error
	return n, err
}

// Save inserts or fully overwrites an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	if err := r.db.WithContext(ctx).Save(models.InvoiceModelFromDomain(invoice)).Error; err != nil {
		return translate(err)
	}
	invoice.MarkSaved()
	return nil
}

// SaveWithLock updates an invoice only if its stored version is the one it was loaded with
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("version = ?", invoice.StoredVersion()).
		Select("*").Omit("created_at").
		Updates(model)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return versionConflict("invoice")
	}
	invoice.MarkSaved()
	return nil
}

// NumbersWithPrefix returns every invoice number starting with prefix-
func (r *GormInvoiceRepository) NumbersWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where(`invoice_number LIKE ? ESCAPE '\'`, prefixPattern(prefix)).
		Pluck("invoice_number", &numbers).Error
	return numbers, err
}

func (r *GormInvoiceRepository) filtered(ctx context.Context, f billing.InvoiceFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	if f.DateFrom != nil {
		q = q.Where("date >= ?", models.DateValue(*f.DateFrom))
	}
	if f.DateTo != nil {
		q = q.Where("date <= ?", models.DateValue(*f.DateTo))
	}
	if f.OverdueAsOf != nil {
		q = q.Where("due_date IS NOT NULL AND due_date < ? AND payment_status <> ?",
			models.DateValue(*f.OverdueAsOf), billing.PaymentStatusPaid)
	}
	if f.Search != "" {
		q = q.Where(`LOWER(invoice_number) LIKE ? ESCAPE '\'`, likePattern(f.Search))
	}
	return q
}

var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
