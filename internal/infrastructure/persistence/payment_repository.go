package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements billing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "payment")
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a payment by ID and row-locks it
func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "payment")
	}
	return model.ToDomain(), nil
}

// FindByInvoice finds the payment record of an invoice
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "invoice_id = ?", invoiceID).Error; err != nil {
		return nil, notFoundOr(err, "payment")
	}
	return model.ToDomain(), nil
}

// Save inserts or fully overwrites a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	if err := r.db.WithContext(ctx).Save(models.PaymentModelFromDomain(payment)).Error; err != nil {
		return translate(err)
	}
	payment.MarkSaved()
	return nil
}

// SaveWithLock updates a payment only if its stored version is the one it was loaded with
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *billing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("version = ?", payment.StoredVersion()).
		Select("*").Omit("created_at").
		Updates(model)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return versionConflict("payment")
	}
	payment.MarkSaved()
	return nil
}

var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)

// GormPaymentTransactionRepository implements the append-only payment ledger
type GormPaymentTransactionRepository struct {
	db *gorm.DB
}

// NewGormPaymentTransactionRepository creates a new GormPaymentTransactionRepository
func NewGormPaymentTransactionRepository(db *gorm.DB) *GormPaymentTransactionRepository {
	return &GormPaymentTransactionRepository{db: db}
}

// Append inserts a ledger row. Existing rows are never touched.
func (r *GormPaymentTransactionRepository) Append(ctx context.Context, txn *billing.PaymentTransaction) error {
	return translate(r.db.WithContext(ctx).Create(models.PaymentTransactionModelFromDomain(txn)).Error)
}

// FindByPayment returns a payment's ledger in the order it was written
func (r *GormPaymentTransactionRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]billing.PaymentTransaction, error) {
	var rows []models.PaymentTransactionModel
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("transaction_date ASC").Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	txns := make([]billing.PaymentTransaction, len(rows))
	for i := range rows {
		txns[i] = rows[i].ToDomain()
	}
	return txns, nil
}

var _ billing.PaymentTransactionRepository = (*GormPaymentTransactionRepository)(nil)
