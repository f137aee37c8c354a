package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moralesdev/fieldbill-backend/pkg/db/models"
	"github.com/moralesdev/fieldbill-backend/pkg/enums"
)

// Repository manages persistence for ledger entries.
type Repository interface {
	Create(ctx context.Context, entry *models.LedgerEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	FindByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*models.LedgerEntry, error)
	FindByPublicToken(ctx context.Context, token string) (*models.LedgerEntry, error)
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]models.LedgerEntry, error)
	MarkPaid(ctx context.Context, id uuid.UUID, method enums.PaymentMethod, metadata json.RawMessage, paidAt time.Time) (bool, error)
	SetDeclared(ctx context.Context, id uuid.UUID, declaredAt time.Time, notes *string) (bool, error)
	SetPaymentLink(ctx context.Context, id uuid.UUID, linkID, linkURL string) error
	DeletePending(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).Where("appointment_id = ?", appointmentID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByPublicToken(ctx context.Context, token string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).Where("public_token = ?", token).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkPaid performs the pending->paid transition as a compare-and-swap: the
// update only matches while status is still pending, so exactly one caller
// wins a race and every later caller observes zero affected rows. The
// declaration flag is cleared by the same write.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, method enums.PaymentMethod, metadata json.RawMessage, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id = ? AND status = ?", id, enums.EntryStatusPending).
		Updates(map[string]any{
			"status":               enums.EntryStatusPaid,
			"paid_at":              paidAt,
			"method":               method,
			"settlement_metadata":  metadata,
			"customer_marked_paid": false,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetDeclared records the payer's claim. It only matches undeclared pending
// rows, which keeps the original declaration timestamp on repeats.
func (r *repository) SetDeclared(ctx context.Context, id uuid.UUID, declaredAt time.Time, notes *string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id = ? AND status = ? AND customer_marked_paid = ?", id, enums.EntryStatusPending, false).
		Updates(map[string]any{
			"customer_marked_paid": true,
			"customer_paid_at":     declaredAt,
			"customer_notes":       notes,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetPaymentLink(ctx context.Context, id uuid.UUID, linkID, linkURL string) error {
	return r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id = ? AND status = ?", id, enums.EntryStatusPending).
		Updates(map[string]any{
			"payment_link_id":  linkID,
			"payment_link_url": linkURL,
		}).Error
}

// DeletePending removes an entry only while it is pending, undeclared, and
// unreferenced by a settlement attempt. Paid rows are audit records.
func (r *repository) DeletePending(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND customer_marked_paid = ? AND payment_link_id IS NULL",
			id, enums.EntryStatusPending, false).
		Delete(&models.LedgerEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
