package paymentsettings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moralesdev/fieldbill-backend/pkg/db/models"
	pkgerrors "github.com/moralesdev/fieldbill-backend/pkg/errors"
)

// Service reads the owner's enabled settlement methods. The configuration is
// maintained by the account CRUD surface; this engine consumes it read-only
// for the public invoice view.
type Service interface {
	ListEnabled(ctx context.Context, accountID uuid.UUID) ([]models.PaymentSettings, error)
}

type service struct {
	db *gorm.DB
}

// NewService returns a payment settings reader bound to the database.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database required")
	}
	return &service{db: db}, nil
}

func (s *service) ListEnabled(ctx context.Context, accountID uuid.UUID) ([]models.PaymentSettings, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	var settings []models.PaymentSettings
	if err := s.db.WithContext(ctx).
		Where("account_id = ? AND enabled = ?", accountID, true).
		Order("method ASC").
		Find(&settings).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment settings")
	}
	return settings, nil
}
