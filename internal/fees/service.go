package fees

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/moralesdev/fieldbill-backend/pkg/db/models"
	pkgerrors "github.com/moralesdev/fieldbill-backend/pkg/errors"
)

// Quote is the computed helper cut for a given job price.
type Quote struct {
	HelperID   uuid.UUID       `json:"helper_id"`
	Mode       string          `json:"mode"`
	PriceCents int64           `json:"price_cents"`
	FeeCents   int64           `json:"fee_cents"`
	Fee        decimal.Decimal `json:"fee"`
}

// Service resolves a helper's payout policy and prices their cut.
type Service interface {
	QuoteFee(ctx context.Context, accountID, helperID uuid.UUID, priceCents int64) (*Quote, error)
}

// ServiceParams groups dependencies for the fee service.
type ServiceParams struct {
	DB           *gorm.DB
	FeeCapPoints int
}

type service struct {
	db  *gorm.DB
	cap decimal.Decimal
}

// NewService wires a fee service over the payout policy table.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database required")
	}
	capPoints := params.FeeCapPoints
	if capPoints <= 0 {
		capPoints = 100
	}
	return &service{db: params.DB, cap: decimal.NewFromInt(int64(capPoints))}, nil
}

func (s *service) QuoteFee(ctx context.Context, accountID, helperID uuid.UUID, priceCents int64) (*Quote, error) {
	if helperID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "helper id is required")
	}
	if priceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}

	var policy models.HelperPayoutPolicy
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND helper_id = ?", accountID, helperID).
		First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout policy not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout policy")
	}

	price := FromCents(priceCents)
	fee := Compute(price, policy)
	if err := Validate(fee, price, s.cap); err != nil {
		return nil, err
	}

	return &Quote{
		HelperID:   helperID,
		Mode:       policy.Mode.String(),
		PriceCents: priceCents,
		FeeCents:   ToCents(fee),
		Fee:        fee,
	}, nil
}
