package manual

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/moralesdev/fieldbill-backend/internal/ledger"
	"github.com/moralesdev/fieldbill-backend/internal/settlement"
	"github.com/moralesdev/fieldbill-backend/pkg/enums"
	pkgerrors "github.com/moralesdev/fieldbill-backend/pkg/errors"
)

// ChannelName labels manual settlements in metrics and metadata.
const ChannelName = "manual"

type coordinator interface {
	MarkPaid(ctx context.Context, entryID uuid.UUID, method enums.PaymentMethod, metadata json.RawMessage, channel string) (settlement.Outcome, error)
}

// ServiceParams groups dependencies for the manual channel.
type ServiceParams struct {
	Ledger      ledger.Service
	Coordinator coordinator
}

// Service covers the self-report path: the payer declares the invoice paid
// and the owner confirms. The owner is the trust authority, so confirmation
// does not require a prior declaration.
type Service struct {
	ledger      ledger.Service
	coordinator coordinator
}

// NewService wires the manual channel adapter.
func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.Coordinator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement coordinator required")
	}
	return &Service{
		ledger:      params.Ledger,
		coordinator: params.Coordinator,
	}, nil
}

// DeclarePaid records the payer's claim on a pending entry.
func (s *Service) DeclarePaid(ctx context.Context, entryID uuid.UUID, notes string) error {
	return s.ledger.DeclarePaid(ctx, entryID, notes)
}

// Confirm settles the entry with the method the owner vouches for. The
// declaration flag and its timestamp are folded into the settlement
// metadata before the transition clears them.
func (s *Service) Confirm(ctx context.Context, accountID, entryID uuid.UUID, method enums.PaymentMethod) (settlement.Outcome, error) {
	if !method.IsValid() {
		return settlement.Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	entry, err := s.ledger.Get(ctx, accountID, entryID)
	if err != nil {
		return settlement.Outcome{}, err
	}

	meta := map[string]any{
		"channel":           ChannelName,
		"customer_declared": entry.CustomerMarkedPaid,
	}
	if entry.CustomerPaidAt != nil {
		meta["customer_paid_at"] = entry.CustomerPaidAt
	}
	if entry.CustomerNotes != nil {
		meta["customer_notes"] = *entry.CustomerNotes
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		return settlement.Outcome{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode settlement metadata")
	}

	return s.coordinator.MarkPaid(ctx, entryID, method, metadata, ChannelName)
}
