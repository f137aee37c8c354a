package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moralesdev/fieldbill-backend/pkg/db"
	"github.com/moralesdev/fieldbill-backend/pkg/db/models"
	"github.com/moralesdev/fieldbill-backend/pkg/enums"
	pkgerrors "github.com/moralesdev/fieldbill-backend/pkg/errors"
	"github.com/moralesdev/fieldbill-backend/pkg/security"
)

// Service owns creation and the non-settling mutations of ledger entries.
// The pending->paid transition itself belongs to the settlement coordinator.
type Service interface {
	Create(ctx context.Context, input CreateEntryInput) (*models.LedgerEntry, error)
	Get(ctx context.Context, accountID, id uuid.UUID) (*models.LedgerEntry, error)
	GetByPublicToken(ctx context.Context, token string) (*models.LedgerEntry, error)
	List(ctx context.Context, accountID uuid.UUID) ([]models.LedgerEntry, error)
	DeclarePaid(ctx context.Context, id uuid.UUID, notes string) error
	Delete(ctx context.Context, accountID, id uuid.UUID) error
}

// CreateEntryInput captures the data a new ledger entry requires. The
// appointment reference, when present, acts as the idempotency key for
// retried creation.
type CreateEntryInput struct {
	AccountID     uuid.UUID
	AppointmentID *uuid.UUID
	Kind          enums.EntryKind
	AmountCents   int64
	DueDate       time.Time
	Description   string
}

// ServiceParams groups dependencies for the ledger service.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateEntryInput) (*models.LedgerEntry, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid entry kind")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive").
			WithDetails(map[string]any{"amount_cents": input.AmountCents})
	}
	if input.DueDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "due date is required")
	}

	if input.AppointmentID != nil {
		existing, err := s.repo.FindByAppointmentID(ctx, *input.AppointmentID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up appointment entry")
		}
		if existing != nil {
			return nil, duplicateSettlementError(*input.AppointmentID)
		}
	}

	token, err := security.NewPublicToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate public token")
	}

	entry := &models.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     input.AccountID,
		AppointmentID: input.AppointmentID,
		Kind:          input.Kind,
		AmountCents:   input.AmountCents,
		Status:        enums.EntryStatusPending,
		DueDate:       input.DueDate,
		PublicToken:   token,
	}
	if trimmed := strings.TrimSpace(input.Description); trimmed != "" {
		entry.Description = &trimmed
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		// The unique index catches creations racing past the lookup above.
		if input.AppointmentID != nil && db.IsUniqueViolation(err, "idx_ledger_entries_appointment_id") {
			return nil, duplicateSettlementError(*input.AppointmentID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist ledger entry")
	}
	return entry, nil
}

func (s *service) Get(ctx context.Context, accountID, id uuid.UUID) (*models.LedgerEntry, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id is required")
	}
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	if entry == nil || (accountID != uuid.Nil && entry.AccountID != accountID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
	}
	return entry, nil
}

func (s *service) GetByPublicToken(ctx context.Context, token string) (*models.LedgerEntry, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
	}
	entry, err := s.repo.FindByPublicToken(ctx, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	if entry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
	}
	return entry, nil
}

func (s *service) List(ctx context.Context, accountID uuid.UUID) ([]models.LedgerEntry, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	entries, err := s.repo.ListByAccountID(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return entries, nil
}

// DeclarePaid records the payer's claim that the invoice is settled. It is
// idempotent: repeating a declaration is a no-op, not an error.
func (s *service) DeclarePaid(ctx context.Context, id uuid.UUID, notes string) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "entry id is required")
	}
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	if entry == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
	}
	if entry.IsPaid() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "entry is already settled")
	}
	if entry.CustomerMarkedPaid {
		return nil
	}

	var notesPtr *string
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		notesPtr = &trimmed
	}
	// RowsAffected zero here means the entry settled or was declared between
	// the read and the write; both outcomes are acceptable no-ops.
	if _, err := s.repo.SetDeclared(ctx, id, time.Now().UTC(), notesPtr); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record declaration")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	entry, err := s.Get(ctx, accountID, id)
	if err != nil {
		return err
	}
	if entry.IsPaid() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "paid entries are immutable")
	}
	if entry.CustomerMarkedPaid || entry.PaymentLinkID != nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "entry has a settlement attempt in progress")
	}
	deleted, err := s.repo.DeletePending(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete ledger entry")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "entry can no longer be deleted")
	}
	return nil
}

func duplicateSettlementError(appointmentID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "ledger entry already exists for appointment").
		WithDetails(map[string]string{"appointment_id": appointmentID.String()})
}
