package ledger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/moralesdev/fieldbill-backend/pkg/db/models"
	"github.com/moralesdev/fieldbill-backend/pkg/enums"
	pkgerrors "github.com/moralesdev/fieldbill-backend/pkg/errors"
)

type stubRepo struct {
	entries   map[uuid.UUID]*models.LedgerEntry
	createErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{entries: map[uuid.UUID]*models.LedgerEntry{}}
}

func (s *stubRepo) Create(_ context.Context, entry *models.LedgerEntry) error {
	if s.createErr != nil {
		return s.createErr
	}
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	if entry, ok := s.entries[id]; ok {
		cp := *entry
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) FindByAppointmentID(_ context.Context, appointmentID uuid.UUID) (*models.LedgerEntry, error) {
	for _, entry := range s.entries {
		if entry.AppointmentID != nil && *entry.AppointmentID == appointmentID {
			cp := *entry
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) FindByPublicToken(_ context.Context, token string) (*models.LedgerEntry, error) {
	for _, entry := range s.entries {
		if entry.PublicToken == token {
			cp := *entry
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListByAccountID(_ context.Context, accountID uuid.UUID) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, entry := range s.entries {
		if entry.AccountID == accountID {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (s *stubRepo) MarkPaid(_ context.Context, id uuid.UUID, method enums.PaymentMethod, metadata json.RawMessage, paidAt time.Time) (bool, error) {
	entry, ok := s.entries[id]
	if !ok || entry.Status != enums.EntryStatusPending {
		return false, nil
	}
	entry.Status = enums.EntryStatusPaid
	entry.PaidAt = &paidAt
	entry.Method = &method
	entry.SettlementMetadata = metadata
	entry.CustomerMarkedPaid = false
	return true, nil
}

func (s *stubRepo) SetDeclared(_ context.Context, id uuid.UUID, declaredAt time.Time, notes *string) (bool, error) {
	entry, ok := s.entries[id]
	if !ok || entry.Status != enums.EntryStatusPending || entry.CustomerMarkedPaid {
		return false, nil
	}
	entry.CustomerMarkedPaid = true
	entry.CustomerPaidAt = &declaredAt
	entry.CustomerNotes = notes
	return true, nil
}

func (s *stubRepo) SetPaymentLink(_ context.Context, id uuid.UUID, linkID, linkURL string) error {
	if entry, ok := s.entries[id]; ok && entry.Status == enums.EntryStatusPending {
		entry.PaymentLinkID = &linkID
		entry.PaymentLinkURL = &linkURL
	}
	return nil
}

func (s *stubRepo) DeletePending(_ context.Context, id uuid.UUID) (bool, error) {
	entry, ok := s.entries[id]
	if !ok || entry.Status != enums.EntryStatusPending || entry.CustomerMarkedPaid || entry.PaymentLinkID != nil {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func validInput(accountID uuid.UUID) CreateEntryInput {
	return CreateEntryInput{
		AccountID:   accountID,
		Kind:        enums.EntryKindRevenue,
		AmountCents: 15000,
		DueDate:     time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		Description: "Lawn service",
	}
}

func TestCreateGeneratesPublicToken(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	entry, err := svc.Create(context.Background(), validInput(uuid.New()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.PublicToken == "" {
		t.Fatal("expected a public token")
	}
	if entry.Status != enums.EntryStatusPending {
		t.Fatalf("expected pending, got %s", entry.Status)
	}
}

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(t, newStubRepo())

	for _, amount := range []int64{0, -500} {
		input := validInput(uuid.New())
		input.AmountCents = amount
		_, err := svc.Create(context.Background(), input)
		if err == nil {
			t.Fatalf("expected error for amount %d", amount)
		}
		if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	}
}

func TestCreateDuplicateAppointment(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)
	accountID := uuid.New()
	appointmentID := uuid.New()

	input := validInput(accountID)
	input.AppointmentID = &appointmentID
	if _, err := svc.Create(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Create(context.Background(), input)
	if err == nil {
		t.Fatal("expected duplicate settlement error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected a single entry, got %d", len(repo.entries))
	}
}

func TestDeclarePaidIsIdempotent(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	entry, err := svc.Create(context.Background(), validInput(uuid.New()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DeclarePaid(context.Background(), entry.ID, "paid via zelle"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := *repo.entries[entry.ID].CustomerPaidAt

	if err := svc.DeclarePaid(context.Background(), entry.ID, "again"); err != nil {
		t.Fatalf("repeat declaration should be a no-op, got %v", err)
	}
	if got := *repo.entries[entry.ID].CustomerPaidAt; !got.Equal(first) {
		t.Fatalf("declaration timestamp changed: %s vs %s", got, first)
	}
	if notes := repo.entries[entry.ID].CustomerNotes; notes == nil || *notes != "paid via zelle" {
		t.Fatal("original notes should be preserved")
	}
}

func TestDeclarePaidOnSettledEntry(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	entry, err := svc.Create(context.Background(), validInput(uuid.New()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.MarkPaid(context.Background(), entry.ID, enums.PaymentMethodCash, nil, time.Now().UTC()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = svc.DeclarePaid(context.Background(), entry.ID, "")
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestGetScopedToAccount(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	entry, err := svc.Create(context.Background(), validInput(uuid.New()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Get(context.Background(), uuid.New(), entry.ID)
	if err == nil {
		t.Fatal("expected not found for foreign account")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeletePendingOnly(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)
	accountID := uuid.New()

	entry, err := svc.Create(context.Background(), validInput(accountID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(context.Background(), accountID, entry.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paid, err := svc.Create(context.Background(), validInput(accountID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.MarkPaid(context.Background(), paid.ID, enums.PaymentMethodCard, nil, time.Now().UTC()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = svc.Delete(context.Background(), accountID, paid.ID)
	if err == nil {
		t.Fatal("expected paid entries to be immutable")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestDeleteDeclaredEntryRefused(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)
	accountID := uuid.New()

	entry, err := svc.Create(context.Background(), validInput(accountID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.DeclarePaid(context.Background(), entry.ID, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = svc.Delete(context.Background(), accountID, entry.ID)
	if err == nil {
		t.Fatal("expected state conflict for declared entry")
	}
}
