package hostedlink

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/moralesdev/fieldbill-backend/internal/ledger"
	"github.com/moralesdev/fieldbill-backend/internal/settlement"
	"github.com/moralesdev/fieldbill-backend/pkg/db/models"
	"github.com/moralesdev/fieldbill-backend/pkg/enums"
	pkgerrors "github.com/moralesdev/fieldbill-backend/pkg/errors"
	"github.com/moralesdev/fieldbill-backend/pkg/square"
)

type markPaidCall struct {
	entryID uuid.UUID
	method  enums.PaymentMethod
	channel string
}

type fakeCoordinator struct {
	outcome settlement.Outcome
	err     error
	calls   []markPaidCall
}

func (f *fakeCoordinator) MarkPaid(_ context.Context, entryID uuid.UUID, method enums.PaymentMethod, _ json.RawMessage, channel string) (settlement.Outcome, error) {
	f.calls = append(f.calls, markPaidCall{entryID: entryID, method: method, channel: channel})
	return f.outcome, f.err
}

type fakeLedger struct {
	entry *models.LedgerEntry
	err   error
}

func (f *fakeLedger) Create(_ context.Context, _ ledger.CreateEntryInput) (*models.LedgerEntry, error) {
	return nil, nil
}

func (f *fakeLedger) Get(_ context.Context, _, _ uuid.UUID) (*models.LedgerEntry, error) {
	return f.entry, f.err
}

func (f *fakeLedger) GetByPublicToken(_ context.Context, _ string) (*models.LedgerEntry, error) {
	return f.entry, f.err
}

func (f *fakeLedger) List(_ context.Context, _ uuid.UUID) ([]models.LedgerEntry, error) {
	return nil, nil
}

func (f *fakeLedger) DeclarePaid(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func (f *fakeLedger) Delete(_ context.Context, _, _ uuid.UUID) error { return nil }

type fakeRepo struct {
	linkID  string
	linkURL string
}

func (f *fakeRepo) Create(_ context.Context, _ *models.LedgerEntry) error {
	return nil
}
func (f *fakeRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.LedgerEntry, error) {
	return nil, nil
}
func (f *fakeRepo) FindByAppointmentID(_ context.Context, _ uuid.UUID) (*models.LedgerEntry, error) {
	return nil, nil
}
func (f *fakeRepo) FindByPublicToken(_ context.Context, _ string) (*models.LedgerEntry, error) {
	return nil, nil
}
func (f *fakeRepo) ListByAccountID(_ context.Context, _ uuid.UUID) ([]models.LedgerEntry, error) {
	return nil, nil
}
func (f *fakeRepo) MarkPaid(_ context.Context, _ uuid.UUID, _ enums.PaymentMethod, _ json.RawMessage, _ time.Time) (bool, error) {
	return false, nil
}
func (f *fakeRepo) SetDeclared(_ context.Context, _ uuid.UUID, _ time.Time, _ *string) (bool, error) {
	return false, nil
}
func (f *fakeRepo) SetPaymentLink(_ context.Context, _ uuid.UUID, linkID, linkURL string) error {
	f.linkID = linkID
	f.linkURL = linkURL
	return nil
}
func (f *fakeRepo) DeletePending(_ context.Context, _ uuid.UUID) (bool, error) { return false, nil }

type fakeLinkCreator struct {
	link   *sq.PaymentLink
	err    error
	params square.PaymentLinkCreateParams
	calls  int
}

func (f *fakeLinkCreator) CreatePaymentLink(_ context.Context, params square.PaymentLinkCreateParams) (*sq.PaymentLink, error) {
	f.calls++
	f.params = params
	return f.link, f.err
}

func strPtr(v string) *string { return &v }

func pendingEntry() *models.LedgerEntry {
	return &models.LedgerEntry{
		ID:          uuid.New(),
		AccountID:   uuid.New(),
		Kind:        enums.EntryKindRevenue,
		AmountCents: 15000,
		Status:      enums.EntryStatusPending,
		DueDate:     time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		PublicToken: uuid.NewString(),
	}
}

func newTestService(t *testing.T, params ServiceParams) *Service {
	t.Helper()
	if params.Ledger == nil {
		params.Ledger = &fakeLedger{}
	}
	if params.Repo == nil {
		params.Repo = &fakeRepo{}
	}
	if params.Coordinator == nil {
		params.Coordinator = &fakeCoordinator{}
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func completedEvent(entryID uuid.UUID, details []PaymentMethodDetail) *PaymentWebhookEvent {
	return &PaymentWebhookEvent{
		EventID: uuid.NewString(),
		Type:    "payment.updated",
		Data: PaymentWebhookData{
			Type: "payment",
			ID:   "pay_123",
			Object: PaymentWebhookObject{
				Payment: &PaymentPayload{
					ID:            "pay_123",
					Status:        "COMPLETED",
					Note:          entryID.String(),
					SourceType:    "WALLET",
					MethodDetails: details,
				},
			},
		},
	}
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	coord := &fakeCoordinator{}
	svc := newTestService(t, ServiceParams{Coordinator: coord})

	event := completedEvent(uuid.New(), nil)
	event.Type = "refund.created"
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(coord.calls) != 0 {
		t.Fatal("ignored event type must not reach the coordinator")
	}
}

func TestHandleEventIgnoresIncompletePayments(t *testing.T) {
	coord := &fakeCoordinator{}
	svc := newTestService(t, ServiceParams{Coordinator: coord})

	event := completedEvent(uuid.New(), nil)
	event.Data.Object.Payment.Status = "PENDING"
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(coord.calls) != 0 {
		t.Fatal("incomplete payment must not reach the coordinator")
	}
}

func TestHandleEventUnresolvableReference(t *testing.T) {
	coord := &fakeCoordinator{}
	svc := newTestService(t, ServiceParams{Coordinator: coord})

	event := completedEvent(uuid.New(), nil)
	event.Data.Object.Payment.Note = "thanks for the great work"
	event.Data.Object.Payment.ReferenceID = ""

	// Discarded events acknowledge cleanly so the processor stops retrying.
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected discard, got %v", err)
	}
	if len(coord.calls) != 0 {
		t.Fatal("unresolvable event must not reach the coordinator")
	}
}

func TestHandleEventSettlesEntry(t *testing.T) {
	entryID := uuid.New()
	coord := &fakeCoordinator{outcome: settlement.Outcome{Applied: true}}
	svc := newTestService(t, ServiceParams{Coordinator: coord})

	details := []PaymentMethodDetail{{Type: "WALLET", Brand: "CASH_APP"}}
	if err := svc.HandleEvent(context.Background(), completedEvent(entryID, details)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(coord.calls) != 1 {
		t.Fatalf("expected one coordinator call, got %d", len(coord.calls))
	}
	call := coord.calls[0]
	if call.entryID != entryID {
		t.Fatalf("wrong entry id: %s", call.entryID)
	}
	if call.method != enums.PaymentMethodCashApp {
		t.Fatalf("expected cash_app, got %s", call.method)
	}
	if call.channel != ChannelName {
		t.Fatalf("expected %s channel, got %s", ChannelName, call.channel)
	}
}

func TestHandleEventDuplicateIsNoOp(t *testing.T) {
	coord := &fakeCoordinator{outcome: settlement.Outcome{Applied: false, Entry: pendingEntry()}}
	svc := newTestService(t, ServiceParams{Coordinator: coord})

	if err := svc.HandleEvent(context.Background(), completedEvent(uuid.New(), nil)); err != nil {
		t.Fatalf("duplicate delivery must not error: %v", err)
	}
}

func TestHandleEventUnknownEntryDiscarded(t *testing.T) {
	coord := &fakeCoordinator{err: pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")}
	svc := newTestService(t, ServiceParams{Coordinator: coord})

	if err := svc.HandleEvent(context.Background(), completedEvent(uuid.New(), nil)); err != nil {
		t.Fatalf("unknown entry must be discarded, got %v", err)
	}
}

func TestClassifyMethodPrecedence(t *testing.T) {
	cases := []struct {
		name    string
		details []PaymentMethodDetail
		want    enums.PaymentMethod
	}{
		{"empty defaults to card", nil, enums.PaymentMethodCard},
		{"card", []PaymentMethodDetail{{Type: "CARD", Brand: "VISA"}}, enums.PaymentMethodCard},
		{"bank transfer", []PaymentMethodDetail{{Type: "BANK_TRANSFER"}}, enums.PaymentMethodACH},
		{"wallet venmo", []PaymentMethodDetail{{Type: "WALLET", Brand: "VENMO"}}, enums.PaymentMethodVenmo},
		{"wallet zelle", []PaymentMethodDetail{{Type: "WALLET", Brand: "ZELLE"}}, enums.PaymentMethodZelle},
		{"unknown wallet brand falls back to card", []PaymentMethodDetail{{Type: "WALLET", Brand: "OTHER"}}, enums.PaymentMethodCard},
		{
			"bank beats wallet beats card",
			[]PaymentMethodDetail{
				{Type: "CARD", Brand: "VISA"},
				{Type: "WALLET", Brand: "CASH_APP"},
				{Type: "ACH"},
			},
			enums.PaymentMethodACH,
		},
	}
	for _, tc := range cases {
		if got := classifyMethod(tc.details); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestCreateLinkUnconfigured(t *testing.T) {
	entry := pendingEntry()
	svc := newTestService(t, ServiceParams{Ledger: &fakeLedger{entry: entry}})

	_, err := svc.CreateLink(context.Background(), entry.AccountID, entry.ID)
	if err == nil {
		t.Fatal("expected dependency error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCreateLinkReturnsExistingLink(t *testing.T) {
	entry := pendingEntry()
	entry.PaymentLinkID = strPtr("plink_1")
	entry.PaymentLinkURL = strPtr("https://square.link/abc")
	creator := &fakeLinkCreator{}
	svc := newTestService(t, ServiceParams{Ledger: &fakeLedger{entry: entry}, Square: creator})

	link, err := svc.CreateLink(context.Background(), entry.AccountID, entry.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.LinkID != "plink_1" || link.URL != "https://square.link/abc" {
		t.Fatalf("expected stored link back, got %+v", link)
	}
	if creator.calls != 0 {
		t.Fatal("existing link must not hit the processor again")
	}
}

func TestCreateLinkOnSettledEntry(t *testing.T) {
	entry := pendingEntry()
	entry.Status = enums.EntryStatusPaid
	svc := newTestService(t, ServiceParams{Ledger: &fakeLedger{entry: entry}, Square: &fakeLinkCreator{}})

	_, err := svc.CreateLink(context.Background(), entry.AccountID, entry.ID)
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCreateLinkStoresProcessorLink(t *testing.T) {
	entry := pendingEntry()
	repo := &fakeRepo{}
	creator := &fakeLinkCreator{
		link: &sq.PaymentLink{ID: strPtr("plink_2"), URL: strPtr("https://square.link/xyz")},
	}
	svc := newTestService(t, ServiceParams{Ledger: &fakeLedger{entry: entry}, Repo: repo, Square: creator})

	link, err := svc.CreateLink(context.Background(), entry.AccountID, entry.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.LinkID != "plink_2" {
		t.Fatalf("unexpected link id %s", link.LinkID)
	}
	if repo.linkID != "plink_2" || repo.linkURL != "https://square.link/xyz" {
		t.Fatal("link not persisted on the entry")
	}
	if creator.params.ReferenceID != entry.ID.String() {
		t.Fatalf("reference must carry the entry id, got %s", creator.params.ReferenceID)
	}
	if creator.params.IdempotencyKey == "" {
		t.Fatal("idempotency key must be derived for retries")
	}
}
