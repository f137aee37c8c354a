package ledger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/moralesdev/fieldbill-backend/pkg/db"
	"github.com/moralesdev/fieldbill-backend/pkg/db/models"
	"github.com/moralesdev/fieldbill-backend/pkg/enums"
)

const ledgerSchema = `
CREATE TABLE ledger_entries (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	appointment_id TEXT,
	kind TEXT NOT NULL,
	amount_cents INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	description TEXT,
	due_date DATE NOT NULL,
	paid_at DATETIME,
	method TEXT,
	settlement_metadata TEXT,
	customer_marked_paid BOOLEAN NOT NULL DEFAULT FALSE,
	customer_paid_at DATETIME,
	customer_notes TEXT,
	payment_link_id TEXT,
	payment_link_url TEXT,
	public_token TEXT NOT NULL,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE UNIQUE INDEX idx_ledger_entries_appointment_id ON ledger_entries (appointment_id) WHERE appointment_id IS NOT NULL;
CREATE UNIQUE INDEX idx_ledger_entries_public_token ON ledger_entries (public_token);
`

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.Exec("DROP TABLE IF EXISTS ledger_entries").Error)
	require.NoError(t, conn.Exec(ledgerSchema).Error)
	return conn
}

func seedEntry(t *testing.T, repo Repository, mutate func(*models.LedgerEntry)) *models.LedgerEntry {
	t.Helper()
	entry := &models.LedgerEntry{
		ID:          uuid.New(),
		AccountID:   uuid.New(),
		Kind:        enums.EntryKindRevenue,
		AmountCents: 15000,
		Status:      enums.EntryStatusPending,
		DueDate:     time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		PublicToken: uuid.NewString(),
	}
	if mutate != nil {
		mutate(entry)
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	return entry
}

func TestMarkPaidCompareAndSwap(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	entry := seedEntry(t, repo, nil)
	metadata := json.RawMessage(`{"channel":"manual"}`)
	paidAt := time.Now().UTC().Truncate(time.Second)

	applied, err := repo.MarkPaid(context.Background(), entry.ID, enums.PaymentMethodZelle, metadata, paidAt)
	require.NoError(t, err)
	require.True(t, applied)

	// The second signal loses the CAS and must not touch the row.
	applied, err = repo.MarkPaid(context.Background(), entry.ID, enums.PaymentMethodCard, json.RawMessage(`{"channel":"hosted_link"}`), time.Now().UTC())
	require.NoError(t, err)
	require.False(t, applied)

	stored, err := repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Equal(t, enums.EntryStatusPaid, stored.Status)
	require.NotNil(t, stored.Method)
	require.Equal(t, enums.PaymentMethodZelle, *stored.Method)
	require.NotNil(t, stored.PaidAt)
	require.Equal(t, paidAt.Unix(), stored.PaidAt.Unix())
}

func TestMarkPaidClearsDeclaration(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	entry := seedEntry(t, repo, nil)

	ok, err := repo.SetDeclared(context.Background(), entry.ID, time.Now().UTC(), nil)
	require.NoError(t, err)
	require.True(t, ok)

	applied, err := repo.MarkPaid(context.Background(), entry.ID, enums.PaymentMethodCash, nil, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, applied)

	stored, err := repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	require.False(t, stored.CustomerMarkedPaid)
}

func TestSetDeclaredKeepsFirstTimestamp(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	entry := seedEntry(t, repo, nil)
	first := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	ok, err := repo.SetDeclared(context.Background(), entry.ID, first, nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.SetDeclared(context.Background(), entry.ID, first.Add(time.Hour), nil)
	require.NoError(t, err)
	require.False(t, ok)

	stored, err := repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Equal(t, first.Unix(), stored.CustomerPaidAt.Unix())
}

func TestCreateDuplicateAppointmentHitsUniqueIndex(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	appointmentID := uuid.New()
	seedEntry(t, repo, func(e *models.LedgerEntry) { e.AppointmentID = &appointmentID })

	dup := &models.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     uuid.New(),
		AppointmentID: &appointmentID,
		Kind:          enums.EntryKindRevenue,
		AmountCents:   5000,
		Status:        enums.EntryStatusPending,
		DueDate:       time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC),
		PublicToken:   uuid.NewString(),
	}
	err := repo.Create(context.Background(), dup)
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, "idx_ledger_entries_appointment_id"))
}

func TestDeletePendingRefusesSettlementAttempts(t *testing.T) {
	repo := NewRepository(openTestDB(t))

	linked := seedEntry(t, repo, nil)
	require.NoError(t, repo.SetPaymentLink(context.Background(), linked.ID, "plink_1", "https://square.link/abc"))
	ok, err := repo.DeletePending(context.Background(), linked.ID)
	require.NoError(t, err)
	require.False(t, ok)

	clean := seedEntry(t, repo, nil)
	ok, err = repo.DeletePending(context.Background(), clean.ID)
	require.NoError(t, err)
	require.True(t, ok)

	gone, err := repo.FindByID(context.Background(), clean.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestFindByPublicToken(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	entry := seedEntry(t, repo, nil)

	found, err := repo.FindByPublicToken(context.Background(), entry.PublicToken)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, entry.ID, found.ID)

	missing, err := repo.FindByPublicToken(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}
