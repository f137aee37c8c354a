package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/moralesdev/fieldbill-backend/pkg/enums"
)

// LedgerEntry is the invoice/transaction record tracked by the settlement
// engine. Status moves pending -> paid exactly once; paid rows are
// append-only audit records and are never deleted.
type LedgerEntry struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID     uuid.UUID         `gorm:"column:account_id;type:uuid;not null;index"`
	AppointmentID *uuid.UUID        `gorm:"column:appointment_id;type:uuid;uniqueIndex:idx_ledger_entries_appointment_id"`
	Kind          enums.EntryKind   `gorm:"column:kind;type:entry_kind;not null"`
	AmountCents   int64             `gorm:"column:amount_cents;not null"`
	Status        enums.EntryStatus `gorm:"column:status;type:entry_status;not null;default:'pending'"`
	Description   *string           `gorm:"column:description"`
	DueDate       time.Time         `gorm:"column:due_date;type:date;not null"`

	// Settlement evidence, written once by the coordinator.
	PaidAt             *time.Time           `gorm:"column:paid_at"`
	Method             *enums.PaymentMethod `gorm:"column:method;type:payment_method"`
	SettlementMetadata json.RawMessage      `gorm:"column:settlement_metadata;type:jsonb"`

	// Payer declaration, advisory and meaningful only while pending.
	CustomerMarkedPaid bool       `gorm:"column:customer_marked_paid;not null;default:false"`
	CustomerPaidAt     *time.Time `gorm:"column:customer_paid_at"`
	CustomerNotes      *string    `gorm:"column:customer_notes"`

	// Hosted payment link, stored before settlement when the hosted channel is used.
	PaymentLinkID  *string `gorm:"column:payment_link_id"`
	PaymentLinkURL *string `gorm:"column:payment_link_url"`

	PublicToken string `gorm:"column:public_token;not null;uniqueIndex:idx_ledger_entries_public_token"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPaid reports whether the entry has reached its terminal state.
func (e *LedgerEntry) IsPaid() bool {
	return e != nil && e.Status == enums.EntryStatusPaid
}
