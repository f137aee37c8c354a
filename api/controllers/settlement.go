package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/moralesdev/fieldbill-backend/api/middleware"
	"github.com/moralesdev/fieldbill-backend/api/responses"
	"github.com/moralesdev/fieldbill-backend/api/validators"
	"github.com/moralesdev/fieldbill-backend/internal/channels/hostedlink"
	"github.com/moralesdev/fieldbill-backend/internal/channels/manual"
	"github.com/moralesdev/fieldbill-backend/internal/fees"
	"github.com/moralesdev/fieldbill-backend/internal/ledger"
	"github.com/moralesdev/fieldbill-backend/internal/settlement"
	"github.com/moralesdev/fieldbill-backend/pkg/db/models"
	"github.com/moralesdev/fieldbill-backend/pkg/enums"
	pkgerrors "github.com/moralesdev/fieldbill-backend/pkg/errors"
	"github.com/moralesdev/fieldbill-backend/pkg/logger"
)

const dueDateLayout = "2006-01-02"

type createEntryRequest struct {
	AppointmentID *string `json:"appointment_id,omitempty" validate:"omitempty,uuid"`
	Kind          string  `json:"kind" validate:"required,oneof=revenue expense"`
	AmountCents   int64   `json:"amount_cents" validate:"required,gt=0"`
	DueDate       string  `json:"due_date" validate:"required"`
	Description   string  `json:"description,omitempty" validate:"omitempty,max=500"`
}

type createLinkRequest struct {
	EntryID string `json:"entry_id" validate:"required,uuid"`
}

type confirmEntryRequest struct {
	Method string `json:"method" validate:"required"`
}

type quoteFeeRequest struct {
	HelperID   string `json:"helper_id" validate:"required,uuid"`
	PriceCents int64  `json:"price_cents" validate:"required,gt=0"`
}

type entryResponse struct {
	ID                 uuid.UUID  `json:"id"`
	AppointmentID      *uuid.UUID `json:"appointment_id,omitempty"`
	Kind               string     `json:"kind"`
	Status             string     `json:"status"`
	AmountCents        int64      `json:"amount_cents"`
	Description        *string    `json:"description,omitempty"`
	DueDate            string     `json:"due_date"`
	PaidAt             *time.Time `json:"paid_at,omitempty"`
	Method             *string    `json:"method,omitempty"`
	CustomerMarkedPaid bool       `json:"customer_marked_paid"`
	CustomerPaidAt     *time.Time `json:"customer_paid_at,omitempty"`
	CustomerNotes      *string    `json:"customer_notes,omitempty"`
	PaymentLinkURL     *string    `json:"payment_link_url,omitempty"`
	PublicToken        string     `json:"public_token"`
	CreatedAt          time.Time  `json:"created_at"`
}

type confirmResponse struct {
	Applied bool          `json:"applied"`
	Entry   entryResponse `json:"entry"`
}

func toEntryResponse(entry *models.LedgerEntry) entryResponse {
	resp := entryResponse{
		ID:                 entry.ID,
		AppointmentID:      entry.AppointmentID,
		Kind:               entry.Kind.String(),
		Status:             entry.Status.String(),
		AmountCents:        entry.AmountCents,
		Description:        entry.Description,
		DueDate:            entry.DueDate.Format(dueDateLayout),
		PaidAt:             entry.PaidAt,
		CustomerMarkedPaid: entry.CustomerMarkedPaid,
		CustomerPaidAt:     entry.CustomerPaidAt,
		CustomerNotes:      entry.CustomerNotes,
		PaymentLinkURL:     entry.PaymentLinkURL,
		PublicToken:        entry.PublicToken,
		CreatedAt:          entry.CreatedAt,
	}
	if entry.Method != nil {
		method := entry.Method.String()
		resp.Method = &method
	}
	return resp
}

// CreateEntry registers a ledger entry for settlement tracking. Creation is
// idempotent per appointment: a retried request gets a conflict that carries
// the appointment id, never a second entry.
func CreateEntry(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := requireAccount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createEntryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseEntryKind(req.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entry kind"))
			return
		}
		dueDate, err := time.Parse(dueDateLayout, req.DueDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid due date"))
			return
		}

		input := ledger.CreateEntryInput{
			AccountID:   accountID,
			Kind:        kind,
			AmountCents: req.AmountCents,
			DueDate:     dueDate,
			Description: req.Description,
		}
		if req.AppointmentID != nil {
			appointmentID, parseErr := uuid.Parse(*req.AppointmentID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid appointment id"))
				return
			}
			input.AppointmentID = &appointmentID
		}

		entry, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toEntryResponse(entry))
	}
}

// ListEntries returns the account's ledger, newest first.
func ListEntries(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := requireAccount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.List(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]entryResponse, 0, len(entries))
		for i := range entries {
			out = append(out, toEntryResponse(&entries[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// GetEntry returns one ledger entry owned by the account.
func GetEntry(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := requireAccount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entryID, err := parseEntryID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Get(r.Context(), accountID, entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toEntryResponse(entry))
	}
}

// DeleteEntry removes a pending entry with no settlement attempt attached.
func DeleteEntry(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := requireAccount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entryID, err := parseEntryID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), accountID, entryID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// CreateLink requests a hosted payment link for a pending entry.
func CreateLink(svc *hostedlink.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := requireAccount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createLinkRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entryID, err := uuid.Parse(req.EntryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entry id"))
			return
		}

		link, err := svc.CreateLink(r.Context(), accountID, entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, link)
	}
}

// ConfirmEntry settles an entry through the manual channel with the method
// the owner vouches for.
func ConfirmEntry(svc *manual.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := requireAccount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entryID, err := parseEntryID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req confirmEntryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(req.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		outcome, err := svc.Confirm(r.Context(), accountID, entryID, method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOutcome(w, outcome)
	}
}

// QuoteFee prices a helper's cut from the stored payout policy.
func QuoteFee(svc fees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := requireAccount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req quoteFeeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		helperID, err := uuid.Parse(req.HelperID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid helper id"))
			return
		}

		quote, err := svc.QuoteFee(r.Context(), accountID, helperID, req.PriceCents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func writeOutcome(w http.ResponseWriter, outcome settlement.Outcome) {
	responses.WriteSuccess(w, confirmResponse{
		Applied: outcome.Applied,
		Entry:   toEntryResponse(outcome.Entry),
	})
}

func requireAccount(ctx context.Context) (uuid.UUID, error) {
	accountID := middleware.AccountIDFromContext(ctx)
	if accountID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing account context")
	}
	return accountID, nil
}

func parseEntryID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "entryId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entry id")
	}
	return id, nil
}
