package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/moralesdev/fieldbill-backend/api/responses"
	"github.com/moralesdev/fieldbill-backend/api/validators"
	"github.com/moralesdev/fieldbill-backend/internal/invoices"
	"github.com/moralesdev/fieldbill-backend/pkg/logger"
)

type declareRequest struct {
	Notes string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// ViewInvoice resolves a capability token to the customer-facing invoice.
// The token is the only credential; there is no auth middleware here.
func ViewInvoice(svc *invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(chi.URLParam(r, "token"))
		view, err := svc.View(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// DeclareInvoicePaid records the payer's claim that the invoice is settled.
func DeclareInvoicePaid(svc *invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(chi.URLParam(r, "token"))

		// Notes are optional and so is the body itself.
		var req declareRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		if err := svc.Declare(r.Context(), token, req.Notes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "declared"})
	}
}
