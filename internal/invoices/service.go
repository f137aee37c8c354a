package invoices

import (
	"context"
	"time"

	"github.com/moralesdev/fieldbill-backend/internal/accounts"
	"github.com/moralesdev/fieldbill-backend/internal/channels/manual"
	"github.com/moralesdev/fieldbill-backend/internal/ledger"
	"github.com/moralesdev/fieldbill-backend/internal/paymentsettings"
	"github.com/moralesdev/fieldbill-backend/pkg/enums"
	pkgerrors "github.com/moralesdev/fieldbill-backend/pkg/errors"
)

// notFoundMessage is the single message returned for every unresolvable
// token. The public surface never distinguishes missing, malformed, or
// revoked tokens.
const notFoundMessage = "invoice not found or invalid"

// InvoiceView is the customer-facing projection of a ledger entry. It
// exposes no internal identifiers; the capability token is the only handle
// the payer ever holds.
type InvoiceView struct {
	BusinessName   string              `json:"business_name"`
	ContactEmail   *string             `json:"contact_email,omitempty"`
	ContactPhone   *string             `json:"contact_phone,omitempty"`
	Kind           enums.EntryKind     `json:"kind"`
	Status         enums.EntryStatus   `json:"status"`
	AmountCents    int64               `json:"amount_cents"`
	Description    *string             `json:"description,omitempty"`
	DueDate        time.Time           `json:"due_date"`
	PaidAt         *time.Time          `json:"paid_at,omitempty"`
	DeclaredPaid   bool                `json:"declared_paid"`
	DeclaredPaidAt *time.Time          `json:"declared_paid_at,omitempty"`
	PaymentLinkURL *string             `json:"payment_link_url,omitempty"`
	PaymentOptions []PaymentOptionView `json:"payment_options"`
}

// PaymentOptionView is one settlement method the owner accepts, with the
// handle the payer needs to send money outside the hosted link.
type PaymentOptionView struct {
	Method enums.PaymentMethod `json:"method"`
	Handle *string             `json:"handle,omitempty"`
}

// ServiceParams groups dependencies for the public invoice gateway.
type ServiceParams struct {
	Ledger   ledger.Service
	Accounts accounts.Repository
	Settings paymentsettings.Service
	Manual   *manual.Service
}

// Service is the unauthenticated invoice surface. Everything it does is
// scoped by capability token; it never accepts an account or entry id.
type Service struct {
	ledger   ledger.Service
	accounts accounts.Repository
	settings paymentsettings.Service
	manual   *manual.Service
}

// NewService wires the public invoice gateway.
func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "accounts repository required")
	}
	if params.Settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment settings service required")
	}
	if params.Manual == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "manual channel required")
	}
	return &Service{
		ledger:   params.Ledger,
		accounts: params.Accounts,
		settings: params.Settings,
		manual:   params.Manual,
	}, nil
}

// View resolves a capability token to the customer-facing invoice.
func (s *Service) View(ctx context.Context, token string) (*InvoiceView, error) {
	entry, err := s.ledger.GetByPublicToken(ctx, token)
	if err != nil {
		return nil, maskNotFound(err)
	}

	account, err := s.accounts.FindByID(ctx, entry.AccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	view := &InvoiceView{
		Kind:           entry.Kind,
		Status:         entry.Status,
		AmountCents:    entry.AmountCents,
		Description:    entry.Description,
		DueDate:        entry.DueDate,
		PaidAt:         entry.PaidAt,
		DeclaredPaid:   entry.CustomerMarkedPaid,
		DeclaredPaidAt: entry.CustomerPaidAt,
		PaymentLinkURL: entry.PaymentLinkURL,
		PaymentOptions: []PaymentOptionView{},
	}
	if account != nil {
		view.BusinessName = account.BusinessName
		view.ContactEmail = account.ContactEmail
		view.ContactPhone = account.ContactPhone
	}

	enabled, err := s.settings.ListEnabled(ctx, entry.AccountID)
	if err != nil {
		return nil, err
	}
	for _, setting := range enabled {
		view.PaymentOptions = append(view.PaymentOptions, PaymentOptionView{
			Method: setting.Method,
			Handle: setting.Handle,
		})
	}
	return view, nil
}

// Declare records the payer's claim that the invoice has been paid.
// Declaring an already-declared invoice succeeds silently; declaring a
// settled one is a state conflict.
func (s *Service) Declare(ctx context.Context, token, notes string) error {
	entry, err := s.ledger.GetByPublicToken(ctx, token)
	if err != nil {
		return maskNotFound(err)
	}
	return s.manual.DeclarePaid(ctx, entry.ID, notes)
}

// maskNotFound rewrites not-found errors so the public surface leaks
// nothing about why a token failed to resolve.
func maskNotFound(err error) error {
	if e := pkgerrors.As(err); e != nil && e.Code() == pkgerrors.CodeNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
	}
	return err
}
