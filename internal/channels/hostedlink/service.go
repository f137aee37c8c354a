package hostedlink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/moralesdev/fieldbill-backend/internal/ledger"
	"github.com/moralesdev/fieldbill-backend/internal/settlement"
	"github.com/moralesdev/fieldbill-backend/pkg/enums"
	pkgerrors "github.com/moralesdev/fieldbill-backend/pkg/errors"
	"github.com/moralesdev/fieldbill-backend/pkg/logger"
	"github.com/moralesdev/fieldbill-backend/pkg/metrics"
	"github.com/moralesdev/fieldbill-backend/pkg/square"
)

// ChannelName labels hosted-link settlements in metrics and metadata.
const ChannelName = "hosted_link"

type linkCreator interface {
	CreatePaymentLink(ctx context.Context, params square.PaymentLinkCreateParams) (*sq.PaymentLink, error)
}

type coordinator interface {
	MarkPaid(ctx context.Context, entryID uuid.UUID, method enums.PaymentMethod, metadata json.RawMessage, channel string) (settlement.Outcome, error)
}

// ServiceParams groups dependencies for the hosted-link channel.
type ServiceParams struct {
	Ledger      ledger.Service
	Repo        ledger.Repository
	Coordinator coordinator
	Square      linkCreator // nil when the processor is not configured
	Metrics     *metrics.SettlementMetrics
	Logger      *logger.Logger
	LinkTimeout time.Duration
}

// Service drives settlement through hosted Square payment links: link
// creation on the way out, webhook completion events on the way back.
type Service struct {
	ledger      ledger.Service
	repo        ledger.Repository
	coordinator coordinator
	square      linkCreator
	metrics     *metrics.SettlementMetrics
	logg        *logger.Logger
	linkTimeout time.Duration
}

// NewService wires the hosted-link channel adapter.
func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repo required")
	}
	if params.Coordinator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement coordinator required")
	}
	timeout := params.LinkTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		ledger:      params.Ledger,
		repo:        params.Repo,
		coordinator: params.Coordinator,
		square:      params.Square,
		metrics:     params.Metrics,
		logg:        params.Logger,
		linkTimeout: timeout,
	}, nil
}

// Link is the hosted checkout handle returned to the owner.
type Link struct {
	LinkID string `json:"link_id"`
	URL    string `json:"url"`
}

// CreateLink requests a hosted payment link for a pending entry. Retries are
// safe: an entry that already carries a link gets the stored one back, and
// the processor idempotency key is derived from the entry id.
func (s *Service) CreateLink(ctx context.Context, accountID, entryID uuid.UUID) (*Link, error) {
	entry, err := s.ledger.Get(ctx, accountID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.IsPaid() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "entry is already settled")
	}
	if entry.PaymentLinkID != nil && entry.PaymentLinkURL != nil {
		return &Link{LinkID: *entry.PaymentLinkID, URL: *entry.PaymentLinkURL}, nil
	}
	if s.square == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "hosted payment channel is not configured")
	}

	description := ""
	if entry.Description != nil {
		description = *entry.Description
	}

	linkCtx, cancel := context.WithTimeout(ctx, s.linkTimeout)
	defer cancel()

	created, err := s.square.CreatePaymentLink(linkCtx, square.PaymentLinkCreateParams{
		AmountCents:    entry.AmountCents,
		Currency:       "USD",
		Name:           fmt.Sprintf("Invoice due %s", entry.DueDate.Format("2006-01-02")),
		Description:    description,
		ReferenceID:    entry.ID.String(),
		IdempotencyKey: fmt.Sprintf("link-%s", entry.ID),
	})
	if err != nil {
		// The entry stays pending with no link stored; the owner may retry.
		return nil, err
	}

	linkID := stringValue(created.GetID())
	linkURL := stringValue(created.GetURL())
	if linkID == "" || linkURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "processor returned an incomplete payment link")
	}
	if err := s.repo.SetPaymentLink(ctx, entry.ID, linkID, linkURL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment link")
	}
	return &Link{LinkID: linkID, URL: linkURL}, nil
}

// HandleEvent processes a processor payment event. Malformed or unresolvable
// events are logged and discarded; they must never crash the process or
// mutate state. Duplicate completion events land on an already-paid entry
// and come back as a safe no-op.
func (s *Service) HandleEvent(ctx context.Context, event *PaymentWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment event required")
	}

	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
	default:
		return nil
	}

	payment := event.Data.Object.Payment
	if payment == nil {
		s.discard(ctx, event.EventID, "missing_payment")
		return nil
	}
	if !strings.EqualFold(payment.Status, "COMPLETED") {
		return nil
	}

	entryID, ok := s.resolveEntryID(payment)
	if !ok {
		s.discard(ctx, event.EventID, "unresolvable_reference")
		return nil
	}

	method := classifyMethod(payment.MethodDetails)
	metadata, err := json.Marshal(map[string]any{
		"channel":     ChannelName,
		"processor":   "square",
		"payment_id":  payment.ID,
		"event_id":    event.EventID,
		"source_type": payment.SourceType,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode settlement metadata")
	}

	outcome, err := s.coordinator.MarkPaid(ctx, entryID, method, metadata, ChannelName)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			s.discard(ctx, event.EventID, "unknown_entry")
			return nil
		}
		return err
	}
	if !outcome.Applied && s.logg != nil {
		fields := map[string]any{"entry_id": entryID.String(), "event_id": event.EventID}
		s.logg.Info(s.logg.WithFields(ctx, fields), "duplicate payment event ignored")
	}
	return nil
}

func (s *Service) resolveEntryID(payment *PaymentPayload) (uuid.UUID, bool) {
	for _, candidate := range []string{payment.Note, payment.ReferenceID} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			if id, err := uuid.Parse(trimmed); err == nil {
				return id, true
			}
		}
	}
	return uuid.Nil, false
}

func (s *Service) discard(ctx context.Context, eventID, reason string) {
	s.metrics.IncDiscarded(reason)
	if s.logg != nil {
		fields := map[string]any{"event_id": eventID, "reason": reason}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "payment event discarded")
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
