package settlement

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moralesdev/fieldbill-backend/internal/ledger"
	"github.com/moralesdev/fieldbill-backend/pkg/db/models"
	"github.com/moralesdev/fieldbill-backend/pkg/enums"
	pkgerrors "github.com/moralesdev/fieldbill-backend/pkg/errors"
	"github.com/moralesdev/fieldbill-backend/pkg/logger"
	"github.com/moralesdev/fieldbill-backend/pkg/metrics"
)

// Outcome reports whether a settlement signal performed the pending->paid
// transition. Applied=false is the defined result of a duplicate or lost
// race, not an error.
type Outcome struct {
	Applied bool
	Entry   *models.LedgerEntry
}

// Coordinator is the single choke point through which every path to paid
// passes. Signals for the same entry serialize on a per-entry mutex; the
// storage compare-and-swap remains authoritative, so correctness holds even
// across processes.
type Coordinator struct {
	repo    ledger.Repository
	metrics *metrics.SettlementMetrics
	logg    *logger.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// CoordinatorParams groups dependencies for the coordinator.
type CoordinatorParams struct {
	Repo    ledger.Repository
	Metrics *metrics.SettlementMetrics
	Logger  *logger.Logger
}

// NewCoordinator wires a settlement coordinator.
func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repo required")
	}
	return &Coordinator{
		repo:    params.Repo,
		metrics: params.Metrics,
		logg:    params.Logger,
		locks:   map[uuid.UUID]*entryLock{},
	}, nil
}

// MarkPaid attempts the pending->paid transition for the entry. The first
// caller to observe a pending entry wins and writes the settlement evidence
// atomically; every other caller gets Applied=false with the unchanged row.
func (c *Coordinator) MarkPaid(ctx context.Context, entryID uuid.UUID, method enums.PaymentMethod, metadata json.RawMessage, channel string) (Outcome, error) {
	if entryID == uuid.Nil {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "entry id is required")
	}
	if !method.IsValid() {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	unlock := c.lock(entryID)
	defer unlock()

	applied, err := c.repo.MarkPaid(ctx, entryID, method, metadata, time.Now().UTC())
	if err != nil {
		return Outcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist settlement")
	}

	entry, err := c.repo.FindByID(ctx, entryID)
	if err != nil {
		return Outcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload ledger entry")
	}
	if entry == nil {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
	}

	if applied {
		c.metrics.IncApplied(channel)
		if c.logg != nil {
			fields := map[string]any{
				"entry_id": entryID.String(),
				"channel":  channel,
				"method":   method.String(),
			}
			c.logg.Info(c.logg.WithFields(ctx, fields), "ledger entry settled")
		}
	} else {
		c.metrics.IncDuplicate(channel)
	}

	return Outcome{Applied: applied, Entry: entry}, nil
}

// lock serializes callers per entry id. The map entry is reference counted
// so it is released once the last waiter leaves.
func (c *Coordinator) lock(id uuid.UUID) func() {
	c.mu.Lock()
	el, ok := c.locks[id]
	if !ok {
		el = &entryLock{}
		c.locks[id] = el
	}
	el.refs++
	c.mu.Unlock()

	el.mu.Lock()
	return func() {
		el.mu.Unlock()
		c.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(c.locks, id)
		}
		c.mu.Unlock()
	}
}
