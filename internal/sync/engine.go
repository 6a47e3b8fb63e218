// Package sync implements the per-user synchronization cycle and the
// sequential, rate-limited batch that runs it across all enrolled users.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/passforge/wallet-sync-server/internal/gym"
	"github.com/passforge/wallet-sync-server/internal/store"
	"github.com/passforge/wallet-sync-server/internal/telemetry"
	"github.com/passforge/wallet-sync-server/internal/wallet"
)

// CredentialEnsurer yields a valid access credential for a record, rotating
// and persisting it first when needed.
type CredentialEnsurer interface {
	EnsureValid(ctx context.Context, record *store.UserRecord) (string, error)
}

// Engine runs sync cycles.
//
//go:generate mockgen -destination=mocks/mock_engine.go -package=mocks github.com/passforge/wallet-sync-server/internal/sync Engine
type Engine interface {
	// SyncUser runs one cycle for a single record. The record is mutated and
	// persisted as the cycle progresses; failures never panic the caller.
	SyncUser(ctx context.Context, record *store.UserRecord) CycleResult

	// SyncAll runs one full batch over every enrolled user, strictly
	// sequentially, pacing between consecutive users. Per-user failures are
	// captured in the report and never abort the batch. The returned error is
	// reserved for batch-level failures such as an unreadable store.
	SyncAll(ctx context.Context) (*BatchReport, error)
}

type defaultEngine struct {
	store        store.Store
	credentials  CredentialEnsurer
	gymClient    gym.Client
	walletClient wallet.Client
	delayer      Delayer
	metrics      *telemetry.SyncMetrics
	now          func() time.Time
}

// Option configures the engine
type Option func(*defaultEngine)

// WithMetrics attaches sync metrics. Nil metrics are a no-op.
func WithMetrics(m *telemetry.SyncMetrics) Option {
	return func(e *defaultEngine) {
		e.metrics = m
	}
}

// WithClock overrides the time source (tests)
func WithClock(now func() time.Time) Option {
	return func(e *defaultEngine) {
		e.now = now
	}
}

// NewEngine creates a sync engine
func NewEngine(
	s store.Store,
	credentials CredentialEnsurer,
	gymClient gym.Client,
	walletClient wallet.Client,
	delayer Delayer,
	opts ...Option,
) Engine {
	e := &defaultEngine{
		store:        s,
		credentials:  credentials,
		gymClient:    gymClient,
		walletClient: walletClient,
		delayer:      delayer,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *defaultEngine) SyncUser(ctx context.Context, record *store.UserRecord) CycleResult {
	access, err := e.credentials.EnsureValid(ctx, record)
	if err != nil {
		return CycleResult{ID: record.ID, Outcome: OutcomeCredentialRefreshFailed, Err: err}
	}

	barcode, err := e.gymClient.MemberBarcode(ctx, access)
	if err != nil {
		return CycleResult{ID: record.ID, Outcome: OutcomeFetchFailed, Err: err}
	}

	if barcode.Value == record.LastKnownBarcode {
		record.LastSyncedAt = e.now()
		if err := e.store.PartialUpdate(ctx, record.ID, func(r *store.UserRecord) {
			r.LastSyncedAt = record.LastSyncedAt
		}); err != nil {
			return CycleResult{ID: record.ID, Outcome: OutcomeStoreWriteFailed, Err: err}
		}
		return CycleResult{ID: record.ID, Outcome: OutcomeSuccess}
	}

	slog.Info("Barcode changed, updating wallet pass", "user", record.ID)

	// Persist the new barcode before propagating so a crash mid-update cannot
	// lose the observation. A failed wallet update below leaves the store
	// ahead of the wallet until the barcode next changes.
	record.LastKnownBarcode = barcode.Value
	record.BarcodeExpiresAt = barcode.ExpiresAt
	if err := e.store.PartialUpdate(ctx, record.ID, func(r *store.UserRecord) {
		r.LastKnownBarcode = record.LastKnownBarcode
		r.BarcodeExpiresAt = record.BarcodeExpiresAt
	}); err != nil {
		return CycleResult{ID: record.ID, Outcome: OutcomeStoreWriteFailed, Err: err}
	}

	ref := e.walletClient.ObjectRef(record.ID)
	outcome := OutcomeSuccess
	if err := e.walletClient.UpdatePass(ctx, ref, record.DisplayName, barcode.Value); err != nil {
		if !errors.Is(err, wallet.ErrPassNotFound) {
			return CycleResult{ID: record.ID, Outcome: OutcomeWalletUpdateFailed, Err: err}
		}
		// The user never added the pass. Benign: the save URL embeds whatever
		// barcode is current when they eventually add it.
		outcome = OutcomeSkippedNotYetAdded
	} else {
		record.WalletObjectRef = ref
	}

	record.LastSyncedAt = e.now()
	if err := e.store.PartialUpdate(ctx, record.ID, func(r *store.UserRecord) {
		r.WalletObjectRef = record.WalletObjectRef
		r.LastSyncedAt = record.LastSyncedAt
	}); err != nil {
		return CycleResult{ID: record.ID, Outcome: OutcomeStoreWriteFailed, Err: err}
	}

	return CycleResult{ID: record.ID, Outcome: outcome}
}

func (e *defaultEngine) SyncAll(ctx context.Context) (*BatchReport, error) {
	records, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list user records: %w", err)
	}

	report := newBatchReport(e.now())
	slog.Info("Starting sync batch", "batch", report.ID, "users", len(records))

	for i, record := range records {
		if i > 0 {
			if err := e.delayer.Delay(ctx); err != nil {
				return nil, fmt.Errorf("sync batch canceled: %w", err)
			}
		}

		result := e.SyncUser(ctx, record)
		if result.Outcome.Failed() {
			slog.Error("Sync cycle failed", "batch", report.ID, "user", result.ID,
				"outcome", string(result.Outcome), "error", result.Err)
		}

		e.metrics.RecordCycleOutcome(ctx, string(result.Outcome))
		report.Results = append(report.Results, result)
	}

	report.CompletedAt = e.now()
	e.metrics.RecordBatchDuration(ctx, report.Duration(), report.Processed())

	slog.Info("Sync batch complete", "batch", report.ID,
		"processed", report.Processed(), "failures", report.Failures())
	return report, nil
}
