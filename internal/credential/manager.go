// Package credential manages the lifecycle of membership API access
// credentials: it rotates an access credential ahead of expiry using the
// long-lived refresh credential and persists the rotation before the new
// credential is handed to callers.
package credential

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/passforge/wallet-sync-server/internal/gym"
	"github.com/passforge/wallet-sync-server/internal/store"
)

// DefaultLookahead is how far ahead of expiry credentials are rotated
const DefaultLookahead = 10 * time.Minute

// RefreshError indicates the refresh credential was rejected or the auth
// provider was unreachable. It must not be retried within the same cycle;
// the next scheduled batch is the retry mechanism.
type RefreshError struct {
	ID  string
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("credential refresh failed for %s: %v", e.ID, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// Manager ensures a valid access credential before any upstream call
type Manager struct {
	store     store.Store
	gymClient gym.Client
	lookahead time.Duration
	now       func() time.Time
}

// Option configures the manager
type Option func(*Manager)

// WithLookahead overrides the rotation lookahead window
func WithLookahead(d time.Duration) Option {
	return func(m *Manager) {
		m.lookahead = d
	}
}

// WithClock overrides the time source (tests)
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a credential manager
func NewManager(s store.Store, gymClient gym.Client, opts ...Option) *Manager {
	m := &Manager{
		store:     s,
		gymClient: gymClient,
		lookahead: DefaultLookahead,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureValid returns an access credential valid for at least the lookahead
// window. When the stored credential is close to expiry it exchanges the
// refresh credential for a new pair and persists the rotated triple on the
// record BEFORE returning, so a crash after the exchange cannot lose the
// rotation. The passed record is updated in place on rotation.
func (m *Manager) EnsureValid(ctx context.Context, record *store.UserRecord) (string, error) {
	deadline := m.now().Add(m.lookahead)
	if record.CredentialExpiresAt.After(deadline) {
		return record.AccessCredential, nil
	}

	slog.Info("Rotating access credential", "user", record.ID)

	pair, err := m.gymClient.Refresh(ctx, record.RefreshCredential)
	if err != nil {
		return "", &RefreshError{ID: record.ID, Err: err}
	}

	record.AccessCredential = pair.Access
	record.RefreshCredential = pair.Refresh
	record.CredentialExpiresAt = pair.ExpiresAt

	// Persist before returning: the old refresh credential may already be
	// invalidated by the exchange.
	if err := m.store.Upsert(ctx, record); err != nil {
		return "", &RefreshError{ID: record.ID, Err: fmt.Errorf("failed to persist rotated credentials: %w", err)}
	}

	return pair.Access, nil
}
