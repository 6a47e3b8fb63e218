// Package enrollment implements the sign-up flow: exchange membership
// credentials for API tokens, capture the initial barcode, persist the user
// record, and hand back a signed add-to-wallet URL.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/passforge/wallet-sync-server/internal/gym"
	"github.com/passforge/wallet-sync-server/internal/store"
	"github.com/passforge/wallet-sync-server/internal/wallet"
)

// ErrMissingCredentials is returned when email or PIN is empty
var ErrMissingCredentials = errors.New("email and pin are required")

// Result is what a successful enrollment returns to the caller
type Result struct {
	// ID is the normalized record ID
	ID string `json:"id"`

	// DisplayName is the member name shown on the pass
	DisplayName string `json:"display_name"`

	// SaveURL is the signed add-to-wallet link
	SaveURL string `json:"save_url"`
}

// Service runs enrollments
type Service struct {
	store        store.Store
	gymClient    gym.Client
	walletClient wallet.Client
	now          func() time.Time
}

// NewService creates an enrollment service
func NewService(s store.Store, gymClient gym.Client, walletClient wallet.Client) *Service {
	return &Service{
		store:        s,
		gymClient:    gymClient,
		walletClient: walletClient,
		now:          time.Now,
	}
}

// Enroll authenticates the member, fetches the initial barcode, upserts the
// user record, and returns the add-to-wallet URL. Re-enrolling an existing
// user refreshes their credentials and barcode but preserves created_at.
func (s *Service) Enroll(ctx context.Context, email, pin string) (*Result, error) {
	if email == "" || pin == "" {
		return nil, ErrMissingCredentials
	}

	id := store.NormalizeID(email)

	pair, err := s.gymClient.Authenticate(ctx, email, pin)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	displayName, err := gym.MemberName(pair.Access)
	if err != nil {
		// Display only: fall back to the email address
		slog.Warn("Could not extract member name from access token", "user", id, "error", err)
		displayName = id
	}

	barcode, err := s.gymClient.MemberBarcode(ctx, pair.Access)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch initial barcode: %w", err)
	}

	record := &store.UserRecord{
		ID:                  id,
		AccessCredential:    pair.Access,
		RefreshCredential:   pair.Refresh,
		CredentialExpiresAt: pair.ExpiresAt,
		DisplayName:         displayName,
		LastKnownBarcode:    barcode.Value,
		BarcodeExpiresAt:    barcode.ExpiresAt,
		CreatedAt:           s.now(),
	}

	existing, err := s.store.Get(ctx, id)
	switch {
	case err == nil:
		record.CreatedAt = existing.CreatedAt
		record.WalletObjectRef = existing.WalletObjectRef
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to look up existing record: %w", err)
	}

	if err := s.store.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist user record: %w", err)
	}

	saveURL, err := s.walletClient.SaveURL(id, displayName, barcode.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to build save URL: %w", err)
	}

	slog.Info("User enrolled", "user", id)
	return &Result{ID: id, DisplayName: displayName, SaveURL: saveURL}, nil
}
