// Package store persists per-user wallet synchronization state.
//
// All mutations are whole-record read-modify-write: callers fetch a record,
// modify it, and write it back with Upsert. Backends are selected by
// configuration; see NewFromConfig.
package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when the requested user record does not exist
var ErrNotFound = errors.New("user record not found")

// NormalizeID canonicalizes a user identifier (an email address) so that
// lookups are case- and whitespace-insensitive.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// UserRecord holds the synchronization state for a single enrolled user
type UserRecord struct {
	// ID is the unique, immutable record key (normalized email address)
	ID string `json:"id"`

	// AccessCredential is the short-lived membership API token
	AccessCredential string `json:"access_credential"`

	// RefreshCredential is the long-lived token used to mint new access credentials
	RefreshCredential string `json:"refresh_credential"`

	// CredentialExpiresAt is when the access credential expires
	CredentialExpiresAt time.Time `json:"credential_expires_at"`

	// WalletObjectRef is the external wallet object identifier. Advisory only:
	// it is empty until the wallet provider confirms the pass was added, and a
	// missing object on the provider side is a normal state.
	WalletObjectRef string `json:"wallet_object_ref,omitempty"`

	// DisplayName is the member name shown on the pass, set at enrollment
	DisplayName string `json:"display_name"`

	// LastKnownBarcode is the last barcode value successfully observed
	LastKnownBarcode string `json:"last_known_barcode"`

	// BarcodeExpiresAt is when the barcode expires (informational)
	BarcodeExpiresAt time.Time `json:"barcode_expires_at"`

	// LastSyncedAt is updated on every successful cycle, changed or not
	LastSyncedAt time.Time `json:"last_synced_at"`

	// CreatedAt is set once at enrollment
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a copy of the record so callers cannot mutate shared state
func (r *UserRecord) Clone() *UserRecord {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// Store is the user record store consumed by the synchronization engine.
//
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/passforge/wallet-sync-server/internal/store Store
type Store interface {
	// Get returns the record with the given normalized ID, or ErrNotFound
	Get(ctx context.Context, id string) (*UserRecord, error)

	// List returns all records ordered by ID
	List(ctx context.Context) ([]*UserRecord, error)

	// Upsert writes the full record, creating or replacing it
	Upsert(ctx context.Context, record *UserRecord) error

	// PartialUpdate applies update to the stored record under the store's
	// write lock, so unrelated concurrent writes are not lost. Returns
	// ErrNotFound when the record does not exist.
	PartialUpdate(ctx context.Context, id string, update func(*UserRecord)) error

	// Delete removes the record with the given ID, or returns ErrNotFound
	Delete(ctx context.Context, id string) error
}
