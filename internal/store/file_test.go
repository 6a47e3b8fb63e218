package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(id string) *UserRecord {
	return &UserRecord{
		ID:                  id,
		AccessCredential:    "access-" + id,
		RefreshCredential:   "refresh-" + id,
		CredentialExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		DisplayName:         "Test Member",
		LastKnownBarcode:    "barcode-A",
		CreatedAt:           time.Now().UTC().Truncate(time.Second),
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	record := testRecord("alice@example.com")
	require.NoError(t, s.Upsert(ctx, record))

	got, err := s.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, record.LastKnownBarcode, got.LastKnownBarcode)
	assert.Equal(t, record.DisplayName, got.DisplayName)

	// Reopen from disk to verify persistence
	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	got, err = reopened.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, record.RefreshCredential, got.RefreshCredential)
}

func TestFileStore_NormalizesIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Upsert(ctx, testRecord("  Alice@Example.COM ")))

	got, err := s.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.ID)
}

func TestFileStore_GetNotFound(t *testing.T) {
	t.Parallel()

	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Upsert(ctx, testRecord("bob@example.com")))
	require.NoError(t, s.Upsert(ctx, testRecord("alice@example.com")))

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Ordered by ID
	assert.Equal(t, "alice@example.com", records[0].ID)
	assert.Equal(t, "bob@example.com", records[1].ID)
}

func TestFileStore_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Upsert(ctx, testRecord("alice@example.com")))
	require.NoError(t, s.Delete(ctx, "alice@example.com"))

	_, err = s.Get(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "alice@example.com"), ErrNotFound)
}

func TestFileStore_CorruptFileFailsOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, UsersFileName), []byte("{not json"), 0600))

	_, err := NewFileStore(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt user records file")
}

func TestFileStore_ClonesRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	record := testRecord("alice@example.com")
	require.NoError(t, s.Upsert(ctx, record))

	// Mutating the caller's copy must not affect stored state
	record.LastKnownBarcode = "mutated"

	got, err := s.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "barcode-A", got.LastKnownBarcode)

	// Mutating a fetched copy must not affect stored state either
	got.LastKnownBarcode = "mutated-too"
	again, err := s.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "barcode-A", again.LastKnownBarcode)
}

func TestFileStore_PartialUpdatePersists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, testRecord("alice@example.com")))

	syncedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.PartialUpdate(ctx, "alice@example.com", func(r *UserRecord) {
		r.LastSyncedAt = syncedAt
	}))

	// The update survives a reopen
	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, got.LastSyncedAt.Equal(syncedAt))

	err = s.PartialUpdate(ctx, "ghost@example.com", func(*UserRecord) {})
	assert.ErrorIs(t, err, ErrNotFound)
}
