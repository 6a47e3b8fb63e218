package enrollment

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/passforge/wallet-sync-server/internal/gym"
	gymmocks "github.com/passforge/wallet-sync-server/internal/gym/mocks"
	"github.com/passforge/wallet-sync-server/internal/store"
	walletmocks "github.com/passforge/wallet-sync-server/internal/wallet/mocks"
)

var enrollNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func namedToken(t *testing.T, given, family string) string {
	t.Helper()

	claims := jwt.MapClaims{}
	if given != "" {
		claims["given_name"] = given
	}
	if family != "" {
		claims["family_name"] = family
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return signed
}

func TestEnroll(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	gymClient := gymmocks.NewMockClient(ctrl)
	walletClient := walletmocks.NewMockClient(ctrl)

	access := namedToken(t, "Alice", "Smith")
	gymClient.EXPECT().Authenticate(gomock.Any(), "Alice@Example.com", "1234").Return(&gym.TokenPair{
		Access:    access,
		Refresh:   "refresh-1",
		ExpiresAt: enrollNow.Add(time.Hour),
	}, nil)
	gymClient.EXPECT().MemberBarcode(gomock.Any(), access).Return(&gym.Barcode{
		Value:     "CODE-1",
		ExpiresAt: enrollNow.Add(24 * time.Hour),
	}, nil)
	walletClient.EXPECT().SaveURL("alice@example.com", "Alice Smith", "CODE-1").
		Return("https://pay.google.com/gp/v/save/signed", nil)

	s := store.NewMemoryStore()
	svc := NewService(s, gymClient, walletClient)
	svc.now = func() time.Time { return enrollNow }

	result, err := svc.Enroll(context.Background(), "Alice@Example.com", "1234")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", result.ID)
	assert.Equal(t, "Alice Smith", result.DisplayName)
	assert.Equal(t, "https://pay.google.com/gp/v/save/signed", result.SaveURL)

	stored, err := s.Get(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, access, stored.AccessCredential)
	assert.Equal(t, "refresh-1", stored.RefreshCredential)
	assert.Equal(t, "CODE-1", stored.LastKnownBarcode)
	assert.True(t, stored.CreatedAt.Equal(enrollNow))
}

func TestEnroll_MissingCredentials(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	svc := NewService(store.NewMemoryStore(),
		gymmocks.NewMockClient(ctrl), walletmocks.NewMockClient(ctrl))

	_, err := svc.Enroll(context.Background(), "", "1234")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = svc.Enroll(context.Background(), "alice@example.com", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestEnroll_AuthenticationFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	gymClient := gymmocks.NewMockClient(ctrl)
	walletClient := walletmocks.NewMockClient(ctrl)

	authErr := &gym.FetchError{StatusCode: 400}
	gymClient.EXPECT().Authenticate(gomock.Any(), "alice@example.com", "wrong").Return(nil, authErr)

	s := store.NewMemoryStore()
	svc := NewService(s, gymClient, walletClient)

	_, err := svc.Enroll(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, authErr)

	_, err = s.Get(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEnroll_NameFallsBackToEmail(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	gymClient := gymmocks.NewMockClient(ctrl)
	walletClient := walletmocks.NewMockClient(ctrl)

	gymClient.EXPECT().Authenticate(gomock.Any(), gomock.Any(), gomock.Any()).Return(&gym.TokenPair{
		Access:    "opaque-not-a-jwt",
		Refresh:   "refresh-1",
		ExpiresAt: enrollNow.Add(time.Hour),
	}, nil)
	gymClient.EXPECT().MemberBarcode(gomock.Any(), "opaque-not-a-jwt").
		Return(&gym.Barcode{Value: "CODE-1"}, nil)
	walletClient.EXPECT().SaveURL("alice@example.com", "alice@example.com", "CODE-1").
		Return("https://pay.google.com/gp/v/save/signed", nil)

	svc := NewService(store.NewMemoryStore(), gymClient, walletClient)

	result, err := svc.Enroll(context.Background(), "alice@example.com", "1234")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", result.DisplayName)
}

func TestEnroll_ReEnrollPreservesCreatedAt(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	gymClient := gymmocks.NewMockClient(ctrl)
	walletClient := walletmocks.NewMockClient(ctrl)

	originalCreated := enrollNow.Add(-30 * 24 * time.Hour)
	s := store.NewMemoryStore()
	require.NoError(t, s.Upsert(context.Background(), &store.UserRecord{
		ID:              "alice@example.com",
		WalletObjectRef: "issuer.alice_example_com",
		CreatedAt:       originalCreated,
	}))

	access := namedToken(t, "Alice", "Smith")
	gymClient.EXPECT().Authenticate(gomock.Any(), gomock.Any(), gomock.Any()).Return(&gym.TokenPair{
		Access:    access,
		Refresh:   "refresh-2",
		ExpiresAt: enrollNow.Add(time.Hour),
	}, nil)
	gymClient.EXPECT().MemberBarcode(gomock.Any(), access).
		Return(&gym.Barcode{Value: "CODE-2"}, nil)
	walletClient.EXPECT().SaveURL(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("https://pay.google.com/gp/v/save/signed", nil)

	svc := NewService(s, gymClient, walletClient)
	svc.now = func() time.Time { return enrollNow }

	_, err := svc.Enroll(context.Background(), "alice@example.com", "1234")
	require.NoError(t, err)

	stored, err := s.Get(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(originalCreated))
	assert.Equal(t, "issuer.alice_example_com", stored.WalletObjectRef)
	assert.Equal(t, "refresh-2", stored.RefreshCredential)
}
