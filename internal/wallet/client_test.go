package wallet

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testServiceAccountKey(t *testing.T) (*ServiceAccountKey, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	return &ServiceAccountKey{
		ClientEmail: "sync@test-project.iam.gserviceaccount.com",
		PrivateKey:  string(pemBytes),
		TokenURI:    "https://oauth2.googleapis.com/token",
	}, key
}

func newTestClient(t *testing.T, endpoint string) Client {
	t.Helper()

	key, _ := testServiceAccountKey(t)
	c, err := NewClient("3388000000012345678", "membership", endpoint, key,
		WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})),
	)
	require.NoError(t, err)
	return c
}

func TestObjectRef(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://unused")

	tests := []struct {
		name     string
		id       string
		expected string
	}{
		{
			name:     "email is sanitized",
			id:       "alice@example.com",
			expected: "3388000000012345678.alice_example_com",
		},
		{
			name:     "plus addressing",
			id:       "alice+gym@example.com",
			expected: "3388000000012345678.alice_gym_example_com",
		},
		{
			name:     "alphanumerics preserved",
			id:       "Alice123",
			expected: "3388000000012345678.Alice123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, c.ObjectRef(tt.id))
		})
	}
}

func TestUpdatePass(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.True(t, strings.HasPrefix(r.URL.Path, "/walletobjects/v1/genericObject/"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var err error
		gotBody, err = io.ReadAll(r.Body)
		require.NoError(t, err)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	ref := c.ObjectRef("alice@example.com")
	err := c.UpdatePass(context.Background(), ref, "Alice Smith", "CODE-123")
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &obj))
	assert.Equal(t, ref, obj["id"])
	assert.Equal(t, "3388000000012345678.membership", obj["classId"])

	barcode, ok := obj["barcode"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "QR_CODE", barcode["type"])
	assert.Equal(t, "CODE-123", barcode["value"])
}

func TestUpdatePass_NotFoundIsBenign(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":404}}`, http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	err := c.UpdatePass(context.Background(), c.ObjectRef("alice@example.com"), "Alice", "CODE")
	assert.ErrorIs(t, err, ErrPassNotFound)
}

func TestUpdatePass_OtherErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":503}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	err := c.UpdatePass(context.Background(), c.ObjectRef("alice@example.com"), "Alice", "CODE")

	var updateErr *UpdateError
	require.ErrorAs(t, err, &updateErr)
	assert.Equal(t, http.StatusServiceUnavailable, updateErr.StatusCode)
	assert.NotErrorIs(t, err, ErrPassNotFound)
}

func TestSaveURL(t *testing.T) {
	t.Parallel()

	key, rsaKey := testServiceAccountKey(t)
	c, err := NewClient("3388000000012345678", "membership", "", key,
		WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "unused"})),
	)
	require.NoError(t, err)

	saveURL, err := c.SaveURL("alice@example.com", "Alice Smith", "CODE-123")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(saveURL, "https://pay.google.com/gp/v/save/"))

	rawToken := strings.TrimPrefix(saveURL, "https://pay.google.com/gp/v/save/")
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(rawToken, claims, func(*jwt.Token) (any, error) {
		return &rsaKey.PublicKey, nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, "savetowallet", claims["typ"])
	assert.Equal(t, key.ClientEmail, claims["iss"])

	payload, ok := claims["payload"].(map[string]any)
	require.True(t, ok)
	objects, ok := payload["genericObjects"].([]any)
	require.True(t, ok)
	require.Len(t, objects, 1)

	obj, ok := objects[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "3388000000012345678.alice_example_com", obj["id"])
}

func TestNewClient_BadKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient("123", "", "", &ServiceAccountKey{
		ClientEmail: "x@y",
		PrivateKey:  "not a pem key",
	})
	assert.Error(t, err)
}

func TestLoadServiceAccountKey(t *testing.T) {
	t.Parallel()

	key, _ := testServiceAccountKey(t)
	data, err := json.Marshal(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	loaded, err := LoadServiceAccountKey(path)
	require.NoError(t, err)
	assert.Equal(t, key.ClientEmail, loaded.ClientEmail)

	_, err = LoadServiceAccountKey(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
