package app

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeServiceAccountKey(t *testing.T, dir string) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	data, err := json.Marshal(map[string]string{
		"client_email": "sync@test-project.iam.gserviceaccount.com",
		"private_key":  string(pemBytes),
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
	require.NoError(t, err)

	path := filepath.Join(dir, "sa.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestBuildComponents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	keyPath := writeServiceAccountKey(t, dir)

	configYAML := fmt.Sprintf(`
storage:
  type: memory
gym:
  authURL: https://auth.example.com/connect/token
  apiURL: https://capi.example.com/api
  clientID: ro.client
wallet:
  issuerID: "3388000000012345678"
  serviceAccountKeyFile: %s
`, keyPath)

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0600))

	comps, err := buildComponents(context.Background(), configPath)
	require.NoError(t, err)
	assert.NotNil(t, comps.store)
	assert.NotNil(t, comps.engine)
	assert.NotNil(t, comps.enrollment)
}

func TestBuildComponents_BadConfig(t *testing.T) {
	t.Parallel()

	_, err := buildComponents(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
