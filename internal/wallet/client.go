// Package wallet provides the Google Wallet client used to keep the pass
// object for each user in sync with the latest membership barcode, and to
// build the signed "Add to Google Wallet" URL handed out at enrollment.
package wallet

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	oauthjwt "golang.org/x/oauth2/jwt"
)

const (
	// DefaultEndpoint is the Google Wallet objects API base URL
	DefaultEndpoint = "https://walletobjects.googleapis.com"

	// DefaultClassSuffix identifies the pass class when none is configured
	DefaultClassSuffix = "membership"

	// saveURLBase is the prefix of signed add-to-wallet links
	saveURLBase = "https://pay.google.com/gp/v/save/"

	// issuerScope authorizes wallet object reads and writes
	issuerScope = "https://www.googleapis.com/auth/wallet_object.issuer"

	requestTimeout = 15 * time.Second
)

// ErrPassNotFound indicates the wallet object does not exist yet: the user
// has not added the pass to their wallet. Callers treat this as a benign skip.
var ErrPassNotFound = errors.New("wallet object not found")

// UpdateError is returned when the wallet provider rejects an update for any
// reason other than a missing object.
type UpdateError struct {
	StatusCode int
	Body       string
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("wallet object update failed: %d", e.StatusCode)
}

// ServiceAccountKey is the subset of the Google service account JSON key
// needed to sign wallet JWTs and mint API tokens.
type ServiceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// LoadServiceAccountKey reads and parses a service account JSON key file
func LoadServiceAccountKey(path string) (*ServiceAccountKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key file: %w", err)
	}
	var key ServiceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("service account key is missing client_email or private_key")
	}
	return &key, nil
}

// Client is the wallet provider surface consumed by the sync engine and the
// enrollment flow.
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/passforge/wallet-sync-server/internal/wallet Client
type Client interface {
	// ObjectRef derives the deterministic wallet object reference for a user ID
	ObjectRef(id string) string

	// UpdatePass issues an idempotent partial update of the wallet object.
	// Returns ErrPassNotFound when the object does not exist yet.
	UpdatePass(ctx context.Context, ref, displayName, barcode string) error

	// SaveURL builds a signed add-to-wallet URL for the given user
	SaveURL(id, displayName, barcode string) (string, error)
}

type defaultClient struct {
	issuerID    string
	classSuffix string
	endpoint    string

	signerEmail string
	signingKey  *rsa.PrivateKey
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
}

// Option configures the wallet client
type Option func(*defaultClient)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(d *defaultClient) {
		d.httpClient = c
	}
}

// WithTokenSource overrides the OAuth token source (tests)
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(d *defaultClient) {
		d.tokenSource = ts
	}
}

// NewClient creates a wallet client for the given issuer, authenticating with
// the service account key. endpoint may be empty to use the public API.
func NewClient(issuerID, classSuffix, endpoint string, key *ServiceAccountKey, opts ...Option) (Client, error) {
	signingKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(key.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account private key: %w", err)
	}

	if classSuffix == "" {
		classSuffix = DefaultClassSuffix
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	c := &defaultClient{
		issuerID:    issuerID,
		classSuffix: classSuffix,
		endpoint:    endpoint,
		signerEmail: key.ClientEmail,
		signingKey:  signingKey,
		httpClient:  &http.Client{Timeout: requestTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.tokenSource == nil {
		conf := &oauthjwt.Config{
			Email:      key.ClientEmail,
			PrivateKey: []byte(key.PrivateKey),
			Scopes:     []string{issuerScope},
			TokenURL:   key.TokenURI,
		}
		c.tokenSource = conf.TokenSource(context.Background())
	}

	return c, nil
}

var objectRefSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]`)

func (c *defaultClient) ObjectRef(id string) string {
	return c.issuerID + "." + objectRefSanitizer.ReplaceAllString(id, "_")
}

func (c *defaultClient) classID() string {
	return c.issuerID + "." + c.classSuffix
}

// localizedString is the Google Wallet localized value wrapper
type localizedString struct {
	DefaultValue localizedValue `json:"defaultValue"`
}

type localizedValue struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

func localized(value string) localizedString {
	return localizedString{DefaultValue: localizedValue{Language: "en", Value: value}}
}

// genericObject is the wallet pass object representation
type genericObject struct {
	ID                 string          `json:"id"`
	ClassID            string          `json:"classId"`
	GenericType        string          `json:"genericType"`
	CardTitle          localizedString `json:"cardTitle"`
	Header             localizedString `json:"header"`
	Subheader          localizedString `json:"subheader"`
	Barcode            objectBarcode   `json:"barcode"`
	HexBackgroundColor string          `json:"hexBackgroundColor"`
	Logo               *objectImage    `json:"logo,omitempty"`
}

type objectBarcode struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type objectImage struct {
	SourceURI imageURI `json:"sourceUri"`
}

type imageURI struct {
	URI string `json:"uri"`
}

// genericClass is the pass class shared by all users of an issuer
type genericClass struct {
	ID           string `json:"id"`
	IssuerName   string `json:"issuerName"`
	ReviewStatus string `json:"reviewStatus"`
}

func (c *defaultClient) buildObject(ref, displayName, barcode string) *genericObject {
	return &genericObject{
		ID:                 ref,
		ClassID:            c.classID(),
		GenericType:        "GENERIC_TYPE_UNSPECIFIED",
		CardTitle:          localized("Membership"),
		Header:             localized(displayName),
		Subheader:          localized("Member"),
		Barcode:            objectBarcode{Type: "QR_CODE", Value: barcode},
		HexBackgroundColor: "#000000",
	}
}

func (c *defaultClient) UpdatePass(ctx context.Context, ref, displayName, barcode string) error {
	token, err := c.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("failed to obtain wallet API token: %w", err)
	}

	payload, err := json.Marshal(c.buildObject(ref, displayName, barcode))
	if err != nil {
		return fmt.Errorf("failed to marshal wallet object: %w", err)
	}

	url := c.endpoint + "/walletobjects/v1/genericObject/" + ref
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create wallet update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute wallet update request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusNotFound {
		return ErrPassNotFound
	}
	return &UpdateError{StatusCode: resp.StatusCode, Body: string(body)}
}

// saveClaims is the savetowallet JWT payload
type saveClaims struct {
	jwt.RegisteredClaims
	Typ     string      `json:"typ"`
	Origins []string    `json:"origins"`
	Payload savePayload `json:"payload"`
}

type savePayload struct {
	GenericClasses []genericClass   `json:"genericClasses"`
	GenericObjects []*genericObject `json:"genericObjects"`
}

func (c *defaultClient) SaveURL(id, displayName, barcode string) (string, error) {
	claims := saveClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   c.signerEmail,
			Audience: jwt.ClaimStrings{"google"},
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		Typ:     "savetowallet",
		Origins: []string{},
		Payload: savePayload{
			GenericClasses: []genericClass{{
				ID:           c.classID(),
				IssuerName:   "Membership Pass",
				ReviewStatus: "UNDER_REVIEW",
			}},
			GenericObjects: []*genericObject{c.buildObject(c.ObjectRef(id), displayName, barcode)},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign save-to-wallet token: %w", err)
	}

	return saveURLBase + signed, nil
}
