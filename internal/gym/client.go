// Package gym provides the HTTP client for the external membership API:
// the OAuth token endpoint used to mint and rotate access credentials, and
// the member endpoint serving the rotating barcode.
package gym

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 10 * time.Second

	// userAgent mirrors the mobile app the upstream API expects
	userAgent = "wallet-sync-server/1.0"

	// tokenScope is the scope requested for member API access
	tokenScope = "pgcapi"

	// barcodePath is the member endpoint serving the current barcode
	barcodePath = "/v2/member/qrcode"
)

// TokenPair is the credential triple returned by the auth endpoint
type TokenPair struct {
	Access    string
	Refresh   string
	ExpiresAt time.Time
}

// Barcode is the rotating one-time value embedded in the wallet pass
type Barcode struct {
	Value     string
	ExpiresAt time.Time
}

// FetchError is returned for any non-success response from the membership API
type FetchError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("membership API request failed: %d (%s)", e.StatusCode, e.URL)
}

// Client is the membership API consumed by enrollment and the sync engine.
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/passforge/wallet-sync-server/internal/gym Client
type Client interface {
	// Authenticate exchanges enrollment credentials (email, PIN) for a token pair
	Authenticate(ctx context.Context, email, pin string) (*TokenPair, error)

	// Refresh exchanges a refresh credential for a new token pair
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)

	// MemberBarcode fetches the current barcode using a valid access credential
	MemberBarcode(ctx context.Context, accessToken string) (*Barcode, error)
}

// defaultClient is the default HTTP implementation of Client
type defaultClient struct {
	authURL      string
	apiURL       string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	now          func() time.Time
}

// Option configures the client
type Option func(*defaultClient)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(d *defaultClient) {
		d.httpClient = c
	}
}

// NewClient creates a membership API client
func NewClient(authURL, apiURL, clientID, clientSecret string, opts ...Option) Client {
	c := &defaultClient{
		authURL:      authURL,
		apiURL:       strings.TrimSuffix(apiURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *defaultClient) Authenticate(ctx context.Context, email, pin string) (*TokenPair, error) {
	form := url.Values{
		"grant_type": {"password"},
		"username":   {email},
		"password":   {pin},
		"scope":      {tokenScope},
	}
	return c.tokenRequest(ctx, form)
}

func (c *defaultClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return c.tokenRequest(ctx, form)
}

// tokenResponse is the auth endpoint wire format
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (c *defaultClient) tokenRequest(ctx context.Context, form url.Values) (*TokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response contained no access token")
	}

	return &TokenPair{
		Access:    tr.AccessToken,
		Refresh:   tr.RefreshToken,
		ExpiresAt: c.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

// barcodeResponse is the member endpoint wire format
type barcodeResponse struct {
	QrCode    string    `json:"QrCode"`
	ExpiresAt time.Time `json:"ExpiresAt"`
}

func (c *defaultClient) MemberBarcode(ctx context.Context, accessToken string) (*Barcode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+barcodePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create barcode request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", userAgent)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var br barcodeResponse
	if err := json.Unmarshal(body, &br); err != nil {
		return nil, fmt.Errorf("failed to decode barcode response: %w", err)
	}
	if br.QrCode == "" {
		return nil, fmt.Errorf("barcode response contained no barcode value")
	}

	return &Barcode{Value: br.QrCode, ExpiresAt: br.ExpiresAt}, nil
}

// do executes the request and returns the response body, converting any
// non-2xx status into a FetchError.
func (c *defaultClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			URL:        req.URL.String(),
			Body:       string(body),
		}
	}

	return body, nil
}

// MemberName extracts the member's display name from the given_name and
// family_name claims of the access token. The signature is deliberately not
// verified: the token was just issued to us over TLS and the name is used for
// display only.
func MemberName(accessToken string) (string, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return "", fmt.Errorf("failed to parse access token: %w", err)
	}

	given, _ := claims["given_name"].(string)
	family, _ := claims["family_name"].(string)
	name := strings.TrimSpace(given + " " + family)
	if name == "" {
		return "", fmt.Errorf("access token contained no name claims")
	}
	return name, nil
}
