// Package secrets provides a client for the credential service that stores
// third-party API keys by numeric id.
package secrets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/acs-loader/internal/fetcher"
)

// Client defines the credential lookups used by the loader.
type Client interface {
	// Credential fetches the stored credential with the given id.
	Credential(ctx context.Context, id int) (*Credential, error)
	// APIKey returns the secret value of the credential with the given id.
	APIKey(ctx context.Context, id int) (string, error)
}

// Credential is a stored credential as returned by the service.
type Credential struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

// ErrNotFound is returned when no credential has the requested id.
var ErrNotFound = eris.New("secrets: credential not found")

// Option configures the secrets client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a credential service client.
func NewClient(baseURL, token string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credential implements Client.
func (c *httpClient) Credential(ctx context.Context, id int) (*Credential, error) {
	if c.baseURL == "" {
		return nil, eris.New("secrets: base url not configured (secrets.base_url)")
	}
	reqURL := fmt.Sprintf("%s/credentials/%d", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "secrets: create request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "secrets: get credential %d", id)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "secrets: read response body")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, eris.Wrapf(ErrNotFound, "secrets: credential %d", id)
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("secrets: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	cred, err := fetcher.DecodeJSONObject[Credential](bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "secrets: decode credential %d", id)
	}
	return cred, nil
}

// APIKey implements Client.
func (c *httpClient) APIKey(ctx context.Context, id int) (string, error) {
	cred, err := c.Credential(ctx, id)
	if err != nil {
		return "", err
	}
	if cred.Secret == "" {
		return "", eris.Errorf("secrets: credential %d has an empty secret", id)
	}
	return cred.Secret, nil
}
