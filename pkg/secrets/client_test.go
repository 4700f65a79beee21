package secrets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKey_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/credentials/1234", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1234,"name":"census","secret":"abc123"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok")
	key, err := c.APIKey(context.Background(), 1234)
	require.NoError(t, err)
	assert.Equal(t, "abc123", key)
}

func TestCredential_Fields(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":7,"name":"Census API","secret":"s"}`))
	}))
	defer srv.Close()

	cred, err := NewClient(srv.URL, "").Credential(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, &Credential{ID: 7, Name: "Census API", Secret: "s"}, cred)
}

func TestAPIKey_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "tok").APIKey(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAPIKey_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		errMsg string
	}{
		{"forbidden", http.StatusForbidden, `{"error":"denied"}`, "unexpected status 403"},
		{"malformed", http.StatusOK, `{not json`, "decode credential"},
		{"empty secret", http.StatusOK, `{"id":1,"name":"x","secret":""}`, "empty secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "tok").APIKey(context.Background(), 1)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestAPIKey_NoBaseURL(t *testing.T) {
	t.Parallel()
	_, err := NewClient("", "tok").APIKey(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secrets.base_url")
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()
	custom := &http.Client{Timeout: time.Second}
	c := NewClient("https://secrets.example.com", "tok", WithHTTPClient(custom))
	hc := c.(*httpClient)
	assert.Equal(t, custom, hc.http)
	assert.Equal(t, "https://secrets.example.com", hc.baseURL)
}
