package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicAuth(t *testing.T) {
	c := NewClient("tenant-1", "https://api.example.com")

	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("tenant-1:"))
	assert.Equal(t, expected, c.BasicAuth())
}

func TestBearer(t *testing.T) {
	assert.Equal(t, "Bearer user-token", Bearer("user-token"))
}

func TestGetSendsAuthorizationAndQuery(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("publicKey")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient("tenant-1", srv.URL)

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.Get(context.Background(), "/client/user-authenticators/push", url.Values{"publicKey": []string{"abc"}}, c.BasicAuth(), &out)
	require.NoError(t, err)

	assert.Equal(t, c.BasicAuth(), gotAuth)
	assert.Equal(t, "abc", gotQuery)
	assert.True(t, out.OK)
}

func TestPostSetsContentType(t *testing.T) {
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("tenant-1", srv.URL)

	err := c.Post(context.Background(), "/client/challenge", c.BasicAuth(), map[string]string{"action": "signIn"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotContentType)
}

func TestErrorMappingPrecedence(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		body            string
		wantCode        string
		wantDescription string
	}{
		{
			name:            "description and code win over error",
			status:          http.StatusBadRequest,
			body:            `{"error":"invalid_request","errorCode":"expired_token","errorDescription":"The token has expired"}`,
			wantCode:        "expired_token",
			wantDescription: "The token has expired",
		},
		{
			name:            "error fills both when alone",
			status:          http.StatusBadRequest,
			body:            `{"error":"invalid_request"}`,
			wantCode:        "invalid_request",
			wantDescription: "invalid_request",
		},
		{
			name:            "unparseable 404 points at the base URL",
			status:          http.StatusNotFound,
			body:            `<html>not found</html>`,
			wantDescription: "API endpoint not found. Ensure your Authsignal base URL is valid.",
		},
		{
			name:            "unparseable 500 keeps the raw body",
			status:          http.StatusInternalServerError,
			body:            "upstream exploded",
			wantDescription: "upstream exploded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient("tenant-1", srv.URL)

			err := c.Get(context.Background(), "/client/challenge", nil, c.BasicAuth(), nil)
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantDescription, apiErr.Description)
		})
	}
}

func TestUnparseable404UnwrapsToEndpointNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("tenant-1", srv.URL)

	err := c.Get(context.Background(), "/client/challenge", nil, c.BasicAuth(), nil)
	assert.ErrorIs(t, err, ErrEndpointNotFound)
}

func TestConnectionFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient("tenant-1", srv.URL)

	err := c.Get(context.Background(), "/client/challenge", nil, c.BasicAuth(), nil)
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeNetworkError, apiErr.Code)
	assert.NotNil(t, errors.Unwrap(apiErr))
}

func TestEmptySuccessBodyLeavesOutUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("tenant-1", srv.URL)

	out := struct {
		OK bool `json:"ok"`
	}{OK: true}
	err := c.Get(context.Background(), "/client/challenge", nil, c.BasicAuth(), &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}
