// Package api is the authenticated JSON transport shared by every
// authenticator. Requests carry either tenant Basic auth (anonymous,
// pre-auth operations) or a user Bearer token; non-2xx responses map to a
// structured *Error.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/authsignal/authsignal-go/pkg/options"
)

type Client struct {
	baseURL    string
	basicAuth  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(tenantID, baseURL string, opts ...options.Option) *Client {
	oo := options.NewOptions(opts...)

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		basicAuth:  "Basic " + base64.StdEncoding.EncodeToString([]byte(tenantID+":")),
		httpClient: oo.HTTPClient,
		logger:     oo.Logger,
	}
}

// BasicAuth returns the tenant-level Authorization header value.
func (c *Client) BasicAuth() string {
	return c.basicAuth
}

// Bearer returns the user-level Authorization header value for token.
func Bearer(token string) string {
	return "Bearer " + token
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, authorization string, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return newNetworkError(err)
	}
	req.Header.Set("Authorization", authorization)

	return c.do(req, out)
}

func (c *Client) Post(ctx context.Context, path string, authorization string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Code: CodeSDKError, Description: err.Error(), Err: err}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return newNetworkError(err)
	}
	req.Header.Set("Authorization", authorization)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("request failed", "url", req.URL.String(), "err", err)
		return newNetworkError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return newNetworkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := mapError(resp.StatusCode, respBody)
		c.logger.Error("API error", "url", req.URL.String(), "status", resp.StatusCode, "code", apiErr.Code, "err", apiErr.Description)
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Code: CodeSDKError, Description: err.Error(), Err: err}
	}

	return nil
}

func unmarshalLenient(body []byte, out any) error {
	if len(body) == 0 {
		return io.ErrUnexpectedEOF
	}
	return json.Unmarshal(body, out)
}
