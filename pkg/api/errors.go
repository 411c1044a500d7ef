package api

import (
	"errors"
	"net/http"
)

const (
	CodeNetworkError = "network_error"
	CodeSDKError     = "sdk_error"
)

var ErrEndpointNotFound = errors.New("api: endpoint not found, ensure the base URL is valid")

// Error is a structured failure from the backend or the transport beneath
// it. Code carries the machine-readable error code; Description the
// human-readable message.
type Error struct {
	StatusCode  int
	Code        string
	Description string
	Err         error
}

func newNetworkError(err error) *Error {
	return &Error{
		Code:        CodeNetworkError,
		Description: err.Error(),
		Err:         err,
	}
}

func (e *Error) Error() string {
	msg := "api: request failed"
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wire shape of a structured backend error body.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorCode        string `json:"errorCode,omitempty"`
	ErrorDescription string `json:"errorDescription,omitempty"`
}

// mapError converts a non-2xx response body into an *Error. The effective
// message prefers errorDescription over error; the effective code prefers
// errorCode over error. A 404 with no parseable body points at a
// misconfigured base URL.
func mapError(statusCode int, body []byte) *Error {
	var wire errorResponse
	if err := unmarshalLenient(body, &wire); err != nil || wire.Error == "" {
		if statusCode == http.StatusNotFound {
			return &Error{
				StatusCode:  statusCode,
				Description: "API endpoint not found. Ensure your Authsignal base URL is valid.",
				Err:         ErrEndpointNotFound,
			}
		}
		return &Error{StatusCode: statusCode, Description: string(body)}
	}

	code := wire.ErrorCode
	if code == "" {
		code = wire.Error
	}

	description := wire.ErrorDescription
	if description == "" {
		description = wire.Error
	}

	return &Error{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}
