// Package otp implements the one-time-password flows (email, SMS,
// WhatsApp, TOTP). Unlike the device-bound kinds these are authenticated
// by the user's bearer token; delivery of the codes themselves is entirely
// the backend's concern.
package otp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/authsignal/authsignal-go/pkg/api"
	"github.com/authsignal/authsignal-go/pkg/astypes"
	"github.com/authsignal/authsignal-go/pkg/options"
	"github.com/authsignal/authsignal-go/pkg/session"
)

// Kind selects an OTP variant; the value is the endpoint path segment
// under /client/{enroll,challenge,verify}.
type Kind string

const (
	KindEmail    Kind = "email-otp"
	KindSMS      Kind = "sms"
	KindWhatsApp Kind = "whatsapp"
	KindTOTP     Kind = "totp"
)

var ErrNotTOTP = errors.New("otp: EnrollTOTP is only available on the totp kind")

type enrollEmailRequest struct {
	Email string `json:"email"`
}

type enrollPhoneRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type verifyRequest struct {
	VerificationCode string `json:"verificationCode"`
}

type Authenticator struct {
	kind    Kind
	api     *api.Client
	session *session.Session
	logger  *slog.Logger
}

func New(kind Kind, tenantID, baseURL string, sess *session.Session, opts ...options.Option) *Authenticator {
	oo := options.NewOptions(opts...)

	return &Authenticator{
		kind:    kind,
		api:     api.NewClient(tenantID, baseURL, opts...),
		session: sess,
		logger:  oo.Logger,
	}
}

func (a *Authenticator) Kind() Kind {
	return a.kind
}

// Enroll registers the destination (email address or phone number,
// depending on kind) as an OTP authenticator for the current user.
func (a *Authenticator) Enroll(ctx context.Context, destination string) (*astypes.EnrollResponse, error) {
	token, err := a.session.Token()
	if err != nil {
		return nil, err
	}

	var body any
	switch a.kind {
	case KindEmail:
		body = enrollEmailRequest{Email: destination}
	case KindTOTP:
		body = nil
	default:
		body = enrollPhoneRequest{PhoneNumber: destination}
	}

	var out astypes.EnrollResponse
	if err := a.api.Post(ctx, "/client/enroll/"+string(a.kind), api.Bearer(token), body, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// EnrollTOTP enrolls an authenticator app and returns its provisioning
// URI and secret.
func (a *Authenticator) EnrollTOTP(ctx context.Context) (*astypes.TOTPEnrollment, error) {
	if a.kind != KindTOTP {
		return nil, ErrNotTOTP
	}

	token, err := a.session.Token()
	if err != nil {
		return nil, err
	}

	var out astypes.TOTPEnrollment
	if err := a.api.Post(ctx, "/client/enroll/totp", api.Bearer(token), nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Challenge asks the backend to send a code to the enrolled destination.
func (a *Authenticator) Challenge(ctx context.Context) (*astypes.ChallengeResponse, error) {
	token, err := a.session.Token()
	if err != nil {
		return nil, err
	}

	var out astypes.ChallengeResponse
	if err := a.api.Post(ctx, "/client/challenge/"+string(a.kind), api.Bearer(token), nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Verify submits the code the user received. A verified response carrying
// an access token silently replaces the cached session token.
func (a *Authenticator) Verify(ctx context.Context, code string) (*astypes.VerifyResponse, error) {
	token, err := a.session.Token()
	if err != nil {
		return nil, err
	}

	var out astypes.VerifyResponse
	if err := a.api.Post(ctx, "/client/verify/"+string(a.kind), api.Bearer(token), verifyRequest{VerificationCode: code}, &out); err != nil {
		return nil, err
	}

	if out.AccessToken != "" {
		a.session.SetToken(out.AccessToken)
	}

	return &out, nil
}
