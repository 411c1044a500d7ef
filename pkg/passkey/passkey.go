// Package passkey drives the passkey flows. The WebAuthn ceremonies
// themselves are delegated to the platform credential manager; this
// package only forwards opaque JSON blobs between it and the backend, and
// remembers which credential id last worked for the user.
package passkey

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"github.com/authsignal/authsignal-go/pkg/api"
	"github.com/authsignal/authsignal-go/pkg/options"
	"github.com/authsignal/authsignal-go/pkg/prefs"
	"github.com/authsignal/authsignal-go/pkg/session"
)

var (
	// ErrUserCanceled is returned by CredentialManager implementations
	// when the user dismisses the platform ceremony.
	ErrUserCanceled = errors.New("passkey: user canceled the ceremony")

	ErrNoManager = errors.New("passkey: no credential manager configured")
)

const (
	credentialIDPrefKey = "@as_passkey_credential_id"
	deviceIDPrefKey     = "@as_device_id"
)

// CredentialManager runs the platform WebAuthn ceremonies. Both methods
// take and return the ceremony JSON verbatim.
type CredentialManager interface {
	Register(ctx context.Context, optionsJSON string, preferImmediatelyAvailable bool) (string, error)
	Authenticate(ctx context.Context, optionsJSON string, preferImmediatelyAvailable bool) (string, error)
}

type registrationOptionsRequest struct {
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

type ceremonyOptionsResponse struct {
	ChallengeID string          `json:"challengeId"`
	Options     json.RawMessage `json:"options"`
}

type authenticationOptionsRequest struct {
	ChallengeID string `json:"challengeId,omitempty"`
}

type addAuthenticatorRequest struct {
	ChallengeID string          `json:"challengeId"`
	Credential  json.RawMessage `json:"credential"`
	DeviceID    string          `json:"deviceId,omitempty"`
}

type verifyPasskeyRequest struct {
	ChallengeID string          `json:"challengeId"`
	Credential  json.RawMessage `json:"credential"`
	DeviceID    string          `json:"deviceId,omitempty"`
}

type actionChallengeRequest struct {
	Action string `json:"action"`
}

type passkeyVerifyResponse struct {
	IsVerified          bool   `json:"isVerified"`
	AccessToken         string `json:"accessToken,omitempty"`
	UserID              string `json:"userId,omitempty"`
	UserAuthenticatorID string `json:"userAuthenticatorId,omitempty"`
	Username            string `json:"username,omitempty"`
	UserDisplayName     string `json:"userDisplayName,omitempty"`
}

type SignUpResponse struct {
	Token string
}

type SignInResponse struct {
	IsVerified          bool
	Token               string
	UserID              string
	UserAuthenticatorID string
	Username            string
	DisplayName         string
}

type Authenticator struct {
	api     *api.Client
	session *session.Session
	manager CredentialManager
	prefs   *prefs.Store
	logger  *slog.Logger
}

func New(tenantID, baseURL string, manager CredentialManager, store *prefs.Store, sess *session.Session, opts ...options.Option) *Authenticator {
	oo := options.NewOptions(opts...)

	return &Authenticator{
		api:     api.NewClient(tenantID, baseURL, opts...),
		session: sess,
		manager: manager,
		prefs:   store,
		logger:  oo.Logger,
	}
}

// SignUp registers a new passkey for the user identified by token (or the
// cached session token) and enrolls it with the backend.
func (a *Authenticator) SignUp(ctx context.Context, token, username, displayName string, preferImmediatelyAvailable bool) (*SignUpResponse, error) {
	if a.manager == nil {
		return nil, ErrNoManager
	}

	userToken, err := a.session.Resolve(token)
	if err != nil {
		return nil, err
	}

	var opts ceremonyOptionsResponse
	body := registrationOptionsRequest{Username: username, DisplayName: displayName}
	if err := a.api.Post(ctx, "/client/user-authenticators/passkey/registration-options", api.Bearer(userToken), body, &opts); err != nil {
		return nil, err
	}

	credentialJSON, err := a.manager.Register(ctx, string(opts.Options), preferImmediatelyAvailable)
	if err != nil {
		return nil, err
	}

	deviceID, err := a.defaultDeviceID()
	if err != nil {
		return nil, err
	}

	var result passkeyVerifyResponse
	addBody := addAuthenticatorRequest{
		ChallengeID: opts.ChallengeID,
		Credential:  json.RawMessage(credentialJSON),
		DeviceID:    deviceID,
	}
	if err := a.api.Post(ctx, "/client/user-authenticators/passkey", api.Bearer(userToken), addBody, &result); err != nil {
		return nil, err
	}

	if result.IsVerified {
		a.rememberCredentialID(credentialJSON)
	}
	if result.AccessToken != "" {
		a.session.SetToken(result.AccessToken)
	}

	return &SignUpResponse{Token: result.AccessToken}, nil
}

// SignIn authenticates with an existing passkey. When action is set the
// flow runs anonymously against a fresh action challenge; otherwise it
// uses the bearer token.
func (a *Authenticator) SignIn(ctx context.Context, action, token string, preferImmediatelyAvailable bool) (*SignInResponse, error) {
	if a.manager == nil {
		return nil, ErrNoManager
	}

	var userToken string
	var challengeID string
	if action == "" {
		var err error
		if userToken, err = a.session.Resolve(token); err != nil {
			return nil, err
		}
	} else {
		var challenge struct {
			ChallengeID string `json:"challengeId"`
		}
		if err := a.api.Post(ctx, "/client/challenge", a.api.BasicAuth(), actionChallengeRequest{Action: action}, &challenge); err != nil {
			return nil, err
		}
		challengeID = challenge.ChallengeID
	}

	authorization := a.api.BasicAuth()
	if userToken != "" {
		authorization = api.Bearer(userToken)
	}

	var opts ceremonyOptionsResponse
	optsBody := authenticationOptionsRequest{ChallengeID: challengeID}
	if err := a.api.Post(ctx, "/client/user-authenticators/passkey/authentication-options", authorization, optsBody, &opts); err != nil {
		return nil, err
	}

	credentialJSON, err := a.manager.Authenticate(ctx, string(opts.Options), preferImmediatelyAvailable)
	if err != nil {
		return nil, err
	}

	deviceID, err := a.defaultDeviceID()
	if err != nil {
		return nil, err
	}

	var result passkeyVerifyResponse
	verifyBody := verifyPasskeyRequest{
		ChallengeID: opts.ChallengeID,
		Credential:  json.RawMessage(credentialJSON),
		DeviceID:    deviceID,
	}
	if err := a.api.Post(ctx, "/client/verify/passkey", authorization, verifyBody, &result); err != nil {
		return nil, err
	}

	if result.IsVerified {
		a.rememberCredentialID(credentialJSON)
	}
	if result.AccessToken != "" {
		a.session.SetToken(result.AccessToken)
	}

	return &SignInResponse{
		IsVerified:          result.IsVerified,
		Token:               result.AccessToken,
		UserID:              result.UserID,
		UserAuthenticatorID: result.UserAuthenticatorID,
		Username:            result.Username,
		DisplayName:         result.UserDisplayName,
	}, nil
}

// IsAvailableOnDevice reports whether a passkey that previously verified
// on this device is still registered with the backend.
func (a *Authenticator) IsAvailableOnDevice(ctx context.Context) (bool, error) {
	credentialID, err := a.prefs.Get(credentialIDPrefKey)
	if err != nil || credentialID == "" {
		return false, err
	}

	query := url.Values{"credentialId": []string{credentialID}}
	if err := a.api.Get(ctx, "/client/user-authenticators/passkey", query, a.api.BasicAuth(), nil); err != nil {
		return false, nil
	}

	return true, nil
}

// rememberCredentialID caches the rawId of the credential that just
// verified, so IsAvailableOnDevice can answer without a ceremony.
func (a *Authenticator) rememberCredentialID(credentialJSON string) {
	var credential struct {
		RawID string `json:"rawId"`
	}
	if err := json.Unmarshal([]byte(credentialJSON), &credential); err != nil || credential.RawID == "" {
		return
	}

	if err := a.prefs.Set(credentialIDPrefKey, credential.RawID); err != nil {
		a.logger.Error("failed to store passkey credential id", "err", err)
	}
}

// defaultDeviceID returns the stable generated device id, creating it on
// first use.
func (a *Authenticator) defaultDeviceID() (string, error) {
	deviceID, err := a.prefs.Get(deviceIDPrefKey)
	if err != nil {
		return "", err
	}
	if deviceID != "" {
		return deviceID, nil
	}

	deviceID = uuid.NewString()
	if err := a.prefs.Set(deviceIDPrefKey, deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}
