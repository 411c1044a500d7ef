// Package credential implements the device-bound credential lifecycle: a
// P-256 keypair is provisioned once into the keystore, its public half is
// enrolled with the backend, and every later challenge decision is
// authorized by a detached signature rather than a session token. One
// generic controller covers the push, device, in-app and QR-code
// authenticator kinds; they differ only in endpoint path and key tag
// namespace.
package credential

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/samber/lo"

	"github.com/authsignal/authsignal-go/pkg/api"
	"github.com/authsignal/authsignal-go/pkg/astypes"
	"github.com/authsignal/authsignal-go/pkg/keystore"
	"github.com/authsignal/authsignal-go/pkg/options"
	"github.com/authsignal/authsignal-go/pkg/session"
	"github.com/authsignal/authsignal-go/pkg/signer"
)

// Kind selects an authenticator variant. The value doubles as the endpoint
// path segment under /client/user-authenticators.
type Kind string

const (
	KindPush   Kind = "push"
	KindDevice Kind = "device"
	KindInApp  Kind = "in-app"
	KindQRCode Kind = "qr-code"
)

// tagSuffix is the key tag namespace of the kind. Push and device predate
// per-kind tags, so their tag is the bare legacy prefix.
func (k Kind) tagSuffix() string {
	switch k {
	case KindInApp:
		return "in_app"
	case KindQRCode:
		return "qr_code"
	default:
		return ""
	}
}

func (k Kind) basePath() string {
	return "/client/user-authenticators/" + string(k)
}

// Controller orchestrates one authenticator kind's credential lifecycle.
// Operations are independent; callers must not race AddCredential against
// RemoveCredential for the same key tag.
type Controller struct {
	kind           Kind
	api            *api.Client
	keys           keystore.Store
	session        *session.Session
	tag            string
	deviceName     string
	devicePlatform string
	logger         *slog.Logger
}

func New(kind Kind, tenantID, baseURL string, keys keystore.Store, sess *session.Session, opts ...options.Option) *Controller {
	oo := options.NewOptions(opts...)

	return &Controller{
		kind:           kind,
		api:            api.NewClient(tenantID, baseURL, opts...),
		keys:           keys,
		session:        sess,
		tag:            keystore.Tag(kind.tagSuffix(), oo.Username),
		deviceName:     oo.DeviceName,
		devicePlatform: oo.DevicePlatform,
		logger:         oo.Logger,
	}
}

// Kind returns the authenticator variant this controller serves.
func (c *Controller) Kind() Kind {
	return c.kind
}

// GetCredential fetches the server-side registration record for the local
// key. Fails with ErrNoCredential before any network call when no key
// exists.
func (c *Controller) GetCredential(ctx context.Context) (*astypes.Credential, error) {
	publicKey, err := c.publicKey()
	if err != nil {
		return nil, err
	}

	var cred astypes.Credential
	if err := c.api.Get(ctx, c.kind.basePath(), publicKeyQuery(publicKey), c.api.BasicAuth(), &cred); err != nil {
		return nil, err
	}

	return &cred, nil
}

// AddCredential enrolls this device as an authenticator for the user
// identified by token (explicit, or the cached session token). The local
// keypair is created on first use and reused afterwards.
func (c *Controller) AddCredential(ctx context.Context, token, deviceName string, auth keystore.Authorization) error {
	userToken, err := c.session.Resolve(token)
	if err != nil {
		return err
	}

	publicKey, err := c.keys.GetOrCreatePublicKey(c.tag, auth)
	if err != nil {
		return err
	}

	body := addCredentialRequest{
		PublicKey:      publicKey,
		DeviceName:     c.resolveDeviceName(deviceName),
		DevicePlatform: c.devicePlatform,
	}

	return c.api.Post(ctx, c.kind.basePath(), api.Bearer(userToken), body, nil)
}

// RemoveCredential proves possession of the local key to the revoke
// endpoint, then deletes the key. The local key is only ever deleted after
// the server confirms revocation, so the server can never keep trusting a
// key the device has forgotten.
func (c *Controller) RemoveCredential(ctx context.Context, pending *signer.PendingSignature) error {
	key, err := c.keys.GetKey(c.tag)
	if err != nil {
		return c.mapKeyError(err)
	}

	publicKey, err := keystore.DerivePublicKey(key)
	if err != nil {
		return err
	}

	// The device kind predates the time nonce: it signs a challenge id
	// obtained through an extra round trip. Every other kind signs the
	// local 10-minute time window.
	if c.kind == KindDevice {
		var challenge astypes.ChallengeResponse
		if err := c.api.Post(ctx, "/client/challenge", c.api.BasicAuth(), nil, &challenge); err != nil {
			return err
		}

		signature, err := c.signMessage(challenge.ChallengeID, key, pending)
		if err != nil {
			return err
		}

		body := removeDeviceCredentialRequest{
			ChallengeID: challenge.ChallengeID,
			PublicKey:   publicKey,
			Signature:   signature,
		}
		if err := c.api.Post(ctx, c.kind.basePath()+"/remove", c.api.BasicAuth(), body, nil); err != nil {
			return err
		}
	} else {
		signature, err := c.signMessage(signer.TimeBasedMessage(time.Now()), key, pending)
		if err != nil {
			return err
		}

		body := removeCredentialRequest{PublicKey: publicKey, Signature: signature}
		if err := c.api.Post(ctx, c.kind.basePath()+"/remove", c.api.BasicAuth(), body, nil); err != nil {
			return err
		}
	}

	if !c.keys.DeleteKey(c.tag) {
		c.logger.Error("local key deletion failed after confirmed revocation", "tag", c.tag)
		return ErrLocalKeyDelete
	}

	return nil
}

// GetChallenge fetches the pending challenge for this device, if any.
// A nil challenge with a nil error means nothing is pending.
func (c *Controller) GetChallenge(ctx context.Context) (*astypes.Challenge, error) {
	publicKey, err := c.publicKey()
	if err != nil {
		return nil, err
	}

	var wire challengeResponse
	if err := c.api.Get(ctx, c.kind.basePath()+"/challenge", publicKeyQuery(publicKey), c.api.BasicAuth(), &wire); err != nil {
		return nil, err
	}

	if wire.ChallengeID == nil || wire.UserID == nil {
		return nil, nil
	}

	return &astypes.Challenge{
		ChallengeID:    *wire.ChallengeID,
		UserID:         *wire.UserID,
		ActionCode:     wire.ActionCode,
		IdempotencyKey: wire.IdempotencyKey,
		DeviceID:       wire.DeviceID,
		UserAgent:      wire.UserAgent,
		IPAddress:      wire.IPAddress,
	}, nil
}

// ClaimChallenge signs the challenge id and marks the challenge as claimed
// by this device without resolving it, so the device can signal "I am
// responding" before an out-of-band step completes.
func (c *Controller) ClaimChallenge(ctx context.Context, challengeID string, pending *signer.PendingSignature) (*astypes.ClaimResult, error) {
	key, err := c.keys.GetKey(c.tag)
	if err != nil {
		return nil, c.mapKeyError(err)
	}

	signature, err := c.signMessage(challengeID, key, pending)
	if err != nil {
		return nil, err
	}

	publicKey, err := keystore.DerivePublicKey(key)
	if err != nil {
		return nil, err
	}

	body := claimChallengeRequest{
		PublicKey:   publicKey,
		ChallengeID: challengeID,
		Signature:   signature,
	}

	var result astypes.ClaimResult
	if err := c.api.Post(ctx, c.kind.basePath()+"/challenge/claim", c.api.BasicAuth(), body, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// UpdateChallenge resolves the challenge by signing its id verbatim and
// posting the decision. The request is authenticated by the (public key,
// signature) pair, not by a session token: the device approving a
// challenge may hold no live session.
func (c *Controller) UpdateChallenge(ctx context.Context, challengeID string, approved bool, verificationCode string, pending *signer.PendingSignature) error {
	key, err := c.keys.GetKey(c.tag)
	if err != nil {
		return c.mapKeyError(err)
	}

	signature, err := c.signMessage(challengeID, key, pending)
	if err != nil {
		return err
	}

	publicKey, err := keystore.DerivePublicKey(key)
	if err != nil {
		return err
	}

	body := updateChallengeRequest{
		PublicKey:        publicKey,
		ChallengeID:      challengeID,
		Signature:        signature,
		Approved:         approved,
		VerificationCode: lo.EmptyableToPtr(verificationCode),
	}

	return c.api.Post(ctx, c.kind.basePath()+"/challenge", c.api.BasicAuth(), body, nil)
}

// StartSigning begins a two-phase signing operation over the local key,
// for credentials whose key demands interactive user authentication at
// sign time.
func (c *Controller) StartSigning() (*signer.PendingSignature, error) {
	key, err := c.keys.GetKey(c.tag)
	if err != nil {
		return nil, c.mapKeyError(err)
	}

	return signer.Begin(key), nil
}

func (c *Controller) signMessage(message string, key keystore.Key, pending *signer.PendingSignature) (string, error) {
	if pending != nil {
		return pending.Complete([]byte(message))
	}
	return signer.Sign([]byte(message), key)
}

func (c *Controller) publicKey() (string, error) {
	key, err := c.keys.GetKey(c.tag)
	if err != nil {
		return "", c.mapKeyError(err)
	}

	return keystore.DerivePublicKey(key)
}

func (c *Controller) mapKeyError(err error) error {
	if errors.Is(err, keystore.ErrNotFound) {
		return ErrNoCredential
	}
	return err
}

func (c *Controller) resolveDeviceName(deviceName string) string {
	if deviceName != "" {
		return deviceName
	}
	if c.deviceName != "" {
		return c.deviceName
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown device"
}

// publicKeyQuery wraps the already base64-encoded public key in another
// base64 layer, matching what the backend expects in query strings.
func publicKeyQuery(publicKey string) url.Values {
	return url.Values{
		"publicKey": []string{base64.StdEncoding.EncodeToString([]byte(publicKey))},
	}
}
