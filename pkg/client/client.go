// Package client bundles one instance of every authenticator behind a
// single entry point, sharing a session and a keystore.
package client

import (
	"errors"
	"path/filepath"

	"github.com/authsignal/authsignal-go/pkg/credential"
	"github.com/authsignal/authsignal-go/pkg/keystore"
	"github.com/authsignal/authsignal-go/pkg/options"
	"github.com/authsignal/authsignal-go/pkg/otp"
	"github.com/authsignal/authsignal-go/pkg/passkey"
	"github.com/authsignal/authsignal-go/pkg/pin"
	"github.com/authsignal/authsignal-go/pkg/prefs"
	"github.com/authsignal/authsignal-go/pkg/session"
)

var ErrNoPreferencesDir = errors.New("client: a preferences dir is required, use options.WithPreferencesDir")

type Client struct {
	Push   *credential.Controller
	Device *credential.Controller
	InApp  *credential.Controller
	QRCode *credential.Controller

	Email    *otp.Authenticator
	SMS      *otp.Authenticator
	WhatsApp *otp.Authenticator
	TOTP     *otp.Authenticator

	// Passkey is nil until EnablePasskey provides a credential manager.
	Passkey *passkey.Authenticator

	// PIN is nil unless a preferences dir was configured.
	PIN *pin.Manager

	tenantID string
	baseURL  string
	prefsDir string
	opts     []options.Option
	session  *session.Session
}

func New(tenantID, baseURL string, keys keystore.Store, opts ...options.Option) (*Client, error) {
	oo := options.NewOptions(opts...)
	sess := session.New()

	c := &Client{
		tenantID: tenantID,
		baseURL:  baseURL,
		prefsDir: oo.PreferencesDir,
		opts:     opts,
		session:  sess,
	}

	for _, kind := range []credential.Kind{credential.KindPush, credential.KindDevice, credential.KindInApp, credential.KindQRCode} {
		ctrl := credential.New(kind, tenantID, baseURL, keys, sess, opts...)
		switch kind {
		case credential.KindPush:
			c.Push = ctrl
		case credential.KindDevice:
			c.Device = ctrl
		case credential.KindInApp:
			c.InApp = ctrl
		case credential.KindQRCode:
			c.QRCode = ctrl
		}
	}

	c.Email = otp.New(otp.KindEmail, tenantID, baseURL, sess, opts...)
	c.SMS = otp.New(otp.KindSMS, tenantID, baseURL, sess, opts...)
	c.WhatsApp = otp.New(otp.KindWhatsApp, tenantID, baseURL, sess, opts...)
	c.TOTP = otp.New(otp.KindTOTP, tenantID, baseURL, sess, opts...)

	if c.prefsDir != "" {
		manager, err := pin.NewManager(
			filepath.Join(c.prefsDir, "pin_secret"),
			filepath.Join(c.prefsDir, "pins.json"),
		)
		if err != nil {
			return nil, err
		}
		c.PIN = manager
	}

	return c, nil
}

// EnablePasskey wires up the passkey authenticator with the host's
// platform credential manager. Requires a preferences dir for the
// credential-id and device-id cache.
func (c *Client) EnablePasskey(manager passkey.CredentialManager) error {
	if c.prefsDir == "" {
		return ErrNoPreferencesDir
	}

	store := prefs.NewStore(filepath.Join(c.prefsDir, "settings.json"))
	c.Passkey = passkey.New(c.tenantID, c.baseURL, manager, store, c.session, c.opts...)

	return nil
}

// SetToken stores the bearer token used by the token-authenticated flows.
func (c *Client) SetToken(token string) {
	c.session.SetToken(token)
}

func (c *Client) ClearToken() {
	c.session.ClearToken()
}

// Session exposes the shared session for expiry introspection.
func (c *Client) Session() *session.Session {
	return c.session
}
