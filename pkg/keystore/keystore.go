// Package keystore holds the device-bound signing keys behind a small
// adapter interface, so hardware-backed platform keystores and the bundled
// software stores are interchangeable.
package keystore

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TagPrefix is the namespace shared by every signing key. A bare TagPrefix
// entry is the legacy single-user key predating per-user tags; it is read
// as a fallback but never created anew.
const TagPrefix = "authsignal_signing_key"

// AuthorizationType selects which platform user-authentication methods may
// unlock a key that was created with UserAuthenticationRequired.
type AuthorizationType int

const (
	AuthorizationTypeNone             AuthorizationType = 0
	AuthorizationTypeDeviceCredential AuthorizationType = 1 << 0
	AuthorizationTypeBiometricStrong  AuthorizationType = 1 << 1
)

// Authorization describes the user-authentication gate applied to a key at
// creation time.
type Authorization struct {
	UserAuthenticationRequired bool
	Timeout                    time.Duration
	AuthorizationType          AuthorizationType
}

func (a Authorization) validate() error {
	if a.Timeout < 0 {
		return fmt.Errorf("%w: negative authentication timeout", ErrInvalidAlgorithmParameter)
	}
	const known = AuthorizationTypeDeviceCredential | AuthorizationTypeBiometricStrong
	if a.AuthorizationType&^known != 0 {
		return fmt.Errorf("%w: unknown authorization type %d", ErrInvalidAlgorithmParameter, a.AuthorizationType)
	}
	return nil
}

// Key is a handle to a stored P-256 signing key. Sign produces an ASN.1 DER
// ECDSA signature over a SHA-256 digest; any other scheme is a protocol
// violation.
type Key interface {
	Public() *ecdsa.PublicKey
	Sign(digest []byte) ([]byte, error)
	RequiresAuthorization() bool
}

// Store is the adapter contract over a keystore backend.
type Store interface {
	// GetOrCreatePublicKey returns the public key for tag, generating a new
	// sign-only keypair when no entry exists.
	GetOrCreatePublicKey(tag string, auth Authorization) (string, error)

	// GetKey looks up tag, then the legacy untagged entry. Returns
	// ErrNotFound when neither exists.
	GetKey(tag string) (Key, error)

	// DeleteKey removes both the tagged and legacy entries if present.
	// Absence is not an error; false means the backend failed to persist
	// the removal.
	DeleteKey(tag string) bool
}

var unsafeTagChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Tag derives the keystore tag for an authenticator kind's key namespace
// and an optional username.
func Tag(suffix, username string) string {
	tag := TagPrefix
	if suffix != "" {
		tag += "_" + suffix
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return tag
	}

	return tag + "_" + unsafeTagChars.ReplaceAllString(username, "-")
}

// DerivePublicKey encodes the key's public half as base64 PKIX, the format
// the enrollment endpoint stores and challenge signatures are verified
// against. Deterministic, no side effects.
func DerivePublicKey(k Key) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(k.Public())
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(der), nil
}
