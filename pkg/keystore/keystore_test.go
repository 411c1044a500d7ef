package keystore

import (
	"crypto/x509"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTag(t *testing.T) {
	assert.Equal(t, "authsignal_signing_key", Tag("", ""))
	assert.Equal(t, "authsignal_signing_key_in_app", Tag("in_app", ""))
	assert.Equal(t, "authsignal_signing_key_qr_code_jane", Tag("qr_code", "jane"))

	// Non-alphanumeric characters collapse to dashes.
	assert.Equal(t, "authsignal_signing_key_jane-doe-example-com", Tag("", "jane.doe@example.com"))
	assert.Equal(t, "authsignal_signing_key_jane", Tag("", "  jane  "))
}

func TestMemoryGetOrCreateIsIdempotent(t *testing.T) {
	store := NewMemory()

	first, err := store.GetOrCreatePublicKey("authsignal_signing_key_in_app", Authorization{})
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := store.GetOrCreatePublicKey("authsignal_signing_key_in_app", Authorization{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMemoryDeleteThenGetReturnsNotFound(t *testing.T) {
	store := NewMemory()

	tag := Tag("qr_code", "jane")
	_, err := store.GetOrCreatePublicKey(tag, Authorization{})
	require.NoError(t, err)

	require.True(t, store.DeleteKey(tag))

	_, err = store.GetKey(tag)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op, not an error.
	assert.True(t, store.DeleteKey(tag))
}

func TestMemoryLegacyFallback(t *testing.T) {
	store := NewMemory()

	// A pre-multi-user installation holds a single untagged key.
	legacy, err := store.GetOrCreatePublicKey(TagPrefix, Authorization{})
	require.NoError(t, err)

	key, err := store.GetKey(Tag("", "jane"))
	require.NoError(t, err)

	derived, err := DerivePublicKey(key)
	require.NoError(t, err)
	assert.Equal(t, legacy, derived)

	// Deleting the user tag removes the legacy entry as well.
	require.True(t, store.DeleteKey(Tag("", "jane")))
	_, err = store.GetKey(TagPrefix)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDerivePublicKeyIsValidPKIX(t *testing.T) {
	store := NewMemory()

	publicKey, err := store.GetOrCreatePublicKey(TagPrefix, Authorization{})
	require.NoError(t, err)

	der, err := base64.StdEncoding.DecodeString(publicKey)
	require.NoError(t, err)

	_, err = x509.ParsePKIXPublicKey(der)
	require.NoError(t, err)
}

func TestAuthorizationValidation(t *testing.T) {
	store := NewMemory()

	_, err := store.GetOrCreatePublicKey(TagPrefix, Authorization{
		UserAuthenticationRequired: true,
		Timeout:                    -1,
	})
	assert.ErrorIs(t, err, ErrInvalidAlgorithmParameter)

	_, err = store.GetOrCreatePublicKey(TagPrefix, Authorization{
		AuthorizationType: AuthorizationType(1 << 7),
	})
	assert.ErrorIs(t, err, ErrInvalidAlgorithmParameter)
}

func TestKeyRequiresAuthorization(t *testing.T) {
	store := NewMemory()

	tag := Tag("in_app", "")
	_, err := store.GetOrCreatePublicKey(tag, Authorization{
		UserAuthenticationRequired: true,
		AuthorizationType:          AuthorizationTypeBiometricStrong,
	})
	require.NoError(t, err)

	key, err := store.GetKey(tag)
	require.NoError(t, err)
	assert.True(t, key.RequiresAuthorization())
}
