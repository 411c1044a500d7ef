// Package pin stores a per-user in-app PIN locally, encrypted with
// AES-GCM under a per-user subkey of a device master secret. The PIN never
// leaves the device; this is the simpler, symmetric sibling of the
// device-bound credential kinds.
package pin

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/crypto/hkdf"

	"github.com/authsignal/authsignal-go/pkg/prefs"
)

var ErrInvalidFormat = errors.New("pin: invalid PIN format, expected at least 4 digits")

const (
	pinSuffix     = "_pin"
	masterKeySize = 32
)

type Manager struct {
	store  *prefs.Store
	master []byte
}

// NewManager opens (or initializes) the PIN store. secretPath holds the
// 32-byte device master secret; prefsPath the encrypted PIN entries.
func NewManager(secretPath, prefsPath string) (*Manager, error) {
	master, err := loadOrCreateMaster(secretPath)
	if err != nil {
		return nil, err
	}

	return &Manager{
		store:  prefs.NewStore(prefsPath),
		master: master,
	}, nil
}

// ValidateFormat enforces the PIN format rule: at least four characters,
// digits only.
func ValidateFormat(pin string) bool {
	if len(pin) < 4 {
		return false
	}
	return lo.EveryBy([]rune(pin), unicode.IsDigit)
}

func (m *Manager) Create(pin, username string) error {
	if !ValidateFormat(pin) {
		return ErrInvalidFormat
	}

	sealed, err := m.seal(pin, username)
	if err != nil {
		return err
	}

	return m.store.Set(username+pinSuffix, sealed)
}

// Validate reports whether pin matches the stored PIN for username. A
// missing entry is simply a non-match, not an error.
func (m *Manager) Validate(pin, username string) (bool, error) {
	sealed, err := m.store.Get(username + pinSuffix)
	if err != nil {
		return false, err
	}
	if sealed == "" {
		return false, nil
	}

	stored, err := m.open(sealed, username)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(pin))) == 1, nil
}

func (m *Manager) Delete(username string) error {
	return m.store.Delete(username + pinSuffix)
}

// Usernames lists every user with a stored PIN.
func (m *Manager) Usernames() ([]string, error) {
	keys, err := m.store.Keys()
	if err != nil {
		return nil, err
	}

	return lo.FilterMap(keys, func(key string, _ int) (string, bool) {
		if !strings.HasSuffix(key, pinSuffix) {
			return "", false
		}
		return strings.TrimSuffix(key, pinSuffix), true
	}), nil
}

// userCipher derives a per-user AEAD from the device master secret, so one
// user's entry cannot decrypt another's.
func (m *Manager) userCipher(username string) (cipher.AEAD, error) {
	key := make([]byte, masterKeySize)
	kdf := hkdf.New(sha256.New, m.master, nil, []byte("authsignal_pin_"+username))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}

func (m *Manager) seal(pin, username string) (string, error) {
	gcm, err := m.userCipher(username)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(strings.TrimSpace(pin)), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (m *Manager) open(sealed, username string) (string, error) {
	gcm, err := m.userCipher(username)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("pin: stored entry too short")
	}

	plain, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return "", err
	}

	return string(plain), nil
}

func loadOrCreateMaster(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err == nil && len(b) == masterKeySize {
		return b, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	master := make([]byte, masterKeySize)
	if _, err := rand.Read(master); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, master, 0o600); err != nil {
		return nil, err
	}

	return master, nil
}
