package keystore

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"sync"
)

type softwareKey struct {
	priv *ecdsa.PrivateKey
	auth Authorization
}

func (k *softwareKey) Public() *ecdsa.PublicKey {
	return &k.priv.PublicKey
}

func (k *softwareKey) Sign(digest []byte) ([]byte, error) {
	return ecdsa.SignASN1(rand.Reader, k.priv, digest)
}

func (k *softwareKey) RequiresAuthorization() bool {
	return k.auth.UserAuthenticationRequired
}

func generateKey(auth Authorization) (*softwareKey, error) {
	if err := auth.validate(); err != nil {
		return nil, err
	}

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeyGeneration, err)
	}

	return &softwareKey{priv: priv, auth: auth}, nil
}

// Memory is an in-process Store. It backs tests and short-lived tooling;
// keys do not survive the process.
type Memory struct {
	mu   sync.Mutex
	keys map[string]*softwareKey
}

func NewMemory() *Memory {
	return &Memory{keys: make(map[string]*softwareKey)}
}

func (m *Memory) GetOrCreatePublicKey(tag string, auth Authorization) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if k, ok := m.lookup(tag); ok {
		return DerivePublicKey(k)
	}

	k, err := generateKey(auth)
	if err != nil {
		return "", err
	}
	m.keys[tag] = k

	return DerivePublicKey(k)
}

func (m *Memory) GetKey(tag string) (Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.lookup(tag)
	if !ok {
		return nil, ErrNotFound
	}

	return k, nil
}

func (m *Memory) DeleteKey(tag string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.keys, tag)
	delete(m.keys, TagPrefix)

	return true
}

func (m *Memory) lookup(tag string) (*softwareKey, bool) {
	if k, ok := m.keys[tag]; ok {
		return k, true
	}
	k, ok := m.keys[TagPrefix]
	return k, ok
}
