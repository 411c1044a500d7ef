package keystore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/ldclabs/cose/key"
	coseecdsa "github.com/ldclabs/cose/key/ecdsa"
)

type fileRecord struct {
	Key                        key.Key           `cbor:"1,keyasint"`
	UserAuthenticationRequired bool              `cbor:"2,keyasint"`
	TimeoutSeconds             int64             `cbor:"3,keyasint,omitempty"`
	AuthorizationType          AuthorizationType `cbor:"4,keyasint,omitempty"`
}

// File is a Store persisting keys to a single CBOR file of COSE_Key
// records, for platforms without a hardware-backed keystore. The file is
// created with 0600 permissions and rewritten atomically.
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) GetOrCreatePublicKey(tag string, auth Authorization) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return "", err
	}

	if k, ok := lookupRecord(records, tag); ok {
		return DerivePublicKey(k)
	}

	k, err := generateKey(auth)
	if err != nil {
		return "", err
	}

	ck, err := coseecdsa.KeyFromPrivate(k.priv)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownKeyGeneration, err)
	}

	records[tag] = fileRecord{
		Key:                        ck,
		UserAuthenticationRequired: auth.UserAuthenticationRequired,
		TimeoutSeconds:             int64(auth.Timeout / time.Second),
		AuthorizationType:          auth.AuthorizationType,
	}

	if err := f.save(records); err != nil {
		return "", err
	}

	return DerivePublicKey(k)
}

func (f *File) GetKey(tag string) (Key, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return nil, err
	}

	k, ok := lookupRecord(records, tag)
	if !ok {
		return nil, ErrNotFound
	}

	return k, nil
}

func (f *File) DeleteKey(tag string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return false
	}

	if _, ok := records[tag]; !ok {
		if _, ok := records[TagPrefix]; !ok {
			return true
		}
	}

	delete(records, tag)
	delete(records, TagPrefix)

	return f.save(records) == nil
}

func lookupRecord(records map[string]fileRecord, tag string) (*softwareKey, bool) {
	rec, ok := records[tag]
	if !ok {
		rec, ok = records[TagPrefix]
	}
	if !ok {
		return nil, false
	}

	priv, err := coseecdsa.KeyToPrivate(rec.Key)
	if err != nil {
		return nil, false
	}

	return &softwareKey{
		priv: priv,
		auth: Authorization{
			UserAuthenticationRequired: rec.UserAuthenticationRequired,
			Timeout:                    time.Duration(rec.TimeoutSeconds) * time.Second,
			AuthorizationType:          rec.AuthorizationType,
		},
	}, true
}

func (f *File) load() (map[string]fileRecord, error) {
	records := make(map[string]fileRecord)

	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, err
	}

	if err := cbor.Unmarshal(b, &records); err != nil {
		return nil, err
	}

	return records, nil
}

func (f *File) save(records map[string]fileRecord) error {
	b, err := cbor.Marshal(records)
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return nil
}
