package credential

import (
	"errors"
)

var (
	ErrNoCredential   = errors.New("credential: no credential exists on this device")
	ErrLocalKeyDelete = errors.New("credential: server confirmed revocation but deleting the local key failed")
)
