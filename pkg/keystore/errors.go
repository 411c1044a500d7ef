package keystore

import (
	"errors"
)

var (
	ErrNotFound                  = errors.New("keystore: key not found")
	ErrInvalidAlgorithmParameter = errors.New("keystore: invalid algorithm parameter")
	ErrUnknownKeyGeneration      = errors.New("keystore: unknown key generation error")
)
