// Package signer produces the detached signatures that authenticate
// challenge responses and credential removal. Signatures are ECDSA over
// SHA-256, ASN.1 DER encoded and transmitted as base64.
package signer

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/authsignal/authsignal-go/pkg/keystore"
)

var ErrAuthorizationRequired = errors.New("signer: key requires user authorization, use Begin and Authorize")

// TimeWindow bounds replay of signatures that cover no server-issued
// nonce: the signed message is the current 10-minute window index.
const TimeWindow = 10 * time.Minute

// Sign signs message in one shot. It refuses keys gated behind interactive
// user authentication; those must go through Begin so the host can run its
// authentication prompt between key selection and signing.
func Sign(message []byte, k keystore.Key) (string, error) {
	if k.RequiresAuthorization() {
		return "", ErrAuthorizationRequired
	}

	return sign(message, k)
}

// PendingSignature is an in-flight two-phase signing operation. The host
// pairs it with a platform authentication prompt, calls Authorize once the
// prompt succeeds, then Complete.
type PendingSignature struct {
	key        keystore.Key
	authorized bool
}

// Begin starts a two-phase signing operation for k. For keys without an
// interactive-auth requirement Begin may be skipped entirely.
func Begin(k keystore.Key) *PendingSignature {
	return &PendingSignature{key: k}
}

// Authorize records that the platform user-authentication prompt succeeded.
func (p *PendingSignature) Authorize() {
	p.authorized = true
}

func (p *PendingSignature) Complete(message []byte) (string, error) {
	if p.key.RequiresAuthorization() && !p.authorized {
		return "", ErrAuthorizationRequired
	}

	return sign(message, p.key)
}

func sign(message []byte, k keystore.Key) (string, error) {
	digest := sha256.Sum256(message)

	sig, err := k.Sign(digest[:])
	if err != nil {
		return "", fmt.Errorf("signer: signature generation failed: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sig), nil
}

// TimeBasedMessage derives the clock-synchronized nonce signed by flows
// that have no server-issued challenge id: floor(unix seconds / 600) as a
// decimal string, stable within a ten-minute window.
func TimeBasedMessage(now time.Time) string {
	return strconv.FormatInt(now.Unix()/int64(TimeWindow/time.Second), 10)
}
