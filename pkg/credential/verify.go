package credential

import (
	"context"
	"errors"

	"github.com/authsignal/authsignal-go/pkg/api"
	"github.com/authsignal/authsignal-go/pkg/astypes"
	"github.com/authsignal/authsignal-go/pkg/keystore"
	"github.com/authsignal/authsignal-go/pkg/signer"
)

var ErrVerifyUnsupported = errors.New("credential: verify is only available on the in-app kind")

type actionChallengeRequest struct {
	Action string `json:"action"`
}

type inAppVerifyRequest struct {
	ChallengeID string `json:"challengeId"`
	PublicKey   string `json:"publicKey"`
	Signature   string `json:"signature"`
}

// Verify proves possession of the in-app key against a fresh anonymous
// challenge. With an action set the flow runs under tenant auth for that
// action; without one it runs under the cached session token when
// available. A verified response refreshes the session token.
func (c *Controller) Verify(ctx context.Context, action string, pending *signer.PendingSignature) (*astypes.VerifyResponse, error) {
	if c.kind != KindInApp {
		return nil, ErrVerifyUnsupported
	}

	var challengeBody any
	if action != "" {
		challengeBody = actionChallengeRequest{Action: action}
	}

	var challenge astypes.ChallengeResponse
	if err := c.api.Post(ctx, "/client/challenge", c.api.BasicAuth(), challengeBody, &challenge); err != nil {
		return nil, err
	}

	key, err := c.keys.GetKey(c.tag)
	if err != nil {
		return nil, c.mapKeyError(err)
	}

	signature, err := c.signMessage(challenge.ChallengeID, key, pending)
	if err != nil {
		return nil, err
	}

	publicKey, err := keystore.DerivePublicKey(key)
	if err != nil {
		return nil, err
	}

	authorization := c.api.BasicAuth()
	if action == "" {
		if token, err := c.session.Token(); err == nil {
			authorization = api.Bearer(token)
		}
	}

	body := inAppVerifyRequest{
		ChallengeID: challenge.ChallengeID,
		PublicKey:   publicKey,
		Signature:   signature,
	}

	var out astypes.VerifyResponse
	if err := c.api.Post(ctx, "/client/verify/in-app", authorization, body, &out); err != nil {
		return nil, err
	}

	if out.AccessToken != "" {
		c.session.SetToken(out.AccessToken)
	}

	return &out, nil
}
