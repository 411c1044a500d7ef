package credential

type addCredentialRequest struct {
	PublicKey      string `json:"publicKey"`
	DeviceName     string `json:"deviceName"`
	DevicePlatform string `json:"devicePlatform"`
}

type removeCredentialRequest struct {
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
}

// removeDeviceCredentialRequest is the legacy device-kind remove body; it
// carries the server-issued challenge id the signature covers.
type removeDeviceCredentialRequest struct {
	ChallengeID string `json:"challengeId"`
	PublicKey   string `json:"publicKey"`
	Signature   string `json:"signature"`
}

type claimChallengeRequest struct {
	PublicKey   string `json:"publicKey"`
	ChallengeID string `json:"challengeId"`
	Signature   string `json:"signature"`
}

type updateChallengeRequest struct {
	PublicKey        string  `json:"publicKey"`
	ChallengeID      string  `json:"challengeId"`
	Signature        string  `json:"signature"`
	Approved         bool    `json:"approved"`
	VerificationCode *string `json:"verificationCode"`
}

// challengeResponse is the wire shape of a pending-challenge lookup. A
// missing challengeId or userId means no challenge is pending, which is a
// normal state rather than a failure.
type challengeResponse struct {
	ChallengeID    *string `json:"challengeId"`
	UserID         *string `json:"userId"`
	ActionCode     string  `json:"actionCode,omitempty"`
	IdempotencyKey string  `json:"idempotencyKey,omitempty"`
	DeviceID       string  `json:"deviceId,omitempty"`
	UserAgent      string  `json:"userAgent,omitempty"`
	IPAddress      string  `json:"ipAddress,omitempty"`
}
