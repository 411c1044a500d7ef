// Package astypes contains the wire and domain types shared by the
// authenticator packages.
package astypes

// Credential mirrors the server-side registration record of a device-bound
// authenticator. It is owned by the backend; the client only reads it.
type Credential struct {
	UserAuthenticatorID string `json:"userAuthenticatorId"`
	UserID              string `json:"userId"`
	VerifiedAt          string `json:"verifiedAt"`
	LastVerifiedAt      string `json:"lastVerifiedAt,omitempty"`
}

// Challenge is a server-issued unit of work representing a pending
// authorization decision awaiting device approval.
type Challenge struct {
	ChallengeID    string `json:"challengeId"`
	UserID         string `json:"userId"`
	ActionCode     string `json:"actionCode,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
	DeviceID       string `json:"deviceId,omitempty"`
	UserAgent      string `json:"userAgent,omitempty"`
	IPAddress      string `json:"ipAddress,omitempty"`
}

// ClaimResult reports the outcome of claiming a challenge, along with
// metadata about the requesting party.
type ClaimResult struct {
	Success        bool   `json:"success"`
	UserAgent      string `json:"userAgent,omitempty"`
	IPAddress      string `json:"ipAddress,omitempty"`
	ActionCode     string `json:"actionCode,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// VerifyResponse is returned by every verify-type flow. A non-empty
// AccessToken replaces the cached session token.
type VerifyResponse struct {
	IsVerified    bool   `json:"isVerified"`
	AccessToken   string `json:"accessToken,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
}

type EnrollResponse struct {
	UserAuthenticatorID string `json:"userAuthenticatorId"`
}

// TOTPEnrollment carries the provisioning material for an authenticator app.
type TOTPEnrollment struct {
	UserAuthenticatorID string `json:"userAuthenticatorId"`
	URI                 string `json:"uri"`
	Secret              string `json:"secret"`
}

type ChallengeResponse struct {
	ChallengeID string `json:"challengeId"`
}

// UserActionState is the backend's decision state for a tracked action.
type UserActionState string

const (
	UserActionStateAllow              UserActionState = "ALLOW"
	UserActionStateBlock              UserActionState = "BLOCK"
	UserActionStateChallengeRequired  UserActionState = "CHALLENGE_REQUIRED"
	UserActionStateChallengeFailed    UserActionState = "CHALLENGE_FAILED"
	UserActionStateChallengeSucceeded UserActionState = "CHALLENGE_SUCCEEDED"
	UserActionStateReviewRequired     UserActionState = "REVIEW_REQUIRED"
	UserActionStateReviewFailed       UserActionState = "REVIEW_FAILED"
	UserActionStateReviewSucceeded    UserActionState = "REVIEW_SUCCEEDED"
)
