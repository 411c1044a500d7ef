// Package session holds the bearer token shared by the token-authenticated
// flows. The host app sets it explicitly; verify-type flows refresh it
// silently when the backend returns a fresh access token.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenNotSet    = errors.New("session: a token has not been set, call SetToken first")
	ErrMalformedToken = errors.New("session: token is not a well-formed JWT")
)

// Session is an explicit, injectable replacement for a process-wide token
// cache. The slot is last-writer-wins; callers should serialize flows that
// both refresh it.
type Session struct {
	mu    sync.RWMutex
	token string
}

func New() *Session {
	return &Session{}
}

func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *Session) ClearToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

func (s *Session) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return "", ErrTokenNotSet
	}
	return s.token, nil
}

// Resolve prefers an explicitly supplied token over the cached one. A
// missing token is a recoverable error state, never treated as anonymous.
func (s *Session) Resolve(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return s.Token()
}

// ExpiresAt reads the exp claim of the cached token without verifying its
// signature; verification is the backend's job. Returns the zero time when
// the token carries no expiry.
func (s *Session) ExpiresAt() (time.Time, error) {
	token, err := s.Token()
	if err != nil {
		return time.Time{}, err
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, ErrMalformedToken
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, nil
	}

	return exp.Time, nil
}

// IsExpired reports whether the cached token carries an expiry in the
// past. Unparseable or missing tokens count as expired.
func (s *Session) IsExpired() bool {
	exp, err := s.ExpiresAt()
	if err != nil {
		return true
	}
	if exp.IsZero() {
		return false
	}
	return exp.Before(time.Now())
}
