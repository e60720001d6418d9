package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
)

// ErrSessionExpired signals that the stored credential is no longer valid.
// The in-flight operation is over; the caller must re-authenticate.
var ErrSessionExpired = errors.New("session expired, re-authentication required")

// Store holds the process-wide session credential. The guard is the only
// writer; every call site reads through it. Clear is idempotent so that
// concurrent expiry detections cannot trigger duplicate teardown side
// effects.
type Store struct {
	mu          sync.Mutex
	token       string
	displayName string
	active      bool
	onClear     func()
}

// NewStore creates an empty session store. onClear fires at most once per
// established session, when the credential is torn down; it is where the
// caller hooks its redirect-to-login behavior.
func NewStore(onClear func()) *Store {
	return &Store{onClear: onClear}
}

// Establish installs a fresh credential, re-arming the teardown hook.
func (s *Store) Establish(token, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.displayName = displayName
	s.active = true
}

// Token returns the stored bearer token, or an empty string after teardown.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// DisplayName returns the display name stored alongside the token.
func (s *Store) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayName
}

// IsExpired reports whether the stored token is unusable at the given time.
// A token whose embedded expiry equals now is already expired. A token whose
// expiry cannot be decoded is treated as expired: the client must not issue
// requests it cannot prove are viable.
func (s *Store) IsExpired(now time.Time) bool {
	s.mu.Lock()
	token := s.token
	active := s.active
	s.mu.Unlock()

	if !active || token == "" {
		return true
	}

	exp, err := TokenExpiry(token)
	if err != nil {
		return true
	}

	return !now.Before(exp)
}

// Clear tears the session down: token and display name are wiped and the
// onClear hook fires. Repeated calls are no-ops; the first caller wins and
// is reported with a true return.
func (s *Store) Clear() bool {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false
	}
	s.token = ""
	s.displayName = ""
	s.active = false
	hook := s.onClear
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return true
}

// TokenExpiry decodes the exp claim embedded in a JWT without verifying the
// signature. The backend is the authority on token validity; the client only
// needs the timestamp to avoid issuing doomed requests.
func TokenExpiry(token string) (time.Time, error) {
	parser := new(jwt.Parser)
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse session token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}

	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0), nil
	case json.Number:
		v, err := exp.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid exp claim: %w", err)
		}
		return time.Unix(v, 0), nil
	}

	return time.Time{}, fmt.Errorf("session token has no exp claim")
}
