package graph

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const longLivedThreshold = 2 * time.Hour

var now = time.Now

// AccessToken is an access token value with an optional expiry.
type AccessToken struct {
	value     string
	expiresAt time.Time
}

// NewAccessToken returns a token without a known expiry.
func NewAccessToken(value string) *AccessToken {
	return &AccessToken{value: value}
}

// NewAccessTokenWithExpiry returns a token that expires at expiresAt.
func NewAccessTokenWithExpiry(value string, expiresAt time.Time) *AccessToken {
	return &AccessToken{value: value, expiresAt: expiresAt}
}

func (t *AccessToken) Value() string { return t.value }

func (t *AccessToken) String() string { return t.value }

// ExpiresAt returns the expiry and whether one is known.
func (t *AccessToken) ExpiresAt() (time.Time, bool) {
	return t.expiresAt, !t.expiresAt.IsZero()
}

// AppSecretProof returns the hex HMAC-SHA256 of the token keyed by secret.
func (t *AccessToken) AppSecretProof(secret string) string {
	return AppSecretProof(t.value, secret)
}

// IsAppAccessToken reports whether the token is an "id|secret" app token.
func (t *AccessToken) IsAppAccessToken() bool {
	return strings.Contains(t.value, "|")
}

// IsLongLived reports whether the token lives more than two hours from now.
// App tokens without an expiry never expire.
func (t *AccessToken) IsLongLived() bool {
	if exp, ok := t.ExpiresAt(); ok {
		return exp.After(now().Add(longLivedThreshold))
	}
	return t.IsAppAccessToken()
}

// IsExpired reports whether the token has expired. known is false when the
// expiry cannot be determined.
func (t *AccessToken) IsExpired() (expired bool, known bool) {
	if exp, ok := t.ExpiresAt(); ok {
		return exp.Before(now()), true
	}
	if t.IsAppAccessToken() {
		return false, true
	}
	return false, false
}

// AppSecretProof computes the appsecret_proof for token.
func AppSecretProof(token, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
