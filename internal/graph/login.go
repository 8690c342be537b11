package graph

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

const (
	csrfLength = 32
	stateKey   = "state"
)

// PersistentStore keeps the CSRF state between the login redirect and the
// callback.
type PersistentStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore is a PersistentStore that lives as long as the process.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// RedirectLoginHelper builds login dialog URLs and completes the redirect
// back to the app.
type RedirectLoginHelper struct {
	oauth *OAuth2Client
	store PersistentStore
	// Separator joins query pairs in generated URLs.
	Separator string
}

// NewRedirectLoginHelper returns a helper keeping state in store, or in a
// MemoryStore when store is nil.
func NewRedirectLoginHelper(oauth *OAuth2Client, store PersistentStore) *RedirectLoginHelper {
	if store == nil {
		store = NewMemoryStore()
	}
	return &RedirectLoginHelper{oauth: oauth, store: store, Separator: "&"}
}

func (h *RedirectLoginHelper) Store() PersistentStore { return h.store }

func (h *RedirectLoginHelper) makeURL(ctx context.Context, redirectURL string, scope []string, params *Params) (string, error) {
	state, ok, err := h.store.Get(ctx, stateKey)
	if err != nil {
		return "", fmt.Errorf("failed to read login state: %w", err)
	}
	if !ok || state == "" {
		state, err = randomState()
		if err != nil {
			return "", err
		}
	}
	if err := h.store.Set(ctx, stateKey, state); err != nil {
		return "", fmt.Errorf("failed to save login state: %w", err)
	}
	return h.oauth.AuthorizationURL(redirectURL, state, scope, params, h.Separator), nil
}

func randomState() (string, error) {
	buf := make([]byte, csrfLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate login state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// LoginURL returns the login dialog URL asking for scope.
func (h *RedirectLoginHelper) LoginURL(ctx context.Context, redirectURL string, scope []string) (string, error) {
	return h.makeURL(ctx, redirectURL, scope, nil)
}

// ReRequestURL asks again for permissions the user declined.
func (h *RedirectLoginHelper) ReRequestURL(ctx context.Context, redirectURL string, scope []string) (string, error) {
	return h.makeURL(ctx, redirectURL, scope, ParamsOf("auth_type", "rerequest"))
}

// ReAuthenticationURL makes the user enter their password again.
func (h *RedirectLoginHelper) ReAuthenticationURL(ctx context.Context, redirectURL string, scope []string) (string, error) {
	return h.makeURL(ctx, redirectURL, scope, ParamsOf("auth_type", "reauthenticate"))
}

// LogoutURL returns the URL that logs the user out and sends them to next.
// App tokens are rejected.
func (h *RedirectLoginHelper) LogoutURL(token *AccessToken, next string) (string, error) {
	if token.IsAppAccessToken() {
		return "", &AuthError{Message: "Cannot generate a logout URL with an app access token.", Code: CodeLogoutWithAppToken}
	}
	sep := h.Separator
	if sep == "" {
		sep = "&"
	}
	query := EncodeParams(ParamsOf("next", next, "access_token", token.Value()))
	return BaseAuthorizationURL + "/logout.php?" + strings.ReplaceAll(query, "&", sep), nil
}

// Callback holds the query params Graph sends to the redirect URL.
type Callback struct {
	Code             string
	State            string
	Error            string
	ErrorCode        string
	ErrorReason      string
	ErrorDescription string
}

// ParseCallback reads the callback params from query.
func ParseCallback(query url.Values) Callback {
	return Callback{
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorCode:        query.Get("error_code"),
		ErrorReason:      query.Get("error_reason"),
		ErrorDescription: query.Get("error_description"),
	}
}

// AccessToken validates the CSRF state of cb and exchanges its code. It
// returns nil without error when cb carries no code.
func (h *RedirectLoginHelper) AccessToken(ctx context.Context, cb Callback, redirectURL string) (*AccessToken, error) {
	if cb.Code == "" {
		return nil, nil
	}
	if err := h.validateCSRF(ctx, cb.State); err != nil {
		return nil, err
	}
	if err := h.store.Delete(ctx, stateKey); err != nil {
		return nil, fmt.Errorf("failed to reset login state: %w", err)
	}
	redirectURL = RemoveParamsFromURL(redirectURL, "state")
	return h.oauth.AccessTokenFromCode(ctx, cb.Code, redirectURL)
}

func (h *RedirectLoginHelper) validateCSRF(ctx context.Context, state string) error {
	if state == "" {
		return &AuthError{Message: `Cross-site request forgery validation failed. Required GET param "state" missing.`}
	}
	saved, ok, err := h.store.Get(ctx, stateKey)
	if err != nil {
		return fmt.Errorf("failed to read login state: %w", err)
	}
	if !ok || saved == "" {
		return &AuthError{Message: `Cross-site request forgery validation failed. Required param "state" missing from persistent data.`}
	}
	if subtle.ConstantTimeCompare([]byte(saved), []byte(state)) != 1 {
		return &AuthError{Message: `Cross-site request forgery validation failed. The "state" param from the URL and session do not match.`}
	}
	return nil
}
