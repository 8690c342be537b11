package graph

import "time"

// AccessTokenMetadata is the "data" object returned by /debug_token.
type AccessTokenMetadata struct {
	data *Object
}

// NewAccessTokenMetadata reads the debug_token response body.
func NewAccessTokenMetadata(body *Object) (*AccessTokenMetadata, error) {
	v, ok := body.Get("data")
	data, isObj := v.(*Object)
	if !ok || !isObj {
		return nil, &AuthError{Message: "Unexpected debug token response data.", Code: CodeUnexpectedTokenData}
	}
	data = data.Clone()
	for _, key := range []string{"expires_at", "issued_at"} {
		raw, ok := data.Get(key)
		if !ok {
			continue
		}
		if ts, ok := toInt(raw); ok && ts != 0 {
			data.Set(key, time.Unix(int64(ts), 0).UTC())
		}
	}
	return &AccessTokenMetadata{data: data}, nil
}

// Field returns a raw field.
func (m *AccessTokenMetadata) Field(name string) (any, bool) {
	return m.data.Get(name)
}

// Data returns all fields.
func (m *AccessTokenMetadata) Data() *Object { return m.data }

func (m *AccessTokenMetadata) str(path ...string) string {
	v, _ := lookupPath(m.data, path...)
	s, _ := toString(v)
	return s
}

func (m *AccessTokenMetadata) AppID() string       { return m.str("app_id") }
func (m *AccessTokenMetadata) Application() string { return m.str("application") }
func (m *AccessTokenMetadata) ProfileID() string   { return m.str("profile_id") }
func (m *AccessTokenMetadata) UserID() string      { return m.str("user_id") }
func (m *AccessTokenMetadata) SSO() string         { return m.str("metadata", "sso") }
func (m *AccessTokenMetadata) AuthType() string    { return m.str("metadata", "auth_type") }
func (m *AccessTokenMetadata) AuthNonce() string   { return m.str("metadata", "auth_nonce") }

// IsError reports whether Graph attached an error to the token.
func (m *AccessTokenMetadata) IsError() bool {
	v, ok := m.data.Get("error")
	return ok && v != nil
}

func (m *AccessTokenMetadata) ErrorCode() (int, bool) {
	v, ok := lookupPath(m.data, "error", "code")
	if !ok {
		return 0, false
	}
	return toInt(v)
}

func (m *AccessTokenMetadata) ErrorMessage() string { return m.str("error", "message") }

func (m *AccessTokenMetadata) ErrorSubcode() (int, bool) {
	v, ok := lookupPath(m.data, "error", "subcode")
	if !ok {
		return 0, false
	}
	return toInt(v)
}

func (m *AccessTokenMetadata) IsValid() bool {
	v, _ := m.data.Get("is_valid")
	b, _ := v.(bool)
	return b
}

// ExpiresAt returns the expiry; tokens that never expire have none.
func (m *AccessTokenMetadata) ExpiresAt() (time.Time, bool) {
	v, _ := m.data.Get("expires_at")
	t, ok := v.(time.Time)
	return t, ok
}

func (m *AccessTokenMetadata) IssuedAt() (time.Time, bool) {
	v, _ := m.data.Get("issued_at")
	t, ok := v.(time.Time)
	return t, ok
}

// Scopes returns the granted permissions.
func (m *AccessTokenMetadata) Scopes() []string {
	v, _ := m.data.Get("scopes")
	return stringList(v)
}

// ValidateAppID fails unless the token belongs to appID.
func (m *AccessTokenMetadata) ValidateAppID(appID string) error {
	if m.AppID() != appID {
		return &AuthError{Message: "Access token metadata contains unexpected app ID.", Code: CodeUnexpectedTokenData}
	}
	return nil
}

// ValidateUserID fails unless the token belongs to userID.
func (m *AccessTokenMetadata) ValidateUserID(userID string) error {
	if m.UserID() != userID {
		return &AuthError{Message: "Access token metadata contains unexpected user ID.", Code: CodeUnexpectedTokenData}
	}
	return nil
}

// ValidateExpiration fails when the token has expired.
func (m *AccessTokenMetadata) ValidateExpiration() error {
	exp, ok := m.ExpiresAt()
	if !ok {
		return nil
	}
	if exp.Before(now()) {
		return &AuthError{Message: "Inspection of access token metadata shows that the access token has expired.", Code: CodeUnexpectedTokenData}
	}
	return nil
}
