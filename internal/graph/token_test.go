package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp(t *testing.T) {
	app := NewApp("id", "secret")
	assert.Equal(t, "id", app.ID())
	assert.Equal(t, "secret", app.Secret())
	assert.Equal(t, "id|secret", app.AccessToken().Value())
	assert.True(t, app.AccessToken().IsAppAccessToken())

	restored, err := ParseApp(app.Serialize())
	require.NoError(t, err)
	assert.Equal(t, app, restored)

	_, err = ParseApp("no-separator")
	assert.Error(t, err)
}

func TestAppSecretProof(t *testing.T) {
	tests := []struct {
		token, secret, want string
	}{
		{"foo_token", "foo_secret", fooTokenProof},
		{"foo_token", "foo_app_secret", fooAppTokenProof},
		{"123|foo_secret", "foo_secret", appTokenProof},
		{"long_token", "foo_secret", "7e91300ea91be4166282611d4fc700b473466f3ea2981dafbf492fc096995bf1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AppSecretProof(tt.token, tt.secret), tt.token)
		assert.Equal(t, tt.want, NewAccessToken(tt.token).AppSecretProof(tt.secret))
	}
}

func TestAccessToken_Lifetime(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	freezeNow(t, base)

	tests := []struct {
		name         string
		token        *AccessToken
		longLived    bool
		expired      bool
		expiredKnown bool
	}{
		{"no expiry", NewAccessToken("foo_token"), false, false, false},
		{"app token", NewAccessToken("123|foo_secret"), true, false, true},
		{"one hour", NewAccessTokenWithExpiry("t", base.Add(time.Hour)), false, false, true},
		{"sixty days", NewAccessTokenWithExpiry("t", base.Add(60*24*time.Hour)), true, false, true},
		{"expired", NewAccessTokenWithExpiry("t", base.Add(-time.Minute)), false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.longLived, tt.token.IsLongLived())
			expired, known := tt.token.IsExpired()
			assert.Equal(t, tt.expired, expired)
			assert.Equal(t, tt.expiredKnown, known)
		})
	}
}

func TestAccessTokenMetadata(t *testing.T) {
	freezeNow(t, time.Unix(1500000000, 0))
	body := ObjectOf("data", ObjectOf(
		"app_id", "123",
		"application", "Foo",
		"user_id", "1337",
		"is_valid", true,
		"issued_at", int64(1400000000),
		"expires_at", int64(1600000000),
		"scopes", []any{"email", "public_profile"},
		"metadata", ObjectOf("sso", "ios", "auth_type", "rerequest"),
	))

	m, err := NewAccessTokenMetadata(body)
	require.NoError(t, err)
	assert.Equal(t, "123", m.AppID())
	assert.Equal(t, "Foo", m.Application())
	assert.Equal(t, "1337", m.UserID())
	assert.Equal(t, "ios", m.SSO())
	assert.Equal(t, "rerequest", m.AuthType())
	assert.True(t, m.IsValid())
	assert.False(t, m.IsError())
	assert.Equal(t, []string{"email", "public_profile"}, m.Scopes())

	expires, ok := m.ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, int64(1600000000), expires.Unix())
	issued, ok := m.IssuedAt()
	require.True(t, ok)
	assert.Equal(t, int64(1400000000), issued.Unix())

	assert.NoError(t, m.ValidateAppID("123"))
	assert.NoError(t, m.ValidateUserID("1337"))
	assert.NoError(t, m.ValidateExpiration())

	err = m.ValidateAppID("999")
	require.True(t, IsAuthError(err))
	assert.Equal(t, "Access token metadata contains unexpected app ID.", err.Error())
	err = m.ValidateUserID("999")
	require.True(t, IsAuthError(err))
	assert.Equal(t, "Access token metadata contains unexpected user ID.", err.Error())

	freezeNow(t, time.Unix(1700000000, 0))
	err = m.ValidateExpiration()
	require.True(t, IsAuthError(err))
	assert.Equal(t, "Inspection of access token metadata shows that the access token has expired.", err.Error())
}

func TestAccessTokenMetadata_NeverExpires(t *testing.T) {
	m, err := NewAccessTokenMetadata(ObjectOf("data", ObjectOf("expires_at", int64(0), "is_valid", true)))
	require.NoError(t, err)
	_, ok := m.ExpiresAt()
	assert.False(t, ok)
	assert.NoError(t, m.ValidateExpiration())
}

func TestAccessTokenMetadata_ErrorData(t *testing.T) {
	m, err := NewAccessTokenMetadata(ObjectOf("data", ObjectOf(
		"is_valid", false,
		"error", ObjectOf("code", int64(190), "message", "Session expired", "subcode", int64(463)),
	)))
	require.NoError(t, err)
	assert.True(t, m.IsError())
	code, ok := m.ErrorCode()
	assert.True(t, ok)
	assert.Equal(t, 190, code)
	sub, _ := m.ErrorSubcode()
	assert.Equal(t, 463, sub)
	assert.Equal(t, "Session expired", m.ErrorMessage())
}

func TestAccessTokenMetadata_BadBody(t *testing.T) {
	for _, body := range []*Object{NewObject(), ObjectOf("data", "nope")} {
		_, err := NewAccessTokenMetadata(body)
		require.True(t, IsAuthError(err))
		assert.Equal(t, "Unexpected debug token response data.", err.Error())
	}
}

func TestVersion(t *testing.T) {
	for _, v := range []string{"v12.0", "v2.10", "v1337.0"} {
		assert.NoError(t, ValidateVersion(v), v)
	}
	for _, v := range []string{"", "12.0", "v12", "latest", "v1.2.3"} {
		assert.True(t, IsConfigurationError(ValidateVersion(v)), v)
	}
	assert.Equal(t, DefaultGraphVersion, NormalizeVersion(" "))
	assert.Equal(t, "v3.1", NormalizeVersion("3.1"))
	assert.Equal(t, -1, CompareVersions("v2.10", "v12.0"))
	assert.Equal(t, 1, CompareVersions("v2.10", "v2.9"))
}
