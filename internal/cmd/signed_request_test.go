package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphkit/graph-cli/internal/graph"
)

func makeSignedRequest(t *testing.T, payload string) string {
	t.Helper()
	out, _, err := runCmd(t, "", "signed-request", "make", "--payload", payload)
	require.NoError(t, err)
	signed := strings.TrimSpace(out)
	require.Contains(t, signed, ".")
	return signed
}

func TestSignedRequestRoundTrip(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	signed := makeSignedRequest(t, `{"user_id":"123","oauth_token":"user-token"}`)

	out, _, err := runCmd(t, "", "signed-request", "parse", "-o", "json", "--", signed)
	require.NoError(t, err)
	got := decodeJSON(t, out)
	assert.Equal(t, "123", got["user_id"])
	assert.Equal(t, "user-token", got["oauth_token"])
	assert.Equal(t, "HMAC-SHA256", got["algorithm"])
	assert.NotNil(t, got["issued_at"])

	out, _, err = runCmd(t, signed+"\n", "sr", "parse", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "user_id")
	assert.NotContains(t, out, "No oauth_token")
}

func TestSignedRequestWithoutOAuthData(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	signed := makeSignedRequest(t, `{"user_id":"123"}`)
	out, _, err := runCmd(t, "", "signed-request", "parse", "--", signed)
	require.NoError(t, err)
	assert.Contains(t, out, "No oauth_token or code in payload.")
}

func TestSignedRequestRejectsTampering(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	signed := makeSignedRequest(t, `{"user_id":"123"}`)
	sig, payload, _ := strings.Cut(signed, ".")
	forged := graph.Base64URLEncode([]byte(`{"user_id":"999","algorithm":"HMAC-SHA256"}`))

	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"payload swapped", sig + "." + forged, "invalid signature"},
		{"no separator", sig + payload, "Malformed signed request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCmd(t, "", "signed-request", "parse", "--", tt.raw)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, exitUsage, ExitCode(err))
		})
	}
}

func TestSignedRequestMakeValidation(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	_, _, err := runCmd(t, "", "signed-request", "make", "--payload", `["a"]`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a JSON object")

	_, _, err = runCmd(t, "", "signed-request", "make", "--payload", `{oops`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --payload")

	out, _, err := runCmd(t, "", "signed-request", "make", "--payload", `{"user_id":"1"}`, "-o", "json")
	require.NoError(t, err)
	assert.NotEmpty(t, decodeJSON(t, out)["signed_request"])
}
