package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphkit/graph-cli/internal/graph"
)

func clearGraphEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvAppID, EnvAppSecret, EnvAccessToken, EnvAPIVersion, EnvBeta, EnvProfile, EnvStateStore} {
		t.Setenv(key, "")
	}
}

func TestResolveClientConfig_FromEnvOnly(t *testing.T) {
	clearGraphEnv(t)
	withMockKeyring(t, testKeyring(t, nil))
	t.Setenv(EnvAppID, "123")
	t.Setenv(EnvAppSecret, "secret")
	t.Setenv(EnvAPIVersion, "18.0")

	cfg, err := ResolveClientConfig(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.ProfileName)
	assert.Equal(t, "123", cfg.AppID)
	assert.Equal(t, "secret", cfg.AppSecret)
	assert.Equal(t, "v18.0", cfg.Version)
	assert.Equal(t, "memory", cfg.StateStore)
	assert.False(t, cfg.Beta)
}

func TestResolveClientConfig_Precedence(t *testing.T) {
	clearGraphEnv(t)
	ring := testKeyring(t, nil)
	storeProfile(t, ring, "work", Profile{
		AppID:       "profile-app",
		AppSecret:   "profile-secret",
		AccessToken: "profile-token",
		Version:     "v17.0",
		StateStore:  "keyring",
	})
	withMockKeyring(t, ring)
	require.NoError(t, SetCurrentProfile("work"))

	t.Setenv(EnvAccessToken, "env-token")
	t.Setenv(EnvBeta, "true")

	beta := false
	cfg, err := ResolveClientConfig(Overrides{Version: "v19.0", Beta: &beta})
	require.NoError(t, err)

	assert.Equal(t, "work", cfg.ProfileName)
	assert.Equal(t, "profile-app", cfg.AppID)
	assert.Equal(t, "env-token", cfg.AccessToken)
	assert.Equal(t, "v19.0", cfg.Version)
	assert.False(t, cfg.Beta)
	assert.Equal(t, "keyring", cfg.StateStore)

	opts := cfg.GraphOptions()
	assert.Equal(t, "env-token", opts.DefaultToken)
	assert.Equal(t, "v19.0", opts.Version)
	assert.Equal(t, cfg.AppSecret, cfg.Profile().AppSecret)
}

func TestResolveClientConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		overrides Overrides
		check     func(t *testing.T, err error)
	}{
		{
			name: "nothing configured",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNotConfigured)
			},
		},
		{
			name:      "named profile missing",
			overrides: Overrides{Profile: "ghost"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNotConfigured)
				assert.True(t, strings.Contains(err.Error(), `profile "ghost"`))
			},
		},
		{
			name:      "invalid version",
			env:       map[string]string{EnvAppID: "1", EnvAppSecret: "s"},
			overrides: Overrides{Version: "v18"},
			check: func(t *testing.T, err error) {
				assert.True(t, graph.IsConfigurationError(err), "got %v", err)
			},
		},
		{
			name: "invalid beta env",
			env:  map[string]string{EnvAppID: "1", EnvAppSecret: "s", EnvBeta: "maybe"},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), EnvBeta)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearGraphEnv(t)
			withMockKeyring(t, testKeyring(t, nil))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := ResolveClientConfig(tt.overrides)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestResolveClientConfig_KeyringFailure(t *testing.T) {
	clearGraphEnv(t)
	withFailingKeyring(t, errors.New("locked"))
	_, err := ResolveClientConfig(Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}
