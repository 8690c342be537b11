package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/graphkit/graph-cli/internal/graph"
)

// Environment variables read by ResolveClientConfig.
const (
	EnvAppID       = "GRAPH_APP_ID"
	EnvAppSecret   = "GRAPH_APP_SECRET"
	EnvAccessToken = "GRAPH_ACCESS_TOKEN"
	EnvAPIVersion  = "GRAPH_API_VERSION"
	EnvBeta        = "GRAPH_BETA"
	EnvProfile     = "GRAPH_PROFILE"
	EnvStateStore  = "GRAPH_STATE_STORE"
	EnvOutput      = "GRAPH_OUTPUT"
)

// Overrides are values given on the command line; empty fields are unset.
type Overrides struct {
	Profile     string
	AppID       string
	AppSecret   string
	AccessToken string
	Version     string
	Beta        *bool
	StateStore  string
}

// ClientConfig contains resolved Graph client settings.
type ClientConfig struct {
	ProfileName string
	AppID       string
	AppSecret   string
	AccessToken string
	Version     string
	Beta        bool
	StateStore  string
}

// ResolveClientConfig merges the stored profile, the GRAPH_* environment and
// o, later sources winning. A missing profile is not an error as long as the
// app id and secret come from somewhere.
func ResolveClientConfig(o Overrides) (ClientConfig, error) {
	var cfg ClientConfig

	name := strings.TrimSpace(o.Profile)
	if name == "" {
		active, err := ActiveProfileName()
		if err != nil {
			return ClientConfig{}, err
		}
		name = active
	}
	cfg.ProfileName = name

	p, err := LoadProfile(name)
	switch {
	case err == nil:
		cfg.AppID = p.AppID
		cfg.AppSecret = p.AppSecret
		cfg.AccessToken = p.AccessToken
		cfg.Version = p.Version
		cfg.Beta = p.Beta
		cfg.StateStore = p.StateStore
	case errors.Is(err, ErrNotConfigured):
		if o.Profile != "" {
			return ClientConfig{}, fmt.Errorf("profile %q: %w", o.Profile, err)
		}
	default:
		return ClientConfig{}, err
	}

	applyEnv(&cfg.AppID, EnvAppID)
	applyEnv(&cfg.AppSecret, EnvAppSecret)
	applyEnv(&cfg.AccessToken, EnvAccessToken)
	applyEnv(&cfg.Version, EnvAPIVersion)
	applyEnv(&cfg.StateStore, EnvStateStore)
	if v := strings.TrimSpace(os.Getenv(EnvBeta)); v != "" {
		beta, err := strconv.ParseBool(v)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("%s must be a boolean: %w", EnvBeta, err)
		}
		cfg.Beta = beta
	}

	applyOverride(&cfg.AppID, o.AppID)
	applyOverride(&cfg.AppSecret, o.AppSecret)
	applyOverride(&cfg.AccessToken, o.AccessToken)
	applyOverride(&cfg.Version, o.Version)
	applyOverride(&cfg.StateStore, o.StateStore)
	if o.Beta != nil {
		cfg.Beta = *o.Beta
	}

	if cfg.AppID == "" || cfg.AppSecret == "" {
		return ClientConfig{}, ErrNotConfigured
	}
	cfg.Version = graph.NormalizeVersion(cfg.Version)
	if err := graph.ValidateVersion(cfg.Version); err != nil {
		return ClientConfig{}, err
	}
	if cfg.StateStore == "" {
		cfg.StateStore = "memory"
	}
	return cfg, nil
}

// Profile returns the stored form of cfg.
func (c ClientConfig) Profile() Profile {
	return Profile{
		AppID:       c.AppID,
		AppSecret:   c.AppSecret,
		AccessToken: c.AccessToken,
		Version:     c.Version,
		Beta:        c.Beta,
		StateStore:  c.StateStore,
	}
}

// GraphOptions converts cfg into options for graph.New.
func (c ClientConfig) GraphOptions() graph.Options {
	return graph.Options{
		AppID:        c.AppID,
		AppSecret:    c.AppSecret,
		Version:      c.Version,
		DefaultToken: c.AccessToken,
		Beta:         c.Beta,
	}
}

func applyEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyOverride(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
