// Package config stores named Graph app profiles in the OS keyring and
// resolves the effective client settings from profile, environment and flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/99designs/keyring"
)

const (
	serviceName       = "graph-cli"
	defaultProfile    = "default"
	profilePrefix     = "profile:"
	profileIndexKey   = "profiles_index"
	currentProfileKey = "current_profile"

	envKeyringBackend  = "GRAPH_KEYRING_BACKEND"
	envKeyringPassword = "GRAPH_KEYRING_PASSWORD"
	envCredentialsDir  = "GRAPH_CREDENTIALS_DIR"

	keyringBackendAuto   = "auto"
	keyringBackendFile   = "file"
	keyringBackendSystem = "system"
)

// openKeyring is a package-level function for opening keyrings.
// It can be replaced in tests to use a mock keyring.
var openKeyring = func(cfg keyring.Config) (keyring.Keyring, error) {
	return keyring.Open(cfg)
}

var userConfigDir = os.UserConfigDir

var stdinHasTTY = func() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// SetOpenKeyring allows replacing the keyring opener for testing.
// Returns a cleanup function that restores the original.
func SetOpenKeyring(fn func(keyring.Config) (keyring.Keyring, error)) func() {
	original := openKeyring
	openKeyring = fn
	return func() { openKeyring = original }
}

// Profile holds the credentials and defaults of one Graph app.
type Profile struct {
	AppID       string `json:"app_id"`
	AppSecret   string `json:"app_secret"`
	AccessToken string `json:"access_token,omitempty"`
	Version     string `json:"api_version,omitempty"`
	Beta        bool   `json:"beta,omitempty"`
	// StateStore is a store URL (memory, redis://..., file:///..., keyring)
	// for the login CSRF state.
	StateStore string `json:"state_store,omitempty"`
}

// Redacted returns a copy safe to print.
func (p Profile) Redacted() Profile {
	p.AppSecret = redact(p.AppSecret)
	p.AccessToken = redact(p.AccessToken)
	return p
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// ErrNotConfigured is returned when a profile does not exist
var ErrNotConfigured = errors.New("graph app not configured - run 'graph profile save' or set GRAPH_APP_ID and GRAPH_APP_SECRET")

// OpenKeyring opens the CLI's keyring with the configured backend.
func OpenKeyring() (keyring.Keyring, error) {
	ring, err := openKeyring(keyringConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return ring, nil
}

func keyringConfig() keyring.Config {
	cfg := keyring.Config{
		ServiceName: serviceName,
	}

	backend := keyringBackendMode()
	if backend == keyringBackendSystem {
		return cfg
	}

	// Auto mode keeps file backend details so keyring.Open can fall through
	// to encrypted file storage when no native backend exists.
	configureFileBackend(&cfg)

	if shouldForceFileBackend(runtime.GOOS, backend, os.Getenv("DBUS_SESSION_BUS_ADDRESS")) {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	}

	return cfg
}

func keyringBackendMode() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envKeyringBackend))) {
	case "", keyringBackendAuto:
		return keyringBackendAuto
	case keyringBackendFile:
		return keyringBackendFile
	case keyringBackendSystem, "os", "native":
		return keyringBackendSystem
	default:
		return keyringBackendAuto
	}
}

// Headless Linux has no secret service; use encrypted file storage there.
func shouldForceFileBackend(goos, backend, dbusAddr string) bool {
	if backend == keyringBackendFile {
		return true
	}
	if backend != keyringBackendAuto {
		return false
	}
	return goos == "linux" && strings.TrimSpace(dbusAddr) == ""
}

func configureFileBackend(cfg *keyring.Config) {
	cfg.FileDir = keyringFileDir()
	cfg.FilePasswordFunc = keyringFilePassword
}

// ConfigDir returns the directory for CLI state files.
func ConfigDir() string {
	if base := strings.TrimSpace(os.Getenv(envCredentialsDir)); base != "" {
		return base
	}
	if dir, err := userConfigDir(); err == nil && strings.TrimSpace(dir) != "" {
		return filepath.Join(dir, serviceName)
	}
	if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		return filepath.Join(home, ".config", serviceName)
	}
	return filepath.Join(os.TempDir(), serviceName)
}

func keyringFileDir() string {
	return filepath.Join(ConfigDir(), "keyring")
}

func keyringFilePassword(prompt string) (string, error) {
	if password, ok := os.LookupEnv(envKeyringPassword); ok && strings.TrimSpace(password) != "" {
		return password, nil
	}
	if !stdinHasTTY() {
		return "", fmt.Errorf("set %s when using file keyring in non-interactive environments", envKeyringPassword)
	}
	return keyring.TerminalPrompt(prompt)
}

func profileKey(name string) string {
	if name == "" {
		name = defaultProfile
	}
	return profilePrefix + name
}

func loadProfileIndex(ring keyring.Keyring) ([]string, error) {
	item, err := ring.Get(profileIndexKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to get profile index: %w", err)
	}
	var profiles []string
	if err := json.Unmarshal(item.Data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile index: %w", err)
	}
	return profiles, nil
}

func saveProfileIndex(ring keyring.Keyring, profiles []string) error {
	data, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("failed to marshal profile index: %w", err)
	}
	return ring.Set(keyring.Item{
		Key:  profileIndexKey,
		Data: data,
	})
}

func normalizeProfiles(profiles []string) []string {
	seen := make(map[string]struct{}, len(profiles))
	var out []string
	for _, p := range profiles {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// SaveProfile stores p under name, adds it to the index and makes it current.
func SaveProfile(name string, p Profile) error {
	if name == "" {
		name = defaultProfile
	}
	if strings.ContainsAny(name, " \t\n/") {
		return fmt.Errorf("invalid profile name %q", name)
	}

	ring, err := OpenKeyring()
	if err != nil {
		return err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := ring.Set(keyring.Item{
		Key:  profileKey(name),
		Data: data,
	}); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	profiles, err := loadProfileIndex(ring)
	if err != nil {
		return err
	}
	if err := saveProfileIndex(ring, normalizeProfiles(append(profiles, name))); err != nil {
		return err
	}

	return SetCurrentProfile(name)
}

// LoadProfile retrieves the profile stored under name
func LoadProfile(name string) (Profile, error) {
	if name == "" {
		name = defaultProfile
	}

	ring, err := OpenKeyring()
	if err != nil {
		return Profile{}, err
	}

	item, err := ring.Get(profileKey(name))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return Profile{}, ErrNotConfigured
		}
		return Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(item.Data, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return p, nil
}

// DeleteProfile removes a stored profile. When it was current, the first
// remaining profile becomes current.
func DeleteProfile(name string) error {
	if name == "" {
		name = defaultProfile
	}

	ring, err := OpenKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(profileKey(name)); err != nil {
		if !errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("failed to remove profile: %w", err)
		}
	}

	profiles, err := loadProfileIndex(ring)
	if err != nil {
		return err
	}
	var remaining []string
	for _, p := range profiles {
		if p != name {
			remaining = append(remaining, p)
		}
	}
	if err := saveProfileIndex(ring, remaining); err != nil {
		return err
	}

	current, err := CurrentProfile()
	if err == nil && current == name {
		next := defaultProfile
		if len(remaining) > 0 {
			next = remaining[0]
		}
		_ = SetCurrentProfile(next)
	}
	return nil
}

// ListProfiles returns the known profile names
func ListProfiles() ([]string, error) {
	ring, err := OpenKeyring()
	if err != nil {
		return nil, err
	}
	return loadProfileIndex(ring)
}

// CurrentProfile returns the active profile name
func CurrentProfile() (string, error) {
	ring, err := OpenKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(currentProfileKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return defaultProfile, nil
		}
		return "", fmt.Errorf("failed to get current profile: %w", err)
	}
	return string(item.Data), nil
}

// SetCurrentProfile sets the active profile name
func SetCurrentProfile(name string) error {
	if name == "" {
		name = defaultProfile
	}

	ring, err := OpenKeyring()
	if err != nil {
		return err
	}
	return ring.Set(keyring.Item{
		Key:  currentProfileKey,
		Data: []byte(name),
	})
}

// ActiveProfileName returns GRAPH_PROFILE when set, else the current profile.
func ActiveProfileName() (string, error) {
	if name := strings.TrimSpace(os.Getenv(EnvProfile)); name != "" {
		return name, nil
	}
	return CurrentProfile()
}
