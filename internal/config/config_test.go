package config

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/99designs/keyring"
)

// testKeyring creates a mock keyring for testing
func testKeyring(t *testing.T, initial []keyring.Item) *keyring.ArrayKeyring {
	t.Helper()
	return keyring.NewArrayKeyring(initial)
}

// withMockKeyring sets up a mock keyring for the duration of a test
func withMockKeyring(t *testing.T, ring keyring.Keyring) {
	t.Helper()
	t.Cleanup(SetOpenKeyring(func(cfg keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	}))
}

// withFailingKeyring sets up a keyring that always fails to open
func withFailingKeyring(t *testing.T, err error) {
	t.Helper()
	t.Cleanup(SetOpenKeyring(func(cfg keyring.Config) (keyring.Keyring, error) {
		return nil, err
	}))
}

func storeProfile(t *testing.T, ring keyring.Keyring, name string, p Profile) {
	t.Helper()
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := ring.Set(keyring.Item{Key: profileKey(name), Data: data}); err != nil {
		t.Fatal(err)
	}
}

func TestProfileKey(t *testing.T) {
	tests := []struct {
		name     string
		profile  string
		expected string
	}{
		{"empty profile uses default", "", "profile:default"},
		{"default profile", "default", "profile:default"},
		{"named profile uses prefix", "work", "profile:work"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := profileKey(tt.profile); got != tt.expected {
				t.Errorf("profileKey(%q) = %q, want %q", tt.profile, got, tt.expected)
			}
		})
	}
}

func TestNormalizeProfiles(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil", nil, nil},
		{"dedupes keeping order", []string{"work", "default", "work"}, []string{"work", "default"}},
		{"trims and drops blanks", []string{" work ", "", "  "}, []string{"work"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeProfiles(tt.input)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("normalizeProfiles(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestProfileIndexRoundTrip(t *testing.T) {
	ring := testKeyring(t, nil)

	profiles, err := loadProfileIndex(ring)
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 0 {
		t.Fatalf("empty ring index = %v", profiles)
	}

	if err := saveProfileIndex(ring, []string{"default", "work"}); err != nil {
		t.Fatal(err)
	}
	profiles, err = loadProfileIndex(ring)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(profiles, ",") != "default,work" {
		t.Errorf("index = %v", profiles)
	}

	_ = ring.Set(keyring.Item{Key: profileIndexKey, Data: []byte("{bad")})
	if _, err := loadProfileIndex(ring); err == nil {
		t.Error("expected error for corrupt index")
	}
}

func TestProfileRedacted(t *testing.T) {
	p := Profile{AppID: "123", AppSecret: "0123456789abcdef", AccessToken: "short"}
	r := p.Redacted()
	if r.AppID != "123" {
		t.Errorf("AppID should be kept, got %q", r.AppID)
	}
	if r.AppSecret != "0123****cdef" {
		t.Errorf("AppSecret = %q", r.AppSecret)
	}
	if r.AccessToken != "****" {
		t.Errorf("AccessToken = %q", r.AccessToken)
	}
	if p.AppSecret != "0123456789abcdef" {
		t.Error("Redacted must not modify the receiver")
	}
	if (Profile{}).Redacted().AppSecret != "" {
		t.Error("empty secret should stay empty")
	}
}

func TestProfileJSONOmitEmpty(t *testing.T) {
	data, err := json.Marshal(Profile{AppID: "1", AppSecret: "s"})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"app_id":"1","app_secret":"s"}` {
		t.Errorf("json = %s", data)
	}
}

func TestKeyringConfig(t *testing.T) {
	t.Setenv(envKeyringBackend, "")
	t.Setenv(envCredentialsDir, "")

	cfg := keyringConfig()
	if cfg.ServiceName != serviceName {
		t.Errorf("ServiceName = %q, want %q", cfg.ServiceName, serviceName)
	}
	if cfg.FileDir == "" {
		t.Error("FileDir should be configured in auto backend mode")
	}
	if cfg.FilePasswordFunc == nil {
		t.Error("FilePasswordFunc should be configured in auto backend mode")
	}
}

func TestKeyringConfig_FileBackendOverride(t *testing.T) {
	t.Setenv(envKeyringBackend, "file")
	base := t.TempDir()
	t.Setenv(envCredentialsDir, base)

	cfg := keyringConfig()
	if len(cfg.AllowedBackends) != 1 || cfg.AllowedBackends[0] != keyring.FileBackend {
		t.Fatalf("AllowedBackends = %v, want [%s]", cfg.AllowedBackends, keyring.FileBackend)
	}
	if want := filepath.Join(base, "keyring"); cfg.FileDir != want {
		t.Fatalf("FileDir = %q, want %q", cfg.FileDir, want)
	}
}

func TestKeyringConfig_SystemBackendOverride(t *testing.T) {
	t.Setenv(envKeyringBackend, "system")

	cfg := keyringConfig()
	if cfg.FileDir != "" || cfg.FilePasswordFunc != nil || len(cfg.AllowedBackends) != 0 {
		t.Fatalf("system backend should not configure file storage: %+v", cfg)
	}
}

func TestShouldForceFileBackend(t *testing.T) {
	tests := []struct {
		name     string
		goos     string
		backend  string
		dbusAddr string
		want     bool
	}{
		{"explicit file backend always forces file", "darwin", keyringBackendFile, "ignored", true},
		{"auto backend on headless linux forces file", "linux", keyringBackendAuto, "", true},
		{"auto backend on linux desktop does not force file", "linux", keyringBackendAuto, "unix:path=/run/user/1000/bus", false},
		{"system backend never forces file", "linux", keyringBackendSystem, "", false},
		{"auto backend on non-linux does not force file", "windows", keyringBackendAuto, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldForceFileBackend(tt.goos, tt.backend, tt.dbusAddr); got != tt.want {
				t.Fatalf("shouldForceFileBackend(%q, %q, %q) = %v, want %v", tt.goos, tt.backend, tt.dbusAddr, got, tt.want)
			}
		})
	}
}

func TestKeyringBackendMode(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"", keyringBackendAuto},
		{"auto", keyringBackendAuto},
		{"FILE", keyringBackendFile},
		{"system", keyringBackendSystem},
		{"native", keyringBackendSystem},
		{"os", keyringBackendSystem},
		{"weird", keyringBackendAuto},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(envKeyringBackend, tt.value)
			if got := keyringBackendMode(); got != tt.want {
				t.Fatalf("keyringBackendMode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigDir_DefaultsToUserConfigDir(t *testing.T) {
	t.Setenv(envCredentialsDir, "")

	fakeConfigDir := t.TempDir()
	original := userConfigDir
	userConfigDir = func() (string, error) { return fakeConfigDir, nil }
	t.Cleanup(func() { userConfigDir = original })

	if got, want := ConfigDir(), filepath.Join(fakeConfigDir, serviceName); got != want {
		t.Fatalf("ConfigDir() = %q, want %q", got, want)
	}
	if got, want := keyringFileDir(), filepath.Join(fakeConfigDir, serviceName, "keyring"); got != want {
		t.Fatalf("keyringFileDir() = %q, want %q", got, want)
	}
}

func TestKeyringFilePassword_FromEnv(t *testing.T) {
	t.Setenv(envKeyringPassword, "env-pass")

	password, err := keyringFilePassword("prompt")
	if err != nil {
		t.Fatalf("keyringFilePassword() unexpected error: %v", err)
	}
	if password != "env-pass" {
		t.Fatalf("keyringFilePassword() = %q, want %q", password, "env-pass")
	}
}

func TestKeyringFilePassword_NonInteractiveError(t *testing.T) {
	t.Setenv(envKeyringPassword, "")

	original := stdinHasTTY
	stdinHasTTY = func() bool { return false }
	t.Cleanup(func() { stdinHasTTY = original })

	_, err := keyringFilePassword("prompt")
	if err == nil {
		t.Fatal("expected error for missing keyring password in non-interactive mode")
	}
	if !strings.Contains(err.Error(), envKeyringPassword) {
		t.Fatalf("error = %q, want to mention %s", err.Error(), envKeyringPassword)
	}
}

func TestSaveProfile(t *testing.T) {
	tests := []struct {
		name    string
		profile string
		stored  string
		p       Profile
	}{
		{"empty name saves default", "", "default", Profile{AppID: "1", AppSecret: "s1"}},
		{"named profile", "work", "work", Profile{AppID: "2", AppSecret: "s2", AccessToken: "tok", Version: "v18.0"}},
		{"beta with state store", "staging", "staging", Profile{AppID: "3", AppSecret: "s3", Beta: true, StateStore: "redis://localhost:6379/0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring := testKeyring(t, nil)
			withMockKeyring(t, ring)

			if err := SaveProfile(tt.profile, tt.p); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			item, err := ring.Get(profileKey(tt.stored))
			if err != nil {
				t.Fatalf("Failed to get saved profile: %v", err)
			}
			var saved Profile
			if err := json.Unmarshal(item.Data, &saved); err != nil {
				t.Fatalf("Failed to unmarshal saved profile: %v", err)
			}
			if saved != tt.p {
				t.Errorf("saved = %+v, want %+v", saved, tt.p)
			}

			current, err := CurrentProfile()
			if err != nil || current != tt.stored {
				t.Errorf("CurrentProfile() = %q, %v; want %q", current, err, tt.stored)
			}
			profiles, _ := ListProfiles()
			if strings.Join(profiles, ",") != tt.stored {
				t.Errorf("ListProfiles() = %v", profiles)
			}
		})
	}
}

func TestSaveProfile_InvalidName(t *testing.T) {
	withMockKeyring(t, testKeyring(t, nil))
	if err := SaveProfile("my profile", Profile{AppID: "1", AppSecret: "s"}); err == nil {
		t.Fatal("expected error for name with spaces")
	}
}

func TestSaveProfileKeyringError(t *testing.T) {
	withFailingKeyring(t, errors.New("keyring unavailable"))

	err := SaveProfile("test", Profile{AppID: "1", AppSecret: "s"})
	if err == nil || !strings.Contains(err.Error(), "failed to open keyring") {
		t.Errorf("expected open error, got %v", err)
	}
}

func TestLoadProfile(t *testing.T) {
	ring := testKeyring(t, nil)
	storeProfile(t, ring, "work", Profile{AppID: "2", AppSecret: "s2", Version: "v18.0"})
	withMockKeyring(t, ring)

	p, err := LoadProfile("work")
	if err != nil {
		t.Fatal(err)
	}
	if p.AppID != "2" || p.Version != "v18.0" {
		t.Errorf("LoadProfile = %+v", p)
	}

	if _, err := LoadProfile("missing"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing profile error = %v, want ErrNotConfigured", err)
	}

	_ = ring.Set(keyring.Item{Key: profileKey("broken"), Data: []byte("not valid json")})
	if _, err := LoadProfile("broken"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoadProfileKeyringError(t *testing.T) {
	withFailingKeyring(t, errors.New("keyring unavailable"))

	if _, err := LoadProfile("test"); err == nil {
		t.Error("Expected error but got nil")
	}
}

func TestDeleteProfile(t *testing.T) {
	ring := testKeyring(t, nil)
	storeProfile(t, ring, "default", Profile{AppID: "1", AppSecret: "s1"})
	storeProfile(t, ring, "work", Profile{AppID: "2", AppSecret: "s2"})
	_ = saveProfileIndex(ring, []string{"default", "work"})
	_ = ring.Set(keyring.Item{Key: currentProfileKey, Data: []byte("work")})
	withMockKeyring(t, ring)

	if err := DeleteProfile("work"); err != nil {
		t.Fatalf("DeleteProfile error: %v", err)
	}
	if _, err := ring.Get(profileKey("work")); err == nil {
		t.Error("Expected profile to be deleted")
	}

	profiles, _ := ListProfiles()
	if strings.Join(profiles, ",") != "default" {
		t.Errorf("index after delete = %v", profiles)
	}
	current, _ := CurrentProfile()
	if current != "default" {
		t.Errorf("current profile = %q, want default", current)
	}

	if err := DeleteProfile("nonexistent"); err != nil {
		t.Errorf("deleting a missing profile should succeed, got %v", err)
	}
}

func TestDeleteProfileKeyringError(t *testing.T) {
	withFailingKeyring(t, errors.New("keyring unavailable"))

	if err := DeleteProfile("test"); err == nil {
		t.Error("Expected error but got nil")
	}
}

func TestCurrentProfile(t *testing.T) {
	ring := testKeyring(t, nil)
	withMockKeyring(t, ring)

	current, err := CurrentProfile()
	if err != nil || current != "default" {
		t.Fatalf("CurrentProfile() = %q, %v; want default", current, err)
	}

	if err := SetCurrentProfile("work"); err != nil {
		t.Fatal(err)
	}
	current, _ = CurrentProfile()
	if current != "work" {
		t.Errorf("CurrentProfile() = %q, want work", current)
	}

	if err := SetCurrentProfile(""); err != nil {
		t.Fatal(err)
	}
	current, _ = CurrentProfile()
	if current != "default" {
		t.Errorf("empty name should reset to default, got %q", current)
	}
}

func TestActiveProfileName(t *testing.T) {
	ring := testKeyring(t, nil)
	_ = ring.Set(keyring.Item{Key: currentProfileKey, Data: []byte("work")})
	withMockKeyring(t, ring)

	t.Setenv(EnvProfile, "")
	if got, _ := ActiveProfileName(); got != "work" {
		t.Errorf("ActiveProfileName() = %q, want work", got)
	}
	t.Setenv(EnvProfile, "ci")
	if got, _ := ActiveProfileName(); got != "ci" {
		t.Errorf("ActiveProfileName() = %q, want ci", got)
	}
}

func TestOpenKeyringError(t *testing.T) {
	withFailingKeyring(t, errors.New("no backend"))
	_, err := OpenKeyring()
	if err == nil || !strings.Contains(err.Error(), "no backend") {
		t.Fatalf("OpenKeyring() error = %v", err)
	}
}
