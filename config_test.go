package dashboard

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	config := NewConfig()

	if config.ClientID != "" || config.ClientSecret != "" {
		t.Error("Expected empty OAuth2 credentials")
	}

	if config.Addr() != "127.0.0.1:8080" {
		t.Errorf("Expected address %q, got %q", "127.0.0.1:8080", config.Addr())
	}

	if config.Session.CookieName != "session" {
		t.Errorf("Expected CookieName to be %q, got %q", "session", config.Session.CookieName)
	}

	if config.Session.Duration != 7*24*time.Hour {
		t.Errorf("Expected Duration to be 7 days, got %s", config.Session.Duration)
	}

	if config.LoginAttemptsPerMinute != 10 {
		t.Errorf("Expected LoginAttemptsPerMinute to be 10, got %d", config.LoginAttemptsPerMinute)
	}

	if config.AuthorizeURL != DiscordAuthorizeURL || config.TokenURL != DiscordTokenURL {
		t.Error("Expected Discord's OAuth2 endpoints")
	}
}

func TestConfig_Validate(t *testing.T) {
	config := NewConfig()
	if err := config.Validate(); !errors.Is(err, ErrEmptyClientID) {
		t.Errorf("Expected ErrEmptyClientID, got %+v", err)
	}

	config.ClientID = "id"
	if err := config.Validate(); !errors.Is(err, ErrEmptyClientSecret) {
		t.Errorf("Expected ErrEmptyClientSecret, got %+v", err)
	}

	config.ClientSecret = "secret"
	if err := config.Validate(); err != nil {
		t.Errorf("Unexpected error: %+v", err)
	}

	config.Session.CookieName = ""
	if err := config.Validate(); !errors.Is(err, ErrEmptyCookieName) {
		t.Errorf("Expected ErrEmptyCookieName, got %+v", err)
	}

	config.Session.CookieName = "session"
	config.Session.Duration = 0
	if err := config.Validate(); err == nil {
		t.Error("Expected an error for a zero session duration")
	}
}

func TestConfig_BaseURL(t *testing.T) {
	config := NewConfig()
	if config.BaseURL() != "http://127.0.0.1:8080" {
		t.Errorf("Unexpected derived base URL %q", config.BaseURL())
	}

	config.Domain = "https://bot.example.com/"
	if config.BaseURL() != "https://bot.example.com" {
		t.Errorf("Unexpected base URL %q", config.BaseURL())
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	yaml := `
host: 0.0.0.0
port: 9000
client_id: from-file
session:
  secure: true
  duration: 12h
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}

	t.Setenv("DASHBOARD_CLIENT_SECRET", "from-env")
	t.Setenv("DASHBOARD_PORT", "9100")
	t.Setenv("DASHBOARD_OWNER_IDS", "1,2")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}

	if config.Host != "0.0.0.0" {
		t.Errorf("Expected host from file, got %q", config.Host)
	}

	if config.Port != 9100 {
		t.Errorf("Expected port from environment, got %d", config.Port)
	}

	if config.ClientID != "from-file" || config.ClientSecret != "from-env" {
		t.Errorf("Unexpected credentials: %q / %q", config.ClientID, config.ClientSecret)
	}

	if !config.Session.Secure || config.Session.Duration != 12*time.Hour {
		t.Errorf("Unexpected session config: %+v", config.Session)
	}

	if config.Session.CookieName != "session" {
		t.Errorf("Expected default cookie name to survive, got %q", config.Session.CookieName)
	}

	if len(config.OwnerIDs) != 2 {
		t.Errorf("Unexpected owner ids: %v", config.OwnerIDs)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
