package dashboard

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Discord's published OAuth2 endpoints.
const (
	DiscordAuthorizeURL = "https://discord.com/oauth2/authorize"
	DiscordTokenURL     = "https://discord.com/api/oauth2/token"
)

// Config contains configuration variables for the Dashboard.
type Config struct {
	// Host is the address the HTTP listener binds to.
	Host string `json:"host" yaml:"host"`

	// Port is the port the HTTP listener binds to.
	Port int `json:"port" yaml:"port"`

	// Domain is the external base URL of the dashboard, e.g. "https://bot.example.com".
	// When empty, it is derived from Host and Port.
	Domain string `json:"domain" yaml:"domain"`

	// ClientID and ClientSecret are the Discord application's OAuth2 credentials.
	// The dashboard refuses to start without them.
	ClientID     string `json:"client_id" yaml:"client_id"`
	ClientSecret string `json:"client_secret" yaml:"client_secret"`

	// SecretKey signs session cookies.
	// When empty, a key is generated once and kept in the configured SecretStore.
	SecretKey string `json:"secret_key" yaml:"secret_key"`

	// OwnerIDs pins the Discord user ids allowed to log in.
	// When empty, the owner of the bot's application is used.
	OwnerIDs []string `json:"owner_ids" yaml:"owner_ids"`

	// AuthorizeURL and TokenURL override Discord's OAuth2 endpoints.
	AuthorizeURL string `json:"authorize_url" yaml:"authorize_url"`
	TokenURL     string `json:"token_url" yaml:"token_url"`

	// Session configures the session cookie.
	Session SessionConfig `json:"session" yaml:"session"`

	// ShutdownTimeout bounds how long in-flight requests may take to finish on shutdown.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	// LoginAttemptsPerMinute throttles login requests per client address. Zero disables throttling.
	LoginAttemptsPerMinute int `json:"login_attempts_per_minute" yaml:"login_attempts_per_minute"`
}

// SessionConfig contains configuration variables for the session cookie.
type SessionConfig struct {
	CookieName string        `json:"cookie_name" yaml:"cookie_name"`
	Secure     bool          `json:"secure" yaml:"secure"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Domain     string        `json:"domain" yaml:"domain"`
	Salt       string        `json:"salt" yaml:"salt"`
}

// NewConfig creates and returns a new Config instance with default settings.
// ClientID and ClientSecret are empty and must be set before use.
func NewConfig() *Config {
	return &Config{
		Host:         "127.0.0.1",
		Port:         8080,
		AuthorizeURL: DiscordAuthorizeURL,
		TokenURL:     DiscordTokenURL,
		Session: SessionConfig{
			CookieName: "session",
			Secure:     false,
			Duration:   7 * 24 * time.Hour,
			Salt:       "cookie-session",
		},
		ShutdownTimeout:        10 * time.Second,
		LoginAttemptsPerMinute: 10,
	}
}

// LoadConfig reads a YAML file on top of NewConfig's defaults and then applies
// DASHBOARD_* environment variables. An empty path only applies the environment.
func LoadConfig(path string) (*Config, error) {
	config := NewConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(b, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(config)
	return config, nil
}

func applyEnv(config *Config) {
	config.Host = getEnv("DASHBOARD_HOST", config.Host)
	config.Port = getEnvInt("DASHBOARD_PORT", config.Port)
	config.Domain = getEnv("DASHBOARD_DOMAIN", config.Domain)
	config.ClientID = getEnv("DASHBOARD_CLIENT_ID", config.ClientID)
	config.ClientSecret = getEnv("DASHBOARD_CLIENT_SECRET", config.ClientSecret)
	config.SecretKey = getEnv("DASHBOARD_SECRET_KEY", config.SecretKey)
	config.OwnerIDs = getEnvList("DASHBOARD_OWNER_IDS", config.OwnerIDs)
	config.Session.CookieName = getEnv("DASHBOARD_SESSION_COOKIE_NAME", config.Session.CookieName)
	config.Session.Secure = getEnvBool("DASHBOARD_SESSION_COOKIE_SECURE", config.Session.Secure)
	config.Session.Duration = getEnvDuration("DASHBOARD_SESSION_DURATION", config.Session.Duration)
	config.Session.Domain = getEnv("DASHBOARD_SESSION_COOKIE_DOMAIN", config.Session.Domain)
	config.Session.Salt = getEnv("DASHBOARD_SESSION_SALT", config.Session.Salt)
	config.ShutdownTimeout = getEnvDuration("DASHBOARD_SHUTDOWN_TIMEOUT", config.ShutdownTimeout)
	config.LoginAttemptsPerMinute = getEnvInt("DASHBOARD_LOGIN_ATTEMPTS_PER_MINUTE", config.LoginAttemptsPerMinute)
}

// Validate reports the first missing value the dashboard cannot start without.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return ErrEmptyClientID
	}
	if c.ClientSecret == "" {
		return ErrEmptyClientSecret
	}
	if c.Session.CookieName == "" {
		return ErrEmptyCookieName
	}
	if c.Session.Duration <= 0 {
		return fmt.Errorf("session duration must be positive, got %s", c.Session.Duration)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BaseURL returns the external base URL without a trailing slash.
func (c *Config) BaseURL() string {
	if c.Domain != "" {
		return strings.TrimSuffix(c.Domain, "/")
	}
	return "http://" + c.Addr()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
