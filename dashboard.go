package dashboard

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/oklahomer/go-kasumi/logger"

	"github.com/oklahomer/go-sarah-dashboard/settings"
)

//go:embed templates/*.html
var templateFiles embed.FS

// SecretKeyName is the name under which a generated session key is kept in a SecretStore.
const SecretKeyName = "dashboard.secret_key"

// SecretStore keeps generated secrets across restarts.
// *settings.SQLiteStore satisfies this interface.
type SecretStore interface {
	Secret(ctx context.Context, name string, generate func() (string, error)) (string, error)
}

var _ SecretStore = (*settings.SQLiteStore)(nil)

// Option defines a function signature for Dashboard's functional options.
type Option func(*Dashboard)

// WithHTTPClient sets the client used for every request to the identity provider.
// The Dashboard owns the client: it closes its idle connections on shutdown.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dashboard) {
		d.client = client
	}
}

// WithProvider replaces the Discord identity provider.
func WithProvider(provider IdentityProvider) Option {
	return func(d *Dashboard) {
		d.provider = provider
	}
}

// WithSecretStore keeps the generated session key in store when Config.SecretKey is empty.
func WithSecretStore(store SecretStore) Option {
	return func(d *Dashboard) {
		d.secrets = store
	}
}

// Dashboard is the web application: it holds everything its handlers need and owns the HTTP listener.
type Dashboard struct {
	config    *Config
	bridge    *Bridge
	users     BotUsers
	provider  IdentityProvider
	secrets   SecretStore
	sessions  *sessions
	limiter   *loginLimiter
	client    *http.Client
	templates *template.Template
	handler   http.Handler

	closeOnce sync.Once
}

// New creates a Dashboard serving tree. It refuses to build when Config lacks the OAuth2 credentials.
func New(config *Config, tree *settings.Tree, registry ModuleRegistry, users BotUsers, options ...Option) (*Dashboard, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d := &Dashboard{
		config: config,
		bridge: NewBridge(tree, registry),
		users:  users,
	}

	for _, opt := range options {
		opt(d)
	}

	if d.client == nil {
		d.client = &http.Client{
			Timeout:   15 * time.Second,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}

	if d.provider == nil {
		d.provider = NewDiscordProvider(config, d.client)
	}

	secretKey, err := d.secretKey()
	if err != nil {
		return nil, err
	}

	d.sessions, err = newSessions(config.Session, secretKey)
	if err != nil {
		return nil, err
	}

	d.limiter = newLoginLimiter(config.LoginAttemptsPerMinute)

	d.templates, err = template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	d.handler = d.routes()
	return d, nil
}

func (d *Dashboard) secretKey() (string, error) {
	if d.config.SecretKey != "" {
		return d.config.SecretKey, nil
	}

	if d.secrets == nil {
		logger.Warnf("No secret key configured and no secret store given; sessions will not survive a restart")
		return generateSecretKey()
	}

	key, err := d.secrets.Secret(context.Background(), SecretKeyName, generateSecretKey)
	if err != nil {
		return "", fmt.Errorf("failed to load session secret key: %w", err)
	}
	return key, nil
}

func generateSecretKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// URL returns the dashboard's external base URL.
func (d *Dashboard) URL() string {
	return d.config.BaseURL()
}

// ServeHTTP serves the dashboard's routes.
func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.handler.ServeHTTP(w, r)
}

// Run listens on Config's address and serves until ctx is canceled.
// It installs no signal handlers; stopping is up to whoever owns ctx.
func (d *Dashboard) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", d.config.Addr())
	if err != nil {
		d.Close()
		return fmt.Errorf("failed to listen on %s: %w", d.config.Addr(), err)
	}
	return d.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is canceled, then shuts down gracefully
// and releases the outbound HTTP client.
func (d *Dashboard) Serve(ctx context.Context, listener net.Listener) error {
	defer d.Close()

	srv := &http.Server{
		Handler:           d,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("Dashboard listening on %s, reachable at %s", listener.Addr(), d.URL())
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("dashboard server failed: %w", err)

	case <-ctx.Done():
	}

	logger.Infof("Shutting down dashboard")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard shutdown: %w", err)
	}

	<-serveErr
	return nil
}

// Close releases the outbound HTTP client's connections. Only the first call has an effect.
func (d *Dashboard) Close() {
	d.closeOnce.Do(func() {
		d.client.CloseIdleConnections()
	})
}
