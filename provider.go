package dashboard

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"
)

// IdentityScope is the only scope requested: it lets the dashboard read who logged in.
const IdentityScope = "identify"

// IdentityProvider performs the OAuth2 authorization-code flow against an identity provider.
type IdentityProvider interface {
	// AuthCodeURL returns the authorization endpoint URL the browser is sent to.
	AuthCodeURL(state string, redirectURL string) string

	// Exchange trades an authorization code for an access token.
	// redirectURL must equal the one given to AuthCodeURL.
	Exchange(ctx context.Context, code string, redirectURL string) (*oauth2.Token, error)

	// CurrentUser returns the user the access token was issued to.
	CurrentUser(ctx context.Context, token *oauth2.Token) (*discordgo.User, error)
}

// DiscordProvider is an IdentityProvider for Discord's OAuth2 endpoints.
type DiscordProvider struct {
	clientID     string
	clientSecret string
	endpoint     oauth2.Endpoint
	client       *http.Client
}

var _ IdentityProvider = (*DiscordProvider)(nil)

// NewDiscordProvider creates a DiscordProvider from config.
// Every request it makes goes through client.
func NewDiscordProvider(config *Config, client *http.Client) *DiscordProvider {
	return &DiscordProvider{
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		endpoint: oauth2.Endpoint{
			AuthURL:   config.AuthorizeURL,
			TokenURL:  config.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		client: client,
	}
}

func (p *DiscordProvider) oauth2Config(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		Endpoint:     p.endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{IdentityScope},
	}
}

// AuthCodeURL returns Discord's authorization URL with response_type=code.
func (p *DiscordProvider) AuthCodeURL(state string, redirectURL string) string {
	return p.oauth2Config(redirectURL).AuthCodeURL(state)
}

// Exchange posts the authorization code to Discord's token endpoint.
func (p *DiscordProvider) Exchange(ctx context.Context, code string, redirectURL string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	token, err := p.oauth2Config(redirectURL).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

// CurrentUser asks Discord who the access token belongs to.
func (p *DiscordProvider) CurrentUser(ctx context.Context, token *oauth2.Token) (*discordgo.User, error) {
	s, err := discordgo.New("Bearer " + token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	s.Client = p.client

	user, err := s.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}
	return user, nil
}
