package dashboard

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/patrickmn/go-cache"
)

// BotUsers resolves users on behalf of the bot and tells whether one of them owns it.
type BotUsers interface {
	FetchUser(ctx context.Context, userID string) (*discordgo.User, error)
	IsOwner(ctx context.Context, user *discordgo.User) (bool, error)
}

// session is an internal interface that abstracts the discordgo.Session methods
// used by BotIdentity. This allows mocking the session in tests.
// *discordgo.Session satisfies this interface.
type session interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	Application(appID string) (*discordgo.Application, error)
}

var _ session = (*discordgo.Session)(nil)

const (
	userCacheExpiration = 5 * time.Minute
	ownerCacheKey       = "\x00owners"
)

// BotIdentityOption defines a function signature for BotIdentity's functional options.
type BotIdentityOption func(identity *BotIdentity)

// WithSession creates a BotIdentityOption with the given *discordgo.Session.
// Use this to share the session the bot already runs on.
// If this option is not given, NewBotIdentity creates a new session from the token.
func WithSession(session *discordgo.Session) BotIdentityOption {
	return func(identity *BotIdentity) {
		identity.session = session
	}
}

// WithOwnerIDs pins the owners instead of asking Discord for the application's owner.
func WithOwnerIDs(ids ...string) BotIdentityOption {
	return func(identity *BotIdentity) {
		identity.ownerIDs = ids
	}
}

// BotIdentity is a BotUsers implementation backed by the bot's Discord session.
type BotIdentity struct {
	session  session
	ownerIDs []string
	cache    *cache.Cache
}

var _ BotUsers = (*BotIdentity)(nil)

// NewBotIdentity creates a new BotIdentity with the given bot token and options.
// token may be empty when WithSession is given.
func NewBotIdentity(token string, options ...BotIdentityOption) (*BotIdentity, error) {
	identity := &BotIdentity{
		cache: cache.New(userCacheExpiration, 2*userCacheExpiration),
	}

	for _, opt := range options {
		opt(identity)
	}

	if identity.session == nil {
		if token == "" {
			return nil, ErrEmptyToken
		}

		s, err := discordgo.New("Bot " + token)
		if err != nil {
			return nil, fmt.Errorf("failed to create Discord session: %w", err)
		}
		identity.session = s
	}

	return identity, nil
}

// FetchUser returns the Discord user with the given id. Results are cached for a few minutes.
func (b *BotIdentity) FetchUser(ctx context.Context, userID string) (*discordgo.User, error) {
	if cached, ok := b.cache.Get(userID); ok {
		return cached.(*discordgo.User), nil
	}

	user, err := b.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}

	b.cache.Set(userID, user, cache.DefaultExpiration)
	return user, nil
}

// IsOwner tells whether user owns the bot: either its id is pinned with WithOwnerIDs,
// or it owns the bot's application or the team the application belongs to.
func (b *BotIdentity) IsOwner(ctx context.Context, user *discordgo.User) (bool, error) {
	if user == nil {
		return false, nil
	}

	owners, err := b.owners(ctx)
	if err != nil {
		return false, err
	}

	return slices.Contains(owners, user.ID), nil
}

func (b *BotIdentity) owners(ctx context.Context) ([]string, error) {
	if len(b.ownerIDs) > 0 {
		return b.ownerIDs, nil
	}

	if cached, ok := b.cache.Get(ownerCacheKey); ok {
		return cached.([]string), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	app, err := b.session.Application("@me")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bot application: %w", err)
	}

	var owners []string
	if app.Team != nil {
		owners = append(owners, app.Team.OwnerID)
	}
	if app.Owner != nil {
		owners = append(owners, app.Owner.ID)
	}
	if len(owners) == 0 {
		return nil, ErrNoOwner
	}

	b.cache.Set(ownerCacheKey, owners, cache.DefaultExpiration)
	return owners, nil
}
