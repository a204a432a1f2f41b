package dashboard

import (
	"errors"
	"fmt"
)

// ErrEmptyToken indicates that no bot token was provided and no session was injected via WithSession.
var ErrEmptyToken = errors.New("token must be set or a session must be provided via WithSession")

// ErrEmptyClientID indicates that Config.ClientID is not set.
var ErrEmptyClientID = errors.New("client_id must be set")

// ErrEmptyClientSecret indicates that Config.ClientSecret is not set.
var ErrEmptyClientSecret = errors.New("client_secret must be set")

// ErrEmptyCookieName indicates that Config.Session.CookieName is not set.
var ErrEmptyCookieName = errors.New("session cookie_name must be set")

// ErrInvalidState indicates that the OAuth2 callback carried a state that was not issued to this browser.
var ErrInvalidState = errors.New("state does not match the issued nonce")

// ErrMissingCode indicates that the OAuth2 callback carried no authorization code.
var ErrMissingCode = errors.New("authorization code is missing")

// ErrNotOwner indicates that the authenticated user is not the bot's owner.
var ErrNotOwner = errors.New("user is not the bot owner")

// ErrNoOwner indicates that the bot's owner could not be determined.
var ErrNoOwner = errors.New("bot application has no owner")

// ValidationError indicates that a submitted form value could not be coerced to its setting's type.
type ValidationError struct {
	PathID string
	Value  string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %s", e.Value, e.PathID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
