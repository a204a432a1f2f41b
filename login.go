package dashboard

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/oklahomer/go-kasumi/logger"
)

const (
	stateCookieName = "oauth_state"
	stateCookiePath = "/login"
	stateMaxAge     = 10 * 60

	loginPath    = "/login"
	callbackPath = "/login/code"
)

// redirectURL is the OAuth2 callback URL; it must be identical in the redirect and the exchange.
func (d *Dashboard) redirectURL() string {
	return d.config.BaseURL() + callbackPath
}

func (d *Dashboard) loginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := d.sessions.userID(r); ok {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}

	d.render(w, http.StatusOK, "login.html", nil)
}

func (d *Dashboard) loginRedirect(w http.ResponseWriter, r *http.Request) {
	state, err := uuid.NewRandom()
	if err != nil {
		logger.Errorf("Failed to generate OAuth2 state: %+v", err)
		d.renderMessage(w, http.StatusInternalServerError, "Login failed", "Please try again.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state.String(),
		Path:     stateCookiePath,
		MaxAge:   stateMaxAge,
		Secure:   d.config.Session.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, d.provider.AuthCodeURL(state.String(), d.redirectURL()), http.StatusSeeOther)
}

func (d *Dashboard) loginCallback(w http.ResponseWriter, r *http.Request) {
	// The nonce is single-use whatever the outcome.
	d.clearState(w)

	code, err := d.checkCallback(r)
	if err != nil {
		logger.Warnf("Rejected OAuth2 callback: %+v", err)
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := d.verifyOwner(r, code)
	switch {
	case errors.Is(err, ErrNotOwner):
		logger.Warnf("Denied dashboard access to user %s", userID)
		d.renderMessage(w, http.StatusForbidden, "Access denied", "Only the bot owner may use this dashboard.")
		return

	case err != nil:
		logger.Errorf("Login failed: %+v", err)
		d.renderMessage(w, http.StatusBadGateway, "Login failed", "Discord could not confirm your identity. Please try again.")
		return
	}

	if err := d.sessions.issue(w, userID); err != nil {
		logger.Errorf("Failed to issue session for %s: %+v", userID, err)
		d.renderMessage(w, http.StatusInternalServerError, "Login failed", "Please try again.")
		return
	}

	logger.Infof("Owner %s logged in to the dashboard", userID)
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

// checkCallback returns the authorization code once the echoed state matches the cookie.
func (d *Dashboard) checkCallback(r *http.Request) (string, error) {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" {
		return "", fmt.Errorf("%w: no state cookie", ErrInvalidState)
	}

	query := r.URL.Query()
	state := query.Get("state")
	if subtle.ConstantTimeCompare([]byte(state), []byte(cookie.Value)) != 1 {
		return "", ErrInvalidState
	}

	code := query.Get("code")
	if code == "" {
		return "", ErrMissingCode
	}

	return code, nil
}

// verifyOwner completes the code exchange and returns the user id if, and only if, it is the bot owner.
// For ErrNotOwner the returned id is the authenticated user's.
func (d *Dashboard) verifyOwner(r *http.Request, code string) (string, error) {
	ctx := r.Context()

	token, err := d.provider.Exchange(ctx, code, d.redirectURL())
	if err != nil {
		return "", err
	}

	identity, err := d.provider.CurrentUser(ctx, token)
	if err != nil {
		return "", err
	}

	user, err := d.users.FetchUser(ctx, identity.ID)
	if err != nil {
		return "", err
	}

	owner, err := d.users.IsOwner(ctx, user)
	if err != nil {
		return "", err
	}
	if !owner {
		return user.ID, ErrNotOwner
	}

	return user.ID, nil
}

func (d *Dashboard) clearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     stateCookiePath,
		MaxAge:   -1,
		Secure:   d.config.Session.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (d *Dashboard) logout(w http.ResponseWriter, r *http.Request) {
	d.sessions.destroy(w)
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// requireLogin redirects requests without a valid session to the login page.
func (d *Dashboard) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current, ok := d.sessions.current(r)
		if !ok {
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), current)))
	})
}
