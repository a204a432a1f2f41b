package dashboard

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const sessionKeyInfo = "go-sarah-dashboard session"

// sessions issues and verifies signed session cookies.
// The cookie holds an HS256 JWT whose subject is the logged-in user id
// and whose id is the session's form token.
type sessions struct {
	config SessionConfig
	key    []byte
	now    func() time.Time
}

func newSessions(config SessionConfig, secretKey string) (*sessions, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("session secret key must not be empty")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secretKey), []byte(config.Salt), []byte(sessionKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}

	return &sessions{
		config: config,
		key:    key,
		now:    time.Now,
	}, nil
}

// loginSession is what a valid session cookie carries.
type loginSession struct {
	userID string

	// formToken must accompany every form the session submits.
	formToken string
}

// issue sets a session cookie identifying userID.
func (s *sessions) issue(w http.ResponseWriter, userID string) error {
	formToken, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("failed to generate form token: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.config.Duration)

	claims := jwt.RegisteredClaims{
		ID:        formToken.String(),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    signed,
		Path:     "/",
		Domain:   s.config.Domain,
		Expires:  expiresAt,
		MaxAge:   int(s.config.Duration.Seconds()),
		Secure:   s.config.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// userID returns the user id held by a valid session cookie.
// A missing, expired or tampered cookie yields false.
func (s *sessions) userID(r *http.Request) (string, bool) {
	current, ok := s.current(r)
	if !ok {
		return "", false
	}
	return current.userID, true
}

func (s *sessions) current(r *http.Request) (*loginSession, bool) {
	cookie, err := r.Cookie(s.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, claims, func(_ *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.Subject == "" || claims.ID == "" {
		return nil, false
	}

	return &loginSession{userID: claims.Subject, formToken: claims.ID}, true
}

// destroy clears the session cookie.
func (s *sessions) destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.config.Domain,
		MaxAge:   -1,
		Secure:   s.config.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
