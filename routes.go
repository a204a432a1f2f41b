package dashboard

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklahomer/go-kasumi/logger"
)

const (
	dashboardPath = "/settings"
	logoutPath    = "/logout"

	// formTokenField names the hidden form token field. No setting path id starts with a dot.
	formTokenField = ".form_token"
)

func (d *Dashboard) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(securityHeaders)

	r.Get(loginPath, d.loginPage)
	r.With(d.limiter.middleware).Post(loginPath+"/redirect", d.loginRedirect)
	r.With(d.limiter.middleware).Get(callbackPath, d.loginCallback)
	r.Get(logoutPath, d.logout)

	r.Group(func(r chi.Router) {
		r.Use(d.requireLogin)

		r.Get("/", redirectTo(dashboardPath))
		r.Get("/dashboard", redirectTo(dashboardPath))
		r.Get(dashboardPath, d.settingsPage)
		r.Post(dashboardPath, d.submitSettings)
	})

	return r
}

func redirectTo(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, path, http.StatusSeeOther)
	}
}

type settingsPageData struct {
	User           *discordgo.User
	Sections       []*ModuleSection
	Error          string
	FormTokenField string
	FormToken      string
}

func (d *Dashboard) settingsPage(w http.ResponseWriter, r *http.Request) {
	d.renderSettings(w, r, http.StatusOK, "")
}

func (d *Dashboard) submitSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	token := formTokenFrom(r.Context())
	submitted := r.PostForm.Get(formTokenField)
	if token == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
		logger.Warnf("Rejected settings submission by %s without a valid form token", userIDFrom(r.Context()))
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	logger.Debugf("Settings submitted by %s with %d fields", userIDFrom(r.Context()), len(r.PostForm))

	err := d.bridge.Apply(r.Context(), r.PostForm)

	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.Warnf("Rejected settings submission: %+v", err)
		d.renderSettings(w, r, http.StatusBadRequest, validationErr.Error())
		return

	case err != nil:
		logger.Errorf("Failed to apply settings: %+v", err)
		d.renderSettings(w, r, http.StatusInternalServerError, "Settings could not be saved.")
		return
	}

	logger.Infof("Settings updated by %s", userIDFrom(r.Context()))
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (d *Dashboard) renderSettings(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := &settingsPageData{
		Sections:       d.bridge.ModuleSections(),
		Error:          message,
		FormTokenField: formTokenField,
		FormToken:      formTokenFrom(r.Context()),
	}

	userID := userIDFrom(r.Context())
	if user, err := d.users.FetchUser(r.Context(), userID); err != nil {
		logger.Warnf("Failed to fetch logged-in user %s: %+v", userID, err)
	} else {
		data.User = user
	}

	d.render(w, status, "settings.html", data)
}

type messagePageData struct {
	Title   string
	Message string
}

func (d *Dashboard) renderMessage(w http.ResponseWriter, status int, title string, message string) {
	d.render(w, status, "message.html", &messagePageData{Title: title, Message: message})
}

// render executes a template into a buffer first so a failing template never sends a partial page.
func (d *Dashboard) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := d.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Errorf("Failed to render %s: %+v", name, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
