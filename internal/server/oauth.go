package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// OAuthHandler serves the login redirect and the OAuth callback.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	accounts AccountService
	pages    *Pages
	logger   *log.Logger
}

// NewOAuthHandler creates a new OAuth handler.
func NewOAuthHandler(accounts AccountService, pages *Pages, logger *log.Logger) *OAuthHandler {
	return &OAuthHandler{accounts: accounts, pages: pages, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"GET /login", "GET /callback"}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login":
		http.Redirect(w, r, h.accounts.LoginURL(), http.StatusFound)
	case "/callback":
		h.callback(w, r)
	default:
		http.NotFound(w, r)
	}
}

// callback exchanges the code, resolves the profile and stores the user, then shows
// the widget key. A denied or code-less callback goes back to /login.
func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	if code == "" {
		if reason := q.Get("error"); reason != "" {
			h.logger.Warn("authorization denied", "reason", reason)
		}
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	user, err := h.accounts.Authorize(r.Context(), code)
	if err != nil {
		h.logger.Error("authorization failed", "err", err)
		h.pages.Render(w, http.StatusInternalServerError, "error", ErrorPage{
			Title:  callbackErrorTitle(err),
			Detail: detailText(err),
		})
		return
	}

	h.pages.Render(w, http.StatusOK, "profile", ProfilePage{
		WidgetKey: user.WidgetKey,
		WidgetURL: widgetURL(r, user.WidgetKey),
	})
}

func callbackErrorTitle(err error) string {
	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		return "Error fetching profile"
	case errors.Is(err, shared.ErrParse):
		return "Error parsing Spotify response"
	case errors.Is(err, shared.ErrMissingField):
		return "Incomplete Spotify response"
	case errors.Is(err, shared.ErrProvider):
		return "Error exchanging code"
	default:
		return "Error saving user"
	}
}

// widgetURL is the absolute /currently-playing URL for key as seen by the client.
func widgetURL(r *http.Request, key string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     "/currently-playing",
		RawQuery: url.Values{"userKey": {key}}.Encode(),
	}
	return u.String()
}
