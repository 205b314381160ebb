package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// ProfileHandler serves the plain-text /profile debug page.
type ProfileHandler struct {
	accounts AccountService
	logger   *log.Logger
}

// NewProfileHandler creates a new [ProfileHandler].
func NewProfileHandler(accounts AccountService, logger *log.Logger) *ProfileHandler {
	return &ProfileHandler{accounts: accounts, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *ProfileHandler) Routes() []string {
	return []string{"GET /profile"}
}

func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	profile, user, err := h.accounts.Profile(r.Context(), r.URL.Query().Get("user_key"))
	switch {
	case err == nil:
		writeText(w, http.StatusOK, fmt.Sprintf("Hello, %s! Your Widget Key: %s", profile.Name(), user.WidgetKey))
	case errors.Is(err, shared.ErrMissingInput):
		writeText(w, http.StatusBadRequest, "No user key provided.")
	case errors.Is(err, shared.ErrUnknownWidgetKey):
		writeText(w, http.StatusNotFound, "User not found. Please login.")
	default:
		h.logger.Error("profile failed", "err", err)
		writeText(w, http.StatusInternalServerError, "Error: Unable to fetch user profile from Spotify - "+detailText(err))
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// detailText renders an error for humans: provider details when available, the error text otherwise.
func detailText(err error) string {
	pe, ok := shared.AsProviderError(err)
	if !ok {
		return err.Error()
	}

	switch d := pe.Details().(type) {
	case string:
		return d
	default:
		data, merr := json.Marshal(d)
		if merr != nil {
			return pe.Body
		}
		return string(data)
	}
}
