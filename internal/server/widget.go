package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// WidgetHandler serves the JSON endpoint polled by the browser widget.
type WidgetHandler struct {
	playback PlaybackQuerier
	logger   *log.Logger
}

// NewWidgetHandler creates a new [WidgetHandler].
func NewWidgetHandler(playback PlaybackQuerier, logger *log.Logger) *WidgetHandler {
	return &WidgetHandler{playback: playback, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *WidgetHandler) Routes() []string {
	return []string{"GET /currently-playing"}
}

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func (h *WidgetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	state, err := h.playback.CurrentPlayback(r.Context(), r.URL.Query().Get("userKey"))
	if err == nil {
		writeJSON(w, http.StatusOK, state)
		return
	}

	status, body := widgetError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("currently playing failed", "err", err)
	}
	writeJSON(w, status, body)
}

// widgetError maps a playback error onto the widget's status and JSON error body.
func widgetError(err error) (int, errorBody) {
	switch {
	case errors.Is(err, shared.ErrMissingInput):
		return http.StatusBadRequest, errorBody{Error: "Missing userKey"}
	case errors.Is(err, shared.ErrUnknownWidgetKey):
		return http.StatusBadRequest, errorBody{Error: "Invalid userKey"}
	}

	pe, ok := shared.AsProviderError(err)
	if !ok {
		return http.StatusInternalServerError, errorBody{Error: "Internal server error"}
	}

	if errors.Is(err, shared.ErrParse) {
		return http.StatusInternalServerError, errorBody{Error: "Error parsing currently playing response", Details: pe.Body}
	}

	status := pe.StatusCode
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	return status, errorBody{Error: "Failed to fetch currently playing", Details: pe.Details()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}
