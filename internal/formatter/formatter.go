// package formatter renders playback state for the terminal (plain text, styled text, JSON)
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/nowplaying/internal/models"
)

const defaultBarWidth = 20

// FormatDuration converts milliseconds to "m:ss", or "h:mm:ss" past an hour.
func FormatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ProgressBar draws a fixed-width bar of '#' for the played fraction and '-' for the rest.
func ProgressBar(state *models.PlaybackState, width int) string {
	if width <= 0 {
		width = defaultBarWidth
	}
	filled := int(state.Progress() * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// Status is the one-word playback status.
func Status(state *models.PlaybackState) string {
	switch {
	case state.Track == "":
		return "Nothing playing"
	case state.IsPlaying:
		return "Now playing"
	default:
		return "Paused"
	}
}

// FormatPlayback renders state as plain text.
func FormatPlayback(state *models.PlaybackState) string {
	if state.Track == "" {
		return Status(state) + "\n"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s: %s\n", Status(state), state.Track)
	if state.Artists != "" {
		fmt.Fprintf(&buf, "Artists: %s\n", state.Artists)
	}
	fmt.Fprintf(&buf, "%s / %s %s\n", FormatDuration(state.ProgressMS), FormatDuration(state.DurationMS), ProgressBar(state, defaultBarWidth))
	if state.AlbumImageURL != "" {
		fmt.Fprintf(&buf, "Cover: %s\n", state.AlbumImageURL)
	}
	return buf.String()
}

// ToJSON renders state as indented JSON in the widget's key order.
func ToJSON(state *models.PlaybackState) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal playback: %w", err)
	}
	return append(data, '\n'), nil
}
