package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/nowplaying/internal/models"
)

// DefaultPalette uses Spotify green for the title line.
var DefaultPalette = NewPalette("#1DB954", "#FFFFFF", "#B3B3B3", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	track  lipgloss.Style
	artist lipgloss.Style
	paused lipgloss.Style
	muted  lipgloss.Style
}

func NewPalette(title, track, artist, paused, muted string) *Palette {
	return &Palette{
		title:  NewBold(title),
		track:  NewBold(track),
		artist: NewStyle(artist),
		paused: NewStyle(paused),
		muted:  NewEm(muted),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// Render formats state with the palette's styles. Colors are dropped automatically
// when the output is not a terminal.
func (p *Palette) Render(state *models.PlaybackState) string {
	if state.Track == "" {
		return p.muted.Render(Status(state)) + "\n"
	}

	status := p.title
	if !state.IsPlaying {
		status = p.paused
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", status.Render(Status(state)+":"), p.track.Render(state.Track))
	if state.Artists != "" {
		fmt.Fprintf(&b, "%s\n", p.artist.Render(state.Artists))
	}
	fmt.Fprintf(&b, "%s %s\n",
		p.muted.Render(FormatDuration(state.ProgressMS)+" / "+FormatDuration(state.DurationMS)),
		status.Render(ProgressBar(state, defaultBarWidth)),
	)
	if state.AlbumImageURL != "" {
		fmt.Fprintf(&b, "%s\n", p.muted.Render(state.AlbumImageURL))
	}
	return b.String()
}
