package models

// PlaybackState is the normalized playback snapshot served to widgets.
//
// Field order is the JSON key order.
type PlaybackState struct {
	Track         string `json:"track"`
	Artists       string `json:"artists"`
	AlbumImageURL string `json:"album_image_url"`
	IsPlaying     bool   `json:"is_playing"`
	ProgressMS    int    `json:"progress_ms"`
	DurationMS    int    `json:"duration_ms"`
}

// EmptyPlayback is the state reported when nothing is playing.
func EmptyPlayback() *PlaybackState {
	return &PlaybackState{}
}

// Progress returns the fraction of the track played, clamped to [0, 1].
func (p *PlaybackState) Progress() float64 {
	if p.DurationMS <= 0 {
		return 0
	}
	f := float64(p.ProgressMS) / float64(p.DurationMS)
	return min(max(f, 0), 1)
}
