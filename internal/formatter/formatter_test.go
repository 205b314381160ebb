package formatter

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/desertthunder/nowplaying/internal/models"
)

func playing() *models.PlaybackState {
	return &models.PlaybackState{
		Track:         "Song",
		Artists:       "A, B",
		AlbumImageURL: "http://x/img.png",
		IsPlaying:     true,
		ProgressMS:    50000,
		DurationMS:    200000,
	}
}

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		ms   int
		want string
	}{
		{0, "0:00"},
		{1, "0:00"},
		{50000, "0:50"},
		{200000, "3:20"},
		{3723000, "1:02:03"},
		{-5, "0:00"},
	}

	for _, tt := range tc {
		if got := FormatDuration(tt.ms); got != tt.want {
			t.Errorf("FormatDuration(%d) = %s, want %s", tt.ms, got, tt.want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	if got := ProgressBar(playing(), 8); got != "[##------]" {
		t.Errorf("unexpected bar %s", got)
	}
	if got := ProgressBar(models.EmptyPlayback(), 4); got != "[----]" {
		t.Errorf("unexpected empty bar %s", got)
	}
	if got := ProgressBar(playing(), 0); len(got) != defaultBarWidth+2 {
		t.Errorf("expected default width, got %s", got)
	}
}

func TestFormatPlayback(t *testing.T) {
	t.Run("Playing", func(t *testing.T) {
		out := FormatPlayback(playing())
		for _, want := range []string{"Now playing: Song", "Artists: A, B", "0:50 / 3:20", "Cover: http://x/img.png"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("Paused", func(t *testing.T) {
		state := playing()
		state.IsPlaying = false
		if out := FormatPlayback(state); !strings.HasPrefix(out, "Paused: Song") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("Nothing", func(t *testing.T) {
		if out := FormatPlayback(models.EmptyPlayback()); out != "Nothing playing\n" {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("Styled", func(t *testing.T) {
		out := DefaultPalette.Render(playing())
		if !strings.Contains(out, "Song") || !strings.Contains(out, "A, B") {
			t.Errorf("styled output missing fields:\n%s", out)
		}
		if out := DefaultPalette.Render(models.EmptyPlayback()); !strings.Contains(out, "Nothing playing") {
			t.Errorf("unexpected styled output %q", out)
		}
	})
}

func TestToJSON(t *testing.T) {
	data, err := ToJSON(playing())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got models.PlaybackState
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got != *playing() {
		t.Errorf("got %+v", got)
	}
	if strings.Index(string(data), `"track"`) > strings.Index(string(data), `"duration_ms"`) {
		t.Errorf("unexpected key order:\n%s", data)
	}
}
