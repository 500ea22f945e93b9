package bot

import (
	"testing"

	"github.com/cinequest/cinequest/internal/overseerr"
)

func TestMediaEmbed(t *testing.T) {
	media := overseerr.MediaDetails{
		Title:       "Dune",
		Overview:    "A mythic journey.",
		ReleaseDate: "2021-09-15",
		PosterURL:   "https://image.tmdb.org/t/p/w300_and_h450_face/poster.jpg",
		Producer:    "Legendary Pictures",
	}

	embed := mediaEmbed(media, 0x5865F2, "/media/movies", "Season 2")
	if embed.Title != "Dune" {
		t.Errorf("Title = %q, want Dune", embed.Title)
	}
	if embed.Image == nil || embed.Image.URL != media.PosterURL {
		t.Error("embed should carry the poster image")
	}
	if len(embed.Fields) != 4 {
		t.Fatalf("Fields = %d, want 4 with folder and season set", len(embed.Fields))
	}
	if embed.Fields[2].Value != "/media/movies" {
		t.Errorf("folder field = %q, want /media/movies", embed.Fields[2].Value)
	}
	if embed.Fields[3].Value != "Season 2" {
		t.Errorf("season field = %q, want Season 2", embed.Fields[3].Value)
	}
}

func TestMediaEmbed_MissingOptionalData(t *testing.T) {
	embed := mediaEmbed(overseerr.MediaDetails{Title: "Dune"}, 0, "", "")
	if len(embed.Fields) != 2 {
		t.Fatalf("Fields = %d, want 2 without folder and season", len(embed.Fields))
	}
	if embed.Fields[0].Value != "-" {
		t.Errorf("empty release date should render as a dash, got %q", embed.Fields[0].Value)
	}
	if embed.Image != nil {
		t.Error("embed without a poster must not carry an image")
	}
}
