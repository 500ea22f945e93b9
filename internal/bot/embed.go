package bot

import (
	"github.com/bwmarrin/discordgo"

	"github.com/cinequest/cinequest/internal/overseerr"
)

// mediaEmbed renders media metadata the same way for confirmation prompts
// and webhook notices. folderPath and seasonLabel are optional.
func mediaEmbed(media overseerr.MediaDetails, color int, folderPath, seasonLabel string) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Release date", Value: orDash(media.ReleaseDate)},
		{Name: "Production company", Value: orDash(media.Producer)},
	}
	if folderPath != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Storage folder",
			Value: folderPath,
		})
	}
	if seasonLabel != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Selected season",
			Value: seasonLabel,
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:       media.Title,
		Description: media.Overview,
		Color:       color,
		Fields:      fields,
	}
	if media.PosterURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: media.PosterURL}
	}
	return embed
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
