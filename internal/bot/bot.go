package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/cinequest/cinequest/internal/config"
	"github.com/cinequest/cinequest/internal/overseerr"
	"github.com/cinequest/cinequest/internal/request"
)

const (
	defaultCommand = "request"

	optionTitle   = "title"
	optionFolder  = "folder"
	optionSeasons = "seasons"

	interactionTimeout = 60 * time.Second
)

func requestCommand(name string) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: "Request a new movie or TV series.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:         discordgo.ApplicationCommandOptionString,
				Name:         optionTitle,
				Description:  "The title of the movie or series.",
				Required:     true,
				Autocomplete: true,
			},
			{
				Type:         discordgo.ApplicationCommandOptionString,
				Name:         optionFolder,
				Description:  "The storage folder for the media.",
				Required:     true,
				Autocomplete: true,
			},
			{
				Type:         discordgo.ApplicationCommandOptionString,
				Name:         optionSeasons,
				Description:  "The seasons to request.",
				Required:     false,
				Autocomplete: true,
			},
		},
	}
}

// Bot owns the Discord session and dispatches inbound interactions to the
// request workflow.
type Bot struct {
	session  *discordgo.Session
	workflow *request.Workflow
	cfg      config.DiscordConfig
	command  string
	logger   zerolog.Logger
}

// New creates the bot without opening the gateway connection.
func New(cfg config.DiscordConfig, workflow *request.Workflow, logger zerolog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	command := cfg.Command
	if command == "" {
		command = defaultCommand
	}

	b := &Bot{
		session:  session,
		workflow: workflow,
		cfg:      cfg,
		command:  command,
		logger:   logger.With().Str("component", "bot").Logger(),
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)
	return b, nil
}

// Start opens the gateway connection and registers the slash command,
// guild-scoped when a guild id is configured.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.cfg.GuildID, requestCommand(b.command))
	if err != nil {
		return fmt.Errorf("failed to register command: %w", err)
	}

	b.logger.Info().
		Str("command", b.command).
		Str("guild", b.cfg.GuildID).
		Msg("Slash command registered")
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("Connected to Discord")
}

// onInteraction is the single entry point for every inbound event: slash
// command submissions, autocomplete queries, and button activations.
func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.handleAutocomplete(ctx, s, i)
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, s, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, s, i)
	}
}

func (b *Bot) handleAutocomplete(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != b.command {
		return
	}

	var focused string
	values := map[string]string{}
	for _, option := range data.Options {
		values[option.Name] = option.StringValue()
		if option.Focused {
			focused = option.Name
		}
	}

	var options []request.Option
	var err error
	switch focused {
	case optionTitle:
		options, err = b.workflow.SearchOptions(ctx, values[optionTitle])
	case optionFolder:
		options, err = b.workflow.FolderOptions(ctx, values[optionTitle])
	case optionSeasons:
		options, err = b.workflow.SeasonOptions(ctx, values[optionTitle], values[optionSeasons])
	default:
		return
	}
	if err != nil {
		b.logger.Error().Err(err).Str("option", focused).Msg("Autocomplete lookup failed")
		options = nil
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(options))
	for _, option := range options {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  option.Label,
			Value: option.Value,
		})
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to send autocomplete choices")
	}
}

// handleCommand renders the confirmation prompt for a completed command.
func (b *Bot) handleCommand(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != b.command {
		return
	}

	values := map[string]string{}
	for _, option := range data.Options {
		values[option.Name] = option.StringValue()
	}

	confirmation, err := b.workflow.Confirmation(ctx, values[optionTitle], values[optionFolder], values[optionSeasons])
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to build confirmation")
		b.respondEphemeral(s, i, userMessage(err))
		return
	}

	confirmLabel := "This is the movie!"
	if confirmation.MediaType == overseerr.MediaTypeSeries {
		confirmLabel = "This is the series!"
	}

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    confirmLabel,
					Style:    discordgo.SuccessButton,
					CustomID: confirmPrefix + confirmation.Token,
				},
				discordgo.Button{
					Label:    "Cancel",
					Style:    discordgo.DangerButton,
					CustomID: cancelID,
				},
			},
		},
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{mediaEmbed(confirmation.Media, b.cfg.EmbedColor, confirmation.FolderPath, confirmation.SeasonLabel)},
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to send confirmation prompt")
	}
}

// handleComponent dispatches button activations. Every terminal state edits
// the owning message and strips its components, so a consumed control cannot
// be activated twice.
func (b *Bot) handleComponent(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	control := parseControl(i.MessageComponentData().CustomID)

	switch control.Kind {
	case ControlConfirm:
		submission, err := b.workflow.Submit(ctx, control.Token)
		if err != nil {
			b.logger.Error().Err(err).Msg("Submission failed")
			b.updateMessage(s, i, userMessage(err))
			return
		}
		notice := fmt.Sprintf("The movie **%s** has been requested!", submission.Title)
		if submission.MediaType == overseerr.MediaTypeSeries {
			notice = fmt.Sprintf("The series **%s** has been requested!", submission.Title)
		}
		b.updateMessage(s, i, notice)

	case ControlCancel:
		b.workflow.RecordCancelled(ctx, "")
		b.updateMessage(s, i, "The request has been cancelled.")

	case ControlApprove:
		err := b.workflow.Approve(ctx, interactionUserID(i), control.RequestID)
		if errors.Is(err, request.ErrPermissionDenied) {
			b.respondEphemeral(s, i, "You do not have permission to approve this request.")
			return
		}
		if err != nil {
			b.logger.Error().Err(err).Int("requestId", control.RequestID).Msg("Approval failed")
			b.respondEphemeral(s, i, userMessage(err))
			return
		}
		b.updateMessage(s, i, "The request has been approved.")

	case ControlUnknown:
		// Not ours. Leave it for whoever rendered it.
	}
}

// AnnouncePending posts a pending-request notice with an approve button into
// the notification channel. Implements the webhook server's Announcer.
func (b *Bot) AnnouncePending(media overseerr.MediaDetails, requestID int) error {
	if b.cfg.NotifyChannelID == "" {
		return errors.New("no notification channel configured")
	}

	_, err := b.session.ChannelMessageSendComplex(b.cfg.NotifyChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{mediaEmbed(media, b.cfg.EmbedColor, "", "")},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Approve",
						Style:    discordgo.SuccessButton,
						CustomID: fmt.Sprintf("%s%d", approvePrefix, requestID),
					},
				},
			},
		},
	})
	return err
}

// AnnounceApproved posts a plain approval notice into the notification
// channel. Implements the webhook server's Announcer.
func (b *Bot) AnnounceApproved(subject string) error {
	if b.cfg.NotifyChannelID == "" {
		return errors.New("no notification channel configured")
	}
	_, err := b.session.ChannelMessageSend(b.cfg.NotifyChannelID,
		fmt.Sprintf("The request for **%s** has been approved.", subject))
	return err
}

// terminalResponse edits the owning message to its final notice and replaces
// the component list with an empty one. The empty slice is what disarms the
// message: it serializes as "components":[] and the platform removes every
// control, so a consumed confirm or approve button cannot be activated again.
func terminalResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	}
}

func (b *Bot) updateMessage(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if err := s.InteractionRespond(i.Interaction, terminalResponse(content)); err != nil {
		b.logger.Error().Err(err).Msg("Failed to update message")
	}
}

func (b *Bot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to send ephemeral reply")
	}
}

// userMessage maps workflow errors to the text shown in chat. Stale tokens
// and vanished selections get a generic notice; everything else names the
// failure so the user knows to retry from the command.
func userMessage(err error) string {
	switch {
	case errors.Is(err, request.ErrMalformedToken), errors.Is(err, request.ErrStaleSelection):
		return "This action is no longer valid. Please start a new request."
	default:
		return fmt.Sprintf("The request could not be completed: %v", err)
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
