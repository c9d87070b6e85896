package discord

import (
	"context"
	"math/rand"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gloved-dev/glovedcat/internal/ai"
	"github.com/gloved-dev/glovedcat/internal/chat"
	"github.com/gloved-dev/glovedcat/internal/config"
	"github.com/gloved-dev/glovedcat/internal/gif"
	"github.com/gloved-dev/glovedcat/internal/result"
	"github.com/rs/zerolog"
)

// gifChancePercent is the per-message probability of a random gif reply.
const gifChancePercent = 2.0

// commandPrefix triggers the plain-message command dispatch.
const commandPrefix = "!"

// Handler wires platform events to the gif client and the generation
// orchestrator.
type Handler struct {
	gw        *Gateway
	generator *chat.Generator
	gifs      *gif.Client
	models    *ai.Provider
	cfg       *config.Config
	logger    zerolog.Logger
}

// NewHandler creates the event handler set.
func NewHandler(
	gw *Gateway,
	generator *chat.Generator,
	gifs *gif.Client,
	models *ai.Provider,
	cfg *config.Config,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		gw:        gw,
		generator: generator,
		gifs:      gifs,
		models:    models,
		cfg:       cfg,
		logger:    logger,
	}
}

// Register attaches the handlers to a session.
func (h *Handler) Register(s *discordgo.Session) {
	s.AddHandler(h.onReady)
	s.AddHandler(h.onMessageCreate)
	s.AddHandler(h.onInteractionCreate)
}

// onReady caches guilds, synchronizes slash commands, and sets the bot
// presence. Fire-and-forget: failures are logged, never retried.
func (h *Handler) onReady(s *discordgo.Session, r *discordgo.Ready) {
	h.logger.Info().
		Str("username", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("bot started")

	if _, err := s.ApplicationCommandBulkOverwrite(r.Application.ID, "", commandDefinitions()); err != nil {
		h.logger.Error().Err(err).Msg("failed to sync application commands")
	}

	presence := discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Name:  h.cfg.Presence.Name,
				State: h.cfg.Presence.State,
				Type:  discordgo.ActivityTypeCustom,
			},
		},
	}
	if err := s.UpdateStatusComplex(presence); err != nil {
		h.logger.Error().Err(err).Msg("failed to set presence")
		return
	}
	h.logger.Info().
		Str("name", h.cfg.Presence.Name).
		Str("state", h.cfg.Presence.State).
		Msg("presence set")
}

// onMessageCreate evaluates three independent branches per message: prefix
// command dispatch, the AI trigger, and the random gif chance.
func (h *Handler) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}

	ctx := context.Background()

	// Command dispatch always runs, even for bot-authored messages.
	if strings.HasPrefix(m.Content, commandPrefix) {
		go h.dispatchPrefixCommand(ctx, s, m)
	}

	if m.Author.Bot {
		return
	}

	if h.isAITrigger(m) {
		go h.handleAITrigger(ctx, m)
	}

	if rand.Float64()*100 < gifChancePercent {
		go h.handleGifChance(ctx, m)
	}
}

// isAITrigger reports whether the bot is mentioned (without @everyone) or
// the message replies to one of the bot's own messages.
func (h *Handler) isAITrigger(m *discordgo.MessageCreate) bool {
	botID := h.gw.BotUserID()

	if !m.MentionEveryone {
		for _, user := range m.Mentions {
			if user.ID == botID {
				return true
			}
		}
	}

	ref := m.ReferencedMessage
	return ref != nil && ref.Author != nil && ref.Author.ID == botID
}

func (h *Handler) handleAITrigger(ctx context.Context, m *discordgo.MessageCreate) {
	if err := h.gw.Typing(ctx, m.ChannelID); err != nil {
		h.logger.Debug().Err(err).Msg("typing indicator failed")
	}

	err := h.generator.Generate(ctx, chat.GenerateRequest{
		Trigger:          toMessage(m.Message),
		CheckLastMessage: true,
		FetchLimit:       h.cfg.HistoryLimit,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("message_id", m.ID).
			Msg("ai reply failed")
	}
}

func (h *Handler) handleGifChance(ctx context.Context, m *discordgo.MessageCreate) {
	res := result.Wrap(func() (string, error) {
		return h.gifs.Random(ctx, h.cfg.Gif.Queries...)
	})
	if res.Failed() {
		if _, err := h.gw.Reply(ctx, toMessage(m.Message), res.Err.Error()); err != nil {
			h.logger.Warn().Err(err).Msg("failed to reply with gif error")
		}
		return
	}

	if err := h.replyWithGif(ctx, m, res.Data); err != nil {
		h.logger.Warn().Err(err).Msg("failed to reply with gif")
	}
}

// replyWithGif downloads the media and replies with it attached as
// cat.gif.
func (h *Handler) replyWithGif(ctx context.Context, m *discordgo.MessageCreate, mediaURL string) error {
	body, err := h.gifs.Download(ctx, mediaURL)
	if err != nil {
		return err
	}
	defer body.Close()

	_, err = h.gw.session.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Files: []*discordgo.File{
			{Name: "cat.gif", ContentType: "image/gif", Reader: body},
		},
		Reference: &discordgo.MessageReference{
			MessageID: m.ID,
			ChannelID: m.ChannelID,
			GuildID:   m.GuildID,
		},
	}, discordgo.WithContext(ctx))
	return err
}

// onInteractionCreate forwards slash interactions to the command table.
func (h *Handler) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	h.dispatchSlashCommand(s, i)
}
