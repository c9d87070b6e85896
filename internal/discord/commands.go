package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gloved-dev/glovedcat/internal/result"
)

const waitThatsMeURL = "https://tenor.com/view/cat-meme-pee-cat-pee-funny-lmfao-gif-14727908981812019274"

var weeeeQueries = []string{"fast cat", "cat zoomies", "speedy cat"}

// commandDefinitions lists the slash commands synchronized on ready.
func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "cat-gif",
			Description: "Get a cat gif",
		},
		{
			Name:        "weeee",
			Description: "WEEEEEEEEEEEEEEEEEE",
		},
		{
			Name:        "wait-thats-me",
			Description: "Send Me?",
		},
		{
			Name:        "model",
			Description: "Show or switch the AI model",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Model to switch to",
					Required:    false,
				},
			},
		},
	}
}

func (h *Handler) dispatchSlashCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()

	h.logger.Info().Str("command", data.Name).Msg("slash command received")

	switch data.Name {
	case "cat-gif":
		h.cmdCatGif(s, i)
	case "weeee":
		h.cmdWeeee(s, i)
	case "wait-thats-me":
		h.cmdWaitThatsMe(s, i)
	case "model":
		h.cmdModel(s, i)
	}
}

// dispatchPrefixCommand mirrors the slash commands for plain "!name"
// messages.
func (h *Handler) dispatchPrefixCommand(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	name := strings.TrimPrefix(strings.Fields(m.Content)[0], commandPrefix)

	switch name {
	case "cat-gif", "weeee":
		queries := h.cfg.Gif.Queries
		if name == "weeee" {
			queries = weeeeQueries
		}
		res := result.Wrap(func() (string, error) {
			return h.gifs.Random(ctx, queries...)
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
	case "wait-thats-me":
		if _, err := h.gw.Reply(ctx, toMessage(m.Message), waitThatsMeURL); err != nil {
			h.logger.Warn().Err(err).Msg("failed to reply")
		}
	}
}

func deferReply(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func (h *Handler) followUp(s *discordgo.Session, i *discordgo.InteractionCreate, params *discordgo.WebhookParams) {
	if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		h.logger.Warn().Err(err).Msg("follow-up failed")
	}
}

func (h *Handler) cmdCatGif(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	if err := deferReply(s, i); err != nil {
		h.logger.Warn().Err(err).Msg("defer failed")
		return
	}

	res := result.Wrap(func() (string, error) {
		return h.gifs.Random(ctx, h.cfg.Gif.Queries...)
	})
	if res.Failed() {
		h.followUp(s, i, &discordgo.WebhookParams{Content: res.Err.Error()})
		return
	}

	body, err := h.gifs.Download(ctx, res.Data)
	if err != nil {
		h.followUp(s, i, &discordgo.WebhookParams{Content: err.Error()})
		return
	}
	defer body.Close()

	h.followUp(s, i, &discordgo.WebhookParams{
		Files: []*discordgo.File{
			{Name: "cat.gif", ContentType: "image/gif", Reader: body},
		},
	})
}

func (h *Handler) cmdWeeee(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	if err := deferReply(s, i); err != nil {
		h.logger.Warn().Err(err).Msg("defer failed")
		return
	}

	res := result.Wrap(func() (string, error) {
		return h.gifs.Random(ctx, weeeeQueries...)
	})
	if res.Failed() {
		h.followUp(s, i, &discordgo.WebhookParams{Content: res.Err.Error()})
		return
	}

	body, err := h.gifs.Download(ctx, res.Data)
	if err != nil {
		h.followUp(s, i, &discordgo.WebhookParams{Content: err.Error()})
		return
	}
	defer body.Close()

	h.followUp(s, i, &discordgo.WebhookParams{
		Content: "WEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEE! 🎢",
		Files: []*discordgo.File{
			{Name: "weeee.gif", ContentType: "image/gif", Reader: body},
		},
	})
}

func (h *Handler) cmdWaitThatsMe(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := deferReply(s, i); err != nil {
		h.logger.Warn().Err(err).Msg("defer failed")
		return
	}
	h.followUp(s, i, &discordgo.WebhookParams{Content: waitThatsMeURL})
}

func (h *Handler) cmdModel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := deferReply(s, i); err != nil {
		h.logger.Warn().Err(err).Msg("defer failed")
		return
	}

	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "Current model: `%s`\nAvailable models:\n", h.models.Current())
		for _, name := range h.models.Models() {
			fmt.Fprintf(&b, "- `%s`\n", name)
		}
		h.followUp(s, i, &discordgo.WebhookParams{Content: b.String()})
		return
	}

	name := data.Options[0].StringValue()
	if err := h.models.Use(name); err != nil {
		h.followUp(s, i, &discordgo.WebhookParams{Content: err.Error()})
		return
	}

	h.logger.Info().Str("model", name).Msg("model switched")
	h.followUp(s, i, &discordgo.WebhookParams{Content: fmt.Sprintf("Switched to `%s`", name)})
}
