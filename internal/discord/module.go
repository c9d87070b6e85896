package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/gloved-dev/glovedcat/internal/ai"
	"github.com/gloved-dev/glovedcat/internal/chat"
	"github.com/gloved-dev/glovedcat/internal/config"
	"github.com/gloved-dev/glovedcat/internal/gif"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// SessionParams for creating the gateway session
type SessionParams struct {
	fx.In

	Config *config.Config
	Logger zerolog.Logger
}

// SessionResult of creating the gateway session
type SessionResult struct {
	fx.Out

	Session *discordgo.Session
	Gateway *Gateway
	ChatGW  chat.Gateway
}

// NewSession creates the discord session and its gateway adapter.
func NewSession(p SessionParams) (SessionResult, error) {
	session, err := discordgo.New("Bot " + p.Config.BotToken)
	if err != nil {
		return SessionResult{}, err
	}

	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions |
		discordgo.IntentGuildVoiceStates |
		discordgo.IntentMessageContent

	session.StateEnabled = true

	gw := NewGateway(session, p.Logger)

	return SessionResult{
		Session: session,
		Gateway: gw,
		ChatGW:  gw,
	}, nil
}

// HandlerParams for wiring the event surface
type HandlerParams struct {
	fx.In

	Session   *discordgo.Session
	Gateway   *Gateway
	Generator *chat.Generator
	Gifs      *gif.Client
	Models    *ai.Provider
	Config    *config.Config
	Logger    zerolog.Logger
}

// Run registers the event handlers and ties the session to the app
// lifecycle.
func Run(lc fx.Lifecycle, p HandlerParams) {
	handler := NewHandler(p.Gateway, p.Generator, p.Gifs, p.Models, p.Config, p.Logger)
	handler.Register(p.Session)

	lc.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				p.Logger.Info().Msg("starting discord bot...")
				return p.Session.Open()
			},
			OnStop: func(ctx context.Context) error {
				p.Logger.Info().Msg("stopping discord bot...")
				return p.Session.Close()
			},
		},
	)
}

// Module provides the gateway session and wires the event surface
func Module() fx.Option {
	return fx.Module(
		"discord",
		fx.Provide(
			NewSession,
		),
		fx.Invoke(
			Run,
		),
	)
}
