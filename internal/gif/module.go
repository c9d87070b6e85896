package gif

import (
	"github.com/gloved-dev/glovedcat/internal/config"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Params for creating the gif client
type Params struct {
	fx.In

	Config *config.Config
	Logger zerolog.Logger
}

// Result of creating the gif client
type Result struct {
	fx.Out

	Client *Client
}

// New creates the Tenor client from configuration
func New(p Params) (Result, error) {
	return Result{
		Client: NewClient(p.Config.TenorAPIKey, p.Logger),
	}, nil
}

// Module provides the gif client
func Module() fx.Option {
	return fx.Module(
		"gif",
		fx.Provide(
			New,
		),
	)
}
