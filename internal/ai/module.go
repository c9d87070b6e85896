package ai

import (
	"context"

	"github.com/gloved-dev/glovedcat/internal/chat"
	"github.com/gloved-dev/glovedcat/internal/config"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Params for creating the model provider
type Params struct {
	fx.In

	Config *config.Config
	Logger zerolog.Logger
}

// Result of creating the model provider
type Result struct {
	fx.Out

	Provider *Provider
	Querier  chat.Querier
}

// New creates the model provider registry based on configuration
func New(p Params) (Result, error) {
	provider, err := NewProvider(context.Background(), p.Config, p.Logger)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Provider: provider,
		Querier:  provider,
	}, nil
}

// Module provides the model provider
func Module() fx.Option {
	return fx.Module(
		"ai",
		fx.Provide(
			New,
		),
	)
}
