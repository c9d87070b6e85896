package chat

import (
	"github.com/gloved-dev/glovedcat/internal/config"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Params for creating the generation orchestrator
type Params struct {
	fx.In

	Gateway Gateway
	Querier Querier
	Config  *config.Config
	Logger  zerolog.Logger
}

// Result of creating the generation orchestrator
type Result struct {
	fx.Out

	Generator *Generator
}

// New creates the generation orchestrator from configuration
func New(p Params) (Result, error) {
	cfg := DefaultGeneratorConfig()

	return Result{
		Generator: NewGenerator(p.Gateway, p.Querier, p.Config, cfg, p.Logger),
	}, nil
}

// Module provides the generation orchestrator
func Module() fx.Option {
	return fx.Module(
		"chat",
		fx.Provide(
			New,
		),
	)
}
