package main

import (
	"github.com/gloved-dev/glovedcat/internal/ai"
	"github.com/gloved-dev/glovedcat/internal/chat"
	"github.com/gloved-dev/glovedcat/internal/config"
	"github.com/gloved-dev/glovedcat/internal/discord"
	"github.com/gloved-dev/glovedcat/internal/gif"
	"github.com/gloved-dev/glovedcat/internal/log"
	"github.com/ipfans/fxlogger"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func main() {

	fx.New(
		fx.WithLogger(func(logger zerolog.Logger) fxevent.Logger {
			return fxlogger.WithZerolog(logger)()
		}),
		config.Module(),
		log.Module(),
		ai.Module(),
		gif.Module(),
		chat.Module(),
		discord.Module(),
	).Run()
}
