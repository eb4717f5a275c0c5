package main

import (
	"github.com/sahilchouksey/studyhub-api/app"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
)

func main() {
	// setup and run app
	if err := app.SetupAndRunServer(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("server exited")
	}
}
