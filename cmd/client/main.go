package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gophgallery/internal/client/cli"
	"github.com/dmitrijs2005/gophgallery/internal/client/config"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
)

func main() {
	cfg := config.LoadConfig()
	logger := logging.NewTextLogger(os.Stderr, cfg.LogLevel)

	ctx := context.Background()

	app, cleanup, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer cleanup()

	app.Run(ctx)
}
