package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/NeowayLabs/hwexer/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	root := newRootCmd(&cfg)
	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("hwexer failed")
		os.Exit(1)
	}
}
