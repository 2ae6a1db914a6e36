package main

import (
	"context"
	"fmt"
	"os"

	"github.com/maltedev/creative-center-scraper/internal/config"
)

func main() {
	cfg := config.LoggingConfig{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: "text",
	}
	logger := cfg.NewLogger(os.Stderr)

	cmd := newRootCmd(os.Stdin, os.Stdout, logger)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
