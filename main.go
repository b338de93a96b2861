package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hbromell/grab/internal"
	"github.com/hbromell/grab/pkg/logger"
	"github.com/mitchellh/go-homedir"
)

var log = logger.Get("Main")

// main is the entry point to the program. The configuration is loaded from
// the path given by --config (falling back to the environment when the file
// is absent), and the server runs until interrupted.
func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the YAML configuration file")
	flag.Parse()

	config := internal.GrabConfig{}
	if err := config.LoadFromFile(*configPath); err != nil {
		log.Emit(logger.FATAL, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := internal.New(config).Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Grab stopped due to error: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return "config.yaml"
	}

	return filepath.Join(home, ".config", "grab", "config.yaml")
}
