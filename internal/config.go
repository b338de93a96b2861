package internal

import (
	"errors"
	"fmt"
	"os"

	"github.com/hbromell/grab/internal/api"
	"github.com/hbromell/grab/internal/database"
	"github.com/hbromell/grab/internal/extractor"
	"github.com/ilyakaznacheev/cleanenv"
)

// GrabConfig is the struct used to contain the various user config
// supplied by file or environment.
type GrabConfig struct {
	RestConfig api.RestConfig   `yaml:"api"`
	Database   database.Config  `yaml:"database"`
	Extractor  extractor.Config `yaml:"extractor"`
}

// LoadFromFile loads a configuration file formatted in YAML in to a
// GrabConfig struct. A missing file is not an error: the environment
// alone is consulted in that case, so the service can run config-file
// free in containerised deployments.
func (config *GrabConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.LoadFromEnv()
		}

		return fmt.Errorf("failed to load configuration from %s - %v", configPath, err.Error())
	}

	return nil
}

// LoadFromEnv populates the config from environment variables only.
func (config *GrabConfig) LoadFromEnv() error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("failed to load configuration from environment - %v", err.Error())
	}

	return nil
}
