package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultPath = "./config.yaml"

// Load reads the service configuration and validates it.
// Priority: ENV > YAML > defaults (via env-default tags).
// The YAML file comes from CONFIG_PATH, falling back to ./config.yaml when
// that exists; without a file only ENV and defaults apply.
func Load() (*Config, error) {
	var cfg Config

	path, required := os.Getenv("CONFIG_PATH"), true
	if path == "" {
		path, required = defaultPath, false
	}

	if err := Read(path, required, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

// Read fills dst from the YAML file at path and the environment. A missing
// file is an error only when required is set; otherwise dst is filled from
// the environment alone. An empty path always means environment only.
func Read(path string, required bool, dst any) error {
	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if err := cleanenv.ReadConfig(path, dst); err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			return nil
		case required || !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("file %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(dst); err != nil {
		return fmt.Errorf("read env: %w", err)
	}
	return nil
}
