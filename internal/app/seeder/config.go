package seeder

import (
	"fmt"

	"github.com/heartmarshall/sketch2code/internal/config"
)

// Config holds seeder settings.
type Config struct {
	FixturePath    string `yaml:"fixture_path"    env:"SEEDER_FIXTURE_PATH"`
	InstallationID string `yaml:"installation_id" env:"SEEDER_INSTALLATION_ID" env-default:"local"`
	DryRun         bool   `yaml:"dry_run"         env:"SEEDER_DRY_RUN"`
}

// LoadConfig reads seeder settings from the YAML file at path, when given,
// and the environment. A path that does not exist is an error.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := config.Read(path, true, &cfg); err != nil {
		return nil, fmt.Errorf("seeder config: %w", err)
	}
	return &cfg, nil
}
