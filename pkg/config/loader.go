package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Load reads the .env files and populates the MailConfig struct. Missing
// files are skipped since the environment might be set otherwise; a file
// that exists but cannot be parsed is an error.
func Load(files ...string) (*MailConfig, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := &MailConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
