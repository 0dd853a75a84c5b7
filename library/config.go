package library

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime settings, read from the environment.
type Config struct {
	// DataDir is where the book file and the SQLite database live.
	DataDir string `env:"BOOKSHELF_DATA_DIR" envDefault:"."`
	// Addr is the web server listen address.
	Addr string `env:"BOOKSHELF_ADDR" envDefault:":8080"`
	// LookupBaseURL overrides the Open Library endpoint for ISBN lookups.
	LookupBaseURL string `env:"BOOKSHELF_LOOKUP_URL" envDefault:""`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
