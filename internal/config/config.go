package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the client configuration merged from the YAML file and
// environment overrides.
type Config struct {
	Server struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
	} `yaml:"server"`
	Chat struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"chat"`
	Storage struct {
		// ArchivePath is the local sqlite history cache; empty disables it.
		ArchivePath string `yaml:"archive_path"`
	} `yaml:"storage"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Load reads the YAML config at path, then applies .env and environment
// variable overrides (CHAT_SERVER_URL, CHAT_USERNAME, CHAT_PAGE_SIZE,
// CHAT_ARCHIVE_PATH, CHAT_LOG_LEVEL). A missing file is not an error; the
// defaults plus environment are used.
func Load(path string) (*Config, error) {
	// Best effort: a .env file is optional.
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Chat.PageSize = 20

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("CHAT_SERVER_URL"); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv("CHAT_USERNAME"); v != "" {
		cfg.Server.Username = v
	}
	if v := os.Getenv("CHAT_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CHAT_PAGE_SIZE %q: %w", v, err)
		}
		cfg.Chat.PageSize = n
	}
	if v := os.Getenv("CHAT_ARCHIVE_PATH"); v != "" {
		cfg.Storage.ArchivePath = v
	}
	if v := os.Getenv("CHAT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if cfg.Chat.PageSize <= 0 {
		cfg.Chat.PageSize = 20
	}
	return cfg, nil
}
