package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Defaults point at the hosted Wandergram backend; self-hosters override them
// in ~/.wanderchat/config.toml.
const (
	DefaultAPIBaseURL   = "https://api.wandergram.app"
	DefaultHubURL       = "wss://api.wandergram.app/hubs/chat"
	DefaultAssetHost    = "https://assets.wandergram.app/v1"
	DefaultUploadPreset = "wandergram_unsigned"
	DefaultUploadFolder = "chat-media"
)

// Config represents the global ~/.wanderchat/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
	APIBaseURL     string `toml:"api_base_url"`
	HubURL         string `toml:"hub_url"`
	AssetHost      string `toml:"asset_host"`
	UploadPreset   string `toml:"upload_preset"`
	UploadFolder   string `toml:"upload_folder"`
}

// Load reads config from the given path and applies defaults for any field
// left empty. Returns an error if the file is missing or malformed.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault is Load, except a missing file yields a pure-defaults config
// instead of an error.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = &Config{}
		cfg.applyDefaults()
	}
	return cfg
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

func (c *Config) applyDefaults() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.HubURL == "" {
		c.HubURL = DefaultHubURL
	}
	if c.AssetHost == "" {
		c.AssetHost = DefaultAssetHost
	}
	if c.UploadPreset == "" {
		c.UploadPreset = DefaultUploadPreset
	}
	if c.UploadFolder == "" {
		c.UploadFolder = DefaultUploadFolder
	}
}
