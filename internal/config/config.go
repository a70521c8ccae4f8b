// Package config holds the yaml configuration for the medasr server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Model    ModelConfig    `yaml:"model"`
	Chunking ChunkingConfig `yaml:"chunking"`
}

type ServerConfig struct {
	Bind        string `yaml:"bind"`
	Port        int    `yaml:"port"`
	BodyLimitMB int    `yaml:"body_limit_mb"`
}

type ModelConfig struct {
	// Name is a registry model name or a path to an exported model directory.
	Name         string `yaml:"name"`
	Dir          string `yaml:"dir"`
	Device       string `yaml:"device"`
	AutoDownload bool   `yaml:"auto_download"`
	Preload      bool   `yaml:"preload"`
}

type ChunkingConfig struct {
	ChunkSeconds  float64 `yaml:"chunk_seconds"`
	StrideSeconds float64 `yaml:"stride_seconds"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:        "0.0.0.0",
			Port:        8000,
			BodyLimitMB: 100,
		},
		Model: ModelConfig{
			Name:         "medasr-base",
			Device:       "auto",
			AutoDownload: true,
		},
		Chunking: ChunkingConfig{
			ChunkSeconds:  20,
			StrideSeconds: 2,
		},
	}
}

// Load reads a yaml config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Chunking.ChunkSeconds <= 0 {
		return fmt.Errorf("chunk_seconds must be positive, got %v", c.Chunking.ChunkSeconds)
	}
	// Zero is rejected rather than accepted: the transcription service
	// treats a non-positive stride as "use the default", so a configured 0
	// would not mean zero overlap.
	if c.Chunking.StrideSeconds <= 0 || c.Chunking.StrideSeconds >= c.Chunking.ChunkSeconds {
		return fmt.Errorf("stride_seconds %v must be in (0, chunk_seconds)", c.Chunking.StrideSeconds)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}
