// Package config provides configuration loading and structs for the Manabu server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// MaxConcurrent bounds in-flight requests; excess requests queue.
	MaxConcurrent int `yaml:"max_concurrent"`
	// MaxUploadMB caps multipart upload size.
	MaxUploadMB int `yaml:"max_upload_mb"`
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
	UploadDir      string `yaml:"upload_dir"`
}

// EmbeddingConfig holds settings for the remote embeddings endpoint. APIKey
// is normally supplied via the EMBEDDINGS_API_KEY environment variable.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
	// Mock switches to the deterministic in-process embedder. Offline
	// development only; vectors carry no semantics.
	Mock bool `yaml:"mock"`
}

// LLMConfig holds settings for the chat-completions endpoint. APIKey is
// normally supplied via the LLM_API_KEY environment variable. An empty APIKey
// with Disabled unset fails at startup rather than at first request.
type LLMConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	Model             string  `yaml:"model"`
	Temperature       float64 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Disabled turns off generation; answer requests fall back to
	// document-derived text and quiz/summarize return errors.
	Disabled bool `yaml:"disabled"`
}

// SearchConfig holds retrieval and chunking settings.
type SearchConfig struct {
	ChunkSize      int  `yaml:"chunk_size"`
	ChunkOverlap   int  `yaml:"chunk_overlap"`
	KeywordEnabled bool `yaml:"keyword_enabled"`
}

// AuthConfig holds session settings.
type AuthConfig struct {
	SessionTTLHours int `yaml:"session_ttl_hours"`
	// Disabled removes the auth requirement from API routes. Local single
	// user setups only.
	Disabled bool `yaml:"disabled"`
}

// WatchConfig holds inbox directory watch settings. Files dropped into a
// watched directory are ingested automatically.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, applies environment
// overrides for secrets, expands paths, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.UploadDir = expandPath(cfg.Storage.UploadDir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// applyEnv overrides secrets from the environment so keys never need to live
// in the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("EMBEDDINGS_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
