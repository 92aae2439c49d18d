package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/viant/agentkb/chunking"
	"github.com/viant/agentkb/indexer"
	"github.com/viant/agentkb/retrieval"
	"github.com/viant/scy/cred/secret"
	"gopkg.in/yaml.v3"
)

// Config defines the knowledge-base service settings.
type Config struct {
	Collection CollectionConfig `yaml:"collection"`
	Sources    []indexer.Source `yaml:"sources"`
	Chunking   chunking.Config  `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  retrieval.Config `yaml:"retrieval"`
	Rebuild    bool             `yaml:"rebuild"`
}

// CollectionConfig defines vector collection settings.
type CollectionConfig struct {
	Path    string `yaml:"path"`
	Name    string `yaml:"name"`
	Backend string `yaml:"backend"` // sqlite (default) or memory
}

// EmbeddingConfig defines embedding backend settings.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider"` // openai, ollama or simple
	Model        string `yaml:"model"`
	BaseURL      string `yaml:"baseURL"`
	APIKey       string `yaml:"apiKey"`
	APIKeySecret string `yaml:"apiKeySecret,omitempty"`
	BatchSize    int    `yaml:"batchSize"`
	Parallelism  int    `yaml:"parallelism"`
	Cache        bool   `yaml:"cache"`
}

// GenerationConfig defines generation backend settings.
type GenerationConfig struct {
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"apiKey"`
	APIKeySecret   string  `yaml:"apiKeySecret,omitempty"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
	MaxRetries     int     `yaml:"maxRetries"`
	Temperature    float32 `yaml:"temperature"`
}

// Timeout returns the per-attempt generation deadline.
func (c *GenerationConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig reads and expands a yaml config file.
func LoadConfig(ctx context.Context, path string) (*Config, error) {
	path, err := expandUserPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Collection.Path != "" {
		if cfg.Collection.Path, err = expandUserPath(cfg.Collection.Path); err != nil {
			return nil, err
		}
	}
	for i, src := range cfg.Sources {
		if src.Location == "" {
			continue
		}
		expanded, err := expandUserPath(src.Location)
		if err != nil {
			return nil, err
		}
		cfg.Sources[i].Location = expanded
	}
	if cfg.Embedding.APIKey, err = expandWithSecret(ctx, cfg.Embedding.APIKey, cfg.Embedding.APIKeySecret); err != nil {
		return nil, err
	}
	if cfg.Generation.APIKey, err = expandWithSecret(ctx, cfg.Generation.APIKey, cfg.Generation.APIKeySecret); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func expandUserPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if trimmed == "~" {
		return home, nil
	}
	if !strings.HasPrefix(trimmed, "~/") {
		return "", fmt.Errorf("config: unsupported ~user path: %s", path)
	}
	return filepath.Join(home, trimmed[2:]), nil
}

// expandWithSecret loads a secret and expands placeholders in the value.
func expandWithSecret(ctx context.Context, value, secretRef string) (string, error) {
	secretRef = strings.TrimSpace(secretRef)
	if secretRef == "" {
		return value, nil
	}
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("secret %q provided but value is empty", secretRef)
	}
	svc := secret.New()
	sec, err := svc.Lookup(ctx, secret.Resource(secretRef))
	if err != nil {
		return "", err
	}
	return sec.Expand(value), nil
}
