package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/viant/agentkb/schema"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `collection:
  path: /var/lib/agentkb/kb.db
  name: callcenter
sources:
  - location: /srv/kb/sheets
    kind: tabular
  - location: /srv/kb/playbooks
    kind: narrative
chunking:
  max_tokens: 300
  overlap_tokens: 30
embedding:
  provider: ollama
  model: nomic-embed-text
  cache: true
generation:
  model: gemini-2.5-flash
  timeoutSeconds: 20
  temperature: 0.2
retrieval:
  topK: 4
  similarityFloor: 0.3
rebuild: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Collection.Name != "callcenter" || cfg.Collection.Path != "/var/lib/agentkb/kb.db" {
		t.Fatalf("unexpected collection config: %+v", cfg.Collection)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[0].Kind != schema.KindTabular || cfg.Sources[1].Kind != schema.KindNarrative {
		t.Fatalf("unexpected sources: %+v", cfg.Sources)
	}
	if cfg.Chunking.MaxTokens != 300 || cfg.Chunking.OverlapTokens != 30 {
		t.Fatalf("unexpected chunking config: %+v", cfg.Chunking)
	}
	if cfg.Embedding.Provider != "ollama" || !cfg.Embedding.Cache {
		t.Fatalf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Generation.Timeout().Seconds() != 20 {
		t.Fatalf("unexpected generation timeout: %v", cfg.Generation.Timeout())
	}
	if cfg.Retrieval.TopK != 4 || cfg.Retrieval.SimilarityFloor != 0.3 {
		t.Fatalf("unexpected retrieval config: %+v", cfg.Retrieval)
	}
	if !cfg.Rebuild {
		t.Fatalf("rebuild flag lost")
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	if _, err := LoadConfig(context.Background(), filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestExpandUserPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := expandUserPath("~/kb/collection.db")
	if err != nil {
		t.Fatalf("expandUserPath: %v", err)
	}
	if got != filepath.Join(home, "kb/collection.db") {
		t.Fatalf("unexpected expansion: %q", got)
	}
	if plain, _ := expandUserPath("/tmp/kb.db"); plain != "/tmp/kb.db" {
		t.Fatalf("absolute path rewritten: %q", plain)
	}
	if _, err := expandUserPath("~bob/kb.db"); err == nil {
		t.Fatalf("expected error for ~user path")
	}
}
