// Package service wires the ingestion, indexing, retrieval and answering
// components into one knowledge-base service for call-center agents.
package service

import (
	"context"
	"fmt"

	"github.com/viant/agentkb/answer"
	"github.com/viant/agentkb/answer/gemini"
	"github.com/viant/agentkb/chunking"
	"github.com/viant/agentkb/embeddings"
	"github.com/viant/agentkb/embeddings/ollama"
	"github.com/viant/agentkb/embeddings/openai"
	"github.com/viant/agentkb/indexer"
	"github.com/viant/agentkb/ingest"
	"github.com/viant/agentkb/retrieval"
	"github.com/viant/agentkb/schema"
	"github.com/viant/agentkb/vectordb"
	"github.com/viant/agentkb/vectordb/mem"
	"github.com/viant/agentkb/vectordb/sqlitevec"
	"go.uber.org/zap"
)

// Result pairs a structured answer with the evidence that grounded it.
type Result struct {
	Answer   schema.StructuredAnswer
	Evidence schema.RetrievalResult
}

// Service answers agent questions from the knowledge base.
type Service struct {
	config      *Config
	logger      *zap.Logger
	embedder    embeddings.Embedder
	generator   answer.Generator
	provider    vectordb.Provider
	manager     *indexer.Manager
	retriever   *retrieval.Retriever
	synthesizer *answer.Synthesizer
}

// Option customizes a Service, mainly to inject test doubles.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithEmbedder overrides the configured embedding backend.
func WithEmbedder(embedder embeddings.Embedder) Option {
	return func(s *Service) {
		s.embedder = embedder
	}
}

// WithGenerator overrides the configured generation backend.
func WithGenerator(generator answer.Generator) Option {
	return func(s *Service) {
		s.generator = generator
	}
}

// WithProvider overrides the configured collection backend.
func WithProvider(provider vectordb.Provider) Option {
	return func(s *Service) {
		s.provider = provider
	}
}

// New creates a Service from config; unset backends are built from it.
func New(config *Config, opts ...Option) (*Service, error) {
	s := &Service{config: config, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.embedder == nil {
		embedder, err := newEmbedder(&config.Embedding)
		if err != nil {
			return nil, err
		}
		s.embedder = embedder
	}
	if config.Embedding.Cache {
		s.embedder = embeddings.NewCache(s.embedder)
	}
	if s.provider == nil {
		provider, err := newProvider(&config.Collection, s.embedder.Model())
		if err != nil {
			return nil, err
		}
		s.provider = provider
	}
	if s.generator == nil {
		s.generator = gemini.NewClient(config.Generation.APIKey, config.Generation.Model)
	}

	normalizer := ingest.New(ingest.WithLogger(s.logger))
	chunker := chunking.New(config.Chunking)
	s.manager = indexer.New(s.provider, normalizer, chunker, s.embedder, config.Sources,
		indexer.WithLogger(s.logger),
		indexer.WithEmbedBatch(config.Embedding.BatchSize, config.Embedding.Parallelism))
	s.retriever = retrieval.New(s.embedder, s.manager, config.Retrieval)
	s.synthesizer = answer.New(s.generator, answer.Config{
		Temperature: config.Generation.Temperature,
		Timeout:     config.Generation.Timeout(),
		MaxRetries:  config.Generation.MaxRetries,
	}, answer.WithLogger(s.logger))
	return s, nil
}

func newEmbedder(cfg *EmbeddingConfig) (embeddings.Embedder, error) {
	switch cfg.Provider {
	case "", "openai":
		return openai.NewClient(cfg.APIKey, cfg.Model, openai.WithBaseURL(cfg.BaseURL)), nil
	case "ollama":
		return ollama.NewClient(cfg.Model, ollama.WithBaseURL(cfg.BaseURL)), nil
	case "simple":
		return embeddings.NewSimpleEmbedder(0), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

func newProvider(cfg *CollectionConfig, model string) (vectordb.Provider, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return sqlitevec.NewProvider(cfg.Path, cfg.Name, model)
	case "memory":
		return mem.NewProvider(cfg.Name, model), nil
	default:
		return nil, fmt.Errorf("unknown collection backend: %s", cfg.Backend)
	}
}

// BuildOrLoad prepares the collection, rebuilding when configured.
func (s *Service) BuildOrLoad(ctx context.Context) error {
	return s.manager.BuildOrLoad(ctx, s.config.Rebuild)
}

// Index returns the collection manager for direct index operations.
func (s *Service) Index() *indexer.Manager {
	return s.manager
}

// Ask retrieves evidence for the question and synthesizes a structured
// answer. The answer contract holds on failure paths as well; the returned
// error is for the caller's log, not a substitute for the answer.
func (s *Service) Ask(ctx context.Context, question string) (*Result, error) {
	var evidence schema.RetrievalResult
	if answer.ContainsKhmer(question) || answer.ClassifyIntent(question) != answer.IntentSmalltalk {
		var err error
		if evidence, err = s.retriever.Retrieve(ctx, question); err != nil {
			s.logger.Warn("retrieval failed", zap.String("question", question), zap.Error(err))
			structured := answer.Unavailable(question, "retrieval failed: "+err.Error())
			return &Result{Answer: structured}, err
		}
	}
	structured, err := s.synthesizer.Synthesize(ctx, question, evidence)
	if err != nil {
		s.logger.Warn("synthesis degraded", zap.String("question", question), zap.Error(err))
	}
	return &Result{Answer: structured, Evidence: evidence}, nil
}

// AskMany answers questions sequentially. Per-question failures are folded
// into each answer, so one bad query does not abort the batch.
func (s *Service) AskMany(ctx context.Context, questions []string) ([]*Result, error) {
	results := make([]*Result, 0, len(questions))
	for _, question := range questions {
		result, _ := s.Ask(ctx, question)
		results = append(results, result)
	}
	return results, nil
}

// Close releases the live collection.
func (s *Service) Close() error {
	return s.manager.Close()
}
