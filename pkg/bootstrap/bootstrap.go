// Package bootstrap assembles the retrieval pipeline from configuration. The
// server and the command-line tools share it so the index is always built and
// queried with the same normalizer and embedder.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/perbu/campusrag/pkg/cache"
	"github.com/perbu/campusrag/pkg/config"
	"github.com/perbu/campusrag/pkg/embedder"
	"github.com/perbu/campusrag/pkg/generator"
	"github.com/perbu/campusrag/pkg/history"
	"github.com/perbu/campusrag/pkg/index"
	"github.com/perbu/campusrag/pkg/keywords"
	"github.com/perbu/campusrag/pkg/loader"
	"github.com/perbu/campusrag/pkg/normalizer"
	"github.com/perbu/campusrag/pkg/persona"
	"github.com/perbu/campusrag/pkg/rag"
)

// Retrieval is the part of the pipeline needed to build or search the index.
type Retrieval struct {
	Normalizer *normalizer.Normalizer
	Embedder   embedder.Embedder
	Index      *index.Index
}

// Stack is the fully wired assistant.
type Stack struct {
	Retrieval
	Keywords     *keywords.Graph
	Persona      *persona.Persona
	Generator    generator.Generator
	Cache        *cache.ResponseCache
	History      *history.Store
	Orchestrator *rag.Orchestrator
}

// NewRetrieval builds the normalizer, embedder and an empty index.
func NewRetrieval(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Retrieval, error) {
	var lemmas map[string]string
	if cfg.Normalizer.LemmasFile != "" {
		var err error
		lemmas, err = normalizer.LoadLemmas(cfg.Normalizer.LemmasFile)
		if err != nil {
			return nil, err
		}
	}
	norm, err := normalizer.New(lemmas)
	if err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}

	emb, err := embedder.New(ctx, embedder.Options{
		Provider:  cfg.Embedder.Provider,
		Model:     cfg.Embedder.Model,
		Dimension: cfg.Embedder.Dimension,
		APIKey:    cfg.Embedder.APIKey,
	})
	if err != nil {
		return nil, &index.ConfigurationError{Op: "embedder", Err: err}
	}
	logger.Info("embedder ready", "model", emb.ModelInfo(), "dimension", emb.Dimension())

	idx := index.New(emb, norm, index.Options{
		Dir:       cfg.Index.Dir,
		BatchSize: cfg.Index.BatchSize,
		Logger:    logger,
	})
	return &Retrieval{Normalizer: norm, Embedder: emb, Index: idx}, nil
}

// ErrNoChunks is returned by BuildFromChunks when the chunk directory is
// missing or holds no usable record.
var ErrNoChunks = errors.New("no usable chunks")

// BuildFromChunks loads the chunk directory, builds the index and persists
// it. Bad records are skipped; it fails only when nothing usable remains or
// the build itself fails.
func (r *Retrieval) BuildFromChunks(ctx context.Context, dir string, logger *slog.Logger) error {
	chunks, errs := loader.New(logger).LoadDir(os.DirFS(dir), ".")
	if len(errs) > 0 {
		logger.Warn("chunk ingestion reported problems", "dir", dir, "skipped", len(errs))
	}
	if len(chunks) == 0 {
		if len(errs) > 0 {
			return fmt.Errorf("%w in %s: %w", ErrNoChunks, dir, errors.Join(errs...))
		}
		return fmt.Errorf("%w in %s", ErrNoChunks, dir)
	}
	if err := r.Index.Build(ctx, chunks); err != nil {
		return err
	}
	return r.Index.Persist()
}

// EnsureIndex loads persisted artifacts, building them from the chunk
// directory when none exist. An empty corpus is not an error: the index
// stays empty and every question falls back to generation.
func (r *Retrieval) EnsureIndex(ctx context.Context, dir string, logger *slog.Logger) error {
	ok, err := r.Index.Load()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	logger.Info("no persisted index, building", "chunks_dir", dir)
	err = r.BuildFromChunks(ctx, dir, logger)
	if errors.Is(err, ErrNoChunks) {
		logger.Warn("empty corpus, answering without documents", "chunks_dir", dir, "error", err)
		return nil
	}
	return err
}

// Close releases the embedder memo, if any.
func (r *Retrieval) Close() {
	if c, ok := r.Embedder.(*embedder.Cached); ok {
		c.Close()
	}
}

// New wires the whole assistant. A missing generator credential is not
// fatal: the stack still retrieves and Answer reports rag.ErrNoGenerator.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	r, err := NewRetrieval(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	kw, err := keywordGraph(cfg.Keywords.File)
	if err != nil {
		return nil, err
	}

	p, err := personaFor(cfg.Persona.File)
	if err != nil {
		return nil, err
	}

	gen, err := generator.New(ctx, generator.Options{
		Provider: cfg.Generator.Provider,
		Model:    cfg.Generator.Model,
		APIKey:   cfg.Generator.APIKey,
		BaseURL:  cfg.Generator.BaseURL,
		Timeout:  cfg.Generator.Timeout,
		Logger:   logger,
	}, p)
	if errors.Is(err, generator.ErrUnavailable) {
		logger.Warn("generator unavailable, answers limited to cache and persona", "error", err)
		gen = nil
	} else if err != nil {
		return nil, err
	}

	rc := cache.New(cfg.Cache.Size)
	orch, err := rag.New(rag.Config{
		Threshold:           cfg.RAG.SimilarityThreshold,
		PrimaryK:            cfg.RAG.PrimaryK,
		SecondaryK:          cfg.RAG.SecondaryK,
		ExpansionTerms:      cfg.RAG.ExpansionTerms,
		MaxUserMessageWords: cfg.RAG.MaxUserMessageWords,
		MinCacheableLength:  cfg.RAG.MinCacheableLength,
	}, rag.Options{
		Text:      r.Normalizer,
		Keywords:  kw,
		Index:     r.Index,
		Cache:     rc,
		Generator: gen,
		Persona:   p,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	return &Stack{
		Retrieval:    *r,
		Keywords:     kw,
		Persona:      p,
		Generator:    gen,
		Cache:        rc,
		History:      history.NewStore(cfg.History.MaxTurns, cfg.History.MaxSessions),
		Orchestrator: orch,
	}, nil
}

func keywordGraph(path string) (*keywords.Graph, error) {
	if path == "" {
		return keywords.Default()
	}
	return keywords.Load(path)
}

func personaFor(path string) (*persona.Persona, error) {
	if path == "" {
		return persona.Default()
	}
	return persona.Load(path)
}
