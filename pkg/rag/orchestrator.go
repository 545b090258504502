// Package rag decides, per question, whether an answer can be grounded in the
// indexed documents and drives the generator accordingly.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/perbu/campusrag/pkg/cache"
	"github.com/perbu/campusrag/pkg/generator"
	"github.com/perbu/campusrag/pkg/history"
	"github.com/perbu/campusrag/pkg/index"
	"github.com/perbu/campusrag/pkg/keywords"
	"github.com/perbu/campusrag/pkg/persona"
)

// Source tags reported with every answer.
const (
	SourceCache          = "cache"
	SourceRetrieval      = "retrieval+generation"
	SourceKeywords       = "retrieval+generation+keywords"
	SourceGenerationOnly = "generation-only"
	SourcePersona        = "persona"
)

// ErrNoGenerator is returned by Answer when no generator is configured.
var ErrNoGenerator = errors.New("no generator configured")

// Searcher is the read side of the vector index.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]index.SearchResult, error)
}

// TextProcessor normalizes queries and shortens long messages.
type TextProcessor interface {
	Normalize(text string) string
	Summarize(text string, maxTokens int) string
}

// Config holds the retrieval policy knobs.
type Config struct {
	// Threshold is the largest accepted squared L2 distance of the top
	// result. It depends on the embedding model.
	Threshold           float32
	PrimaryK            int
	SecondaryK          int
	ExpansionTerms      int
	MaxUserMessageWords int
	MinCacheableLength  int
}

func DefaultConfig() Config {
	return Config{
		Threshold:           1.30,
		PrimaryK:            5,
		SecondaryK:          3,
		ExpansionTerms:      3,
		MaxUserMessageWords: 100,
		MinCacheableLength:  10,
	}
}

// Options wires the orchestrator's collaborators. Generator and Persona may
// be nil for retrieval-only use.
type Options struct {
	Text      TextProcessor
	Keywords  *keywords.Graph
	Index     Searcher
	Cache     *cache.ResponseCache
	Generator generator.Generator
	Persona   *persona.Persona
	Logger    *slog.Logger
}

// Orchestrator is safe for concurrent use; it holds no per-request state.
type Orchestrator struct {
	cfg       Config
	text      TextProcessor
	keywords  *keywords.Graph
	index     Searcher
	cache     *cache.ResponseCache
	generator generator.Generator
	persona   *persona.Persona
	logger    *slog.Logger
}

// Decision is the outcome of the retrieval policy for one message.
type Decision struct {
	Source string
	// Query is the text sent to the index by the accepting search, or by the
	// last search attempted on the fallback path.
	Query   string
	Context string
	Results []index.SearchResult
	// Cached holds the stored answer when Source is SourceCache.
	Cached string
}

// Grounded reports whether the decision carries retrieved context.
func (d *Decision) Grounded() bool {
	return d.Context != ""
}

// Answer is the final reply for a message.
type Answer struct {
	Text     string
	Source   string
	Decision *Decision
}

func New(cfg Config, opts Options) (*Orchestrator, error) {
	if opts.Text == nil || opts.Index == nil {
		return nil, errors.New("orchestrator needs a text processor and an index")
	}
	def := DefaultConfig()
	if cfg.PrimaryK <= 0 {
		cfg.PrimaryK = def.PrimaryK
	}
	if cfg.SecondaryK <= 0 {
		cfg.SecondaryK = def.SecondaryK
	}
	if cfg.ExpansionTerms <= 0 {
		cfg.ExpansionTerms = def.ExpansionTerms
	}
	if cfg.MaxUserMessageWords <= 0 {
		cfg.MaxUserMessageWords = def.MaxUserMessageWords
	}
	if cfg.MinCacheableLength < 0 {
		cfg.MinCacheableLength = def.MinCacheableLength
	}
	if opts.Keywords == nil {
		opts.Keywords = keywords.New(nil)
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(cache.DefaultCapacity)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		cfg:       cfg,
		text:      opts.Text,
		keywords:  opts.Keywords,
		index:     opts.Index,
		cache:     opts.Cache,
		generator: opts.Generator,
		persona:   opts.Persona,
		logger:    opts.Logger,
	}, nil
}

// Config returns the effective policy.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Bound shortens messages longer than MaxUserMessageWords by extractive
// summarization. The result is the cache key for the message.
func (o *Orchestrator) Bound(message string) string {
	words := len(strings.Fields(message))
	if words <= o.cfg.MaxUserMessageWords {
		return message
	}
	bounded := o.text.Summarize(message, o.cfg.MaxUserMessageWords)
	o.logger.Info("long message summarized", "words", words, "summary_words", len(strings.Fields(bounded)))
	return bounded
}

// Retrieve runs the retrieval policy on an already bounded message: cache
// lookup, expanded primary search, keyword secondary search, then fallback.
func (o *Orchestrator) Retrieve(ctx context.Context, message string) (*Decision, error) {
	if cached, ok := o.cache.Get(message); ok {
		o.logger.Info("answer served from cache")
		return &Decision{Source: SourceCache, Cached: cached}, nil
	}

	normalized := o.text.Normalize(message)
	expanded := o.keywords.Expand(normalized)
	if expanded != normalized {
		o.logger.Info("query expanded", "normalized", normalized, "expanded", expanded)
	}

	results, err := o.index.Search(ctx, expanded, o.cfg.PrimaryK)
	if err != nil {
		return nil, fmt.Errorf("primary search: %w", err)
	}
	o.logResults("primary", results)
	if o.confident(results) {
		return o.accept(SourceRetrieval, expanded, results), nil
	}

	decision := &Decision{Source: SourceGenerationOnly, Query: expanded, Results: results}

	related := o.keywords.RelatedTerms(message)
	if len(related) == 0 {
		o.logger.Info("no confident match and no related terms, falling back")
		return decision, nil
	}
	if len(related) > o.cfg.ExpansionTerms {
		related = related[:o.cfg.ExpansionTerms]
	}
	explicit := message + " " + strings.Join(related, " ")
	o.logger.Info("retrying with explicit terms", "query", explicit)

	results, err = o.index.Search(ctx, explicit, o.cfg.SecondaryK)
	if err != nil {
		return nil, fmt.Errorf("secondary search: %w", err)
	}
	o.logResults("secondary", results)
	if o.confident(results) {
		return o.accept(SourceKeywords, explicit, results), nil
	}

	o.logger.Info("no confident match, falling back")
	decision.Query = explicit
	decision.Results = results
	return decision, nil
}

// Answer produces the reply to a raw user message given the prior turns of
// its conversation.
func (o *Orchestrator) Answer(ctx context.Context, message string, turns []history.Turn) (*Answer, error) {
	bounded := o.Bound(message)

	if o.persona != nil && o.persona.IsFarewell(bounded) {
		return &Answer{
			Text:     o.persona.Messages.Farewell,
			Source:   SourcePersona,
			Decision: &Decision{Source: SourcePersona},
		}, nil
	}

	decision, err := o.Retrieve(ctx, bounded)
	if err != nil {
		return nil, err
	}
	if decision.Source == SourceCache {
		return &Answer{Text: decision.Cached, Source: SourceCache, Decision: decision}, nil
	}

	if o.generator == nil {
		return nil, ErrNoGenerator
	}
	text, err := o.generator.Generate(ctx, generator.Request{
		Prompt:  bounded,
		History: turns,
		Context: decision.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("generate (%s): %w", decision.Source, err)
	}

	if utf8.RuneCountInString(text) > o.cfg.MinCacheableLength {
		o.cache.Put(bounded, text)
	}
	o.logger.Info("answered", "source", decision.Source, "results", len(decision.Results))
	return &Answer{Text: text, Source: decision.Source, Decision: decision}, nil
}

// confident is the acceptance gate: a non-empty result list whose best
// distance is within the threshold, inclusive.
func (o *Orchestrator) confident(results []index.SearchResult) bool {
	return len(results) > 0 && results[0].Score <= o.cfg.Threshold
}

func (o *Orchestrator) accept(source, query string, results []index.SearchResult) *Decision {
	o.logger.Info("retrieval accepted", "source", source, "top", results[0].ChunkID, "score", results[0].Score)
	return &Decision{
		Source:  source,
		Query:   query,
		Context: BuildContext(results),
		Results: results,
	}
}

func (o *Orchestrator) logResults(stage string, results []index.SearchResult) {
	if !o.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for i, r := range results {
		o.logger.Debug("search result", "stage", stage, "rank", i+1, "id", r.ChunkID, "score", r.Score, "text", truncate(r.Text, 100))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
